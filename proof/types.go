// Package proof validates ledger inclusion proofs.
//
// Validation has two tiers. The structural tier needs neither network nor
// cryptography and only checks that every required field is present. The
// cryptographic tier runs only after the structural tier passes: it verifies
// the authenticator signature over the transaction hash and, given a trust
// base, that the Merkle path recomputes to a root endorsed by the ledger
// certificate.
package proof

import (
	"xdao.co/tokenrec/hashutil"
)

// Authenticator is the signer's commitment to one state transition.
type Authenticator struct {
	Algorithm string            `json:"algorithm"`
	PublicKey hashutil.HexBytes `json:"publicKey"`
	Signature hashutil.HexBytes `json:"signature"`
	StateHash hashutil.Imprint  `json:"stateHash"`
}

func (a *Authenticator) Clone() *Authenticator {
	if a == nil {
		return nil
	}
	return &Authenticator{
		Algorithm: a.Algorithm,
		PublicKey: cloneBytes(a.PublicKey),
		Signature: cloneBytes(a.Signature),
		StateHash: hashutil.Imprint(cloneBytes(a.StateHash)),
	}
}

// MerkleStep is one sibling on the path from a leaf to the root.
// Left is true when the sibling sits to the left of the running hash.
type MerkleStep struct {
	Sibling hashutil.HexBytes `json:"sibling"`
	Left    bool              `json:"left,omitempty"`
}

// MerklePath proves membership of one leaf under Root.
type MerklePath struct {
	Root  hashutil.Imprint `json:"root"`
	Steps []MerkleStep     `json:"steps"`
}

func (m *MerklePath) Clone() *MerklePath {
	if m == nil {
		return nil
	}
	out := &MerklePath{Root: hashutil.Imprint(cloneBytes(m.Root))}
	if m.Steps != nil {
		out.Steps = make([]MerkleStep, len(m.Steps))
		for i, s := range m.Steps {
			out.Steps[i] = MerkleStep{Sibling: cloneBytes(s.Sibling), Left: s.Left}
		}
	}
	return out
}

// CertificateSignature is one validator's endorsement of a round root.
type CertificateSignature struct {
	NodeID    string            `json:"nodeId"`
	Signature hashutil.HexBytes `json:"signature"`
}

// Certificate binds a round's Merkle root to the validator set.
type Certificate struct {
	Round      uint64                 `json:"round"`
	RootHash   hashutil.Imprint       `json:"rootHash"`
	Signatures []CertificateSignature `json:"signatures"`
}

func (c *Certificate) Clone() *Certificate {
	if c == nil {
		return nil
	}
	out := &Certificate{Round: c.Round, RootHash: hashutil.Imprint(cloneBytes(c.RootHash))}
	if c.Signatures != nil {
		out.Signatures = make([]CertificateSignature, len(c.Signatures))
		for i, s := range c.Signatures {
			out.Signatures[i] = CertificateSignature{NodeID: s.NodeID, Signature: cloneBytes(s.Signature)}
		}
	}
	return out
}

// InclusionProof is the ledger's evidence that a transition was committed.
//
// Every field is optional on disk: a record may carry an authenticator-only
// proof until the resolver fetches the rest.
type InclusionProof struct {
	Authenticator   *Authenticator   `json:"authenticator,omitempty"`
	TransactionHash hashutil.Imprint `json:"transactionHash,omitempty"`
	MerklePath      *MerklePath      `json:"merkleTreePath,omitempty"`
	Certificate     *Certificate     `json:"certificate,omitempty"`
}

// IsComplete reports whether the proof carries both an authenticator and a
// transaction hash.
func (p *InclusionProof) IsComplete() bool {
	return p != nil && p.Authenticator != nil && !p.TransactionHash.IsZero()
}

func (p *InclusionProof) Clone() *InclusionProof {
	if p == nil {
		return nil
	}
	return &InclusionProof{
		Authenticator:   p.Authenticator.Clone(),
		TransactionHash: hashutil.Imprint(cloneBytes(p.TransactionHash)),
		MerklePath:      p.MerklePath.Clone(),
		Certificate:     p.Certificate.Clone(),
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
