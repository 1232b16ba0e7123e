package proof

import (
	"xdao.co/tokenrec/compliance"
	"xdao.co/tokenrec/hashutil"
)

// WarnNoSiblingSteps is reported when a Merkle path carries no siblings. A
// leaf that is alone in its round legitimately has none.
const WarnNoSiblingSteps = "merkle path has no sibling steps"

// Options controls cryptographic validation.
type Options struct {
	// TrustBase enables full-chain verification (Merkle path + certificate).
	TrustBase *TrustBase

	// TransactionHash, when set, must equal the proof's transaction hash.
	TransactionHash hashutil.Imprint

	// StateHash, when set, must equal the authenticator's state hash.
	StateHash hashutil.Imprint

	// Mode Strict turns structural warnings into errors.
	Mode compliance.ComplianceMode
}

// ValidateStructure checks field presence only. It never touches the network
// or performs cryptography.
func ValidateStructure(p *InclusionProof, mode compliance.ComplianceMode) ([]string, error) {
	if p == nil {
		return nil, newError(KindStructural, "PRF-STR-000", "missing inclusion proof")
	}
	if p.Authenticator == nil {
		return nil, newError(KindStructural, "PRF-STR-001", "missing authenticator")
	}
	if p.TransactionHash.IsZero() {
		return nil, newError(KindStructural, "PRF-STR-002", "missing transaction hash")
	}
	if p.MerklePath == nil || p.MerklePath.Root.IsZero() {
		return nil, newError(KindStructural, "PRF-STR-003", "missing merkle path root")
	}
	if p.Certificate == nil {
		return nil, newError(KindStructural, "PRF-STR-004", "missing certificate")
	}
	var warnings []string
	if len(p.MerklePath.Steps) == 0 {
		if mode == compliance.Strict {
			return nil, newError(KindStructural, "PRF-STR-005", "strict mode: "+WarnNoSiblingSteps)
		}
		warnings = append(warnings, WarnNoSiblingSteps)
	}
	return warnings, nil
}

// Verify runs the cryptographic tier. The structural tier runs first and its
// failure is returned as-is, so a signature is never checked against a
// missing authenticator.
func Verify(p *InclusionProof, opts Options) error {
	if _, err := ValidateStructure(p, opts.Mode); err != nil {
		return err
	}
	return verifyCrypto(p, opts)
}

func verifyCrypto(p *InclusionProof, opts Options) error {
	a := p.Authenticator
	if err := a.Reconstruct(); err != nil {
		return err
	}
	if _, err := hashutil.ParseImprint(p.TransactionHash); err != nil {
		return wrapError(KindStructural, "PRF-STR-006", "invalid transaction hash", err)
	}
	if !opts.TransactionHash.IsZero() && !opts.TransactionHash.Equal(p.TransactionHash) {
		return newError(KindCrypto, "PRF-CRYPTO-402", "transaction hash does not match local transaction data")
	}
	if !opts.StateHash.IsZero() && !opts.StateHash.Equal(a.StateHash) {
		return newError(KindCrypto, "PRF-CRYPTO-403", "authenticator state hash does not match local source state")
	}
	if err := a.VerifySignature(p.TransactionHash); err != nil {
		return err
	}
	if opts.TrustBase == nil {
		return nil
	}

	leaf := LeafHash(a.RequestID(), p.TransactionHash)
	root, err := p.MerklePath.ComputeRoot(leaf)
	if err != nil {
		return err
	}
	if !root.Equal(p.MerklePath.Root) {
		return newError(KindCrypto, "PRF-MERKLE-001", "merkle path does not recompute to the claimed root")
	}
	return VerifyCertificate(p.Certificate, p.MerklePath.Root, opts.TrustBase)
}

// Report is the outcome of running both tiers on one proof.
type Report struct {
	Warnings   []string
	Structural error
	Crypto     error

	// CryptoChecked is false when the structural tier failed.
	CryptoChecked bool
	// ChainChecked is true when a trust base was supplied.
	ChainChecked bool
}

// Err returns the first failure, structural before cryptographic.
func (r Report) Err() error {
	if r.Structural != nil {
		return r.Structural
	}
	return r.Crypto
}

func (r Report) OK() bool { return r.Err() == nil }

// Validate runs both tiers and reports each separately.
func Validate(p *InclusionProof, opts Options) Report {
	var r Report
	r.Warnings, r.Structural = ValidateStructure(p, opts.Mode)
	if r.Structural != nil {
		return r
	}
	r.CryptoChecked = true
	r.ChainChecked = opts.TrustBase != nil
	r.Crypto = verifyCrypto(p, opts)
	return r
}

// ChainItem is one link of a token's provenance as seen by the validator.
type ChainItem struct {
	Label           string
	Proof           *InclusionProof
	TransactionHash hashutil.Imprint
	StateHash       hashutil.Imprint
}

// ItemReport pairs a chain item label with its report.
type ItemReport struct {
	Label string
	Report
}

// ChainReport covers every item of a transfer chain, in order.
type ChainReport struct {
	Items []ItemReport
}

func (c ChainReport) OK() bool {
	for _, it := range c.Items {
		if !it.OK() {
			return false
		}
	}
	return true
}

// FirstFailure returns the index and error of the first failing item, or -1.
func (c ChainReport) FirstFailure() (int, error) {
	for i, it := range c.Items {
		if err := it.Err(); err != nil {
			return i, err
		}
	}
	return -1, nil
}

// ValidateChain validates every item independently. It does not stop at the
// first failure, so an audit shows the state of the whole chain.
func ValidateChain(items []ChainItem, tb *TrustBase, mode compliance.ComplianceMode) ChainReport {
	out := ChainReport{Items: make([]ItemReport, 0, len(items))}
	for _, it := range items {
		r := Validate(it.Proof, Options{
			TrustBase:       tb,
			TransactionHash: it.TransactionHash,
			StateHash:       it.StateHash,
			Mode:            mode,
		})
		out.Items = append(out.Items, ItemReport{Label: it.Label, Report: r})
	}
	return out
}
