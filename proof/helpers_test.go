package proof

import (
	"crypto/ed25519"
	"testing"

	"golang.org/x/crypto/sha3"

	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/keys"
)

// ----- test helpers -----

func mustSigner(t *testing.T, seedByte byte) *keys.Ed25519Signer {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = seedByte
	}
	s, err := keys.NewEd25519Signer(seed)
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	return s
}

// dilithiumSigner returns a Dilithium3 signer whose key is generated from a
// SHAKE256 stream over label.
func dilithiumSigner(t *testing.T, label string) *keys.Dilithium3Signer {
	t.Helper()
	h := sha3.NewShake256()
	h.Write([]byte(label))
	s, err := keys.NewDilithium3Signer(h)
	if err != nil {
		t.Fatalf("NewDilithium3Signer: %v", err)
	}
	return s
}

type fixture struct {
	proof     *InclusionProof
	trustBase *TrustBase
	stateHash hashutil.Imprint
	txHash    hashutil.Imprint
}

// buildProof commits one transition into a round holding extra sibling
// leaves and returns the resulting proof plus the trust base that endorses it.
func buildProof(t *testing.T, siblings int) fixture {
	t.Helper()
	return buildProofFor(t, mustSigner(t, 0x42), siblings)
}

func buildProofFor(t *testing.T, owner keys.Signer, siblings int) fixture {
	t.Helper()
	stateHash := hashutil.SumSHA256([]byte("source state"))
	txHash := hashutil.SumSHA256([]byte("transaction"))

	auth, err := Sign(owner, stateHash, txHash)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	leaf := LeafHash(auth.RequestID(), txHash)

	// Fold the leaf with `siblings` other leaves, always on the right.
	path := &MerklePath{Steps: []MerkleStep{}}
	cur := leaf
	for i := 0; i < siblings; i++ {
		other := LeafHash(hashutil.SumSHA256([]byte{byte(i)}), txHash)
		left := i%2 == 1
		path.Steps = append(path.Steps, MerkleStep{Sibling: other, Left: left})
		if left {
			cur = NodeHash(other, cur)
		} else {
			cur = NodeHash(cur, other)
		}
	}
	root, err := RootImprint(cur)
	if err != nil {
		t.Fatalf("RootImprint: %v", err)
	}
	path.Root = root

	tb, cert := certify(t, 1, root, 3, 2)
	return fixture{
		proof: &InclusionProof{
			Authenticator:   auth,
			TransactionHash: txHash,
			MerklePath:      path,
			Certificate:     cert,
		},
		trustBase: tb,
		stateHash: stateHash,
		txHash:    txHash,
	}
}

// certify builds a trust base of n validators with the given quorum and a
// certificate signed by every one of them.
func certify(t *testing.T, round uint64, root hashutil.Imprint, n, quorum int) (*TrustBase, *Certificate) {
	t.Helper()
	tb := &TrustBase{Epoch: 1, Quorum: quorum}
	cert := &Certificate{Round: round, RootHash: root}
	msg := CertificateSigningBytes(round, root)
	for i := 0; i < n; i++ {
		s := mustSigner(t, byte(0xa0+i))
		id := "node-" + string(rune('a'+i))
		tb.Validators = append(tb.Validators, Validator{NodeID: id, Algorithm: s.Algorithm(), PublicKey: s.PublicKey()})
		sig, err := s.Sign(msg)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		cert.Signatures = append(cert.Signatures, CertificateSignature{NodeID: id, Signature: sig})
	}
	return tb, cert
}
