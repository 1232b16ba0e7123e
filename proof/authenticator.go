package proof

import (
	"crypto/ed25519"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/keys"
)

// DeriveRequestID returns the ledger index for a commitment:
// sha256(publicKey || stateHash). Signer and verifier must agree on it
// byte-for-byte, since the ledger stores proofs under this identifier.
func DeriveRequestID(publicKey []byte, stateHash hashutil.Imprint) hashutil.Imprint {
	buf := make([]byte, 0, len(publicKey)+len(stateHash))
	buf = append(buf, publicKey...)
	buf = append(buf, stateHash...)
	return hashutil.SumSHA256(buf)
}

// RequestID derives the request id this authenticator commits under.
func (a *Authenticator) RequestID() hashutil.Imprint {
	return DeriveRequestID(a.PublicKey, a.StateHash)
}

// Reconstruct checks that the serialized authenticator decodes into a usable
// key, signature and state hash for its algorithm.
func (a *Authenticator) Reconstruct() error {
	if a == nil {
		return newError(KindStructural, "PRF-AUTH-001", "missing authenticator")
	}
	if _, err := hashutil.ParseImprint(a.StateHash); err != nil {
		return wrapError(KindStructural, "PRF-AUTH-002", "invalid authenticator state hash", err)
	}
	switch a.Algorithm {
	case keys.AlgEd25519:
		if len(a.PublicKey) != ed25519.PublicKeySize {
			return newError(KindStructural, "PRF-AUTH-011", "invalid ed25519 public key length")
		}
		if len(a.Signature) != ed25519.SignatureSize {
			return newError(KindStructural, "PRF-AUTH-012", "invalid ed25519 signature length")
		}
	case keys.AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(a.PublicKey); err != nil {
			return wrapError(KindStructural, "PRF-AUTH-021", "invalid dilithium3 public key", err)
		}
		if len(a.Signature) != mode3.SignatureSize {
			return newError(KindStructural, "PRF-AUTH-022", "invalid dilithium3 signature length")
		}
	case "":
		return newError(KindStructural, "PRF-AUTH-003", "missing authenticator algorithm")
	default:
		return newError(KindStructural, "PRF-AUTH-004", "unsupported authenticator algorithm "+a.Algorithm)
	}
	return nil
}

// VerifySignature checks the authenticator signature over message.
func (a *Authenticator) VerifySignature(message []byte) error {
	if err := a.Reconstruct(); err != nil {
		return err
	}
	if verifySignature(a.Algorithm, a.PublicKey, message, a.Signature) {
		return nil
	}
	return newError(KindCrypto, "PRF-CRYPTO-401", "authenticator signature invalid")
}

// Sign builds an authenticator for a transition from stateHash, signing
// transactionHash with s.
func Sign(s keys.Signer, stateHash, transactionHash hashutil.Imprint) (*Authenticator, error) {
	sig, err := s.Sign(transactionHash)
	if err != nil {
		return nil, err
	}
	return &Authenticator{
		Algorithm: s.Algorithm(),
		PublicKey: s.PublicKey(),
		Signature: sig,
		StateHash: stateHash,
	}, nil
}

func verifySignature(alg string, pub, message, sig []byte) bool {
	switch alg {
	case keys.AlgEd25519:
		if len(pub) != ed25519.PublicKeySize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(pub), message, sig)
	case keys.AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return false
		}
		return mode3.Verify(&pk, message, sig)
	default:
		return false
	}
}
