package proof

import (
	"encoding/binary"
	"fmt"

	"xdao.co/tokenrec/hashutil"
)

// Validator is one ledger node allowed to endorse round roots.
type Validator struct {
	NodeID    string            `json:"nodeId"`
	Algorithm string            `json:"algorithm"`
	PublicKey hashutil.HexBytes `json:"publicKey"`
}

// TrustBase is the validator set a client trusts, plus the number of
// distinct endorsements a certificate needs.
type TrustBase struct {
	Epoch      uint64      `json:"epoch"`
	Quorum     int         `json:"quorum"`
	Validators []Validator `json:"validators"`
}

// Validate ensures the trust base is internally consistent before use.
func (tb *TrustBase) Validate() error {
	if tb == nil {
		return newError(KindConfig, "PRF-TB-001", "nil trust base")
	}
	if len(tb.Validators) == 0 {
		return newError(KindConfig, "PRF-TB-002", "trust base has no validators")
	}
	if tb.Quorum < 1 || tb.Quorum > len(tb.Validators) {
		return newError(KindConfig, "PRF-TB-003", fmt.Sprintf("quorum %d out of range 1..%d", tb.Quorum, len(tb.Validators)))
	}
	seen := make(map[string]bool, len(tb.Validators))
	for _, v := range tb.Validators {
		if v.NodeID == "" {
			return newError(KindConfig, "PRF-TB-004", "validator node id is required")
		}
		if seen[v.NodeID] {
			return newError(KindConfig, "PRF-TB-005", fmt.Sprintf("duplicate validator %q", v.NodeID))
		}
		seen[v.NodeID] = true
		if len(v.PublicKey) == 0 {
			return newError(KindConfig, "PRF-TB-006", fmt.Sprintf("validator %q has no public key", v.NodeID))
		}
	}
	return nil
}

func (tb *TrustBase) validator(id string) (Validator, bool) {
	for _, v := range tb.Validators {
		if v.NodeID == id {
			return v, true
		}
	}
	return Validator{}, false
}

// CertificateSigningBytes is the message validators sign for a round.
func CertificateSigningBytes(round uint64, root hashutil.Imprint) []byte {
	const domain = "tokenrec-certificate-v1"
	out := make([]byte, 0, len(domain)+8+len(root))
	out = append(out, domain...)
	out = binary.BigEndian.AppendUint64(out, round)
	out = append(out, root...)
	return out
}

// VerifyCertificate checks that cert endorses root with a quorum of distinct
// trust-base validators. Every failure is KindCertificate.
func VerifyCertificate(cert *Certificate, root hashutil.Imprint, tb *TrustBase) error {
	if cert == nil {
		return newError(KindStructural, "PRF-STR-004", "missing certificate")
	}
	if err := tb.Validate(); err != nil {
		return err
	}
	if !cert.RootHash.Equal(root) {
		return newError(KindCertificate, "PRF-CERT-001", "certificate root does not match merkle root")
	}
	msg := CertificateSigningBytes(cert.Round, cert.RootHash)
	endorsed := make(map[string]bool)
	unknown := 0
	for _, s := range cert.Signatures {
		v, ok := tb.validator(s.NodeID)
		if !ok {
			unknown++
			continue
		}
		if endorsed[s.NodeID] {
			continue
		}
		if verifySignature(v.Algorithm, v.PublicKey, msg, s.Signature) {
			endorsed[s.NodeID] = true
		}
	}
	if len(endorsed) < tb.Quorum {
		detail := fmt.Sprintf("certificate endorsed by %d of %d required validators", len(endorsed), tb.Quorum)
		if unknown > 0 {
			detail += fmt.Sprintf(" (%d signatures from validators outside the trust base)", unknown)
		}
		return newError(KindCertificate, "PRF-CERT-002", detail)
	}
	return nil
}
