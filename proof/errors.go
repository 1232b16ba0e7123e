package proof

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// KindCertificate is a sub-kind of KindCrypto: IsKind(err, KindCrypto) is true
// for certificate failures too, while IsKind(err, KindCertificate) singles
// them out. A certificate failure commonly means the local trust base does not
// match the ledger environment rather than a forged proof.
type Kind string

const (
	KindStructural  Kind = "Structural"
	KindCrypto      Kind = "Crypto"
	KindCertificate Kind = "Certificate"
	KindConfig      Kind = "Config"
)

// Error is the package's structured error type.
//
// RuleID is a stable identifier (e.g., PRF-STR-001, PRF-CRYPTO-401,
// PRF-CERT-002) naming the violated rule. Message is intended for humans.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

func wrapError(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return newError(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg + ": " + cause.Error(), Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	if e.Kind == kind {
		return true
	}
	return kind == KindCrypto && e.Kind == KindCertificate
}

// IsCertificateMismatch reports whether err is a certificate endorsement failure.
func IsCertificateMismatch(err error) bool { return IsKind(err, KindCertificate) }

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
