// Package compliance selects how strictly inclusion proofs and ownership
// signals are judged.
package compliance

import "fmt"

// ComplianceMode controls whether proof warnings are tolerated.
//
// Strict turns structural warnings, such as a Merkle path with no sibling
// steps, into validation errors. Permissive accepts the proof and reports the
// warnings alongside it.
type ComplianceMode int

const (
	Permissive ComplianceMode = iota
	Strict
)

// Parse accepts "permissive", "strict" or "" (permissive).
func Parse(s string) (ComplianceMode, error) {
	switch s {
	case "", "permissive":
		return Permissive, nil
	case "strict":
		return Strict, nil
	default:
		return Permissive, fmt.Errorf("compliance: unknown mode %q", s)
	}
}

func (m ComplianceMode) String() string {
	if m == Strict {
		return "strict"
	}
	return "permissive"
}

func (m ComplianceMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *ComplianceMode) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
