package resolver

import (
	"errors"
	"fmt"
)

// ErrorKind classifies resolution failures.
type ErrorKind string

const (
	// KindMissingEvidence: the item has neither a proof nor an authenticator.
	KindMissingEvidence ErrorKind = "MissingEvidence"
	// KindNotFound: the ledger has not committed the item yet. Retry later.
	KindNotFound ErrorKind = "NotFound"
	// KindValidation: the ledger's proof failed validation and was not spliced.
	KindValidation ErrorKind = "Validation"
	// KindNetwork: the ledger could not be reached.
	KindNetwork ErrorKind = "Network"
)

// ResolutionError reports the item that stopped a resolution run. Items
// before Index were resolved; Index and later are untouched.
type ResolutionError struct {
	Index int
	Kind  ErrorKind
	Cause error
}

func (e *ResolutionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("resolve %s: %s", itemLabel(e.Index), e.Kind)
	}
	return fmt.Sprintf("resolve %s: %s: %v", itemLabel(e.Index), e.Kind, e.Cause)
}

func (e *ResolutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Retryable is true for failures that may clear without changing the record.
func (e *ResolutionError) Retryable() bool {
	return e != nil && (e.Kind == KindNotFound || e.Kind == KindNetwork)
}

// IsKind reports whether err is (or wraps) a *ResolutionError of kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *ResolutionError
	return errors.As(err, &re) && re.Kind == kind
}

// FailedIndex returns the failing item index, or false if err is not a
// *ResolutionError.
func FailedIndex(err error) (int, bool) {
	var re *ResolutionError
	if !errors.As(err, &re) {
		return 0, false
	}
	return re.Index, true
}
