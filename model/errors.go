package model

import (
	"errors"
	"fmt"

	"xdao.co/tokenrec/codec"
	"xdao.co/tokenrec/ledger"
	"xdao.co/tokenrec/predicate"
	"xdao.co/tokenrec/proof"
	"xdao.co/tokenrec/resolver"
	"xdao.co/tokenrec/storage"
	"xdao.co/tokenrec/token"
)

type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"
	ErrInvalidRecord       ErrorCode = "INVALID_RECORD"
	ErrDecode              ErrorCode = "DECODE_ERROR"
	ErrMissingEvidence     ErrorCode = "MISSING_EVIDENCE"
	ErrNotFound            ErrorCode = "NOT_FOUND"
	ErrValidation          ErrorCode = "VALIDATION_FAILED"
	ErrCertificateMismatch ErrorCode = "CERTIFICATE_MISMATCH"
	ErrLedgerUnavailable   ErrorCode = "LEDGER_UNAVAILABLE"
	ErrSnapshotCorrupt     ErrorCode = "SNAPSHOT_CORRUPT"
	ErrInternal            ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	RuleID  string    `json:"ruleId,omitempty"`
	Index   *int      `json:"index,omitempty"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// MapError assigns a stable code to any error produced below the boundary.
// Certificate mismatches are reported separately from other validation
// failures.
func MapError(err error) *CodedError {
	if err == nil {
		return nil
	}
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce
	}

	out := &CodedError{Code: ErrInternal, Message: err.Error(), RuleID: proof.RuleID(err)}
	var re *resolver.ResolutionError
	if errors.As(err, &re) {
		idx := re.Index
		out.Index = &idx
		switch re.Kind {
		case resolver.KindMissingEvidence:
			out.Code = ErrMissingEvidence
		case resolver.KindNotFound:
			out.Code = ErrNotFound
		case resolver.KindNetwork:
			out.Code = ErrLedgerUnavailable
		case resolver.KindValidation:
			out.Code = ErrValidation
			if proof.IsCertificateMismatch(err) {
				out.Code = ErrCertificateMismatch
			}
		}
		return out
	}

	switch {
	case predicate.IsDecodeError(err), errors.Is(err, codec.ErrDecode):
		out.Code = ErrDecode
	case errors.Is(err, token.ErrInvalidRecord):
		out.Code = ErrInvalidRecord
	case ledger.IsNotFound(err), storage.IsNotFound(err):
		out.Code = ErrNotFound
	case storage.IsCorrupt(err):
		out.Code = ErrSnapshotCorrupt
	case errors.Is(err, storage.ErrInvalidCID):
		out.Code = ErrInvalidRequest
	case ledger.IsUnavailable(err):
		out.Code = ErrLedgerUnavailable
	case proof.IsCertificateMismatch(err):
		out.Code = ErrCertificateMismatch
	case proof.IsKind(err, proof.KindConfig):
		out.Code = ErrInvalidRequest
	case proof.IsKind(err, proof.KindStructural), proof.IsKind(err, proof.KindCrypto):
		out.Code = ErrValidation
	}
	return out
}
