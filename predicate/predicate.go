// Package predicate decodes and encodes the compact binary ownership
// predicate attached to a token state.
//
// Wire shape (deterministic CBOR):
//
//	predicate = [scheme: uint, params: bstr]
//	params    = [tokenId: bstr, tokenType: bstr, publicKey: bstr,
//	             algorithm: tstr, hashAlgorithm: tstr, nonce: bstr]
//
// The public key always sits at params index 2.
package predicate

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Scheme is the ownership scheme tag.
type Scheme uint64

const (
	SchemeUnmasked Scheme = 0
	SchemeMasked   Scheme = 1
)

func (s Scheme) String() string {
	switch s {
	case SchemeUnmasked:
		return "unmasked"
	case SchemeMasked:
		return "masked"
	default:
		return fmt.Sprintf("scheme(%d)", uint64(s))
	}
}

const (
	paramCount     = 6
	publicKeyIndex = 2
)

// Predicate is the typed view of an encoded predicate.
type Predicate struct {
	Scheme        Scheme
	TokenID       []byte
	TokenType     []byte
	PublicKey     []byte
	Algorithm     string
	HashAlgorithm string
	Nonce         []byte
}

// DecodeError reports malformed predicate bytes. It is never retryable.
type DecodeError struct {
	Field string
	Cause error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return "predicate: malformed " + e.Field
	}
	return fmt.Sprintf("predicate: malformed %s: %v", e.Field, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsDecodeError reports whether err is (or wraps) a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Encode renders p in its canonical binary form.
func Encode(p Predicate) ([]byte, error) {
	if len(p.PublicKey) == 0 {
		return nil, errors.New("predicate: public key is required")
	}
	if p.Scheme == SchemeMasked && len(p.Nonce) == 0 {
		return nil, errors.New("predicate: masked predicate requires a nonce")
	}
	params, err := encMode.Marshal([]any{
		nonNil(p.TokenID),
		nonNil(p.TokenType),
		p.PublicKey,
		p.Algorithm,
		p.HashAlgorithm,
		nonNil(p.Nonce),
	})
	if err != nil {
		return nil, err
	}
	return encMode.Marshal([]any{uint64(p.Scheme), params})
}

// MustEncode is Encode for inputs known to be valid.
func MustEncode(p Predicate) []byte {
	b, err := Encode(p)
	if err != nil {
		panic(err)
	}
	return b
}

// Decode parses predicate bytes into a typed Predicate.
func Decode(b []byte) (*Predicate, error) {
	if len(b) == 0 {
		return nil, &DecodeError{Field: "predicate", Cause: errors.New("empty input")}
	}
	var outer []cbor.RawMessage
	if err := cbor.Unmarshal(b, &outer); err != nil {
		return nil, &DecodeError{Field: "predicate", Cause: err}
	}
	if len(outer) != 2 {
		return nil, &DecodeError{Field: "predicate", Cause: fmt.Errorf("expected 2 elements, got %d", len(outer))}
	}

	var scheme uint64
	if err := cbor.Unmarshal(outer[0], &scheme); err != nil {
		return nil, &DecodeError{Field: "scheme", Cause: err}
	}
	switch Scheme(scheme) {
	case SchemeUnmasked, SchemeMasked:
	default:
		return nil, &DecodeError{Field: "scheme", Cause: fmt.Errorf("unknown scheme %d", scheme)}
	}

	var paramBytes []byte
	if err := cbor.Unmarshal(outer[1], &paramBytes); err != nil {
		return nil, &DecodeError{Field: "params", Cause: err}
	}
	var params []cbor.RawMessage
	if err := cbor.Unmarshal(paramBytes, &params); err != nil {
		return nil, &DecodeError{Field: "params", Cause: err}
	}
	if len(params) != paramCount {
		return nil, &DecodeError{Field: "params", Cause: fmt.Errorf("expected %d elements, got %d", paramCount, len(params))}
	}

	p := &Predicate{Scheme: Scheme(scheme)}
	fields := []struct {
		name string
		dst  any
	}{
		{"tokenId", &p.TokenID},
		{"tokenType", &p.TokenType},
		{"publicKey", &p.PublicKey},
		{"algorithm", &p.Algorithm},
		{"hashAlgorithm", &p.HashAlgorithm},
		{"nonce", &p.Nonce},
	}
	for i, f := range fields {
		if err := cbor.Unmarshal(params[i], f.dst); err != nil {
			return nil, &DecodeError{Field: f.name, Cause: err}
		}
	}
	if len(p.PublicKey) == 0 {
		return nil, &DecodeError{Field: "publicKey", Cause: errors.New("empty")}
	}
	if p.Scheme == SchemeMasked && len(p.Nonce) == 0 {
		return nil, &DecodeError{Field: "nonce", Cause: errors.New("masked predicate without nonce")}
	}
	return p, nil
}

// PublicKeyOf decodes b and returns only the scheme and public key.
func PublicKeyOf(b []byte) (Scheme, []byte, error) {
	p, err := Decode(b)
	if err != nil {
		return 0, nil, err
	}
	return p.Scheme, p.PublicKey, nil
}

// Equal compares predicate bytes. State data is deliberately not part of the
// comparison.
func Equal(a, b []byte) bool {
	return bytes.Equal(a, b)
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
