// Package hashutil defines the self-describing hash imprints used throughout
// token records and the content identifiers used for record snapshots.
package hashutil

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"github.com/multiformats/go-multihash"
	"golang.org/x/crypto/sha3"
)

// Supported hash algorithm names.
const (
	SHA256  = "sha256"
	SHA512  = "sha512"
	SHA3256 = "sha3-256"
)

// Imprint is a multihash: algorithm code, digest length, digest.
//
// A nil Imprint means "absent"; it is never a valid hash.
type Imprint []byte

// Sum hashes data with the named algorithm and returns its imprint.
func Sum(alg string, data []byte) (Imprint, error) {
	digest, code, err := digestFor(alg, data)
	if err != nil {
		return nil, err
	}
	mh, err := multihash.Encode(digest, code)
	if err != nil {
		return nil, err
	}
	return Imprint(mh), nil
}

// MustSum is Sum for algorithms known to be supported.
func MustSum(alg string, data []byte) Imprint {
	h, err := Sum(alg, data)
	if err != nil {
		panic(err)
	}
	return h
}

// SumSHA256 returns the sha2-256 imprint of data.
func SumSHA256(data []byte) Imprint {
	return MustSum(SHA256, data)
}

// FromDigest wraps an already computed digest as an imprint.
func FromDigest(alg string, digest []byte) (Imprint, error) {
	_, code, err := digestFor(alg, nil)
	if err != nil {
		return nil, err
	}
	mh, err := multihash.Encode(digest, code)
	if err != nil {
		return nil, err
	}
	return Imprint(mh), nil
}

func digestFor(alg string, data []byte) ([]byte, uint64, error) {
	switch alg {
	case SHA256:
		s := sha256.Sum256(data)
		return s[:], multihash.SHA2_256, nil
	case SHA512:
		s := sha512.Sum512(data)
		return s[:], multihash.SHA2_512, nil
	case SHA3256:
		s := sha3.Sum256(data)
		return s[:], multihash.SHA3_256, nil
	default:
		return nil, 0, fmt.Errorf("hashutil: unsupported hash algorithm %q", alg)
	}
}

// ParseImprint validates b as a multihash with a supported algorithm.
func ParseImprint(b []byte) (Imprint, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("hashutil: empty imprint")
	}
	dec, err := multihash.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("hashutil: invalid imprint: %w", err)
	}
	if _, ok := algorithmName(dec.Code); !ok {
		return nil, fmt.Errorf("hashutil: unsupported imprint algorithm %s", dec.Name)
	}
	return Imprint(append([]byte(nil), b...)), nil
}

// ParseHex decodes a hex-encoded imprint.
func ParseHex(s string) (Imprint, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("hashutil: invalid hex: %w", err)
	}
	return ParseImprint(b)
}

func algorithmName(code uint64) (string, bool) {
	switch code {
	case multihash.SHA2_256:
		return SHA256, true
	case multihash.SHA2_512:
		return SHA512, true
	case multihash.SHA3_256:
		return SHA3256, true
	default:
		return "", false
	}
}

// Algorithm returns the algorithm name of the imprint, or "" if it is not a
// supported multihash.
func (h Imprint) Algorithm() string {
	if len(h) == 0 {
		return ""
	}
	dec, err := multihash.Decode(h)
	if err != nil {
		return ""
	}
	name, _ := algorithmName(dec.Code)
	return name
}

// Digest returns the raw digest bytes.
func (h Imprint) Digest() []byte {
	dec, err := multihash.Decode(h)
	if err != nil {
		return nil
	}
	return dec.Digest
}

// Hex returns the lowercase hex encoding of the full imprint.
func (h Imprint) Hex() string { return hex.EncodeToString(h) }

func (h Imprint) String() string { return h.Hex() }

// IsZero reports whether the imprint is absent.
func (h Imprint) IsZero() bool { return len(h) == 0 }

// Equal compares two imprints byte-for-byte.
func (h Imprint) Equal(o Imprint) bool { return bytes.Equal(h, o) }

// MarshalText encodes the imprint as hex.
func (h Imprint) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText decodes a hex imprint. An empty string yields an absent imprint.
func (h *Imprint) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*h = nil
		return nil
	}
	v, err := ParseHex(string(text))
	if err != nil {
		return err
	}
	*h = v
	return nil
}
