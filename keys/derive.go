package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// DeriveSeed deterministically derives a per-state Ed25519 seed from a wallet
// secret and a nonce. Masked predicates use a fresh nonce per received state,
// so each state is guarded by its own key.
func DeriveSeed(secret, nonce []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("secret cannot be empty")
	}

	h := sha256.New()
	_, _ = h.Write([]byte("tokenrec-signing-key-v1"))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(secret)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(nonce)
	sum := h.Sum(nil)
	if len(sum) < ed25519.SeedSize {
		return nil, errors.New("kdf output too short")
	}
	out := make([]byte, ed25519.SeedSize)
	copy(out, sum[:ed25519.SeedSize])
	return out, nil
}

// ParseSeedHex decodes a 32-byte Ed25519 seed from hex (optional 0x prefix).
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}
