package hashutil

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// HexBytes is a byte slice that travels as a lowercase hex string in JSON.
type HexBytes []byte

func (b HexBytes) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(b)), nil
}

func (b *HexBytes) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*b = nil
		return nil
	}
	out, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("hashutil: invalid hex: %w", err)
	}
	*b = out
	return nil
}

func (b HexBytes) String() string { return hex.EncodeToString(b) }

// Equal treats nil and empty as equal.
func (b HexBytes) Equal(o HexBytes) bool { return bytes.Equal(b, o) }
