package token

import (
	"bytes"

	"github.com/fxamacker/cbor/v2"

	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/predicate"
)

// State is one ownership state: the predicate guarding the token plus opaque
// state data.
type State struct {
	Predicate hashutil.HexBytes `json:"predicate"`
	Data      hashutil.HexBytes `json:"data,omitempty"`
}

type stateWire struct {
	_         struct{} `cbor:",toarray"`
	Predicate []byte
	Data      []byte
}

var detEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Hash returns the state hash: the sha2-256 imprint of the deterministic
// CBOR encoding of [predicate, data]. Absent data hashes like empty data.
func (s *State) Hash() (hashutil.Imprint, error) {
	b, err := detEncMode.Marshal(stateWire{Predicate: nonNil(s.Predicate), Data: nonNil(s.Data)})
	if err != nil {
		return nil, err
	}
	return hashutil.Sum(hashutil.SHA256, b)
}

// Decode parses the state's predicate.
func (s *State) Decode() (*predicate.Predicate, error) {
	return predicate.Decode(s.Predicate)
}

// SamePredicate compares predicate bytes only.
func (s *State) SamePredicate(o *State) bool {
	if s == nil || o == nil {
		return false
	}
	return predicate.Equal(s.Predicate, o.Predicate)
}

// Equal compares predicates and data, treating empty and absent data as equal.
func (s *State) Equal(o *State) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.SamePredicate(o) && bytes.Equal(s.Data, o.Data)
}

func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	return &State{Predicate: cloneBytes(s.Predicate), Data: cloneBytes(s.Data)}
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
