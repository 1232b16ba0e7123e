// Package codec is the load/save boundary for token records.
//
// The disk form is JSON. A record that is in transit carries its current
// state twice: once as the top-level state and once as the last
// transaction's source state. Marshal drops the top-level copy and Unmarshal
// restores it, so the in-memory Record always exposes both.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"xdao.co/tokenrec/token"
)

// ErrDecode is wrapped by every Unmarshal failure.
var ErrDecode = errors.New("codec: malformed record")

// Compactable reports whether Marshal will drop the top-level state of r: the
// record is in transit and the two copies carry the same data, treating empty
// and absent data alike.
func Compactable(r *token.Record) bool {
	if r == nil || !r.InTransit() {
		return false
	}
	return r.State.Equal(r.LastTransaction().Data.SourceState)
}

// Marshal renders the disk form of r. r itself is not modified.
func Marshal(r *token.Record) ([]byte, error) {
	if r == nil {
		return nil, errors.New("codec: nil record")
	}
	out := r
	if Compactable(r) {
		shallow := *r
		shallow.State = nil
		out = &shallow
	}
	return json.MarshalIndent(out, "", "  ")
}

// Unmarshal parses a disk form. A null top-level state is rebuilt from the
// last transaction's source state when one exists; any other record is
// returned exactly as stored.
func Unmarshal(b []byte) (*token.Record, error) {
	var r token.Record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if r.State == nil {
		if last := r.LastTransaction(); last != nil && last.Data.SourceState != nil {
			r.State = last.Data.SourceState.Clone()
		}
	}
	return &r, nil
}

// Load reads and decodes the record at path.
func Load(path string) (*token.Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Save encodes r and replaces path atomically: the bytes go to a temporary
// file in the same directory which is then renamed over path.
func Save(path string, r *token.Record) error {
	b, err := Marshal(r)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, ".tokenrec-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
