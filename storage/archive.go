// Package storage keeps content-addressed snapshots of token records, so a
// record can be rolled back to the copy taken before it was resolved.
package storage

import (
	"errors"

	"github.com/ipfs/go-cid"
)

// Blobs is the byte store under Snapshots. Keys are hashutil.SnapshotCID of
// the stored bytes.
//
// Put is idempotent and stored bytes never change. Get returns ErrNotFound
// for an absent CID. List returns every stored CID in no particular order.
type Blobs interface {
	Put(data []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
	List() ([]cid.Cid, error)
}

var (
	ErrNotFound    = errors.New("storage: snapshot not found")
	ErrInvalidCID  = errors.New("storage: undefined snapshot cid")
	ErrCIDMismatch = errors.New("storage: snapshot bytes do not match cid")
	ErrImmutable   = errors.New("storage: snapshot already stored with different bytes")
	ErrNotRecord   = errors.New("storage: snapshot is not a token record")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsCorrupt reports whether err means the stored bytes cannot be trusted.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCIDMismatch) || errors.Is(err, ErrImmutable) || errors.Is(err, ErrNotRecord)
}
