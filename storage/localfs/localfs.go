// Package localfs keeps record snapshots as read-only files under a
// directory, sharded by the last two characters of the CID string. The
// leading characters are the multibase and version prefix shared by every
// snapshot.
package localfs

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/ipfs/go-cid"

	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/storage"
)

// Store implements storage.Blobs on a local directory.
type Store struct {
	root string
}

// New opens the store at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

// Put writes data to a temporary file in the shard directory and hard-links
// it to its final name, so readers never observe a partial snapshot and an
// existing snapshot is never replaced.
func (s *Store) Put(data []byte) (cid.Cid, error) {
	id, err := hashutil.SnapshotCID(data)
	if err != nil {
		return cid.Undef, err
	}
	final := s.fileFor(id)
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cid.Undef, err
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return cid.Undef, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return cid.Undef, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return cid.Undef, err
	}
	if err := tmp.Close(); err != nil {
		return cid.Undef, err
	}
	if err := os.Chmod(tmp.Name(), 0o444); err != nil {
		return cid.Undef, err
	}

	if err := os.Link(tmp.Name(), final); err != nil {
		if !os.IsExist(err) {
			return cid.Undef, err
		}
		existing, rerr := os.ReadFile(final)
		if rerr != nil || !bytes.Equal(existing, data) {
			return cid.Undef, storage.ErrImmutable
		}
	}
	return id, nil
}

// Get reads the snapshot and re-derives its CID, so edits made outside the
// store surface as storage.ErrCIDMismatch.
func (s *Store) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	b, err := os.ReadFile(s.fileFor(id))
	if os.IsNotExist(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if got := hashutil.SnapshotCIDString(b); got != id.String() {
		return nil, storage.ErrCIDMismatch
	}
	return b, nil
}

func (s *Store) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := os.Stat(s.fileFor(id))
	return err == nil
}

// List walks the shard directories. Temporary files and names that are not
// CIDs are ignored.
func (s *Store) List() ([]cid.Cid, error) {
	shards, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var out []cid.Cid
	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.root, shard.Name()))
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if f.IsDir() || strings.HasPrefix(f.Name(), ".") {
				continue
			}
			id, err := cid.Decode(f.Name())
			if err != nil {
				continue
			}
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Store) fileFor(id cid.Cid) string {
	name := id.String()
	return filepath.Join(s.root, name[len(name)-2:], name)
}
