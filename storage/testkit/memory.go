package testkit

import (
	"bytes"
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/storage"
)

// Memory is an in-process storage.Blobs for tests. It is safe for
// concurrent use and copies bytes on the way in and out.
type Memory struct {
	mu   sync.RWMutex
	objs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objs: make(map[string][]byte)}
}

func (m *Memory) Put(data []byte) (cid.Cid, error) {
	id, err := hashutil.SnapshotCID(data)
	if err != nil {
		return cid.Undef, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.objs[id.KeyString()]; ok {
		if !bytes.Equal(existing, data) {
			return cid.Undef, storage.ErrImmutable
		}
		return id, nil
	}
	m.objs[id.KeyString()] = append([]byte(nil), data...)
	return id, nil
}

func (m *Memory) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objs[id.KeyString()]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if hashutil.SnapshotCIDString(b) != id.String() {
		return nil, storage.ErrCIDMismatch
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objs[id.KeyString()]
	return ok
}

func (m *Memory) List() ([]cid.Cid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]cid.Cid, 0, len(m.objs))
	for k := range m.objs {
		id, err := cid.Cast([]byte(k))
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// Corrupt replaces the bytes stored under id, bypassing immutability.
func (m *Memory) Corrupt(id cid.Cid, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objs[id.KeyString()] = append([]byte(nil), data...)
}
