package testkit

import (
	"testing"

	"xdao.co/tokenrec/storage"
)

func TestMemory_Conformance(t *testing.T) {
	RunBlobsConformance(t, func(t *testing.T) storage.Blobs {
		return NewMemory()
	})
}

func TestMemory_ReturnsCopies(t *testing.T) {
	m := NewMemory()
	data := []byte("snapshot")
	id, err := m.Put(data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	data[0] = 'X'
	got, err := m.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got[0] = 'Y'
	again, _ := m.Get(id)
	if string(again) != "snapshot" {
		t.Fatalf("stored bytes aliased a caller buffer: %q", again)
	}
}
