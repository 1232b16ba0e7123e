// Package testkit holds an in-memory storage.Blobs and the behaviour every
// storage.Blobs implementation must show.
package testkit

import (
	"bytes"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/storage"
)

// NewBlobs constructs a fresh, empty store isolated from other tests.
type NewBlobs func(t *testing.T) storage.Blobs

func RunBlobsConformance(t *testing.T, newBlobs NewBlobs) {
	t.Helper()

	t.Run("PutGet", func(t *testing.T) {
		b := newBlobs(t)
		want := []byte(`{"version":"2.0"}`)
		id, err := b.Put(want)
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		if id.String() != hashutil.SnapshotCIDString(want) {
			t.Fatalf("Put returned %s, want the snapshot cid of the bytes", id)
		}
		got, err := b.Get(id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get returned %q", got)
		}
		again, err := b.Put(want)
		if err != nil || !again.Equals(id) {
			t.Fatalf("second Put: %s, %v", again, err)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		b := newBlobs(t)
		id, err := hashutil.SnapshotCID([]byte("never stored"))
		if err != nil {
			t.Fatalf("SnapshotCID: %v", err)
		}
		if b.Has(id) {
			t.Fatalf("Has reported a missing snapshot")
		}
		if _, err := b.Get(id); !storage.IsNotFound(err) {
			t.Fatalf("Get: got %v want ErrNotFound", err)
		}
		var undef cid.Cid
		if b.Has(undef) {
			t.Fatalf("Has reported the undefined cid")
		}
		if _, err := b.Get(undef); err == nil {
			t.Fatalf("Get of the undefined cid should fail")
		}
	})

	t.Run("List", func(t *testing.T) {
		b := newBlobs(t)
		ids, err := b.List()
		if err != nil || len(ids) != 0 {
			t.Fatalf("empty store: %v %v", ids, err)
		}
		want := map[string]bool{}
		for _, data := range []string{"one", "two", "three", "two"} {
			id, err := b.Put([]byte(data))
			if err != nil {
				t.Fatalf("Put(%s): %v", data, err)
			}
			want[id.String()] = true
		}
		ids, err = b.List()
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(ids) != len(want) {
			t.Fatalf("List: got %d ids want %d", len(ids), len(want))
		}
		for _, id := range ids {
			if !want[id.String()] {
				t.Fatalf("List returned unknown cid %s", id)
			}
		}
	})
}
