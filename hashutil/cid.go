package hashutil

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// SnapshotCID returns a CIDv1 (raw + sha2-256) derived from data.
//
// Record snapshots are content-addressed with it, so two byte-identical
// snapshots of a record share one identifier.
func SnapshotCID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// SnapshotCIDString is SnapshotCID rendered as a string, or "" on failure.
func SnapshotCIDString(data []byte) string {
	id, err := SnapshotCID(data)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1 length,
		// this should be unreachable.
		return ""
	}
	return id.String()
}
