package proof

import (
	"crypto/sha256"

	"xdao.co/tokenrec/hashutil"
)

const (
	leafPrefix = 0x00
	nodePrefix = 0x01
)

// LeafHash is the Merkle leaf for a commitment: sha256(0x00 || requestID || transactionHash).
func LeafHash(requestID, transactionHash hashutil.Imprint) []byte {
	h := sha256.New()
	_, _ = h.Write([]byte{leafPrefix})
	_, _ = h.Write(requestID)
	_, _ = h.Write(transactionHash)
	return h.Sum(nil)
}

// NodeHash combines two children: sha256(0x01 || left || right).
func NodeHash(left, right []byte) []byte {
	h := sha256.New()
	_, _ = h.Write([]byte{nodePrefix})
	_, _ = h.Write(left)
	_, _ = h.Write(right)
	return h.Sum(nil)
}

// ComputeRoot folds the path steps over leaf and returns the root imprint.
func (m *MerklePath) ComputeRoot(leaf []byte) (hashutil.Imprint, error) {
	cur := leaf
	for _, s := range m.Steps {
		if s.Left {
			cur = NodeHash(s.Sibling, cur)
		} else {
			cur = NodeHash(cur, s.Sibling)
		}
	}
	return RootImprint(cur)
}

// RootImprint wraps a raw sha256 root digest as an imprint.
func RootImprint(digest []byte) (hashutil.Imprint, error) {
	if len(digest) != sha256.Size {
		return nil, newError(KindCrypto, "PRF-MERKLE-002", "merkle digest has wrong length")
	}
	return hashutil.FromDigest(hashutil.SHA256, digest)
}
