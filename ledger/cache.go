package ledger

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/proof"
)

// DefaultCacheSize is used when NewCachingClient is given a non-positive size.
const DefaultCacheSize = 1024

// CachingClient memoizes inclusion proofs. A committed proof never changes, so
// only successful lookups are cached; not-found answers and spent queries
// always reach the underlying client.
type CachingClient struct {
	next   Client
	proofs *lru.Cache[string, *proof.InclusionProof]
}

func NewCachingClient(next Client, size int) (*CachingClient, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *proof.InclusionProof](size)
	if err != nil {
		return nil, err
	}
	return &CachingClient{next: next, proofs: c}, nil
}

func (c *CachingClient) GetInclusionProof(ctx context.Context, requestID hashutil.Imprint) (*proof.InclusionProof, error) {
	key := requestID.Hex()
	if p, ok := c.proofs.Get(key); ok {
		return p.Clone(), nil
	}
	p, err := c.next.GetInclusionProof(ctx, requestID)
	if err != nil {
		return nil, err
	}
	c.proofs.Add(key, p.Clone())
	return p, nil
}

func (c *CachingClient) IsSpent(ctx context.Context, publicKey []byte, stateHash hashutil.Imprint) (bool, error) {
	return c.next.IsSpent(ctx, publicKey, stateHash)
}

// Len returns the number of cached proofs.
func (c *CachingClient) Len() int { return c.proofs.Len() }

// Purge drops every cached proof.
func (c *CachingClient) Purge() { c.proofs.Purge() }
