package ledger

import (
	"context"
	"testing"

	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/proof"
)

type stubClient struct {
	proofs     map[string]*proof.InclusionProof
	proofCalls int
	spentCalls int
}

func (s *stubClient) GetInclusionProof(_ context.Context, id hashutil.Imprint) (*proof.InclusionProof, error) {
	s.proofCalls++
	p, ok := s.proofs[id.Hex()]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *stubClient) IsSpent(context.Context, []byte, hashutil.Imprint) (bool, error) {
	s.spentCalls++
	return true, nil
}

func TestCachingClient_CachesOnlyFoundProofs(t *testing.T) {
	ctx := context.Background()
	known := hashutil.SumSHA256([]byte("known"))
	missing := hashutil.SumSHA256([]byte("missing"))
	stub := &stubClient{proofs: map[string]*proof.InclusionProof{
		known.Hex(): {TransactionHash: hashutil.SumSHA256([]byte("tx"))},
	}}
	c, err := NewCachingClient(stub, 0)
	if err != nil {
		t.Fatalf("NewCachingClient: %v", err)
	}

	for i := 0; i < 3; i++ {
		p, err := c.GetInclusionProof(ctx, known)
		if err != nil {
			t.Fatalf("GetInclusionProof: %v", err)
		}
		p.TransactionHash = nil
	}
	if stub.proofCalls != 1 {
		t.Fatalf("expected one upstream call, got %d", stub.proofCalls)
	}
	p, _ := c.GetInclusionProof(ctx, known)
	if p.TransactionHash.IsZero() {
		t.Fatalf("callers must not be able to mutate cached proofs")
	}

	for i := 0; i < 2; i++ {
		if _, err := c.GetInclusionProof(ctx, missing); !IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if stub.proofCalls != 3 {
		t.Fatalf("not-found answers must not be cached: %d calls", stub.proofCalls)
	}

	for i := 0; i < 2; i++ {
		if _, err := c.IsSpent(ctx, []byte("pk"), known); err != nil {
			t.Fatalf("IsSpent: %v", err)
		}
	}
	if stub.spentCalls != 2 {
		t.Fatalf("spent queries must pass through: %d calls", stub.spentCalls)
	}
	if c.Len() != 1 {
		t.Fatalf("Len: got %d", c.Len())
	}
	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("Purge left %d entries", c.Len())
	}
}
