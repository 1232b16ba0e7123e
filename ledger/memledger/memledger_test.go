package memledger

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"testing"

	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/keys"
	"xdao.co/tokenrec/ledger"
	"xdao.co/tokenrec/proof"
)

func mustSigner(t *testing.T, seedByte byte) keys.Signer {
	t.Helper()
	s, err := keys.NewEd25519Signer(bytes.Repeat([]byte{seedByte}, ed25519.SeedSize))
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	return s
}

func mustAuth(t *testing.T, s keys.Signer, state, tx string) (*proof.Authenticator, hashutil.Imprint) {
	t.Helper()
	stateHash := hashutil.SumSHA256([]byte(state))
	txHash := hashutil.SumSHA256([]byte(tx))
	a, err := proof.Sign(s, stateHash, txHash)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return a, txHash
}

func TestLedger_SubmitCertifyProve(t *testing.T) {
	ctx := context.Background()
	l, err := New(Config{Validators: 4, Quorum: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tb := l.TrustBase()
	if err := tb.Validate(); err != nil {
		t.Fatalf("trust base: %v", err)
	}

	type sub struct {
		auth *proof.Authenticator
		tx   hashutil.Imprint
		req  hashutil.Imprint
	}
	var subs []sub
	for i := 0; i < 5; i++ {
		a, tx := mustAuth(t, mustSigner(t, byte(i+1)), "state", "tx")
		req, err := l.Submit(ctx, a, tx)
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		subs = append(subs, sub{a, tx, req})
	}

	if _, err := l.GetInclusionProof(ctx, subs[0].req); !ledger.IsNotFound(err) {
		t.Fatalf("uncertified commitment must be not found, got %v", err)
	}
	spent, err := l.IsSpent(ctx, subs[0].auth.PublicKey, subs[0].auth.StateHash)
	if err != nil || spent {
		t.Fatalf("uncertified state must be unspent: %v %v", spent, err)
	}

	round, err := l.Certify(ctx)
	if err != nil || round != 1 {
		t.Fatalf("Certify: round=%d err=%v", round, err)
	}

	for i, s := range subs {
		p, err := l.GetInclusionProof(ctx, s.req)
		if err != nil {
			t.Fatalf("proof %d: %v", i, err)
		}
		if err := proof.Verify(p, proof.Options{TrustBase: tb, TransactionHash: s.tx}); err != nil {
			t.Fatalf("proof %d does not verify: %v", i, err)
		}
		spent, err := l.IsSpent(ctx, s.auth.PublicKey, s.auth.StateHash)
		if err != nil || !spent {
			t.Fatalf("certified state %d must be spent: %v %v", i, spent, err)
		}
	}
}

func TestLedger_SingleLeafRound(t *testing.T) {
	ctx := context.Background()
	l, _ := New(Config{})
	a, tx := mustAuth(t, mustSigner(t, 1), "s", "t")
	req, err := l.Submit(ctx, a, tx)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := l.Certify(ctx); err != nil {
		t.Fatalf("Certify: %v", err)
	}
	p, err := l.GetInclusionProof(ctx, req)
	if err != nil {
		t.Fatalf("GetInclusionProof: %v", err)
	}
	if len(p.MerklePath.Steps) != 0 {
		t.Fatalf("a lone leaf has no siblings, got %d", len(p.MerklePath.Steps))
	}
	if err := proof.Verify(p, proof.Options{TrustBase: l.TrustBase()}); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestLedger_SubmitIdempotentAndConflict(t *testing.T) {
	ctx := context.Background()
	l, _ := New(Config{})
	s := mustSigner(t, 1)
	a, tx := mustAuth(t, s, "state", "tx-1")
	if _, err := l.Submit(ctx, a, tx); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := l.Submit(ctx, a, tx); err != nil {
		t.Fatalf("resubmission should be a no-op: %v", err)
	}

	other, otherTx := mustAuth(t, s, "state", "tx-2")
	if _, err := l.Submit(ctx, other, otherTx); !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("expected conflict for double spend, got %v", err)
	}
	if _, err := l.Certify(ctx); err != nil {
		t.Fatalf("Certify: %v", err)
	}
	if _, err := l.Submit(ctx, other, otherTx); !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("expected conflict after certification, got %v", err)
	}
}

func TestLedger_RejectsBadSignature(t *testing.T) {
	l, _ := New(Config{})
	a, tx := mustAuth(t, mustSigner(t, 1), "s", "t")
	a.Signature[0] ^= 0xff
	if _, err := l.Submit(context.Background(), a, tx); !errors.Is(err, ledger.ErrRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestLedger_CertifyEmptyRound(t *testing.T) {
	l, _ := New(Config{})
	round, err := l.Certify(context.Background())
	if err != nil || round != 0 || l.Round() != 0 {
		t.Fatalf("empty certify: round=%d err=%v", round, err)
	}
}

func TestLedger_TrustBaseStableAcrossRestarts(t *testing.T) {
	a, _ := New(Config{Validators: 3, Secret: []byte("s")})
	b, _ := New(Config{Validators: 3, Secret: []byte("s")})
	ta, tb := a.TrustBase(), b.TrustBase()
	for i := range ta.Validators {
		if !ta.Validators[i].PublicKey.Equal(tb.Validators[i].PublicKey) {
			t.Fatalf("validator %d key changed", i)
		}
	}
	if ta.Quorum != 2 {
		t.Fatalf("default quorum for 3 validators: got %d want 2", ta.Quorum)
	}
}

func TestNew_QuorumTooLarge(t *testing.T) {
	if _, err := New(Config{Validators: 2, Quorum: 3}); err == nil {
		t.Fatalf("expected error")
	}
}
