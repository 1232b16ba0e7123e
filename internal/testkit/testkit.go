// Package testkit builds token records against an in-memory ledger for tests.
package testkit

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"testing"

	"xdao.co/tokenrec/keys"
	"xdao.co/tokenrec/ledger/memledger"
	"xdao.co/tokenrec/predicate"
	"xdao.co/tokenrec/token"
)

// TokenID is the token id used by Mint.
var TokenID = []byte("testkit-token-0001")

// Signer returns a deterministic Ed25519 signer; equal seed bytes give equal keys.
func Signer(tb testing.TB, seedByte byte) keys.Signer {
	tb.Helper()
	s, err := keys.NewEd25519Signer(bytes.Repeat([]byte{seedByte}, ed25519.SeedSize))
	if err != nil {
		tb.Fatalf("NewEd25519Signer: %v", err)
	}
	return s
}

// State returns an unmasked state owned by s.
func State(tb testing.TB, s keys.Signer, data []byte) *token.State {
	tb.Helper()
	pred, err := predicate.Encode(predicate.Predicate{
		Scheme:        predicate.SchemeUnmasked,
		TokenID:       TokenID,
		TokenType:     []byte("testkit"),
		PublicKey:     s.PublicKey(),
		Algorithm:     s.Algorithm(),
		HashAlgorithm: "sha256",
	})
	if err != nil {
		tb.Fatalf("predicate.Encode: %v", err)
	}
	return &token.State{Predicate: pred, Data: data}
}

// Address is the direct address of the state owned by s.
func Address(tb testing.TB, s keys.Signer) string {
	tb.Helper()
	return token.AddressOf(State(tb, s, nil).Predicate)
}

// Ledger returns a three-validator ledger with quorum two.
func Ledger(tb testing.TB) *memledger.Ledger {
	tb.Helper()
	l, err := memledger.New(memledger.Config{Validators: 3, Quorum: 2})
	if err != nil {
		tb.Fatalf("memledger.New: %v", err)
	}
	return l
}

// Submit sends c to l.
func Submit(tb testing.TB, l *memledger.Ledger, c *token.Commitment) {
	tb.Helper()
	if _, err := l.Submit(context.Background(), c.Authenticator, c.TransactionHash); err != nil {
		tb.Fatalf("Submit: %v", err)
	}
}

// Certify closes the current round of l.
func Certify(tb testing.TB, l *memledger.Ledger) {
	tb.Helper()
	if _, err := l.Certify(context.Background()); err != nil {
		tb.Fatalf("Certify: %v", err)
	}
}

// Mint creates a genesis-only record owned by owner. When l is non-nil the
// genesis is submitted and certified, but the record keeps only the
// authenticator.
func Mint(tb testing.TB, l *memledger.Ledger, owner keys.Signer) *token.Record {
	tb.Helper()
	r, c, err := token.Mint(token.MintData{
		TokenID:   TokenID,
		TokenType: []byte("testkit"),
		Salt:      []byte{0x01},
		TokenData: []byte("minted by testkit"),
	}, State(tb, owner, nil))
	if err != nil {
		tb.Fatalf("Mint: %v", err)
	}
	if l != nil {
		Submit(tb, l, c)
		Certify(tb, l)
	}
	return r
}

// Send transfers r from the current owner to the owner of to. When l is
// non-nil and the transfer is not offline, it is submitted and certified.
func Send(tb testing.TB, l *memledger.Ledger, r *token.Record, from, to keys.Signer, offline bool) *token.Commitment {
	tb.Helper()
	c, err := r.Send(from, token.Transfer{
		Recipient: Address(tb, to),
		Salt:      []byte{byte(len(r.Transactions) + 1)},
		Offline:   offline,
	})
	if err != nil {
		tb.Fatalf("Send: %v", err)
	}
	if l != nil && !offline {
		Submit(tb, l, c)
		Certify(tb, l)
	}
	return c
}

// Receive claims r for to.
func Receive(tb testing.TB, r *token.Record, to keys.Signer) {
	tb.Helper()
	if err := r.Receive(State(tb, to, nil)); err != nil {
		tb.Fatalf("Receive: %v", err)
	}
}

// Complete splices the ledger's proof into every incomplete item of r.
func Complete(tb testing.TB, l *memledger.Ledger, r *token.Record) {
	tb.Helper()
	ctx := context.Background()
	if !r.Genesis.IsComplete() {
		p, err := l.GetInclusionProof(ctx, r.Genesis.Proof.Authenticator.RequestID())
		if err != nil {
			tb.Fatalf("genesis proof: %v", err)
		}
		r.Genesis.Proof = p
	}
	for i := range r.Transactions {
		tx := &r.Transactions[i]
		if tx.IsComplete() {
			continue
		}
		p, err := l.GetInclusionProof(ctx, tx.Authenticator().RequestID())
		if err != nil {
			tb.Fatalf("transaction %d proof: %v", i, err)
		}
		tx.Proof = p
	}
}
