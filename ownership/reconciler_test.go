package ownership

import (
	"context"
	"strings"
	"testing"

	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/internal/testkit"
	"xdao.co/tokenrec/ledger"
	"xdao.co/tokenrec/predicate"
	"xdao.co/tokenrec/proof"
	"xdao.co/tokenrec/token"
)

type fixedClient struct {
	spent bool
	err   error
	calls int
}

func (c *fixedClient) GetInclusionProof(context.Context, hashutil.Imprint) (*proof.InclusionProof, error) {
	c.calls++
	return nil, ledger.ErrNotFound
}

func (c *fixedClient) IsSpent(context.Context, []byte, hashutil.Imprint) (bool, error) {
	c.calls++
	return c.spent, c.err
}

func reconcile(t *testing.T, client ledger.Client, tb *proof.TrustBase, r *token.Record) *Status {
	t.Helper()
	st, err := New(client, Options{TrustBase: tb}).Reconcile(context.Background(), r)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(st.Rationale) == 0 || st.Code == "" {
		t.Fatalf("every verdict needs a code and rationale: %+v", st)
	}
	return st
}

func TestReconcile_FreshMintIsCurrent(t *testing.T) {
	l := testkit.Ledger(t)
	alice := testkit.Signer(t, 1)
	r := testkit.Mint(t, l, alice)

	st := reconcile(t, l, l.TrustBase(), r)
	if st.Scenario != Current || st.Code != CodeUnspent {
		t.Fatalf("got %s/%s", st.Scenario, st.Code)
	}
	if st.CurrentOwner != testkit.Address(t, alice) {
		t.Fatalf("current owner: %s", st.CurrentOwner)
	}
	if st.Spent || !st.SpentKnown {
		t.Fatalf("spent flags: %v %v", st.Spent, st.SpentKnown)
	}
}

func TestReconcile_OfflineSendIsPending(t *testing.T) {
	l := testkit.Ledger(t)
	alice, bob := testkit.Signer(t, 1), testkit.Signer(t, 2)
	r := testkit.Mint(t, l, alice)
	testkit.Send(t, l, r, alice, bob, true)

	st := reconcile(t, l, l.TrustBase(), r)
	if st.Scenario != Pending {
		t.Fatalf("got %s", st.Scenario)
	}
	if st.PendingRecipient != r.PendingTransfer.Recipient || st.PendingRecipient != testkit.Address(t, bob) {
		t.Fatalf("pending recipient: %s", st.PendingRecipient)
	}
	if st.CurrentOwner != testkit.Address(t, alice) {
		t.Fatalf("sender still owns a pending state, got %s", st.CurrentOwner)
	}
}

func TestReconcile_CompletedTransferIsConfirmed(t *testing.T) {
	l := testkit.Ledger(t)
	alice, bob := testkit.Signer(t, 1), testkit.Signer(t, 2)
	r := testkit.Mint(t, l, alice)
	testkit.Send(t, l, r, alice, bob, false)
	testkit.Complete(t, l, r)

	st := reconcile(t, l, l.TrustBase(), r)
	if st.Scenario != Confirmed || st.Code != CodeTransferred || st.Inconsistent {
		t.Fatalf("got %s/%s inconsistent=%v", st.Scenario, st.Code, st.Inconsistent)
	}
	if st.CurrentOwner != r.Transactions[0].Data.Recipient {
		t.Fatalf("current owner: %s", st.CurrentOwner)
	}
	if !st.Signals.LastTransactionProved {
		t.Fatalf("last transaction proof should validate: %v", st.Rationale)
	}

	testkit.Receive(t, r, bob)
	st = reconcile(t, l, l.TrustBase(), r)
	if st.Scenario != Current || st.CurrentOwner != testkit.Address(t, bob) {
		t.Fatalf("after receive: %s owner=%s", st.Scenario, st.CurrentOwner)
	}
}

func TestReconcile_StaleCopyIsOutdated(t *testing.T) {
	l := testkit.Ledger(t)
	alice, bob := testkit.Signer(t, 1), testkit.Signer(t, 2)
	r := testkit.Mint(t, l, alice)
	stale := r.Clone()
	testkit.Send(t, l, r, alice, bob, false)

	st := reconcile(t, l, l.TrustBase(), stale)
	if st.Scenario != Outdated || st.CurrentOwner != Unknown {
		t.Fatalf("got %s owner=%s", st.Scenario, st.CurrentOwner)
	}
	if st.LatestKnownOwner != testkit.Address(t, alice) {
		t.Fatalf("latest known owner: %s", st.LatestKnownOwner)
	}
}

func TestReconcile_SpentWithStalePendingIsConfirmedAndFlagged(t *testing.T) {
	l := testkit.Ledger(t)
	alice, bob := testkit.Signer(t, 1), testkit.Signer(t, 2)
	r := testkit.Mint(t, l, alice)
	c := testkit.Send(t, l, r, alice, bob, true)
	testkit.Submit(t, l, c)
	testkit.Certify(t, l)

	st := reconcile(t, l, l.TrustBase(), r)
	if st.Scenario != Confirmed || st.Code != CodeStalePending || !st.Inconsistent {
		t.Fatalf("got %s/%s inconsistent=%v", st.Scenario, st.Code, st.Inconsistent)
	}
	if st.CurrentOwner != testkit.Address(t, bob) {
		t.Fatalf("owner should be the pending recipient, got %s", st.CurrentOwner)
	}
}

func TestReconcile_ProvedSpendButUnspentIsError(t *testing.T) {
	l := testkit.Ledger(t)
	alice, bob := testkit.Signer(t, 1), testkit.Signer(t, 2)
	r := testkit.Mint(t, l, alice)
	testkit.Send(t, l, r, alice, bob, false)
	testkit.Complete(t, l, r)

	st := reconcile(t, &fixedClient{spent: false}, l.TrustBase(), r)
	if st.Scenario != Error || st.Code != CodeContradiction {
		t.Fatalf("got %s/%s", st.Scenario, st.Code)
	}
	if st.CurrentOwner != Unknown {
		t.Fatalf("must not guess an owner on contradiction, got %s", st.CurrentOwner)
	}
}

func TestReconcile_NetworkFailureCarriesBestGuess(t *testing.T) {
	l := testkit.Ledger(t)
	alice := testkit.Signer(t, 1)
	r := testkit.Mint(t, l, alice)
	client := &fixedClient{err: ledger.ErrUnavailable}

	st := reconcile(t, client, nil, r)
	if st.Scenario != Error || st.Code != CodeLedgerUnavailable {
		t.Fatalf("got %s/%s", st.Scenario, st.Code)
	}
	if st.SpentKnown || st.Failure == nil || !ledger.IsUnavailable(st.Failure) {
		t.Fatalf("failure must be surfaced, not mapped to unspent: %+v", st)
	}
	if st.BestGuessOwner != testkit.Address(t, alice) {
		t.Fatalf("best guess owner: %s", st.BestGuessOwner)
	}
	if client.calls != 1 {
		t.Fatalf("exactly one ledger query expected, got %d", client.calls)
	}
}

func TestReconcile_MalformedPredicate(t *testing.T) {
	r := testkit.Mint(t, nil, testkit.Signer(t, 1))
	r.State.Predicate = []byte{0xff, 0x00}
	client := &fixedClient{}
	_, err := New(client, Options{}).Reconcile(context.Background(), r)
	if !predicate.IsDecodeError(err) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if client.calls != 0 {
		t.Fatalf("no ledger query on a malformed predicate")
	}
}

func TestReconcile_DoesNotModifyRecord(t *testing.T) {
	l := testkit.Ledger(t)
	alice, bob := testkit.Signer(t, 1), testkit.Signer(t, 2)
	r := testkit.Mint(t, l, alice)
	testkit.Send(t, l, r, alice, bob, true)
	before := r.Clone()
	reconcile(t, l, l.TrustBase(), r)
	if !token.Equal(before, r) {
		t.Fatalf("Reconcile modified the record")
	}
}

func TestReconcile_PendingForClaimedStateIsError(t *testing.T) {
	l := testkit.Ledger(t)
	alice, bob, carol := testkit.Signer(t, 1), testkit.Signer(t, 2), testkit.Signer(t, 3)
	r := testkit.Mint(t, l, alice)
	testkit.Send(t, l, r, alice, bob, false)
	testkit.Complete(t, l, r)
	testkit.Receive(t, r, bob)
	r.PendingTransfer = &token.PendingTransfer{Recipient: testkit.Address(t, carol)}
	if err := r.Validate(); err == nil {
		t.Fatalf("record should violate the pending invariant")
	}

	for _, client := range []ledger.Client{l, &fixedClient{spent: true}} {
		st := reconcile(t, client, l.TrustBase(), r)
		if st.Scenario != Error || st.Code != CodeContradiction || !st.Inconsistent {
			t.Fatalf("got %s/%s inconsistent=%v", st.Scenario, st.Code, st.Inconsistent)
		}
		if st.CurrentOwner != Unknown {
			t.Fatalf("must not name an owner, got %s", st.CurrentOwner)
		}
	}
}

func TestReconcile_StatusLabelMismatchIsFlagged(t *testing.T) {
	l := testkit.Ledger(t)
	alice, bob := testkit.Signer(t, 1), testkit.Signer(t, 2)
	r := testkit.Mint(t, l, alice)
	testkit.Send(t, l, r, alice, bob, true)

	st := reconcile(t, l, l.TrustBase(), r)
	if st.Scenario != Pending || st.Inconsistent {
		t.Fatalf("labelled pending record: %s inconsistent=%v", st.Scenario, st.Inconsistent)
	}

	r.Status = token.StatusTransferred
	st = reconcile(t, l, l.TrustBase(), r)
	if st.Scenario != Pending || !st.Inconsistent {
		t.Fatalf("mislabelled record: %s inconsistent=%v", st.Scenario, st.Inconsistent)
	}
	found := false
	for _, line := range st.Rationale {
		if strings.Contains(line, `status label "TRANSFERRED"`) {
			found = true
		}
	}
	if !found {
		t.Fatalf("rationale does not mention the label: %v", st.Rationale)
	}
}
