package ownership

import (
	"context"
	"fmt"
	"log/slog"

	"xdao.co/tokenrec/compliance"
	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/internal/logging"
	"xdao.co/tokenrec/ledger"
	"xdao.co/tokenrec/predicate"
	"xdao.co/tokenrec/proof"
	"xdao.co/tokenrec/token"
)

// Status is the reconciliation result.
type Status struct {
	Scenario Scenario
	Code     Code

	// Spent is only meaningful when SpentKnown is true.
	Spent      bool
	SpentKnown bool

	// CurrentOwner is Unknown when it cannot be determined.
	CurrentOwner     string
	LatestKnownOwner string
	PendingRecipient string

	// BestGuessOwner is the locally derived owner, reported even when the
	// ledger could not be reached.
	BestGuessOwner string

	// Inconsistent flags a local state that the verdict papered over and
	// that should be repaired on disk.
	Inconsistent bool

	Scheme    predicate.Scheme
	PublicKey hashutil.HexBytes
	StateHash hashutil.Imprint

	Signals   Signals
	Rationale []string

	// Failure is set for the Error scenario when the ledger query failed.
	Failure error
}

// Options controls how the last transaction's proof is judged.
type Options struct {
	TrustBase *proof.TrustBase
	Mode      compliance.ComplianceMode
	Logger    *slog.Logger
}

// Reconciler produces ownership verdicts with exactly one ledger query per
// record.
type Reconciler struct {
	client ledger.Client
	opts   Options
	log    *slog.Logger
}

func New(client ledger.Client, opts Options) *Reconciler {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Reconciler{client: client, opts: opts, log: log}
}

// Reconcile classifies rec. It returns an error only when rec itself cannot
// be interpreted (no current state, or a malformed predicate). A ledger
// failure yields an Error-scenario Status carrying the failure and the local
// best guess, never an "unspent" verdict. rec is not modified.
func (r *Reconciler) Reconcile(ctx context.Context, rec *token.Record) (*Status, error) {
	if rec == nil || rec.State == nil {
		return nil, fmt.Errorf("%w: no current state", token.ErrInvalidRecord)
	}
	pred, err := rec.State.Decode()
	if err != nil {
		return nil, err
	}
	stateHash, err := rec.State.Hash()
	if err != nil {
		return nil, err
	}

	st := &Status{
		LatestKnownOwner: rec.LatestKnownOwner(),
		BestGuessOwner:   rec.StateOwner(),
		Scheme:           pred.Scheme,
		PublicKey:        pred.PublicKey,
		StateHash:        stateHash,
	}
	sig := Signals{
		Pending:         rec.HasPendingTransfer(),
		HasTransactions: len(rec.Transactions) > 0,
		InTransit:       rec.InTransit(),
	}
	if sig.Pending {
		st.PendingRecipient = rec.PendingTransfer.Recipient
		st.note("local: pending transfer to %s", st.PendingRecipient)
	}
	st.note("local: %d transaction(s)", len(rec.Transactions))
	if sig.InTransit {
		st.note("local: current state is the source of transaction[%d]", len(rec.Transactions)-1)
		sig.LastTransactionProved = r.lastProved(rec, st)
	}
	if !LabelMatches(rec.Status, sig) {
		st.Inconsistent = true
		st.note("local: status label %q contradicts pending=%t in_transit=%t transactions=%d",
			rec.Status, sig.Pending, sig.InTransit, len(rec.Transactions))
	}

	spent, err := r.client.IsSpent(ctx, pred.PublicKey, stateHash)
	if err != nil {
		st.Scenario, st.Code = Error, CodeLedgerUnavailable
		st.CurrentOwner = Unknown
		st.Failure = err
		st.Signals = sig
		st.note("ledger: spent query failed: %v", err)
		r.log.Warn("reconcile_ledger_error", "state_hash", stateHash.Hex(), "err", err)
		return st, nil
	}
	sig.Spent = spent
	st.Spent, st.SpentKnown = spent, true
	st.Signals = sig
	if spent {
		st.note("ledger: current state %s is spent", stateHash.Hex())
	} else {
		st.note("ledger: current state %s is unspent", stateHash.Hex())
	}

	scenario, code, inconsistent := Classify(sig)
	st.Scenario, st.Code = scenario, code
	st.Inconsistent = st.Inconsistent || inconsistent
	switch st.Scenario {
	case Current, Pending:
		st.CurrentOwner = rec.StateOwner()
	case Outdated:
		st.CurrentOwner = Unknown
	case Confirmed:
		if code == CodeStalePending {
			st.CurrentOwner = st.PendingRecipient
			st.note("policy: pending transfer assumed submitted; clear the pending descriptor")
		} else {
			st.CurrentOwner = rec.LastTransaction().Data.Recipient
		}
	default:
		st.CurrentOwner = Unknown
		st.note("signals: %+v", sig)
	}

	r.log.Info("reconcile_done",
		"scenario", string(st.Scenario),
		"code", string(st.Code),
		"inconsistent", st.Inconsistent,
	)
	return st, nil
}

// lastProved validates the last transaction's proof against the local data.
func (r *Reconciler) lastProved(rec *token.Record, st *Status) bool {
	last := rec.LastTransaction()
	if !last.IsComplete() {
		st.note("local: last transaction has no complete proof")
		return false
	}
	txHash, err := last.Data.Hash()
	if err != nil {
		st.note("local: last transaction hash: %v", err)
		return false
	}
	srcHash, err := last.Data.SourceState.Hash()
	if err != nil {
		st.note("local: last transaction source state: %v", err)
		return false
	}
	rep := proof.Validate(last.Proof, proof.Options{
		TrustBase:       r.opts.TrustBase,
		TransactionHash: txHash,
		StateHash:       srcHash,
		Mode:            r.opts.Mode,
	})
	if err := rep.Err(); err != nil {
		st.note("local: last transaction proof invalid (%s): %v", proof.RuleID(err), err)
		return false
	}
	st.note("local: last transaction proof valid")
	return true
}

func (s *Status) note(format string, args ...any) {
	s.Rationale = append(s.Rationale, fmt.Sprintf(format, args...))
}
