package resolver

import (
	"context"
	"errors"
	"log/slog"

	"xdao.co/tokenrec/compliance"
	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/internal/logging"
	"xdao.co/tokenrec/ledger"
	"xdao.co/tokenrec/proof"
	"xdao.co/tokenrec/token"
)

// Options controls proof validation during resolution.
//
// Default behavior is Permissive with signature-only validation when
// Options{} is used; supplying a TrustBase enables full-chain checks.
type Options struct {
	TrustBase *proof.TrustBase
	Mode      compliance.ComplianceMode
	Logger    *slog.Logger
}

// Resolver fills in missing inclusion proofs.
type Resolver struct {
	client ledger.Client
	opts   Options
	log    *slog.Logger
}

func New(client ledger.Client, opts Options) *Resolver {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Resolver{client: client, opts: opts, log: log}
}

// Summary describes one resolution run.
type Summary struct {
	// Resolved lists the items spliced during this run, GenesisIndex first.
	Resolved []int
	// Skipped counts items that were already complete.
	Skipped int
	// Warnings are validator warnings of spliced proofs.
	Warnings []string
}

// Resolve walks the genesis and then every transaction in order, fetching and
// validating the proof of each incomplete item and splicing it into rec.
//
// Resolution is not atomic. On failure the returned *ResolutionError names
// the failing item; earlier items stay resolved and the failing and later
// items are left untouched. Complete items are skipped without a ledger call,
// so re-running after a failure resumes where the last run stopped.
func (r *Resolver) Resolve(ctx context.Context, rec *token.Record) (Summary, error) {
	var sum Summary
	if rec == nil {
		return sum, errors.New("resolver: nil record")
	}

	if rec.Genesis.IsComplete() {
		sum.Skipped++
	} else {
		txHash, err := rec.Genesis.Data.Hash()
		if err != nil {
			return sum, &ResolutionError{Index: GenesisIndex, Kind: KindValidation, Cause: err}
		}
		p, warnings, err := r.resolveItem(ctx, GenesisIndex, rec.Genesis.Proof, txHash, token.MintSourceState(rec.Genesis.Data.TokenID))
		if err != nil {
			return sum, err
		}
		rec.Genesis.Proof = p
		sum.Resolved = append(sum.Resolved, GenesisIndex)
		sum.Warnings = append(sum.Warnings, warnings...)
	}

	for i := range rec.Transactions {
		tx := &rec.Transactions[i]
		if tx.IsComplete() {
			sum.Skipped++
			continue
		}
		txHash, err := tx.Data.Hash()
		if err != nil {
			return sum, &ResolutionError{Index: i, Kind: KindValidation, Cause: err}
		}
		stateHash, err := tx.Data.SourceState.Hash()
		if err != nil {
			return sum, &ResolutionError{Index: i, Kind: KindValidation, Cause: err}
		}
		p, warnings, err := r.resolveItem(ctx, i, tx.Proof, txHash, stateHash)
		if err != nil {
			return sum, err
		}
		tx.Proof = p
		sum.Resolved = append(sum.Resolved, i)
		sum.Warnings = append(sum.Warnings, warnings...)
	}

	r.log.Info("resolve_done", "token_id", hashutil.HexBytes(rec.ID()).String(), "resolved", len(sum.Resolved), "skipped", sum.Skipped)
	return sum, nil
}

// resolveItem fetches and validates the proof for one item. It never
// modifies the item; the caller splices the returned proof.
func (r *Resolver) resolveItem(ctx context.Context, index int, local *proof.InclusionProof, txHash, stateHash hashutil.Imprint) (*proof.InclusionProof, []string, error) {
	if local == nil || local.Authenticator == nil {
		return nil, nil, &ResolutionError{Index: index, Kind: KindMissingEvidence, Cause: errors.New("item has neither a proof nor an authenticator")}
	}
	auth := local.Authenticator
	if err := auth.Reconstruct(); err != nil {
		return nil, nil, &ResolutionError{Index: index, Kind: KindValidation, Cause: err}
	}
	reqID := proof.DeriveRequestID(auth.PublicKey, auth.StateHash)
	r.log.Debug("resolve_item", "item", itemLabel(index), "request_id", reqID.Hex())

	p, err := r.client.GetInclusionProof(ctx, reqID)
	switch {
	case err == nil:
	case ledger.IsNotFound(err):
		r.log.Info("resolve_not_committed", "item", itemLabel(index), "request_id", reqID.Hex())
		return nil, nil, &ResolutionError{Index: index, Kind: KindNotFound, Cause: err}
	default:
		r.log.Warn("resolve_ledger_error", "item", itemLabel(index), "err", err)
		return nil, nil, &ResolutionError{Index: index, Kind: KindNetwork, Cause: err}
	}

	report := proof.Validate(p, proof.Options{
		TrustBase:       r.opts.TrustBase,
		TransactionHash: txHash,
		StateHash:       stateHash,
		Mode:            r.opts.Mode,
	})
	if err := report.Err(); err != nil {
		r.log.Warn("resolve_invalid_proof", "item", itemLabel(index), "rule_id", proof.RuleID(err), "err", err)
		return nil, nil, &ResolutionError{Index: index, Kind: KindValidation, Cause: err}
	}
	if !p.Authenticator.RequestID().Equal(reqID) {
		return nil, nil, &ResolutionError{Index: index, Kind: KindValidation, Cause: errors.New("ledger proof commits under a different request id")}
	}
	warnings := make([]string, 0, len(report.Warnings))
	for _, w := range report.Warnings {
		warnings = append(warnings, itemLabel(index)+": "+w)
	}
	return p, warnings, nil
}
