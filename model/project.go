package model

import (
	"fmt"

	"xdao.co/tokenrec/compliance"
	"xdao.co/tokenrec/ownership"
	"xdao.co/tokenrec/proof"
	"xdao.co/tokenrec/resolver"
	"xdao.co/tokenrec/storage"
)

// ParseCompliance maps the boundary spelling to a compliance mode.
func ParseCompliance(m ComplianceMode) (compliance.ComplianceMode, error) {
	mode, err := compliance.Parse(string(m))
	if err != nil {
		return 0, NewError(ErrInvalidRequest, fmt.Sprintf("invalid compliance mode %q", m))
	}
	return mode, nil
}

func itemLabel(index int) string {
	if index == resolver.GenesisIndex {
		return "genesis"
	}
	return fmt.Sprintf("transaction[%d]", index)
}

func labels(indices []int) []string {
	out := make([]string, 0, len(indices))
	for _, i := range indices {
		out = append(out, itemLabel(i))
	}
	return out
}

func FromScenario(s resolver.Scenario) ScenarioReport {
	return ScenarioReport{
		Scenario:   string(s.Kind),
		Reason:     s.Reason,
		Incomplete: labels(s.Incomplete),
	}
}

// FromResolve projects a resolver run. err, if any, is the run's failure; the
// summary still lists what was resolved before it.
func FromResolve(sum resolver.Summary, after resolver.Scenario, err error) ResolveReport {
	warnings := sum.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return ResolveReport{
		Scenario: FromScenario(after),
		Resolved: labels(sum.Resolved),
		Skipped:  sum.Skipped,
		Warnings: warnings,
		Error:    MapError(err),
	}
}

func FromStatus(st *ownership.Status) StatusReport {
	out := StatusReport{
		Scenario:         string(st.Scenario),
		Code:             string(st.Code),
		CurrentOwner:     st.CurrentOwner,
		LatestKnownOwner: st.LatestKnownOwner,
		PendingRecipient: st.PendingRecipient,
		Inconsistent:     st.Inconsistent,
		Scheme:           st.Scheme.String(),
		PublicKey:        st.PublicKey.String(),
		StateHash:        st.StateHash.Hex(),
		Signals:          st.Signals,
		Rationale:        append([]string{}, st.Rationale...),
		Failure:          MapError(st.Failure),
	}
	if st.SpentKnown {
		spent := st.Spent
		out.Spent = &spent
	}
	if st.Scenario == ownership.Error {
		out.BestGuessOwner = st.BestGuessOwner
	}
	return out
}

func FromChainReport(rep proof.ChainReport) AuditReport {
	out := AuditReport{OK: rep.OK(), Items: make([]AuditItem, 0, len(rep.Items))}
	for _, it := range rep.Items {
		warnings := it.Warnings
		if warnings == nil {
			warnings = []string{}
		}
		out.Items = append(out.Items, AuditItem{
			Label:           it.Label,
			OK:              it.OK(),
			Warnings:        warnings,
			CryptoChecked:   it.CryptoChecked,
			ChainChecked:    it.ChainChecked,
			StructuralError: MapError(it.Structural),
			CryptoError:     MapError(it.Crypto),
		})
	}
	return out
}

// FromHistory projects archived snapshot entries, keeping their order.
func FromHistory(entries []storage.Entry) SnapshotList {
	out := SnapshotList{Snapshots: make([]SnapshotEntry, 0, len(entries))}
	for _, e := range entries {
		out.Snapshots = append(out.Snapshots, SnapshotEntry{
			CID:          e.CID.String(),
			TokenID:      e.TokenID.String(),
			Transactions: e.Transactions,
			Incomplete:   e.Incomplete,
			Pending:      e.Pending,
			Status:       e.Status,
		})
	}
	return out
}
