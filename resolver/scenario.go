// Package resolver classifies token records by proof completeness and fills
// in missing inclusion proofs from the ledger.
package resolver

import (
	"fmt"

	"xdao.co/tokenrec/token"
)

// ScenarioKind is the binary transfer scenario.
type ScenarioKind string

const (
	Complete        ScenarioKind = "Complete"
	NeedsResolution ScenarioKind = "NeedsResolution"
)

// GenesisIndex identifies the genesis in item indices.
const GenesisIndex = -1

// Scenario is the classifier output. Incomplete lists the items lacking an
// authenticator or transaction hash, genesis first as GenesisIndex.
type Scenario struct {
	Kind       ScenarioKind
	Reason     string
	Incomplete []int
}

func (s Scenario) IsComplete() bool { return s.Kind == Complete }

// DetectScenario decides whether r's proofs are complete. A record without
// transactions always needs resolution. It never fails and never mutates r.
func DetectScenario(r *token.Record) Scenario {
	if r == nil {
		return Scenario{Kind: NeedsResolution, Reason: "no record"}
	}
	var incomplete []int
	if !r.Genesis.IsComplete() {
		incomplete = append(incomplete, GenesisIndex)
	}
	for i := range r.Transactions {
		if !r.Transactions[i].IsComplete() {
			incomplete = append(incomplete, i)
		}
	}
	if len(r.Transactions) == 0 {
		return Scenario{Kind: NeedsResolution, Reason: "record has no transactions", Incomplete: incomplete}
	}
	if len(incomplete) > 0 {
		return Scenario{
			Kind:       NeedsResolution,
			Reason:     fmt.Sprintf("%d of %d proofs lack an authenticator or transaction hash", len(incomplete), len(r.Transactions)+1),
			Incomplete: incomplete,
		}
	}
	return Scenario{Kind: Complete, Reason: "all proofs carry an authenticator and transaction hash"}
}

func itemLabel(index int) string {
	if index == GenesisIndex {
		return "genesis"
	}
	return fmt.Sprintf("transaction[%d]", index)
}
