// Package ownership reconciles a local token record with the ledger's view
// of whether its current state has been spent.
package ownership

import "xdao.co/tokenrec/token"

// Scenario is the ownership verdict.
type Scenario string

const (
	// Current: the local state is unspent and usable now.
	Current Scenario = "Current"
	// Outdated: the state was spent through a channel this record does not know.
	Outdated Scenario = "Outdated"
	// Pending: an offline transfer package exists but the ledger has not
	// accepted it. A parallel spend through another copy is still possible.
	Pending Scenario = "Pending"
	// Confirmed: the state was spent by the transfer this record knows about.
	Confirmed Scenario = "Confirmed"
	// Error: the signals contradict each other or the ledger could not be asked.
	Error Scenario = "Error"
)

// Code is a short, stable status code naming the rule that produced a verdict.
type Code string

const (
	CodeUnspent           Code = "UNSPENT"
	CodeSpentElsewhere    Code = "SPENT_ELSEWHERE"
	CodePendingTransfer   Code = "PENDING_TRANSFER"
	CodeTransferred       Code = "TRANSFERRED"
	CodeStalePending      Code = "TRANSFERRED_STALE_PENDING"
	CodeLedgerUnavailable Code = "LEDGER_UNAVAILABLE"
	CodeContradiction     Code = "CONTRADICTORY_SIGNALS"
)

// Unknown is reported as the current owner when it cannot be determined.
const Unknown = "UNKNOWN"

// Signals are the observations classification is based on.
type Signals struct {
	// Spent is the ledger's answer for the current state.
	Spent bool `json:"spent"`
	// Pending is true when an offline transfer descriptor is present.
	Pending bool `json:"pending"`
	// HasTransactions is true when the record has at least one transaction.
	HasTransactions bool `json:"hasTransactions"`
	// InTransit is true when the current state is the last transaction's
	// source state, i.e. the local record holds the spend of it.
	InTransit bool `json:"inTransit"`
	// LastTransactionProved is true when the last transaction carries a
	// proof that validates.
	LastTransactionProved bool `json:"lastTransactionProved"`
}

// Classify maps signals to exactly one scenario. inconsistent is set when the
// verdict relies on a policy for an anomalous local state that should be
// repaired on disk.
func Classify(s Signals) (scenario Scenario, code Code, inconsistent bool) {
	switch {
	case s.InTransit && !s.HasTransactions:
		return Error, CodeContradiction, false
	case s.Pending && !s.InTransit:
		// A pending package for a state the record no longer holds.
		return Error, CodeContradiction, true
	case !s.Spent && !s.Pending:
		if s.InTransit && s.LastTransactionProved {
			// The ledger says unspent while a validated proof says the
			// local transaction spent this state.
			return Error, CodeContradiction, false
		}
		return Current, CodeUnspent, false
	case !s.Spent && s.Pending:
		return Pending, CodePendingTransfer, false
	case s.Spent && !s.Pending && !(s.HasTransactions && s.InTransit):
		return Outdated, CodeSpentElsewhere, false
	case s.Spent && !s.Pending:
		return Confirmed, CodeTransferred, false
	case s.Spent && s.Pending:
		// The pending package is assumed to be the one that was submitted.
		return Confirmed, CodeStalePending, true
	}
	return Error, CodeContradiction, false
}

// LabelMatches reports whether a record's status label agrees with the local
// signals. An empty label is not checked.
func LabelMatches(label string, s Signals) bool {
	switch label {
	case "":
		return true
	case token.StatusMinted:
		return !s.HasTransactions && !s.Pending
	case token.StatusPending:
		return s.Pending && s.InTransit
	case token.StatusTransferred:
		return s.InTransit && !s.Pending
	case token.StatusReceived:
		return s.HasTransactions && !s.InTransit && !s.Pending
	default:
		return false
	}
}
