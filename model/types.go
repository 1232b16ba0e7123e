package model

import "xdao.co/tokenrec/ownership"

type ComplianceMode string

const (
	CompliancePermissive ComplianceMode = "permissive"
	ComplianceStrict     ComplianceMode = "strict"
)

type ScenarioReport struct {
	Scenario   string   `json:"scenario"`
	Reason     string   `json:"reason"`
	Incomplete []string `json:"incomplete"`
}

type ResolveReport struct {
	Scenario    ScenarioReport `json:"scenario"`
	Resolved    []string       `json:"resolved"`
	Skipped     int            `json:"skipped"`
	Warnings    []string       `json:"warnings"`
	SnapshotCID string         `json:"snapshotCID,omitempty"`
	Error       *CodedError    `json:"error,omitempty"`
}

// StatusReport is the JSON projection of an ownership verdict. Spent is null
// when the ledger could not be asked.
type StatusReport struct {
	Scenario         string            `json:"scenario"`
	Code             string            `json:"code"`
	Spent            *bool             `json:"spent"`
	CurrentOwner     string            `json:"currentOwner"`
	LatestKnownOwner string            `json:"latestKnownOwner"`
	PendingRecipient string            `json:"pendingRecipient,omitempty"`
	BestGuessOwner   string            `json:"bestGuessOwner,omitempty"`
	Inconsistent     bool              `json:"inconsistent"`
	Scheme           string            `json:"scheme"`
	PublicKey        string            `json:"publicKey"`
	StateHash        string            `json:"stateHash"`
	Signals          ownership.Signals `json:"signals"`
	Rationale        []string          `json:"rationale"`
	Failure          *CodedError       `json:"failure,omitempty"`
}

type AuditItem struct {
	Label           string      `json:"label"`
	OK              bool        `json:"ok"`
	Warnings        []string    `json:"warnings"`
	CryptoChecked   bool        `json:"cryptoChecked"`
	ChainChecked    bool        `json:"chainChecked"`
	StructuralError *CodedError `json:"structuralError,omitempty"`
	CryptoError     *CodedError `json:"cryptoError,omitempty"`
}

type AuditReport struct {
	OK    bool        `json:"ok"`
	Items []AuditItem `json:"items"`
}

type SnapshotEntry struct {
	CID          string `json:"cid"`
	TokenID      string `json:"tokenId"`
	Transactions int    `json:"transactions"`
	Incomplete   int    `json:"incomplete"`
	Pending      bool   `json:"pending"`
	Status       string `json:"status,omitempty"`
}

type SnapshotList struct {
	Snapshots []SnapshotEntry `json:"snapshots"`
}

type RestoreReport struct {
	CID      string         `json:"cid"`
	Path     string         `json:"path"`
	Scenario ScenarioReport `json:"scenario"`
}
