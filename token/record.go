package token

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"xdao.co/tokenrec/proof"
)

// Version is the record format version written by this package.
const Version = "2.0"

var (
	errMissingSourceState = errors.New("token: transfer has no source state")

	// ErrInvalidRecord is wrapped by every Validate failure.
	ErrInvalidRecord = errors.New("token: invalid record")
)

// Status labels written by Mint, Send and Receive.
const (
	StatusMinted      = "MINTED"
	StatusPending     = "PENDING"
	StatusTransferred = "TRANSFERRED"
	StatusReceived    = "RECEIVED"
)

// Record is one token's full provenance plus its current ownership state.
type Record struct {
	Version         string           `json:"version"`
	Genesis         Genesis          `json:"genesis"`
	Transactions    []Transaction    `json:"transactions"`
	State           *State           `json:"state"`
	PendingTransfer *PendingTransfer `json:"pendingTransfer,omitempty"`
	Status          string           `json:"status,omitempty"`
}

// ID returns the token id carried by the genesis.
func (r *Record) ID() []byte { return r.Genesis.Data.TokenID }

// HasPendingTransfer reports whether an offline transfer package is
// outstanding.
func (r *Record) HasPendingTransfer() bool {
	return r != nil && r.PendingTransfer != nil
}

// LastTransaction returns the newest transaction, or nil.
func (r *Record) LastTransaction() *Transaction {
	if r == nil || len(r.Transactions) == 0 {
		return nil
	}
	return &r.Transactions[len(r.Transactions)-1]
}

// InTransit reports whether the current state has not been claimed yet: the
// record has at least one transaction and the current predicate equals the
// last transaction's source-state predicate. State data is not compared.
func (r *Record) InTransit() bool {
	last := r.LastTransaction()
	if last == nil || r.State == nil {
		return false
	}
	return r.State.SamePredicate(last.Data.SourceState)
}

// LatestKnownOwner is the last transaction's recipient, else the genesis
// recipient.
func (r *Record) LatestKnownOwner() string {
	if last := r.LastTransaction(); last != nil {
		return last.Data.Recipient
	}
	return r.Genesis.Data.Recipient
}

// StateOwner is the address holding the current state. For an in-transit
// record that is the sender, i.e. the recipient of the transaction before the
// last one (or the genesis recipient).
func (r *Record) StateOwner() string {
	n := len(r.Transactions)
	if r.InTransit() {
		if n >= 2 {
			return r.Transactions[n-2].Data.Recipient
		}
		return r.Genesis.Data.Recipient
	}
	return r.LatestKnownOwner()
}

// Validate checks the record's local invariants.
func (r *Record) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if len(r.Genesis.Data.TokenID) == 0 {
		return fmt.Errorf("%w: missing token id", ErrInvalidRecord)
	}
	if r.State == nil || len(r.State.Predicate) == 0 {
		return fmt.Errorf("%w: missing current state", ErrInvalidRecord)
	}
	for i := range r.Transactions {
		if r.Transactions[i].Data.SourceState == nil {
			return fmt.Errorf("%w: transaction %d has no source state", ErrInvalidRecord, i)
		}
	}
	if r.PendingTransfer != nil && !r.InTransit() {
		return fmt.Errorf("%w: pending transfer present but current state is not the last transaction's source state", ErrInvalidRecord)
	}
	return nil
}

func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{
		Version: r.Version,
		Genesis: Genesis{
			Data:  r.Genesis.Data.clone(),
			Proof: r.Genesis.Proof.Clone(),
		},
		State:           r.State.Clone(),
		PendingTransfer: r.PendingTransfer.Clone(),
		Status:          r.Status,
	}
	if r.Transactions != nil {
		out.Transactions = make([]Transaction, len(r.Transactions))
		for i, tx := range r.Transactions {
			out.Transactions[i] = Transaction{Data: tx.Data.clone(), Proof: tx.Proof.Clone()}
		}
	}
	return out
}

// Equal reports whether two records carry the same information. Empty and
// absent byte fields compare equal.
func Equal(a, b *Record) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// ProofChain lists every proof of the record with the hashes it must commit
// to, recomputed from local data.
func (r *Record) ProofChain() ([]proof.ChainItem, error) {
	items := make([]proof.ChainItem, 0, len(r.Transactions)+1)
	txHash, err := r.Genesis.Data.Hash()
	if err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}
	items = append(items, proof.ChainItem{
		Label:           "genesis",
		Proof:           r.Genesis.Proof,
		TransactionHash: txHash,
		StateHash:       MintSourceState(r.Genesis.Data.TokenID),
	})
	for i := range r.Transactions {
		tx := &r.Transactions[i]
		txHash, err := tx.Data.Hash()
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		stateHash, err := tx.Data.SourceState.Hash()
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		items = append(items, proof.ChainItem{
			Label:           fmt.Sprintf("transaction[%d]", i),
			Proof:           tx.Proof,
			TransactionHash: txHash,
			StateHash:       stateHash,
		})
	}
	return items, nil
}
