package token

import (
	"bytes"
	"errors"
	"fmt"

	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/keys"
	"xdao.co/tokenrec/proof"
)

// Commitment is what a client submits to the ledger for one transition.
type Commitment struct {
	RequestID       hashutil.Imprint
	TransactionHash hashutil.Imprint
	Authenticator   *proof.Authenticator
}

func commit(s keys.Signer, stateHash, txHash hashutil.Imprint) (*Commitment, error) {
	auth, err := proof.Sign(s, stateHash, txHash)
	if err != nil {
		return nil, err
	}
	return &Commitment{RequestID: auth.RequestID(), TransactionHash: txHash, Authenticator: auth}, nil
}

// Mint creates a genesis-only record whose current state is state. The
// genesis proof carries only the minter's authenticator until resolved.
func Mint(data MintData, state *State) (*Record, *Commitment, error) {
	if len(data.TokenID) == 0 {
		return nil, nil, errors.New("token: mint requires a token id")
	}
	if state == nil || len(state.Predicate) == 0 {
		return nil, nil, errors.New("token: mint requires an initial state")
	}
	if data.Recipient == "" {
		data.Recipient = AddressOf(state.Predicate)
	}
	signer, err := MinterSigner(data.TokenID)
	if err != nil {
		return nil, nil, err
	}
	txHash, err := data.Hash()
	if err != nil {
		return nil, nil, err
	}
	c, err := commit(signer, MintSourceState(data.TokenID), txHash)
	if err != nil {
		return nil, nil, err
	}
	r := &Record{
		Version: Version,
		Genesis: Genesis{
			Data:  data.clone(),
			Proof: &proof.InclusionProof{Authenticator: c.Authenticator},
		},
		Transactions: []Transaction{},
		State:        state.Clone(),
		Status:       StatusMinted,
	}
	return r, c, nil
}

// Transfer describes an outgoing transfer.
type Transfer struct {
	Recipient string
	Salt      []byte
	DataHash  hashutil.Imprint
	Message   []byte

	// Offline leaves a pending-transfer descriptor on the record so the
	// package can be handed over before it is submitted.
	Offline bool
}

// Send appends a transfer of the current state, signed by s, and returns the
// commitment to submit. The current state stays in place until the recipient
// claims it with Receive.
func (r *Record) Send(s keys.Signer, t Transfer) (*Commitment, error) {
	if r.State == nil {
		return nil, errors.New("token: record has no current state")
	}
	if r.InTransit() {
		return nil, errors.New("token: current state is already being transferred")
	}
	if t.Recipient == "" {
		return nil, errors.New("token: transfer requires a recipient")
	}
	pred, err := r.State.Decode()
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(pred.PublicKey, s.PublicKey()) {
		return nil, errors.New("token: signer does not own the current state")
	}

	data := TransferData{
		SourceState: r.State.Clone(),
		Recipient:   t.Recipient,
		Salt:        cloneBytes(t.Salt),
		DataHash:    hashutil.Imprint(cloneBytes(t.DataHash)),
		Message:     cloneBytes(t.Message),
	}
	txHash, err := data.Hash()
	if err != nil {
		return nil, err
	}
	stateHash, err := r.State.Hash()
	if err != nil {
		return nil, err
	}
	c, err := commit(s, stateHash, txHash)
	if err != nil {
		return nil, err
	}

	r.Transactions = append(r.Transactions, Transaction{
		Data:  data,
		Proof: &proof.InclusionProof{Authenticator: c.Authenticator},
	})
	r.Status = StatusTransferred
	if t.Offline {
		r.Status = StatusPending
		r.PendingTransfer = &PendingTransfer{
			Recipient: data.Recipient,
			Salt:      cloneBytes(data.Salt),
			DataHash:  hashutil.Imprint(cloneBytes(data.DataHash)),
			Message:   cloneBytes(data.Message),
			RequestID: c.RequestID,
		}
	}
	return c, nil
}

// Receive claims an in-transit record: the new state replaces the current
// one and any pending-transfer descriptor is cleared.
func (r *Record) Receive(state *State) error {
	if !r.InTransit() {
		return errors.New("token: record is not in transit")
	}
	if state == nil || len(state.Predicate) == 0 {
		return errors.New("token: receive requires a state")
	}
	last := r.LastTransaction()
	if addr := AddressOf(state.Predicate); addr != last.Data.Recipient {
		return fmt.Errorf("token: state address %s does not match recipient %s", addr, last.Data.Recipient)
	}
	r.State = state.Clone()
	r.PendingTransfer = nil
	r.Status = StatusReceived
	return nil
}
