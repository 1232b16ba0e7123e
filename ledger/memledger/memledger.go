// Package memledger is an in-memory reference ledger. It accepts
// commitments, batches them into rounds, builds a binary Merkle tree per round
// and certifies each root with a fixed validator set.
//
// It exists to exercise clients end to end; it implements no consensus.
package memledger

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/internal/logging"
	"xdao.co/tokenrec/keys"
	"xdao.co/tokenrec/ledger"
	"xdao.co/tokenrec/proof"
)

type commitment struct {
	requestID hashutil.Imprint
	txHash    hashutil.Imprint
	auth      *proof.Authenticator
}

type validator struct {
	id     string
	signer keys.Signer
}

// Ledger is safe for concurrent use.
type Ledger struct {
	mu         sync.Mutex
	validators []validator
	quorum     int
	epoch      uint64
	round      uint64
	pending    []commitment
	pendingIdx map[string]int
	committed  map[string]*proof.InclusionProof
	log        *slog.Logger
}

// Config selects the validator set. Validator keys are derived from Secret so
// a restarted ledger publishes the same trust base.
type Config struct {
	Validators int
	Quorum     int
	Secret     []byte
	Epoch      uint64
	Logger     *slog.Logger
}

var defaultSecret = []byte("tokenrec memledger validators")

// New builds a ledger. Zero values default to one validator with quorum one.
func New(cfg Config) (*Ledger, error) {
	if cfg.Validators <= 0 {
		cfg.Validators = 1
	}
	if cfg.Quorum <= 0 {
		cfg.Quorum = cfg.Validators/2 + 1
	}
	if cfg.Quorum > cfg.Validators {
		return nil, fmt.Errorf("memledger: quorum %d exceeds %d validators", cfg.Quorum, cfg.Validators)
	}
	if len(cfg.Secret) == 0 {
		cfg.Secret = defaultSecret
	}
	if cfg.Epoch == 0 {
		cfg.Epoch = 1
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}

	l := &Ledger{
		quorum:     cfg.Quorum,
		epoch:      cfg.Epoch,
		pendingIdx: make(map[string]int),
		committed:  make(map[string]*proof.InclusionProof),
		log:        log,
	}
	for i := 0; i < cfg.Validators; i++ {
		id := fmt.Sprintf("node-%d", i+1)
		seed, err := keys.DeriveSeed(cfg.Secret, []byte(id))
		if err != nil {
			return nil, err
		}
		s, err := keys.NewEd25519Signer(seed)
		if err != nil {
			return nil, err
		}
		l.validators = append(l.validators, validator{id: id, signer: s})
	}
	return l, nil
}

// TrustBase returns the validator set clients should trust.
func (l *Ledger) TrustBase() *proof.TrustBase {
	tb := &proof.TrustBase{Epoch: l.epoch, Quorum: l.quorum}
	for _, v := range l.validators {
		tb.Validators = append(tb.Validators, proof.Validator{
			NodeID:    v.id,
			Algorithm: v.signer.Algorithm(),
			PublicKey: v.signer.PublicKey(),
		})
	}
	return tb
}

// Submit queues a commitment for the next round. Resubmitting the same
// transaction is a no-op; a different transaction for a known request id is
// ErrConflict.
func (l *Ledger) Submit(ctx context.Context, auth *proof.Authenticator, txHash hashutil.Imprint) (hashutil.Imprint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if auth == nil || txHash.IsZero() {
		return nil, fmt.Errorf("%w: missing authenticator or transaction hash", ledger.ErrRejected)
	}
	if _, err := hashutil.ParseImprint(txHash); err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrRejected, err)
	}
	if err := auth.VerifySignature(txHash); err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrRejected, err)
	}
	reqID := auth.RequestID()
	key := reqID.Hex()

	l.mu.Lock()
	defer l.mu.Unlock()

	if p, ok := l.committed[key]; ok {
		if p.TransactionHash.Equal(txHash) {
			return reqID, nil
		}
		return nil, ledger.ErrConflict
	}
	if i, ok := l.pendingIdx[key]; ok {
		if l.pending[i].txHash.Equal(txHash) {
			return reqID, nil
		}
		return nil, ledger.ErrConflict
	}
	l.pendingIdx[key] = len(l.pending)
	l.pending = append(l.pending, commitment{requestID: reqID, txHash: txHash, auth: auth.Clone()})
	l.log.Debug("commitment_queued", "request_id", key)
	return reqID, nil
}

// Certify closes the current round: every queued commitment becomes a leaf,
// the root is signed by all validators and proofs become available. It
// returns the round number, or 0 when nothing was queued.
func (l *Ledger) Certify(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 {
		return 0, nil
	}
	batch := append([]commitment(nil), l.pending...)
	sort.Slice(batch, func(i, j int) bool { return bytes.Compare(batch[i].requestID, batch[j].requestID) < 0 })

	leaves := make([][]byte, len(batch))
	for i, c := range batch {
		leaves[i] = proof.LeafHash(c.requestID, c.txHash)
	}
	tree := buildTree(leaves)
	root, err := proof.RootImprint(tree.root())
	if err != nil {
		return 0, err
	}

	round := l.round + 1
	cert := &proof.Certificate{Round: round, RootHash: root}
	msg := proof.CertificateSigningBytes(round, root)
	for _, v := range l.validators {
		sig, err := v.signer.Sign(msg)
		if err != nil {
			return 0, err
		}
		cert.Signatures = append(cert.Signatures, proof.CertificateSignature{NodeID: v.id, Signature: sig})
	}

	for i, c := range batch {
		l.committed[c.requestID.Hex()] = &proof.InclusionProof{
			Authenticator:   c.auth,
			TransactionHash: c.txHash,
			MerklePath:      &proof.MerklePath{Root: root, Steps: tree.path(i)},
			Certificate:     cert,
		}
	}
	l.round = round
	l.pending = nil
	l.pendingIdx = make(map[string]int)
	l.log.Info("round_certified", "round", round, "commitments", len(batch), "root", root.Hex())
	return round, nil
}

// Round returns the last certified round.
func (l *Ledger) Round() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.round
}

func (l *Ledger) GetInclusionProof(ctx context.Context, requestID hashutil.Imprint) (*proof.InclusionProof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.committed[requestID.Hex()]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return p.Clone(), nil
}

// IsSpent is true once a commitment spending the state has been certified.
func (l *Ledger) IsSpent(ctx context.Context, publicKey []byte, stateHash hashutil.Imprint) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key := proof.DeriveRequestID(publicKey, stateHash).Hex()
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.committed[key]
	return ok, nil
}

var (
	_ ledger.Client    = (*Ledger)(nil)
	_ ledger.Submitter = (*Ledger)(nil)
)
