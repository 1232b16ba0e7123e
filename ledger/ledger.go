// Package ledger defines the client-side view of the remote, append-only
// ledger: proof lookup by request id and spent-state queries.
package ledger

import (
	"context"
	"errors"

	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/proof"
)

var (
	// ErrNotFound means the request id has not been committed yet. It is
	// transient: the caller should retry later.
	ErrNotFound = errors.New("ledger: inclusion proof not found")

	// ErrUnavailable marks transport failures. It never means "unspent" or
	// "not found".
	ErrUnavailable = errors.New("ledger: unavailable")

	// ErrConflict means a different transaction was already committed for the
	// same request id, i.e. the source state was spent elsewhere.
	ErrConflict = errors.New("ledger: request id already committed with a different transaction")

	// ErrRejected means the ledger refused a commitment as invalid.
	ErrRejected = errors.New("ledger: commitment rejected")
)

func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// Client answers the two queries reconciliation needs. Implementations own
// retries and timeouts; callers pass a context and nothing else.
type Client interface {
	// GetInclusionProof returns ErrNotFound when requestID is not committed.
	GetInclusionProof(ctx context.Context, requestID hashutil.Imprint) (*proof.InclusionProof, error)

	// IsSpent reports whether the state owned by publicKey with stateHash
	// has been spent on the ledger.
	IsSpent(ctx context.Context, publicKey []byte, stateHash hashutil.Imprint) (bool, error)
}

// Submitter accepts commitments for inclusion in a later round.
type Submitter interface {
	Submit(ctx context.Context, auth *proof.Authenticator, transactionHash hashutil.Imprint) (hashutil.Imprint, error)
}
