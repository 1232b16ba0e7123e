package grpcledger

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/tokenrec/ledger"
)

var errRequestIDMismatch = errors.New("grpcledger: server returned a different request id")

// mapRPC turns gRPC status errors into ledger sentinels. Anything that is not
// a definite answer from the ledger becomes ErrUnavailable.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", ledger.ErrUnavailable, err)
	}
	switch st.Code() {
	case codes.NotFound:
		return ledger.ErrNotFound
	case codes.AlreadyExists:
		return ledger.ErrConflict
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ledger.ErrRejected, st.Message())
	default:
		return fmt.Errorf("%w: %s: %s", ledger.ErrUnavailable, st.Code(), st.Message())
	}
}

// mapErr is the server-side inverse of mapRPC.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ledger.ErrConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, ledger.ErrRejected):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ledger.ErrUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
