package grpcledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/internal/logging"
	"xdao.co/tokenrec/ledger"
)

// Backend is what the server exposes.
type Backend interface {
	ledger.Client
	ledger.Submitter
}

// Server exposes a Backend over the ledger gRPC service.
type Server struct {
	UnimplementedLedgerServer
	Ledger Backend
}

func (s *Server) Submit(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.Ledger == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger")
	}
	var req submitRequest
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed submit request: "+err.Error())
	}
	id, err := s.Ledger.Submit(ctx, req.Authenticator, req.TransactionHash)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(id.Hex()), nil
}

func (s *Server) GetInclusionProof(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Ledger == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger")
	}
	id, err := hashutil.ParseHex(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed request id: "+err.Error())
	}
	p, err := s.Ledger.GetInclusionProof(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, status.Error(codes.Internal, "proof encoding failed")
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) IsSpent(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Ledger == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger")
	}
	var req spentRequest
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed spent request: "+err.Error())
	}
	if len(req.PublicKey) == 0 || req.StateHash.IsZero() {
		return nil, status.Error(codes.InvalidArgument, "public key and state hash are required")
	}
	spent, err := s.Ledger.IsSpent(ctx, req.PublicKey, req.StateHash)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bool(spent), nil
}

// LoggingInterceptor logs one line per call with the caller's correlation id.
func LoggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = logging.Discard()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		reqID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get(RequestIDHeader); len(v) > 0 {
				reqID = v[0]
			}
		}
		log.Info("rpc",
			"method", info.FullMethod,
			"request_id", reqID,
			"code", status.Code(err).String(),
			"duration", time.Since(start),
		)
		return resp, err
	}
}
