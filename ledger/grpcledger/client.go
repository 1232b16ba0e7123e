// Package grpcledger carries the ledger protocol over gRPC.
package grpcledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/ledger"
	"xdao.co/tokenrec/proof"
)

// Client implements ledger.Client and ledger.Submitter over the ledger gRPC
// service.
type Client struct {
	cc     *grpc.ClientConn
	client LedgerClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// CallTimeout becomes Client.Timeout.
	CallTimeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int

	// Extra dial options, e.g. a bufconn dialer in tests.
	Extra []grpc.DialOption
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	dialOpts = append(dialOpts, opts.Extra...)

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewLedgerClient(cc), Timeout: opts.CallTimeout}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Submit(ctx context.Context, auth *proof.Authenticator, txHash hashutil.Imprint) (hashutil.Imprint, error) {
	body, err := json.Marshal(submitRequest{Authenticator: auth, TransactionHash: txHash})
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	reply, err := c.client.Submit(ctx, wrapperspb.Bytes(body))
	if err != nil {
		return nil, mapRPC(err)
	}
	id, err := hashutil.ParseHex(reply.GetValue())
	if err != nil {
		return nil, err
	}
	if want := auth.RequestID(); !id.Equal(want) {
		return nil, errRequestIDMismatch
	}
	return id, nil
}

func (c *Client) GetInclusionProof(ctx context.Context, requestID hashutil.Imprint) (*proof.InclusionProof, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	reply, err := c.client.GetInclusionProof(ctx, wrapperspb.String(requestID.Hex()))
	if err != nil {
		return nil, mapRPC(err)
	}
	var p proof.InclusionProof
	if err := json.Unmarshal(reply.GetValue(), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) IsSpent(ctx context.Context, publicKey []byte, stateHash hashutil.Imprint) (bool, error) {
	body, err := json.Marshal(spentRequest{PublicKey: publicKey, StateHash: stateHash})
	if err != nil {
		return false, err
	}
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	reply, err := c.client.IsSpent(ctx, wrapperspb.Bytes(body))
	if err != nil {
		return false, mapRPC(err)
	}
	return reply.GetValue(), nil
}

// callCtx derives the per-call context: the caller's deadline wins if it is
// shorter than Timeout, and every call gets a fresh correlation id.
func (c *Client) callCtx(parent context.Context) (context.Context, context.CancelFunc) {
	ctx := metadata.AppendToOutgoingContext(parent, RequestIDHeader, uuid.NewString())
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}

var (
	_ ledger.Client    = (*Client)(nil)
	_ ledger.Submitter = (*Client)(nil)
)
