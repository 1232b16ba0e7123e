package grpcledger

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/tokenrec/hashutil"
	"xdao.co/tokenrec/keys"
	"xdao.co/tokenrec/ledger"
	"xdao.co/tokenrec/ledger/memledger"
	"xdao.co/tokenrec/proof"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func startServer(t *testing.T, backend Backend, logs *syncBuffer) (*Client, *grpc.Server) {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	log := slog.New(slog.NewTextHandler(logs, nil))
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(log)))
	RegisterLedgerServer(srv, &Server{Ledger: backend})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	client, err := Dial("bufnet", DialOptions{
		CallTimeout: 2 * time.Second,
		Extra:       []grpc.DialOption{grpc.WithContextDialer(dialer)},
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestGRPCLedger_RoundTrip(t *testing.T) {
	ctx := context.Background()
	ml, err := memledger.New(memledger.Config{Validators: 3})
	if err != nil {
		t.Fatalf("memledger.New: %v", err)
	}
	logs := &syncBuffer{}
	client, _ := startServer(t, ml, logs)

	signer, err := keys.NewEd25519Signer(bytes.Repeat([]byte{7}, ed25519.SeedSize))
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	stateHash := hashutil.SumSHA256([]byte("state"))
	txHash := hashutil.SumSHA256([]byte("tx"))
	auth, err := proof.Sign(signer, stateHash, txHash)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	reqID, err := client.Submit(ctx, auth, txHash)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !reqID.Equal(auth.RequestID()) {
		t.Fatalf("request id mismatch")
	}
	if _, err := client.GetInclusionProof(ctx, reqID); !ledger.IsNotFound(err) {
		t.Fatalf("expected not found before certification, got %v", err)
	}
	if _, err := ml.Certify(ctx); err != nil {
		t.Fatalf("Certify: %v", err)
	}

	p, err := client.GetInclusionProof(ctx, reqID)
	if err != nil {
		t.Fatalf("GetInclusionProof: %v", err)
	}
	if err := proof.Verify(p, proof.Options{TrustBase: ml.TrustBase(), TransactionHash: txHash}); err != nil {
		t.Fatalf("proof fetched over gRPC does not verify: %v", err)
	}
	spent, err := client.IsSpent(ctx, signer.PublicKey(), stateHash)
	if err != nil || !spent {
		t.Fatalf("IsSpent: %v %v", spent, err)
	}

	other, _ := proof.Sign(signer, stateHash, hashutil.SumSHA256([]byte("tx-2")))
	if _, err := client.Submit(ctx, other, hashutil.SumSHA256([]byte("tx-2"))); !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if !strings.Contains(logs.String(), "request_id=") || !strings.Contains(logs.String(), "GetInclusionProof") {
		t.Fatalf("expected per-call log lines, got:\n%s", logs.String())
	}
}

func TestGRPCLedger_ServerGoneIsUnavailable(t *testing.T) {
	ml, _ := memledger.New(memledger.Config{})
	client, srv := startServer(t, ml, &syncBuffer{})
	srv.Stop()

	client.Timeout = 200 * time.Millisecond
	_, err := client.IsSpent(context.Background(), []byte("pk"), hashutil.SumSHA256([]byte("s")))
	if !ledger.IsUnavailable(err) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestMapRPC_RoundTripsSentinels(t *testing.T) {
	for _, sentinel := range []error{ledger.ErrNotFound, ledger.ErrConflict, ledger.ErrRejected, ledger.ErrUnavailable} {
		if got := mapRPC(mapErr(sentinel)); !errors.Is(got, sentinel) {
			t.Fatalf("%v: got %v", sentinel, got)
		}
	}
}
