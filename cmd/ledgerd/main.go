package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"xdao.co/tokenrec/config"
	"xdao.co/tokenrec/internal/logging"
	"xdao.co/tokenrec/ledger/grpcledger"
	"xdao.co/tokenrec/ledger/memledger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, errOut io.Writer) int {
	cfg, err := config.LoadLedgerd()
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 2
	}

	fs := flag.NewFlagSet("ledgerd", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "listen address")
	fs.IntVar(&cfg.Validators, "validators", cfg.Validators, "number of validator nodes")
	fs.IntVar(&cfg.Quorum, "quorum", cfg.Quorum, "signatures a certificate needs (0 = majority)")
	fs.StringVar(&cfg.Secret, "secret", cfg.Secret, "validator key derivation secret")
	fs.DurationVar(&cfg.RoundInterval, "round-interval", cfg.RoundInterval, "how often queued commitments are certified")
	fs.StringVar(&cfg.TrustBaseOut, "trust-base-out", cfg.TrustBaseOut, "write the trust base JSON here on startup")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, errOut)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	l, err := memledger.New(memledger.Config{
		Validators: cfg.Validators,
		Quorum:     cfg.Quorum,
		Secret:     []byte(cfg.Secret),
		Logger:     log,
	})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if cfg.TrustBaseOut != "" {
		if err := config.WriteTrustBase(cfg.TrustBaseOut, l.TrustBase()); err != nil {
			fmt.Fprintf(errOut, "write trust base: %v\n", err)
			return 1
		}
		log.Info("trust_base_written", "path", cfg.TrustBaseOut)
	}

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer lis.Close()

	s := grpc.NewServer(grpc.UnaryInterceptor(grpcledger.LoggingInterceptor(log)))
	grpcledger.RegisterLedgerServer(s, &grpcledger.Server{Ledger: l})

	go certifyLoop(ctx, l, cfg.RoundInterval, log)
	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	log.Info("listening", "addr", lis.Addr().String(), "validators", cfg.Validators, "round_interval", cfg.RoundInterval)
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	return 0
}

// certifyLoop closes a round every interval until ctx is done.
func certifyLoop(ctx context.Context, l *memledger.Ledger, interval time.Duration, log *slog.Logger) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := l.Certify(ctx); err != nil && ctx.Err() == nil {
				log.Error("certify_failed", "err", err)
			}
		}
	}
}
