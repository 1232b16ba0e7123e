package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/ipfs/go-cid"

	"xdao.co/tokenrec/codec"
	"xdao.co/tokenrec/compliance"
	"xdao.co/tokenrec/config"
	"xdao.co/tokenrec/internal/logging"
	"xdao.co/tokenrec/ledger"
	"xdao.co/tokenrec/ledger/grpcledger"
	"xdao.co/tokenrec/model"
	"xdao.co/tokenrec/ownership"
	"xdao.co/tokenrec/proof"
	"xdao.co/tokenrec/resolver"
	"xdao.co/tokenrec/storage"
	"xdao.co/tokenrec/storage/localfs"
	"xdao.co/tokenrec/token"
)

// dialLedger opens the ledger client used by resolve and status.
var dialLedger = func(cfg config.Config) (ledger.Client, func() error, error) {
	c, err := grpcledger.Dial(cfg.LedgerTarget, grpcledger.DialOptions{
		Timeout:     cfg.LedgerTimeout,
		CallTimeout: cfg.LedgerTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	cached, err := ledger.NewCachingClient(c, cfg.ProofCacheSize)
	if err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	return cached, c.Close, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "scenario":
		return cmdScenario(args[1:], out, errOut)
	case "resolve":
		return cmdResolve(args[1:], out, errOut)
	case "status":
		return cmdStatus(args[1:], out, errOut)
	case "audit":
		return cmdAudit(args[1:], out, errOut)
	case "compact":
		return cmdCompact(args[1:], out, errOut)
	case "snapshots":
		return cmdSnapshots(args[1:], out, errOut)
	case "restore":
		return cmdRestore(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "tokenrec: offline token record reconciliation")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tokenrec scenario <record.json>")
	fmt.Fprintln(w, "  tokenrec resolve [--ledger <addr>] [--trust-base <file>] [--mode permissive|strict] [--archive-dir <dir>] [--out <file>] <record.json>")
	fmt.Fprintln(w, "  tokenrec status [--ledger <addr>] [--trust-base <file>] [--mode permissive|strict] <record.json>")
	fmt.Fprintln(w, "  tokenrec audit [--trust-base <file>] [--mode permissive|strict] <record.json>")
	fmt.Fprintln(w, "  tokenrec compact [--out <file>] <record.json>")
	fmt.Fprintln(w, "  tokenrec snapshots [--archive-dir <dir>] [--token <hex>]")
	fmt.Fprintln(w, "  tokenrec restore [--archive-dir <dir>] <cid> <record.json>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - flags override TOKENREC_* environment variables")
	fmt.Fprintln(w, "  - without a trust base, certificates are not checked and a warning is reported")
	fmt.Fprintln(w, "  - resolve rewrites the record in place unless --out is given")
	fmt.Fprintln(w, "  - with an archive dir, resolve keeps the pre-resolution record; restore writes it back")
	fmt.Fprintln(w, "  - reports are JSON on stdout; logs go to stderr")
}

// common holds the flags shared by the ledger-facing commands.
type common struct {
	cfg      config.Config
	mode     string
	log      *slog.Logger
	tb       *proof.TrustBase
	modeEnum compliance.ComplianceMode
}

func (c *common) register(fs *flag.FlagSet, withLedger bool) {
	if withLedger {
		fs.StringVar(&c.cfg.LedgerTarget, "ledger", c.cfg.LedgerTarget, "Ledger gRPC address")
		fs.DurationVar(&c.cfg.LedgerTimeout, "timeout", c.cfg.LedgerTimeout, "Per-call ledger timeout")
	}
	fs.StringVar(&c.cfg.TrustBasePath, "trust-base", c.cfg.TrustBasePath, "Trust base JSON file")
	fs.StringVar(&c.mode, "mode", "", "Compliance mode: permissive or strict")
}

// finish applies parsed flags and opens the trust base.
func (c *common) finish(errOut io.Writer) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	c.modeEnum = c.cfg.Mode()
	if c.mode != "" {
		m, err := model.ParseCompliance(model.ComplianceMode(c.mode))
		if err != nil {
			return err
		}
		c.modeEnum = m
	}
	log, err := logging.New(c.cfg.LogLevel, c.cfg.LogFormat, errOut)
	if err != nil {
		return err
	}
	c.log = log
	if c.cfg.TrustBasePath != "" {
		tb, err := config.LoadTrustBase(c.cfg.TrustBasePath)
		if err != nil {
			return fmt.Errorf("trust base: %w", err)
		}
		c.tb = tb
	}
	return nil
}

func loadCommon(errOut io.Writer) (*common, bool) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return nil, false
	}
	return &common{cfg: cfg}, true
}

func cmdScenario(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("scenario", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: tokenrec scenario <record.json>")
		return 2
	}
	rec, code := loadRecord(fs.Arg(0), out, errOut)
	if rec == nil {
		return code
	}
	return writeJSON(out, errOut, model.FromScenario(resolver.DetectScenario(rec)), 0)
}

func cmdResolve(args []string, out io.Writer, errOut io.Writer) int {
	c, ok := loadCommon(errOut)
	if !ok {
		return 2
	}
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(errOut)
	c.register(fs, true)
	var outPath string
	fs.StringVar(&c.cfg.ArchiveDir, "archive-dir", c.cfg.ArchiveDir, "Directory for pre-resolution snapshots")
	fs.StringVar(&outPath, "out", "", "Write the resolved record here instead of in place")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: tokenrec resolve [flags] <record.json>")
		return 2
	}
	if err := c.finish(errOut); err != nil {
		return writeError(out, errOut, err, 2)
	}
	path := fs.Arg(0)
	if outPath == "" {
		outPath = path
	}

	rec, code := loadRecord(path, out, errOut)
	if rec == nil {
		return code
	}

	before := resolver.DetectScenario(rec)
	if len(before.Incomplete) == 0 {
		rep := model.FromResolve(resolver.Summary{Skipped: 1 + len(rec.Transactions)}, before, nil)
		return writeJSON(out, errOut, rep, 0)
	}

	var snapshot string
	if c.cfg.ArchiveDir != "" {
		snaps, err := openSnapshots(c.cfg.ArchiveDir)
		if err != nil {
			fmt.Fprintf(errOut, "archive: %v\n", err)
			return 1
		}
		id, err := snaps.Put(rec)
		if err != nil {
			return writeError(out, errOut, err, 1)
		}
		snapshot = id.String()
		c.log.Info("snapshot_archived", "cid", snapshot, "dir", c.cfg.ArchiveDir)
	}

	client, closeFn, err := dialLedger(c.cfg)
	if err != nil {
		return writeError(out, errOut, fmt.Errorf("%w: %v", ledger.ErrUnavailable, err), 1)
	}
	if closeFn != nil {
		defer closeFn()
	}

	ctx, cancel := commandContext()
	defer cancel()
	r := resolver.New(client, resolver.Options{TrustBase: c.tb, Mode: c.modeEnum, Logger: c.log})
	sum, rerr := r.Resolve(ctx, rec)

	if len(sum.Resolved) > 0 {
		if err := codec.Save(outPath, rec); err != nil {
			fmt.Fprintf(errOut, "write record: %v\n", err)
			return 1
		}
	}

	rep := model.FromResolve(sum, resolver.DetectScenario(rec), rerr)
	rep.SnapshotCID = snapshot
	code = 0
	if rerr != nil {
		code = 1
	}
	return writeJSON(out, errOut, rep, code)
}

func cmdStatus(args []string, out io.Writer, errOut io.Writer) int {
	c, ok := loadCommon(errOut)
	if !ok {
		return 2
	}
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(errOut)
	c.register(fs, true)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: tokenrec status [flags] <record.json>")
		return 2
	}
	if err := c.finish(errOut); err != nil {
		return writeError(out, errOut, err, 2)
	}
	rec, code := loadRecord(fs.Arg(0), out, errOut)
	if rec == nil {
		return code
	}

	client, closeFn, err := dialLedger(c.cfg)
	if err != nil {
		return writeError(out, errOut, fmt.Errorf("%w: %v", ledger.ErrUnavailable, err), 1)
	}
	if closeFn != nil {
		defer closeFn()
	}

	ctx, cancel := commandContext()
	defer cancel()
	st, err := ownership.New(client, ownership.Options{TrustBase: c.tb, Mode: c.modeEnum, Logger: c.log}).Reconcile(ctx, rec)
	if err != nil {
		return writeError(out, errOut, err, 1)
	}
	exit := 0
	if st.Scenario == ownership.Error {
		exit = 1
	}
	return writeJSON(out, errOut, model.FromStatus(st), exit)
}

func cmdAudit(args []string, out io.Writer, errOut io.Writer) int {
	c, ok := loadCommon(errOut)
	if !ok {
		return 2
	}
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(errOut)
	c.register(fs, false)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: tokenrec audit [flags] <record.json>")
		return 2
	}
	if err := c.finish(errOut); err != nil {
		return writeError(out, errOut, err, 2)
	}
	rec, code := loadRecord(fs.Arg(0), out, errOut)
	if rec == nil {
		return code
	}
	items, err := rec.ProofChain()
	if err != nil {
		return writeError(out, errOut, err, 1)
	}
	rep := model.FromChainReport(proof.ValidateChain(items, c.tb, c.modeEnum))
	exit := 0
	if !rep.OK {
		exit = 1
	}
	return writeJSON(out, errOut, rep, exit)
}

func cmdCompact(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("compact", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var outPath string
	fs.StringVar(&outPath, "out", "", "Write here instead of in place")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: tokenrec compact [--out <file>] <record.json>")
		return 2
	}
	rec, code := loadRecord(fs.Arg(0), out, errOut)
	if rec == nil {
		return code
	}
	if outPath == "" {
		outPath = fs.Arg(0)
	}
	if err := codec.Save(outPath, rec); err != nil {
		fmt.Fprintf(errOut, "write record: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(out, "compacted=%t\n", codec.Compactable(rec))
	return 0
}

func cmdSnapshots(args []string, out io.Writer, errOut io.Writer) int {
	c, ok := loadCommon(errOut)
	if !ok {
		return 2
	}
	fs := flag.NewFlagSet("snapshots", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var tokenHex string
	fs.StringVar(&c.cfg.ArchiveDir, "archive-dir", c.cfg.ArchiveDir, "Snapshot archive directory")
	fs.StringVar(&tokenHex, "token", "", "Only list snapshots of this token id (hex)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 || c.cfg.ArchiveDir == "" {
		fmt.Fprintln(errOut, "usage: tokenrec snapshots --archive-dir <dir> [--token <hex>]")
		return 2
	}
	var tokenID []byte
	if tokenHex != "" {
		b, err := hex.DecodeString(tokenHex)
		if err != nil || len(b) == 0 {
			return writeError(out, errOut, model.NewError(model.ErrInvalidRequest, "invalid token id"), 2)
		}
		tokenID = b
	}
	snaps, err := openSnapshots(c.cfg.ArchiveDir)
	if err != nil {
		fmt.Fprintf(errOut, "archive: %v\n", err)
		return 1
	}
	entries, err := snaps.History(tokenID)
	if err != nil {
		return writeError(out, errOut, err, 1)
	}
	return writeJSON(out, errOut, model.FromHistory(entries), 0)
}

func cmdRestore(args []string, out io.Writer, errOut io.Writer) int {
	c, ok := loadCommon(errOut)
	if !ok {
		return 2
	}
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&c.cfg.ArchiveDir, "archive-dir", c.cfg.ArchiveDir, "Snapshot archive directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 || c.cfg.ArchiveDir == "" {
		fmt.Fprintln(errOut, "usage: tokenrec restore --archive-dir <dir> <cid> <record.json>")
		return 2
	}
	id, err := cid.Decode(fs.Arg(0))
	if err != nil {
		return writeError(out, errOut, model.NewError(model.ErrInvalidRequest, fmt.Sprintf("invalid cid: %v", err)), 2)
	}
	log, err := logging.New(c.cfg.LogLevel, c.cfg.LogFormat, errOut)
	if err != nil {
		return writeError(out, errOut, model.NewError(model.ErrInvalidRequest, err.Error()), 2)
	}
	snaps, err := openSnapshots(c.cfg.ArchiveDir)
	if err != nil {
		fmt.Fprintf(errOut, "archive: %v\n", err)
		return 1
	}
	rec, err := snaps.Get(id)
	if err != nil {
		return writeError(out, errOut, err, 1)
	}
	path := fs.Arg(1)
	if err := codec.Save(path, rec); err != nil {
		fmt.Fprintf(errOut, "write record: %v\n", err)
		return 1
	}
	log.Info("snapshot_restored", "cid", id.String(), "path", path)
	return writeJSON(out, errOut, model.RestoreReport{
		CID:      id.String(),
		Path:     path,
		Scenario: model.FromScenario(resolver.DetectScenario(rec)),
	}, 0)
}

func openSnapshots(dir string) (*storage.Snapshots, error) {
	st, err := localfs.New(dir)
	if err != nil {
		return nil, err
	}
	return storage.NewSnapshots(st), nil
}

func loadRecord(path string, out, errOut io.Writer) (*token.Record, int) {
	rec, err := codec.Load(path)
	if err != nil {
		var pe *os.PathError
		if errors.As(err, &pe) {
			fmt.Fprintf(errOut, "read record: %v\n", err)
			return nil, 1
		}
		return nil, writeError(out, errOut, err, 1)
	}
	return rec, 0
}

// commandContext is cancelled on interrupt. Each ledger call carries its own
// timeout inside the client.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func writeError(out, errOut io.Writer, err error, code int) int {
	return writeJSON(out, errOut, struct {
		Error *model.CodedError `json:"error"`
	}{model.MapError(err)}, code)
}

func writeJSON(out, errOut io.Writer, v any, code int) int {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(errOut, "encode output: %v\n", err)
		return 1
	}
	return code
}
