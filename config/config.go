// Package config loads runtime settings from the environment and the trust
// base from a JSON file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"xdao.co/tokenrec/compliance"
	"xdao.co/tokenrec/proof"
)

// Config controls the tokenrec client.
type Config struct {
	LedgerTarget   string        `env:"TOKENREC_LEDGER_TARGET"    envDefault:"localhost:7400"`
	LedgerTimeout  time.Duration `env:"TOKENREC_LEDGER_TIMEOUT"   envDefault:"10s"`
	TrustBasePath  string        `env:"TOKENREC_TRUST_BASE"`
	ProofCacheSize int           `env:"TOKENREC_PROOF_CACHE_SIZE" envDefault:"1024"`
	LogLevel       string        `env:"TOKENREC_LOG_LEVEL"        envDefault:"info"`
	LogFormat      string        `env:"TOKENREC_LOG_FORMAT"       envDefault:"text"`
	Strict         bool          `env:"TOKENREC_STRICT"`
	ArchiveDir     string        `env:"TOKENREC_ARCHIVE_DIR"`
}

// Load parses Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.LedgerTarget) == "" {
		return errors.New("config: ledger target is required")
	}
	if c.LedgerTimeout < 0 {
		return errors.New("config: ledger timeout cannot be negative")
	}
	if c.ProofCacheSize < 0 {
		return errors.New("config: proof cache size cannot be negative")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	return nil
}

// Mode returns the compliance mode selected by Strict.
func (c Config) Mode() compliance.ComplianceMode {
	if c.Strict {
		return compliance.Strict
	}
	return compliance.Permissive
}

// LedgerdConfig controls the reference ledger daemon.
type LedgerdConfig struct {
	Listen        string        `env:"TOKENREC_LEDGERD_LISTEN"         envDefault:"127.0.0.1:7400"`
	Validators    int           `env:"TOKENREC_LEDGERD_VALIDATORS"     envDefault:"3"`
	Quorum        int           `env:"TOKENREC_LEDGERD_QUORUM"`
	Secret        string        `env:"TOKENREC_LEDGERD_SECRET"`
	RoundInterval time.Duration `env:"TOKENREC_LEDGERD_ROUND_INTERVAL" envDefault:"1s"`
	TrustBaseOut  string        `env:"TOKENREC_LEDGERD_TRUST_BASE_OUT"`
	LogLevel      string        `env:"TOKENREC_LOG_LEVEL"              envDefault:"info"`
	LogFormat     string        `env:"TOKENREC_LOG_FORMAT"             envDefault:"text"`
}

// LoadLedgerd parses LedgerdConfig from the environment.
func LoadLedgerd() (LedgerdConfig, error) {
	var cfg LedgerdConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Validators <= 0 {
		return cfg, errors.New("config: at least one validator is required")
	}
	if cfg.Quorum < 0 || cfg.Quorum > cfg.Validators {
		return cfg, fmt.Errorf("config: quorum %d out of range 0..%d", cfg.Quorum, cfg.Validators)
	}
	if cfg.RoundInterval <= 0 {
		return cfg, errors.New("config: round interval must be positive")
	}
	return cfg, nil
}

// LoadTrustBase reads and validates a JSON trust base.
func LoadTrustBase(path string) (*proof.TrustBase, error) {
	if path == "" {
		return nil, errors.New("config: empty trust base path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tb proof.TrustBase
	if err := json.Unmarshal(b, &tb); err != nil {
		return nil, fmt.Errorf("config: trust base %s: %w", path, err)
	}
	if err := tb.Validate(); err != nil {
		return nil, err
	}
	return &tb, nil
}

// WriteTrustBase writes tb as indented JSON.
func WriteTrustBase(path string, tb *proof.TrustBase) error {
	if err := tb.Validate(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(tb, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
