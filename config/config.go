package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the storage settings for the reconciliation engine.
type Config struct {
	// LedgerDir is the WAL directory for the append-only trade history.
	LedgerDir string `yaml:"ledger_dir"`
	// PositionsDir is the WAL directory for the aggregate position book.
	PositionsDir string `yaml:"positions_dir"`
	// SyncWrites forces an fsync per WAL write. Slower, but a crash can
	// never lose an acknowledged trade.
	SyncWrites bool `yaml:"sync_writes"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LedgerDir:    "./wal/ledger",
		PositionsDir: "./wal/positions",
		SyncWrites:   true,
	}
}

// Load reads a YAML config file on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config file")
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parse config file")
	}

	return cfg, nil
}
