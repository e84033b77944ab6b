package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Errorf("empty path must yield defaults, got %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "ledger_dir: /data/ledger\nsync_writes: false\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LedgerDir != "/data/ledger" {
		t.Errorf("ledger_dir = %q", cfg.LedgerDir)
	}
	if cfg.SyncWrites {
		t.Error("sync_writes override not applied")
	}
	if cfg.PositionsDir != Default().PositionsDir {
		t.Errorf("unset field must keep its default, got %q", cfg.PositionsDir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected an error for a missing file")
	}
}
