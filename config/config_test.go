package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadAppliesOnTopOfDefault covers the core contract: a config file
// that only sets one nested key must leave every other field, nested or
// not, at its Default value.
func TestLoadAppliesOnTopOfDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.toml")
	const contents = `
[API]
ListenAddr = "0.0.0.0:9090"
`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.API.ListenAddr != "0.0.0.0:9090" {
		t.Fatalf("API.ListenAddr = %q, want overridden value", cfg.API.ListenAddr)
	}
	if cfg.API.HistoryPath != Default.API.HistoryPath {
		t.Fatalf("API.HistoryPath = %q, want default %q", cfg.API.HistoryPath, Default.API.HistoryPath)
	}
	if cfg.ChainDataPath != Default.ChainDataPath {
		t.Fatalf("ChainDataPath = %q, want default %q", cfg.ChainDataPath, Default.ChainDataPath)
	}
	if cfg.Executor != Default.Executor {
		t.Fatalf("Executor = %+v, want untouched default %+v", cfg.Executor, Default.Executor)
	}
}

// TestLoadMissingFile covers the error path for a nonexistent path.
func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err == nil {
		t.Fatalf("Load of missing file: want error, got nil")
	}
}
