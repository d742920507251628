package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("NOLEMMA_MODE", "node")
	t.Setenv("NOLEMMA_NODE_WITHDRAWAL_DEPTH", "16")
	t.Setenv("NOLEMMA_SERVER_PORT", "9090")
	t.Setenv("NOLEMMA_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("NOLEMMA_DRIVER_TARGET_URL", "http://remote:8585")
	t.Setenv("NOLEMMA_ARCHIVE_ENABLED", "true")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if cfg.Mode != "node" {
		t.Errorf("Mode = %q, want node", cfg.Mode)
	}
	if cfg.Node.WithdrawalDepth != 16 {
		t.Errorf("WithdrawalDepth = %d, want 16", cfg.Node.WithdrawalDepth)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != "https://a.example" {
		t.Errorf("CORSOrigins = %v, want two trimmed entries", cfg.Server.CORSOrigins)
	}
	if cfg.Driver.TargetURL != "http://remote:8585" {
		t.Errorf("Driver.TargetURL = %q, want http://remote:8585", cfg.Driver.TargetURL)
	}
	if !cfg.Archive.Enabled {
		t.Error("Archive.Enabled should be true after NOLEMMA_ARCHIVE_ENABLED=true")
	}
}

func TestApplyEnvOverridesLeavesUnsetFieldsAlone(t *testing.T) {
	cfg := Defaults()
	before := cfg.Driver.TargetURL
	applyEnvOverrides(&cfg)
	if cfg.Driver.TargetURL != before {
		t.Errorf("TargetURL changed with no env var set: got %q, want %q", cfg.Driver.TargetURL, before)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
mode = "node"

[node]
withdrawal_depth = 8
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "node" {
		t.Errorf("Mode = %q, want node", cfg.Mode)
	}
	if cfg.Node.WithdrawalDepth != 8 {
		t.Errorf("WithdrawalDepth = %d, want 8", cfg.Node.WithdrawalDepth)
	}
	// Fields not present in the file should retain their defaults.
	if cfg.Server.Port != Defaults().Server.Port {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, Defaults().Server.Port)
	}
}

func TestLoadReturnsErrorForMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml")); err == nil {
		t.Error("Load should return an error for a missing file")
	}
}
