package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolveZVDirFromEnv(t *testing.T) {
	t.Setenv("ZV_DIR", "/tmp/custom-zv")
	dir, err := ResolveZVDir()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir != "/tmp/custom-zv" {
		t.Errorf("ResolveZVDir() = %q", dir)
	}
}

func TestResolveZVDirRejectsRelative(t *testing.T) {
	t.Setenv("ZV_DIR", "relative/path")
	if _, err := ResolveZVDir(); err == nil {
		t.Error("expected error for relative ZV_DIR")
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ZV_DIR", dir)
	t.Setenv("ZV_LOG", "")
	t.Setenv("ZV_INDEX_TTL_DAYS", "")
	t.Setenv("ZV_MIRRORS_TTL_DAYS", "")
	t.Setenv("ZV_FETCH_TIMEOUT_SECS", "")
	t.Setenv("NO_COLOR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.IndexTTL != 21*24*time.Hour {
		t.Errorf("IndexTTL = %v, want 21 days", cfg.IndexTTL)
	}
	if cfg.FetchTimeout != defaultFetchTimeout {
		t.Errorf("FetchTimeout = %v, want %v", cfg.FetchTimeout, defaultFetchTimeout)
	}
	if cfg.MirrorCandidates != defaultMirrorCount {
		t.Errorf("MirrorCandidates = %d, want %d", cfg.MirrorCandidates, defaultMirrorCount)
	}
}

func TestLoadConfigYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ZV_DIR", dir)
	t.Setenv("ZV_LOG", "")
	t.Setenv("ZV_FETCH_TIMEOUT_SECS", "")

	yamlContents := "log_level: debug\nmirror_candidates: 5\nfetch_timeout_secs: 30\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlContents), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.MirrorCandidates != 5 {
		t.Errorf("MirrorCandidates = %d, want 5", cfg.MirrorCandidates)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Errorf("FetchTimeout = %v, want 30s", cfg.FetchTimeout)
	}
}

func TestEnvOverridesConfigYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ZV_DIR", dir)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log_level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ZV_LOG", "error")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error (env must win over config.yaml)", cfg.LogLevel)
	}
}

func TestZeroTTLForcesRefreshEveryCall(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ZV_DIR", dir)
	t.Setenv("ZV_INDEX_TTL_DAYS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.IndexTTL != 0 {
		t.Errorf("IndexTTL = %v, want 0", cfg.IndexTTL)
	}
}
