// Package config resolves zv's runtime settings, layering defaults,
// an optional config.yaml under ZV_DIR, and environment variables
// (which always win), following the teacher's internal/config package:
// a Config struct with yaml tags, a package-level LoadConfigFn seam for
// tests, and "missing file is not an error."
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// FileConfig is the optional config.yaml schema (supplemental to
// spec.md, see SPEC_FULL.md's Ambient Stack section).
type FileConfig struct {
	LogLevel         string `yaml:"log_level,omitempty"`
	Color            string `yaml:"color,omitempty"` // "auto", "always", "never"
	MirrorCandidates int    `yaml:"mirror_candidates,omitempty"`
	FetchTimeoutSecs int    `yaml:"fetch_timeout_secs,omitempty"`
}

// Config is the fully-resolved runtime configuration zv uses, after
// layering defaults < config.yaml < environment variables.
type Config struct {
	ZVDir            string
	LogLevel         string
	Color            string
	IndexTTL         time.Duration
	MirrorsTTL       time.Duration
	FetchTimeout     time.Duration
	MirrorCandidates int
}

const (
	defaultIndexTTLDays   = 21
	defaultMirrorsTTLDays = 21
	defaultFetchTimeout   = 15 * time.Second
	defaultMirrorCount    = 3

	// ReducedMasterTTL is the effective TTL used when the shim
	// resolves "+master"/"+latest" inline (spec.md §4.2): "shim
	// invocations ... use a reduced effective TTL of 1 day."
	ReducedMasterTTL = 24 * time.Hour
)

// LoadConfigFn loads the runtime configuration; overridden in tests.
var LoadConfigFn = Load

// Load resolves Config from defaults, an optional config.yaml under
// ZV_DIR, and environment variables.
func Load() (*Config, error) {
	zvDir, err := ResolveZVDir()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ZVDir:            zvDir,
		LogLevel:         "info",
		Color:            "auto",
		IndexTTL:         time.Duration(defaultIndexTTLDays) * 24 * time.Hour,
		MirrorsTTL:       time.Duration(defaultMirrorsTTLDays) * 24 * time.Hour,
		FetchTimeout:     defaultFetchTimeout,
		MirrorCandidates: defaultMirrorCount,
	}

	fc, err := loadFileConfig(filepath.Join(zvDir, "config.yaml"))
	if err != nil {
		return nil, err
	}
	if fc != nil {
		if fc.LogLevel != "" {
			cfg.LogLevel = fc.LogLevel
		}
		if fc.Color != "" {
			cfg.Color = fc.Color
		}
		if fc.MirrorCandidates > 0 {
			cfg.MirrorCandidates = fc.MirrorCandidates
		}
		if fc.FetchTimeoutSecs > 0 {
			cfg.FetchTimeout = time.Duration(fc.FetchTimeoutSecs) * time.Second
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func loadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var fc FileConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data), yaml.Strict())
	if err := decoder.Decode(&fc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &fc, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ZV_LOG"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("NO_COLOR"); v != "" {
		cfg.Color = "never"
	}
	if v := os.Getenv("ZV_INDEX_TTL_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days >= 0 {
			cfg.IndexTTL = time.Duration(days) * 24 * time.Hour
		}
	}
	if v := os.Getenv("ZV_MIRRORS_TTL_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days >= 0 {
			cfg.MirrorsTTL = time.Duration(days) * 24 * time.Hour
		}
	}
	if v := os.Getenv("ZV_FETCH_TIMEOUT_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 1 {
			cfg.FetchTimeout = time.Duration(secs) * time.Second
		}
	}
}

// ResolveZVDir computes ZV_DIR: the environment variable if set,
// otherwise $HOME/.zv on Unix or %USERPROFILE%\.zv on Windows. WSL is
// detected via /proc/version to prefer the Linux-side home directory
// over a Windows one surfaced through interop.
func ResolveZVDir() (string, error) {
	if v := os.Getenv("ZV_DIR"); v != "" {
		if !filepath.IsAbs(v) {
			return "", fmt.Errorf("ZV_DIR must be an absolute path, got %q", v)
		}
		return v, nil
	}

	if runtime.GOOS == "windows" {
		if up := os.Getenv("USERPROFILE"); up != "" {
			return filepath.Join(up, ".zv"), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".zv"), nil
}

// IsWSL reports whether zv appears to be running under Windows
// Subsystem for Linux, by sniffing /proc/version the way distribution
// detection does elsewhere in the ecosystem.
func IsWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	s := strings.ToLower(string(data))
	return strings.Contains(s, "microsoft") || strings.Contains(s, "wsl")
}
