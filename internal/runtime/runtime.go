// Package runtime wires config, the index cache, the mirror registry,
// the store, and the downloader into a single Resolver, the way the
// teacher's main.go wires config into its plugin/hook registries
// before building the CLI.
package runtime

import (
	"path/filepath"
	"time"

	"github.com/zv-tools/zv/internal/config"
	"github.com/zv-tools/zv/internal/download"
	"github.com/zv-tools/zv/internal/httpclient"
	"github.com/zv-tools/zv/internal/index"
	"github.com/zv-tools/zv/internal/mirror"
	"github.com/zv-tools/zv/internal/resolver"
	"github.com/zv-tools/zv/internal/store"
)

// Runtime bundles every collaborator a CLI command or the shim needs.
type Runtime struct {
	Config   *config.Config
	Store    *store.Store
	Index    *index.Cache
	Mirrors  *mirror.Registry
	Resolver *resolver.Resolver
}

// New loads the mirror registry from disk and wires every collaborator
// against cfg. Per spec.md §9 ("no global state"), every collaborator
// is parameterized on ZV_DIR so tests can build isolated Runtimes.
func New(cfg *config.Config) (*Runtime, error) {
	st := store.New(cfg.ZVDir)

	idx := index.New(cfg.ZVDir, cfg.IndexTTL, cfg.FetchTimeout)

	mirrors, err := mirror.Load(cfg.ZVDir)
	if err != nil {
		return nil, err
	}
	mirrors.Client = httpclient.New(cfg.FetchTimeout)

	installer := &download.Installer{
		VersionsDir:      versionsDir(cfg.ZVDir),
		MasterDir:        masterDir(cfg.ZVDir),
		DownloadDir:      downloadsDir(cfg.ZVDir),
		Client:           httpclient.New(cfg.FetchTimeout),
		Mirrors:          mirrors,
		MirrorCandidates: cfg.MirrorCandidates,
	}

	res := &resolver.Resolver{Store: st, Index: idx, Installer: installer}

	return &Runtime{Config: cfg, Store: st, Index: idx, Mirrors: mirrors, Resolver: res}, nil
}

// ReducedIndexTTL returns the shim's inline-resolution TTL for moving
// tags, per spec.md §4.2.
func (r *Runtime) ReducedIndexTTL() time.Duration {
	return config.ReducedMasterTTL
}

func versionsDir(zvDir string) string  { return filepath.Join(zvDir, "versions") }
func masterDir(zvDir string) string    { return filepath.Join(zvDir, "master") }
func downloadsDir(zvDir string) string { return filepath.Join(zvDir, "downloads") }
