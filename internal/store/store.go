// Package store implements spec.md §4.6: the content-addressed
// toolchain directory layout under ZV_DIR, the active-version pointer,
// and the advisory lock that serializes mutating commands.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/zv-tools/zv/internal/errs"
	"github.com/zv-tools/zv/internal/logx"
	"github.com/zv-tools/zv/internal/platform"
	"github.com/zv-tools/zv/internal/verspec"
)

// lockRetryDeadline bounds how long a mutating command waits for
// ZV_DIR/.lock before giving up with LockBusy (spec.md §4.6).
const lockRetryDeadline = 10 * time.Second

const lockRetryInterval = 100 * time.Millisecond

// Toolchain is an installed toolchain directory discovered by Scan.
type Toolchain struct {
	Name     string
	Root     string
	IsMaster bool
}

// activeFile mirrors active.json's on-disk shape (spec.md §6).
type activeFile struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Store manages the toolchain tree under Dir (ZV_DIR).
type Store struct {
	Dir string
}

func New(dir string) *Store { return &Store{Dir: dir} }

func (s *Store) versionsDir() string { return filepath.Join(s.Dir, "versions") }
func (s *Store) masterDir() string   { return filepath.Join(s.Dir, "master") }
func (s *Store) activePath() string  { return filepath.Join(s.Dir, "active.json") }
func (s *Store) lockPath() string    { return filepath.Join(s.Dir, ".lock") }

// Lock acquires the store's advisory lock, retrying with backoff until
// lockRetryDeadline elapses.
func (s *Store) Lock() (*flock.Flock, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, &errs.IoError{Op: "mkdir " + s.Dir, Err: err}
	}
	fl := flock.New(s.lockPath())

	deadline := time.Now().Add(lockRetryDeadline)
	for {
		ok, err := fl.TryLock()
		if err != nil {
			return nil, &errs.IoError{Op: "lock " + s.lockPath(), Err: err}
		}
		if ok {
			return fl, nil
		}
		if time.Now().After(deadline) {
			return nil, &errs.LockBusy{Path: s.lockPath()}
		}
		time.Sleep(lockRetryInterval)
	}
}

// Scan enumerates versions/* and master/*, keeping only entries that
// contain an executable zig binary. Broken entries are logged and excluded.
func (s *Store) Scan() []Toolchain {
	var out []Toolchain
	out = append(out, s.scanDir(s.versionsDir(), false)...)
	out = append(out, s.scanDir(s.masterDir(), true)...)
	return out
}

func (s *Store) scanDir(dir string, isMaster bool) []Toolchain {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var out []Toolchain
	zigBin := platform.Host().BinaryName("zig")
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "current" {
			continue
		}
		root := filepath.Join(dir, e.Name())
		if !hasExecutable(root, zigBin) {
			logx.L().Warn("excluding broken toolchain from scan", zap.String("name", e.Name()), zap.String("root", root))
			continue
		}
		out = append(out, Toolchain{Name: e.Name(), Root: root, IsMaster: isMaster})
	}
	return out
}

func hasExecutable(root, name string) bool {
	info, err := os.Stat(filepath.Join(root, name))
	return err == nil && !info.IsDir()
}

// Active reads active.json. If it names a toolchain absent from Scan,
// it logs a warning and returns (verspec.Resolved{}, false).
func (s *Store) Active() (verspec.Resolved, bool) {
	data, err := os.ReadFile(s.activePath())
	if err != nil {
		return verspec.Resolved{}, false
	}

	var af activeFile
	if err := json.Unmarshal(data, &af); err != nil {
		logx.L().Warn("active.json is corrupt, treating as unset", zap.Error(err))
		return verspec.Resolved{}, false
	}

	resolved := parseActive(af)
	name := resolved.String()

	for _, tc := range s.Scan() {
		if tc.Name == name && tc.IsMaster == resolved.IsMaster {
			return resolved, true
		}
	}

	logx.L().Warn("active.json names a toolchain that is no longer installed", zap.String("version", name))
	return verspec.Resolved{}, false
}

func parseActive(af activeFile) verspec.Resolved {
	if af.Kind == "master" {
		return verspec.Resolved{IsMaster: true, DevString: af.Value}
	}
	spec, err := verspec.Parse(af.Value)
	if err != nil {
		return verspec.Resolved{}
	}
	return spec.Normalize()
}

// SetActive atomically writes active.json and, for a master build,
// refreshes the master/current pointer.
func (s *Store) SetActive(v verspec.Resolved, root string) error {
	af := activeFile{Value: v.String()}
	if v.IsMaster {
		af.Kind = "master"
	} else {
		af.Kind = "semver"
	}

	data, err := json.MarshalIndent(af, "", "  ")
	if err != nil {
		return &errs.IoError{Op: "marshal active.json", Err: err}
	}
	if err := writeAtomic(s.activePath(), data); err != nil {
		return err
	}

	if v.IsMaster {
		return s.refreshCurrentPointer(root)
	}
	return nil
}

// refreshCurrentPointer recreates master/current as a symlink (or, on
// platforms without symlink support, a plain file naming the target)
// pointing at the active nightly's directory.
func (s *Store) refreshCurrentPointer(root string) error {
	current := filepath.Join(s.masterDir(), "current")
	_ = os.Remove(current)
	if err := os.Symlink(root, current); err != nil {
		// Fall back to a marker file when symlinks are unavailable
		// (e.g. unprivileged Windows accounts).
		if werr := os.WriteFile(current, []byte(root), 0o644); werr != nil {
			return &errs.IoError{Op: "write master/current", Err: werr}
		}
	}
	return nil
}

// Remove deletes a toolchain directory. If it was active, active.json
// is cleared but nothing else is auto-selected (spec.md §4.6).
func (s *Store) Remove(tc Toolchain) error {
	if active, ok := s.Active(); ok && active.String() == tc.Name && active.IsMaster == tc.IsMaster {
		_ = os.Remove(s.activePath())
	}
	if err := os.RemoveAll(tc.Root); err != nil {
		return &errs.IoError{Op: "remove " + tc.Root, Err: err}
	}
	return nil
}

// RemoveMasterOutdated deletes every master/<dev> directory except the
// one matching currentDev.
func (s *Store) RemoveMasterOutdated(currentDev string) error {
	for _, tc := range s.scanDir(s.masterDir(), true) {
		if tc.Name == currentDev {
			continue
		}
		if err := s.Remove(tc); err != nil {
			return err
		}
	}
	return nil
}

// RemoveExcept deletes every installed toolchain whose name is not in keep.
func (s *Store) RemoveExcept(keep map[string]bool) error {
	for _, tc := range s.Scan() {
		if keep[tc.Name] {
			continue
		}
		if err := s.Remove(tc); err != nil {
			return err
		}
	}
	return nil
}

// SweepOrphans removes leftover temp state from an interrupted install:
// scratch files under downloads/ and partially extracted directories
// under versions/ and master/ (spec.md §5, "Cancellation").
func (s *Store) SweepOrphans() {
	downloads := filepath.Join(s.Dir, "downloads")
	sweepPattern(downloads, "archive-*")
	sweepPattern(downloads, "sig-*")
	sweepPattern(s.versionsDir(), "install-*")
	sweepPattern(s.masterDir(), "install-*")
}

func sweepPattern(dir, pattern string) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.RemoveAll(m); err != nil {
			logx.L().Warn("failed to sweep orphaned path", zap.String("path", m), zap.Error(err))
		}
	}
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &errs.IoError{Op: "mkdir " + dir, Err: err}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return &errs.IoError{Op: "create temp file for " + path, Err: err}
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &errs.IoError{Op: "write " + tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &errs.IoError{Op: "close " + tmpPath, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &errs.IoError{Op: "rename " + tmpPath, Err: err}
	}
	return nil
}
