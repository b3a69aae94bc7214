// Package resolver implements spec.md §4.7: the central resolve(spec,
// mode) entry point that the shim and the CLI commands both call to
// turn a VersionSpec into an installed, on-disk Toolchain.
package resolver

import (
	"go.uber.org/zap"

	"github.com/zv-tools/zv/internal/download"
	"github.com/zv-tools/zv/internal/errs"
	"github.com/zv-tools/zv/internal/index"
	"github.com/zv-tools/zv/internal/logx"
	"github.com/zv-tools/zv/internal/store"
	"github.com/zv-tools/zv/internal/verspec"
)

// Mode controls how aggressively Resolve installs a toolchain.
type Mode int

const (
	// MustExistLocally never installs; it fails if the resolved
	// version is not already on disk.
	MustExistLocally Mode = iota
	// InstallIfMissing installs only when the resolved version is absent.
	InstallIfMissing
	// InstallAlways always (re)installs, even if a local copy exists.
	InstallAlways
)

// Result is the outcome of a resolve call.
type Result struct {
	Toolchain store.Toolchain
	Resolved  verspec.Resolved

	// OutOfDate is set when MustExistLocally returned a locally
	// installed master/latest build while a newer one is known to
	// exist upstream (spec.md §4.7 step 2).
	OutOfDate bool
}

// Resolver wires the index cache, store, and downloader together.
type Resolver struct {
	Store     *store.Store
	Index     *index.Cache
	Installer *download.Installer
}

// Resolve implements spec.md §4.7's algorithm.
func (r *Resolver) Resolve(spec verspec.Spec, mode Mode) (Result, error) {
	installed := r.Store.Scan()

	if spec.Kind == verspec.KindSemver {
		resolved := spec.Normalize()
		if mode != InstallAlways {
			if tc, ok := findInstalled(installed, resolved); ok {
				return Result{Toolchain: tc, Resolved: resolved}, nil
			}
			if mode == MustExistLocally {
				return Result{}, &errs.UnknownVersion{Spec: spec.Literal}
			}
		}
		return r.lookupAndInstall(spec, resolved, mode)
	}

	// Moving tags (master/stable/latest) and pinned nightlies never
	// name a fixed on-disk directory up front; resolve them against
	// the index/store before deciding whether an install is needed.
	return r.resolveMoving(spec, installed, mode)
}

func (r *Resolver) resolveMoving(spec verspec.Spec, installed []store.Toolchain, mode Mode) (Result, error) {
	switch spec.Kind {
	case verspec.KindMasterPinned:
		resolved := verspec.Resolved{IsMaster: true, DevString: spec.DevString}
		tc, ok := findInstalled(installed, resolved)
		if !ok {
			return Result{}, &errs.UnknownVersion{Spec: spec.Literal}
		}
		return Result{Toolchain: tc, Resolved: resolved}, nil

	case verspec.KindMaster, verspec.KindLatest, verspec.KindStable:
		return r.resolveTag(spec, installed, mode)

	default:
		return Result{}, &errs.BadVersionSpec{Input: spec.Literal}
	}
}

func (r *Resolver) resolveTag(spec verspec.Spec, installed []store.Toolchain, mode Mode) (Result, error) {
	if mode == MustExistLocally {
		cur := r.Index.Load()
		if !cur.Stale {
			entry, err := r.Index.Lookup(spec)
			if err != nil {
				return Result{}, err
			}
			resolved := entryToResolved(entry, spec.Kind == verspec.KindMaster)
			if tc, ok := findInstalled(installed, resolved); ok {
				return Result{Toolchain: tc, Resolved: resolved}, nil
			}
			return Result{}, &errs.UnknownVersion{Spec: spec.Literal}
		}

		// Cache is stale: do a cheap check, but still return the
		// locally installed build with an OutOfDate annotation rather
		// than install (spec.md §4.7 step 2).
		entry, err := r.Index.Lookup(spec)
		if err != nil {
			return Result{}, err
		}
		resolved := entryToResolved(entry, spec.Kind == verspec.KindMaster)
		if tc, ok := findInstalled(installed, resolved); ok {
			return Result{Toolchain: tc, Resolved: resolved}, nil
		}

		if newestInstalled, ok := newestOfKind(installed, spec.Kind == verspec.KindMaster); ok {
			logx.L().Warn("installed build may be out of date", zap.String("spec", spec.Literal))
			return Result{Toolchain: newestInstalled, Resolved: resolved, OutOfDate: true}, nil
		}
		return Result{}, &errs.UnknownVersion{Spec: spec.Literal}
	}

	entry, err := r.Index.Lookup(spec)
	if err != nil {
		return Result{}, err
	}
	resolved := entryToResolved(entry, spec.Kind == verspec.KindMaster)

	if mode == InstallIfMissing {
		if tc, ok := findInstalled(installed, resolved); ok {
			return Result{Toolchain: tc, Resolved: resolved}, nil
		}
	}

	return r.install(entry, resolved)
}

func (r *Resolver) lookupAndInstall(spec verspec.Spec, resolved verspec.Resolved, mode Mode) (Result, error) {
	entry, err := r.Index.Lookup(spec)
	if err != nil {
		if _, ok := err.(*errs.UnknownVersion); ok {
			idx := r.Index.Load()
			if idx.Stale {
				if _, rerr := r.Index.Refresh(true); rerr == nil {
					entry, err = r.Index.Lookup(spec)
				}
			}
		}
		if err != nil {
			return Result{}, err
		}
	}
	return r.install(entry, resolved)
}

func (r *Resolver) install(entry index.Entry, resolved verspec.Resolved) (Result, error) {
	tc, err := r.Installer.FetchAndInstall(entry, resolved.IsMaster)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Toolchain: store.Toolchain{Name: tc.Name, Root: tc.Root, IsMaster: resolved.IsMaster},
		Resolved:  resolved,
	}, nil
}

func entryToResolved(entry index.Entry, isMaster bool) verspec.Resolved {
	if isMaster {
		return verspec.Resolved{IsMaster: true, DevString: entry.Version}
	}
	spec, err := verspec.Parse(entry.Version)
	if err != nil {
		return verspec.Resolved{}
	}
	return spec.Normalize()
}

func findInstalled(installed []store.Toolchain, resolved verspec.Resolved) (store.Toolchain, bool) {
	name := resolved.String()
	for _, tc := range installed {
		if tc.Name == name && tc.IsMaster == resolved.IsMaster {
			return tc, true
		}
	}
	return store.Toolchain{}, false
}

func newestOfKind(installed []store.Toolchain, isMaster bool) (store.Toolchain, bool) {
	var best store.Toolchain
	found := false
	for _, tc := range installed {
		if tc.IsMaster != isMaster {
			continue
		}
		if !found || tc.Name > best.Name {
			best = tc
			found = true
		}
	}
	return best, found
}
