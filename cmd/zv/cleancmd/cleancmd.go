// Package cleancmd implements `zv clean|rm [<spec>|all|--except <list>|--outdated]`.
package cleancmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/zv-tools/zv/internal/console"
	"github.com/zv-tools/zv/internal/errs"
	"github.com/zv-tools/zv/internal/runtime"
	"github.com/zv-tools/zv/internal/verspec"
)

// Run returns the "clean" command (aliased "rm").
func Run(rt *runtime.Runtime) *cli.Command {
	return &cli.Command{
		Name:      "clean",
		Aliases:   []string{"rm"},
		Usage:     "Remove installed toolchain versions",
		UsageText: "zv clean [<spec>|all|--except <list>|--outdated]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "except",
				Usage: "Comma-separated list of versions to keep",
			},
			&cli.BoolFlag{
				Name:  "outdated",
				Usage: "Remove every master build except the current index's master",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(rt, cmd)
		},
	}
}

func run(rt *runtime.Runtime, cmd *cli.Command) error {
	fl, err := rt.Store.Lock()
	if err != nil {
		return err
	}
	defer fl.Unlock()

	if cmd.Bool("outdated") {
		return cleanOutdated(rt)
	}

	if except := cmd.String("except"); except != "" {
		return cleanExcept(rt, except)
	}

	args := cmd.Args()
	if args.Len() < 1 {
		return &errs.UsageError{Message: "missing required argument: <spec>, all, --except, or --outdated"}
	}

	if args.Get(0) == "all" {
		return cleanAll(rt)
	}

	return cleanOne(rt, args.Get(0))
}

func cleanOne(rt *runtime.Runtime, raw string) error {
	spec, err := verspec.Parse(raw)
	if err != nil {
		return err
	}
	resolved, err := resolvedFromSpec(spec)
	if err != nil {
		return &errs.UsageError{Message: err.Error()}
	}

	for _, tc := range rt.Store.Scan() {
		if tc.Name == resolved.String() && tc.IsMaster == resolved.IsMaster {
			if err := rt.Store.Remove(tc); err != nil {
				return err
			}
			console.Success(fmt.Sprintf("removed zig %s", tc.Name))
			return nil
		}
	}
	return fmt.Errorf("%s is not installed", raw)
}

func cleanAll(rt *runtime.Runtime) error {
	for _, tc := range rt.Store.Scan() {
		if err := rt.Store.Remove(tc); err != nil {
			return err
		}
		console.Success(fmt.Sprintf("removed zig %s", tc.Name))
	}
	return nil
}

func cleanExcept(rt *runtime.Runtime, except string) error {
	keep := map[string]bool{}
	for _, raw := range strings.Split(except, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		spec, err := verspec.Parse(raw)
		if err != nil {
			return err
		}
		resolved, err := resolvedFromSpec(spec)
		if err != nil {
			return &errs.UsageError{Message: err.Error()}
		}
		keep[resolved.String()] = true
	}
	if err := rt.Store.RemoveExcept(keep); err != nil {
		return err
	}
	console.Success("removed every toolchain not in --except")
	return nil
}

func cleanOutdated(rt *runtime.Runtime) error {
	idx := rt.Index.Load()
	current, ok := idx.Entries["master"]
	if !ok {
		console.Plain("no cached master entry, nothing to compare against")
		return nil
	}
	if err := rt.Store.RemoveMasterOutdated(current.Version); err != nil {
		return err
	}
	console.Success(fmt.Sprintf("removed outdated master builds, kept %s", current.Version))
	return nil
}

// resolvedFromSpec turns a clean/rm argument into the concrete,
// installable version it names. Clean operates only on specs that name
// a single on-disk toolchain, not moving tags.
func resolvedFromSpec(spec verspec.Spec) (verspec.Resolved, error) {
	switch spec.Kind {
	case verspec.KindSemver:
		return spec.Normalize(), nil
	case verspec.KindMasterPinned:
		return verspec.Resolved{IsMaster: true, DevString: spec.DevString}, nil
	default:
		return verspec.Resolved{}, fmt.Errorf("%q does not name a specific installed toolchain; use a semver or master@<dev> spec", spec.Literal)
	}
}
