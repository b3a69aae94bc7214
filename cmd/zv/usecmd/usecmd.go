// Package usecmd implements `zv use <spec> [-f]`.
package usecmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/zv-tools/zv/internal/console"
	"github.com/zv-tools/zv/internal/errs"
	"github.com/zv-tools/zv/internal/resolver"
	"github.com/zv-tools/zv/internal/runtime"
	"github.com/zv-tools/zv/internal/verspec"
)

// Run returns the "use" command.
func Run(rt *runtime.Runtime) *cli.Command {
	return &cli.Command{
		Name:      "use",
		Usage:     "Install (if needed) and activate a toolchain version",
		UsageText: "zv use <spec> [-f]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force-ziglang",
				Aliases: []string{"f"},
				Usage:   "Bypass mirrors and fetch directly from ziglang.org",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(rt, cmd)
		},
	}
}

func run(rt *runtime.Runtime, cmd *cli.Command) error {
	args := cmd.Args()
	if args.Len() < 1 {
		return &errs.UsageError{Message: "missing required version argument"}
	}

	spec, err := verspec.Parse(args.Get(0))
	if err != nil {
		return err
	}

	fl, err := rt.Store.Lock()
	if err != nil {
		return err
	}
	defer fl.Unlock()

	// spec.md §4.2: explicit "zv use master"/"zv use latest" always
	// refreshes, unlike the shim's TTL-governed lookups.
	if spec.Kind == verspec.KindMaster || spec.Kind == verspec.KindLatest {
		if _, err := rt.Index.Refresh(true); err != nil {
			console.Warn(fmt.Sprintf("index refresh failed, using cached data: %v", err))
		}
	}

	rt.Resolver.Installer.ForceOrigin = cmd.Bool("force-ziglang")

	result, err := rt.Resolver.Resolve(spec, resolver.InstallIfMissing)
	if err != nil {
		return err
	}

	if err := rt.Store.SetActive(result.Resolved, result.Toolchain.Root); err != nil {
		return err
	}

	console.Success(fmt.Sprintf("now using zig %s", result.Resolved.String()))
	return nil
}
