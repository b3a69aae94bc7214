// Package installcmd implements `zv install|i <spec>[,<spec>...] [-f]`.
package installcmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/zv-tools/zv/internal/console"
	"github.com/zv-tools/zv/internal/errs"
	"github.com/zv-tools/zv/internal/resolver"
	"github.com/zv-tools/zv/internal/runtime"
	"github.com/zv-tools/zv/internal/verspec"
)

// Run returns the "install" command (aliased "i").
func Run(rt *runtime.Runtime) *cli.Command {
	return &cli.Command{
		Name:      "install",
		Aliases:   []string{"i"},
		Usage:     "Install one or more toolchain versions without activating them",
		UsageText: "zv install <spec>[,<spec>...] [-f]",
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

	fl, err := rt.Store.Lock()
	if err != nil {
		return err
	}
	defer fl.Unlock()

	rt.Resolver.Installer.ForceOrigin = cmd.Bool("force-ziglang")

	specs := strings.Split(args.Get(0), ",")
	var failed []string

	for _, raw := range specs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		spec, err := verspec.Parse(raw)
		if err != nil {
			console.Fail(fmt.Sprintf("%s: %v", raw, err))
			failed = append(failed, raw)
			continue
		}

		result, err := rt.Resolver.Resolve(spec, resolver.InstallIfMissing)
		if err != nil {
			console.Fail(fmt.Sprintf("%s: %v", raw, err))
			failed = append(failed, raw)
			continue
		}
		console.Success(fmt.Sprintf("installed zig %s", result.Resolved.String()))
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d installs failed: %s", len(failed), len(specs), strings.Join(failed, ", "))
	}
	return nil
}
