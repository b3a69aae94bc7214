package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/zv-tools/zv/cmd/zv/cleancmd"
	"github.com/zv-tools/zv/cmd/zv/installcmd"
	"github.com/zv-tools/zv/cmd/zv/listcmd"
	"github.com/zv-tools/zv/cmd/zv/synccmd"
	"github.com/zv-tools/zv/cmd/zv/usecmd"
	"github.com/zv-tools/zv/internal/console"
	"github.com/zv-tools/zv/internal/runtime"
)

var noColorFlag bool

// newCLI builds the root "zv" command, wiring every subcommand against
// the shared Runtime the way the teacher's newCLI wires subcommands
// against a shared *config.Config.
func newCLI(rt *runtime.Runtime) *cli.Command {
	return &cli.Command{
		Name:  "zv",
		Usage: "Install and switch between Zig toolchain versions",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "no-color",
				Usage:       "Disable colored output",
				Destination: &noColorFlag,
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			console.SetNoColor(noColorFlag)
			return ctx, nil
		},
		Commands: []*cli.Command{
			usecmd.Run(rt),
			installcmd.Run(rt),
			listcmd.Run(rt),
			cleancmd.Run(rt),
			synccmd.Run(rt),
		},
	}
}
