// Package synccmd implements `zv sync`.
package synccmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/zv-tools/zv/internal/console"
	"github.com/zv-tools/zv/internal/runtime"
)

// Run returns the "sync" command.
func Run(rt *runtime.Runtime) *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Force-refresh the download index and resync the mirror list",
		UsageText: "zv sync",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(rt)
		},
	}
}

func run(rt *runtime.Runtime) error {
	fl, err := rt.Store.Lock()
	if err != nil {
		return err
	}
	defer fl.Unlock()

	idx, err := rt.Index.Refresh(true)
	if err != nil {
		return err
	}
	console.Success(fmt.Sprintf("refreshed index (%d versions)", len(idx.Entries)))

	merged, err := rt.Mirrors.Resync()
	if err != nil {
		return err
	}
	if err := rt.Mirrors.SaveAtomic(); err != nil {
		return err
	}

	var dropped int
	for _, m := range merged {
		if m.Retained() {
			dropped++
		}
	}
	console.Success(fmt.Sprintf("resynced mirror list (%d mirrors)", len(merged)))
	if dropped > 0 {
		console.Warn(fmt.Sprintf("%d mirror(s) absent from the upstream list were kept (rank edits preserved)", dropped))
	}
	return nil
}
