// Package listcmd implements `zv list|ls`.
package listcmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/zv-tools/zv/internal/console"
	"github.com/zv-tools/zv/internal/runtime"
)

// Run returns the "list" command (aliased "ls").
func Run(rt *runtime.Runtime) *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "List installed toolchain versions",
		UsageText: "zv list",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(rt)
		},
	}
}

func run(rt *runtime.Runtime) error {
	toolchains := rt.Store.Scan()
	active, hasActive := rt.Store.Active()

	sort.Slice(toolchains, func(i, j int) bool {
		if toolchains[i].IsMaster != toolchains[j].IsMaster {
			return !toolchains[i].IsMaster
		}
		return toolchains[i].Name < toolchains[j].Name
	})

	if len(toolchains) == 0 {
		console.Plain("no toolchains installed")
		return nil
	}

	for _, tc := range toolchains {
		marker := "  "
		if hasActive && active.String() == tc.Name {
			marker = "* "
		}
		label := tc.Name
		if tc.IsMaster {
			label = fmt.Sprintf("master@%s", tc.Name)
		}
		console.Plain(marker + label)
	}
	return nil
}
