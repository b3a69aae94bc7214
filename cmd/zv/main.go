package main

import (
	"context"
	"fmt"
	"os"

	"github.com/zv-tools/zv/internal/config"
	"github.com/zv-tools/zv/internal/errs"
	"github.com/zv-tools/zv/internal/logx"
	"github.com/zv-tools/zv/internal/runtime"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	cfg, err := config.LoadConfigFn()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return errs.ExitRecoverable
	}

	logx.Init(cfg.LogLevel)
	defer logx.Sync()

	rt, err := runtime.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return errs.ExitRecoverable
	}
	rt.Store.SweepOrphans()

	app := newCLI(rt)
	if err := app.Run(context.Background(), args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return errs.ExitCode(err)
	}
	return errs.ExitOK
}
