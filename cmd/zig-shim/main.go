// Command zig-shim is installed into ZV_DIR/bin as "zig" and "zls"
// (spec.md §4.8): it resolves a version spec from argv, .zigversion,
// or the active toolchain, installs it if missing, and execs the real
// compiler with the caller's argv otherwise untouched.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zv-tools/zv/internal/config"
	"github.com/zv-tools/zv/internal/errs"
	"github.com/zv-tools/zv/internal/logx"
	"github.com/zv-tools/zv/internal/platform"
	"github.com/zv-tools/zv/internal/resolver"
	"github.com/zv-tools/zv/internal/runtime"
	"github.com/zv-tools/zv/internal/shim"
	"github.com/zv-tools/zv/internal/verspec"
)

func main() {
	os.Exit(run())
}

func run() int {
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

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return errs.ExitRecoverable
	}

	activeResolved, hasActive := rt.Store.Active()
	activeSpec := ""
	if hasActive {
		activeSpec = activeResolved.String()
		if activeResolved.IsMaster {
			activeSpec = "master@" + activeResolved.DevString
		}
	}

	res, err := shim.Resolve(os.Args, cwd, activeSpec, hasActive)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return errs.ExitUsage
	}

	// spec.md §4.2: "shim invocations of zig +master / zig +latest use a
	// reduced effective TTL of 1 day," so an inline override of a moving
	// tag stays fresh without the user touching ZV_INDEX_TTL_DAYS.
	isInlineOverride := len(os.Args) > 1 && strings.HasPrefix(os.Args[1], "+")
	if isInlineOverride && (res.Spec.Kind == verspec.KindMaster || res.Spec.Kind == verspec.KindLatest) {
		rt.Index.TTL = rt.ReducedIndexTTL()
	}

	result, err := rt.Resolver.Resolve(res.Spec, resolver.InstallIfMissing)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return errs.ExitRecoverable
	}

	base := binaryBase(res.Argv[0])
	binPath := filepath.Join(result.Toolchain.Root, platform.Host().BinaryName(base))

	return execCompiler(binPath, res.Argv)
}

// binaryBase derives which compiler binary to run ("zig" or "zls")
// from argv[0], the way the shim determines its own identity.
func binaryBase(argv0 string) string {
	name := filepath.Base(argv0)
	ext := filepath.Ext(name)
	name = name[:len(name)-len(ext)]
	if name == "zls" {
		return "zls"
	}
	return "zig"
}
