//go:build !windows

package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/zv-tools/zv/internal/errs"
)

// execCompiler replaces the current process image with the resolved
// compiler, per spec.md §4.8 step 6 ("On Unix, use process replacement").
func execCompiler(binPath string, argv []string) int {
	env := os.Environ()
	argv[0] = binPath
	if err := syscall.Exec(binPath, argv, env); err != nil {
		fmt.Fprintln(os.Stderr, &errs.IoError{Op: "exec " + binPath, Err: err})
		return errs.ExitRecoverable
	}
	return errs.ExitOK // unreachable on success: Exec never returns
}
