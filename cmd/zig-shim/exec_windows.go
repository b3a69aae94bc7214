//go:build windows

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/zv-tools/zv/internal/errs"
)

// execCompiler spawns the resolved compiler and waits for it, since
// Windows has no true process-replacement primitive; the child's exact
// exit code is propagated (spec.md §4.8 step 6).
func execCompiler(binPath string, argv []string) int {
	cmd := exec.Command(binPath, argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode()
		}
		fmt.Fprintln(os.Stderr, &errs.IoError{Op: "exec " + binPath, Err: err})
		return errs.ExitRecoverable
	}
	return errs.ExitOK
}
