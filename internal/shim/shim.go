// Package shim implements spec.md §4.8: the argv inspection and
// version-spec resolution logic shared by the "zig" and "zls"
// launcher executables.
package shim

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/zv-tools/zv/internal/errs"
	"github.com/zv-tools/zv/internal/verspec"
)

// Resolution is the outcome of inspecting argv and the filesystem for
// a version spec to run.
type Resolution struct {
	Spec verspec.Spec
	// Argv is the argument vector to pass to the real compiler: the
	// original argv with a leading "+version" token stripped, if present.
	Argv []string
}

// Resolve implements spec.md §4.8 steps 1-4: inline override, then
// .zigversion ascent, then the store's active version.
func Resolve(argv []string, cwd string, activeSpec string, hasActive bool) (Resolution, error) {
	if len(argv) > 1 && strings.HasPrefix(argv[1], "+") {
		raw := strings.TrimPrefix(argv[1], "+")
		spec, err := verspec.Parse(raw)
		if err != nil {
			return Resolution{}, err
		}
		rest := make([]string, 0, len(argv)-1)
		rest = append(rest, argv[0])
		rest = append(rest, argv[2:]...)
		return Resolution{Spec: spec, Argv: rest}, nil
	}

	if raw, ok := findZigversion(cwd); ok {
		spec, err := verspec.Parse(raw)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Spec: spec, Argv: argv}, nil
	}

	if hasActive {
		spec, err := verspec.Parse(activeSpec)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Spec: spec, Argv: argv}, nil
	}

	return Resolution{}, &errs.NoVersion{}
}

// findZigversion ascends from dir looking for .zigversion, stopping at
// the filesystem root or just past a build.zig-containing directory
// (spec.md §4.8 step 2: "the walk does not escape a project").
func findZigversion(dir string) (string, bool) {
	dir = filepath.Clean(dir)
	for {
		path := filepath.Join(dir, ".zigversion")
		if data, err := os.ReadFile(path); err == nil {
			if spec, ok := verspec.ParseZigversion(string(data)); ok {
				return spec, true
			}
		}

		hasBuildZig := fileExists(filepath.Join(dir, "build.zig"))

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false // filesystem root
		}
		if hasBuildZig && !fileExists(filepath.Join(parent, "build.zig")) {
			return "", false // leaving the project root
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
