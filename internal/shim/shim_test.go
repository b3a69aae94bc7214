package shim

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zv-tools/zv/internal/errs"
	"github.com/zv-tools/zv/internal/verspec"
)

func TestResolveInlineOverrideTakesPriority(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".zigversion"), "0.12.0\n")

	res, err := Resolve([]string{"zig", "+0.13.0", "build", "-Doptimize=ReleaseFast"}, dir, "0.11.0", true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Spec.Kind != verspec.KindSemver || res.Spec.Major != 0 || res.Spec.Minor != 13 {
		t.Errorf("Spec = %+v, want 0.13.0", res.Spec)
	}
	want := []string{"zig", "build", "-Doptimize=ReleaseFast"}
	if !equalArgv(res.Argv, want) {
		t.Errorf("Argv = %v, want %v", res.Argv, want)
	}
}

func TestResolveInlineOverrideRejectsBadSpec(t *testing.T) {
	_, err := Resolve([]string{"zig", "+not-a-version!!"}, t.TempDir(), "", false)
	var badSpec *errs.BadVersionSpec
	if !errors.As(err, &badSpec) {
		t.Fatalf("expected *errs.BadVersionSpec, got %v", err)
	}
}

func TestResolveFindsZigversionInCwd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".zigversion"), "0.13.0\n")

	res, err := Resolve([]string{"zig", "build"}, dir, "", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Spec.Literal != "0.13.0" {
		t.Errorf("Spec.Literal = %q, want 0.13.0", res.Spec.Literal)
	}
	if !equalArgv(res.Argv, []string{"zig", "build"}) {
		t.Errorf("Argv = %v, want unchanged", res.Argv)
	}
}

func TestResolveAscendsThroughProjectSubdirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "build.zig"), "// root project\n")
	writeFile(t, filepath.Join(root, ".zigversion"), "0.13.0\n")

	sub := filepath.Join(root, "src", "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Resolve([]string{"zig", "build"}, sub, "", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Spec.Literal != "0.13.0" {
		t.Errorf("Spec.Literal = %q, want 0.13.0 (ascended to project root)", res.Spec.Literal)
	}
}

func TestResolveDoesNotEscapeProjectRoot(t *testing.T) {
	outer := t.TempDir()
	writeFile(t, filepath.Join(outer, ".zigversion"), "0.11.0\n")

	project := filepath.Join(outer, "project")
	if err := os.MkdirAll(project, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(project, "build.zig"), "// project root\n")

	res, err := Resolve([]string{"zig", "build"}, project, "0.14.0", true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Spec.Literal != "0.14.0" {
		t.Errorf("Spec.Literal = %q, want the active version (must not ascend past build.zig into outer dir)", res.Spec.Literal)
	}
}

func TestResolveFallsBackToActiveVersion(t *testing.T) {
	dir := t.TempDir()
	res, err := Resolve([]string{"zig", "version"}, dir, "0.13.0", true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Spec.Literal != "0.13.0" {
		t.Errorf("Spec.Literal = %q, want 0.13.0", res.Spec.Literal)
	}
}

func TestResolveReturnsNoVersionWhenNothingMatches(t *testing.T) {
	dir := t.TempDir()
	_, err := Resolve([]string{"zig", "version"}, dir, "", false)
	var noVersion *errs.NoVersion
	if !errors.As(err, &noVersion) {
		t.Fatalf("expected *errs.NoVersion, got %v", err)
	}
}

func TestResolveSkipsZigversionWithOnlyCommentsAndBlankLines(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".zigversion"), "# pinned below\n\n")

	sub := filepath.Join(root, "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Resolve([]string{"zig", "build"}, sub, "0.12.0", true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Spec.Literal != "0.12.0" {
		t.Errorf("Spec.Literal = %q, want fallback to active version since .zigversion had no pin", res.Spec.Literal)
	}
}

func TestResolveMasterTagFromZigversion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".zigversion"), "master\n")

	res, err := Resolve([]string{"zig", "build"}, dir, "", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Spec.Kind != verspec.KindMaster {
		t.Errorf("Spec.Kind = %v, want KindMaster", res.Spec.Kind)
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func equalArgv(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
