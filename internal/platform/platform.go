// Package platform detects the host operating system and CPU architecture
// and derives the values the rest of zv needs to pick an index asset: the
// archive extension Zig ships for that platform, and the target triple
// used as a key into the download index.
package platform

import (
	"fmt"
	"runtime"
)

// Descriptor identifies a concrete OS/arch pair.
type Descriptor struct {
	OS   string // "linux", "macos", "windows"
	Arch string // "x86_64", "aarch64", etc.
}

// Host returns the Descriptor for the machine zv is running on.
func Host() Descriptor {
	return Descriptor{OS: normalizeOS(runtime.GOOS), Arch: normalizeArch(runtime.GOARCH)}
}

func normalizeOS(goos string) string {
	switch goos {
	case "darwin":
		return "macos"
	case "windows":
		return "windows"
	default:
		return goos // "linux", "freebsd", ...
	}
}

func normalizeArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "386":
		return "x86"
	default:
		return goarch
	}
}

// ArchiveExt returns the file extension the official Zig distribution
// uses for this OS: "zip" on Windows, "tar.xz" everywhere else.
func (d Descriptor) ArchiveExt() string {
	if d.OS == "windows" {
		return "zip"
	}
	return "tar.xz"
}

// Triple returns the target triple used as a key into the download
// index, e.g. "x86_64-linux" or "aarch64-macos".
func (d Descriptor) Triple() string {
	return fmt.Sprintf("%s-%s", d.Arch, d.OS)
}

// BinaryName returns the platform-correct executable name for a base
// name such as "zig" or "zls": with a ".exe" suffix on Windows.
func (d Descriptor) BinaryName(base string) string {
	if d.OS == "windows" {
		return base + ".exe"
	}
	return base
}

// PathSeparator returns the OS path separator zv should use when
// rendering paths for the user (not for filepath operations, which
// always use the Go runtime's own separator).
func (d Descriptor) PathSeparator() byte {
	if d.OS == "windows" {
		return '\\'
	}
	return '/'
}
