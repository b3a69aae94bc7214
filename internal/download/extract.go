package download

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/zv-tools/zv/internal/errs"
)

// extractTarXz extracts a tar.xz archive into dest, stripping a single
// top-level "zig-<triple>-<version>/" directory if present (spec.md §4.5).
func extractTarXz(archivePath, dest string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return &errs.ExtractFailed{Archive: archivePath, Err: err}
	}
	defer f.Close()

	xr, err := xz.NewReader(f)
	if err != nil {
		return &errs.ExtractFailed{Archive: archivePath, Err: err}
	}

	tr := tar.NewReader(xr)
	var stripPrefix string
	first := true

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &errs.ExtractFailed{Archive: archivePath, Err: err}
		}

		name := hdr.Name
		if first {
			first = false
			if top := topLevelDir(name); top != "" && looksLikeZigRoot(top) {
				stripPrefix = top + "/"
			}
		}
		name = strings.TrimPrefix(name, stripPrefix)
		if name == "" {
			continue
		}

		target, err := safeJoin(dest, name)
		if err != nil {
			return &errs.ExtractFailed{Archive: archivePath, Err: err}
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return &errs.ExtractFailed{Archive: archivePath, Err: err}
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, os.FileMode(hdr.Mode)); err != nil {
				return &errs.ExtractFailed{Archive: archivePath, Err: err}
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return &errs.ExtractFailed{Archive: archivePath, Err: err}
			}
			_ = os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return &errs.ExtractFailed{Archive: archivePath, Err: err}
			}
		}
	}
	return nil
}

// extractZip extracts a zip archive into dest, stripping a single
// top-level "zig-<triple>-<version>/" directory if present.
func extractZip(archivePath, dest string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return &errs.ExtractFailed{Archive: archivePath, Err: err}
	}
	defer zr.Close()

	var stripPrefix string
	if len(zr.File) > 0 {
		if top := topLevelDir(zr.File[0].Name); top != "" && looksLikeZigRoot(top) {
			stripPrefix = top + "/"
		}
	}

	for _, zf := range zr.File {
		name := strings.TrimPrefix(zf.Name, stripPrefix)
		if name == "" {
			continue
		}

		target, err := safeJoin(dest, name)
		if err != nil {
			return &errs.ExtractFailed{Archive: archivePath, Err: err}
		}

		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return &errs.ExtractFailed{Archive: archivePath, Err: err}
			}
			continue
		}

		rc, err := zf.Open()
		if err != nil {
			return &errs.ExtractFailed{Archive: archivePath, Err: err}
		}
		err = writeFile(target, rc, zf.Mode())
		rc.Close()
		if err != nil {
			return &errs.ExtractFailed{Archive: archivePath, Err: err}
		}
	}
	return nil
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, r)
	return err
}

func topLevelDir(name string) string {
	name = strings.TrimPrefix(name, "./")
	idx := strings.IndexByte(name, '/')
	if idx < 0 {
		return ""
	}
	return name[:idx]
}

// looksLikeZigRoot reports whether name matches "zig-<triple>-<version>",
// the archive layout spec.md §4.5 says must be stripped.
func looksLikeZigRoot(name string) bool {
	return strings.HasPrefix(name, "zig-")
}

// safeJoin joins dest and name, rejecting any result that escapes dest
// via ".." path segments (archive path traversal).
func safeJoin(dest, name string) (string, error) {
	cleaned := filepath.Join(dest, filepath.FromSlash(name))
	if !strings.HasPrefix(cleaned, filepath.Clean(dest)+string(filepath.Separator)) && cleaned != filepath.Clean(dest) {
		return "", fmt.Errorf("archive entry %q escapes extraction root", name)
	}
	return cleaned, nil
}
