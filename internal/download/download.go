// Package download implements spec.md §4.5: fetching a toolchain
// archive from a mirror candidate, verifying it, extracting it, and
// installing it atomically into the store.
package download

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/zv-tools/zv/internal/errs"
	"github.com/zv-tools/zv/internal/httpclient"
	"github.com/zv-tools/zv/internal/index"
	"github.com/zv-tools/zv/internal/logx"
	"github.com/zv-tools/zv/internal/mirror"
	"github.com/zv-tools/zv/internal/platform"
	"github.com/zv-tools/zv/internal/verify"
)

// MirrorCandidates is N from spec.md §4.5: up to this many mirrors are
// tried, plus the origin, before giving up.
const MirrorCandidates = 3

// Toolchain describes a toolchain directory installed into the store.
type Toolchain struct {
	// Name is the store directory name: a released version string or
	// a master dev string.
	Name string
	// Root is the absolute path to the installed toolchain directory.
	Root string
}

// Installer fetches, verifies, and installs a toolchain entry.
type Installer struct {
	// VersionsDir is where released toolchains are installed
	// (ZV_DIR/versions). MasterDir is where nightlies are installed
	// (ZV_DIR/master).
	VersionsDir string
	MasterDir   string
	DownloadDir string

	Client    *retryablehttp.Client
	Mirrors   *mirror.Registry
	PublicKey string

	// MirrorCandidates overrides the package default MirrorCandidates
	// count with the resolved mirror_candidates config.yaml setting
	// (SPEC_FULL.md's Ambient Stack section). Zero means "use the
	// package default."
	MirrorCandidates int

	// ForceOrigin bypasses the mirror registry entirely and fetches
	// only from the official origin (spec.md's --force-ziglang / -f).
	ForceOrigin bool

	// originURL overrides mirror.OriginURL for tests; production
	// callers leave it empty.
	originURL string
}

// FetchAndInstall implements spec.md §4.5's fetchAndInstall algorithm
// for a single resolved index entry.
func (in *Installer) FetchAndInstall(entry index.Entry, isMaster bool) (Toolchain, error) {
	triple := platform.Host().Triple()
	asset, ok := entry.Assets[triple]
	if !ok {
		return Toolchain{}, &errs.UnknownVersion{Spec: entry.Version}
	}

	name := entry.Version
	finalDir := in.finalDir(name, isMaster)
	if _, err := os.Stat(finalDir); err == nil {
		// Idempotence: a concurrent or prior install already won.
		return Toolchain{Name: name, Root: finalDir}, nil
	}

	candidates := in.candidates()

	var failures []errs.MirrorFailure
	for _, base := range candidates {
		tc, err := in.tryCandidate(base, asset, name, finalDir, isMaster)
		if err == nil {
			in.recordSuccess(base)
			return tc, nil
		}
		in.recordFailure(base)
		failures = append(failures, errs.MirrorFailure{Mirror: base, Reason: err})
		logx.L().Warn("mirror candidate failed", zap.String("mirror", base), zap.Error(err))
	}

	return Toolchain{}, &errs.AllMirrorsFailed{Spec: entry.Version, Failures: failures}
}

func (in *Installer) origin() string {
	if in.originURL != "" {
		return in.originURL
	}
	return mirror.OriginURL
}

func (in *Installer) candidates() []string {
	if in.ForceOrigin || in.Mirrors == nil {
		return []string{in.origin()}
	}
	n := in.MirrorCandidates
	if n <= 0 {
		n = MirrorCandidates
	}
	candidates := in.Mirrors.SelectCandidates(n)
	if in.originURL != "" && len(candidates) > 0 {
		candidates[len(candidates)-1] = in.originURL
	}
	return candidates
}

func (in *Installer) recordSuccess(base string) {
	if in.Mirrors == nil || base == in.origin() {
		return
	}
	in.Mirrors.RecordSuccess(base)
	_ = in.Mirrors.SaveAtomic()
}

func (in *Installer) recordFailure(base string) {
	if in.Mirrors == nil || base == in.origin() {
		return
	}
	in.Mirrors.RecordFailure(base)
	_ = in.Mirrors.SaveAtomic()
}

func (in *Installer) finalDir(name string, isMaster bool) string {
	if isMaster {
		return filepath.Join(in.MasterDir, name)
	}
	return filepath.Join(in.VersionsDir, name)
}

// tryCandidate performs one mirror attempt: fetch, verify, extract,
// atomically install.
func (in *Installer) tryCandidate(base string, asset index.Asset, name, finalDir string, isMaster bool) (Toolchain, error) {
	if err := os.MkdirAll(in.DownloadDir, 0o755); err != nil {
		return Toolchain{}, &errs.IoError{Op: "mkdir " + in.DownloadDir, Err: err}
	}

	archiveURL := rewriteBase(asset.Tarball, base)
	sigURL := archiveURL + ".minisig"

	archivePath, err := in.fetchToTemp(archiveURL, "archive-*")
	if err != nil {
		return Toolchain{}, err
	}
	defer os.Remove(archivePath)

	sigPath, err := in.fetchToTemp(sigURL, "sig-*.minisig")
	if err != nil {
		return Toolchain{}, err
	}
	defer os.Remove(sigPath)

	if err := verify.CheckShasum(archivePath, asset.Shasum); err != nil {
		return Toolchain{}, err
	}
	if err := verify.VerifyMinisign(archivePath, sigPath, in.publicKey()); err != nil {
		return Toolchain{}, err
	}

	if err := os.MkdirAll(filepath.Dir(finalDir), 0o755); err != nil {
		return Toolchain{}, &errs.IoError{Op: "mkdir " + filepath.Dir(finalDir), Err: err}
	}

	tmpDir, err := os.MkdirTemp(filepath.Dir(finalDir), "install-*")
	if err != nil {
		return Toolchain{}, &errs.IoError{Op: "mkdir temp install dir", Err: err}
	}
	defer os.RemoveAll(tmpDir)

	if strings.HasSuffix(archiveURL, ".zip") {
		if err := extractZip(archivePath, tmpDir); err != nil {
			return Toolchain{}, err
		}
	} else {
		if err := extractTarXz(archivePath, tmpDir); err != nil {
			return Toolchain{}, err
		}
	}

	fsyncTree(tmpDir)

	if err := os.Rename(tmpDir, finalDir); err != nil {
		if _, statErr := os.Stat(finalDir); statErr == nil {
			// Another process won the race; prefer its copy (idempotence).
			return Toolchain{Name: name, Root: finalDir}, nil
		}
		return Toolchain{}, &errs.IoError{Op: "install " + finalDir, Err: err}
	}

	return Toolchain{Name: name, Root: finalDir}, nil
}

func (in *Installer) publicKey() string {
	if in.PublicKey != "" {
		return in.PublicKey
	}
	return verify.ZigSigningKey
}

// fetchToTemp downloads url into a per-attempt temp file under
// DownloadDir and returns its path.
func (in *Installer) fetchToTemp(url, pattern string) (string, error) {
	client := in.Client
	if client == nil {
		client = httpclient.New(15 * time.Second)
	}

	resp, err := client.Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("fetch %s: http %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(in.DownloadDir, pattern)
	if err != nil {
		return "", &errs.IoError{Op: "create temp download file", Err: err}
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		os.Remove(tmp.Name())
		return "", &errs.IoError{Op: "write " + tmp.Name(), Err: err}
	}
	return tmp.Name(), nil
}

// rewriteBase swaps the origin host in an index-declared tarball URL
// for a mirror's base URL, preserving the path (spec.md §4.3: mirrors
// serve the same layout as the origin under their own base URL).
func rewriteBase(tarballURL, base string) string {
	if base == mirror.OriginURL {
		return tarballURL
	}
	idx := strings.Index(tarballURL, "/download/")
	if idx < 0 {
		return tarballURL
	}
	return strings.TrimSuffix(base, "/") + tarballURL[idx:]
}

// fsyncTree best-effort fsyncs every regular file and the directories
// themselves so a crash right after install cannot leave a
// partially-flushed toolchain behind. Errors are ignored: this is a
// durability improvement, not a correctness requirement.
func fsyncTree(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		f, ferr := os.Open(path)
		if ferr != nil {
			return nil
		}
		_ = f.Sync()
		f.Close()
		return nil
	})
}
