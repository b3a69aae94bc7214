package download

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/zv-tools/zv/internal/index"
	"github.com/zv-tools/zv/internal/mirror"
)

func encodeTestPublicKey(keyID [8]byte, pub ed25519.PublicKey) string {
	raw := make([]byte, 0, 42)
	raw = append(raw, 'E', 'd')
	raw = append(raw, keyID[:]...)
	raw = append(raw, pub...)
	return base64.StdEncoding.EncodeToString(raw)
}

func encodeTestSignatureFile(keyID [8]byte, sig []byte) string {
	raw := make([]byte, 0, 74)
	raw = append(raw, 'E', 'd')
	raw = append(raw, keyID[:]...)
	raw = append(raw, sig...)
	b64 := base64.StdEncoding.EncodeToString(raw)
	return "untrusted comment: test\n" + b64 + "\ntrusted comment: test\nZmFrZQ==\n"
}

// newTestArchiveServer serves a tar.xz archive at /zig-x86_64-linux-0.13.0.tar.xz
// plus its .minisig, signed with a freshly generated keypair.
func newTestArchiveServer(t *testing.T) (srv *httptest.Server, publicKey string, shasum string, archiveData []byte) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	var keyID [8]byte
	copy(keyID[:], []byte("TESTKEY1"))

	archive := buildTarXz(t, map[string]string{
		"zig-x86_64-linux-0.13.0/zig": "#!/bin/sh\necho zig",
	})
	sig := ed25519.Sign(priv, archive)
	sigFile := encodeTestSignatureFile(keyID, sig)

	mux := http.NewServeMux()
	mux.HandleFunc("/download/0.13.0/zig-x86_64-linux-0.13.0.tar.xz", func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	})
	mux.HandleFunc("/download/0.13.0/zig-x86_64-linux-0.13.0.tar.xz.minisig", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sigFile))
	})

	server := httptest.NewServer(mux)
	digest := sha256.Sum256(archive)
	return server, encodeTestPublicKey(keyID, pub), fmt.Sprintf("%x", digest), archive
}

func TestFetchAndInstallSucceeds(t *testing.T) {
	srv, pubKey, shasum, _ := newTestArchiveServer(t)
	defer srv.Close()

	root := t.TempDir()
	in := &Installer{
		VersionsDir: filepath.Join(root, "versions"),
		MasterDir:   filepath.Join(root, "master"),
		DownloadDir: filepath.Join(root, "downloads"),
		ForceOrigin: true,
		PublicKey:   pubKey,
		originURL:   srv.URL,
	}

	entry := index.Entry{
		Version: "0.13.0",
		Assets: map[string]index.Asset{
			"x86_64-linux": {
				Tarball: srv.URL + "/download/0.13.0/zig-x86_64-linux-0.13.0.tar.xz",
				Shasum:  shasum,
			},
		},
	}

	tc, err := in.FetchAndInstall(entry, false)
	if err != nil {
		t.Fatalf("FetchAndInstall: %v", err)
	}
	if tc.Name != "0.13.0" {
		t.Errorf("Name = %q, want 0.13.0", tc.Name)
	}

	zigBin := filepath.Join(tc.Root, "zig")
	data, err := os.ReadFile(zigBin)
	if err != nil {
		t.Fatalf("expected installed zig binary, got: %v", err)
	}
	if string(data) != "#!/bin/sh\necho zig" {
		t.Errorf("zig binary contents = %q", data)
	}
}

func TestFetchAndInstallIsIdempotent(t *testing.T) {
	srv, pubKey, shasum, _ := newTestArchiveServer(t)
	defer srv.Close()

	root := t.TempDir()
	finalDir := filepath.Join(root, "versions", "0.13.0")
	if err := os.MkdirAll(finalDir, 0o755); err != nil {
		t.Fatal(err)
	}
	sentinel := filepath.Join(finalDir, "already-here")
	if err := os.WriteFile(sentinel, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	in := &Installer{
		VersionsDir: filepath.Join(root, "versions"),
		MasterDir:   filepath.Join(root, "master"),
		DownloadDir: filepath.Join(root, "downloads"),
		ForceOrigin: true,
		PublicKey:   pubKey,
		originURL:   srv.URL,
	}
	entry := index.Entry{
		Version: "0.13.0",
		Assets: map[string]index.Asset{
			"x86_64-linux": {
				Tarball: srv.URL + "/download/0.13.0/zig-x86_64-linux-0.13.0.tar.xz",
				Shasum:  shasum,
			},
		},
	}

	tc, err := in.FetchAndInstall(entry, false)
	if err != nil {
		t.Fatalf("FetchAndInstall: %v", err)
	}
	if _, err := os.Stat(sentinel); err != nil {
		t.Error("expected existing install to be preserved (idempotence), sentinel file missing")
	}
	if tc.Root != finalDir {
		t.Errorf("Root = %q, want %q", tc.Root, finalDir)
	}
}

func TestFetchAndInstallRejectsBadShasum(t *testing.T) {
	srv, pubKey, _, _ := newTestArchiveServer(t)
	defer srv.Close()

	root := t.TempDir()
	in := &Installer{
		VersionsDir: filepath.Join(root, "versions"),
		MasterDir:   filepath.Join(root, "master"),
		DownloadDir: filepath.Join(root, "downloads"),
		ForceOrigin: true,
		PublicKey:   pubKey,
		originURL:   srv.URL,
	}
	entry := index.Entry{
		Version: "0.13.0",
		Assets: map[string]index.Asset{
			"x86_64-linux": {
				Tarball: srv.URL + "/download/0.13.0/zig-x86_64-linux-0.13.0.tar.xz",
				Shasum:  "deadbeef",
			},
		},
	}

	_, err := in.FetchAndInstall(entry, false)
	if err == nil {
		t.Fatal("expected AllMirrorsFailed due to shasum mismatch")
	}
}

func TestFetchAndInstallUsesMasterDirForNightlies(t *testing.T) {
	srv, pubKey, shasum, _ := newTestArchiveServer(t)
	defer srv.Close()

	root := t.TempDir()
	in := &Installer{
		VersionsDir: filepath.Join(root, "versions"),
		MasterDir:   filepath.Join(root, "master"),
		DownloadDir: filepath.Join(root, "downloads"),
		ForceOrigin: true,
		PublicKey:   pubKey,
		originURL:   srv.URL,
	}
	entry := index.Entry{
		Version: "0.14.0-dev.1+abc123",
		Assets: map[string]index.Asset{
			"x86_64-linux": {
				Tarball: srv.URL + "/download/0.13.0/zig-x86_64-linux-0.13.0.tar.xz",
				Shasum:  shasum,
			},
		},
	}

	tc, err := in.FetchAndInstall(entry, true)
	if err != nil {
		t.Fatalf("FetchAndInstall: %v", err)
	}
	want := filepath.Join(root, "master", "0.14.0-dev.1+abc123")
	if tc.Root != want {
		t.Errorf("Root = %q, want %q", tc.Root, want)
	}
}

func TestRewriteBasePreservesDownloadPath(t *testing.T) {
	got := rewriteBase("https://ziglang.org/download/0.13.0/zig-x86_64-linux-0.13.0.tar.xz", "https://mirror.example.test")
	want := "https://mirror.example.test/download/0.13.0/zig-x86_64-linux-0.13.0.tar.xz"
	if got != want {
		t.Errorf("rewriteBase = %q, want %q", got, want)
	}
}

func TestRewriteBaseLeavesOriginUnchanged(t *testing.T) {
	orig := "https://ziglang.org/download/0.13.0/zig-x86_64-linux-0.13.0.tar.xz"
	got := rewriteBase(orig, mirror.OriginURL)
	if got != orig {
		t.Errorf("rewriteBase = %q, want unchanged %q", got, orig)
	}
}
