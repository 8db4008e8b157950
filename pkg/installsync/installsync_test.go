package installsync

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"tcmirror/pkg/fetch"
	"tcmirror/pkg/platform"
)

func digestOf(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

func TestSyncFetchesReleaseAndInstallers(t *testing.T) {
	const releaseTOML = `
schema-version = "1"
version = "1.27.0"
`
	const unixBody = "unix-rustup-init-bytes"
	const winBody = "windows-rustup-init-bytes"

	srv := httptest.NewServer(nil)
	defer srv.Close()
	srv.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "release-stable.toml"):
			w.Write([]byte(releaseTOML))
		case strings.HasSuffix(path, "rustup-init.exe.sha256"):
			w.Write([]byte(digestOf(winBody) + "  rustup-init.exe\n"))
		case strings.HasSuffix(path, "rustup-init.sha256"):
			w.Write([]byte(digestOf(unixBody) + "  rustup-init\n"))
		case strings.HasSuffix(path, "rustup-init.exe"):
			w.Write([]byte(winBody))
		case strings.HasSuffix(path, "rustup-init"):
			w.Write([]byte(unixBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	root := t.TempDir()
	unix := []string{"x86_64-unknown-linux-gnu"}
	windows := []string{"x86_64-pc-windows-msvc"}
	platforms, err := platform.Resolve(&unix, &windows)
	require.NoError(t, err)

	f := fetch.New(srv.Client(), "")
	result, err := Sync(t.Context(), f, Options{
		Root:      root,
		Source:    srv.URL,
		Threads:   2,
		Retries:   1,
		Platforms: platforms,
	}, nil)

	require.NoError(t, err)
	require.Equal(t, "1.27.0", result.RustupVersion)
	require.Zero(t, result.Failures)

	require.FileExists(t, filepath.Join(root, "rustup", "release-stable.toml"))
	require.FileExists(t, filepath.Join(root, "rustup", "archive", "1.27.0", "x86_64-unknown-linux-gnu", "rustup-init"))
	require.FileExists(t, filepath.Join(root, "rustup", "dist", "x86_64-unknown-linux-gnu", "rustup-init"))
	require.FileExists(t, filepath.Join(root, "rustup", "archive", "1.27.0", "x86_64-pc-windows-msvc", "rustup-init.exe"))
	require.FileExists(t, filepath.Join(root, "rustup", "dist", "x86_64-pc-windows-msvc", "rustup-init.exe"))
}

func TestSyncIgnoresNotFoundPerPlatform(t *testing.T) {
	const releaseTOML = `
schema-version = "1"
version = "1.27.0"
`
	srv := httptest.NewServer(nil)
	defer srv.Close()
	srv.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if strings.HasSuffix(path, "release-stable.toml") {
			w.Write([]byte(releaseTOML))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	root := t.TempDir()
	unix := []string{"x86_64-unknown-linux-gnu"}
	platforms, err := platform.Resolve(&unix, nil)
	require.NoError(t, err)
	platforms.Windows = nil

	f := fetch.New(srv.Client(), "")
	result, err := Sync(t.Context(), f, Options{
		Root:      root,
		Source:    srv.URL,
		Threads:   1,
		Retries:   0,
		Platforms: platforms,
	}, nil)

	require.NoError(t, err)
	require.Zero(t, result.Failures)
	require.NoFileExists(t, filepath.Join(root, "rustup", "dist", "x86_64-unknown-linux-gnu", "rustup-init"))
}
