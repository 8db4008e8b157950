package driver

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"tcmirror/pkg/config"
)

func initOriginRepo(t *testing.T) string {
	t.Helper()
	originPath := t.TempDir()

	repo, err := git.PlainInit(originPath, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(originPath, "config.json"), []byte(`{}`), 0o644))
	_, err = wt.Add("config.json")
	require.NoError(t, err)

	sig := object.Signature{Name: "upstream", Email: "upstream@example.com", When: time.Unix(0, 0)}
	_, err = wt.Commit("initial commit", &git.CommitOptions{Author: &sig, Committer: &sig})
	require.NoError(t, err)

	return originPath
}

func TestRunSkipsChannelsWithZeroKeep(t *testing.T) {
	indexOrigin := initOriginRepo(t)

	const releaseTOML = "schema-version = \"1\"\nversion = \"1.27.0\"\n"

	srv := httptest.NewServer(nil)
	defer srv.Close()
	srv.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "release-stable.toml"):
			w.Write([]byte(releaseTOML))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	root := t.TempDir()
	zero := 0
	cfg := &config.Config{}
	cfg.Mirror.Retries = 0
	cfg.Mirror.UserAgent = "tcmirror/test"
	cfg.Crates.SourceIndex = indexOrigin
	cfg.Rustup.Source = srv.URL
	cfg.Rustup.DownloadThreads = 2
	cfg.Rustup.KeepLatestStables = &zero
	cfg.Rustup.KeepLatestBetas = &zero
	cfg.Rustup.KeepLatestNightlies = &zero
	unix := []string{"x86_64-unknown-linux-gnu"}
	cfg.Rustup.PlatformsUnix = &unix
	windows := []string{}
	cfg.Rustup.PlatformsWindows = &windows

	res, err := Run(t.Context(), root, cfg, nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	require.DirExists(t, filepath.Join(root, "crates.io-index", ".git"))
	require.NoFileExists(t, filepath.Join(root, "dist", "channel-rust-stable.toml"))
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{}

	_, err := Run(t.Context(), root, cfg, nil)
	require.Error(t, err)
}

// A channel sync failure this run must suppress GC entirely, even when a
// retention count is configured, so a file that GC would otherwise delete
// survives the run.
func TestRunSkipsGCWhenAChannelSyncFails(t *testing.T) {
	indexOrigin := initOriginRepo(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	root := t.TempDir()
	strayDir := filepath.Join(root, "dist", "2000-01-01")
	require.NoError(t, os.MkdirAll(strayDir, 0o755))
	strayPath := filepath.Join(strayDir, "stray.bin")
	require.NoError(t, os.WriteFile(strayPath, []byte("orphaned"), 0o644))

	nightlies := 1
	cfg := &config.Config{}
	cfg.Mirror.Retries = 0
	cfg.Mirror.UserAgent = "tcmirror/test"
	cfg.Crates.SourceIndex = indexOrigin
	cfg.Rustup.Source = srv.URL
	cfg.Rustup.DownloadThreads = 2
	cfg.Rustup.KeepLatestNightlies = &nightlies
	unix := []string{}
	cfg.Rustup.PlatformsUnix = &unix
	windows := []string{}
	cfg.Rustup.PlatformsWindows = &windows

	res, err := Run(t.Context(), root, cfg, nil)
	require.NoError(t, err)
	require.True(t, res.FailuresOccurred)
	require.FileExists(t, strayPath)
}

// A pinned version's sync failing for a reason other than NotFound (here, a
// hash mismatch on the staged channel manifest) must be recorded like any
// other channel failure and must not abort the run; only a NotFound on a
// pinned version is a hard, run-aborting configuration error.
func TestRunRecordsPinnedChannelFailureWithoutAborting(t *testing.T) {
	indexOrigin := initOriginRepo(t)

	const manifestBody = "this is not the content the sidecar digest below describes"
	bogusSidecar := strings.Repeat("a", 64) + "  channel-rust-1.9.9.toml\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "channel-rust-1.9.9.toml.sha256"):
			w.Write([]byte(bogusSidecar))
		case strings.HasSuffix(path, "channel-rust-1.9.9.toml"):
			w.Write([]byte(manifestBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	root := t.TempDir()
	cfg := &config.Config{}
	cfg.Mirror.Retries = 0
	cfg.Mirror.UserAgent = "tcmirror/test"
	cfg.Crates.SourceIndex = indexOrigin
	cfg.Rustup.Source = srv.URL
	cfg.Rustup.DownloadThreads = 2
	pinned := []string{"1.9.9"}
	cfg.Rustup.PinnedRustVersions = &pinned
	unix := []string{}
	cfg.Rustup.PlatformsUnix = &unix
	windows := []string{}
	cfg.Rustup.PlatformsWindows = &windows

	res, err := Run(t.Context(), root, cfg, nil)
	require.NoError(t, err)
	require.True(t, res.FailuresOccurred)
	require.NotEmpty(t, res.Errors)
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "1.9.9") {
			found = true
		}
	}
	require.True(t, found, "expected an error mentioning the pinned version, got %v", res.Errors)
}
