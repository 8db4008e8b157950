package indexmirror

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"tcmirror/pkg/progress"
)

func initOriginRepo(t *testing.T) string {
	t.Helper()
	originPath := t.TempDir()

	repo, err := git.PlainInit(originPath, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(originPath, "config.json"), []byte(`{"dl":"upstream","api":"upstream"}`), 0o644))
	_, err = wt.Add("config.json")
	require.NoError(t, err)

	sig := object.Signature{Name: "upstream", Email: "upstream@example.com", When: time.Unix(0, 0)}
	_, err = wt.Commit("initial commit", &git.CommitOptions{Author: &sig, Committer: &sig})
	require.NoError(t, err)

	return originPath
}

func TestSyncClonesWhenAbsent(t *testing.T) {
	origin := initOriginRepo(t)
	root := t.TempDir()

	require.NoError(t, Sync(root, origin, nil))
	require.DirExists(t, filepath.Join(RepoPath(root), ".git"))
	require.FileExists(t, filepath.Join(RepoPath(root), "config.json"))
}

func TestSyncFastForwardsExistingClone(t *testing.T) {
	origin := initOriginRepo(t)
	root := t.TempDir()
	require.NoError(t, Sync(root, origin, nil))

	originRepo, err := git.PlainOpen(origin)
	require.NoError(t, err)
	wt, err := originRepo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(origin, "new-crate.json"), []byte(`{}`), 0o644))
	_, err = wt.Add("new-crate.json")
	require.NoError(t, err)
	sig := object.Signature{Name: "upstream", Email: "upstream@example.com", When: time.Unix(1, 0)}
	_, err = wt.Commit("add crate", &git.CommitOptions{Author: &sig, Committer: &sig})
	require.NoError(t, err)

	require.NoError(t, Sync(root, origin, nil))
	require.FileExists(t, filepath.Join(RepoPath(root), "new-crate.json"))
}

func TestRewriteConfigJSONCommitsOnTop(t *testing.T) {
	origin := initOriginRepo(t)
	root := t.TempDir()
	require.NoError(t, Sync(root, origin, nil))

	commitTimestamp = func() time.Time { return time.Unix(2, 0) }
	defer func() { commitTimestamp = func() time.Time { return time.Now() } }()

	require.NoError(t, RewriteConfigJSON(root, "https://mirror.example.com"))

	data, err := os.ReadFile(filepath.Join(RepoPath(root), "config.json"))
	require.NoError(t, err)

	var cfg configJSON
	require.NoError(t, json.Unmarshal(data, &cfg))
	require.Equal(t, "https://mirror.example.com", cfg.DL)
	require.Equal(t, "https://mirror.example.com", cfg.API)

	repo, err := git.PlainOpen(RepoPath(root))
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	require.Equal(t, "Rewrite config.json", commit.Message)
	require.Equal(t, "tcmirror", commit.Author.Name)
}

func TestRewriteConfigJSONRecreatedEachSync(t *testing.T) {
	origin := initOriginRepo(t)
	root := t.TempDir()
	require.NoError(t, Sync(root, origin, nil))
	require.NoError(t, RewriteConfigJSON(root, "https://first.example.com"))

	require.NoError(t, Sync(root, origin, nil))
	require.NoError(t, RewriteConfigJSON(root, "https://second.example.com"))

	data, err := os.ReadFile(filepath.Join(RepoPath(root), "config.json"))
	require.NoError(t, err)
	var cfg configJSON
	require.NoError(t, json.Unmarshal(data, &cfg))
	require.Equal(t, "https://second.example.com", cfg.DL)
}

func TestSyncAcceptsProgressSinkAndWriterEmitsPrintln(t *testing.T) {
	origin := initOriginRepo(t)
	root := t.TempDir()

	msgs := make(chan progress.Msg, 64)
	require.NoError(t, Sync(root, origin, msgs))

	w := progressWriter{ch: msgs}
	n, err := w.Write([]byte("Enumerating objects: 1, done.\n"))
	require.NoError(t, err)
	require.Equal(t, len("Enumerating objects: 1, done.\n"), n)

	select {
	case m := <-msgs:
		require.Equal(t, progress.Println, m.Kind)
		require.Equal(t, "Enumerating objects: 1, done.", m.Text)
	default:
		t.Fatal("expected a Println message from progressWriter")
	}
}
