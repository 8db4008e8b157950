// Package indexmirror mirrors the crates.io-index git repository and
// rewrites its config.json to point at this mirror's own download base
// URL. Unlike the rustup artifact tree, this mirror is an actual git
// checkout: each sync either clones it fresh or fetches and force
// fast-forwards local master to origin/master, then recommits a fresh
// config.json on top — a commit that exists only locally and is
// recreated, not amended, on every sync.
package indexmirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"tcmirror/pkg/progress"
)

const masterBranch = "master"

// commitAuthor is the fixed author and committer identity of the
// config.json rewrite commit; its timestamp comes from commitTimestamp.
var commitAuthor = object.Signature{
	Name:  "tcmirror",
	Email: "tcmirror@localhost",
}

// RepoPath returns the on-disk path of the mirrored index repository.
func RepoPath(root string) string {
	return filepath.Join(root, "crates.io-index")
}

// Sync clones sourceIndex into root/crates.io-index if it doesn't exist
// yet, or fetches and force fast-forwards local master to origin/master
// otherwise. A force fast-forward discards any local divergence, which is
// intentional: the only local commit this repo ever carries is the
// config.json rewrite this package itself recreates after every sync.
// progressCh, if non-nil, receives one Println message per line go-git's
// sideband progress reporting produces; a nil channel is a silent no-op,
// same as every other Sync-shaped call in this repository.
func Sync(root, sourceIndex string, progressCh chan<- progress.Msg) error {
	repoPath := RepoPath(root)

	if _, err := os.Stat(filepath.Join(repoPath, ".git")); errors.Is(err, os.ErrNotExist) {
		return clone(repoPath, sourceIndex, progressCh)
	}

	return fetchAndFastForward(repoPath, progressCh)
}

// progressWriter adapts go-git's CloneOptions.Progress/FetchOptions.Progress
// io.Writer sink into the pkg/progress channel contract. go-git writes
// sideband progress lines (possibly \r-terminated) a chunk at a time; each
// Write becomes one Println message. Sends are non-blocking so a full or
// absent consumer never stalls the underlying clone/fetch.
type progressWriter struct {
	ch chan<- progress.Msg
}

func (w progressWriter) Write(p []byte) (int, error) {
	if w.ch != nil {
		if text := strings.TrimRight(string(p), "\r\n"); text != "" {
			select {
			case w.ch <- progress.Msg{Kind: progress.Println, Text: text}:
			default:
			}
		}
	}
	return len(p), nil
}

func clone(repoPath, sourceIndex string, progressCh chan<- progress.Msg) error {
	_, err := git.PlainClone(repoPath, false, &git.CloneOptions{
		URL:           sourceIndex,
		ReferenceName: plumbing.NewBranchReferenceName(masterBranch),
		SingleBranch:  true,
		Progress:      progressWriter{ch: progressCh},
	})
	if err != nil {
		return fmt.Errorf("clone %s: %w", sourceIndex, err)
	}
	return nil
}

func fetchAndFastForward(repoPath string, progressCh chan<- progress.Msg) error {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", repoPath, err)
	}

	err = repo.Fetch(&git.FetchOptions{RemoteName: "origin", Progress: progressWriter{ch: progressCh}})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch origin: %w", err)
	}

	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", masterBranch), true)
	if err != nil {
		return fmt.Errorf("resolve origin/%s: %w", masterBranch, err)
	}

	localRef := plumbing.NewHashReference(plumbing.NewBranchReferenceName(masterBranch), remoteRef.Hash())
	if err := repo.Storer.SetReference(localRef); err != nil {
		return fmt.Errorf("fast-forward %s: %w", masterBranch, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(masterBranch),
		Force:  true,
	}); err != nil {
		return fmt.Errorf("checkout %s: %w", masterBranch, err)
	}

	return nil
}

// configJSON is the document crates.io-index serves at config.json,
// telling cargo where to download crates from and where the (unused, for
// a static mirror) API lives.
type configJSON struct {
	DL  string `json:"dl"`
	API string `json:"api"`
}

// RewriteConfigJSON overwrites config.json in the mirrored index with
// baseURL as both the download and API base, then commits the change as
// a single "Rewrite config.json" commit on top of the freshly
// fast-forwarded master. The commit is local only — it is never pushed
// upstream, and is simply recreated the same way on the next sync.
func RewriteConfigJSON(root, baseURL string) error {
	repoPath := RepoPath(root)

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", repoPath, err)
	}

	contents, err := marshalConfigJSON(configJSON{DL: baseURL, API: baseURL})
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(repoPath, "config.json"), contents, 0o644); err != nil {
		return fmt.Errorf("write config.json: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if _, err := wt.Add("config.json"); err != nil {
		return fmt.Errorf("stage config.json: %w", err)
	}

	sig := commitAuthor
	sig.When = commitTimestamp()

	_, err = wt.Commit("Rewrite config.json", &git.CommitOptions{
		Author:    &sig,
		Committer: &sig,
	})
	if err != nil {
		return fmt.Errorf("commit config.json: %w", err)
	}

	return nil
}

// commitTimestamp is overridable by tests so commits are reproducible;
// production code always uses the wall clock.
var commitTimestamp = func() time.Time { return time.Now() }

func marshalConfigJSON(cfg configJSON) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode config.json: %w", err)
	}
	return data, nil
}
