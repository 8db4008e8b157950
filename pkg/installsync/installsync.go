// Package installsync mirrors the rustup-init bootstrap binaries: the
// release-stable.toml version pointer, plus one rustup-init per configured
// platform. Unlike channel artifacts, each installer is archived under its
// own rustup-version directory (so old installers remain reachable after a
// version bump) and additionally copied into the flat rustup/dist layout
// rustup's bootstrap script expects to find it in.
package installsync

import (
	"context"
	"fmt"
	"os"

	"tcmirror/pkg/batch"
	"tcmirror/pkg/fetch"
	"tcmirror/pkg/fsutil"
	"tcmirror/pkg/manifest"
	"tcmirror/pkg/platform"
	"tcmirror/pkg/progress"
)

// Options configures an installer sync run.
type Options struct {
	Root      string
	Source    string
	Threads   int
	Retries   int
	Platforms platform.Set
	UserAgent string
}

// Result reports the outcome of an installer sync run.
type Result struct {
	RustupVersion string
	Failures      int
}

type installTarget struct {
	platform string
	isExe    bool
}

// Sync downloads release-stable.toml, then fans out a rustup-init fetch
// across every configured unix and windows platform.
func Sync(ctx context.Context, f *fetch.Fetcher, opts Options, progressCh chan<- progress.Msg) (Result, error) {
	releasePath := opts.Root + "/rustup/release-stable.toml"
	releasePartPath := fsutil.PartPath(releasePath)
	releaseURL := opts.Source + "/rustup/release-stable.toml"

	if err := f.Download(ctx, releaseURL, releasePartPath, "", opts.Retries, false); err != nil {
		return Result{}, fmt.Errorf("fetch rustup release pointer: %w", err)
	}

	data, err := os.ReadFile(releasePartPath)
	if err != nil {
		return Result{}, fmt.Errorf("read staged release pointer: %w", err)
	}
	rel, err := manifest.ParseRelease(data)
	if err != nil {
		return Result{}, err
	}

	if err := fsutil.MoveIfExists(releasePartPath, releasePath); err != nil {
		return Result{}, err
	}

	var targets []installTarget
	for _, p := range opts.Platforms.Unix {
		targets = append(targets, installTarget{platform: p, isExe: false})
	}
	for _, p := range opts.Platforms.Windows {
		targets = append(targets, installTarget{platform: p, isExe: true})
	}

	if progressCh != nil {
		progressCh <- progress.Msg{Kind: progress.SetTotal, Total: len(targets)}
	}

	failures := batch.Run(ctx, targets, opts.Threads, func(ctx context.Context, it installTarget) error {
		return syncOne(ctx, f, opts, rel.Version, it)
	}, progressCh, func(it installTarget) string { return it.platform })

	return Result{RustupVersion: rel.Version, Failures: failures}, nil
}

func syncOne(ctx context.Context, f *fetch.Fetcher, opts Options, rustupVersion string, it installTarget) error {
	binName := "rustup-init"
	if it.isExe {
		binName = "rustup-init.exe"
	}

	archivePath := fmt.Sprintf("%s/rustup/archive/%s/%s/%s", opts.Root, rustupVersion, it.platform, binName)
	distPath := fmt.Sprintf("%s/rustup/dist/%s/%s", opts.Root, it.platform, binName)
	sourceURL := fmt.Sprintf("%s/rustup/dist/%s/%s", opts.Source, it.platform, binName)

	if err := f.DownloadWithSidecar(ctx, sourceURL, archivePath, opts.Retries, false); err != nil {
		var notFound *fetch.ErrNotFound
		if isNotFound(err, &notFound) {
			return nil
		}
		return err
	}

	return fsutil.CopyFileWithSidecar(archivePath, distPath)
}

func isNotFound(err error, target **fetch.ErrNotFound) bool {
	nf, ok := err.(*fetch.ErrNotFound)
	if ok {
		*target = nf
	}
	return ok
}
