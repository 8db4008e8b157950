// Package channelsync drives one rustup channel (stable, beta, nightly, or
// a pinned version) through its sync state machine: stage the channel
// manifest, fan the platform-relevant artifacts out to the fetcher, and
// either commit the manifest and ledger together or leave the published
// manifest and the ledger as they were before the attempt (a failed run
// keeps its staged .part manifest and any artifacts it already verified).
package channelsync

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"tcmirror/pkg/batch"
	"tcmirror/pkg/fetch"
	"tcmirror/pkg/fsutil"
	"tcmirror/pkg/ledger"
	"tcmirror/pkg/manifest"
	"tcmirror/pkg/platform"
	"tcmirror/pkg/progress"
)

// State is a point in the channel sync state machine.
type State int

const (
	StateInit State = iota
	StateManifestStaged
	StateFetching
	StateCommitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateManifestStaged:
		return "MANIFEST_STAGED"
	case StateFetching:
		return "FETCHING"
	case StateCommitted:
		return "COMMITTED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Options configures one channel sync run.
type Options struct {
	Root        string
	Source      string
	Channel     string
	Threads     int
	Retries     int
	DownloadDev bool
	Platforms   platform.Set
	UserAgent   string
}

// Result reports the outcome of a channel sync run.
type Result struct {
	State    State
	Date     string
	Failures int
}

type target struct {
	relPath string
	hash    string
}

// Sync runs the full state machine for one channel.
func Sync(ctx context.Context, f *fetch.Fetcher, opts Options, progressCh chan<- progress.Msg) (Result, error) {
	res := Result{State: StateInit}

	channelPath := fmt.Sprintf("%s/dist/channel-rust-%s.toml", opts.Root, opts.Channel)
	channelURL := fmt.Sprintf("%s/dist/channel-rust-%s.toml", opts.Source, opts.Channel)
	partPath := fsutil.PartPath(channelPath)

	if err := f.DownloadWithSidecar(ctx, channelURL, partPath, opts.Retries, true); err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("stage channel manifest for %s: %w", opts.Channel, err)
	}
	res.State = StateManifestStaged

	data, err := os.ReadFile(partPath)
	if err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("read staged channel manifest: %w", err)
	}

	ch, err := manifest.ParseChannel(data)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	res.Date = ch.Date

	targets, err := downloadTargets(ch, opts.DownloadDev, opts.Platforms)
	if err != nil {
		res.State = StateFailed
		return res, err
	}

	res.State = StateFetching
	if progressCh != nil {
		progressCh <- progress.Msg{Kind: progress.SetTotal, Total: len(targets)}
	}

	failures := batch.Run(ctx, targets, opts.Threads, func(ctx context.Context, t target) error {
		srcURL := opts.Source + "/" + t.relPath
		destPath := opts.Root + "/" + t.relPath
		return f.Download(ctx, srcURL, destPath, t.hash, opts.Retries, false)
	}, progressCh, func(t target) string { return t.relPath })

	res.Failures = failures
	if failures > 0 {
		res.State = StateFailed
		return res, fmt.Errorf("%d artifact download(s) failed for channel %s", failures, opts.Channel)
	}

	relPaths := make([]string, len(targets))
	for i, t := range targets {
		relPaths[i] = t.relPath
	}

	hist, err := ledger.Load(opts.Root, opts.Channel)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	hist.Record(ch.Date, relPaths)
	if err := ledger.Save(opts.Root, opts.Channel, hist); err != nil {
		res.State = StateFailed
		return res, err
	}

	if err := fsutil.MoveWithSidecarIfExists(partPath, channelPath); err != nil {
		res.State = StateFailed
		return res, err
	}

	res.State = StateCommitted
	return res, nil
}

// downloadTargets resolves a channel manifest into the concrete set of
// artifacts to fetch: available, platform-relevant targets only, with rustc-dev
// included exclusively when downloadDev is requested (it is otherwise
// excluded, never the reverse).
func downloadTargets(ch *manifest.Channel, downloadDev bool, platforms platform.Set) ([]target, error) {
	var out []target
	for pkgName, pkg := range ch.Pkg {
		if pkgName == "rustc-dev" && !downloadDev {
			continue
		}
		for name, t := range pkg.Target {
			if !platforms.IsRelevant(name) {
				continue
			}
			if !t.Available || t.URLs == nil {
				continue
			}
			relURL, err := relativePath(t.URLs.URL)
			if err != nil {
				return nil, err
			}
			relXZ, err := relativePath(t.URLs.XZURL)
			if err != nil {
				return nil, err
			}
			out = append(out, target{relPath: relURL, hash: t.URLs.Hash})
			out = append(out, target{relPath: relXZ, hash: t.URLs.XZHash})
		}
	}
	return out, nil
}

// relativePath strips the scheme and host from a fully-qualified upstream
// URL, leaving the path the mirror stores the artifact under (including
// its leading "dist/" segment).
func relativePath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse artifact URL %s: %w", rawURL, err)
	}
	return strings.TrimPrefix(u.Path, "/"), nil
}
