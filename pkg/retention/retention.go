// Package retention implements the artifact garbage collector: given the
// history ledgers for stable, beta, nightly, and any pinned versions, it
// computes the set of files still referenced by a kept release and
// deletes everything under dist/ that isn't.
package retention

import (
	"fmt"
	"os"
	"path/filepath"

	"tcmirror/pkg/ledger"
	"tcmirror/pkg/progress"
)

// Options configures one GC pass. A nil Keep* pointer means that channel's
// ledger is not read and adds nothing to the keep-set, so files only it
// listed are deleted like any other unkept file; Keep*=0 also keeps none of
// the channel's releases. Pinned versions are kept either way.
type Options struct {
	Root               string
	KeepStables        *int
	KeepBetas          *int
	KeepNightlies      *int
	PinnedRustVersions []string
}

// Result reports the outcome of a GC pass.
type Result struct {
	Kept    int
	Deleted []string
	Errors  []string
}

// Plan computes the keep-set and delete-set without touching the
// filesystem, so callers (and tests) can inspect a GC decision before
// committing to it.
func Plan(opts Options) (keep map[string]struct{}, deleteList []string, err error) {
	keep = map[string]struct{}{}

	if err := accumulateKeepSet(opts.Root, "stable", opts.KeepStables, keep); err != nil {
		return nil, nil, err
	}
	if err := accumulateKeepSet(opts.Root, "beta", opts.KeepBetas, keep); err != nil {
		return nil, nil, err
	}
	if err := accumulateKeepSet(opts.Root, "nightly", opts.KeepNightlies, keep); err != nil {
		return nil, nil, err
	}
	for _, version := range opts.PinnedRustVersions {
		one := 1
		if err := accumulateKeepSet(opts.Root, version, &one, keep); err != nil {
			return nil, nil, err
		}
	}

	distPath := filepath.Join(opts.Root, "dist")
	entries, err := os.ReadDir(distPath)
	if err != nil {
		if os.IsNotExist(err) {
			return keep, nil, nil
		}
		return nil, nil, fmt.Errorf("list %s: %w", distPath, err)
	}

	for _, dateDir := range entries {
		if !dateDir.IsDir() {
			continue
		}
		dirPath := filepath.Join(distPath, dateDir.Name())
		files, err := os.ReadDir(dirPath)
		if err != nil {
			return nil, nil, fmt.Errorf("list %s: %w", dirPath, err)
		}
		for _, f := range files {
			relPath := filepath.Join("dist", dateDir.Name(), f.Name())
			if _, ok := keep[relPath]; !ok {
				deleteList = append(deleteList, relPath)
			}
		}
	}

	return keep, deleteList, nil
}

func accumulateKeepSet(root, channel string, keepN *int, keep map[string]struct{}) error {
	if keepN == nil {
		return nil
	}
	hist, err := ledger.Load(root, channel)
	if err != nil {
		return fmt.Errorf("load history for %s: %w", channel, err)
	}
	for _, date := range hist.LatestDates(*keepN) {
		for _, p := range hist.Versions[date] {
			keep[p] = struct{}{}
		}
	}
	return nil
}

// Run executes Plan and deletes every file in the resulting delete-set,
// collecting (rather than aborting on) individual removal failures.
// progressCh follows the same contract channelsync/installsync use: a
// SetTotal message up front, one Increment per delete-set entry (removed or
// not), and a
// Println on each removal failure. A nil progressCh is a no-op sink, as
// in every other batch-shaped operation in this repository.
func Run(opts Options, progressCh chan<- progress.Msg) (Result, error) {
	keep, deleteList, err := Plan(opts)
	if err != nil {
		return Result{}, err
	}

	if progressCh != nil {
		progressCh <- progress.Msg{Kind: progress.SetTotal, Total: len(deleteList)}
	}

	res := Result{Kept: len(keep)}
	for _, relPath := range deleteList {
		fullPath := filepath.Join(opts.Root, relPath)
		if err := os.Remove(fullPath); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("remove %s: %v", relPath, err))
			if progressCh != nil {
				progressCh <- progress.Msg{Kind: progress.Println, Text: fmt.Sprintf("remove %s failed: %v", relPath, err)}
			}
		} else {
			res.Deleted = append(res.Deleted, relPath)
		}
		if progressCh != nil {
			progressCh <- progress.Msg{Kind: progress.Increment}
		}
	}
	return res, nil
}
