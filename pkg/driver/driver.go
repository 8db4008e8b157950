// Package driver sequences one full mirror run: the crates.io-index git
// mirror, the rustup-init installers, each configured rustup channel, and
// finally retention GC — in that order, so a channel sync never races
// ahead of an index/installer step that a partial prior run left staged.
// Each step's failure is recorded and the run continues to the next step;
// only a configuration or setup error aborts the run outright.
package driver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"tcmirror/pkg/channelsync"
	"tcmirror/pkg/config"
	"tcmirror/pkg/fetch"
	"tcmirror/pkg/indexmirror"
	"tcmirror/pkg/installsync"
	"tcmirror/pkg/log"
	"tcmirror/pkg/platform"
	"tcmirror/pkg/progress"
	"tcmirror/pkg/retention"
)

// Result aggregates the outcome of every step in a run.
type Result struct {
	RunID            string
	FailuresOccurred bool
	Errors           []string
}

// ExitCode maps Result (and a possible fatal error from Run) onto the
// CLI's exit status: 0 clean, 1 partial failures, 2 fatal/config error.
func ExitCode(res Result, err error) int {
	if err != nil {
		return 2
	}
	if res.FailuresOccurred {
		return 1
	}
	return 0
}

// ProgressFactory builds a progress sink for one named step; passing nil
// renders no bars (used by tests and non-interactive CI runs).
type ProgressFactory func(stepName string, total int) (chan<- progress.Msg, func())

// Run executes crates-index mirroring, rustup-init sync, every configured
// rustup channel, and retention GC, in that order.
func Run(ctx context.Context, root string, cfg *config.Config, newProgress ProgressFactory) (Result, error) {
	runID := uuid.New().String()
	logger := log.WithRun(runID)
	res := Result{RunID: runID}

	if err := config.Validate(cfg); err != nil {
		return res, err
	}

	platforms, err := platform.Resolve(cfg.Rustup.PlatformsUnix, cfg.Rustup.PlatformsWindows)
	if err != nil {
		return res, fmt.Errorf("resolve platforms: %w", err)
	}
	if cfg.Rustup.PlatformsUnix == nil {
		logger.Info("platforms_unix not set, mirroring every known unix platform")
	}
	if cfg.Rustup.PlatformsWindows == nil {
		logger.Info("platforms_windows not set, mirroring every known windows platform")
	}

	fetcher := fetch.New(http.DefaultClient, cfg.Mirror.UserAgent)

	logger.Info("syncing crates.io-index")
	indexProgress, indexDone := startProgress(newProgress, "crates.io-index", 0)
	err = indexmirror.Sync(root, cfg.Crates.SourceIndex, indexProgress)
	indexDone()
	if err != nil {
		res.FailuresOccurred = true
		res.Errors = append(res.Errors, fmt.Sprintf("crates.io-index sync: %v", err))
		logger.WithError(err).Error("crates.io-index sync failed")
	} else if cfg.Crates.BaseURL != nil {
		if err := indexmirror.RewriteConfigJSON(root, *cfg.Crates.BaseURL); err != nil {
			res.FailuresOccurred = true
			res.Errors = append(res.Errors, fmt.Sprintf("rewrite config.json: %v", err))
			logger.WithError(err).Error("config.json rewrite failed")
		}
	}

	logger.Info("syncing rustup-init installers")
	installProgress, installDone := startProgress(newProgress, "rustup-init", len(platforms.Unix)+len(platforms.Windows))
	installResult, err := installsync.Sync(ctx, fetcher, installsync.Options{
		Root:      root,
		Source:    cfg.Rustup.Source,
		Threads:   cfg.Rustup.DownloadThreads,
		Retries:   cfg.Mirror.Retries,
		Platforms: platforms,
	}, installProgress)
	installDone()
	if err != nil {
		res.FailuresOccurred = true
		res.Errors = append(res.Errors, fmt.Sprintf("rustup-init sync: %v", err))
		logger.WithError(err).Error("rustup-init sync failed")
	} else if installResult.Failures > 0 {
		res.FailuresOccurred = true
		res.Errors = append(res.Errors, fmt.Sprintf("rustup-init sync: %d download(s) failed", installResult.Failures))
	}

	downloadDev := false
	if cfg.Rustup.DownloadDev != nil {
		downloadDev = *cfg.Rustup.DownloadDev
	}

	anyChannelFailed := false
	for _, plan := range channelPlans(cfg) {
		if plan.skip {
			logger.Infof("skipping %s channel sync (keep count is 0)", plan.channel)
			continue
		}

		logger.Infof("syncing %s channel", plan.channel)
		channelProgress, channelDone := startProgress(newProgress, plan.channel, 0)
		chResult, err := channelsync.Sync(ctx, fetcher, channelsync.Options{
			Root:        root,
			Source:      cfg.Rustup.Source,
			Channel:     plan.channel,
			Threads:     cfg.Rustup.DownloadThreads,
			Retries:     cfg.Mirror.Retries,
			DownloadDev: downloadDev,
			Platforms:   platforms,
			UserAgent:   cfg.Mirror.UserAgent,
		}, channelProgress)
		channelDone()

		if err != nil {
			res.FailuresOccurred = true
			anyChannelFailed = true
			res.Errors = append(res.Errors, fmt.Sprintf("%s channel sync: %v", plan.channel, err))
			logger.WithError(err).Errorf("%s channel sync failed, state=%s", plan.channel, chResult.State)
			var notFound *fetch.ErrNotFound
			if plan.pinned && errors.As(err, &notFound) {
				return res, fmt.Errorf("pinned rust version %s could not be synced: %w", plan.channel, err)
			}
		}
	}

	gcConfigured := cfg.Rustup.KeepLatestStables != nil || cfg.Rustup.KeepLatestBetas != nil || cfg.Rustup.KeepLatestNightlies != nil
	if anyChannelFailed {
		logger.Info("skipping retention gc (a channel sync failed this run)")
	} else if gcConfigured {
		logger.Info("cleaning old rustup artifacts")
		gcProgress, gcDone := startProgress(newProgress, "retention-gc", 0)
		gcResult, err := retention.Run(retention.Options{
			Root:               root,
			KeepStables:        cfg.Rustup.KeepLatestStables,
			KeepBetas:          cfg.Rustup.KeepLatestBetas,
			KeepNightlies:      cfg.Rustup.KeepLatestNightlies,
			PinnedRustVersions: pinnedVersions(cfg),
		}, gcProgress)
		gcDone()
		if err != nil {
			res.FailuresOccurred = true
			res.Errors = append(res.Errors, fmt.Sprintf("retention gc: %v", err))
		} else if len(gcResult.Errors) > 0 {
			res.FailuresOccurred = true
			res.Errors = append(res.Errors, gcResult.Errors...)
		}
	} else {
		logger.Info("skipping retention gc (no keep_latest_* configured)")
	}

	return res, nil
}

type channelPlan struct {
	channel string
	skip    bool
	pinned  bool
}

func channelPlans(cfg *config.Config) []channelPlan {
	plans := []channelPlan{
		{channel: "stable", skip: isZero(cfg.Rustup.KeepLatestStables)},
		{channel: "beta", skip: isZero(cfg.Rustup.KeepLatestBetas)},
		{channel: "nightly", skip: isZero(cfg.Rustup.KeepLatestNightlies)},
	}
	for _, v := range pinnedVersions(cfg) {
		plans = append(plans, channelPlan{channel: v, pinned: true})
	}
	return plans
}

func pinnedVersions(cfg *config.Config) []string {
	if cfg.Rustup.PinnedRustVersions == nil {
		return nil
	}
	return *cfg.Rustup.PinnedRustVersions
}

func isZero(keep *int) bool {
	return keep != nil && *keep == 0
}

func startProgress(newProgress ProgressFactory, name string, total int) (chan<- progress.Msg, func()) {
	if newProgress == nil {
		return nil, func() {}
	}
	ch, done := newProgress(name, total)
	return ch, done
}
