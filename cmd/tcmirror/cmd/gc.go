package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tcmirror/pkg/config"
	"tcmirror/pkg/retention"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete rustup artifacts no longer covered by the retention policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			lastExitCode = 2
			return err
		}

		var pinned []string
		if cfg.Rustup.PinnedRustVersions != nil {
			pinned = *cfg.Rustup.PinnedRustVersions
		}

		gcProgress, gcDone := newTerminalProgress("retention-gc", 0)
		res, err := retention.Run(retention.Options{
			Root:               mirrorRoot,
			KeepStables:        cfg.Rustup.KeepLatestStables,
			KeepBetas:          cfg.Rustup.KeepLatestBetas,
			KeepNightlies:      cfg.Rustup.KeepLatestNightlies,
			PinnedRustVersions: pinned,
		}, gcProgress)
		gcDone()
		if err != nil {
			lastExitCode = 2
			return err
		}

		fmt.Printf("gc: kept %d artifact path(s), deleted %d file(s)\n", res.Kept, len(res.Deleted))
		if len(res.Errors) > 0 {
			lastExitCode = 1
			for _, e := range res.Errors {
				fmt.Println("gc error:", e)
			}
		}
		return nil
	},
}

func init() {
	gcCmd.Flags().StringVar(&configPath, "config", "mirror.toml", "path to the mirror config file")
	gcCmd.Flags().StringVar(&mirrorRoot, "root", "./mirror", "mirror storage root directory")
}
