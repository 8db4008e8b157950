package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tcmirror/pkg/config"
	"tcmirror/pkg/driver"
	"tcmirror/pkg/log"
)

var (
	configPath string
	mirrorRoot string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the configured rustup channels and crates.io-index",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			lastExitCode = 2
			return err
		}

		res, err := driver.Run(context.Background(), mirrorRoot, cfg, newTerminalProgress)
		if err != nil {
			lastExitCode = 2
			return err
		}

		lastExitCode = driver.ExitCode(res, nil)
		if res.FailuresOccurred {
			for _, e := range res.Errors {
				log.Logger.Error(e)
			}
			fmt.Fprintf(os.Stderr, "sync completed with %d error(s); see log above\n", len(res.Errors))
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&configPath, "config", "mirror.toml", "path to the mirror config file")
	syncCmd.Flags().StringVar(&mirrorRoot, "root", "./mirror", "mirror storage root directory")
}
