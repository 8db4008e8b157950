// Package cmd implements the tcmirror command-line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tcmirror/pkg/log"
)

var (
	version   string
	commit    string
	buildTime string
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "tcmirror",
	Short: "tcmirror mirrors the rustup toolchain distribution and crates.io-index",
	Long: `
 ╔══════════════════════════════════════════════════════════╗
 ║   _                     _                                ║
 ║  | |_ ___ _ __ ___  (_)_ __ _ __ ___  _ __               ║
 ║  | __/ __| '_ ' _ \| | '__| '__/ _ \| '__|              ║
 ║  | |_\__ \ | | | | | | |  | | | (_) | |                 ║
 ║   \__|___/_| |_| |_|_|_|  |_|  \___/|_|                 ║
 ║                                                            ║
 ║   offline mirror for rustup + crates.io-index              ║
 ╚══════════════════════════════════════════════════════════╝`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetVerbose(verbose)
	},
}

// SetVersionInfo records the build-time version metadata on the root command.
func SetVersionInfo(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// Execute runs the root command and returns a process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 2
	}
	return lastExitCode
}

// lastExitCode lets a subcommand (sync, gc) communicate a non-fatal
// partial-failure status back to main without cobra's Execute returning
// an error for what is, intentionally, not a fatal condition.
var lastExitCode int

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(gcCmd)
}
