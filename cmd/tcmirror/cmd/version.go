package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print tcmirror version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tcmirror version information:\n")
		fmt.Printf("  version:    %s\n", version)
		fmt.Printf("  commit:     %s\n", commit)
		fmt.Printf("  build time: %s\n", buildTime)
	},
}
