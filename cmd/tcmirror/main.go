package main

import (
	"os"

	"tcmirror/cmd/tcmirror/cmd"
)

// Version, Commit, and BuildTime are injected at build time via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	cmd.SetVersionInfo(Version, Commit, BuildTime)
	os.Exit(cmd.Execute())
}
