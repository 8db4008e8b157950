package cmd

import (
	"os"

	"tcmirror/pkg/progress"
)

// newTerminalProgress is a driver.ProgressFactory that renders one mpb bar
// per step to stderr, following the same single-renderer-goroutine shape
// pkg/progress.Render documents. The gc command also calls it directly and
// passes the returned channel to retention.Run.
func newTerminalProgress(stepName string, total int) (chan<- progress.Msg, func()) {
	msgs, finished := progress.Render(stepName, total, os.Stderr, true)
	return msgs, func() {
		msgs <- progress.Msg{Kind: progress.Done}
		<-finished
	}
}
