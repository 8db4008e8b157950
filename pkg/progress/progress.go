// Package progress renders a single mpb progress bar fed by a channel of
// messages, the same single-renderer-goroutine shape the teacher uses in
// pkg/mirror/batch: every worker goroutine only ever sends on the channel,
// so the progress bar's internal state is touched from one goroutine.
package progress

import (
	"fmt"
	"io"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// MsgKind discriminates the small set of things a worker can tell the
// renderer.
type MsgKind int

const (
	// Increment advances the bar by one unit.
	Increment MsgKind = iota
	// SetTotal resets the bar's total unit count.
	SetTotal
	// Println emits a line above the bar without disturbing it.
	Println
	// Done signals that no more messages will be sent.
	Done
)

// Msg is one message sent from a worker goroutine to the renderer.
type Msg struct {
	Kind  MsgKind
	Total int
	Text  string
}

// StepPrefix formats a "[n/total]" step prefix, padding n to the width of
// total so prefixes line up across steps.
func StepPrefix(step, total int) string {
	width := len(fmt.Sprintf("%d", total))
	return fmt.Sprintf("[%*d/%d]", width, step, total)
}

// PaddedMessage joins StepPrefix with a human description.
func PaddedMessage(step, total int, message string) string {
	return fmt.Sprintf("%s %s", StepPrefix(step, total), message)
}

// Render starts an mpb bar for total units labeled prefix and returns a
// channel the caller's workers send Msgs to, plus a done channel that
// closes once the renderer has drained every message. Pass showBars=false
// in non-interactive environments (CI, piped output) to discard bar frames
// while still honoring Println messages.
func Render(prefix string, total int, out io.Writer, showBars bool) (chan<- Msg, <-chan struct{}) {
	msgs := make(chan Msg, 64)
	finished := make(chan struct{})

	containerOpts := []mpb.ContainerOption{}
	if !showBars {
		containerOpts = append(containerOpts, mpb.WithOutput(io.Discard))
	} else if out != nil {
		containerOpts = append(containerOpts, mpb.WithOutput(out))
	}
	p := mpb.New(containerOpts...)

	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(decor.Name(prefix, decor.WC{W: len(prefix) + 1, C: decor.DSyncSpaceR})),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
	)

	go func() {
		defer close(finished)
		for msg := range msgs {
			switch msg.Kind {
			case Increment:
				bar.Increment()
			case SetTotal:
				bar.SetTotal(int64(msg.Total), false)
			case Println:
				if out != nil {
					fmt.Fprintln(out, msg.Text)
				}
			case Done:
				bar.SetTotal(bar.Current(), true)
				p.Wait()
				return
			}
		}
		p.Wait()
	}()

	return msgs, finished
}
