// Package ledger maintains the per-channel history files
// (mirror-<channel>-history.toml) that record which artifact paths were
// committed on each sync date. Retention GC consults these files to decide
// what the most recent N releases are; a naive string sort over the date
// keys silently misorders dates once centuries or malformed entries show
// up, so every read here goes through strict RFC 3339 date parsing.
package ledger

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"

	"tcmirror/pkg/fsutil"
)

const dateLayout = "2006-01-02"

// History is the decoded form of a mirror-<channel>-history.toml file:
// sync date to the set of artifact paths committed on that date.
type History struct {
	Versions map[string][]string `toml:"versions"`
}

// Path returns the history file path for channel within root.
func Path(root, channel string) string {
	return fmt.Sprintf("%s/mirror-%s-history.toml", root, channel)
}

// Load reads the history file for channel, returning an empty History if
// it does not yet exist.
func Load(root, channel string) (*History, error) {
	path := Path(root, channel)
	if !fsutil.FileExists(path) {
		return &History{Versions: map[string][]string{}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", path, err)
	}

	var h History
	if err := toml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", path, err)
	}
	if h.Versions == nil {
		h.Versions = map[string][]string{}
	}
	return &h, nil
}

// Save writes the history file for channel.
func Save(root, channel string, h *History) error {
	data, err := toml.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode history for %s: %w", channel, err)
	}
	return fsutil.WriteFileCreateDir(Path(root, channel), data)
}

// Record adds (or replaces) the entry for date with the given set of
// committed artifact paths.
func (h *History) Record(date string, paths []string) {
	if h.Versions == nil {
		h.Versions = map[string][]string{}
	}
	h.Versions[date] = paths
}

// SortedDates returns every date key in h, parsed as strict YYYY-MM-DD and
// sorted oldest-first. Malformed date keys are dropped rather than sorted
// lexically, since a naive string sort over ISO dates breaks as soon as an
// invalid or non-padded entry appears.
func (h *History) SortedDates() []string {
	type parsed struct {
		raw string
		t   time.Time
	}
	var dates []parsed
	for raw := range h.Versions {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			continue
		}
		dates = append(dates, parsed{raw: raw, t: t})
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].t.Before(dates[j].t) })

	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.raw
	}
	return out
}

// LatestDates returns the n most recent valid dates in h, newest first.
func (h *History) LatestDates(n int) []string {
	sorted := h.SortedDates()
	// sorted is oldest-first; reverse to newest-first before truncating.
	reversed := make([]string, len(sorted))
	for i, d := range sorted {
		reversed[len(sorted)-1-i] = d
	}
	if n < len(reversed) {
		reversed = reversed[:n]
	}
	return reversed
}

// PathsForDates collects the union of artifact paths recorded on any of
// dates.
func (h *History) PathsForDates(dates []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, date := range dates {
		for _, p := range h.Versions[date] {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
