// Package manifest decodes the TOML documents rustup publishes per channel
// and per release: channel-rust-<channel>.toml (the per-platform artifact
// catalog) and release-stable.toml (the current rustup-init version
// pointer).
package manifest

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// TargetURLs is the pair of archive formats rustup publishes for a
// platform: a plain tarball and an xz-compressed one, each with its own
// digest.
type TargetURLs struct {
	URL    string
	Hash   string
	XZURL  string
	XZHash string
}

// Target is one platform entry under a package. Available is the
// authoritative signal for whether this platform ships the package; URLs
// must never be treated as present just because Available is true, nor
// absence of URLs treated as Available being false — the two are
// independent fields in the upstream document.
type Target struct {
	Available bool
	URLs      *TargetURLs
}

// UnmarshalTOML decodes one target table so Target can treat the
// url/hash/xz_url/xz_hash quartet as present-or-absent as a unit, matching
// the upstream schema's optional flattened struct. go-toml/v2 does not call
// it itself; ParseChannel decodes each target table into a generic map and
// passes that map here.
func (t *Target) UnmarshalTOML(value interface{}) error {
	table, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("target: expected a table, got %T", value)
	}

	if available, ok := table["available"].(bool); ok {
		t.Available = available
	}

	url, hasURL := table["url"].(string)
	hash, hasHash := table["hash"].(string)
	xzURL, hasXZURL := table["xz_url"].(string)
	xzHash, hasXZHash := table["xz_hash"].(string)

	if !hasURL || !hasHash || !hasXZURL || !hasXZHash {
		t.URLs = nil
		return nil
	}
	t.URLs = &TargetURLs{URL: url, Hash: hash, XZURL: xzURL, XZHash: xzHash}
	return nil
}

// Pkg is one component (rustc, cargo, rust-std, rustc-dev, ...) within a
// channel manifest.
type Pkg struct {
	Version string            `toml:"version"`
	Target  map[string]Target `toml:"target"`
}

// Channel is the parsed form of dist/channel-rust-<channel>.toml.
type Channel struct {
	ManifestVersion string         `toml:"manifest-version"`
	Date            string         `toml:"date"`
	Pkg             map[string]Pkg `toml:"pkg"`
}

// Release is the parsed form of rustup/release-stable.toml: the current
// rustup-init version pointer.
type Release struct {
	SchemaVersion string `toml:"schema-version"`
	Version       string `toml:"version"`
}

// ParseChannel decodes a channel-rust-*.toml document.
func ParseChannel(data []byte) (*Channel, error) {
	var ch Channel
	if err := toml.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("parse channel manifest: %w", err)
	}
	var raw struct {
		Pkg map[string]struct{ Target map[string]map[string]interface{} `toml:"target"` } `toml:"pkg"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse channel manifest: %w", err)
	}
	for name, rp := range raw.Pkg {
		for triple, table := range rp.Target {
			var t Target
			if err := t.UnmarshalTOML(table); err != nil {
				return nil, fmt.Errorf("parse channel manifest: pkg %s target %s: %w", name, triple, err)
			}
			ch.Pkg[name].Target[triple] = t
		}
	}
	return &ch, nil
}

// ParseRelease decodes a release-stable.toml document.
func ParseRelease(data []byte) (*Release, error) {
	var rel Release
	if err := toml.Unmarshal(data, &rel); err != nil {
		return nil, fmt.Errorf("parse release manifest: %w", err)
	}
	return &rel, nil
}
