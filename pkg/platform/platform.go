// Package platform holds the fixed rustup target-triple catalogs and the
// configuration validation rules that constrain which ones a mirror run
// will fetch. The catalogs are closed lists, not discovered at runtime: a
// mirror that doesn't recognize a triple should fail configuration loading
// loudly rather than silently skip it.
package platform

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Unix lists every unix-like rustup target triple known at
// https://rust-lang.github.io/rustup/installation/other.html.
var Unix = []string{
	"aarch64-fuschia",
	"aarch64-linux-android",
	"aarch64-pc-windows-msvc",
	"aarch64-unknown-hermit",
	"aarch64-unknown-linux-gnu",
	"aarch64-unknown-none",
	"aarch64-unknown-none-softfloat",
	"aarch64-unknown-redox",
	"arm-linux-androideabi",
	"arm-unknown-linux-gnueabi",
	"arm-unknown-linux-gnueabihf",
	"arm-unknown-linux-musleabi",
	"arm-unknown-linux-musleabihf",
	"armebv7r-none-eabi",
	"armebv7r-none-eabihf",
	"armv5te-unknown-linux-gnueabi",
	"armv5te-unknown-linux-musleabi",
	"armv7-apple-ios",
	"armv7-linux-androideabi",
	"armv7-unknown-linux-gnueabi",
	"armv7-unknown-linux-gnueabihf",
	"armv7s-apple-ios",
	"asmjs-unknown-emscripten",
	"i386-apple-ios",
	"i586-pc-windows-msvc",
	"i586-unknown-linux-gnu",
	"i586-unknown-linux-musl",
	"i686-apple-darwin",
	"i686-linux-android",
	"i686-unknown-freebsd",
	"i686-unknown-linux-gnu",
	"i686-unknown-linux-musl",
	"mips-unknown-linux-gnu",
	"mips64-unknown-linux-gnuabi64",
	"mips64-unknown-linux-muslabi64",
	"mips64el-unknown-linux-gnuabi64",
	"mips64el-unknown-linux-muslabi64",
	"mipsel-unknown-linux-gnu",
	"mipsisa32r6el-unknown-linux-gnu",
	"mipsisa64r6-unknown-linux-gnuabi64",
	"mipsisa64r6el-unknown-linux-gnuabi64",
	"nvptx64-nvidia-cuda",
	"powerpc-unknown-linux-gnu",
	"powerpc64-unknown-linux-gnu",
	"powerpc64le-unknown-linux-gnu",
	"riscv32gc-unknown-linux-gnu",
	"riscv32i-unknown-none-elf",
	"riscv32imac-unknown-none-elf",
	"riscv32imc-unknown-none-elf",
	"riscv64gc-unknown-none-elf",
	"riscv64imac-unknown-none-elf",
	"s390x-unknown-linux-gnu",
	"sparc64-unknown-linux-gnu",
	"sparcv9-sun-solaris",
	"thumbv6m-none-eabi",
	"thumbv7em-none-eabi",
	"thumbv7neon-linux-androideabi",
	"thumbv7neon-unknown-linux-gnueabihf",
	"wasm32-unknown-emscripten",
	"wasm32-unknown-unknown",
	"wasm32-wasi",
	"x86_64-apple-darwin",
	"x86_64-apple-ios",
	"x86_64-fortanix-unknown-sgx",
	"x86_64-fuschia",
	"x86_64-linux-android",
	"x86_64-pc-solaris",
	"x86_64-rumprun-netbsd",
	"x86_64-sun-solaris",
	"x86_64-unknown-freebsd",
	"x86_64-unknown-linux-gnu",
	"x86_64-unknown-linux-gnux32",
	"x86_64-unknown-linux-musl",
	"x86_64-unknown-netbsd",
	"x86_64-unknown-redox",
}

// Windows lists the triples whose rustup-init binary carries a .exe
// extension.
var Windows = []string{
	"i586-pc-windows-msvc",
	"i686-pc-windows-gnu",
	"i686-pc-windows-msvc",
	"x86_64-pc-windows-gnu",
	"x86_64-pc-windows-msvc",
}

// Set is the resolved pair of platform lists a sync run targets.
type Set struct {
	Unix    []string
	Windows []string
}

// All reports whether triple appears in either catalog.
func All(triple string) bool {
	return contains(Unix, triple) || contains(Windows, triple)
}

func contains(list []string, triple string) bool {
	for _, t := range list {
		if t == triple {
			return true
		}
	}
	return false
}

// Resolve validates the configured unix/windows platform lists against the
// fixed catalogs and returns the effective Set. A nil list defaults to the
// entire corresponding catalog; a non-nil list containing any triple
// outside the catalog is rejected outright rather than filtered.
func Resolve(configuredUnix, configuredWindows *[]string) (Set, error) {
	unix, err := resolveList(configuredUnix, Unix, "platforms_unix")
	if err != nil {
		return Set{}, err
	}
	windows, err := resolveList(configuredWindows, Windows, "platforms_windows")
	if err != nil {
		return Set{}, err
	}
	return Set{Unix: unix, Windows: windows}, nil
}

func resolveList(configured *[]string, catalog []string, field string) ([]string, error) {
	if configured == nil {
		out := make([]string, len(catalog))
		copy(out, catalog)
		return out, nil
	}

	var bad []string
	for _, triple := range *configured {
		if !contains(catalog, triple) {
			bad = append(bad, triple)
		}
	}
	if len(bad) > 0 {
		return nil, fmt.Errorf("bad value(s) for %q: %v", field, bad)
	}

	out := make([]string, len(*configured))
	copy(out, *configured)
	return out, nil
}

// ValidatePinnedVersions checks that every pinned rust version string is a
// well-formed semantic version. A pinned version names a specific release
// (e.g. "1.70.0") rather than a rolling channel, so unlike channel names it
// can be checked for shape before ever hitting the network.
func ValidatePinnedVersions(versions []string) error {
	for _, v := range versions {
		if _, err := semver.NewVersion(v); err != nil {
			return fmt.Errorf("pinned rust version %q is not a valid version: %w", v, err)
		}
	}
	return nil
}

// IsRelevant reports whether name (a manifest pkg-target key) matches one of
// the resolved platforms, or is the "*" wildcard that always ships
// (rust-src and similar platform-independent components).
func (s Set) IsRelevant(name string) bool {
	if name == "*" {
		return true
	}
	return contains(s.Unix, name) || contains(s.Windows, name)
}
