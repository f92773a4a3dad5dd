package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// ErrUnsupportedPlatform is returned when the host architecture cannot be
// mapped to a canonical platform key.
var ErrUnsupportedPlatform = fmt.Errorf("unsupported platform")

// Key identifies a target platform.
type Key struct {
	OS      string // linux, macos, windows
	Arch    string // x86_64, aarch64, armv7, i686
	Variant string // libc flavor for linux (musl or gnu), empty otherwise
}

// Detect returns the platform key for the running host.
func Detect() (Key, error) {
	return detect(runtime.GOOS, runtime.GOARCH, detectLibc())
}

func detect(goos, goarch, libc string) (Key, error) {
	arch, err := NormalizeArch(goarch)
	if err != nil {
		return Key{}, err
	}

	os := goos
	if os == "darwin" {
		os = "macos"
	}

	key := Key{OS: os, Arch: arch}
	if os == "linux" {
		key.Variant = libc
	}
	return key, nil
}

// String returns the canonical form os-arch[-variant].
func (k Key) String() string {
	if k.Variant != "" {
		return fmt.Sprintf("%s-%s-%s", k.OS, k.Arch, k.Variant)
	}
	return fmt.Sprintf("%s-%s", k.OS, k.Arch)
}

// Candidates returns the platform keys to try against a manifest platform
// map, most specific first. For linux the order after the exact key is:
// variant stripped, then musl, then gnu. A musl build is static and runs
// on glibc hosts, so musl outranks gnu regardless of the host libc.
func (k Key) Candidates() []string {
	base := fmt.Sprintf("%s-%s", k.OS, k.Arch)

	var keys []string
	if k.Variant != "" {
		keys = append(keys, k.String())
	}
	keys = append(keys, base)
	if k.OS == "linux" {
		keys = append(keys, base+"-musl", base+"-gnu")
	}

	seen := make(map[string]bool, len(keys))
	out := keys[:0]
	for _, key := range keys {
		if !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	return out
}

// VariantPreference returns the libc variant tokens to try when matching
// free-form release asset names, most specific first. The empty string
// means "no variant qualifier".
func (k Key) VariantPreference() []string {
	if k.OS != "linux" {
		return []string{""}
	}
	if k.Variant == "gnu" {
		return []string{"gnu", "musl", ""}
	}
	return []string{"musl", "gnu", ""}
}

// NormalizeArch maps the architecture names seen in the wild onto the
// canonical set {x86_64, aarch64, armv7, i686}.
func NormalizeArch(arch string) (string, error) {
	switch strings.ToLower(arch) {
	case "x86_64", "amd64", "x64":
		return "x86_64", nil
	case "aarch64", "arm64":
		return "aarch64", nil
	case "armv7", "armv7l", "arm":
		return "armv7", nil
	case "i686", "i386", "386", "x86":
		return "i686", nil
	default:
		return "", fmt.Errorf("%w: unknown architecture %q", ErrUnsupportedPlatform, arch)
	}
}

// ArchAliases returns the case-insensitive name alternations used to spot
// an architecture inside a release asset filename.
func ArchAliases(arch string) []string {
	switch arch {
	case "x86_64":
		return []string{"x86_64", "amd64", "x64"}
	case "aarch64":
		return []string{"aarch64", "arm64"}
	case "armv7":
		return []string{"armv7l", "armv7", "armhf"}
	case "i686":
		return []string{"i686", "i386", "386"}
	default:
		return []string{arch}
	}
}

// OSAliases returns the name alternations used to spot an operating
// system inside a release asset filename.
func OSAliases(os string) []string {
	switch os {
	case "macos":
		return []string{"macos", "darwin", "osx", "mac"}
	case "windows":
		return []string{"windows", "win"}
	default:
		return []string{os}
	}
}
