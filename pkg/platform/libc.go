package platform

import (
	"path/filepath"
	"runtime"
)

// muslLoaderGlobs are the places a musl dynamic loader shows up. Overridden
// in tests.
var muslLoaderGlobs = []string{
	"/lib/ld-musl-*.so*",
	"/usr/lib/ld-musl-*.so*",
}

// detectLibc reports the host C library flavor on linux by probing for a
// musl dynamic loader. Anything without one is treated as gnu.
func detectLibc() string {
	if runtime.GOOS != "linux" {
		return ""
	}
	for _, pattern := range muslLoaderGlobs {
		matches, err := filepath.Glob(pattern)
		if err == nil && len(matches) > 0 {
			return "musl"
		}
	}
	return "gnu"
}
