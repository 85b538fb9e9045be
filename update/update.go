// Package update checks GitHub releases for a newer BarkBack build and
// can swap the running binary in place.
package update

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

const (
	Repo       = "MartinO24/BarkBack"
	BinaryName = "barkback"
)

type Release struct {
	Version     string
	AssetURL    string
	ChecksumURL string
}

// NewerThan reports whether the release is strictly newer than the
// currently running version. Unparseable versions (dev builds) never
// trigger an update.
func (r Release) NewerThan(current string) bool {
	cur, err := parseVersion(current)
	if err != nil {
		return false
	}
	rel, err := parseVersion(r.Version)
	if err != nil {
		return false
	}
	for i := range rel {
		if rel[i] != cur[i] {
			return rel[i] > cur[i]
		}
	}
	return false
}

// parseVersion reads "v1.2.3" into its three numbers, ignoring any
// pre-release or build suffix.
func parseVersion(v string) ([3]int, error) {
	var out [3]int
	v = strings.TrimPrefix(v, "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return out, fmt.Errorf("invalid version %q", v)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return out, fmt.Errorf("invalid version %q: %w", v, err)
		}
		out[i] = n
	}
	return out, nil
}

func assetName() string {
	name := fmt.Sprintf("%s_%s_%s", BinaryName, runtime.GOOS, runtime.GOARCH)
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return name
}
