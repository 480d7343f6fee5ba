// Package version implements the version policy of the installer: coercing
// loosely written version strings into semantic versions and comparing them.
package version

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/blang/semver"
)

// coercePattern finds the first major[.minor[.patch]] run in a string.
var coercePattern = regexp.MustCompile(`(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// Coerce converts a decorated version string ("v8.15.0", "libvips-8.15",
// "8.15.0-rc1 (build 3)") into a plain major.minor.patch version. Missing
// minor and patch components default to zero. Pre-release and build
// decorations are dropped.
func Coerce(s string) (semver.Version, error) {
	m := coercePattern.FindStringSubmatch(s)
	if m == nil {
		return semver.Version{}, fmt.Errorf("no version number in %q", s)
	}

	var parts [3]uint64
	for i := range parts {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseUint(m[i+1], 10, 64)
		if err != nil {
			return semver.Version{}, fmt.Errorf("parse version %q: %w", s, err)
		}
		parts[i] = n
	}

	return semver.Version{Major: parts[0], Minor: parts[1], Patch: parts[2]}, nil
}

// MustCoerce is like Coerce but panics on failure. It is intended for
// compiled-in constants.
func MustCoerce(s string) semver.Version {
	v, err := Coerce(s)
	if err != nil {
		panic(err)
	}
	return v
}

// AtLeast reports whether found is greater than or equal to min, comparing
// semantically. Unparseable input on either side yields false.
func AtLeast(found, min string) bool {
	f, err := Coerce(found)
	if err != nil {
		return false
	}
	m, err := Coerce(min)
	if err != nil {
		return false
	}
	return f.GTE(m)
}

// Satisfies reports whether v falls inside the range expression, e.g.
// ">=1.21.0 <2.0.0". v is coerced first, so "go1.22.3" is accepted.
func Satisfies(v, rangeExpr string) (bool, error) {
	parsed, err := Coerce(v)
	if err != nil {
		return false, err
	}
	r, err := semver.ParseRange(rangeExpr)
	if err != nil {
		return false, fmt.Errorf("parse range %q: %w", rangeExpr, err)
	}
	return r(parsed), nil
}

// MajorMinor truncates a version to major.minor.0. glibc versions are
// compared this way since its patch component is not meaningful.
func MajorMinor(v semver.Version) semver.Version {
	return semver.Version{Major: v.Major, Minor: v.Minor}
}
