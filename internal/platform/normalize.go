package platform

import (
	"strings"
)

// familyMap maps distribution names to their canonical family names.
// This is used to normalize variations of family strings from gopsutil.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian, // gopsutil might return ubuntu as family
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
	"gentoo":   FamilyGentoo,
}

// osNames maps GOOS values to release platform names.
var osNames = map[string]string{
	"windows": "win32",
	"solaris": "sunos",
	"illumos": "sunos",
}

// archNames maps GOARCH and kernel machine names to release arch names.
var archNames = map[string]string{
	"amd64":   "x64",
	"x86_64":  "x64",
	"386":     "ia32",
	"i386":    "ia32",
	"i686":    "ia32",
	"x86":     "ia32",
	"aarch64": "arm64",
	"armv6l":  "arm",
	"armv7l":  "arm",
	"ppc64le": "ppc64",
}

// libcNames maps libc spellings to canonical families.
var libcNames = map[string]string{
	"glibc": LibcGlibc,
	"gnu":   LibcGlibc,
	"musl":  LibcMusl,
}

// normalizeOS converts a GOOS or release platform name to the release name.
// Unknown values pass through unchanged.
func normalizeOS(goos string) string {
	goos = strings.ToLower(strings.TrimSpace(goos))
	if name, ok := osNames[goos]; ok {
		return name
	}
	return goos
}

// normalizeArch converts a GOARCH, kernel or release arch name to the
// release name. Unknown values pass through unchanged.
func normalizeArch(arch string) string {
	arch = strings.ToLower(strings.TrimSpace(arch))
	if name, ok := archNames[arch]; ok {
		return name
	}
	return arch
}

// normalizeLibc converts a libc spelling to its canonical family.
// Unknown values pass through lower-cased.
func normalizeLibc(libc string) string {
	libc = strings.ToLower(strings.TrimSpace(libc))
	if name, ok := libcNames[libc]; ok {
		return name
	}
	return libc
}

// normalizeARMVersion strips a leading "v" from an ARM variant ("v7" → "7").
func normalizeARMVersion(v string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(v)), "v")
}

// normalizePlatform converts platform IDs to lowercase for consistency.
func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// mapFamily maps distribution family strings to canonical family names.
// Uses a package-level lookup table for explicit mapping.
func mapFamily(family string) string {
	normalized := strings.ToLower(strings.TrimSpace(family))
	if canonical, ok := familyMap[normalized]; ok {
		return canonical
	}

	// Return "unknown" for unrecognized families
	return FamilyUnknown
}
