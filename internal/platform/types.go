// Package platform identifies the host the native library is installed for.
//
// Detection gathers raw facts about the host (Go OS/arch, Linux distribution
// via gopsutil, C library family and version). Resolve then folds explicit
// overrides over those facts and produces a Target, whose Tag is the
// release-naming identifier used for archive names and vendor paths,
// e.g. "linux-x64", "linuxmusl-arm64v8" or "win32-ia32".
package platform

import (
	"context"
	"fmt"
)

// Linux distribution family constants.
// These represent canonical family names for grouping related distributions.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyGentoo  = "gentoo"  // Gentoo
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// C library families reported by the libc probe.
const (
	LibcGlibc = "glibc"
	LibcMusl  = "musl"
)

// Info contains raw host detection results, in Go naming.
type Info struct {
	OS          string // runtime.GOOS
	Arch        string // runtime.GOARCH
	ARMVersion  string // GOARM of this build, empty when unknown
	KernelArch  string // kernel machine name, e.g. "x86_64"
	Platform    string // distro ID (Linux only, e.g., "ubuntu", "alpine")
	Family      string // canonical family (e.g., "debian", "alpine")
	Version     string // distro version (Linux only, e.g., "22.04")
	Libc        string // "glibc", "musl" or empty (Linux only)
	LibcVersion string // e.g. "2.35", "1.2.4"; empty when unknown
}

// Distro contains Linux distribution information.
// This is nil on non-Linux platforms.
type Distro struct {
	ID      string
	Family  string
	Version string
}

// GetDistro returns distro information if this is a Linux platform.
// Returns nil for non-Linux platforms or if distro detection failed.
func (i *Info) GetDistro() *Distro {
	if i.OS != "linux" || i.Platform == "" {
		return nil
	}
	return &Distro{
		ID:      i.Platform,
		Family:  i.Family,
		Version: i.Version,
	}
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// IsMusl returns true on Linux hosts using the musl C library.
func (i *Info) IsMusl() bool {
	return i.OS == "linux" && i.Libc == LibcMusl
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// Overrides are explicit platform values that take precedence over
// detection. Empty fields are ignored.
type Overrides struct {
	Platform   string
	Arch       string
	Libc       string
	ARMVersion string
}

// Target is a resolved installation target in release naming.
type Target struct {
	Platform   string // "linux", "darwin", "win32", ...
	Libc       string // empty, or the non-glibc Linux family ("musl")
	Arch       string // "x64", "ia32", "arm", "arm64", ...
	ARMVersion string // "8" for arm64, "6"/"7" for arm, empty otherwise
}

// PlatformID returns the platform with its libc qualifier, e.g. "linuxmusl".
func (t Target) PlatformID() string {
	return t.Platform + t.Libc
}

// ArchID returns the architecture with its ARM variant, e.g. "arm64v8".
func (t Target) ArchID() string {
	if t.ARMVersion == "" {
		return t.Arch
	}
	return fmt.Sprintf("%sv%s", t.Arch, t.ARMVersion)
}

// Tag returns the platform tag, e.g. "linuxmusl-arm64v8".
func (t Target) Tag() string {
	return t.PlatformID() + "-" + t.ArchID()
}

// String implements fmt.Stringer.
func (t Target) String() string {
	return t.Tag()
}

// IsLinux returns true when the target platform is Linux.
func (t Target) IsLinux() bool {
	return t.Platform == "linux"
}

// IsWindows returns true when the target platform is Windows.
func (t Target) IsWindows() bool {
	return t.Platform == "win32"
}
