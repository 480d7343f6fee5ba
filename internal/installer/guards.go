package installer

import (
	"fmt"

	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/platform"
	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/version"
)

// minimumGlibc is the oldest glibc each Linux prebuilt runs on, by arch.
var minimumGlibc = map[string]string{
	"arm":   "2.28",
	"arm64": "2.17",
	"x64":   "2.17",
}

// minimumMusl is the oldest musl each linuxmusl prebuilt runs on, by arch.
var minimumMusl = map[string]string{
	"x64":   "1.1.24",
	"arm64": "1.1.24",
}

// packageManagerOnly lists tags whose libvips must come from the OS
// package manager.
var packageManagerOnly = map[string]string{
	"linux-ppc64": "apt install libvips-dev, dnf install vips-devel or equivalent",
}

// manualInstall lists tags that need a manually installed libvips.
var manualInstall = map[string]string{
	"freebsd-x64": "pkg install -y pkgconf vips",
	"openbsd-x64": "pkg_add -I pkgconf vips",
	"sunos-x64":   "pkgin -y install pkgconf libvips",
}

// checkSupported rejects targets that have no prebuilt archive.
func checkSupported(target platform.Target, minVersion string) error {
	tag := target.Tag()

	if target.Arch == "ia32" && !target.IsWindows() {
		return &UnsupportedError{
			Platform:   tag,
			MinVersion: minVersion,
			Remedy:     fmt.Sprintf("32-bit Intel is only supported on Windows; install libvips >= %s globally and build from source", minVersion),
		}
	}
	if cmd, ok := packageManagerOnly[tag]; ok {
		return &UnsupportedError{
			Platform:   tag,
			MinVersion: minVersion,
			Remedy:     fmt.Sprintf("install libvips >= %s with the OS package manager, e.g. %s", minVersion, cmd),
		}
	}
	if cmd, ok := manualInstall[tag]; ok {
		return &UnsupportedError{
			Platform:   tag,
			MinVersion: minVersion,
			Remedy:     fmt.Sprintf("install libvips >= %s manually, e.g. %s", minVersion, cmd),
		}
	}
	return nil
}

// checkLibc compares the host C library with the target's minimum. Hosts
// whose libc is unknown, or differs from the target's, are not checked.
func checkLibc(info *platform.Info, target platform.Target) *CompatibilityError {
	if info == nil || !info.IsLinux() || !target.IsLinux() || info.LibcVersion == "" {
		return nil
	}

	wantMusl := target.Libc == platform.LibcMusl
	if wantMusl != info.IsMusl() {
		return nil
	}

	found, err := version.Coerce(info.LibcVersion)
	if err != nil {
		return nil
	}

	if wantMusl {
		min, ok := minimumMusl[target.Arch]
		if !ok || found.GTE(version.MustCoerce(min)) {
			return nil
		}
		return &CompatibilityError{Platform: target.Tag(), Component: platform.LibcMusl, Found: info.LibcVersion, Required: min}
	}

	min, ok := minimumGlibc[target.Arch]
	if !ok || version.MajorMinor(found).GTE(version.MustCoerce(min)) {
		return nil
	}
	return &CompatibilityError{Platform: target.Tag(), Component: platform.LibcGlibc, Found: info.LibcVersion, Required: min}
}

// checkRuntime compares the Go toolchain version with the required range.
// An empty range accepts everything.
func checkRuntime(runtimeVersion, rangeExpr, tag string) error {
	if rangeExpr == "" {
		return nil
	}
	ok, err := version.Satisfies(runtimeVersion, rangeExpr)
	if err != nil {
		return fmt.Errorf("check go toolchain version: %w", err)
	}
	if !ok {
		return &CompatibilityError{Platform: tag, Component: "go", Found: runtimeVersion, Required: rangeExpr}
	}
	return nil
}
