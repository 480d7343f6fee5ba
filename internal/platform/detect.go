package platform

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using actual platform detection.
type RealDetector struct {
	libc *LibcProbe
}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{libc: NewLibcProbe()}
}

// Detect performs platform detection and returns platform information.
// It uses runtime.GOOS and runtime.GOARCH for OS and architecture,
// and gopsutil for the kernel architecture and Linux distribution.
//
// Detection failures degrade to empty fields rather than errors, so a
// target can always be resolved from the Go values alone. Only context
// cancellation is reported.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		ARMVersion: buildARMVersion(),
	}

	if kernelArch, err := host.KernelArch(); err == nil {
		info.KernelArch = kernelArch
	}

	if runtime.GOOS != "linux" {
		return info, nil
	}

	platform, family, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
	} else if platform = normalizePlatform(platform); platform != "" {
		info.Platform = platform
		info.Family = mapFamily(family)
		info.Version = normalizePlatform(version)
		// gopsutil reports alpine as its own family
		if info.Platform == FamilyAlpine {
			info.Family = FamilyAlpine
		}
	}

	if d.libc != nil {
		info.Libc, info.LibcVersion = d.libc.Detect(ctx)
	}
	if info.Libc == "" && info.Family == FamilyAlpine {
		info.Libc = LibcMusl
	}

	return info, nil
}

// buildARMVersion returns the GOARM setting this binary was built with.
func buildARMVersion() string {
	if runtime.GOARCH != "arm" {
		return ""
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == "GOARM" {
			// GOARM may carry a float suffix, e.g. "7,hardfloat"
			v, _, _ := strings.Cut(s.Value, ",")
			return normalizeARMVersion(v)
		}
	}
	return ""
}
