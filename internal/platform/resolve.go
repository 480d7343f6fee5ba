package platform

// defaultARMVersion is assumed for 32-bit ARM when nothing reports a variant.
const defaultARMVersion = "6"

// Resolve folds overrides over detected host information and returns the
// installation target. It is a pure function of its inputs and always
// produces a target: unknown values pass through unchanged.
//
// The libc qualifier is only ever applied to Linux, and only for C libraries
// other than glibc. 64-bit ARM is always variant 8; 32-bit ARM uses the
// override, then the host-reported variant, then 6.
func Resolve(overrides Overrides, info *Info) Target {
	if info == nil {
		info = &Info{}
	}

	target := Target{
		Platform: normalizeOS(firstNonEmpty(overrides.Platform, info.OS)),
		Arch:     normalizeArch(firstNonEmpty(overrides.Arch, info.Arch)),
	}

	if target.IsLinux() {
		libc := normalizeLibc(firstNonEmpty(overrides.Libc, info.Libc))
		if libc != "" && libc != LibcGlibc {
			target.Libc = libc
		}
	}

	switch target.Arch {
	case "arm64":
		target.ARMVersion = "8"
	case "arm":
		target.ARMVersion = firstNonEmpty(
			normalizeARMVersion(overrides.ARMVersion),
			normalizeARMVersion(info.ARMVersion),
			defaultARMVersion,
		)
	}

	return target
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
