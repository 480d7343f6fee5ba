package platform

import (
	"context"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

// lddPath is where the dynamic linker helper lives on most distributions.
const lddPath = "/usr/bin/ldd"

var (
	muslVersionPattern  = regexp.MustCompile(`(?m)^Version\s+(\d+\.\d+(?:\.\d+)?)`)
	glibcVersionPattern = regexp.MustCompile(`(\d+\.\d+)\s*$`)
)

// LibcProbe reports the C library family and version of a Linux host.
type LibcProbe struct {
	// run executes a command and returns its combined output.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
	// readFile reads a file from disk.
	readFile func(path string) ([]byte, error)
}

// NewLibcProbe creates a probe that inspects the real host.
func NewLibcProbe() *LibcProbe {
	return &LibcProbe{
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
		readFile: os.ReadFile,
	}
}

// Detect returns the libc family and version. Either may be empty when
// the host gives no answer; that is not an error.
//
// `ldd --version` is asked first because it also reveals the version. musl's
// ldd prints its banner and exits non-zero, so output is inspected
// regardless of the exit status. When that fails the ldd script itself is
// inspected, which reveals the family only.
func (p *LibcProbe) Detect(ctx context.Context) (family, version string) {
	if out, _ := p.run(ctx, "ldd", "--version"); len(out) > 0 {
		if family, version = parseLddOutput(string(out)); family != "" {
			return family, version
		}
	}

	if content, err := p.readFile(lddPath); err == nil {
		return parseLddScript(string(content)), ""
	}

	return "", ""
}

// parseLddOutput extracts the libc family and version from `ldd --version`.
func parseLddOutput(out string) (family, version string) {
	lower := strings.ToLower(out)
	switch {
	case strings.Contains(lower, "musl"):
		if m := muslVersionPattern.FindStringSubmatch(out); m != nil {
			version = m[1]
		}
		return LibcMusl, version
	case strings.Contains(lower, "gnu libc"), strings.Contains(lower, "glibc"), strings.Contains(lower, "gnu c library"):
		firstLine, _, _ := strings.Cut(out, "\n")
		if m := glibcVersionPattern.FindStringSubmatch(strings.TrimSpace(firstLine)); m != nil {
			version = m[1]
		}
		return LibcGlibc, version
	default:
		return "", ""
	}
}

// parseLddScript identifies the libc family from the contents of the ldd
// script or binary.
func parseLddScript(content string) string {
	switch {
	case strings.Contains(content, "musl"):
		return LibcMusl
	case strings.Contains(content, "GNU C Library"), strings.Contains(content, "GLIBC"):
		return LibcGlibc
	default:
		return ""
	}
}
