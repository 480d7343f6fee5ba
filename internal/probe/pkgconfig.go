package probe

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"runtime"
	"strings"

	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/config"
)

// DefaultModule is the pkg-config module queried for the global library.
const DefaultModule = "vips-cpp"

// systemPkgConfigDirs are appended after any caller-provided search path.
var systemPkgConfigDirs = []string{
	"/usr/local/lib/pkgconfig",
	"/usr/lib/pkgconfig",
	"/usr/local/libdata/pkgconfig",
	"/usr/libdata/pkgconfig",
}

// runFunc runs a command with extra environment and returns its stdout.
type runFunc func(ctx context.Context, env []string, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(env) > 0 {
		cmd.Env = append(cmd.Environ(), env...)
	}
	return cmd.Output()
}

// PkgConfig queries the installed library version with pkg-config.
type PkgConfig struct {
	Module string

	env      config.Env
	goos     string
	run      runFunc
	lookPath func(file string) (string, error)
}

// NewPkgConfig returns a probe for DefaultModule. env supplies PATH-like
// settings such as PKG_CONFIG_PATH.
func NewPkgConfig(env config.Env) *PkgConfig {
	if env == nil {
		env = config.Env{}
	}
	return &PkgConfig{
		Module:   DefaultModule,
		env:      env,
		goos:     runtime.GOOS,
		run:      runCommand,
		lookPath: exec.LookPath,
	}
}

// Query implements VersionProbe. Any failure means no version; Windows
// is never queried.
func (p *PkgConfig) Query(ctx context.Context) (string, bool) {
	if p.goos == "windows" {
		return "", false
	}

	out, err := p.run(ctx, []string{"PKG_CONFIG_PATH=" + p.SearchPath(ctx)}, "pkg-config", "--modversion", p.Module)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(string(out))
	return v, v != ""
}

// SearchPath returns the PKG_CONFIG_PATH used for the query: Homebrew's
// pkg-config directory when brew is installed, the caller's
// PKG_CONFIG_PATH, then the usual system locations. It is empty on Windows.
func (p *PkgConfig) SearchPath(ctx context.Context) string {
	if p.goos == "windows" {
		return ""
	}

	parts := []string{p.brewPkgConfigDir(ctx), p.env.Get("PKG_CONFIG_PATH")}
	parts = append(parts, systemPkgConfigDirs...)

	var kept []string
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, ":")
}

// brewPkgConfigDir reads PKG_CONFIG_LIBDIR from `brew environment --plain`.
func (p *PkgConfig) brewPkgConfigDir(ctx context.Context) string {
	brew, err := p.lookPath("brew")
	if err != nil {
		return ""
	}
	out, err := p.run(ctx, nil, brew, "environment", "--plain")
	if err != nil {
		return ""
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "PKG_CONFIG_LIBDIR" {
			return fields[1]
		}
	}
	return ""
}
