package installer

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/binary"
	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/config"
	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/transaction"
)

// ErrUseGlobal signals that a suitable system-wide libvips was found and
// build tooling must link against it. No install is attempted.
var ErrUseGlobal = errors.New("using the global libvips; nothing installed")

// UnsupportedError rejects a platform no prebuilt archive exists for.
type UnsupportedError struct {
	Platform   string
	MinVersion string
	Remedy     string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("prebuilt libvips binaries are not available for %s: %s", e.Platform, e.Remedy)
}

// CompatibilityError reports a host component older than the archives need.
type CompatibilityError struct {
	Platform  string
	Component string // "glibc", "musl" or "go"
	Found     string
	Required  string
}

func (e *CompatibilityError) Error() string {
	if e.Component == "go" {
		return fmt.Sprintf("go toolchain %s does not satisfy the required range %s", e.Found, e.Required)
	}
	return fmt.Sprintf("%s %s is older than the minimum %s required by %s binaries", e.Component, e.Found, e.Required, e.Platform)
}

// Hints returns remediation lines for err, most specific first.
func Hints(err error) []string {
	if err == nil {
		return nil
	}

	var hints []string

	var unsupported *UnsupportedError
	var compat *CompatibilityError
	var notAvailable *binary.NotAvailableError
	var integrity *binary.IntegrityError
	var status *binary.StatusError

	switch {
	case errors.Is(err, ErrUseGlobal):
		hints = append(hints,
			"link against the global libvips, e.g. with `pkg-config --libs vips-cpp`",
			fmt.Sprintf("set %s=1 to install a vendored copy instead", config.EnvIgnoreGlobal))
	case errors.As(err, &unsupported):
		hints = append(hints, unsupported.Remedy)
	case errors.As(err, &compat):
		if compat.Component == "go" {
			hints = append(hints, fmt.Sprintf("upgrade the Go toolchain to a version matching %s", compat.Required))
		} else {
			hints = append(hints, fmt.Sprintf("upgrade %s to %s or later, or install libvips globally", compat.Component, compat.Required))
		}
		hints = append(hints, fmt.Sprintf("set %s=1 to install anyway", config.EnvInstallForce))
	case errors.As(err, &notAvailable):
		hints = append(hints,
			fmt.Sprintf("install libvips >= %s globally so that pkg-config can find it", notAvailable.Version),
			fmt.Sprintf("or point %s or %s at a host that publishes %s archives", config.EnvDistBaseURL, config.EnvBinaryHost, notAvailable.Platform))
	case errors.As(err, &integrity):
		hints = append(hints,
			"the archive did not match its recorded digest and was discarded",
			"re-run to download it again; if it keeps failing the dist host may be serving a different build")
	case errors.Is(err, binary.ErrCorruptArchive):
		hints = append(hints, "delete the archive and re-run to fetch a fresh copy")
	case errors.Is(err, binary.ErrIncompleteDownload), errors.As(err, &status):
		hints = append(hints,
			"check network connectivity and re-run",
			fmt.Sprintf("behind a proxy, set %s or HTTPS_PROXY", config.EnvProxy))
	case errors.Is(err, transaction.ErrLockExists):
		hints = append(hints, "wait for the other install to finish; remove the lock file if no install is running")
	}

	if errors.Is(err, fs.ErrPermission) {
		hints = append(hints,
			"run the installer as the owner of the vendor and cache directories",
			"or run it as a privileged user, e.g. with sudo",
			fmt.Sprintf("or choose writable locations with %s and %s", config.EnvVendorDir, config.EnvCacheDir))
	}

	return hints
}
