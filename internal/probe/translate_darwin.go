//go:build darwin

package probe

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// underTranslation reports whether an amd64 binary runs under Rosetta.
func underTranslation() bool {
	if runtime.GOARCH != "amd64" {
		return false
	}
	translated, err := unix.SysctlUint32("sysctl.proc_translated")
	return err == nil && translated == 1
}
