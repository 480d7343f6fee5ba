package shell

import (
	"fmt"
	"path/filepath"
	"strings"
)

// EnvVendorDir names the exported vendor directory of the install.
const EnvVendorDir = "VIPSFETCH_LIBVIPS_DIR"

// BuildEnv returns the variables that point a build at the install in dir.
// platform uses release naming ("linux", "darwin", "win32", ...).
func BuildEnv(dir, platform string) []Var {
	lib := filepath.Join(dir, "lib")
	vars := []Var{
		{Name: EnvVendorDir, Value: dir},
		{Name: "PKG_CONFIG_PATH", Value: filepath.Join(lib, "pkgconfig"), PathList: true},
	}

	switch platform {
	case "darwin":
		vars = append(vars, Var{Name: "DYLD_LIBRARY_PATH", Value: lib, PathList: true})
	case "win32":
		vars = append(vars, Var{Name: "PATH", Value: lib, PathList: true})
	default:
		vars = append(vars, Var{Name: "LD_LIBRARY_PATH", Value: lib, PathList: true})
	}
	return vars
}

// Render formats vars as statements for shell.
func Render(shell ShellType, vars []Var) (string, error) {
	if err := ValidateShell(shell); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, v := range vars {
		switch shell {
		case ShellFish:
			if v.PathList {
				fmt.Fprintf(&b, "set -gx %s %s $%s\n", v.Name, quote(v.Value), v.Name)
			} else {
				fmt.Fprintf(&b, "set -gx %s %s\n", v.Name, quote(v.Value))
			}
		default:
			if v.PathList {
				fmt.Fprintf(&b, "export %s=%s\"${%s:+:$%s}\"\n", v.Name, quote(v.Value), v.Name, v.Name)
			} else {
				fmt.Fprintf(&b, "export %s=%s\n", v.Name, quote(v.Value))
			}
		}
	}
	return b.String(), nil
}

// ActivationCommand is the line users add to their rc file.
func ActivationCommand(shell ShellType) (string, error) {
	switch shell {
	case ShellBash, ShellZsh:
		return fmt.Sprintf(`eval "$(vipsfetch env %s)"`, shell), nil
	case ShellFish:
		return fmt.Sprintf("vipsfetch env %s | source", shell), nil
	default:
		return "", &UnsupportedShellError{Shell: shell.String()}
	}
}

// quote single-quotes s so that no shell expansion happens inside it.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
