package shell

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/config"
)

// parentName returns the executable name of the parent process.
var parentName = func(ctx context.Context) (string, error) {
	parent, err := process.NewProcessWithContext(ctx, int32(os.Getppid()))
	if err != nil {
		return "", err
	}
	return parent.NameWithContext(ctx)
}

// DetectShell detects the user's shell: $SHELL first, then the parent
// process. An undetectable shell yields ShellUnknown, not an error.
func DetectShell(ctx context.Context, env config.Env) *DetectionResult {
	if shell := env.Get("SHELL"); shell != "" {
		if shellType := parseShellFromPath(shell); shellType.IsValid() {
			return &DetectionResult{
				Shell:     shellType,
				Method:    "$SHELL environment variable",
				ShellPath: shell,
			}
		}
	}

	if name, err := parentName(ctx); err == nil {
		if shellType := parseShellFromPath(name); shellType.IsValid() {
			return &DetectionResult{
				Shell:     shellType,
				Method:    "parent process",
				ShellPath: name,
			}
		}
	}

	return &DetectionResult{Shell: ShellUnknown, Method: "detection failed"}
}

// parseShellFromPath extracts the shell type from a shell binary path
// Examples:
//   - /bin/bash -> bash
//   - /usr/bin/zsh -> zsh
//   - -fish (login shell) -> fish
func parseShellFromPath(shellPath string) ShellType {
	baseName := strings.ToLower(filepath.Base(shellPath))
	baseName = strings.TrimPrefix(baseName, "-")

	switch baseName {
	case "bash":
		return ShellBash
	case "zsh":
		return ShellZsh
	case "fish":
		return ShellFish
	default:
		return ShellUnknown
	}
}

// ParseShell converts a user supplied shell name.
func ParseShell(name string) (ShellType, error) {
	shell := ShellType(strings.ToLower(strings.TrimSpace(name)))
	if err := ValidateShell(shell); err != nil {
		return ShellUnknown, err
	}
	return shell, nil
}

// ValidateShell validates that a shell type is supported
func ValidateShell(shell ShellType) error {
	if !shell.IsValid() {
		return &UnsupportedShellError{Shell: shell.String()}
	}
	return nil
}

// GetSupportedShells returns a list of supported shells
func GetSupportedShells() []ShellType {
	return []ShellType{ShellBash, ShellZsh, ShellFish}
}
