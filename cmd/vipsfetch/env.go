package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/binary"
	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/shell"
)

func newEnvCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "env [bash|zsh|fish]",
		Short: "Print shell exports that point builds at the vendored libvips",
		Long: `Env prints the variables a build needs to find the vendored libvips:
the pkg-config search path and the dynamic loader path. The shell is
detected when not given.

  eval "$(vipsfetch env bash)"
  vipsfetch env fish | source`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var sh shell.ShellType
			if len(args) == 1 {
				var err error
				if sh, err = shell.ParseShell(args[0]); err != nil {
					return err
				}
			} else {
				detected := shell.DetectShell(ctx, a.env)
				if !detected.Shell.IsValid() {
					return fmt.Errorf("could not detect the shell; pass one of bash, zsh or fish")
				}
				a.logger.Debug("detected shell", "shell", detected.Shell, "method", detected.Method)
				sh = detected.Shell
			}

			opts, info, err := a.loadOptions(ctx)
			if err != nil {
				return err
			}
			target := opts.Target(info)
			dir, err := filepath.Abs(binary.VendorPath(opts.VendorDir, opts.VersionString(), target.Tag()))
			if err != nil {
				return err
			}
			if _, err := os.Stat(dir); err != nil {
				return fmt.Errorf("libvips %s is not installed for %s (run 'vipsfetch install'): %w", opts.VersionString(), target.Tag(), err)
			}

			out, err := shell.Render(sh, shell.BuildEnv(dir, target.Platform))
			if err != nil {
				return err
			}
			fmt.Fprint(a.stdout, out)

			if line, err := shell.ActivationCommand(sh); err == nil {
				a.logger.Debug("add this line to your shell rc file to load it on startup", "line", line)
			}
			return nil
		},
	}
}
