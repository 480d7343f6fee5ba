package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/probe"
)

func newPlatformCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "platform",
		Short: "Print the resolved platform tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, info, err := a.loadOptions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, opts.Target(info).Tag())
			return nil
		},
	}
}

func newGlobalCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "global",
		Short: "Print whether the global libvips would be used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _, err := a.loadOptions(cmd.Context())
			if err != nil {
				return err
			}
			decision := probe.NewProber(opts, probe.NewPkgConfig(a.env), a.logger).Decide(cmd.Context())
			a.logger.Info("global libvips check", "reason", decision.Reason, "found", decision.Version)
			fmt.Fprintln(a.stdout, strconv.FormatBool(decision.UseGlobal))
			return nil
		},
	}
}

func newPkgConfigPathCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pkg-config-path",
		Short: "Print the PKG_CONFIG_PATH used to find a global libvips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(a.stdout, probe.NewPkgConfig(a.env).SearchPath(cmd.Context()))
			return nil
		},
	}
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.stdout, "vipsfetch %s\n", Version)
			return nil
		},
	}
}
