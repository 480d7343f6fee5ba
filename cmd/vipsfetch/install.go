package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/binary"
	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/installer"
	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/probe"
)

func newInstallCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Use the global libvips or vendor a prebuilt archive",
		Long: `Install checks for a suitable global libvips first. When there is none it
acquires the archive for this platform from the cache, the local prebuilds
directory or the dist host, verifies it and unpacks it into
{vendor}/{version}/{platform}.

Exits 1 when the global libvips should be linked instead.`,
		Args: cobra.NoArgs,
		RunE: a.runInstall,
	}
}

func (a *app) runInstall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	opts, info, err := a.loadOptions(ctx)
	if err != nil {
		return err
	}

	downloaderOpts := binary.DownloaderOptions{
		Proxy:   opts.Proxy,
		NoProxy: opts.NoProxy,
	}
	if !a.flags.quiet && isTerminal(a.stderr) {
		downloaderOpts.Progress = a.stderr
	}
	downloader, err := binary.NewDownloader(downloaderOpts)
	if err != nil {
		return err
	}

	inst, err := installer.New(opts, info, installer.Deps{
		Prober:     probe.NewProber(opts, probe.NewPkgConfig(a.env), a.logger),
		Downloader: downloader,
		Logger:     a.logger,
	})
	if err != nil {
		return err
	}

	outcome, err := inst.Run(ctx)
	if err != nil {
		return err
	}

	switch outcome.Action {
	case installer.ActionVendored:
		fmt.Fprintf(a.stdout, "libvips %s already installed in %s\n", outcome.Version, outcome.Path)
	case installer.ActionInstalled:
		fmt.Fprintf(a.stdout, "libvips %s (%s) installed in %s from %s, verification: %s\n",
			outcome.Version, outcome.Platform, outcome.Path, outcome.Result.Source, outcome.Result.Verified)
	}
	return nil
}
