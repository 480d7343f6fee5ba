package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/binary"
	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/transaction"
)

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the vendored libvips install for this platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, info, err := a.loadOptions(cmd.Context())
			if err != nil {
				return err
			}

			tag := opts.Target(info).Tag()
			dir := binary.VendorPath(opts.VendorDir, opts.VersionString(), tag)
			if _, err := os.Stat(dir); err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("libvips %s is not installed for %s (run 'vipsfetch install')", opts.VersionString(), tag)
				}
				return fmt.Errorf("check vendor directory: %w", err)
			}

			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "path:\t%s\n", dir)

			receipt, err := transaction.Load(dir)
			if err != nil {
				a.logger.Debug("no install receipt", "error", err)
				fmt.Fprintf(w, "receipt:\tnone\n")
				return w.Flush()
			}
			fmt.Fprintf(w, "version:\t%s\n", receipt.LibraryVersion)
			fmt.Fprintf(w, "platform:\t%s\n", receipt.Platform)
			fmt.Fprintf(w, "source:\t%s\n", receipt.Source)
			fmt.Fprintf(w, "archive:\t%s\n", receipt.Archive)
			fmt.Fprintf(w, "verification:\t%s\n", receipt.Verification)
			if receipt.Digest != "" {
				fmt.Fprintf(w, "digest:\t%s\n", receipt.Digest)
			}
			fmt.Fprintf(w, "headers skipped:\t%t\n", receipt.HeadersSkipped)
			fmt.Fprintf(w, "files:\t%d\n", receipt.Files)
			fmt.Fprintf(w, "installed:\t%s\n", receipt.Timestamp.Format("2006-01-02 15:04:05 MST"))
			fmt.Fprintf(w, "id:\t%s\n", receipt.ID)
			return w.Flush()
		},
	}
}
