package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/binary"
)

func newDigestCommand(a *app) *cobra.Command {
	var alg string

	cmd := &cobra.Command{
		Use:   "digest ARCHIVE...",
		Short: "Print integrity digests for release manifest records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				d, err := binary.ComputeDigest(f, alg)
				f.Close()
				if err != nil {
					return fmt.Errorf("digest %s: %w", path, err)
				}
				fmt.Fprintf(a.stdout, "%s  %s\n", d, path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&alg, "algorithm", "a", binary.AlgSHA512,
		"digest algorithm: sha512, sha256 or blake3")
	return cmd
}
