package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/filepack"
)

func newUnpackCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unpack ARCHIVE TARGET_DIR",
		Short: "Extract an archive into a directory",
		Long: `Extract every file of ARCHIVE below TARGET_DIR, recreating subdirectories.

The whole header is validated before anything is written. Existing files are
overwritten.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := filepack.UnpackFile(args[0], args[1], a.unpackOptions()...)
			if stats.FileCount > 0 || err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "extracted %d files (%d bytes) into %s\n", stats.FileCount, stats.TotalBytes, args[1])
			}
			return err
		},
	}
	return cmd
}
