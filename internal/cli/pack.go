package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/meigma/filepack"
)

func newPackCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack SOURCE_DIR TARGET_FILE",
		Short: "Pack a directory into an archive",
		Long: `Pack every regular file below SOURCE_DIR into the archive TARGET_FILE.

Symbolic links are skipped. Files that cannot be read are reported and left
zeroed in the archive; the command then exits non-zero. An existing
TARGET_FILE is replaced and missing parent directories are created.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPack(cmd, filepath.Clean(args[0]), args[1])
		},
	}
	addTreeFlags(cmd)
	return cmd
}

func (a *app) runPack(cmd *cobra.Command, root, target string) error {
	entries, scanErr := filepack.Scan(root, a.scanOptions()...)
	if entries == nil {
		return scanErr
	}

	packErr := filepack.PackFile(root, entries, target, a.packOptions()...)
	if packErr != nil && !errors.Is(packErr, filepack.ErrIO) {
		return errors.Join(scanErr, packErr)
	}

	var total uint64
	for _, e := range entries {
		total += e.Size
	}
	fmt.Fprintf(cmd.OutOrStdout(), "packed %d files (%d bytes) into %s\n", len(entries), total, target)
	return errors.Join(scanErr, packErr)
}
