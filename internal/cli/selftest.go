package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/meigma/filepack"
	"github.com/meigma/filepack/internal/verify"
)

func newSelftestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selftest SOURCE_DIR COMPARE_DIR",
		Short: "Pack, extract and compare a tree in one go",
		Long: `Pack SOURCE_DIR into a scratch archive, extract it into COMPARE_DIR and
compare both trees file by file.

The scratch archive gets a random name below --scratch-dir and is removed
afterwards unless --keep-archive is set. With --clean, COMPARE_DIR is removed
before extraction so stale files cannot skew the comparison.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSelftest(cmd, filepath.Clean(args[0]), args[1])
		},
	}
	addTreeFlags(cmd)
	cmd.Flags().Bool(flagClean, false, "Remove COMPARE_DIR before extracting")
	cmd.Flags().Bool(flagKeepArchive, false, "Keep the scratch archive and print its path")
	cmd.Flags().String(flagScratchDir, os.TempDir(), "Directory for the scratch archive")
	return cmd
}

func (a *app) runSelftest(cmd *cobra.Command, source, compare string) error {
	out := cmd.OutOrStdout()
	scratch := filepath.Join(a.v.GetString(flagScratchDir), "filepack-"+uuid.NewString()+".bin")
	if a.v.GetBool(flagKeepArchive) {
		defer fmt.Fprintf(out, "archive kept at %s\n", scratch)
	} else {
		defer os.Remove(scratch)
	}

	entries, err := filepack.Scan(source, a.scanOptions()...)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if err := filepack.PackFile(source, entries, scratch, a.packOptions()...); err != nil {
		return fmt.Errorf("pack: %w", err)
	}

	if a.v.GetBool(flagClean) {
		a.logger.Info("removing compare directory", "dir", compare)
		if err := os.RemoveAll(compare); err != nil {
			return fmt.Errorf("clean: %w", err)
		}
	}
	if _, err := filepack.UnpackFile(scratch, compare, a.unpackOptions()...); err != nil {
		return fmt.Errorf("unpack: %w", err)
	}

	filter := filepack.UntypedFilter
	if a.v.GetBool(flagTyped) {
		filter = filepack.TypedFilter
	}
	report, err := verify.Compare(source, filepath.Clean(compare), verify.WithFilter(filter), verify.WithLogger(a.logger))
	fmt.Fprintf(out, "source: %d files, extracted: %d files, compared: %d, skipped: %d, mismatched: %d\n",
		report.CountA, report.CountB, report.Compared, len(report.Skipped), len(report.Mismatched))
	if err != nil {
		return fmt.Errorf("compare: %w", err)
	}
	fmt.Fprintln(out, "selftest passed")
	return nil
}
