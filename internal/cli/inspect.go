package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/meigma/filepack"
)

func newInspectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect ARCHIVE",
		Short: "Print the header of an archive and check its layout",
		Long: `Print the header fields and entry table of ARCHIVE.

The entry table lists type, path, size, content offset and the sha256 digest
of every entry. The command exits non-zero when the entries are not laid out
contiguously after the header, each followed by one guard byte.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInspect(cmd.OutOrStdout(), args[0])
		},
	}
	cmd.Flags().Bool(flagNoDigest, false, "Skip content digests")
	return cmd
}

func (a *app) runInspect(w io.Writer, path string) error {
	af, err := filepack.OpenFile(path,
		filepack.ReadWithMaxEntries(a.v.GetInt(flagMaxEntries)),
		filepack.ReadWithLogger(a.logger))
	if err != nil {
		return err
	}
	defer af.Close()

	fmt.Fprintf(w, "magic:       %#08x\n", filepack.Magic)
	fmt.Fprintf(w, "version:     %d\n", af.Version())
	fmt.Fprintf(w, "header size: %d\n", af.HeaderSize())
	fmt.Fprintf(w, "total size:  %d\n", af.Size())
	fmt.Fprintf(w, "entries:     %d\n", af.Len())

	withDigest := !a.v.GetBool(flagNoDigest)
	header := []string{"Type", "Path", "Size", "Offset"}
	if withDigest {
		header = append(header, "Digest")
	}

	out := tablewriter.NewWriter(w)
	out.SetHeader(header)
	out.SetAutoWrapText(false)

	var entries []filepack.Entry
	for e := range af.Entries() {
		entries = append(entries, e)
		row := []string{
			e.Type.String(),
			e.Path,
			strconv.FormatUint(e.Size, 10),
			strconv.FormatUint(e.Offset, 10),
		}
		if withDigest {
			d, err := af.Digest(e.Path)
			if err != nil {
				return err
			}
			row = append(row, d.String())
		}
		out.Append(row)
	}
	out.Render()

	if err := filepack.CheckLayout(af.HeaderSize(), entries); err != nil {
		fmt.Fprintln(w, "layout: non-contiguous")
		return err
	}
	fmt.Fprintln(w, "layout: ok")
	return nil
}
