// Package cli implements the filepack command line.
package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meigma/filepack"
)

// EnvPrefix is the prefix of environment variables that override flags.
// FILEPACK_LOG_LEVEL sets --log-level, FILEPACK_MAX_ENTRIES sets --max-entries.
const EnvPrefix = "FILEPACK"

const (
	flagLogLevel    = "log-level"
	flagMaxEntries  = "max-entries"
	flagMaxPath     = "max-path"
	flagTyped       = "typed"
	flagClean       = "clean"
	flagKeepArchive = "keep-archive"
	flagScratchDir  = "scratch-dir"
	flagNoDigest    = "no-digest"
)

// app carries state shared by every subcommand of one root command.
type app struct {
	v      *viper.Viper
	logger *slog.Logger
}

// NewRootCmd creates and returns the root cobra command for the filepack CLI.
// It sets up all subcommands, command groups, and configuration binding.
func NewRootCmd() *cobra.Command {
	a := &app{v: newViper()}

	rootCmd := &cobra.Command{
		Use:   "filepack",
		Short: "filepack - pack directory trees into a single indexed archive",
		Long: `filepack packs a directory tree into one binary archive and extracts it again.

An archive starts with a self-describing header that lists every file with its
type, name, relative path, size and content offset, followed by the file
contents. Archives can be read with random access: only the header is loaded
until a file is requested.

Use subcommands to perform different operations:
  - pack: Pack a directory into an archive
  - unpack: Extract an archive into a directory
  - inspect: Print the header of an archive and check its layout
  - selftest: Pack, extract and compare a tree in one go

Every flag can also be set through the environment, e.g. FILEPACK_TYPED=true.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().String(flagLogLevel, "warn", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Int(flagMaxEntries, filepack.DefaultMaxEntries, "Maximum number of entries per archive (negative for no limit)")

	groupArchive := "archive"
	groupUtilities := "utilities"

	rootCmd.AddGroup(&cobra.Group{
		ID:    groupArchive,
		Title: "Archive Operations",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupUtilities,
		Title: "Utility Commands",
	})

	packCmd := newPackCmd(a)
	unpackCmd := newUnpackCmd(a)
	inspectCmd := newInspectCmd(a)
	selftestCmd := newSelftestCmd(a)

	packCmd.GroupID = groupArchive
	unpackCmd.GroupID = groupArchive
	inspectCmd.GroupID = groupUtilities
	selftestCmd.GroupID = groupUtilities

	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(unpackCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(selftestCmd)

	return rootCmd
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// setup binds the flags of the executing command and builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := a.v.BindPFlags(cmd.InheritedFlags()); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(a.v.GetString(flagLogLevel))); err != nil {
		return fmt.Errorf("invalid --%s: %w", flagLogLevel, err)
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// scanOptions returns the scan options selected by flags.
func (a *app) scanOptions() []filepack.ScanOption {
	return []filepack.ScanOption{
		filepack.ScanWithTyped(a.v.GetBool(flagTyped)),
		filepack.ScanWithMaxEntries(a.v.GetInt(flagMaxEntries)),
		filepack.ScanWithMaxPath(a.v.GetInt(flagMaxPath)),
		filepack.ScanWithLogger(a.logger),
	}
}

// packOptions returns the pack options selected by flags.
func (a *app) packOptions() []filepack.PackOption {
	return []filepack.PackOption{
		filepack.PackWithTyped(a.v.GetBool(flagTyped)),
		filepack.PackWithMaxEntries(a.v.GetInt(flagMaxEntries)),
		filepack.PackWithLogger(a.logger),
	}
}

// unpackOptions returns the unpack options selected by flags.
func (a *app) unpackOptions() []filepack.UnpackOption {
	return []filepack.UnpackOption{
		filepack.UnpackWithMaxEntries(a.v.GetInt(flagMaxEntries)),
		filepack.UnpackWithLogger(a.logger),
	}
}

// addTreeFlags registers the flags shared by commands that scan a tree.
func addTreeFlags(cmd *cobra.Command) {
	cmd.Flags().Bool(flagTyped, false, "Pack only *.pipeline and *.h files and seal pipelines")
	cmd.Flags().Int(flagMaxPath, filepack.DefaultMaxPath, "Path length ceiling for root + relative path (0 disables)")
}
