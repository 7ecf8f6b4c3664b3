package filepack

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Scan walks root recursively and returns one Entry per regular file that
// the configured filter accepts.
//
// root must name an existing directory and must not end in a path separator.
// Symbolic links are neither followed nor recorded, and directories produce
// no entries of their own. Files the filter rejects are skipped silently.
//
// Problems confined to part of the tree do not abort the scan: a path that
// exceeds the path ceiling (ErrPathTooLong) or a directory that cannot be
// listed (ErrEnumeration) is logged and skipped. Scan returns every entry it
// found together with the joined problems, so a non-nil error does not
// invalidate the returned entries. Failures of the whole scan return nil
// entries.
//
// Exceeding the entry limit fails the whole scan with ErrTooManyEntries.
//
// Entries are sorted by path unless ScanWithoutSort is given.
func Scan(root string, opts ...ScanOption) ([]Entry, error) {
	cfg := defaultScanConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := validateRoot(root); err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}

	r, err := os.OpenRoot(root)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	s := &scanner{cfg: cfg, root: root, logger: cfg.logger, entries: make([]Entry, 0, 64)}
	s.log().Debug("scanning directory", "root", root)
	s.cfg.progress.report(ProgressEvent{Stage: StageScanning})

	if err := fs.WalkDir(r.FS(), ".", s.visit); err != nil {
		return nil, err
	}

	if !cfg.keepOrder {
		slices.SortFunc(s.entries, func(a, b Entry) int {
			return strings.Compare(a.Path, b.Path)
		})
	}

	s.log().Debug("scan complete", "root", root, "file_count", len(s.entries), "problems", len(s.problems))
	return s.entries, errors.Join(s.problems...)
}

// validateRoot rejects empty roots and roots with a trailing separator.
func validateRoot(root string) error {
	if root == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidRoot)
	}
	if len(root) > 1 && os.IsPathSeparator(root[len(root)-1]) {
		return fmt.Errorf("%w: %q ends in a path separator", ErrInvalidRoot, root)
	}
	return nil
}

// scanner holds state for a single Scan call.
type scanner struct {
	cfg      scanConfig
	root     string
	logger   *slog.Logger
	entries  []Entry
	problems []error
}

// log returns the logger, falling back to a discard logger if nil.
func (s *scanner) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// visit is the fs.WalkDirFunc for Scan. path is slash-separated and
// relative to the scan root.
func (s *scanner) visit(path string, d fs.DirEntry, walkErr error) error {
	if walkErr != nil {
		if path == "." {
			return walkErr
		}
		full := s.fullPath(path)
		s.log().Warn("could not enumerate directory", "path", full, "error", walkErr)
		s.problems = append(s.problems, fmt.Errorf("%w: %s: %w", ErrEnumeration, full, walkErr))
		return nil
	}
	if path == "." {
		return nil
	}

	if s.cfg.maxPath > 0 && len(s.root)+1+len(path) >= s.cfg.maxPath {
		full := s.fullPath(path)
		s.log().Warn("path too long, skipping", "path", full, "limit", s.cfg.maxPath)
		s.problems = append(s.problems, fmt.Errorf("%w: %s", ErrPathTooLong, full))
		if d.IsDir() {
			return fs.SkipDir
		}
		return nil
	}

	if d.IsDir() {
		return nil
	}
	if !d.Type().IsRegular() {
		s.log().Debug("skipping non-regular file", "path", path, "type", d.Type().String())
		return nil
	}

	tag, ok := s.cfg.filter(d.Name())
	if !ok {
		return nil
	}

	if err := checkEntryLimit(len(s.entries)+1, s.cfg.maxEntries); err != nil {
		return fmt.Errorf("scan %s: %w", s.root, err)
	}

	info, err := d.Info()
	if err != nil {
		full := s.fullPath(path)
		s.log().Warn("could not stat file", "path", full, "error", err)
		s.problems = append(s.problems, fmt.Errorf("%w: %s: %w", ErrEnumeration, full, err))
		return nil
	}

	s.entries = append(s.entries, Entry{
		Name: d.Name(),
		Path: path,
		Size: uint64(info.Size()), //nolint:gosec // regular file sizes are non-negative
		Type: tag,
	})
	s.cfg.progress.report(ProgressEvent{
		Stage:     StageScanning,
		Path:      path,
		FilesDone: len(s.entries),
	})
	return nil
}

func (s *scanner) fullPath(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(path))
}
