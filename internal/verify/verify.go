// Package verify compares two directory trees for structural and content
// identity. It backs the selftest command and the round-trip tests.
package verify

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/filepack"
)

var (
	// ErrCountMismatch is returned when the trees hold different numbers of files.
	ErrCountMismatch = errors.New("verify: file count mismatch")

	// ErrContentMismatch is returned when a file present in both trees differs.
	ErrContentMismatch = errors.New("verify: content mismatch")
)

// Report describes the outcome of Compare.
type Report struct {
	// CountA and CountB are the number of files scanned in each tree.
	CountA int
	CountB int

	// Compared is the number of paths present in both trees.
	Compared int

	// Skipped lists paths of tree a that have no counterpart in tree b.
	Skipped []string

	// Mismatched lists paths whose content differs or could not be read.
	Mismatched []string
}

// OK reports whether the trees matched.
func (r Report) OK() bool {
	return r.CountA == r.CountB && len(r.Mismatched) == 0
}

type config struct {
	filter filepack.Filter
	logger *slog.Logger
}

// Option configures Compare.
type Option func(*config)

// WithFilter sets the filter used to scan both trees.
// The default is filepack.UntypedFilter.
func WithFilter(f filepack.Filter) Option {
	return func(cfg *config) {
		cfg.filter = f
	}
}

// WithLogger sets the logger for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// Compare scans trees a and b and compares them.
//
// The trees must hold the same number of files. Every file of a is then
// looked up by relative path in b and compared byte for byte. A file of a
// with no counterpart in b is recorded in Report.Skipped but is not a
// failure on its own; only the count check can catch it.
func Compare(a, b string, opts ...Option) (Report, error) {
	cfg := config{filter: filepack.UntypedFilter}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	scanOpts := []filepack.ScanOption{
		filepack.ScanWithFilter(cfg.filter),
		filepack.ScanWithMaxEntries(-1),
		filepack.ScanWithLogger(logger),
	}
	entriesA, err := scanTree(a, scanOpts, logger)
	if err != nil {
		return Report{}, err
	}
	entriesB, err := scanTree(b, scanOpts, logger)
	if err != nil {
		return Report{}, err
	}

	report := Report{CountA: len(entriesA), CountB: len(entriesB)}
	if report.CountA != report.CountB {
		logger.Error("file count differs", "a", a, "count_a", report.CountA, "b", b, "count_b", report.CountB)
		return report, fmt.Errorf("%w: %d vs. %d", ErrCountMismatch, report.CountA, report.CountB)
	}

	byPath := make(map[string]filepack.Entry, len(entriesB))
	for _, e := range entriesB {
		byPath[e.Path] = e
	}

	for _, ea := range entriesA {
		if _, ok := byPath[ea.Path]; !ok {
			report.Skipped = append(report.Skipped, ea.Path)
			continue
		}
		report.Compared++

		same, err := sameContent(a, b, ea.Path, logger)
		if err != nil {
			logger.Error("could not compare file", "path", ea.Path, "error", err)
		}
		if !same {
			report.Mismatched = append(report.Mismatched, ea.Path)
		}
	}

	if len(report.Mismatched) > 0 {
		return report, fmt.Errorf("%w: %s", ErrContentMismatch, strings.Join(report.Mismatched, ", "))
	}
	return report, nil
}

// scanTree scans root. Partial scan problems are logged and tolerated.
func scanTree(root string, opts []filepack.ScanOption, logger *slog.Logger) ([]filepack.Entry, error) {
	entries, err := filepack.Scan(root, opts...)
	if err != nil {
		if entries == nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
		logger.Warn("scan reported problems", "root", root, "error", err)
	}
	return entries, nil
}

// sameContent reports whether rel has identical bytes under both roots.
func sameContent(a, b, rel string, logger *slog.Logger) (bool, error) {
	dataA, err := os.ReadFile(filepath.Join(a, filepath.FromSlash(rel))) //nolint:gosec // paths come from a scan of a
	if err != nil {
		return false, err
	}
	dataB, err := os.ReadFile(filepath.Join(b, filepath.FromSlash(rel))) //nolint:gosec // paths come from a scan of b
	if err != nil {
		return false, err
	}
	if bytes.Equal(dataA, dataB) {
		return true, nil
	}
	logger.Error("files differ", "path", rel,
		"digest_a", digest.FromBytes(dataA).String(),
		"digest_b", digest.FromBytes(dataB).String())
	return false, nil
}
