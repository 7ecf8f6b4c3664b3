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

	"github.com/meigma/filepack/internal/format"
	"github.com/meigma/filepack/internal/platform"
)

// Pack assembles an archive for entries, reading their content from below root.
//
// The layout is planned before any byte is written (see PlanLayout): one
// buffer of exactly the archive size is allocated, each entry's content is
// read straight into its slot, the transform runs on the slot, and a zero
// guard byte follows. Output is deterministic for a fixed entry order.
// entries is not modified.
//
// A file that cannot be opened or fully read is logged and reported as
// ErrIO; its slot is zeroed before the transform runs and the remaining
// entries are still packed.
// In that case Pack returns the assembled buffer together with the joined
// errors, so callers must treat a non-nil error as "archive may be
// incomplete". A nil buffer means nothing could be assembled.
func Pack(root string, entries []Entry, opts ...PackOption) ([]byte, error) {
	cfg := packConfig{transform: Identity}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.transform == nil {
		cfg.transform = Identity
	}

	if err := validateRoot(root); err != nil {
		return nil, err
	}
	if err := checkEntryLimit(len(entries), cfg.maxEntries); err != nil {
		return nil, err
	}
	if err := checkEntryPaths(entries); err != nil {
		return nil, err
	}

	entries = slices.Clone(entries)
	layout, err := PlanLayout(entries)
	if err != nil {
		return nil, err
	}

	r, err := os.OpenRoot(root)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	p := &packer{cfg: cfg, root: r, rootPath: root, logger: cfg.logger}
	p.log().Info("packing archive", "root", root, "file_count", len(entries), "size", layout.TotalSize)
	buf := p.assemble(entries, layout)
	p.log().Debug("archive assembled", "header_size", layout.HeaderSize, "failed", len(p.problems))

	return buf, errors.Join(p.problems...)
}

// PackFile packs entries and writes the archive to target.
//
// Missing parent directories of target are created and an existing file at
// target is replaced. When Pack reports per-entry failures the partial archive
// is still written and the failures are returned.
func PackFile(root string, entries []Entry, target string, opts ...PackOption) error {
	cfg := packConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	buf, packErr := Pack(root, entries, opts...)
	if buf == nil {
		return packErr
	}

	cfg.progress.report(ProgressEvent{
		Stage:      StageWriting,
		Path:       target,
		BytesTotal: uint64(len(buf)),
		FilesDone:  len(entries),
		FilesTotal: len(entries),
	})
	if err := writeArchive(target, buf); err != nil {
		return errors.Join(packErr, fmt.Errorf("%w: write %s: %w", ErrIO, target, err))
	}
	cfg.progress.report(ProgressEvent{
		Stage:      StageWriting,
		Path:       target,
		BytesDone:  uint64(len(buf)),
		BytesTotal: uint64(len(buf)),
		FilesDone:  len(entries),
		FilesTotal: len(entries),
	})
	return packErr
}

// packer holds state for a single Pack call.
type packer struct {
	cfg      packConfig
	root     *os.Root
	rootPath string
	logger   *slog.Logger
	problems []error
}

// log returns the logger, falling back to a discard logger if nil.
func (p *packer) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// assemble fills a buffer laid out per layout. Content is read and
// transformed first so that tags rewritten by the transform are the ones
// serialized into the header.
func (p *packer) assemble(entries []Entry, layout Layout) []byte {
	buf := make([]byte, layout.TotalSize)

	contentTotal := layout.TotalSize - layout.HeaderSize - uint64(len(entries))
	var done uint64
	for i := range entries {
		e := &entries[i]
		slot := buf[e.Offset : e.Offset+e.Size]
		p.fill(e, slot)
		buf[e.Offset+e.Size] = 0

		done += e.Size
		p.cfg.progress.report(ProgressEvent{
			Stage:      StagePacking,
			Path:       e.Path,
			BytesDone:  done,
			BytesTotal: contentTotal,
			FilesDone:  i + 1,
			FilesTotal: len(entries),
		})
	}

	enc := format.NewEncoder(buf)
	enc.PutPrefix(format.Prefix{
		Magic:      Magic,
		Version:    Version,
		HeaderSize: uint32(layout.HeaderSize), //nolint:gosec // PlanLayout checked the u32 range
	})
	for i := range entries {
		enc.PutRecord(format.Record{
			Type:   uint32(entries[i].Type),
			Name:   entries[i].Name,
			Path:   entries[i].Path,
			Size:   entries[i].Size,
			Offset: entries[i].Offset,
		})
	}
	return buf
}

// fill reads the content of e into slot and applies the transform. A slot
// whose source could not be read is zeroed and still transformed, so its
// tag matches the rest of the archive.
func (p *packer) fill(e *Entry, slot []byte) {
	if err := p.read(e, slot); err != nil {
		p.log().Error("could not read file", "path", e.Path, "error", err)
		p.problems = append(p.problems, fmt.Errorf("%w: %s: %w", ErrIO, e.Path, err))
		clear(slot)
	}
	// Only the tag may change; the layout is already fixed.
	view := *e
	if err := p.cfg.transform(&view, slot); err != nil {
		p.log().Error("transform failed", "path", e.Path, "error", err)
		p.problems = append(p.problems, fmt.Errorf("transform %s: %w", e.Path, err))
		return
	}
	e.Type = view.Type
}

// read reads exactly len(slot) bytes of the source file for e.
func (p *packer) read(e *Entry, slot []byte) error {
	return platform.ReadExact(p.root, filepath.FromSlash(e.Path), slot)
}

// checkEntryLimit applies a max-entries setting: zero means the default,
// negative means unlimited.
func checkEntryLimit(n, limit int) error {
	if limit < 0 {
		return nil
	}
	if limit == 0 {
		limit = DefaultMaxEntries
	}
	if n > limit {
		return fmt.Errorf("%w: %d entries, limit %d", ErrTooManyEntries, n, limit)
	}
	return nil
}

// checkEntryPaths rejects invalid and duplicate entry paths.
func checkEntryPaths(entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for i := range entries {
		path := entries[i].Path
		if !validEntryPath(path) {
			return &fs.PathError{Op: "pack", Path: path, Err: ErrInvalidPath}
		}
		if _, dup := seen[path]; dup {
			return &fs.PathError{Op: "pack", Path: path, Err: fmt.Errorf("%w: duplicate", ErrInvalidPath)}
		}
		seen[path] = struct{}{}
	}
	return nil
}

// validEntryPath reports whether path is a relative slash path that stays
// inside the archive root. Elements need not be UTF-8.
func validEntryPath(path string) bool {
	if path == "" {
		return false
	}
	for elem := range strings.SplitSeq(path, "/") {
		if elem == "" || elem == "." || elem == ".." {
			return false
		}
	}
	return true
}

// writeArchive writes data to a temp file next to target and renames it
// into place, creating parent directories as needed.
func writeArchive(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".filepack-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil { //nolint:gosec // archives are meant to be shipped
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
