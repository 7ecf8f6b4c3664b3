package filepack

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Unpack parses the archive in data and extracts every entry below dir.
//
// Structural problems in the header are fatal and nothing is written. Once
// the header is valid, per-entry failures (directory creation, file
// creation, short writes) are logged, counted in Stats.Failed, and joined
// into the returned error while the remaining entries are still extracted.
func Unpack(data []byte, dir string, opts ...UnpackOption) (Stats, error) {
	cfg := unpackConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	a, err := Parse(data, ReadWithMaxEntries(cfg.maxEntries), ReadWithLogger(cfg.logger))
	if err != nil {
		return Stats{}, err
	}
	return a.Extract(dir, opts...)
}

// UnpackFile reads the archive at archivePath into memory and extracts it
// below dir. See Unpack.
func UnpackFile(archivePath, dir string, opts ...UnpackOption) (Stats, error) {
	data, err := os.ReadFile(archivePath) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return Stats{}, fmt.Errorf("read archive: %w", err)
	}
	return Unpack(data, dir, opts...)
}

// Extract writes every entry below dir, creating dir and any missing
// intermediate directories. Existing files are overwritten.
//
// Entry paths were validated when the archive was opened, and all writes go
// through an os.Root on dir, so no entry can escape it.
func (a *Archive) Extract(dir string, opts ...UnpackOption) (Stats, error) {
	cfg := unpackConfig{logger: a.logger}
	for _, opt := range opts {
		opt(&cfg)
	}

	x := &extractor{cfg: cfg, archive: a, logger: cfg.logger}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // extracted trees are meant to be readable
		return Stats{}, fmt.Errorf("%w: create %s: %w", ErrIO, dir, err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: open %s: %w", ErrIO, dir, err)
	}
	defer root.Close()

	for _, e := range a.entries {
		x.bytesTotal += e.Size
	}
	x.log().Info("extracting archive", "dir", dir, "file_count", len(a.entries))

	var problems []error
	for _, e := range a.entries {
		err := x.extract(root, e)
		x.done(e, err)
		if err != nil {
			problems = append(problems, fmt.Errorf("%w: %s: %w", ErrIO, e.Path, err))
		}
	}

	x.log().Debug("extraction complete", "dir", dir, "written", x.stats.FileCount, "failed", x.stats.Failed)
	return x.stats, errors.Join(problems...)
}

// extractor holds state for a single extraction.
type extractor struct {
	cfg        unpackConfig
	archive    *Archive
	logger     *slog.Logger
	bytesTotal uint64

	stats     Stats
	filesDone int
}

// log returns the logger, falling back to a discard logger if nil.
func (x *extractor) log() *slog.Logger {
	if x.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return x.logger
}

// done records the outcome of one entry and reports progress.
func (x *extractor) done(e Entry, err error) {
	if err != nil {
		x.log().Error("could not extract file", "path", e.Path, "error", err)
		x.stats.Failed++
	} else {
		x.stats.FileCount++
		x.stats.TotalBytes += e.Size
	}
	x.filesDone++
	x.cfg.progress.report(ProgressEvent{
		Stage:      StageExtracting,
		Path:       e.Path,
		BytesDone:  x.stats.TotalBytes,
		BytesTotal: x.bytesTotal,
		FilesDone:  x.filesDone,
		FilesTotal: len(x.archive.entries),
	})
}

// extract writes one entry below root. The file handle is closed before
// extract returns.
func (x *extractor) extract(root *os.Root, e Entry) error {
	content, err := x.content(e)
	if err != nil {
		return err
	}

	rel := filepath.FromSlash(e.Path)
	if parent := filepath.Dir(rel); parent != "." {
		if err := root.MkdirAll(parent, 0o755); err != nil { //nolint:gosec // extracted trees are meant to be readable
			return fmt.Errorf("create directory: %w", err)
		}
	}

	f, err := root.OpenFile(rel, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644) //nolint:gosec // extracted trees are meant to be readable
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	n, err := io.Copy(f, content)
	if err != nil {
		f.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if uint64(n) != e.Size { //nolint:gosec // n is non-negative
		f.Close()
		return fmt.Errorf("write file: %w: wrote %d of %d bytes", io.ErrShortWrite, n, e.Size)
	}
	return f.Close()
}

// content returns a reader over the bytes to write for e. Without a restore
// hook it reads straight from the archive; with one it hands the hook a
// private copy.
func (x *extractor) content(e Entry) (io.Reader, error) {
	if x.cfg.restore == nil {
		return x.archive.section(e)
	}
	buf, err := x.archive.read(e)
	if err != nil {
		return nil, err
	}
	if err := x.cfg.restore(e, buf); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	return bytes.NewReader(buf), nil
}
