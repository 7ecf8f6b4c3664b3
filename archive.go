package filepack

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/filepack/internal/format"
	"github.com/meigma/filepack/internal/sizing"
)

// ByteSource provides random access to archive bytes.
//
// *bytes.Reader satisfies it; OpenFile wraps an *os.File.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// Archive is a parsed archive header with random access to entry content.
//
// Only the header is held in memory. Entry content is read from the source
// on demand, located by each entry's own offset; entries are never assumed
// to be contiguous or ordered.
type Archive struct {
	src        ByteSource
	version    uint32
	headerSize uint32
	entries    []Entry
	index      map[string]int
	logger     *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// Parse parses an archive held in memory. data is retained by the Archive;
// callers must not modify it afterwards.
func Parse(data []byte, opts ...ReadOption) (*Archive, error) {
	return Open(bytes.NewReader(data), opts...)
}

// Open reads the header of the archive in src and validates it.
//
// Open reads the 12-byte prefix to learn the header size, then reads only
// the header. A wrong magic number, an unsupported version, a header that
// runs past the end of src, a malformed record, an entry whose content lies
// outside src, or an unsafe or duplicate path are all reported as errors
// wrapping ErrFormat.
func Open(src ByteSource, opts ...ReadOption) (*Archive, error) {
	cfg := readConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	size := src.Size()
	prefixBuf := make([]byte, format.PrefixSize)
	n, err := readFullAt(src, prefixBuf, 0)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	if err := checkPrefixBytes(prefixBuf[:n]); err != nil {
		return nil, err
	}

	prefix, err := format.ReadPrefix(prefixBuf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	if prefix.HeaderSize < format.PrefixSize {
		return nil, fmt.Errorf("%w: header size %d is smaller than the %d-byte prefix", ErrCorruptHeader, prefix.HeaderSize, format.PrefixSize)
	}
	if int64(prefix.HeaderSize) > size {
		return nil, fmt.Errorf("%w: header size %d exceeds archive size %d", ErrTruncated, prefix.HeaderSize, size)
	}

	header := make([]byte, prefix.HeaderSize)
	if _, err := readFullAt(src, header, 0); err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrTruncated, err)
	}

	entries, err := decodeEntries(header, cfg.maxEntries)
	if err != nil {
		return nil, err
	}
	index, err := validateEntries(entries, size)
	if err != nil {
		return nil, err
	}

	a := &Archive{
		src:        src,
		version:    prefix.Version,
		headerSize: prefix.HeaderSize,
		entries:    entries,
		index:      index,
		logger:     cfg.logger,
	}
	a.log().Debug("archive opened", "header_size", prefix.HeaderSize, "file_count", len(entries), "size", size)
	return a, nil
}

// checkPrefixBytes validates magic and version from however many prefix
// bytes are available, so a short non-archive is reported as bad magic
// rather than as truncated.
func checkPrefixBytes(b []byte) error {
	if len(b) < 4 {
		return fmt.Errorf("%w: %d bytes", ErrTruncated, len(b))
	}
	if magic := format.ByteOrder.Uint32(b[0:4]); magic != Magic {
		return fmt.Errorf("%w: got %#08x, want %#08x", ErrBadMagic, magic, Magic)
	}
	if len(b) < 8 {
		return fmt.Errorf("%w: %d bytes", ErrTruncated, len(b))
	}
	if version := format.ByteOrder.Uint32(b[4:8]); version != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	if len(b) < format.PrefixSize {
		return fmt.Errorf("%w: %d bytes", ErrTruncated, len(b))
	}
	return nil
}

// decodeEntries parses records until the cursor reaches the end of header.
func decodeEntries(header []byte, maxEntries int) ([]Entry, error) {
	dec := format.NewDecoder(header)
	var entries []Entry
	for dec.More() {
		if err := checkEntryLimit(len(entries)+1, maxEntries); err != nil {
			return nil, err
		}
		at := dec.Offset()
		rec, err := dec.Record()
		if err != nil {
			return nil, fmt.Errorf("%w: record %d at byte %d: %w", ErrCorruptHeader, len(entries), at, err)
		}
		entries = append(entries, Entry{
			Name:   rec.Name,
			Path:   rec.Path,
			Size:   rec.Size,
			Type:   TypeTag(rec.Type),
			Offset: rec.Offset,
		})
	}
	return entries, nil
}

// validateEntries checks paths and content ranges and builds the path index.
func validateEntries(entries []Entry, sourceSize int64) (map[string]int, error) {
	index := make(map[string]int, len(entries))
	for i := range entries {
		e := &entries[i]
		if !validEntryPath(e.Path) {
			return nil, &fs.PathError{Op: "open", Path: e.Path, Err: ErrInvalidPath}
		}
		if _, dup := index[e.Path]; dup {
			return nil, &fs.PathError{Op: "open", Path: e.Path, Err: fmt.Errorf("%w: duplicate", ErrInvalidPath)}
		}
		if !sizing.Within(e.Offset, e.Size, uint64(sourceSize)) { //nolint:gosec // sizes are non-negative
			return nil, fmt.Errorf("%w: %s: content [%d, +%d) outside archive of %d bytes", ErrCorruptHeader, e.Path, e.Offset, e.Size, sourceSize)
		}
		index[e.Path] = i
	}
	return index, nil
}

// Version returns the archive format version.
func (a *Archive) Version() uint32 {
	return a.version
}

// HeaderSize returns the number of bytes from the start of the archive to
// the first content byte, as recorded in the header.
func (a *Archive) HeaderSize() uint64 {
	return uint64(a.headerSize)
}

// Size returns the total size of the archive source in bytes.
func (a *Archive) Size() int64 {
	return a.src.Size()
}

// Len returns the number of entries in the archive.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Entries returns an iterator over all entries in header order.
func (a *Archive) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range a.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Entry returns the entry for path. The path is normalized first.
func (a *Archive) Entry(path string) (Entry, bool) {
	i, ok := a.index[NormalizePath(path)]
	if !ok {
		return Entry{}, false
	}
	return a.entries[i], true
}

// SectionReader returns a reader over the content of the entry at path.
// It reads straight from the source without touching other entries.
func (a *Archive) SectionReader(path string) (*io.SectionReader, error) {
	e, ok := a.Entry(path)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: ErrNotFound}
	}
	return a.section(e)
}

func (a *Archive) section(e Entry) (*io.SectionReader, error) {
	off, err := sizing.ToInt64(e.Offset, ErrSizeOverflow)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: e.Path, Err: err}
	}
	n, err := sizing.ToInt64(e.Size, ErrSizeOverflow)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: e.Path, Err: err}
	}
	return io.NewSectionReader(a.src, off, n), nil
}

// ReadFile returns the content of the entry at path.
func (a *Archive) ReadFile(path string) ([]byte, error) {
	e, ok := a.Entry(path)
	if !ok {
		return nil, &fs.PathError{Op: "readfile", Path: path, Err: ErrNotFound}
	}
	return a.read(e)
}

func (a *Archive) read(e Entry) ([]byte, error) {
	n, err := sizing.ToInt(e.Size, ErrSizeOverflow)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: e.Path, Err: err}
	}
	off, err := sizing.ToInt64(e.Offset, ErrSizeOverflow)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: e.Path, Err: err}
	}
	buf := make([]byte, n)
	if _, err := readFullAt(a.src, buf, off); err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: e.Path, Err: err}
	}
	return buf, nil
}

// Digest returns the SHA-256 digest of the content of the entry at path.
func (a *Archive) Digest(path string) (digest.Digest, error) {
	r, err := a.SectionReader(path)
	if err != nil {
		return "", err
	}
	d, err := digest.FromReader(r)
	if err != nil {
		return "", &fs.PathError{Op: "digest", Path: path, Err: err}
	}
	return d, nil
}

// readFullAt fills p from src at off. Unlike a bare ReadAt it treats a full
// read that also reports io.EOF as success, and a partial read as
// io.ErrUnexpectedEOF. It returns the number of bytes read.
func readFullAt(src io.ReaderAt, p []byte, off int64) (int, error) {
	n, err := src.ReadAt(p, off)
	if n == len(p) {
		return n, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}
