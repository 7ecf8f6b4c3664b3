package testutil

import (
	"path"
	"testing"

	"github.com/meigma/filepack/internal/format"
)

// TestEntry describes one hand-built archive entry.
type TestEntry struct {
	// Type is the raw tag written to the header.
	Type uint32

	// Name defaults to the last element of Path.
	Name string

	Path    string
	Content []byte

	// Size and Offset override the values the builder would compute.
	// Zero keeps the computed value.
	Size   uint64
	Offset uint64
}

// BuildArchive encodes entries the way the writer lays them out: header,
// then each content followed by a guard byte. Overridden sizes or offsets
// are written to the header verbatim, which lets tests build archives whose
// records point outside the buffer.
func BuildArchive(tb testing.TB, entries []TestEntry) []byte {
	tb.Helper()

	headerSize := uint64(format.PrefixSize)
	for i := range entries {
		if entries[i].Name == "" {
			entries[i].Name = path.Base(entries[i].Path)
		}
		headerSize += format.RecordSize(entries[i].Name, entries[i].Path)
	}

	total := headerSize
	records := make([]format.Record, len(entries))
	for i, e := range entries {
		size := uint64(len(e.Content))
		if e.Size != 0 {
			size = e.Size
		}
		offset := total
		if e.Offset != 0 {
			offset = e.Offset
		}
		records[i] = format.Record{Type: e.Type, Name: e.Name, Path: e.Path, Size: size, Offset: offset}
		total += uint64(len(e.Content)) + 1
	}

	buf := make([]byte, total)
	enc := format.NewEncoder(buf)
	enc.PutPrefix(format.Prefix{
		Magic:      0xDEADBEEF,
		Version:    0,
		HeaderSize: uint32(headerSize), //nolint:gosec // test headers are small
	})
	for _, r := range records {
		enc.PutRecord(r)
	}

	at := headerSize
	for _, e := range entries {
		copy(buf[at:], e.Content)
		at += uint64(len(e.Content)) + 1
	}
	return buf
}
