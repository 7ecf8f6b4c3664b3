package filepack

import (
	"fmt"

	"github.com/meigma/filepack/internal/format"
	"github.com/meigma/filepack/internal/sizing"
)

// Layout describes the byte geometry of an archive.
type Layout struct {
	// HeaderSize is the number of bytes from the start of the archive to the
	// first content byte.
	HeaderSize uint64

	// TotalSize is the size of the whole archive, guard bytes included.
	TotalSize uint64
}

// HeaderSize computes the header length for entries: the 12-byte prefix plus
// one record per entry. Name and path lengths include their terminators.
func HeaderSize(entries []Entry) uint64 {
	size := uint64(format.PrefixSize)
	for i := range entries {
		size += format.RecordSize(entries[i].Name, entries[i].Path)
	}
	return size
}

// AssignOffsets sets the Offset of every entry, in order, starting at
// headerSize. Each entry's content is followed by one guard byte.
// It returns the total archive size.
func AssignOffsets(entries []Entry, headerSize uint64) uint64 {
	offset := headerSize
	for i := range entries {
		entries[i].Offset = offset
		offset += entries[i].Size + 1
	}
	return offset
}

// PlanLayout sizes the header and assigns content offsets to entries.
//
// It fails with ErrTooManyEntries when the header does not fit the u32
// header-size field and with ErrSizeOverflow when the archive size does not
// fit in memory.
func PlanLayout(entries []Entry) (Layout, error) {
	headerSize := HeaderSize(entries)
	if _, err := sizing.ToUint32(headerSize, ErrTooManyEntries); err != nil {
		return Layout{}, fmt.Errorf("%w: header needs %d bytes", err, headerSize)
	}

	end := headerSize
	for i := range entries {
		next, ok := sizing.AddUint64(end, entries[i].Size)
		if !ok {
			return Layout{}, fmt.Errorf("%w: %s", ErrSizeOverflow, entries[i].Path)
		}
		if end, ok = sizing.AddUint64(next, 1); !ok {
			return Layout{}, fmt.Errorf("%w: %s", ErrSizeOverflow, entries[i].Path)
		}
	}
	if _, err := sizing.ToInt(end, ErrSizeOverflow); err != nil {
		return Layout{}, err
	}

	return Layout{
		HeaderSize: headerSize,
		TotalSize:  AssignOffsets(entries, headerSize),
	}, nil
}

// CheckLayout verifies that entries are laid out the way the writer lays
// them out: the first entry starts at headerSize and every following entry
// starts one guard byte after the previous entry's content.
func CheckLayout(headerSize uint64, entries []Entry) error {
	want := headerSize
	for i := range entries {
		if entries[i].Offset != want {
			return fmt.Errorf("%w: %s: offset %d, want %d", ErrCorruptHeader, entries[i].Path, entries[i].Offset, want)
		}
		want = entries[i].Offset + entries[i].Size + 1
	}
	return nil
}
