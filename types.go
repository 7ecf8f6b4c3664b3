package filepack

// Format constants.
const (
	// Magic identifies a filepack archive. It is the first u32 of every archive.
	Magic uint32 = 0xDEADBEEF

	// Version is the only archive version this package reads or writes.
	Version uint32 = 0

	// DefaultMaxEntries is the entry ceiling used when no limit option is set.
	DefaultMaxEntries = 4096

	// DefaultMaxPath is the ceiling for root + "/" + relative path, in bytes.
	DefaultMaxPath = 260
)

// TypeTag classifies an entry's content.
type TypeTag uint32

// Type tags persisted in the archive header.
const (
	TypeInvalid TypeTag = iota
	TypeHeader
	TypePipeline
	TypeEncryptedPipeline
)

// TypeAny is the tag carried by every entry of an untyped archive.
// It shares its wire value with TypeHeader.
const TypeAny = TypeHeader

// String returns the string representation of the tag.
func (t TypeTag) String() string {
	switch t {
	case TypeInvalid:
		return "invalid"
	case TypeHeader:
		return "header"
	case TypePipeline:
		return "pipeline"
	case TypeEncryptedPipeline:
		return "encrypted-pipeline"
	default:
		return "unknown"
	}
}

// Entry represents a file in the archive.
type Entry struct {
	// Name is the leaf file name (e.g., "main.go").
	Name string

	// Path is the file path relative to the archive root, always '/'-separated
	// (e.g., "src/main.go").
	Path string

	// Size is the length of the file's content. It excludes the guard byte.
	Size uint64

	// Type classifies the content.
	Type TypeTag

	// Offset is the absolute byte offset of the content within the archive.
	Offset uint64
}

// Stats summarizes an extraction.
type Stats struct {
	// FileCount is the number of files written.
	FileCount int

	// TotalBytes is the number of content bytes written.
	TotalBytes uint64

	// Failed is the number of entries that could not be written.
	Failed int
}
