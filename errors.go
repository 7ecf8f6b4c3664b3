package filepack

import "errors"

// Sentinel errors returned by scanning and packing.
var (
	// ErrInvalidRoot is returned when a scan root is empty or ends in a path separator.
	ErrInvalidRoot = errors.New("filepack: invalid root path")

	// ErrPathTooLong is recorded when root + relative path exceeds the path ceiling.
	// The offending file or subtree is skipped.
	ErrPathTooLong = errors.New("filepack: path too long")

	// ErrEnumeration is recorded when a directory cannot be listed.
	ErrEnumeration = errors.New("filepack: enumeration failed")

	// ErrIO is recorded when a single file cannot be opened, read or written.
	ErrIO = errors.New("filepack: i/o failure")

	// ErrTooManyEntries is returned when the entry count exceeds the configured
	// ceiling or the header no longer fits its u32 length field.
	ErrTooManyEntries = errors.New("filepack: too many entries")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("filepack: size overflow")

	// ErrNotFound is returned when a path is not present in an archive.
	ErrNotFound = errors.New("filepack: entry not found")
)

// ErrFormat is wrapped by every structural violation detected while reading
// an archive. Violations are fatal: nothing is extracted.
var ErrFormat = errors.New("filepack: format violation")

// Format violations. Each wraps ErrFormat.
var (
	// ErrBadMagic is returned when the first four bytes are not Magic.
	ErrBadMagic = formatError("bad magic")

	// ErrUnsupportedVersion is returned for any version other than Version.
	ErrUnsupportedVersion = formatError("unsupported version")

	// ErrTruncated is returned when the source is shorter than its header claims.
	ErrTruncated = formatError("truncated archive")

	// ErrCorruptHeader is returned when an entry record or content range
	// does not fit the archive.
	ErrCorruptHeader = formatError("corrupt header")

	// ErrInvalidPath is returned when an entry path is absolute, empty,
	// duplicated, or escapes the archive root.
	ErrInvalidPath = formatError("invalid entry path")
)

type formatErr struct{ msg string }

func formatError(msg string) error { return &formatErr{msg: msg} }

func (e *formatErr) Error() string { return "filepack: " + e.msg }

func (e *formatErr) Unwrap() error { return ErrFormat }
