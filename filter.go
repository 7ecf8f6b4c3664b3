package filepack

import "strings"

// Filter classifies a file by its leaf name. It returns false when the file
// must be left out of the archive.
type Filter func(name string) (TypeTag, bool)

// UntypedFilter accepts every file and tags it TypeAny.
func UntypedFilter(string) (TypeTag, bool) {
	return TypeAny, true
}

// TypedFilter accepts "*.pipeline" files as TypePipeline and "*.h" files as
// TypeHeader. Everything else is excluded.
func TypedFilter(name string) (TypeTag, bool) {
	switch {
	case strings.HasSuffix(name, ".pipeline"):
		return TypePipeline, true
	case strings.HasSuffix(name, ".h"):
		return TypeHeader, true
	default:
		return TypeInvalid, false
	}
}
