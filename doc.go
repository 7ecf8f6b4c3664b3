// Package filepack implements a single-file archive format that bundles a
// directory tree into one binary blob with an explicit index table.
//
// An archive starts with a self-describing header:
//
//	u32 magic (0xDEADBEEF) | u32 version (0) | u32 header size
//	per entry: u32 type | u32 name length | name | u32 path length | path |
//	           u64 content size | u64 content offset
//
// followed by the content of every entry, each trailed by one zero guard
// byte. Because the header records an absolute offset for every entry, a
// reader only needs the header to serve any single file; see [Open].
//
// Packing is a two step affair: [Scan] produces the entry inventory for a
// directory and [Pack] (or [PackFile]) lays out and assembles the archive.
// [Unpack] and [UnpackFile] recreate the tree on disk.
//
// All operations are synchronous. Each call owns its entry slice, so no
// state leaks between calls.
package filepack
