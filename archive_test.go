package filepack

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/filepack/internal/format"
	"github.com/meigma/filepack/internal/testutil"
)

func packTree(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	root, entries := scanTree(t, files)
	buf, err := Pack(root, entries)
	require.NoError(t, err)
	return buf
}

func TestOpen_ReadsOnlyHeader(t *testing.T) {
	t.Parallel()

	buf := packTree(t, map[string][]byte{
		"a.txt":     []byte("abc"),
		"sub/b.txt": {},
		"big":       bytes.Repeat([]byte("x"), 1<<16),
	})
	src := testutil.NewMockByteSource(buf)

	a, err := Open(src)
	require.NoError(t, err)
	assert.Equal(t, 2, src.Reads())
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, Version, a.Version())
	assert.Equal(t, int64(len(buf)), a.Size())

	content, err := a.ReadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), content)
	assert.Equal(t, 3, src.Reads())
}

func TestArchive_Lookup(t *testing.T) {
	t.Parallel()

	buf := packTree(t, map[string][]byte{
		"a.txt":     []byte("abc"),
		"sub/b.txt": {},
	})
	a, err := Parse(buf)
	require.NoError(t, err)

	e, ok := a.Entry("/sub//b.txt")
	require.True(t, ok)
	assert.Equal(t, "b.txt", e.Name)
	assert.Equal(t, uint64(0), e.Size)

	_, ok = a.Entry("sub")
	assert.False(t, ok)

	_, err = a.ReadFile("missing")
	require.ErrorIs(t, err, ErrNotFound)
	var pathErr *fs.PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, "missing", pathErr.Path)

	empty, err := a.ReadFile("sub/b.txt")
	require.NoError(t, err)
	assert.Empty(t, empty)

	r, err := a.SectionReader("a.txt")
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	d, err := a.Digest("a.txt")
	require.NoError(t, err)
	assert.Equal(t, digest.FromBytes([]byte("abc")), d)

	assert.Equal(t, []string{"a.txt", "sub/b.txt"}, entryPaths(collect(a)))
	require.NoError(t, CheckLayout(a.HeaderSize(), collect(a)))
}

func TestArchive_EntriesStopEarly(t *testing.T) {
	t.Parallel()

	a, err := Parse(packTree(t, map[string][]byte{"1": nil, "2": nil, "3": nil}))
	require.NoError(t, err)

	var seen int
	for range a.Entries() {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestOpen_OffsetsAreAuthoritative(t *testing.T) {
	t.Parallel()

	header := uint64(format.PrefixSize) + format.RecordSize("x", "x") + format.RecordSize("y", "y")
	buf := testutil.BuildArchive(t, []testutil.TestEntry{
		{Type: 1, Path: "x", Content: []byte("hello")},
		{Type: 1, Path: "y", Size: 3, Offset: header + 1},
	})

	a, err := Parse(buf)
	require.NoError(t, err)
	y, err := a.ReadFile("y")
	require.NoError(t, err)
	assert.Equal(t, []byte("ell"), y)

	require.ErrorIs(t, CheckLayout(a.HeaderSize(), collect(a)), ErrCorruptHeader)
}

func TestOpen_FormatViolations(t *testing.T) {
	t.Parallel()

	valid := testutil.BuildArchive(t, []testutil.TestEntry{
		{Type: 1, Path: "a.txt", Content: []byte("abc")},
	})
	put32 := func(at int, v uint32) func([]byte) []byte {
		return func(b []byte) []byte {
			format.ByteOrder.PutUint32(b[at:], v)
			return b
		}
	}

	tests := []struct {
		name string
		data func() []byte
		want error
	}{
		{"empty", func() []byte { return nil }, ErrTruncated},
		{"short non-archive", func() []byte { return []byte("hi") }, ErrTruncated},
		{"text file", func() []byte { return []byte("hello world!\n") }, ErrBadMagic},
		{"bad magic", func() []byte { return put32(0, 0xCAFEBABE)(clone(valid)) }, ErrBadMagic},
		{"magic only", func() []byte { return clone(valid)[:4] }, ErrTruncated},
		{"future version", func() []byte { return put32(4, 1)(clone(valid)) }, ErrUnsupportedVersion},
		{"prefix cut", func() []byte { return clone(valid)[:10] }, ErrTruncated},
		{"header size below prefix", func() []byte { return put32(8, 4)(clone(valid)) }, ErrCorruptHeader},
		{"header size past end", func() []byte { return put32(8, 10_000)(clone(valid)) }, ErrTruncated},
		{"name length past header", func() []byte { return put32(16, 1_000)(clone(valid)) }, ErrCorruptHeader},
		{"header ends mid-record", func() []byte { return put32(8, 30)(clone(valid)) }, ErrCorruptHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data())
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestOpen_ContentOutsideArchive(t *testing.T) {
	t.Parallel()

	buf := testutil.BuildArchive(t, []testutil.TestEntry{
		{Type: 1, Path: "a", Content: []byte("abc"), Size: 1 << 40},
	})
	_, err := Parse(buf)
	require.ErrorIs(t, err, ErrCorruptHeader)

	buf = testutil.BuildArchive(t, []testutil.TestEntry{
		{Type: 1, Path: "a", Content: []byte("abc"), Offset: ^uint64(0) - 1},
	})
	_, err = Parse(buf)
	require.ErrorIs(t, err, ErrCorruptHeader)
}

func TestOpen_RejectsUnsafePaths(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"../evil", "/etc/passwd", "a/../../evil", "", ".", "a//b", `..\evil/..`} {
		t.Run(path, func(t *testing.T) {
			buf := testutil.BuildArchive(t, []testutil.TestEntry{
				{Type: 1, Name: "evil", Path: path, Content: []byte("pwned")},
			})
			_, err := Parse(buf)
			require.ErrorIs(t, err, ErrInvalidPath)
		})
	}

	dup := testutil.BuildArchive(t, []testutil.TestEntry{
		{Type: 1, Path: "a", Content: []byte("1")},
		{Type: 1, Path: "a", Content: []byte("2")},
	})
	_, err := Parse(dup)
	require.ErrorIs(t, err, ErrInvalidPath)
}

func TestOpen_MaxEntries(t *testing.T) {
	t.Parallel()

	buf := testutil.BuildArchive(t, []testutil.TestEntry{
		{Type: 1, Path: "a"},
		{Type: 1, Path: "b"},
	})
	_, err := Parse(buf, ReadWithMaxEntries(1))
	require.ErrorIs(t, err, ErrTooManyEntries)

	a, err := Parse(buf, ReadWithMaxEntries(-1))
	require.NoError(t, err)
	assert.Equal(t, 2, a.Len())
}

func TestOpen_EveryTruncationFails(t *testing.T) {
	t.Parallel()

	buf := packTree(t, map[string][]byte{
		"a.txt":     []byte("abc"),
		"sub/b.txt": {},
	})
	// Dropping only the final guard byte leaves every entry readable.
	for n := range len(buf) - 1 {
		_, err := Parse(buf[:n])
		require.ErrorIs(t, err, ErrFormat, "length %d", n)
	}
}

func TestOpenFile(t *testing.T) {
	t.Parallel()

	root, entries := scanTree(t, map[string][]byte{
		"dir/file.h": []byte("#pragma once"),
	})
	target := filepath.Join(t.TempDir(), "archive.bin")
	require.NoError(t, PackFile(root, entries, target))

	af, err := OpenFile(target)
	require.NoError(t, err)
	content, err := af.ReadFile("dir/file.h")
	require.NoError(t, err)
	assert.Equal(t, []byte("#pragma once"), content)
	require.NoError(t, af.Close())
	require.NoError(t, af.Close())

	_, err = OpenFile(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)

	notArchive := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(notArchive, []byte("just some text"), 0o644))
	_, err = OpenFile(notArchive)
	require.ErrorIs(t, err, ErrBadMagic)
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
