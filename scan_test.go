package filepack

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/filepack/internal/testutil"
)

func entryPaths(entries []Entry) []string {
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return paths
}

func TestScan_Untyped(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string][]byte{
		"a.txt":      []byte("abc"),
		"sub/b.txt":  {},
		"sub/c/d.h":  []byte("#define D"),
		"z.pipeline": []byte("pipe"),
	})
	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0o755))

	entries, err := Scan(root)
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt", "sub/b.txt", "sub/c/d.h", "z.pipeline"}, entryPaths(entries))

	for _, e := range entries {
		assert.Equal(t, TypeAny, e.Type, e.Path)
		assert.Equal(t, filepath.Base(e.Path), e.Name)
		assert.Zero(t, e.Offset)
	}
	assert.Equal(t, uint64(3), entries[0].Size)
	assert.Equal(t, uint64(0), entries[1].Size)
}

func TestScan_Typed(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string][]byte{
		"build.pipeline":    []byte("stage"),
		"include/api.h":     []byte("int f();"),
		"README.md":         []byte("docs"),
		"include/api.hpp":   []byte("skip"),
		"pipeline.pipeline": []byte("x"),
	})

	entries, err := Scan(root, ScanWithTyped(true))
	require.NoError(t, err)
	require.Equal(t, []string{"build.pipeline", "include/api.h", "pipeline.pipeline"}, entryPaths(entries))
	assert.Equal(t, TypePipeline, entries[0].Type)
	assert.Equal(t, TypeHeader, entries[1].Type)
	assert.Equal(t, TypePipeline, entries[2].Type)
}

func TestScan_CustomFilter(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string][]byte{
		"keep.bin": []byte("1"),
		"drop.txt": []byte("2"),
	})

	filter := func(name string) (TypeTag, bool) {
		return TypePipeline, filepath.Ext(name) == ".bin"
	}
	entries, err := Scan(root, ScanWithFilter(filter))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "keep.bin", entries[0].Path)
	assert.Equal(t, TypePipeline, entries[0].Type)
}

func TestScan_InvalidRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string][]byte{"file": []byte("x")})

	_, err := Scan("")
	require.ErrorIs(t, err, ErrInvalidRoot)

	_, err = Scan(root + string(filepath.Separator))
	require.ErrorIs(t, err, ErrInvalidRoot)

	_, err = Scan(filepath.Join(root, "file"))
	require.ErrorIs(t, err, ErrInvalidRoot)

	entries, err := Scan(filepath.Join(root, "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.Nil(t, entries)
}

func TestScan_EmptyDirectory(t *testing.T) {
	t.Parallel()

	entries, err := Scan(t.TempDir())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestScan_PathTooLong(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string][]byte{
		"a.txt":                      []byte("a"),
		"long-file-name.txt":         []byte("b"),
		"long-directory-name/c.txt":  []byte("c"),
		"short/deep/nested/file.txt": []byte("d"),
		"short/ok":                   []byte("e"),
	})

	// root + "/" + "short/ok" is the longest path that still fits.
	limit := len(root) + 1 + len("short/ok") + 1
	entries, err := Scan(root, ScanWithMaxPath(limit))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrPathTooLong)

	assert.Equal(t, []string{"a.txt", "short/ok"}, entryPaths(entries))
}

func TestScan_SkipsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	t.Parallel()

	root := t.TempDir()
	outside := t.TempDir()
	testutil.WriteTree(t, root, map[string][]byte{"real.txt": []byte("real")})
	testutil.WriteTree(t, outside, map[string][]byte{"secret.txt": []byte("secret")})
	require.NoError(t, os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "linkdir")))

	entries, err := Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"real.txt"}, entryPaths(entries))
}

func TestScan_MaxEntries(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string][]byte{
		"1": []byte("1"),
		"2": []byte("2"),
		"3": []byte("3"),
	})

	entries, err := Scan(root, ScanWithMaxEntries(2))
	require.ErrorIs(t, err, ErrTooManyEntries)
	assert.Nil(t, entries)

	entries, err = Scan(root, ScanWithMaxEntries(3))
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	entries, err = Scan(root, ScanWithMaxEntries(-1))
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestScan_Progress(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string][]byte{
		"a": []byte("a"),
		"b": []byte("b"),
	})

	var events []ProgressEvent
	_, err := Scan(root, ScanWithProgress(func(ev ProgressEvent) {
		events = append(events, ev)
	}))
	require.NoError(t, err)
	require.Len(t, events, 3)
	for _, ev := range events {
		assert.Equal(t, StageScanning, ev.Stage)
	}
	assert.Equal(t, 2, events[2].FilesDone)
}

func TestScan_WithoutSort(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string][]byte{
		"b":     []byte("b"),
		"a/z":   []byte("z"),
		"a.txt": []byte("a"),
	})

	sorted, err := Scan(root)
	require.NoError(t, err)
	unsorted, err := Scan(root, ScanWithoutSort())
	require.NoError(t, err)
	assert.ElementsMatch(t, entryPaths(sorted), entryPaths(unsorted))
	assert.Equal(t, []string{"a.txt", "a/z", "b"}, entryPaths(sorted))
}

func TestScan_NonUTF8Name(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("file names are arbitrary bytes only on linux")
	}
	t.Parallel()

	const bad = "bad\xff.txt"
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string][]byte{
		"ok.txt": []byte("ok"),
		bad:      []byte("raw name"),
	})

	entries, err := Scan(root)
	require.NoError(t, err)
	require.Equal(t, []string{bad, "ok.txt"}, entryPaths(entries))

	buf, err := Pack(root, entries)
	require.NoError(t, err)

	a, err := Parse(buf)
	require.NoError(t, err)
	content, err := a.ReadFile(bad)
	require.NoError(t, err)
	assert.Equal(t, []byte("raw name"), content)

	dir := t.TempDir()
	stats, err := a.Extract(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FileCount)
	extracted, err := os.ReadFile(filepath.Join(dir, bad))
	require.NoError(t, err)
	assert.Equal(t, []byte("raw name"), extracted)
}
