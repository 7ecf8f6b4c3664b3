// Package testutil provides fixtures shared by filepack tests.
package testutil

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// WriteTree creates files below root. Keys are slash-separated relative
// paths; parent directories are created as needed.
func WriteTree(tb testing.TB, root string, files map[string][]byte) {
	tb.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			tb.Fatalf("create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(full, content, 0o644); err != nil {
			tb.Fatalf("write %s: %v", rel, err)
		}
	}
}

// ReadTree returns every regular file below root keyed by slash-separated
// relative path.
func ReadTree(tb testing.TB, root string) map[string][]byte {
	tb.Helper()
	files := make(map[string][]byte)
	err := fs.WalkDir(os.DirFS(root), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := fs.ReadFile(os.DirFS(root), path)
		if err != nil {
			return err
		}
		files[path] = data
		return nil
	})
	if err != nil {
		tb.Fatalf("read tree %s: %v", root, err)
	}
	return files
}

// MockByteSource implements a simple in-memory byte source for tests.
type MockByteSource struct {
	data  []byte
	reads int
}

// NewMockByteSource returns a byte source backed by the provided data.
func NewMockByteSource(data []byte) *MockByteSource {
	return &MockByteSource{data: data}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (m *MockByteSource) ReadAt(p []byte, off int64) (int, error) {
	m.reads++
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if off+int64(n) >= int64(len(m.data)) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the total size of the backing data.
func (m *MockByteSource) Size() int64 {
	return int64(len(m.data))
}

// Reads returns the number of ReadAt calls served.
func (m *MockByteSource) Reads() int {
	return m.reads
}
