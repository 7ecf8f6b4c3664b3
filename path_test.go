package filepack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"leading slash", "/src/main.h", "src/main.h"},
		{"trailing slash", "src/main.h/", "src/main.h"},
		{"empty string", "", "."},
		{"root slash", "/", "."},
		{"only slashes", "///", "."},
		{"simple", "a.txt", "a.txt"},
		{"internal double slashes", "sub//b.txt", "sub/b.txt"},
		{"mixed slashes everywhere", "//sub//deep//c.h//", "sub/deep/c.h"},
		// Dot segments survive so lookups can reject them.
		{"dotdot in middle", "a/../b", "a/../b"},
		{"dotdot only", "..", ".."},
		{"backslash kept", `dir\file`, `dir\file`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.input))
		})
	}
}
