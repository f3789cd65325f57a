package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobMatch(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		// A pattern without a separator matches the file name.
		{"*.txt", "/a/b/hello.txt", true},
		{"*.txt", "/a/b/hello.md", false},
		{"hello.*", "/a/b/hello.txt", true},
		{"h?llo.txt", "/a/hello.txt", true},
		{"h?llo.txt", "/a/heello.txt", false},

		// Case-insensitive.
		{"*.TXT", "/a/Hello.txt", true},
		{"HELLO*", "/a/hello_world.go", true},

		// A pattern with a separator matches the full path.
		{"/a/*.txt", "/a/hello.txt", true},
		{"/a/*.txt", "/a/b/hello.txt", false}, // * does not cross /
		{"/a/**/*.txt", "/a/b/c/hello.txt", true},
		{"/a/**", "/a/b/c/hello.txt", true},
		{"**/*.go", "/src/pkg/main.go", true},

		// Character classes.
		{"file[0-9].txt", "/x/file7.txt", true},
		{"file[0-9].txt", "/x/filea.txt", false},
		{"file[!0-9].txt", "/x/filea.txt", true},
		{"file[!0-9].txt", "/x/file7.txt", false},
		{"[ab]*.md", "/x/b-notes.md", true},

		// Literal matching.
		{"notes.md", "/home/notes.md", true},
		{"notes.md", "/home/other.md", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.path, func(t *testing.T) {
			m, err := compileGlob(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Match(tt.path))
		})
	}
}

func TestGlobMalformed(t *testing.T) {
	_, err := compileGlob("file[0-9.txt")
	assert.Error(t, err)
}
