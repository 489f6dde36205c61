package filesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want string
	}{
		{
			name: "file:// URI is converted to local path",
			uri:  "file:///Users/test/documents/file.txt",
			want: "/Users/test/documents/file.txt",
		},
		{
			name: "file:// URI with spaces",
			uri:  "file:///Users/test/my documents/file.txt",
			want: "/Users/test/my documents/file.txt",
		},
		{
			name: "bare path passes through",
			uri:  "/Users/test/documents/file.txt",
			want: "/Users/test/documents/file.txt",
		},
		{
			name: "relative path is cleaned",
			uri:  "relative/./path/../to/file.txt",
			want: "relative/to/file.txt",
		},
		{
			name: "trailing slash removed",
			uri:  "/tmp/docs/",
			want: "/tmp/docs",
		},
		{
			name: "empty string passes through",
			uri:  "",
			want: "",
		},
		{
			name: "file:// prefix only",
			uri:  "file://",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePath(tt.uri))
		})
	}
}
