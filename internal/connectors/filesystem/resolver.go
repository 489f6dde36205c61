package filesystem

import (
	"path/filepath"
	"strings"
)

// ResolvePath converts a file:// URI or a bare path to a cleaned local path.
func ResolvePath(uri string) string {
	path := strings.TrimPrefix(uri, "file://")
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}
