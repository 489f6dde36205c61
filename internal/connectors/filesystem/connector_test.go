package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

const waitTimeout = 2 * time.Second

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func waitForFile(t *testing.T, files <-chan File) File {
	t.Helper()
	select {
	case f, ok := <-files:
		require.True(t, ok, "watch channel closed")
		return f
	case <-time.After(waitTimeout):
		t.Fatal("timeout waiting for file change")
	}
	return File{}
}

func TestNew(t *testing.T) {
	t.Run("resolves file URI", func(t *testing.T) {
		c := New("file:///tmp/docs/")
		assert.Equal(t, "/tmp/docs", c.Root())
		assert.Equal(t, DefaultDebounce, c.debounce)
	})

	t.Run("debounce option ignores non-positive", func(t *testing.T) {
		c := New("/tmp", WithDebounce(0))
		assert.Equal(t, DefaultDebounce, c.debounce)

		c = New("/tmp", WithDebounce(time.Second))
		assert.Equal(t, time.Second, c.debounce)
	})
}

func TestConnector_Validate(t *testing.T) {
	t.Run("existing directory", func(t *testing.T) {
		assert.NoError(t, New(t.TempDir()).Validate())
	})

	t.Run("empty path", func(t *testing.T) {
		err := New("").Validate()
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("missing path", func(t *testing.T) {
		err := New("/non/existent/path").Validate()
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, err.Error(), "/non/existent/path")
	})
}

func TestConnector_Scan(t *testing.T) {
	t.Run("returns supported files in lexical order", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "b.txt"), "bravo")
		writeFile(t, filepath.Join(dir, "a.md"), "# alpha")
		writeFile(t, filepath.Join(dir, "sub", "c.html"), "<p>charlie</p>")
		writeFile(t, filepath.Join(dir, "image.png"), "not text")
		writeFile(t, filepath.Join(dir, ".hidden.txt"), "hidden")
		writeFile(t, filepath.Join(dir, ".git", "notes.txt"), "hidden dir")

		files, err := New(dir).Scan(context.Background())
		require.NoError(t, err)
		require.Len(t, files, 3)

		assert.Equal(t, filepath.Join(dir, "a.md"), files[0].Path)
		assert.Equal(t, domain.FormatMarkdown, files[0].Format)
		assert.Equal(t, filepath.Join(dir, "b.txt"), files[1].Path)
		assert.Equal(t, []byte("bravo"), files[1].Content)
		assert.Equal(t, Checksum([]byte("bravo")), files[1].Checksum)
		assert.False(t, files[1].ModTime.IsZero())
		assert.Equal(t, filepath.Join(dir, "sub", "c.html"), files[2].Path)
	})

	t.Run("root inside hidden directory is scanned", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), ".docchat", "docs")
		writeFile(t, filepath.Join(dir, "notes.txt"), "visible")

		files, err := New(dir).Scan(context.Background())
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("format option filters", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.md"), "alpha")
		writeFile(t, filepath.Join(dir, "b.txt"), "bravo")

		files, err := New(dir, WithFormats(domain.FormatText)).Scan(context.Background())
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, domain.FormatText, files[0].Format)
	})

	t.Run("single file root", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.txt")
		writeFile(t, path, "report")

		files, err := New(path).Scan(context.Background())
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, path, files[0].Path)
	})

	t.Run("unsupported single file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tool.exe")
		writeFile(t, path, "binary")

		_, err := New(path).Scan(context.Background())
		assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := New("/non/existent/path").Scan(context.Background())
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("empty directory", func(t *testing.T) {
		files, err := New(t.TempDir()).Scan(context.Background())
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("cancelled context", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.txt"), "alpha")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := New(dir).Scan(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFile_RawDocument(t *testing.T) {
	f := File{Path: "/docs/notes.md", Format: domain.FormatMarkdown, Content: []byte("# notes")}
	raw := f.RawDocument()

	assert.Equal(t, "notes.md", raw.Filename)
	assert.Equal(t, domain.FormatMarkdown, raw.Format)
	assert.Equal(t, []byte("# notes"), raw.Content)
	assert.Equal(t, "/docs/notes.md", raw.Metadata[MetaPath])
}

func TestConnector_Watch(t *testing.T) {
	t.Run("reports created files", func(t *testing.T) {
		dir := t.TempDir()
		c := New(dir, WithDebounce(20*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		files, err := c.Watch(ctx)
		require.NoError(t, err)

		writeFile(t, filepath.Join(dir, "new-file.txt"), "content")

		f := waitForFile(t, files)
		assert.Equal(t, filepath.Join(dir, "new-file.txt"), f.Path)
		assert.Equal(t, []byte("content"), f.Content)
	})

	t.Run("reports modified files", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "test.txt")
		writeFile(t, path, "initial")

		c := New(dir, WithDebounce(20*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		files, err := c.Watch(ctx)
		require.NoError(t, err)

		writeFile(t, path, "modified")

		f := waitForFile(t, files)
		assert.Equal(t, path, f.Path)
		assert.Equal(t, []byte("modified"), f.Content)
	})

	t.Run("reports files in new subdirectories", func(t *testing.T) {
		dir := t.TempDir()
		c := New(dir, WithDebounce(20*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		files, err := c.Watch(ctx)
		require.NoError(t, err)

		writeFile(t, filepath.Join(dir, "nested", "deep.md"), "# deep")

		f := waitForFile(t, files)
		assert.Equal(t, filepath.Join(dir, "nested", "deep.md"), f.Path)
	})

	t.Run("ignores unsupported and hidden files", func(t *testing.T) {
		dir := t.TempDir()
		c := New(dir, WithDebounce(20*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		files, err := c.Watch(ctx)
		require.NoError(t, err)

		writeFile(t, filepath.Join(dir, "image.png"), "png")
		writeFile(t, filepath.Join(dir, ".secret.txt"), "hidden")
		writeFile(t, filepath.Join(dir, "visible.txt"), "visible")

		f := waitForFile(t, files)
		assert.Equal(t, filepath.Join(dir, "visible.txt"), f.Path)
	})

	t.Run("channel closes on cancel", func(t *testing.T) {
		c := New(t.TempDir())
		ctx, cancel := context.WithCancel(context.Background())

		files, err := c.Watch(ctx)
		require.NoError(t, err)
		cancel()

		select {
		case _, ok := <-files:
			assert.False(t, ok)
		case <-time.After(waitTimeout):
			t.Fatal("channel not closed")
		}
	})

	t.Run("channel closes on Close", func(t *testing.T) {
		c := New(t.TempDir())
		files, err := c.Watch(context.Background())
		require.NoError(t, err)
		require.NoError(t, c.Close())

		select {
		case _, ok := <-files:
			assert.False(t, ok)
		case <-time.After(waitTimeout):
			t.Fatal("channel not closed")
		}
	})

	t.Run("rejects a file root", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a.txt")
		writeFile(t, path, "alpha")

		_, err := New(path).Watch(context.Background())
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("rejects a missing root", func(t *testing.T) {
		_, err := New("/non/existent/path").Watch(context.Background())
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("rejects a second watch", func(t *testing.T) {
		c := New(t.TempDir())
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		_, err := c.Watch(ctx)
		require.NoError(t, err)
		_, err = c.Watch(ctx)
		assert.Error(t, err)
	})
}

func TestConnector_Close(t *testing.T) {
	t.Run("close without watch", func(t *testing.T) {
		assert.NoError(t, New("/tmp").Close())
	})

	t.Run("close twice", func(t *testing.T) {
		c := New(t.TempDir())
		_, err := c.Watch(context.Background())
		require.NoError(t, err)
		assert.NoError(t, c.Close())
		assert.NoError(t, c.Close())
	})
}

func TestHandleFsEvent(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T, dir string) string
		operation fsnotify.Op
		wantPaths int
	}{
		{
			name: "create file",
			setup: func(t *testing.T, dir string) string {
				p := filepath.Join(dir, "a.txt")
				writeFile(t, p, "a")
				return p
			},
			operation: fsnotify.Create,
			wantPaths: 1,
		},
		{
			name: "write file",
			setup: func(t *testing.T, dir string) string {
				p := filepath.Join(dir, "a.txt")
				writeFile(t, p, "a")
				return p
			},
			operation: fsnotify.Write,
			wantPaths: 1,
		},
		{
			name: "remove file ignored",
			setup: func(_ *testing.T, dir string) string {
				return filepath.Join(dir, "gone.txt")
			},
			operation: fsnotify.Remove,
		},
		{
			name: "rename ignored",
			setup: func(_ *testing.T, dir string) string {
				return filepath.Join(dir, "old.txt")
			},
			operation: fsnotify.Rename,
		},
		{
			name: "chmod ignored",
			setup: func(t *testing.T, dir string) string {
				p := filepath.Join(dir, "a.txt")
				writeFile(t, p, "a")
				return p
			},
			operation: fsnotify.Chmod,
		},
		{
			name: "unsupported file ignored",
			setup: func(t *testing.T, dir string) string {
				p := filepath.Join(dir, "a.bin")
				writeFile(t, p, "a")
				return p
			},
			operation: fsnotify.Create,
		},
		{
			name: "hidden file ignored",
			setup: func(t *testing.T, dir string) string {
				p := filepath.Join(dir, ".a.txt")
				writeFile(t, p, "a")
				return p
			},
			operation: fsnotify.Create,
		},
		{
			name: "new directory reports its files",
			setup: func(t *testing.T, dir string) string {
				sub := filepath.Join(dir, "sub")
				writeFile(t, filepath.Join(sub, "one.txt"), "1")
				writeFile(t, filepath.Join(sub, "two.md"), "2")
				writeFile(t, filepath.Join(sub, "skip.bin"), "3")
				return sub
			},
			operation: fsnotify.Create,
			wantPaths: 2,
		},
		{
			name: "empty new directory",
			setup: func(t *testing.T, dir string) string {
				sub := filepath.Join(dir, "empty")
				require.NoError(t, os.Mkdir(sub, 0o755))
				return sub
			},
			operation: fsnotify.Create,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := tt.setup(t, dir)

			watcher, err := fsnotify.NewWatcher()
			require.NoError(t, err)
			defer watcher.Close()

			c := New(dir)
			paths := c.handleEvent(watcher, fsnotify.Event{Name: path, Op: tt.operation})
			assert.Len(t, paths, tt.wantPaths)
		})
	}
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{".hidden", true},
		{"path/to/.hidden", true},
		{"/path/.hidden/file.txt", true},
		{"dir/.git/config", true},
		{"file.txt", false},
		{"path/to/file.txt", false},
		{".", false},
		{"../docs/file.txt", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, isHidden(tt.path))
		})
	}
}

func TestDue(t *testing.T) {
	now := time.Now()
	pending := map[string]time.Time{
		"b": now.Add(-time.Second),
		"a": now.Add(-time.Second),
		"c": now,
	}

	assert.Equal(t, []string{"a", "b"}, due(pending, now, 500*time.Millisecond))
	assert.Empty(t, due(map[string]time.Time{}, now, time.Millisecond))
}

func TestChecksum(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Checksum(nil))
	assert.NotEqual(t, Checksum([]byte("a")), Checksum([]byte("b")))
}
