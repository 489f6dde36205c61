// Package filesystem reads documents from a local directory and watches
// it for changes.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/logger"
)

// DefaultDebounce is how long a path must stay quiet before a change is reported.
const DefaultDebounce = 250 * time.Millisecond

// MetaPath is the metadata key holding a document's source path.
const MetaPath = "path"

// File is a supported document read from disk.
type File struct {
	Path     string
	Format   domain.Format
	Content  []byte
	Checksum string
	ModTime  time.Time
}

// RawDocument converts the file for upload.
func (f File) RawDocument() *domain.RawDocument {
	return &domain.RawDocument{
		Filename: filepath.Base(f.Path),
		Format:   f.Format,
		Content:  f.Content,
		Metadata: map[string]string{MetaPath: f.Path},
	}
}

// Connector scans and watches a root path.
type Connector struct {
	root     string
	formats  map[domain.Format]bool
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// Option configures a Connector.
type Option func(*Connector)

// WithFormats limits the connector to the given formats.
// By default every known format is accepted.
func WithFormats(formats ...domain.Format) Option {
	return func(c *Connector) {
		c.formats = make(map[domain.Format]bool, len(formats))
		for _, f := range formats {
			c.formats[f] = true
		}
	}
}

// WithDebounce sets the quiet period before a change is reported.
func WithDebounce(d time.Duration) Option {
	return func(c *Connector) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// New creates a connector for root, which may be a directory or a single file.
func New(root string, opts ...Option) *Connector {
	c := &Connector{
		root:     ResolvePath(root),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the resolved root path.
func (c *Connector) Root() string {
	return c.root
}

// Validate checks that the root exists.
func (c *Connector) Validate() error {
	if c.root == "" {
		return domain.NewError(domain.KindInvalidInput, "path is required", nil)
	}
	if _, err := os.Stat(c.root); err != nil {
		return domain.NewError(domain.KindInvalidInput, fmt.Sprintf("cannot access %s", c.root), err)
	}
	return nil
}

// Scan reads every supported, non-hidden file under the root in lexical order.
func (c *Connector) Scan(ctx context.Context) ([]File, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	info, err := os.Stat(c.root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		if _, ok := c.supported(c.root); !ok {
			return nil, domain.Errorf(domain.KindUnsupportedFormat, "unsupported file %s", filepath.Base(c.root))
		}
		f, err := c.readFile(c.root)
		if err != nil {
			return nil, err
		}
		return []File{f}, nil
	}

	var paths []string
	err = filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if c.isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := c.supported(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", c.root, err)
	}
	sort.Strings(paths)

	files := make([]File, 0, len(paths))
	for _, path := range paths {
		f, err := c.readFile(path)
		if err != nil {
			logger.Warn("Skipping %s: %v", path, err)
			continue
		}
		files = append(files, f)
	}
	logger.Debug("Scanned %s: %d supported files", c.root, len(files))
	return files, nil
}

// Watch reports created and modified supported files until ctx is cancelled
// or Close is called. The root must be a directory. Subdirectories are
// watched too, including ones created later. Removals are ignored.
func (c *Connector) Watch(ctx context.Context) (<-chan File, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	info, err := os.Stat(c.root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, domain.Errorf(domain.KindInvalidInput, "%s is not a directory", c.root)
	}

	c.mu.Lock()
	if c.watcher != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("already watching %s", c.root)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	c.watcher = watcher
	c.mu.Unlock()

	if err := c.addTree(watcher, c.root); err != nil {
		_ = c.Close()
		return nil, err
	}

	out := make(chan File)
	go c.run(ctx, watcher, out)
	return out, nil
}

func (c *Connector) run(ctx context.Context, watcher *fsnotify.Watcher, out chan<- File) {
	defer close(out)
	defer func() { _ = c.Close() }()

	ticker := time.NewTicker(c.debounce / 2)
	defer ticker.Stop()

	pending := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			for _, path := range c.handleEvent(watcher, event) {
				pending[path] = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)

		case now := <-ticker.C:
			for _, path := range due(pending, now, c.debounce) {
				delete(pending, path)
				f, err := c.readFile(path)
				if err != nil {
					logger.Debug("Skipping %s: %v", path, err)
					continue
				}
				select {
				case out <- f:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// handleEvent returns the paths an event makes ready to report.
// New directories are added to the watcher and their files reported.
func (c *Connector) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) []string {
	if c.isHidden(event.Name) {
		return nil
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
			logger.Debug("Ignoring removal of %s", event.Name)
		}
		return nil
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return nil
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := c.addTree(watcher, event.Name); err != nil {
				logger.Warn("Watching %s: %v", event.Name, err)
			}
			return c.supportedUnder(event.Name)
		}
		return nil
	}
	if _, ok := c.supported(event.Name); !ok {
		return nil
	}
	return []string{event.Name}
}

// addTree watches dir and its non-hidden subdirectories.
func (c *Connector) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if c.isHidden(path) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (c *Connector) supportedUnder(dir string) []string {
	var paths []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if c.isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			if _, ok := c.supported(path); ok {
				paths = append(paths, path)
			}
		}
		return nil
	})
	return paths
}

// Close stops watching. It is safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher == nil {
		return nil
	}
	err := c.watcher.Close()
	c.watcher = nil
	return err
}

func (c *Connector) supported(path string) (domain.Format, bool) {
	f, ok := domain.FormatFromFilename(path)
	if !ok {
		return "", false
	}
	if c.formats != nil && !c.formats[f] {
		return "", false
	}
	return f, true
}

// isHidden reports whether any element of path below the root starts with a dot.
func (c *Connector) isHidden(path string) bool {
	rel, err := filepath.Rel(c.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = path
	}
	return isHidden(rel)
}

func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}

func (c *Connector) readFile(path string) (File, error) {
	format, ok := c.supported(path)
	if !ok {
		return File{}, domain.Errorf(domain.KindUnsupportedFormat, "unsupported file %s", filepath.Base(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", path, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", path, err)
	}
	return File{
		Path:     path,
		Format:   format,
		Content:  content,
		Checksum: Checksum(content),
		ModTime:  info.ModTime(),
	}, nil
}

// Checksum returns the hex SHA-256 of content, matching the checksum
// recorded on ingested documents.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// due returns pending paths quiet for at least d, sorted.
func due(pending map[string]time.Time, now time.Time, d time.Duration) []string {
	var ready []string
	for path, at := range pending {
		if now.Sub(at) >= d {
			ready = append(ready, path)
		}
	}
	sort.Strings(ready)
	return ready
}
