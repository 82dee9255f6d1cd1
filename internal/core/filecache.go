package core

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rust-lang/rls-sub001/internal/metrics"
	"github.com/rust-lang/rls-sub001/internal/source"
)

// DefaultCacheSize bounds the number of disk-loaded files kept in memory.
const DefaultCacheSize = 512

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FileLoader is the only way the resolver reaches the filesystem: file
// contents, existence checks and directory listings all go through it.
type FileLoader interface {
	LoadFile(path string) (string, error)
	Stat(path string) (fs.FileInfo, error)
	ReadDir(path string) ([]fs.DirEntry, error)
}

// DiskLoader reads files from the local filesystem, dropping a UTF-8 BOM.
type DiskLoader struct{}

func (DiskLoader) LoadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("core: load %s: %w", path, err)
	}
	return decodeText(path, data)
}

func (DiskLoader) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }

func (DiskLoader) ReadDir(path string) ([]fs.DirEntry, error) { return os.ReadDir(path) }

// FSLoader serves files from an fs.FS. Absolute paths are looked up with
// the leading separator removed, so "/src/lib.rs" names "src/lib.rs".
type FSLoader struct {
	FS fs.FS
}

func (l FSLoader) name(path string) string {
	name := strings.TrimPrefix(filepath.ToSlash(filepath.Clean(path)), "/")
	if name == "" {
		return "."
	}
	return name
}

func (l FSLoader) LoadFile(path string) (string, error) {
	data, err := fs.ReadFile(l.FS, l.name(path))
	if err != nil {
		return "", fmt.Errorf("core: load %s: %w", path, err)
	}
	return decodeText(path, data)
}

func (l FSLoader) Stat(path string) (fs.FileInfo, error) { return fs.Stat(l.FS, l.name(path)) }

func (l FSLoader) ReadDir(path string) ([]fs.DirEntry, error) {
	return fs.ReadDir(l.FS, l.name(path))
}

func decodeText(path string, data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("core: load %s: invalid UTF-8", path)
	}
	return string(data), nil
}

type cachedFile struct {
	raw *source.RawSource

	maskOnce sync.Once
	masked   atomic.Pointer[source.MaskedSource]
}

func newCachedFile(text string) *cachedFile {
	return &cachedFile{raw: source.NewRawSource(text)}
}

func (f *cachedFile) maskedSource() *source.MaskedSource {
	f.maskOnce.Do(func() { f.masked.Store(source.NewMaskedSource(f.raw.Code)) })
	return f.masked.Load()
}

// FileCache holds raw and comment-masked text per path. Contents supplied
// with CacheFileContents stay until removed; files read through the loader
// live in a bounded LRU.
type FileCache struct {
	loader  FileLoader
	metrics *metrics.Metrics

	mu        sync.Mutex
	overrides map[string]*cachedFile
	disk      *lru.Cache[string, *cachedFile]
}

// NewFileCache returns a cache backed by loader. A nil loader reads from
// disk; a non-positive size uses DefaultCacheSize.
func NewFileCache(loader FileLoader, size int, m *metrics.Metrics) *FileCache {
	if loader == nil {
		loader = DiskLoader{}
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	disk, err := lru.New[string, *cachedFile](size)
	if err != nil {
		panic(fmt.Sprintf("core: lru cache: %v", err))
	}
	return &FileCache{
		loader:    loader,
		metrics:   m,
		overrides: make(map[string]*cachedFile),
		disk:      disk,
	}
}

// CacheFileContents replaces the contents of path, e.g. with an unsaved
// editor buffer.
func (c *FileCache) CacheFileContents(path, text string) {
	f := newCachedFile(text)
	f.maskedSource()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides[path] = f
	c.disk.Remove(path)
}

// RemoveFile drops path from the cache and reports whether it was present.
func (c *FileCache) RemoveFile(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.overrides[path]
	delete(c.overrides, path)
	return c.disk.Remove(path) || ok
}

// Contains reports whether path is loaded and masked.
func (c *FileCache) Contains(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.overrides[path]; ok {
		return true
	}
	f, ok := c.disk.Peek(path)
	return ok && f.masked.Load() != nil
}

var emptyFile = newCachedFile("")

func (c *FileCache) lookup(path string) *cachedFile {
	if path == "" {
		return emptyFile
	}
	c.mu.Lock()
	if f, ok := c.overrides[path]; ok {
		c.mu.Unlock()
		return f
	}
	if f, ok := c.disk.Get(path); ok {
		c.mu.Unlock()
		return f
	}
	c.mu.Unlock()

	text, err := c.loader.LoadFile(path)
	if err != nil {
		slog.Warn("file load failed", "path", path, "error", err)
	}
	c.metrics.FileLoaded()
	f := newCachedFile(text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.overrides[path]; ok {
		return existing
	}
	c.disk.Add(path, f)
	return f
}

// Stat reports whether path is a cached file, else asks the loader.
func (c *FileCache) Stat(path string) (exists, isDir bool) {
	if path == "" {
		return false, false
	}
	c.mu.Lock()
	_, ok := c.overrides[path]
	c.mu.Unlock()
	if ok {
		return true, false
	}
	info, err := c.loader.Stat(path)
	if err != nil {
		return false, false
	}
	return true, info.IsDir()
}

// ReadDir lists a directory through the loader.
func (c *FileCache) ReadDir(path string) ([]fs.DirEntry, error) {
	return c.loader.ReadDir(path)
}

// Raw returns the raw text of path. A file that cannot be read is empty.
func (c *FileCache) Raw(path string) *source.RawSource {
	return c.lookup(path).raw
}

// Masked returns the text of path with comments and literals blanked.
func (c *FileCache) Masked(path string) *source.MaskedSource {
	return c.lookup(path).maskedSource()
}
