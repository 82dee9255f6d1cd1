package core

import (
	"io/fs"
	"log/slog"

	"github.com/rust-lang/rls-sub001/internal/metrics"
	"github.com/rust-lang/rls-sub001/internal/source"
	"github.com/rust-lang/rls-sub001/internal/span"
)

// Edition is a Rust language edition.
type Edition int

const (
	Edition2015 Edition = iota
	Edition2018
	Edition2021
)

func (e Edition) String() string {
	switch e {
	case Edition2018:
		return "2018"
	case Edition2021:
		return "2021"
	}
	return "2015"
}

// ParseEdition maps a Cargo.toml edition string to an Edition.
func ParseEdition(s string) (Edition, bool) {
	switch s {
	case "2015":
		return Edition2015, true
	case "2018":
		return Edition2018, true
	case "2021", "2024":
		return Edition2021, true
	}
	return Edition2015, false
}

// Dependency is a crate name and the path of its root source file.
type Dependency struct {
	Name string
	Path string
}

// ProjectModel answers questions about the Cargo project enclosing a file.
type ProjectModel interface {
	Edition(manifest string) (Edition, bool)
	DiscoverProjectManifest(path string) (string, bool)
	SearchDependencies(manifest string, filter func(name string) bool) []Dependency
	ResolveDependency(manifest, name string) (string, bool)
}

// NoProject is a ProjectModel that knows no manifests.
type NoProject struct{}

func (NoProject) Edition(string) (Edition, bool)                 { return Edition2015, false }
func (NoProject) DiscoverProjectManifest(string) (string, bool) { return "", false }
func (NoProject) SearchDependencies(string, func(string) bool) []Dependency {
	return nil
}
func (NoProject) ResolveDependency(string, string) (string, bool) { return "", false }

type implCacheKey struct {
	file  string
	scope span.BytePos
}

// Session is the state of one resolution request: the file cache, the
// project model, the std source location and the generic impl cache. A
// Session is not safe for concurrent use.
type Session struct {
	cache       *FileCache
	project     ProjectModel
	rustSrcPath string
	metrics     *metrics.Metrics

	genericImpls map[implCacheKey][]*ImplHeader
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithProjectModel sets the project model. The default knows no projects.
func WithProjectModel(p ProjectModel) SessionOption {
	return func(s *Session) { s.project = p }
}

// WithRustSrcPath sets the std source tree location. Empty means absent.
func WithRustSrcPath(path string) SessionOption {
	return func(s *Session) { s.rustSrcPath = path }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m *metrics.Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// NewSession starts a session over cache. A nil cache reads from disk.
func NewSession(cache *FileCache, opts ...SessionOption) *Session {
	if cache == nil {
		cache = NewFileCache(nil, 0, nil)
	}
	s := &Session{
		cache:        cache,
		project:      NoProject{},
		genericImpls: make(map[implCacheKey][]*ImplHeader),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Project() ProjectModel { return s.project }

// RustSrcPath returns the std source tree, or "" when it is not configured.
func (s *Session) RustSrcPath() string { return s.rustSrcPath }

func (s *Session) Metrics() *metrics.Metrics { return s.metrics }

func (s *Session) CacheFileContents(path, text string) {
	s.cache.CacheFileContents(path, text)
}

func (s *Session) ContainsFile(path string) bool { return s.cache.Contains(path) }

func (s *Session) LoadRawFile(path string) *source.RawSource { return s.cache.Raw(path) }

func (s *Session) LoadSourceFile(path string) *source.MaskedSource { return s.cache.Masked(path) }

// LoadRawSrcRanged returns the raw text covering the same window as src.
func (s *Session) LoadRawSrcRanged(src source.Src, path string) string {
	return src.Range.Slice(s.cache.Raw(path).Code)
}

// FileExists reports whether path is cached or a file the loader knows.
func (s *Session) FileExists(path string) bool {
	ok, isDir := s.cache.Stat(path)
	return ok && !isDir
}

// DirExists reports whether path is a directory the loader knows.
func (s *Session) DirExists(path string) bool {
	ok, isDir := s.cache.Stat(path)
	return ok && isDir
}

// ReadDir lists a directory; errors yield no entries.
func (s *Session) ReadDir(path string) []fs.DirEntry {
	entries, err := s.cache.ReadDir(path)
	if err != nil {
		slog.Debug("read dir failed", "path", path, "error", err)
		return nil
	}
	return entries
}

// GenericImpls returns the generic impl headers found in the scope of file
// starting at scope, computing them once per session.
func (s *Session) GenericImpls(file string, scope span.BytePos, compute func() []*ImplHeader) []*ImplHeader {
	key := implCacheKey{file: file, scope: scope}
	if headers, ok := s.genericImpls[key]; ok {
		s.metrics.ImplCacheHit()
		return headers
	}
	s.metrics.ImplCacheMiss()
	headers := compute()
	s.genericImpls[key] = headers
	return headers
}

// ToPoint converts a coordinate in path to a byte offset.
func (s *Session) ToPoint(path string, c span.Coordinate) (span.BytePos, bool) {
	return s.LoadRawFile(path).ToPoint(c)
}

// ToCoords converts a byte offset in path to a coordinate.
func (s *Session) ToCoords(path string, p span.BytePos) (span.Coordinate, bool) {
	return s.LoadRawFile(path).ToCoords(p)
}

// FillCoords sets m.Coords from its point when missing.
func (s *Session) FillCoords(m *Match) {
	if m.Coords != nil || m.File == "" {
		return
	}
	if c, ok := s.ToCoords(m.File, m.Point); ok {
		m.Coords = &c
	}
}
