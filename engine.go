package sema

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/rust-lang/rls-sub001/internal/config"
	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/metrics"
	"github.com/rust-lang/rls-sub001/internal/project"
	"github.com/rust-lang/rls-sub001/internal/resolve"
)

// Engine owns the file cache and settings shared by the sessions it opens.
type Engine struct {
	cache   *core.FileCache
	project core.ProjectModel
	metrics *metrics.Metrics
	logger  *slog.Logger

	rustSrcPath    string
	rustSrcPathSet bool
	cacheSize      int
	withMetrics    bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithRustSrcPath sets the std source tree instead of discovering it. An
// empty path disables std lookups.
func WithRustSrcPath(path string) Option {
	return func(e *Engine) {
		e.rustSrcPath = path
		e.rustSrcPathSet = true
	}
}

// WithProject sets the model used to find dependency crates. The default
// reads Cargo.toml and Cargo.lock files.
func WithProject(p ProjectModel) Option {
	return func(e *Engine) {
		e.project = p
	}
}

// WithCacheSize bounds the number of files read from disk kept in memory.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		e.cacheSize = n
	}
}

// WithLogger sets the logger for engine events. Resolution internals log
// through the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics records query latencies and resolution counters, readable
// through WriteMetrics.
func WithMetrics(enabled bool) Option {
	return func(e *Engine) {
		e.withMetrics = enabled
	}
}

// WithConfig applies the settings of a loaded config file. Options given
// after it take precedence.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		if cfg.RustSrcPath != "" {
			WithRustSrcPath(cfg.RustSrcPath)(e)
		}
		e.cacheSize = cfg.CacheSize
		e.withMetrics = cfg.Metrics
	}
}

// New creates an Engine. A std source path given through WithRustSrcPath
// must be valid; a discovered one that cannot be found only disables std
// lookups.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}

	switch {
	case e.rustSrcPathSet && e.rustSrcPath != "":
		p, err := config.ValidateRustSrcPath(e.rustSrcPath)
		if err != nil {
			return nil, fmt.Errorf("sema: rust src path: %w", err)
		}
		e.rustSrcPath = p
	case !e.rustSrcPathSet:
		p, err := config.DiscoverRustSrcPath()
		if err != nil {
			e.logger.Warn("std completion disabled", "err", err)
		}
		e.rustSrcPath = p
	}

	if e.withMetrics {
		e.metrics = metrics.New()
	}
	if e.project == nil {
		e.project = project.NewCargoModel()
	}
	e.cache = core.NewFileCache(nil, e.cacheSize, e.metrics)
	e.logger.Debug("engine ready", "rust_src_path", e.rustSrcPath, "cache_size", e.cacheSize)
	return e, nil
}

// RustSrcPath returns the std source tree in use, or "" when there is none.
func (e *Engine) RustSrcPath() string {
	return e.rustSrcPath
}

// CacheFileContents makes queries see text as the contents of path, e.g.
// an unsaved editor buffer.
func (e *Engine) CacheFileContents(path, text string) {
	e.cache.CacheFileContents(path, text)
}

// ForgetFile drops cached contents of path so the next query rereads it.
func (e *Engine) ForgetFile(path string) {
	e.cache.RemoveFile(path)
}

// WriteMetrics renders the collected metrics in the Prometheus text
// format. It writes nothing when metrics are disabled.
func (e *Engine) WriteMetrics(w io.Writer) error {
	if e.metrics == nil {
		return nil
	}
	if err := e.metrics.WriteText(w); err != nil {
		return fmt.Errorf("sema: write metrics: %w", err)
	}
	return nil
}

// NewSession opens a snapshot of the sources for a series of queries.
func (e *Engine) NewSession() *Session {
	s := core.NewSession(e.cache,
		core.WithProjectModel(e.project),
		core.WithRustSrcPath(e.rustSrcPath),
		core.WithMetrics(e.metrics),
	)
	return &Session{s: s, r: resolve.New(s)}
}

// The methods below run one query in a fresh session.

func (e *Engine) CompleteFromFile(path string, pos BytePos) []Match {
	return e.NewSession().CompleteFromFile(path, pos)
}

func (e *Engine) FindDefinition(path string, pos BytePos) (Match, bool) {
	return e.NewSession().FindDefinition(path, pos)
}

func (e *Engine) CompleteFullyQualifiedName(name, path string) []Match {
	return e.NewSession().CompleteFullyQualifiedName(name, path)
}

func (e *Engine) TypeOf(path string, pos BytePos) (Ty, bool) {
	return e.NewSession().TypeOf(path, pos)
}

func (e *Engine) Snippet(m Match) string {
	return e.NewSession().Snippet(m)
}

func (e *Engine) ToPoint(path string, c Coordinate) (BytePos, bool) {
	return e.NewSession().ToPoint(path, c)
}

func (e *Engine) ToCoords(path string, pos BytePos) (Coordinate, bool) {
	return e.NewSession().ToCoords(path, pos)
}

func (e *Engine) ExpandIdent(path string, pos BytePos) ExpandedIdent {
	return e.NewSession().ExpandIdent(path, pos)
}

func (e *Engine) IsUseStmt(path string, pos BytePos) bool {
	return e.NewSession().IsUseStmt(path, pos)
}
