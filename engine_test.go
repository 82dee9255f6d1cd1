package sema

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rust-lang/rls-sub001/internal/config"
	"github.com/rust-lang/rls-sub001/internal/core"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(append([]Option{WithRustSrcPath("")}, opts...)...)
	require.NoError(t, err)
	return e
}

func writeFile(t *testing.T, path, text string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
}

// =============================================================================
// Construction
// =============================================================================

func TestNew_NoStd(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	assert.Empty(t, e.RustSrcPath())
	assert.NotNil(t, e.NewSession())
}

func TestNew_RustSrcPath(t *testing.T) {
	t.Parallel()
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "std", "src"), 0o755))

	e, err := New(WithRustSrcPath(src))
	require.NoError(t, err)
	assert.Equal(t, src, e.RustSrcPath())
}

func TestNew_InvalidRustSrcPath(t *testing.T) {
	t.Parallel()
	_, err := New(WithRustSrcPath(t.TempDir()))
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrRustSrcNotSourceTree)

	_, err = New(WithRustSrcPath(filepath.Join(t.TempDir(), "missing")))
	assert.ErrorIs(t, err, config.ErrRustSrcDoesNotExist)
}

func TestWithConfig(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.CacheSize = 4
	cfg.Metrics = true

	e := newTestEngine(t, WithConfig(&cfg))
	assert.Equal(t, 4, e.cacheSize)
	assert.NotNil(t, e.metrics)
}

func TestWithProject(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithProject(core.NoProject{}))
	assert.Equal(t, core.NoProject{}, e.project)
}

// =============================================================================
// Metrics
// =============================================================================

func TestWriteMetrics(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "main.rs")
	writeFile(t, file, "fn main() {}\n")

	e := newTestEngine(t, WithMetrics(true))
	e.CompleteFromFile(file, 3)

	var buf bytes.Buffer
	require.NoError(t, e.WriteMetrics(&buf))
	assert.Contains(t, buf.String(), "sema_query_seconds")
}

func TestWriteMetrics_Disabled(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	var buf bytes.Buffer
	require.NoError(t, e.WriteMetrics(&buf))
	assert.Empty(t, buf.String())
}
