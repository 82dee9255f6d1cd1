package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rust-lang/rls-sub001/internal/core"
)

func writeFile(t *testing.T, path, text string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
}

// fixture lays out a package "app" with a path dependency, a registry
// dependency and a dev dependency under a fake CARGO_HOME.
func fixture(t *testing.T) (manifest, cargoHome string) {
	t.Helper()
	root := t.TempDir()
	cargoHome = filepath.Join(root, "cargo")

	manifest = filepath.Join(root, "app", ManifestName)
	writeFile(t, manifest, `
[package]
name = "my-app"
edition = "2018"

[dependencies]
util = { path = "../util" }
serde_json = "1.0"
missing = "0.1"

[dev-dependencies]
pretty-assert = { version = "0.6", package = "pretty_assertions" }
`)
	writeFile(t, filepath.Join(root, "app", "src", "lib.rs"), "pub fn app() {}\n")
	writeFile(t, filepath.Join(root, "app", LockName), `
version = 3

[[package]]
name = "my-app"
version = "0.1.0"

[[package]]
name = "serde_json"
version = "1.0.99"
source = "registry+https://github.com/rust-lang/crates.io-index"

[[package]]
name = "pretty_assertions"
version = "0.6.1"
source = "registry+https://github.com/rust-lang/crates.io-index"
`)

	writeFile(t, filepath.Join(root, "util", ManifestName), "[package]\nname = \"util\"\n\n[lib]\npath = \"lib/root.rs\"\n")
	writeFile(t, filepath.Join(root, "util", "lib", "root.rs"), "pub fn helper() {}\n")

	registry := filepath.Join(cargoHome, "registry", "src", "index.crates.io-6f17d22bba15001f")
	writeFile(t, filepath.Join(registry, "serde_json-1.0.99", "src", "lib.rs"), "pub fn to_string() {}\n")
	writeFile(t, filepath.Join(registry, "pretty_assertions-0.6.1", "src", "lib.rs"), "\n")
	return manifest, cargoHome
}

// =============================================================================
// Manifests
// =============================================================================

func TestFindManifest(t *testing.T) {
	t.Parallel()
	manifest, _ := fixture(t)
	file := filepath.Join(filepath.Dir(manifest), "src", "lib.rs")

	got, ok := FindManifest(file)
	require.True(t, ok)
	assert.Equal(t, manifest, got)

	got, ok = FindManifest(filepath.Dir(file))
	require.True(t, ok)
	assert.Equal(t, manifest, got)
}

func TestReadManifest_Deps(t *testing.T) {
	t.Parallel()
	manifest, _ := fixture(t)
	man, err := ReadManifest(manifest)
	require.NoError(t, err)

	assert.Equal(t, "my_app", man.LibName())
	byName := make(map[string]DepSpec)
	for _, d := range man.Deps() {
		byName[d.Name] = d
	}
	require.Len(t, byName, 4)
	assert.Equal(t, "../util", byName["util"].Path)
	assert.Equal(t, "1.0", byName["serde_json"].Version)
	assert.Equal(t, "pretty_assertions", byName["pretty-assert"].Package)
}

func TestReadManifest_Invalid(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ManifestName)
	writeFile(t, path, "[package\n")
	_, err := ReadManifest(path)
	assert.ErrorContains(t, err, "project: read manifest")
}

// =============================================================================
// CargoModel
// =============================================================================

func TestCargoModel_Edition(t *testing.T) {
	t.Parallel()
	manifest, home := fixture(t)
	m := NewCargoModel(WithCargoHome(home))

	ed, ok := m.Edition(manifest)
	require.True(t, ok)
	assert.Equal(t, core.Edition2018, ed)
}

func TestCargoModel_ResolveDependency(t *testing.T) {
	t.Parallel()
	manifest, home := fixture(t)
	m := NewCargoModel(WithCargoHome(home))

	got, ok := m.ResolveDependency(manifest, "util")
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(got, filepath.Join("util", "lib", "root.rs")))

	got, ok = m.ResolveDependency(manifest, "serde_json")
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(got, filepath.Join("serde_json-1.0.99", "src", "lib.rs")))

	// Hyphenated names are reachable by their underscore form.
	_, ok = m.ResolveDependency(manifest, "pretty_assert")
	assert.True(t, ok)

	got, ok = m.ResolveDependency(manifest, "my_app")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(filepath.Dir(manifest), "src", "lib.rs"), got)

	_, ok = m.ResolveDependency(manifest, "missing")
	assert.False(t, ok)
}

func TestCargoModel_SearchDependencies(t *testing.T) {
	t.Parallel()
	manifest, home := fixture(t)
	m := NewCargoModel(WithCargoHome(home))

	deps := m.SearchDependencies(manifest, func(string) bool { return true })
	names := make([]string, len(deps))
	for i, d := range deps {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"pretty-assert", "serde_json", "util", "my_app"}, names)

	deps = m.SearchDependencies(manifest, func(n string) bool { return strings.HasPrefix(n, "ser") })
	require.Len(t, deps, 1)
	assert.Equal(t, "serde_json", deps[0].Name)
}

func TestCargoModel_BrokenManifest(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ManifestName)
	writeFile(t, path, "not toml at all [")
	m := NewCargoModel(WithCargoHome(t.TempDir()))

	_, ok := m.Edition(path)
	assert.False(t, ok)
	assert.Empty(t, m.SearchDependencies(path, func(string) bool { return true }))
	_, ok = m.ResolveDependency(path, "anything")
	assert.False(t, ok)
}

func TestCargoModel_DefaultEdition(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ManifestName)
	writeFile(t, path, "[package]\nname = \"old\"\n")
	m := NewCargoModel(WithCargoHome(t.TempDir()))

	ed, ok := m.Edition(path)
	require.True(t, ok)
	assert.Equal(t, core.Edition2015, ed)
}
