package project

import (
	"cmp"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rust-lang/rls-sub001/internal/core"
)

// pkgInfo is what a manifest resolves to once loaded.
type pkgInfo struct {
	edition core.Edition
	lib     *core.Dependency
	deps    []core.Dependency
}

// CargoModel implements core.ProjectModel from Cargo.toml and Cargo.lock
// files. Each manifest is loaded once, on first use.
type CargoModel struct {
	cargoHome string

	mu       sync.Mutex
	packages map[string]*pkgInfo
}

var _ core.ProjectModel = (*CargoModel)(nil)

// Option configures a CargoModel.
type Option func(*CargoModel)

// WithCargoHome sets the directory holding the registry sources.
func WithCargoHome(dir string) Option {
	return func(m *CargoModel) { m.cargoHome = dir }
}

// NewCargoModel returns a model reading registry sources from CARGO_HOME,
// else ~/.cargo.
func NewCargoModel(opts ...Option) *CargoModel {
	m := &CargoModel{
		cargoHome: defaultCargoHome(),
		packages:  make(map[string]*pkgInfo),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func defaultCargoHome() string {
	if dir := os.Getenv("CARGO_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cargo")
}

func (m *CargoModel) DiscoverProjectManifest(path string) (string, bool) {
	return FindManifest(path)
}

func (m *CargoModel) Edition(manifest string) (core.Edition, bool) {
	p := m.load(manifest)
	if p == nil {
		return core.Edition2015, false
	}
	return p.edition, true
}

// SearchDependencies lists the dependencies of manifest, then its own
// library, whose names pass filter.
func (m *CargoModel) SearchDependencies(manifest string, filter func(string) bool) []core.Dependency {
	p := m.load(manifest)
	if p == nil {
		return nil
	}
	var out []core.Dependency
	for _, d := range p.deps {
		if filter(d.Name) {
			out = append(out, d)
		}
	}
	if p.lib != nil && filter(p.lib.Name) {
		out = append(out, *p.lib)
	}
	return out
}

// ResolveDependency finds the root file of crate name as used from
// manifest: a dependency by name or its hyphenated form, else the
// package's own library.
func (m *CargoModel) ResolveDependency(manifest, name string) (string, bool) {
	p := m.load(manifest)
	if p == nil {
		return "", false
	}
	hyphenated := strings.ReplaceAll(name, "_", "-")
	for _, want := range []string{name, hyphenated} {
		for _, d := range p.deps {
			if d.Name == want {
				return d.Path, true
			}
		}
	}
	if p.lib != nil && strings.ReplaceAll(p.lib.Name, "-", "_") == name {
		return p.lib.Path, true
	}
	return "", false
}

func (m *CargoModel) load(manifest string) *pkgInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.packages[manifest]; ok {
		return p
	}
	p, err := m.read(manifest)
	if err != nil {
		slog.Warn("cannot load cargo project", "manifest", manifest, "err", err)
	}
	m.packages[manifest] = p
	return p
}

func (m *CargoModel) read(manifest string) (*pkgInfo, error) {
	man, err := ReadManifest(manifest)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(manifest)
	p := &pkgInfo{}
	if ed, ok := core.ParseEdition(man.Package.Edition); ok {
		p.edition = ed
	}
	if lib := man.LibPath(dir); fileExists(lib) {
		p.lib = &core.Dependency{Name: man.LibName(), Path: lib}
	}

	var lock *Lock
	if path, ok := findLock(dir); ok {
		if lock, err = ReadLock(path); err != nil {
			slog.Warn("ignoring unreadable lock file", "path", path, "err", err)
		}
	}
	for _, dep := range man.Deps() {
		root, ok := m.depRoot(dir, dep, lock)
		if !ok {
			slog.Debug("dependency sources not found", "manifest", manifest, "dep", dep.Name)
			continue
		}
		lib, ok := libOf(root)
		if !ok {
			continue
		}
		p.deps = append(p.deps, core.Dependency{Name: dep.Name, Path: lib})
	}
	slices.SortFunc(p.deps, func(a, b core.Dependency) int { return cmp.Compare(a.Name, b.Name) })
	return p, nil
}

// depRoot locates the package directory of a dependency: a path relative
// to the manifest, else the registry checkout of a locked version.
func (m *CargoModel) depRoot(dir string, dep DepSpec, lock *Lock) (string, bool) {
	if dep.Path != "" {
		root := filepath.Join(dir, filepath.FromSlash(dep.Path))
		return root, fileExists(filepath.Join(root, ManifestName))
	}
	if lock == nil || m.cargoHome == "" {
		return "", false
	}
	for _, v := range lock.Versions(dep.Package) {
		pattern := filepath.Join(m.cargoHome, "registry", "src", "*", dep.Package+"-"+v)
		matches, err := filepath.Glob(pattern)
		if err != nil || len(matches) == 0 {
			continue
		}
		return matches[0], true
	}
	return "", false
}

// libOf returns the library root file of the package in dir.
func libOf(dir string) (string, bool) {
	lib := filepath.Join(dir, "src", "lib.rs")
	if man, err := ReadManifest(filepath.Join(dir, ManifestName)); err == nil {
		lib = man.LibPath(dir)
	}
	return lib, fileExists(lib)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
