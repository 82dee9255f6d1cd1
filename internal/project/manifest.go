// Package project reads Cargo manifests and lock files to answer which
// crates a package depends on and where their sources live.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	ManifestName = "Cargo.toml"
	LockName     = "Cargo.lock"
)

// FindManifest walks up from path, a file or directory, to the nearest
// Cargo.toml.
func FindManifest(path string) (string, bool) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		p := filepath.Join(dir, ManifestName)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Manifest is the subset of Cargo.toml the resolver needs.
type Manifest struct {
	Package struct {
		Name    string `toml:"name"`
		Edition string `toml:"edition"`
	} `toml:"package"`
	Lib struct {
		Name string `toml:"name"`
		Path string `toml:"path"`
	} `toml:"lib"`
	Dependencies    map[string]any `toml:"dependencies"`
	DevDependencies map[string]any `toml:"dev-dependencies"`
}

// DepSpec is one entry of a dependencies table.
type DepSpec struct {
	// Name is the key the crate is referred to by in code.
	Name string
	// Package is the name the crate is published under.
	Package string
	Version string
	Path    string
}

// ReadManifest decodes the Cargo.toml at path.
func ReadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("project: read manifest %s: %w", path, err)
	}
	return &m, nil
}

// LibName is the crate name of the package's library target.
func (m *Manifest) LibName() string {
	if m.Lib.Name != "" {
		return m.Lib.Name
	}
	return strings.ReplaceAll(m.Package.Name, "-", "_")
}

// LibPath is the root file of the library target of the manifest in dir.
func (m *Manifest) LibPath(dir string) string {
	if m.Lib.Path != "" {
		return filepath.Join(dir, filepath.FromSlash(m.Lib.Path))
	}
	return filepath.Join(dir, "src", "lib.rs")
}

// Deps lists normal then dev dependencies. A dev dependency shadowed by a
// normal one of the same name is dropped.
func (m *Manifest) Deps() []DepSpec {
	var out []DepSpec
	seen := make(map[string]bool)
	for _, table := range []map[string]any{m.Dependencies, m.DevDependencies} {
		for name, v := range table {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, parseDep(name, v))
		}
	}
	return out
}

func parseDep(name string, v any) DepSpec {
	d := DepSpec{Name: name, Package: name}
	switch v := v.(type) {
	case string:
		d.Version = v
	case map[string]any:
		if s, ok := v["version"].(string); ok {
			d.Version = s
		}
		if s, ok := v["path"].(string); ok {
			d.Path = s
		}
		if s, ok := v["package"].(string); ok {
			d.Package = s
		}
	}
	return d
}

// Lock is the package list of a Cargo.lock file.
type Lock struct {
	Packages []LockedPackage `toml:"package"`
}

type LockedPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Source  string `toml:"source"`
}

// ReadLock decodes the Cargo.lock at path.
func ReadLock(path string) (*Lock, error) {
	var l Lock
	if _, err := toml.DecodeFile(path, &l); err != nil {
		return nil, fmt.Errorf("project: read lock %s: %w", path, err)
	}
	return &l, nil
}

// Versions returns the locked versions of the registry package name.
func (l *Lock) Versions(name string) []string {
	var out []string
	for _, p := range l.Packages {
		if p.Name == name && p.Source != "" {
			out = append(out, p.Version)
		}
	}
	return out
}

// findLock walks up from dir to the nearest Cargo.lock, which sits at the
// workspace root for workspace members.
func findLock(dir string) (string, bool) {
	for {
		p := filepath.Join(dir, LockName)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
