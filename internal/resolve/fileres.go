package resolve

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/span"
)

// joinSrc joins a path relative to the std source tree onto it.
func joinSrc(srcPath, rel string) string {
	return filepath.Join(srcPath, filepath.FromSlash(rel))
}

// crateFile locates the root file of the crate name as seen from fromFile:
// a std crate first, then a dependency of the enclosing project.
func (r *Resolver) crateFile(name, fromFile string) (string, bool) {
	slog.Debug("crate file", "name", name, "from", fromFile)
	if path, ok := r.stdFile(name); ok {
		return path, true
	}
	project := r.s.Project()
	manifest, ok := project.DiscoverProjectManifest(fromFile)
	if !ok {
		return "", false
	}
	return project.ResolveDependency(manifest, name)
}

// stdFile locates the root of a std crate in either source tree layout.
func (r *Resolver) stdFile(name string) (string, bool) {
	srcPath := r.s.RustSrcPath()
	if srcPath == "" {
		return "", false
	}
	for _, p := range []string{
		filepath.Join(srcPath, "lib"+name, "lib.rs"),
		filepath.Join(srcPath, name, "src", "lib.rs"),
	} {
		if r.s.FileExists(p) {
			return p, true
		}
	}
	return "", false
}

// moduleFile locates `mod name;` declared for dir: dir/name.rs, else
// dir/name/mod.rs.
func (r *Resolver) moduleFile(name, dir string) (string, bool) {
	for _, p := range []string{
		filepath.Join(dir, name+".rs"),
		filepath.Join(dir, name, "mod.rs"),
	} {
		if r.s.FileExists(p) {
			return p, true
		}
	}
	return "", false
}

// searchCrateNames lists the dependencies of file's project whose names
// match search. Hyphens in crate names count as underscores. With
// onlyEdition2018 set, projects on the 2015 edition offer none, since they
// need `extern crate`.
func (r *Resolver) searchCrateNames(search string, st core.SearchType, file string, onlyEdition2018 bool) []core.Match {
	project := r.s.Project()
	manifest, ok := project.DiscoverProjectManifest(file)
	if !ok {
		return nil
	}
	if onlyEdition2018 {
		if ed, _ := project.Edition(manifest); ed < core.Edition2018 {
			return nil
		}
	}
	hyphenated := strings.ReplaceAll(search, "_", "-")
	deps := project.SearchDependencies(manifest, func(name string) bool {
		if st == core.ExactMatch {
			return name == hyphenated || name == search
		}
		return strings.HasPrefix(name, hyphenated) || strings.HasPrefix(name, search)
	})
	out := make([]core.Match, 0, len(deps))
	for _, d := range deps {
		start := span.StartCoordinate
		out = append(out, core.Match{
			Name:   strings.ReplaceAll(d.Name, "-", "_"),
			File:   d.Path,
			Coords: &start,
			Type:   core.Simple(core.KindCrate),
			Docs:   findModDoc(r.rawCode(d.Path)),
		})
	}
	return out
}
