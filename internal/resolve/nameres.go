package resolve

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/source"
	"github.com/rust-lang/rls-sub001/internal/span"
)

// ResolvePath finds the declarations path refers to from pos in file.
func (r *Resolver) ResolvePath(path core.Path, file string, pos span.BytePos, st core.SearchType, ns core.Namespace) []core.Match {
	return r.resolvePath(path, file, pos, st, ns, importInfo{})
}

// ResolveName finds the declarations a single segment refers to from pos in
// file.
func (r *Resolver) ResolveName(seg core.PathSegment, file string, pos span.BytePos, st core.SearchType, ns core.Namespace) []core.Match {
	return r.resolveName(seg, file, pos, st, ns, importInfo{})
}

// ResolvePathWithPrimitive is ResolvePath that also considers primitive
// type modules for single segment paths, and applies the generic arguments
// of the path's last segment to each match.
func (r *Resolver) ResolvePathWithPrimitive(path core.Path, file string, pos span.BytePos, st core.SearchType, ns core.Namespace) []core.Match {
	slog.Debug("resolve path with primitive", "path", path)
	var out []core.Match
	exact := st == core.ExactMatch
	if path.IsSingle() {
		out = append(out, getPrimitiveMods(path.Segments[0].Name, st)...)
		if exact && len(out) > 0 {
			return out
		}
	}
	if path.Len() == 0 {
		return out
	}
	generics := path.GenericTypes()
	for _, m := range r.resolvePath(path, file, pos, st, ns, importInfo{}) {
		m.ResolveGenerics(generics)
		out = append(out, m)
		if exact {
			break
		}
	}
	return out
}

func (r *Resolver) resolveName(seg core.PathSegment, file string, pos span.BytePos, st core.SearchType, ns core.Namespace, ii importInfo) []core.Match {
	search := seg.Name
	msrc := r.s.LoadSourceFile(file).Src()
	exact := st == core.ExactMatch
	var out []core.Match

	// stage adds the matches of one resolution stage and reports whether
	// the lookup is complete. An exact lookup keeps a single match.
	stage := func(name string, ms []core.Match) bool {
		if len(ms) == 0 {
			return false
		}
		r.s.Metrics().StageHit(name)
		if exact {
			out = append(out, ms[0])
			return true
		}
		out = append(out, ms...)
		return false
	}

	if exact && search == "Self" {
		if t, ok := r.getTypeOfSelf(pos, file, true, msrc).(core.TyMatch); ok && stage("self", []core.Match{t.Match}) {
			return out
		}
	}
	if (exact && search == "std") || (!exact && strings.HasPrefix("std", search)) {
		if path, ok := r.stdFile("std"); ok && stage("std", []core.Match{r.moduleFileMatch("std", path)}) {
			return out
		}
	}
	if stage("local", r.searchLocalScopes(seg, file, msrc, pos, st, ns, ii)) {
		return out
	}
	if stage("crate_root", r.searchCrateRoot(seg, file, st, ns, ii, true)) {
		return out
	}
	if ns.Contains(core.NsCrate) && stage("crates", r.searchCrateNames(search, st, file, true)) {
		return out
	}
	if ns.Contains(core.NsPrimitive) && stage("primitive", r.getPrimitiveDocs(search, st)) {
		return out
	}
	if ns.Contains(core.NsStdMacro) && stage("std_macro", r.getStdMacros(search, st)) {
		return out
	}
	if stage("prelude", r.searchPreludeFile(seg, st, ns, ii)) {
		return out
	}
	if st == core.StartsWith {
		stage("file_search", r.doFileSearch(search, filepath.Dir(file)))
	}
	return out
}

// superScope returns the scope `super::` denotes from pos in file.
func (r *Resolver) superScope(file string, pos span.BytePos, ii importInfo) (core.Scope, bool) {
	msrc := r.s.LoadSourceFile(file)
	path := source.GetLocalModulePath(msrc.Src(), pos)
	slog.Debug("super scope", "path", path, "file", file, "pos", pos)
	switch len(path) {
	case 0:
		dir := filepath.Dir(file)
		if base := filepath.Base(file); base == "mod.rs" || base == "lib.rs" {
			dir = filepath.Dir(dir)
		}
		for _, name := range []string{"mod.rs", "lib.rs"} {
			if p := filepath.Join(dir, name); r.s.FileExists(p) {
				return core.Scope{File: p}, true
			}
		}
		return core.Scope{}, false
	case 1:
		return core.Scope{File: file}, true
	}
	parent := core.NewPath(false, path[:len(path)-1]...)
	m, ok := firstMatch(r.resolvePath(parent, file, 0, core.ExactMatch, core.NsPathParen, ii))
	if !ok || int(m.Point) > len(msrc.Code) {
		return core.Scope{}, false
	}
	brace := strings.IndexByte(msrc.Code[m.Point:], '{')
	if brace < 0 {
		return core.Scope{}, false
	}
	return core.Scope{File: file, Point: m.Point + span.BytePos(brace+1)}, true
}

func (r *Resolver) resolvePath(path core.Path, file string, pos span.BytePos, st core.SearchType, ns core.Namespace, ii importInfo) []core.Match {
	leave, ok := r.enter("resolve path " + path.String())
	defer leave()
	if !ok {
		return nil
	}
	slog.Debug("resolve path", "path", path, "prefix", path.Prefix, "file", file, "pos", pos, "type", st)

	switch path.Prefix {
	case core.PrefixSuper:
		sc, ok := r.superScope(file, pos, ii)
		if !ok {
			slog.Debug("no super scope; returning no matches", "path", path)
			return nil
		}
		next := core.Path{Segments: path.Segments}.WithPrefix()
		return r.resolvePath(next, sc.File, sc.Point, st, ns, ii)
	case core.PrefixGlobal, core.PrefixCrate:
		return r.resolveGlobalPath(path, file, st, ns, ii)
	}

	switch path.Len() {
	case 0:
		return nil
	case 1:
		return r.resolveName(path.Segments[0], file, pos, st, ns, ii)
	}
	last := path.Segments[path.Len()-1]
	cxt, ok := firstMatch(r.resolvePath(path.Parent(), file, pos, core.ExactMatch, core.NsPathParen, ii))
	slog.Debug("resolved path parent", "context", cxt, "last", last.Name)
	if !ok {
		return nil
	}
	return r.resolveFollowingPath(cxt, last, ns, st, ii)
}

// resolveGlobalPath resolves a path anchored at the crate root, like
// `::a::b` or `crate::a::b`.
func (r *Resolver) resolveGlobalPath(path core.Path, file string, st core.SearchType, ns core.Namespace, ii importInfo) []core.Match {
	if path.Len() == 0 {
		return nil
	}
	firstType := core.ExactMatch
	if path.IsSingle() {
		firstType = st
	}
	cxt := r.searchCrateRoot(path.Segments[0], file, firstType, ns, ii, false)
	for i, seg := range path.Segments[1:] {
		m, ok := firstMatch(cxt)
		if !ok {
			return nil
		}
		segType := core.ExactMatch
		if i+2 == path.Len() {
			segType = st
		}
		cxt = r.resolveFollowingPath(m, seg, ns, segType, ii)
	}
	return cxt
}

// resolveFollowingPath looks up seg inside the item cxt names.
func (r *Resolver) resolveFollowingPath(cxt core.Match, seg core.PathSegment, ns core.Namespace, st core.SearchType, ii importInfo) []core.Match {
	switch cxt.Type.Kind {
	case core.KindModule, core.KindCrate:
		name := seg.Name
		if i := strings.LastIndexByte(name, ','); i >= 0 {
			name = strings.TrimSpace(name[i+1:])
		}
		name = strings.TrimPrefix(name, "{")
		slog.Debug("searching module", "module", cxt.Name, "for", name)
		return r.searchNextScope(cxt.Point, core.PathSegment{Name: name}, cxt.File, st, false, ns, ii)
	case core.KindEnum, core.KindStruct, core.KindUnion:
		return r.getImpledItems(seg, st, cxt, ii)
	case core.KindTrait:
		return r.searchForTraitItems(cxt, seg.Name, st, true, true)
	case core.KindTypeParameter:
		if cxt.Type.Bounds == nil {
			return nil
		}
		var out []core.Match
		for _, t := range r.getTraits(*cxt.Type.Bounds) {
			out = append(out, r.searchForTraitItems(t, seg.Name, st, true, true)...)
		}
		return out
	case core.KindType:
		if m, ok := r.getTypeOfTypedef(cxt); ok {
			return r.getImpledItems(seg, st, m, ii)
		}
	case core.KindUseAlias:
		if cxt.Type.Target != nil {
			return r.resolveFollowingPath(*cxt.Type.Target, seg, ns, st, ii)
		}
	}
	return nil
}

// searchCrateRoot looks seg up in the root module of the crate containing
// file. With skipSelf set, a crate root equal to file is not searched again.
func (r *Resolver) searchCrateRoot(seg core.PathSegment, file string, st core.SearchType, ns core.Namespace, ii importInfo, skipSelf bool) []core.Match {
	slog.Debug("search crate root", "segment", seg.Name, "file", file)
	roots := r.findPossibleCrateRootModules(filepath.Dir(file))
	if len(roots) == 0 {
		roots = []string{file}
	}
	var out []core.Match
	for _, root := range roots {
		if skipSelf && root == file {
			continue
		}
		for _, m := range r.resolveName(seg, root, 0, st, ns, ii) {
			out = append(out, m)
			if st == core.ExactMatch {
				break
			}
		}
	}
	return out
}

// findPossibleCrateRootModules returns the nearest lib.rs or main.rs in dir
// or its ancestors.
func (r *Resolver) findPossibleCrateRootModules(dir string) []string {
	for {
		for _, root := range []string{"lib.rs", "main.rs"} {
			if p := filepath.Join(dir, root); r.s.FileExists(p) {
				return []string{p}
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}

// searchPreludeFile searches the std prelude.
func (r *Resolver) searchPreludeFile(seg core.PathSegment, st core.SearchType, ns core.Namespace, ii importInfo) []core.Match {
	srcPath := r.s.RustSrcPath()
	if srcPath == "" {
		return nil
	}
	prelude := filepath.Join(srcPath, "std", "src", "prelude", "v1.rs")
	if !r.s.FileExists(prelude) {
		return nil
	}
	slog.Debug("search prelude", "segment", seg.Name, "type", st, "ns", ns)
	msrc := r.s.LoadSourceFile(prelude).Src()
	return r.searchScope(0, nil, msrc, scopeQuery{seg: seg, file: prelude, st: st, local: true, ns: ns}, ii)
}

// doFileSearch lists modules whose file or directory name starts with
// search, in the std source tree and in dir.
func (r *Resolver) doFileSearch(search, dir string) []core.Match {
	slog.Debug("file search", "search", search, "dir", dir)
	dirs := []string{dir}
	if p := r.s.RustSrcPath(); p != "" {
		dirs = []string{p, dir}
	}
	mod := func(name, path, context string) core.Match {
		start := span.StartCoordinate
		return core.Match{
			Name:    name,
			File:    path,
			Coords:  &start,
			Type:    core.Simple(core.KindModule),
			Context: context,
		}
	}
	var out []core.Match
	for _, d := range dirs {
		for _, entry := range r.s.ReadDir(d) {
			name := entry.Name()
			full := filepath.Join(d, name)
			if strings.HasPrefix(name, "lib"+search) {
				if p := filepath.Join(full, "lib.rs"); r.s.FileExists(p) {
					out = append(out, mod(name[3:], p, name[3:]))
				}
			}
			if !strings.HasPrefix(name, search) {
				continue
			}
			if p := filepath.Join(full, "src", "lib.rs"); r.s.FileExists(p) {
				out = append(out, mod(name, p, name))
			}
			for _, f := range []string{name + ".rs", "mod.rs", "lib.rs"} {
				if p := filepath.Join(full, f); r.s.FileExists(p) {
					out = append(out, mod(name, p, p))
				}
			}
			if strings.HasSuffix(name, ".rs") && r.s.FileExists(full) {
				out = append(out, mod(strings.TrimSuffix(name, ".rs"), full, full))
			}
		}
	}
	return out
}

// DoExternalSearch resolves a fully qualified path given as segments,
// starting from pos in file. Modules are searched by their items and
// structs by their impls.
func (r *Resolver) DoExternalSearch(path []string, file string, pos span.BytePos, st core.SearchType, ns core.Namespace) []core.Match {
	slog.Debug("external search", "path", path, "file", file)
	switch len(path) {
	case 0:
		return nil
	case 1:
		search := path[0]
		out := r.searchNextScope(pos, core.PathSegment{Name: search}, file, st, false, ns, importInfo{})
		if p, ok := r.moduleFile(search, filepath.Dir(file)); ok {
			m := r.moduleFileMatch(search, p)
			m.Docs = ""
			out = append(out, m)
		}
		return out
	}
	m, ok := firstMatch(r.DoExternalSearch(path[:len(path)-1], file, pos, core.ExactMatch, core.NsPathParen))
	if !ok {
		return nil
	}
	seg := core.PathSegment{Name: strings.TrimPrefix(path[len(path)-1], "{")}
	var out []core.Match
	switch m.Type.Kind {
	case core.KindModule:
		slog.Debug("found external module", "name", m.Name)
		out = append(out, r.searchNextScope(m.Point, seg, m.File, st, false, ns, importInfo{})...)
	case core.KindStruct:
		for _, h := range r.searchForImpls(m.Point, m.Name, m.File, m.Local) {
			out = append(out, r.searchNextScope(h.ImplStart, seg, h.File, st, h.IsLocal(), ns, importInfo{})...)
		}
	}
	return out
}

// resolveMethod finds the methods named search declared by the trait an
// enclosing `impl Trait for T` block implements.
func (r *Resolver) resolveMethod(point span.BytePos, msrc source.Src, search, file string, st core.SearchType, ii importInfo) []core.Match {
	scopeStart := source.ScopeStart(msrc, point)
	if scopeStart == 0 {
		return nil
	}
	stmtStart, ok := source.FindStmtStart(msrc, scopeStart.Decrement())
	if !ok {
		return nil
	}
	preblock := msrc.Text()[stmtStart:scopeStart]
	slog.Debug("resolve method", "search", search, "point", point, "preblock", preblock)
	if !strings.HasPrefix(preblock, "impl") {
		return nil
	}
	n := strings.Index(preblock, " for ")
	if n < 0 {
		return nil
	}
	exprStart := source.GetStartOfSearchExpr(preblock, span.BytePos(n))
	expr := preblock[exprStart:n]
	path := core.NewPath(false, strings.Split(expr, "::")...)
	var trait core.Match
	found := false
	for _, m := range r.resolvePath(path, file, stmtStart+span.BytePos(n-1), core.ExactMatch, core.NsTrait, ii) {
		if m.Type.Kind == core.KindTrait {
			trait, found = m, true
			break
		}
	}
	if !found {
		return nil
	}
	src := r.s.LoadSourceFile(trait.File)
	if int(trait.Point) > len(src.Code) {
		return nil
	}
	brace := strings.IndexByte(src.Code[trait.Point:], '{')
	if brace < 0 {
		return nil
	}
	out := r.searchScopeForMethods(trait.Point+span.BytePos(brace+1), src.Src(), search, trait.File, true, false, st)
	slog.Debug("trait methods found", "count", len(out), "search", search, "trait", trait.Name)
	return out
}
