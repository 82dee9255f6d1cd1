package resolve

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/fragment"
	"github.com/rust-lang/rls-sub001/internal/source"
	"github.com/rust-lang/rls-sub001/internal/span"
)

// getEnumVariants lists the variants of enum matching seg.
func (r *Resolver) getEnumVariants(seg core.PathSegment, st core.SearchType, enum core.Match) []core.Match {
	if enum.Type.Kind != core.KindEnum {
		return nil
	}
	src := r.s.LoadSourceFile(enum.File)
	start, ok := source.FindStmtStart(src.Src(), enum.Point)
	if !ok {
		return nil
	}
	stmts := src.SrcFrom(start).StmtRanges()
	if len(stmts) == 0 {
		return nil
	}
	ctx := matchCxt{file: enum.File, search: seg.Name, rng: stmts[0].Shift(start), st: st, local: true}
	out := matchEnumVariants(src.Code, r.rawCode(enum.File), ctx)
	for i := range out {
		slog.Debug("found enum variant", "variant", out[i].Name, "enum", enum.Name)
		target := enum.Clone()
		out[i].Type = core.EnumVariantType(&target)
	}
	return out
}

// searchImplScope runs the impl item matchers over the body of h.
func (r *Resolver) searchImplScope(seg core.PathSegment, st core.SearchType, h *core.ImplHeader, ii importInfo) []core.Match {
	src := r.s.LoadSourceFile(h.File).Src()
	start := h.ScopeStart()
	var out []core.Match
	for _, br := range src.ShiftStart(start).StmtRanges() {
		ctx := matchCxt{file: h.File, search: seg.Name, rng: br.Shift(start), st: st, local: h.IsLocal()}
		out = append(out, r.runMatchers(src, ctx, core.NsImpl, ii)...)
	}
	return out
}

// getImpledItems lists the variants and associated items of the type cxt
// names, including items of generic impls of traits it implements.
func (r *Resolver) getImpledItems(seg core.PathSegment, st core.SearchType, cxt core.Match, ii importInfo) []core.Match {
	out := r.getEnumVariants(seg, st, cxt)
	for _, h := range r.searchForImpls(cxt.Point, cxt.Name, cxt.File, cxt.Local) {
		out = append(out, r.searchImplScope(seg, st, h, ii)...)
		trait, ok := r.resolveTrait(h, ii)
		if !ok {
			continue
		}
		for _, gh := range r.searchForGenericImpls(trait.Point, trait.Name, trait.File) {
			slog.Debug("found generic impl", "trait", trait.Name, "file", gh.File)
			out = append(out, r.searchImplScope(seg, st, gh, ii)...)
		}
	}
	if st != core.ExactMatch {
		return out
	}
	// Methods keep the receiver's generics so return types can be inferred.
	if gen := cxt.Generics(); gen != nil {
		for i := range out {
			if out[i].Type.Kind == core.KindFunction {
				out[i].Type = core.MethodType(gen.Clone())
			}
		}
	}
	return out
}

// implScopeStart returns the offset of the block brace when blob is an
// impl item.
func implScopeStart(blob string) (int, bool) {
	if !strings.HasPrefix(blob, "impl") || len(blob) < 5 {
		return 0, false
	}
	if c := blob[4]; c != ' ' && c != '<' {
		return 0, false
	}
	n := strings.IndexByte(blob, '{')
	return n, n >= 0
}

// implHeaders parses the impl items of the scope of file containing pos.
// keep filters on the parsed header.
func (r *Resolver) implHeaders(pos span.BytePos, file string, local bool, prefilter string, keep func(*core.ImplHeader) bool) []*core.ImplHeader {
	// Builtin matches have no file.
	if file == "" {
		return nil
	}
	s := r.s.LoadSourceFile(file)
	scopeStart := source.ScopeStart(s.Src(), pos)
	src := s.SrcFrom(scopeStart)
	text := src.Text()
	var out []*core.ImplHeader
	for _, br := range src.StmtRanges() {
		blob := br.Slice(text)
		n, ok := implScopeStart(blob)
		if !ok || !core.TxtMatches(core.ExactMatch, prefilter, blob[:n+1]) {
			continue
		}
		start := br.Start + scopeStart
		h, ok := fragment.ParseImpl(blob[:n+1]+"}", file, start, local, start+span.BytePos(n))
		if !ok {
			r.s.Metrics().ParseFailure("impl")
			continue
		}
		if keep(h) {
			out = append(out, h)
		}
	}
	return out
}

// searchForImpls returns the impl headers for the type named search in the
// scope of file containing pos.
func (r *Resolver) searchForImpls(pos span.BytePos, search, file string, local bool) []*core.ImplHeader {
	slog.Debug("search for impls", "pos", pos, "search", search, "file", file)
	return r.implHeaders(pos, file, local, search, func(h *core.ImplHeader) bool {
		name := h.SelfPath.Name()
		return name != "" && core.SymbolMatches(core.ExactMatch, search, name)
	})
}

// searchTraitImpls returns the impls of any of traits for the type named
// self. With once set it stops at the first.
func (r *Resolver) searchTraitImpls(pos span.BytePos, self string, traits []string, once bool, file string, local bool) []*core.ImplHeader {
	slog.Debug("search trait impls", "pos", pos, "self", self, "traits", traits, "file", file)
	found := false
	return r.implHeaders(pos, file, local, self, func(h *core.ImplHeader) bool {
		if once && found {
			return false
		}
		name := h.SelfPath.Name()
		if name == "" || !core.SymbolMatches(core.ExactMatch, self, name) || h.TraitPath == nil {
			return false
		}
		traitName := h.TraitPath.Name()
		found = slices.ContainsFunc(traits, func(t string) bool {
			return core.SymbolMatches(core.ExactMatch, t, traitName)
		})
		return found
	})
}

// searchForGenericImpls returns blanket impls like `impl<T: Tr> Other for T`
// where Tr is the trait named search.
func (r *Resolver) searchForGenericImpls(pos span.BytePos, search, file string) []*core.ImplHeader {
	slog.Debug("search for generic impls", "pos", pos, "search", search, "file", file)
	s := r.s.LoadSourceFile(file)
	scopeStart := source.ScopeStart(s.Src(), pos)
	headers := r.s.GenericImpls(file, scopeStart, func() []*core.ImplHeader {
		return r.implHeaders(pos, file, true, "", func(*core.ImplHeader) bool { return true })
	})
	var out []*core.ImplHeader
	for _, h := range headers {
		if !h.IsTrait() || h.SelfPath.Len() == 0 {
			continue
		}
		self := h.SelfPath.Name()
		for _, tp := range h.Generics.Params {
			if core.SymbolMatches(core.ExactMatch, tp.Name, self) {
				if _, ok := tp.Bounds.FindByName(search); ok {
					out = append(out, h)
				}
			}
		}
	}
	return out
}

// searchForImplMethods lists the methods of the type m from its inherent
// impls, the traits it implements and Deref targets.
func (r *Resolver) searchForImplMethods(m core.Match, search string, point span.BytePos, file string, local bool, st core.SearchType) []core.Match {
	slog.Debug("search for impl methods", "type", m.Name, "search", search, "file", file)
	var out []core.Match
	for _, h := range r.searchForImpls(point, m.Name, file, local) {
		found := make(map[uint64]struct{})
		src := r.s.LoadSourceFile(h.File).Src()
		for _, method := range r.searchScopeForMethods(h.ScopeStart(), src, search, h.File, false, false, st) {
			found[xxhash.Sum64String(method.Name)] = struct{}{}
			out = append(out, method)
		}
		if h.TraitPath == nil {
			continue
		}
		if h.TraitPath.Name() == "Deref" {
			if target, ok := firstAssocType(r.searchScopeForImpledAssocTypes(h, "Target", core.ExactMatch)); ok {
				out = append(out, r.searchForDerefMatches(target, m, h, search)...)
			}
			continue
		}
		trait, ok := r.resolveTrait(h, importInfo{})
		if !ok {
			continue
		}
		for _, tm := range r.searchForTraitItems(trait, search, st, false, false) {
			if _, dup := found[xxhash.Sum64String(tm.Name)]; !dup {
				out = append(out, tm)
			}
		}
		for _, gh := range r.searchForGenericImpls(trait.Point, trait.Name, trait.File) {
			slog.Debug("found generic impl", "trait", trait.Name, "file", gh.File)
			gsrc := r.s.LoadSourceFile(gh.File).Src()
			out = append(out, r.searchGenericImplScopeForMethods(gh.ScopeStart(), gsrc, search, gh, st)...)
		}
	}
	return out
}

// searchScopeForMethods lists the methods declared in the scope starting
// at point, optionally with associated functions, types and consts.
func (r *Resolver) searchScopeForMethods(point span.BytePos, src source.Src, search, file string, includeAssocFn, includeAssocItems bool, st core.SearchType) []core.Match {
	slog.Debug("search scope for methods", "point", point, "search", search, "file", file)
	exact := st == core.ExactMatch
	var out []core.Match
	for _, br := range src.ShiftStart(point).StmtRanges() {
		ctx := matchCxt{file: file, search: search, rng: br.Shift(point), st: st, local: true}
		if m, ok := r.matchMethod(src, ctx, includeAssocFn); ok {
			m.Context = strings.TrimSuffix(m.Context, ";")
			out = append(out, m)
			if exact {
				return out
			}
			continue
		}
		if !includeAssocItems {
			continue
		}
		if m, ok := r.matchType(src, ctx); ok {
			m.Type = core.Simple(core.KindAssocType)
			out = append(out, m)
			if exact {
				return out
			}
			continue
		}
		if m, ok := matchConst(src, ctx); ok {
			out = append(out, m)
			if exact {
				return out
			}
		}
	}
	return out
}

// searchGenericImplScopeForMethods lists the methods of a blanket impl.
// Each carries the impl's generics.
func (r *Resolver) searchGenericImplScopeForMethods(point span.BytePos, src source.Src, search string, h *core.ImplHeader, st core.SearchType) []core.Match {
	scope := src.ShiftStart(point)
	text := scope.Text()
	raw := r.rawCode(h.File)
	needle := "fn " + search
	var out []core.Match
	for _, br := range scope.StmtRanges() {
		blob := br.Slice(text)
		n := strings.IndexAny(blob, "{;")
		if n < 0 {
			continue
		}
		sig := strings.TrimRight(blob[:n], " \t\r\n")
		if !core.TxtMatches(st, needle, sig) || !firstParamIsSelf(blob) {
			continue
		}
		at := strings.Index(blob, needle)
		if at < 0 {
			continue
		}
		start := span.BytePos(at + 3)
		end := source.FindIdentEnd(blob, start)
		pt := point + br.Start + start
		slog.Debug("found generic impl method", "search", search, "blob", sig)
		out = append(out, core.Match{
			Name:    blob[start:end],
			File:    h.File,
			Point:   pt,
			Local:   true,
			Type:    core.MethodType(h.Generics.Clone()),
			Context: sig,
			Docs:    findDoc(raw, pt),
		})
	}
	return out
}

type assocType struct {
	name string
	ty   core.Ty
}

func firstAssocType(ts []assocType) (core.Ty, bool) {
	if len(ts) == 0 {
		return nil, false
	}
	return ts[0].ty, true
}

// searchScopeForImpledAssocTypes lists the associated types an impl block
// defines.
func (r *Resolver) searchScopeForImpledAssocTypes(h *core.ImplHeader, search string, st core.SearchType) []assocType {
	src := r.s.LoadSourceFile(h.File).Src().ShiftStart(h.ScopeStart())
	text := src.Text()
	scope := core.Scope{File: h.File, Point: h.ScopeStart()}
	var out []assocType
	for _, br := range src.StmtRanges() {
		blob := br.Slice(text)
		if !strings.HasPrefix(blob, "type") {
			continue
		}
		name, ty, ok := fragment.ParseTypeAlias(blob, scope)
		if !ok || ty == nil {
			continue
		}
		switch st {
		case core.ExactMatch:
			if name == search {
				return append(out, assocType{name, ty})
			}
		case core.StartsWith:
			if strings.HasPrefix(name, search) {
				out = append(out, assocType{name, ty})
			}
		}
	}
	return out
}

// collectInheritedTraits returns trait followed by all of its supertraits,
// each once.
func (r *Resolver) collectInheritedTraits(trait core.Match) []core.Match {
	type node struct {
		text   string
		offset span.BytePos
		file   string
	}
	nodeOf := func(m core.Match) node {
		return node{text: m.Context + "{}", offset: m.Point - span.BytePos(len("trait ")), file: m.File}
	}
	seen := map[uint64]struct{}{xxhash.Sum64String(trait.Name): {}}
	stack := []node{nodeOf(trait)}
	out := []core.Match{trait}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		bounds, ok := fragment.ParseInheritedTraits(n.text, n.file, n.offset)
		if !ok {
			continue
		}
		for _, t := range r.getTraits(bounds) {
			h := xxhash.Sum64String(t.Name)
			if _, dup := seen[h]; dup {
				continue
			}
			seen[h] = struct{}{}
			stack = append(stack, nodeOf(t))
			out = append(out, t)
		}
	}
	return out
}

// getTraits resolves each bound to the trait it names.
func (r *Resolver) getTraits(bounds core.TraitBounds) []core.Match {
	var out []core.Match
	for _, ps := range bounds {
		if m, ok := firstMatch(r.resolvePath(ps.Path, ps.File, ps.Point, core.ExactMatch, core.NsTrait, importInfo{})); ok {
			out = append(out, m)
		}
	}
	return out
}

// resolveTrait resolves the trait an impl header implements.
func (r *Resolver) resolveTrait(h *core.ImplHeader, ii importInfo) (core.Match, bool) {
	if h.TraitPath == nil {
		return core.Match{}, false
	}
	return firstMatch(r.resolvePath(*h.TraitPath, h.File, h.ImplStart, core.ExactMatch, core.NsTrait, ii))
}

// searchForTraitItems lists the items of trait and its supertraits.
func (r *Resolver) searchForTraitItems(trait core.Match, search string, st core.SearchType, includeAssocFn, includeAssocItems bool) []core.Match {
	var out []core.Match
	for _, t := range r.collectInheritedTraits(trait) {
		src := r.s.LoadSourceFile(t.File)
		if int(t.Point) > len(src.Code) {
			continue
		}
		brace := strings.IndexByte(src.Code[t.Point:], '{')
		if brace < 0 {
			continue
		}
		out = append(out, r.searchScopeForMethods(t.Point+span.BytePos(brace+1), src.Src(), search, t.File, includeAssocFn, includeAssocItems, st)...)
	}
	return out
}

func (r *Resolver) searchForTraitMethods(trait core.Match, search string, st core.SearchType) []core.Match {
	return r.searchForTraitItems(trait, search, st, false, false)
}

// searchForDerefMatches lists the fields and methods reachable through a
// Deref impl whose Target is target.
func (r *Resolver) searchForDerefMatches(target core.Ty, self core.Match, h *core.ImplHeader, search string) []core.Match {
	if ps, ok := target.(core.TyPathSearch); ok {
		ty, ok := r.getAssocTypeFromHeader(ps.Path, self, h)
		if !ok {
			return nil
		}
		target = ty
	}
	return r.getFieldMatchesFromTy(target, search, core.StartsWith)
}

// getAssocTypeFromHeader resolves an associated type defined in h. A type
// parameter of the impl takes the type self was instantiated with.
func (r *Resolver) getAssocTypeFromHeader(target core.Path, self core.Match, h *core.ImplHeader) (core.Ty, bool) {
	slog.Debug("assoc type from header", "target", target, "impl", h.SelfPath)
	if pos, _, ok := h.Generics.SearchParamByPath(target); ok {
		resolved := self.ResolvedGenerics()
		if pos < len(resolved) && resolved[pos] != nil {
			return resolved[pos], true
		}
		return nil, false
	}
	m, ok := firstMatch(r.ResolvePathWithPrimitive(target, h.File, 0, core.ExactMatch, core.NsType))
	if !ok {
		return nil, false
	}
	return core.TyMatch{Match: m}, true
}
