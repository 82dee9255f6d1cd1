package resolve

import (
	"log/slog"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/fragment"
	"github.com/rust-lang/rls-sub001/internal/source"
	"github.com/rust-lang/rls-sub001/internal/span"
)

// findKeyword locates search right after `pattern\s+` at the start of src,
// optionally behind a visibility qualifier and the ignore words. Items
// without a visibility qualifier are only found by local searches.
func findKeyword(src, pattern, search string, ignore []string, st core.SearchType, local bool) (span.BytePos, bool) {
	start, hasVis := source.StripVisibility(src)
	if !hasVis && !local {
		return 0, false
	}
	if len(ignore) > 0 {
		start += source.StripWords(src[start:], ignore...)
	}
	if !strings.HasPrefix(src[start:], pattern) {
		return 0, false
	}
	start += span.BytePos(len(pattern))
	old := start
	for int(start) < len(src) && source.IsWhitespaceByte(src[start]) {
		start++
	}
	if start == old {
		return 0, false
	}
	if !strings.HasPrefix(src[start:], search) {
		return 0, false
	}
	if st == core.ExactMatch {
		end := int(start) + len(search)
		if len(src) <= end || source.IsIdentChar(source.CharAt(src, end)) {
			return 0, false
		}
	}
	return start, true
}

// keyIdent finds the name declared after keyword and returns its offset in
// blob and the name. For prefix searches the whole identifier is returned.
func (c matchCxt) keyIdent(blob, keyword string, ignore ...string) (span.BytePos, string, bool) {
	start, ok := findKeyword(blob, keyword, c.search, ignore, c.st, c.local)
	if !ok {
		return 0, "", false
	}
	if c.st == core.ExactMatch {
		return start, c.search, true
	}
	end := source.FindIdentEnd(blob, start+span.BytePos(len(c.search)))
	return start, blob[start:end], true
}

func (c matchCxt) blob(msrc source.Src) string {
	return c.rng.Slice(msrc.Text())
}

func firstLine(blob string) string {
	if i := strings.IndexByte(blob, '\n'); i >= 0 {
		return blob[:i]
	}
	return blob
}

// contextUntil returns blob up to the first end, on one line.
func contextUntil(blob, end string) string {
	if i := strings.Index(blob, end); i >= 0 {
		blob = blob[:i]
	}
	return strings.Join(strings.Fields(blob), " ")
}

// rustLines splits like Rust's str::lines: no trailing empty line, and a
// trailing \r is dropped.
func rustLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func stripDocMarker(line string) string {
	if len(line) >= 4 {
		return line[4:]
	}
	return ""
}

// findDoc collects the `///` comment block above the line containing
// point. Attributes between the docs and the item are skipped.
func findDoc(raw string, point span.BytePos) string {
	if int(point) > len(raw) {
		point = span.BytePos(len(raw))
	}
	lines := rustLines(raw[:point])
	var docs []string
	for i := len(lines) - 2; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "///") && !strings.HasPrefix(line, "#[") && line != "" {
			break
		}
		if strings.HasPrefix(line, "#[") || line == "" {
			continue
		}
		docs = append(docs, stripDocMarker(line))
	}
	for l, r := 0, len(docs)-1; l < r; l, r = l+1, r-1 {
		docs[l], docs[r] = docs[r], docs[l]
	}
	return strings.Join(docs, "\n")
}

// findModDoc collects the `//!` lines at the head of a module file,
// skipping any leading comment such as a license notice.
func findModDoc(raw string) string {
	var docs []string
	for _, line := range rustLines(raw) {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "//") && line != "" {
			break
		}
		if strings.HasPrefix(line, "//!") {
			docs = append(docs, stripDocMarker(line))
		}
	}
	return strings.Join(docs, "\n")
}

// findGenericsEnd returns the offset of the `>` closing the generics that
// follow an item name, skipping attributes on the parameters.
func findGenericsEnd(blob string) (int, bool) {
	inAttr, attrLevel, level := false, 0, 0
	for i := 0; i < len(blob); i++ {
		b := blob[i]
		if inAttr {
			switch b {
			case '[':
				attrLevel++
			case ']':
				attrLevel--
				if attrLevel == 0 {
					inAttr = false
					continue
				}
			default:
				continue
			}
		}
		switch b {
		case '{', '(', ';':
			return 0, false
		case '<':
			level++
		case '>':
			level--
			if level == 0 {
				return i, true
			}
		case '#':
			if i+1 < len(blob) && blob[i+1] == '[' {
				inAttr = true
			}
		}
	}
	return 0, false
}

// itemGenerics parses the generics of a struct, union or enum declared at
// start within blob. wrap closes the synthetic item after the generics.
func itemGenerics(blob string, start span.BytePos, ctx matchCxt, keyword, wrap string) core.GenericsArgs {
	end, ok := findGenericsEnd(blob[start:])
	if !ok {
		return core.GenericsArgs{}
	}
	prefix := keyword + " "
	header := prefix + blob[start:int(start)+end+1] + wrap
	return fragment.ParseGenerics(header, ctx.file, ctx.rng.Start+start-span.BytePos(len(prefix)))
}

func (r *Resolver) rawCode(file string) string {
	return r.s.LoadRawFile(file).Code
}

func isConstFn(blob string) bool {
	n, ok := source.StripWord(blob, "const")
	if !ok {
		return false
	}
	rest := strings.TrimLeftFunc(blob[n:], unicode.IsSpace)
	return strings.HasPrefix(rest, "fn") || strings.HasPrefix(rest, "unsafe")
}

// matchPatternStart matches `const NAME:` and `static NAME:` items.
func matchPatternStart(msrc source.Src, ctx matchCxt, pattern string, kind core.MatchKind) (core.Match, bool) {
	blob := ctx.blob(msrc)
	start, ok := findKeyword(blob, pattern, ctx.search, nil, ctx.st, ctx.local)
	if !ok {
		return core.Match{}, false
	}
	end := strings.IndexFunc(blob[start:], func(c rune) bool { return c == ':' || unicode.IsSpace(c) })
	if end < 0 {
		return core.Match{}, false
	}
	if !strings.HasPrefix(strings.TrimLeftFunc(blob[int(start)+end:], unicode.IsSpace), ":") {
		return core.Match{}, false
	}
	return core.Match{
		Name:    blob[start : int(start)+end],
		File:    ctx.file,
		Point:   ctx.rng.Start + start,
		Local:   ctx.local,
		Type:    core.Simple(kind),
		Context: firstLine(blob),
	}, true
}

func matchConst(msrc source.Src, ctx matchCxt) (core.Match, bool) {
	if isConstFn(ctx.blob(msrc)) {
		return core.Match{}, false
	}
	return matchPatternStart(msrc, ctx, "const", core.KindConst)
}

func matchStatic(msrc source.Src, ctx matchCxt) (core.Match, bool) {
	return matchPatternStart(msrc, ctx, "static", core.KindStatic)
}

// matchBindings matches the names bound by the pattern of a let, if let or
// while let statement in stmt. Offsets in stmt are relative to ctx.rng.
func matchBindings(stmt string, ctx matchCxt, mtype core.MatchType) []core.Match {
	var out []core.Match
	for _, pr := range fragment.ParsePatBindStmt(stmt) {
		name := pr.Slice(stmt)
		if !core.SymbolMatches(ctx.st, ctx.search, name) {
			continue
		}
		out = append(out, core.Match{
			Name:    name,
			File:    ctx.file,
			Point:   ctx.rng.Start + pr.Start,
			Local:   ctx.local,
			Type:    mtype,
			Context: stmt,
		})
		if ctx.st == core.ExactMatch {
			break
		}
	}
	return out
}

func matchLet(msrc source.Src, letStart span.BytePos, ctx matchCxt) []core.Match {
	blob := ctx.blob(msrc)
	if !strings.HasPrefix(blob, "let ") || !core.TxtMatches(ctx.st, ctx.search, blob) {
		return nil
	}
	return matchBindings(blob, ctx, core.BindingType(core.KindLet, letStart))
}

func matchIfLet(stmt string, start span.BytePos, ctx matchCxt) []core.Match {
	return matchBindings(stmt, ctx, core.BindingType(core.KindIfLet, start))
}

func matchWhileLet(stmt string, start span.BytePos, ctx matchCxt) []core.Match {
	return matchBindings(stmt, ctx, core.BindingType(core.KindWhileLet, start))
}

func matchFor(stmt string, forStart span.BytePos, ctx matchCxt) []core.Match {
	var out []core.Match
	for _, pr := range fragment.ParsePatBindStmt(stmt) {
		name := pr.Slice(stmt)
		if !core.SymbolMatches(ctx.st, ctx.search, name) {
			continue
		}
		out = append(out, core.Match{
			Name:    name,
			File:    ctx.file,
			Point:   ctx.rng.Start + pr.Start,
			Local:   ctx.local,
			Type:    core.BindingType(core.KindFor, forStart),
			Context: stmt,
		})
	}
	return out
}

func (r *Resolver) matchExternCrate(msrc source.Src, ctx matchCxt) (core.Match, bool) {
	blob := ctx.blob(msrc)
	blob = source.TrimVisibility(blob)
	named := core.TxtMatches(ctx.st, "extern crate "+ctx.search, blob) &&
		!core.TxtMatches(ctx.st, "extern crate "+ctx.search+" as", blob)
	renamed := strings.HasPrefix(blob, "extern crate") && core.TxtMatches(ctx.st, "as "+ctx.search, blob)
	if !named && !renamed {
		return core.Match{}, false
	}
	slog.Debug("found extern crate", "blob", blob)
	name, realName, ok := fragment.ParseExternCrate(blob)
	if !ok {
		return core.Match{}, false
	}
	if realName == "" {
		realName = name
	}
	path, ok := r.crateFile(realName, ctx.file)
	if !ok {
		return core.Match{}, false
	}
	return r.moduleFileMatch(name, path), true
}

// moduleFileMatch is the match for a module or crate whose body is a whole
// file.
func (r *Resolver) moduleFileMatch(name, path string) core.Match {
	start := span.StartCoordinate
	return core.Match{
		Name:    name,
		File:    path,
		Coords:  &start,
		Type:    core.Simple(core.KindModule),
		Context: path,
		Docs:    findModDoc(r.rawCode(path)),
	}
}

func (r *Resolver) matchMod(msrc source.Src, ctx matchCxt) (core.Match, bool) {
	blob := ctx.blob(msrc)
	start, name, ok := ctx.keyIdent(blob, "mod")
	if !ok {
		return core.Match{}, false
	}
	if strings.Contains(blob, "{") {
		slog.Debug("found inline module", "name", name)
		return core.Match{
			Name:    name,
			File:    ctx.file,
			Point:   ctx.rng.Start + start,
			Type:    core.Simple(core.KindModule),
			Context: ctx.file,
		}, true
	}
	// `mod bar;` in src/foo.rs lives in src/foo/ when that directory exists.
	parent := filepath.Dir(ctx.file)
	searchDir := parent
	stem := strings.TrimSuffix(filepath.Base(ctx.file), filepath.Ext(ctx.file))
	if sub := filepath.Join(parent, stem); r.s.DirExists(sub) {
		searchDir = sub
	}
	raw := r.s.LoadRawSrcRanged(msrc, ctx.file)
	if path, ok := source.ModuleFileFromPathAttr(msrc, ctx.rng.Start, searchDir, raw, r.s.FileExists); ok {
		return r.moduleFileMatch(name, path), true
	}
	dir := searchDir
	for _, seg := range source.GetLocalModulePath(msrc, ctx.rng.Start) {
		dir = filepath.Join(dir, seg)
	}
	if path, ok := r.moduleFile(name, dir); ok {
		return r.moduleFileMatch(name, path), true
	}
	return core.Match{}, false
}

func (r *Resolver) matchStruct(msrc source.Src, ctx matchCxt) (core.Match, bool) {
	blob := ctx.blob(msrc)
	start, name, ok := ctx.keyIdent(blob, "struct")
	if !ok {
		return core.Match{}, false
	}
	slog.Debug("found struct", "name", name)
	point := ctx.rng.Start + start
	return core.Match{
		Name:    name,
		File:    ctx.file,
		Point:   point,
		Local:   ctx.local,
		Type:    core.StructType(itemGenerics(blob, start, ctx, "struct", "();")),
		Context: contextUntil(blob, "{"),
		Docs:    findDoc(r.rawCode(ctx.file), point),
	}, true
}

func (r *Resolver) matchUnion(msrc source.Src, ctx matchCxt) (core.Match, bool) {
	blob := ctx.blob(msrc)
	start, name, ok := ctx.keyIdent(blob, "union")
	if !ok {
		return core.Match{}, false
	}
	point := ctx.rng.Start + start
	return core.Match{
		Name:    name,
		File:    ctx.file,
		Point:   point,
		Local:   ctx.local,
		Type:    core.UnionType(itemGenerics(blob, start, ctx, "union", "();")),
		Context: contextUntil(blob, "{"),
		Docs:    findDoc(r.rawCode(ctx.file), point),
	}, true
}

func (r *Resolver) matchEnum(msrc source.Src, ctx matchCxt) (core.Match, bool) {
	blob := ctx.blob(msrc)
	start, name, ok := ctx.keyIdent(blob, "enum")
	if !ok {
		return core.Match{}, false
	}
	point := ctx.rng.Start + start
	return core.Match{
		Name:    name,
		File:    ctx.file,
		Point:   point,
		Local:   ctx.local,
		Type:    core.EnumType(itemGenerics(blob, start, ctx, "enum", "{}")),
		Context: firstLine(blob),
		Docs:    findDoc(r.rawCode(ctx.file), point),
	}, true
}

func (r *Resolver) matchType(msrc source.Src, ctx matchCxt) (core.Match, bool) {
	blob := ctx.blob(msrc)
	start, name, ok := ctx.keyIdent(blob, "type")
	if !ok {
		return core.Match{}, false
	}
	point := ctx.rng.Start + start
	return core.Match{
		Name:    name,
		File:    ctx.file,
		Point:   point,
		Local:   ctx.local,
		Type:    core.Simple(core.KindType),
		Context: firstLine(blob),
		Docs:    findDoc(r.rawCode(ctx.file), point),
	}, true
}

func (r *Resolver) matchTrait(msrc source.Src, ctx matchCxt) (core.Match, bool) {
	blob := ctx.blob(msrc)
	start, name, ok := ctx.keyIdent(blob, "trait", "unsafe")
	if !ok {
		return core.Match{}, false
	}
	point := ctx.rng.Start + start
	return core.Match{
		Name:    name,
		File:    ctx.file,
		Point:   point,
		Local:   ctx.local,
		Type:    core.Simple(core.KindTrait),
		Context: contextUntil(blob, "{"),
		Docs:    findDoc(r.rawCode(ctx.file), point),
	}, true
}

// matchEnumVariants lists the variants of the enum in ctx's statement
// whose names match the search string.
func matchEnumVariants(text, raw string, ctx matchCxt) []core.Match {
	blob := ctx.rng.Slice(text)
	_, variants := fragment.ParseEnum(blob)
	var out []core.Match
	for _, v := range variants {
		if !core.SymbolMatches(ctx.st, ctx.search, v.Name) {
			continue
		}
		point := ctx.rng.Start + v.Pos
		out = append(out, core.Match{
			Name:    v.Name,
			File:    ctx.file,
			Point:   point,
			Local:   ctx.local,
			Type:    core.EnumVariantType(nil),
			Context: firstLine(blob[v.Pos:]),
			Docs:    findDoc(raw, point),
		})
	}
	return out
}

func (r *Resolver) matchFn(msrc source.Src, ctx matchCxt) (core.Match, bool) {
	blob := ctx.blob(msrc)
	if firstParamIsSelf(blob) {
		return core.Match{}, false
	}
	return r.matchFnCommon(blob, ctx)
}

func (r *Resolver) matchMethod(msrc source.Src, ctx matchCxt, includeAssocFn bool) (core.Match, bool) {
	blob := ctx.blob(msrc)
	if !includeAssocFn && !firstParamIsSelf(blob) {
		return core.Match{}, false
	}
	return r.matchFnCommon(blob, ctx)
}

func (r *Resolver) matchFnCommon(blob string, ctx matchCxt) (core.Match, bool) {
	start, name, ok := ctx.keyIdent(blob, "fn", "const", "unsafe", "async")
	if !ok {
		return core.Match{}, false
	}
	point := ctx.rng.Start + start
	return core.Match{
		Name:    name,
		File:    ctx.file,
		Point:   point,
		Local:   ctx.local,
		Type:    core.Simple(core.KindFunction),
		Context: contextUntil(blob, "{"),
		Docs:    findDoc(r.rawCode(ctx.file), point),
	}, true
}

func (r *Resolver) matchMacro(msrc source.Src, ctx matchCxt) (core.Match, bool) {
	ctx.search = strings.TrimRight(ctx.search, "!")
	blob := ctx.blob(msrc)
	start, name, ok := ctx.keyIdent(blob, "macro_rules!")
	if !ok {
		return core.Match{}, false
	}
	slog.Debug("found macro", "name", name)
	return core.Match{
		Name:    name + "!",
		File:    ctx.file,
		Point:   ctx.rng.Start + start,
		Local:   ctx.local,
		Type:    core.Simple(core.KindMacro),
		Context: firstLine(blob),
		Docs:    findDoc(r.rawCode(ctx.file), ctx.rng.Start),
	}, true
}

// matchUse resolves the names a use statement imports. A statement already
// on the resolution stack yields nothing, which is what breaks import
// cycles.
func (r *Resolver) matchUse(msrc source.Src, ctx matchCxt, ii importInfo) []core.Match {
	blob := ctx.blob(msrc)
	imp := pendingImport{file: ctx.file, rng: ctx.rng}
	if ii.isPending(imp) {
		slog.Debug("import involved in a cycle; ignoring", "import", blob)
		return nil
	}
	ii = ii.push(imp)

	if _, ok := findKeyword(blob, "use", "", nil, core.StartsWith, ctx.local); !ok {
		return nil
	}
	item := fragment.ParseUse(blob)
	if !item.ContainsGlob && !core.TxtMatches(ctx.st, ctx.search, blob) {
		return nil
	}

	var out []core.Match
	aliasMatch := func(ident string, renamePos span.BytePos, inner core.Match, rng span.ByteRange) core.Match {
		return core.Match{
			Name:    ident,
			File:    ctx.file,
			Point:   ctx.rng.Start + renamePos,
			Local:   ctx.local,
			Type:    core.UseAliasType(inner),
			Context: rng.Shift(ctx.rng.Start).Slice(msrc.Text()),
		}
	}
	for _, alias := range item.Paths {
		path := alias.Path.WithPrefix()
		switch alias.Kind {
		case core.AliasIdent, core.AliasSelf:
			ns := core.NsPath
			searchName := alias.Ident
			if alias.Kind == core.AliasSelf {
				ns = core.NsPathParen
				if alias.RenamePos == nil {
					searchName = path.Name()
				}
				if path.Len() == 0 {
					continue
				}
			}
			if !core.SymbolMatches(ctx.st, ctx.search, searchName) {
				continue
			}
			for _, m := range r.resolvePath(path, ctx.file, ctx.rng.Start, core.ExactMatch, ns, ii) {
				if alias.RenamePos != nil {
					m = aliasMatch(alias.Ident, *alias.RenamePos, m, alias.Range)
				}
				out = append(out, m)
				if ctx.st == core.ExactMatch {
					return out
				}
			}
		case core.AliasGlob:
			reserved, wasLimited := ii.globs, ii.limited
			if ii.limited {
				if ii.globs == 0 {
					continue
				}
				ii.globs--
			} else {
				ii.limited, ii.globs = true, globLimit-1
			}
			search := path.Extend(core.NamePath(ctx.search))
			out = append(out, r.resolvePath(search, ctx.file, ctx.rng.Start, ctx.st, core.NsPath, ii)...)
			ii.globs, ii.limited = reserved, wasLimited
		}
	}
	return out
}

// runMatchers tests one statement against every matcher the namespace
// allows. Declarations win over imports.
func (r *Resolver) runMatchers(msrc source.Src, ctx matchCxt, ns core.Namespace, ii importInfo) []core.Match {
	type matcher struct {
		ns core.Namespace
		fn func(source.Src, matchCxt) (core.Match, bool)
	}
	matchers := []matcher{
		{core.NsCrate, r.matchExternCrate},
		{core.NsMod, r.matchMod},
		{core.NsEnum, r.matchEnum},
		{core.NsStruct, r.matchStruct},
		{core.NsUnion, r.matchUnion},
		{core.NsTrait, r.matchTrait},
		{core.NsTypeDef, r.matchType},
		{core.NsFunc, r.matchFn},
		{core.NsConst, matchConst},
		{core.NsStatic, matchStatic},
		{core.NsGlobal, r.matchMacro},
	}
	for _, m := range matchers {
		if !ns.Contains(m.ns) {
			continue
		}
		if found, ok := m.fn(msrc, ctx); ok {
			return []core.Match{found}
		}
	}
	if !ns.Intersects(core.NsPathParen) {
		return nil
	}
	var out []core.Match
	for _, m := range r.matchUse(msrc, ctx, ii) {
		out = append(out, m)
		if ctx.st == core.ExactMatch {
			return out
		}
	}
	return out
}
