package resolve

import (
	"strings"

	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/source"
	"github.com/rust-lang/rls-sub001/internal/span"
)

const (
	primitiveDocs = "std/src/primitive_docs.rs"
	keywordDocs   = "std/src/keyword_docs.rs"
)

// stdMacroFiles hold the exported macros of std and the crates it
// re-exports.
var stdMacroFiles = []string{
	"std/src/macros.rs",
	"core/src/macros.rs",
	"core/src/macros/mod.rs",
	"alloc/src/macros.rs",
}

func primNameMatches(st core.SearchType, search, name string) bool {
	if st == core.StartsWith {
		return strings.HasPrefix(name, search)
	}
	return name == search
}

// getPrimitiveMods returns the method receivers of the primitive types
// named by search.
func getPrimitiveMods(search string, st core.SearchType) []core.Match {
	var out []core.Match
	for _, p := range core.PrimMatches {
		if !primNameMatches(st, search, p.String()) {
			continue
		}
		if m, ok := p.ModuleMatch(); ok {
			out = append(out, m)
			if st == core.ExactMatch {
				break
			}
		}
	}
	return out
}

// primDocMatch returns a Builtin match for p located at its documentation
// module in std.
func (r *Resolver) primDocMatch(p core.PrimKind) (core.Match, bool) {
	srcPath := r.s.RustSrcPath()
	if srcPath == "" {
		return core.Match{}, false
	}
	file, seg := joinSrc(srcPath, primitiveDocs), "prim_"+p.String()
	if p.IsKeyword() {
		file, seg = joinSrc(srcPath, keywordDocs), p.String()+"_keyword"
	}
	m, ok := firstMatch(r.resolveName(core.PathSegment{Name: seg}, file, 0, core.ExactMatch, core.NsMod, importInfo{}))
	if !ok {
		return core.Match{}, false
	}
	m.Type = core.BuiltinType(p)
	m.Name = p.String()
	return m, true
}

// getPrimitiveDocs returns documented Builtin matches for the primitive
// types named by search.
func (r *Resolver) getPrimitiveDocs(search string, st core.SearchType) []core.Match {
	var out []core.Match
	for _, p := range core.PrimMatches {
		if !primNameMatches(st, search, p.String()) {
			continue
		}
		if m, ok := r.primDocMatch(p); ok {
			out = append(out, m)
			if st == core.ExactMatch {
				break
			}
		}
	}
	return out
}

// getStdMacros lists the exported std macros matching search. A trailing
// `!` in search is ignored; match names carry one.
func (r *Resolver) getStdMacros(search string, st core.SearchType) []core.Match {
	srcPath := r.s.RustSrcPath()
	if srcPath == "" {
		return nil
	}
	search = strings.TrimSuffix(search, "!")
	var out []core.Match
	for _, rel := range stdMacroFiles {
		path := joinSrc(srcPath, rel)
		if !r.s.FileExists(path) {
			continue
		}
		out = append(out, r.stdMacrosIn(path, search, rel == "core/src/macros.rs", st)...)
	}
	return out
}

// macroExports picks exported `macro_rules!` definitions out of a sequence
// of statements. An export attribute applies to the next macro only.
type macroExports struct {
	search   string
	st       core.SearchType
	exported bool
}

func (x *macroExports) def(blob string) (span.BytePos, string, bool) {
	if strings.HasPrefix(blob, "#[macro_export]") || strings.HasPrefix(blob, "#[rustc_doc_only_macro]") {
		x.exported = true
		return 0, "", false
	}
	if !x.exported || !strings.HasPrefix(blob, "macro_rules!") {
		return 0, "", false
	}
	x.exported = false
	start := len("macro_rules!")
	for start < len(blob) && source.IsWhitespaceByte(blob[start]) {
		start++
	}
	if !strings.HasPrefix(blob[start:], x.search) {
		return 0, "", false
	}
	end := source.FindIdentEnd(blob, span.BytePos(start+len(x.search)))
	name := blob[start:end]
	if x.st == core.ExactMatch && name != x.search {
		return 0, "", false
	}
	return span.BytePos(start), name + "!", true
}

func (r *Resolver) stdMacrosIn(path, search string, isCore bool, st core.SearchType) []core.Match {
	src := r.s.LoadSourceFile(path)
	raw := r.rawCode(path)
	x := &macroExports{search: search, st: st}
	var out []core.Match
	collect := func(base span.BytePos, stmts []span.ByteRange) (builtin span.BytePos, hasBuiltin bool) {
		for _, rng := range stmts {
			rng = rng.Shift(base)
			blob := rng.Slice(src.Code)
			// Compiler builtin macros are declared inside `mod builtin` in core.
			if isCore && strings.HasPrefix(blob, "mod builtin") {
				if n := strings.IndexByte(blob, '#'); n >= 0 {
					builtin, hasBuiltin = rng.Start+span.BytePos(n), true
				}
			}
			offset, name, ok := x.def(blob)
			if !ok {
				continue
			}
			point := rng.Start + offset
			m := core.Match{
				Name:    name,
				File:    path,
				Point:   point,
				Type:    core.Simple(core.KindMacro),
				Context: firstLine(blob),
				Docs:    findDoc(raw, rng.Start),
			}
			r.s.FillCoords(&m)
			out = append(out, m)
		}
		return builtin, hasBuiltin
	}
	if start, ok := collect(0, src.Src().StmtRanges()); ok {
		collect(start, src.SrcFrom(start).StmtRanges())
	}
	return out
}
