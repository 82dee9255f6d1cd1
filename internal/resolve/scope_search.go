package resolve

import (
	"log/slog"
	"strings"

	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/fragment"
	"github.com/rust-lang/rls-sub001/internal/source"
	"github.com/rust-lang/rls-sub001/internal/span"
)

// scopeQuery is one segment looked up in one file.
type scopeQuery struct {
	seg   core.PathSegment
	file  string
	st    core.SearchType
	local bool
	ns    core.Namespace
}

func (q scopeQuery) cxt(rng span.ByteRange) matchCxt {
	return matchCxt{file: q.file, search: q.seg.Name, rng: rng, st: q.st, local: q.local}
}

// searchScope searches the statements of the scope starting at start.
// When point is set, let bindings before point are tried first, innermost
// last binding first, so that later bindings shadow earlier ones. Imports
// are tried after every other declaration in the scope, single imports
// before globs.
func (r *Resolver) searchScope(start span.BytePos, point *span.BytePos, msrc source.Src, q scopeQuery, ii importInfo) []core.Match {
	search := q.seg.Name
	slog.Debug("search scope", "start", start, "search", search, "file", q.file, "type", q.st, "local", q.local, "ns", q.ns)

	scope := msrc.ShiftStart(start)
	scopeText := scope.Text()
	stmts := scope.StmtRanges()
	exact := q.st == core.ExactMatch
	var out []core.Match

	if point != nil {
		var before []span.ByteRange
		for _, br := range stmts {
			before = append(before, br)
			if start+br.Start > *point {
				break
			}
		}
		for i := len(before) - 1; i >= 0; i-- {
			br := before[i]
			if start+br.End >= *point {
				continue
			}
			rng := br.Shift(start)
			for _, m := range matchLet(msrc, rng.Start, q.cxt(rng)) {
				out = append(out, m)
				if exact {
					return out
				}
			}
		}
	}

	trimmed := strings.TrimRight(search, "!")
	var singles, globs []span.ByteRange
	for _, br := range stmts {
		blob := br.Slice(scopeText)
		if strings.HasPrefix(source.TrimVisibility(blob), "use") {
			isGlob := strings.Contains(blob, "::*")
			if !isGlob && !strings.Contains(blob, trimmed) {
				continue
			}
			if isGlob {
				globs = append(globs, br)
			} else {
				singles = append(singles, br)
			}
			continue
		}
		if search == "core" && strings.HasPrefix(blob, "#![no_std]") {
			slog.Debug("no_std implicitly imports core")
			if path, ok := r.crateFile("core", q.file); ok {
				m := r.moduleFileMatch("core", path)
				m.Docs = ""
				out = append(out, m)
			}
		}
		if !strings.Contains(blob, trimmed) {
			continue
		}
		if strings.HasPrefix(blob, "extern") && len(blob) > 7 {
			if brace := strings.IndexByte(blob[7:], '{'); brace >= 0 {
				inner := start + br.Start + span.BytePos(brace+8)
				out = append(out, r.searchScope(inner, nil, msrc, q, ii)...)
				continue
			}
		}
		out = append(out, r.runMatchers(msrc, q.cxt(br.Shift(start)), q.ns, ii)...)
		if exact && len(out) > 0 {
			return out
		}
	}

	for _, br := range append(singles, globs...) {
		for _, m := range r.runMatchers(msrc, q.cxt(br.Shift(start)), q.ns, ii) {
			out = append(out, m)
			if exact {
				return out
			}
		}
	}

	if point != nil {
		for _, m := range searchClosureArgs(search, scopeText, start, *point-start, q.file, q.st) {
			out = append(out, m)
			if exact {
				return out
			}
		}
	}
	return out
}

// searchClosureArgs matches the arguments of a closure in scopeText whose
// extent covers point. point is relative to scopeText, which starts at
// scopePos in the file.
func searchClosureArgs(search, scopeText string, scopePos, point span.BytePos, file string, st core.SearchType) []core.Match {
	if search == "" {
		return nil
	}
	pipes, body, ok := source.FindClosure(scopeText)
	if !ok || point < pipes.Start || point > body.End {
		return nil
	}
	pipeStr := pipes.Slice(scopeText)
	if !core.TxtMatches(st, search, pipeStr) {
		return nil
	}
	def := pipeStr + "{}"
	var out []core.Match
	for _, arg := range fragment.ParseClosureArgs(def, core.Scope{File: file, Point: scopePos}) {
		name, ok := arg.Pat.SearchByName(search, st)
		if !ok {
			continue
		}
		p := strings.Index(arg.Range.Slice(def), search)
		if p < 0 {
			continue
		}
		out = append(out, core.Match{
			Name:    name,
			File:    file,
			Point:   scopePos + pipes.Start + arg.Range.Start + span.BytePos(p),
			Local:   true,
			Type:    core.FnArgType(arg.Pat, arg.Ty),
			Context: pipeStr,
		})
	}
	return out
}

// searchLocalScopes searches outward from point through every enclosing
// scope and the headers that open them.
func (r *Resolver) searchLocalScopes(seg core.PathSegment, file string, msrc source.Src, point span.BytePos, st core.SearchType, ns core.Namespace, ii importInfo) []core.Match {
	q := scopeQuery{seg: seg, file: file, st: st, local: true, ns: ns}
	if point == 0 {
		return r.searchScope(0, nil, msrc, q, ii)
	}
	exact := st == core.ExactMatch
	var out []core.Match
	start := point
	for start > 0 {
		start = source.ScopeStart(msrc, start)
		for _, m := range r.searchScope(start, &point, msrc, q, ii) {
			out = append(out, m)
			if exact {
				return out
			}
		}
		if start == 0 {
			break
		}
		start = start.Decrement()
		for _, m := range r.searchScopeHeaders(point, start, msrc, seg.Name, file, st) {
			out = append(out, m)
			if exact {
				return out
			}
		}
	}
	return out
}

// preblockIsFn reports whether the text before a block opens a function.
func preblockIsFn(preblock string) bool {
	s := source.TrimVisibility(preblock)
	p := source.StripWords(s, "const", "unsafe", "async")
	return int(p) < len(s) && strings.HasPrefix(s[p:], "fn")
}

// searchScopeHeaders matches names introduced by the header of the block
// whose opening brace is at brace: function arguments and generics, if
// let, while let and for patterns, impl generics, match arm patterns and
// closure arguments.
func (r *Resolver) searchScopeHeaders(point, brace span.BytePos, msrc source.Src, search, file string, st core.SearchType) []core.Match {
	slog.Debug("search scope headers", "search", search, "brace", brace)
	text := msrc.Text()
	cxt := func(n int) matchCxt {
		return matchCxt{file: file, search: search, rng: span.NewRange(0, span.BytePos(n)), st: st, local: true}
	}
	stmtStart, ok := source.FindStmtStart(msrc, brace)
	if !ok {
		return nil
	}
	preblock := text[stmtStart:brace]
	shift := func(ms []core.Match, by span.BytePos) []core.Match {
		for i := range ms {
			ms[i].Point += by
		}
		return ms
	}

	if preblockIsFn(preblock) {
		return r.searchFnArgsAndGenerics(stmtStart, brace, text, search, file, st, true)
	}
	if n := strings.Index(preblock, "if let"); n >= 0 {
		ifLetStart := stmtStart + span.BytePos(n)
		trimmed := strings.TrimSpace(text[ifLetStart:brace])
		if !core.TxtMatches(st, search, trimmed) {
			return nil
		}
		stmt := trimmed + "{}"
		return shift(matchIfLet(stmt, ifLetStart, cxt(len(stmt))), ifLetStart)
	}
	if strings.HasPrefix(preblock, "while let") {
		trimmed := strings.TrimSpace(preblock)
		if !core.TxtMatches(st, search, trimmed) {
			return nil
		}
		stmt := trimmed + "{}"
		return shift(matchWhileLet(stmt, stmtStart, cxt(len(stmt))), stmtStart)
	}
	if strings.HasPrefix(preblock, "for ") {
		trimmed := strings.TrimSpace(preblock)
		if !core.TxtMatches(st, search, trimmed) {
			return nil
		}
		stmt := trimmed + "{}"
		return shift(matchFor(stmt, stmtStart, cxt(len(stmt))), stmtStart)
	}
	if strings.HasPrefix(preblock, "impl") {
		trimmed := strings.TrimSpace(preblock)
		if !core.TxtMatches(st, search, trimmed) {
			return nil
		}
		out := matchImpl(trimmed+"{}", cxt(0), stmtStart)
		for i := range out {
			out[i].Local = true
			out[i].Context = trimmed
		}
		return out
	}
	if n := strings.LastIndex(preblock, "match "); n >= 0 {
		return matchArmBindings(point, brace, stmtStart+span.BytePos(n), msrc, search, file, st)
	}
	return searchClosureArgs(search, preblock, stmtStart, point-stmtStart, file, st)
}

// matchImpl matches the type parameters declared by an impl header.
func matchImpl(decl string, ctx matchCxt, offset span.BytePos) []core.Match {
	h, ok := fragment.ParseImpl(decl, ctx.file, offset, true, offset)
	if !ok {
		return nil
	}
	var out []core.Match
	for _, tp := range h.Generics.Params {
		if core.SymbolMatches(ctx.st, ctx.search, tp.Name) {
			out = append(out, tp.IntoMatch())
		}
	}
	return out
}

// matchArmBindings matches the names bound by the pattern of the match arm
// whose body contains point. A faux match statement with just that arm is
// parsed, since the real one may be half written.
func matchArmBindings(point, brace, matchStart span.BytePos, msrc source.Src, search, file string, st core.SearchType) []core.Match {
	text := msrc.Text()
	stmt := firstStmt(msrc.ShiftStart(matchStart))
	if !stmt.Range.Contains(point) {
		return nil
	}
	inner := brace.Increment() - matchStart
	stmtText := stmt.Text()
	if int(inner) > len(stmtText) || point < matchStart {
		return nil
	}
	masked := stmtText[:inner] + source.MaskSubScopes(stmtText[inner:])
	rel := min(int(point-matchStart), len(masked))
	arm := strings.LastIndex(masked[:rel], "=>")
	if arm < 0 {
		return nil
	}
	if next := strings.Index(masked[arm+2:], "=>"); next >= 0 {
		enumStart := source.GetStartOfPattern(masked, span.BytePos(arm+next+1))
		if point > matchStart+enumStart {
			return nil
		}
	}
	armPos := matchStart + span.BytePos(arm)
	lhsStart := source.GetStartOfPattern(text, armPos)
	lhs := text[lhsStart:armPos]
	faux := text[matchStart:brace] + "{" + lhs + " => () };"
	slog.Debug("faux match statement", "stmt", faux)

	var out []core.Match
	for _, pr := range fragment.ParsePatIdents(faux) {
		s, e := lhsStart+pr.Start-inner, lhsStart+pr.End-inner
		if s < 0 || int(e) > len(text) {
			continue
		}
		name := text[s:e]
		if !core.SymbolMatches(st, search, name) {
			continue
		}
		out = append(out, core.Match{
			Name:    name,
			File:    file,
			Point:   s,
			Local:   true,
			Type:    core.Simple(core.KindMatchArm),
			Context: strings.TrimSpace(lhs),
		})
		if st == core.ExactMatch {
			break
		}
	}
	return out
}

// searchFnArgsAndGenerics matches the arguments and type parameters of the
// function declared at fnStart whose body opens at brace.
func (r *Resolver) searchFnArgsAndGenerics(fnStart, brace span.BytePos, text, search, file string, st core.SearchType, local bool) []core.Match {
	decl := text[fnStart:brace.Increment()] + "}"
	if !core.TxtMatches(st, search, decl) {
		return nil
	}
	args, gen := fragment.ParseFnArgsAndGenerics(decl, core.Scope{File: file, Point: fnStart}, fnStart)
	var out []core.Match
	for _, arg := range args {
		name, ok := arg.Pat.SearchByName(search, st)
		if !ok {
			continue
		}
		ctxStr := arg.Range.Slice(decl)
		p := strings.Index(ctxStr, search)
		if p < 0 {
			continue
		}
		ty := arg.Ty
		if ty != nil {
			ty = core.ReplaceByGenerics(ty, &gen)
		}
		out = append(out, core.Match{
			Name:    name,
			File:    file,
			Point:   fnStart + arg.Range.Start + span.BytePos(p),
			Local:   local,
			Type:    core.FnArgType(arg.Pat, ty),
			Context: ctxStr,
		})
		if st == core.ExactMatch {
			break
		}
	}
	for _, tp := range gen.Params {
		if core.SymbolMatches(st, search, tp.Name) {
			out = append(out, tp.IntoMatch())
			if st == core.ExactMatch {
				break
			}
		}
	}
	return out
}

// searchNextScope searches the body of the item declared at start, or the
// whole file when start is zero.
func (r *Resolver) searchNextScope(start span.BytePos, seg core.PathSegment, file string, st core.SearchType, local bool, ns core.Namespace, ii importInfo) []core.Match {
	msrc := r.s.LoadSourceFile(file).Src()
	if start != 0 {
		text := msrc.Text()
		if int(start) <= len(text) {
			if n := strings.IndexByte(text[start:], '{'); n >= 0 {
				start += span.BytePos(n + 1)
			}
		}
	}
	return r.searchScope(start, nil, msrc, scopeQuery{seg: seg, file: file, st: st, local: local, ns: ns}, ii)
}

// firstStmt narrows src to its first statement.
func firstStmt(src source.Src) source.Src {
	if stmts := src.StmtRanges(); len(stmts) > 0 {
		return src.ShiftRange(stmts[0])
	}
	return src
}
