package resolve

import (
	"log/slog"
	"strings"

	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/fragment"
	"github.com/rust-lang/rls-sub001/internal/source"
	"github.com/rust-lang/rls-sub001/internal/span"
)

// generateSkeleton drops the body of an item, leaving its header and an
// empty block.
func generateSkeleton(src string) (string, bool) {
	n := strings.IndexByte(src, '{')
	if n < 0 {
		return "", false
	}
	return src[:n+1] + "}", true
}

// firstParamIsSelf reports whether the function declared in blob takes
// self as its first parameter.
func firstParamIsSelf(blob string) bool {
	blob = source.TrimVisibility(blob)
	paren := strings.IndexByte(blob, '(')
	if paren < 0 {
		return false
	}
	// Skip generics like `<U, F: FnOnce(T) -> U>` before the parameter list.
	skip := 0
	if lt := strings.IndexByte(blob, '<'); lt >= 0 && lt < paren {
		level := 0
		prev := ' '
		for i, c := range blob[lt:] {
			switch {
			case c == '<':
				level++
			case c == '>' && prev != '-':
				level--
			}
			prev = c
			if level == 0 {
				skip = lt + i
				break
			}
		}
	}
	open := strings.IndexByte(blob[skip:], '(')
	if open < 0 {
		return false
	}
	start := span.BytePos(skip + open + 1)
	end := source.FindClosingParen(blob, start)
	return core.TxtMatches(core.ExactMatch, "self", blob[start:end])
}

// getTypeOfSelf returns the type Self denotes at point: the self type of an
// enclosing impl, or the enclosing trait.
func (r *Resolver) getTypeOfSelf(point span.BytePos, file string, local bool, msrc source.Src) core.Ty {
	start, ok := source.FindImplStart(msrc, point, 0)
	if !ok {
		return nil
	}
	decl, ok := generateSkeleton(msrc.ShiftStart(start).Text())
	if !ok {
		return nil
	}
	slog.Debug("self type impl skeleton", "decl", decl)
	h, ok := fragment.ParseImpl(decl, file, start, local, start+span.BytePos(len(decl)))
	if !ok {
		name, ok := fragment.ParseTraitName(decl)
		if !ok {
			return nil
		}
		return core.TyMatch{Match: core.Match{
			Name:    name,
			File:    file,
			Point:   start,
			Local:   local,
			Type:    core.Simple(core.KindTrait),
			Context: firstLine(msrc.ShiftStart(start).Text()),
		}}
	}
	if _, param, ok := h.Generics.SearchParamByPath(h.SelfPath); ok {
		if param.Resolved != nil {
			return param.Resolved
		}
		m := param.IntoMatch()
		m.Local = local
		return core.TyMatch{Match: m}
	}
	m, ok := firstMatch(r.resolvePath(h.SelfPath, file, start, core.ExactMatch, core.NsType, importInfo{}))
	if !ok {
		return nil
	}
	switch m.Type.Kind {
	case core.KindStruct, core.KindEnum:
		if m.Type.Generics != nil {
			m.Type.Generics = m.Type.Generics.Clone()
			for i, p := range h.Generics.Params {
				m.Type.Generics.AddBound(i, p.Bounds)
			}
		}
	}
	return core.TyMatch{Match: m}
}

// getTypeOfMatch infers the type of the value or item m declares.
func (r *Resolver) getTypeOfMatch(m core.Match, msrc source.Src) core.Ty {
	slog.Debug("type of match", "match", m)
	switch m.Type.Kind {
	case core.KindLet:
		return r.getTypeOfLetExpr(m)
	case core.KindIfLet, core.KindWhileLet:
		return r.getTypeOfIfLet(m, m.Type.Pos)
	case core.KindFor:
		return r.getTypeOfForArg(m)
	case core.KindFnArg:
		return r.getTypeOfFnArg(m)
	case core.KindMatchArm:
		return r.getTypeFromMatchArm(m, msrc)
	case core.KindStruct, core.KindUnion, core.KindEnum, core.KindFunction, core.KindMethod, core.KindModule:
		return core.TyMatch{Match: m}
	case core.KindConst, core.KindStatic:
		return getTypeOfStatic(m)
	case core.KindEnumVariant:
		if t := m.Type.Target; t != nil && t.Type.Kind == core.KindEnum {
			return core.TyMatch{Match: *t}
		}
	}
	slog.Debug("cannot infer type", "kind", m.Type.Kind)
	return nil
}

func (r *Resolver) getTypeOfFnArg(m core.Match) core.Ty {
	if m.Type.Arg == nil {
		return nil
	}
	return r.resolveLvalueTy(m.Type.Arg.Pat, m.Type.Arg.Ty, m.Name, m.File, m.Point)
}

func (r *Resolver) getTypeOfLetExpr(m core.Match) core.Ty {
	letStart := m.Type.Pos
	slog.Debug("type of let", "stmt", m.Context)
	return r.getLetType(m.Context, m.Point-letStart, core.Scope{File: m.File, Point: letStart})
}

// resolveLvalueTy finds the type bound to query by destructuring rvalue
// with pat.
func (r *Resolver) resolveLvalueTy(pat core.Pat, rvalue core.Ty, query, file string, pos span.BytePos) core.Ty {
	switch pat.Kind {
	case core.PatIdent:
		if pat.Name != query {
			return nil
		}
		return rvalue
	case core.PatTuple:
		tup, ok := rvalue.(core.TyTuple)
		if !ok {
			return nil
		}
		for i, p := range pat.Elems {
			if i >= len(tup.Elems) {
				break
			}
			if t := r.resolveLvalueTy(p, tup.Elems[i], query, file, pos); t != nil {
				return t
			}
		}
	case core.PatRef:
		inner := pat.Inner()
		if inner == nil {
			return nil
		}
		if ref, ok := rvalue.(core.TyRef); ok {
			rvalue = ref.Elem
		}
		return r.resolveLvalueTy(*inner, rvalue, query, file, pos)
	case core.PatTupleStruct:
		m, ok := r.findTypeMatch(pat.Path, file, pos)
		if !ok {
			return nil
		}
		fields := r.getTuplestructFields(m)
		switch m.Type.Kind {
		case core.KindStruct:
			for i, p := range pat.Elems {
				if i >= len(fields) {
					break
				}
				if t := r.resolveLvalueTy(p, fields[i].Ty, query, file, pos); t != nil {
					return t
				}
			}
		case core.KindEnumVariant:
			var gen *core.GenericsArgs
			if rm, ok := core.Dereference(rvalue).(core.TyMatch); ok {
				gen = rm.Match.Generics()
			} else if m.Type.Target != nil {
				gen = m.Type.Target.Generics()
			}
			for i, p := range pat.Elems {
				if i >= len(fields) {
					break
				}
				ft := fields[i].Ty
				if gen != nil && ft != nil {
					ft = core.ReplaceByResolvedGenerics(ft, gen)
				}
				if t := r.resolveLvalueTy(p, ft, query, file, pos); t != nil {
					return t
				}
			}
		}
	}
	return nil
}

func (r *Resolver) getTypeOfForArg(m core.Match) core.Ty {
	if m.Type.Kind != core.KindFor {
		slog.Warn("not a for binding", "type", m.Type)
		return nil
	}
	// The iterated expression is resolved in the scope outside the loop.
	scope := core.Scope{File: m.File, Point: m.Type.Pos}
	b, ok := fragment.ParseForStmt(m.Context, scope)
	if !ok {
		r.s.Metrics().ParseFailure("for")
		return nil
	}
	var item core.Ty
	if in := r.exprType(b.Value, scope); in != nil {
		item = r.iterItemOf(in)
	}
	return r.resolveLvalueTy(b.Pat, item, m.Name, m.File, m.Point)
}

func (r *Resolver) iterItemOf(t core.Ty) core.Ty {
	switch t := t.(type) {
	case core.TyMatch:
		if item, ok := r.getIterItem(t.Match); ok {
			return item
		}
	case core.TyPathSearch:
		if m, ok := r.findTypeMatch(t.Path, t.File, t.Point); ok {
			if item, ok := r.getIterItem(m); ok {
				return item
			}
		}
	case core.TyRef:
		return r.iterItemOf(t.Elem)
	}
	return nil
}

func (r *Resolver) getTypeOfIfLet(m core.Match, start span.BytePos) core.Ty {
	scope := core.Scope{File: m.File, Point: start}
	b, ok := fragment.ParseIfLet(m.Context, scope)
	if !ok {
		r.s.Metrics().ParseFailure("if let")
		return nil
	}
	return r.resolveLvalueTy(b.Pat, r.exprType(b.Value, scope), m.Name, m.File, m.Point)
}

// getStructFieldType returns the declared type of field name of the struct
// m names.
func (r *Resolver) getStructFieldType(name string, m core.Match) core.Ty {
	if m.Type.Kind != core.KindStruct {
		slog.Warn("field type requested of non struct", "type", m.Type)
		return nil
	}
	src := r.s.LoadSourceFile(m.File)
	start := source.ExpectStmtStart(src.Src(), m.Point)
	var text string
	if end, ok := source.EndOfNextScope(src.Code[start:]); ok {
		text = src.Code[start : start+end+1]
	} else {
		// tuple struct
		text = firstStmt(src.SrcFrom(start)).Text()
	}
	for _, f := range fragment.ParseStructFields(text, core.ScopeOf(&m)) {
		if f.Name == name {
			return f.Ty
		}
	}
	return nil
}

// getTuplestructFields lists the positional fields of a tuple struct or
// tuple enum variant.
func (r *Resolver) getTuplestructFields(m core.Match) []fragment.StructField {
	src := r.s.LoadSourceFile(m.File)
	var text string
	switch m.Type.Kind {
	case core.KindEnumVariant:
		if int(m.Point) > len(src.Code) {
			return nil
		}
		n := strings.IndexByte(src.Code[m.Point:], '(')
		if n < 0 {
			return nil
		}
		to := source.FindClosingParen(src.Code, m.Point+span.BytePos(n+1))
		if int(to) >= len(src.Code) {
			return nil
		}
		text = "struct " + src.Code[m.Point:to+1] + ";"
	case core.KindStruct:
		start := source.ExpectStmtStart(src.Src(), m.Point)
		text = firstStmt(src.SrcFrom(start)).Text()
	default:
		return nil
	}
	slog.Debug("tuple struct fields", "src", text)
	return fragment.ParseStructFields(text, core.ScopeOf(&m))
}

func (r *Resolver) getTuplestructFieldType(i int, m core.Match) core.Ty {
	fields := r.getTuplestructFields(m)
	if i < 0 || i >= len(fields) {
		return nil
	}
	return fields[i].Ty
}

// getTypeFromMatchArm infers the type of a binding in a match arm pattern.
// A match with only that arm is parsed, since the real one may be half
// written.
func (r *Resolver) getTypeFromMatchArm(m core.Match, msrc source.Src) core.Ty {
	text := msrc.Text()
	if int(m.Point) > len(text) {
		return nil
	}
	n := strings.Index(text[m.Point:], "=>")
	if n < 0 {
		return nil
	}
	arm := m.Point + span.BytePos(n)
	scopeStart := source.ScopeStart(msrc, arm)
	if scopeStart == 0 {
		return nil
	}
	stmtStart, ok := source.FindStmtStart(msrc, scopeStart.Decrement())
	if !ok {
		return nil
	}
	preblock := text[stmtStart:scopeStart]
	mi := strings.LastIndex(preblock, "match ")
	if mi < 0 {
		return nil
	}
	matchStart := stmtStart + span.BytePos(mi)
	lhsStart := source.GetStartOfPattern(text, arm)
	lhs := text[lhsStart:arm]
	prefix := text[matchStart:scopeStart]
	faux := prefix + lhs + " => () };"
	fauxPoint := span.BytePos(len(prefix)) + m.Point - lhsStart
	slog.Debug("faux match statement", "stmt", faux, "point", fauxPoint)
	return r.getMatchArmType(faux, fauxPoint, core.Scope{File: m.File, Point: matchStart})
}

// getFunctionDeclaration returns the header of the function m names.
func (r *Resolver) getFunctionDeclaration(m core.Match) string {
	src := r.s.LoadSourceFile(m.File)
	start := source.ExpectStmtStart(src.Src(), m.Point)
	end := strings.IndexAny(src.Code[start:], "{;")
	if end < 0 {
		return src.Code[start:]
	}
	return src.Code[start : int(start)+end]
}

// getReturnTypeOfFunction returns the declared return type of fn. A bare
// type parameter of fn resolves to cxt.
func (r *Resolver) getReturnTypeOfFunction(fn, cxt core.Match) core.Ty {
	src := r.s.LoadSourceFile(fn.File)
	point := source.ExpectStmtStart(src.Src(), fn.Point)
	rest := src.Code[point:]
	end := strings.IndexAny(rest, "{;")
	if end < 0 {
		return nil
	}
	decl := rest[:end] + "{}"
	ty, isAsync := fragment.ParseFnOutput(decl, core.Scope{File: fn.File, Point: point})
	if ps, ok := ty.(core.TyPathSearch); ok && ps.Path.Len() > 0 {
		seg := ps.Path.Segments[0]
		switch {
		case seg.Name == "Self":
			ty = r.getTypeOfSelf(fn.Point, fn.File, fn.Local, src.Src())
		case ps.Path.IsSingle() && len(seg.Generics) == 0:
			if gen := fn.Generics(); gen != nil {
				if _, _, found := gen.SearchParamByName(seg.Name); found {
					ty = core.TyMatch{Match: cxt}
				}
			}
		}
	}
	if ty == nil {
		return nil
	}
	if isAsync {
		return core.TyFuture{Output: ty, Scope: core.ScopeOf(&fn)}
	}
	return ty
}

// getTypeOfIndexedValue returns the element type of body[..].
func (r *Resolver) getTypeOfIndexedValue(body core.Ty) core.Ty {
	switch t := core.Dereference(body).(type) {
	case core.TyMatch:
		if out, ok := r.getIndexOutput(t.Match); ok {
			return out
		}
	case core.TyPathSearch:
		if m, ok := r.findTypeMatch(t.Path, t.File, t.Point); ok {
			if out, ok := r.getIndexOutput(m); ok {
				return out
			}
		}
	case core.TyArray:
		return t.Elem
	case core.TySlice:
		return t.Elem
	}
	return nil
}

// getTypeOfTypedef resolves the type a `type` alias stands for.
func (r *Resolver) getTypeOfTypedef(m core.Match) (core.Match, bool) {
	slog.Debug("type of typedef", "match", m)
	msrc := r.s.LoadSourceFile(m.File)
	blobStart := m.Point - span.BytePos(len("type "))
	if blobStart < 0 {
		return core.Match{}, false
	}
	stmts := msrc.SrcFrom(blobStart).StmtRanges()
	if len(stmts) == 0 {
		return core.Match{}, false
	}
	rng := stmts[0].Shift(blobStart)
	_, ty, ok := fragment.ParseTypeAlias(rng.Slice(msrc.Code), core.Scope{File: m.File, Point: rng.Start})
	if !ok {
		return core.Match{}, false
	}
	switch t := core.Dereference(ty).(type) {
	case core.TyMatch:
		return t.Match, true
	case core.TyPtr:
		return core.PrimPointer.ModuleMatch()
	case core.TyArray:
		return core.PrimArray.ModuleMatch()
	case core.TySlice:
		return core.PrimSlice.ModuleMatch()
	case core.TyPathSearch:
		src := msrc.Src()
		scopeStart := source.ScopeStart(src, m.Point)
		// An alias inside an impl or trait names a type outside of it.
		searchAt := scopeStart
		if scopeStart > 0 {
			outer := source.ScopeStart(src, scopeStart.Decrement())
			blob := strings.TrimLeft(msrc.SrcFrom(outer).Text(), " \t\r\n")
			if strings.HasPrefix(blob, "impl") || strings.HasPrefix(source.TrimVisibility(blob), "trait") {
				searchAt = outer
			}
		}
		name := t.Path.Name()
		for _, c := range r.ResolvePathWithPrimitive(t.Path, t.File, searchAt, core.StartsWith, core.NsType) {
			if c.Name == name && c.Point != m.Point {
				return c, true
			}
		}
	}
	return core.Match{}, false
}

// getTypeOfStatic returns the declared type of a const or static.
func getTypeOfStatic(m core.Match) core.Ty {
	scope := core.Scope{File: m.File, Point: m.Point - span.BytePos(len("static"))}
	ty, _ := fragment.ParseStatic(m.Context, scope)
	return ty
}
