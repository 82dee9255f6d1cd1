package resolve

import (
	"log/slog"
	"strconv"

	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/fragment"
	"github.com/rust-lang/rls-sub001/internal/span"
)

// GetTypeOf infers the type of the expression statement stmt, resolving
// names from pos in file.
func (r *Resolver) GetTypeOf(stmt, file string, pos span.BytePos) core.Ty {
	scope := core.Scope{File: file, Point: pos}
	e, ok := fragment.ParseExpr(stmt, scope)
	if !ok {
		r.s.Metrics().ParseFailure("expr")
		return nil
	}
	return r.exprType(e, scope)
}

// getLetType infers the type bound at pos, relative to stmt, by the let
// statement stmt.
func (r *Resolver) getLetType(stmt string, pos span.BytePos, scope core.Scope) core.Ty {
	let, ok := fragment.ParseLet(stmt, scope)
	if !ok {
		r.s.Metrics().ParseFailure("let")
		return nil
	}
	ty := let.Ty
	if ty == nil {
		if let.Init == nil {
			return nil
		}
		ty = r.exprType(let.Init, scope)
	}
	if ty == nil {
		return nil
	}
	return r.destructure(let.Pat, pos, ty, scope)
}

// getMatchArmType infers the type of the binding at pos in the arm
// patterns of the match statement stmt.
func (r *Resolver) getMatchArmType(stmt string, pos span.BytePos, scope core.Scope) core.Ty {
	me, ok := fragment.ParseMatch(stmt, scope)
	if !ok {
		r.s.Metrics().ParseFailure("match")
		return nil
	}
	ty := r.exprType(me.Value, scope)
	if ty == nil {
		return nil
	}
	for _, arm := range me.Arms {
		if !arm.Pat.Range.Contains(pos) {
			continue
		}
		if t := r.destructure(arm.Pat, pos, ty, scope); t != nil {
			return r.pathToMatch(t)
		}
	}
	return nil
}

// destructure walks pat down to the identifier at pos, narrowing ty along
// the way.
func (r *Resolver) destructure(pat core.Pat, pos span.BytePos, ty core.Ty, scope core.Scope) core.Ty {
	switch pat.Kind {
	case core.PatIdent:
		if pat.Range.Contains(pos) {
			return ty
		}
	case core.PatRef:
		if inner := pat.Inner(); inner != nil {
			if ref, ok := ty.(core.TyRef); ok {
				ty = ref.Elem
			}
			return r.destructure(*inner, pos, ty, scope)
		}
	case core.PatTuple:
		tup, ok := core.Dereference(ty).(core.TyTuple)
		if !ok {
			return nil
		}
		for i, p := range pat.Elems {
			if p.Range.Contains(pos) && i < len(tup.Elems) {
				return r.destructure(p, pos, tup.Elems[i], scope)
			}
		}
	case core.PatTupleStruct:
		m, ok := firstMatch(r.ResolvePathWithPrimitive(pat.Path, scope.File, scope.Point, core.ExactMatch, core.NsPath))
		if !ok {
			return nil
		}
		cxt := r.pathToMatch(ty)
		for i, p := range pat.Elems {
			if !p.Range.Contains(pos) {
				continue
			}
			ft := r.getTuplestructFieldType(i, m)
			if ft == nil {
				return nil
			}
			return r.destructure(p, pos, r.fieldTyIn(ft, cxt), scope)
		}
	case core.PatStruct:
		m, ok := firstMatch(r.ResolvePathWithPrimitive(pat.Path, scope.File, scope.Point, core.ExactMatch, core.NsPath))
		if !ok {
			return nil
		}
		cxt := r.pathToMatch(ty)
		for _, f := range pat.Fields {
			if !f.Range.Contains(pos) {
				continue
			}
			ft := r.getStructFieldType(f.Name, m)
			if ft == nil {
				return nil
			}
			return r.destructure(f.Pat, pos, r.fieldTyIn(ft, cxt), scope)
		}
	case core.PatOr:
		for _, p := range pat.Elems {
			if p.Range.Contains(pos) {
				return r.destructure(p, pos, ty, scope)
			}
		}
	case core.PatBox:
		if inner := pat.Inner(); inner != nil {
			return r.destructure(*inner, pos, ty, scope)
		}
	}
	return nil
}

// fieldTyIn resolves a declared field type in the context of the value it
// was destructured from.
func (r *Resolver) fieldTyIn(ft core.Ty, cxt core.Ty) core.Ty {
	if m, ok := cxt.(core.TyMatch); ok {
		return r.pathToMatchIncludingGenerics(ft, m.Match.Generics())
	}
	return r.pathToMatch(ft)
}

// pathToMatch resolves an unresolved path type to the item it names.
func (r *Resolver) pathToMatch(ty core.Ty) core.Ty {
	switch t := ty.(type) {
	case core.TyPathSearch:
		if m, ok := r.findTypeMatch(t.Path, t.File, t.Point); ok {
			return core.TyMatch{Match: m}
		}
		return nil
	case core.TyRef:
		if inner := r.pathToMatch(t.Elem); inner != nil {
			return core.TyRef{Elem: inner, Mut: t.Mut}
		}
		return nil
	}
	return ty
}

func (r *Resolver) pathToMatchIncludingGenerics(ty core.Ty, gen *core.GenericsArgs) core.Ty {
	if gen != nil {
		ty = core.ReplaceByGenerics(ty, gen)
	}
	if ps, ok := ty.(core.TyPathSearch); ok {
		if m, ok := r.findTypeMatch(ps.Path, ps.File, ps.Point); ok {
			return core.TyMatch{Match: m}
		}
		return nil
	}
	return ty
}

// findTypeMatch resolves path to a type, following type aliases and
// binding the path's generic arguments.
func (r *Resolver) findTypeMatch(path core.Path, file string, pos span.BytePos) (core.Match, bool) {
	slog.Debug("find type match", "path", path, "file", file, "pos", pos)
	m, ok := firstMatch(r.ResolvePathWithPrimitive(path, file, pos, core.ExactMatch, core.NsType))
	if !ok {
		return core.Match{}, false
	}
	if m.Type.Kind == core.KindType {
		if m, ok = r.getTypeOfTypedef(m); !ok {
			return core.Match{}, false
		}
	}
	if types := path.GenericTypes(); len(types) > 0 {
		m.ResolveGenerics(types)
	}
	return m, true
}

// findTypeMatchIncludingGenerics resolves the declared type of a field of
// structm, substituting structm's type parameters.
func (r *Resolver) findTypeMatchIncludingGenerics(fieldTy core.Ty, file string, pos span.BytePos, structm core.Match) core.Ty {
	var path core.Path
	switch t := core.Dereference(fieldTy).(type) {
	case core.TyPathSearch:
		path = t.Path
	case core.TyMatch:
		return t
	default:
		return fieldTy
	}
	if structm.Type.Kind != core.KindStruct {
		return nil
	}
	if path.IsSingle() {
		if _, param, ok := structm.Type.Generics.SearchParamByName(path.Name()); ok {
			if param.Resolved != nil {
				return param.Resolved
			}
			m := param.IntoMatch()
			m.Local = structm.Local
			return core.TyMatch{Match: m}
		}
	}
	if m, ok := r.findTypeMatch(path, file, pos); ok {
		return core.TyMatch{Match: m}
	}
	return nil
}

// resolveAsFieldMatch turns a receiver type into the item whose fields and
// methods it has.
func (r *Resolver) resolveAsFieldMatch(ty core.Ty) (core.Match, bool) {
	switch t := ty.(type) {
	case core.TyRef:
		return r.resolveAsFieldMatch(t.Elem)
	case core.TyArray, core.TySlice:
		return core.PrimSlice.ModuleMatch()
	case core.TyMatch:
		return t.Match, true
	case core.TyPathSearch:
		return r.findTypeMatch(t.Path, t.File, t.Point)
	case core.TySelf:
		msrc := r.s.LoadSourceFile(t.Scope.File).Src()
		if m, ok := r.getTypeOfSelf(t.Scope.Point, t.Scope.File, true, msrc).(core.TyMatch); ok {
			return m.Match, true
		}
	}
	return core.Match{}, false
}

func boolMatch() core.Match {
	return core.Match{Name: core.PrimBool.String(), Type: core.BuiltinType(core.PrimBool)}
}

// exprType infers the type of e, resolving names from scope. Path
// positions inside e are relative to scope.Point.
func (r *Resolver) exprType(e fragment.Expr, scope core.Scope) core.Ty {
	if e == nil {
		return nil
	}
	switch e := e.(type) {
	case fragment.UnaryExpr:
		inner := r.exprType(e.Value, scope)
		if inner == nil {
			return nil
		}
		switch e.Op {
		case "&":
			return core.TyRef{Elem: inner}
		case "*":
			if ref, ok := inner.(core.TyRef); ok {
				return ref.Elem
			}
		}
		return inner
	case fragment.PathExpr:
		m, ok := firstMatch(r.ResolvePathWithPrimitive(e.Path, scope.File, scope.Point+e.Pos, core.ExactMatch, core.NsPath))
		if !ok {
			return nil
		}
		msrc := r.s.LoadSourceFile(m.File).Src()
		return r.getTypeOfMatch(m, msrc)
	case fragment.CallExpr:
		return r.callType(e, scope)
	case fragment.StructExpr:
		if m, ok := r.findTypeMatch(e.Path, scope.File, scope.Point); ok {
			return core.TyMatch{Match: m}
		}
	case fragment.MethodCallExpr:
		recv := r.exprType(e.Receiver, scope)
		if recv == nil {
			return nil
		}
		cxt, ok := r.resolveAsFieldMatch(recv)
		if !ok {
			return nil
		}
		slog.Debug("method call", "receiver", cxt.Name, "method", e.Method)
		for _, method := range r.SearchForFieldsAndMethods(cxt, e.Method, core.ExactMatch, true) {
			if ty := r.getReturnTypeOfFunction(method, cxt); ty != nil {
				return r.pathToMatchIncludingGenerics(ty, cxt.Generics())
			}
		}
	case fragment.FieldExpr:
		recv := r.exprType(e.Value, scope)
		if recv == nil {
			return nil
		}
		if tup, ok := core.Dereference(recv).(core.TyTuple); ok {
			if i, err := strconv.Atoi(e.Field); err == nil && i < len(tup.Elems) {
				return tup.Elems[i]
			}
			return nil
		}
		structm, ok := r.resolveAsFieldMatch(recv)
		if !ok {
			return nil
		}
		fieldTy := r.getStructFieldType(e.Field, structm)
		if fieldTy == nil {
			return nil
		}
		return r.findTypeMatchIncludingGenerics(fieldTy, structm.File, structm.Point, structm)
	case fragment.TupleExpr:
		elems := make([]core.Ty, len(e.Elems))
		for i, el := range e.Elems {
			elems[i] = r.exprType(el, scope)
		}
		return core.TyTuple{Elems: elems}
	case fragment.LitExpr:
		return litType(e)
	case fragment.TryExpr:
		inner, ok := r.asMatch(r.exprType(e.Value, scope))
		if !ok {
			return nil
		}
		switch inner.Name {
		case "Result", "Option":
			if gs := inner.ResolvedGenerics(); len(gs) > 0 {
				return r.pathToMatch(gs[0])
			}
		}
	case fragment.MatchExpr:
		for _, arm := range e.Arms {
			if ty := r.exprType(arm.Body, scope); ty != nil {
				return ty
			}
		}
	case fragment.IfExpr:
		if ty := r.exprType(e.Then, scope); ty != nil {
			return ty
		}
		return r.exprType(e.Else, scope)
	case fragment.BlockExpr:
		return r.exprType(e.Last, scope)
	case fragment.IndexExpr:
		body := r.exprType(e.Value, scope)
		if body == nil {
			return nil
		}
		return r.getTypeOfIndexedValue(body)
	case fragment.ArrayExpr:
		n := strconv.Itoa(len(e.Elems))
		for _, el := range e.Elems {
			if ty := r.exprType(el, scope); ty != nil {
				return core.TyArray{Elem: ty, Len: n}
			}
		}
		return core.TyArray{Elem: core.TyUnsupported{}, Len: n}
	case fragment.MacroExpr:
		if e.Name == "vec" {
			if m, ok := r.findTypeMatch(core.NewPath(true, "std", "vec", "Vec"), scope.File, scope.Point); ok {
				return core.TyMatch{Match: m}
			}
		}
	case fragment.BinaryExpr:
		return r.binaryType(e, scope)
	default:
		slog.Debug("no type for expression", "expr", e)
	}
	return nil
}

func litType(e fragment.LitExpr) core.Ty {
	if e.ByteString {
		m, ok := core.PrimU8.ModuleMatch()
		if !ok {
			return nil
		}
		return core.TyRef{Elem: core.TyArray{Elem: core.TyMatch{Match: m}, Len: strconv.Itoa(e.Len)}}
	}
	if e.Prim == core.PrimBool {
		return core.TyMatch{Match: boolMatch()}
	}
	if m, ok := e.Prim.ModuleMatch(); ok {
		return core.TyMatch{Match: m}
	}
	return nil
}

// callType infers the result of calling e.Func. declared is the item a
// path callee names, which for an enum variant differs from its type.
func (r *Resolver) callType(e fragment.CallExpr, scope core.Scope) core.Ty {
	var (
		callee   core.Ty
		declared core.Match
		hasDecl  bool
	)
	if pe, ok := e.Func.(fragment.PathExpr); ok {
		declared, hasDecl = firstMatch(r.ResolvePathWithPrimitive(pe.Path, scope.File, scope.Point+pe.Pos, core.ExactMatch, core.NsPath))
		if !hasDecl {
			return nil
		}
		callee = r.getTypeOfMatch(declared, r.s.LoadSourceFile(declared.File).Src())
	} else {
		callee = r.exprType(e.Func, scope)
	}
	tm, ok := callee.(core.TyMatch)
	if !ok {
		return nil
	}
	m := tm.Match
	if !hasDecl {
		declared = m
	}
	switch m.Type.Kind {
	case core.KindFunction:
		if ty := r.getReturnTypeOfFunction(m, m); ty != nil {
			return r.pathToMatch(ty)
		}
	case core.KindMethod:
		gen := m.Type.Generics
		ty := r.getReturnTypeOfFunction(m, m)
		if ty == nil {
			return nil
		}
		if rm, ok := ty.(core.TyMatch); ok && gen != nil {
			var types []core.Ty
			for _, p := range gen.Params {
				if p.Resolved != nil {
					types = append(types, p.Resolved)
				}
			}
			rm.Match.ResolveGenerics(types)
			ty = rm
		}
		return r.pathToMatchIncludingGenerics(ty, gen)
	case core.KindStruct, core.KindEnum, core.KindUnion:
		gen := m.Type.Generics
		if gen == nil || gen.Len() == 0 {
			return core.TyMatch{Match: m}
		}
		m.Type.Generics = gen.Clone()
		for i, f := range r.getTuplestructFields(declared) {
			if i >= len(e.Args) {
				break
			}
			ps, ok := core.Dereference(f.Ty).(core.TyPathSearch)
			if !ok {
				continue
			}
			idx, _, found := m.Type.Generics.SearchParamByPath(ps.Path)
			if !found {
				continue
			}
			if arg := r.exprType(e.Args[i], scope); arg != nil {
				m.Type.Generics.Params[idx].Resolved = core.Dereference(arg)
			}
		}
		return core.TyMatch{Match: m}
	case core.KindTypeParameter:
		if m.Type.Bounds == nil {
			return nil
		}
		if closure, ok := m.Type.Bounds.Closure(); ok {
			for _, seg := range closure.Path.Segments {
				if seg.Output != nil {
					return seg.Output
				}
			}
		}
	}
	return nil
}

// binaryType resolves `left op right` through the operator traits the left
// operand implements.
func (r *Resolver) binaryType(e fragment.BinaryExpr, scope core.Scope) core.Ty {
	if operatorTrait(e.Op) == "bool" {
		return core.TyMatch{Match: boolMatch()}
	}
	left, ok := r.asMatch(r.exprType(e.Left, scope))
	if !ok {
		return nil
	}
	var other string
	if right, ok := r.asMatch(r.exprType(e.Right, scope)); ok {
		other = right.Name
	}
	return r.resolveBinaryExprType(left, e.Op, other)
}

func (r *Resolver) asMatch(ty core.Ty) (core.Match, bool) {
	switch t := core.Dereference(ty).(type) {
	case core.TyMatch:
		return t.Match, true
	case core.TyPathSearch:
		return r.findTypeMatch(t.Path, t.File, t.Point)
	}
	return core.Match{}, false
}
