package core

import (
	"strings"
)

// Ty is the closed set of type shapes the engine reasons about. The
// variants are immutable values; substitution helpers return new values.
type Ty interface {
	isTy()
	String() string
}

// TyMatch is a type resolved to its declaration.
type TyMatch struct{ Match Match }

// TyPathSearch is a type path not yet resolved.
type TyPathSearch struct{ PathSearch }

// TyTuple holds tuple element types; a nil element is unknown.
type TyTuple struct{ Elems []Ty }

// TyArray is `[Elem; Len]` with the length kept as source text.
type TyArray struct {
	Elem Ty
	Len  string
}

// TyRef is `&Elem` or `&mut Elem`.
type TyRef struct {
	Elem Ty
	Mut  bool
}

type TySlice struct{ Elem Ty }

// TyPtr is `*const Elem` or `*mut Elem`.
type TyPtr struct {
	Elem Ty
	Mut  bool
}

// TyTraitObject is `dyn A + B` or `impl A + B`.
type TyTraitObject struct{ Bounds TraitBounds }

// TySelf is `Self`, resolved later from the enclosing impl or trait.
type TySelf struct{ Scope Scope }

// TyFuture is the payload type of an `async fn`.
type TyFuture struct {
	Output Ty
	Scope  Scope
}

type TyNever struct{}

// TyDefault is the unit type of a function with no declared return.
type TyDefault struct{}

type TyUnsupported struct{}

func (TyMatch) isTy()       {}
func (TyPathSearch) isTy()  {}
func (TyTuple) isTy()       {}
func (TyArray) isTy()       {}
func (TyRef) isTy()         {}
func (TySlice) isTy()       {}
func (TyPtr) isTy()         {}
func (TyTraitObject) isTy() {}
func (TySelf) isTy()        {}
func (TyFuture) isTy()      {}
func (TyNever) isTy()       {}
func (TyDefault) isTy()     {}
func (TyUnsupported) isTy() {}

func (t TyMatch) String() string      { return t.Match.Name }
func (t TyPathSearch) String() string { return t.Path.String() }

func (t TyTuple) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, e := range t.Elems {
		if i > 0 {
			b.WriteString(", ")
		}
		if e == nil {
			b.WriteString("UNKNOWN")
		} else {
			b.WriteString(e.String())
		}
	}
	b.WriteByte(')')
	return b.String()
}

func (t TyArray) String() string { return "[" + t.Elem.String() + "; " + t.Len + "]" }
func (t TySlice) String() string { return "[" + t.Elem.String() + "]" }

func (t TyRef) String() string {
	if t.Mut {
		return "&mut " + t.Elem.String()
	}
	return "&" + t.Elem.String()
}

func (t TyPtr) String() string {
	if t.Mut {
		return "*mut " + t.Elem.String()
	}
	return "*const " + t.Elem.String()
}

func (t TyTraitObject) String() string {
	names := make([]string, len(t.Bounds))
	for i, ps := range t.Bounds {
		names[i] = ps.Path.String()
	}
	return "<" + strings.Join(names, ",") + ">"
}

func (TySelf) String() string        { return "Self" }
func (t TyFuture) String() string    { return "impl Future<Output=" + t.Output.String() + ">" }
func (TyNever) String() string       { return "!" }
func (TyDefault) String() string     { return "()" }
func (TyUnsupported) String() string { return "_" }

// Dereference strips every reference layer.
func Dereference(t Ty) Ty {
	for {
		r, ok := t.(TyRef)
		if !ok {
			return t
		}
		t = r.Elem
	}
}

func derefWithCount(t Ty) (Ty, int) {
	n := 0
	for {
		r, ok := t.(TyRef)
		if !ok {
			return t, n
		}
		t = r.Elem
		n++
	}
}

func wrapByRef(t Ty, n int) Ty {
	for range n {
		t = TyRef{Elem: t}
	}
	return t
}

// ReplaceByResolvedGenerics substitutes t when it names a type parameter of
// gen that already has a resolved type. Reference layers are preserved.
func ReplaceByResolvedGenerics(t Ty, gen *GenericsArgs) Ty {
	inner, n := derefWithCount(t)
	if ps, ok := inner.(TyPathSearch); ok && gen != nil {
		if _, param, found := gen.SearchParamByPath(ps.Path); found && param.Resolved != nil {
			return wrapByRef(param.Resolved, n)
		}
	}
	return wrapByRef(inner, n)
}

// ReplaceByGenerics is ReplaceByResolvedGenerics, except that an unresolved
// parameter becomes a TypeParameter match and generic arguments nested in
// other paths are substituted too.
func ReplaceByGenerics(t Ty, gen *GenericsArgs) Ty {
	inner, n := derefWithCount(t)
	if ps, ok := inner.(TyPathSearch); ok && gen != nil {
		if _, param, found := gen.SearchParamByPath(ps.Path); found {
			if param.Resolved != nil {
				return wrapByRef(param.Resolved, n)
			}
			return TyMatch{Match: param.IntoMatch()}
		}
		ps.Path = ps.Path.ReplaceByBounds(gen)
		inner = ps
	}
	return wrapByRef(inner, n)
}
