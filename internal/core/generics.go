package core

import (
	"slices"

	"github.com/rust-lang/rls-sub001/internal/span"
)

var closureTraits = []string{"Fn", "FnMut", "FnOnce"}

// TraitBounds is the set of trait paths bounding a type parameter or making
// up a trait object.
type TraitBounds []PathSearch

// FindByNames returns the first single-segment bound whose name is in names.
func (tb TraitBounds) FindByNames(names ...string) (PathSearch, int, bool) {
	for i, ps := range tb {
		if ps.Path.IsSingle() && slices.Contains(names, ps.Path.Segments[0].Name) {
			return ps, i, true
		}
	}
	return PathSearch{}, -1, false
}

// FindByName is FindByNames for a single name.
func (tb TraitBounds) FindByName(name string) (PathSearch, bool) {
	ps, _, ok := tb.FindByNames(name)
	return ps, ok
}

// HasClosure reports whether one of the bounds is Fn, FnMut or FnOnce.
func (tb TraitBounds) HasClosure() bool {
	_, _, ok := tb.FindByNames(closureTraits...)
	return ok
}

// Closure returns the Fn-family bound, if any.
func (tb TraitBounds) Closure() (PathSearch, bool) {
	ps, _, ok := tb.FindByNames(closureTraits...)
	return ps, ok
}

// TypeParameter is a generic parameter such as `T: Clone`. Resolved holds
// the concrete type bound to it by the surrounding context, if known.
type TypeParameter struct {
	Name     string
	Point    span.BytePos
	File     string
	Bounds   TraitBounds
	Resolved Ty
}

// IntoMatch converts the parameter into a TypeParameter match.
func (tp TypeParameter) IntoMatch() Match {
	bounds := slices.Clone(tp.Bounds)
	return Match{
		Name:  tp.Name,
		File:  tp.File,
		Point: tp.Point,
		Type:  MatchType{Kind: KindTypeParameter, Bounds: &bounds},
	}
}

// AddBound appends bounds whose names are not already present.
func (tp *TypeParameter) AddBound(bounds TraitBounds) {
	for _, b := range bounds {
		if name := b.Path.Name(); name != "" {
			if _, ok := tp.Bounds.FindByName(name); ok {
				continue
			}
		}
		tp.Bounds = append(tp.Bounds, b)
	}
}

// GenericsArgs is an ordered list of type parameters.
type GenericsArgs struct {
	Params []TypeParameter
}

// Clone returns a copy whose parameter slice can be modified independently.
func (g *GenericsArgs) Clone() *GenericsArgs {
	if g == nil {
		return nil
	}
	params := make([]TypeParameter, len(g.Params))
	for i, p := range g.Params {
		params[i] = p
		params[i].Bounds = slices.Clone(p.Bounds)
	}
	return &GenericsArgs{Params: params}
}

func (g *GenericsArgs) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Params)
}

// Idents returns the parameter names in order.
func (g *GenericsArgs) Idents() []string {
	if g == nil {
		return nil
	}
	out := make([]string, len(g.Params))
	for i, p := range g.Params {
		out[i] = p.Name
	}
	return out
}

// SearchParamByPath finds the parameter named by a single-segment path.
func (g *GenericsArgs) SearchParamByPath(p Path) (int, TypeParameter, bool) {
	if !p.IsSingle() {
		return -1, TypeParameter{}, false
	}
	return g.SearchParamByName(p.Segments[0].Name)
}

// SearchParamByName finds a parameter by name.
func (g *GenericsArgs) SearchParamByName(name string) (int, TypeParameter, bool) {
	if g == nil {
		return -1, TypeParameter{}, false
	}
	for i, p := range g.Params {
		if p.Name == name {
			return i, p, true
		}
	}
	return -1, TypeParameter{}, false
}

// TBoundMatch returns the named parameter as a TypeParameter match.
func (g *GenericsArgs) TBoundMatch(name string) (Match, bool) {
	_, p, ok := g.SearchParamByName(name)
	if !ok {
		return Match{}, false
	}
	return p.IntoMatch(), true
}

// AddBound extends the bounds of the parameter at pos.
func (g *GenericsArgs) AddBound(pos int, bounds TraitBounds) {
	if g == nil || pos < 0 || pos >= len(g.Params) {
		return
	}
	g.Params[pos].AddBound(bounds)
}

// ApplyTypes resolves parameters positionally; extra types are ignored.
func (g *GenericsArgs) ApplyTypes(types []Ty) {
	if g == nil {
		return
	}
	for i := range min(len(g.Params), len(types)) {
		g.Params[i].Resolved = types[i]
	}
}

// Extend appends the parameters of other.
func (g *GenericsArgs) Extend(other *GenericsArgs) {
	if other == nil {
		return
	}
	g.Params = append(g.Params, other.Params...)
}

// ImplHeader is the parsed header of one `impl` block.
type ImplHeader struct {
	SelfPath   Path
	TraitPath  *Path
	Generics   GenericsArgs
	File       string
	Local      bool
	ImplStart  span.BytePos
	BlockStart span.BytePos
}

// IsLocal reports whether the impl's items are visible from its own file.
func (h *ImplHeader) IsLocal() bool { return h.Local || h.TraitPath != nil }

// IsTrait reports whether the block implements a trait.
func (h *ImplHeader) IsTrait() bool { return h.TraitPath != nil }

// ScopeStart is the offset just inside the block's opening brace.
func (h *ImplHeader) ScopeStart() span.BytePos { return h.BlockStart.Increment() }
