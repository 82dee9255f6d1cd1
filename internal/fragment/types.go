package fragment

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/span"
)

// ty converts a type node. Types whose path must be resolved later become
// PathSearch values anchored at the fragment's scope. A nil result means the
// type form is not modelled (`!`, bare fn pointers, `_`, qualified paths).
func (f *fragment) ty(n *sitter.Node) core.Ty {
	return f.tyIn(n, f.scope)
}

func (f *fragment) tyIn(n *sitter.Node, scope core.Scope) core.Ty {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "type_identifier", "primitive_type", "scoped_type_identifier", "generic_type", "identifier", "scoped_identifier":
		p, ok := f.pathIn(n, scope)
		if !ok {
			return nil
		}
		return core.TyPathSearch{PathSearch: core.NewPathSearch(p, scope)}
	case "reference_type":
		elem := f.tyIn(n.ChildByFieldName("type"), scope)
		if elem == nil {
			return nil
		}
		return core.TyRef{Elem: elem, Mut: childOfType(n, "mutable_specifier") != nil}
	case "pointer_type":
		elem := f.tyIn(n.ChildByFieldName("type"), scope)
		if elem == nil {
			return nil
		}
		return core.TyPtr{Elem: elem, Mut: childOfType(n, "mutable_specifier") != nil}
	case "array_type":
		elem := f.tyIn(n.ChildByFieldName("element"), scope)
		if elem == nil {
			return nil
		}
		if length := n.ChildByFieldName("length"); length != nil {
			return core.TyArray{Elem: elem, Len: f.text(length)}
		}
		return core.TySlice{Elem: elem}
	case "tuple_type":
		var elems []core.Ty
		for _, c := range namedChildren(n) {
			elems = append(elems, f.tyIn(c, scope))
		}
		return core.TyTuple{Elems: elems}
	case "unit_type":
		return core.TyTuple{}
	case "dynamic_type", "abstract_type":
		return core.TyTraitObject{Bounds: f.bounds(n.ChildByFieldName("trait"), scope.File, scope.Point)}
	case "bounded_type":
		return core.TyTraitObject{Bounds: f.bounds(n, scope.File, scope.Point)}
	case "parenthesized_type":
		if c := namedChildren(n); len(c) == 1 {
			return f.tyIn(c[0], scope)
		}
	}
	return nil
}

// path converts a path-like node into a Path anchored at the fragment's
// scope. Keyword segments (`self`, `super`, `crate`) stay segments and a
// leading `::` becomes a `{{root}}` segment; WithPrefix folds them.
func (f *fragment) path(n *sitter.Node) (core.Path, bool) {
	return f.pathIn(n, f.scope)
}

func (f *fragment) pathIn(n *sitter.Node, scope core.Scope) (core.Path, bool) {
	segs, ok := f.segments(n, scope)
	if !ok || len(segs) == 0 {
		return core.Path{}, false
	}
	return core.Path{Segments: segs}, true
}

func (f *fragment) segments(n *sitter.Node, scope core.Scope) ([]core.PathSegment, bool) {
	if n == nil {
		return nil, false
	}
	switch n.Type() {
	case "identifier", "type_identifier", "primitive_type", "field_identifier",
		"self", "super", "crate", "metavariable", "shorthand_field_identifier":
		return []core.PathSegment{{Name: f.text(n)}}, true
	case "scoped_identifier", "scoped_type_identifier":
		var segs []core.PathSegment
		if p := n.ChildByFieldName("path"); p != nil {
			prefix, ok := f.segments(p, scope)
			if !ok {
				return nil, false
			}
			segs = prefix
		} else if strings.HasPrefix(f.text(n), "::") {
			segs = []core.PathSegment{{Name: core.PrefixGlobal.String()}}
		}
		name := n.ChildByFieldName("name")
		if name == nil {
			return nil, false
		}
		return append(segs, core.PathSegment{Name: f.text(name)}), true
	case "generic_type", "generic_function", "generic_type_with_turbofish":
		base := n.ChildByFieldName("type")
		if base == nil {
			base = n.ChildByFieldName("function")
		}
		segs, ok := f.segments(base, scope)
		if !ok || len(segs) == 0 {
			return nil, false
		}
		segs[len(segs)-1].Generics = f.typeArgs(n.ChildByFieldName("type_arguments"), scope)
		return segs, true
	case "function_type":
		// `Fn(A) -> B` as a trait bound: inputs are dropped, the output is
		// kept on the trait's segment.
		trait := n.ChildByFieldName("trait")
		segs, ok := f.segments(trait, scope)
		if !ok || len(segs) == 0 {
			return nil, false
		}
		if ret := n.ChildByFieldName("return_type"); ret != nil {
			segs[len(segs)-1].Output = f.tyIn(ret, scope)
		}
		return segs, true
	}
	return nil, false
}

func (f *fragment) typeArgs(n *sitter.Node, scope core.Scope) []core.Ty {
	var out []core.Ty
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "lifetime", "type_binding", "block":
			continue
		}
		if t := f.tyIn(c, scope); t != nil {
			out = append(out, t)
		}
	}
	return out
}

// bounds converts trait bounds. Each trait path is anchored at its own
// position shifted by offset; lifetimes are dropped.
func (f *fragment) bounds(n *sitter.Node, file string, offset span.BytePos) core.TraitBounds {
	var out core.TraitBounds
	f.collectBounds(n, file, offset, &out)
	return out
}

func (f *fragment) collectBounds(n *sitter.Node, file string, offset span.BytePos, out *core.TraitBounds) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "trait_bounds", "bounded_type":
		for _, c := range namedChildren(n) {
			f.collectBounds(c, file, offset, out)
		}
	case "higher_ranked_trait_bound":
		f.collectBounds(n.ChildByFieldName("type"), file, offset, out)
	case "removed_trait_bound":
		for _, c := range namedChildren(n) {
			f.collectBounds(c, file, offset, out)
		}
	case "type_identifier", "scoped_type_identifier", "generic_type", "function_type":
		scope := core.Scope{File: file, Point: offset + f.pos(n)}
		p, ok := f.pathIn(n, scope)
		if !ok {
			return
		}
		*out = append(*out, core.NewPathSearch(p, scope))
	}
}

// generics builds the type parameters declared by a type_parameters node
// and refined by a where clause. Parameters bounded by a closure trait are
// placed last, after their output types have been tied to the other
// parameters.
func (f *fragment) generics(params, where *sitter.Node, file string, offset span.BytePos) core.GenericsArgs {
	var args, closures []core.TypeParameter
	for _, c := range namedChildren(params) {
		tp, ok := f.typeParam(c, file, offset)
		if !ok {
			continue
		}
		if tp.Bounds.HasClosure() {
			closures = append(closures, tp)
		} else {
			args = append(args, tp)
		}
	}

	for _, pred := range namedChildren(where) {
		if pred.Type() != "where_predicate" {
			continue
		}
		left := pred.ChildByFieldName("left")
		name, ok := f.boundedName(left)
		if !ok {
			continue
		}
		b := f.bounds(pred.ChildByFieldName("bounds"), file, offset)
		if i := indexOfParam(args, name); i >= 0 {
			args[i].Bounds = append(args[i].Bounds, b...)
			continue
		}
		if i := indexOfParam(closures, name); i >= 0 {
			closures[i].Bounds = append(closures[i].Bounds, b...)
		}
	}

	out := core.GenericsArgs{Params: args}
	for i := range closures {
		tieClosureOutput(&closures[i], &out)
	}
	out.Params = append(out.Params, closures...)
	return out
}

// boundedName returns the first path segment of a where-predicate's left
// hand side when it names a plain parameter.
func (f *fragment) boundedName(n *sitter.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case "type_identifier":
		return f.text(n), true
	case "scoped_type_identifier":
		segs, ok := f.segments(n, f.scope)
		if !ok || len(segs) == 0 {
			return "", false
		}
		return segs[0].Name, true
	}
	return "", false
}

func (f *fragment) typeParam(n *sitter.Node, file string, offset span.BytePos) (core.TypeParameter, bool) {
	switch n.Type() {
	case "type_identifier":
		return core.TypeParameter{Name: f.text(n), Point: offset + f.pos(n), File: file}, true
	case "constrained_type_parameter":
		left := n.ChildByFieldName("left")
		if left == nil || left.Type() != "type_identifier" {
			return core.TypeParameter{}, false
		}
		return core.TypeParameter{
			Name:   f.text(left),
			Point:  offset + f.pos(left),
			File:   file,
			Bounds: f.bounds(n.ChildByFieldName("bounds"), file, offset),
		}, true
	case "optional_type_parameter":
		return f.typeParam(n.ChildByFieldName("name"), file, offset)
	case "type_parameter":
		name := n.ChildByFieldName("name")
		if name == nil {
			return core.TypeParameter{}, false
		}
		return core.TypeParameter{
			Name:   f.text(name),
			Point:  offset + f.pos(name),
			File:   file,
			Bounds: f.bounds(n.ChildByFieldName("bounds"), file, offset),
		}, true
	}
	return core.TypeParameter{}, false
}

func indexOfParam(params []core.TypeParameter, name string) int {
	for i, p := range params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// tieClosureOutput rewrites the output of a closure bound so that a
// reference to another parameter, as in `<K, F: Fn() -> K>`, points at that
// parameter.
func tieClosureOutput(tp *core.TypeParameter, args *core.GenericsArgs) {
	_, i, ok := tp.Bounds.FindByNames("Fn", "FnMut", "FnOnce")
	if !ok {
		return
	}
	ps := tp.Bounds[i]
	segs := make([]core.PathSegment, len(ps.Path.Segments))
	copy(segs, ps.Path.Segments)
	for j, seg := range segs {
		out, ok := seg.Output.(core.TyPathSearch)
		if !ok {
			continue
		}
		if m, found := args.TBoundMatch(out.Path.Segments[0].Name); found {
			segs[j].Output = core.TyMatch{Match: m}
			continue
		}
		out.Path = out.Path.ReplaceByBounds(args)
		segs[j].Output = out
	}
	ps.Path = core.Path{Prefix: ps.Path.Prefix, Segments: segs}
	bounds := make(core.TraitBounds, len(tp.Bounds))
	copy(bounds, tp.Bounds)
	bounds[i] = ps
	tp.Bounds = bounds
}

// selfPath is the path an impl block is written for. References are looked
// through and a slice type is represented by the pseudo path `[T]`.
func (f *fragment) selfPath(n *sitter.Node, scope core.Scope) (core.Path, bool) {
	if n == nil {
		return core.Path{}, false
	}
	switch n.Type() {
	case "reference_type":
		return f.selfPath(n.ChildByFieldName("type"), scope)
	case "type_identifier", "primitive_type", "scoped_type_identifier", "generic_type":
		return f.pathIn(n, scope)
	case "array_type":
		if n.ChildByFieldName("length") == nil {
			return core.NamePath("[T]"), true
		}
	}
	return core.Path{}, false
}
