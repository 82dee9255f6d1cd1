package resolve

import (
	"log/slog"
	"strconv"

	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/fragment"
	"github.com/rust-lang/rls-sub001/internal/source"
	"github.com/rust-lang/rls-sub001/internal/span"
)

// maxTupleFields is how many positional fields a tuple offers.
const maxTupleFields = 16

// SearchForFieldsAndMethods lists the fields and methods of the type m
// names that match search.
func (r *Resolver) SearchForFieldsAndMethods(m core.Match, search string, st core.SearchType, onlyMethods bool) []core.Match {
	var out []core.Match
	switch m.Type.Kind {
	case core.KindStruct, core.KindUnion:
		slog.Debug("looking for fields and impl methods", "type", m.Name)
		if !onlyMethods {
			out = append(out, r.searchStructFields(search, m, st)...)
		}
		out = append(out, r.searchForImplMethods(m, search, m.Point, m.File, m.Local, st)...)
	case core.KindBuiltin:
		srcPath := r.s.RustSrcPath()
		if srcPath == "" {
			return nil
		}
		for _, f := range m.Type.Prim.ImplFiles() {
			out = append(out, r.searchForImplMethods(m, search, 0, joinSrc(srcPath, f), false, st)...)
		}
	case core.KindEnum:
		slog.Debug("looking for enum impl methods", "type", m.Name)
		out = append(out, r.searchForImplMethods(m, search, m.Point, m.File, m.Local, st)...)
	case core.KindTrait:
		out = append(out, r.searchForTraitMethods(m, search, st)...)
	case core.KindTypeParameter:
		if m.Type.Bounds == nil {
			return nil
		}
		for _, t := range r.getTraits(*m.Type.Bounds) {
			out = append(out, r.searchForTraitMethods(t, search, st)...)
		}
	default:
		slog.Debug("context has no fields or methods", "match", m)
	}
	return out
}

// getFieldMatchesFromTy lists the fields and methods of a value of type ty.
func (r *Resolver) getFieldMatchesFromTy(ty core.Ty, search string, st core.SearchType) []core.Match {
	switch t := ty.(type) {
	case core.TyMatch:
		return r.SearchForFieldsAndMethods(t.Match, search, st, false)
	case core.TyPathSearch:
		if m, ok := r.findTypeMatch(t.Path, t.File, t.Point); ok {
			return r.SearchForFieldsAndMethods(m, search, st, false)
		}
	case core.TySelf:
		msrc := r.s.LoadSourceFile(t.Scope.File).Src()
		if self, ok := r.getTypeOfSelf(t.Scope.Point, t.Scope.File, true, msrc).(core.TyMatch); ok {
			return r.SearchForFieldsAndMethods(self.Match, search, st, false)
		}
	case core.TyTuple:
		return r.getTupleFieldMatches(len(t.Elems), search, st)
	case core.TyRef:
		return r.getFieldMatchesFromTy(t.Elem, search, st)
	case core.TyArray, core.TySlice:
		m, ok := core.PrimSlice.ModuleMatch()
		if !ok {
			return nil
		}
		m.Name = "[T]"
		return r.SearchForFieldsAndMethods(m, search, st, false)
	case core.TyTraitObject:
		var out []core.Match
		for _, ps := range t.Bounds {
			out = append(out, r.getFieldMatchesFromTy(core.TyPathSearch{PathSearch: ps}, search, st)...)
		}
		return out
	case core.TyFuture:
		var out []core.Match
		if f, ok := r.getFuture(t.Scope); ok {
			out = append(out, r.searchForTraitMethods(f, search, st)...)
		}
		if core.TxtMatches(st, search, "await") {
			if m, ok := r.primDocMatch(core.PrimAwait); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// getFuture resolves std::future::Future from scope.
func (r *Resolver) getFuture(scope core.Scope) (core.Match, bool) {
	return r.findTypeMatch(core.NewPath(false, "std", "future", "Future"), scope.File, scope.Point)
}

// getTupleFieldMatches offers the positional fields of an n-tuple.
func (r *Resolver) getTupleFieldMatches(n int, search string, st core.SearchType) []core.Match {
	var out []core.Match
	for i := range min(n, maxTupleFields) {
		field := strconv.Itoa(i)
		if !core.TxtMatches(st, search, field) {
			continue
		}
		m, ok := r.primDocMatch(core.PrimTuple)
		if !ok {
			continue
		}
		m.Name = field
		m.Type = core.Simple(core.KindStructField)
		out = append(out, m)
	}
	return out
}

// searchStructFields lists the fields of the struct, union or enum variant
// m names.
func (r *Resolver) searchStructFields(search string, m core.Match, st core.SearchType) []core.Match {
	switch m.Type.Kind {
	case core.KindStruct, core.KindEnumVariant, core.KindUnion:
	default:
		return nil
	}
	src := r.s.LoadSourceFile(m.File)
	start := source.ExpectStmtStart(src.Src(), m.Point)
	end, ok := source.EndOfNextScope(src.Code[start:])
	if !ok {
		return nil
	}
	rng := span.NewRange(start, start+end+1)
	text := rng.Slice(src.Code)
	if m.Type.Kind == core.KindEnumVariant {
		text = "struct " + text
	}
	raw := rng.Slice(r.rawCode(m.File))
	var out []core.Match
	for _, f := range fragment.ParseStructFields(text, core.ScopeOf(&m)) {
		if !core.SymbolMatches(st, search, f.Name) {
			continue
		}
		fr := f.Range
		if m.Type.Kind == core.KindEnumVariant {
			fr = fr.Shift(-span.BytePos(len("struct ")))
		}
		out = append(out, core.Match{
			Name:    f.Name,
			File:    m.File,
			Point:   fr.Start + start,
			Local:   m.Local,
			Type:    core.Simple(core.KindStructField),
			Context: fr.Shift(start).Slice(src.Code),
			Docs:    findDoc(raw, fr.Start),
		})
	}
	return out
}

// getStructFields resolves path to a struct-like item and lists its fields
// matching search.
func (r *Resolver) getStructFields(path core.Path, search, file string, pos span.BytePos, st core.SearchType) []core.Match {
	m, ok := firstMatch(r.resolvePath(path, file, pos, core.ExactMatch, core.NsHasField, importInfo{}))
	if !ok {
		return nil
	}
	switch m.Type.Kind {
	case core.KindStruct, core.KindEnumVariant:
		return r.searchStructFields(search, m, st)
	case core.KindType:
		if td, ok := r.getTypeOfTypedef(m); ok {
			return r.searchStructFields(search, td, st)
		}
	case core.KindUseAlias:
		if m.Type.Target != nil {
			return r.searchStructFields(search, *m.Type.Target, st)
		}
	}
	return nil
}

// operatorTrait names the trait overloading a binary operator. Operators
// without one produce bool.
func operatorTrait(op string) string {
	switch op {
	case "+":
		return "Add"
	case "-":
		return "Sub"
	case "*":
		return "Mul"
	case "/":
		return "Div"
	case "%":
		return "Rem"
	case "^":
		return "BitXor"
	case "&":
		return "BitAnd"
	case "|":
		return "BitOr"
	case "<<":
		return "Shl"
	case ">>":
		return "Shr"
	}
	return "bool"
}

// hasImplForOtherType reports whether h is `impl Trait<Other> for ...`.
// other is empty when the right hand side type is unknown.
func hasImplForOtherType(h *core.ImplHeader, trait, other string) bool {
	if h.TraitPath == nil || h.TraitPath.Name() != trait || h.TraitPath.Len() == 0 {
		return false
	}
	generics := h.TraitPath.Segments[0].Generics
	if other == "" && len(generics) == 0 {
		return true
	}
	if len(generics) > 0 {
		ps, ok := core.Dereference(generics[0]).(core.TyPathSearch)
		return ok && ps.Path.Name() == other
	}
	// Rhs defaults to Self.
	return h.SelfPath.Name() == other
}

// resolveBinaryExprType infers the type of `base op other` from the
// operator trait impls of base. It falls back to base.
func (r *Resolver) resolveBinaryExprType(base core.Match, op, other string) core.Ty {
	trait := operatorTrait(op)
	if trait == "bool" {
		return core.TyMatch{Match: boolMatch()}
	}
	for _, h := range r.searchTraitImpls(base.Point, base.Name, []string{trait}, false, base.File, base.Local) {
		if !hasImplForOtherType(h, trait, other) {
			continue
		}
		if ty, ok := r.getAssociatedTypeMatch(h, "Output", base); ok {
			return ty
		}
		break
	}
	return core.TyMatch{Match: base}
}

// getIterItem returns the Item type of self's IntoIterator or Iterator
// impl.
func (r *Resolver) getIterItem(self core.Match) (core.Ty, bool) {
	hs := r.searchTraitImpls(self.Point, self.Name, []string{"IntoIterator", "Iterator"}, true, self.File, self.Local)
	if len(hs) == 0 {
		return nil, false
	}
	return r.getAssociatedTypeMatch(hs[0], "Item", self)
}

// getIndexOutput returns the Output type of self's Index impl.
func (r *Resolver) getIndexOutput(self core.Match) (core.Ty, bool) {
	if self.Name == "Vec" {
		if gs := self.ResolvedGenerics(); len(gs) > 0 && gs[0] != nil {
			return gs[0], true
		}
		return nil, false
	}
	hs := r.searchTraitImpls(self.Point, self.Name, []string{"Index"}, true, self.File, self.Local)
	if len(hs) == 0 {
		return nil, false
	}
	return r.getAssociatedTypeMatch(hs[0], "Output", self)
}

// getAssociatedTypeMatch returns the type h assigns to the associated type
// name, resolved against cxt.
func (r *Resolver) getAssociatedTypeMatch(h *core.ImplHeader, name string, cxt core.Match) (core.Ty, bool) {
	ty, ok := firstAssocType(r.searchScopeForImpledAssocTypes(h, name, core.ExactMatch))
	if !ok {
		return nil, false
	}
	if ps, isPath := ty.(core.TyPathSearch); isPath {
		return r.getAssocTypeFromHeader(ps.Path, cxt, h)
	}
	return ty, true
}
