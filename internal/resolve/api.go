package resolve

import (
	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/span"
)

// The methods below expose individual resolution steps to embedders that
// need one fact rather than a full completion or definition query.

// GetLetType infers the type of the binding at pos within the let statement
// stmt, which starts at scope.Point.
func (r *Resolver) GetLetType(stmt string, pos span.BytePos, scope core.Scope) core.Ty {
	return r.getLetType(stmt, pos, scope)
}

// GetMatchArmType infers the type of the binding at pos within the arm
// patterns of the match statement stmt.
func (r *Resolver) GetMatchArmType(stmt string, pos span.BytePos, scope core.Scope) core.Ty {
	return r.getMatchArmType(stmt, pos, scope)
}

// GetTypeOfMatch infers the type of the value or item m declares.
func (r *Resolver) GetTypeOfMatch(m core.Match) core.Ty {
	return r.getTypeOfMatch(m, r.s.LoadSourceFile(m.File).Src())
}

// GetTypeOfSelf returns what Self denotes at pos in file.
func (r *Resolver) GetTypeOfSelf(file string, pos span.BytePos) core.Ty {
	return r.getTypeOfSelf(pos, file, true, r.s.LoadSourceFile(file).Src())
}

// GetReturnTypeOfFunction returns the declared return type of fn, with
// generics resolved against cxt, the value fn is called on.
func (r *Resolver) GetReturnTypeOfFunction(fn, cxt core.Match) core.Ty {
	return r.getReturnTypeOfFunction(fn, cxt)
}

// GetStructFieldType returns the declared type of field in the struct m.
func (r *Resolver) GetStructFieldType(field string, m core.Match) core.Ty {
	return r.getStructFieldType(field, m)
}

// GetTuplestructFieldTypes returns the positional field types of a tuple
// struct or tuple variant.
func (r *Resolver) GetTuplestructFieldTypes(m core.Match) []core.Ty {
	fields := r.getTuplestructFields(m)
	out := make([]core.Ty, len(fields))
	for i, f := range fields {
		out[i] = f.Ty
	}
	return out
}

// GetTypeOfTypedef follows the type alias m to the type it names.
func (r *Resolver) GetTypeOfTypedef(m core.Match) (core.Match, bool) {
	return r.getTypeOfTypedef(m)
}

// ResolveBinaryExprType infers `base op other` from the operator trait
// impls of base. Comparisons give bool; without a matching impl the result
// is base itself. other names the right hand side type and may be empty.
func (r *Resolver) ResolveBinaryExprType(base core.Match, op, other string) core.Ty {
	return r.resolveBinaryExprType(base, op, other)
}

// GetIterItem returns the Item type of self's IntoIterator or Iterator impl.
func (r *Resolver) GetIterItem(self core.Match) (core.Ty, bool) {
	return r.getIterItem(self)
}

// GetIndexOutput returns the element type indexing self produces.
func (r *Resolver) GetIndexOutput(self core.Match) (core.Ty, bool) {
	return r.getIndexOutput(self)
}

// SearchForImpls returns the impl headers for the type search declared at
// pos in file.
func (r *Resolver) SearchForImpls(pos span.BytePos, search, file string, local bool) []*core.ImplHeader {
	return r.searchForImpls(pos, search, file, local)
}

// SearchTraitImpls returns the impls of any of traits for the type named
// self in the scope of file containing pos. With once set it stops at the
// first.
func (r *Resolver) SearchTraitImpls(pos span.BytePos, self string, traits []string, once bool, file string, local bool) []*core.ImplHeader {
	return r.searchTraitImpls(pos, self, traits, once, file, local)
}

// SearchForGenericImpls returns blanket impls over type parameters bounded
// by the trait named search.
func (r *Resolver) SearchForGenericImpls(pos span.BytePos, search, file string) []*core.ImplHeader {
	return r.searchForGenericImpls(pos, search, file)
}

// SearchForImplMethods lists the methods callable on a value of type m.
func (r *Resolver) SearchForImplMethods(m core.Match, search string, st core.SearchType) []core.Match {
	return r.searchForImplMethods(m, search, m.Point, m.File, m.Local, st)
}

// CollectInheritedTraits returns trait and its supertraits, depth first.
func (r *Resolver) CollectInheritedTraits(trait core.Match) []core.Match {
	return r.collectInheritedTraits(trait)
}

// SearchLocalScopes searches the scopes enclosing pos in file, innermost
// first.
func (r *Resolver) SearchLocalScopes(seg core.PathSegment, file string, pos span.BytePos, st core.SearchType, ns core.Namespace) []core.Match {
	return r.searchLocalScopes(seg, file, r.s.LoadSourceFile(file).Src(), pos, st, ns, importInfo{})
}

// SearchCrateRoot searches the root module of the crate file belongs to.
func (r *Resolver) SearchCrateRoot(seg core.PathSegment, file string, st core.SearchType, ns core.Namespace) []core.Match {
	return r.searchCrateRoot(seg, file, st, ns, importInfo{}, false)
}

// SearchPreludeFile searches the std prelude. It finds nothing when no std
// source tree is configured.
func (r *Resolver) SearchPreludeFile(seg core.PathSegment, st core.SearchType, ns core.Namespace) []core.Match {
	return r.searchPreludeFile(seg, st, ns, importInfo{})
}

// DoFileSearch lists the modules named by files or directories in dir and
// in the std source tree whose names start with search.
func (r *Resolver) DoFileSearch(search, dir string) []core.Match {
	return r.doFileSearch(search, dir)
}
