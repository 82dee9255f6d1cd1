package core

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rust-lang/rls-sub001/internal/span"
)

// =============================================================================
// Namespaces and text matching
// =============================================================================

func TestNamespace_Bits(t *testing.T) {
	t.Parallel()
	assert.True(t, NsType.Contains(NsStruct))
	assert.True(t, NsType.Contains(NsTrait))
	assert.False(t, NsType.Contains(NsFunc))
	assert.True(t, NsPath.Contains(NsFunc|NsMod|NsMacro))
	assert.False(t, NsPath.Intersects(NsPrimitive))
	assert.Equal(t, NsPrimitive|NsStdMacro, NsGlobal)
	assert.Equal(t, NsCrate|NsMod, NsSpace)
	assert.Equal(t, "Enum|Struct|Union", NsHasField.String()[:len("Enum|Struct|Union")])
}

func TestTxtMatches(t *testing.T) {
	t.Parallel()
	assert.True(t, TxtMatches(ExactMatch, "Vec", "Vec"))
	assert.True(t, TxtMatches(ExactMatch, "Vec", "use Vec"))
	assert.False(t, TxtMatches(ExactMatch, "Vec", "use Vecä"))
	assert.False(t, TxtMatches(ExactMatch, "Vec", "use MyVec"))

	assert.True(t, TxtMatches(StartsWith, "Vec", "Vector"))
	assert.True(t, TxtMatches(StartsWith, "Vec", "use Vector"))
	assert.True(t, TxtMatches(StartsWith, "Vec", "use Vec"))
	assert.False(t, TxtMatches(StartsWith, "Vec", "use äVector"))

	assert.True(t, TxtMatches(StartsWith, "do_st", "pub(crate) fn do_stuff"))
	assert.True(t, TxtMatches(StartsWith, "do_st", "pub(in codegen) fn do_stuff"))

	n, ok := TxtMatchesWithPos(ExactMatch, "foo", "foobar foo")
	require.True(t, ok)
	assert.Equal(t, 7, n)
}

func TestSymbolMatches(t *testing.T) {
	t.Parallel()
	assert.True(t, SymbolMatches(ExactMatch, "foo", "foo"))
	assert.False(t, SymbolMatches(ExactMatch, "fo", "foo"))
	assert.True(t, SymbolMatches(StartsWith, "fo", "foo"))
	assert.True(t, SymbolMatches(StartsWith, "", "foo"))
}

// =============================================================================
// Paths and types
// =============================================================================

func TestNewPath_Prefix(t *testing.T) {
	t.Parallel()
	p := NewPath(false, "super", "foo", "Bar")
	assert.Equal(t, PrefixSuper, p.Prefix)
	assert.Equal(t, "foo::Bar", p.String())
	assert.Equal(t, "Bar", p.Name())

	g := NewPath(true, "self", "x")
	assert.Equal(t, PrefixGlobal, g.Prefix)
	assert.Equal(t, 2, g.Len())

	q := Path{Segments: []PathSegment{{Name: "crate"}, {Name: "a"}}}.WithPrefix()
	assert.Equal(t, PrefixCrate, q.Prefix)
	assert.True(t, q.IsSingle())
}

func TestPath_ParentAndExtendDoNotAlias(t *testing.T) {
	t.Parallel()
	p := NewPath(false, "a", "b", "c")
	parent := p.Parent()
	ext := parent.Extend(NamePath("z"))
	assert.Equal(t, "a::b::z", ext.String())
	assert.Equal(t, "a::b::c", p.String())
}

func intTy() Ty {
	m, _ := PrimI32.ModuleMatch()
	return TyMatch{Match: m}
}

func TestTy_String(t *testing.T) {
	t.Parallel()
	vec := TyPathSearch{PathSearch: PathSearch{Path: SinglePath(PathSegment{Name: "Vec", Generics: []Ty{intTy()}})}}
	tests := []struct {
		ty   Ty
		want string
	}{
		{vec, "Vec<i32>"},
		{TyTuple{Elems: []Ty{intTy(), nil}}, "(i32, UNKNOWN)"},
		{TyArray{Elem: intTy(), Len: "4"}, "[i32; 4]"},
		{TySlice{Elem: intTy()}, "[i32]"},
		{TyRef{Elem: intTy()}, "&i32"},
		{TyRef{Elem: intTy(), Mut: true}, "&mut i32"},
		{TyPtr{Elem: intTy()}, "*const i32"},
		{TyPtr{Elem: intTy(), Mut: true}, "*mut i32"},
		{TyTraitObject{Bounds: TraitBounds{{Path: NamePath("A")}, {Path: NamePath("B")}}}, "<A,B>"},
		{TySelf{}, "Self"},
		{TyFuture{Output: intTy()}, "impl Future<Output=i32>"},
		{TyNever{}, "!"},
		{TyDefault{}, "()"},
		{TyUnsupported{}, "_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.ty.String())
	}
}

func genericsT(resolved Ty) *GenericsArgs {
	return &GenericsArgs{Params: []TypeParameter{{Name: "T", File: "lib.rs", Point: 10, Resolved: resolved}}}
}

func pathTy(name string) Ty {
	return TyPathSearch{PathSearch: PathSearch{Path: NamePath(name), File: "lib.rs"}}
}

func TestReplaceByGenerics(t *testing.T) {
	t.Parallel()

	got := ReplaceByResolvedGenerics(TyRef{Elem: pathTy("T")}, genericsT(intTy()))
	assert.Equal(t, "&i32", got.String())

	got = ReplaceByResolvedGenerics(pathTy("T"), genericsT(nil))
	assert.Equal(t, pathTy("T"), got)

	got = ReplaceByGenerics(pathTy("T"), genericsT(nil))
	m, ok := got.(TyMatch)
	require.True(t, ok)
	assert.Equal(t, KindTypeParameter, m.Match.Type.Kind)
	assert.Equal(t, "T", m.Match.Name)

	vecT := TyPathSearch{PathSearch: PathSearch{Path: SinglePath(PathSegment{Name: "Vec", Generics: []Ty{pathTy("T")}})}}
	got = ReplaceByGenerics(vecT, genericsT(intTy()))
	assert.Equal(t, "Vec<i32>", got.String())
	assert.Equal(t, "Vec<T>", vecT.String())
}

func TestDereference(t *testing.T) {
	t.Parallel()
	assert.Equal(t, intTy(), Dereference(TyRef{Elem: TyRef{Elem: intTy(), Mut: true}}))
	assert.Equal(t, intTy(), Dereference(intTy()))
}

// =============================================================================
// Generics and matches
// =============================================================================

func TestTypeParameter_AddBoundSkipsExisting(t *testing.T) {
	t.Parallel()
	tp := TypeParameter{Name: "T", Bounds: TraitBounds{{Path: NamePath("Clone")}}}
	tp.AddBound(TraitBounds{{Path: NamePath("Clone")}, {Path: NamePath("Debug")}})
	require.Len(t, tp.Bounds, 2)
	assert.Equal(t, "Debug", tp.Bounds[1].Path.Name())
}

func TestTraitBounds_Closure(t *testing.T) {
	t.Parallel()
	tb := TraitBounds{{Path: NamePath("Clone")}, {Path: NamePath("FnMut")}}
	assert.True(t, tb.HasClosure())
	ps, ok := tb.Closure()
	require.True(t, ok)
	assert.Equal(t, "FnMut", ps.Path.Name())

	qualified := TraitBounds{{Path: NewPath(false, "ops", "Fn")}}
	assert.False(t, qualified.HasClosure())
}

func TestMatch_ResolveGenericsDoesNotAlias(t *testing.T) {
	t.Parallel()
	orig := Match{Name: "Foo", Type: StructType(GenericsArgs{Params: []TypeParameter{{Name: "T"}, {Name: "U"}}})}
	clone := orig.Clone()
	clone.ResolveGenerics([]Ty{intTy()})

	assert.Len(t, clone.ResolvedGenerics(), 1)
	assert.Empty(t, orig.ResolvedGenerics())
	assert.Nil(t, orig.Type.Generics.Params[0].Resolved)
}

func TestMatch_GenericsByKind(t *testing.T) {
	t.Parallel()
	g := GenericsArgs{Params: []TypeParameter{{Name: "T"}}}
	method := Match{Type: MethodType(&g)}
	assert.Equal(t, []string{"T"}, method.Generics().Idents())

	method.ResolveGenerics([]Ty{intTy()})
	assert.Empty(t, method.ResolvedGenerics())

	fn := Match{Type: Simple(KindFunction)}
	assert.Nil(t, fn.Generics())
	assert.True(t, fn.Type.IsFunction())
}

func TestMatch_IsSameAs(t *testing.T) {
	t.Parallel()
	a := Match{Name: "x", File: "a.rs", Point: 3, Local: true}
	b := Match{Name: "x", File: "a.rs", Point: 3, Context: "let x"}
	c := Match{Name: "x", File: "a.rs", Point: 4}
	assert.True(t, a.IsSameAs(&b))
	assert.False(t, a.IsSameAs(&c))
}

func TestMatchKind_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "IfLet", KindIfLet.String())
	assert.Equal(t, "TypeParameter", KindTypeParameter.String())
	assert.Equal(t, "Builtin(str)", BuiltinType(PrimStr).String())
}

func TestPat_SearchByName(t *testing.T) {
	t.Parallel()
	pat := Pat{Kind: PatTupleStruct, Path: NamePath("Some"), Elems: []Pat{
		{Kind: PatTuple, Elems: []Pat{
			{Kind: PatWild},
			{Kind: PatRef, Elems: []Pat{{Kind: PatIdent, Name: "value"}}},
		}},
	}}
	name, ok := pat.SearchByName("val", StartsWith)
	require.True(t, ok)
	assert.Equal(t, "value", name)

	_, ok = pat.SearchByName("val", ExactMatch)
	assert.False(t, ok)

	st := Pat{Kind: PatStruct, Fields: []FieldPat{{Name: "a", Pat: Pat{Kind: PatIdent, Name: "b"}}}}
	name, ok = st.SearchByName("b", ExactMatch)
	require.True(t, ok)
	assert.Equal(t, "b", name)
}

func TestPrimKind(t *testing.T) {
	t.Parallel()
	assert.Len(t, PrimMatches, 17)
	assert.Equal(t, "never", PrimNever.String())

	m, ok := PrimStr.ModuleMatch()
	require.True(t, ok)
	assert.Equal(t, "str", m.Name)
	assert.Equal(t, KindBuiltin, m.Type.Kind)
	assert.Equal(t, span.BytePos(0), m.Point)

	_, ok = PrimBool.ModuleMatch()
	assert.False(t, ok)

	assert.Equal(t, PrimU32, PrimFromIntSuffix(""))
	assert.Equal(t, PrimI64, PrimFromIntSuffix("i64"))
	assert.True(t, PrimAwait.IsKeyword())
}

// =============================================================================
// File cache and session
// =============================================================================

func TestFileCache_OverwritingCachedFiles(t *testing.T) {
	t.Parallel()
	cache := NewFileCache(nil, 4, nil)
	for _, src := range []string{"src1", "src2", "src3", "src4"} {
		s := NewSession(cache)
		s.CacheFileContents("not_on_disk", src)
		assert.Equal(t, src, s.LoadRawFile("not_on_disk").Code)
		assert.Equal(t, src, s.LoadSourceFile("not_on_disk").Code)
		assert.True(t, s.ContainsFile("not_on_disk"))
	}
	assert.True(t, cache.RemoveFile("not_on_disk"))
	assert.False(t, cache.Contains("not_on_disk"))
}

func TestFileCache_DiskLoadStripsBOM(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.rs")
	require.NoError(t, os.WriteFile(path, []byte("\xEF\xBB\xBFfn main() {} // hi"), 0o644))

	cache := NewFileCache(nil, 0, nil)
	assert.False(t, cache.Contains(path))
	assert.Equal(t, "fn main() {} // hi", cache.Raw(path).Code)
	assert.False(t, cache.Contains(path))
	assert.Equal(t, "fn main() {}      ", cache.Masked(path).Code)
	assert.True(t, cache.Contains(path))
}

func TestFileCache_MissingFileIsEmpty(t *testing.T) {
	t.Parallel()
	cache := NewFileCache(nil, 0, nil)
	assert.Empty(t, cache.Raw(filepath.Join(t.TempDir(), "missing.rs")).Code)
}

// countingLoader records the paths handed to LoadFile.
type countingLoader struct {
	FSLoader
	loads []string
}

func (l *countingLoader) LoadFile(path string) (string, error) {
	l.loads = append(l.loads, path)
	return l.FSLoader.LoadFile(path)
}

func TestFileCache_EmptyPathNeverLoaded(t *testing.T) {
	t.Parallel()
	loader := &countingLoader{FSLoader: FSLoader{FS: fstest.MapFS{}}}
	cache := NewFileCache(loader, 0, nil)

	assert.Empty(t, cache.Raw("").Code)
	assert.Empty(t, cache.Masked("").Code)
	assert.Empty(t, loader.loads)

	s := NewSession(cache)
	assert.False(t, s.FileExists(""))
}

func TestSession_FilesystemThroughLoader(t *testing.T) {
	t.Parallel()
	loader := FSLoader{FS: fstest.MapFS{
		"virt/lib.rs":       {Data: []byte("\xEF\xBB\xBFmod sub;")},
		"virt/sub.rs":       {Data: []byte("pub fn foo() {}")},
		"virt/sub/inner.rs": {Data: []byte("")},
	}}
	s := NewSession(NewFileCache(loader, 0, nil))

	assert.True(t, s.FileExists("/virt/lib.rs"))
	assert.False(t, s.FileExists("/virt/sub"))
	assert.False(t, s.FileExists("/virt/none.rs"))
	assert.True(t, s.DirExists("/virt/sub"))
	assert.False(t, s.DirExists("/virt/lib.rs"))
	assert.Equal(t, "mod sub;", s.LoadRawFile("/virt/lib.rs").Code)

	var names []string
	for _, e := range s.ReadDir("/virt") {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"lib.rs", "sub", "sub.rs"}, names)
	assert.Empty(t, s.ReadDir("/virt/missing"))

	// Cached contents exist even when the loader has no such file.
	s.CacheFileContents("/virt/unsaved.rs", "fn f() {}")
	assert.True(t, s.FileExists("/virt/unsaved.rs"))
}

func TestDiskLoader_StatAndReadDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.rs"), nil, 0o644))

	info, err := DiskLoader{}.Stat(filepath.Join(dir, "a.rs"))
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	entries, err := DiskLoader{}.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.rs", entries[0].Name())

	_, err = DiskLoader{}.Stat(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestSession_GenericImplsComputedOnce(t *testing.T) {
	t.Parallel()
	s := NewSession(nil)
	calls := 0
	compute := func() []*ImplHeader {
		calls++
		return []*ImplHeader{{SelfPath: NamePath("T"), File: "lib.rs"}}
	}
	first := s.GenericImpls("lib.rs", 0, compute)
	second := s.GenericImpls("lib.rs", 0, compute)
	assert.Equal(t, 1, calls)
	assert.Same(t, first[0], second[0])

	s.GenericImpls("lib.rs", 5, compute)
	assert.Equal(t, 2, calls)
}

func TestSession_CoordsRoundTrip(t *testing.T) {
	t.Parallel()
	s := NewSession(nil)
	s.CacheFileContents("a.rs", "\nfn myfn(b:usize) {\n   let a = 3;\n   if b == 12 {\n")
	p, ok := s.ToPoint("a.rs", span.Coordinate{Row: 4, Col: 5})
	require.True(t, ok)
	c, ok := s.ToCoords("a.rs", p)
	require.True(t, ok)
	assert.Equal(t, span.Coordinate{Row: 4, Col: 5}, c)

	m := Match{File: "a.rs", Point: p}
	s.FillCoords(&m)
	require.NotNil(t, m.Coords)
	assert.Equal(t, 4, m.Coords.Row)
	assert.Empty(t, s.RustSrcPath())
}
