package fragment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/span"
)

var testScope = core.Scope{File: "lib.rs", Point: 100}

func slices(t *testing.T, src string, ranges []span.ByteRange) []string {
	t.Helper()
	out := make([]string, len(ranges))
	for i, r := range ranges {
		out[i] = r.Slice(src)
	}
	return out
}

// =============================================================================
// Use declarations
// =============================================================================

func TestParseUse_NestedTree(t *testing.T) {
	t.Parallel()
	got := ParseUse("use std::collections::{HashMap, hash_map::Entry as E, self};")
	require.Len(t, got.Paths, 3)
	assert.False(t, got.ContainsGlob)

	assert.Equal(t, core.AliasIdent, got.Paths[0].Kind)
	assert.Equal(t, "HashMap", got.Paths[0].Ident)
	assert.Equal(t, "std::collections::HashMap", got.Paths[0].Path.String())

	assert.Equal(t, "E", got.Paths[1].Ident)
	assert.Equal(t, "std::collections::hash_map::Entry", got.Paths[1].Path.String())
	require.NotNil(t, got.Paths[1].RenamePos)

	assert.Equal(t, core.AliasSelf, got.Paths[2].Kind)
	assert.Equal(t, "std::collections", got.Paths[2].Path.String())
}

func TestParseUse_Glob(t *testing.T) {
	t.Parallel()
	got := ParseUse("use foo::bar::*;")
	require.Len(t, got.Paths, 1)
	assert.True(t, got.ContainsGlob)
	assert.Equal(t, core.AliasGlob, got.Paths[0].Kind)
	assert.Equal(t, "foo::bar", got.Paths[0].Path.String())
}

func TestParseUse_NotAUse(t *testing.T) {
	t.Parallel()
	assert.Empty(t, ParseUse("let a = 1;").Paths)
}

// =============================================================================
// Items
// =============================================================================

func TestParseStructFields_Named(t *testing.T) {
	t.Parallel()
	src := "struct Foo<T> { a: u32, pub b: Vec<T> }"
	fields := ParseStructFields(src, testScope)
	require.Len(t, fields, 2)
	assert.Equal(t, "a", fields[0].Name)
	assert.Equal(t, "a: u32", fields[0].Range.Slice(src))
	assert.Equal(t, "u32", fields[0].Ty.String())
	assert.Equal(t, "b", fields[1].Name)
	assert.Equal(t, "Vec<T>", fields[1].Ty.String())

	ps, ok := fields[1].Ty.(core.TyPathSearch)
	require.True(t, ok)
	assert.Equal(t, testScope, ps.Scope())
}

func TestParseStructFields_Tuple(t *testing.T) {
	t.Parallel()
	fields := ParseStructFields("struct Bar(pub u8, String);", testScope)
	require.Len(t, fields, 2)
	assert.Equal(t, "0", fields[0].Name)
	assert.Equal(t, "1", fields[1].Name)
	assert.Equal(t, "String", fields[1].Ty.String())
}

func TestParseImpl(t *testing.T) {
	t.Parallel()
	h, ok := ParseImpl("impl<T: Clone> Foo<T> for Bar {}", "lib.rs", 40, false, 70)
	require.True(t, ok)
	assert.Equal(t, "Bar", h.SelfPath.String())
	require.NotNil(t, h.TraitPath)
	assert.Equal(t, "Foo<T>", h.TraitPath.String())
	assert.True(t, h.IsTrait())
	assert.Equal(t, span.BytePos(40), h.ImplStart)
	assert.Equal(t, span.BytePos(71), h.ScopeStart())

	require.Len(t, h.Generics.Params, 1)
	tp := h.Generics.Params[0]
	assert.Equal(t, "T", tp.Name)
	assert.Equal(t, span.BytePos(45), tp.Point)
	require.Len(t, tp.Bounds, 1)
	assert.Equal(t, "Clone", tp.Bounds[0].Path.String())
}

func TestParseImpl_SliceAndReference(t *testing.T) {
	t.Parallel()
	h, ok := ParseImpl("impl<T> [T] {}", "lib.rs", 0, true, 12)
	require.True(t, ok)
	assert.Equal(t, "[T]", h.SelfPath.String())

	h, ok = ParseImpl("impl<'a> Foo for &'a Bar {}", "lib.rs", 0, true, 25)
	require.True(t, ok)
	assert.Equal(t, "Bar", h.SelfPath.String())

	_, ok = ParseImpl("struct Foo;", "lib.rs", 0, true, 0)
	assert.False(t, ok)
}

func TestParseGenerics_ClosureBoundGoesLast(t *testing.T) {
	t.Parallel()
	g := ParseGenerics("fn map<F: Fn() -> K, K>(f: F) {}", "lib.rs", 0)
	require.Equal(t, []string{"K", "F"}, g.Idents())

	closure, ok := g.Params[1].Bounds.Closure()
	require.True(t, ok)
	out, ok := closure.Path.Segments[0].Output.(core.TyMatch)
	require.True(t, ok)
	assert.Equal(t, "K", out.Match.Name)
	assert.Equal(t, core.KindTypeParameter, out.Match.Type.Kind)
}

func TestParseGenerics_WhereClause(t *testing.T) {
	t.Parallel()
	g := ParseGenerics("struct S<T> where T: Clone + Send { t: T }", "lib.rs", 0)
	require.Len(t, g.Params, 1)
	var names []string
	for _, b := range g.Params[0].Bounds {
		names = append(names, b.Path.Name())
	}
	assert.Equal(t, []string{"Clone", "Send"}, names)
}

func TestParseFnArgsAndGenerics(t *testing.T) {
	t.Parallel()
	src := "fn foo<T>(&self, a: T, (b, c): (u8, u8)) {}"
	args, gen := ParseFnArgsAndGenerics(src, testScope, 10)
	require.Len(t, args, 3)

	assert.Equal(t, "self", args[0].Pat.Name)
	assert.Equal(t, "&Self", args[0].Ty.String())

	assert.Equal(t, "a", args[1].Pat.Name)
	assert.Equal(t, "a: T", args[1].Range.Slice(src))

	assert.Equal(t, core.PatTuple, args[2].Pat.Kind)
	assert.Equal(t, "(u8, u8)", args[2].Ty.String())

	require.Len(t, gen.Params, 1)
	assert.Equal(t, span.BytePos(10+7), gen.Params[0].Point)
}

func TestParseClosureArgs(t *testing.T) {
	t.Parallel()
	args := ParseClosureArgs("let f = |a, b: u32| a + b;", testScope)
	require.Len(t, args, 2)
	assert.Equal(t, "a", args[0].Pat.Name)
	assert.Nil(t, args[0].Ty)
	assert.Equal(t, "u32", args[1].Ty.String())
}

func TestParseFnOutput(t *testing.T) {
	t.Parallel()
	ty, async := ParseFnOutput("async fn f() -> Option<u8> {}", testScope)
	require.NotNil(t, ty)
	assert.Equal(t, "Option<u8>", ty.String())
	assert.True(t, async)

	ty, async = ParseFnOutput("fn g() {}", testScope)
	assert.Equal(t, core.TyDefault{}, ty)
	assert.False(t, async)
}

func TestParseExternCrate(t *testing.T) {
	t.Parallel()
	name, real, ok := ParseExternCrate("extern crate foo_bar as fb;")
	require.True(t, ok)
	assert.Equal(t, "fb", name)
	assert.Equal(t, "foo_bar", real)

	name, real, ok = ParseExternCrate("extern crate libc;")
	require.True(t, ok)
	assert.Equal(t, "libc", name)
	assert.Empty(t, real)
}

func TestParseEnum(t *testing.T) {
	t.Parallel()
	src := "enum Shape { Circle(f64), Square { side: f64 }, Empty }"
	name, variants := ParseEnum(src)
	assert.Equal(t, "Shape", name)
	require.Len(t, variants, 3)
	assert.Equal(t, "Square", variants[1].Name)
	assert.Equal(t, span.BytePos(len("enum Shape { Circle(f64), ")), variants[1].Pos)
}

func TestParseStatic(t *testing.T) {
	t.Parallel()
	ty, mut := ParseStatic("static mut COUNT: usize = 0;", testScope)
	require.NotNil(t, ty)
	assert.Equal(t, "usize", ty.String())
	assert.True(t, mut)

	ty, mut = ParseStatic("const NAME: &str = \"x\";", testScope)
	require.NotNil(t, ty)
	assert.Equal(t, "&str", ty.String())
	assert.False(t, mut)
}

func TestParseTypeAlias(t *testing.T) {
	t.Parallel()
	name, ty, ok := ParseTypeAlias("type Map = HashMap<String, u32>;", testScope)
	require.True(t, ok)
	assert.Equal(t, "Map", name)
	assert.Equal(t, "HashMap<String, u32>", ty.String())

	_, _, ok = ParseTypeAlias("type Item;", testScope)
	assert.False(t, ok)
}

func TestParseTraits(t *testing.T) {
	t.Parallel()
	name, ok := ParseTraitName("pub trait Shape: Debug + Clone {}")
	require.True(t, ok)
	assert.Equal(t, "Shape", name)

	src := "trait Shape: Debug + Clone {}"
	bounds, ok := ParseInheritedTraits(src, "lib.rs", 20)
	require.True(t, ok)
	require.Len(t, bounds, 2)
	assert.Equal(t, "Debug", bounds[0].Path.Name())
	assert.Equal(t, span.BytePos(20+13), bounds[0].Point)

	bounds, ok = ParseInheritedTraits("trait Plain {}", "lib.rs", 0)
	assert.True(t, ok)
	assert.Empty(t, bounds)
}

func TestParseFnSignature(t *testing.T) {
	t.Parallel()
	sig, ok := ParseFnSignature("pub fn reserve(&mut self, additional: usize) {")
	require.True(t, ok)
	assert.Equal(t, "reserve", sig.Name)
	assert.Equal(t, []string{"&mut self: &mut self", "additional: usize"}, sig.Args)

	sig, ok = ParseFnSignature("pub fn new() -> Vec<T>")
	require.True(t, ok)
	assert.Empty(t, sig.Args)
}

// =============================================================================
// Patterns
// =============================================================================

func TestParsePatBindStmt(t *testing.T) {
	t.Parallel()
	src := "let (a, mut b) = foo(|c| c);"
	assert.Equal(t, []string{"a", "b"}, slices(t, src, ParsePatBindStmt(src)))

	src = "if let Some(x) = y { let z = 1; }"
	assert.Equal(t, []string{"x"}, slices(t, src, ParsePatBindStmt(src)))

	src = "for (i, v) in items.iter() {}"
	assert.Equal(t, []string{"i", "v"}, slices(t, src, ParsePatBindStmt(src)))
}

func TestParsePatIdents_VisitsEverything(t *testing.T) {
	t.Parallel()
	src := "let a = foo(|c| c);"
	assert.Equal(t, []string{"a", "c"}, slices(t, src, ParsePatIdents(src)))
}

func TestParseLet_Destructuring(t *testing.T) {
	t.Parallel()
	src := "let Point { x, y: ref why } = p;"
	let, ok := ParseLet(src, testScope)
	require.True(t, ok)
	require.Equal(t, core.PatStruct, let.Pat.Kind)
	assert.Equal(t, "Point", let.Pat.Path.String())
	require.Len(t, let.Pat.Fields, 2)
	assert.Equal(t, "x", let.Pat.Fields[0].Pat.Name)
	assert.Equal(t, "why", let.Pat.Fields[1].Pat.Name)
	assert.True(t, let.Pat.Fields[1].Pat.ByRef)

	name, found := let.Pat.SearchByName("wh", core.StartsWith)
	require.True(t, found)
	assert.Equal(t, "why", name)
}

func TestParseLet_AnnotationAndInit(t *testing.T) {
	t.Parallel()
	let, ok := ParseLet("let v: Vec<u8> = Vec::new();", testScope)
	require.True(t, ok)
	require.NotNil(t, let.Ty)
	assert.Equal(t, "Vec<u8>", let.Ty.String())

	call, ok := let.Init.(CallExpr)
	require.True(t, ok)
	fn, ok := call.Func.(PathExpr)
	require.True(t, ok)
	assert.Equal(t, "Vec::new", fn.Path.String())
}

func TestParseLet_WildcardKeepsTuplePositions(t *testing.T) {
	t.Parallel()
	let, ok := ParseLet("let (_, b) = pair;", testScope)
	require.True(t, ok)
	require.Len(t, let.Pat.Elems, 2)
	assert.Equal(t, core.PatWild, let.Pat.Elems[0].Kind)
	assert.Equal(t, "b", let.Pat.Elems[1].Name)
}

// =============================================================================
// Expressions
// =============================================================================

func TestParseExpr_Forms(t *testing.T) {
	t.Parallel()

	e, ok := ParseExpr("a.b(c)", testScope)
	require.True(t, ok)
	mc, ok := e.(MethodCallExpr)
	require.True(t, ok)
	assert.Equal(t, "b", mc.Method)
	assert.Len(t, mc.Args, 1)

	e, _ = ParseExpr("self.field.0", testScope)
	fe, ok := e.(FieldExpr)
	require.True(t, ok)
	assert.Equal(t, "0", fe.Field)

	e, _ = ParseExpr("x?", testScope)
	assert.IsType(t, TryExpr{}, e)

	e, _ = ParseExpr("a + b", testScope)
	bin, ok := e.(BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)

	e, _ = ParseExpr("vec![1, 2]", testScope)
	assert.Equal(t, MacroExpr{Name: "vec"}, e)

	e, _ = ParseExpr("let s = Foo { a: 1 };", testScope)
	se, ok := e.(StructExpr)
	require.True(t, ok)
	assert.Equal(t, "Foo", se.Path.String())
}

func TestParseExpr_Literals(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src  string
		want LitExpr
	}{
		{`"s"`, LitExpr{Prim: core.PrimStr}},
		{`b"abc"`, LitExpr{Prim: core.PrimU8, ByteString: true, Len: 3}},
		{`b'a'`, LitExpr{Prim: core.PrimU8}},
		{`'c'`, LitExpr{Prim: core.PrimChar}},
		{`10`, LitExpr{Prim: core.PrimU32}},
		{`10i64`, LitExpr{Prim: core.PrimI64}},
		{`0xffusize`, LitExpr{Prim: core.PrimUsize}},
		{`1.5`, LitExpr{Prim: core.PrimF32}},
		{`1.5f64`, LitExpr{Prim: core.PrimF64}},
		{`true`, LitExpr{Prim: core.PrimBool}},
	}
	for _, tt := range tests {
		e, ok := ParseExpr(tt.src, testScope)
		require.True(t, ok, tt.src)
		assert.Equal(t, tt.want, e, tt.src)
	}
}

func TestParseExpr_PathPosition(t *testing.T) {
	t.Parallel()
	e, ok := ParseExpr("let x = foo::bar();", testScope)
	require.True(t, ok)
	call, ok := e.(CallExpr)
	require.True(t, ok)
	p, ok := call.Func.(PathExpr)
	require.True(t, ok)
	assert.Equal(t, span.BytePos(8), p.Pos)
}

func TestParseMatch(t *testing.T) {
	t.Parallel()
	src := "match opt { Some(v) => v, None => 0 }"
	m, ok := ParseMatch(src, testScope)
	require.True(t, ok)
	require.Len(t, m.Arms, 2)
	assert.Equal(t, core.PatTupleStruct, m.Arms[0].Pat.Kind)
	assert.Equal(t, "Some(v)", m.Arms[0].Pat.Range.Slice(src))
}

func TestParseForAndIfLet(t *testing.T) {
	t.Parallel()
	b, ok := ParseForStmt("for x in v.iter() {}", testScope)
	require.True(t, ok)
	assert.Equal(t, "x", b.Pat.Name)
	assert.IsType(t, MethodCallExpr{}, b.Value)

	b, ok = ParseIfLet("if let Some(y) = opt {}", testScope)
	require.True(t, ok)
	assert.Equal(t, core.PatTupleStruct, b.Pat.Kind)
	assert.IsType(t, PathExpr{}, b.Value)

	_, ok = ParseIfLet("if x {}", testScope)
	assert.False(t, ok)
}

func TestParse_BrokenFragmentYieldsNothing(t *testing.T) {
	t.Parallel()
	_, ok := ParseLet("let = ;", testScope)
	assert.False(t, ok)
	assert.Empty(t, ParseStructFields("struct {", testScope))
}

func TestByteStringLen(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 3, byteStringLen(`b"a\nb"`))
	assert.Equal(t, 2, byteStringLen(`b"\x00\x41"`))
	assert.Equal(t, 5, byteStringLen(`br#"a"bcd"#`))
}
