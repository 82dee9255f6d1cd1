package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rust-lang/rls-sub001/internal/span"
)

func pointAt(t *testing.T, src string, row, col int) span.BytePos {
	t.Helper()
	p, ok := NewRawSource(src).ToPoint(span.Coordinate{Row: row, Col: col})
	require.True(t, ok)
	return p
}

// =============================================================================
// Scope and statement lookup
// =============================================================================

func TestScopeStart_FunctionBody(t *testing.T) {
	t.Parallel()
	src := "\nfn myfn() {\n    let a = 3;\n    print(a);\n}\n"
	m := NewMaskedSource(src)
	assert.Equal(t, span.BytePos(12), ScopeStart(m.Src(), pointAt(t, src, 4, 10)))
}

func TestScopeStart_SkipsSubScopes(t *testing.T) {
	t.Parallel()
	src := "\nfn myfn() {\n    let a = 3;\n    {\n      let b = 4;\n    }\n    print(a);\n}\n"
	m := NewMaskedSource(src)
	assert.Equal(t, span.BytePos(12), ScopeStart(m.Src(), pointAt(t, src, 7, 10)))
}

func TestScopeStart_ClosureArgument(t *testing.T) {
	t.Parallel()
	src := "fn f() {\n    v.iter().map(|x| x.foo)\n}\n"
	m := NewMaskedSource(src)
	point := span.BytePos(strings.Index(src, "x.foo") + 2)
	open := span.BytePos(strings.Index(src, "(|") + 1)
	assert.Equal(t, open, ScopeStart(m.Src(), point))
}

func TestFindStmtStart(t *testing.T) {
	t.Parallel()
	src := "fn f() {\n    let a = 3;\n    let b = a.foo();\n}\n"
	m := NewMaskedSource(src)
	point := span.BytePos(strings.Index(src, "foo"))

	start, ok := FindStmtStart(m.Src(), point)
	require.True(t, ok)
	assert.Equal(t, span.BytePos(strings.Index(src, "let b")), start)
	assert.Equal(t, start, ExpectStmtStart(m.Src(), point))
}

func TestGetLocalModulePath(t *testing.T) {
	t.Parallel()
	src := "\n    pub mod foo {\n        pub mod bar {\n            here\n        }\n    }"
	m := NewMaskedSource(src)

	assert.Equal(t, []string{"foo", "bar"}, GetLocalModulePath(m.Src(), pointAt(t, src, 4, 12)))
	assert.Equal(t, []string{"foo"}, GetLocalModulePath(m.Src(), pointAt(t, src, 3, 8)))
}

func TestFindImplStart(t *testing.T) {
	t.Parallel()
	src := "struct S;\nimpl S {\n    fn new() -> S {\n        S\n    }\n}\n"
	m := NewMaskedSource(src)
	point := span.BytePos(strings.Index(src, "        S") + 8)

	start, ok := FindImplStart(m.Src(), point, 0)
	require.True(t, ok)
	assert.Equal(t, span.BytePos(strings.Index(src, "impl")), start)

	_, ok = FindImplStart(m.Src(), 3, 0)
	assert.False(t, ok)
}

func TestModuleFileFromPathAttr(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.rs"), []byte("pub fn x() {}"), 0o644))

	src := "#[path = \"other.rs\"]\nmod renamed;\n"
	m := NewMaskedSource(src)
	point := span.BytePos(strings.Index(src, "renamed"))

	exists := func(p string) bool {
		_, err := os.Stat(p)
		return err == nil
	}
	got, ok := ModuleFileFromPathAttr(m.Src(), point, dir, src, exists)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "other.rs"), got)

	_, ok = ModuleFileFromPathAttr(m.Src(), point, dir, src, func(string) bool { return false })
	assert.False(t, ok)
}

// =============================================================================
// Search expressions
// =============================================================================

func TestExpandSearchExpr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		src        string
		point      int
		start, end int
	}{
		{"ident", "foo.bar", 5, 0, 7},
		{"bang at start", "!foo", 1, 1, 4},
		{"chained calls", "yeah::blah.foo().bar", 18, 0, 20},
		{"inline closure", "yeah::blah.foo(|x:foo|{}).bar", 27, 0, 29},
		{"function arg", "myfn(foo::new().baz().com)", 23, 5, 25},
		{"macro", "my_macro!()", 8, 0, 9},
		{"point at end", "foo.bar", 7, 0, 7},
		{"type annotation", "x : foo", 7, 4, 7},
		{"space before dot", "foo .bar", 7, 0, 8},
		{"space after dot", "foo. bar", 7, 0, 8},
		{"spaces around dots", "foo. bar .foo", 12, 0, 13},
		{"let", "let b = foo", 10, 8, 11},
		{"double dot", "..foo", 4, 2, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ExpandSearchExpr(tt.src, span.BytePos(tt.point))
			assert.Equal(t, span.NewRange(span.BytePos(tt.start), span.BytePos(tt.end)), r)
		})
	}
}

func TestGetStartOfPattern(t *testing.T) {
	t.Parallel()
	assert.Equal(t, span.BytePos(4), GetStartOfPattern("foo, Some(a) =>", 13))
	assert.Equal(t, span.BytePos(4), GetStartOfPattern("bla, ast::PatTup(ref tuple_elements) => {", 36))
}

func TestSplitIntoContextAndCompletion(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in         string
		ctx, compl string
		kind       CompletionType
	}{
		{"a.b.fo", "a.b", "fo", CompleteField},
		{"std::collections::Ha", "std::collections", "Ha", CompletePath},
		{"foo", "", "foo", CompletePath},
		{"let x = fo", "let x = ", "fo", CompletePath},
		{"self.", "self", "", CompleteField},
	}
	for _, tt := range tests {
		ctx, compl, kind := SplitIntoContextAndCompletion(tt.in)
		assert.Equal(t, tt.ctx, ctx, tt.in)
		assert.Equal(t, tt.compl, compl, tt.in)
		assert.Equal(t, tt.kind, kind, tt.in)
	}
}

// =============================================================================
// Block helpers
// =============================================================================

func TestEndOfNextScope(t *testing.T) {
	t.Parallel()
	src := "\nstruct foo {\n   a: usize,\n   blah: ~str\n}\nSome other junk"
	end, ok := EndOfNextScope(src)
	require.True(t, ok)
	assert.Equal(t, "\nstruct foo {\n   a: usize,\n   blah: ~str\n}", src[:end+1])
}

func TestFindClosingParen(t *testing.T) {
	t.Parallel()
	src := "fn foo(a: (u8, u8), b: u8) -> u8"
	open := span.BytePos(strings.Index(src, "(") + 1)
	assert.Equal(t, span.BytePos(strings.Index(src, ") ->")), FindClosingParen(src, open))
	assert.Equal(t, span.BytePos(len("fn foo(a")), FindClosingParen("fn foo(a", 7))
}

func TestMaskSubScopes(t *testing.T) {
	t.Parallel()
	src := "fn a() {\n    let x = 1;\n}\nfn b() {}"
	got := MaskSubScopes(src)
	assert.Equal(t, "fn a() {\n"+strings.Repeat(" ", 14)+"\n}\nfn b() {}", got)
	assert.Equal(t, len(src), len(got))
}

// =============================================================================
// Use statements and struct literals
// =============================================================================

func TestUseStmtStart(t *testing.T) {
	t.Parallel()
	n, ok := UseStmtStart("pub(crate)   use   some::")
	require.True(t, ok)
	assert.Equal(t, span.BytePos(19), n)

	_, ok = UseStmtStart("user.name")
	assert.False(t, ok)
}

func TestIsExternCrate(t *testing.T) {
	t.Parallel()
	assert.True(t, IsExternCrate("extern crate "))
	assert.True(t, IsExternCrate("pub extern crate abc"))
	assert.False(t, IsExternCrate("pub extern crat"))
}

func TestConstructPathFromUseTree(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want []string
	}{
		{"std::collections::HashMa", []string{"std", "collections", "HashMa"}},
		{"std::{collections::{HashMap, hash_ma", []string{"std", "collections", "hash_ma"}},
		{"std::{collections::{HashMap, ", []string{"std", "collections", ""}},
		{"std::collections::{", []string{"std", "collections", ""}},
		{"std::{collections::HashMap, sync::Arc", []string{"std", "sync", "Arc"}},
		{"{Str1, module::Str2, Str3", []string{"Str3"}},
	}
	for _, tt := range tests {
		got, global := ConstructPathFromUseTree(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.False(t, global)
	}

	got, global := ConstructPathFromUseTree("::std::fmt")
	assert.True(t, global)
	assert.Equal(t, []string{"std", "fmt"}, got)
}

func TestGetCurrentStmt(t *testing.T) {
	t.Parallel()
	src := "fn main() {\n    let a = 1;\n    let b = a.fo\n}\n"
	m := NewMaskedSource(src)
	pos := span.BytePos(strings.Index(src, ".fo") + 3)

	start, stmt := GetCurrentStmt(m.Src(), pos)
	assert.Equal(t, span.BytePos(strings.Index(src, "let b")), start)
	assert.Equal(t, "let b = a.fo", stmt)
}

func ctorCheck(src string) bool {
	point := span.BytePos(strings.Index(src, "~"))
	m := NewMaskedSource(src)
	scope := ScopeStart(m.Src(), point)
	_, ok := IsInStructCtor(m.Src(), scope, point)
	return ok
}

func TestIsInStructCtor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"first line", "\n    struct UserData {\n        name: String,\n        id: usize,\n    }\n    fn main() {\n        UserData {\n            na~\n        }\n    }", true},
		{"second line", "\n    fn main() {\n        UserData {\n            name: \"ahkj\".to_owned(),\n            i~d:\n        }\n    }", true},
		{"tuple", "\n    fn main() {\n        let (a,\n            UserData {\n                name: \"ahkj\".to_owned(),\n                i~d:\n            }\n        ) = f();\n    }", true},
		{"value position", "\n    fn main() {\n        UserData {\n            name: ~\n        }\n    }", false},
		{"fn arg", "\n        func(UserData {\n            name~\n        })\n    ", true},
		{"closure", "\n        let f = || UserData {\n            name~\n        };\n    ", true},
		{"unsafe block", "\n        unsafe {\n            name~\n        }\n    ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ctorCheck(tt.src))
		})
	}
}

func TestIsInStructCtor_PathRange(t *testing.T) {
	t.Parallel()
	src := "fn main() {\n    func(a::UserData {\n        name~\n    })\n}"
	point := span.BytePos(strings.Index(src, "~"))
	m := NewMaskedSource(src)
	r, ok := IsInStructCtor(m.Src(), ScopeStart(m.Src(), point), point)
	require.True(t, ok)
	assert.Equal(t, "a::UserData", r.Slice(src))
}
