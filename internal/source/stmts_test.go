package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stmtTexts(src string) []string {
	masked := Mask(src)
	var out []string
	for _, r := range StmtRanges(masked) {
		out = append(out, r.Slice(src))
	}
	return out
}

func TestStmtRanges_UseStatements(t *testing.T) {
	t.Parallel()
	got := stmtTexts("use std::Foo; // a comment\nuse std::Bar;\n")
	assert.Equal(t, []string{"use std::Foo;", "use std::Bar;"}, got)
}

func TestStmtRanges_ArrayStatements(t *testing.T) {
	t.Parallel()
	src := "let a: [i32; 2] = [1, 2];\nlet b = [[0], [1], [2]];\nlet c = ([1, 2, 3])[1];\n"
	assert.Equal(t, []string{
		"let a: [i32; 2] = [1, 2];",
		"let b = [[0], [1], [2]];",
		"let c = ([1, 2, 3])[1];",
	}, stmtTexts(src))
}

func TestStmtRanges_UseGroupOverTwoLines(t *testing.T) {
	t.Parallel()
	got := stmtTexts("use std::{Foo,\n          Bar}; // a comment\n")
	require.NotEmpty(t, got)
	assert.Equal(t, "use std::{Foo,\n          Bar};", got[0])

	got = stmtTexts("pub use {Foo,\n         Bar}; // this is also legit apparently\n")
	require.NotEmpty(t, got)
	assert.Equal(t, "pub use {Foo,\n         Bar};", got[0])
}

func TestStmtRanges_BlockBodiedStatements(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"while self.pos < 3 { }"}, stmtTexts("while self.pos < 3 { }\n"))
	assert.Equal(t, []string{"myfn(|n|{});"}, stmtTexts("myfn(|n|{});\n"))
	assert.Equal(t,
		[]string{"if self.pos < 3 { }", "else { }"},
		stmtTexts("\n    if self.pos < 3 { } else { }\n"))
}

func TestStmtRanges_Macros(t *testing.T) {
	t.Parallel()
	src := "\nmod foo;\nmacro_rules! otry(\n    ($e:expr) => (match $e { Some(e) => e, None => return })\n)\nmod bar;\n"
	assert.Equal(t, []string{
		"mod foo;",
		"macro_rules! otry(\n    ($e:expr) => (match $e { Some(e) => e, None => return })\n)",
		"mod bar;",
	}, stmtTexts(src))

	src = "\nmod foo;\nlocal_data_key!(local_stdout: Box<Writer + Send>)  // no ';'\nmod bar;\n"
	assert.Equal(t, []string{
		"mod foo;",
		"local_data_key!(local_stdout: Box<Writer + Send>)",
		"mod bar;",
	}, stmtTexts(src))
}

func TestStmtRanges_StopsAtEndOfScope(t *testing.T) {
	t.Parallel()
	src := "\n    let a = 35;\n    return a + 35;  // should iterate this\n}\n{\n    b = foo;       // but not this\n}\n"
	assert.Equal(t, []string{"let a = 35;", "return a + 35;"}, stmtTexts(src))
}

func TestStmtRanges_Attributes(t *testing.T) {
	t.Parallel()
	got := stmtTexts("#![license = \"BSD\"]\n#[test]\n")
	assert.Equal(t, []string{"#![license = \"BSD\"]", "#[test]"}, got)
}

func TestStmtRanges_HalfOpenTrailingBlock(t *testing.T) {
	t.Parallel()
	src := "let something = 35;\nwhile self.pos < 3 {\n    let a = 35;\n"
	assert.Equal(t, []string{
		"let something = 35;",
		"while self.pos < 3 {\n    let a = 35;\n",
	}, stmtTexts(src))
}

func TestStmtRanges_LetWithBlockValue(t *testing.T) {
	t.Parallel()
	got := stmtTexts("let s = Foo { a: 1 };\nbar();\n")
	assert.Equal(t, []string{"let s = Foo { a: 1 };", "bar();"}, got)
}
