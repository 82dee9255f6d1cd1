package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rust-lang/rls-sub001/internal/span"
)

func TestFindIdentEnd(t *testing.T) {
	t.Parallel()
	assert.Equal(t, span.BytePos(5), FindIdentEnd("ident", 0))
	assert.Equal(t, span.BytePos(6), FindIdentEnd("(ident)", 1))
	assert.Equal(t, span.BytePos(17), FindIdentEnd("let an_identifier = 100;", 4))
	assert.Equal(t, span.BytePos(7), FindIdentEnd("num_µs", 0))
	assert.Equal(t, span.BytePos(10), FindIdentEnd("ends_in_µ", 0))
}

func TestExpandIdentStart(t *testing.T) {
	t.Parallel()
	src := "let x = this_is_an_identifier;"
	assert.Equal(t, span.BytePos(8), ExpandIdentStart(src, 29))
	assert.Equal(t, span.BytePos(4), ExpandIdentStart("let µx", 7))
}

func TestCharBefore(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 'ä', CharBefore("täst", 3))
	assert.Equal(t, 'ä', CharBefore("täst", 2))
	assert.Equal(t, 's', CharBefore("täst", 4))
	assert.Equal(t, 't', CharBefore("täst", 100))
	assert.Equal(t, rune(0), CharBefore("täst", 0))
}

func TestStripWords(t *testing.T) {
	t.Parallel()
	assert.Equal(t, span.BytePos(15), StripWords("const  unsafe  fn", "const", "unsafe"))
	assert.Equal(t, span.BytePos(8), StripWords("unsafe  fn", "const", "unsafe"))
	assert.Equal(t, span.BytePos(8), StripWords("const   fn", "const", "unsafe"))
	assert.Equal(t, span.BytePos(0), StripWords("fn", "const", "unsafe"))
}

func TestTrimVisibility(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "fn", TrimVisibility("pub fn"))
	assert.Equal(t, "struct", TrimVisibility("pub(crate)   struct"))
	assert.Equal(t, "const fn", TrimVisibility("pub (in super)  const fn"))
	assert.Equal(t, "public_fn()", TrimVisibility("public_fn()"))
}

func TestInFnName(t *testing.T) {
	t.Parallel()
	assert.True(t, InFnName("fn foo"))
	assert.True(t, InFnName(" fn  foo"))
	assert.True(t, InFnName("fn "))
	assert.False(t, InFnName("fn foo(b"))
	assert.False(t, InFnName("fn"))
}

func TestClosureValidArgScope(t *testing.T) {
	t.Parallel()
	valid := "\n    let a = |int, int| int * int;\n"
	r, ok := ClosureValidArgScope(valid)
	require.True(t, ok)
	assert.Equal(t, span.NewRange(13, 23), r)
	assert.Equal(t, "|int, int|", r.Slice(valid))

	confusing := `
    match a {
        EnumA::A => match b {
            EnumB::A(u) | EnumB::B(u) => println!("u: {}", u),
        },
        EnumA::B => match b {
            EnumB::A(u) | EnumB::B(u) => println!("u: {}", u),
        },
    }
`
	_, ok = ClosureValidArgScope(confusing)
	assert.False(t, ok)
}

func TestFindClosure(t *testing.T) {
	t.Parallel()
	rng := func(a, b int) span.ByteRange { return span.NewRange(span.BytePos(a), span.BytePos(b)) }
	pipes := func(src string) span.ByteRange {
		return rng(strings.Index(src, "|"), strings.LastIndex(src, "|")+1)
	}
	tests := []struct {
		src        string
		args, body span.ByteRange
	}{
		{
			src:  "|a, b, c| something()",
			args: pipes("|a, b, c| something()"),
			body: rng(10, 21),
		},
		{
			src:  "|a, b, c| { something() }",
			args: pipes("|a, b, c| { something() }"),
			body: rng(11, 24),
		},
		{
			src:  "let a = |a, b, c|something();",
			args: pipes("let a = |a, b, c|something();"),
			body: rng(17, 28),
		},
		{
			src:  "|z| z)",
			args: rng(0, 3),
			body: rng(4, 6),
		},
		{
			src:  "let p = |z| something() + 5;",
			args: rng(8, 11),
			body: rng(12, 27),
		},
		{
			src:  "| x: i32 | Struct { x };",
			args: rng(0, 10),
			body: rng(11, 23),
		},
	}
	for _, tt := range tests {
		args, body, ok := FindClosure(tt.src)
		require.True(t, ok, tt.src)
		assert.Equal(t, tt.args, args, tt.src)
		assert.Equal(t, tt.body, body, tt.src)
	}
}
