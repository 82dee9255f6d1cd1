package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkTexts(src string) []string {
	var out []string
	for _, r := range CodeChunks(src) {
		out = append(out, r.Slice(src))
	}
	return out
}

func TestCodeChunks_RemovesLineComment(t *testing.T) {
	t.Parallel()
	got := chunkTexts("this is some code // this is a comment\nsome more code")
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, "this is some code ", got[0])
	assert.Equal(t, "some more code", got[1])
}

func TestCodeChunks_MergesConsecutiveLineComments(t *testing.T) {
	t.Parallel()
	src := "this is some code // this is a comment\n// this is more comment\n// another comment\nsome more code"
	got := chunkTexts(src)
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, "this is some code ", got[0])
	assert.Equal(t, "some more code", got[1])
}

func TestCodeChunks_RemovesStringContents(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
	}{
		{"plain", `this is some code "this is a string" more code`},
		{"fake comment", `this is some code "string with a // fake comment " more code`},
		{"escaped quote", `this is some code "string with a \" escaped dblquote fake comment " more code`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chunkTexts(tt.src)
			require.GreaterOrEqual(t, len(got), 2)
			assert.Equal(t, `this is some code "`, got[0])
			assert.Equal(t, `" more code`, got[1])
		})
	}
}

func TestCodeChunks_RemovesCharContents(t *testing.T) {
	t.Parallel()
	got := chunkTexts(`this is some code '"' more code '\x00' and '\'' that's it`)
	require.Len(t, got, 4)
	assert.Equal(t, `this is some code '`, got[0])
	assert.Equal(t, `' more code '`, got[1])
	assert.Equal(t, `' and '`, got[2])
	assert.Equal(t, `' that's it`, got[3])
}

func TestCodeChunks_LifetimesAreCode(t *testing.T) {
	t.Parallel()
	src := "fn f<'a>(x: &'a str) -> &'a str { x }"
	assert.Equal(t, []string{src}, chunkTexts(src))
}

func TestCodeChunks_CommentWithQuote(t *testing.T) {
	t.Parallel()
	got := chunkTexts("this is some code // comment with \" double quote\nsome more code")
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, "this is some code ", got[0])
	assert.Equal(t, "some more code", got[1])
}

func TestCodeChunks_BlockComments(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
		rest string
	}{
		{"multiline", "this is some code /* this is a\n\"multiline\" comment */some more code", "some more code"},
		{"nested", "this is some code /* nested /* block */ comment */ some more code", " some more code"},
		{"nested doc", "this is some code /* nested /** documentation block */ comment */ some more code", " some more code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chunkTexts(tt.src)
			require.GreaterOrEqual(t, len(got), 2)
			assert.Equal(t, "this is some code ", got[0])
			assert.Equal(t, tt.rest, got[1])
		})
	}
}

func TestCodeChunks_RawStrings(t *testing.T) {
	t.Parallel()

	got := chunkTexts(`this is some code br" escaped dblquote raw string \" more code`)
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, `this is some code br"`, got[0])
	assert.Equal(t, `" more code`, got[1])

	got = chunkTexts(`let a = r#"has "quotes" inside"#; more`)
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, `let a = r#"`, got[0])
	assert.Equal(t, `"#; more`, got[1])
}

func TestMask_KeepsLength(t *testing.T) {
	t.Parallel()
	src := "\nthis is some code\nthis is a line // with a comment\nsome more\n"
	masked := Mask(src)
	require.Equal(t, len(src), len(masked))

	assert.Equal(t, src[5], masked[5])
	comment := strings.Index(src, "with")
	assert.Equal(t, byte(' '), masked[comment])
	assert.Equal(t, src[len(src)-3], masked[len(src)-3])
}

func TestMask_BlanksCommentsAndLiterals(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "a      c", Mask("a // b\nc"))
	assert.Equal(t, `x = "   ";`, Mask(`x = "abc";`))
	assert.Equal(t, "x = ' ';", Mask("x = '{';"))
}
