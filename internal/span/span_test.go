package span

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteRange_Contains(t *testing.T) {
	r := NewRange(3, 6)
	assert.False(t, r.Contains(2))
	assert.True(t, r.Contains(3))
	assert.True(t, r.Contains(5))
	assert.False(t, r.Contains(6))

	assert.False(t, r.ContainsExclusive(3))
	assert.True(t, r.ContainsExclusive(4))
	assert.False(t, r.ContainsExclusive(6))
}

func TestByteRange_ShiftAndSlice(t *testing.T) {
	r := NewRange(1, 4).Shift(2)
	assert.Equal(t, NewRange(3, 6), r)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, "def", r.Slice("abcdefgh"))
	assert.Equal(t, "gh", NewRange(6, 20).Slice("abcdefgh"))
	assert.Equal(t, "", NewRange(5, 2).Slice("abcdefgh"))
}

func TestBytePos_CheckedSub(t *testing.T) {
	p, ok := BytePos(10).CheckedSub(4)
	require.True(t, ok)
	assert.Equal(t, BytePos(6), p)

	_, ok = BytePos(3).CheckedSub(4)
	assert.False(t, ok)
}

func TestLineIndex_ToPoint(t *testing.T) {
	src := "\nfn myfn() {\n    let a = 3;\n    print(a);\n}\n"
	li := NewLineIndex(src)

	p, ok := li.ToPoint(Coordinate{Row: 3, Col: 4})
	require.True(t, ok)
	assert.Equal(t, BytePos(17), p)
	assert.Equal(t, "let", src[p:p+3])

	_, ok = li.ToPoint(Coordinate{Row: 40, Col: 0})
	assert.False(t, ok)
	_, ok = li.ToPoint(Coordinate{Row: 2, Col: 100})
	assert.False(t, ok)
}

func TestLineIndex_CRLF(t *testing.T) {
	src := "\r\nfn myfn() {\r\n    let a = 3;\r\n}\r\n"
	li := NewLineIndex(src)

	p, ok := li.ToPoint(Coordinate{Row: 3, Col: 4})
	require.True(t, ok)
	assert.Equal(t, "let", src[p:p+3])
}

func TestLineIndex_RoundTrip(t *testing.T) {
	src := "fn myfn(b:usize) {\n   let a = 3;\n   if b == 12 {\n       let a = 24;\n   }\n}"
	li := NewLineIndex(src)

	for _, c := range []Coordinate{{1, 0}, {2, 3}, {3, 6}, {4, 11}, {6, 0}} {
		p, ok := li.ToPoint(c)
		require.True(t, ok, "coords %v", c)
		back, ok := li.ToCoords(p)
		require.True(t, ok)
		assert.Equal(t, c, back)
	}
}
