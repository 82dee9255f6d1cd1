package source

import (
	"strings"

	"github.com/rust-lang/rls-sub001/internal/span"
)

type scanState int

const (
	inCode scanState = iota
	inComment
	inCommentBlock
	inString
	inChar
	finished
)

// chunkScanner splits source text into code chunks. Comments are dropped
// entirely. String and char literals keep their quotes but lose their
// contents.
type chunkScanner struct {
	src   string
	pos   int
	state scanState
	// sharps is the number of '#' of a raw string, or -1 for a cooked one.
	sharps int
}

func (c *chunkScanner) next() (span.ByteRange, bool) {
	switch c.state {
	case inCode:
		return c.code(), true
	case inComment:
		return c.comment(), true
	case inCommentBlock:
		return c.commentBlock(), true
	case inString:
		return c.str(), true
	case inChar:
		return c.char(), true
	}
	return span.ByteRange{}, false
}

func (c *chunkScanner) code() span.ByteRange {
	pos := c.pos
	start := pos
	if c.state == inString || c.state == inChar {
		// the closing quote belongs to the code chunk
		start = pos - 1
	}
	src := c.src
	for pos < len(src) {
		b := src[pos]
		pos++
		switch b {
		case '/':
			if pos < len(src) {
				switch src[pos] {
				case '/':
					c.state = inComment
					c.pos = pos + 1
					return rangeOf(start, pos-1)
				case '*':
					c.state = inCommentBlock
					c.pos = pos + 1
					return rangeOf(start, pos-1)
				}
			}
		case '"':
			c.sharps = c.rawSharps(pos)
			c.state = inString
			c.pos = pos
			return rangeOf(start, pos)
		case '\'':
			// A quote also starts lifetimes. Only treat it as a char literal
			// when an escape or a closing quote follows.
			if pos+1 < len(src) && (src[pos] == '\\' || src[pos+1] == '\'') {
				c.state = inChar
				c.pos = pos
				return rangeOf(start, pos)
			}
		}
	}
	c.state = finished
	return rangeOf(start, len(src))
}

func (c *chunkScanner) comment() span.ByteRange {
	pos := c.pos
	src := c.src
	for pos < len(src) {
		b := src[pos]
		pos++
		if b == '\n' {
			if strings.HasPrefix(src[pos:], "//") {
				continue
			}
			break
		}
	}
	c.pos = pos
	return c.code()
}

func (c *chunkScanner) commentBlock() span.ByteRange {
	nesting := 0
	prev := byte(' ')
	pos := c.pos
	src := c.src
scan:
	for pos < len(src) {
		b := src[pos]
		pos++
		switch {
		case b == '/' && prev == '*':
			prev = ' '
			if nesting == 0 {
				break scan
			}
			nesting--
		case b == '*' && prev == '/':
			prev = ' '
			nesting++
		default:
			prev = b
		}
	}
	c.pos = pos
	return c.code()
}

func (c *chunkScanner) str() span.ByteRange {
	src := c.src
	pos := c.pos
	if c.sharps >= 0 {
		pos = c.rawStringEnd()
	} else {
		escaped := false
		for pos < len(src) {
			b := src[pos]
			pos++
			if b == '"' && !escaped {
				break
			}
			if b == '\\' {
				escaped = !escaped
			} else {
				escaped = false
			}
		}
	}
	c.pos = pos
	return c.code()
}

// rawStringEnd finds the first quote followed by exactly as many '#' as the
// opening delimiter and returns the offset just past that quote.
func (c *chunkScanner) rawStringEnd() int {
	src := c.src
	quote := -1
	sharps := 0
	for i := c.pos; i < len(src); i++ {
		switch {
		case src[i] == '"':
			quote = i
			sharps = 0
		case src[i] == '#' && quote >= 0:
			sharps++
		default:
			quote = -1
		}
		if quote >= 0 && sharps == c.sharps {
			return quote + 1
		}
	}
	return len(src)
}

func (c *chunkScanner) char() span.ByteRange {
	src := c.src
	pos := c.pos
	escaped := false
	for pos < len(src) {
		b := src[pos]
		pos++
		if b == '\'' && !escaped {
			break
		}
		if b == '\\' {
			escaped = !escaped
		} else {
			escaped = false
		}
	}
	c.pos = pos
	return c.code()
}

// rawSharps inspects the bytes before the quote ending at pos. It returns
// the number of '#' of a raw string prefix such as r#", or -1 when the
// string is cooked.
func (c *chunkScanner) rawSharps(pos int) int {
	sharps := 0
	for i := pos - 2; i >= 0; i-- {
		switch c.src[i] {
		case '#':
			sharps++
		case 'r':
			return sharps
		default:
			return -1
		}
	}
	return -1
}

func rangeOf(start, end int) span.ByteRange {
	return span.NewRange(span.BytePos(start), span.BytePos(end))
}

// CodeChunks returns the ranges of src that are code, skipping comments and
// the contents of string and char literals. Consecutive `//` lines form a
// single comment, block comments nest, and raw strings end at the first
// quote that carries the opening number of '#'.
func CodeChunks(src string) []span.ByteRange {
	sc := &chunkScanner{src: src, sharps: -1}
	var out []span.ByteRange
	for {
		r, ok := sc.next()
		if !ok {
			return out
		}
		out = append(out, r)
	}
}

// Mask replaces everything outside the code chunks of src with spaces. The
// result has exactly the length of src so offsets carry over unchanged.
func Mask(src string) string {
	return maskChunks(src, CodeChunks(src))
}

func maskChunks(src string, chunks []span.ByteRange) string {
	var b strings.Builder
	b.Grow(len(src))
	prev := 0
	for _, r := range chunks {
		start, end := int(r.Start), int(r.End)
		if start > prev {
			b.WriteString(strings.Repeat(" ", start-prev))
		}
		if end > start {
			b.WriteString(src[start:end])
		}
		if end > prev {
			prev = end
		}
	}
	if len(src) > prev {
		b.WriteString(strings.Repeat(" ", len(src)-prev))
	}
	return b.String()
}
