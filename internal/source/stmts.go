package source

import (
	"github.com/rust-lang/rls-sub001/internal/span"
)

// StmtRanges splits masked source into top-level statement ranges. Leading
// whitespace is not part of a statement. Parens, brackets and braces are
// balanced; an attribute ends at its `]`, a macro invocation at its `)` and
// a block-bodied item (fn, impl, struct, if, ...) at its closing `}`. A `}`
// closing the enclosing scope stops the iteration. A trailing unterminated
// statement is returned as is.
//
// The input must already be masked; see Mask.
func StmtRanges(src string) []span.ByteRange {
	var out []span.ByteRange
	pos := 0
	for {
		r, next, ok := nextStmt(src, pos)
		if !ok {
			return out
		}
		out = append(out, r)
		pos = next
	}
}

func nextStmt(src string, pos int) (span.ByteRange, int, bool) {
	end := len(src)
	for pos < end && IsWhitespaceByte(src[pos]) {
		pos++
	}
	start := pos
	endDelim := byte(';')
	if pos < end && src[pos] == '#' {
		endDelim = ']'
	}
	braces, parens, brackets := 0, 0, 0
	for pos < end {
		b := src[pos]
		pos++
		switch b {
		case '(':
			parens++
		case ')':
			parens--
		case '[':
			brackets++
		case ']':
			brackets--
		case '{':
			// At the top level a brace finishes anything but `use` and `let`.
			if braces == 0 && parens == 0 && !isUseStmt(src[start:pos]) && !isLetStmt(src, start) {
				endDelim = '}'
			}
			braces++
		case '}':
			if braces == 0 {
				// end of the enclosing scope
				return span.ByteRange{}, pos, false
			}
			braces--
		case '!':
			if parens == 0 && braces == 0 && pos < end && pos-start > 1 {
				switch src[pos] {
				case ' ', '\r', '\n', '\t', '(':
					endDelim = ')'
				}
			}
		}
		if parens < 0 || braces < 0 || brackets < 0 ||
			(b == endDelim && braces == 0 && parens == 0 && brackets == 0) {
			return rangeOf(start, pos), pos, true
		}
	}
	if start < end {
		return rangeOf(start, end), pos, true
	}
	return span.ByteRange{}, pos, false
}

func isUseStmt(s string) bool {
	_, ok := UseStmtStart(s)
	return ok
}

func isLetStmt(src string, start int) bool {
	return start+4 <= len(src) && src[start:start+3] == "let" && IsWhitespaceByte(src[start+3])
}
