package source

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rust-lang/rls-sub001/internal/span"
)

// IsIdentChar reports whether r can be part of an identifier. '!' counts so
// that macro names expand as a single word.
func IsIdentChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || r == '!'
}

// IsSearchExprChar reports whether r can be part of a dotted or pathed
// search expression such as `a::b.c`.
func IsSearchExprChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || r == ':' || r == '.'
}

// IsPatternChar reports whether r can be part of a match-arm pattern.
func IsPatternChar(r rune) bool {
	return IsSearchExprChar(r) || unicode.IsSpace(r)
}

// IsWhitespaceByte reports whether b is ASCII whitespace.
func IsWhitespaceByte(b byte) bool {
	return b == ' ' || b == '\r' || b == '\n' || b == '\t'
}

// Byte scanners walk strings backwards one byte at a time. Bytes of a
// multi-byte sequence are treated as letters, which is what every non-ASCII
// character in Rust source outside a literal is.
func identByte(b byte) bool {
	return b >= utf8.RuneSelf || IsIdentChar(rune(b))
}

func searchExprByte(b byte) bool {
	return b >= utf8.RuneSelf || IsSearchExprChar(rune(b))
}

func patternByte(b byte) bool {
	return b >= utf8.RuneSelf || IsPatternChar(rune(b))
}

// CharAt returns the rune starting at byte offset i.
func CharAt(s string, i int) rune {
	if i < 0 || i >= len(s) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return r
}

// CharBefore returns the last rune that starts before byte offset i, or 0
// when there is none. Offsets past the end are clamped, and an offset inside
// a multi-byte rune yields that rune.
func CharBefore(s string, i int) rune {
	if i > len(s) {
		i = len(s)
	}
	if i <= 0 {
		return 0
	}
	j := i - 1
	for j > 0 && !utf8.RuneStart(s[j]) {
		j--
	}
	r, _ := utf8.DecodeRuneInString(s[j:])
	return r
}

// FindIdentEnd returns the offset just past the identifier that starts at
// pos.
func FindIdentEnd(s string, pos span.BytePos) span.BytePos {
	if int(pos) >= len(s) {
		return span.BytePos(len(s))
	}
	for i, r := range s[pos:] {
		if !IsIdentChar(r) {
			return pos + span.BytePos(i)
		}
	}
	return span.BytePos(len(s))
}

// ExpandIdentStart walks backwards from pos over identifier characters and
// returns where the identifier begins.
func ExpandIdentStart(s string, pos span.BytePos) span.BytePos {
	if int(pos) > len(s) {
		pos = span.BytePos(len(s))
	}
	start := pos
	for i := int(pos); i > 0; {
		r, size := utf8.DecodeLastRuneInString(s[:i])
		if !IsIdentChar(r) {
			break
		}
		i -= size
		start = span.BytePos(i)
	}
	return start
}

func stripWordImpl(src string, allowParen bool) (span.BytePos, bool) {
	level := 0
	for i := 0; i < len(src); i++ {
		b := src[i]
		switch {
		case b == '(' && allowParen:
			level++
		case b == ')' && allowParen:
			level--
		case level >= 1:
		case !IsWhitespaceByte(b):
			if i == 0 {
				return 0, false
			}
			return span.BytePos(i), true
		}
	}
	return 0, false
}

// StripVisibility returns the offset after a leading `pub`, `pub(..)` or
// `crate` qualifier.
func StripVisibility(src string) (span.BytePos, bool) {
	switch {
	case strings.HasPrefix(src, "pub"):
		if n, ok := stripWordImpl(src[3:], true); ok {
			return n + 3, true
		}
	case strings.HasPrefix(src, "crate"):
		if n, ok := stripWordImpl(src[5:], false); ok {
			return n + 5, true
		}
	}
	return 0, false
}

// StripWord returns the offset after word and the whitespace following it.
// The word must be followed by at least one whitespace byte.
func StripWord(src, word string) (span.BytePos, bool) {
	if !strings.HasPrefix(src, word) {
		return 0, false
	}
	n, ok := stripWordImpl(src[len(word):], false)
	if !ok {
		return 0, false
	}
	return n + span.BytePos(len(word)), true
}

// StripWords strips each of words in order when present.
func StripWords(src string, words ...string) span.BytePos {
	var start span.BytePos
	for _, w := range words {
		if n, ok := StripWord(src[start:], w); ok {
			start += n
		}
	}
	return start
}

// TrimVisibility removes a leading visibility qualifier from blob.
func TrimVisibility(blob string) string {
	if start, ok := StripVisibility(blob); ok {
		return blob[start:]
	}
	return blob
}

// InFnName reports whether the text before the cursor ends inside the name
// of a function being declared.
func InFnName(lineBeforePoint string) bool {
	hasStartedName := lineBeforePoint != "" && !unicode.IsSpace(lastRune(lineBeforePoint))
	words := strings.Fields(lineBeforePoint)
	if hasStartedName && len(words) > 0 {
		ident := words[len(words)-1]
		words = words[:len(words)-1]
		for _, r := range ident {
			if !IsIdentChar(r) {
				return false
			}
		}
	}
	return len(words) > 0 && words[len(words)-1] == "fn"
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

// ClosureValidArgScope finds the first `|...|` argument list in src. The
// second pipe must be at brace depth zero and no `;` may appear in between.
func ClosureValidArgScope(src string) (span.ByteRange, bool) {
	left := strings.IndexByte(src, '|')
	if left < 0 {
		return span.ByteRange{}, false
	}
	braces := 0
	for i := left + 1; i < len(src); i++ {
		switch src[i] {
		case '{':
			braces++
		case '}':
			braces--
		case '|':
			if braces == 0 {
				return span.NewRange(span.BytePos(left), span.BytePos(i+1)), true
			}
			return span.ByteRange{}, false
		case ';':
			return span.ByteRange{}, false
		}
		if braces < 0 {
			return span.ByteRange{}, false
		}
	}
	return span.ByteRange{}, false
}

// FindClosure locates a closure in src and returns the range of its
// argument list and of its body.
func FindClosure(src string) (args, body span.ByteRange, ok bool) {
	args, ok = ClosureValidArgScope(src)
	if !ok {
		return args, body, false
	}
	i := int(args.End)
	for i < len(src) && unicode.IsSpace(rune(src[i])) {
		i++
	}
	if i >= len(src) {
		return args, body, false
	}
	first := src[i]
	start := i
	clevel, plevel := 0, 0
	if first == '{' {
		start = i + 1
		clevel = 1
	}
	last := -1
scan:
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '{':
			clevel++
		case '(':
			plevel++
		case '}':
			clevel--
			if (clevel == 0 && first == '{') || clevel == -1 {
				last = j
				break scan
			}
		case ';':
			if first != '{' {
				last = j
				break scan
			}
		case ')':
			plevel--
			if plevel == 0 {
				last = j + 1
			}
			if plevel == -1 {
				last = j + 1
				break scan
			}
		}
	}
	if last < 0 {
		return args, body, false
	}
	return args, span.NewRange(span.BytePos(start), span.BytePos(last)), true
}
