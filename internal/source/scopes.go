package source

import (
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rust-lang/rls-sub001/internal/span"
)

// CompletionType says whether the text before the cursor completes a path
// segment or a field/method after a dot.
type CompletionType int

const (
	CompletePath CompletionType = iota
	CompleteField
)

func (c CompletionType) String() string {
	if c == CompleteField {
		return "field"
	}
	return "path"
}

// findClose scans s for the close byte at nesting depth levelEnd and returns
// its index.
func findClose(s string, open, close byte, levelEnd int) (int, bool) {
	levels := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case close:
			if levels == levelEnd {
				return i, true
			}
			if levels == 0 {
				return 0, false
			}
			levels--
		case open:
			levels++
		}
	}
	return 0, false
}

// FindClosingParen returns the offset of the `)` that closes a paren opened
// just before pos, or len(src) when it is missing.
func FindClosingParen(src string, pos span.BytePos) span.BytePos {
	if int(pos) > len(src) {
		return span.BytePos(len(src))
	}
	if n, ok := findClose(src[pos:], '(', ')', 0); ok {
		return pos + span.BytePos(n)
	}
	return span.BytePos(len(src))
}

// EndOfNextScope returns the offset of the `}` closing the first block in
// src.
func EndOfNextScope(src string) (span.BytePos, bool) {
	n, ok := findClose(src, '{', '}', 1)
	return span.BytePos(n), ok
}

// ScopeStart returns the offset just inside the innermost `{` enclosing
// point. A closure argument list `(|x| ...` also opens a scope.
func ScopeStart(src Src, point span.BytePos) span.BytePos {
	text := src.ChangeLength(point).Text()
	clev, plev := 0, 0
	i := len(text) - 1
	for ; i >= 0; i-- {
		switch text[i] {
		case '{':
			if clev == 0 {
				return span.BytePos(i + 1)
			}
			clev--
		case '}':
			clev++
		case '(':
			if plev == 0 {
				open := span.BytePos(i + 1)
				if closureScope(src.Text(), open) {
					return open
				}
				return enclosingBrace(text[:i])
			}
			plev--
		case ')':
			plev++
		}
	}
	return 0
}

func closureScope(full string, open span.BytePos) bool {
	closing := FindClosingParen(full, open)
	if closing < open {
		return false
	}
	_, ok := ClosureValidArgScope(full[open:closing])
	return ok
}

// enclosingBrace scans text backwards for an unmatched `{`.
func enclosingBrace(text string) span.BytePos {
	levels := 0
	for i := len(text) - 1; i >= 0; i-- {
		switch text[i] {
		case '{':
			if levels == 0 {
				return span.BytePos(i + 1)
			}
			levels--
		case '}':
			levels++
		}
	}
	return 0
}

// FindStmtStart returns the start of the statement surrounding point.
func FindStmtStart(msrc Src, point span.BytePos) (span.BytePos, bool) {
	return findStmtStartInScope(msrc, point, ScopeStart(msrc, point))
}

func findStmtStartInScope(msrc Src, point, scopeStart span.BytePos) (span.BytePos, bool) {
	slog.Debug("find statement start", "scope", scopeStart, "point", point)
	for _, r := range msrc.ShiftStart(scopeStart).StmtRanges() {
		r = r.Shift(scopeStart)
		if r.Contains(point) {
			return r.Start, true
		}
	}
	return 0, false
}

// ExpectStmtStart is FindStmtStart for callers that always need a position.
// When no statement contains point it falls back to the enclosing scope
// start.
func ExpectStmtStart(msrc Src, point span.BytePos) span.BytePos {
	scope := ScopeStart(msrc, point)
	if start, ok := findStmtStartInScope(msrc, point, scope); ok {
		return start
	}
	return scope
}

// GetLocalModulePath returns the names of the inline `mod` blocks that
// enclose point, outermost first.
func GetLocalModulePath(msrc Src, point span.BytePos) []string {
	var out []string
	return localModulePath(msrc, point, out)
}

func localModulePath(msrc Src, point span.BytePos, out []string) []string {
	for _, r := range msrc.StmtRanges() {
		if !r.ContainsExclusive(point) {
			continue
		}
		blob := msrc.ShiftRange(r)
		text := blob.Text()
		start, _ := StripVisibility(text)
		if !strings.HasPrefix(text[start:], "mod") {
			continue
		}
		brace := strings.IndexByte(text[start+3:], '{')
		if brace < 0 {
			continue
		}
		inner := span.BytePos(brace) + start + 4
		out = append(out, strings.TrimSpace(text[start+3:inner-1]))
		out = localModulePath(blob.ShiftStart(inner), point-r.Start-inner, out)
	}
	return out
}

// ModuleFileFromPathAttr looks for a `#[path = "..."]` attribute on the
// module declaration that surrounds point and returns the referenced file
// when exists reports it present. raw must be the raw text for the same
// window as msrc.
func ModuleFileFromPathAttr(msrc Src, point span.BytePos, parentDir, raw string, exists func(string) bool) (string, bool) {
	stmts := msrc.StmtRanges()
	for i := 0; i < len(stmts); i++ {
		blob := stmts[i].Slice(raw)
		if !strings.HasPrefix(blob, "#[path ") || i+1 >= len(stmts) {
			continue
		}
		start := stmts[i].Start
		i++
		modEnd := stmts[i].End
		if !(start < point && modEnd > point) {
			continue
		}
		open := strings.IndexByte(blob, '"')
		if open < 0 {
			return "", false
		}
		rest := blob[open+1:]
		end := strings.IndexByte(rest, '"')
		if end < 0 {
			return "", false
		}
		path := filepath.Join(parentDir, rest[:end])
		slog.Debug("module path attribute", "path", path)
		if exists(path) {
			return path, true
		}
	}
	return "", false
}

// FindImplStart returns the start of the impl or trait block that encloses
// point, descending through nested blocks from scopeStart.
func FindImplStart(msrc Src, point, scopeStart span.BytePos) (span.BytePos, bool) {
	rel := point - scopeStart
	for _, r := range msrc.ShiftStart(scopeStart).StmtRanges() {
		if r.End <= rel {
			continue
		}
		blob := msrc.ShiftStart(scopeStart + r.Start).Text()
		if strings.HasPrefix(blob, "impl") || strings.HasPrefix(TrimVisibility(blob), "trait") {
			return scopeStart + r.Start, true
		}
		brace := strings.IndexByte(blob, '{')
		if brace < 0 {
			return 0, false
		}
		return FindImplStart(msrc, point, scopeStart+r.Start+span.BytePos(brace+1))
	}
	return 0, false
}

// SplitIntoContextAndCompletion splits a search expression at its last
// separator: `a.b.fo` gives ("a.b", "fo", field) and `a::b::fo` gives
// ("a::b", "fo", path).
func SplitIntoContextAndCompletion(s string) (string, string, CompletionType) {
	for i := len(s); i > 0; {
		r, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
		if IsIdentChar(r) {
			continue
		}
		switch {
		case r == '.':
			return s[:i], s[i+1:], CompleteField
		case r == ':' && len(s) > 1 && i >= 1:
			return s[:i-1], s[i+1:], CompletePath
		}
		return s[:i+size], s[i+size:], CompletePath
	}
	return "", s, CompletePath
}

type exprState int

const (
	exNone exprState = iota
	exParen
	exBracket
	exString
	exChar
	exStartsWithDot
	exMustEndWithDot
	exStartsWithColon
)

// GetStartOfSearchExpr scans backwards from point to the start of the
// expression being completed. Whitespace is allowed around `.` and `::` so
// that multi-line method chains expand as one expression.
func GetStartOfSearchExpr(src string, point span.BytePos) span.BytePos {
	if int(point) > len(src) {
		point = span.BytePos(len(src))
	}
	st, n := exNone, 0
	for i := int(point) - 1; i >= 0; i-- {
		c := src[i]
		ws := c < 0x80 && IsWhitespaceByte(c)
		switch {
		case c == '(' && st == exNone:
			return span.BytePos(i + 1)
		case c == '(' && st == exParen:
			n--
			if n == 0 {
				st = exNone
			}
		case c == ')' && st == exParen:
			n++
		case c == ')' && (st == exNone || st == exStartsWithDot):
			st, n = exParen, 1
		case c == '[' && st == exNone:
			return span.BytePos(i + 1)
		case c == '[' && st == exBracket:
			n--
			if n == 0 {
				st = exNone
			}
		case c == ']' && st == exBracket:
			n++
		case c == ']' && st == exStartsWithDot:
			st, n = exBracket, 1
		case c == '.' && st == exNone:
			st = exStartsWithDot
		case c == '.' && st == exStartsWithDot:
			return span.BytePos(i + 2)
		case c == '.' && st == exMustEndWithDot:
			st = exNone
		case c == ':' && st == exMustEndWithDot:
			st = exStartsWithColon
		case c == ':' && st == exStartsWithColon:
			st = exNone
		case c == '"' && (st == exNone || st == exStartsWithDot):
			st = exString
		case c == '"' && st == exString:
			st = exNone
		case c == '?' && st == exStartsWithDot:
			st = exNone
		case c == '\'' && (st == exNone || st == exStartsWithDot):
			st = exChar
		case c == '\'' && st == exChar:
			st = exNone
		case st == exChar, st == exString:
		case st == exStartsWithColon:
			return span.BytePos(n)
		case st == exNone && ws:
			st, n = exMustEndWithDot, i+1
		case st == exMustEndWithDot && ws:
		case st == exStartsWithDot && ws:
		case st == exMustEndWithDot:
			return span.BytePos(n)
		case st == exNone && !searchExprByte(c):
			return span.BytePos(i + 1)
		case st == exNone, st == exParen, st == exBracket:
		case st == exStartsWithDot && searchExprByte(c):
			st = exNone
		case st == exStartsWithDot:
			return span.BytePos(i + 1)
		}
	}
	return 0
}

// GetStartOfPattern scans backwards from point to the start of a match-arm
// pattern.
func GetStartOfPattern(src string, point span.BytePos) span.BytePos {
	levels := 0
	for i := int(point) - 1; i >= 0; i-- {
		switch b := src[i]; b {
		case '(':
			if levels == 0 {
				return span.BytePos(i + 1)
			}
			levels--
		case ')':
			levels++
		default:
			if levels == 0 && !patternByte(b) {
				return span.BytePos(i + 1)
			}
		}
	}
	return 0
}

// ExpandSearchExpr returns the range of the whole search expression around
// point.
func ExpandSearchExpr(msrc string, point span.BytePos) span.ByteRange {
	return span.NewRange(GetStartOfSearchExpr(msrc, point), FindIdentEnd(msrc, point))
}

// MaskSubScopes blanks out the contents of every nested block in src while
// keeping newlines and the braces themselves.
func MaskSubScopes(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	gap := func(n int) {
		if n > 0 {
			b.WriteString(strings.Repeat(" ", n))
		}
	}
	levels, start, pos := 0, 0, 0
	for i := 0; i < len(src); i++ {
		pos++
		switch c := src[i]; {
		case c == '{':
			if levels == 0 && start <= pos {
				b.WriteString(src[start:pos])
				start = pos + 1
			}
			levels++
		case c == '}':
			if levels == 1 {
				gap(pos - start)
				b.WriteByte('}')
				start = pos
			}
			levels--
		case c == '\n' && levels > 0:
			gap(pos - start)
			b.WriteByte('\n')
			start = pos + 1
		}
	}
	if start > pos {
		start = pos
	}
	if levels > 0 {
		gap(pos - start)
	} else {
		b.WriteString(src[start:pos])
	}
	return b.String()
}

// UseStmtStart returns the offset of the path in a use statement, skipping
// visibility and the `use` keyword.
func UseStmtStart(line string) (span.BytePos, bool) {
	vis, _ := StripVisibility(line)
	n, ok := StripWord(line[vis:], "use")
	return n + vis, ok
}

// IsExternCrate reports whether line is an `extern crate` item.
func IsExternCrate(line string) bool {
	vis, _ := StripVisibility(line)
	n, ok := StripWord(line[vis:], "extern")
	return ok && strings.HasPrefix(line[vis+n:], "crate ")
}

// nextUseItem finds the `::` that precedes the tree item ending expr,
// jumping over sibling items separated by commas.
func nextUseItem(expr string) (int, bool) {
	before := byte(' ')
	for i := len(expr) - 1; i >= 0; i-- {
		cur := expr[i]
		if before == ':' && cur == ':' {
			return i, true
		}
		if cur == ',' {
			for i > 0 && expr[i] != '{' {
				i--
			}
		}
		before = cur
	}
	return 0, false
}

// ConstructPathFromUseTree rebuilds the path leading to the end of a partial
// use tree. `std::{collections::{HashMap, hash_ma` yields
// [std collections hash_ma]. global is set for a leading `::`.
func ConstructPathFromUseTree(expr string) (segments []string, global bool) {
	if expr == "" {
		return nil, false
	}
	identEnd, inIdent := len(expr)-1, true
	i := len(expr)
	for i > 0 {
		i--
		if identByte(expr[i]) {
			if !inIdent {
				identEnd, inIdent = i, true
			}
			continue
		}
		if inIdent {
			segments = append(segments, expr[i+1:identEnd+1])
			inIdent = false
		}
		if p, ok := nextUseItem(expr[:i+1]); ok {
			i = p
			continue
		}
		break
	}
	if inIdent {
		segments = append(segments, expr[:identEnd+1])
	}
	for l, r := 0, len(segments)-1; l < r; l, r = l+1, r-1 {
		segments[l], segments[r] = segments[r], segments[l]
	}
	return segments, strings.HasPrefix(expr, "::")
}

// GetCurrentStmt returns the start of the statement containing pos and its
// text up to pos. Inside a `use a::{...}` group the whole use statement is
// the statement.
func GetCurrentStmt(src Src, pos span.BytePos) (span.BytePos, string) {
	text := src.Text()
	scope := ScopeStart(src, pos)
	if scope > 0 && strings.HasSuffix(text[:scope], "::{") {
		if u := strings.LastIndex(text[:pos], "use"); u >= 0 {
			scope = ScopeStart(src, span.BytePos(u))
		}
	}
	lineStart, ok := findStmtStartInScope(src, pos, scope)
	if !ok {
		// The statement being typed is unterminated and ran into the
		// closing brace; split only the text before the cursor.
		lineStart = scope
		if stmts := src.ShiftStart(scope).ChangeLength(pos - scope).StmtRanges(); len(stmts) > 0 {
			lineStart = scope + stmts[len(stmts)-1].Start
		}
	}
	stmt := strings.TrimSpace(text[lineStart:pos])
	if semi := strings.LastIndexByte(stmt, ';'); semi >= 0 {
		stmt = strings.TrimSpace(stmt[semi+1:])
	}
	return lineStart, stmt
}

var (
	ctorAllowSymbols   = []byte{'{', '(', '|', ';', ','}
	ctorAllowKeywords  = []string{"let", "mut", "ref"}
	ctorInhibitKeyword = []string{"unsafe", "async"}
)

// IsInStructCtor reports whether pos is at a field name inside a struct
// literal whose block starts at stmtStart, and returns the range of the
// struct path.
func IsInStructCtor(src Src, stmtStart, pos span.BytePos) (span.ByteRange, bool) {
	text := src.Text()
	if stmtStart <= 3 || int(stmtStart) > len(text) || text[stmtStart-1] != '{' || pos <= stmtStart {
		return span.ByteRange{}, false
	}
	// a ':' after the last ',' means the cursor is in a field value
	for i := int(pos) - 1; i >= int(stmtStart); i-- {
		if text[i] == ',' {
			break
		}
		if text[i] == ':' {
			return span.ByteRange{}, false
		}
	}
	head := text[:stmtStart-1]
	const (
		initial = iota
		name
		done
	)
	state, end := initial, 0
	var found span.ByteRange
scan:
	for i := len(head) - 1; i >= 0; i-- {
		b := head[i]
		switch state {
		case initial:
			switch {
			case IsWhitespaceByte(b):
			case identByte(b):
				state, end = name, i
			default:
				return span.ByteRange{}, false
			}
		case name:
			switch {
			case b == ':' || identByte(b):
			case IsWhitespaceByte(b):
				found = rangeOf(i+1, end+1)
				if containsString(ctorInhibitKeyword, head[i+1:end+1]) {
					return span.ByteRange{}, false
				}
				state = done
			case containsByte(ctorAllowSymbols, b):
				return rangeOf(i+1, end+1), true
			default:
				return span.ByteRange{}, false
			}
		case done:
			switch {
			case identByte(b):
				for _, kw := range ctorAllowKeywords {
					if strings.HasSuffix(head[:i+1], kw) {
						break scan
					}
				}
				return span.ByteRange{}, false
			case IsWhitespaceByte(b):
			case containsByte(ctorAllowSymbols, b):
				break scan
			default:
				return span.ByteRange{}, false
			}
		}
	}
	switch state {
	case name:
		if containsString(ctorInhibitKeyword, head[:end+1]) {
			return span.ByteRange{}, false
		}
		return rangeOf(0, end+1), true
	case done:
		return found, true
	}
	return span.ByteRange{}, false
}

func containsByte(set []byte, b byte) bool {
	for _, c := range set {
		if c == b {
			return true
		}
	}
	return false
}

func containsString(set []string, s string) bool {
	for _, c := range set {
		if c == s {
			return true
		}
	}
	return false
}
