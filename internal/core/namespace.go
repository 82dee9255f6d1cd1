package core

import (
	"strings"

	"github.com/rust-lang/rls-sub001/internal/source"
)

// Namespace limits which declaration kinds a search considers.
type Namespace uint32

const (
	NsCrate     Namespace = 0b0000000000001
	NsMod       Namespace = 0b0000000000010
	NsSpace     Namespace = 0b0000000000011
	NsEnum      Namespace = 0b0000000000100
	NsStruct    Namespace = 0b0000000001000
	NsUnion     Namespace = 0b0000000010000
	NsTrait     Namespace = 0b0000000100000
	NsTypeDef   Namespace = 0b0000001000000
	NsHasField  Namespace = 0b0000001011100
	NsType      Namespace = 0b0000001111100
	NsPathParen Namespace = 0b0000001111111
	NsConst     Namespace = 0b0000010000000
	NsStatic    Namespace = 0b0000100000000
	NsFunc      Namespace = 0b0001000000000
	NsMacro     Namespace = 0b0010000000000
	NsImpl      Namespace = 0b0001110000000
	NsPathChild Namespace = 0b0011110000000
	NsPath      Namespace = 0b0011111111111
	NsPrimitive Namespace = 0b0100000000000
	NsStdMacro  Namespace = 0b1000000000000
	NsGlobal    Namespace = 0b1100000000000
)

// Contains reports whether every bit of other is set in n.
func (n Namespace) Contains(other Namespace) bool { return n&other == other }

// Intersects reports whether n and other share any bit.
func (n Namespace) Intersects(other Namespace) bool { return n&other != 0 }

var namespaceNames = []struct {
	ns   Namespace
	name string
}{
	{NsCrate, "Crate"}, {NsMod, "Mod"}, {NsEnum, "Enum"}, {NsStruct, "Struct"},
	{NsUnion, "Union"}, {NsTrait, "Trait"}, {NsTypeDef, "TypeDef"},
	{NsConst, "Const"}, {NsStatic, "Static"}, {NsFunc, "Func"}, {NsMacro, "Macro"},
	{NsPrimitive, "Primitive"}, {NsStdMacro, "StdMacro"},
}

func (n Namespace) String() string {
	var parts []string
	for _, nn := range namespaceNames {
		if n.Contains(nn.ns) {
			parts = append(parts, nn.name)
		}
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, "|")
}

// SearchType selects exact-name matching or prefix matching for completion.
type SearchType int

const (
	ExactMatch SearchType = iota
	StartsWith
)

func (s SearchType) String() string {
	if s == StartsWith {
		return "StartsWith"
	}
	return "ExactMatch"
}

// SymbolMatches compares a candidate symbol name against the search string.
func SymbolMatches(st SearchType, search, candidate string) bool {
	if st == ExactMatch {
		return search == candidate
	}
	return strings.HasPrefix(candidate, search)
}

// TxtMatches reports whether needle occurs in haystack as a standalone
// identifier (or identifier prefix for StartsWith).
func TxtMatches(st SearchType, needle, haystack string) bool {
	_, ok := TxtMatchesWithPos(st, needle, haystack)
	return ok
}

// TxtMatchesWithPos is TxtMatches returning the offset of the first hit.
func TxtMatchesWithPos(st SearchType, needle, haystack string) (int, bool) {
	if needle == "" {
		return 0, true
	}
	for off := 0; off <= len(haystack)-len(needle); {
		i := strings.Index(haystack[off:], needle)
		if i < 0 {
			break
		}
		n := off + i
		off = n + len(needle)
		if n != 0 && source.IsIdentChar(source.CharBefore(haystack, n)) {
			continue
		}
		if st == ExactMatch {
			end := n + len(needle)
			if end != len(haystack) && source.IsIdentChar(source.CharAt(haystack, end)) {
				continue
			}
		}
		return n, true
	}
	return 0, false
}
