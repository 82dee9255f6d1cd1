package core

import (
	"fmt"
	"strings"

	"github.com/rust-lang/rls-sub001/internal/span"
)

// PathPrefix is a leading qualifier that changes where a path starts
// resolving.
type PathPrefix int

const (
	PrefixNone PathPrefix = iota
	PrefixCrate
	PrefixSuper
	PrefixSelf
	PrefixGlobal
)

// ParsePathPrefix maps a leading segment to its prefix, if it is one.
func ParsePathPrefix(s string) (PathPrefix, bool) {
	switch s {
	case "crate":
		return PrefixCrate, true
	case "super":
		return PrefixSuper, true
	case "self":
		return PrefixSelf, true
	case "{{root}}":
		return PrefixGlobal, true
	}
	return PrefixNone, false
}

func (p PathPrefix) String() string {
	switch p {
	case PrefixCrate:
		return "crate"
	case PrefixSuper:
		return "super"
	case PrefixSelf:
		return "self"
	case PrefixGlobal:
		return "{{root}}"
	}
	return ""
}

// PathSegment is one `::`-separated component of a path. Output is set for
// parenthesized generic arguments such as `Fn(A) -> B`.
type PathSegment struct {
	Name     string
	Generics []Ty
	Output   Ty
}

// Path is a possibly prefixed sequence of segments.
type Path struct {
	Prefix   PathPrefix
	Segments []PathSegment
}

// NewPath builds a path from segment names. When global is false a leading
// prefix keyword becomes the path's Prefix instead of a segment.
func NewPath(global bool, names ...string) Path {
	var p Path
	if global {
		p.Prefix = PrefixGlobal
	}
	for i, n := range names {
		if i == 0 && p.Prefix == PrefixNone {
			if pre, ok := ParsePathPrefix(n); ok {
				p.Prefix = pre
				continue
			}
		}
		p.Segments = append(p.Segments, PathSegment{Name: n})
	}
	return p
}

// SinglePath returns a one-segment path.
func SinglePath(seg PathSegment) Path {
	return Path{Segments: []PathSegment{seg}}
}

// NamePath returns a one-segment path with no generics.
func NamePath(name string) Path {
	return SinglePath(PathSegment{Name: name})
}

func (p Path) IsSingle() bool { return len(p.Segments) == 1 }

func (p Path) Len() int { return len(p.Segments) }

// Name returns the last segment's name.
func (p Path) Name() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1].Name
}

// GenericTypes returns the generic arguments of the last segment.
func (p Path) GenericTypes() []Ty {
	if len(p.Segments) == 0 {
		return nil
	}
	return p.Segments[len(p.Segments)-1].Generics
}

// Parent returns the path without its last segment.
func (p Path) Parent() Path {
	if len(p.Segments) == 0 {
		return p
	}
	return Path{Prefix: p.Prefix, Segments: p.Segments[:len(p.Segments)-1:len(p.Segments)-1]}
}

// WithPrefix moves a leading prefix keyword segment into Prefix.
func (p Path) WithPrefix() Path {
	if p.Prefix != PrefixNone || len(p.Segments) == 0 {
		return p
	}
	if pre, ok := ParsePathPrefix(p.Segments[0].Name); ok {
		return Path{Prefix: pre, Segments: p.Segments[1:]}
	}
	return p
}

// Extend returns p followed by the segments of other.
func (p Path) Extend(other Path) Path {
	segs := make([]PathSegment, 0, len(p.Segments)+len(other.Segments))
	segs = append(segs, p.Segments...)
	segs = append(segs, other.Segments...)
	return Path{Prefix: p.Prefix, Segments: segs}
}

// ReplaceByBounds substitutes generic arguments that name a type parameter
// of gen by that parameter's resolved type, or by the parameter itself.
func (p Path) ReplaceByBounds(gen *GenericsArgs) Path {
	if gen == nil || len(gen.Params) == 0 {
		return p
	}
	segs := make([]PathSegment, len(p.Segments))
	for i, seg := range p.Segments {
		segs[i] = seg
		if len(seg.Generics) == 0 {
			continue
		}
		generics := make([]Ty, len(seg.Generics))
		for j, g := range seg.Generics {
			generics[j] = g
			ps, ok := g.(TyPathSearch)
			if !ok {
				continue
			}
			if _, param, found := gen.SearchParamByPath(ps.Path); found {
				if param.Resolved != nil {
					generics[j] = param.Resolved
				} else {
					generics[j] = TyMatch{Match: param.IntoMatch()}
				}
				continue
			}
			ps.Path = ps.Path.ReplaceByBounds(gen)
			generics[j] = ps
		}
		segs[i].Generics = generics
	}
	return Path{Prefix: p.Prefix, Segments: segs}
}

func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p.Segments {
		if i > 0 {
			b.WriteString("::")
		}
		b.WriteString(seg.Name)
		if len(seg.Generics) > 0 {
			b.WriteByte('<')
			for j, g := range seg.Generics {
				if j > 0 {
					b.WriteString(", ")
				}
				b.WriteString(g.String())
			}
			b.WriteByte('>')
		}
	}
	return b.String()
}

// Scope is a lexical search origin: a file and a byte offset within it.
type Scope struct {
	File  string
	Point span.BytePos
}

// ScopeOf returns the scope located at a match's declaration.
func ScopeOf(m *Match) Scope {
	return Scope{File: m.File, Point: m.Point}
}

func (s Scope) String() string {
	return fmt.Sprintf("Scope[%s, %d]", s.File, s.Point)
}

// PathSearch is a path together with the scope it must be resolved from.
type PathSearch struct {
	Path  Path
	File  string
	Point span.BytePos
}

// NewPathSearch pairs a path with a scope.
func NewPathSearch(p Path, sc Scope) PathSearch {
	return PathSearch{Path: p, File: sc.File, Point: sc.Point}
}

func (ps PathSearch) Scope() Scope { return Scope{File: ps.File, Point: ps.Point} }

// PathAliasKind distinguishes the items a use tree can bring into scope.
type PathAliasKind int

const (
	AliasIdent PathAliasKind = iota
	AliasSelf
	AliasGlob
)

// PathAlias is one leaf of a use tree. For AliasIdent and AliasSelf, Ident
// is the imported name and RenamePos, when set, locates an `as` rename.
type PathAlias struct {
	Kind      PathAliasKind
	Ident     string
	RenamePos *span.BytePos
	Path      Path
	Range     span.ByteRange
}
