package sema

import (
	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/resolve"
	"github.com/rust-lang/rls-sub001/internal/source"
)

// Session queries one snapshot of the sources. Results computed in a
// session, such as the generic impls of a file, are reused by its later
// queries.
type Session struct {
	s *core.Session
	r *resolve.Resolver
}

// CompleteFromFile lists the completions of the expression ending at pos
// in path, sorted by name then position, without duplicates.
func (s *Session) CompleteFromFile(path string, pos BytePos) []Match {
	return s.r.CompleteFromFile(path, pos)
}

// CompleteAt is CompleteFromFile at a coordinate.
func (s *Session) CompleteAt(path string, c Coordinate) []Match {
	pos, ok := s.ToPoint(path, c)
	if !ok {
		return nil
	}
	return s.CompleteFromFile(path, pos)
}

// FindDefinition finds the declaration the identifier at pos refers to.
// The returned match has its coordinates filled in.
func (s *Session) FindDefinition(path string, pos BytePos) (Match, bool) {
	return s.r.FindDefinition(path, pos)
}

// DefinitionAt is FindDefinition at a coordinate.
func (s *Session) DefinitionAt(path string, c Coordinate) (Match, bool) {
	pos, ok := s.ToPoint(path, c)
	if !ok {
		return Match{}, false
	}
	return s.FindDefinition(path, pos)
}

// CompleteFullyQualifiedName completes a `::` separated name such as
// `std::fs::Fi` against the modules visible from path.
func (s *Session) CompleteFullyQualifiedName(name, path string) []Match {
	return resolve.SortMatches(s.r.CompleteFullyQualifiedName(name, path))
}

// TypeOf infers the type of the expression around pos.
func (s *Session) TypeOf(path string, pos BytePos) (Ty, bool) {
	code := s.s.LoadSourceFile(path).Code
	if int(pos) > len(code) {
		return nil, false
	}
	rng := source.ExpandSearchExpr(code, pos)
	if rng.Len() == 0 {
		return nil, false
	}
	ty := s.r.GetTypeOf(rng.Slice(code), path, rng.End)
	return ty, ty != nil
}

// TypeAt is TypeOf at a coordinate.
func (s *Session) TypeAt(path string, c Coordinate) (Ty, bool) {
	pos, ok := s.ToPoint(path, c)
	if !ok {
		return nil, false
	}
	return s.TypeOf(path, pos)
}

// Snippet renders the text an editor inserts for m, with placeholders for
// function arguments.
func (s *Session) Snippet(m Match) string {
	return s.r.SnippetForMatch(m)
}

func (s *Session) ToPoint(path string, c Coordinate) (BytePos, bool) {
	return s.s.ToPoint(path, c)
}

func (s *Session) ToCoords(path string, pos BytePos) (Coordinate, bool) {
	return s.s.ToCoords(path, pos)
}

// ExpandIdent returns the identifier ending at pos.
func (s *Session) ExpandIdent(path string, pos BytePos) ExpandedIdent {
	return s.r.ExpandIdent(path, pos)
}

// IsUseStmt reports whether pos lies in a use statement.
func (s *Session) IsUseStmt(path string, pos BytePos) bool {
	return s.r.IsUseStmt(path, pos)
}
