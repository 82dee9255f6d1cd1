// Package resolve finds the declarations a name refers to and infers the
// types of expressions. It works on masked source text: statements are
// located with the scanners in package source, and only the fragments that
// matter are handed to the parser.
//
// Every function here is fail-open. A lookup that cannot be completed
// yields no matches; nothing returns an error.
package resolve

import (
	"log/slog"
	"slices"

	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/span"
)

// globLimit bounds how many glob imports a single lookup follows in a
// chain. Deeper chains are common in std and rarely lead anywhere useful.
const globLimit = 2

// maxDepth bounds the nesting of path resolutions. Legitimate lookups stay
// far below it; hitting it means a cycle the import guard did not catch.
const maxDepth = 96

// Resolver answers resolution queries against one Session.
type Resolver struct {
	s     *core.Session
	depth int
}

// New returns a Resolver reading files through s.
func New(s *core.Session) *Resolver {
	return &Resolver{s: s}
}

// Session returns the session the resolver reads from.
func (r *Resolver) Session() *core.Session { return r.s }

// enter guards a recursive resolution step. The returned func must be
// deferred.
func (r *Resolver) enter(what string) (func(), bool) {
	if r.depth >= maxDepth {
		slog.Debug("resolution depth exceeded", "at", what)
		return func() {}, false
	}
	r.depth++
	return func() { r.depth-- }, true
}

// matchCxt describes one statement being tested against a search string.
// rng is absolute within file.
type matchCxt struct {
	file   string
	search string
	rng    span.ByteRange
	st     core.SearchType
	local  bool
}

// pendingImport identifies a use statement currently being resolved.
type pendingImport struct {
	file string
	rng  span.ByteRange
}

// importInfo is threaded through path resolution. It records the use
// statements on the current resolution stack and how many more glob
// imports may be followed. It is passed by value; each use statement
// extends a copy.
type importInfo struct {
	pending []pendingImport
	limited bool
	globs   int
}

func (ii importInfo) isPending(p pendingImport) bool {
	return slices.Contains(ii.pending, p)
}

func (ii importInfo) push(p pendingImport) importInfo {
	return importInfo{
		pending: append(slices.Clip(ii.pending), p),
		limited: ii.limited,
		globs:   ii.globs,
	}
}

// firstMatch returns the first element of ms.
func firstMatch(ms []core.Match) (core.Match, bool) {
	if len(ms) == 0 {
		return core.Match{}, false
	}
	return ms[0], true
}
