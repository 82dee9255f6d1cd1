package sema

import (
	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/resolve"
	"github.com/rust-lang/rls-sub001/internal/span"
)

// Public aliases for the internal types used by the query API.

type Match = core.Match
type MatchKind = core.MatchKind
type Ty = core.Ty
type BytePos = span.BytePos
type Coordinate = span.Coordinate
type ExpandedIdent = resolve.ExpandedIdent
type ProjectModel = core.ProjectModel
type Dependency = core.Dependency
