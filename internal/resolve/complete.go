package resolve

import (
	"cmp"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/source"
	"github.com/rust-lang/rls-sub001/internal/span"
)

// exprToPath turns a path expression as typed into a Path. A bare name
// may also refer to a crate or a primitive.
func exprToPath(expr string) (core.Path, core.Namespace) {
	global := strings.HasPrefix(expr, "::")
	path := core.NewPath(global, strings.Split(strings.TrimPrefix(expr, "::"), "::")...)
	if path.Len() == 1 {
		return path, core.NsGlobal | core.NsPath
	}
	return path, core.NsPath
}

// SortMatches orders matches by name, then position, and drops entries for
// the same declaration.
func SortMatches(ms []core.Match) []core.Match {
	slices.SortStableFunc(ms, func(a, b core.Match) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), cmp.Compare(a.Point, b.Point))
	})
	return dedup(ms)
}

// dedup drops consecutive matches for the same declaration.
func dedup(ms []core.Match) []core.Match {
	return slices.CompactFunc(ms, func(a, b core.Match) bool { return a.IsSameAs(&b) })
}

// CompleteFromFile lists the completions for the expression ending at pos
// in file, sorted by name.
func (r *Resolver) CompleteFromFile(file string, pos span.BytePos) []core.Match {
	defer r.s.Metrics().ObserveQuery("complete", time.Now())
	return SortMatches(r.completeFromFile(file, pos))
}

func (r *Resolver) completeFromFile(file string, pos span.BytePos) []core.Match {
	src := r.s.LoadSourceFile(file)
	if int(pos) > len(src.Code) {
		slog.Debug("completion point past end of file", "file", file, "pos", pos)
		return nil
	}
	start := source.GetStartOfSearchExpr(src.Code, pos)
	expr := src.Code[start:pos]
	context, search, ct := source.SplitIntoContextAndCompletion(expr)
	slog.Debug("complete", "type", ct, "context", context, "search", search)

	if ct == source.CompleteField {
		ty := r.GetTypeOf(context, file, pos)
		slog.Debug("completion context type", "type", ty)
		if ty == nil {
			return nil
		}
		return r.getFieldMatchesFromTy(ty, search, core.StartsWith)
	}

	stmtStart, stmt := source.GetCurrentStmt(src.Src(), pos)
	slog.Debug("complete path", "stmt", stmt)
	// In the name of a fn only trait methods are worth offering.
	if source.InFnName(stmt) {
		return r.resolveMethod(pos, src.Src(), expr, file, core.StartsWith, importInfo{})
	}
	var (
		path core.Path
		ns   core.Namespace
	)
	switch useStart, isUse := source.UseStmtStart(stmt); {
	case isUse:
		segs, global := source.ConstructPathFromUseTree(stmt[useStart:])
		path, ns = core.NewPath(global, segs...), core.NsPath
	case source.IsExternCrate(stmt):
		return r.searchCrateNames(search, core.StartsWith, file, false)
	default:
		if rng, ok := source.IsInStructCtor(src.Src(), stmtStart, pos); ok {
			p, _ := exprToPath(rng.Slice(src.Code))
			return r.getStructFields(p, search, file, pos, core.StartsWith)
		}
		path, ns = exprToPath(expr)
	}
	slog.Debug("complete path", "path", path, "prefix", path.Prefix)
	return r.resolvePath(path, file, pos, core.StartsWith, ns, importInfo{})
}

// FindDefinition finds the declaration the identifier at pos in file
// refers to.
func (r *Resolver) FindDefinition(file string, pos span.BytePos) (core.Match, bool) {
	defer r.s.Metrics().ObserveQuery("definition", time.Now())
	m, ok := r.findDefinition(file, pos)
	if ok {
		r.s.FillCoords(&m)
	}
	return m, ok
}

func (r *Resolver) findDefinition(file string, pos span.BytePos) (core.Match, bool) {
	src := r.s.LoadSourceFile(file)
	if int(pos) > len(src.Code) {
		return core.Match{}, false
	}
	rng := source.ExpandSearchExpr(src.Code, pos)
	expr := rng.Slice(src.Code)
	context, search, ct := source.SplitIntoContextAndCompletion(expr)
	slog.Debug("find definition", "type", ct, "context", context, "search", search)

	if ct == source.CompleteField {
		ty := r.GetTypeOf(context, file, pos)
		if ty == nil {
			return core.Match{}, false
		}
		onlyMethods := strings.HasPrefix(src.Code[rng.End:], "(")
		for _, m := range r.getFieldMatchesFromTy(ty, search, core.ExactMatch) {
			if !onlyMethods || m.Type.IsFunction() {
				return m, true
			}
		}
		return core.Match{}, false
	}

	stmtStart, stmt := source.GetCurrentStmt(src.Src(), rng.End)
	var (
		path core.Path
		ns   core.Namespace
	)
	if useStart, ok := source.UseStmtStart(stmt); ok {
		segs, global := source.ConstructPathFromUseTree(stmt[useStart:])
		path, ns = core.NewPath(global, segs...), core.NsPath
	} else if ctor, ok := source.IsInStructCtor(src.Src(), stmtStart, pos); ok {
		p, _ := exprToPath(ctor.Slice(src.Code))
		return firstMatch(r.getStructFields(p, search, file, pos, core.StartsWith))
	} else {
		path, ns = exprToPath(expr)
	}
	slog.Debug("find definition path", "path", path)
	return firstMatch(r.resolvePath(path, file, pos, core.ExactMatch, ns, importInfo{}))
}

// CompleteFullyQualifiedName completes a `::` separated name such as
// `std::fs::File` from the modules visible from file.
func (r *Resolver) CompleteFullyQualifiedName(query, file string) []core.Match {
	defer r.s.Metrics().ObserveQuery("fqn", time.Now())
	parts := strings.Split(query, "::")
	var out []core.Match
	for _, m := range r.doFileSearch(parts[0], filepath.Dir(file)) {
		if len(parts) == 1 {
			out = append(out, m)
			continue
		}
		out = append(out, r.DoExternalSearch(parts[1:], m.File, m.Point, core.StartsWith, core.NsPath)...)
	}
	return dedup(out)
}

// IsUseStmt reports whether pos in file lies in a use statement.
func (r *Resolver) IsUseStmt(file string, pos span.BytePos) bool {
	src := r.s.LoadSourceFile(file)
	if int(pos) >= len(src.Code) {
		return false
	}
	_, stmt := source.GetCurrentStmt(src.Src(), pos)
	_, ok := source.UseStmtStart(stmt)
	return ok
}

// ExpandedIdent is the identifier ending at a cursor.
type ExpandedIdent struct {
	Ident string
	Start span.BytePos
	Pos   span.BytePos
}

// ExpandIdent returns the identifier that ends at pos in file. A pos past
// the end of the file is clamped.
func (r *Resolver) ExpandIdent(file string, pos span.BytePos) ExpandedIdent {
	code := r.rawCode(file)
	pos = min(pos, span.BytePos(len(code)))
	start := source.ExpandIdentStart(code, pos)
	return ExpandedIdent{Ident: code[start:pos], Start: start, Pos: pos}
}
