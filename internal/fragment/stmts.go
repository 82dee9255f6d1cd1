package fragment

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/rust-lang/rls-sub001/internal/core"
)

// ParseExpr returns the expression a statement evaluates: the expression
// itself, or the initializer of a let.
func ParseExpr(text string, scope core.Scope) (Expr, bool) {
	var out Expr
	withStmt(text, scope, func(f *fragment, stmt *sitter.Node) {
		out = f.stmtExpr(stmt)
	})
	return out, out != nil
}

// LetStmt is a parsed let binding. Ty is the annotation, if any; Init is
// nil without an initializer.
type LetStmt struct {
	Pat  core.Pat
	Ty   core.Ty
	Init Expr
}

// ParseLet parses a let statement.
func ParseLet(text string, scope core.Scope) (LetStmt, bool) {
	var (
		out LetStmt
		ok  bool
	)
	withStmt(text, scope, func(f *fragment, stmt *sitter.Node) {
		if stmt.Type() != "let_declaration" {
			return
		}
		ok = true
		out.Pat = f.pat(stmt.ChildByFieldName("pattern"))
		if t := stmt.ChildByFieldName("type"); t != nil {
			out.Ty = f.ty(t)
		}
		if v := stmt.ChildByFieldName("value"); v != nil {
			out.Init = f.expr(v)
		}
	})
	return out, ok
}

// ParseMatch finds the match expression a statement consists of, directly
// or as a let initializer.
func ParseMatch(text string, scope core.Scope) (MatchExpr, bool) {
	var (
		out MatchExpr
		ok  bool
	)
	withStmt(text, scope, func(f *fragment, stmt *sitter.Node) {
		n := stmt
		if n.Type() == "let_declaration" {
			n = stmt.ChildByFieldName("value")
		}
		if n == nil || n.Type() != "match_expression" {
			return
		}
		out, ok = f.match(n), true
	})
	return out, ok
}

// Binding is a pattern together with the expression it destructures.
type Binding struct {
	Pat   core.Pat
	Value Expr
}

// ParseForStmt parses `for pat in expr { .. }`.
func ParseForStmt(text string, scope core.Scope) (Binding, bool) {
	var (
		out Binding
		ok  bool
	)
	withStmt(text, scope, func(f *fragment, stmt *sitter.Node) {
		if stmt.Type() != "for_expression" {
			return
		}
		out = Binding{Pat: f.pat(stmt.ChildByFieldName("pattern")), Value: f.expr(stmt.ChildByFieldName("value"))}
		ok = true
	})
	return out, ok
}

// ParseIfLet parses the binding of an `if let` or `while let`.
func ParseIfLet(text string, scope core.Scope) (Binding, bool) {
	var (
		out Binding
		ok  bool
	)
	withStmt(text, scope, func(f *fragment, stmt *sitter.Node) {
		var pat, value *sitter.Node
		switch stmt.Type() {
		case "if_expression", "while_expression":
			cond := stmt.ChildByFieldName("condition")
			if cond == nil || cond.Type() != "let_condition" {
				return
			}
			pat, value = cond.ChildByFieldName("pattern"), cond.ChildByFieldName("value")
		case "if_let_expression", "while_let_expression":
			pat, value = stmt.ChildByFieldName("pattern"), stmt.ChildByFieldName("value")
		default:
			return
		}
		out = Binding{Pat: f.pat(pat), Value: f.expr(value)}
		ok = true
	})
	return out, ok
}
