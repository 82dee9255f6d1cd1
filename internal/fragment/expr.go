package fragment

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/span"
)

// Expr is an expression reduced to the forms type inference understands.
// Anything else becomes UnknownExpr.
type Expr interface {
	isExpr()
}

// PathExpr is a path used as a value. Pos is the path's start within the
// fragment.
type PathExpr struct {
	Path core.Path
	Pos  span.BytePos
}

type CallExpr struct {
	Func Expr
	Args []Expr
}

type MethodCallExpr struct {
	Receiver Expr
	Method   string
	Args     []Expr
}

// FieldExpr is `value.field`; tuple indices are kept as their digits.
type FieldExpr struct {
	Value Expr
	Field string
}

// StructExpr is a struct literal `Path { .. }`.
type StructExpr struct {
	Path core.Path
}

type TupleExpr struct {
	Elems []Expr
}

type ArrayExpr struct {
	Elems []Expr
}

// LitExpr is a literal. Len is the byte length of a byte string literal.
type LitExpr struct {
	Prim       core.PrimKind
	ByteString bool
	Len        int
}

// TryExpr is the `?` operator.
type TryExpr struct {
	Value Expr
}

type MatchArm struct {
	Pat  core.Pat
	Body Expr
}

type MatchExpr struct {
	Value Expr
	Arms  []MatchArm
}

// IfExpr keeps the value of the then block (its last statement) and the
// else branch.
type IfExpr struct {
	Then Expr
	Else Expr
}

// BlockExpr keeps the block's last statement.
type BlockExpr struct {
	Last Expr
}

type IndexExpr struct {
	Value Expr
	Index Expr
}

// MacroExpr is a macro invocation; Name is the macro's last path segment.
type MacroExpr struct {
	Name string
}

// BinaryExpr carries the operator as written (`+`, `==`, `&&` ...).
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

// UnaryExpr covers `-x`, `!x`, `*x` and borrows `&x`.
type UnaryExpr struct {
	Op    string
	Value Expr
}

type UnknownExpr struct {
	Kind string
}

func (PathExpr) isExpr()       {}
func (CallExpr) isExpr()       {}
func (MethodCallExpr) isExpr() {}
func (FieldExpr) isExpr()      {}
func (StructExpr) isExpr()     {}
func (TupleExpr) isExpr()      {}
func (ArrayExpr) isExpr()      {}
func (LitExpr) isExpr()        {}
func (TryExpr) isExpr()        {}
func (MatchExpr) isExpr()      {}
func (IfExpr) isExpr()         {}
func (BlockExpr) isExpr()      {}
func (IndexExpr) isExpr()      {}
func (MacroExpr) isExpr()      {}
func (BinaryExpr) isExpr()     {}
func (UnaryExpr) isExpr()      {}
func (UnknownExpr) isExpr()    {}

func (f *fragment) expr(n *sitter.Node) Expr {
	if n == nil {
		return UnknownExpr{}
	}
	switch n.Type() {
	case "identifier", "self", "scoped_identifier", "generic_function", "super", "crate":
		p, ok := f.path(n)
		if !ok {
			return UnknownExpr{Kind: n.Type()}
		}
		return PathExpr{Path: p, Pos: f.pos(n)}
	case "call_expression":
		return f.call(n)
	case "field_expression":
		return FieldExpr{Value: f.expr(n.ChildByFieldName("value")), Field: f.text(n.ChildByFieldName("field"))}
	case "struct_expression":
		p, ok := f.path(n.ChildByFieldName("name"))
		if !ok {
			return UnknownExpr{Kind: n.Type()}
		}
		return StructExpr{Path: p}
	case "tuple_expression":
		return TupleExpr{Elems: f.exprs(namedChildren(n))}
	case "unit_expression":
		return TupleExpr{}
	case "parenthesized_expression":
		if c := namedChildren(n); len(c) == 1 {
			return f.expr(c[0])
		}
	case "array_expression":
		if n.ChildByFieldName("length") != nil {
			return UnknownExpr{Kind: "array_repeat"}
		}
		return ArrayExpr{Elems: f.exprs(namedChildren(n))}
	case "string_literal", "raw_string_literal", "char_literal", "integer_literal", "float_literal", "boolean_literal":
		return f.lit(n)
	case "try_expression":
		if c := namedChildren(n); len(c) > 0 {
			return TryExpr{Value: f.expr(c[0])}
		}
	case "match_expression":
		return f.match(n)
	case "if_expression", "if_let_expression":
		out := IfExpr{Then: f.blockLast(n.ChildByFieldName("consequence"))}
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			if c := namedChildren(alt); len(c) > 0 {
				out.Else = f.expr(c[0])
			}
		}
		return out
	case "block":
		return BlockExpr{Last: f.blockLast(n)}
	case "unsafe_block":
		if b := childOfType(n, "block"); b != nil {
			return BlockExpr{Last: f.blockLast(b)}
		}
	case "index_expression":
		c := namedChildren(n)
		if len(c) == 2 {
			return IndexExpr{Value: f.expr(c[0]), Index: f.expr(c[1])}
		}
	case "macro_invocation":
		p, ok := f.path(n.ChildByFieldName("macro"))
		if !ok {
			return UnknownExpr{Kind: n.Type()}
		}
		return MacroExpr{Name: p.Name()}
	case "binary_expression":
		return BinaryExpr{
			Op:    f.text(n.ChildByFieldName("operator")),
			Left:  f.expr(n.ChildByFieldName("left")),
			Right: f.expr(n.ChildByFieldName("right")),
		}
	case "unary_expression":
		if c := namedChildren(n); len(c) > 0 && n.ChildCount() > 0 {
			return UnaryExpr{Op: n.Child(0).Type(), Value: f.expr(c[0])}
		}
	case "reference_expression":
		return UnaryExpr{Op: "&", Value: f.expr(n.ChildByFieldName("value"))}
	}
	return UnknownExpr{Kind: n.Type()}
}

func (f *fragment) exprs(nodes []*sitter.Node) []Expr {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]Expr, len(nodes))
	for i, c := range nodes {
		out[i] = f.expr(c)
	}
	return out
}

// call distinguishes method calls, which the grammar represents as a call
// of a field expression, from calls of a path.
func (f *fragment) call(n *sitter.Node) Expr {
	fn := n.ChildByFieldName("function")
	args := f.exprs(namedChildren(n.ChildByFieldName("arguments")))
	target := fn
	if fn != nil && fn.Type() == "generic_function" {
		target = fn.ChildByFieldName("function")
	}
	if target != nil && target.Type() == "field_expression" {
		return MethodCallExpr{
			Receiver: f.expr(target.ChildByFieldName("value")),
			Method:   f.text(target.ChildByFieldName("field")),
			Args:     args,
		}
	}
	return CallExpr{Func: f.expr(fn), Args: args}
}

func (f *fragment) match(n *sitter.Node) MatchExpr {
	out := MatchExpr{Value: f.expr(n.ChildByFieldName("value"))}
	for _, arm := range namedChildren(n.ChildByFieldName("body")) {
		if arm.Type() != "match_arm" && arm.Type() != "last_match_arm" {
			continue
		}
		out.Arms = append(out.Arms, MatchArm{
			Pat:  f.pat(arm.ChildByFieldName("pattern")),
			Body: f.expr(arm.ChildByFieldName("value")),
		})
	}
	return out
}

// blockLast returns the value of a block's last statement. A trailing let
// contributes its initializer.
func (f *fragment) blockLast(n *sitter.Node) Expr {
	stmts := namedChildren(n)
	if len(stmts) == 0 {
		return nil
	}
	return f.stmtExpr(stmts[len(stmts)-1])
}

// stmtExpr returns the expression a statement evaluates.
func (f *fragment) stmtExpr(n *sitter.Node) Expr {
	switch n.Type() {
	case "expression_statement":
		if c := namedChildren(n); len(c) > 0 {
			return f.expr(c[0])
		}
		return nil
	case "let_declaration":
		if v := n.ChildByFieldName("value"); v != nil {
			return f.expr(v)
		}
		return nil
	case "empty_statement":
		return nil
	}
	if strings.HasSuffix(n.Type(), "_item") || n.Type() == "use_declaration" {
		return nil
	}
	return f.expr(n)
}

func (f *fragment) lit(n *sitter.Node) Expr {
	text := f.text(n)
	switch n.Type() {
	case "string_literal", "raw_string_literal":
		if strings.HasPrefix(text, "b") {
			return LitExpr{Prim: core.PrimU8, ByteString: true, Len: byteStringLen(text)}
		}
		return LitExpr{Prim: core.PrimStr}
	case "char_literal":
		if strings.HasPrefix(text, "b") {
			return LitExpr{Prim: core.PrimU8}
		}
		return LitExpr{Prim: core.PrimChar}
	case "boolean_literal":
		return LitExpr{Prim: core.PrimBool}
	case "float_literal":
		return LitExpr{Prim: floatPrim(text)}
	case "integer_literal":
		if !strings.HasPrefix(text, "0x") && (strings.HasSuffix(text, "f32") || strings.HasSuffix(text, "f64")) {
			return LitExpr{Prim: floatPrim(text)}
		}
		return LitExpr{Prim: core.PrimFromIntSuffix(intSuffix(text))}
	}
	return UnknownExpr{Kind: n.Type()}
}

func floatPrim(text string) core.PrimKind {
	if strings.HasSuffix(text, "f64") {
		return core.PrimF64
	}
	return core.PrimF32
}

// intSuffix returns the type suffix of an integer literal such as `10u8`.
func intSuffix(text string) string {
	body := text
	if len(body) > 2 && body[0] == '0' && strings.ContainsRune("xob", rune(body[1])) {
		body = body[2:]
	}
	if i := strings.IndexAny(body, "ui"); i >= 0 {
		return body[i:]
	}
	return ""
}

// byteStringLen counts the bytes a byte string literal denotes.
func byteStringLen(text string) int {
	text = strings.TrimPrefix(text, "b")
	if strings.HasPrefix(text, "r") {
		body := strings.TrimLeft(text[1:], "#")
		body = strings.TrimRight(body, "#")
		return max(len(body)-2, 0)
	}
	if len(text) < 2 {
		return 0
	}
	body := text[1 : len(text)-1]
	n := 0
	for i := 0; i < len(body); i++ {
		if body[i] != '\\' || i+1 >= len(body) {
			n++
			continue
		}
		i++
		switch body[i] {
		case 'x':
			if _, err := strconv.ParseUint(body[i+1:min(i+3, len(body))], 16, 8); err == nil {
				i += 2
			}
			n++
		case '\n':
			for i+1 < len(body) && strings.ContainsRune(" \t\r\n", rune(body[i+1])) {
				i++
			}
		default:
			n++
		}
	}
	return n
}
