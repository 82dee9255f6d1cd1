// Package fragment parses small pieces of Rust source (a statement, an item
// header, an expression) and converts them into the grammar-neutral shapes
// of package core. Callers hand it text cut out of a larger file; every
// offset it returns is relative to that text unless an explicit base offset
// is passed in.
//
// A fragment that does not parse cleanly yields the zero result. Nothing in
// this package returns an error: the resolution engine treats unparseable
// code as "nothing found".
package fragment

import (
	"context"
	"log/slog"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/span"
)

// Statement fragments are parsed as the body of a throwaway function so that
// items, let bindings and bare expressions are all accepted. The trailing
// semicolon terminates a let or expression that the caller cut short.
const (
	stmtPrefix = "fn __fragment() {\n"
	stmtSuffix = "\n;}"
)

// fragment is a parsed piece of source text plus the length of the wrapper
// placed in front of it.
type fragment struct {
	src   []byte
	base  uint32
	scope core.Scope
}

func (f *fragment) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(f.src)
}

func (f *fragment) pos(n *sitter.Node) span.BytePos {
	return span.BytePos(int(n.StartByte()) - int(f.base))
}

func (f *fragment) end(n *sitter.Node) span.BytePos {
	return span.BytePos(int(n.EndByte()) - int(f.base))
}

func (f *fragment) rng(n *sitter.Node) span.ByteRange {
	return span.NewRange(f.pos(n), f.end(n))
}

// withStmt parses text as one statement and calls fn with the statement's
// node. It reports false, without calling fn, when the first statement does
// not parse cleanly.
func withStmt(text string, scope core.Scope, fn func(f *fragment, stmt *sitter.Node)) bool {
	src := make([]byte, 0, len(stmtPrefix)+len(text)+len(stmtSuffix))
	src = append(src, stmtPrefix...)
	src = append(src, text...)
	src = append(src, stmtSuffix...)

	tree, err := parseTree(context.Background(), src)
	if err != nil {
		slog.Debug("fragment: parse failed", "err", err)
		return false
	}
	defer tree.Close()

	f := &fragment{src: src, base: uint32(len(stmtPrefix)), scope: scope}
	stmt := firstStmt(tree.RootNode(), f.base)
	if stmt == nil || stmt.HasError() || stmt.IsMissing() {
		slog.Debug("fragment: no clean statement", "text", text)
		return false
	}
	fn(f, stmt)
	return true
}

// firstStmt finds the first statement of the wrapper function's body that
// starts inside the caller's text.
func firstStmt(root *sitter.Node, base uint32) *sitter.Node {
	if root == nil || root.NamedChildCount() == 0 {
		return nil
	}
	fn := root.NamedChild(0)
	if fn.Type() != "function_item" {
		return nil
	}
	body := fn.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		if c.StartByte() < base {
			continue
		}
		switch c.Type() {
		case "line_comment", "block_comment", "attribute_item", "inner_attribute_item", "empty_statement":
			continue
		}
		if c.Type() == "expression_statement" && c.NamedChildCount() > 0 {
			if c.HasError() {
				return c
			}
			return c.NamedChild(0)
		}
		return c
	}
	return nil
}

// namedChildren returns the named children of n, skipping comments and
// attributes.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "line_comment", "block_comment", "attribute_item", "inner_attribute_item":
			continue
		}
		out = append(out, c)
	}
	return out
}

// childOfType returns the first direct child of n with the given node type.
func childOfType(n *sitter.Node, typ string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c.Type() == typ {
			return c
		}
	}
	return nil
}

// findFirst walks n depth-first and returns the first node accepted by match.
func findFirst(n *sitter.Node, match func(*sitter.Node) bool) *sitter.Node {
	if n == nil {
		return nil
	}
	if match(n) {
		return n
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if found := findFirst(n.NamedChild(i), match); found != nil {
			return found
		}
	}
	return nil
}

func isType(types ...string) func(*sitter.Node) bool {
	return func(n *sitter.Node) bool {
		t := n.Type()
		for _, want := range types {
			if t == want {
				return true
			}
		}
		return false
	}
}
