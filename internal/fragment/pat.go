package fragment

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/span"
)

// patChildren returns the sub-patterns of n in order. The wildcard `_` is an
// anonymous token in the grammar, so it is collected explicitly to keep
// positions aligned with tuple fields.
func patChildren(n *sitter.Node, skip *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if skip != nil && c.StartByte() == skip.StartByte() && c.EndByte() == skip.EndByte() {
			continue
		}
		if c.Type() == "_" || (c.IsNamed() && !isTrivia(c)) {
			out = append(out, c)
		}
	}
	return out
}

func isTrivia(n *sitter.Node) bool {
	switch n.Type() {
	case "line_comment", "block_comment", "attribute_item":
		return true
	}
	return false
}

// pat converts a pattern node.
func (f *fragment) pat(n *sitter.Node) core.Pat {
	if n == nil {
		return core.Pat{Kind: core.PatWild}
	}
	r := f.rng(n)
	switch n.Type() {
	case "_":
		return core.Pat{Kind: core.PatWild, Range: r}
	case "identifier", "self":
		return core.Pat{Kind: core.PatIdent, Name: f.text(n), Range: r}
	case "mut_pattern":
		for _, c := range patChildren(n, nil) {
			if c.Type() == "mutable_specifier" {
				continue
			}
			p := f.pat(c)
			p.Mut = true
			return p
		}
	case "ref_pattern":
		if c := patChildren(n, nil); len(c) > 0 {
			p := f.pat(c[0])
			p.ByRef = true
			return p
		}
	case "captured_pattern":
		if c := patChildren(n, nil); len(c) > 0 && c[0].Type() == "identifier" {
			return core.Pat{Kind: core.PatIdent, Name: f.text(c[0]), Range: f.rng(c[0])}
		}
	case "match_pattern":
		if c := patChildren(n, n.ChildByFieldName("condition")); len(c) > 0 {
			return f.pat(c[0])
		}
	case "tuple_pattern":
		elems := patChildren(n, nil)
		if len(elems) == 1 && childOfType(n, ",") == nil {
			return f.pat(elems[0])
		}
		return core.Pat{Kind: core.PatTuple, Range: r, Elems: f.pats(elems)}
	case "tuple_struct_pattern":
		typ := n.ChildByFieldName("type")
		p, _ := f.path(typ)
		return core.Pat{Kind: core.PatTupleStruct, Range: r, Path: p, Elems: f.pats(patChildren(n, typ))}
	case "struct_pattern":
		typ := n.ChildByFieldName("type")
		p, _ := f.path(typ)
		out := core.Pat{Kind: core.PatStruct, Range: r, Path: p}
		for _, c := range namedChildren(n) {
			if c.Type() != "field_pattern" {
				continue
			}
			out.Fields = append(out.Fields, f.fieldPat(c))
		}
		return out
	case "reference_pattern":
		inner := patChildren(n, nil)
		out := core.Pat{Kind: core.PatRef, Range: r, Mut: childOfType(n, "mutable_specifier") != nil}
		for _, c := range inner {
			if c.Type() == "mutable_specifier" {
				continue
			}
			out.Elems = []core.Pat{f.pat(c)}
			break
		}
		return out
	case "scoped_identifier":
		p, _ := f.path(n)
		return core.Pat{Kind: core.PatPath, Range: r, Path: p}
	case "slice_pattern":
		return core.Pat{Kind: core.PatSlice, Range: r, Elems: f.pats(patChildren(n, nil))}
	case "or_pattern":
		return core.Pat{Kind: core.PatOr, Range: r, Elems: f.pats(patChildren(n, nil))}
	case "range_pattern":
		return core.Pat{Kind: core.PatRange, Range: r}
	case "remaining_field_pattern":
		return core.Pat{Kind: core.PatRest, Range: r}
	case "macro_invocation":
		return core.Pat{Kind: core.PatMac, Range: r}
	case "box_pattern":
		return core.Pat{Kind: core.PatBox, Range: r}
	case "string_literal", "raw_string_literal", "char_literal", "integer_literal",
		"float_literal", "boolean_literal", "negative_literal", "const_block":
		return core.Pat{Kind: core.PatLit, Range: r}
	}
	return core.Pat{Kind: core.PatWild, Range: r}
}

func (f *fragment) pats(nodes []*sitter.Node) []core.Pat {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]core.Pat, len(nodes))
	for i, c := range nodes {
		out[i] = f.pat(c)
	}
	return out
}

// fieldPat converts `name: pat` or the shorthand `ref mut name`.
func (f *fragment) fieldPat(n *sitter.Node) core.FieldPat {
	name := n.ChildByFieldName("name")
	out := core.FieldPat{Name: f.text(name), Range: f.rng(n)}
	if p := n.ChildByFieldName("pattern"); p != nil {
		out.Pat = f.pat(p)
		return out
	}
	out.Pat = core.Pat{Kind: core.PatIdent, Name: out.Name}
	if name != nil {
		out.Pat.Range = f.rng(name)
	}
	out.Pat.ByRef = childOfType(n, "ref") != nil
	out.Pat.Mut = childOfType(n, "mutable_specifier") != nil
	return out
}

// identRanges returns the ranges of every name bound by p. A binding with a
// sub-pattern (`x @ ..`) contributes only its own name.
func identRanges(p core.Pat) []span.ByteRange {
	var out []span.ByteRange
	var walk func(p *core.Pat)
	walk = func(p *core.Pat) {
		switch p.Kind {
		case core.PatIdent:
			out = append(out, p.Range)
		case core.PatStruct:
			for i := range p.Fields {
				walk(&p.Fields[i].Pat)
			}
		default:
			for i := range p.Elems {
				walk(&p.Elems[i])
			}
		}
	}
	walk(&p)
	return out
}
