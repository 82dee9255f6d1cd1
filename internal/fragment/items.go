package fragment

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/span"
)

// UseItem is the flattened content of a use declaration.
type UseItem struct {
	Paths        []core.PathAlias
	ContainsGlob bool
}

// ParseUse flattens a use declaration into one alias per imported name.
// A trailing `self` segment is dropped and marks the alias AliasSelf.
func ParseUse(text string) UseItem {
	var out UseItem
	withStmt(text, core.Scope{}, func(f *fragment, stmt *sitter.Node) {
		if stmt.Type() != "use_declaration" {
			return
		}
		out.ContainsGlob = f.useTree(stmt.ChildByFieldName("argument"), core.Path{}, &out.Paths)
	})
	return out
}

func (f *fragment) useTree(n *sitter.Node, parent core.Path, out *[]core.PathAlias) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "identifier", "scoped_identifier", "self", "super", "crate", "metavariable":
		segs, ok := f.segments(n, f.scope)
		if !ok {
			return false
		}
		*out = append(*out, f.simpleAlias(parent.Extend(core.Path{Segments: segs}), segs[len(segs)-1].Name, nil, n))
	case "use_as_clause":
		segs, ok := f.segments(n.ChildByFieldName("path"), f.scope)
		if !ok {
			return false
		}
		var renamePos *span.BytePos
		ident := segs[len(segs)-1].Name
		if alias := n.ChildByFieldName("alias"); alias != nil {
			p := f.pos(alias)
			renamePos = &p
			ident = f.text(alias)
		}
		*out = append(*out, f.simpleAlias(parent.Extend(core.Path{Segments: segs}), ident, renamePos, n))
	case "use_wildcard":
		p := parent
		for _, c := range namedChildren(n) {
			segs, ok := f.segments(c, f.scope)
			if ok {
				p = p.Extend(core.Path{Segments: segs})
			}
		}
		if strings.HasPrefix(f.text(n), "::") {
			p = core.Path{Segments: []core.PathSegment{{Name: core.PrefixGlobal.String()}}}.Extend(p)
		}
		*out = append(*out, core.PathAlias{Kind: core.AliasGlob, Path: p, Range: f.rng(n)})
		return true
	case "use_list":
		glob := false
		for _, c := range namedChildren(n) {
			if f.useTree(c, parent, out) {
				glob = true
			}
		}
		return glob
	case "scoped_use_list":
		p := parent
		if path := n.ChildByFieldName("path"); path != nil {
			segs, ok := f.segments(path, f.scope)
			if !ok {
				return false
			}
			p = p.Extend(core.Path{Segments: segs})
		} else if strings.HasPrefix(f.text(n), "::") {
			p = p.Extend(core.NamePath(core.PrefixGlobal.String()))
		}
		return f.useTree(n.ChildByFieldName("list"), p, out)
	}
	return false
}

func (f *fragment) simpleAlias(p core.Path, ident string, renamePos *span.BytePos, n *sitter.Node) core.PathAlias {
	kind := core.AliasIdent
	if p.Name() == "self" {
		kind = core.AliasSelf
		p = p.Parent()
	}
	return core.PathAlias{Kind: kind, Ident: ident, RenamePos: renamePos, Path: p, Range: f.rng(n)}
}

// ParsePatBindStmt returns the ranges of the names a statement binds: the
// pattern of a let, if-let, while-let or for, or the patterns nested in an
// expression. Right-hand sides and loop bodies are not searched.
func ParsePatBindStmt(text string) []span.ByteRange {
	var out []span.ByteRange
	withStmt(text, core.Scope{}, func(f *fragment, stmt *sitter.Node) {
		w := patWalker{f: f, bindOnly: true}
		w.walk(stmt)
		out = w.out
	})
	return out
}

// ParsePatIdents returns the ranges of every name bound by any pattern in
// the statement.
func ParsePatIdents(text string) []span.ByteRange {
	var out []span.ByteRange
	withStmt(text, core.Scope{}, func(f *fragment, stmt *sitter.Node) {
		w := patWalker{f: f}
		w.walk(stmt)
		out = w.out
	})
	return out
}

type patWalker struct {
	f        *fragment
	bindOnly bool
	out      []span.ByteRange
}

func (w *patWalker) pat(n *sitter.Node) {
	if n != nil {
		w.out = append(w.out, identRanges(w.f.pat(n))...)
	}
}

func (w *patWalker) walk(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "let_declaration":
		w.pat(n.ChildByFieldName("pattern"))
		if w.bindOnly {
			return
		}
		w.walk(n.ChildByFieldName("value"))
		w.walk(n.ChildByFieldName("alternative"))
		return
	case "let_condition":
		w.pat(n.ChildByFieldName("pattern"))
		if !w.bindOnly {
			w.walk(n.ChildByFieldName("value"))
		}
		return
	case "if_expression", "while_expression":
		cond := n.ChildByFieldName("condition")
		if w.bindOnly && cond != nil && cond.Type() == "let_condition" {
			w.pat(cond.ChildByFieldName("pattern"))
			return
		}
	case "if_let_expression", "while_let_expression", "for_expression":
		w.pat(n.ChildByFieldName("pattern"))
		if w.bindOnly {
			return
		}
		w.walk(n.ChildByFieldName("value"))
		w.walk(n.ChildByFieldName("body"))
		w.walk(n.ChildByFieldName("consequence"))
		w.walk(n.ChildByFieldName("alternative"))
		return
	case "match_arm", "last_match_arm":
		mp := n.ChildByFieldName("pattern")
		w.pat(mp)
		if mp != nil {
			w.walk(mp.ChildByFieldName("condition"))
		}
		w.walk(n.ChildByFieldName("value"))
		return
	case "closure_expression":
		for _, p := range patChildren(n.ChildByFieldName("parameters"), nil) {
			if p.Type() == "parameter" {
				w.pat(p.ChildByFieldName("pattern"))
			} else {
				w.pat(p)
			}
		}
		w.walk(n.ChildByFieldName("body"))
		return
	case "parameter":
		w.pat(n.ChildByFieldName("pattern"))
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.walk(n.NamedChild(i))
	}
}

// StructField is one field of a struct, union or enum variant. Tuple fields
// are named by their ordinal.
type StructField struct {
	Name  string
	Range span.ByteRange
	Ty    core.Ty
}

// ParseStructFields lists the fields declared by a struct, union or enum
// item. Field types are anchored at scope.
func ParseStructFields(text string, scope core.Scope) []StructField {
	var out []StructField
	withStmt(text, scope, func(f *fragment, stmt *sitter.Node) {
		switch stmt.Type() {
		case "struct_item", "union_item":
			f.fields(stmt.ChildByFieldName("body"), &out)
		case "enum_item":
			for _, v := range namedChildren(stmt.ChildByFieldName("body")) {
				if v.Type() == "enum_variant" {
					f.fields(v.ChildByFieldName("body"), &out)
				}
			}
		}
	})
	return out
}

func (f *fragment) fields(body *sitter.Node, out *[]StructField) {
	if body == nil {
		return
	}
	switch body.Type() {
	case "field_declaration_list":
		for _, c := range namedChildren(body) {
			if c.Type() != "field_declaration" {
				continue
			}
			*out = append(*out, StructField{
				Name:  f.text(c.ChildByFieldName("name")),
				Range: f.rng(c),
				Ty:    f.ty(c.ChildByFieldName("type")),
			})
		}
	case "ordered_field_declaration_list":
		start := span.BytePos(-1)
		for _, c := range namedChildren(body) {
			if c.Type() == "visibility_modifier" {
				start = f.pos(c)
				continue
			}
			r := f.rng(c)
			if start >= 0 {
				r.Start = start
				start = -1
			}
			*out = append(*out, StructField{Name: strconv.Itoa(len(*out)), Range: r, Ty: f.ty(c)})
		}
	}
}

// ParseImpl parses an impl header such as `impl<T: Clone> Foo<T> for Bar {}`.
// offset is the position of text in its file, blockStart the position of
// the block's opening brace.
func ParseImpl(text, file string, offset span.BytePos, local bool, blockStart span.BytePos) (*core.ImplHeader, bool) {
	var out *core.ImplHeader
	withStmt(text, core.Scope{File: file, Point: offset}, func(f *fragment, stmt *sitter.Node) {
		if stmt.Type() != "impl_item" {
			return
		}
		implStart := offset + f.pos(stmt)
		scope := core.Scope{File: file, Point: implStart}
		self, ok := f.selfPath(stmt.ChildByFieldName("type"), scope)
		if !ok {
			return
		}
		h := &core.ImplHeader{
			SelfPath:   self,
			Generics:   f.generics(stmt.ChildByFieldName("type_parameters"), childOfType(stmt, "where_clause"), file, offset),
			File:       file,
			Local:      local,
			ImplStart:  implStart,
			BlockStart: blockStart,
		}
		if trait := stmt.ChildByFieldName("trait"); trait != nil {
			if tp, ok := f.pathIn(trait, scope); ok {
				h.TraitPath = &tp
			}
		}
		out = h
	})
	return out, out != nil
}

// ParseTraitName returns the name of a trait item.
func ParseTraitName(text string) (string, bool) {
	var name string
	withStmt(text, core.Scope{}, func(f *fragment, stmt *sitter.Node) {
		if stmt.Type() == "trait_item" {
			name = f.text(stmt.ChildByFieldName("name"))
		}
	})
	return name, name != ""
}

// ParseInheritedTraits returns the supertraits of a trait item, anchored at
// offset plus their position in text.
func ParseInheritedTraits(text, file string, offset span.BytePos) (core.TraitBounds, bool) {
	var (
		out   core.TraitBounds
		found bool
	)
	withStmt(text, core.Scope{File: file, Point: offset}, func(f *fragment, stmt *sitter.Node) {
		if stmt.Type() != "trait_item" {
			return
		}
		found = true
		out = f.bounds(stmt.ChildByFieldName("bounds"), file, offset)
	})
	return out, found
}

// ParseGenerics returns the type parameters of an item header. Parameter
// points are offset plus their position in text.
func ParseGenerics(text, file string, offset span.BytePos) core.GenericsArgs {
	var out core.GenericsArgs
	withStmt(text, core.Scope{File: file, Point: offset}, func(f *fragment, stmt *sitter.Node) {
		out = f.generics(stmt.ChildByFieldName("type_parameters"), childOfType(stmt, "where_clause"), file, offset)
	})
	return out
}

// ParseTypeAlias parses `type Name = Ty;`. An associated type without a
// definition reports false.
func ParseTypeAlias(text string, scope core.Scope) (string, core.Ty, bool) {
	var (
		name string
		ty   core.Ty
	)
	withStmt(text, scope, func(f *fragment, stmt *sitter.Node) {
		if stmt.Type() != "type_item" {
			return
		}
		t := stmt.ChildByFieldName("type")
		if t == nil {
			return
		}
		name = f.text(stmt.ChildByFieldName("name"))
		ty = f.ty(t)
	})
	return name, ty, name != ""
}

// FnArg is one declared argument. Range spans from the pattern to the end
// of the type.
type FnArg struct {
	Pat   core.Pat
	Ty    core.Ty
	Range span.ByteRange
}

// ParseFnArgsAndGenerics parses a function declaration's arguments and type
// parameters. Generic points are offset plus their position in text.
func ParseFnArgsAndGenerics(text string, scope core.Scope, offset span.BytePos) ([]FnArg, core.GenericsArgs) {
	var (
		args []FnArg
		gen  core.GenericsArgs
	)
	withStmt(text, scope, func(f *fragment, stmt *sitter.Node) {
		fn := findFirst(stmt, isType("function_item", "function_signature_item", "closure_expression"))
		if fn == nil {
			return
		}
		args = f.fnArgs(fn)
		if fn.Type() != "closure_expression" {
			gen = f.generics(fn.ChildByFieldName("type_parameters"), childOfType(fn, "where_clause"), scope.File, offset)
		}
	})
	return args, gen
}

// ParseClosureArgs parses the arguments of the first closure or function
// in text.
func ParseClosureArgs(text string, scope core.Scope) []FnArg {
	var args []FnArg
	withStmt(text, scope, func(f *fragment, stmt *sitter.Node) {
		if fn := findFirst(stmt, isType("closure_expression", "function_item")); fn != nil {
			args = f.fnArgs(fn)
		}
	})
	return args
}

func (f *fragment) fnArgs(fn *sitter.Node) []FnArg {
	var out []FnArg
	for _, p := range patChildren(fn.ChildByFieldName("parameters"), nil) {
		switch p.Type() {
		case "self_parameter":
			self := childOfType(p, "self")
			pat := core.Pat{Kind: core.PatIdent, Name: "self", Range: f.rng(p)}
			if self != nil {
				pat.Range = f.rng(self)
			}
			var ty core.Ty = core.TySelf{Scope: f.scope}
			if childOfType(p, "&") != nil {
				ty = core.TyRef{Elem: ty, Mut: childOfType(p, "mutable_specifier") != nil}
			}
			out = append(out, FnArg{Pat: pat, Ty: ty, Range: f.rng(p)})
		case "parameter":
			pn := p.ChildByFieldName("pattern")
			tn := p.ChildByFieldName("type")
			r := f.rng(p)
			if pn != nil {
				r.Start = f.pos(pn)
			}
			if tn != nil {
				r.End = f.end(tn)
			}
			out = append(out, FnArg{Pat: f.pat(pn), Ty: f.ty(tn), Range: r})
		case "variadic_parameter", "line_comment", "block_comment":
		default:
			out = append(out, FnArg{Pat: f.pat(p), Range: f.rng(p)})
		}
	}
	return out
}

// ParseFnOutput returns the declared return type of the first function in
// text, TyDefault when none is written, and whether it is async.
func ParseFnOutput(text string, scope core.Scope) (core.Ty, bool) {
	var (
		ty      core.Ty
		isAsync bool
	)
	withStmt(text, scope, func(f *fragment, stmt *sitter.Node) {
		fn := findFirst(stmt, isType("function_item", "function_signature_item", "closure_expression"))
		if fn == nil {
			return
		}
		if mods := childOfType(fn, "function_modifiers"); mods != nil {
			isAsync = strings.Contains(f.text(mods), "async")
		}
		if ret := fn.ChildByFieldName("return_type"); ret != nil {
			ty = f.ty(ret)
		} else {
			ty = core.TyDefault{}
		}
	})
	return ty, isAsync
}

// ParseExternCrate parses `extern crate name [as alias];`. name is the name
// the crate is bound to; realName is set only when it was renamed.
func ParseExternCrate(text string) (name, realName string, ok bool) {
	withStmt(text, core.Scope{}, func(f *fragment, stmt *sitter.Node) {
		if stmt.Type() != "extern_crate_declaration" {
			return
		}
		crate := f.text(stmt.ChildByFieldName("name"))
		if alias := stmt.ChildByFieldName("alias"); alias != nil {
			name, realName = f.text(alias), crate
		} else {
			name = crate
		}
		ok = name != ""
	})
	return name, realName, ok
}

// EnumVariant is a variant name and its position in the parsed text.
type EnumVariant struct {
	Name string
	Pos  span.BytePos
}

// ParseEnum returns an enum's name and variants.
func ParseEnum(text string) (string, []EnumVariant) {
	var (
		name     string
		variants []EnumVariant
	)
	withStmt(text, core.Scope{}, func(f *fragment, stmt *sitter.Node) {
		if stmt.Type() != "enum_item" {
			return
		}
		name = f.text(stmt.ChildByFieldName("name"))
		for _, v := range namedChildren(stmt.ChildByFieldName("body")) {
			if v.Type() != "enum_variant" {
				continue
			}
			variants = append(variants, EnumVariant{Name: f.text(v.ChildByFieldName("name")), Pos: f.pos(v)})
		}
	})
	return name, variants
}

// ParseStatic returns the declared type of a const or static item and
// whether it is `static mut`.
func ParseStatic(text string, scope core.Scope) (core.Ty, bool) {
	var (
		ty      core.Ty
		mutable bool
	)
	withStmt(text, scope, func(f *fragment, stmt *sitter.Node) {
		switch stmt.Type() {
		case "const_item":
			ty = f.ty(stmt.ChildByFieldName("type"))
		case "static_item":
			ty = f.ty(stmt.ChildByFieldName("type"))
			mutable = childOfType(stmt, "mutable_specifier") != nil
		}
	})
	return ty, mutable
}

// FnSignature is a function's name and its arguments as written, each
// rendered `pat: ty`.
type FnSignature struct {
	Name string
	Args []string
}

// ParseFnSignature parses a function declaration without its body.
func ParseFnSignature(decl string) (FnSignature, bool) {
	var (
		sig FnSignature
		ok  bool
	)
	text := strings.TrimRight(decl, "\n\r{ ") + " {}"
	withStmt(text, core.Scope{}, func(f *fragment, stmt *sitter.Node) {
		if stmt.Type() != "function_item" {
			return
		}
		sig.Name = f.text(stmt.ChildByFieldName("name"))
		for _, p := range patChildren(stmt.ChildByFieldName("parameters"), nil) {
			switch p.Type() {
			case "self_parameter":
				s := f.text(p)
				sig.Args = append(sig.Args, s+": "+s)
			case "parameter":
				pat := f.text(p.ChildByFieldName("pattern"))
				if t := p.ChildByFieldName("type"); t != nil {
					sig.Args = append(sig.Args, pat+": "+f.text(t))
				} else {
					sig.Args = append(sig.Args, pat)
				}
			}
		}
		ok = sig.Name != ""
	})
	return sig, ok
}
