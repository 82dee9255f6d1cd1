package core

import (
	"fmt"

	"github.com/rust-lang/rls-sub001/internal/span"
)

// MatchKind says what kind of declaration a Match found.
type MatchKind int

const (
	KindStruct MatchKind = iota
	KindModule
	KindMatchArm
	KindFunction
	KindMethod
	KindCrate
	KindLet
	KindIfLet
	KindWhileLet
	KindFor
	KindStructField
	KindEnum
	KindUnion
	KindEnumVariant
	KindUseAlias
	KindAssocType
	KindType
	KindFnArg
	KindTrait
	KindConst
	KindStatic
	KindMacro
	KindBuiltin
	KindTypeParameter
)

var kindNames = [...]string{
	KindStruct:        "Struct",
	KindModule:        "Module",
	KindMatchArm:      "MatchArm",
	KindFunction:      "Function",
	KindMethod:        "Method",
	KindCrate:         "Crate",
	KindLet:           "Let",
	KindIfLet:         "IfLet",
	KindWhileLet:      "WhileLet",
	KindFor:           "For",
	KindStructField:   "StructField",
	KindEnum:          "Enum",
	KindUnion:         "Union",
	KindEnumVariant:   "EnumVariant",
	KindUseAlias:      "UseAlias",
	KindAssocType:     "AssocType",
	KindType:          "Type",
	KindFnArg:         "FnArg",
	KindTrait:         "Trait",
	KindConst:         "Const",
	KindStatic:        "Static",
	KindMacro:         "Macro",
	KindBuiltin:       "Builtin",
	KindTypeParameter: "TypeParameter",
}

func (k MatchKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("MatchKind(%d)", int(k))
}

// FnArg is the pattern and declared type of a function or closure argument.
type FnArg struct {
	Pat Pat
	Ty  Ty
}

// MatchType is a MatchKind plus the payload that kind carries:
//
//	Struct, Enum, Union      Generics
//	Method                   Generics (optional)
//	Let, IfLet, WhileLet, For Pos of the binding statement
//	EnumVariant              Target, the enclosing enum (optional)
//	UseAlias                 Target, the aliased declaration
//	FnArg                    Arg
//	Builtin                  Prim
//	TypeParameter            Bounds
type MatchType struct {
	Kind     MatchKind
	Generics *GenericsArgs
	Pos      span.BytePos
	Target   *Match
	Arg      *FnArg
	Prim     PrimKind
	Bounds   *TraitBounds
}

func (t MatchType) String() string {
	switch t.Kind {
	case KindBuiltin:
		return fmt.Sprintf("Builtin(%s)", t.Prim)
	}
	return t.Kind.String()
}

// IsFunction reports whether the match is a function or method.
func (t MatchType) IsFunction() bool { return t.Kind == KindFunction || t.Kind == KindMethod }

// clone copies the payload pointers so generics can be resolved on the copy.
func (t MatchType) clone() MatchType {
	out := t
	out.Generics = t.Generics.Clone()
	if t.Target != nil {
		target := t.Target.Clone()
		out.Target = &target
	}
	if t.Bounds != nil {
		b := append(TraitBounds(nil), *t.Bounds...)
		out.Bounds = &b
	}
	if t.Arg != nil {
		arg := *t.Arg
		out.Arg = &arg
	}
	return out
}

// Match is one candidate declaration found by a query.
type Match struct {
	Name    string
	File    string
	Point   span.BytePos
	Coords  *span.Coordinate
	Local   bool
	Type    MatchType
	Context string
	Docs    string
}

// Clone returns a deep copy that shares no mutable state with m.
func (m Match) Clone() Match {
	out := m
	out.Type = m.Type.clone()
	if m.Coords != nil {
		c := *m.Coords
		out.Coords = &c
	}
	return out
}

// IsSameAs reports whether two matches denote the same declaration.
func (m *Match) IsSameAs(other *Match) bool {
	return m.Point == other.Point && m.Name == other.Name && m.File == other.File
}

// Generics returns the generics of a struct, enum, union or method match.
func (m *Match) Generics() *GenericsArgs {
	switch m.Type.Kind {
	case KindStruct, KindEnum, KindUnion, KindMethod:
		return m.Type.Generics
	}
	return nil
}

// ResolvedGenerics returns the resolved types of m's type parameters, in
// order, skipping unresolved ones.
func (m *Match) ResolvedGenerics() []Ty {
	g := m.Generics()
	if g == nil {
		return nil
	}
	var out []Ty
	for _, p := range g.Params {
		if p.Resolved != nil {
			out = append(out, p.Resolved)
		}
	}
	return out
}

// ResolveGenerics binds types to a struct or enum's parameters in order.
// Generics are copied first so other holders of m are unaffected.
func (m *Match) ResolveGenerics(types []Ty) {
	switch m.Type.Kind {
	case KindStruct, KindEnum, KindUnion:
		if m.Type.Generics == nil {
			return
		}
		m.Type.Generics = m.Type.Generics.Clone()
		m.Type.Generics.ApplyTypes(types)
	}
}

func (m Match) String() string {
	return fmt.Sprintf("Match[%q, %s, %d, %v, %s, |%s|]", m.Name, m.File, m.Point, m.Local, m.Type, m.Context)
}

// StructType, EnumType and the helpers below build common MatchTypes.
func StructType(g GenericsArgs) MatchType {
	return MatchType{Kind: KindStruct, Generics: &g}
}

func EnumType(g GenericsArgs) MatchType {
	return MatchType{Kind: KindEnum, Generics: &g}
}

func UnionType(g GenericsArgs) MatchType {
	return MatchType{Kind: KindUnion, Generics: &g}
}

func MethodType(g *GenericsArgs) MatchType {
	return MatchType{Kind: KindMethod, Generics: g}
}

func BindingType(kind MatchKind, pos span.BytePos) MatchType {
	return MatchType{Kind: kind, Pos: pos}
}

func BuiltinType(p PrimKind) MatchType {
	return MatchType{Kind: KindBuiltin, Prim: p}
}

func UseAliasType(target Match) MatchType {
	return MatchType{Kind: KindUseAlias, Target: &target}
}

func EnumVariantType(enum *Match) MatchType {
	return MatchType{Kind: KindEnumVariant, Target: enum}
}

func FnArgType(pat Pat, ty Ty) MatchType {
	return MatchType{Kind: KindFnArg, Arg: &FnArg{Pat: pat, Ty: ty}}
}

func TypeParameterType(b TraitBounds) MatchType {
	return MatchType{Kind: KindTypeParameter, Bounds: &b}
}

// Simple returns a MatchType with no payload.
func Simple(kind MatchKind) MatchType {
	return MatchType{Kind: kind}
}
