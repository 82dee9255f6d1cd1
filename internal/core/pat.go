package core

import "github.com/rust-lang/rls-sub001/internal/span"

// PatKind is the shape of a pattern.
type PatKind int

const (
	PatWild PatKind = iota
	PatIdent
	PatStruct
	PatTupleStruct
	PatPath
	PatTuple
	PatBox
	PatRef
	PatLit
	PatRange
	PatSlice
	PatMac
	PatRest
	PatOr
)

// Pat is a pattern tree. Range is the pattern's extent relative to the text
// it was parsed from; for PatIdent it covers just the bound name.
type Pat struct {
	Kind  PatKind
	Range span.ByteRange

	// PatIdent
	Name  string
	ByRef bool
	Mut   bool // also PatRef

	// PatStruct, PatTupleStruct, PatPath
	Path Path

	// PatStruct
	Fields []FieldPat

	// PatTupleStruct, PatTuple, PatSlice, PatOr; PatRef holds its single
	// inner pattern here
	Elems []Pat
}

// FieldPat is `name: pat` inside a struct pattern.
type FieldPat struct {
	Name  string
	Pat   Pat
	Range span.ByteRange
}

// SearchByName returns the first identifier bound by p that matches name.
func (p *Pat) SearchByName(name string, st SearchType) (string, bool) {
	switch p.Kind {
	case PatIdent:
		if SymbolMatches(st, name, p.Name) {
			return p.Name, true
		}
	case PatStruct:
		for i := range p.Fields {
			if n, ok := p.Fields[i].Pat.SearchByName(name, st); ok {
				return n, true
			}
		}
	case PatTupleStruct, PatTuple, PatRef:
		for i := range p.Elems {
			if n, ok := p.Elems[i].SearchByName(name, st); ok {
				return n, true
			}
		}
	}
	return "", false
}

// Inner returns the referenced pattern of a PatRef.
func (p *Pat) Inner() *Pat {
	if p.Kind != PatRef || len(p.Elems) == 0 {
		return nil
	}
	return &p.Elems[0]
}
