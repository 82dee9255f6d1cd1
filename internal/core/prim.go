package core

// PrimKind is a builtin type or keyword with documentation in the standard
// library sources.
type PrimKind int

const (
	PrimBool PrimKind = iota
	PrimNever
	PrimChar
	PrimUnit
	PrimPointer
	PrimArray
	PrimSlice
	PrimStr
	PrimTuple
	PrimF32
	PrimF64
	PrimI8
	PrimI16
	PrimI32
	PrimI64
	PrimI128
	PrimU8
	PrimU16
	PrimU32
	PrimU64
	PrimU128
	PrimIsize
	PrimUsize
	PrimRef
	PrimFn
	PrimAwait
)

var primNames = [...]string{
	PrimBool: "bool", PrimNever: "never", PrimChar: "char", PrimUnit: "unit",
	PrimPointer: "pointer", PrimArray: "array", PrimSlice: "slice", PrimStr: "str",
	PrimTuple: "tuple", PrimF32: "f32", PrimF64: "f64",
	PrimI8: "i8", PrimI16: "i16", PrimI32: "i32", PrimI64: "i64", PrimI128: "i128",
	PrimU8: "u8", PrimU16: "u16", PrimU32: "u32", PrimU64: "u64", PrimU128: "u128",
	PrimIsize: "isize", PrimUsize: "usize", PrimRef: "ref", PrimFn: "fn", PrimAwait: "await",
}

// PrimMatches are the builtin types offered as completions by name.
var PrimMatches = []PrimKind{
	PrimBool, PrimChar, PrimStr, PrimF32, PrimF64,
	PrimI8, PrimI16, PrimI32, PrimI64, PrimI128,
	PrimU8, PrimU16, PrimU32, PrimU64, PrimU128,
	PrimIsize, PrimUsize,
}

func (p PrimKind) String() string {
	if p >= 0 && int(p) < len(primNames) {
		return primNames[p]
	}
	return "unknown"
}

// IsKeyword reports whether p is documented as a keyword rather than a
// primitive type.
func (p PrimKind) IsKeyword() bool { return p == PrimAwait }

// ImplFiles lists the files, relative to the std source tree, holding the
// inherent impls of p.
func (p PrimKind) ImplFiles() []string {
	switch p {
	case PrimChar:
		return []string{"core/src/char/methods.rs"}
	case PrimPointer:
		return []string{"core/src/ptr.rs"}
	case PrimSlice:
		return []string{"core/src/slice/mod.rs", "alloc/src/slice.rs"}
	case PrimStr:
		return []string{"core/src/str/mod.rs", "alloc/src/str.rs"}
	case PrimF32:
		return []string{"std/src/f32.rs", "core/src/num/f32.rs"}
	case PrimF64:
		return []string{"std/src/f64.rs", "core/src/num/f64.rs"}
	case PrimI8, PrimI16, PrimI32, PrimI64, PrimI128,
		PrimU8, PrimU16, PrimU32, PrimU64, PrimU128, PrimIsize, PrimUsize:
		return []string{"core/src/num/mod.rs"}
	}
	return nil
}

// ModuleMatch returns the Builtin match used as the receiver of p's
// methods. Kinds without impl files have none.
func (p PrimKind) ModuleMatch() (Match, bool) {
	if p.ImplFiles() == nil {
		return Match{}, false
	}
	return Match{Name: p.String(), Type: BuiltinType(p)}, true
}

// PrimFromIntSuffix maps an integer literal suffix to its kind. Unsuffixed
// literals are treated as u32.
func PrimFromIntSuffix(suffix string) PrimKind {
	switch suffix {
	case "i8":
		return PrimI8
	case "i16":
		return PrimI16
	case "i32":
		return PrimI32
	case "i64":
		return PrimI64
	case "i128":
		return PrimI128
	case "isize":
		return PrimIsize
	case "u8":
		return PrimU8
	case "u16":
		return PrimU16
	case "u64":
		return PrimU64
	case "u128":
		return PrimU128
	case "usize":
		return PrimUsize
	}
	return PrimU32
}

// PrimFromName maps a primitive type name to its kind.
func PrimFromName(name string) (PrimKind, bool) {
	for _, p := range PrimMatches {
		if p.String() == name {
			return p, true
		}
	}
	return 0, false
}
