package types

import (
	"fmt"
	"strings"
)

// IntWidth selects the Rust integer used for Python int.
type IntWidth uint8

const (
	WidthI32 IntWidth = iota
	WidthI64
	WidthISize
)

func (w IntWidth) Primitive() Primitive {
	switch w {
	case WidthI64:
		return I64
	case WidthISize:
		return ISize
	}
	return I32
}

func (w IntWidth) String() string { return w.Primitive().String() }

// ParseIntWidth accepts "i32", "i64" or "isize".
func ParseIntWidth(s string) (IntWidth, error) {
	switch strings.ToLower(s) {
	case "i32", "":
		return WidthI32, nil
	case "i64":
		return WidthI64, nil
	case "isize":
		return WidthISize, nil
	}
	return WidthI32, fmt.Errorf("invalid integer width %q (expected i32|i64|isize)", s)
}

// StringStrategy selects how str values are represented.
type StringStrategy uint8

const (
	AlwaysOwned StringStrategy = iota
	InferBorrowing
	CowByDefault
)

func (s StringStrategy) String() string {
	switch s {
	case InferBorrowing:
		return "infer-borrowing"
	case CowByDefault:
		return "cow-by-default"
	}
	return "always-owned"
}

func ParseStringStrategy(s string) (StringStrategy, error) {
	switch strings.ToLower(s) {
	case "always-owned", "owned":
		return AlwaysOwned, nil
	case "infer-borrowing", "infer", "":
		return InferBorrowing, nil
	case "cow-by-default", "cow":
		return CowByDefault, nil
	}
	return InferBorrowing, fmt.Errorf("invalid string strategy %q (expected always-owned|infer-borrowing|cow-by-default)", s)
}

// MapConfig parameterizes Map.
type MapConfig struct {
	IntWidth IntWidth
	Strings  StringStrategy
}

// Map converts a Python type into its owned Rust representation. It is
// total and deterministic: Unknown becomes the configured integer so a
// partially annotated function still produces a concrete signature.
func Map(t *Type, cfg MapConfig) *RustType {
	if t == nil {
		return Prim(cfg.IntWidth.Primitive())
	}
	switch t.Kind {
	case Unknown:
		return Prim(cfg.IntWidth.Primitive())
	case Int:
		return Prim(cfg.IntWidth.Primitive())
	case Float:
		return RustF64
	case Bool:
		return RustBool
	case Str:
		if cfg.Strings == CowByDefault {
			return CowStr("static")
		}
		return RustString
	case None:
		return RustUnit
	case List:
		return VecOf(Map(t.Elem(), cfg))
	case Set:
		return HashSetOf(Map(t.Elem(), cfg))
	case Dict:
		return HashMapOf(mapKey(t.Elem(), cfg), Map(t.Value(), cfg))
	case Tuple:
		elems := make([]*RustType, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = Map(e, cfg)
		}
		return TupleRust(elems...)
	case Optional:
		return OptionOf(Map(t.Elem(), cfg))
	case Custom:
		return CustomRust(t.Name)
	case TypeVar:
		return &RustType{Kind: RTypeParam, Name: t.Name}
	case Generic:
		args := make([]*RustType, len(t.Elems))
		for i, e := range t.Elems {
			args[i] = Map(e, cfg)
		}
		return &RustType{Kind: RGeneric, Name: t.Name, Elems: args}
	case Iterator:
		return ImplIterator(Map(t.Elem(), cfg))
	}
	return &RustType{Kind: RUnsupported, Name: t.String()}
}

// mapKey maps hash keys; floats cannot be HashMap keys in Rust, so they are
// reported as unsupported and rejected by the code generator.
func mapKey(t *Type, cfg MapConfig) *RustType {
	if t.Kind == Float {
		return &RustType{Kind: RUnsupported, Name: "float dict key"}
	}
	if t.Kind == Str && cfg.Strings == CowByDefault {
		return RustString
	}
	return Map(t, cfg)
}

// Unsupported reports whether r, or any type nested in it, has no Rust form.
func Unsupported(r *RustType) (string, bool) {
	if r == nil {
		return "", false
	}
	if r.Kind == RUnsupported {
		return r.Name, true
	}
	for _, e := range r.Elems {
		if name, ok := Unsupported(e); ok {
			return name, true
		}
	}
	return "", false
}
