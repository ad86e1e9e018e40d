package types

import (
	"strconv"
	"strings"
)

// RustKind classifies a Rust type.
type RustKind uint8

const (
	RPrimitive RustKind = iota
	RString             // owned String
	RStr                // &str / &'a str
	RCow                // Cow<'a, str>
	RVec
	RHashMap
	RHashSet
	ROption
	RResult
	RReference // &T / &mut T with optional lifetime
	RTuple
	RUnit
	RCustom
	RUnsupported
	RTypeParam
	RGeneric
	REnum
	RArray
	RImplIterator // impl Iterator<Item = T>
	RBoxError     // Box<dyn std::error::Error>
)

// Primitive is a Rust scalar.
type Primitive uint8

const (
	I8 Primitive = iota
	I16
	I32
	I64
	I128
	ISize
	U8
	U16
	U32
	U64
	U128
	USize
	F32
	F64
	PBool
	PChar
)

var primNames = [...]string{
	I8: "i8", I16: "i16", I32: "i32", I64: "i64", I128: "i128", ISize: "isize",
	U8: "u8", U16: "u16", U32: "u32", U64: "u64", U128: "u128", USize: "usize",
	F32: "f32", F64: "f64", PBool: "bool", PChar: "char",
}

func (p Primitive) String() string { return primNames[p] }

func (p Primitive) IsInteger() bool { return p <= USize }
func (p Primitive) IsFloat() bool   { return p == F32 || p == F64 }

// ConstGenericKind distinguishes the three forms of an array length.
type ConstGenericKind uint8

const (
	ConstLiteral    ConstGenericKind = iota // [T; 4]
	ConstParameter                          // [T; N]
	ConstExpression                         // [T; N * 2]
)

type ConstGeneric struct {
	Kind  ConstGenericKind
	Value int
	Text  string
}

func (c ConstGeneric) String() string {
	if c.Kind == ConstLiteral {
		return strconv.Itoa(c.Value)
	}
	if c.Kind == ConstExpression {
		return "{ " + c.Text + " }"
	}
	return c.Text
}

// RustType is an immutable Rust type. Elems holds type arguments: Vec [T],
// HashMap [K, V], Option [T], Result [T, E], Reference [T], tuple members,
// Generic arguments, Array [T], ImplIterator [T].
type RustType struct {
	Kind     RustKind
	Prim     Primitive
	Lifetime string // without the leading quote; empty means elided
	Mutable  bool
	Elems    []*RustType
	Name     string
	Size     ConstGeneric
	Variants []string // REnum
}

func Prim(p Primitive) *RustType { return &RustType{Kind: RPrimitive, Prim: p} }

var (
	RustString = &RustType{Kind: RString}
	RustUnit   = &RustType{Kind: RUnit}
	RustBool   = Prim(PBool)
	RustF64    = Prim(F64)
	RustUSize  = Prim(USize)
)

func VecOf(t *RustType) *RustType        { return &RustType{Kind: RVec, Elems: []*RustType{t}} }
func HashSetOf(t *RustType) *RustType    { return &RustType{Kind: RHashSet, Elems: []*RustType{t}} }
func OptionOf(t *RustType) *RustType     { return &RustType{Kind: ROption, Elems: []*RustType{t}} }
func HashMapOf(k, v *RustType) *RustType { return &RustType{Kind: RHashMap, Elems: []*RustType{k, v}} }
func ResultOf(t, e *RustType) *RustType  { return &RustType{Kind: RResult, Elems: []*RustType{t, e}} }
func StrRef(lifetime string) *RustType   { return &RustType{Kind: RStr, Lifetime: lifetime} }
func CowStr(lifetime string) *RustType   { return &RustType{Kind: RCow, Lifetime: lifetime} }
func CustomRust(name string) *RustType   { return &RustType{Kind: RCustom, Name: name} }
func ImplIterator(t *RustType) *RustType { return &RustType{Kind: RImplIterator, Elems: []*RustType{t}} }
func ArrayOf(t *RustType, size ConstGeneric) *RustType {
	return &RustType{Kind: RArray, Elems: []*RustType{t}, Size: size}
}
func EnumRust(name string, variants ...string) *RustType {
	return &RustType{Kind: REnum, Name: name, Variants: variants}
}

// RefTo builds &T or &mut T.
func RefTo(t *RustType, mutable bool, lifetime string) *RustType {
	return &RustType{Kind: RReference, Elems: []*RustType{t}, Mutable: mutable, Lifetime: lifetime}
}

func TupleRust(elems ...*RustType) *RustType {
	if len(elems) == 0 {
		return RustUnit
	}
	return &RustType{Kind: RTuple, Elems: elems}
}

// Inner returns the first type argument or nil.
func (r *RustType) Inner() *RustType {
	if r == nil || len(r.Elems) == 0 {
		return nil
	}
	return r.Elems[0]
}

// CanCopy reports whether values of r are Copy.
func (r *RustType) CanCopy() bool {
	if r == nil {
		return false
	}
	switch r.Kind {
	case RPrimitive, RUnit, RStr:
		return true
	case RReference:
		return !r.Mutable
	case RTuple, ROption, RArray:
		for _, e := range r.Elems {
			if !e.CanCopy() {
				return false
			}
		}
		return true
	}
	return false
}

// IsBorrowed reports reference-like types that carry a lifetime.
func (r *RustType) IsBorrowed() bool {
	return r != nil && (r.Kind == RReference || r.Kind == RStr || r.Kind == RCow)
}

func (r *RustType) IsString() bool {
	return r != nil && (r.Kind == RString || r.Kind == RStr || r.Kind == RCow)
}

func (r *RustType) IsInteger() bool {
	return r != nil && r.Kind == RPrimitive && r.Prim.IsInteger()
}

func (r *RustType) IsFloat() bool {
	return r != nil && r.Kind == RPrimitive && r.Prim.IsFloat()
}

// Equal compares structurally.
func (r *RustType) Equal(o *RustType) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.Kind != o.Kind || r.Prim != o.Prim || r.Lifetime != o.Lifetime || r.Mutable != o.Mutable ||
		r.Name != o.Name || r.Size != o.Size || len(r.Elems) != len(o.Elems) {
		return false
	}
	for i := range r.Elems {
		if !r.Elems[i].Equal(o.Elems[i]) {
			return false
		}
	}
	return true
}

// WithLifetime returns a copy of a borrowed type with lifetime set.
func (r *RustType) WithLifetime(lt string) *RustType {
	if !r.IsBorrowed() {
		return r
	}
	c := *r
	c.Lifetime = lt
	return &c
}

func lifetimePrefix(lt string) string {
	if lt == "" {
		return ""
	}
	return "'" + lt + " "
}

// String renders Rust type syntax.
func (r *RustType) String() string {
	if r == nil {
		return "()"
	}
	switch r.Kind {
	case RPrimitive:
		return r.Prim.String()
	case RString:
		return "String"
	case RStr:
		return "&" + lifetimePrefix(r.Lifetime) + "str"
	case RCow:
		lt := r.Lifetime
		if lt == "" {
			lt = "_"
		}
		return "Cow<'" + strings.TrimPrefix(lt, "'") + ", str>"
	case RVec:
		return "Vec<" + r.Inner().String() + ">"
	case RHashMap:
		return "HashMap<" + r.Elems[0].String() + ", " + r.Elems[1].String() + ">"
	case RHashSet:
		return "HashSet<" + r.Inner().String() + ">"
	case ROption:
		return "Option<" + r.Inner().String() + ">"
	case RResult:
		return "Result<" + r.Elems[0].String() + ", " + r.Elems[1].String() + ">"
	case RReference:
		s := "&" + lifetimePrefix(r.Lifetime)
		if r.Mutable {
			s += "mut "
		}
		return s + r.Inner().String()
	case RTuple:
		if len(r.Elems) == 1 {
			return "(" + r.Elems[0].String() + ",)"
		}
		return "(" + joinRust(r.Elems) + ")"
	case RUnit:
		return "()"
	case RCustom, RTypeParam, REnum:
		return r.Name
	case RGeneric:
		return r.Name + "<" + joinRust(r.Elems) + ">"
	case RArray:
		return "[" + r.Inner().String() + "; " + r.Size.String() + "]"
	case RImplIterator:
		return "impl Iterator<Item = " + r.Inner().String() + ">"
	case RBoxError:
		return "Box<dyn std::error::Error>"
	case RUnsupported:
		return "/* unsupported: " + r.Name + " */"
	}
	return "()"
}

func joinRust(ts []*RustType) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
