package types

import "strings"

// Kind classifies a Python-side type.
type Kind uint8

const (
	Unknown Kind = iota
	Int
	Float
	Str
	Bool
	None
	List
	Dict
	Set
	Tuple
	Optional
	Custom
	TypeVar
	Generic
	Iterator
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	case Str:
		return "str"
	case Bool:
		return "bool"
	case None:
		return "None"
	case List:
		return "list"
	case Dict:
		return "dict"
	case Set:
		return "set"
	case Tuple:
		return "tuple"
	case Optional:
		return "Optional"
	case Custom:
		return "custom"
	case TypeVar:
		return "typevar"
	case Generic:
		return "generic"
	case Iterator:
		return "Iterator"
	}
	return "unknown"
}

// Type is an immutable Python-side type. Elems holds the element types of
// containers (List: [T], Dict: [K, V], Set: [T], Tuple: members,
// Optional: [T], Generic: arguments, Iterator: [T]). Name is set for Custom,
// TypeVar and Generic.
type Type struct {
	Kind  Kind
	Elems []*Type
	Name  string
}

var (
	UnknownT = &Type{Kind: Unknown}
	IntT     = &Type{Kind: Int}
	FloatT   = &Type{Kind: Float}
	StrT     = &Type{Kind: Str}
	BoolT    = &Type{Kind: Bool}
	NoneT    = &Type{Kind: None}
)

func ListOf(elem *Type) *Type     { return &Type{Kind: List, Elems: []*Type{orUnknown(elem)}} }
func SetOf(elem *Type) *Type      { return &Type{Kind: Set, Elems: []*Type{orUnknown(elem)}} }
func DictOf(k, v *Type) *Type     { return &Type{Kind: Dict, Elems: []*Type{orUnknown(k), orUnknown(v)}} }
func IteratorOf(elem *Type) *Type { return &Type{Kind: Iterator, Elems: []*Type{orUnknown(elem)}} }
func TupleOf(elems ...*Type) *Type {
	out := make([]*Type, len(elems))
	for i, e := range elems {
		out[i] = orUnknown(e)
	}
	return &Type{Kind: Tuple, Elems: out}
}
func CustomT(name string) *Type  { return &Type{Kind: Custom, Name: name} }
func TypeVarT(name string) *Type { return &Type{Kind: TypeVar, Name: name} }
func GenericOf(name string, args ...*Type) *Type {
	return &Type{Kind: Generic, Name: name, Elems: args}
}

// OptionalOf wraps t; Optional of Optional and Optional of None collapse.
func OptionalOf(t *Type) *Type {
	t = orUnknown(t)
	if t.Kind == Optional || t.Kind == None {
		return t
	}
	return &Type{Kind: Optional, Elems: []*Type{t}}
}

func orUnknown(t *Type) *Type {
	if t == nil {
		return UnknownT
	}
	return t
}

// Elem returns the element type of List, Set, Optional and Iterator, the
// key type of Dict, or Unknown.
func (t *Type) Elem() *Type {
	if t == nil {
		return UnknownT
	}
	if t.Kind == Str {
		return StrT
	}
	if len(t.Elems) == 0 {
		return UnknownT
	}
	switch t.Kind {
	case List, Set, Optional, Iterator, Dict:
		return t.Elems[0]
	}
	return UnknownT
}

// Value returns the value type of a Dict.
func (t *Type) Value() *Type {
	if t == nil || t.Kind != Dict || len(t.Elems) < 2 {
		return UnknownT
	}
	return t.Elems[1]
}

// IterElem is the type produced by iterating over t.
func (t *Type) IterElem() *Type {
	if t == nil {
		return UnknownT
	}
	switch t.Kind {
	case Str:
		return StrT
	case List, Set, Iterator, Dict:
		return t.Elem()
	case Tuple:
		if len(t.Elems) > 0 && t.allSame() {
			return t.Elems[0]
		}
	}
	return UnknownT
}

func (t *Type) allSame() bool {
	for _, e := range t.Elems[1:] {
		if !e.Equal(t.Elems[0]) {
			return false
		}
	}
	return true
}

func (t *Type) IsUnknown() bool { return t == nil || t.Kind == Unknown }

func (t *Type) IsNumeric() bool {
	return t != nil && (t.Kind == Int || t.Kind == Float || t.Kind == Bool)
}

// IsCopy reports whether the type maps to a Copy type in Rust.
func (t *Type) IsCopy() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case Int, Float, Bool, None:
		return true
	case Tuple:
		for _, e := range t.Elems {
			if !e.IsCopy() {
				return false
			}
		}
		return true
	case Optional:
		return t.Elem().IsCopy()
	}
	return false
}

// IsContainer reports list, dict, set and str, the types with a length.
func (t *Type) IsContainer() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case List, Dict, Set, Str, Tuple:
		return true
	}
	return false
}

// Equal compares structurally.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind || t.Name != o.Name || len(t.Elems) != len(o.Elems) {
		return false
	}
	for i := range t.Elems {
		if !t.Elems[i].Equal(o.Elems[i]) {
			return false
		}
	}
	return true
}

// Join merges two observations of the same binding. Unknown yields to the
// other side, None with T gives Optional[T], int with float gives float.
// Conflicting types give Unknown.
func Join(a, b *Type) *Type {
	switch {
	case a.IsUnknown():
		return orUnknown(b)
	case b.IsUnknown():
		return a
	case a.Equal(b):
		return a
	case a.Kind == None:
		return OptionalOf(b)
	case b.Kind == None:
		return OptionalOf(a)
	case a.Kind == Optional && a.Elem().Equal(b), b.Kind == Optional && b.Elem().Equal(a):
		if a.Kind == Optional {
			return a
		}
		return b
	case a.Kind == Int && b.Kind == Float, a.Kind == Float && b.Kind == Int:
		return FloatT
	case a.Kind == Bool && b.Kind == Int, a.Kind == Int && b.Kind == Bool:
		return IntT
	case a.Kind == b.Kind && len(a.Elems) == len(b.Elems) && a.Name == b.Name:
		elems := make([]*Type, len(a.Elems))
		for i := range a.Elems {
			elems[i] = Join(a.Elems[i], b.Elems[i])
		}
		return &Type{Kind: a.Kind, Name: a.Name, Elems: elems}
	}
	return UnknownT
}

// Refine prefers the more specific of two types with the same shape: an
// element type that is Unknown in a is taken from b.
func Refine(a, b *Type) *Type {
	if a.IsUnknown() {
		return orUnknown(b)
	}
	if b.IsUnknown() || a.Kind != b.Kind || len(a.Elems) != len(b.Elems) {
		return a
	}
	changed := false
	elems := make([]*Type, len(a.Elems))
	for i := range a.Elems {
		elems[i] = Refine(a.Elems[i], b.Elems[i])
		if elems[i] != a.Elems[i] {
			changed = true
		}
	}
	if !changed {
		return a
	}
	return &Type{Kind: a.Kind, Name: a.Name, Elems: elems}
}

// String renders Python annotation syntax.
func (t *Type) String() string {
	if t == nil {
		return "unknown"
	}
	switch t.Kind {
	case Custom, TypeVar:
		return t.Name
	case Generic:
		return t.Name + "[" + joinTypes(t.Elems) + "]"
	case List, Set, Dict, Tuple, Iterator:
		return t.Kind.String() + "[" + joinTypes(t.Elems) + "]"
	case Optional:
		return "Optional[" + t.Elem().String() + "]"
	}
	return t.Kind.String()
}

func joinTypes(ts []*Type) string {
	parts := make([]string, len(ts))
	for i, e := range ts {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
