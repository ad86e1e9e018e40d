package hir

import (
	"pyrust/internal/source"
	"pyrust/internal/types"
)

// FuncFlags represents function properties as a bitmask.
type FuncFlags uint32

const (
	// FuncAsync marks "async def".
	FuncAsync FuncFlags = 1 << iota
	// FuncGenerator marks a body containing yield.
	FuncGenerator
	// FuncMethod marks a function declared inside a class.
	FuncMethod
	// FuncInit marks a class constructor (__init__).
	FuncInit
	// FuncEntry marks the program entry point.
	FuncEntry
	// FuncDunder marks other special methods (__str__, __eq__, ...).
	FuncDunder
)

// HasFlag returns true if the given flag is set.
func (f FuncFlags) HasFlag(flag FuncFlags) bool {
	return f&flag != 0
}

func (f FuncFlags) String() string {
	s := ""
	if f.HasFlag(FuncAsync) {
		s += "async "
	}
	if f.HasFlag(FuncGenerator) {
		s += "generator "
	}
	if f.HasFlag(FuncInit) {
		s += "init "
	}
	if f.HasFlag(FuncEntry) {
		s += "entry "
	}
	return s
}

// Receiver describes how a method takes self.
type Receiver uint8

const (
	RecvNone     Receiver = iota // free function
	RecvRef                      // &self
	RecvMut                      // &mut self
	RecvStatic                   // @staticmethod
	RecvClass                    // @classmethod, cls maps to Self
	RecvProperty                 // @property getter, &self
)

func (r Receiver) String() string {
	switch r {
	case RecvRef:
		return "&self"
	case RecvMut:
		return "&mut self"
	case RecvStatic:
		return "static"
	case RecvClass:
		return "class"
	case RecvProperty:
		return "property"
	}
	return ""
}

// TakesSelf reports whether the method has a self receiver.
func (r Receiver) TakesSelf() bool {
	return r == RecvRef || r == RecvMut || r == RecvProperty
}

// Param represents a function parameter. Type is the declared annotation or
// nil; the inferred type lives in the type-flow side table.
type Param struct {
	Name    string
	Type    *types.Type
	Default *Expr
	Span    source.Span
}

// Func represents an HIR function or method.
type Func struct {
	ID       FuncID
	Name     string
	Class    string // owning class for methods
	Params   []*Param
	Returns  *types.Type // declared, nil when unannotated
	Body     *Block
	Flags    FuncFlags
	Receiver Receiver
	Doc      string
	Span     source.Span

	// Inlined is the deepest chain of calls the optimizer inlined into Body.
	Inlined int
}

func (f *Func) IsGenerator() bool { return f.Flags.HasFlag(FuncGenerator) }
func (f *Func) IsAsync() bool     { return f.Flags.HasFlag(FuncAsync) }
func (f *Func) IsMethod() bool    { return f.Flags.HasFlag(FuncMethod) }

// ParamIndex returns the index of the named parameter or -1.
func (f *Func) ParamIndex(name string) int {
	for i, p := range f.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// QualName is Class.name for methods.
func (f *Func) QualName() string {
	if f.Class != "" {
		return f.Class + "." + f.Name
	}
	return f.Name
}
