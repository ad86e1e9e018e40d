package hir

import (
	"pyrust/internal/source"
	"pyrust/internal/types"
)

// Field is a struct field synthesized from __init__ assignments to self or
// from annotated dataclass body entries.
type Field struct {
	Name    string
	Type    *types.Type // nil when it must be inferred
	Default *Expr       // dataclass default, nil otherwise
	Span    source.Span
}

// Class lowers to a struct and an impl block.
type Class struct {
	Name      string
	Base      string // single base class name, empty when none
	Fields    []*Field
	Methods   []*Func
	Doc       string
	Dataclass bool
	Span      source.Span
}

// IsException reports whether the class derives from a builtin exception.
func (c *Class) IsException() bool {
	return c.Base != "" && IsExceptionName(c.Base)
}

// Init returns the constructor, or nil.
func (c *Class) Init() *Func {
	for _, m := range c.Methods {
		if m.Flags.HasFlag(FuncInit) {
			return m
		}
	}
	return nil
}

// Method finds a method by name.
func (c *Class) Method(name string) *Func {
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Field finds a field by name.
func (c *Class) Field(name string) *Field {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

var exceptionNames = map[string]bool{
	"Exception": true, "BaseException": true, "ValueError": true, "TypeError": true,
	"KeyError": true, "IndexError": true, "ZeroDivisionError": true, "RuntimeError": true,
	"ArithmeticError": true, "LookupError": true, "AssertionError": true,
	"NotImplementedError": true, "OverflowError": true, "StopIteration": true,
	"AttributeError": true, "FileNotFoundError": true, "IOError": true, "OSError": true,
	"PermissionError": true, "ArgumentError": true,
}

// IsExceptionName reports whether name is a builtin exception class.
func IsExceptionName(name string) bool { return exceptionNames[name] }
