package hir

import (
	"pyrust/internal/source"
	"pyrust/internal/types"
)

// Module is the HIR of one source file.
type Module struct {
	Name    string
	Path    string
	File    source.FileID
	Imports []*Import
	Consts  []*Const
	Classes []*Class
	Funcs   []*Func // free functions, in source order
	Main    *Block  // body of the __main__ guard, nil when absent
	Doc     string

	nextNode NodeID
	nextFunc FuncID
}

// NewModule returns an empty module ready for lowering.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// NewNodeID allocates a fresh expression id.
func (m *Module) NewNodeID() NodeID {
	m.nextNode++
	return m.nextNode
}

// NodeCount is the number of expression ids allocated so far.
func (m *Module) NodeCount() int { return int(m.nextNode) }

func (m *Module) newFuncID() FuncID {
	m.nextFunc++
	return m.nextFunc
}

// NewExpr allocates an expression with a fresh id.
func (m *Module) NewExpr(kind ExprKind, span source.Span, data ExprData) *Expr {
	return &Expr{ID: m.NewNodeID(), Kind: kind, Span: span, Data: data}
}

// AllFuncs returns free functions followed by methods, class by class.
func (m *Module) AllFuncs() []*Func {
	out := make([]*Func, 0, len(m.Funcs))
	out = append(out, m.Funcs...)
	for _, c := range m.Classes {
		out = append(out, c.Methods...)
	}
	return out
}

// FuncByName finds a free function.
func (m *Module) FuncByName(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FuncByID finds any function or method.
func (m *Module) FuncByID(id FuncID) *Func {
	for _, f := range m.AllFuncs() {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// ClassByName finds a class declared in the module.
func (m *Module) ClassByName(name string) *Class {
	for _, c := range m.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ConstByName finds a module-level constant.
func (m *Module) ConstByName(name string) *Const {
	for _, c := range m.Consts {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Import is a retained import. Type-only imports never reach HIR.
type Import struct {
	Module string   // "math", "sys"
	Names  []string // imported names for "from m import a, b"; empty for "import m"
	Alias  string
	Span   source.Span
}

// Const is a module-level constant binding.
type Const struct {
	Name  string
	Type  *types.Type // annotation, nil when absent
	Value *Expr
	Span  source.Span
}
