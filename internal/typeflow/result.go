package typeflow

import (
	"pyrust/internal/hir"
	"pyrust/internal/types"
)

// FuncTypes holds the inferred signature and locals of one function.
type FuncTypes struct {
	Params []*types.Type
	Return *types.Type
	Yield  *types.Type // element type of a generator, nil otherwise
	Locals *Env
}

// Param returns the type of parameter i or Unknown.
func (f *FuncTypes) Param(i int) *types.Type {
	if f == nil || i < 0 || i >= len(f.Params) {
		return types.UnknownT
	}
	return f.Params[i]
}

// Result stores the side tables produced by Infer.
type Result struct {
	Exprs  map[hir.NodeID]*types.Type
	Funcs  map[hir.FuncID]*FuncTypes
	Fields map[string]map[string]*types.Type // class -> field -> type
	Consts map[string]*types.Type
	Main   *FuncTypes // __main__ guard body, nil when absent

	// Narrowed marks name reads of an Optional that a preceding None test
	// proved present; their recorded type is the element type.
	Narrowed map[hir.NodeID]bool
}

func newResult() *Result {
	return &Result{
		Exprs:  make(map[hir.NodeID]*types.Type),
		Funcs:  make(map[hir.FuncID]*FuncTypes),
		Fields: make(map[string]map[string]*types.Type),
		Consts: make(map[string]*types.Type),

		Narrowed: make(map[hir.NodeID]bool),
	}
}

// TypeOf returns the inferred type of e, Unknown when never visited.
func (r *Result) TypeOf(e *hir.Expr) *types.Type {
	if r == nil || e == nil {
		return types.UnknownT
	}
	if t, ok := r.Exprs[e.ID]; ok {
		return t
	}
	return types.UnknownT
}

// IsNarrowed reports whether e reads an Optional name known to be Some.
func (r *Result) IsNarrowed(e *hir.Expr) bool {
	return r != nil && e != nil && r.Narrowed[e.ID]
}

// Func returns the signature table of fn.
func (r *Result) Func(id hir.FuncID) *FuncTypes {
	if r == nil {
		return nil
	}
	return r.Funcs[id]
}

// ParamType resolves a ParamKey.
func (r *Result) ParamType(k hir.ParamKey) *types.Type {
	return r.Func(k.Func).Param(k.Index)
}

// Field returns the type of a class field.
func (r *Result) Field(class, name string) *types.Type {
	if r == nil {
		return types.UnknownT
	}
	if t, ok := r.Fields[class][name]; ok {
		return t
	}
	return types.UnknownT
}

// Local returns the type of a local binding in fn.
func (r *Result) Local(id hir.FuncID, name string) *types.Type {
	ft := r.Func(id)
	if ft == nil || ft.Locals == nil {
		return types.UnknownT
	}
	return ft.Locals.Type(name)
}
