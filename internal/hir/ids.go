// Package hir is the transpiler's High-level Intermediate Representation.
//
// HIR sits between the Python AST and the Rust syntax tree. Python constructs
// without a direct Rust analogue (membership tests, "is None" checks,
// chained comparisons, del, yield from) are desugared here so that every
// later stage dispatches over a closed set of node kinds.
//
// Analyses never mutate the shape of the tree: types, borrowing strategies
// and lifetimes live in side tables keyed by NodeID and ParamKey.
package hir

// FuncID identifies a function or method within a module.
type FuncID uint32

// NodeID identifies an expression node. Side tables key on it.
type NodeID uint32

// Invalid ID constants (zero is sentinel).
const (
	NoFuncID FuncID = 0
	NoNodeID NodeID = 0
)

func (id FuncID) IsValid() bool { return id != NoFuncID }
func (id NodeID) IsValid() bool { return id != NoNodeID }

// ParamKey addresses one parameter of one function. Index counts declared
// parameters and excludes the receiver.
type ParamKey struct {
	Func  FuncID
	Index int
}
