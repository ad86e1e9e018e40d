// Package rust is the target syntax tree: the Rust items, statements and
// expressions the code generator builds, a printer that renders them as
// source text and a token-level validator for the printed text.
package rust

import "pyrust/internal/types"

// File is one generated source file.
type File struct {
	Header []string // line comments, without the leading "//"
	Attrs  []string // inner attributes, e.g. "allow(dead_code)"
	Uses   []string // use paths; printed sorted and deduplicated
	Items  []Item
}

// Item is a top-level declaration.
type Item interface{ item() }

// Const is a "pub const" item.
type Const struct {
	Doc   string
	Name  string
	Type  *types.RustType
	Value Expr
}

// Field is a struct field.
type Field struct {
	Name string
	Type *types.RustType
}

// Struct declares a named-field struct.
type Struct struct {
	Doc     string
	Derives []string
	Name    string
	Fields  []Field
}

// AssocType is "type Name = Type;" inside an impl.
type AssocType struct {
	Name string
	Type *types.RustType
}

// Impl is an inherent impl when Trait is empty.
type Impl struct {
	Trait string
	Type  string
	Assoc []AssocType
	Fns   []*Fn
}

// Param is a function parameter.
type Param struct {
	Name string
	Mut  bool
	Type *types.RustType
}

// Fn is a function or method. Receiver is "&self", "&mut self", "self"
// or empty. Generics lists lifetime and type parameters with their bounds.
type Fn struct {
	Doc      string
	Attrs    []string
	Pub      bool
	Async    bool
	Name     string
	Generics []string
	Receiver string
	Params   []Param
	Ret      *types.RustType // nil for unit
	Body     *Block
}

// RawItem is pre-rendered item text, used for fixed support code.
type RawItem struct {
	Text string
}

func (*Const) item()   {}
func (*Struct) item()  {}
func (*Impl) item()    {}
func (*Fn) item()      {}
func (*RawItem) item() {}

// Block is a brace-delimited statement list with an optional tail value.
type Block struct {
	Stmts []Stmt
	Tail  Expr
}

// Stmt is a statement inside a block.
type Stmt interface{ stmt() }

// Let declares a binding. Value may be nil for a deferred initialization.
type Let struct {
	Pat   Pat
	Type  *types.RustType
	Value Expr
}

// ExprStmt evaluates X. Block-like expressions print without a semicolon.
type ExprStmt struct {
	X Expr
}

// Comment is a line comment inside a block.
type Comment struct {
	Text string
}

func (*Let) stmt()      {}
func (*ExprStmt) stmt() {}
func (*Comment) stmt()  {}

// Pat is a binding or match pattern.
type Pat interface{ pat() }

// Ident binds a name.
type Ident struct {
	Name string
	Mut  bool
	Ref  bool
}

// Wild is "_".
type Wild struct{}

// TuplePat is "(a, b)".
type TuplePat struct {
	Elems []Pat
}

// LitPat matches a literal or a path such as None.
type LitPat struct {
	Text string
}

// VariantPat is "Some(x)" or "Err(e)".
type VariantPat struct {
	Path  string
	Elems []Pat
}

func (*Ident) pat()      {}
func (*Wild) pat()       {}
func (*TuplePat) pat()   {}
func (*LitPat) pat()     {}
func (*VariantPat) pat() {}

// Expr is a Rust expression.
type Expr interface{ expr() }

type (
	// Lit is literal text: 1, 2.5, "s", 'c', true.
	Lit struct{ Text string }
	// Path is an identifier or a path such as std::f64::consts::PI.
	Path struct{ Name string }
	// Unary is a prefix operator: "-", "!", "*".
	Unary struct {
		Op string
		X  Expr
	}
	Binary struct {
		Op   string
		L, R Expr
	}
	Cast struct {
		X    Expr
		Type *types.RustType
	}
	Call struct {
		Func Expr
		Args []Expr
	}
	MethodCall struct {
		Recv   Expr
		Method string
		Turbo  string // turbofish type arguments, without "::<>"
		Args   []Expr
	}
	// FieldExpr is x.name or x.0.
	FieldExpr struct {
		X    Expr
		Name string
	}
	Index struct {
		X, Index Expr
	}
	// Macro is name!(args) or, with Brackets, name![args].
	Macro struct {
		Name     string
		Args     []Expr
		Brackets bool
	}
	Ref struct {
		X   Expr
		Mut bool
	}
	// Try is the ? operator.
	Try   struct{ X Expr }
	Paren struct{ X Expr }
	Tuple struct{ Elems []Expr }
	// Array is "[a, b]".
	Array struct{ Elems []Expr }
	// StructLit is Name { field: value, .. }.
	StructLit struct {
		Name   string
		Fields []FieldInit
	}
	Closure struct {
		Move   bool
		Params []string
		Body   Expr
	}
	// BlockExpr is a block in expression position, optionally labeled.
	BlockExpr struct {
		Label string
		Block *Block
	}
	// If has an Else that is nil, another *If or a *BlockExpr.
	If struct {
		Cond Expr
		Then *Block
		Else Expr
	}
	While struct {
		Label string
		Cond  Expr
		Body  *Block
	}
	Loop struct {
		Label string
		Body  *Block
	}
	For struct {
		Label string
		Pat   Pat
		Iter  Expr
		Body  *Block
	}
	Match struct {
		X    Expr
		Arms []Arm
	}
	Return struct{ X Expr }
	Break  struct {
		Label string
		X     Expr
	}
	Continue struct{ Label string }
	// Assign is "l = r" or a compound "l op= r".
	Assign struct {
		Op   string
		L, R Expr
	}
	Range struct {
		Lo, Hi    Expr
		Inclusive bool
	}
)

// FieldInit is one field of a struct literal.
type FieldInit struct {
	Name  string
	Value Expr
}

// Arm is one match arm.
type Arm struct {
	Pat   Pat
	Guard Expr
	Body  Expr
}

func (*Lit) expr()        {}
func (*Path) expr()       {}
func (*Unary) expr()      {}
func (*Binary) expr()     {}
func (*Cast) expr()       {}
func (*Call) expr()       {}
func (*MethodCall) expr() {}
func (*FieldExpr) expr()  {}
func (*Index) expr()      {}
func (*Macro) expr()      {}
func (*Ref) expr()        {}
func (*Try) expr()        {}
func (*Paren) expr()      {}
func (*Tuple) expr()      {}
func (*Array) expr()      {}
func (*StructLit) expr()  {}
func (*Closure) expr()    {}
func (*BlockExpr) expr()  {}
func (*If) expr()         {}
func (*While) expr()      {}
func (*Loop) expr()       {}
func (*For) expr()        {}
func (*Match) expr()      {}
func (*Return) expr()     {}
func (*Break) expr()      {}
func (*Continue) expr()   {}
func (*Assign) expr()     {}
func (*Range) expr()      {}

// Constructors used throughout the code generator.

func P(name string) *Path { return &Path{Name: name} }

func L(text string) *Lit { return &Lit{Text: text} }

func Bin(op string, l, r Expr) *Binary { return &Binary{Op: op, L: l, R: r} }

func Not(x Expr) *Unary { return &Unary{Op: "!", X: x} }

// M builds a method call.
func M(recv Expr, method string, args ...Expr) *MethodCall {
	return &MethodCall{Recv: recv, Method: method, Args: args}
}

// C builds a call of a path.
func C(fn string, args ...Expr) *Call {
	return &Call{Func: P(fn), Args: args}
}

// Semi wraps an expression as a statement.
func Semi(x Expr) *ExprStmt { return &ExprStmt{X: x} }

// Var is an immutable binding pattern.
func Var(name string) *Ident { return &Ident{Name: name} }

// IsBlockLike reports expressions that end with a block and need no
// semicolon in statement position.
func IsBlockLike(e Expr) bool {
	switch e.(type) {
	case *BlockExpr, *If, *While, *Loop, *For, *Match:
		return true
	}
	return false
}
