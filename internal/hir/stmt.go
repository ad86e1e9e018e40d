package hir

import (
	"pyrust/internal/source"
	"pyrust/internal/types"
)

// StmtKind enumerates HIR statement kinds.
type StmtKind uint8

const (
	// StmtAssign binds a name, index, attribute or tuple target.
	StmtAssign StmtKind = iota
	// StmtExpr evaluates an expression for its effect.
	StmtExpr
	// StmtReturn returns an optional value.
	StmtReturn
	StmtIf
	StmtWhile
	// StmtFor iterates; Target is a name or a tuple of names.
	StmtFor
	StmtBreak
	StmtContinue
	// StmtRaise raises an exception class with an optional message.
	StmtRaise
	// StmtWith binds the context value for the duration of the body.
	StmtWith
	// StmtTry covers try/except/else/finally.
	StmtTry
	// StmtAssert checks a condition with an optional message.
	StmtAssert
	StmtPass
)

// String returns a human-readable name for the statement kind.
func (k StmtKind) String() string {
	switch k {
	case StmtAssign:
		return "Assign"
	case StmtExpr:
		return "Expr"
	case StmtReturn:
		return "Return"
	case StmtIf:
		return "If"
	case StmtWhile:
		return "While"
	case StmtFor:
		return "For"
	case StmtBreak:
		return "Break"
	case StmtContinue:
		return "Continue"
	case StmtRaise:
		return "Raise"
	case StmtWith:
		return "With"
	case StmtTry:
		return "Try"
	case StmtAssert:
		return "Assert"
	case StmtPass:
		return "Pass"
	default:
		return "Unknown"
	}
}

// Stmt represents an HIR statement.
type Stmt struct {
	Kind StmtKind
	Span source.Span
	Data StmtData // Kind-specific payload
}

// StmtData is the interface for statement-specific data.
type StmtData interface {
	stmtData()
}

// AssignData holds data for StmtAssign. Op is set for augmented assignment
// (x += v), in which case Aug is true and Target is read before writing.
type AssignData struct {
	Target *Expr
	Value  *Expr
	Annot  *types.Type // explicit annotation, nil when absent
	Aug    bool
	Op     BinOp
}

func (AssignData) stmtData() {}

// ExprStmtData holds data for StmtExpr.
type ExprStmtData struct {
	Expr *Expr
}

func (ExprStmtData) stmtData() {}

// ReturnData holds data for StmtReturn.
type ReturnData struct {
	Value *Expr // nil for bare return
}

func (ReturnData) stmtData() {}

// IfData holds data for StmtIf. elif chains nest in Else.
type IfData struct {
	Cond *Expr
	Then *Block
	Else *Block // nil if no else branch
}

func (IfData) stmtData() {}

// WhileData holds data for StmtWhile.
type WhileData struct {
	Cond *Expr
	Body *Block
}

func (WhileData) stmtData() {}

// ForData holds data for StmtFor.
type ForData struct {
	Target *Expr // ExprName or ExprTuple of names
	Iter   *Expr
	Body   *Block
}

func (ForData) stmtData() {}

// BranchData holds data for StmtBreak and StmtContinue.
type BranchData struct {
	Label string
}

func (BranchData) stmtData() {}

// RaiseData holds data for StmtRaise. Reraise is a bare raise inside a
// handler.
type RaiseData struct {
	ExcType string
	Message *Expr // nil when raised without arguments
	Reraise bool
}

func (RaiseData) stmtData() {}

// WithData holds data for StmtWith.
type WithData struct {
	Context *Expr
	Target  string // empty without "as"
	Body    *Block
}

func (WithData) stmtData() {}

// Handler is one except clause. Types is empty for a bare except.
type Handler struct {
	Types []string
	Name  string
	Body  *Block
	Span  source.Span
}

// Catches reports whether the handler matches exception class name.
func (h *Handler) Catches(name string) bool {
	if len(h.Types) == 0 {
		return true
	}
	for _, t := range h.Types {
		if t == name || t == "Exception" || t == "BaseException" {
			return true
		}
	}
	return false
}

// TryData holds data for StmtTry.
type TryData struct {
	Body     *Block
	Handlers []*Handler
	Else     *Block
	Finally  *Block
}

func (TryData) stmtData() {}

// AssertData holds data for StmtAssert.
type AssertData struct {
	Test    *Expr
	Message *Expr
}

func (AssertData) stmtData() {}

// PassData holds data for StmtPass.
type PassData struct{}

func (PassData) stmtData() {}
