package ast

type (
	FunctionDef struct {
		Pos
		Name       string
		Args       *Arguments
		Body       []Stmt
		Decorators []Expr
		Returns    Expr // nil when unannotated
		IsAsync    bool
	}

	ClassDef struct {
		Pos
		Name       string
		Bases      []Expr
		Keywords   []*Keyword
		Body       []Stmt
		Decorators []Expr
	}

	Return struct {
		Pos
		Value Expr
	}

	Delete struct {
		Pos
		Targets []Expr
	}

	// Assign covers chained assignment: a = b = value.
	Assign struct {
		Pos
		Targets []Expr
		Value   Expr
	}

	AugAssign struct {
		Pos
		Target Expr
		Op     BinOpKind
		Value  Expr
	}

	AnnAssign struct {
		Pos
		Target     Expr
		Annotation Expr
		Value      Expr // may be nil
	}

	For struct {
		Pos
		Target  Expr
		Iter    Expr
		Body    []Stmt
		OrElse  []Stmt
		IsAsync bool
	}

	While struct {
		Pos
		Test   Expr
		Body   []Stmt
		OrElse []Stmt
	}

	If struct {
		Pos
		Test   Expr
		Body   []Stmt
		OrElse []Stmt
	}

	With struct {
		Pos
		Items   []*WithItem
		Body    []Stmt
		IsAsync bool
	}

	Raise struct {
		Pos
		Exc   Expr
		Cause Expr
	}

	Try struct {
		Pos
		Body      []Stmt
		Handlers  []*ExceptHandler
		OrElse    []Stmt
		FinalBody []Stmt
	}

	Assert struct {
		Pos
		Test Expr
		Msg  Expr
	}

	Import struct {
		Pos
		Names []*Alias
	}

	ImportFrom struct {
		Pos
		Module string
		Names  []*Alias
		Level  int
	}

	Global struct {
		Pos
		Names []string
	}

	Nonlocal struct {
		Pos
		Names []string
	}

	ExprStmt struct {
		Pos
		Value Expr
	}

	Pass     struct{ Pos }
	Break    struct{ Pos }
	Continue struct{ Pos }
)

// Arguments is a function or lambda parameter list. Defaults align with the
// tail of Args.
type Arguments struct {
	Args       []*Arg
	Defaults   []Expr
	VarArg     *Arg
	KwOnly     []*Arg
	KwDefaults []Expr // nil entries for kw-only params without default
	KwArg      *Arg
}

type Arg struct {
	Pos
	Name       string
	Annotation Expr
}

type WithItem struct {
	Context Expr
	Vars    Expr
}

type ExceptHandler struct {
	Pos
	Type Expr // nil for bare except
	Name string
	Body []Stmt
}

type Alias struct {
	Pos
	Name   string
	AsName string
}

// Default returns the default value for positional parameter i, or nil.
func (a *Arguments) Default(i int) Expr {
	if a == nil {
		return nil
	}
	off := len(a.Args) - len(a.Defaults)
	if i < off || i-off >= len(a.Defaults) {
		return nil
	}
	return a.Defaults[i-off]
}

func (*FunctionDef) stmtNode() {}
func (*ClassDef) stmtNode()    {}
func (*Return) stmtNode()      {}
func (*Delete) stmtNode()      {}
func (*Assign) stmtNode()      {}
func (*AugAssign) stmtNode()   {}
func (*AnnAssign) stmtNode()   {}
func (*For) stmtNode()         {}
func (*While) stmtNode()       {}
func (*If) stmtNode()          {}
func (*With) stmtNode()        {}
func (*Raise) stmtNode()       {}
func (*Try) stmtNode()         {}
func (*Assert) stmtNode()      {}
func (*Import) stmtNode()      {}
func (*ImportFrom) stmtNode()  {}
func (*Global) stmtNode()      {}
func (*Nonlocal) stmtNode()    {}
func (*ExprStmt) stmtNode()    {}
func (*Pass) stmtNode()        {}
func (*Break) stmtNode()       {}
func (*Continue) stmtNode()    {}
