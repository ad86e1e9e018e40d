package ast

type ConstKind uint8

const (
	ConstNone ConstKind = iota
	ConstBool
	ConstInt
	ConstFloat
	ConstStr
	ConstBytes
	ConstEllipsis
)

type BinOpKind uint8

const (
	Add BinOpKind = iota
	Sub
	Mult
	MatMult
	Div
	FloorDiv
	Mod
	Pow
	LShift
	RShift
	BitOr
	BitXor
	BitAnd
)

var binOpText = [...]string{
	Add: "+", Sub: "-", Mult: "*", MatMult: "@", Div: "/", FloorDiv: "//",
	Mod: "%", Pow: "**", LShift: "<<", RShift: ">>", BitOr: "|", BitXor: "^",
	BitAnd: "&",
}

func (op BinOpKind) String() string { return binOpText[op] }

type UnaryOpKind uint8

const (
	UAdd UnaryOpKind = iota
	USub
	Not
	Invert
)

func (op UnaryOpKind) String() string {
	return [...]string{"+", "-", "not", "~"}[op]
}

type BoolOpKind uint8

const (
	And BoolOpKind = iota
	Or
)

func (op BoolOpKind) String() string {
	if op == And {
		return "and"
	}
	return "or"
}

type CmpOpKind uint8

const (
	Eq CmpOpKind = iota
	NotEq
	Lt
	LtE
	Gt
	GtE
	Is
	IsNot
	In
	NotIn
)

func (op CmpOpKind) String() string {
	return [...]string{"==", "!=", "<", "<=", ">", ">=", "is", "is not", "in", "not in"}[op]
}

type (
	Name struct {
		Pos
		ID string
	}

	// Constant holds literal text; Value is the decoded string for
	// ConstStr/ConstBytes and the normalized source text otherwise.
	Constant struct {
		Pos
		Kind  ConstKind
		Value string
	}

	// JoinedStr is an f-string.
	JoinedStr struct {
		Pos
		Parts []FStringPart
	}

	BinOp struct {
		Pos
		Op          BinOpKind
		Left, Right Expr
	}

	UnaryOp struct {
		Pos
		Op      UnaryOpKind
		Operand Expr
	}

	BoolOp struct {
		Pos
		Op     BoolOpKind
		Values []Expr
	}

	Compare struct {
		Pos
		Left        Expr
		Ops         []CmpOpKind
		Comparators []Expr
	}

	Call struct {
		Pos
		Func     Expr
		Args     []Expr
		Keywords []*Keyword
	}

	Attribute struct {
		Pos
		Value Expr
		Attr  string
	}

	Subscript struct {
		Pos
		Value Expr
		Index Expr
	}

	Slice struct {
		Pos
		Lower, Upper, Step Expr // any may be nil
	}

	List struct {
		Pos
		Elts []Expr
	}

	Tuple struct {
		Pos
		Elts []Expr
	}

	Set struct {
		Pos
		Elts []Expr
	}

	Dict struct {
		Pos
		Keys   []Expr
		Values []Expr
	}

	ListComp struct {
		Pos
		Elt        Expr
		Generators []*Comprehension
	}

	SetComp struct {
		Pos
		Elt        Expr
		Generators []*Comprehension
	}

	DictComp struct {
		Pos
		Key, Value Expr
		Generators []*Comprehension
	}

	GeneratorExp struct {
		Pos
		Elt        Expr
		Generators []*Comprehension
	}

	Lambda struct {
		Pos
		Args *Arguments
		Body Expr
	}

	IfExp struct {
		Pos
		Test, Body, OrElse Expr
	}

	Await struct {
		Pos
		Value Expr
	}

	Yield struct {
		Pos
		Value Expr // nil for bare yield
	}

	YieldFrom struct {
		Pos
		Value Expr
	}

	Starred struct {
		Pos
		Value Expr
	}

	NamedExpr struct {
		Pos
		Target *Name
		Value  Expr
	}
)

// FStringPart is either literal text or a replacement field.
type FStringPart struct {
	Lit  string
	Expr Expr   // nil for literal parts
	Conv byte   // 'r', 's', 'a' or 0
	Spec string // raw format spec after ':'
}

type Keyword struct {
	Pos
	Name  string // empty for **kwargs
	Value Expr
}

type Comprehension struct {
	Pos
	Target  Expr
	Iter    Expr
	Ifs     []Expr
	IsAsync bool
}

func (*Name) exprNode()         {}
func (*Constant) exprNode()     {}
func (*JoinedStr) exprNode()    {}
func (*BinOp) exprNode()        {}
func (*UnaryOp) exprNode()      {}
func (*BoolOp) exprNode()       {}
func (*Compare) exprNode()      {}
func (*Call) exprNode()         {}
func (*Attribute) exprNode()    {}
func (*Subscript) exprNode()    {}
func (*Slice) exprNode()        {}
func (*List) exprNode()         {}
func (*Tuple) exprNode()        {}
func (*Set) exprNode()          {}
func (*Dict) exprNode()         {}
func (*ListComp) exprNode()     {}
func (*SetComp) exprNode()      {}
func (*DictComp) exprNode()     {}
func (*GeneratorExp) exprNode() {}
func (*Lambda) exprNode()       {}
func (*IfExp) exprNode()        {}
func (*Await) exprNode()        {}
func (*Yield) exprNode()        {}
func (*YieldFrom) exprNode()    {}
func (*Starred) exprNode()      {}
func (*NamedExpr) exprNode()    {}
