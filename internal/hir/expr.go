package hir

import (
	"pyrust/internal/source"
	"pyrust/internal/types"
)

// ExprKind enumerates HIR expression kinds.
type ExprKind uint8

const (
	// ExprLiteral represents int, float, str, bool and None literals.
	ExprLiteral ExprKind = iota
	// ExprName represents a variable, parameter, constant or function name.
	ExprName
	ExprBinary
	ExprUnary
	// ExprCall calls a named function, class constructor or builtin.
	ExprCall
	// ExprMethodCall calls a method on a receiver expression. Desugared
	// forms use reserved method names: __contains__, is_none, is_some.
	ExprMethodCall
	ExprAttr
	ExprIndex
	ExprSlice
	// ExprBorrow marks an explicit &, &mut or clone at a call site. It is
	// created during code generation, never by lowering.
	ExprBorrow
	ExprList
	ExprTuple
	ExprSet
	ExprDict
	ExprListComp
	ExprSetComp
	ExprDictComp
	// ExprGenerator represents a generator expression.
	ExprGenerator
	ExprLambda
	// ExprIfExp represents "a if cond else b".
	ExprIfExp
	ExprAwait
	// ExprFString represents an f-string.
	ExprFString
	// ExprYield only appears as the expression of a StmtExpr.
	ExprYield
)

// String returns a human-readable name for the expression kind.
func (k ExprKind) String() string {
	switch k {
	case ExprLiteral:
		return "Literal"
	case ExprName:
		return "Name"
	case ExprBinary:
		return "Binary"
	case ExprUnary:
		return "Unary"
	case ExprCall:
		return "Call"
	case ExprMethodCall:
		return "MethodCall"
	case ExprAttr:
		return "Attr"
	case ExprIndex:
		return "Index"
	case ExprSlice:
		return "Slice"
	case ExprBorrow:
		return "Borrow"
	case ExprList:
		return "List"
	case ExprTuple:
		return "Tuple"
	case ExprSet:
		return "Set"
	case ExprDict:
		return "Dict"
	case ExprListComp:
		return "ListComp"
	case ExprSetComp:
		return "SetComp"
	case ExprDictComp:
		return "DictComp"
	case ExprGenerator:
		return "Generator"
	case ExprLambda:
		return "Lambda"
	case ExprIfExp:
		return "IfExp"
	case ExprAwait:
		return "Await"
	case ExprFString:
		return "FString"
	case ExprYield:
		return "Yield"
	default:
		return "Unknown"
	}
}

// Expr represents an HIR expression. Its type is looked up by ID in the
// type-flow side table.
type Expr struct {
	ID   NodeID
	Kind ExprKind
	Span source.Span
	Data ExprData // Kind-specific payload
}

// ExprData is the interface for expression-specific data.
type ExprData interface {
	exprData()
}

// LiteralKind enumerates literal value kinds.
type LiteralKind uint8

const (
	LiteralInt LiteralKind = iota
	LiteralFloat
	LiteralStr
	LiteralBool
	LiteralNone
)

// LiteralData holds data for ExprLiteral.
type LiteralData struct {
	Kind  LiteralKind
	Text  string // source text for numeric literals
	Int   int64
	Float float64
	Str   string
	Bool  bool
}

func (LiteralData) exprData() {}

// Type is the Python type of the literal.
func (d LiteralData) Type() *types.Type {
	switch d.Kind {
	case LiteralInt:
		return types.IntT
	case LiteralFloat:
		return types.FloatT
	case LiteralStr:
		return types.StrT
	case LiteralBool:
		return types.BoolT
	}
	return types.NoneT
}

// NameData holds data for ExprName.
type NameData struct {
	Name string
}

func (NameData) exprData() {}

// BinaryData holds data for ExprBinary.
type BinaryData struct {
	Op    BinOp
	Left  *Expr
	Right *Expr
}

func (BinaryData) exprData() {}

// UnaryData holds data for ExprUnary.
type UnaryData struct {
	Op      UnaryOp
	Operand *Expr
}

func (UnaryData) exprData() {}

// Kwarg is a keyword argument.
type Kwarg struct {
	Name  string
	Value *Expr
}

// CallData holds data for ExprCall. Func is a plain name ("len", "Point",
// "helper") or a module-qualified name ("math.sqrt").
type CallData struct {
	Func   string
	Args   []*Expr
	Kwargs []Kwarg
}

func (CallData) exprData() {}

// MethodCallData holds data for ExprMethodCall.
type MethodCallData struct {
	Receiver *Expr
	Method   string
	Args     []*Expr
	Kwargs   []Kwarg
}

func (MethodCallData) exprData() {}

// AttrData holds data for ExprAttr.
type AttrData struct {
	Object *Expr
	Name   string
}

func (AttrData) exprData() {}

// IndexData holds data for ExprIndex.
type IndexData struct {
	Object *Expr
	Index  *Expr
}

func (IndexData) exprData() {}

// SliceData holds data for ExprSlice; any bound may be nil.
type SliceData struct {
	Object *Expr
	Lower  *Expr
	Upper  *Expr
	Step   *Expr
}

func (SliceData) exprData() {}

// BorrowMode selects the call-site adaptation of an argument.
type BorrowMode uint8

const (
	BorrowShared BorrowMode = iota
	BorrowMut
	BorrowClone
)

// BorrowData holds data for ExprBorrow.
type BorrowData struct {
	Value *Expr
	Mode  BorrowMode
}

func (BorrowData) exprData() {}

// SeqData holds data for ExprList, ExprTuple and ExprSet.
type SeqData struct {
	Elems []*Expr
}

func (SeqData) exprData() {}

// DictData holds data for ExprDict.
type DictData struct {
	Keys   []*Expr
	Values []*Expr
}

func (DictData) exprData() {}

// CompFor is one "for target in iter if cond" clause.
type CompFor struct {
	Target *Expr
	Iter   *Expr
	Ifs    []*Expr
}

// CompData holds data for the comprehension kinds. Key is only set for
// ExprDictComp, where Elem is the value.
type CompData struct {
	Key  *Expr
	Elem *Expr
	For  []*CompFor
}

func (CompData) exprData() {}

// LambdaData holds data for ExprLambda.
type LambdaData struct {
	Params []string
	Body   *Expr
}

func (LambdaData) exprData() {}

// IfExpData holds data for ExprIfExp.
type IfExpData struct {
	Cond *Expr
	Then *Expr
	Else *Expr
}

func (IfExpData) exprData() {}

// AwaitData holds data for ExprAwait.
type AwaitData struct {
	Value *Expr
}

func (AwaitData) exprData() {}

// FStringPart is literal text (Value nil) or a formatted field.
type FStringPart struct {
	Lit   string
	Value *Expr
	Conv  byte
	Spec  string
}

// FStringData holds data for ExprFString.
type FStringData struct {
	Parts []FStringPart
}

func (FStringData) exprData() {}

// YieldData holds data for ExprYield.
type YieldData struct {
	Value *Expr // nil for bare yield
}

func (YieldData) exprData() {}

// NameOf returns the identifier of an ExprName, or "".
func NameOf(e *Expr) string {
	if e == nil || e.Kind != ExprName {
		return ""
	}
	return e.Data.(NameData).Name
}

// IsNoneLit reports a None literal.
func IsNoneLit(e *Expr) bool {
	if e == nil || e.Kind != ExprLiteral {
		return false
	}
	return e.Data.(LiteralData).Kind == LiteralNone
}
