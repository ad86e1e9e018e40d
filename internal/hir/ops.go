package hir

// BinOp enumerates binary operators after desugaring. Comparisons and the
// short-circuit boolean operators share the enum.
type BinOp uint8

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv // true division
	OpFloorDiv
	OpMod
	OpPow
	OpLShift
	OpRShift
	OpBitOr
	OpBitXor
	OpBitAnd
	OpAnd
	OpOr
	OpEq
	OpNotEq
	OpLt
	OpLtE
	OpGt
	OpGtE
)

var binOpText = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpFloorDiv: "//", OpMod: "%",
	OpPow: "**", OpLShift: "<<", OpRShift: ">>", OpBitOr: "|", OpBitXor: "^",
	OpBitAnd: "&", OpAnd: "and", OpOr: "or", OpEq: "==", OpNotEq: "!=",
	OpLt: "<", OpLtE: "<=", OpGt: ">", OpGtE: ">=",
}

func (op BinOp) String() string { return binOpText[op] }

// IsComparison reports ==, !=, <, <=, >, >=.
func (op BinOp) IsComparison() bool { return op >= OpEq }

// IsLogical reports and/or.
func (op BinOp) IsLogical() bool { return op == OpAnd || op == OpOr }

// IsArith reports operators producing a numeric value.
func (op BinOp) IsArith() bool { return op <= OpBitAnd }

// UnaryOp enumerates unary operators.
type UnaryOp uint8

const (
	OpNeg UnaryOp = iota
	OpPos
	OpNot
	OpInvert
)

func (op UnaryOp) String() string {
	return [...]string{"-", "+", "not ", "~"}[op]
}
