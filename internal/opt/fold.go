package opt

import (
	"math"
	"strconv"
	"strings"

	"pyrust/internal/hir"
)

// Folded integers stay inside the narrowest configurable target width so
// the emitted literal is valid for every integer mapping.
const (
	minFoldInt = math.MinInt32
	maxFoldInt = math.MaxInt32
)

func intLit(v int64) hir.LiteralData {
	return hir.LiteralData{Kind: hir.LiteralInt, Int: v, Text: strconv.FormatInt(v, 10)}
}

func floatLit(v float64) hir.LiteralData {
	text := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(text, ".eEn") {
		text += ".0"
	}
	return hir.LiteralData{Kind: hir.LiteralFloat, Float: v, Text: text}
}

func boolLit(v bool) hir.LiteralData {
	text := "False"
	if v {
		text = "True"
	}
	return hir.LiteralData{Kind: hir.LiteralBool, Bool: v, Text: text}
}

func literalOf(e *hir.Expr) (hir.LiteralData, bool) {
	if e == nil || e.Kind != hir.ExprLiteral {
		return hir.LiteralData{}, false
	}
	return e.Data.(hir.LiteralData), true
}

func numeric(d hir.LiteralData) (float64, bool) {
	switch d.Kind {
	case hir.LiteralInt:
		return float64(d.Int), true
	case hir.LiteralFloat:
		return d.Float, true
	}
	return 0, false
}

// foldExpr folds e bottom-up. It returns the new root and how many nodes
// were folded. Folded nodes keep their id.
func foldExpr(e *hir.Expr) (*hir.Expr, int) {
	n := 0
	root := hir.RewriteExpr(e, func(x *hir.Expr) *hir.Expr {
		if lit, ok := foldNode(x); ok {
			x.Kind = hir.ExprLiteral
			x.Data = lit
			n++
			return x
		}
		if d, ok := x.Data.(hir.IfExpData); ok {
			if c, ok := literalOf(d.Cond); ok && c.Kind == hir.LiteralBool {
				n++
				if c.Bool {
					return d.Then
				}
				return d.Else
			}
		}
		return x
	})
	return root, n
}

func foldNode(e *hir.Expr) (hir.LiteralData, bool) {
	switch d := e.Data.(type) {
	case hir.UnaryData:
		return foldUnary(d)
	case hir.BinaryData:
		l, lok := literalOf(d.Left)
		r, rok := literalOf(d.Right)
		if !lok || !rok {
			return hir.LiteralData{}, false
		}
		return foldBinary(d.Op, l, r)
	}
	return hir.LiteralData{}, false
}

func foldUnary(d hir.UnaryData) (hir.LiteralData, bool) {
	v, ok := literalOf(d.Operand)
	if !ok {
		return v, false
	}
	switch {
	case d.Op == hir.OpNot && v.Kind == hir.LiteralBool:
		return boolLit(!v.Bool), true
	case d.Op == hir.OpNeg && v.Kind == hir.LiteralInt && v.Int != math.MinInt64:
		return intLit(-v.Int), true
	case d.Op == hir.OpNeg && v.Kind == hir.LiteralFloat:
		return floatLit(-v.Float), true
	case d.Op == hir.OpPos && (v.Kind == hir.LiteralInt || v.Kind == hir.LiteralFloat):
		return v, true
	case d.Op == hir.OpInvert && v.Kind == hir.LiteralInt:
		return intLit(^v.Int), true
	}
	return v, false
}

func foldBinary(op hir.BinOp, l, r hir.LiteralData) (hir.LiteralData, bool) {
	switch {
	case l.Kind == hir.LiteralBool && r.Kind == hir.LiteralBool:
		return foldBool(op, l.Bool, r.Bool)
	case l.Kind == hir.LiteralStr && r.Kind == hir.LiteralStr:
		switch op {
		case hir.OpAdd:
			return hir.LiteralData{Kind: hir.LiteralStr, Str: l.Str + r.Str}, true
		case hir.OpEq:
			return boolLit(l.Str == r.Str), true
		case hir.OpNotEq:
			return boolLit(l.Str != r.Str), true
		}
		return l, false
	case l.Kind == hir.LiteralInt && r.Kind == hir.LiteralInt:
		return foldInt(op, l.Int, r.Int)
	}
	a, aok := numeric(l)
	b, bok := numeric(r)
	if !aok || !bok {
		return l, false
	}
	return foldFloat(op, a, b)
}

func foldBool(op hir.BinOp, a, b bool) (hir.LiteralData, bool) {
	switch op {
	case hir.OpAnd:
		return boolLit(a && b), true
	case hir.OpOr:
		return boolLit(a || b), true
	case hir.OpEq:
		return boolLit(a == b), true
	case hir.OpNotEq:
		return boolLit(a != b), true
	}
	return hir.LiteralData{}, false
}

func inFoldRange(v int64) bool { return v >= minFoldInt && v <= maxFoldInt }

// foldInt folds integer arithmetic with Python's floor semantics. True
// division is left alone: its lowering depends on the result type.
func foldInt(op hir.BinOp, a, b int64) (hir.LiteralData, bool) {
	if !inFoldRange(a) || !inFoldRange(b) {
		return hir.LiteralData{}, false
	}
	var v int64
	switch op {
	case hir.OpAdd:
		v = a + b
	case hir.OpSub:
		v = a - b
	case hir.OpMul:
		v = a * b
	case hir.OpFloorDiv:
		if b == 0 {
			return hir.LiteralData{}, false
		}
		v = floorDiv(a, b)
	case hir.OpMod:
		if b == 0 {
			return hir.LiteralData{}, false
		}
		v = a - floorDiv(a, b)*b
	case hir.OpPow:
		if b < 0 || b > 31 {
			return hir.LiteralData{}, false
		}
		v = 1
		for i := int64(0); i < b; i++ {
			v *= a
			if !inFoldRange(v) {
				return hir.LiteralData{}, false
			}
		}
	case hir.OpBitAnd:
		v = a & b
	case hir.OpBitOr:
		v = a | b
	case hir.OpBitXor:
		v = a ^ b
	case hir.OpEq:
		return boolLit(a == b), true
	case hir.OpNotEq:
		return boolLit(a != b), true
	case hir.OpLt:
		return boolLit(a < b), true
	case hir.OpLtE:
		return boolLit(a <= b), true
	case hir.OpGt:
		return boolLit(a > b), true
	case hir.OpGtE:
		return boolLit(a >= b), true
	default:
		return hir.LiteralData{}, false
	}
	if !inFoldRange(v) {
		return hir.LiteralData{}, false
	}
	return intLit(v), true
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func foldFloat(op hir.BinOp, a, b float64) (hir.LiteralData, bool) {
	var v float64
	switch op {
	case hir.OpAdd:
		v = a + b
	case hir.OpSub:
		v = a - b
	case hir.OpMul:
		v = a * b
	case hir.OpEq:
		return boolLit(a == b), true
	case hir.OpNotEq:
		return boolLit(a != b), true
	case hir.OpLt:
		return boolLit(a < b), true
	case hir.OpLtE:
		return boolLit(a <= b), true
	case hir.OpGt:
		return boolLit(a > b), true
	case hir.OpGtE:
		return boolLit(a >= b), true
	default:
		return hir.LiteralData{}, false
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return hir.LiteralData{}, false
	}
	return floatLit(v), true
}
