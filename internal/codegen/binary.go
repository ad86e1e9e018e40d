package codegen

import (
	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/rust"
	"pyrust/internal/types"
)

// Helper functions emitted on demand for Python's floored integer
// division and modulo.
const (
	helperFloorDiv = "py_floor_div"
	helperMod      = "py_mod"
	helperGcd      = "py_gcd"
)

var rustOps = map[hir.BinOp]string{
	hir.OpAdd: "+", hir.OpSub: "-", hir.OpMul: "*", hir.OpDiv: "/", hir.OpMod: "%",
	hir.OpLShift: "<<", hir.OpRShift: ">>", hir.OpBitOr: "|", hir.OpBitXor: "^", hir.OpBitAnd: "&",
	hir.OpAnd: "&&", hir.OpOr: "||",
	hir.OpEq: "==", hir.OpNotEq: "!=", hir.OpLt: "<", hir.OpLtE: "<=", hir.OpGt: ">", hir.OpGtE: ">=",
}

func (fc *fnCtx) binary(e *hir.Expr, d hir.BinaryData) (value, error) {
	t := fc.g.tf.TypeOf(e)
	if d.Op.IsLogical() {
		return fc.logical(e, d, t)
	}
	l, err := fc.expr(d.Left)
	if err != nil {
		return value{}, err
	}
	r, err := fc.expr(d.Right)
	if err != nil {
		return value{}, err
	}
	if d.Op.IsComparison() {
		x, err := fc.compare(e, d.Op, l, r)
		if err != nil {
			return value{}, err
		}
		return temp(x, types.BoolT), nil
	}
	x, err := fc.arith(e, d.Op, l, r, t)
	if err != nil {
		return value{}, err
	}
	return temp(x, t), nil
}

// logical lowers and/or. Boolean operands short-circuit directly; other
// operands yield the deciding operand as Python does.
func (fc *fnCtx) logical(e *hir.Expr, d hir.BinaryData, t *types.Type) (value, error) {
	if t != nil && t.Kind == types.Bool {
		l, err := fc.cond(d.Left)
		if err != nil {
			return value{}, err
		}
		r, err := fc.cond(d.Right)
		if err != nil {
			return value{}, err
		}
		return temp(rust.Bin(rustOps[d.Op], l, r), types.BoolT), nil
	}
	l, err := fc.expr(d.Left)
	if err != nil {
		return value{}, err
	}
	r, err := fc.expr(d.Right)
	if err != nil {
		return value{}, err
	}
	name := fc.fresh("lhs")
	bound := place(rust.P(name), l.t)
	test, err := fc.truthy(bound, d.Left)
	if err != nil {
		return value{}, err
	}
	keep, other := fc.coerce(bound, t), fc.coerce(r, t)
	var x rust.Expr
	if d.Op == hir.OpOr {
		x = ifElse(test, keep, other)
	} else {
		x = ifElse(test, other, keep)
	}
	block := &rust.Block{
		Stmts: []rust.Stmt{&rust.Let{Pat: rust.Var(name), Value: fc.consume(l)}},
		Tail:  x,
	}
	return temp(&rust.BlockExpr{Block: block}, t), nil
}

func (fc *fnCtx) compare(e *hir.Expr, op hir.BinOp, l, r value) (rust.Expr, error) {
	lt, rt := l.t, r.t
	switch {
	case lt != nil && lt.Kind == types.None || rt != nil && rt.Kind == types.None:
		other := l
		if lt != nil && lt.Kind == types.None {
			other = r
		}
		m := "is_none"
		if op == hir.OpNotEq {
			m = "is_some"
		}
		if op != hir.OpEq && op != hir.OpNotEq {
			return nil, diag.Errorf(diag.CodeGenError, e.Span, "ordering comparison with None")
		}
		return rust.M(other.x, m), nil
	case isStr(lt) || isStr(rt):
		return rust.Bin(rustOps[op], fc.asStr(l), fc.asStr(r)), nil
	case isFloat(lt) && !isFloat(rt):
		return rust.Bin(rustOps[op], fc.operand(l), fc.coerce(r, types.FloatT)), nil
	case isFloat(rt) && !isFloat(lt):
		return rust.Bin(rustOps[op], fc.coerce(l, types.FloatT), fc.operand(r)), nil
	case lt != nil && lt.Kind == types.Optional && rt != nil && rt.Kind != types.Optional && !rt.IsUnknown():
		return rust.Bin(rustOps[op], fc.operand(l), rust.C("Some", fc.consume(r))), nil
	}
	return rust.Bin(rustOps[op], fc.cmpOperand(l), fc.cmpOperand(r)), nil
}

// cmpOperand reads a value for ==: references to containers compare
// through the reference on both sides.
func (fc *fnCtx) cmpOperand(v value) rust.Expr {
	if v.kind == valRef && !copyish(v.t) {
		return &rust.Unary{Op: "*", X: v.x}
	}
	return fc.operand(v)
}

func (fc *fnCtx) arith(e *hir.Expr, op hir.BinOp, l, r value, t *types.Type) (rust.Expr, error) {
	lt, rt := l.t, r.t
	if lt == nil {
		lt = types.UnknownT
	}
	if rt == nil {
		rt = types.UnknownT
	}
	switch {
	case lt.Kind == types.Str || rt.Kind == types.Str:
		return fc.strArith(e, op, l, r)
	case lt.Kind == types.List:
		return fc.listArith(e, op, l, r)
	case lt.Kind == types.Set && rt.Kind == types.Set:
		return fc.setArith(e, op, l, r)
	case lt.Kind == types.Custom || rt.Kind == types.Custom:
		return nil, diag.Errorf(diag.CodeGenError, e.Span, "operator %s on class instances", op)
	}

	float := op == hir.OpDiv || lt.Kind == types.Float || rt.Kind == types.Float
	if op == hir.OpPow {
		return fc.pow(l, r, float)
	}
	var a, b rust.Expr
	if float {
		a, b = fc.coerce(l, types.FloatT), fc.coerce(r, types.FloatT)
	} else {
		a, b = fc.coerce(l, types.IntT), fc.coerce(r, types.IntT)
	}
	switch op {
	case hir.OpFloorDiv, hir.OpMod, hir.OpDiv:
		return fc.division(op, a, b, float), nil
	}
	if float && (op == hir.OpLShift || op == hir.OpRShift || op == hir.OpBitAnd || op == hir.OpBitOr || op == hir.OpBitXor) {
		return nil, diag.Errorf(diag.CodeGenError, e.Span, "bitwise %s on float", op)
	}
	return rust.Bin(rustOps[op], a, b), nil
}

func (fc *fnCtx) division(op hir.BinOp, a, b rust.Expr, float bool) rust.Expr {
	apply := func(a, b rust.Expr) rust.Expr {
		switch {
		case op == hir.OpDiv:
			return rust.Bin("/", a, b)
		case op == hir.OpFloorDiv && float:
			return rust.M(&rust.Paren{X: rust.Bin("/", a, b)}, "floor")
		case op == hir.OpFloorDiv:
			return fc.helperCall(helperFloorDiv, a, b)
		case float:
			// Python's modulo takes the sign of the divisor.
			return rust.Bin("%", &rust.Paren{X: rust.Bin("+", &rust.Paren{X: rust.Bin("%", a, b)}, b)}, b)
		}
		return fc.helperCall(helperMod, a, b)
	}
	label := fc.zeroDivLabel()
	if label == "" {
		return apply(a, b)
	}
	// Inside a try that handles ZeroDivisionError a zero divisor raises it.
	fc.g.errorType("ZeroDivisionError")
	lhs, rhs := fc.fresh("lhs"), fc.fresh("divisor")
	zero := rust.L("0")
	if float {
		zero = rust.L("0.0")
	}
	exc := rust.M(rust.C("ZeroDivisionError::new", rust.L(`"division by zero"`)), "into")
	raise := &rust.Block{Stmts: []rust.Stmt{rust.Semi(&rust.Break{Label: label, X: rust.C("Some", exc)})}}
	return &rust.BlockExpr{Block: &rust.Block{
		Stmts: []rust.Stmt{
			&rust.Let{Pat: rust.Var(lhs), Value: a},
			&rust.Let{Pat: rust.Var(rhs), Value: b},
			rust.Semi(&rust.If{Cond: rust.Bin("==", rust.P(rhs), zero), Then: raise}),
		},
		Tail: apply(rust.P(lhs), rust.P(rhs)),
	}}
}

// zeroDivLabel is the label of the innermost try when an enclosing handler
// catches ZeroDivisionError, and "" otherwise. Lambda bodies are closures
// and cannot break out to the try.
func (fc *fnCtx) zeroDivLabel() string {
	if len(fc.tries) == 0 || fc.lambdas > 0 {
		return ""
	}
	for _, tf := range fc.tries {
		for _, h := range tf.handlers {
			if h.Catches("ZeroDivisionError") {
				return fc.tries[len(fc.tries)-1].label
			}
		}
	}
	return ""
}

func (fc *fnCtx) pow(l, r value, float bool) (rust.Expr, error) {
	if !float {
		base := suffixed(fc.coerce(l, types.IntT), fc.intType())
		return rust.M(base, "pow", &rust.Cast{X: fc.operand(r), Type: types.Prim(types.U32)}), nil
	}
	base := fc.coerce(l, types.FloatT)
	if _, ok := base.(*rust.Lit); ok {
		base = suffixed(base, types.RustF64)
	}
	if isInt(r.t) && !isFloat(r.t) {
		if lit, ok := r.x.(*rust.Lit); ok {
			return rust.M(base, "powi", lit), nil
		}
		return rust.M(base, "powi", &rust.Cast{X: fc.operand(r), Type: types.Prim(types.I32)}), nil
	}
	return rust.M(base, "powf", fc.coerce(r, types.FloatT)), nil
}

func (fc *fnCtx) strArith(e *hir.Expr, op hir.BinOp, l, r value) (rust.Expr, error) {
	switch op {
	case hir.OpAdd:
		if isStr(l.t) && isStr(r.t) {
			return &rust.Macro{Name: "format", Args: []rust.Expr{rust.L(`"{}{}"`), fc.asStr(l), fc.asStr(r)}}, nil
		}
	case hir.OpMul:
		s, n := l, r
		if !isStr(s.t) {
			s, n = r, l
		}
		if isInt(n.t) {
			return rust.M(fc.asStr(s), "repeat", fc.asUsize(n)), nil
		}
	case hir.OpMod:
		return nil, diag.Unsupported(e.Span, "printf-style string formatting")
	}
	return nil, diag.Errorf(diag.CodeGenError, e.Span, "operator %s on %s and %s", op, l.t, r.t)
}

func (fc *fnCtx) listArith(e *hir.Expr, op hir.BinOp, l, r value) (rust.Expr, error) {
	switch op {
	case hir.OpAdd:
		parts := &rust.Array{Elems: []rust.Expr{rust.M(l.x, "as_slice"), rust.M(r.x, "as_slice")}}
		return rust.M(parts, "concat"), nil
	case hir.OpMul:
		if isInt(r.t) {
			return rust.M(l.x, "repeat", fc.asUsize(r)), nil
		}
	}
	return nil, diag.Errorf(diag.CodeGenError, e.Span, "operator %s on lists", op)
}

var setOps = map[hir.BinOp]string{
	hir.OpBitOr:  "union",
	hir.OpBitAnd: "intersection",
	hir.OpSub:    "difference",
	hir.OpBitXor: "symmetric_difference",
}

func (fc *fnCtx) setArith(e *hir.Expr, op hir.BinOp, l, r value) (rust.Expr, error) {
	m, ok := setOps[op]
	if !ok {
		return nil, diag.Errorf(diag.CodeGenError, e.Span, "operator %s on sets", op)
	}
	fc.g.use("std::collections::HashSet")
	it := rust.M(rust.M(l.x, m, fc.shared(r)), "cloned")
	return &rust.MethodCall{Recv: it, Method: "collect", Turbo: "HashSet<_>"}, nil
}

func (fc *fnCtx) helperCall(name string, args ...rust.Expr) rust.Expr {
	fc.g.helpers.Insert(name)
	return rust.C(name, args...)
}

// cond lowers an expression in boolean position.
func (fc *fnCtx) cond(e *hir.Expr) (rust.Expr, error) {
	v, err := fc.expr(e)
	if err != nil {
		return nil, err
	}
	return fc.truthy(v, e)
}

// truthy tests a value the way Python's bool() does.
func (fc *fnCtx) truthy(v value, e *hir.Expr) (rust.Expr, error) {
	t := v.t
	if t == nil {
		t = types.UnknownT
	}
	switch t.Kind {
	case types.Bool:
		return fc.operand(v), nil
	case types.Int, types.Unknown:
		return rust.Bin("!=", fc.operand(v), rust.L("0")), nil
	case types.Float:
		return rust.Bin("!=", fc.operand(v), rust.L("0.0")), nil
	case types.Str, types.List, types.Dict, types.Set:
		return rust.Not(rust.M(v.x, "is_empty")), nil
	case types.Optional:
		return rust.M(v.x, "is_some"), nil
	case types.None:
		return rust.L("false"), nil
	}
	return nil, diag.Errorf(diag.CodeGenError, e.Span, "truth value of %s is not supported", t)
}
