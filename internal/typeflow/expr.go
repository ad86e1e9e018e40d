package typeflow

import (
	"pyrust/internal/hir"
	"pyrust/internal/types"
)

func (in *inferer) setExpr(e *hir.Expr, t *types.Type) {
	in.res.Exprs[e.ID] = t
}

// expr types e and every sub-expression, recording the results.
func (in *inferer) expr(fc *funcCtx, e *hir.Expr) *types.Type {
	if e == nil {
		return types.UnknownT
	}
	t := in.exprType(fc, e)
	if t == nil {
		t = types.UnknownT
	}
	in.setExpr(e, t)
	return t
}

func (in *inferer) exprType(fc *funcCtx, e *hir.Expr) *types.Type {
	switch d := e.Data.(type) {
	case hir.LiteralData:
		return d.Type()
	case hir.NameData:
		t := in.name(fc, d.Name)
		if fc.narrow[d.Name] > 0 && t.Kind == types.Optional {
			in.res.Narrowed[e.ID] = true
			return t.Elem()
		}
		return t
	case hir.BinaryData:
		return in.binary(fc, d)
	case hir.UnaryData:
		t := in.expr(fc, d.Operand)
		switch d.Op {
		case hir.OpNot:
			return types.BoolT
		case hir.OpInvert:
			return types.IntT
		}
		return numericOr(t, types.UnknownT)
	case hir.CallData:
		return in.call(fc, d)
	case hir.MethodCallData:
		return in.methodCall(fc, d)
	case hir.AttrData:
		ot := in.expr(fc, d.Object)
		if ot.Kind == types.Custom {
			return in.res.Field(ot.Name, d.Name)
		}
		return types.UnknownT
	case hir.IndexData:
		return in.index(fc, d)
	case hir.SliceData:
		ot := in.expr(fc, d.Object)
		for _, b := range []*hir.Expr{d.Lower, d.Upper, d.Step} {
			if b != nil {
				in.hintFrom(fc, b, types.IntT)
				in.expr(fc, b)
			}
		}
		switch ot.Kind {
		case types.List, types.Str:
			return ot
		case types.Tuple:
			return types.ListOf(ot.IterElem())
		}
		return types.UnknownT
	case hir.BorrowData:
		return in.expr(fc, d.Value)
	case hir.SeqData:
		elems := make([]*types.Type, len(d.Elems))
		for i, el := range d.Elems {
			elems[i] = in.expr(fc, el)
		}
		switch e.Kind {
		case hir.ExprTuple:
			return types.TupleOf(elems...)
		case hir.ExprSet:
			return types.SetOf(joinAll(elems))
		}
		return types.ListOf(joinAll(elems))
	case hir.DictData:
		kt, vt := types.UnknownT, types.UnknownT
		for i := range d.Keys {
			kt = types.Join(kt, in.expr(fc, d.Keys[i]))
			vt = types.Join(vt, in.expr(fc, d.Values[i]))
		}
		return types.DictOf(kt, vt)
	case hir.CompData:
		return in.comprehension(fc, e.Kind, d)
	case hir.LambdaData:
		child := NewEnv(fc.env)
		for _, p := range d.Params {
			child.BindLocal(p, types.UnknownT)
		}
		in.expr(&funcCtx{fn: fc.fn, ft: fc.ft, env: child, ret: types.UnknownT}, d.Body)
		return types.UnknownT
	case hir.IfExpData:
		in.cond(fc, d.Cond)
		name, some := in.noneTest(fc, d.Cond)
		fc.narrowIf(name, some)
		tt := in.expr(fc, d.Then)
		fc.widenIf(name, some)
		fc.narrowIf(name, !some)
		et := in.expr(fc, d.Else)
		fc.widenIf(name, !some)
		return types.Join(tt, et)
	case hir.AwaitData:
		return in.expr(fc, d.Value)
	case hir.FStringData:
		for _, p := range d.Parts {
			if p.Value != nil {
				in.expr(fc, p.Value)
			}
		}
		return types.StrT
	case hir.YieldData:
		return in.yield(fc, e)
	}
	return types.UnknownT
}

func (in *inferer) name(fc *funcCtx, name string) *types.Type {
	if t, ok := fc.env.Lookup(name); ok {
		return t
	}
	if t, ok := in.res.Consts[name]; ok {
		return t
	}
	if t, ok := moduleValue(name); ok {
		return t
	}
	return types.UnknownT
}

func (in *inferer) binary(fc *funcCtx, d hir.BinaryData) *types.Type {
	l := in.expr(fc, d.Left)
	r := in.expr(fc, d.Right)
	if in.hintOperand(fc, d.Left, r, d.Op) {
		l = in.expr(fc, d.Left)
	}
	if in.hintOperand(fc, d.Right, l, d.Op) {
		r = in.expr(fc, d.Right)
	}
	return binaryType(d.Op, l, r)
}

// binaryType is the result type of l op r.
func binaryType(op hir.BinOp, l, r *types.Type) *types.Type {
	switch {
	case op.IsComparison():
		return types.BoolT
	case op.IsLogical():
		if l.Kind == types.Bool && r.Kind == types.Bool {
			return types.BoolT
		}
		return types.Join(l, r)
	}
	switch op {
	case hir.OpDiv:
		return types.FloatT
	case hir.OpAdd:
		if l.Kind == types.Str || r.Kind == types.Str {
			return types.StrT
		}
		if l.Kind == types.List || r.Kind == types.List {
			return types.Join(l, r)
		}
	case hir.OpMul:
		if l.Kind == types.Str || r.Kind == types.Str {
			return types.StrT
		}
		if l.Kind == types.List {
			return l
		}
		if r.Kind == types.List {
			return r
		}
	case hir.OpMod:
		if l.Kind == types.Str {
			return types.StrT
		}
	case hir.OpSub, hir.OpBitOr, hir.OpBitAnd, hir.OpBitXor:
		if l.Kind == types.Set || r.Kind == types.Set {
			return types.Join(l, r)
		}
		if op != hir.OpSub {
			if l.Kind == types.Bool && r.Kind == types.Bool {
				return types.BoolT
			}
			return types.IntT
		}
	case hir.OpLShift, hir.OpRShift:
		return types.IntT
	case hir.OpPow:
		if l.Kind == types.Float || r.Kind == types.Float {
			return types.FloatT
		}
	}
	return numericJoin(l, r)
}

func numericJoin(l, r *types.Type) *types.Type {
	switch {
	case l.Kind == types.Float || r.Kind == types.Float:
		return types.FloatT
	case isIntLike(l) && isIntLike(r):
		return types.IntT
	case l.IsUnknown():
		return numericOr(r, types.UnknownT)
	case r.IsUnknown():
		return numericOr(l, types.UnknownT)
	}
	return types.UnknownT
}

func isIntLike(t *types.Type) bool {
	return t.Kind == types.Int || t.Kind == types.Bool
}

// hintOperand refines an unknown name operand from the other side of a
// binary operation. It reports whether the binding changed.
func (in *inferer) hintOperand(fc *funcCtx, operand *hir.Expr, other *types.Type, op hir.BinOp) bool {
	if other.IsUnknown() || op.IsLogical() {
		return false
	}
	var hint *types.Type
	switch {
	case other.IsNumeric():
		hint = numericOr(other, nil)
	case other.Kind == types.Str:
		if op == hir.OpAdd || op.IsComparison() {
			hint = types.StrT
		}
		if op == hir.OpMul {
			hint = types.IntT
		}
	case other.Kind == types.List:
		switch op {
		case hir.OpAdd:
			hint = other
		case hir.OpMul:
			hint = types.IntT
		}
	case other.Kind == types.Set:
		switch op {
		case hir.OpSub, hir.OpBitOr, hir.OpBitAnd, hir.OpBitXor:
			hint = other
		}
	}
	if hint == nil {
		return false
	}
	return in.hintFrom(fc, operand, hint)
}

// hintFrom refines an unknown name expression to want.
func (in *inferer) hintFrom(fc *funcCtx, e *hir.Expr, want *types.Type) bool {
	name := hir.NameOf(e)
	if name == "" || want == nil || want.IsUnknown() {
		return false
	}
	if _, ok := fc.env.Lookup(name); !ok {
		return false
	}
	return fc.env.Refine(name, want)
}

func (in *inferer) index(fc *funcCtx, d hir.IndexData) *types.Type {
	ot := in.expr(fc, d.Object)
	it := in.expr(fc, d.Index)
	switch ot.Kind {
	case types.List, types.Str:
		in.hintFrom(fc, d.Index, types.IntT)
		return ot.Elem()
	case types.Dict:
		in.hintFrom(fc, d.Index, ot.Elem())
		if name := hir.NameOf(d.Object); name != "" && !it.IsUnknown() {
			fc.env.Refine(name, types.DictOf(it, types.UnknownT))
		}
		return ot.Value()
	case types.Tuple:
		if d.Index.Kind == hir.ExprLiteral {
			if lit := d.Index.Data.(hir.LiteralData); lit.Kind == hir.LiteralInt {
				i := int(lit.Int)
				if i < 0 {
					i += len(ot.Elems)
				}
				if i >= 0 && i < len(ot.Elems) {
					return ot.Elems[i]
				}
			}
		}
		return ot.IterElem()
	}
	return types.UnknownT
}

func (in *inferer) comprehension(fc *funcCtx, kind hir.ExprKind, d hir.CompData) *types.Type {
	child := &funcCtx{fn: fc.fn, ft: fc.ft, env: NewEnv(fc.env), ret: fc.ret, narrow: fc.narrow}
	for _, f := range d.For {
		elem := in.expr(child, f.Iter).IterElem()
		in.compTarget(child, f.Target, elem)
		for _, cond := range f.Ifs {
			in.cond(child, cond)
		}
	}
	et := in.expr(child, d.Elem)
	switch kind {
	case hir.ExprSetComp:
		return types.SetOf(et)
	case hir.ExprDictComp:
		return types.DictOf(in.expr(child, d.Key), et)
	case hir.ExprGenerator:
		return types.IteratorOf(et)
	}
	return types.ListOf(et)
}

// compTarget binds comprehension variables in the comprehension's own
// scope so they never leak into the enclosing function.
func (in *inferer) compTarget(fc *funcCtx, target *hir.Expr, t *types.Type) {
	switch target.Kind {
	case hir.ExprName:
		fc.env.BindLocal(hir.NameOf(target), t)
		in.setExpr(target, t)
	case hir.ExprTuple:
		for i, el := range target.Data.(hir.SeqData).Elems {
			et := t.IterElem()
			if t.Kind == types.Tuple {
				et = types.UnknownT
				if i < len(t.Elems) {
					et = t.Elems[i]
				}
			}
			in.compTarget(fc, el, et)
		}
		in.setExpr(target, t)
	}
}
