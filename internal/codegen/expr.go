package codegen

import (
	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/rust"
	"pyrust/internal/source"
	"pyrust/internal/types"
)

// expr lowers one expression. Every node kind has a rule.
func (fc *fnCtx) expr(e *hir.Expr) (value, error) {
	if e == nil {
		return value{}, diag.Errorf(diag.CodeGenError, fc.span(), "missing expression")
	}
	t := fc.g.tf.TypeOf(e)
	switch d := e.Data.(type) {
	case hir.LiteralData:
		return literal(d), nil
	case hir.NameData:
		return fc.name(e, d.Name)
	case hir.BinaryData:
		return fc.binary(e, d)
	case hir.UnaryData:
		return fc.unary(e, d)
	case hir.CallData:
		return fc.call(e, d)
	case hir.MethodCallData:
		return fc.methodCall(e, d)
	case hir.AttrData:
		return fc.attr(e, d)
	case hir.IndexData:
		return fc.index(e, d)
	case hir.SliceData:
		return fc.slice(e, d)
	case hir.BorrowData:
		v, err := fc.expr(d.Value)
		if err != nil {
			return value{}, err
		}
		switch d.Mode {
		case hir.BorrowShared:
			return value{x: fc.shared(v), t: t, kind: valRef}, nil
		case hir.BorrowMut:
			return value{x: fc.exclusive(v), t: t, kind: valRef, mut: true}, nil
		}
		return temp(rust.M(v.x, "clone"), t), nil
	case hir.SeqData:
		return fc.sequence(e, d, t)
	case hir.DictData:
		return fc.dict(d, t)
	case hir.CompData:
		return fc.comprehension(e, d, t)
	case hir.LambdaData:
		return fc.lambda(d, t)
	case hir.IfExpData:
		cond, err := fc.cond(d.Cond)
		if err != nil {
			return value{}, err
		}
		a, err := fc.expr(d.Then)
		if err != nil {
			return value{}, err
		}
		b, err := fc.expr(d.Else)
		if err != nil {
			return value{}, err
		}
		return temp(ifElse(cond, fc.coerce(a, t), fc.coerce(b, t)), t), nil
	case hir.AwaitData:
		v, err := fc.expr(d.Value)
		if err != nil {
			return value{}, err
		}
		return temp(&rust.FieldExpr{X: v.x, Name: "await"}, t), nil
	case hir.FStringData:
		return fc.fstring(d)
	case hir.YieldData:
		return value{}, diag.Errorf(diag.CodeGenError, e.Span, "yield is only supported as a statement")
	}
	return value{}, diag.Errorf(diag.CodeGenError, e.Span, "no lowering for %s expression", e.Kind)
}

func literal(d hir.LiteralData) value {
	switch d.Kind {
	case hir.LiteralInt:
		return temp(rust.L(intText(d.Int)), types.IntT)
	case hir.LiteralFloat:
		return temp(floatText(d.Float), types.FloatT)
	case hir.LiteralStr:
		return value{x: rust.L(strText(d.Str)), t: types.StrT, kind: valRef}
	case hir.LiteralBool:
		if d.Bool {
			return temp(rust.L("true"), types.BoolT)
		}
		return temp(rust.L("false"), types.BoolT)
	}
	return temp(rust.P("None"), types.NoneT)
}

func (fc *fnCtx) span() (sp source.Span) {
	if fc.fn != nil {
		return fc.fn.Span
	}
	if fc.g.m.Main != nil {
		return fc.g.m.Main.Span
	}
	return sp
}

// exprs lowers xs and coerces each to want.
func (fc *fnCtx) exprs(xs []*hir.Expr, want *types.Type) ([]rust.Expr, error) {
	out := make([]rust.Expr, 0, len(xs))
	for _, x := range xs {
		v, err := fc.expr(x)
		if err != nil {
			return nil, err
		}
		out = append(out, fc.coerce(v, want))
	}
	return out, nil
}

func (fc *fnCtx) sequence(e *hir.Expr, d hir.SeqData, t *types.Type) (value, error) {
	switch e.Kind {
	case hir.ExprTuple:
		elems := make([]rust.Expr, len(d.Elems))
		for i, el := range d.Elems {
			v, err := fc.expr(el)
			if err != nil {
				return value{}, err
			}
			var want *types.Type
			if t != nil && i < len(t.Elems) {
				want = t.Elems[i]
			}
			elems[i] = fc.coerce(v, want)
		}
		return temp(&rust.Tuple{Elems: elems}, t), nil
	case hir.ExprSet:
		fc.g.use("std::collections::HashSet")
		if len(d.Elems) == 0 {
			return temp(rust.C("HashSet::new"), t), nil
		}
		elems, err := fc.exprs(d.Elems, t.Elem())
		if err != nil {
			return value{}, err
		}
		return temp(rust.C("HashSet::from", &rust.Array{Elems: elems}), t), nil
	}
	if len(d.Elems) == 0 {
		return temp(rust.C("Vec::new"), t), nil
	}
	elems, err := fc.exprs(d.Elems, t.Elem())
	if err != nil {
		return value{}, err
	}
	return temp(&rust.Macro{Name: "vec", Args: elems, Brackets: true}, t), nil
}

func (fc *fnCtx) dict(d hir.DictData, t *types.Type) (value, error) {
	fc.g.use("std::collections::HashMap")
	if len(d.Keys) == 0 {
		return temp(rust.C("HashMap::new"), t), nil
	}
	pairs := make([]rust.Expr, len(d.Keys))
	for i := range d.Keys {
		k, err := fc.expr(d.Keys[i])
		if err != nil {
			return value{}, err
		}
		v, err := fc.expr(d.Values[i])
		if err != nil {
			return value{}, err
		}
		pairs[i] = &rust.Tuple{Elems: []rust.Expr{fc.coerce(k, t.Elem()), fc.coerce(v, t.Value())}}
	}
	return temp(rust.C("HashMap::from", &rust.Array{Elems: pairs}), t), nil
}

func (fc *fnCtx) lambda(d hir.LambdaData, t *types.Type) (value, error) {
	params := make([]string, len(d.Params))
	for i, p := range d.Params {
		params[i] = rust.EscapeIdent(p)
		fc.scoped[p]++
	}
	fc.lambdas++
	defer func() {
		fc.lambdas--
		for _, p := range d.Params {
			fc.scoped[p]--
		}
	}()
	body, err := fc.expr(d.Body)
	if err != nil {
		return value{}, err
	}
	return temp(&rust.Closure{Params: params, Body: fc.consume(body)}, t), nil
}

// apply calls a closure value; lambdas are parenthesized.
func apply(f rust.Expr, args ...rust.Expr) rust.Expr {
	if _, ok := f.(*rust.Closure); ok {
		f = &rust.Paren{X: f}
	}
	return &rust.Call{Func: f, Args: args}
}

func (fc *fnCtx) attr(e *hir.Expr, d hir.AttrData) (value, error) {
	t := fc.g.tf.TypeOf(e)
	obj, err := fc.expr(d.Object)
	if err != nil {
		return value{}, err
	}
	if obj.t != nil && obj.t.Kind == types.Custom {
		if c := fc.g.m.ClassByName(obj.t.Name); c != nil {
			if m := c.Method(d.Name); m != nil && m.Receiver == hir.RecvProperty {
				return fc.finishCall(e, m, rust.M(obj.x, rust.EscapeIdent(d.Name)))
			}
		}
	}
	if obj.t != nil && obj.t.Kind == types.Optional {
		obj.x = rust.M(obj.x, "as_ref")
		obj.x = rust.M(obj.x, "unwrap")
	}
	return place(&rust.FieldExpr{X: obj.x, Name: rust.EscapeIdent(d.Name)}, t), nil
}

// negIndex reports a negative integer literal index.
func negIndex(e *hir.Expr) (int64, bool) {
	if e == nil {
		return 0, false
	}
	switch d := e.Data.(type) {
	case hir.LiteralData:
		if d.Kind == hir.LiteralInt && d.Int < 0 {
			return -d.Int, true
		}
	case hir.UnaryData:
		if lit, ok := d.Operand.Data.(hir.LiteralData); ok && d.Op == hir.OpNeg && lit.Kind == hir.LiteralInt && lit.Int > 0 {
			return lit.Int, true
		}
	}
	return 0, false
}

// position lowers a list index or slice bound to usize, counting negative
// literals from the end of obj.
func (fc *fnCtx) position(obj rust.Expr, e *hir.Expr) (rust.Expr, error) {
	if name, ok := fc.indexVars[e]; ok {
		return rust.P(name), nil
	}
	if k, ok := negIndex(e); ok {
		return rust.Bin("-", rust.M(obj, "len"), rust.L(intText(k))), nil
	}
	v, err := fc.expr(e)
	if err != nil {
		return nil, err
	}
	return fc.asUsize(v), nil
}

// hoistIndex binds a negative list subscript of a write target to a local
// ahead of the statement, so the length read does not overlap the mutable
// borrow of the write. done forgets the binding.
func (fc *fnCtx) hoistIndex(target *hir.Expr) (pre []rust.Stmt, done func(), err error) {
	done = func() {}
	ix, ok := target.Data.(hir.IndexData)
	if !ok {
		return nil, done, nil
	}
	k, neg := negIndex(ix.Index)
	if !neg || fc.g.tf.TypeOf(ix.Object).Kind != types.List {
		return nil, done, nil
	}
	obj, err := fc.expr(ix.Object)
	if err != nil {
		return nil, done, err
	}
	name := fc.fresh("idx")
	fc.indexVars[ix.Index] = name
	let := &rust.Let{Pat: rust.Var(name), Value: rust.Bin("-", rust.M(obj.x, "len"), rust.L(intText(k)))}
	return []rust.Stmt{let}, func() { delete(fc.indexVars, ix.Index) }, nil
}

// mutReceiver lowers the receiver of a mutating method call. HashMap has
// no IndexMut, so dict subscripts on the way go through get_mut.
func (fc *fnCtx) mutReceiver(e *hir.Expr) (value, error) {
	if name := hir.NameOf(e); name != "" && fc.g.tf.IsNarrowed(e) {
		x := rust.M(rust.M(fc.varExpr(name), "as_mut"), "unwrap")
		return value{x: x, t: fc.g.tf.TypeOf(e), kind: valRef, mut: true}, nil
	}
	d, ok := e.Data.(hir.IndexData)
	if !ok || !fc.dictSubscript(e) {
		return fc.expr(e)
	}
	obj, err := fc.mutReceiver(d.Object)
	if err != nil {
		return value{}, err
	}
	t := fc.g.tf.TypeOf(e)
	if obj.t == nil || obj.t.Kind != types.Dict {
		pos, err := fc.position(obj.x, d.Index)
		if err != nil {
			return value{}, err
		}
		return place(&rust.Index{X: obj.x, Index: pos}, t), nil
	}
	k, err := fc.expr(d.Index)
	if err != nil {
		return value{}, err
	}
	entry := rust.M(rust.M(obj.x, "get_mut", fc.keyArg(k)), "expect", rust.L(`"key not found"`))
	return place(entry, t), nil
}

// dictSubscript reports a chain of subscripts that passes through a dict.
func (fc *fnCtx) dictSubscript(e *hir.Expr) bool {
	for {
		d, ok := e.Data.(hir.IndexData)
		if !ok {
			return false
		}
		if fc.g.tf.TypeOf(d.Object).Kind == types.Dict {
			return true
		}
		e = d.Object
	}
}

func (fc *fnCtx) index(e *hir.Expr, d hir.IndexData) (value, error) {
	t := fc.g.tf.TypeOf(e)
	obj, err := fc.expr(d.Object)
	if err != nil {
		return value{}, err
	}
	ot := obj.t
	if ot == nil {
		ot = types.UnknownT
	}
	switch ot.Kind {
	case types.Dict:
		k, err := fc.expr(d.Index)
		if err != nil {
			return value{}, err
		}
		return place(&rust.Index{X: obj.x, Index: fc.keyArg(k)}, t), nil
	case types.Str:
		chars := rust.M(obj.x, "chars")
		var nth rust.Expr
		if k, ok := negIndex(d.Index); ok {
			nth = rust.M(rust.M(chars, "rev"), "nth", rust.L(intText(k-1)))
		} else {
			v, err := fc.expr(d.Index)
			if err != nil {
				return value{}, err
			}
			nth = rust.M(chars, "nth", fc.asUsize(v))
		}
		return temp(rust.M(rust.M(nth, "unwrap"), "to_string"), t), nil
	case types.Tuple:
		lit, ok := d.Index.Data.(hir.LiteralData)
		if !ok || lit.Kind != hir.LiteralInt {
			if k, neg := negIndex(d.Index); neg && int(k) <= len(ot.Elems) {
				return place(&rust.FieldExpr{X: obj.x, Name: intText(int64(len(ot.Elems)) - k)}, t), nil
			}
			return value{}, diag.Errorf(diag.CodeGenError, d.Index.Span, "tuple index must be an integer literal")
		}
		return place(&rust.FieldExpr{X: obj.x, Name: intText(lit.Int)}, t), nil
	case types.Custom:
		if c := fc.g.m.ClassByName(ot.Name); c != nil && c.Method("__getitem__") != nil {
			return fc.userMethod(e, obj, c.Method("__getitem__"), []*hir.Expr{d.Index}, nil)
		}
		return value{}, diag.Errorf(diag.CodeGenError, e.Span, "%s does not support indexing", ot.Name)
	}
	pos, err := fc.position(obj.x, d.Index)
	if err != nil {
		return value{}, err
	}
	return place(&rust.Index{X: obj.x, Index: pos}, t), nil
}

func (fc *fnCtx) slice(e *hir.Expr, d hir.SliceData) (value, error) {
	t := fc.g.tf.TypeOf(e)
	obj, err := fc.expr(d.Object)
	if err != nil {
		return value{}, err
	}
	isString := isStr(obj.t)
	collect := "Vec<_>"
	if isString {
		collect = "String"
	}
	reversed := false
	if d.Step != nil {
		if k, ok := negIndex(d.Step); ok && k == 1 && d.Lower == nil && d.Upper == nil {
			reversed = true
		}
	}
	var src rust.Expr
	var pre []rust.Stmt
	if isString {
		// Strings slice by character.
		name := fc.fresh("chars")
		pre = append(pre, &rust.Let{
			Pat:   rust.Var(name),
			Type:  types.VecOf(types.Prim(types.PChar)),
			Value: rust.M(rust.M(obj.x, "chars"), "collect"),
		})
		src = rust.P(name)
	} else {
		src = obj.x
	}
	if reversed {
		x := &rust.MethodCall{Recv: rust.M(rust.M(rust.M(src, "iter"), "rev"), "cloned"), Method: "collect", Turbo: collect}
		return temp(wrapStmts(pre, x), t), nil
	}
	var lo, hi rust.Expr
	if d.Lower != nil {
		if lo, err = fc.position(src, d.Lower); err != nil {
			return value{}, err
		}
	}
	if d.Upper != nil {
		if hi, err = fc.position(src, d.Upper); err != nil {
			return value{}, err
		}
	}
	sub := &rust.Index{X: src, Index: &rust.Range{Lo: lo, Hi: hi}}
	var x rust.Expr
	switch {
	case d.Step != nil:
		step, err := fc.expr(d.Step)
		if err != nil {
			return value{}, err
		}
		if _, neg := negIndex(d.Step); neg {
			return value{}, diag.Errorf(diag.CodeGenError, d.Step.Span, "negative slice step other than [::-1]")
		}
		it := rust.M(rust.M(sub, "iter"), "step_by", fc.asUsize(step))
		x = &rust.MethodCall{Recv: rust.M(it, "cloned"), Method: "collect", Turbo: collect}
	case isString:
		x = &rust.MethodCall{Recv: rust.M(sub, "iter"), Method: "collect", Turbo: collect}
	default:
		x = rust.M(sub, "to_vec")
	}
	return temp(wrapStmts(pre, x), t), nil
}

// wrapStmts returns x, or a block evaluating pre before x.
func wrapStmts(pre []rust.Stmt, x rust.Expr) rust.Expr {
	if len(pre) == 0 {
		return x
	}
	return &rust.BlockExpr{Block: &rust.Block{Stmts: pre, Tail: x}}
}

func (fc *fnCtx) unary(e *hir.Expr, d hir.UnaryData) (value, error) {
	t := fc.g.tf.TypeOf(e)
	if d.Op == hir.OpNot {
		c, err := fc.cond(d.Operand)
		if err != nil {
			return value{}, err
		}
		return temp(rust.Not(c), types.BoolT), nil
	}
	v, err := fc.expr(d.Operand)
	if err != nil {
		return value{}, err
	}
	switch d.Op {
	case hir.OpNeg:
		if lit, ok := v.x.(*rust.Lit); ok && (isInt(v.t) || isFloat(v.t)) {
			return temp(rust.L("-"+lit.Text), t), nil
		}
		return temp(&rust.Unary{Op: "-", X: fc.operand(v)}, t), nil
	case hir.OpInvert:
		return temp(&rust.Unary{Op: "!", X: fc.operand(v)}, t), nil
	}
	return temp(fc.operand(v), t), nil
}
