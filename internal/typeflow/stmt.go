package typeflow

import (
	"pyrust/internal/hir"
	"pyrust/internal/types"
)

func (in *inferer) block(fc *funcCtx, b *hir.Block) {
	if b == nil {
		return
	}
	var narrowed []string
	for i, s := range b.Stmts {
		in.stmt(fc, s)
		// After `if x is None: return`, x holds a value for the rest of b.
		d, ok := s.Data.(hir.IfData)
		if !ok || !d.Then.Terminates() || (d.Else != nil && d.Else.Terminates()) {
			continue
		}
		if name, some := in.noneTest(fc, d.Cond); name != "" && !some && !hir.Rebinds(b.Stmts[i+1:], name) {
			fc.narrowIf(name, true)
			narrowed = append(narrowed, name)
		}
	}
	for _, name := range narrowed {
		fc.widenIf(name, true)
	}
}

func (in *inferer) stmt(fc *funcCtx, s *hir.Stmt) {
	switch d := s.Data.(type) {
	case hir.AssignData:
		in.assign(fc, d)
	case hir.ExprStmtData:
		if d.Expr.Kind == hir.ExprYield {
			in.yield(fc, d.Expr)
			return
		}
		in.expr(fc, d.Expr)
	case hir.ReturnData:
		in.ret(fc, s, d)
	case hir.IfData:
		in.cond(fc, d.Cond)
		name, some := in.noneTest(fc, d.Cond)
		in.narrowedBlock(fc, d.Then, name, some)
		in.narrowedBlock(fc, d.Else, name, !some)
	case hir.WhileData:
		in.cond(fc, d.Cond)
		in.block(fc, d.Body)
	case hir.ForData:
		elem := in.expr(fc, d.Iter).IterElem()
		in.bindTarget(fc, d.Target, elem, false)
		in.block(fc, d.Body)
	case hir.RaiseData:
		if d.Message != nil {
			in.expr(fc, d.Message)
		}
	case hir.WithData:
		t := in.expr(fc, d.Context)
		if d.Target != "" {
			fc.env.Bind(d.Target, t)
		}
		in.block(fc, d.Body)
	case hir.TryData:
		in.block(fc, d.Body)
		for _, h := range d.Handlers {
			if h.Name != "" {
				name := "Exception"
				if len(h.Types) == 1 {
					name = h.Types[0]
				}
				fc.env.Bind(h.Name, types.CustomT(name))
			}
			in.block(fc, h.Body)
		}
		in.block(fc, d.Else)
		in.block(fc, d.Finally)
	case hir.AssertData:
		in.cond(fc, d.Test)
		if d.Message != nil {
			in.expr(fc, d.Message)
		}
	case hir.BranchData, hir.PassData:
	}
}

// noneTest recognizes `x is None` and `x is not None` on an Optional
// local. some is true for the `is not None` form.
func (in *inferer) noneTest(fc *funcCtx, cond *hir.Expr) (name string, some bool) {
	d, ok := cond.Data.(hir.MethodCallData)
	if !ok || (d.Method != hir.MethodIsNone && d.Method != hir.MethodIsSome) {
		return "", false
	}
	name = hir.NameOf(d.Receiver)
	if name == "" || in.name(fc, name).Kind != types.Optional {
		return "", false
	}
	return name, d.Method == hir.MethodIsSome
}

// narrowedBlock walks b with name narrowed when present is set and b
// never rebinds it.
func (in *inferer) narrowedBlock(fc *funcCtx, b *hir.Block, name string, present bool) {
	if name == "" || !present || b == nil || hir.Rebinds(b.Stmts, name) {
		in.block(fc, b)
		return
	}
	fc.narrowIf(name, true)
	in.block(fc, b)
	fc.widenIf(name, true)
}

func (fc *funcCtx) narrowIf(name string, present bool) {
	if name == "" || !present {
		return
	}
	if fc.narrow == nil {
		fc.narrow = make(map[string]int)
	}
	fc.narrow[name]++
}

func (fc *funcCtx) widenIf(name string, present bool) {
	if name == "" || !present {
		return
	}
	if fc.narrow[name]--; fc.narrow[name] <= 0 {
		delete(fc.narrow, name)
	}
}

func (in *inferer) cond(fc *funcCtx, e *hir.Expr) {
	in.expr(fc, e)
}

func (in *inferer) assign(fc *funcCtx, d hir.AssignData) {
	vt := in.expr(fc, d.Value)
	if d.Aug {
		cur := in.expr(fc, d.Target)
		res := binaryType(d.Op, cur, vt)
		if name := hir.NameOf(d.Target); name != "" {
			in.hintOperand(fc, d.Target, vt, d.Op)
			in.hintOperand(fc, d.Value, cur, d.Op)
			fc.env.Bind(name, res)
		}
		return
	}
	if d.Annot != nil {
		if name := hir.NameOf(d.Target); name != "" {
			fc.env.Declare(name, d.Annot)
			in.expect(d.Annot, vt, d.Value.Span, "assignment to "+name)
			in.setExpr(d.Target, d.Annot)
			return
		}
	}
	in.bindTarget(fc, d.Target, vt, true)
}

// bindTarget records t as the type of an assignment or loop target. With
// strict set, rebinding a name to a conflicting type is a mismatch.
func (in *inferer) bindTarget(fc *funcCtx, target *hir.Expr, t *types.Type, strict bool) {
	switch target.Kind {
	case hir.ExprName:
		name := hir.NameOf(target)
		if prev, ok := fc.env.Lookup(name); ok && strict && conflicting(prev, t) {
			in.expect(prev, t, target.Span, "assignment to "+name)
		}
		fc.env.Bind(name, t)
		in.setExpr(target, fc.env.Type(name))
	case hir.ExprTuple:
		elems := target.Data.(hir.SeqData).Elems
		for i, el := range elems {
			et := types.UnknownT
			switch {
			case t.Kind == types.Tuple && i < len(t.Elems):
				et = t.Elems[i]
			case t.Kind != types.Tuple:
				et = t.IterElem()
			}
			in.bindTarget(fc, el, et, strict)
		}
		in.setExpr(target, t)
	case hir.ExprIndex:
		d := target.Data.(hir.IndexData)
		ot := in.expr(fc, d.Object)
		kt := in.expr(fc, d.Index)
		if name := hir.NameOf(d.Object); name != "" {
			switch ot.Kind {
			case types.Dict:
				fc.env.Refine(name, types.DictOf(kt, t))
			case types.List:
				fc.env.Refine(name, types.ListOf(t))
			}
		}
		in.setExpr(target, t)
	case hir.ExprAttr:
		d := target.Data.(hir.AttrData)
		ot := in.expr(fc, d.Object)
		if ot.Kind == types.Custom {
			in.bindField(ot.Name, d.Name, t, target)
		}
		in.setExpr(target, t)
	default:
		in.expr(fc, target)
	}
}

func (in *inferer) bindField(class, field string, t *types.Type, at *hir.Expr) {
	fields := in.res.Fields[class]
	if fields == nil {
		return
	}
	cur, ok := fields[field]
	if !ok {
		return
	}
	if cls := in.m.ClassByName(class); cls != nil {
		if f := cls.Field(field); f != nil && f.Type != nil {
			in.expect(f.Type, t, at.Span, "field "+class+"."+field)
			return
		}
	}
	fields[field] = types.Join(cur, t)
}

func (in *inferer) ret(fc *funcCtx, s *hir.Stmt, d hir.ReturnData) {
	t := types.NoneT
	if d.Value != nil {
		t = in.expr(fc, d.Value)
	}
	if fc.fn != nil && fc.fn.Returns != nil && !fc.fn.IsGenerator() {
		at := s.Span
		if d.Value != nil {
			at = d.Value.Span
		}
		in.expect(fc.fn.Returns, t, at, "return type of "+fc.fn.QualName())
		if d.Value != nil {
			in.hintFrom(fc, d.Value, fc.fn.Returns)
		}
	}
	fc.ret = types.Join(fc.ret, t)
}

func (in *inferer) yield(fc *funcCtx, e *hir.Expr) *types.Type {
	d := e.Data.(hir.YieldData)
	t := types.NoneT
	if d.Value != nil {
		t = in.expr(fc, d.Value)
	}
	if fc.ft != nil {
		if fc.fn != nil && fc.fn.Returns != nil {
			if want := fc.fn.Returns.Elem(); !want.IsUnknown() {
				in.expect(want, t, e.Span, "yield of "+fc.fn.QualName())
				t = want
			}
		}
		if fc.ft.Yield == nil {
			fc.ft.Yield = t
		} else {
			fc.ft.Yield = types.Join(fc.ft.Yield, t)
		}
	}
	in.setExpr(e, t)
	return t
}
