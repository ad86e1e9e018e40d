package codegen

import (
	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/rust"
	"pyrust/internal/types"
)

// block lowers a statement list, emitting hoisted declarations in front of
// the statement they were placed at.
func (fc *fnCtx) block(b *hir.Block) (*rust.Block, error) {
	out := &rust.Block{}
	if b == nil {
		return out, nil
	}
	hs := fc.vars.hoist[b]
	for i, s := range b.Stmts {
		if fc.machine == nil {
			for _, name := range hs[i] {
				st, err := fc.hoisted(name, s)
				if err != nil {
					return nil, err
				}
				out.Stmts = append(out.Stmts, st)
			}
		}
		stmts, err := fc.stmt(s)
		if err != nil {
			return nil, err
		}
		out.Stmts = append(out.Stmts, stmts...)
	}
	return out, nil
}

func (fc *fnCtx) hoisted(name string, at *hir.Stmt) (rust.Stmt, error) {
	t := fc.local(name)
	let := &rust.Let{Pat: &rust.Ident{Name: rust.EscapeIdent(name), Mut: true}}
	if annotatable(t) {
		r, err := fc.g.rt(t, at.Span)
		if err != nil {
			return nil, err
		}
		let.Type = r
	}
	z, ok := fc.g.zero(t)
	if !ok && let.Type == nil {
		return nil, diag.Errorf(diag.CodeGenError, at.Span, "cannot declare %s ahead of its first assignment: its type is %s", name, t)
	}
	let.Value = z
	return let, nil
}

func one(s rust.Stmt) ([]rust.Stmt, error) { return []rust.Stmt{s}, nil }

func (fc *fnCtx) stmt(s *hir.Stmt) ([]rust.Stmt, error) {
	switch d := s.Data.(type) {
	case hir.AssignData:
		if d.Aug {
			return fc.augAssign(s, d)
		}
		return fc.assign(s, d)
	case hir.ExprStmtData:
		if d.Expr.Kind == hir.ExprYield {
			return nil, diag.Errorf(diag.CodeGenError, s.Span, "yield outside a generator body")
		}
		v, err := fc.expr(d.Expr)
		if err != nil {
			return nil, err
		}
		return one(rust.Semi(v.x))
	case hir.ReturnData:
		return fc.returnStmt(s, d)
	case hir.IfData:
		x, err := fc.ifStmt(d)
		if err != nil {
			return nil, err
		}
		return one(rust.Semi(x))
	case hir.WhileData:
		return fc.whileStmt(s, d)
	case hir.ForData:
		return fc.forStmt(s, d)
	case hir.BranchData:
		return fc.branch(s)
	case hir.RaiseData:
		return fc.raise(s, d)
	case hir.WithData:
		return fc.with(s, d)
	case hir.TryData:
		return fc.try(s, d)
	case hir.AssertData:
		return fc.assert(d)
	case hir.PassData:
		return nil, nil
	}
	return nil, diag.Errorf(diag.CodeGenError, s.Span, "no lowering for %s statement", s.Kind)
}

// lvalue names a variable as an assignment target.
func (fc *fnCtx) lvalue(name string) rust.Expr {
	if fc.machine != nil {
		return &rust.FieldExpr{X: rust.P("self"), Name: rust.EscapeIdent(name)}
	}
	return rust.P(rust.EscapeIdent(name))
}

func (fc *fnCtx) targetType(target *hir.Expr) *types.Type {
	t := fc.g.tf.TypeOf(target)
	if t.IsUnknown() && target.Kind == hir.ExprName {
		return fc.local(hir.NameOf(target))
	}
	return t
}

func (fc *fnCtx) assign(s *hir.Stmt, d hir.AssignData) ([]rust.Stmt, error) {
	switch d.Target.Kind {
	case hir.ExprName:
		v, err := fc.expr(d.Value)
		if err != nil {
			return nil, err
		}
		return fc.assignName(s, hir.NameOf(d.Target), d.Target, v, d.Value.Kind == hir.ExprLambda)
	case hir.ExprTuple:
		return fc.assignTuple(s, d)
	}
	v, err := fc.expr(d.Value)
	if err != nil {
		return nil, err
	}
	return fc.store(d.Target, v)
}

func (fc *fnCtx) assignName(s *hir.Stmt, name string, target *hir.Expr, v value, closure bool) ([]rust.Stmt, error) {
	t := fc.targetType(target)
	rhs := fc.coerce(v, t)
	if closure {
		rhs = v.x
	}
	if fc.machine == nil && fc.vars.declares(s, name) {
		let := &rust.Let{Pat: &rust.Ident{Name: rust.EscapeIdent(name), Mut: fc.vars.mut.Contains(name)}, Value: rhs}
		if !closure && annotatable(t) {
			r, err := fc.g.rt(t, s.Span)
			if err != nil {
				return nil, err
			}
			let.Type = r
		}
		return one(let)
	}
	return one(rust.Semi(&rust.Assign{L: fc.lvalue(name), R: rhs}))
}

// assignTuple lowers a, b = x, y. Names declared here get a let pattern;
// anything else goes through temporaries so every value is read before
// any target is written.
func (fc *fnCtx) assignTuple(s *hir.Stmt, d hir.AssignData) ([]rust.Stmt, error) {
	targets := d.Target.Data.(hir.SeqData).Elems
	v, err := fc.expr(d.Value)
	if err != nil {
		return nil, err
	}
	vt := fc.g.tf.TypeOf(d.Value)
	if vt.Kind != types.Tuple || len(vt.Elems) != len(targets) {
		return nil, diag.Errorf(diag.CodeGenError, s.Span, "cannot unpack %s into %d targets", vt, len(targets))
	}
	rhs := fc.consume(v)
	allDeclared := fc.machine == nil
	for _, t := range targets {
		if t.Kind != hir.ExprName || !fc.vars.declares(s, hir.NameOf(t)) {
			allDeclared = false
		}
	}
	if allDeclared {
		pat := &rust.TuplePat{}
		for _, t := range targets {
			name := hir.NameOf(t)
			pat.Elems = append(pat.Elems, &rust.Ident{Name: rust.EscapeIdent(name), Mut: fc.vars.mut.Contains(name)})
		}
		return one(&rust.Let{Pat: pat, Value: rhs})
	}
	tmps := &rust.TuplePat{}
	names := make([]string, len(targets))
	for i := range targets {
		names[i] = fc.fresh("t")
		tmps.Elems = append(tmps.Elems, rust.Var(names[i]))
	}
	out := []rust.Stmt{&rust.Let{Pat: tmps, Value: rhs}}
	for i, t := range targets {
		tv := temp(rust.P(names[i]), vt.Elems[i])
		var stmts []rust.Stmt
		if t.Kind == hir.ExprName {
			stmts, err = fc.assignName(s, hir.NameOf(t), t, tv, false)
		} else {
			stmts, err = fc.store(t, tv)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, stmts...)
	}
	return out, nil
}

// store writes v to an attribute or subscript target.
func (fc *fnCtx) store(target *hir.Expr, v value) ([]rust.Stmt, error) {
	switch d := target.Data.(type) {
	case hir.AttrData:
		place, err := fc.attr(target, d)
		if err != nil {
			return nil, err
		}
		return one(rust.Semi(&rust.Assign{L: place.x, R: fc.coerce(v, fc.g.tf.TypeOf(target))}))
	case hir.IndexData:
		obj, err := fc.expr(d.Object)
		if err != nil {
			return nil, err
		}
		ot := obj.t
		if ot == nil {
			ot = types.UnknownT
		}
		switch ot.Kind {
		case types.Dict:
			k, err := fc.expr(d.Index)
			if err != nil {
				return nil, err
			}
			return one(rust.Semi(rust.M(obj.x, "insert", fc.coerce(k, ot.Elem()), fc.coerce(v, ot.Value()))))
		case types.List:
			pre, done, err := fc.hoistIndex(target)
			defer done()
			if err != nil {
				return nil, err
			}
			pos, err := fc.position(obj.x, d.Index)
			if err != nil {
				return nil, err
			}
			return append(pre, rust.Semi(&rust.Assign{L: &rust.Index{X: obj.x, Index: pos}, R: fc.coerce(v, ot.Elem())})), nil
		}
		return nil, diag.Errorf(diag.CodeGenError, target.Span, "item assignment on %s", ot)
	case hir.SliceData:
		return nil, diag.Unsupported(target.Span, "slice assignment")
	}
	return nil, diag.Errorf(diag.CodeGenError, target.Span, "cannot assign to %s", hir.ExprString(target))
}

// compoundOps are the operators Rust accepts as op= on numbers with the
// same meaning as Python.
var compoundOps = map[hir.BinOp]bool{
	hir.OpAdd: true, hir.OpSub: true, hir.OpMul: true,
	hir.OpLShift: true, hir.OpRShift: true, hir.OpBitOr: true, hir.OpBitXor: true, hir.OpBitAnd: true,
}

var floatCompound = map[hir.BinOp]bool{hir.OpAdd: true, hir.OpSub: true, hir.OpMul: true, hir.OpDiv: true}

func (fc *fnCtx) augAssign(s *hir.Stmt, d hir.AssignData) ([]rust.Stmt, error) {
	pre, done, err := fc.hoistIndex(d.Target)
	defer done()
	if err != nil {
		return nil, err
	}
	out, err := fc.augAssignTo(d)
	if err != nil {
		return nil, err
	}
	return append(pre, out...), nil
}

func (fc *fnCtx) augAssignTo(d hir.AssignData) ([]rust.Stmt, error) {
	t := fc.targetType(d.Target)
	cur, err := fc.expr(d.Target)
	if err != nil {
		return nil, err
	}
	rv, err := fc.expr(d.Value)
	if err != nil {
		return nil, err
	}
	// slot is the place written; HashMap has no IndexMut.
	slot := cur.x
	var entry rust.Expr
	if ix, ok := d.Target.Data.(hir.IndexData); ok {
		if ot := fc.g.tf.TypeOf(ix.Object); ot.Kind == types.Dict {
			obj, err := fc.expr(ix.Object)
			if err != nil {
				return nil, err
			}
			k, err := fc.expr(ix.Index)
			if err != nil {
				return nil, err
			}
			entry = rust.M(rust.M(obj.x, "get_mut", fc.keyArg(k)), "expect", rust.L(`"key not found"`))
			slot = &rust.Unary{Op: "*", X: entry}
		}
	}
	recv := slot
	if entry != nil {
		recv = entry
	}
	switch {
	case isStr(t) && d.Op == hir.OpAdd:
		return one(rust.Semi(rust.M(recv, "push_str", fc.asStr(rv))))
	case t.Kind == types.List && d.Op == hir.OpAdd:
		it, err := fc.iterValue(rv, d.Value)
		if err != nil {
			return nil, err
		}
		return one(rust.Semi(rust.M(recv, "extend", it)))
	case t.Kind == types.Set && d.Op == hir.OpBitOr:
		it, err := fc.iterValue(rv, d.Value)
		if err != nil {
			return nil, err
		}
		return one(rust.Semi(rust.M(recv, "extend", it)))
	case t.Kind == types.Int && compoundOps[d.Op],
		t.Kind == types.Float && floatCompound[d.Op] && (d.Op != hir.OpDiv || fc.zeroDivLabel() == ""):
		return one(rust.Semi(&rust.Assign{Op: rustOps[d.Op] + "=", L: slot, R: fc.coerce(rv, t)}))
	}
	x, err := fc.arith(d.Target, d.Op, cur, rv, t)
	if err != nil {
		return nil, err
	}
	return one(rust.Semi(&rust.Assign{L: slot, R: x}))
}

func (fc *fnCtx) returnStmt(s *hir.Stmt, d hir.ReturnData) ([]rust.Stmt, error) {
	if fc.machine != nil {
		return fc.machine.finish(), nil
	}
	if fc.fn != nil && fc.fn.Flags.HasFlag(hir.FuncInit) {
		var x rust.Expr = rust.P(fc.selfName)
		if fc.fallible {
			x = rust.C("Ok", x)
		}
		return one(rust.Semi(&rust.Return{X: x}))
	}
	x, err := fc.returnValue(d.Value)
	if err != nil {
		return nil, err
	}
	if fc.fallible {
		if x == nil {
			x = &rust.Tuple{}
		}
		x = rust.C("Ok", x)
	}
	return one(rust.Semi(&rust.Return{X: x}))
}

func (fc *fnCtx) ifStmt(d hir.IfData) (*rust.If, error) {
	cond, err := fc.cond(d.Cond)
	if err != nil {
		return nil, err
	}
	then, err := fc.block(d.Then)
	if err != nil {
		return nil, err
	}
	out := &rust.If{Cond: cond, Then: then}
	if d.Else == nil {
		return out, nil
	}
	if len(d.Else.Stmts) == 1 && d.Else.Stmts[0].Kind == hir.StmtIf && len(fc.vars.hoist[d.Else]) == 0 {
		elif, err := fc.ifStmt(d.Else.Stmts[0].Data.(hir.IfData))
		if err != nil {
			return nil, err
		}
		out.Else = elif
		return out, nil
	}
	eb, err := fc.block(d.Else)
	if err != nil {
		return nil, err
	}
	out.Else = &rust.BlockExpr{Block: eb}
	return out, nil
}

// loopLabel labels loops whose body holds a try: an unlabeled break
// inside a labeled block does not compile.
func (fc *fnCtx) loopLabel(body *hir.Block) string {
	found := false
	hir.WalkBlock(body, func(s *hir.Stmt) bool {
		if s.Kind == hir.StmtTry {
			found = true
		}
		return !found
	})
	if !found {
		return ""
	}
	return fc.fresh("loop")
}

func (fc *fnCtx) pushLoop(label string) func() {
	fc.loops = append(fc.loops, &loopFrame{label: label})
	return func() { fc.loops = fc.loops[:len(fc.loops)-1] }
}

func isTrueLit(e *hir.Expr) bool {
	lit, ok := e.Data.(hir.LiteralData)
	return ok && lit.Kind == hir.LiteralBool && lit.Bool
}

func (fc *fnCtx) whileStmt(s *hir.Stmt, d hir.WhileData) ([]rust.Stmt, error) {
	label := fc.loopLabel(d.Body)
	pop := fc.pushLoop(label)
	defer pop()
	body, err := fc.block(d.Body)
	if err != nil {
		return nil, err
	}
	if isTrueLit(d.Cond) {
		return one(rust.Semi(&rust.Loop{Label: label, Body: body}))
	}
	cond, err := fc.cond(d.Cond)
	if err != nil {
		return nil, err
	}
	return one(rust.Semi(&rust.While{Label: label, Cond: cond, Body: body}))
}

func (fc *fnCtx) forStmt(s *hir.Stmt, d hir.ForData) ([]rust.Stmt, error) {
	it, err := fc.iterOf(d.Iter)
	if err != nil {
		return nil, err
	}
	var post []rust.Stmt
	pat, err := fc.loopPat(s, d.Target, &post)
	if err != nil {
		return nil, err
	}
	label := fc.loopLabel(d.Body)
	pop := fc.pushLoop(label)
	defer pop()
	body, err := fc.block(d.Body)
	if err != nil {
		return nil, err
	}
	body.Stmts = append(post, body.Stmts...)
	return one(rust.Semi(&rust.For{Label: label, Pat: pat, Iter: it, Body: body}))
}

// loopPat binds loop targets in the pattern when the loop owns them;
// names living past the loop are assigned from fresh bindings.
func (fc *fnCtx) loopPat(s *hir.Stmt, t *hir.Expr, post *[]rust.Stmt) (rust.Pat, error) {
	switch t.Kind {
	case hir.ExprName:
		name := hir.NameOf(t)
		if fc.machine == nil && fc.vars.binds(s, name) {
			return &rust.Ident{Name: rust.EscapeIdent(name), Mut: fc.vars.mut.Contains(name)}, nil
		}
		tmp := fc.fresh("item")
		*post = append(*post, rust.Semi(&rust.Assign{L: fc.lvalue(name), R: rust.P(tmp)}))
		return rust.Var(tmp), nil
	case hir.ExprTuple:
		out := &rust.TuplePat{}
		for _, el := range t.Data.(hir.SeqData).Elems {
			p, err := fc.loopPat(s, el, post)
			if err != nil {
				return nil, err
			}
			out.Elems = append(out.Elems, p)
		}
		return out, nil
	}
	return nil, diag.Errorf(diag.CodeGenError, t.Span, "loop target %s", hir.ExprString(t))
}

func (fc *fnCtx) branch(s *hir.Stmt) ([]rust.Stmt, error) {
	if len(fc.loops) == 0 {
		return nil, diag.Errorf(diag.CodeGenError, s.Span, "%s outside a loop", s.Kind)
	}
	lf := fc.loops[len(fc.loops)-1]
	if lf.flat {
		target := lf.continueState
		if s.Kind == hir.StmtBreak {
			target = lf.breakState
		}
		return fc.machine.jump(target), nil
	}
	if s.Kind == hir.StmtBreak {
		return one(rust.Semi(&rust.Break{Label: lf.label}))
	}
	return one(rust.Semi(&rust.Continue{Label: lf.label}))
}

func (fc *fnCtx) raise(s *hir.Stmt, d hir.RaiseData) ([]rust.Stmt, error) {
	if d.Reraise {
		if len(fc.caught) == 0 {
			return nil, diag.Errorf(diag.CodeGenError, s.Span, "bare raise outside an exception handler")
		}
		return fc.throw(s, rust.P(fc.caught[len(fc.caught)-1]))
	}
	fc.g.errorType(d.ExcType)
	var args []*hir.Expr
	if d.Message != nil {
		args = append(args, d.Message)
	}
	msg, err := fc.message(&hir.Expr{Span: s.Span}, args)
	if err != nil {
		return nil, err
	}
	return fc.throw(s, rust.M(rust.C(d.ExcType+"::new", msg), "into"))
}

// throw sends a boxed error to the innermost try, or out of the function.
func (fc *fnCtx) throw(s *hir.Stmt, err rust.Expr) ([]rust.Stmt, error) {
	if n := len(fc.tries); n > 0 {
		return one(rust.Semi(&rust.Break{Label: fc.tries[n-1].label, X: rust.C("Some", err)}))
	}
	switch {
	case fc.machine != nil:
		return nil, diag.Errorf(diag.CodeGenError, s.Span, "raise inside a generator")
	case fc.fallible:
		return one(rust.Semi(&rust.Return{X: rust.C("Err", err)}))
	}
	return one(rust.Semi(&rust.Macro{Name: "panic", Args: []rust.Expr{rust.L(`"{}"`), err}}))
}

// try lowers try/except/else/finally:
//
//	let __err: Option<Box<dyn Error>> = 'try: { body; None };
//	let __rethrow: Option<Box<dyn Error>> = match __err {
//	    None => { else; None }
//	    Some(__e) => if __e.is::<T>() { handler; None } else { Some(__e) },
//	};
//	{ finally }
//	match __rethrow { Some(__e) => raise, None => {} }
func (fc *fnCtx) try(s *hir.Stmt, d hir.TryData) ([]rust.Stmt, error) {
	if fc.machine != nil && hir.ContainsYield(d.Body) {
		return nil, diag.Errorf(diag.CodeGenError, s.Span, "yield inside try")
	}
	label := fc.fresh("try")
	errName := fc.fresh("err")
	optErr := types.OptionOf(boxError)

	fc.tries = append(fc.tries, &tryFrame{label: label, handlers: d.Handlers})
	body, err := fc.block(d.Body)
	fc.tries = fc.tries[:len(fc.tries)-1]
	if err != nil {
		return nil, err
	}
	body.Tail = rust.P("None")
	out := []rust.Stmt{&rust.Let{Pat: rust.Var(errName), Type: optErr, Value: &rust.BlockExpr{Label: label, Block: body}}}

	elseBlock := &rust.Block{}
	if d.Else != nil {
		if elseBlock, err = fc.block(d.Else); err != nil {
			return nil, err
		}
	}
	elseBlock.Tail = rust.P("None")

	errVar := fc.fresh("e")
	chain, catchAll, err := fc.handlers(d.Handlers, errVar)
	if err != nil {
		return nil, err
	}
	rethrow := fc.fresh("rethrow")
	out = append(out, &rust.Let{Pat: rust.Var(rethrow), Type: optErr, Value: &rust.Match{X: rust.P(errName), Arms: []rust.Arm{
		{Pat: &rust.LitPat{Text: "None"}, Body: &rust.BlockExpr{Block: elseBlock}},
		{Pat: &rust.VariantPat{Path: "Some", Elems: []rust.Pat{rust.Var(errVar)}}, Body: chain},
	}}})

	if d.Finally != nil {
		fb, err := fc.block(d.Finally)
		if err != nil {
			return nil, err
		}
		out = append(out, rust.Semi(&rust.BlockExpr{Block: fb}))
	}
	if !catchAll {
		raise, err := fc.throw(s, rust.P("__e"))
		if err != nil {
			return nil, err
		}
		out = append(out, rust.Semi(&rust.Match{X: rust.P(rethrow), Arms: []rust.Arm{
			{Pat: &rust.VariantPat{Path: "Some", Elems: []rust.Pat{rust.Var("__e")}}, Body: &rust.BlockExpr{Block: &rust.Block{Stmts: raise}}},
			{Pat: &rust.LitPat{Text: "None"}, Body: &rust.BlockExpr{Block: &rust.Block{}}},
		}}))
	}
	return out, nil
}

// handlers builds the if/else chain dispatching errVar to the first
// matching handler. catchAll reports a chain that never rethrows.
func (fc *fnCtx) handlers(hs []*hir.Handler, errVar string) (rust.Expr, bool, error) {
	unmatched := &rust.BlockExpr{Block: &rust.Block{Tail: rust.C("Some", rust.P(errVar))}}
	var chain rust.Expr = unmatched
	var last *rust.If
	for _, h := range hs {
		all := isCatchAll(h)
		hb, err := fc.handler(h, errVar, all)
		if err != nil {
			return nil, false, err
		}
		if all {
			if last == nil {
				return hb, true, nil
			}
			last.Else = hb
			return chain, true, nil
		}
		var cond rust.Expr
		for _, name := range h.Types {
			fc.g.errorType(name)
			test := &rust.MethodCall{Recv: rust.P(errVar), Method: "is", Turbo: name}
			if cond == nil {
				cond = test
			} else {
				cond = rust.Bin("||", cond, test)
			}
		}
		next := &rust.If{Cond: cond, Then: hb.Block, Else: unmatched}
		if last == nil {
			chain = next
		} else {
			last.Else = next
		}
		last = next
	}
	return chain, false, nil
}

func isCatchAll(h *hir.Handler) bool {
	if len(h.Types) == 0 {
		return true
	}
	for _, t := range h.Types {
		if t == "Exception" || t == "BaseException" {
			return true
		}
	}
	return false
}

func (fc *fnCtx) handler(h *hir.Handler, errVar string, all bool) (*rust.BlockExpr, error) {
	var pre []rust.Stmt
	if h.Name != "" {
		var bind rust.Expr
		if all || len(h.Types) > 1 {
			fc.g.errorType("Exception")
			bind = rust.C("Exception::new", rust.M(rust.P(errVar), "to_string"))
		} else {
			ref := &rust.MethodCall{Recv: rust.P(errVar), Method: "downcast_ref", Turbo: h.Types[0]}
			bind = rust.M(rust.M(ref, "unwrap"), "clone")
		}
		pre = append(pre, &rust.Let{Pat: rust.Var(rust.EscapeIdent(h.Name)), Value: bind})
		fc.scoped[h.Name]++
		defer func() { fc.scoped[h.Name]-- }()
	}
	fc.caught = append(fc.caught, errVar)
	b, err := fc.block(h.Body)
	fc.caught = fc.caught[:len(fc.caught)-1]
	if err != nil {
		return nil, err
	}
	b.Stmts = append(pre, b.Stmts...)
	b.Tail = rust.P("None")
	return &rust.BlockExpr{Block: b}, nil
}

func (fc *fnCtx) with(s *hir.Stmt, d hir.WithData) ([]rust.Stmt, error) {
	ctx, err := fc.expr(d.Context)
	if err != nil {
		return nil, err
	}
	body, err := fc.block(d.Body)
	if err != nil {
		return nil, err
	}
	var bind rust.Stmt
	switch {
	case d.Target == "":
		bind = &rust.Let{Pat: rust.Var(fc.fresh("ctx")), Value: fc.consume(ctx)}
	case fc.machine == nil && fc.vars.binds(s, d.Target):
		bind = &rust.Let{Pat: &rust.Ident{Name: rust.EscapeIdent(d.Target), Mut: fc.vars.mut.Contains(d.Target)}, Value: fc.consume(ctx)}
	default:
		bind = rust.Semi(&rust.Assign{L: fc.lvalue(d.Target), R: fc.consume(ctx)})
	}
	body.Stmts = append([]rust.Stmt{bind}, body.Stmts...)
	return one(rust.Semi(&rust.BlockExpr{Block: body}))
}

func (fc *fnCtx) assert(d hir.AssertData) ([]rust.Stmt, error) {
	cond, err := fc.cond(d.Test)
	if err != nil {
		return nil, err
	}
	args := []rust.Expr{cond}
	if d.Message != nil {
		msg, err := fc.display(d.Message)
		if err != nil {
			return nil, err
		}
		args = append(args, rust.L(`"{}"`), msg)
	}
	return one(rust.Semi(&rust.Macro{Name: "assert", Args: args}))
}
