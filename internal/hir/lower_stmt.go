package hir

import (
	"fmt"

	"pyrust/internal/ast"
	"pyrust/internal/diag"
	"pyrust/internal/source"
)

func (l *lowerer) lowerBlock(stmts []ast.Stmt, span source.Span) (*Block, error) {
	b := &Block{Span: span}
	if len(stmts) > 0 {
		b.Span = stmts[0].Span().Cover(stmts[len(stmts)-1].Span())
	}
	for _, st := range stmts {
		out, err := l.lowerStmt(st)
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, out...)
	}
	return b, nil
}

func (l *lowerer) stmt(kind StmtKind, span source.Span, data StmtData) *Stmt {
	return &Stmt{Kind: kind, Span: span, Data: data}
}

// lowerStmt returns zero or more HIR statements for one AST statement.
func (l *lowerer) lowerStmt(st ast.Stmt) ([]*Stmt, error) {
	sp := st.Span()
	one := func(s *Stmt, err error) ([]*Stmt, error) {
		if err != nil {
			return nil, err
		}
		return []*Stmt{s}, nil
	}
	switch s := st.(type) {
	case *ast.ExprStmt:
		return l.lowerExprStmt(s)
	case *ast.Assign:
		return l.lowerAssign(s)
	case *ast.AugAssign:
		return one(l.lowerAugAssign(s))
	case *ast.AnnAssign:
		if s.Value == nil {
			return nil, nil
		}
		target, err := l.lowerTarget(s.Target)
		if err != nil {
			return nil, err
		}
		value, err := l.lowerExpr(s.Value)
		if err != nil {
			return nil, err
		}
		return one(l.stmt(StmtAssign, sp, AssignData{Target: target, Value: value, Annot: l.annotationType(s.Annotation)}), nil)
	case *ast.Return:
		if l.fn == nil {
			return nil, diag.Errorf(diag.ConversionError, sp, "return outside function")
		}
		var v *Expr
		if s.Value != nil {
			var err error
			if v, err = l.lowerExpr(s.Value); err != nil {
				return nil, err
			}
		}
		return one(l.stmt(StmtReturn, sp, ReturnData{Value: v}), nil)
	case *ast.If:
		return one(l.lowerIf(s))
	case *ast.While:
		cond, err := l.lowerExpr(s.Test)
		if err != nil {
			return nil, err
		}
		body, err := l.lowerLoopBody(s.Body, sp)
		if err != nil {
			return nil, err
		}
		return l.loopElse(l.stmt(StmtWhile, sp, WhileData{Cond: cond, Body: body}), body, s.OrElse)
	case *ast.For:
		loop, err := l.lowerFor(s)
		if err != nil {
			return nil, err
		}
		return l.loopElse(loop, loop.Data.(ForData).Body, s.OrElse)
	case *ast.Break, *ast.Continue:
		if l.loopDepth == 0 {
			return nil, diag.Errorf(diag.ConversionError, sp, "%s outside loop", stmtKeyword(st))
		}
		kind := StmtBreak
		if _, ok := st.(*ast.Continue); ok {
			kind = StmtContinue
		}
		return one(l.stmt(kind, sp, BranchData{}), nil)
	case *ast.Pass:
		return one(l.stmt(StmtPass, sp, PassData{}), nil)
	case *ast.Raise:
		return one(l.lowerRaise(s))
	case *ast.Try:
		return one(l.lowerTry(s))
	case *ast.With:
		return one(l.lowerWith(s, 0))
	case *ast.Assert:
		test, err := l.lowerExpr(s.Test)
		if err != nil {
			return nil, err
		}
		var msg *Expr
		if s.Msg != nil {
			if msg, err = l.lowerExpr(s.Msg); err != nil {
				return nil, err
			}
		}
		return one(l.stmt(StmtAssert, sp, AssertData{Test: test, Message: msg}), nil)
	case *ast.Delete:
		return l.lowerDelete(s)
	case *ast.FunctionDef:
		return nil, l.liftNested(s)
	case *ast.ClassDef:
		return nil, diag.Unsupported(sp, "nested class "+s.Name)
	case *ast.Import, *ast.ImportFrom:
		return nil, diag.Unsupported(sp, "import inside function")
	case *ast.Global, *ast.Nonlocal:
		return nil, diag.Unsupported(sp, stmtName(st)+" declaration")
	}
	return nil, diag.Unsupported(sp, stmtName(st))
}

func stmtKeyword(st ast.Stmt) string {
	if _, ok := st.(*ast.Continue); ok {
		return "continue"
	}
	return "break"
}

func (l *lowerer) lowerExprStmt(s *ast.ExprStmt) ([]*Stmt, error) {
	sp := s.Span()
	switch v := s.Value.(type) {
	case *ast.Constant:
		if v.Kind == ast.ConstStr || v.Kind == ast.ConstEllipsis {
			return []*Stmt{l.stmt(StmtPass, sp, PassData{})}, nil
		}
	case *ast.Yield:
		y, err := l.lowerYield(v)
		if err != nil {
			return nil, err
		}
		return []*Stmt{l.stmt(StmtExpr, sp, ExprStmtData{Expr: y})}, nil
	case *ast.YieldFrom:
		return l.lowerYieldFrom(v)
	}
	e, err := l.lowerExpr(s.Value)
	if err != nil {
		return nil, err
	}
	return []*Stmt{l.stmt(StmtExpr, sp, ExprStmtData{Expr: e})}, nil
}

func (l *lowerer) lowerYield(y *ast.Yield) (*Expr, error) {
	if l.fn == nil {
		return nil, diag.Errorf(diag.ConversionError, y.Span(), "yield outside function")
	}
	if l.fn.IsAsync() {
		return nil, diag.Unsupported(y.Span(), "async generator")
	}
	var v *Expr
	if y.Value != nil {
		var err error
		if v, err = l.lowerExpr(y.Value); err != nil {
			return nil, err
		}
	}
	return l.m.NewExpr(ExprYield, y.Span(), YieldData{Value: v}), nil
}

// lowerYieldFrom desugars "yield from it" into "for __item in it: yield __item".
func (l *lowerer) lowerYieldFrom(y *ast.YieldFrom) ([]*Stmt, error) {
	if l.fn == nil {
		return nil, diag.Errorf(diag.ConversionError, y.Span(), "yield outside function")
	}
	iter, err := l.lowerExpr(y.Value)
	if err != nil {
		return nil, err
	}
	sp := y.Span()
	item := l.m.NewExpr(ExprName, sp, NameData{Name: "__item"})
	ref := l.m.NewExpr(ExprName, sp, NameData{Name: "__item"})
	yield := l.m.NewExpr(ExprYield, sp, YieldData{Value: ref})
	body := &Block{Span: sp, Stmts: []*Stmt{l.stmt(StmtExpr, sp, ExprStmtData{Expr: yield})}}
	return []*Stmt{l.stmt(StmtFor, sp, ForData{Target: item, Iter: iter, Body: body})}, nil
}

// lowerAssign handles single, chained and tuple-unpacking assignment.
func (l *lowerer) lowerAssign(s *ast.Assign) ([]*Stmt, error) {
	sp := s.Span()
	value, err := l.lowerExpr(s.Value)
	if err != nil {
		return nil, err
	}
	if len(s.Targets) == 1 {
		if elts := placeElems(s.Targets[0]); elts != nil {
			return l.lowerParallelAssign(sp, elts, value)
		}
	}
	var out []*Stmt
	for i, t := range s.Targets {
		target, err := l.lowerTarget(t)
		if err != nil {
			return nil, err
		}
		if err := l.checkArity(target, s.Value); err != nil {
			return nil, err
		}
		v := value
		if i > 0 {
			// a = b = v evaluates v once; later targets copy the first.
			v = l.m.CloneExpr(out[0].Data.(AssignData).Target, true)
		}
		out = append(out, l.stmt(StmtAssign, sp, AssignData{Target: target, Value: v}))
	}
	return out, nil
}

// placeElems returns the elements of a tuple target that stores into at
// least one subscript or attribute, nil otherwise.
func placeElems(t ast.Expr) []ast.Expr {
	var elts []ast.Expr
	switch x := t.(type) {
	case *ast.Tuple:
		elts = x.Elts
	case *ast.List:
		elts = x.Elts
	default:
		return nil
	}
	for _, e := range elts {
		switch e.(type) {
		case *ast.Subscript, *ast.Attribute:
			return elts
		}
	}
	return nil
}

// lowerParallelAssign handles `xs[i], xs[j] = xs[j], xs[i]`: every value
// is read into a temporary before any element is stored.
func (l *lowerer) lowerParallelAssign(sp source.Span, elts []ast.Expr, value *Expr) ([]*Stmt, error) {
	vals, ok := value.Data.(SeqData)
	if !ok || (value.Kind != ExprTuple && value.Kind != ExprList) || len(vals.Elems) != len(elts) {
		return nil, diag.Errorf(diag.BridgeBadTarget, sp, "assignment to several subscripts needs a tuple of %d values", len(elts))
	}
	var loads, stores []*Stmt
	for i, e := range elts {
		target, err := l.lowerTarget(e)
		if err != nil {
			return nil, err
		}
		if target.Kind == ExprTuple {
			return nil, diag.Errorf(diag.BridgeBadTarget, e.Span(), "nested unpacking next to a subscript target")
		}
		l.temps++
		tmp := fmt.Sprintf("__tmp%d", l.temps)
		v := vals.Elems[i]
		loads = append(loads, l.stmt(StmtAssign, sp, AssignData{Target: l.m.NewExpr(ExprName, v.Span, NameData{Name: tmp}), Value: v}))
		stores = append(stores, l.stmt(StmtAssign, sp, AssignData{Target: target, Value: l.m.NewExpr(ExprName, v.Span, NameData{Name: tmp})}))
	}
	return append(loads, stores...), nil
}

// checkArity enforces that a tuple target and a tuple literal value have
// the same number of elements.
func (l *lowerer) checkArity(target *Expr, value ast.Expr) error {
	if target.Kind != ExprTuple {
		return nil
	}
	var n int
	switch v := value.(type) {
	case *ast.Tuple:
		n = len(v.Elts)
	case *ast.List:
		n = len(v.Elts)
	default:
		return nil
	}
	want := len(target.Data.(SeqData).Elems)
	if want != n {
		return diag.Errorf(diag.BridgeArityMismatch, target.Span.Cover(value.Span()),
			"cannot unpack %d values into %d names", n, want)
	}
	return nil
}

// lowerTarget converts an assignment target.
func (l *lowerer) lowerTarget(t ast.Expr) (*Expr, error) {
	switch x := t.(type) {
	case *ast.Name:
		return l.m.NewExpr(ExprName, x.Span(), NameData{Name: x.ID}), nil
	case *ast.Attribute:
		return l.lowerExpr(x)
	case *ast.Subscript:
		if _, ok := x.Index.(*ast.Slice); ok {
			return nil, diag.Unsupported(x.Span(), "slice assignment")
		}
		return l.lowerExpr(x)
	case *ast.Tuple, *ast.List:
		var elts []ast.Expr
		if tu, ok := x.(*ast.Tuple); ok {
			elts = tu.Elts
		} else {
			elts = x.(*ast.List).Elts
		}
		elems := make([]*Expr, len(elts))
		for i, e := range elts {
			el, err := l.lowerTarget(e)
			if err != nil {
				return nil, err
			}
			if el.Kind != ExprName && el.Kind != ExprTuple {
				return nil, diag.Errorf(diag.BridgeBadTarget, e.Span(), "tuple unpacking only binds names")
			}
			elems[i] = el
		}
		return l.m.NewExpr(ExprTuple, t.Span(), SeqData{Elems: elems}), nil
	case *ast.Starred:
		return nil, diag.Unsupported(x.Span(), "starred assignment target")
	}
	return nil, diag.Errorf(diag.BridgeBadTarget, t.Span(), "cannot assign to %s", exprName(t))
}

func (l *lowerer) lowerAugAssign(s *ast.AugAssign) (*Stmt, error) {
	target, err := l.lowerTarget(s.Target)
	if err != nil {
		return nil, err
	}
	if target.Kind == ExprTuple {
		return nil, diag.Errorf(diag.BridgeBadTarget, s.Target.Span(), "augmented assignment to tuple")
	}
	op, err := binOp(s.Op, s.Span())
	if err != nil {
		return nil, err
	}
	value, err := l.lowerExpr(s.Value)
	if err != nil {
		return nil, err
	}
	return l.stmt(StmtAssign, s.Span(), AssignData{Target: target, Value: value, Aug: true, Op: op}), nil
}

func (l *lowerer) lowerIf(s *ast.If) (*Stmt, error) {
	cond, err := l.lowerExpr(s.Test)
	if err != nil {
		return nil, err
	}
	then, err := l.lowerBlock(s.Body, s.Span())
	if err != nil {
		return nil, err
	}
	var els *Block
	if len(s.OrElse) > 0 {
		if els, err = l.lowerBlock(s.OrElse, s.Span()); err != nil {
			return nil, err
		}
	}
	return l.stmt(StmtIf, s.Span(), IfData{Cond: cond, Then: then, Else: els}), nil
}

func (l *lowerer) lowerLoopBody(stmts []ast.Stmt, span source.Span) (*Block, error) {
	l.loopDepth++
	defer func() { l.loopDepth-- }()
	return l.lowerBlock(stmts, span)
}

// loopElse attaches the else clause of a while or for loop. The clause
// runs unless the loop left through break, which is tracked in a fresh
// boolean local set right before each break of this loop.
func (l *lowerer) loopElse(loop *Stmt, body *Block, orElse []ast.Stmt) ([]*Stmt, error) {
	if len(orElse) == 0 {
		return []*Stmt{loop}, nil
	}
	els, err := l.lowerBlock(orElse, loop.Span)
	if err != nil {
		return nil, err
	}
	if !breaksOut(body) {
		return append([]*Stmt{loop}, els.Stmts...), nil
	}
	l.temps++
	flag := fmt.Sprintf("__broke%d", l.temps)
	sp := loop.Span
	set := func(v bool) *Stmt {
		target := l.m.NewExpr(ExprName, sp, NameData{Name: flag})
		value := l.m.NewExpr(ExprLiteral, sp, LiteralData{Kind: LiteralBool, Bool: v})
		return l.stmt(StmtAssign, sp, AssignData{Target: target, Value: value})
	}
	l.flagBreaks(body, set)
	notBroke := l.m.NewExpr(ExprUnary, sp, UnaryData{Op: OpNot, Operand: l.m.NewExpr(ExprName, sp, NameData{Name: flag})})
	return []*Stmt{set(false), loop, l.stmt(StmtIf, sp, IfData{Cond: notBroke, Then: els})}, nil
}

// breaksOut reports a break that leaves the loop owning b.
func breaksOut(b *Block) bool {
	found := false
	WalkBlock(b, func(s *Stmt) bool {
		found = found || s.Kind == StmtBreak
		return !found && s.Kind != StmtWhile && s.Kind != StmtFor
	})
	return found
}

// flagBreaks precedes each break of the loop owning b with set(true).
func (l *lowerer) flagBreaks(b *Block, set func(bool) *Stmt) {
	if b == nil {
		return
	}
	out := make([]*Stmt, 0, len(b.Stmts))
	for _, s := range b.Stmts {
		if s.Kind == StmtBreak {
			out = append(out, set(true))
		}
		out = append(out, s)
		if s.Kind == StmtWhile || s.Kind == StmtFor {
			continue
		}
		for _, sub := range SubBlocks(s) {
			l.flagBreaks(sub, set)
		}
	}
	b.Stmts = out
}

func (l *lowerer) lowerFor(s *ast.For) (*Stmt, error) {
	sp := s.Span()
	if s.IsAsync {
		return nil, diag.Unsupported(sp, "async for")
	}
	target, err := l.lowerTarget(s.Target)
	if err != nil {
		return nil, err
	}
	if target.Kind != ExprName && target.Kind != ExprTuple {
		return nil, diag.Errorf(diag.BridgeBadTarget, s.Target.Span(), "for loop target must be a name or tuple of names")
	}
	iter, err := l.lowerExpr(s.Iter)
	if err != nil {
		return nil, err
	}
	body, err := l.lowerLoopBody(s.Body, sp)
	if err != nil {
		return nil, err
	}
	return l.stmt(StmtFor, sp, ForData{Target: target, Iter: iter, Body: body}), nil
}

// lowerRaise extracts the exception class and message. "raise e" inside a
// handler that bound e is a re-raise.
func (l *lowerer) lowerRaise(s *ast.Raise) (*Stmt, error) {
	sp := s.Span()
	if s.Exc == nil {
		if l.handlers == 0 {
			return nil, diag.Errorf(diag.ConversionError, sp, "bare raise outside except clause")
		}
		return l.stmt(StmtRaise, sp, RaiseData{Reraise: true}), nil
	}
	switch x := s.Exc.(type) {
	case *ast.Name:
		for _, c := range l.caught {
			if c == x.ID {
				return l.stmt(StmtRaise, sp, RaiseData{Reraise: true}), nil
			}
		}
		return l.stmt(StmtRaise, sp, RaiseData{ExcType: x.ID}), nil
	case *ast.Call:
		name, ok := x.Func.(*ast.Name)
		if !ok {
			return nil, diag.Unsupported(x.Span(), "raise of computed exception")
		}
		if len(x.Args) > 1 || len(x.Keywords) > 0 {
			return nil, diag.Unsupported(x.Span(), "exception with several arguments")
		}
		data := RaiseData{ExcType: name.ID}
		if len(x.Args) == 1 {
			msg, err := l.lowerExpr(x.Args[0])
			if err != nil {
				return nil, err
			}
			data.Message = msg
		}
		return l.stmt(StmtRaise, sp, data), nil
	}
	return nil, diag.Unsupported(s.Exc.Span(), "raise of "+exprName(s.Exc))
}

func (l *lowerer) lowerTry(s *ast.Try) (*Stmt, error) {
	body, err := l.lowerBlock(s.Body, s.Span())
	if err != nil {
		return nil, err
	}
	data := TryData{Body: body}
	for _, h := range s.Handlers {
		hh := &Handler{Name: h.Name, Span: h.Span()}
		switch t := h.Type.(type) {
		case nil:
		case *ast.Name:
			hh.Types = []string{t.ID}
		case *ast.Tuple:
			for _, e := range t.Elts {
				n, ok := e.(*ast.Name)
				if !ok {
					return nil, diag.Unsupported(e.Span(), "computed exception type")
				}
				hh.Types = append(hh.Types, n.ID)
			}
		default:
			return nil, diag.Unsupported(h.Type.Span(), "computed exception type")
		}
		l.handlers++
		if h.Name != "" {
			l.caught = append(l.caught, h.Name)
		}
		hb, err := l.lowerBlock(h.Body, h.Span())
		if h.Name != "" {
			l.caught = l.caught[:len(l.caught)-1]
		}
		l.handlers--
		if err != nil {
			return nil, err
		}
		hh.Body = hb
		data.Handlers = append(data.Handlers, hh)
	}
	if len(s.OrElse) > 0 {
		if data.Else, err = l.lowerBlock(s.OrElse, s.Span()); err != nil {
			return nil, err
		}
	}
	if len(s.FinalBody) > 0 {
		if data.Finally, err = l.lowerBlock(s.FinalBody, s.Span()); err != nil {
			return nil, err
		}
	}
	return l.stmt(StmtTry, s.Span(), data), nil
}

// lowerWith nests one StmtWith per item.
func (l *lowerer) lowerWith(s *ast.With, i int) (*Stmt, error) {
	if s.IsAsync {
		return nil, diag.Unsupported(s.Span(), "async with")
	}
	item := s.Items[i]
	ctxExpr, err := l.lowerExpr(item.Context)
	if err != nil {
		return nil, err
	}
	data := WithData{Context: ctxExpr}
	if item.Vars != nil {
		n, ok := item.Vars.(*ast.Name)
		if !ok {
			return nil, diag.Unsupported(item.Vars.Span(), "with target "+exprName(item.Vars))
		}
		data.Target = n.ID
	}
	if i+1 < len(s.Items) {
		inner, err := l.lowerWith(s, i+1)
		if err != nil {
			return nil, err
		}
		data.Body = &Block{Span: s.Span(), Stmts: []*Stmt{inner}}
	} else if data.Body, err = l.lowerBlock(s.Body, s.Span()); err != nil {
		return nil, err
	}
	return l.stmt(StmtWith, s.Span(), data), nil
}

// lowerDelete desugars "del c[k]" into c.pop(k).
func (l *lowerer) lowerDelete(s *ast.Delete) ([]*Stmt, error) {
	var out []*Stmt
	for _, t := range s.Targets {
		sub, ok := t.(*ast.Subscript)
		if !ok {
			return nil, diag.Unsupported(t.Span(), "del of "+exprName(t))
		}
		if _, ok := sub.Index.(*ast.Slice); ok {
			return nil, diag.Unsupported(t.Span(), "del of a slice")
		}
		obj, err := l.lowerExpr(sub.Value)
		if err != nil {
			return nil, err
		}
		idx, err := l.lowerExpr(sub.Index)
		if err != nil {
			return nil, err
		}
		call := l.m.NewExpr(ExprMethodCall, t.Span(), MethodCallData{Receiver: obj, Method: "pop", Args: []*Expr{idx}})
		out = append(out, l.stmt(StmtExpr, t.Span(), ExprStmtData{Expr: call}))
	}
	return out, nil
}
