package hir

// Children returns the direct sub-expressions of e in evaluation order.
func Children(e *Expr) []*Expr {
	if e == nil {
		return nil
	}
	var out []*Expr
	add := func(xs ...*Expr) {
		for _, x := range xs {
			if x != nil {
				out = append(out, x)
			}
		}
	}
	switch d := e.Data.(type) {
	case BinaryData:
		add(d.Left, d.Right)
	case UnaryData:
		add(d.Operand)
	case CallData:
		add(d.Args...)
		for _, kw := range d.Kwargs {
			add(kw.Value)
		}
	case MethodCallData:
		add(d.Receiver)
		add(d.Args...)
		for _, kw := range d.Kwargs {
			add(kw.Value)
		}
	case AttrData:
		add(d.Object)
	case IndexData:
		add(d.Object, d.Index)
	case SliceData:
		add(d.Object, d.Lower, d.Upper, d.Step)
	case BorrowData:
		add(d.Value)
	case SeqData:
		add(d.Elems...)
	case DictData:
		for i := range d.Keys {
			add(d.Keys[i], d.Values[i])
		}
	case CompData:
		for _, f := range d.For {
			add(f.Iter, f.Target)
			add(f.Ifs...)
		}
		add(d.Key, d.Elem)
	case LambdaData:
		add(d.Body)
	case IfExpData:
		add(d.Cond, d.Then, d.Else)
	case AwaitData:
		add(d.Value)
	case FStringData:
		for _, p := range d.Parts {
			add(p.Value)
		}
	case YieldData:
		add(d.Value)
	}
	return out
}

// InspectExpr traverses e depth-first. If fn returns false, the children
// of that node are skipped.
func InspectExpr(e *Expr, fn func(*Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range Children(e) {
		InspectExpr(c, fn)
	}
}

// StmtExprs returns the expressions owned directly by s, excluding those in
// nested blocks.
func StmtExprs(s *Stmt) []*Expr {
	var out []*Expr
	add := func(xs ...*Expr) {
		for _, x := range xs {
			if x != nil {
				out = append(out, x)
			}
		}
	}
	switch d := s.Data.(type) {
	case AssignData:
		add(d.Value, d.Target)
	case ExprStmtData:
		add(d.Expr)
	case ReturnData:
		add(d.Value)
	case IfData:
		add(d.Cond)
	case WhileData:
		add(d.Cond)
	case ForData:
		add(d.Iter, d.Target)
	case RaiseData:
		add(d.Message)
	case WithData:
		add(d.Context)
	case AssertData:
		add(d.Test, d.Message)
	}
	return out
}

// SubBlocks returns the nested blocks of s in source order.
func SubBlocks(s *Stmt) []*Block {
	var out []*Block
	add := func(bs ...*Block) {
		for _, b := range bs {
			if b != nil {
				out = append(out, b)
			}
		}
	}
	switch d := s.Data.(type) {
	case IfData:
		add(d.Then, d.Else)
	case WhileData:
		add(d.Body)
	case ForData:
		add(d.Body)
	case WithData:
		add(d.Body)
	case TryData:
		add(d.Body)
		for _, h := range d.Handlers {
			add(h.Body)
		}
		add(d.Else, d.Finally)
	}
	return out
}

// WalkBlock visits every statement of b depth-first. If fn returns false,
// the nested blocks of that statement are skipped.
func WalkBlock(b *Block, fn func(*Stmt) bool) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		if !fn(s) {
			continue
		}
		for _, sub := range SubBlocks(s) {
			WalkBlock(sub, fn)
		}
	}
}

// InspectBlock visits every expression in b, including nested blocks.
func InspectBlock(b *Block, fn func(*Expr) bool) {
	WalkBlock(b, func(s *Stmt) bool {
		for _, e := range StmtExprs(s) {
			InspectExpr(e, fn)
		}
		return true
	})
}

// ContainsYield reports whether b yields outside of nested lambdas.
func ContainsYield(b *Block) bool {
	found := false
	InspectBlock(b, func(e *Expr) bool {
		if e.Kind == ExprYield {
			found = true
		}
		return !found && e.Kind != ExprLambda
	})
	return found
}

// Rebinds reports whether any statement in stmts, or in their nested
// blocks, assigns name.
func Rebinds(stmts []*Stmt, name string) bool {
	found := false
	WalkBlock(&Block{Stmts: stmts}, func(s *Stmt) bool {
		switch d := s.Data.(type) {
		case AssignData:
			found = found || bindsName(d.Target, name)
		case ForData:
			found = found || bindsName(d.Target, name)
		case WithData:
			found = found || d.Target == name
		case TryData:
			for _, h := range d.Handlers {
				found = found || h.Name == name
			}
		}
		return !found
	})
	return found
}

func bindsName(t *Expr, name string) bool {
	switch t.Kind {
	case ExprName:
		return NameOf(t) == name
	case ExprTuple:
		for _, el := range t.Data.(SeqData).Elems {
			if bindsName(el, name) {
				return true
			}
		}
	}
	return false
}
