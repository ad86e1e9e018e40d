package hir

// MapChildren replaces every direct child c of e with f(c). The node is
// updated in place, so e keeps its id.
func MapChildren(e *Expr, f func(*Expr) *Expr) {
	if e == nil {
		return
	}
	opt := func(x *Expr) *Expr {
		if x == nil {
			return nil
		}
		return f(x)
	}
	list := func(xs []*Expr) {
		for i := range xs {
			xs[i] = f(xs[i])
		}
	}
	kwargs := func(kws []Kwarg) {
		for i := range kws {
			kws[i].Value = f(kws[i].Value)
		}
	}
	switch d := e.Data.(type) {
	case BinaryData:
		d.Left, d.Right = f(d.Left), f(d.Right)
		e.Data = d
	case UnaryData:
		d.Operand = f(d.Operand)
		e.Data = d
	case CallData:
		list(d.Args)
		kwargs(d.Kwargs)
	case MethodCallData:
		d.Receiver = f(d.Receiver)
		list(d.Args)
		kwargs(d.Kwargs)
		e.Data = d
	case AttrData:
		d.Object = f(d.Object)
		e.Data = d
	case IndexData:
		d.Object, d.Index = f(d.Object), f(d.Index)
		e.Data = d
	case SliceData:
		d.Object = f(d.Object)
		d.Lower, d.Upper, d.Step = opt(d.Lower), opt(d.Upper), opt(d.Step)
		e.Data = d
	case BorrowData:
		d.Value = f(d.Value)
		e.Data = d
	case SeqData:
		list(d.Elems)
	case DictData:
		list(d.Keys)
		list(d.Values)
	case CompData:
		for _, cf := range d.For {
			cf.Iter = f(cf.Iter)
			cf.Target = f(cf.Target)
			list(cf.Ifs)
		}
		d.Key, d.Elem = opt(d.Key), f(d.Elem)
		e.Data = d
	case LambdaData:
		d.Body = f(d.Body)
		e.Data = d
	case IfExpData:
		d.Cond, d.Then, d.Else = f(d.Cond), f(d.Then), f(d.Else)
		e.Data = d
	case AwaitData:
		d.Value = f(d.Value)
		e.Data = d
	case FStringData:
		for i := range d.Parts {
			d.Parts[i].Value = opt(d.Parts[i].Value)
		}
	case YieldData:
		d.Value = opt(d.Value)
		e.Data = d
	}
}

// RewriteExpr rebuilds e bottom-up: children are rewritten first, then fn
// decides the replacement of the node itself.
func RewriteExpr(e *Expr, fn func(*Expr) *Expr) *Expr {
	if e == nil {
		return nil
	}
	MapChildren(e, func(c *Expr) *Expr { return RewriteExpr(c, fn) })
	return fn(e)
}

// MapStmtExprs replaces the expressions owned directly by s with f(x).
// Nested blocks are left alone.
func MapStmtExprs(s *Stmt, f func(*Expr) *Expr) {
	opt := func(x *Expr) *Expr {
		if x == nil {
			return nil
		}
		return f(x)
	}
	switch d := s.Data.(type) {
	case AssignData:
		d.Value, d.Target = f(d.Value), f(d.Target)
		s.Data = d
	case ExprStmtData:
		d.Expr = f(d.Expr)
		s.Data = d
	case ReturnData:
		d.Value = opt(d.Value)
		s.Data = d
	case IfData:
		d.Cond = f(d.Cond)
		s.Data = d
	case WhileData:
		d.Cond = f(d.Cond)
		s.Data = d
	case ForData:
		d.Iter, d.Target = f(d.Iter), f(d.Target)
		s.Data = d
	case RaiseData:
		d.Message = opt(d.Message)
		s.Data = d
	case WithData:
		d.Context = f(d.Context)
		s.Data = d
	case AssertData:
		d.Test, d.Message = f(d.Test), opt(d.Message)
		s.Data = d
	}
}
