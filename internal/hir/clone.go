package hir

// CloneExpr deep-copies e. With fresh set, every copied node gets a new id
// from m; otherwise ids are preserved so side tables stay valid.
func (m *Module) CloneExpr(e *Expr, fresh bool) *Expr {
	if e == nil {
		return nil
	}
	c := &Expr{ID: e.ID, Kind: e.Kind, Span: e.Span}
	if fresh {
		c.ID = m.NewNodeID()
	}
	ce := func(x *Expr) *Expr { return m.CloneExpr(x, fresh) }
	cs := func(xs []*Expr) []*Expr {
		if xs == nil {
			return nil
		}
		out := make([]*Expr, len(xs))
		for i, x := range xs {
			out[i] = ce(x)
		}
		return out
	}
	ck := func(kws []Kwarg) []Kwarg {
		if kws == nil {
			return nil
		}
		out := make([]Kwarg, len(kws))
		for i, kw := range kws {
			out[i] = Kwarg{Name: kw.Name, Value: ce(kw.Value)}
		}
		return out
	}
	switch d := e.Data.(type) {
	case LiteralData, NameData:
		c.Data = d
	case BinaryData:
		c.Data = BinaryData{Op: d.Op, Left: ce(d.Left), Right: ce(d.Right)}
	case UnaryData:
		c.Data = UnaryData{Op: d.Op, Operand: ce(d.Operand)}
	case CallData:
		c.Data = CallData{Func: d.Func, Args: cs(d.Args), Kwargs: ck(d.Kwargs)}
	case MethodCallData:
		c.Data = MethodCallData{Receiver: ce(d.Receiver), Method: d.Method, Args: cs(d.Args), Kwargs: ck(d.Kwargs)}
	case AttrData:
		c.Data = AttrData{Object: ce(d.Object), Name: d.Name}
	case IndexData:
		c.Data = IndexData{Object: ce(d.Object), Index: ce(d.Index)}
	case SliceData:
		c.Data = SliceData{Object: ce(d.Object), Lower: ce(d.Lower), Upper: ce(d.Upper), Step: ce(d.Step)}
	case BorrowData:
		c.Data = BorrowData{Value: ce(d.Value), Mode: d.Mode}
	case SeqData:
		c.Data = SeqData{Elems: cs(d.Elems)}
	case DictData:
		c.Data = DictData{Keys: cs(d.Keys), Values: cs(d.Values)}
	case CompData:
		fors := make([]*CompFor, len(d.For))
		for i, f := range d.For {
			fors[i] = &CompFor{Target: ce(f.Target), Iter: ce(f.Iter), Ifs: cs(f.Ifs)}
		}
		c.Data = CompData{Key: ce(d.Key), Elem: ce(d.Elem), For: fors}
	case LambdaData:
		c.Data = LambdaData{Params: append([]string(nil), d.Params...), Body: ce(d.Body)}
	case IfExpData:
		c.Data = IfExpData{Cond: ce(d.Cond), Then: ce(d.Then), Else: ce(d.Else)}
	case AwaitData:
		c.Data = AwaitData{Value: ce(d.Value)}
	case FStringData:
		parts := make([]FStringPart, len(d.Parts))
		for i, p := range d.Parts {
			parts[i] = FStringPart{Lit: p.Lit, Value: ce(p.Value), Conv: p.Conv, Spec: p.Spec}
		}
		c.Data = FStringData{Parts: parts}
	case YieldData:
		c.Data = YieldData{Value: ce(d.Value)}
	default:
		c.Data = d
	}
	return c
}

// CloneBlock deep-copies b.
func (m *Module) CloneBlock(b *Block, fresh bool) *Block {
	if b == nil {
		return nil
	}
	out := &Block{Span: b.Span, Stmts: make([]*Stmt, len(b.Stmts))}
	for i, s := range b.Stmts {
		out.Stmts[i] = m.CloneStmt(s, fresh)
	}
	return out
}

// CloneStmt deep-copies s.
func (m *Module) CloneStmt(s *Stmt, fresh bool) *Stmt {
	ce := func(x *Expr) *Expr { return m.CloneExpr(x, fresh) }
	cb := func(b *Block) *Block { return m.CloneBlock(b, fresh) }
	c := &Stmt{Kind: s.Kind, Span: s.Span}
	switch d := s.Data.(type) {
	case AssignData:
		c.Data = AssignData{Target: ce(d.Target), Value: ce(d.Value), Annot: d.Annot, Aug: d.Aug, Op: d.Op}
	case ExprStmtData:
		c.Data = ExprStmtData{Expr: ce(d.Expr)}
	case ReturnData:
		c.Data = ReturnData{Value: ce(d.Value)}
	case IfData:
		c.Data = IfData{Cond: ce(d.Cond), Then: cb(d.Then), Else: cb(d.Else)}
	case WhileData:
		c.Data = WhileData{Cond: ce(d.Cond), Body: cb(d.Body)}
	case ForData:
		c.Data = ForData{Target: ce(d.Target), Iter: ce(d.Iter), Body: cb(d.Body)}
	case RaiseData:
		c.Data = RaiseData{ExcType: d.ExcType, Message: ce(d.Message), Reraise: d.Reraise}
	case WithData:
		c.Data = WithData{Context: ce(d.Context), Target: d.Target, Body: cb(d.Body)}
	case TryData:
		hs := make([]*Handler, len(d.Handlers))
		for i, h := range d.Handlers {
			hs[i] = &Handler{Types: append([]string(nil), h.Types...), Name: h.Name, Body: cb(h.Body), Span: h.Span}
		}
		c.Data = TryData{Body: cb(d.Body), Handlers: hs, Else: cb(d.Else), Finally: cb(d.Finally)}
	case AssertData:
		c.Data = AssertData{Test: ce(d.Test), Message: ce(d.Message)}
	default:
		c.Data = d
	}
	return c
}

// Clone deep-copies the module, preserving node and function ids.
func (m *Module) Clone() *Module {
	out := &Module{
		Name: m.Name, Path: m.Path, File: m.File, Doc: m.Doc,
		Imports:  append([]*Import(nil), m.Imports...),
		nextNode: m.nextNode,
		nextFunc: m.nextFunc,
	}
	for _, c := range m.Consts {
		out.Consts = append(out.Consts, &Const{Name: c.Name, Type: c.Type, Value: m.CloneExpr(c.Value, false), Span: c.Span})
	}
	for _, f := range m.Funcs {
		out.Funcs = append(out.Funcs, m.cloneFunc(f))
	}
	for _, c := range m.Classes {
		nc := &Class{Name: c.Name, Base: c.Base, Doc: c.Doc, Dataclass: c.Dataclass, Span: c.Span}
		for _, f := range c.Fields {
			nc.Fields = append(nc.Fields, &Field{Name: f.Name, Type: f.Type, Default: m.CloneExpr(f.Default, false), Span: f.Span})
		}
		for _, f := range c.Methods {
			nc.Methods = append(nc.Methods, m.cloneFunc(f))
		}
		out.Classes = append(out.Classes, nc)
	}
	out.Main = m.CloneBlock(m.Main, false)
	return out
}

func (m *Module) cloneFunc(f *Func) *Func {
	nf := *f
	nf.Params = make([]*Param, len(f.Params))
	for i, p := range f.Params {
		np := *p
		np.Default = m.CloneExpr(p.Default, false)
		nf.Params[i] = &np
	}
	nf.Body = m.CloneBlock(f.Body, false)
	return &nf
}
