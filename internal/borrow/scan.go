package borrow

import (
	"pyrust/internal/hir"
	"pyrust/internal/source"
	"pyrust/internal/typeflow"
	"pyrust/internal/types"
)

// callSite is a call to a user function or method. Args holds, per callee
// parameter index, the caller parameter passed directly (-1 otherwise).
type callSite struct {
	caller *hir.Func
	callee *hir.Func
	args   []int
	names  []string
	span   source.Span
}

// scanner collects the sites of every parameter of one function.
type scanner struct {
	m      *hir.Module
	tf     *typeflow.Result
	fn     *hir.Func
	params map[string]int
	// aliases maps a local bound directly to a parameter ("x = p") to that
	// parameter, so later mutations of x count against p.
	aliases map[string]int
	usage   []*Usage
	loop    int
	lambda  int
	calls   []callSite
}

func newScanner(m *hir.Module, tf *typeflow.Result, fn *hir.Func) *scanner {
	s := &scanner{
		m:       m,
		tf:      tf,
		fn:      fn,
		params:  make(map[string]int, len(fn.Params)),
		aliases: make(map[string]int),
		usage:   make([]*Usage, len(fn.Params)),
	}
	for i, p := range fn.Params {
		s.params[p.Name] = i
		s.usage[i] = &Usage{}
	}
	return s
}

func (s *scanner) run() {
	s.block(s.fn.Body)
}

// direct returns the parameter index when e is the parameter itself or an
// alias of it.
func (s *scanner) direct(e *hir.Expr) int {
	name := hir.NameOf(e)
	if name == "" {
		return -1
	}
	if i, ok := s.aliases[name]; ok {
		return i
	}
	if i, ok := s.params[name]; ok {
		return i
	}
	return -1
}

// root follows attribute, index and slice chains down to a parameter.
func (s *scanner) root(e *hir.Expr) int {
	for e != nil {
		switch d := e.Data.(type) {
		case hir.AttrData:
			e = d.Object
		case hir.IndexData:
			e = d.Object
		case hir.SliceData:
			e = d.Object
		case hir.NameData:
			return s.direct(e)
		default:
			return -1
		}
	}
	return -1
}

func (s *scanner) site(idx int, kind SiteKind, sp source.Span, detail string) {
	if idx < 0 {
		return
	}
	if s.lambda > 0 && (kind == SiteRead || kind == SiteStore) {
		kind = SiteCapture
	}
	s.usage[idx].add(Site{Kind: kind, Span: sp, InLoop: s.loop > 0, Detail: detail})
}

func (s *scanner) block(b *hir.Block) {
	if b == nil {
		return
	}
	for _, st := range b.Stmts {
		s.stmt(st)
	}
}

func (s *scanner) stmt(st *hir.Stmt) {
	switch d := st.Data.(type) {
	case hir.AssignData:
		s.assign(d)
	case hir.ExprStmtData:
		if d.Expr.Kind == hir.ExprYield {
			if v := d.Expr.Data.(hir.YieldData).Value; v != nil {
				s.value(v, SiteStore, "yield")
			}
			return
		}
		s.expr(d.Expr)
	case hir.ReturnData:
		if d.Value != nil {
			s.ret(d.Value)
		}
	case hir.IfData:
		s.expr(d.Cond)
		s.block(d.Then)
		s.block(d.Else)
	case hir.WhileData:
		s.loop++
		s.expr(d.Cond)
		s.block(d.Body)
		s.loop--
	case hir.ForData:
		s.expr(d.Iter)
		s.loop++
		s.target(d.Target)
		s.block(d.Body)
		s.loop--
	case hir.RaiseData:
		if d.Message != nil {
			s.expr(d.Message)
		}
	case hir.WithData:
		s.expr(d.Context)
		if d.Target != "" {
			delete(s.aliases, d.Target)
		}
		s.block(d.Body)
	case hir.TryData:
		s.block(d.Body)
		for _, h := range d.Handlers {
			s.block(h.Body)
		}
		s.block(d.Else)
		s.block(d.Finally)
	case hir.AssertData:
		s.expr(d.Test)
		if d.Message != nil {
			s.expr(d.Message)
		}
	}
}

func (s *scanner) assign(d hir.AssignData) {
	if d.Aug {
		s.expr(d.Value)
		if idx := s.direct(d.Target); idx >= 0 && hir.NameOf(d.Target) == s.fn.Params[idx].Name {
			kind := SiteRebind
			if inPlace(s.tf.ParamType(hir.ParamKey{Func: s.fn.ID, Index: idx})) {
				kind = SiteMutate
			}
			s.site(idx, SiteRead, d.Target.Span, "")
			s.site(idx, kind, d.Target.Span, d.Op.String()+"=")
			return
		}
		if idx := s.direct(d.Target); idx >= 0 {
			// Augmenting an alias.
			s.site(idx, SiteMutate, d.Target.Span, d.Op.String()+"=")
			return
		}
		s.store(d.Target)
		return
	}
	switch d.Target.Kind {
	case hir.ExprName:
		name := hir.NameOf(d.Target)
		if idx, ok := s.params[name]; ok {
			s.expr(d.Value)
			s.site(idx, SiteRebind, d.Target.Span, "")
			return
		}
		delete(s.aliases, name)
		if idx := s.direct(d.Value); idx >= 0 && !s.copyParam(idx) {
			s.site(idx, SiteRead, d.Value.Span, "")
			s.aliases[name] = idx
			return
		}
		s.expr(d.Value)
	case hir.ExprIndex, hir.ExprAttr:
		s.value(d.Value, SiteStore, "store")
		s.store(d.Target)
	default:
		s.expr(d.Value)
		s.target(d.Target)
	}
}

func (s *scanner) copyParam(idx int) bool {
	t := s.tf.ParamType(hir.ParamKey{Func: s.fn.ID, Index: idx})
	return t.IsUnknown() || t.IsCopy()
}

// inPlace reports types whose augmented assignment mutates the value
// instead of rebinding the name.
func inPlace(t *types.Type) bool {
	switch t.Kind {
	case types.List, types.Set, types.Dict:
		return true
	}
	return false
}

// target handles a binding target: names are rebound, projections mutate.
func (s *scanner) target(e *hir.Expr) {
	switch e.Kind {
	case hir.ExprName:
		name := hir.NameOf(e)
		if idx, ok := s.params[name]; ok {
			s.site(idx, SiteRebind, e.Span, "")
			return
		}
		delete(s.aliases, name)
	case hir.ExprTuple:
		for _, el := range e.Data.(hir.SeqData).Elems {
			s.target(el)
		}
	default:
		s.store(e)
	}
}

// store handles a write through an index or attribute projection.
func (s *scanner) store(target *hir.Expr) {
	s.site(s.root(target), SiteMutate, target.Span, "store")
	switch d := target.Data.(type) {
	case hir.IndexData:
		s.projection(d.Object)
		s.expr(d.Index)
	case hir.AttrData:
		s.projection(d.Object)
	}
}

// projection scans the non-root parts of an lvalue chain.
func (s *scanner) projection(e *hir.Expr) {
	switch d := e.Data.(type) {
	case hir.IndexData:
		s.projection(d.Object)
		s.expr(d.Index)
	case hir.AttrData:
		s.projection(d.Object)
	case hir.NameData:
	default:
		s.expr(e)
	}
}

// value scans e in a position that takes ownership of a direct parameter.
func (s *scanner) value(e *hir.Expr, kind SiteKind, detail string) {
	if idx := s.direct(e); idx >= 0 {
		s.site(idx, kind, e.Span, detail)
		return
	}
	s.expr(e)
}

func (s *scanner) ret(e *hir.Expr) {
	switch e.Kind {
	case hir.ExprName:
		if idx := s.direct(e); idx >= 0 {
			s.site(idx, SiteEscape, e.Span, "return")
			return
		}
	case hir.ExprIfExp:
		d := e.Data.(hir.IfExpData)
		s.expr(d.Cond)
		s.ret(d.Then)
		s.ret(d.Else)
		return
	}
	before := make([]int, len(s.usage))
	for i, u := range s.usage {
		before[i] = len(u.Sites)
	}
	s.expr(e)
	for i, u := range s.usage {
		if len(u.Sites) > before[i] {
			s.site(i, SiteDerive, e.Span, "return")
		}
	}
}

func (s *scanner) expr(e *hir.Expr) {
	if e == nil {
		return
	}
	switch d := e.Data.(type) {
	case hir.NameData:
		s.site(s.direct(e), SiteRead, e.Span, "")
	case hir.MethodCallData:
		s.methodCall(e, d)
	case hir.CallData:
		s.call(e, d)
	case hir.SeqData:
		for _, el := range d.Elems {
			s.value(el, SiteStore, e.Kind.String())
		}
	case hir.DictData:
		for i := range d.Keys {
			s.value(d.Keys[i], SiteStore, "dict")
			s.value(d.Values[i], SiteStore, "dict")
		}
	case hir.LambdaData:
		s.lambda++
		s.expr(d.Body)
		s.lambda--
	default:
		for _, c := range hir.Children(e) {
			s.expr(c)
		}
	}
}

// storingMethods move their arguments into the receiver.
var storingMethods = map[string]bool{
	"append": true, "insert": true, "add": true, "extend": true,
	"update": true, "setdefault": true,
}

func (s *scanner) methodCall(e *hir.Expr, d hir.MethodCallData) {
	idx := s.root(d.Receiver)
	recvType := s.tf.TypeOf(d.Receiver)
	var callee *hir.Func
	if recvType.Kind == types.Custom {
		if cls := s.m.ClassByName(recvType.Name); cls != nil {
			callee = cls.Method(d.Method)
		}
	}
	switch {
	case callee != nil && callee.Receiver == hir.RecvMut:
		s.site(idx, SiteMutate, e.Span, d.Method)
	case callee == nil && hir.IsMutatingMethod(d.Method):
		s.site(idx, SiteMutate, e.Span, d.Method)
	}
	s.expr(d.Receiver)
	for _, a := range d.Args {
		if callee == nil && storingMethods[d.Method] {
			s.value(a, SiteStore, d.Method)
		} else {
			s.expr(a)
		}
	}
	for _, kw := range d.Kwargs {
		s.expr(kw.Value)
	}
	if callee != nil {
		s.record(callee, d.Args, d.Kwargs, e.Span)
	}
}

func (s *scanner) call(e *hir.Expr, d hir.CallData) {
	if fn := s.m.FuncByName(d.Func); fn != nil {
		for _, a := range d.Args {
			s.expr(a)
		}
		for _, kw := range d.Kwargs {
			s.expr(kw.Value)
		}
		s.record(fn, d.Args, d.Kwargs, e.Span)
		return
	}
	if cls := s.m.ClassByName(d.Func); cls != nil {
		for _, a := range d.Args {
			s.value(a, SiteStore, cls.Name)
		}
		for _, kw := range d.Kwargs {
			s.value(kw.Value, SiteStore, cls.Name)
		}
		return
	}
	for _, a := range d.Args {
		s.expr(a)
	}
	for _, kw := range d.Kwargs {
		s.expr(kw.Value)
	}
}

func (s *scanner) record(callee *hir.Func, args []*hir.Expr, kwargs []hir.Kwarg, sp source.Span) {
	cs := callSite{
		caller: s.fn,
		callee: callee,
		args:   make([]int, len(callee.Params)),
		names:  make([]string, len(callee.Params)),
		span:   sp,
	}
	for i := range cs.args {
		cs.args[i] = -1
	}
	put := func(i int, a *hir.Expr) {
		if i < 0 || i >= len(cs.args) {
			return
		}
		cs.args[i] = s.direct(a)
		cs.names[i] = hir.NameOf(a)
	}
	for i, a := range args {
		put(i, a)
	}
	for _, kw := range kwargs {
		put(callee.ParamIndex(kw.Name), kw.Value)
	}
	s.calls = append(s.calls, cs)
}
