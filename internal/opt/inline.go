package opt

import (
	"github.com/hashicorp/go-set/v3"

	"pyrust/internal/hir"
	"pyrust/internal/typeflow"
)

// Inline replaces calls to small free functions with their bodies.
// Trivial functions, whose body is a single return, are substituted into
// any expression. Straight-line functions called exactly once are spliced
// in before the calling statement when every parameter has a copy type.
// Recursive functions, generators, coroutines and the entry point are
// never inlined. Callers are visited after their callees, so a spliced
// body is already final. The callee definitions stay in the module.
// Returns whether m changed.
func Inline(m *hir.Module, tf *typeflow.Result, cfg InlineConfig, rep *Report) bool {
	in := &inliner{m: m, tf: tf, cfg: cfg, rep: rep, sites: make(map[string]int)}
	in.buildGraph()
	changed := false
	for _, sc := range in.order() {
		if in.scope(sc) {
			changed = true
		}
	}
	return changed
}

type inliner struct {
	m      *hir.Module
	tf     *typeflow.Result
	cfg    InlineConfig
	rep    *Report
	sites  map[string]int              // call sites per free function
	calls  map[string]*set.Set[string] // free function -> free functions it calls
	cyclic *set.Set[string]            // functions that reach themselves
}

// caller is the scope being rewritten.
type caller struct {
	fn      *hir.Func // nil for the main guard
	u       *usage
	changed bool
}

func (in *inliner) callees(b *hir.Block, fn func(name string)) {
	hir.InspectBlock(b, func(e *hir.Expr) bool {
		if d, ok := e.Data.(hir.CallData); ok && in.m.FuncByName(d.Func) != nil {
			fn(d.Func)
		}
		return true
	})
}

func (in *inliner) buildGraph() {
	in.calls = make(map[string]*set.Set[string])
	for _, sc := range scopes(in.m) {
		out := set.New[string](0)
		in.callees(sc.body, func(name string) {
			in.sites[name]++
			out.Insert(name)
		})
		if sc.fn != nil && !sc.fn.IsMethod() {
			in.calls[sc.fn.Name] = out
		}
	}
	in.cyclic = set.New[string](0)
	for _, fn := range in.m.Funcs {
		seen := set.New[string](0)
		stack := []string{fn.Name}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			next, ok := in.calls[cur]
			if !ok {
				continue
			}
			for _, callee := range next.Slice() {
				if callee == fn.Name {
					in.cyclic.Insert(fn.Name)
				}
				if seen.Insert(callee) {
					stack = append(stack, callee)
				}
			}
		}
	}
}

// order lists free functions callees first, then methods, then the main
// guard.
func (in *inliner) order() []scope {
	var out []scope
	done := set.New[string](0)
	var visit func(fn *hir.Func)
	visit = func(fn *hir.Func) {
		if !done.Insert(fn.Name) {
			return
		}
		if next, ok := in.calls[fn.Name]; ok {
			for _, name := range next.Slice() {
				if callee := in.m.FuncByName(name); callee != nil {
					visit(callee)
				}
			}
		}
		out = append(out, scope{fn: fn, body: fn.Body})
	}
	for _, fn := range in.m.Funcs {
		visit(fn)
	}
	for _, c := range in.m.Classes {
		for _, fn := range c.Methods {
			out = append(out, scope{fn: fn, body: fn.Body})
		}
	}
	if in.m.Main != nil {
		out = append(out, scope{body: in.m.Main})
	}
	return out
}

func (in *inliner) scope(sc scope) bool {
	c := &caller{fn: sc.fn, u: scanUsage(sc)}
	in.block(sc.body, c)
	return c.changed
}

func (in *inliner) block(b *hir.Block, c *caller) {
	if b == nil {
		return
	}
	out := make([]*hir.Stmt, 0, len(b.Stmts))
	for _, s := range b.Stmts {
		for _, sub := range hir.SubBlocks(s) {
			in.block(sub, c)
		}
		if spliced, ok := in.singleUse(s, c); ok {
			for _, st := range spliced {
				mapValues(st, func(e *hir.Expr) *hir.Expr { return in.expr(e, c) })
			}
			out = append(out, spliced...)
			continue
		}
		mapValues(s, func(e *hir.Expr) *hir.Expr { return in.expr(e, c) })
		out = append(out, s)
	}
	b.Stmts = out
}

func (in *inliner) expr(e *hir.Expr, c *caller) *hir.Expr {
	if binders(e) != nil {
		return e
	}
	hir.MapChildren(e, func(x *hir.Expr) *hir.Expr { return in.expr(x, c) })
	if d, ok := e.Data.(hir.CallData); ok {
		if out, ok := in.trivial(e, d, c); ok {
			return out
		}
	}
	return e
}

// callee resolves a call that may be inlined into c.
func (in *inliner) callee(call hir.CallData, c *caller) *hir.Func {
	fn := in.m.FuncByName(call.Func)
	switch {
	case fn == nil, fn == c.fn, in.cyclic.Contains(fn.Name):
		return nil
	case fn.IsGenerator(), fn.IsAsync(), fn.Flags.HasFlag(hir.FuncEntry):
		return nil
	case len(call.Kwargs) > 0, len(call.Args) != len(fn.Params):
		return nil
	case fn.Inlined+1 > in.cfg.MaxDepth, c.u.binds[fn.Name] > 0:
		return nil
	}
	return fn
}

func trivialBody(fn *hir.Func) (*hir.Expr, bool) {
	if fn.Body == nil || len(fn.Body.Stmts) != 1 {
		return nil, false
	}
	d, ok := fn.Body.Stmts[0].Data.(hir.ReturnData)
	if !ok || d.Value == nil {
		return nil, false
	}
	return d.Value, true
}

// hasScopes reports lambdas or comprehensions, whose bindings would need
// renaming when the body moves.
func hasScopes(b *hir.Block) bool {
	found := false
	hir.InspectBlock(b, func(e *hir.Expr) bool {
		if binders(e) != nil {
			found = true
		}
		return !found
	})
	return found
}

// freeNames are the names fn reads that it does not bind itself.
func freeNames(fn *hir.Func) []string {
	u := scanUsage(scope{fn: fn, body: fn.Body})
	var out []string
	for _, name := range u.reads.Slice() {
		if u.binds[name] == 0 {
			out = append(out, name)
		}
	}
	return out
}

// visible reports whether every free name of fn resolves to the same
// thing in c.
func (in *inliner) visible(fn *hir.Func, c *caller) bool {
	for _, name := range freeNames(fn) {
		if c.u.binds[name] > 0 {
			return false
		}
	}
	return true
}

// typesMatch requires known, identical argument and parameter types and
// an identical result type, so substitution cannot change inference.
func (in *inliner) typesMatch(call *hir.Expr, args []*hir.Expr, fn *hir.Func, result *hir.Expr) bool {
	for i, a := range args {
		at := in.tf.TypeOf(a)
		if at.IsUnknown() || !at.Equal(in.tf.ParamType(hir.ParamKey{Func: fn.ID, Index: i})) {
			return false
		}
	}
	rt := in.tf.TypeOf(call)
	return !rt.IsUnknown() && rt.Equal(in.tf.TypeOf(result))
}

func (in *inliner) trivial(e *hir.Expr, call hir.CallData, c *caller) (*hir.Expr, bool) {
	if !in.cfg.Trivial {
		return nil, false
	}
	fn := in.callee(call, c)
	if fn == nil {
		return nil, false
	}
	ret, ok := trivialBody(fn)
	if !ok || exprSize(ret) > in.cfg.MaxSize || hasScopes(fn.Body) || !in.visible(fn, c) {
		return nil, false
	}
	if !in.typesMatch(e, call.Args, fn, ret) {
		return nil, false
	}
	uses := make(map[string]int)
	hir.InspectExpr(ret, func(x *hir.Expr) bool {
		if name := hir.NameOf(x); name != "" {
			uses[name]++
		}
		return true
	})
	for i, a := range call.Args {
		if !isPure(a) {
			return nil, false
		}
		if uses[fn.Params[i].Name] > 1 && a.Kind != hir.ExprName && a.Kind != hir.ExprLiteral {
			return nil, false
		}
	}

	repl := make(map[string]func(*hir.Expr) *hir.Expr, len(fn.Params))
	for i, p := range fn.Params {
		arg, used := call.Args[i], false
		repl[p.Name] = func(*hir.Expr) *hir.Expr {
			if !used {
				used = true
				return arg
			}
			return in.m.CloneExpr(arg, true)
		}
	}
	out := substitute(in.m.CloneExpr(ret, true), repl)
	in.inlined(fn, c)
	return out, true
}

func (in *inliner) inlined(fn *hir.Func, c *caller) {
	in.rep.Inlined++
	c.changed = true
	if c.fn != nil && c.fn.Inlined < fn.Inlined+1 {
		c.fn.Inlined = fn.Inlined + 1
	}
}

// statementCall matches "x = f(...)", "return f(...)" and "f(...)".
func statementCall(s *hir.Stmt) *hir.Expr {
	var e *hir.Expr
	switch d := s.Data.(type) {
	case hir.AssignData:
		if !d.Aug && d.Annot == nil && d.Target.Kind == hir.ExprName {
			e = d.Value
		}
	case hir.ReturnData:
		e = d.Value
	case hir.ExprStmtData:
		e = d.Expr
	}
	if e == nil || e.Kind != hir.ExprCall {
		return nil
	}
	return e
}

// straightLine returns the result expression of a body made of plain
// assignments followed by one return.
func straightLine(b *hir.Block) (*hir.Expr, bool) {
	if b == nil || len(b.Stmts) == 0 {
		return nil, false
	}
	for _, s := range b.Stmts[:len(b.Stmts)-1] {
		d, ok := s.Data.(hir.AssignData)
		if !ok || d.Aug || d.Target.Kind != hir.ExprName {
			return nil, false
		}
	}
	d, ok := b.LastStmt().Data.(hir.ReturnData)
	if !ok || d.Value == nil {
		return nil, false
	}
	return d.Value, true
}

func (in *inliner) singleUse(s *hir.Stmt, c *caller) ([]*hir.Stmt, bool) {
	if !in.cfg.SingleUse {
		return nil, false
	}
	e := statementCall(s)
	if e == nil {
		return nil, false
	}
	call := e.Data.(hir.CallData)
	fn := in.callee(call, c)
	if fn == nil || in.sites[fn.Name] != 1 {
		return nil, false
	}
	if _, trivial := trivialBody(fn); trivial {
		return nil, false
	}
	result, ok := straightLine(fn.Body)
	if !ok || blockSize(fn.Body) > in.cfg.MaxSize || hasScopes(fn.Body) || !in.visible(fn, c) {
		return nil, false
	}
	if !in.typesMatch(e, call.Args, fn, result) {
		return nil, false
	}
	for i := range fn.Params {
		if !in.tf.ParamType(hir.ParamKey{Func: fn.ID, Index: i}).IsCopy() {
			return nil, false
		}
	}

	// Every name the callee binds moves into the caller under a prefix.
	locals := set.New[string](0)
	for _, p := range fn.Params {
		locals.Insert(p.Name)
	}
	for _, st := range fn.Body.Stmts {
		stmtBinds(st, func(name string) { locals.Insert(name) })
	}
	renamed := make(map[string]string, locals.Size())
	repl := make(map[string]func(*hir.Expr) *hir.Expr, locals.Size())
	for _, name := range locals.Slice() {
		to := fn.Name + "_" + name
		if c.u.used(to) {
			return nil, false
		}
		renamed[name] = to
		repl[name] = func(use *hir.Expr) *hir.Expr {
			return in.m.NewExpr(hir.ExprName, use.Span, hir.NameData{Name: to})
		}
	}

	bind := func(name string, value *hir.Expr, annot *hir.Stmt) *hir.Stmt {
		st := &hir.Stmt{Kind: hir.StmtAssign, Span: value.Span}
		d := hir.AssignData{
			Target: in.m.NewExpr(hir.ExprName, value.Span, hir.NameData{Name: renamed[name]}),
			Value:  value,
		}
		if annot != nil {
			d.Annot = annot.Data.(hir.AssignData).Annot
			st.Span = annot.Span
		}
		st.Data = d
		c.u.binds[renamed[name]]++
		return st
	}
	out := make([]*hir.Stmt, 0, len(fn.Params)+len(fn.Body.Stmts))
	for i, p := range fn.Params {
		out = append(out, bind(p.Name, call.Args[i], nil))
	}
	for _, st := range fn.Body.Stmts[:len(fn.Body.Stmts)-1] {
		d := st.Data.(hir.AssignData)
		value := substitute(in.m.CloneExpr(d.Value, true), repl)
		out = append(out, bind(hir.NameOf(d.Target), value, st))
	}
	value := substitute(in.m.CloneExpr(result, true), repl)
	switch d := s.Data.(type) {
	case hir.AssignData:
		d.Value = value
		s.Data = d
	case hir.ReturnData:
		d.Value = value
		s.Data = d
	case hir.ExprStmtData:
		d.Expr = value
		s.Data = d
	}
	in.sites[fn.Name]--
	in.inlined(fn, c)
	return append(out, s), true
}
