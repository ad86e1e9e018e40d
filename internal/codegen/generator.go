package codegen

import (
	"strconv"
	"strings"
	"unicode"

	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/rust"
	"pyrust/internal/types"
)

// Generators become a struct holding every local plus a state number, and
// an Iterator impl whose next() resumes at the saved state. Statements
// without a yield are lowered as usual inside one state; if, while and for
// statements that contain a yield are split across states.

const (
	resumeLabel = "resume"
	stateField  = "state"
)

type machine struct {
	states []*rust.Block
	cur    int
	iters  []rust.Field
}

func (m *machine) newState() int {
	m.states = append(m.states, &rust.Block{})
	return len(m.states) - 1
}

func (m *machine) emit(stmts ...rust.Stmt) {
	b := m.states[m.cur]
	b.Stmts = append(b.Stmts, stmts...)
}

func statePath() rust.Expr {
	return &rust.FieldExpr{X: rust.P("self"), Name: stateField}
}

// jump continues execution at state n.
func (m *machine) jump(n int) []rust.Stmt {
	return []rust.Stmt{
		rust.Semi(&rust.Assign{L: statePath(), R: rust.L(strconv.Itoa(n))}),
		rust.Semi(&rust.Continue{Label: resumeLabel}),
	}
}

// finish ends the iteration for good.
func (m *machine) finish() []rust.Stmt {
	return []rust.Stmt{
		rust.Semi(&rust.Assign{L: statePath(), R: rust.P("usize::MAX")}),
		rust.Semi(&rust.Return{X: rust.P("None")}),
	}
}

func jumpBlock(m *machine, n int) *rust.Block {
	return &rust.Block{Stmts: m.jump(n)}
}

// stateName derives the struct name from the generator function.
func stateName(fn string) string {
	var sb strings.Builder
	upper := true
	for _, r := range fn {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		sb.WriteRune(r)
	}
	return sb.String() + "State"
}

func (g *gen) generator(fn *hir.Func) ([]rust.Item, error) {
	ft := g.tf.Func(fn.ID)
	if ft == nil {
		return nil, diag.Errorf(diag.CodeGenError, fn.Span, "no types for generator %s", fn.Name)
	}
	if fn.IsAsync() {
		return nil, diag.Unsupported(fn.Span, "async generator")
	}
	name := stateName(fn.Name)
	yt := ft.Yield
	if yt == nil {
		yt = types.UnknownT
	}
	item, err := g.rt(yt, fn.Span)
	if err != nil {
		return nil, err
	}

	fc := g.newFnCtx(fn, ft, fn.Body)
	fc.ret = yt
	m := &machine{}
	fc.machine = m
	m.cur = m.newState()
	if err := fc.genBlock(fn.Body); err != nil {
		return nil, err
	}
	m.emit(m.finish()...)

	// Fields: the state, then locals in binding order, then parameters.
	st := &rust.Struct{Name: name, Fields: []rust.Field{{Name: stateField, Type: types.RustUSize}}}
	lit := &rust.StructLit{Name: name, Fields: []rust.FieldInit{{Name: stateField, Value: rust.L("0")}}}
	isParam := func(n string) bool { return fn.ParamIndex(n) >= 0 || n == "self" }
	var names []string
	if ft.Locals != nil {
		for _, n := range ft.Locals.Names() {
			if !isParam(n) {
				names = append(names, n)
			}
		}
	}
	for _, n := range names {
		t := ft.Locals.Type(n)
		r, err := g.rt(t, fn.Span)
		if err != nil {
			return nil, err
		}
		z, ok := g.zero(t)
		if !ok {
			return nil, diag.Errorf(diag.CodeGenError, fn.Span, "generator local %s of type %s has no initial value", n, t)
		}
		st.Fields = append(st.Fields, rust.Field{Name: rust.EscapeIdent(n), Type: r})
		lit.Fields = append(lit.Fields, rust.FieldInit{Name: rust.EscapeIdent(n), Value: z})
	}
	ctor := &rust.Fn{Doc: fn.Doc, Pub: true, Name: rust.EscapeIdent(fn.Name), Ret: types.CustomRust(name)}
	for i, p := range fn.Params {
		r, err := g.rt(g.paramType(fn, i), p.Span)
		if err != nil {
			return nil, err
		}
		pn := rust.EscapeIdent(p.Name)
		st.Fields = append(st.Fields, rust.Field{Name: pn, Type: r})
		lit.Fields = append(lit.Fields, rust.FieldInit{Name: pn, Value: rust.P(pn)})
		ctor.Params = append(ctor.Params, rust.Param{Name: pn, Type: r})
	}
	for _, f := range m.iters {
		st.Fields = append(st.Fields, f)
		lit.Fields = append(lit.Fields, rust.FieldInit{Name: f.Name, Value: rust.C("Box::new", rust.C("std::iter::empty"))})
	}
	if len(m.iters) == 0 {
		st.Derives = []string{"Debug", "Clone"}
	}
	ctor.Body = &rust.Block{Tail: lit}

	arms := make([]rust.Arm, 0, len(m.states)+1)
	for i, b := range m.states {
		arms = append(arms, rust.Arm{Pat: &rust.LitPat{Text: strconv.Itoa(i)}, Body: &rust.BlockExpr{Block: b}})
	}
	arms = append(arms, rust.Arm{Pat: &rust.Wild{}, Body: &rust.Return{X: rust.P("None")}})
	resume := &rust.Loop{Label: resumeLabel, Body: &rust.Block{Stmts: []rust.Stmt{
		rust.Semi(&rust.Match{X: statePath(), Arms: arms}),
	}}}
	next := &rust.Fn{
		Name:     "next",
		Receiver: "&mut self",
		Ret:      types.OptionOf(item),
		Body:     &rust.Block{Tail: resume},
	}
	impl := &rust.Impl{
		Trait: "Iterator",
		Type:  name,
		Assoc: []rust.AssocType{{Name: "Item", Type: item}},
		Fns:   []*rust.Fn{next},
	}
	return []rust.Item{st, ctor, impl}, nil
}

func stmtYields(s *hir.Stmt) bool {
	return hir.ContainsYield(&hir.Block{Stmts: []*hir.Stmt{s}})
}

// genBlock lowers b into the current state, opening new states at yields
// and around control flow that contains one.
func (fc *fnCtx) genBlock(b *hir.Block) error {
	m := fc.machine
	if b == nil {
		return nil
	}
	for _, s := range b.Stmts {
		if !stmtYields(s) {
			stmts, err := fc.stmt(s)
			if err != nil {
				return err
			}
			m.emit(stmts...)
			continue
		}
		var err error
		switch d := s.Data.(type) {
		case hir.ExprStmtData:
			err = fc.genYield(s, d.Expr)
		case hir.IfData:
			err = fc.genIf(d)
		case hir.WhileData:
			err = fc.genWhile(d)
		case hir.ForData:
			err = fc.genFor(s, d)
		case hir.TryData:
			err = diag.Errorf(diag.CodeGenError, s.Span, "yield inside try")
		default:
			err = diag.Unsupported(s.Span, "yield inside "+s.Kind.String())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (fc *fnCtx) genYield(s *hir.Stmt, e *hir.Expr) error {
	d, ok := e.Data.(hir.YieldData)
	if !ok {
		return diag.Unsupported(s.Span, "yield used as a value")
	}
	m := fc.machine
	var x rust.Expr = &rust.Tuple{}
	if d.Value != nil {
		v, err := fc.expr(d.Value)
		if err != nil {
			return err
		}
		x = fc.coerce(v, fc.ret)
	}
	next := m.newState()
	m.emit(
		rust.Semi(&rust.Assign{L: statePath(), R: rust.L(strconv.Itoa(next))}),
		rust.Semi(&rust.Return{X: rust.C("Some", x)}),
	)
	m.cur = next
	return nil
}

func (fc *fnCtx) genIf(d hir.IfData) error {
	m := fc.machine
	cond, err := fc.cond(d.Cond)
	if err != nil {
		return err
	}
	then := m.newState()
	els := -1
	if d.Else != nil {
		els = m.newState()
	}
	after := m.newState()
	other := after
	if els >= 0 {
		other = els
	}
	m.emit(rust.Semi(&rust.If{Cond: cond, Then: jumpBlock(m, then), Else: &rust.BlockExpr{Block: jumpBlock(m, other)}}))
	m.cur = then
	if err := fc.genBlock(d.Then); err != nil {
		return err
	}
	m.emit(m.jump(after)...)
	if els >= 0 {
		m.cur = els
		if err := fc.genBlock(d.Else); err != nil {
			return err
		}
		m.emit(m.jump(after)...)
	}
	m.cur = after
	return nil
}

func (fc *fnCtx) genWhile(d hir.WhileData) error {
	m := fc.machine
	head := m.newState()
	after := m.newState()
	m.emit(m.jump(head)...)
	m.cur = head
	if !isTrueLit(d.Cond) {
		cond, err := fc.cond(d.Cond)
		if err != nil {
			return err
		}
		m.emit(rust.Semi(&rust.If{Cond: rust.Not(&rust.Paren{X: cond}), Then: jumpBlock(m, after)}))
	}
	fc.loops = append(fc.loops, &loopFrame{flat: true, breakState: after, continueState: head})
	err := fc.genBlock(d.Body)
	fc.loops = fc.loops[:len(fc.loops)-1]
	if err != nil {
		return err
	}
	m.emit(m.jump(head)...)
	m.cur = after
	return nil
}

// genFor drives a for loop from a boxed iterator field so the position
// survives across yields.
func (fc *fnCtx) genFor(s *hir.Stmt, d hir.ForData) error {
	m := fc.machine
	it, err := fc.iterOf(d.Iter)
	if err != nil {
		return err
	}
	et := fc.g.tf.TypeOf(d.Iter).IterElem()
	er, err := fc.g.rt(et, d.Iter.Span)
	if err != nil {
		return err
	}
	field := fc.fresh("iter")
	m.iters = append(m.iters, rust.Field{Name: field, Type: types.CustomRust("Box<dyn Iterator<Item = " + rust.TypeString(er) + ">>")})
	if !isRangeCall(d.Iter) {
		it = rust.M(collect(it, "Vec<_>"), "into_iter")
	}
	iterPath := &rust.FieldExpr{X: rust.P("self"), Name: field}
	head := m.newState()
	after := m.newState()
	m.emit(rust.Semi(&rust.Assign{L: iterPath, R: rust.C("Box::new", it)}))
	m.emit(m.jump(head)...)

	m.cur = head
	var post []rust.Stmt
	pat, err := fc.loopPat(s, d.Target, &post)
	if err != nil {
		return err
	}
	m.emit(rust.Semi(&rust.Match{X: rust.M(iterPath, "next"), Arms: []rust.Arm{
		{Pat: &rust.VariantPat{Path: "Some", Elems: []rust.Pat{pat}}, Body: &rust.BlockExpr{Block: &rust.Block{Stmts: post}}},
		{Pat: &rust.LitPat{Text: "None"}, Body: &rust.BlockExpr{Block: jumpBlock(m, after)}},
	}}))
	fc.loops = append(fc.loops, &loopFrame{flat: true, breakState: after, continueState: head})
	err = fc.genBlock(d.Body)
	fc.loops = fc.loops[:len(fc.loops)-1]
	if err != nil {
		return err
	}
	m.emit(m.jump(head)...)
	m.cur = after
	return nil
}

func isRangeCall(e *hir.Expr) bool {
	d, ok := e.Data.(hir.CallData)
	return ok && d.Func == "range"
}
