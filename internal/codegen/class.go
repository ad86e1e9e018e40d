package codegen

import (
	"context"

	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/rust"
	"pyrust/internal/trace"
	"pyrust/internal/types"
)

func (g *gen) constType(c *hir.Const) *types.Type {
	if t, ok := g.tf.Consts[c.Name]; ok && !t.IsUnknown() {
		return t
	}
	if c.Type != nil {
		return c.Type
	}
	return types.UnknownT
}

// constable reports constants Rust can evaluate at compile time: scalars
// built from literals and other such constants.
func (g *gen) constable(c *hir.Const) bool {
	switch g.constType(c).Kind {
	case types.Int, types.Float, types.Bool, types.Str:
	default:
		return false
	}
	ok := true
	hir.InspectExpr(c.Value, func(e *hir.Expr) bool {
		switch d := e.Data.(type) {
		case hir.LiteralData:
		case hir.UnaryData:
			ok = d.Op == hir.OpNeg || d.Op == hir.OpPos
		case hir.BinaryData:
			switch d.Op {
			case hir.OpAdd, hir.OpSub, hir.OpMul:
			default:
				ok = false
			}
		case hir.NameData:
			other := g.m.ConstByName(d.Name)
			ok = other != nil && other != c && g.constable(other)
		default:
			ok = false
		}
		return ok
	})
	if ok && g.constType(c).Kind == types.Str {
		_, ok = c.Value.Data.(hir.LiteralData)
	}
	return ok
}

// constant lowers a module-level constant to a const item, or to a
// function building the value when it is not a compile-time scalar.
func (g *gen) constant(c *hir.Const) (rust.Item, error) {
	t := g.constType(c)
	name := rust.EscapeIdent(c.Name)
	if g.constable(c) {
		if t.Kind == types.Str {
			lit := c.Value.Data.(hir.LiteralData)
			return &rust.Const{Name: name, Type: types.StrRef("static"), Value: rust.L(strText(lit.Str))}, nil
		}
		r, err := g.rt(t, c.Span)
		if err != nil {
			return nil, err
		}
		fc := g.newFnCtx(nil, nil, &hir.Block{})
		v, err := fc.expr(c.Value)
		if err != nil {
			return nil, err
		}
		return &rust.Const{Name: name, Type: r, Value: fc.coerce(v, t)}, nil
	}
	r, err := g.rt(t, c.Span)
	if err != nil {
		return nil, err
	}
	fc := g.newFnCtx(nil, nil, &hir.Block{})
	v, err := fc.expr(c.Value)
	if err != nil {
		return nil, err
	}
	return &rust.Fn{Pub: true, Name: name, Ret: r, Body: &rust.Block{Tail: fc.coerce(v, t)}}, nil
}

// constRef reads a module constant.
func (g *gen) constRef(c *hir.Const, t *types.Type) value {
	name := rust.EscapeIdent(c.Name)
	ct := g.constType(c)
	if !g.constable(c) {
		return temp(rust.C(name), ct)
	}
	if ct.Kind == types.Str {
		return value{x: rust.P(name), t: ct, kind: valRef}
	}
	return temp(rust.P(name), ct)
}

func (g *gen) fieldType(c *hir.Class, f *hir.Field) *types.Type {
	if t := g.tf.Field(c.Name, f.Name); !t.IsUnknown() {
		return t
	}
	if f.Type != nil {
		return f.Type
	}
	return types.UnknownT
}

// class lowers a class to a struct, an impl block with the constructor
// and methods, and a Display impl when the class defines __str__ or
// __repr__. Exception classes become error structs.
func (g *gen) class(ctx context.Context, c *hir.Class) ([]rust.Item, error) {
	_, span := trace.StartSpan(ctx, trace.ScopeFunction, c.Name)
	defer span.End("")
	if c.IsException() {
		if len(c.Methods) > 0 {
			return nil, diag.Unsupported(c.Span, "methods on exception class "+c.Name)
		}
		g.errorType(c.Name)
		return nil, nil
	}
	st := &rust.Struct{Doc: c.Doc, Derives: []string{"Debug", "Clone", "Default", "PartialEq"}, Name: c.Name}
	for _, f := range c.Fields {
		r, err := g.rt(g.fieldType(c, f), f.Span)
		if err != nil {
			return nil, err
		}
		st.Fields = append(st.Fields, rust.Field{Name: rust.EscapeIdent(f.Name), Type: r})
	}
	impl := &rust.Impl{Type: c.Name}
	if init := c.Init(); init != nil {
		fn, err := g.constructor(c, init)
		if err != nil {
			return nil, err
		}
		impl.Fns = append(impl.Fns, fn)
	} else {
		impl.Fns = append(impl.Fns, &rust.Fn{
			Pub: true, Name: "new", Ret: types.CustomRust("Self"),
			Body: &rust.Block{Tail: rust.C("Self::default")},
		})
	}
	for _, m := range c.Methods {
		if m.Flags.HasFlag(hir.FuncInit) {
			continue
		}
		if m.IsGenerator() {
			return nil, diag.Unsupported(m.Span, "generator method "+m.QualName())
		}
		fn, err := g.function(m)
		if err != nil {
			return nil, err
		}
		fn.Name = methodName(m)
		impl.Fns = append(impl.Fns, fn)
	}
	items := []rust.Item{st, impl}
	if d := g.displayImpl(c); d != nil {
		items = append(items, d)
	}
	return items, nil
}

func (g *gen) displayImpl(c *hir.Class) rust.Item {
	m := c.Method("__str__")
	if m == nil {
		m = c.Method("__repr__")
	}
	if m == nil {
		return nil
	}
	g.use("std::fmt")
	var text rust.Expr = rust.M(rust.P("self"), methodName(m))
	if g.fallible[m.ID] {
		text = rust.M(text, "unwrap_or_default")
	}
	return &rust.Impl{Trait: "fmt::Display", Type: c.Name, Fns: []*rust.Fn{{
		Name:     "fmt",
		Receiver: "&self",
		Params:   []rust.Param{{Name: "f", Type: types.CustomRust("&mut fmt::Formatter<'_>")}},
		Ret:      types.CustomRust("fmt::Result"),
		Body:     &rust.Block{Tail: &rust.Macro{Name: "write", Args: []rust.Expr{rust.P("f"), rust.L(`"{}"`), text}}},
	}}}
}

// constructor lowers __init__ to new(). An __init__ that only stores
// self-free values into every field becomes a struct literal; any other
// body runs against a default-initialized value bound to this.
func (g *gen) constructor(c *hir.Class, init *hir.Func) (*rust.Fn, error) {
	fc := g.newFnCtx(init, g.tf.Func(init.ID), init.Body)
	out := &rust.Fn{Doc: init.Doc, Pub: true, Name: "new"}
	if err := fc.signature(out); err != nil {
		return nil, err
	}
	out.Receiver = ""
	wrap := func(x rust.Expr) rust.Expr {
		if fc.fallible {
			return rust.C("Ok", x)
		}
		return x
	}
	if inits, ok := simpleInit(c, init); ok {
		lit := &rust.StructLit{Name: "Self"}
		for _, f := range c.Fields {
			v, err := fc.expr(inits[f.Name])
			if err != nil {
				return nil, err
			}
			lit.Fields = append(lit.Fields, rust.FieldInit{Name: rust.EscapeIdent(f.Name), Value: fc.coerce(v, g.fieldType(c, f))})
		}
		out.Body = &rust.Block{Tail: wrap(lit)}
		return out, nil
	}
	fc.selfName = "this"
	body, err := fc.block(init.Body)
	if err != nil {
		return nil, err
	}
	this := &rust.Let{Pat: &rust.Ident{Name: "this", Mut: true}, Value: rust.C("Self::default")}
	body.Stmts = append([]rust.Stmt{this}, body.Stmts...)
	body.Tail = wrap(rust.P("this"))
	out.Body = body
	return out, nil
}

// simpleInit returns the value stored into each field when init assigns
// every field exactly once from expressions that do not read self.
func simpleInit(c *hir.Class, init *hir.Func) (map[string]*hir.Expr, bool) {
	inits := make(map[string]*hir.Expr)
	for _, s := range init.Body.Stmts {
		d, ok := s.Data.(hir.AssignData)
		if !ok || d.Aug {
			return nil, false
		}
		a, ok := d.Target.Data.(hir.AttrData)
		if !ok || hir.NameOf(a.Object) != "self" {
			return nil, false
		}
		if _, dup := inits[a.Name]; dup || c.Field(a.Name) == nil {
			return nil, false
		}
		readsSelf := false
		hir.InspectExpr(d.Value, func(e *hir.Expr) bool {
			if hir.NameOf(e) == "self" {
				readsSelf = true
			}
			return !readsSelf
		})
		if readsSelf {
			return nil, false
		}
		inits[a.Name] = d.Value
	}
	return inits, len(inits) == len(c.Fields)
}
