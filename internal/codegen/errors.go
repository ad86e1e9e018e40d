package codegen

import (
	"strings"

	"pyrust/internal/hir"
	"pyrust/internal/rust"
	"pyrust/internal/types"
)

// fallibility computes which functions return Result: those with a raise
// or a call of a fallible function that no enclosing handler catches. The
// second result reports the __main__ guard.
func (g *gen) fallibility() (map[hir.FuncID]bool, bool) {
	out := make(map[hir.FuncID]bool)
	funcs := g.m.AllFuncs()
	for changed := true; changed; {
		changed = false
		for _, fn := range funcs {
			if out[fn.ID] || fn.IsGenerator() {
				continue
			}
			if g.escapes(fn.Body, out, nil) {
				out[fn.ID] = true
				changed = true
			}
		}
	}
	main := g.m.Main != nil && g.escapes(g.m.Main, out, nil)
	return out, main
}

// escapes reports whether an exception can leave b. guards holds the
// handler lists of the enclosing try statements.
func (g *gen) escapes(b *hir.Block, fallible map[hir.FuncID]bool, guards [][]*hir.Handler) bool {
	if b == nil {
		return false
	}
	for _, s := range b.Stmts {
		switch d := s.Data.(type) {
		case hir.TryData:
			inner := append(guards[:len(guards):len(guards)], d.Handlers)
			if g.escapes(d.Body, fallible, inner) {
				return true
			}
			for _, h := range d.Handlers {
				if g.escapes(h.Body, fallible, guards) {
					return true
				}
			}
			if g.escapes(d.Else, fallible, guards) || g.escapes(d.Finally, fallible, guards) {
				return true
			}
			continue
		case hir.RaiseData:
			if d.Reraise && !catchesAll(guards) || !d.Reraise && !catches(guards, d.ExcType) {
				return true
			}
		}
		for _, e := range hir.StmtExprs(s) {
			if g.raisingCall(e, fallible) && !catchesAll(guards) {
				return true
			}
		}
		for _, sub := range hir.SubBlocks(s) {
			if g.escapes(sub, fallible, guards) {
				return true
			}
		}
	}
	return false
}

func catches(guards [][]*hir.Handler, name string) bool {
	for _, hs := range guards {
		for _, h := range hs {
			if h.Catches(name) {
				return true
			}
		}
	}
	return false
}

// catchesAll reports a guard that catches errors of unknown type. Errors
// propagated from calls are opaque.
func catchesAll(guards [][]*hir.Handler) bool {
	for _, hs := range guards {
		for _, h := range hs {
			if isCatchAll(h) {
				return true
			}
		}
	}
	return false
}

// raisingCall reports a call in e of a function already known fallible.
func (g *gen) raisingCall(e *hir.Expr, fallible map[hir.FuncID]bool) bool {
	found := false
	hir.InspectExpr(e, func(x *hir.Expr) bool {
		if fn := g.callee(x); fn != nil && fallible[fn.ID] {
			found = true
		}
		return !found
	})
	return found
}

// callee resolves the user function an expression calls, if any.
func (g *gen) callee(x *hir.Expr) *hir.Func {
	switch d := x.Data.(type) {
	case hir.CallData:
		if fn := g.m.FuncByName(d.Func); fn != nil {
			return fn
		}
		if c := g.m.ClassByName(d.Func); c != nil {
			return c.Init()
		}
	case hir.MethodCallData:
		if c := g.m.ClassByName(hir.NameOf(d.Receiver)); c != nil {
			return c.Method(d.Method)
		}
		if t := g.tf.TypeOf(d.Receiver); t.Kind == types.Custom {
			if c := g.m.ClassByName(t.Name); c != nil {
				return c.Method(d.Method)
			}
		}
	case hir.AttrData:
		if t := g.tf.TypeOf(d.Object); t.Kind == types.Custom {
			if c := g.m.ClassByName(t.Name); c != nil {
				if m := c.Method(d.Name); m != nil && m.Receiver == hir.RecvProperty {
					return m
				}
			}
		}
	}
	return nil
}

// errorType registers an error struct for an exception name.
func (g *gen) errorType(name string) {
	if g.errSeen.Contains(name) {
		return
	}
	g.errSeen.Insert(name)
	g.errTypes = append(g.errTypes, name)
	g.use("std::fmt")
}

// errorItems declares one struct per exception used, each carrying its
// message and implementing Display and Error.
func (g *gen) errorItems() []rust.Item {
	var items []rust.Item
	for _, name := range g.errTypes {
		self := rust.P("self")
		items = append(items,
			&rust.Struct{
				Derives: []string{"Debug", "Clone", "Default", "PartialEq"},
				Name:    name,
				Fields:  []rust.Field{{Name: "message", Type: types.RustString}},
			},
			&rust.Impl{Type: name, Fns: []*rust.Fn{{
				Pub:    true,
				Name:   "new",
				Params: []rust.Param{{Name: "message", Type: types.CustomRust("impl Into<String>")}},
				Ret:    types.CustomRust("Self"),
				Body: &rust.Block{Tail: &rust.StructLit{Name: "Self", Fields: []rust.FieldInit{
					{Name: "message", Value: rust.M(rust.P("message"), "into")},
				}}},
			}}},
			&rust.Impl{Trait: "fmt::Display", Type: name, Fns: []*rust.Fn{{
				Name:     "fmt",
				Receiver: "&self",
				Params:   []rust.Param{{Name: "f", Type: types.CustomRust("&mut fmt::Formatter<'_>")}},
				Ret:      types.CustomRust("fmt::Result"),
				Body: &rust.Block{Tail: &rust.Macro{Name: "write", Args: []rust.Expr{
					rust.P("f"), rust.L(`"{}"`), &rust.FieldExpr{X: self, Name: "message"},
				}}},
			}}},
			&rust.Impl{Trait: "std::error::Error", Type: name},
		)
	}
	return items
}

var helperSource = map[string]string{
	helperFloorDiv: `fn py_floor_div(a: INT, b: INT) -> INT {
    let q = a / b;
    if a % b != 0 && (a < 0) != (b < 0) { q - 1 } else { q }
}`,
	helperMod: `fn py_mod(a: INT, b: INT) -> INT {
    let r = a % b;
    if r != 0 && (r < 0) != (b < 0) { r + b } else { r }
}`,
	helperGcd: `fn py_gcd(a: INT, b: INT) -> INT {
    let (mut a, mut b) = (a.abs(), b.abs());
    while b != 0 {
        let t = b;
        b = a % b;
        a = t;
    }
    a
}`,
}

// helperItems emits the arithmetic helpers the body used, specialized to
// the configured integer type.
func (g *gen) helperItems() []rust.Item {
	var items []rust.Item
	it := g.cfg.IntWidth.Primitive().String()
	for _, name := range []string{helperFloorDiv, helperMod, helperGcd} {
		if g.helpers.Contains(name) {
			items = append(items, &rust.RawItem{Text: strings.ReplaceAll(helperSource[name], "INT", it)})
		}
	}
	return items
}
