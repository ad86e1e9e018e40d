package codegen

import (
	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/rust"
	"pyrust/internal/types"
)

// valKind says how a lowered expression holds its value.
type valKind uint8

const (
	// valTemp is a freshly computed owned value.
	valTemp valKind = iota
	// valPlace names storage owned by the current frame.
	valPlace
	// valRef is a reference: a borrowed parameter, self, or a string
	// literal.
	valRef
)

type value struct {
	x    rust.Expr
	t    *types.Type
	kind valKind
	mut  bool // &mut for valRef
}

func temp(x rust.Expr, t *types.Type) value { return value{x: x, t: t} }

func place(x rust.Expr, t *types.Type) value { return value{x: x, t: t, kind: valPlace} }

func isStr(t *types.Type) bool { return t != nil && t.Kind == types.Str }

func isFloat(t *types.Type) bool { return t != nil && t.Kind == types.Float }

func isInt(t *types.Type) bool {
	return t == nil || t.Kind == types.Int || t.Kind == types.Unknown
}

// copyish reports values copied rather than cloned. Unknown maps to the
// integer width.
func copyish(t *types.Type) bool {
	return t == nil || t.Kind == types.Unknown || t.IsCopy()
}

// consume produces an owned value, cloning out of places and references.
func (fc *fnCtx) consume(v value) rust.Expr {
	switch v.kind {
	case valPlace:
		if copyish(v.t) || v.t.Kind == types.Iterator {
			return v.x
		}
		return rust.M(v.x, "clone")
	case valRef:
		switch {
		case isStr(v.t):
			return rust.M(v.x, "to_string")
		case copyish(v.t):
			return &rust.Unary{Op: "*", X: v.x}
		}
		return rust.M(v.x, "clone")
	}
	return v.x
}

// operand reads a value in arithmetic or comparison position.
func (fc *fnCtx) operand(v value) rust.Expr {
	if v.kind == valRef && !isStr(v.t) && copyish(v.t) {
		return &rust.Unary{Op: "*", X: v.x}
	}
	return v.x
}

// asStr views a string value as &str.
func (fc *fnCtx) asStr(v value) rust.Expr {
	if v.kind == valRef {
		return v.x
	}
	return rust.M(v.x, "as_str")
}

// shared passes a value where &T is expected.
func (fc *fnCtx) shared(v value) rust.Expr {
	if isStr(v.t) {
		return fc.asStr(v)
	}
	if v.kind == valRef {
		return v.x
	}
	return &rust.Ref{X: v.x}
}

// exclusive passes a value where &mut T is expected.
func (fc *fnCtx) exclusive(v value) rust.Expr {
	if v.kind == valRef && v.mut {
		return v.x
	}
	return &rust.Ref{X: v.x, Mut: true}
}

// keyArg passes a lookup key to HashMap and HashSet methods.
func (fc *fnCtx) keyArg(v value) rust.Expr {
	return fc.shared(v)
}

// coerce converts v to the representation of want, consuming it.
func (fc *fnCtx) coerce(v value, want *types.Type) rust.Expr {
	if want == nil || want.Kind == types.Unknown {
		return fc.consume(v)
	}
	vt := v.t
	if vt == nil {
		vt = types.UnknownT
	}
	switch {
	case vt.Kind == types.None:
		return rust.P("None")
	case want.Kind == types.Optional && vt.Kind != types.Optional:
		return rust.C("Some", fc.coerce(v, want.Elem()))
	case want.Kind == types.Float && (vt.Kind == types.Int || vt.Kind == types.Bool):
		if f, ok := asFloatLit(v.x); ok {
			return f
		}
		return &rust.Cast{X: fc.operand(v), Type: types.RustF64}
	case want.Kind == types.Int && vt.Kind == types.Bool:
		return &rust.Cast{X: fc.operand(v), Type: fc.intType()}
	case want.Kind != types.Optional && vt.Kind == types.Optional:
		return rust.M(fc.consume(v), "unwrap")
	}
	return fc.consume(v)
}

func (fc *fnCtx) intType() *types.RustType {
	return types.Prim(fc.g.cfg.IntWidth.Primitive())
}

// asInt casts a value to the configured integer type.
func (fc *fnCtx) asInt(x rust.Expr) rust.Expr {
	return &rust.Cast{X: x, Type: fc.intType()}
}

// asUsize converts an index operand; literals stay literal.
func (fc *fnCtx) asUsize(v value) rust.Expr {
	if lit, ok := v.x.(*rust.Lit); ok && isInt(v.t) && lit.Text[0] != '-' {
		return lit
	}
	return &rust.Cast{X: fc.operand(v), Type: types.RustUSize}
}

// name resolves a variable reference.
func (fc *fnCtx) name(e *hir.Expr, name string) (value, error) {
	t := fc.g.tf.TypeOf(e)
	if fc.scoped[name] > 0 {
		return place(rust.P(rust.EscapeIdent(name)), t), nil
	}
	if name == "self" && fc.fn != nil && fc.fn.Receiver.TakesSelf() {
		if fc.selfName != "self" {
			return place(rust.P(fc.selfName), t), nil
		}
		return value{x: rust.P("self"), t: t, kind: valRef, mut: fc.fn.Receiver == hir.RecvMut}, nil
	}
	if fc.isVar(name) {
		if fc.g.tf.IsNarrowed(e) {
			return fc.present(fc.varExpr(name), t), nil
		}
		if fc.machine != nil {
			return place(fc.varExpr(name), t), nil
		}
		if mut, ok := fc.refs[name]; ok {
			return value{x: rust.P(rust.EscapeIdent(name)), t: t, kind: valRef, mut: mut}, nil
		}
		return place(rust.P(rust.EscapeIdent(name)), t), nil
	}
	if c := fc.g.m.ConstByName(name); c != nil {
		return fc.g.constRef(c, t), nil
	}
	if v, ok := fc.moduleValue(name, t); ok {
		return v, nil
	}
	return value{}, diag.Errorf(diag.CodeGenError, e.Span, "unresolved name %s", name)
}

// varExpr is the storage of a parameter or local: a field of the state
// machine inside generators.
func (fc *fnCtx) varExpr(name string) rust.Expr {
	if fc.machine != nil {
		return &rust.FieldExpr{X: rust.P("self"), Name: rust.EscapeIdent(name)}
	}
	return rust.P(rust.EscapeIdent(name))
}

// present reads the value of an Option known to be Some.
func (fc *fnCtx) present(x rust.Expr, t *types.Type) value {
	if copyish(t) {
		return temp(rust.M(x, "unwrap"), t)
	}
	return value{x: rust.M(rust.M(x, "as_ref"), "unwrap"), t: t, kind: valRef}
}

// isVar reports parameters and locals of the current function.
func (fc *fnCtx) isVar(name string) bool {
	if fc.fn != nil && fc.fn.ParamIndex(name) >= 0 {
		return true
	}
	if fc.ft != nil && fc.ft.Locals != nil && fc.ft.Locals.Has(name) {
		return true
	}
	return false
}

func (fc *fnCtx) moduleValue(name string, t *types.Type) (value, bool) {
	var x rust.Expr
	switch name {
	case "math.pi":
		x = rust.P("std::f64::consts::PI")
	case "math.e":
		x = rust.P("std::f64::consts::E")
	case "math.tau":
		x = rust.P("std::f64::consts::TAU")
	case "math.inf":
		x = rust.P("f64::INFINITY")
	case "math.nan":
		x = rust.P("f64::NAN")
	case "sys.maxsize":
		x = rust.P(fc.intType().String() + "::MAX")
	case "sys.argv":
		x = &rust.MethodCall{Recv: rust.C("std::env::args"), Method: "collect", Turbo: "Vec<String>"}
		return temp(x, t), true
	default:
		return value{}, false
	}
	return temp(x, t), true
}
