package codegen

import (
	"pyrust/internal/borrow"
	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/rust"
	"pyrust/internal/source"
	"pyrust/internal/types"
)

func (fc *fnCtx) call(e *hir.Expr, d hir.CallData) (value, error) {
	t := fc.g.tf.TypeOf(e)
	if fc.scoped[d.Func] > 0 || fc.isVar(d.Func) {
		f, err := fc.name(e, d.Func)
		if err != nil {
			return value{}, err
		}
		args, err := fc.exprs(d.Args, nil)
		if err != nil {
			return value{}, err
		}
		return temp(apply(f.x, args...), t), nil
	}
	if fn := fc.g.m.FuncByName(d.Func); fn != nil {
		args, err := fc.args(e, fn, d.Args, d.Kwargs)
		if err != nil {
			return value{}, err
		}
		name := rust.EscapeIdent(fn.Name)
		if fn.Flags.HasFlag(hir.FuncEntry) {
			name = "main"
		}
		return fc.finishCall(e, fn, rust.C(name, args...))
	}
	if c := fc.g.m.ClassByName(d.Func); c != nil {
		if c.IsException() {
			return fc.exceptionValue(e, c.Name, d.Args)
		}
		return fc.construct(e, c, c.Name+"::new", d.Args, d.Kwargs)
	}
	if d.Func == "cls" && fc.fn != nil && fc.fn.Receiver == hir.RecvClass {
		return fc.construct(e, fc.g.m.ClassByName(fc.fn.Class), "Self::new", d.Args, d.Kwargs)
	}
	if hir.IsExceptionName(d.Func) {
		return fc.exceptionValue(e, d.Func, d.Args)
	}
	return fc.builtin(e, d)
}

// args binds positional and keyword arguments to fn's parameters, fills
// defaults and adapts each argument to the parameter's passing strategy.
func (fc *fnCtx) args(e *hir.Expr, fn *hir.Func, args []*hir.Expr, kwargs []hir.Kwarg) ([]rust.Expr, error) {
	if len(args) > len(fn.Params) {
		return nil, diag.Errorf(diag.CodeGenError, e.Span, "%s takes %d arguments, got %d", fn.QualName(), len(fn.Params), len(args))
	}
	slots := make([]*hir.Expr, len(fn.Params))
	copy(slots, args)
	for _, kw := range kwargs {
		i := fn.ParamIndex(kw.Name)
		if i < 0 {
			return nil, diag.Errorf(diag.CodeGenError, kw.Value.Span, "%s has no parameter %s", fn.QualName(), kw.Name)
		}
		slots[i] = kw.Value
	}
	out := make([]rust.Expr, len(slots))
	for i, a := range slots {
		if a == nil {
			a = fn.Params[i].Default
			if a == nil {
				return nil, diag.Errorf(diag.CodeGenError, e.Span, "missing argument %s to %s", fn.Params[i].Name, fn.QualName())
			}
		}
		x, err := fc.argFor(fn, i, a)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func (fc *fnCtx) argFor(fn *hir.Func, i int, a *hir.Expr) (rust.Expr, error) {
	v, err := fc.expr(a)
	if err != nil {
		return nil, err
	}
	switch fc.g.strategy(fn, i) {
	case borrow.BorrowImmutable, borrow.UseCow:
		return fc.shared(v), nil
	case borrow.BorrowMutable:
		return fc.exclusive(v), nil
	}
	return fc.coerce(v, fc.g.paramType(fn, i)), nil
}

// returnModeOf repeats the return decision of fn's signature.
func (g *gen) returnModeOf(fn *hir.Func) retMode {
	if fn.Flags.HasFlag(hir.FuncInit) || isStrDunder(fn) || fn.IsGenerator() {
		return retOwned
	}
	fl := g.u.Lifetimes.Func(fn.ID)
	if fl == nil || fl.Return == "" || ownsString(fn.Body) {
		return retOwned
	}
	for _, i := range fl.Ties {
		if g.strategy(fn, i) == borrow.UseCow {
			return retCow
		}
	}
	return retRef
}

// finishCall applies error propagation and return adaptation to a call of
// a user function.
func (fc *fnCtx) finishCall(e *hir.Expr, fn *hir.Func, call rust.Expr) (value, error) {
	t := fc.g.tf.TypeOf(e)
	x := call
	if fc.g.fallible[fn.ID] {
		var err error
		if x, err = fc.propagate(x, e.Span); err != nil {
			return value{}, err
		}
	}
	switch fc.g.returnModeOf(fn) {
	case retRef:
		return value{x: x, t: t, kind: valRef}, nil
	case retCow:
		return temp(rust.M(x, "into_owned"), t), nil
	}
	return temp(x, t), nil
}

// propagate unwraps a Result, sending the error to the innermost try or
// out of the function.
func (fc *fnCtx) propagate(x rust.Expr, sp source.Span) (rust.Expr, error) {
	if n := len(fc.tries); n > 0 {
		return &rust.Match{X: x, Arms: []rust.Arm{
			{Pat: &rust.VariantPat{Path: "Ok", Elems: []rust.Pat{rust.Var("__v")}}, Body: rust.P("__v")},
			{Pat: &rust.VariantPat{Path: "Err", Elems: []rust.Pat{rust.Var("__e")}}, Body: &rust.Break{Label: fc.tries[n-1].label, X: rust.C("Some", rust.P("__e"))}},
		}}, nil
	}
	switch {
	case fc.lambdas > 0:
		return nil, diag.Errorf(diag.CodeGenError, sp, "call that can raise inside a lambda")
	case fc.machine != nil:
		return nil, diag.Errorf(diag.CodeGenError, sp, "call that can raise inside a generator")
	case !fc.fallible:
		return nil, diag.Errorf(diag.CodeGenError, sp, "call that can raise outside a fallible function")
	}
	return &rust.Try{X: x}, nil
}

func (fc *fnCtx) construct(e *hir.Expr, c *hir.Class, ctor string, args []*hir.Expr, kwargs []hir.Kwarg) (value, error) {
	init := c.Init()
	if init == nil {
		if len(args) > 0 || len(kwargs) > 0 {
			return value{}, diag.Errorf(diag.CodeGenError, e.Span, "%s takes no arguments", c.Name)
		}
		return temp(rust.C(ctor), types.CustomT(c.Name)), nil
	}
	xs, err := fc.args(e, init, args, kwargs)
	if err != nil {
		return value{}, err
	}
	v, err := fc.finishCall(e, init, rust.C(ctor, xs...))
	v.t = types.CustomT(c.Name)
	return v, err
}

// exceptionValue builds an error struct from an exception constructor.
func (fc *fnCtx) exceptionValue(e *hir.Expr, name string, args []*hir.Expr) (value, error) {
	fc.g.errorType(name)
	msg, err := fc.message(e, args)
	if err != nil {
		return value{}, err
	}
	return temp(rust.C(name+"::new", msg), types.CustomT(name)), nil
}

// message lowers the single optional argument of an exception.
func (fc *fnCtx) message(e *hir.Expr, args []*hir.Expr) (rust.Expr, error) {
	switch len(args) {
	case 0:
		return rust.L(`""`), nil
	case 1:
		return fc.display(args[0])
	}
	return nil, diag.Errorf(diag.CodeGenError, e.Span, "exception with more than one argument")
}

// display renders any value as an owned String the way str() does.
func (fc *fnCtx) display(a *hir.Expr) (rust.Expr, error) {
	v, err := fc.expr(a)
	if err != nil {
		return nil, err
	}
	return fc.strOf(v, a)
}

func (fc *fnCtx) strOf(v value, a *hir.Expr) (rust.Expr, error) {
	t := v.t
	if t == nil {
		t = types.UnknownT
	}
	switch t.Kind {
	case types.Str:
		return fc.consume(v), nil
	case types.Int, types.Unknown:
		return rust.M(v.x, "to_string"), nil
	case types.Bool:
		return rust.M(boolText(fc.operand(v)), "to_string"), nil
	case types.Optional:
		x, _, err := fc.formatOptional(a, v, "")
		return x, err
	case types.Custom:
		if fc.hasDisplay(t.Name) {
			return rust.M(v.x, "to_string"), nil
		}
	}
	spec, err := fc.placeholder(t, 0, "")
	if err != nil {
		return nil, diag.Errorf(diag.CodeGenError, a.Span, "%v", err)
	}
	return &rust.Macro{Name: "format", Args: []rust.Expr{rust.L(`"` + spec + `"`), v.x}}, nil
}

func boolText(x rust.Expr) rust.Expr {
	return ifElse(x, rust.L(`"True"`), rust.L(`"False"`))
}

// hasDisplay reports classes printed through a Display impl.
func (fc *fnCtx) hasDisplay(class string) bool {
	if hir.IsExceptionName(class) {
		return true
	}
	c := fc.g.m.ClassByName(class)
	return c != nil && (c.IsException() || c.Method("__str__") != nil || c.Method("__repr__") != nil)
}
