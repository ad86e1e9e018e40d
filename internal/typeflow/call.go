package typeflow

import (
	"pyrust/internal/hir"
	"pyrust/internal/types"
)

func (in *inferer) args(fc *funcCtx, args []*hir.Expr, kwargs []hir.Kwarg) []*types.Type {
	out := make([]*types.Type, len(args))
	for i, a := range args {
		out[i] = in.expr(fc, a)
	}
	for _, kw := range kwargs {
		in.expr(fc, kw.Value)
	}
	return out
}

func (in *inferer) call(fc *funcCtx, d hir.CallData) *types.Type {
	argTypes := in.args(fc, d.Args, d.Kwargs)
	if fn := in.m.FuncByName(d.Func); fn != nil {
		in.bindArgs(fc, fn, d.Args, d.Kwargs)
		if ft := in.res.Funcs[fn.ID]; ft != nil {
			return ft.Return
		}
		return types.UnknownT
	}
	if cls := in.m.ClassByName(d.Func); cls != nil {
		if init := cls.Init(); init != nil {
			in.bindArgs(fc, init, d.Args, d.Kwargs)
		}
		return types.CustomT(cls.Name)
	}
	if t, ok := exceptionCall(d.Func); ok {
		return t
	}
	if sig, ok := builtins[d.Func]; ok {
		if d.Func == "range" {
			for _, a := range d.Args {
				in.hintFrom(fc, a, types.IntT)
			}
		}
		return sig(argTypes)
	}
	return types.UnknownT
}

// bindArgs checks arguments against annotated parameters and records call
// hints for unannotated ones.
func (in *inferer) bindArgs(fc *funcCtx, fn *hir.Func, args []*hir.Expr, kwargs []hir.Kwarg) {
	bind := func(i int, a *hir.Expr) {
		if i < 0 || i >= len(fn.Params) {
			return
		}
		p := fn.Params[i]
		at := in.res.TypeOf(a)
		if p.Type != nil {
			in.expect(p.Type, at, a.Span, "argument "+p.Name+" of "+fn.QualName())
			in.hintFrom(fc, a, p.Type)
			return
		}
		if at.IsUnknown() {
			return
		}
		key := hir.ParamKey{Func: fn.ID, Index: i}
		if prev, ok := in.callHints[key]; ok {
			in.callHints[key] = types.Join(prev, at)
		} else {
			in.callHints[key] = at
		}
	}
	for i, a := range args {
		bind(i, a)
	}
	for _, kw := range kwargs {
		bind(fn.ParamIndex(kw.Name), kw.Value)
	}
}

func (in *inferer) methodCall(fc *funcCtx, d hir.MethodCallData) *types.Type {
	if recvName := hir.NameOf(d.Receiver); recvName != "" {
		if _, local := fc.env.Lookup(recvName); !local {
			if cls := in.m.ClassByName(recvName); cls != nil {
				in.setExpr(d.Receiver, types.CustomT(cls.Name))
				return in.userMethod(fc, cls, d)
			}
		}
	}
	rt := in.expr(fc, d.Receiver)
	argTypes := in.args(fc, d.Args, d.Kwargs)

	if name := hir.NameOf(d.Receiver); name != "" {
		if rt.IsUnknown() {
			if hint := methodHint(d.Method); hint != nil && fc.env.Refine(name, hint) {
				rt = in.expr(fc, d.Receiver)
			}
		}
		if refined := elementHint(rt, d.Method, argTypes); refined != nil && fc.env.Refine(name, refined) {
			rt = in.expr(fc, d.Receiver)
		}
	}
	if rt.Kind == types.Custom {
		if cls := in.m.ClassByName(rt.Name); cls != nil {
			return in.userMethod(fc, cls, d)
		}
	}
	return methodResult(rt, d.Method, argTypes)
}

// elementHint learns element types of empty containers from the values
// added to them.
func elementHint(recv *types.Type, method string, args []*types.Type) *types.Type {
	switch recv.Kind {
	case types.List:
		switch {
		case (method == "append" || method == "remove") && len(args) == 1:
			return types.ListOf(args[0])
		case method == "insert" && len(args) == 2:
			return types.ListOf(args[1])
		case method == "extend" && len(args) == 1:
			return types.ListOf(args[0].IterElem())
		}
	case types.Set:
		if (method == "add" || method == "discard") && len(args) == 1 {
			return types.SetOf(args[0])
		}
	case types.Dict:
		if method == "setdefault" && len(args) == 2 {
			return types.DictOf(args[0], args[1])
		}
		if method == "update" && len(args) == 1 && args[0].Kind == types.Dict {
			return args[0]
		}
	}
	return nil
}

func (in *inferer) userMethod(fc *funcCtx, cls *hir.Class, d hir.MethodCallData) *types.Type {
	in.args(fc, d.Args, d.Kwargs)
	m := cls.Method(d.Method)
	if m == nil {
		return types.UnknownT
	}
	in.bindArgs(fc, m, d.Args, d.Kwargs)
	if ft := in.res.Funcs[m.ID]; ft != nil {
		return ft.Return
	}
	return types.UnknownT
}
