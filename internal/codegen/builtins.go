package codegen

import (
	"strings"

	"pyrust/internal/borrow"
	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/rust"
	"pyrust/internal/types"
)

// iterOf lowers e to a Rust iterator over owned elements.
func (fc *fnCtx) iterOf(e *hir.Expr) (rust.Expr, error) {
	if e.Kind == hir.ExprTuple {
		t := fc.g.tf.TypeOf(e)
		elems, err := fc.exprs(e.Data.(hir.SeqData).Elems, t.IterElem())
		if err != nil {
			return nil, err
		}
		return rust.M(&rust.Array{Elems: elems}, "into_iter"), nil
	}
	v, err := fc.expr(e)
	if err != nil {
		return nil, err
	}
	return fc.iterValue(v, e)
}

func (fc *fnCtx) iterValue(v value, e *hir.Expr) (rust.Expr, error) {
	t := v.t
	if t == nil {
		t = types.UnknownT
	}
	switch t.Kind {
	case types.Iterator:
		if v.kind == valPlace {
			return rust.M(v.x, "by_ref"), nil
		}
		return v.x, nil
	case types.Str:
		return rust.M(rust.M(v.x, "chars"), "map", &rust.Closure{Params: []string{"c"}, Body: rust.M(rust.P("c"), "to_string")}), nil
	case types.Dict:
		if v.kind == valTemp {
			return rust.M(v.x, "into_keys"), nil
		}
		return rust.M(rust.M(v.x, "keys"), "cloned"), nil
	case types.List, types.Set, types.Unknown:
		if v.kind == valTemp {
			return rust.M(v.x, "into_iter"), nil
		}
		return rust.M(rust.M(v.x, "iter"), "cloned"), nil
	}
	return nil, diag.Errorf(diag.CodeGenError, e.Span, "iteration over %s is not supported", t)
}

func (fc *fnCtx) arg(e *hir.Expr, d hir.CallData, i int) (value, error) {
	if i >= len(d.Args) {
		return value{}, diag.Errorf(diag.CodeGenError, e.Span, "%s() needs at least %d arguments", d.Func, i+1)
	}
	return fc.expr(d.Args[i])
}

func kwarg(d hir.CallData, name string) *hir.Expr {
	for _, kw := range d.Kwargs {
		if kw.Name == name {
			return kw.Value
		}
	}
	return nil
}

func collect(recv rust.Expr, into string) rust.Expr {
	return &rust.MethodCall{Recv: recv, Method: "collect", Turbo: into}
}

// builtin lowers a call to a Python builtin or a math/sys function.
func (fc *fnCtx) builtin(e *hir.Expr, d hir.CallData) (value, error) {
	t := fc.g.tf.TypeOf(e)
	if strings.HasPrefix(d.Func, "math.") {
		return fc.mathCall(e, d, t)
	}
	one := func(build func(v value) (rust.Expr, error)) (value, error) {
		v, err := fc.arg(e, d, 0)
		if err != nil {
			return value{}, err
		}
		x, err := build(v)
		if err != nil {
			return value{}, err
		}
		return temp(x, t), nil
	}
	iter := func(build func(it rust.Expr) (rust.Expr, error)) (value, error) {
		if len(d.Args) == 0 {
			return value{}, diag.Errorf(diag.CodeGenError, e.Span, "%s() needs an argument", d.Func)
		}
		it, err := fc.iterOf(d.Args[0])
		if err != nil {
			return value{}, err
		}
		x, err := build(it)
		if err != nil {
			return value{}, err
		}
		return temp(x, t), nil
	}

	switch d.Func {
	case "print":
		return fc.printCall(e, d)
	case "len":
		return one(func(v value) (rust.Expr, error) {
			switch {
			case isStr(v.t):
				return fc.asInt(rust.M(rust.M(v.x, "chars"), "count")), nil
			case v.t != nil && v.t.Kind == types.Custom:
				return rust.M(v.x, "__len__"), nil
			case v.t != nil && v.t.Kind == types.Iterator:
				return fc.asInt(rust.M(v.x, "count")), nil
			}
			return fc.asInt(rust.M(v.x, "len")), nil
		})
	case "range":
		return fc.rangeCall(e, d, t)
	case "abs":
		return one(func(v value) (rust.Expr, error) {
			r, err := fc.g.rt(v.t, e.Span)
			if err != nil {
				return nil, err
			}
			return rust.M(suffixed(fc.operand(v), r), "abs"), nil
		})
	case "min", "max":
		return fc.minMax(e, d, t)
	case "sum":
		return iter(func(it rust.Expr) (rust.Expr, error) {
			r, err := fc.g.rt(t, e.Span)
			if err != nil {
				return nil, err
			}
			sum := &rust.MethodCall{Recv: it, Method: "sum", Turbo: rust.TypeString(r)}
			if len(d.Args) > 1 {
				start, err := fc.expr(d.Args[1])
				if err != nil {
					return nil, err
				}
				return rust.Bin("+", fc.coerce(start, t), sum), nil
			}
			return sum, nil
		})
	case "sorted":
		return fc.sorted(e, d, t)
	case "reversed":
		return iter(func(it rust.Expr) (rust.Expr, error) { return rust.M(it, "rev"), nil })
	case "enumerate":
		return iter(func(it rust.Expr) (rust.Expr, error) {
			idx := fc.asInt(rust.P("__i"))
			start := kwarg(d, "start")
			if len(d.Args) > 1 {
				start = d.Args[1]
			}
			if start != nil {
				s, err := fc.expr(start)
				if err != nil {
					return nil, err
				}
				idx = rust.Bin("+", idx, fc.operand(s))
			}
			pair := &rust.Closure{Params: []string{"(__i, __x)"}, Body: &rust.Tuple{Elems: []rust.Expr{idx, rust.P("__x")}}}
			return rust.M(rust.M(it, "enumerate"), "map", pair), nil
		})
	case "zip":
		return fc.zip(e, d, t)
	case "list", "tuple":
		if len(d.Args) == 0 {
			return temp(rust.C("Vec::new"), t), nil
		}
		return iter(func(it rust.Expr) (rust.Expr, error) { return collect(it, "Vec<_>"), nil })
	case "set":
		fc.g.use("std::collections::HashSet")
		if len(d.Args) == 0 {
			return temp(rust.C("HashSet::new"), t), nil
		}
		return iter(func(it rust.Expr) (rust.Expr, error) { return collect(it, "HashSet<_>"), nil })
	case "dict":
		return fc.dictCall(e, d, t)
	case "str":
		if len(d.Args) == 0 {
			return temp(rust.C("String::new"), t), nil
		}
		return one(func(v value) (rust.Expr, error) { return fc.strOf(v, d.Args[0]) })
	case "repr":
		return one(func(v value) (rust.Expr, error) {
			return &rust.Macro{Name: "format", Args: []rust.Expr{rust.L(`"{:?}"`), v.x}}, nil
		})
	case "int":
		if len(d.Args) == 0 {
			return temp(rust.L("0"), t), nil
		}
		return one(func(v value) (rust.Expr, error) { return fc.toInt(e, d, v) })
	case "float":
		if len(d.Args) == 0 {
			return temp(rust.L("0.0"), t), nil
		}
		return one(func(v value) (rust.Expr, error) {
			if isStr(v.t) {
				return fc.parse(v, "f64", "could not convert string to float"), nil
			}
			return fc.coerce(v, types.FloatT), nil
		})
	case "bool":
		if len(d.Args) == 0 {
			return temp(rust.L("false"), t), nil
		}
		x, err := fc.cond(d.Args[0])
		return temp(x, t), err
	case "round":
		return fc.round(e, d, t)
	case "chr":
		return one(func(v value) (rust.Expr, error) {
			c := rust.C("char::from_u32", &rust.Cast{X: fc.operand(v), Type: types.Prim(types.U32)})
			return rust.M(rust.M(c, "unwrap"), "to_string"), nil
		})
	case "ord":
		return one(func(v value) (rust.Expr, error) {
			return fc.asInt(rust.M(rust.M(rust.M(v.x, "chars"), "next"), "unwrap")), nil
		})
	case "input":
		return fc.input(e, d, t)
	case "any", "all":
		return fc.anyAll(e, d, t)
	case "isinstance":
		return fc.isinstance(e, d)
	case "pow":
		if len(d.Args) != 2 {
			return value{}, diag.Errorf(diag.CodeGenError, e.Span, "pow() takes exactly two arguments")
		}
		l, err := fc.expr(d.Args[0])
		if err != nil {
			return value{}, err
		}
		r, err := fc.expr(d.Args[1])
		if err != nil {
			return value{}, err
		}
		x, err := fc.pow(l, r, isFloat(t))
		return temp(x, t), err
	case "divmod":
		return fc.divmod(e, d, t)
	case "iter":
		return iter(func(it rust.Expr) (rust.Expr, error) { return it, nil })
	case "next":
		return one(func(v value) (rust.Expr, error) {
			next := rust.M(v.x, "next")
			if len(d.Args) > 1 {
				def, err := fc.expr(d.Args[1])
				if err != nil {
					return nil, err
				}
				return rust.M(next, "unwrap_or", fc.coerce(def, t)), nil
			}
			return rust.M(next, "unwrap"), nil
		})
	case "filter":
		return fc.filter(e, d, t)
	case "map":
		return fc.mapCall(e, d, t)
	case "hex", "bin", "oct":
		spec := map[string]string{"hex": `"{:#x}"`, "bin": `"{:#b}"`, "oct": `"{:#o}"`}[d.Func]
		return one(func(v value) (rust.Expr, error) {
			return &rust.Macro{Name: "format", Args: []rust.Expr{rust.L(spec), fc.operand(v)}}, nil
		})
	case "format":
		spec := ""
		if len(d.Args) > 1 {
			lit, ok := d.Args[1].Data.(hir.LiteralData)
			if !ok || lit.Kind != hir.LiteralStr {
				return value{}, diag.Errorf(diag.CodeGenError, d.Args[1].Span, "format() spec must be a string literal")
			}
			spec = lit.Str
		}
		x, ph, err := fc.formatArg(d.Args[0], 0, spec)
		if err != nil {
			return value{}, err
		}
		return temp(&rust.Macro{Name: "format", Args: []rust.Expr{rust.L(`"` + ph + `"`), x}}, t), nil
	case "sys.exit":
		code := rust.Expr(rust.L("0"))
		if len(d.Args) > 0 {
			v, err := fc.expr(d.Args[0])
			if err != nil {
				return value{}, err
			}
			code = &rust.Cast{X: fc.operand(v), Type: types.Prim(types.I32)}
		}
		return temp(rust.C("std::process::exit", code), t), nil
	case "hash", "callable", "id", "type", "open", "vars":
		return value{}, diag.Unsupported(e.Span, "builtin "+d.Func+"()")
	}
	return value{}, diag.Errorf(diag.CodeGenError, e.Span, "call to unknown function %s", d.Func)
}

func (fc *fnCtx) rangeCall(e *hir.Expr, d hir.CallData, t *types.Type) (value, error) {
	bounds := make([]rust.Expr, len(d.Args))
	for i, a := range d.Args {
		v, err := fc.expr(a)
		if err != nil {
			return value{}, err
		}
		bounds[i] = fc.coerce(v, types.IntT)
	}
	switch len(d.Args) {
	case 1:
		return temp(&rust.Range{Lo: rust.L("0"), Hi: bounds[0]}, t), nil
	case 2:
		return temp(&rust.Range{Lo: bounds[0], Hi: bounds[1]}, t), nil
	case 3:
		if k, neg := negIndex(d.Args[2]); neg {
			r := &rust.Range{Lo: rust.Bin("+", bounds[1], rust.L("1")), Hi: bounds[0], Inclusive: true}
			x := rust.M(rust.M(&rust.Paren{X: r}, "rev"), "step_by", rust.L(intText(k)))
			return temp(x, t), nil
		}
		step := &rust.Cast{X: bounds[2], Type: types.RustUSize}
		return temp(rust.M(&rust.Paren{X: &rust.Range{Lo: bounds[0], Hi: bounds[1]}}, "step_by", step), t), nil
	}
	return value{}, diag.Errorf(diag.CodeGenError, e.Span, "range() takes one to three arguments")
}

// cmpBy builds a |a, b| comparator for sort_by, min_by and max_by.
func (fc *fnCtx) cmpBy(d hir.CallData, reverse bool) (rust.Expr, error) {
	first, second := "a", "b"
	if reverse {
		first, second = "b", "a"
	}
	l, r := rust.Expr(rust.P(first)), rust.Expr(rust.P(second))
	if key := kwarg(d, "key"); key != nil {
		k, err := fc.callable(key)
		if err != nil {
			return nil, err
		}
		l = apply(k, rust.M(l, "clone"))
		r = &rust.Ref{X: apply(k, rust.M(r, "clone"))}
	}
	body := rust.M(rust.M(l, "partial_cmp", r), "unwrap")
	return &rust.Closure{Params: []string{"a", "b"}, Body: body}, nil
}

// callable lowers a function-valued argument: a lambda, a user function or
// a conversion builtin.
func (fc *fnCtx) callable(f *hir.Expr) (rust.Expr, error) {
	if f.Kind == hir.ExprLambda {
		v, err := fc.expr(f)
		if err != nil {
			return nil, err
		}
		return v.x, nil
	}
	name := hir.NameOf(f)
	if fn := fc.g.m.FuncByName(name); fn != nil && len(fn.Params) == 1 && !fc.g.fallible[fn.ID] {
		x := rust.Expr(rust.P("__x"))
		if fc.g.strategy(fn, 0) != borrow.Owned {
			if fc.g.paramType(fn, 0).Kind == types.Str {
				x = rust.M(x, "as_str")
			} else {
				x = &rust.Ref{X: x}
			}
		}
		var body rust.Expr = rust.C(rust.EscapeIdent(fn.Name), x)
		if fc.g.returnModeOf(fn) != retOwned {
			body = rust.M(body, "to_string")
		}
		return &rust.Closure{Params: []string{"__x"}, Body: body}, nil
	}
	switch name {
	case "str":
		return &rust.Closure{Params: []string{"__x"}, Body: rust.M(rust.P("__x"), "to_string")}, nil
	case "int":
		p := &rust.MethodCall{Recv: rust.M(rust.P("__x"), "trim"), Method: "parse", Turbo: fc.intType().String()}
		return &rust.Closure{Params: []string{"__x"}, Body: rust.M(p, "expect", rust.L(`"invalid literal for int()"`))}, nil
	case "float":
		p := &rust.MethodCall{Recv: rust.M(rust.P("__x"), "trim"), Method: "parse", Turbo: "f64"}
		return &rust.Closure{Params: []string{"__x"}, Body: rust.M(p, "expect", rust.L(`"could not convert string to float"`))}, nil
	case "abs":
		return &rust.Closure{Params: []string{"__x"}, Body: rust.M(rust.P("__x"), "abs")}, nil
	case "len":
		return &rust.Closure{Params: []string{"__x"}, Body: fc.asInt(rust.M(rust.P("__x"), "len"))}, nil
	}
	return nil, diag.Errorf(diag.CodeGenError, f.Span, "unsupported function argument %s", hir.ExprString(f))
}

func (fc *fnCtx) minMax(e *hir.Expr, d hir.CallData, t *types.Type) (value, error) {
	if len(d.Args) == 1 {
		it, err := fc.iterOf(d.Args[0])
		if err != nil {
			return value{}, err
		}
		if kwarg(d, "key") != nil {
			cmp, err := fc.cmpBy(d, false)
			if err != nil {
				return value{}, err
			}
			return temp(rust.M(rust.M(it, d.Func+"_by", cmp), "unwrap"), t), nil
		}
		if isFloat(t) {
			init, fold := "f64::INFINITY", "f64::min"
			if d.Func == "max" {
				init, fold = "f64::NEG_INFINITY", "f64::max"
			}
			return temp(rust.M(it, "fold", rust.P(init), rust.P(fold)), t), nil
		}
		return temp(rust.M(rust.M(it, d.Func), "unwrap"), t), nil
	}
	if len(d.Args) == 0 {
		return value{}, diag.Errorf(diag.CodeGenError, e.Span, "%s() needs arguments", d.Func)
	}
	var acc rust.Expr
	for _, a := range d.Args {
		v, err := fc.expr(a)
		if err != nil {
			return value{}, err
		}
		x := fc.coerce(v, t)
		switch {
		case acc == nil:
			acc = x
		case isStr(t):
			acc = rust.C("std::cmp::"+d.Func, acc, x)
		default:
			r, err := fc.g.rt(t, e.Span)
			if err != nil {
				return value{}, err
			}
			acc = rust.M(suffixed(acc, r), d.Func, x)
		}
	}
	return temp(acc, t), nil
}

func (fc *fnCtx) sorted(e *hir.Expr, d hir.CallData, t *types.Type) (value, error) {
	if len(d.Args) != 1 {
		return value{}, diag.Errorf(diag.CodeGenError, e.Span, "sorted() takes one positional argument")
	}
	it, err := fc.iterOf(d.Args[0])
	if err != nil {
		return value{}, err
	}
	reverse, err := fc.reverseFlag(d)
	if err != nil {
		return value{}, err
	}
	cmp, err := fc.cmpBy(d, reverse)
	if err != nil {
		return value{}, err
	}
	v := fc.fresh("sorted")
	block := &rust.Block{
		Stmts: []rust.Stmt{
			&rust.Let{Pat: &rust.Ident{Name: v, Mut: true}, Value: collect(it, "Vec<_>")},
			rust.Semi(rust.M(rust.P(v), "sort_by", cmp)),
		},
		Tail: rust.P(v),
	}
	return temp(&rust.BlockExpr{Block: block}, t), nil
}

func (fc *fnCtx) reverseFlag(d hir.CallData) (bool, error) {
	r := kwarg(d, "reverse")
	if r == nil {
		return false, nil
	}
	lit, ok := r.Data.(hir.LiteralData)
	if !ok || lit.Kind != hir.LiteralBool {
		return false, diag.Errorf(diag.CodeGenError, r.Span, "reverse= must be a boolean literal")
	}
	return lit.Bool, nil
}

func (fc *fnCtx) zip(e *hir.Expr, d hir.CallData, t *types.Type) (value, error) {
	if len(d.Args) < 2 || len(d.Args) > 3 {
		return value{}, diag.Errorf(diag.CodeGenError, e.Span, "zip() of %d iterables", len(d.Args))
	}
	its := make([]rust.Expr, len(d.Args))
	for i, a := range d.Args {
		it, err := fc.iterOf(a)
		if err != nil {
			return value{}, err
		}
		its[i] = it
	}
	x := rust.M(its[0], "zip", its[1])
	if len(its) == 3 {
		flat := &rust.Closure{
			Params: []string{"((__a, __b), __c)"},
			Body:   &rust.Tuple{Elems: []rust.Expr{rust.P("__a"), rust.P("__b"), rust.P("__c")}},
		}
		x = rust.M(rust.M(x, "zip", its[2]), "map", flat)
	}
	return temp(x, t), nil
}

func (fc *fnCtx) dictCall(e *hir.Expr, d hir.CallData, t *types.Type) (value, error) {
	fc.g.use("std::collections::HashMap")
	if len(d.Kwargs) > 0 {
		pairs := make([]rust.Expr, len(d.Kwargs))
		for i, kw := range d.Kwargs {
			v, err := fc.expr(kw.Value)
			if err != nil {
				return value{}, err
			}
			key := rust.M(rust.L(strText(kw.Name)), "to_string")
			pairs[i] = &rust.Tuple{Elems: []rust.Expr{key, fc.coerce(v, t.Value())}}
		}
		return temp(rust.C("HashMap::from", &rust.Array{Elems: pairs}), t), nil
	}
	if len(d.Args) == 0 {
		return temp(rust.C("HashMap::new"), t), nil
	}
	src, err := fc.expr(d.Args[0])
	if err != nil {
		return value{}, err
	}
	if src.t != nil && src.t.Kind == types.Dict {
		return temp(fc.consume(src), t), nil
	}
	it, err := fc.iterValue(src, d.Args[0])
	if err != nil {
		return value{}, err
	}
	return temp(collect(it, "HashMap<_, _>"), t), nil
}

func (fc *fnCtx) toInt(e *hir.Expr, d hir.CallData, v value) (rust.Expr, error) {
	t := v.t
	if t == nil {
		t = types.UnknownT
	}
	switch t.Kind {
	case types.Str:
		if len(d.Args) > 1 {
			base, err := fc.expr(d.Args[1])
			if err != nil {
				return nil, err
			}
			p := rust.C(fc.intType().String()+"::from_str_radix", rust.M(fc.asStr(v), "trim"), &rust.Cast{X: fc.operand(base), Type: types.Prim(types.U32)})
			return fc.raising(p, "invalid literal for int()"), nil
		}
		return fc.parse(v, fc.intType().String(), "invalid literal for int()"), nil
	case types.Float, types.Bool:
		return fc.asInt(fc.operand(v)), nil
	}
	return fc.operand(v), nil
}

// parse converts a string, raising ValueError on malformed input.
func (fc *fnCtx) parse(v value, into, msg string) rust.Expr {
	p := &rust.MethodCall{Recv: rust.M(fc.asStr(v), "trim"), Method: "parse", Turbo: into}
	return fc.raising(p, msg)
}

// raising unwraps a Result whose error becomes ValueError: inside a try
// that handles ValueError the error is raised, elsewhere it panics.
func (fc *fnCtx) raising(x rust.Expr, msg string) rust.Expr {
	for _, tf := range fc.tries {
		for _, h := range tf.handlers {
			if !h.Catches("ValueError") {
				continue
			}
			fc.g.errorType("ValueError")
			top := fc.tries[len(fc.tries)-1]
			exc := rust.M(rust.C("ValueError::new", rust.L(strText(msg))), "into")
			return &rust.Match{X: x, Arms: []rust.Arm{
				{Pat: &rust.VariantPat{Path: "Ok", Elems: []rust.Pat{rust.Var("__v")}}, Body: rust.P("__v")},
				{Pat: &rust.VariantPat{Path: "Err", Elems: []rust.Pat{&rust.Wild{}}}, Body: &rust.Break{Label: top.label, X: rust.C("Some", exc)}},
			}}
		}
	}
	return rust.M(x, "expect", rust.L(strText(msg)))
}

func (fc *fnCtx) round(e *hir.Expr, d hir.CallData, t *types.Type) (value, error) {
	v, err := fc.arg(e, d, 0)
	if err != nil {
		return value{}, err
	}
	if !isFloat(v.t) {
		return temp(fc.coerce(v, t), t), nil
	}
	x := fc.operand(v)
	if len(d.Args) == 1 {
		return temp(fc.asInt(rust.M(x, "round")), t), nil
	}
	n, err := fc.expr(d.Args[1])
	if err != nil {
		return value{}, err
	}
	scale := rust.M(rust.L("10_f64"), "powi", &rust.Cast{X: fc.operand(n), Type: types.Prim(types.I32)})
	scaled := rust.M(&rust.Paren{X: rust.Bin("*", x, scale)}, "round")
	return temp(rust.Bin("/", scaled, scale), t), nil
}

func (fc *fnCtx) input(e *hir.Expr, d hir.CallData, t *types.Type) (value, error) {
	var stmts []rust.Stmt
	if len(d.Args) > 0 {
		p, err := fc.expr(d.Args[0])
		if err != nil {
			return value{}, err
		}
		stmts = append(stmts,
			rust.Semi(&rust.Macro{Name: "print", Args: []rust.Expr{rust.L(`"{}"`), p.x}}),
			rust.Semi(rust.M(rust.C("std::io::Write::flush", &rust.Ref{X: rust.C("std::io::stdout"), Mut: true}), "ok")),
		)
	}
	line := fc.fresh("line")
	stmts = append(stmts,
		&rust.Let{Pat: &rust.Ident{Name: line, Mut: true}, Value: rust.C("String::new")},
		rust.Semi(rust.M(rust.M(rust.C("std::io::stdin"), "read_line", &rust.Ref{X: rust.P(line), Mut: true}), "expect", rust.L(`"failed to read stdin"`))),
	)
	tail := rust.M(rust.M(rust.P(line), "trim_end_matches", rust.L(`['\r', '\n']`)), "to_string")
	return temp(&rust.BlockExpr{Block: &rust.Block{Stmts: stmts, Tail: tail}}, t), nil
}

func (fc *fnCtx) anyAll(e *hir.Expr, d hir.CallData, t *types.Type) (value, error) {
	if len(d.Args) != 1 {
		return value{}, diag.Errorf(diag.CodeGenError, e.Span, "%s() takes one argument", d.Func)
	}
	it, err := fc.iterOf(d.Args[0])
	if err != nil {
		return value{}, err
	}
	elem := fc.g.tf.TypeOf(d.Args[0]).IterElem()
	test, err := fc.truthy(place(rust.P("__x"), elem), d.Args[0])
	if err != nil {
		return value{}, err
	}
	return temp(rust.M(it, d.Func, &rust.Closure{Params: []string{"__x"}, Body: test}), t), nil
}

var pyTypeKinds = map[string]types.Kind{
	"int": types.Int, "float": types.Float, "str": types.Str, "bool": types.Bool,
	"list": types.List, "dict": types.Dict, "set": types.Set, "tuple": types.Tuple,
}

// isinstance folds to a constant from the inferred type of its argument.
func (fc *fnCtx) isinstance(e *hir.Expr, d hir.CallData) (value, error) {
	if len(d.Args) != 2 {
		return value{}, diag.Errorf(diag.CodeGenError, e.Span, "isinstance() takes two arguments")
	}
	t := fc.g.tf.TypeOf(d.Args[0])
	if t.IsUnknown() {
		return value{}, diag.Errorf(diag.CodeGenError, e.Span, "isinstance() on a value of unknown type")
	}
	var names []string
	if d.Args[1].Kind == hir.ExprTuple {
		for _, el := range d.Args[1].Data.(hir.SeqData).Elems {
			names = append(names, hir.NameOf(el))
		}
	} else {
		names = append(names, hir.NameOf(d.Args[1]))
	}
	match := false
	for _, n := range names {
		if k, ok := pyTypeKinds[n]; ok && t.Kind == k {
			match = true
		}
		if t.Kind == types.Custom && t.Name == n {
			match = true
		}
	}
	if match {
		return temp(rust.L("true"), types.BoolT), nil
	}
	return temp(rust.L("false"), types.BoolT), nil
}

func (fc *fnCtx) divmod(e *hir.Expr, d hir.CallData, t *types.Type) (value, error) {
	if len(d.Args) != 2 {
		return value{}, diag.Errorf(diag.CodeGenError, e.Span, "divmod() takes two arguments")
	}
	elem := types.IntT
	if t != nil && len(t.Elems) > 0 {
		elem = t.Elems[0]
	}
	var stmts []rust.Stmt
	for i, name := range []string{"__a", "__b"} {
		v, err := fc.expr(d.Args[i])
		if err != nil {
			return value{}, err
		}
		stmts = append(stmts, &rust.Let{Pat: rust.Var(name), Value: fc.coerce(v, elem)})
	}
	a, b := rust.P("__a"), rust.P("__b")
	var q, r rust.Expr
	if isFloat(elem) {
		q = rust.M(&rust.Paren{X: rust.Bin("/", a, b)}, "floor")
		r = rust.Bin("%", &rust.Paren{X: rust.Bin("+", &rust.Paren{X: rust.Bin("%", a, b)}, b)}, b)
	} else {
		q = fc.helperCall(helperFloorDiv, a, b)
		r = fc.helperCall(helperMod, a, b)
	}
	block := &rust.Block{Stmts: stmts, Tail: &rust.Tuple{Elems: []rust.Expr{q, r}}}
	return temp(&rust.BlockExpr{Block: block}, t), nil
}

func (fc *fnCtx) filter(e *hir.Expr, d hir.CallData, t *types.Type) (value, error) {
	if len(d.Args) != 2 {
		return value{}, diag.Errorf(diag.CodeGenError, e.Span, "filter() takes two arguments")
	}
	it, err := fc.iterOf(d.Args[1])
	if err != nil {
		return value{}, err
	}
	elem := fc.g.tf.TypeOf(d.Args[1]).IterElem()
	var test rust.Expr
	if hir.IsNoneLit(d.Args[0]) {
		test, err = fc.truthy(value{x: rust.P("__x"), t: elem, kind: valRef}, d.Args[1])
	} else {
		var f rust.Expr
		if f, err = fc.callable(d.Args[0]); err == nil {
			rt := types.BoolT
			if lam, ok := d.Args[0].Data.(hir.LambdaData); ok {
				rt = fc.g.tf.TypeOf(lam.Body)
			}
			test, err = fc.truthy(temp(apply(f, rust.M(rust.P("__x"), "clone")), rt), d.Args[0])
		}
	}
	if err != nil {
		return value{}, err
	}
	return temp(rust.M(it, "filter", &rust.Closure{Params: []string{"__x"}, Body: test}), t), nil
}

func (fc *fnCtx) mapCall(e *hir.Expr, d hir.CallData, t *types.Type) (value, error) {
	if len(d.Args) != 2 {
		return value{}, diag.Errorf(diag.CodeGenError, e.Span, "map() over one iterable is supported")
	}
	f, err := fc.callable(d.Args[0])
	if err != nil {
		return value{}, err
	}
	it, err := fc.iterOf(d.Args[1])
	if err != nil {
		return value{}, err
	}
	return temp(rust.M(it, "map", f), t), nil
}

var floatMethods = map[string]string{
	"sqrt": "sqrt", "sin": "sin", "cos": "cos", "tan": "tan", "asin": "asin", "acos": "acos",
	"atan": "atan", "exp": "exp", "log2": "log2", "log10": "log10", "fabs": "abs",
	"sinh": "sinh", "cosh": "cosh", "tanh": "tanh", "radians": "to_radians", "degrees": "to_degrees",
}

var floatBinary = map[string]string{
	"pow": "powf", "atan2": "atan2", "hypot": "hypot", "copysign": "copysign",
}

func (fc *fnCtx) mathCall(e *hir.Expr, d hir.CallData, t *types.Type) (value, error) {
	name := strings.TrimPrefix(d.Func, "math.")
	floats := make([]rust.Expr, len(d.Args))
	for i, a := range d.Args {
		v, err := fc.expr(a)
		if err != nil {
			return value{}, err
		}
		floats[i] = suffixed(fc.coerce(v, types.FloatT), types.RustF64)
		if name == "gcd" {
			floats[i] = fc.coerce(v, types.IntT)
		}
	}
	want := func(n int) error {
		if len(floats) != n {
			return diag.Errorf(diag.CodeGenError, e.Span, "math.%s() takes %d arguments", name, n)
		}
		return nil
	}
	if m, ok := floatMethods[name]; ok {
		if err := want(1); err != nil {
			return value{}, err
		}
		return temp(rust.M(floats[0], m), t), nil
	}
	if m, ok := floatBinary[name]; ok {
		if err := want(2); err != nil {
			return value{}, err
		}
		return temp(rust.M(floats[0], m, floats[1]), t), nil
	}
	switch name {
	case "log":
		if len(floats) == 2 {
			return temp(rust.M(floats[0], "log", floats[1]), t), nil
		}
		if err := want(1); err != nil {
			return value{}, err
		}
		return temp(rust.M(floats[0], "ln"), t), nil
	case "floor", "ceil", "trunc":
		if err := want(1); err != nil {
			return value{}, err
		}
		return temp(fc.asInt(rust.M(floats[0], name)), t), nil
	case "isnan":
		return temp(rust.M(floats[0], "is_nan"), t), want(1)
	case "isinf":
		return temp(rust.M(floats[0], "is_infinite"), t), want(1)
	case "gcd":
		if err := want(2); err != nil {
			return value{}, err
		}
		return temp(fc.helperCall(helperGcd, floats[0], floats[1]), t), nil
	case "isclose":
		if err := want(2); err != nil {
			return value{}, err
		}
		a, b := rust.P("__a"), rust.P("__b")
		diff := rust.M(&rust.Paren{X: rust.Bin("-", a, b)}, "abs")
		scale := rust.M(rust.M(a, "abs"), "max", rust.M(b, "abs"))
		block := &rust.Block{
			Stmts: []rust.Stmt{
				&rust.Let{Pat: rust.Var("__a"), Type: types.RustF64, Value: floats[0]},
				&rust.Let{Pat: rust.Var("__b"), Type: types.RustF64, Value: floats[1]},
			},
			Tail: rust.Bin("<=", diff, rust.Bin("*", rust.L("1e-9"), scale)),
		}
		return temp(&rust.BlockExpr{Block: block}, t), nil
	}
	return value{}, diag.Errorf(diag.CodeGenError, e.Span, "call to unknown function %s", d.Func)
}
