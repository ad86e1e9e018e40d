package codegen

import (
	"strings"

	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/rust"
	"pyrust/internal/types"
)

// mutatingUserMethod reports calls of class methods taking &mut self.
func (fc *fnCtx) mutatingUserMethod(d hir.MethodCallData) bool {
	t := fc.g.tf.TypeOf(d.Receiver)
	if t.Kind != types.Custom {
		return false
	}
	c := fc.g.m.ClassByName(t.Name)
	if c == nil {
		return false
	}
	m := c.Method(d.Method)
	return m != nil && m.Receiver == hir.RecvMut
}

// methodArgs pairs a method call with its lowered receiver.
type methodArgs struct {
	e    *hir.Expr
	d    hir.MethodCallData
	recv value
	t    *types.Type
}

func (ma *methodArgs) want(n int) error {
	if len(ma.d.Args) != n {
		return diag.Errorf(diag.CodeGenError, ma.e.Span, ".%s() takes %d arguments here", ma.d.Method, n)
	}
	return nil
}

func (fc *fnCtx) methodCall(e *hir.Expr, d hir.MethodCallData) (value, error) {
	t := fc.g.tf.TypeOf(e)
	if name := hir.NameOf(d.Receiver); name != "" && !fc.isVar(name) && fc.scoped[name] == 0 {
		if c := fc.g.m.ClassByName(name); c != nil {
			m := c.Method(d.Method)
			if m == nil {
				return value{}, diag.Errorf(diag.CodeGenError, e.Span, "class %s has no method %s", c.Name, d.Method)
			}
			xs, err := fc.args(e, m, d.Args, d.Kwargs)
			if err != nil {
				return value{}, err
			}
			return fc.finishCall(e, m, rust.C(c.Name+"::"+methodName(m), xs...))
		}
	}
	if d.Method == hir.MethodContains {
		switch d.Receiver.Kind {
		case hir.ExprList, hir.ExprTuple, hir.ExprSet:
			return fc.literalContains(e, d)
		}
	}
	lowerRecv := fc.expr
	if hir.IsMutatingMethod(d.Method) || fc.mutatingUserMethod(d) {
		lowerRecv = fc.mutReceiver
	}
	recv, err := lowerRecv(d.Receiver)
	if err != nil {
		return value{}, err
	}
	rt := recv.t
	if rt == nil {
		rt = types.UnknownT
	}
	switch d.Method {
	case hir.MethodIsNone, hir.MethodIsSome:
		if rt.Kind == types.Optional {
			return temp(rust.M(recv.x, d.Method), types.BoolT), nil
		}
		if d.Method == hir.MethodIsSome {
			return temp(rust.L("true"), types.BoolT), nil
		}
		return temp(rust.L("false"), types.BoolT), nil
	}
	if rt.Kind == types.Optional {
		recv = value{x: rust.M(rust.M(recv.x, "as_ref"), "unwrap"), t: rt.Elem(), kind: valRef}
		rt = recv.t
	}
	ma := &methodArgs{e: e, d: d, recv: recv, t: t}
	var x rust.Expr
	switch rt.Kind {
	case types.Custom:
		c := fc.g.m.ClassByName(rt.Name)
		if c == nil {
			return value{}, diag.Errorf(diag.CodeGenError, e.Span, "method %s on %s", d.Method, rt.Name)
		}
		m := c.Method(d.Method)
		if m == nil {
			return value{}, diag.Errorf(diag.CodeGenError, e.Span, "class %s has no method %s", c.Name, d.Method)
		}
		return fc.userMethod(e, recv, m, d.Args, d.Kwargs)
	case types.Str:
		x, err = fc.strMethod(ma)
	case types.List:
		x, err = fc.listMethod(ma)
	case types.Dict:
		x, err = fc.dictMethod(ma)
	case types.Set:
		x, err = fc.setMethod(ma)
	default:
		return value{}, diag.Errorf(diag.CodeGenError, e.Span, "method %s on a value of type %s", d.Method, rt)
	}
	if err != nil {
		return value{}, err
	}
	return temp(x, t), nil
}

func methodName(m *hir.Func) string {
	switch {
	case isStrDunder(m) && m.Name == "__str__":
		return "py_str"
	case isStrDunder(m):
		return "py_repr"
	}
	return rust.EscapeIdent(m.Name)
}

func (fc *fnCtx) userMethod(e *hir.Expr, recv value, m *hir.Func, args []*hir.Expr, kwargs []hir.Kwarg) (value, error) {
	if m.IsGenerator() {
		return value{}, diag.Errorf(diag.CodeGenError, e.Span, "generator method %s", m.QualName())
	}
	xs, err := fc.args(e, m, args, kwargs)
	if err != nil {
		return value{}, err
	}
	return fc.finishCall(e, m, &rust.MethodCall{Recv: recv.x, Method: methodName(m), Args: xs})
}

func (fc *fnCtx) literalContains(e *hir.Expr, d hir.MethodCallData) (value, error) {
	if len(d.Args) != 1 {
		return value{}, diag.Errorf(diag.CodeGenError, e.Span, "membership test takes one operand")
	}
	x, err := fc.expr(d.Args[0])
	if err != nil {
		return value{}, err
	}
	elems := d.Receiver.Data.(hir.SeqData).Elems
	var out []rust.Expr
	for _, el := range elems {
		v, err := fc.expr(el)
		if err != nil {
			return value{}, err
		}
		if isStr(v.t) {
			out = append(out, fc.asStr(v))
			continue
		}
		out = append(out, fc.coerce(v, x.t))
	}
	var needle rust.Expr
	if isStr(x.t) {
		needle = &rust.Ref{X: fc.asStr(x)}
	} else {
		needle = &rust.Ref{X: fc.operand(x)}
	}
	return temp(rust.M(&rust.Array{Elems: out}, "contains", needle), types.BoolT), nil
}

// strArgs lowers every argument as &str.
func (fc *fnCtx) strArgs(args []*hir.Expr) ([]rust.Expr, error) {
	out := make([]rust.Expr, len(args))
	for i, a := range args {
		v, err := fc.expr(a)
		if err != nil {
			return nil, err
		}
		if isStr(v.t) {
			out[i] = fc.asStr(v)
		} else {
			out[i] = fc.operand(v)
		}
	}
	return out, nil
}

var charTests = map[string]string{
	"isdigit": "is_ascii_digit", "isdecimal": "is_ascii_digit", "isnumeric": "is_numeric",
	"isalpha": "is_alphabetic", "isalnum": "is_alphanumeric", "isspace": "is_whitespace",
}

func toOwnedStrings(it rust.Expr) rust.Expr {
	owned := rust.M(it, "map", &rust.Closure{Params: []string{"__s"}, Body: rust.M(rust.P("__s"), "to_string")})
	return collect(owned, "Vec<String>")
}

func (fc *fnCtx) strMethod(ma *methodArgs) (rust.Expr, error) {
	s := ma.recv.x
	d := ma.d
	switch d.Method {
	case "format":
		return fc.strFormat(ma)
	case "join":
		if err := ma.want(1); err != nil {
			return nil, err
		}
		it, err := fc.iterOf(d.Args[0])
		if err != nil {
			return nil, err
		}
		return rust.M(collect(it, "Vec<String>"), "join", fc.asStr(ma.recv)), nil
	}
	args, err := fc.strArgs(d.Args)
	if err != nil {
		return nil, err
	}
	switch d.Method {
	case "upper", "lower", "casefold":
		m := "to_lowercase"
		if d.Method == "upper" {
			m = "to_uppercase"
		}
		return rust.M(s, m), nil
	case "strip", "lstrip", "rstrip":
		m := map[string]string{"strip": "trim", "lstrip": "trim_start", "rstrip": "trim_end"}[d.Method]
		if len(args) == 0 {
			return rust.M(rust.M(s, m), "to_string"), nil
		}
		set := &rust.Closure{Params: []string{"c: char"}, Body: rust.M(args[0], "contains", rust.P("c"))}
		return rust.M(rust.M(s, m+"_matches", set), "to_string"), nil
	case "replace":
		switch len(args) {
		case 2:
			return rust.M(s, "replace", args[0], args[1]), nil
		case 3:
			n, err := fc.expr(d.Args[2])
			if err != nil {
				return nil, err
			}
			return rust.M(s, "replacen", args[0], args[1], fc.asUsize(n)), nil
		}
		return nil, ma.want(2)
	case "startswith", "endswith":
		if err := ma.want(1); err != nil {
			return nil, err
		}
		m := "starts_with"
		if d.Method == "endswith" {
			m = "ends_with"
		}
		if d.Args[0].Kind == hir.ExprTuple {
			prefixes, err := fc.strArgs(d.Args[0].Data.(hir.SeqData).Elems)
			if err != nil {
				return nil, err
			}
			test := &rust.Closure{Params: []string{"__p"}, Body: rust.M(s, m, rust.P("__p"))}
			return rust.M(rust.M(&rust.Array{Elems: prefixes}, "iter"), "any", test), nil
		}
		return rust.M(s, m, args[0]), nil
	case "find", "rfind":
		if err := ma.want(1); err != nil {
			return nil, err
		}
		idx := &rust.Closure{Params: []string{"__i"}, Body: fc.asInt(rust.P("__i"))}
		return rust.M(rust.M(rust.M(s, d.Method, args[0]), "map", idx), "unwrap_or", rust.L("-1")), nil
	case "index", "rindex":
		if err := ma.want(1); err != nil {
			return nil, err
		}
		m := "find"
		if d.Method == "rindex" {
			m = "rfind"
		}
		return fc.asInt(rust.M(rust.M(s, m, args[0]), "expect", rust.L(`"substring not found"`))), nil
	case "count":
		if err := ma.want(1); err != nil {
			return nil, err
		}
		return fc.asInt(rust.M(rust.M(s, "matches", args[0]), "count")), nil
	case "split", "rsplit":
		switch len(args) {
		case 0:
			return toOwnedStrings(rust.M(s, "split_whitespace")), nil
		case 1:
			return toOwnedStrings(rust.M(s, "split", args[0])), nil
		case 2:
			if d.Method == "rsplit" {
				return nil, diag.Unsupported(ma.e.Span, "rsplit with maxsplit")
			}
			n, err := fc.expr(d.Args[1])
			if err != nil {
				return nil, err
			}
			count := rust.Bin("+", fc.asUsize(n), rust.L("1"))
			return toOwnedStrings(rust.M(s, "splitn", count, args[0])), nil
		}
		return nil, ma.want(1)
	case "splitlines":
		return toOwnedStrings(rust.M(s, "lines")), nil
	case "isdigit", "isdecimal", "isnumeric", "isalpha", "isalnum", "isspace":
		all := rust.M(rust.M(s, "chars"), "all", rust.P("char::"+charTests[d.Method]))
		return rust.Bin("&&", rust.Not(rust.M(s, "is_empty")), all), nil
	case "isupper", "islower":
		has, hasNot := "char::is_uppercase", "char::is_lowercase"
		if d.Method == "islower" {
			has, hasNot = hasNot, has
		}
		return rust.Bin("&&",
			rust.M(rust.M(s, "chars"), "any", rust.P(has)),
			rust.Not(rust.M(rust.M(s, "chars"), "any", rust.P(hasNot)))), nil
	case "zfill", "center", "ljust", "rjust":
		if len(args) == 0 {
			return nil, ma.want(1)
		}
		fill := map[string]string{"zfill": "0>", "center": "^", "ljust": "<", "rjust": ">"}[d.Method]
		if len(d.Args) == 2 {
			lit, ok := d.Args[1].Data.(hir.LiteralData)
			if !ok || lit.Kind != hir.LiteralStr || len([]rune(lit.Str)) != 1 || strings.ContainsAny(lit.Str, "{}\"\\") {
				return nil, diag.Errorf(diag.CodeGenError, d.Args[1].Span, "fill character must be a plain one-character literal")
			}
			fill = lit.Str + fill
		}
		w, err := fc.expr(d.Args[0])
		if err != nil {
			return nil, err
		}
		width := &rust.Assign{L: rust.P("width"), R: fc.asUsize(w)}
		return &rust.Macro{Name: "format", Args: []rust.Expr{rust.L(`"{:` + fill + `width$}"`), s, width}}, nil
	case "capitalize":
		c := fc.fresh("chars")
		first := &rust.Match{X: rust.M(rust.P(c), "next"), Arms: []rust.Arm{
			{Pat: &rust.VariantPat{Path: "Some", Elems: []rust.Pat{rust.Var("__f")}}, Body: rust.Bin("+",
				collect(rust.M(rust.P("__f"), "to_uppercase"), "String"),
				&rust.Ref{X: rust.M(rust.M(rust.P(c), "as_str"), "to_lowercase")})},
			{Pat: &rust.LitPat{Text: "None"}, Body: rust.C("String::new")},
		}}
		block := &rust.Block{
			Stmts: []rust.Stmt{&rust.Let{Pat: &rust.Ident{Name: c, Mut: true}, Value: rust.M(s, "chars")}},
			Tail:  first,
		}
		return &rust.BlockExpr{Block: block}, nil
	case "swapcase":
		flip := ifElse(rust.M(rust.P("__c"), "is_uppercase"),
			collect(rust.M(rust.P("__c"), "to_lowercase"), "String"),
			collect(rust.M(rust.P("__c"), "to_uppercase"), "String"))
		return collect(rust.M(rust.M(s, "chars"), "map", &rust.Closure{Params: []string{"__c"}, Body: flip}), "String"), nil
	case "removeprefix", "removesuffix":
		if err := ma.want(1); err != nil {
			return nil, err
		}
		m := "strip_prefix"
		if d.Method == "removesuffix" {
			m = "strip_suffix"
		}
		return rust.M(rust.M(rust.M(s, m, args[0]), "unwrap_or", fc.asStr(ma.recv)), "to_string"), nil
	case hir.MethodContains:
		if err := ma.want(1); err != nil {
			return nil, err
		}
		return rust.M(s, "contains", args[0]), nil
	}
	return nil, diag.Errorf(diag.CodeGenError, ma.e.Span, "string method %s is not supported", d.Method)
}

// strFormat lowers "...".format(...) on a literal template.
func (fc *fnCtx) strFormat(ma *methodArgs) (rust.Expr, error) {
	lit, ok := ma.d.Receiver.Data.(hir.LiteralData)
	if !ok || lit.Kind != hir.LiteralStr {
		return nil, diag.Errorf(diag.CodeGenError, ma.e.Span, "str.format() on a non-literal template")
	}
	tmpl := lit.Str
	var sb strings.Builder
	var args []rust.Expr
	auto := 0
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			sb.WriteString("{{")
			i++
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			sb.WriteString("}}")
			i++
		case c == '{':
			end := strings.IndexByte(tmpl[i:], '}')
			if end < 0 {
				return nil, diag.Errorf(diag.CodeGenError, ma.e.Span, "unterminated placeholder in format template")
			}
			field, spec, _ := strings.Cut(tmpl[i+1:i+end], ":")
			arg, err := fc.formatField(ma, field, &auto)
			if err != nil {
				return nil, err
			}
			x, ph, err := fc.formatArg(arg, 0, spec)
			if err != nil {
				return nil, err
			}
			sb.WriteString(ph)
			args = append(args, x)
			i += end
		default:
			q := fmtText(string(c))
			sb.WriteString(q[1 : len(q)-1])
		}
	}
	return &rust.Macro{Name: "format", Args: append([]rust.Expr{rust.L(`"` + sb.String() + `"`)}, args...)}, nil
}

func (fc *fnCtx) formatField(ma *methodArgs, field string, auto *int) (*hir.Expr, error) {
	idx := -1
	switch {
	case field == "":
		idx = *auto
		*auto++
	case field[0] >= '0' && field[0] <= '9':
		idx = 0
		for _, ch := range field {
			if ch < '0' || ch > '9' {
				return nil, diag.Errorf(diag.CodeGenError, ma.e.Span, "format field %q", field)
			}
			idx = idx*10 + int(ch-'0')
		}
	default:
		for _, kw := range ma.d.Kwargs {
			if kw.Name == field {
				return kw.Value, nil
			}
		}
		return nil, diag.Errorf(diag.CodeGenError, ma.e.Span, "format field %q has no argument", field)
	}
	if idx >= len(ma.d.Args) {
		return nil, diag.Errorf(diag.CodeGenError, ma.e.Span, "format field %d has no argument", idx)
	}
	return ma.d.Args[idx], nil
}

// elemEq compares the element reference __e with x.
func (fc *fnCtx) elemEq(x value) rust.Expr {
	if isStr(x.t) {
		return rust.Bin("==", rust.P("__e"), fc.asStr(x))
	}
	return rust.Bin("==", &rust.Unary{Op: "*", X: rust.P("__e")}, fc.cmpOperand(x))
}

func (fc *fnCtx) listMethod(ma *methodArgs) (rust.Expr, error) {
	v := ma.recv.x
	d := ma.d
	elem := ma.recv.t.Elem()
	argv := func(i int) (value, error) { return fc.expr(d.Args[i]) }
	switch d.Method {
	case "append":
		if err := ma.want(1); err != nil {
			return nil, err
		}
		x, err := argv(0)
		if err != nil {
			return nil, err
		}
		return rust.M(v, "push", fc.coerce(x, elem)), nil
	case "extend":
		if err := ma.want(1); err != nil {
			return nil, err
		}
		it, err := fc.iterOf(d.Args[0])
		if err != nil {
			return nil, err
		}
		return rust.M(v, "extend", it), nil
	case "insert":
		if err := ma.want(2); err != nil {
			return nil, err
		}
		pos, err := fc.position(v, d.Args[0])
		if err != nil {
			return nil, err
		}
		x, err := argv(1)
		if err != nil {
			return nil, err
		}
		return rust.M(v, "insert", pos, fc.coerce(x, elem)), nil
	case "pop":
		if len(d.Args) == 0 {
			return rust.M(rust.M(v, "pop"), "expect", rust.L(`"pop from empty list"`)), nil
		}
		pos, err := fc.position(v, d.Args[0])
		if err != nil {
			return nil, err
		}
		return rust.M(v, "remove", pos), nil
	case "remove", "index", "count":
		if err := ma.want(1); err != nil {
			return nil, err
		}
		x, err := argv(0)
		if err != nil {
			return nil, err
		}
		eq := &rust.Closure{Params: []string{"__e"}, Body: fc.elemEq(x)}
		switch d.Method {
		case "remove":
			pos := rust.M(rust.M(rust.M(v, "iter"), "position", eq), "expect", rust.L(`"list.remove(x): x not in list"`))
			return rust.M(v, "remove", pos), nil
		case "index":
			pos := rust.M(rust.M(rust.M(v, "iter"), "position", eq), "expect", rust.L(`"value is not in list"`))
			return fc.asInt(pos), nil
		}
		filter := &rust.Closure{Params: []string{"&__e"}, Body: fc.elemEq(x)}
		return fc.asInt(rust.M(rust.M(rust.M(v, "iter"), "filter", filter), "count")), nil
	case "sort":
		reverse, err := fc.reverseFlag(hir.CallData{Kwargs: d.Kwargs})
		if err != nil {
			return nil, err
		}
		cmp, err := fc.cmpBy(hir.CallData{Kwargs: d.Kwargs}, reverse)
		if err != nil {
			return nil, err
		}
		return rust.M(v, "sort_by", cmp), nil
	case "reverse", "clear":
		return rust.M(v, d.Method), nil
	case "copy":
		return rust.M(v, "clone"), nil
	case hir.MethodContains:
		if err := ma.want(1); err != nil {
			return nil, err
		}
		x, err := argv(0)
		if err != nil {
			return nil, err
		}
		if isStr(x.t) {
			return rust.M(rust.M(v, "iter"), "any", &rust.Closure{Params: []string{"__e"}, Body: fc.elemEq(x)}), nil
		}
		return rust.M(v, "contains", fc.shared(value{x: fc.operand(x), t: x.t, kind: valTemp})), nil
	}
	return nil, diag.Errorf(diag.CodeGenError, ma.e.Span, "list method %s is not supported", d.Method)
}

func (fc *fnCtx) dictMethod(ma *methodArgs) (rust.Expr, error) {
	m := ma.recv.x
	d := ma.d
	kt, vt := ma.recv.t.Elem(), ma.recv.t.Value()
	key := func() (rust.Expr, error) {
		k, err := fc.expr(d.Args[0])
		if err != nil {
			return nil, err
		}
		return fc.keyArg(k), nil
	}
	switch d.Method {
	case "get", "pop":
		if len(d.Args) == 0 || len(d.Args) > 2 {
			return nil, ma.want(1)
		}
		k, err := key()
		if err != nil {
			return nil, err
		}
		var x rust.Expr
		if d.Method == "get" {
			x = rust.M(rust.M(m, "get", k), "cloned")
		} else {
			x = rust.M(m, "remove", k)
		}
		if len(d.Args) == 1 {
			if d.Method == "pop" {
				return rust.M(x, "expect", rust.L(`"key not found"`)), nil
			}
			return x, nil
		}
		if hir.IsNoneLit(d.Args[1]) {
			return x, nil
		}
		def, err := fc.expr(d.Args[1])
		if err != nil {
			return nil, err
		}
		return rust.M(x, "unwrap_or", fc.coerce(def, vt)), nil
	case "keys", "values":
		return rust.M(rust.M(m, d.Method), "cloned"), nil
	case "items":
		pair := &rust.Closure{Params: []string{"(__k, __v)"}, Body: &rust.Tuple{Elems: []rust.Expr{
			rust.M(rust.P("__k"), "clone"), rust.M(rust.P("__v"), "clone"),
		}}}
		return rust.M(rust.M(m, "iter"), "map", pair), nil
	case "setdefault":
		if err := ma.want(2); err != nil {
			return nil, err
		}
		k, err := fc.expr(d.Args[0])
		if err != nil {
			return nil, err
		}
		def, err := fc.expr(d.Args[1])
		if err != nil {
			return nil, err
		}
		return rust.M(rust.M(rust.M(m, "entry", fc.coerce(k, kt)), "or_insert", fc.coerce(def, vt)), "clone"), nil
	case "update":
		if err := ma.want(1); err != nil {
			return nil, err
		}
		o, err := fc.expr(d.Args[0])
		if err != nil {
			return nil, err
		}
		if o.kind == valTemp {
			return rust.M(m, "extend", o.x), nil
		}
		pair := &rust.Closure{Params: []string{"(__k, __v)"}, Body: &rust.Tuple{Elems: []rust.Expr{
			rust.M(rust.P("__k"), "clone"), rust.M(rust.P("__v"), "clone"),
		}}}
		return rust.M(m, "extend", rust.M(rust.M(o.x, "iter"), "map", pair)), nil
	case "clear":
		return rust.M(m, "clear"), nil
	case "copy":
		return rust.M(m, "clone"), nil
	case hir.MethodContains:
		if err := ma.want(1); err != nil {
			return nil, err
		}
		k, err := key()
		if err != nil {
			return nil, err
		}
		return rust.M(m, "contains_key", k), nil
	}
	return nil, diag.Errorf(diag.CodeGenError, ma.e.Span, "dict method %s is not supported", d.Method)
}

var setQueries = map[string]string{
	"issubset": "is_subset", "issuperset": "is_superset", "isdisjoint": "is_disjoint",
}

var setCombine = map[string]hir.BinOp{
	"union": hir.OpBitOr, "intersection": hir.OpBitAnd, "difference": hir.OpSub, "symmetric_difference": hir.OpBitXor,
}

func (fc *fnCtx) setMethod(ma *methodArgs) (rust.Expr, error) {
	s := ma.recv.x
	d := ma.d
	elem := ma.recv.t.Elem()
	if op, ok := setCombine[d.Method]; ok {
		if err := ma.want(1); err != nil {
			return nil, err
		}
		o, err := fc.expr(d.Args[0])
		if err != nil {
			return nil, err
		}
		return fc.setArith(ma.e, op, ma.recv, o)
	}
	if m, ok := setQueries[d.Method]; ok {
		if err := ma.want(1); err != nil {
			return nil, err
		}
		o, err := fc.expr(d.Args[0])
		if err != nil {
			return nil, err
		}
		return rust.M(s, m, fc.shared(o)), nil
	}
	switch d.Method {
	case "add":
		if err := ma.want(1); err != nil {
			return nil, err
		}
		x, err := fc.expr(d.Args[0])
		if err != nil {
			return nil, err
		}
		return rust.M(s, "insert", fc.coerce(x, elem)), nil
	case "discard", "remove", hir.MethodContains:
		if err := ma.want(1); err != nil {
			return nil, err
		}
		x, err := fc.expr(d.Args[0])
		if err != nil {
			return nil, err
		}
		m := "remove"
		if d.Method == hir.MethodContains {
			m = "contains"
		}
		return rust.M(s, m, fc.keyArg(x)), nil
	case "update":
		if err := ma.want(1); err != nil {
			return nil, err
		}
		it, err := fc.iterOf(d.Args[0])
		if err != nil {
			return nil, err
		}
		return rust.M(s, "extend", it), nil
	case "clear":
		return rust.M(s, "clear"), nil
	case "copy":
		return rust.M(s, "clone"), nil
	}
	return nil, diag.Errorf(diag.CodeGenError, ma.e.Span, "set method %s is not supported", d.Method)
}
