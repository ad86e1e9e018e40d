package hir

import (
	"strconv"
	"strings"

	"pyrust/internal/ast"
	"pyrust/internal/diag"
	"pyrust/internal/source"
)

func binOp(op ast.BinOpKind, sp source.Span) (BinOp, error) {
	switch op {
	case ast.Add:
		return OpAdd, nil
	case ast.Sub:
		return OpSub, nil
	case ast.Mult:
		return OpMul, nil
	case ast.Div:
		return OpDiv, nil
	case ast.FloorDiv:
		return OpFloorDiv, nil
	case ast.Mod:
		return OpMod, nil
	case ast.Pow:
		return OpPow, nil
	case ast.LShift:
		return OpLShift, nil
	case ast.RShift:
		return OpRShift, nil
	case ast.BitOr:
		return OpBitOr, nil
	case ast.BitXor:
		return OpBitXor, nil
	case ast.BitAnd:
		return OpBitAnd, nil
	}
	return 0, diag.Unsupported(sp, "operator "+op.String())
}

func (l *lowerer) lowerExprs(xs []ast.Expr) ([]*Expr, error) {
	out := make([]*Expr, 0, len(xs))
	for _, x := range xs {
		if st, ok := x.(*ast.Starred); ok {
			return nil, diag.Unsupported(st.Span(), "starred expression")
		}
		e, err := l.lowerExpr(x)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// lowerExpr converts one expression. Every AST expression kind is either
// mapped or rejected explicitly.
func (l *lowerer) lowerExpr(e ast.Expr) (*Expr, error) {
	sp := e.Span()
	switch x := e.(type) {
	case *ast.Name:
		if _, ok := l.nested[x.ID]; ok {
			return nil, diag.Unsupported(sp, "nested function "+x.ID+" used as a value")
		}
		return l.lowerName(x), nil
	case *ast.Constant:
		return l.lowerConstant(x)
	case *ast.JoinedStr:
		return l.lowerFString(x)
	case *ast.BinOp:
		op, err := binOp(x.Op, sp)
		if err != nil {
			return nil, err
		}
		left, err := l.lowerExpr(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := l.lowerExpr(x.Right)
		if err != nil {
			return nil, err
		}
		return l.m.NewExpr(ExprBinary, sp, BinaryData{Op: op, Left: left, Right: right}), nil
	case *ast.UnaryOp:
		operand, err := l.lowerExpr(x.Operand)
		if err != nil {
			return nil, err
		}
		op := [...]UnaryOp{ast.UAdd: OpPos, ast.USub: OpNeg, ast.Not: OpNot, ast.Invert: OpInvert}[x.Op]
		return l.m.NewExpr(ExprUnary, sp, UnaryData{Op: op, Operand: operand}), nil
	case *ast.BoolOp:
		op := OpAnd
		if x.Op == ast.Or {
			op = OpOr
		}
		acc, err := l.lowerExpr(x.Values[0])
		if err != nil {
			return nil, err
		}
		for _, v := range x.Values[1:] {
			right, err := l.lowerExpr(v)
			if err != nil {
				return nil, err
			}
			acc = l.m.NewExpr(ExprBinary, acc.Span.Cover(right.Span), BinaryData{Op: op, Left: acc, Right: right})
		}
		return acc, nil
	case *ast.Compare:
		return l.lowerCompare(x)
	case *ast.Call:
		return l.lowerCall(x)
	case *ast.Attribute:
		if n, ok := x.Value.(*ast.Name); ok {
			if mod, ok := l.modules[n.ID]; ok {
				return l.m.NewExpr(ExprName, sp, NameData{Name: mod + "." + x.Attr}), nil
			}
		}
		obj, err := l.lowerExpr(x.Value)
		if err != nil {
			return nil, err
		}
		return l.m.NewExpr(ExprAttr, sp, AttrData{Object: obj, Name: x.Attr}), nil
	case *ast.Subscript:
		return l.lowerSubscript(x)
	case *ast.Slice:
		return nil, diag.Unsupported(sp, "slice outside subscript")
	case *ast.List:
		elems, err := l.lowerExprs(x.Elts)
		if err != nil {
			return nil, err
		}
		return l.m.NewExpr(ExprList, sp, SeqData{Elems: elems}), nil
	case *ast.Tuple:
		elems, err := l.lowerExprs(x.Elts)
		if err != nil {
			return nil, err
		}
		return l.m.NewExpr(ExprTuple, sp, SeqData{Elems: elems}), nil
	case *ast.Set:
		elems, err := l.lowerExprs(x.Elts)
		if err != nil {
			return nil, err
		}
		return l.m.NewExpr(ExprSet, sp, SeqData{Elems: elems}), nil
	case *ast.Dict:
		d := DictData{}
		for i, k := range x.Keys {
			if k == nil {
				return nil, diag.Unsupported(x.Values[i].Span(), "dict unpacking")
			}
			ke, err := l.lowerExpr(k)
			if err != nil {
				return nil, err
			}
			ve, err := l.lowerExpr(x.Values[i])
			if err != nil {
				return nil, err
			}
			d.Keys = append(d.Keys, ke)
			d.Values = append(d.Values, ve)
		}
		return l.m.NewExpr(ExprDict, sp, d), nil
	case *ast.ListComp:
		return l.lowerComp(ExprListComp, sp, nil, x.Elt, x.Generators)
	case *ast.SetComp:
		return l.lowerComp(ExprSetComp, sp, nil, x.Elt, x.Generators)
	case *ast.DictComp:
		return l.lowerComp(ExprDictComp, sp, x.Key, x.Value, x.Generators)
	case *ast.GeneratorExp:
		return l.lowerComp(ExprGenerator, sp, nil, x.Elt, x.Generators)
	case *ast.Lambda:
		return l.lowerLambda(x)
	case *ast.IfExp:
		cond, err := l.lowerExpr(x.Test)
		if err != nil {
			return nil, err
		}
		then, err := l.lowerExpr(x.Body)
		if err != nil {
			return nil, err
		}
		els, err := l.lowerExpr(x.OrElse)
		if err != nil {
			return nil, err
		}
		return l.m.NewExpr(ExprIfExp, sp, IfExpData{Cond: cond, Then: then, Else: els}), nil
	case *ast.Await:
		if l.fn == nil || !l.fn.IsAsync() {
			return nil, diag.Errorf(diag.ConversionError, sp, "await outside async function")
		}
		v, err := l.lowerExpr(x.Value)
		if err != nil {
			return nil, err
		}
		return l.m.NewExpr(ExprAwait, sp, AwaitData{Value: v}), nil
	case *ast.Yield, *ast.YieldFrom:
		return nil, diag.Unsupported(sp, "yield used as a value")
	case *ast.Starred:
		return nil, diag.Unsupported(sp, "starred expression")
	case *ast.NamedExpr:
		return nil, diag.Unsupported(sp, "assignment expression")
	}
	return nil, diag.Unsupported(sp, "expression")
}

func (l *lowerer) lowerName(x *ast.Name) *Expr {
	name := x.ID
	if q, ok := l.imported[name]; ok {
		name = q
	}
	return l.m.NewExpr(ExprName, x.Span(), NameData{Name: name})
}

func (l *lowerer) lowerConstant(x *ast.Constant) (*Expr, error) {
	sp := x.Span()
	d := LiteralData{Text: x.Value}
	switch x.Kind {
	case ast.ConstNone:
		d.Kind = LiteralNone
	case ast.ConstBool:
		d.Kind = LiteralBool
		d.Bool = x.Value == "True"
	case ast.ConstInt:
		d.Kind = LiteralInt
		v, err := strconv.ParseInt(x.Value, 0, 64)
		if err != nil {
			return nil, diag.Errorf(diag.ConversionError, sp, "integer literal %s does not fit in 64 bits", x.Value)
		}
		d.Int = v
		d.Text = strconv.FormatInt(v, 10)
	case ast.ConstFloat:
		d.Kind = LiteralFloat
		v, err := strconv.ParseFloat(x.Value, 64)
		if err != nil {
			return nil, diag.Errorf(diag.ConversionError, sp, "invalid float literal %s", x.Value)
		}
		d.Float = v
	case ast.ConstStr, ast.ConstBytes:
		d.Kind = LiteralStr
		d.Str = x.Value
	case ast.ConstEllipsis:
		return nil, diag.Unsupported(sp, "ellipsis")
	}
	return l.m.NewExpr(ExprLiteral, sp, d), nil
}

func (l *lowerer) lowerFString(x *ast.JoinedStr) (*Expr, error) {
	parts := make([]FStringPart, 0, len(x.Parts))
	for _, p := range x.Parts {
		if p.Expr == nil {
			parts = append(parts, FStringPart{Lit: p.Lit})
			continue
		}
		if strings.Contains(p.Spec, "{") {
			return nil, diag.Unsupported(x.Span(), "nested replacement field in format spec")
		}
		v, err := l.lowerExpr(p.Expr)
		if err != nil {
			return nil, err
		}
		parts = append(parts, FStringPart{Value: v, Conv: p.Conv, Spec: p.Spec})
	}
	return l.m.NewExpr(ExprFString, x.Span(), FStringData{Parts: parts}), nil
}

// lowerCompare desugars membership and None tests and splits chained
// comparisons into a conjunction.
func (l *lowerer) lowerCompare(x *ast.Compare) (*Expr, error) {
	left, err := l.lowerExpr(x.Left)
	if err != nil {
		return nil, err
	}
	var acc *Expr
	for i, op := range x.Ops {
		if i > 0 && !pureOperand(x.Comparators[i-1]) {
			return nil, diag.Unsupported(x.Comparators[i-1].Span(), "chained comparison over a side-effecting operand")
		}
		right, err := l.lowerExpr(x.Comparators[i])
		if err != nil {
			return nil, err
		}
		cmp, err := l.compareOp(op, left, right, left.Span.Cover(right.Span))
		if err != nil {
			return nil, err
		}
		if acc == nil {
			acc = cmp
		} else {
			acc = l.m.NewExpr(ExprBinary, acc.Span.Cover(cmp.Span), BinaryData{Op: OpAnd, Left: acc, Right: cmp})
		}
		left = l.m.CloneExpr(right, true)
	}
	return acc, nil
}

func pureOperand(e ast.Expr) bool {
	switch x := e.(type) {
	case *ast.Name, *ast.Constant:
		return true
	case *ast.Attribute:
		return pureOperand(x.Value)
	case *ast.Subscript:
		return pureOperand(x.Value) && pureOperand(x.Index)
	case *ast.UnaryOp:
		return pureOperand(x.Operand)
	case *ast.BinOp:
		return pureOperand(x.Left) && pureOperand(x.Right)
	}
	return false
}

func (l *lowerer) compareOp(op ast.CmpOpKind, left, right *Expr, sp source.Span) (*Expr, error) {
	bin := func(o BinOp) *Expr {
		return l.m.NewExpr(ExprBinary, sp, BinaryData{Op: o, Left: left, Right: right})
	}
	method := func(recv *Expr, name string, args ...*Expr) *Expr {
		return l.m.NewExpr(ExprMethodCall, sp, MethodCallData{Receiver: recv, Method: name, Args: args})
	}
	not := func(e *Expr) *Expr {
		return l.m.NewExpr(ExprUnary, sp, UnaryData{Op: OpNot, Operand: e})
	}
	switch op {
	case ast.Eq:
		return bin(OpEq), nil
	case ast.NotEq:
		return bin(OpNotEq), nil
	case ast.Lt:
		return bin(OpLt), nil
	case ast.LtE:
		return bin(OpLtE), nil
	case ast.Gt:
		return bin(OpGt), nil
	case ast.GtE:
		return bin(OpGtE), nil
	case ast.Is, ast.IsNot:
		subject := left
		switch {
		case IsNoneLit(right):
		case IsNoneLit(left):
			subject = right
		default:
			if op == ast.Is {
				return bin(OpEq), nil
			}
			return bin(OpNotEq), nil
		}
		if op == ast.Is {
			return method(subject, MethodIsNone), nil
		}
		return method(subject, MethodIsSome), nil
	case ast.In:
		return method(right, MethodContains, left), nil
	case ast.NotIn:
		return not(method(right, MethodContains, left)), nil
	}
	return nil, diag.Unsupported(sp, "comparison "+op.String())
}

func (l *lowerer) lowerKwargs(kws []*ast.Keyword) ([]Kwarg, error) {
	var out []Kwarg
	for _, kw := range kws {
		if kw.Name == "" {
			return nil, diag.Unsupported(kw.Span(), "keyword argument unpacking")
		}
		v, err := l.lowerExpr(kw.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, Kwarg{Name: kw.Name, Value: v})
	}
	return out, nil
}

func (l *lowerer) lowerCall(x *ast.Call) (*Expr, error) {
	sp := x.Span()
	args, err := l.lowerExprs(x.Args)
	if err != nil {
		return nil, err
	}
	kwargs, err := l.lowerKwargs(x.Keywords)
	if err != nil {
		return nil, err
	}
	switch f := x.Func.(type) {
	case *ast.Name:
		name := f.ID
		if q, ok := l.imported[name]; ok {
			name = q
		}
		switch name {
		case "super":
			return nil, diag.Unsupported(sp, "super()")
		case "eval", "exec", "getattr", "setattr", "globals", "locals", "vars", "compile":
			return nil, diag.Unsupported(sp, "dynamic builtin "+name+"()")
		}
		d := CallData{Func: name, Args: args, Kwargs: kwargs}
		l.callNested(f.ID, &d, f)
		return l.m.NewExpr(ExprCall, sp, d), nil
	case *ast.Attribute:
		if n, ok := f.Value.(*ast.Name); ok {
			if mod, ok := l.modules[n.ID]; ok {
				return l.m.NewExpr(ExprCall, sp, CallData{Func: mod + "." + f.Attr, Args: args, Kwargs: kwargs}), nil
			}
			if n.ID == "cls" && l.fn != nil && l.fn.Receiver == RecvClass {
				return nil, diag.Unsupported(sp, "attribute call on cls")
			}
		}
		recv, err := l.lowerExpr(f.Value)
		if err != nil {
			return nil, err
		}
		return l.m.NewExpr(ExprMethodCall, sp, MethodCallData{Receiver: recv, Method: f.Attr, Args: args, Kwargs: kwargs}), nil
	}
	return nil, diag.Unsupported(x.Func.Span(), "call of "+exprName(x.Func))
}

func (l *lowerer) lowerSubscript(x *ast.Subscript) (*Expr, error) {
	obj, err := l.lowerExpr(x.Value)
	if err != nil {
		return nil, err
	}
	if s, ok := x.Index.(*ast.Slice); ok {
		d := SliceData{Object: obj}
		for _, pair := range []struct {
			src ast.Expr
			dst **Expr
		}{{s.Lower, &d.Lower}, {s.Upper, &d.Upper}, {s.Step, &d.Step}} {
			if pair.src == nil {
				continue
			}
			if *pair.dst, err = l.lowerExpr(pair.src); err != nil {
				return nil, err
			}
		}
		return l.m.NewExpr(ExprSlice, x.Span(), d), nil
	}
	if _, ok := x.Index.(*ast.Tuple); ok {
		return nil, diag.Unsupported(x.Index.Span(), "multi-dimensional subscript")
	}
	idx, err := l.lowerExpr(x.Index)
	if err != nil {
		return nil, err
	}
	return l.m.NewExpr(ExprIndex, x.Span(), IndexData{Object: obj, Index: idx}), nil
}

func (l *lowerer) lowerComp(kind ExprKind, sp source.Span, key, elem ast.Expr, gens []*ast.Comprehension) (*Expr, error) {
	d := CompData{}
	for _, g := range gens {
		if g.IsAsync {
			return nil, diag.Unsupported(g.Span(), "async comprehension")
		}
		target, err := l.lowerTarget(g.Target)
		if err != nil {
			return nil, err
		}
		if target.Kind != ExprName && target.Kind != ExprTuple {
			return nil, diag.Errorf(diag.BridgeBadTarget, g.Target.Span(), "comprehension target must be a name or tuple of names")
		}
		iter, err := l.lowerExpr(g.Iter)
		if err != nil {
			return nil, err
		}
		ifs, err := l.lowerExprs(g.Ifs)
		if err != nil {
			return nil, err
		}
		d.For = append(d.For, &CompFor{Target: target, Iter: iter, Ifs: ifs})
	}
	var err error
	if key != nil {
		if d.Key, err = l.lowerExpr(key); err != nil {
			return nil, err
		}
	}
	if d.Elem, err = l.lowerExpr(elem); err != nil {
		return nil, err
	}
	return l.m.NewExpr(kind, sp, d), nil
}

func (l *lowerer) lowerLambda(x *ast.Lambda) (*Expr, error) {
	a := x.Args
	if a.VarArg != nil || a.KwArg != nil || len(a.KwOnly) > 0 || len(a.Defaults) > 0 {
		return nil, diag.Unsupported(x.Span(), "lambda with default or variadic parameters")
	}
	params := make([]string, len(a.Args))
	for i, p := range a.Args {
		params[i] = p.Name
	}
	body, err := l.lowerExpr(x.Body)
	if err != nil {
		return nil, err
	}
	return l.m.NewExpr(ExprLambda, x.Span(), LambdaData{Params: params, Body: body}), nil
}
