package codegen

import (
	"context"
	"strconv"

	"pyrust/internal/borrow"
	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/lifetime"
	"pyrust/internal/rust"
	"pyrust/internal/trace"
	"pyrust/internal/typeflow"
	"pyrust/internal/types"
)

// retMode selects how return values are produced.
type retMode uint8

const (
	retOwned retMode = iota
	retRef           // &'a str tied to a parameter
	retCow           // Cow<'a, str>
)

type loopFrame struct {
	label string
	// flat loops live in a generator state machine; break and continue
	// jump to states.
	flat          bool
	breakState    int
	continueState int
}

type tryFrame struct {
	label    string
	handlers []*hir.Handler
}

// fnCtx is the lowering state of one function body.
type fnCtx struct {
	g    *gen
	fn   *hir.Func // nil for the main guard
	ft   *typeflow.FuncTypes
	fl   *lifetime.FuncLifetimes
	vars *varInfo

	ret      *types.Type
	retMode  retMode
	fallible bool

	refs     map[string]bool // names bound to references; value reports &mut
	scoped   map[string]int  // comprehension and lambda bindings
	selfName string          // "this" inside a general constructor
	tries    []*tryFrame
	loops    []*loopFrame
	caught   []string // error variables of enclosing handlers
	machine  *machine // non-nil inside a generator state machine
	lambdas  int
	tmp      int

	indexVars map[*hir.Expr]string // hoisted negative subscripts
}

func (g *gen) newFnCtx(fn *hir.Func, ft *typeflow.FuncTypes, body *hir.Block) *fnCtx {
	fc := &fnCtx{
		g:        g,
		fn:       fn,
		ft:       ft,
		refs:     make(map[string]bool),
		scoped:   make(map[string]int),
		selfName: "self",

		indexVars: make(map[*hir.Expr]string),
	}
	if fn != nil {
		fc.fl = g.u.Lifetimes.Func(fn.ID)
		fc.fallible = g.fallible[fn.ID]
		if ft != nil {
			fc.ret = ft.Return
		}
	}
	if fc.ret == nil {
		fc.ret = types.NoneT
	}
	fc.vars = fc.analyzeVars(body)
	return fc
}

// fresh returns a new temporary name.
func (fc *fnCtx) fresh(base string) string {
	fc.tmp++
	return "__" + base + strconv.Itoa(fc.tmp)
}

// strategy is the passing mode of parameter i. Generator state machines
// own their arguments.
func (g *gen) strategy(fn *hir.Func, i int) borrow.Strategy {
	if fn.IsGenerator() {
		return borrow.Owned
	}
	return g.u.Lifetimes.Effective(g.u.Borrow, hir.ParamKey{Func: fn.ID, Index: i})
}

func (g *gen) paramType(fn *hir.Func, i int) *types.Type {
	return g.tf.ParamType(hir.ParamKey{Func: fn.ID, Index: i})
}

func (fc *fnCtx) local(name string) *types.Type {
	if fc.ft == nil || fc.ft.Locals == nil {
		return types.UnknownT
	}
	return fc.ft.Locals.Type(name)
}

// freeFunc lowers a module-level function, or the state machine of a
// generator.
func (g *gen) freeFunc(ctx context.Context, fn *hir.Func) ([]rust.Item, error) {
	_, span := trace.StartSpan(ctx, trace.ScopeFunction, fn.QualName())
	defer span.End("")
	if fn.IsGenerator() {
		return g.generator(fn)
	}
	f, err := g.function(fn)
	if err != nil {
		return nil, err
	}
	if fn.Flags.HasFlag(hir.FuncEntry) {
		f.Pub = false
		f.Name = "main"
		if len(fn.Params) > 0 {
			return nil, diag.Errorf(diag.CodeGenError, fn.Span, "entry point main cannot take parameters")
		}
	}
	return []rust.Item{f}, nil
}

// function lowers a function or method with its signature.
func (g *gen) function(fn *hir.Func) (*rust.Fn, error) {
	fc := g.newFnCtx(fn, g.tf.Func(fn.ID), fn.Body)
	out := &rust.Fn{Doc: fn.Doc, Pub: true, Async: fn.IsAsync(), Name: rust.EscapeIdent(fn.Name)}
	if err := fc.signature(out); err != nil {
		return nil, err
	}
	body, err := fc.body(fn.Body)
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}

// signature fills generics, receiver, parameters and return type.
func (fc *fnCtx) signature(out *rust.Fn) error {
	fn := fc.fn
	if fc.fl != nil && !fc.fl.Elided {
		for _, lt := range fc.fl.Generics {
			gen := "'" + lt
			if b := fc.fl.Bound(lt); b != "" {
				gen += ": '" + b
			}
			out.Generics = append(out.Generics, gen)
		}
	}
	switch fn.Receiver {
	case hir.RecvRef, hir.RecvProperty:
		out.Receiver = "&self"
	case hir.RecvMut:
		out.Receiver = "&mut self"
	}
	for i, p := range fn.Params {
		prm, err := fc.param(i, p)
		if err != nil {
			return err
		}
		out.Params = append(out.Params, prm)
	}
	ret, err := fc.returnType()
	if err != nil {
		return err
	}
	out.Ret = ret
	return nil
}

func (fc *fnCtx) param(i int, p *hir.Param) (rust.Param, error) {
	fn := fc.fn
	pt := fc.g.paramType(fn, i)
	lt := fc.fl.Explicit(i)
	name := rust.EscapeIdent(p.Name)
	switch fc.g.strategy(fn, i) {
	case borrow.BorrowImmutable, borrow.UseCow:
		fc.refs[p.Name] = false
		if pt.Kind == types.Str {
			return rust.Param{Name: name, Type: types.StrRef(lt)}, nil
		}
		r, err := fc.g.rt(pt, p.Span)
		if err != nil {
			return rust.Param{}, err
		}
		return rust.Param{Name: name, Type: types.RefTo(r, false, lt)}, nil
	case borrow.BorrowMutable:
		fc.refs[p.Name] = true
		r, err := fc.g.rt(pt, p.Span)
		if err != nil {
			return rust.Param{}, err
		}
		return rust.Param{Name: name, Type: types.RefTo(r, true, lt)}, nil
	}
	r, err := fc.g.rt(pt, p.Span)
	if err != nil {
		return rust.Param{}, err
	}
	return rust.Param{Name: name, Mut: fc.vars.mut.Contains(p.Name), Type: r}, nil
}

// returnType decides between an owned, a borrowed and a Cow return, and
// wraps fallible functions in Result.
func (fc *fnCtx) returnType() (*types.RustType, error) {
	fn := fc.fn
	var r *types.RustType
	fc.retMode = fc.g.returnModeOf(fn)
	switch {
	case fn.Flags.HasFlag(hir.FuncInit):
		r = types.CustomRust("Self")
	case isStrDunder(fn):
		r = types.RustString
		fc.ret = types.StrT
	case fc.retMode == retRef:
		r = types.StrRef(fc.fl.ExplicitReturn())
	case fc.retMode == retCow:
		lt := fc.fl.ExplicitReturn()
		if lt == "" {
			lt = "_"
		}
		r = types.CowStr(lt)
		fc.g.use("std::borrow::Cow")
	default:
		var err error
		if r, err = fc.g.rt(fc.ret, fn.Span); err != nil {
			return nil, err
		}
	}
	if fc.fallible {
		return resultOf(r), nil
	}
	if r.Kind == types.RUnit {
		return nil, nil
	}
	return r, nil
}

// ownsString reports a body returning a freshly built string: a call to a
// method that produces an owned string forces an owned return even when
// every returned name could be borrowed.
func ownsString(b *hir.Block) bool {
	owned := false
	hir.WalkBlock(b, func(s *hir.Stmt) bool {
		if s.Kind != hir.StmtReturn {
			return true
		}
		hir.InspectExpr(s.Data.(hir.ReturnData).Value, func(e *hir.Expr) bool {
			if d, ok := e.Data.(hir.MethodCallData); ok && stringOwnership(d.Method) == ownedString {
				owned = true
			}
			return !owned
		})
		return !owned
	})
	return owned
}

type strOwnership uint8

const (
	neutralString strOwnership = iota
	ownedString
	viewString
)

var ownedStringMethods = map[string]bool{
	"upper": true, "lower": true, "strip": true, "lstrip": true, "rstrip": true,
	"replace": true, "title": true, "capitalize": true, "casefold": true, "swapcase": true,
	"center": true, "ljust": true, "rjust": true, "zfill": true, "join": true, "format": true,
	"removeprefix": true, "removesuffix": true,
}

var viewStringMethods = map[string]bool{
	"startswith": true, "endswith": true, "find": true, "rfind": true, "index": true,
	"rindex": true, "count": true, "isdigit": true, "isalpha": true, "isalnum": true,
	"isspace": true, "isupper": true, "islower": true, hir.MethodContains: true,
}

// stringOwnership classifies a string method by what it returns.
func stringOwnership(method string) strOwnership {
	switch {
	case ownedStringMethods[method]:
		return ownedString
	case viewStringMethods[method]:
		return viewString
	}
	return neutralString
}

// body lowers a function body, turning a final return into the tail
// expression and adding the implicit return of a body that falls off its
// end.
func (fc *fnCtx) body(b *hir.Block) (*rust.Block, error) {
	out, err := fc.block(b)
	if err != nil {
		return nil, err
	}
	if n := len(out.Stmts); n > 0 {
		if es, ok := out.Stmts[n-1].(*rust.ExprStmt); ok {
			if ret, ok := es.X.(*rust.Return); ok {
				out.Stmts = out.Stmts[:n-1]
				out.Tail = ret.X
				return out, nil
			}
		}
	}
	if b.Terminates() {
		return out, nil
	}
	switch {
	case fc.fn != nil && fc.fn.Flags.HasFlag(hir.FuncInit):
	case fc.fallible && fc.ret.Kind == types.Optional:
		out.Tail = rust.C("Ok", rust.P("None"))
	case fc.ret.Kind == types.Optional:
		out.Tail = rust.P("None")
	case fc.ret.Kind == types.None && fc.fallible:
		out.Tail = rust.C("Ok", &rust.Tuple{})
	case fc.ret.Kind != types.None:
		// Every path returned inside a loop or a try.
		out.Tail = &rust.Macro{Name: "unreachable"}
	}
	return out, nil
}

// returnValue lowers the operand of a return statement, without the Ok
// wrapper.
func (fc *fnCtx) returnValue(e *hir.Expr) (rust.Expr, error) {
	switch fc.retMode {
	case retRef:
		return fc.refReturn(e)
	case retCow:
		return fc.cowReturn(e)
	}
	if e == nil {
		if fc.ret.Kind == types.Optional {
			return rust.P("None"), nil
		}
		return nil, nil
	}
	v, err := fc.expr(e)
	if err != nil {
		return nil, err
	}
	return fc.coerce(v, fc.ret), nil
}

func (fc *fnCtx) refReturn(e *hir.Expr) (rust.Expr, error) {
	if e == nil {
		return nil, diag.Errorf(diag.CodeGenError, fc.fn.Span, "bare return in %s, which returns a borrowed string", fc.fn.QualName())
	}
	switch d := e.Data.(type) {
	case hir.NameData:
		return rust.P(rust.EscapeIdent(d.Name)), nil
	case hir.LiteralData:
		if d.Kind == hir.LiteralStr {
			return rust.L(strText(d.Str)), nil
		}
	case hir.IfExpData:
		cond, err := fc.cond(d.Cond)
		if err != nil {
			return nil, err
		}
		a, err := fc.refReturn(d.Then)
		if err != nil {
			return nil, err
		}
		b, err := fc.refReturn(d.Else)
		if err != nil {
			return nil, err
		}
		return ifElse(cond, a, b), nil
	}
	return nil, diag.Errorf(diag.CodeGenError, e.Span, "cannot return %s by reference", hir.ExprString(e))
}

func (fc *fnCtx) cowReturn(e *hir.Expr) (rust.Expr, error) {
	if e == nil {
		return nil, diag.Errorf(diag.CodeGenError, fc.fn.Span, "bare return in %s, which returns a string", fc.fn.QualName())
	}
	switch d := e.Data.(type) {
	case hir.NameData:
		if _, isRef := fc.refs[d.Name]; isRef {
			return rust.C("Cow::Borrowed", rust.P(rust.EscapeIdent(d.Name))), nil
		}
	case hir.LiteralData:
		if d.Kind == hir.LiteralStr {
			return rust.C("Cow::Borrowed", rust.L(strText(d.Str))), nil
		}
	}
	v, err := fc.expr(e)
	if err != nil {
		return nil, err
	}
	return rust.C("Cow::Owned", fc.coerce(v, types.StrT)), nil
}

func ifElse(cond, a, b rust.Expr) *rust.If {
	return &rust.If{
		Cond: cond,
		Then: &rust.Block{Tail: a},
		Else: &rust.BlockExpr{Block: &rust.Block{Tail: b}},
	}
}

// isStrDunder reports __str__ and __repr__, which return String and back a
// Display impl.
func isStrDunder(fn *hir.Func) bool {
	return fn.IsMethod() && (fn.Name == "__str__" || fn.Name == "__repr__")
}
