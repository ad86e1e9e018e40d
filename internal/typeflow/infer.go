package typeflow

import (
	"context"
	"fmt"

	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/source"
	"pyrust/internal/trace"
	"pyrust/internal/types"
)

// DefaultMaxIterations bounds the fixed-point loops when Options leaves it
// unset.
const DefaultMaxIterations = 8

// Options configures Infer.
type Options struct {
	// Reporter receives warnings such as TypeUnknownFallback. May be nil.
	Reporter diag.Reporter
	// MaxIterations bounds both the per-function and the module-level
	// fixed-point loops.
	MaxIterations int
}

// Infer computes types for every expression, parameter, local, field and
// constant of m. A proven conflict with a declared annotation is returned
// as a *diag.Error with code TypeMismatch; everything else degrades to
// Unknown.
func Infer(ctx context.Context, m *hir.Module, opts Options) (*Result, error) {
	_, span := trace.StartSpan(ctx, trace.ScopeStage, "typeflow")
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	in := &inferer{m: m, res: newResult(), opts: opts}
	in.seed()

	rounds := 0
	for rounds < opts.MaxIterations {
		rounds++
		before := in.fingerprint()
		in.pass()
		if in.fingerprint() == before {
			break
		}
	}

	in.checking = true
	in.pass()
	in.reportUnknownParams()
	if in.mismatch != nil {
		span.End("mismatch")
		return nil, in.mismatch
	}
	span.End(fmt.Sprintf("%d funcs, %d exprs, %d rounds", len(in.res.Funcs), len(in.res.Exprs), rounds))
	return in.res, nil
}

type inferer struct {
	m    *hir.Module
	res  *Result
	opts Options

	// checking is set for the final pass, which reports instead of learning.
	checking bool
	mismatch *diag.Error

	// callHints collects argument types observed at call sites of
	// unannotated parameters.
	callHints map[hir.ParamKey]*types.Type
}

// funcCtx is the state of one function body walk.
type funcCtx struct {
	fn  *hir.Func // nil for the main guard
	ft  *FuncTypes
	env *Env
	ret *types.Type

	// narrow counts the open regions in which an Optional name is known
	// to hold a value.
	narrow map[string]int
}

func (in *inferer) seed() {
	for _, c := range in.m.Consts {
		t := c.Type
		if t == nil {
			t = types.UnknownT
		}
		in.res.Consts[c.Name] = t
	}
	for _, cls := range in.m.Classes {
		fields := make(map[string]*types.Type, len(cls.Fields))
		for _, f := range cls.Fields {
			t := f.Type
			if t == nil {
				t = types.UnknownT
			}
			fields[f.Name] = t
		}
		in.res.Fields[cls.Name] = fields
	}
	for _, fn := range in.m.AllFuncs() {
		ft := &FuncTypes{Params: make([]*types.Type, len(fn.Params)), Return: types.UnknownT}
		for i, p := range fn.Params {
			ft.Params[i] = declared(p.Type)
		}
		if fn.Returns != nil {
			ft.Return = fn.Returns
		}
		in.res.Funcs[fn.ID] = ft
	}
	if in.m.Main != nil {
		in.res.Main = &FuncTypes{Return: types.NoneT}
	}
}

func declared(t *types.Type) *types.Type {
	if t == nil {
		return types.UnknownT
	}
	return t
}

// pass walks every body once.
func (in *inferer) pass() {
	in.callHints = make(map[hir.ParamKey]*types.Type)
	for _, c := range in.m.Consts {
		if c.Value == nil {
			continue
		}
		fc := &funcCtx{env: NewEnv(nil), ret: types.UnknownT}
		t := in.expr(fc, c.Value)
		if c.Type == nil {
			in.res.Consts[c.Name] = types.Join(in.res.Consts[c.Name], t)
		} else {
			in.expect(c.Type, t, c.Value.Span, "constant "+c.Name)
		}
	}
	for _, fn := range in.m.AllFuncs() {
		in.function(fn)
	}
	if in.m.Main != nil {
		fc := &funcCtx{ft: in.res.Main, env: NewEnv(nil), ret: types.NoneT}
		in.fixpoint(fc, in.m.Main)
		in.res.Main.Locals = fc.env
	}
	if in.checking {
		return
	}
	for key, t := range in.callHints {
		ft := in.res.Funcs[key.Func]
		if ft == nil || key.Index >= len(ft.Params) {
			continue
		}
		fn := in.m.FuncByID(key.Func)
		if fn != nil && fn.Params[key.Index].Type != nil {
			continue
		}
		ft.Params[key.Index] = types.Refine(ft.Params[key.Index], t)
	}
}

func (in *inferer) function(fn *hir.Func) {
	ft := in.res.Funcs[fn.ID]
	env := NewEnv(nil)
	if fn.Receiver.TakesSelf() && fn.Class != "" {
		env.Declare("self", types.CustomT(fn.Class))
	}
	for i, p := range fn.Params {
		if p.Type != nil {
			env.Declare(p.Name, p.Type)
		} else {
			env.BindLocal(p.Name, ft.Params[i])
		}
	}
	fc := &funcCtx{fn: fn, ft: ft, env: env, ret: types.UnknownT}
	in.fixpoint(fc, fn.Body)

	// Usage hints learned for unannotated parameters flow back into the
	// signature.
	for i, p := range fn.Params {
		if p.Type == nil {
			ft.Params[i] = types.Refine(ft.Params[i], env.Type(p.Name))
		}
	}
	ft.Locals = env

	switch {
	case fn.IsGenerator():
		ft.Yield = fc.yieldType()
		if fn.Returns == nil {
			ft.Return = types.IteratorOf(ft.Yield)
		}
	case fn.Returns != nil:
	case fn.Flags.HasFlag(hir.FuncInit):
		ft.Return = types.NoneT
	default:
		ret := fc.ret
		if !fn.Body.Terminates() {
			ret = types.Join(ret, types.NoneT)
		}
		if ret.IsUnknown() && !hasValueReturn(fn.Body) {
			ret = types.NoneT
		}
		ft.Return = ret
	}
}

func (fc *funcCtx) yieldType() *types.Type {
	if fc.ft.Yield == nil {
		return types.UnknownT
	}
	return fc.ft.Yield
}

// fixpoint walks b until the environment stops changing.
func (in *inferer) fixpoint(fc *funcCtx, b *hir.Block) {
	for i := 0; i < in.opts.MaxIterations; i++ {
		before := fc.env.Snapshot() + "|" + fc.ret.String()
		in.block(fc, b)
		if fc.env.Snapshot()+"|"+fc.ret.String() == before {
			return
		}
	}
}

func hasValueReturn(b *hir.Block) bool {
	found := false
	hir.WalkBlock(b, func(s *hir.Stmt) bool {
		if s.Kind == hir.StmtReturn && s.Data.(hir.ReturnData).Value != nil {
			found = true
		}
		return !found
	})
	return found
}

func (in *inferer) fingerprint() string {
	var sb []byte
	for _, fn := range in.m.AllFuncs() {
		ft := in.res.Funcs[fn.ID]
		for _, p := range ft.Params {
			sb = append(sb, p.String()...)
			sb = append(sb, ',')
		}
		sb = append(sb, ft.Return.String()...)
		sb = append(sb, ';')
	}
	for _, cls := range in.m.Classes {
		for _, f := range cls.Fields {
			sb = append(sb, in.res.Fields[cls.Name][f.Name].String()...)
			sb = append(sb, ',')
		}
	}
	for _, c := range in.m.Consts {
		sb = append(sb, in.res.Consts[c.Name].String()...)
	}
	return string(sb)
}

// expect checks that actual may flow into a slot of type want.
func (in *inferer) expect(want, actual *types.Type, sp source.Span, context string) {
	if !in.checking || in.mismatch != nil || compatible(want, actual) {
		return
	}
	in.mismatch = diag.Errorf(diag.TypeMismatch, sp, "%s: expected %s, found %s", context, want, actual)
}

func (in *inferer) reportUnknownParams() {
	for _, fn := range in.m.AllFuncs() {
		ft := in.res.Funcs[fn.ID]
		for i, p := range fn.Params {
			if p.Type == nil && ft.Params[i].IsUnknown() {
				diag.ReportWarning(in.opts.Reporter, diag.TypeUnknownFallback, p.Span,
					fmt.Sprintf("type of parameter %s of %s could not be inferred", p.Name, fn.QualName())).Emit()
			}
		}
	}
}
