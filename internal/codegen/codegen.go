// Package codegen lowers an annotated HIR module into a Rust syntax tree.
//
// Lowering dispatches on node kind; every kind has an explicit rule and a
// node without one aborts with a CodeGenError. Types come from the
// type-flow side table, parameter passing from the borrowing analysis and
// signature lifetimes from the lifetime analysis. None of those tables is
// recomputed here.
package codegen

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-set/v3"

	"pyrust/internal/borrow"
	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/lifetime"
	"pyrust/internal/rust"
	"pyrust/internal/source"
	"pyrust/internal/trace"
	"pyrust/internal/typeflow"
	"pyrust/internal/types"
)

// Header is the first line of every generated file.
const Header = "Generated by pyrust. Do not edit."

var fileAttrs = []string{
	"allow(unused_variables, unused_mut, unused_assignments, unused_parens, dead_code, non_snake_case)",
}

// Options configures Generate.
type Options struct {
	IntWidth types.IntWidth
	Strings  types.StringStrategy
	// Reporter receives warnings. May be nil.
	Reporter diag.Reporter
}

// Unit is a fully annotated module ready for lowering.
type Unit struct {
	Module    *hir.Module
	Types     *typeflow.Result
	Borrow    *borrow.Result
	Lifetimes *lifetime.Result
	Options   Options
}

type gen struct {
	u   *Unit
	m   *hir.Module
	tf  *typeflow.Result
	cfg types.MapConfig

	uses     *set.Set[string]
	helpers  *set.Set[string]
	errTypes []string
	errSeen  *set.Set[string]
	fallible map[hir.FuncID]bool
	mainErr  bool
}

// Generate lowers u into a Rust file. The first construct that cannot be
// lowered aborts generation with a *diag.Error.
func Generate(ctx context.Context, u *Unit) (*rust.File, error) {
	ctx, span := trace.StartSpan(ctx, trace.ScopeStage, "codegen")
	if u.Options.Reporter == nil {
		u.Options.Reporter = diag.NopReporter{}
	}
	g := &gen{
		u:  u,
		m:  u.Module,
		tf: u.Types,
		// Value positions always hold owned strings; borrowed and Cow
		// strings only appear in signatures.
		cfg:     types.MapConfig{IntWidth: u.Options.IntWidth, Strings: types.AlwaysOwned},
		uses:    set.New[string](0),
		helpers: set.New[string](0),
		errSeen: set.New[string](0),
	}
	f, err := g.file(ctx)
	if err != nil {
		span.End("error")
		return nil, err
	}
	span.End(fmt.Sprintf("%d items, %d error types", len(f.Items), len(g.errTypes)))
	return f, nil
}

func (g *gen) file(ctx context.Context) (*rust.File, error) {
	if err := g.checkImports(); err != nil {
		return nil, err
	}
	g.fallible, g.mainErr = g.fallibility()

	var consts, classes, funcs, entry []rust.Item
	for _, c := range g.m.Consts {
		it, err := g.constant(c)
		if err != nil {
			return nil, err
		}
		consts = append(consts, it)
	}
	for _, c := range g.m.Classes {
		items, err := g.class(ctx, c)
		if err != nil {
			return nil, err
		}
		classes = append(classes, items...)
	}
	for _, fn := range g.m.Funcs {
		items, err := g.freeFunc(ctx, fn)
		if err != nil {
			return nil, err
		}
		if fn.Flags.HasFlag(hir.FuncEntry) {
			entry = append(entry, items...)
			continue
		}
		funcs = append(funcs, items...)
	}
	if g.m.Main != nil {
		it, err := g.mainGuard(ctx)
		if err != nil {
			return nil, err
		}
		entry = append(entry, it)
	}

	f := &rust.File{Header: []string{Header}, Attrs: fileAttrs}
	if g.m.Doc != "" {
		f.Header = append(f.Header, "")
		f.Header = append(f.Header, strings.Split(strings.TrimRight(g.m.Doc, "\n"), "\n")...)
	}
	f.Items = append(f.Items, g.errorItems()...)
	f.Items = append(f.Items, g.helperItems()...)
	f.Items = append(f.Items, consts...)
	f.Items = append(f.Items, classes...)
	f.Items = append(f.Items, funcs...)
	f.Items = append(f.Items, entry...)
	f.Uses = g.uses.Slice()
	return f, nil
}

// checkImports rejects modules without a std mapping. Type-only imports are
// dropped by lowering.
func (g *gen) checkImports() error {
	for _, imp := range g.m.Imports {
		if hir.IsTypeOnlyModule(imp.Module) || hir.IsStdModule(imp.Module) {
			continue
		}
		return diag.Unsupported(imp.Span, "import of module "+imp.Module)
	}
	return nil
}

func (g *gen) use(path string) { g.uses.Insert(path) }

// rt maps a Python type to its owned Rust form, rejecting types without one.
func (g *gen) rt(t *types.Type, sp source.Span) (*types.RustType, error) {
	r := types.Map(t, g.cfg)
	if name, bad := types.Unsupported(r); bad {
		return nil, diag.Errorf(diag.CodeGenError, sp, "type %s has no Rust representation (%s)", t, name)
	}
	g.noteType(r)
	return r, nil
}

// noteType records the imports a type needs.
func (g *gen) noteType(r *types.RustType) {
	if r == nil {
		return
	}
	switch r.Kind {
	case types.RHashMap:
		g.use("std::collections::HashMap")
	case types.RHashSet:
		g.use("std::collections::HashSet")
	case types.RCow:
		g.use("std::borrow::Cow")
	}
	for _, e := range r.Elems {
		g.noteType(e)
	}
}

func (g *gen) mainGuard(ctx context.Context) (rust.Item, error) {
	_, span := trace.StartSpan(ctx, trace.ScopeFunction, "__main__")
	defer span.End("")
	fc := g.newFnCtx(nil, g.tf.Main, g.m.Main)
	fc.fallible = g.mainErr
	fc.ret = types.NoneT
	body, err := fc.body(g.m.Main)
	if err != nil {
		return nil, err
	}
	fn := &rust.Fn{Name: "main", Body: body}
	if fc.fallible {
		fn.Ret = resultOf(types.RustUnit)
	}
	return fn, nil
}
