// Package driver runs the transpilation pipeline: one module through
// Transpile, or a directory of Python files through TranspileDir.
package driver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"pyrust/internal/ast"
	"pyrust/internal/borrow"
	"pyrust/internal/cargo"
	"pyrust/internal/codegen"
	"pyrust/internal/config"
	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/lifetime"
	"pyrust/internal/observ"
	"pyrust/internal/opt"
	"pyrust/internal/pipeline"
	"pyrust/internal/rust"
	"pyrust/internal/source"
	"pyrust/internal/trace"
	"pyrust/internal/typeflow"
	"pyrust/internal/verify"
)

// GeneratedSource is the result of one successful transpilation.
type GeneratedSource struct {
	// Path is the Python source path the module was parsed from.
	Path string
	Code string
	File *rust.File
	// Module is the HIR the code was generated from, after optimization.
	Module *hir.Module
	// Cargo is the Cargo.toml text, set when the configuration asks for it.
	Cargo    string
	Warnings []diag.Diagnostic
	Opt      *opt.Report
	Timings  observ.Report
}

// HasMain reports whether the generated file defines fn main.
func (g *GeneratedSource) HasMain() bool {
	if g == nil || g.File == nil {
		return false
	}
	for _, it := range g.File.Items {
		if fn, ok := it.(*rust.Fn); ok && fn.Name == "main" {
			return true
		}
	}
	return false
}

// Options carries the per-call collaborators of TranspileWithOptions.
type Options struct {
	// Sink receives a working event as each stage starts and an error event
	// when one fails.
	Sink pipeline.ProgressSink
	// Label names the file in progress events; defaults to the module path.
	Label string
	// Timer records stage durations; a private timer is used when nil.
	Timer *observ.Timer
}

// Transpile lowers a parsed module to Rust source under cfg. The first
// failing stage aborts the run and its diagnostic is returned; no partial
// output is produced.
func Transpile(ctx context.Context, mod *ast.Module, cfg config.Config) (*GeneratedSource, *diag.Diagnostic) {
	return TranspileWithOptions(ctx, mod, cfg, Options{})
}

// TranspileWithOptions is Transpile with progress reporting and timing.
func TranspileWithOptions(ctx context.Context, mod *ast.Module, cfg config.Config, opts Options) (*GeneratedSource, *diag.Diagnostic) {
	if mod == nil {
		d := diag.NewError(diag.DriverIO, source.Span{}, "no module to transpile")
		return nil, &d
	}
	if err := cfg.Validate(); err != nil {
		d := diag.NewError(diag.DriverBadConfig, mod.Span(), err.Error())
		return nil, &d
	}
	r := &run{
		cfg:   cfg,
		opts:  opts,
		bag:   diag.NewBag(0),
		timer: opts.Timer,
		out:   &GeneratedSource{Path: mod.Path},
	}
	if r.timer == nil {
		r.timer = observ.NewTimer()
	}
	if r.opts.Label == "" {
		r.opts.Label = mod.Path
	}
	ctx, span := trace.StartSpan(ctx, trace.ScopeDriver, "transpile")
	span.WithExtra("config", cfg.String())
	if d := r.all(ctx, mod); d != nil {
		span.End("error: " + d.Code.ID())
		return nil, d
	}
	r.bag.Sort()
	r.bag.Dedup()
	r.out.Warnings = r.bag.Items()
	r.out.Timings = r.timer.Report()
	span.End(fmt.Sprintf("%d bytes, %d warnings", len(r.out.Code), len(r.out.Warnings)))
	return r.out, nil
}

type run struct {
	cfg   config.Config
	opts  Options
	bag   *diag.Bag
	timer *observ.Timer
	out   *GeneratedSource

	m   *hir.Module
	tf  *typeflow.Result
	br  *borrow.Result
	lt  *lifetime.Result
	gen *codegen.Unit
}

// stage runs fn as one pipeline stage, checking for cancellation first.
func (r *run) stage(ctx context.Context, s pipeline.Stage, fn func() *diag.Diagnostic) *diag.Diagnostic {
	if err := ctx.Err(); err != nil {
		d := diag.NewError(diag.DriverIO, source.Span{}, err.Error())
		return &d
	}
	pipeline.Emit(r.opts.Sink, pipeline.Event{File: r.opts.Label, Stage: s, Status: pipeline.StatusWorking})
	start := time.Now()
	idx := r.timer.Begin(string(s))
	d := fn()
	note := ""
	if d != nil {
		note = "failed"
		pipeline.Emit(r.opts.Sink, pipeline.Event{
			File: r.opts.Label, Stage: s, Status: pipeline.StatusError,
			Err: errors.New(d.String()), Elapsed: time.Since(start),
		})
	}
	r.timer.End(idx, note)
	return d
}

func (r *run) all(ctx context.Context, mod *ast.Module) *diag.Diagnostic {
	rep := diag.BagReporter{Bag: r.bag}
	steps := []struct {
		stage pipeline.Stage
		fn    func() *diag.Diagnostic
	}{
		{pipeline.StageLower, func() *diag.Diagnostic {
			m, err := hir.Lower(ctx, mod)
			r.m = m
			return diag.AsDiagnostic(err, diag.ConversionError)
		}},
		{pipeline.StageAnalyze, func() *diag.Diagnostic {
			tf, err := typeflow.Infer(ctx, r.m, typeflow.Options{Reporter: rep})
			if err != nil {
				return diag.AsDiagnostic(err, diag.TypeMismatch)
			}
			r.tf = tf
			r.br = borrow.Analyze(ctx, r.m, tf, borrow.Options{Reporter: rep, Strings: r.cfg.Strings})
			r.lt = lifetime.Analyze(ctx, r.m, tf, r.br, lifetime.Options{Reporter: rep})
			return nil
		}},
		{pipeline.StageOptimize, func() *diag.Diagnostic { return r.optimize(ctx) }},
		{pipeline.StageGenerate, func() *diag.Diagnostic { return r.generate(ctx) }},
		{pipeline.StageVerify, r.verify},
	}
	for _, st := range steps {
		if st.stage == pipeline.StageOptimize && r.cfg.OptLevel == opt.LevelNone {
			continue
		}
		if st.stage == pipeline.StageVerify && r.cfg.Verify == verify.LevelNone {
			continue
		}
		if d := r.stage(ctx, st.stage, st.fn); d != nil {
			return d
		}
	}
	r.out.Module = r.m
	if r.cfg.EmitCargo {
		return r.manifest()
	}
	return nil
}

// optimize rewrites the module and refreshes the expression types of the
// rewritten tree. Parameter strategies and lifetimes are kept: the passes
// never change a signature.
func (r *run) optimize(ctx context.Context) *diag.Diagnostic {
	m, rep := opt.Optimize(ctx, r.m, r.tf, opt.Options{Level: r.cfg.OptLevel})
	r.out.Opt = rep
	if !rep.Changed() {
		return nil
	}
	tf, err := typeflow.Infer(ctx, m, typeflow.Options{})
	if err != nil {
		return diag.AsDiagnostic(err, diag.TypeMismatch)
	}
	r.m, r.tf = m, tf
	return nil
}

func (r *run) generate(ctx context.Context) *diag.Diagnostic {
	r.gen = &codegen.Unit{
		Module:    r.m,
		Types:     r.tf,
		Borrow:    r.br,
		Lifetimes: r.lt,
		Options: codegen.Options{
			IntWidth: r.cfg.IntWidth,
			Strings:  r.cfg.Strings,
			Reporter: diag.BagReporter{Bag: r.bag},
		},
	}
	f, err := codegen.Generate(ctx, r.gen)
	if err != nil {
		return diag.AsDiagnostic(err, diag.CodeGenError)
	}
	src := rust.Print(f)
	if err := rust.Validate(src); err != nil {
		d := diag.NewError(diag.CodeGenInvalidRust, r.fileSpan(), "generated source is malformed: "+err.Error())
		return &d
	}
	r.out.File = f
	r.out.Code = src
	return nil
}

func (r *run) fileSpan() source.Span {
	return source.Span{File: r.m.File}
}

func (r *run) verify() *diag.Diagnostic {
	ds := verify.Run(&verify.Unit{
		Module:    r.m,
		Types:     r.tf,
		Borrow:    r.br,
		Lifetimes: r.lt,
		File:      r.out.File,
		Header:    codegen.Header,
	}, r.out.Code, r.cfg.Verify)
	for _, d := range ds {
		if d.Severity == diag.SevError {
			return &d
		}
		r.bag.Add(d)
	}
	return nil
}

func (r *run) manifest() *diag.Diagnostic {
	opts := cargo.Options{
		Name:        r.cfg.CrateName,
		Edition:     r.cfg.Edition,
		RustVersion: r.cfg.RustVersion,
	}
	if opts.Name == "" {
		opts.Name = CrateName(r.out.Path)
	}
	if r.out.HasMain() {
		opts.Main = "src/main.rs"
	} else {
		opts.Lib = "src/lib.rs"
	}
	text, err := cargo.Render(opts)
	if err != nil {
		d := diag.NewError(diag.DriverBadConfig, r.fileSpan(), err.Error())
		return &d
	}
	r.out.Cargo = text
	return nil
}

// CrateName derives a crate name from a source path.
func CrateName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var b strings.Builder
	for i, c := range base {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
			b.WriteRune(c)
		case c >= '0' && c <= '9', c == '-':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "generated"
	}
	return b.String()
}
