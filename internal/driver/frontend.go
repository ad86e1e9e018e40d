package driver

import (
	"context"
	"strings"

	"pyrust/internal/ast"
	"pyrust/internal/borrow"
	"pyrust/internal/config"
	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/lexer"
	"pyrust/internal/lifetime"
	"pyrust/internal/parser"
	"pyrust/internal/source"
	"pyrust/internal/token"
	"pyrust/internal/typeflow"
)

type TokenizeResult struct {
	FileSet *source.FileSet
	File    *source.File
	Tokens  []token.Token
	Bag     *diag.Bag
}

// Tokenize loads path and lexes it.
func Tokenize(path string, maxDiagnostics int) (*TokenizeResult, error) {
	fs := source.NewFileSet()
	fileID, err := fs.Load(path)
	if err != nil {
		return nil, err
	}
	file := fs.Get(fileID)
	bag := diag.NewBag(maxDiagnostics)
	tokens := lexer.Tokenize(file, diag.BagReporter{Bag: bag})
	return &TokenizeResult{FileSet: fs, File: file, Tokens: tokens, Bag: bag}, nil
}

type ParseResult struct {
	FileSet *source.FileSet
	File    *source.File
	Module  *ast.Module
	Bag     *diag.Bag
}

// Parse loads path and parses it.
func Parse(path string, maxDiagnostics int) (*ParseResult, error) {
	fs := source.NewFileSet()
	fileID, err := fs.Load(path)
	if err != nil {
		return nil, err
	}
	return parseLoaded(fs, fileID, maxDiagnostics), nil
}

func parseLoaded(fs *source.FileSet, id source.FileID, maxDiagnostics int) *ParseResult {
	res := parser.ParseFile(fs, id, parser.Options{MaxErrors: maxDiagnostics})
	return &ParseResult{FileSet: fs, File: fs.Get(id), Module: res.Module, Bag: res.Bag}
}

// FirstError returns the first error of the parse, nil when there is none.
func (p *ParseResult) FirstError() *diag.Diagnostic {
	if p == nil || p.Bag == nil {
		return nil
	}
	if d, ok := p.Bag.FirstError(); ok {
		return &d
	}
	return nil
}

// TranspileFile parses path and transpiles it. The FileSet is returned
// for rendering diagnostics even when the run fails.
func TranspileFile(ctx context.Context, path string, cfg config.Config) (*source.FileSet, *GeneratedSource, *diag.Diagnostic) {
	p, err := Parse(path, 0)
	if err != nil {
		d := diag.NewError(diag.DriverIO, source.Span{}, err.Error())
		return nil, nil, &d
	}
	if d := p.FirstError(); d != nil {
		return p.FileSet, nil, d
	}
	out, d := Transpile(ctx, p.Module, cfg)
	return p.FileSet, out, d
}

// Analysis is a module lowered to HIR with its side tables, used by the
// hir dump.
type Analysis struct {
	Module    *hir.Module
	Types     *typeflow.Result
	Borrow    *borrow.Result
	Lifetimes *lifetime.Result
	Warnings  *diag.Bag
}

// Analyze runs the pipeline up to the lifetime analysis.
func Analyze(ctx context.Context, mod *ast.Module, cfg config.Config) (*Analysis, *diag.Diagnostic) {
	bag := diag.NewBag(0)
	rep := diag.BagReporter{Bag: bag}
	m, err := hir.Lower(ctx, mod)
	if err != nil {
		return nil, diag.AsDiagnostic(err, diag.ConversionError)
	}
	tf, err := typeflow.Infer(ctx, m, typeflow.Options{Reporter: rep})
	if err != nil {
		return nil, diag.AsDiagnostic(err, diag.TypeMismatch)
	}
	br := borrow.Analyze(ctx, m, tf, borrow.Options{Reporter: rep, Strings: cfg.Strings})
	lt := lifetime.Analyze(ctx, m, tf, br, lifetime.Options{Reporter: rep})
	return &Analysis{Module: m, Types: tf, Borrow: br, Lifetimes: lt, Warnings: bag}, nil
}

// Dump renders the HIR annotated with parameter strategies, inferred
// return types and signature lifetimes.
func (a *Analysis) Dump() string {
	var sb strings.Builder
	_ = hir.DumpWithOptions(&sb, a.Module, hir.DumpOptions{
		ParamNote: a.Borrow.Note,
		FuncNote: func(f *hir.Func) string {
			var parts []string
			if ft := a.Types.Func(f.ID); ft != nil && ft.Return != nil {
				parts = append(parts, "returns "+ft.Return.String())
			}
			if fl := a.Lifetimes.Func(f.ID); fl != nil {
				parts = append(parts, "lifetimes "+fl.String())
			}
			return strings.Join(parts, "; ")
		},
	})
	return sb.String()
}
