package verify

import (
	"context"
	"strings"
	"testing"

	"pyrust/internal/borrow"
	"pyrust/internal/codegen"
	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/lifetime"
	"pyrust/internal/parser"
	"pyrust/internal/rust"
	"pyrust/internal/source"
	"pyrust/internal/typeflow"
	"pyrust/internal/types"
)

func build(t *testing.T, src string) (*Unit, string) {
	t.Helper()
	parsed := parser.ParseString(source.NewFileSet(), "t.py", src, parser.Options{})
	if parsed.Bag.HasErrors() {
		t.Fatalf("parse errors for %q: %v", src, parsed.Bag.Items())
	}
	ctx := context.Background()
	m, err := hir.Lower(ctx, parsed.Module)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	tf, err := typeflow.Infer(ctx, m, typeflow.Options{})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	br := borrow.Analyze(ctx, m, tf, borrow.Options{Strings: types.InferBorrowing})
	lt := lifetime.Analyze(ctx, m, tf, br, lifetime.Options{})
	f, err := codegen.Generate(ctx, &codegen.Unit{
		Module: m, Types: tf, Borrow: br, Lifetimes: lt,
		Options: codegen.Options{IntWidth: types.WidthI32, Strings: types.InferBorrowing},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	u := &Unit{Module: m, Types: tf, Borrow: br, Lifetimes: lt, File: f, Header: codegen.Header}
	return u, rust.Print(f)
}

func errorsIn(ds []diag.Diagnostic) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range ds {
		if d.Severity == diag.SevError {
			out = append(out, d)
		}
	}
	return out
}

const sample = `def total(nums: list[int]) -> int:
    return len(nums)

def pop_entry(d: dict[str, int], k: str) -> int:
    return d.pop(k, -1)

def add(a: int, b: int) -> int:
    return a + b
`

func TestRunClean(t *testing.T) {
	u, src := build(t, sample)
	for _, lvl := range []Level{LevelBasic, LevelStrict} {
		if ds := Run(u, src, lvl); len(ds) != 0 {
			t.Errorf("%s: unexpected diagnostics: %v", lvl, ds)
		}
	}
	if ds := Run(u, "}", LevelNone); ds != nil {
		t.Errorf("none level produced %v", ds)
	}
}

func TestRunDetectsMismatch(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(u *Unit, src string) string
		want   string
	}{
		{
			name: "malformed text",
			mutate: func(u *Unit, src string) string {
				return src + "\nfn broken() {\n"
			},
			want: "malformed",
		},
		{
			name: "missing header",
			mutate: func(u *Unit, src string) string {
				_, rest, _ := strings.Cut(src, "\n")
				return rest
			},
			want: "header",
		},
		{
			name: "owned parameter emitted as reference",
			mutate: func(u *Unit, src string) string {
				for _, it := range u.File.Items {
					if fn, ok := it.(*rust.Fn); ok && fn.Name == "add" {
						fn.Params[0].Type = types.RefTo(fn.Params[0].Type, false, "")
					}
				}
				return src
			},
			want: "parameter a of add is owned",
		},
		{
			name: "parameters reordered",
			mutate: func(u *Unit, src string) string {
				for _, it := range u.File.Items {
					if fn, ok := it.(*rust.Fn); ok && fn.Name == "pop_entry" {
						fn.Params[0], fn.Params[1] = fn.Params[1], fn.Params[0]
					}
				}
				return src
			},
			want: "parameter 0 of pop_entry is d",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, src := build(t, sample)
			src = tt.mutate(u, src)
			errs := errorsIn(Run(u, src, LevelBasic))
			if len(errs) == 0 {
				t.Fatal("expected a verification failure")
			}
			found := false
			for _, d := range errs {
				if d.Code != diag.VerificationFailure {
					t.Errorf("code = %v, want %v", d.Code, diag.VerificationFailure)
				}
				if strings.Contains(d.Message, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("no diagnostic mentions %q: %v", tt.want, errs)
			}
		})
	}
}

func TestStrictWarnsOnFallthrough(t *testing.T) {
	src := "def first_neg(xs: list[int]) -> int:\n    for x in xs:\n        if x < 0:\n            return x\n"
	u, out := build(t, src)
	if ds := Run(u, out, LevelBasic); len(ds) != 0 {
		t.Fatalf("basic: unexpected diagnostics: %v", ds)
	}
	ds := Run(u, out, LevelStrict)
	if len(ds) != 1 || ds[0].Severity != diag.SevWarning || !strings.Contains(ds[0].Message, "first_neg") {
		t.Fatalf("strict diagnostics = %v", ds)
	}
}

func TestStrictRejectsForeignUse(t *testing.T) {
	u, src := build(t, sample)
	u.File.Uses = append(u.File.Uses, "serde::Serialize")
	errs := errorsIn(Run(u, src, LevelStrict))
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "serde::Serialize") {
		t.Fatalf("errors = %v", errs)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		err  bool
	}{
		{"none", LevelNone, false},
		{"", LevelNone, false},
		{"Basic", LevelBasic, false},
		{"strict", LevelStrict, false},
		{"paranoid", LevelNone, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}
