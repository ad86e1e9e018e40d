package lifetime

import (
	"context"
	"testing"

	"pyrust/internal/borrow"
	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/parser"
	"pyrust/internal/source"
	"pyrust/internal/typeflow"
	"pyrust/internal/types"
)

type analyzed struct {
	m   *hir.Module
	br  *borrow.Result
	lt  *Result
	bag *diag.Bag
}

func analyzeSrc(t *testing.T, src string) analyzed {
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
	bag := diag.NewBag(0)
	lt := Analyze(ctx, m, tf, br, Options{Reporter: diag.BagReporter{Bag: bag}})
	return analyzed{m: m, br: br, lt: lt, bag: bag}
}

func (a analyzed) fn(name string) *hir.Func {
	if fn := a.m.FuncByName(name); fn != nil {
		return fn
	}
	for _, fn := range a.m.AllFuncs() {
		if fn.QualName() == name {
			return fn
		}
	}
	return nil
}

func TestSignatures(t *testing.T) {
	tests := []struct {
		name string
		src  string
		fn   string
		want string
	}{
		{"owned only", "def add(a: int, b: int) -> int:\n    return a + b\n", "add", "elided"},
		{"single borrow no return ref", "def total(nums: list[int]) -> int:\n    return len(nums)\n", "total", "elided"},
		{"single borrow returned", "def ident(s: str) -> str:\n    return s\n", "ident", "elided -> 'a"},
		{"two inputs one returned", "def first(s: str, xs: list[int]) -> str:\n    print(len(xs))\n    return s\n", "first", "<'a, 'b> -> 'a"},
		{"two returned", "def pick(a: str, b: str, c: bool) -> str:\n    return a if c else b\n", "pick", "<'a, 'b: 'a> -> 'a"},
		{"literal path", "def label(s: str, c: bool) -> str:\n    if c:\n        return s\n    return \"none\"\n", "label", "elided -> 'a"},
		{"cow", "def norm(s: str, up: bool) -> str:\n    if up:\n        return s.upper()\n    return s\n", "norm", "elided -> 'a"},
		{"two borrows no return ref", "def both(a: list[int], b: list[int]) -> int:\n    return len(a) + len(b)\n", "both", "elided"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := analyzeSrc(t, tt.src)
			fn := a.fn(tt.fn)
			if got := a.lt.Func(fn.ID).String(); got != tt.want {
				t.Errorf("lifetimes = %q, want %q", got, tt.want)
			}
			if a.bag.Len() != 0 {
				t.Errorf("unexpected warnings: %v", a.bag.Items())
			}
		})
	}
}

func TestEveryBorrowedParamIsNamed(t *testing.T) {
	a := analyzeSrc(t, "def f(a: list[int], b: str, n: int) -> int:\n    return len(a) + len(b) + n\n")
	fn := a.fn("f")
	fl := a.lt.Func(fn.ID)
	want := []string{"a", "b", ""}
	for i, w := range want {
		if fl.Params[i] != w {
			t.Errorf("param %d lifetime = %q, want %q", i, fl.Params[i], w)
		}
		if fl.Explicit(i) != "" {
			t.Errorf("param %d should be elided", i)
		}
	}
}

func TestReceiverPriority(t *testing.T) {
	src := "class Box:\n" +
		"    def __init__(self, name: str):\n        self.name = name\n" +
		"    def echo(self, s: str) -> str:\n        print(self.name)\n        return s\n" +
		"    def size(self, s: str) -> int:\n        return len(s)\n"
	a := analyzeSrc(t, src)
	echo := a.lt.Func(a.fn("Box.echo").ID)
	if echo.Elided || echo.ExplicitReturn() != "a" || echo.Explicit(0) != "a" {
		t.Errorf("echo = %s, want explicit 'a tied to s", echo)
	}
	size := a.lt.Func(a.fn("Box.size").ID)
	if !size.Elided {
		t.Errorf("size = %s, want elided", size)
	}
}

func TestConstraints(t *testing.T) {
	a := analyzeSrc(t, "def pick(a: str, b: str, c: bool) -> str:\n    return a if c else b\n")
	fl := a.lt.Func(a.fn("pick").ID)
	want := []Constraint{
		{Kind: Equal, From: ReturnRegion, To: "a"},
		{Kind: AtLeast, From: "a", To: ReturnRegion},
		{Kind: AtLeast, From: "b", To: ReturnRegion},
		{Kind: Outlives, From: "b", To: "a"},
	}
	if len(fl.Constraints) != len(want) {
		t.Fatalf("constraints = %v, want %v", fl.Constraints, want)
	}
	for i := range want {
		if fl.Constraints[i] != want[i] {
			t.Errorf("constraint %d = %v, want %v", i, fl.Constraints[i], want[i])
		}
	}
	if got := fl.Bounds(); len(got) != 1 || got[0].String() != "'b: 'a" {
		t.Errorf("bounds = %v", got)
	}
}

func TestForcedOwned(t *testing.T) {
	tests := []struct {
		name string
		src  string
		fn   string
	}{
		{"owned path", "def f(s: str, c: bool) -> str:\n    if c:\n        return s\n    out = s + \"!\"\n    return out\n", "f"},
		{"optional return", "def f(s: str, c: bool):\n    if c:\n        return s\n", "f"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := analyzeSrc(t, tt.src)
			fn := a.fn(tt.fn)
			key := hir.ParamKey{Func: fn.ID, Index: 0}
			if a.br.Strategy(key) != borrow.BorrowImmutable {
				t.Fatalf("borrow strategy = %s, want & before lifetime analysis", a.br.Strategy(key))
			}
			if got := a.lt.Effective(a.br, key); got != borrow.Owned {
				t.Errorf("effective = %s, want owned", got)
			}
			if a.lt.Tied(key) {
				t.Error("forced parameter still tied")
			}
			if a.bag.Len() != 1 || a.bag.Items()[0].Code != diag.LifetimeForcedOwned {
				t.Errorf("diagnostics = %v", a.bag.Items())
			}
		})
	}
}

func TestName(t *testing.T) {
	cases := map[int]string{0: "a", 1: "b", 25: "z", 26: "a1", 27: "b1"}
	for n, want := range cases {
		if got := Name(n); got != want {
			t.Errorf("Name(%d) = %q, want %q", n, got, want)
		}
	}
}
