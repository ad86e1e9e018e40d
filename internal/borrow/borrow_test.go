package borrow

import (
	"context"
	"strings"
	"testing"

	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/parser"
	"pyrust/internal/source"
	"pyrust/internal/typeflow"
	"pyrust/internal/types"
)

func analyzeSrc(t *testing.T, src string, ss types.StringStrategy) (*hir.Module, *Result, *diag.Bag) {
	t.Helper()
	parsed := parser.ParseString(source.NewFileSet(), "t.py", src, parser.Options{})
	if parsed.Bag.HasErrors() {
		t.Fatalf("parse errors for %q: %v", src, parsed.Bag.Items())
	}
	m, err := hir.Lower(context.Background(), parsed.Module)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	tf, err := typeflow.Infer(context.Background(), m, typeflow.Options{})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	bag := diag.NewBag(0)
	res := Analyze(context.Background(), m, tf, Options{Reporter: diag.BagReporter{Bag: bag}, Strings: ss})
	return m, res, bag
}

func TestStrategies(t *testing.T) {
	tests := []struct {
		name string
		src  string
		fn   string
		want string
	}{
		{"owned ints", "def add(a: int, b: int) -> int:\n    return a + b\n", "add", "a=owned, b=owned"},
		{"read only list", "def total(nums: list[int]) -> int:\n    return len(nums)\n", "total", "nums=&"},
		{"dict pop with default", "def pop_entry(d: dict[str, int], k: str) -> int:\n    return d.pop(k, -1)\n", "pop_entry", "d=&mut, k=&"},
		{"append", "def push(xs: list[int], v: int):\n    xs.append(v)\n", "push", "xs=&mut, v=owned"},
		{"sort", "def order(xs: list[int]):\n    xs.sort()\n", "order", "xs=&mut"},
		{"index store", "def put(d: dict[str, int], k: str):\n    d[k] = 1\n", "put", "d=&mut, k=&"},
		{"nested mutation", "def grow(rows: list[list[int]]):\n    rows[0].append(1)\n", "grow", "rows=&mut"},
		{"del item", "def drop(d: dict[str, int], k: str):\n    del d[k]\n", "drop", "d=&mut, k=&"},
		{"list aug assign", "def more(xs: list[int]):\n    xs += [1]\n", "more", "xs=&mut"},
		{"str aug assign", "def bang(s: str) -> str:\n    s += \"!\"\n    return s\n", "bang", "s=owned"},
		{"escape list", "def same(xs: list[int]) -> list[int]:\n    return xs\n", "same", "xs=owned"},
		{"escape str tied", "def ident(s: str) -> str:\n    return s\n", "ident", "s=&"},
		{"cow", "def norm(s: str, up: bool) -> str:\n    if up:\n        return s.upper()\n    return s\n", "norm", "s=cow, up=owned"},
		{"stored", "def wrap(s: str) -> list[str]:\n    return [s]\n", "wrap", "s=owned"},
		{"captured", "def adder(xs: list[int]):\n    f = lambda i: xs[i]\n    return f(0)\n", "adder", "xs=owned"},
		{"rebound", "def reset(xs: list[int]):\n    xs = []\n    return len(xs)\n", "reset", "xs=owned"},
		{"unused", "def ignore(xs: list[int]):\n    return 1\n", "ignore", "xs=owned"},
		{"alias mutation", "def via(xs: list[int]):\n    ys = xs\n    ys.append(1)\n", "via", "xs=&mut"},
		{"loop read", "def show(xs: list[str]):\n    for x in xs:\n        print(x)\n", "show", "xs=&"},
		{"generator", "def each(xs: list[int]):\n    for x in xs:\n        yield x\n", "each", "xs=owned"},
		{"membership", "def has(xs: set[int], v: int) -> bool:\n    return v in xs\n", "has", "xs=&, v=owned"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, res, _ := analyzeSrc(t, tt.src, types.InferBorrowing)
			if got := res.Summary(m.FuncByName(tt.fn)); got != tt.want {
				t.Errorf("strategies = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReturnTied(t *testing.T) {
	m, res, _ := analyzeSrc(t, "def ident(s: str) -> str:\n    return s\n", types.InferBorrowing)
	d := res.Decision(hir.ParamKey{Func: m.FuncByName("ident").ID, Index: 0})
	if d == nil || !d.ReturnTied {
		t.Fatalf("decision = %+v, want tied borrow", d)
	}
}

func TestStringStrategyOption(t *testing.T) {
	src := "def ident(s: str) -> str:\n    return s\ndef size(s: str) -> int:\n    return len(s)\n"
	tests := []struct {
		strategy types.StringStrategy
		ident    string
		size     string
	}{
		{types.InferBorrowing, "s=&", "s=&"},
		{types.AlwaysOwned, "s=owned", "s=owned"},
		{types.CowByDefault, "s=cow", "s=&"},
	}
	for _, tt := range tests {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			m, res, _ := analyzeSrc(t, src, tt.strategy)
			if got := res.Summary(m.FuncByName("ident")); got != tt.ident {
				t.Errorf("ident = %s, want %s", got, tt.ident)
			}
			if got := res.Summary(m.FuncByName("size")); got != tt.size {
				t.Errorf("size = %s, want %s", got, tt.size)
			}
		})
	}
}

func TestMutationThroughCallee(t *testing.T) {
	src := "def push(xs: list[int]):\n    xs.append(1)\n" +
		"def outer(ys: list[int]):\n    push(ys)\n" +
		"def outermost(zs: list[int]):\n    outer(zs)\n"
	m, res, _ := analyzeSrc(t, src, types.InferBorrowing)
	for _, name := range []string{"push", "outer", "outermost"} {
		fn := m.FuncByName(name)
		if got := res.Strategy(hir.ParamKey{Func: fn.ID, Index: 0}); got != BorrowMutable {
			t.Errorf("%s: strategy = %s, want &mut", name, got)
		}
	}
}

func TestMutatingUserMethod(t *testing.T) {
	src := "class Counter:\n" +
		"    def __init__(self):\n        self.n = 0\n" +
		"    def bump(self):\n        self.n += 1\n" +
		"    def get(self) -> int:\n        return self.n\n" +
		"def tick(c: Counter):\n    c.bump()\n" +
		"def peek(c: Counter) -> int:\n    return c.get()\n"
	m, res, _ := analyzeSrc(t, src, types.InferBorrowing)
	if got := res.Summary(m.FuncByName("tick")); got != "c=&mut" {
		t.Errorf("tick = %s", got)
	}
	if got := res.Summary(m.FuncByName("peek")); got != "c=&" {
		t.Errorf("peek = %s", got)
	}
}

func TestAliasedMutableArguments(t *testing.T) {
	src := "def merge(a: list[int], b: list[int]):\n    a.append(1)\n    b.append(2)\n" +
		"def run(xs: list[int]):\n    merge(xs, xs)\n"
	m, res, bag := analyzeSrc(t, src, types.InferBorrowing)
	if got := res.Summary(m.FuncByName("merge")); got != "a=owned, b=owned" {
		t.Errorf("merge = %s", got)
	}
	if bag.Len() != 2 {
		t.Fatalf("warnings = %d, want 2", bag.Len())
	}
	for _, d := range bag.Items() {
		if d.Code != diag.BorrowAliasApprox || d.Severity != diag.SevWarning {
			t.Errorf("unexpected diagnostic %v", d)
		}
		if !strings.Contains(d.Message, "merge") {
			t.Errorf("message %q does not name the callee", d.Message)
		}
	}
}

func TestAliasedArgumentsInMainGuard(t *testing.T) {
	src := "def both(a: list[int], b: list[int]):\n    a.append(1)\n    b.append(2)\n\n" +
		"if __name__ == \"__main__\":\n    x = [0]\n    both(x, x)\n"
	m, res, bag := analyzeSrc(t, src, types.InferBorrowing)
	if got := res.Summary(m.FuncByName("both")); got != "a=owned, b=owned" {
		t.Errorf("both = %s", got)
	}
	if bag.Len() != 2 || bag.Items()[0].Code != diag.BorrowAliasApprox {
		t.Fatalf("diagnostics = %v", bag.Items())
	}
}

func TestUsageSites(t *testing.T) {
	src := "def f(xs: list[int]):\n    while len(xs) > 0:\n        xs.pop()\n"
	m, res, _ := analyzeSrc(t, src, types.InferBorrowing)
	d := res.Decision(hir.ParamKey{Func: m.FuncByName("f").ID, Index: 0})
	if !d.Usage.InLoop() {
		t.Error("expected loop usage")
	}
	site, ok := d.Usage.First(SiteMutate)
	if !ok || site.Detail != "pop" {
		t.Errorf("mutate site = %+v", site)
	}
	if !strings.Contains(d.Reason, "pop") {
		t.Errorf("reason = %q", d.Reason)
	}
}
