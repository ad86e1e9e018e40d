package opt

import (
	"context"
	"strings"
	"testing"

	"pyrust/internal/hir"
	"pyrust/internal/parser"
	"pyrust/internal/source"
	"pyrust/internal/typeflow"
)

func lowerSrc(t *testing.T, src string) (*hir.Module, *typeflow.Result) {
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
	return m, tf
}

func funcDump(t *testing.T, m *hir.Module, name string) string {
	t.Helper()
	fn := m.FuncByName(name)
	if fn == nil {
		t.Fatalf("no function %s", name)
	}
	var sb strings.Builder
	hir.NewPrinter(&sb, hir.DumpOptions{}).PrintFunc(fn)
	return sb.String()
}

func TestConstProp(t *testing.T) {
	tests := []struct {
		name string
		src  string
		fn   string
		want string
	}{
		{
			"single assignment",
			"def area(w: int) -> int:\n    h = 3\n    return w * h\n",
			"area",
			"def area(w: int) -> int\n  h = 3\n  return (w * 3)\n",
		},
		{
			"chain folds",
			"def f() -> int:\n    x = 2 * 3 + 1\n    y = x * 2\n    return y\n",
			"f",
			"def f() -> int\n  x = 7\n  y = 14\n  return 14\n",
		},
		{
			"for accumulator",
			"def sum_to(n: int) -> int:\n    total = 0\n    for i in range(n):\n        total += i\n    return total\n",
			"sum_to",
			"def sum_to(n: int) -> int\n  total = 0\n  for i in range(n):\n    total += i\n  return total\n",
		},
		{
			"while accumulator",
			"def count(n: int) -> int:\n    i = 0\n    acc = 0\n    while i < n:\n        acc = acc + i\n        i += 1\n    return acc\n",
			"count",
			"def count(n: int) -> int\n  i = 0\n  acc = 0\n  while (i < n):\n    acc = (acc + i)\n    i += 1\n  return acc\n",
		},
		{
			"conditional rebinding",
			"def g(c: bool) -> int:\n    x = 1\n    if c:\n        x = 2\n    return x\n",
			"g",
			"def g(c: bool) -> int\n  x = 1\n  if c:\n    x = 2\n  return x\n",
		},
		{
			"widening annotation",
			"def w() -> float:\n    x: float = 1\n    return x * 2.5\n",
			"w",
			"def w() -> float\n  x: float = 1\n  return (x * 2.5)\n",
		},
		{
			"floor semantics",
			"def fd() -> int:\n    return -7 // 2 + -7 % 2\n",
			"fd",
			"def fd() -> int\n  return -3\n",
		},
		{
			"true division kept",
			"def td() -> float:\n    return 7 / 2\n",
			"td",
			"def td() -> float\n  return (7 / 2)\n",
		},
		{
			"constant condition",
			"def cc(a: int) -> bool:\n    k = 10\n    return k > 5 and a > 0\n",
			"cc",
			"def cc(a: int) -> bool\n  k = 10\n  return (True and (a > 0))\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := lowerSrc(t, tt.src)
			ConstProp(m, &Report{})
			if got := funcDump(t, m, tt.fn); got != tt.want {
				t.Errorf("got\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestFoldIntRange(t *testing.T) {
	if _, ok := foldInt(hir.OpMul, 1<<20, 1<<20); ok {
		t.Fatal("product outside int32 must not fold")
	}
	if _, ok := foldInt(hir.OpFloorDiv, 1, 0); ok {
		t.Fatal("division by zero must not fold")
	}
	if lit, ok := foldInt(hir.OpPow, 2, 10); !ok || lit.Int != 1024 {
		t.Fatalf("2**10 = %v, %v", lit.Int, ok)
	}
	if lit, ok := foldFloat(hir.OpMul, 1.5, 2); !ok || lit.Text != "3.0" {
		t.Fatalf("1.5*2 folded to %q", lit.Text)
	}
}

func TestDeadCode(t *testing.T) {
	tests := []struct {
		name string
		src  string
		fn   string
		want string
	}{
		{
			"after return",
			"def f(x: int) -> int:\n    return x\n    print(x)\n",
			"f",
			"def f(x: int) -> int\n  return x\n",
		},
		{
			"false branch",
			"def f() -> int:\n    if False:\n        return 0\n    return 1\n",
			"f",
			"def f() -> int\n  return 1\n",
		},
		{
			"true branch spliced",
			"def f(x: int) -> int:\n    if True:\n        y = x + 1\n    else:\n        y = 0\n    return y\n",
			"f",
			"def f(x: int) -> int\n  y = (x + 1)\n  return y\n",
		},
		{
			"unused stores",
			"def f(xs: list[int]) -> int:\n    unused = xs.pop()\n    tmp = 5\n    return len(xs)\n",
			"f",
			"def f(xs: list[int]) -> int\n  xs.pop()\n  return len(xs)\n",
		},
		{
			"cascading stores",
			"def f(a: int) -> int:\n    b = a + 1\n    c = b * 2\n    return a\n",
			"f",
			"def f(a: int) -> int\n  return a\n",
		},
		{
			"division may raise",
			"def f(a: int, b: int) -> int:\n    q = a // b\n    return a\n",
			"f",
			"def f(a: int, b: int) -> int\n  (a // b)\n  return a\n",
		},
		{
			"read in loop kept",
			"def f(n: int) -> int:\n    last = 0\n    for i in range(n):\n        last = i\n    return last\n",
			"f",
			"def f(n: int) -> int\n  last = 0\n  for i in range(n):\n    last = i\n  return last\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := lowerSrc(t, tt.src)
			DeadCode(m, &Report{})
			if got := funcDump(t, m, tt.fn); got != tt.want {
				t.Errorf("got\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestCSE(t *testing.T) {
	tests := []struct {
		name string
		src  string
		fn   string
		want string
	}{
		{
			"repeated product",
			"def f(a: int, b: int) -> int:\n    x = a * b + 1\n    y = a * b + 2\n    return x + y\n",
			"f",
			"def f(a: int, b: int) -> int\n  __cse0 = (a * b)\n  x = (__cse0 + 1)\n  y = (__cse0 + 2)\n  return (x + y)\n",
		},
		{
			"operand rebound",
			"def g(a: int, b: int) -> int:\n    x = a + b\n    a = 0\n    y = a + b\n    return x * y\n",
			"g",
			"def g(a: int, b: int) -> int\n  x = (a + b)\n  a = 0\n  y = (a + b)\n  return (x * y)\n",
		},
		{
			"separate branches",
			"def h(a: int, b: int, c: bool) -> int:\n    if c:\n        return a * b\n    return a * b\n",
			"h",
			"def h(a: int, b: int, c: bool) -> int\n  if c:\n    return (a * b)\n  return (a * b)\n",
		},
		{
			"conditional operand",
			"def k(a: int, b: int, c: bool) -> int:\n    x = a * b if c else 0\n    y = a * b\n    return x + y\n",
			"k",
			"def k(a: int, b: int, c: bool) -> int\n  x = ((a * b) if c else 0)\n  y = (a * b)\n  return (x + y)\n",
		},
		{
			"same statement",
			"def s(a: float, b: float) -> float:\n    return (a - b) * (a - b)\n",
			"s",
			"def s(a: float, b: float) -> float\n  __cse0 = (a - b)\n  return (__cse0 * __cse0)\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, tf := lowerSrc(t, tt.src)
			CSE(m, tf, &Report{})
			if got := funcDump(t, m, tt.fn); got != tt.want {
				t.Errorf("got\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestInline(t *testing.T) {
	tests := []struct {
		name string
		src  string
		fn   string
		want string
	}{
		{
			"trivial",
			"def double(x: int) -> int:\n    return x * 2\n\ndef quad(y: int) -> int:\n    return double(y) + double(y)\n",
			"quad",
			"def quad(y: int) -> int\n  return ((y * 2) + (y * 2))\n",
		},
		{
			"recursive",
			"def fact(n: int) -> int:\n    return 1 if n <= 1 else n * fact(n - 1)\n\ndef use() -> int:\n    return fact(5)\n",
			"use",
			"def use() -> int\n  return fact(5)\n",
		},
		{
			"single call site",
			"def scale(v: int, k: int) -> int:\n    w = v * k\n    return w + 1\n\ndef run(a: int) -> int:\n    r = scale(a, 3)\n    return r\n",
			"run",
			"def run(a: int) -> int\n  scale_v = a\n  scale_k = 3\n  scale_w = (scale_v * scale_k)\n  r = (scale_w + 1)\n  return r\n",
		},
		{
			"two call sites",
			"def scale(v: int, k: int) -> int:\n    w = v * k\n    return w + 1\n\ndef run(a: int) -> int:\n    return scale(a, 3) + scale(a, 4)\n",
			"run",
			"def run(a: int) -> int\n  return (scale(a, 3) + scale(a, 4))\n",
		},
		{
			"impure argument",
			"def first(xs: list[int]) -> int:\n    return xs[0]\n\ndef take(xs: list[int]) -> int:\n    return first(xs) + first([xs.pop()])\n",
			"take",
			"def take(xs: list[int]) -> int\n  return (xs[0] + first([xs.pop()]))\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, tf := lowerSrc(t, tt.src)
			Inline(m, tf, DefaultInlineConfig(), &Report{})
			if got := funcDump(t, m, tt.fn); got != tt.want {
				t.Errorf("got\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestInlineDepth(t *testing.T) {
	src := "def a(x: int) -> int:\n    return x + 1\n\n" +
		"def b(x: int) -> int:\n    return a(x)\n\n" +
		"def c(x: int) -> int:\n    return b(x)\n"
	m, tf := lowerSrc(t, src)
	cfg := DefaultInlineConfig()
	cfg.MaxDepth = 1
	Inline(m, tf, cfg, &Report{})
	if got := funcDump(t, m, "b"); got != "def b(x: int) -> int\n  return (x + 1)\n" {
		t.Fatalf("b not inlined:\n%s", got)
	}
	if got := funcDump(t, m, "c"); got != "def c(x: int) -> int\n  return b(x)\n" {
		t.Fatalf("depth limit ignored:\n%s", got)
	}
}

const idempotenceSrc = `def helper(x: int) -> int:
    return x * 3

def once(v: int, k: int) -> int:
    w = v + k
    return w * 2

def body(n: int, a: int, b: int) -> int:
    total = 0
    step = 2
    for i in range(n):
        total += i * step
    x = a * b + helper(a)
    y = a * b - 1
    if False:
        total = 0
    unused = x + 1
    r = once(a, b)
    return total + x + y + r
    print(total)
`

func TestPassesIdempotent(t *testing.T) {
	passes := []struct {
		name string
		run  func(m *hir.Module, tf *typeflow.Result)
	}{
		{"constprop", func(m *hir.Module, _ *typeflow.Result) { ConstProp(m, &Report{}) }},
		{"deadcode", func(m *hir.Module, _ *typeflow.Result) { DeadCode(m, &Report{}) }},
		{"cse", func(m *hir.Module, tf *typeflow.Result) { CSE(m, tf, &Report{}) }},
		{"inline", func(m *hir.Module, tf *typeflow.Result) {
			Inline(m, tf, DefaultInlineConfig(), &Report{})
		}},
	}
	for _, p := range passes {
		t.Run(p.name, func(t *testing.T) {
			m, tf := lowerSrc(t, idempotenceSrc)
			p.run(m, tf)
			first := hir.DumpString(m)
			p.run(m, tf)
			if second := hir.DumpString(m); second != first {
				t.Fatalf("second run changed the module\nfirst:\n%s\nsecond:\n%s", first, second)
			}
		})
	}
}

func TestOptimizeAccumulator(t *testing.T) {
	src := "def sum_list(xs: list[int]) -> int:\n    total = 0\n    for x in xs:\n        total = total + x\n    return total\n"
	m, tf := lowerSrc(t, src)
	out, _ := Optimize(context.Background(), m, tf, Options{Level: MaxLevel})
	got := funcDump(t, out, "sum_list")
	if strings.Contains(got, "return 0") {
		t.Fatalf("accumulator propagated:\n%s", got)
	}
	if !strings.Contains(got, "return total") {
		t.Fatalf("return rewritten:\n%s", got)
	}
}

func TestOptimizeLevels(t *testing.T) {
	src := "def f(a: int, b: int) -> int:\n    k = 4\n    x = a * b + k\n    y = a * b - k\n    return x + y\n"
	tests := []struct {
		level Level
		want  string
	}{
		{LevelNone, "def f(a: int, b: int) -> int\n  k = 4\n  x = ((a * b) + k)\n  y = ((a * b) - k)\n  return (x + y)\n"},
		{LevelBasic, "def f(a: int, b: int) -> int\n  x = ((a * b) + 4)\n  y = ((a * b) - 4)\n  return (x + y)\n"},
		{LevelCSE, "def f(a: int, b: int) -> int\n  __cse0 = (a * b)\n  x = (__cse0 + 4)\n  y = (__cse0 - 4)\n  return (x + y)\n"},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			m, tf := lowerSrc(t, src)
			before := hir.DumpString(m)
			out, rep := Optimize(context.Background(), m, tf, Options{Level: tt.level})
			if got := funcDump(t, out, "f"); got != tt.want {
				t.Errorf("got\n%s\nwant\n%s", got, tt.want)
			}
			if hir.DumpString(m) != before {
				t.Error("input module was modified")
			}
			if tt.level == LevelNone && rep.Changed() {
				t.Errorf("O0 reported changes: %s", rep)
			}
		})
	}
}
