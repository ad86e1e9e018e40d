package typeflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/parser"
	"pyrust/internal/source"
	"pyrust/internal/types"
)

func inferSrc(t *testing.T, src string) (*hir.Module, *Result, *diag.Bag, error) {
	t.Helper()
	parsed := parser.ParseString(source.NewFileSet(), "t.py", src, parser.Options{})
	if parsed.Bag.HasErrors() {
		t.Fatalf("parse errors for %q: %v", src, parsed.Bag.Items())
	}
	m, err := hir.Lower(context.Background(), parsed.Module)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	bag := diag.NewBag(0)
	res, err := Infer(context.Background(), m, Options{Reporter: diag.BagReporter{Bag: bag}})
	return m, res, bag, err
}

func mustInfer(t *testing.T, src string) (*hir.Module, *Result) {
	t.Helper()
	m, res, _, err := inferSrc(t, src)
	if err != nil {
		t.Fatalf("Infer(%q): %v", src, err)
	}
	return m, res
}

func signature(m *hir.Module, res *Result, name string) string {
	fn := m.FuncByName(name)
	ft := res.Func(fn.ID)
	parts := make([]string, len(ft.Params))
	for i, p := range ft.Params {
		parts[i] = p.String()
	}
	return "(" + strings.Join(parts, ", ") + ") -> " + ft.Return.String()
}

func TestInferSignatures(t *testing.T) {
	tests := []struct {
		name string
		src  string
		fn   string
		want string
	}{
		{"annotated add", "def add(a: int, b: int) -> int:\n    return a + b\n", "add", "(int, int) -> int"},
		{"len of list", "def total(nums: list[int]) -> int:\n    return len(nums)\n", "total", "(list[int]) -> int"},
		{"dict pop", "def pop_entry(d: dict[str, int], k: str) -> int:\n    return d.pop(k, -1)\n", "pop_entry", "(dict[str, int], str) -> int"},
		{"generator", "def counter(n):\n    i = 0\n    while i < n:\n        yield i\n        i += 1\n", "counter", "(int) -> Iterator[int]"},
		{"true division", "def mean(a: int, b: int):\n    return a / b\n", "mean", "(int, int) -> float"},
		{"floor division", "def half(a: int):\n    return a // 2\n", "half", "(int) -> int"},
		{"str concat", "def greet(name: str):\n    return \"hi \" + name\n", "greet", "(str) -> str"},
		{"param from str method", "def shout(s):\n    return s.upper()\n", "shout", "(str) -> str"},
		{"param from arithmetic", "def inc(x):\n    return x + 1\n", "inc", "(int) -> int"},
		{"no return", "def show(x: int):\n    print(x)\n", "show", "(int) -> None"},
		{"optional return", "def find(xs: list[int], v: int):\n    for x in xs:\n        if x == v:\n            return x\n", "find", "(list[int], int) -> Optional[int]"},
		{"dict get", "def lookup(d: dict[str, int], k: str):\n    return d.get(k)\n", "lookup", "(dict[str, int], str) -> Optional[int]"},
		{"dict get default", "def lookup(d: dict[str, int], k: str):\n    return d.get(k, 0)\n", "lookup", "(dict[str, int], str) -> int"},
		{"sorted", "def order(xs: list[str]):\n    return sorted(xs)\n", "order", "(list[str]) -> list[str]"},
		{"comprehension", "def squares(n: int):\n    return [i * i for i in range(n)]\n", "squares", "(int) -> list[int]"},
		{"dict comprehension", "def index(words: list[str]):\n    return {w: len(w) for w in words}\n", "index", "(list[str]) -> dict[str, int]"},
		{"math", "import math\ndef norm(x: float, y: float):\n    return math.sqrt(x * x + y * y)\n", "norm", "(float, float) -> float"},
		{"split", "def words(s: str):\n    return s.split()\n", "words", "(str) -> list[str]"},
		{"call return", "def one() -> int:\n    return 1\ndef two():\n    return one() + one()\n", "two", "() -> int"},
		{"call site hint", "def double(x):\n    return x * 2\ndef main():\n    double(3)\n", "double", "(int) -> int"},
		{"fstring", "def label(n: int):\n    return f\"n={n}\"\n", "label", "(int) -> str"},
		{"tuple", "def pair(a: int, b: str):\n    return (a, b)\n", "pair", "(int, str) -> tuple[int, str]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, res := mustInfer(t, tt.src)
			if got := signature(m, res, tt.fn); got != tt.want {
				t.Errorf("signature = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestInferLocals(t *testing.T) {
	src := "def build():\n" +
		"    items = []\n" +
		"    for i in range(3):\n" +
		"        items.append(str(i))\n" +
		"    seen = set()\n" +
		"    seen.add(1)\n" +
		"    counts = {}\n" +
		"    counts[\"a\"] = 1\n" +
		"    total = 0\n" +
		"    for n in [1, 2]:\n" +
		"        total += n\n" +
		"    ratio = total / 2\n" +
		"    a, b = 1, \"x\"\n" +
		"    return items\n"
	m, res := mustInfer(t, src)
	fn := m.FuncByName("build")
	want := map[string]string{
		"items":  "list[str]",
		"seen":   "set[int]",
		"counts": "dict[str, int]",
		"total":  "int",
		"ratio":  "float",
		"a":      "int",
		"b":      "str",
		"i":      "int",
	}
	for name, w := range want {
		if got := res.Local(fn.ID, name).String(); got != w {
			t.Errorf("local %s = %s, want %s", name, got, w)
		}
	}
	if got := res.Func(fn.ID).Return.String(); got != "list[str]" {
		t.Errorf("return = %s, want list[str]", got)
	}
}

func TestInferComprehensionScope(t *testing.T) {
	src := "def f(xs: list[str]):\n    x = 1\n    ys = [x for x in xs]\n    return x\n"
	m, res := mustInfer(t, src)
	fn := m.FuncByName("f")
	if got := res.Local(fn.ID, "x").String(); got != "int" {
		t.Errorf("x leaked from comprehension: %s", got)
	}
	if got := res.Local(fn.ID, "ys").String(); got != "list[str]" {
		t.Errorf("ys = %s", got)
	}
}

func TestInferClassFields(t *testing.T) {
	src := "class Counter:\n" +
		"    def __init__(self, start: int):\n" +
		"        self.count = start\n" +
		"        self.name = \"c\"\n" +
		"    def bump(self):\n" +
		"        self.count += 1\n" +
		"        return self.count\n" +
		"def use():\n" +
		"    c = Counter(1)\n" +
		"    return c.bump()\n"
	m, res := mustInfer(t, src)
	if got := res.Field("Counter", "count").String(); got != "int" {
		t.Errorf("count = %s", got)
	}
	if got := res.Field("Counter", "name").String(); got != "str" {
		t.Errorf("name = %s", got)
	}
	if got := signature(m, res, "use"); got != "() -> int" {
		t.Errorf("use = %s", got)
	}
}

func TestInferConstsAndMain(t *testing.T) {
	src := "LIMIT = 10\nNAME = \"x\"\ndef f():\n    return LIMIT * 2\nif __name__ == \"__main__\":\n    v = f()\n"
	m, res := mustInfer(t, src)
	if got := res.Consts["LIMIT"].String(); got != "int" {
		t.Errorf("LIMIT = %s", got)
	}
	if got := res.Consts["NAME"].String(); got != "str" {
		t.Errorf("NAME = %s", got)
	}
	if got := signature(m, res, "f"); got != "() -> int" {
		t.Errorf("f = %s", got)
	}
	if res.Main == nil || res.Main.Locals.Type("v").String() != "int" {
		t.Errorf("main local v not inferred")
	}
}

func TestInferExprTypes(t *testing.T) {
	m, res := mustInfer(t, "def f(a: int, b: int) -> float:\n    return a / b\n")
	ret := m.FuncByName("f").Body.Stmts[0].Data.(hir.ReturnData).Value
	bin := ret.Data.(hir.BinaryData)
	if got := res.TypeOf(ret); got.Kind != types.Float {
		t.Errorf("a / b typed %s", got)
	}
	if got := res.TypeOf(bin.Left); got.Kind != types.Int {
		t.Errorf("a typed %s", got)
	}
}

func TestInferMismatch(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		context string
	}{
		{"return", "def f() -> int:\n    return \"x\"\n", "return type of f"},
		{"annotated local", "def f():\n    x: str = 1\n", "assignment to x"},
		{"argument", "def g(x: int):\n    return x\ndef f():\n    g(\"s\")\n", "argument x of g"},
		{"rebinding", "def f():\n    x = [1]\n    x = \"s\"\n", "assignment to x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := inferSrc(t, tt.src)
			var de *diag.Error
			if !errors.As(err, &de) {
				t.Fatalf("expected *diag.Error, got %v", err)
			}
			if de.Diag.Code != diag.TypeMismatch {
				t.Errorf("code = %v, want TypeMismatch", de.Diag.Code)
			}
			if !strings.Contains(de.Diag.Message, tt.context) {
				t.Errorf("message %q lacks context %q", de.Diag.Message, tt.context)
			}
		})
	}
}

func TestInferCompatibleAssignments(t *testing.T) {
	srcs := []string{
		"def f() -> float:\n    return 1\n",
		"def f() -> Optional[int]:\n    return None\n",
		"def f():\n    x = None\n    x = 3\n    return x\n",
		"def f():\n    x = 0\n    x = 1.5\n    return x\n",
		"def f(xs: list[int], ys: list[str]):\n    for v in xs:\n        print(v)\n    for v in ys:\n        print(v)\n",
	}
	for _, src := range srcs {
		if _, _, _, err := inferSrc(t, "from typing import Optional\n"+src); err != nil {
			t.Errorf("Infer(%q) = %v, want success", src, err)
		}
	}
}

func TestInferNoneNarrowing(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"early return", "def f(x: int | None) -> int:\n    if x is None:\n        return 0\n    return x\n"},
		{"raise", "def f(x: int | None) -> int:\n    if x is None:\n        raise ValueError(\"missing\")\n    y = x + 1\n    return y\n"},
		{"is not None", "def f(x: Optional[int]) -> int:\n    if x is not None:\n        return x\n    return 0\n"},
		{"else branch", "def f(x: Optional[int]) -> int:\n    if x is None:\n        return 0\n    else:\n        return x * 2\n"},
		{"conditional expression", "def f(x: Optional[int]) -> int:\n    return x if x is not None else 0\n"},
		{"continue", "def f(xs: list[Optional[int]]) -> int:\n    total = 0\n    for x in xs:\n        if x is None:\n            continue\n        total += x\n    return total\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res, _, err := inferSrc(t, "from typing import Optional\n"+tt.src)
			if err != nil {
				t.Fatalf("Infer = %v, want success", err)
			}
			if len(res.Narrowed) == 0 {
				t.Error("no read was narrowed")
			}
		})
	}
}

func TestInferNoneNarrowingStopsAtRebinding(t *testing.T) {
	src := "from typing import Optional\ndef f(x: Optional[int]) -> int:\n    if x is None:\n        return 0\n    x = None\n    return x\n"
	_, _, _, err := inferSrc(t, src)
	var de *diag.Error
	if !errors.As(err, &de) || de.Diag.Code != diag.TypeMismatch {
		t.Fatalf("Infer = %v, want TypeMismatch", err)
	}
}

func TestInferNarrowedReadType(t *testing.T) {
	m, res := mustInfer(t, "def f(x: int | None) -> int:\n    if x is None:\n        return 0\n    return x\n")
	body := m.FuncByName("f").Body.Stmts
	ret := body[1].Data.(hir.ReturnData).Value
	if !res.IsNarrowed(ret) {
		t.Fatal("return x not narrowed")
	}
	if got := res.TypeOf(ret); got.Kind != types.Int {
		t.Errorf("x typed %s after the None check", got)
	}
	cond := body[0].Data.(hir.IfData).Cond.Data.(hir.MethodCallData).Receiver
	if res.IsNarrowed(cond) || res.TypeOf(cond).Kind != types.Optional {
		t.Errorf("receiver of the None check typed %s", res.TypeOf(cond))
	}
}

func TestInferUnknownParamWarning(t *testing.T) {
	_, res, bag, err := inferSrc(t, "def f(x):\n    return x\n")
	if err != nil {
		t.Fatal(err)
	}
	if got := res.ParamType(hir.ParamKey{Func: 1, Index: 0}); !got.IsUnknown() {
		t.Errorf("param = %s, want unknown", got)
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.TypeUnknownFallback {
		t.Errorf("diagnostics = %v, want one TypeUnknownFallback", bag.Items())
	}
}

func TestEnvScopes(t *testing.T) {
	outer := NewEnv(nil)
	outer.Declare("n", types.IntT)
	outer.Bind("xs", types.ListOf(types.UnknownT))
	inner := NewEnv(outer)
	inner.BindLocal("x", types.StrT)
	inner.Bind("xs", types.ListOf(types.StrT))

	if outer.Has("x") {
		t.Error("local leaked to parent")
	}
	if got := outer.Type("xs").String(); got != "list[str]" {
		t.Errorf("xs = %s", got)
	}
	inner.Bind("n", types.StrT)
	if got := outer.Type("n"); got.Kind != types.Int {
		t.Errorf("declared n widened to %s", got)
	}
	if !inner.IsDeclared("n") {
		t.Error("n should be declared through the parent")
	}
}
