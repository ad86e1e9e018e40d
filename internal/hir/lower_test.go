package hir

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pyrust/internal/diag"
	"pyrust/internal/parser"
	"pyrust/internal/source"
)

func lowerSrc(t *testing.T, src string) (*Module, error) {
	t.Helper()
	res := parser.ParseString(source.NewFileSet(), "t.py", src, parser.Options{})
	if res.Bag.HasErrors() {
		t.Fatalf("parse errors for %q: %v", src, res.Bag.Items())
	}
	return Lower(context.Background(), res.Module)
}

func mustLower(t *testing.T, src string) *Module {
	t.Helper()
	m, err := lowerSrc(t, src)
	if err != nil {
		t.Fatalf("Lower(%q) failed: %v", src, err)
	}
	return m
}

func errCode(err error) diag.Code {
	var de *diag.Error
	if errors.As(err, &de) {
		return de.Diag.Code
	}
	return 0
}

func TestLowerDump(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"simple function",
			"def add(a: int, b: int) -> int:\n    return a + b\n",
			"module t\ndef add(a: int, b: int) -> int\n  return (a + b)\n",
		},
		{
			"generator",
			"def counter(n):\n    i = 0\n    while i < n:\n        yield i\n        i += 1\n",
			"module t\ngenerator def counter(n)\n  i = 0\n  while (i < n):\n    yield i\n    i += 1\n",
		},
		{
			"yield from",
			"def f(xs):\n    yield from xs\n",
			"module t\ngenerator def f(xs)\n  for __item in xs:\n    yield __item\n",
		},
		{
			"chained comparison",
			"def f(x: int) -> bool:\n    return 0 <= x < 10\n",
			"module t\ndef f(x: int) -> bool\n  return ((0 <= x) and (x < 10))\n",
		},
		{
			"chained assignment",
			"def f():\n    a = b = 0\n",
			"module t\ndef f()\n  a = 0\n  b = a\n",
		},
		{
			"del subscript",
			"def f(d: dict[str, int], k: str):\n    del d[k]\n",
			"module t\ndef f(d: dict[str, int], k: str)\n  d.pop(k)\n",
		},
		{
			"docstrings dropped",
			"\"\"\"Module.\"\"\"\ndef f():\n    \"\"\"Doc.\"\"\"\n    pass\n",
			"module t\ndef f()\n  pass\n",
		},
		{
			"for else with break",
			"def find(xs: list[int], t: int) -> int:\n    for x in xs:\n        if x == t:\n            break\n    else:\n        return 0\n    return x\n",
			"module t\ndef find(xs: list[int], t: int) -> int\n  __broke1 = False\n  for x in xs:\n    if (x == t):\n      __broke1 = True\n      break\n  if (not __broke1):\n    return 0\n  return x\n",
		},
		{
			"while else without break",
			"def f() -> int:\n    i = 0\n    while i < 3:\n        i += 1\n    else:\n        i = 10\n    return i\n",
			"module t\ndef f() -> int\n  i = 0\n  while (i < 3):\n    i += 1\n  i = 10\n  return i\n",
		},
		{
			"inner loop break keeps outer else",
			"def f(rows: list[list[int]]) -> bool:\n    for row in rows:\n        for v in row:\n            if v < 0:\n                break\n    else:\n        return True\n    return False\n",
			"module t\ndef f(rows: list[list[int]]) -> bool\n  for row in rows:\n    for v in row:\n      if (v < 0):\n        break\n  return True\n  return False\n",
		},
		{
			"swap through subscripts",
			"def swap(xs: list[int], i: int, j: int):\n    xs[i], xs[j] = xs[j], xs[i]\n",
			"module t\ndef swap(xs: list[int], i: int, j: int)\n  __tmp1 = xs[j]\n  __tmp2 = xs[i]\n  xs[i] = __tmp1\n  xs[j] = __tmp2\n",
		},
		{
			"nested def capturing a parameter",
			"def outer(xs: list[int], k: int) -> list[int]:\n    def scale(v: int) -> int:\n        return v * k\n    return [scale(x) for x in xs]\n",
			"module t\ndef outer_scale(v: int, k) -> int\n  return (v * k)\ndef outer(xs: list[int], k: int) -> list[int]\n  return [outer_scale(x, k=k) for x in xs]\n",
		},
		{
			"recursive nested def",
			"def f(n: int) -> int:\n    def fact(m: int) -> int:\n        if m <= 1:\n            return 1\n        return m * fact(m - 1)\n    return fact(n)\n",
			"module t\ndef f_fact(m: int) -> int\n  if (m <= 1):\n    return 1\n  return (m * f_fact((m - 1)))\ndef f(n: int) -> int\n  return f_fact(n)\n",
		},
		{
			"try except",
			"def f(x: int) -> int:\n    try:\n        return 10 // x\n    except ZeroDivisionError as e:\n        raise ValueError(\"bad\")\n    finally:\n        pass\n",
			"module t\ndef f(x: int) -> int\n  try:\n    return (10 // x)\n  except ZeroDivisionError as e:\n    raise ValueError(\"bad\")\n  finally:\n    pass\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustLower(t, tt.src)
			if got := DumpString(m); got != tt.want {
				t.Errorf("dump mismatch\n got: %q\nwant: %q", got, tt.want)
			}
		})
	}
}

func TestLowerDesugarsMembershipAndNone(t *testing.T) {
	src := "from typing import Optional\n\n" +
		"def f(xs: list[int], d: dict[str, int], v: Optional[int]) -> bool:\n" +
		"    return 3 in xs and \"k\" not in d and v is None and v is not None\n"
	m := mustLower(t, src)
	ret := m.Funcs[0].Body.Stmts[0].Data.(ReturnData).Value
	want := `(((xs.__contains__(3) and (not d.__contains__("k"))) and v.is_none()) and v.is_some())`
	if got := ExprString(ret); got != want {
		t.Fatalf("got %s\nwant %s", got, want)
	}
	if len(m.Imports) != 0 {
		t.Fatalf("typing import should be dropped, got %d imports", len(m.Imports))
	}
}

func TestLowerTupleArity(t *testing.T) {
	_, err := lowerSrc(t, "def f():\n    a, b = 1, 2, 3\n")
	if errCode(err) != diag.BridgeArityMismatch {
		t.Fatalf("expected arity mismatch, got %v", err)
	}
	m := mustLower(t, "def f():\n    a, b = 1, 2\n    a, b = b, a\n")
	if got := len(m.Funcs[0].Body.Stmts); got != 2 {
		t.Fatalf("expected 2 statements, got %d", got)
	}
}

func TestLowerClassReceivers(t *testing.T) {
	src := `class Counter:
    def __init__(self, start: int):
        self.count = start
        self.items = []

    def get(self) -> int:
        return self.count

    def bump(self):
        self.count += 1

    def reset(self):
        self.bump()

    @staticmethod
    def zero() -> int:
        return 0
`
	m := mustLower(t, src)
	c := m.ClassByName("Counter")
	if c == nil {
		t.Fatal("class not lowered")
	}
	if len(c.Fields) != 2 || c.Fields[0].Name != "count" || c.Fields[1].Name != "items" {
		t.Fatalf("unexpected fields: %+v", c.Fields)
	}
	if c.Fields[0].Type == nil || c.Fields[0].Type.String() != "int" {
		t.Fatalf("count should take the parameter annotation, got %v", c.Fields[0].Type)
	}
	if c.Fields[1].Type != nil {
		t.Fatalf("items type should be left for inference")
	}
	want := map[string]Receiver{
		"__init__": RecvMut,
		"get":      RecvRef,
		"bump":     RecvMut,
		"reset":    RecvMut,
		"zero":     RecvStatic,
	}
	for name, recv := range want {
		if got := c.Method(name).Receiver; got != recv {
			t.Errorf("%s receiver = %v, want %v", name, got, recv)
		}
	}
	if !c.Init().Flags.HasFlag(FuncInit) || len(c.Init().Params) != 1 {
		t.Fatal("__init__ should drop self and keep start")
	}
}

func TestLowerDataclass(t *testing.T) {
	src := "from dataclasses import dataclass\n\n@dataclass\nclass Point:\n    x: float\n    y: float = 0.0\n"
	m := mustLower(t, src)
	c := m.ClassByName("Point")
	if !c.Dataclass || len(c.Fields) != 2 {
		t.Fatalf("unexpected class %+v", c)
	}
	init := c.Init()
	if init == nil || len(init.Params) != 2 {
		t.Fatal("dataclass constructor not synthesized")
	}
	if init.Params[1].Default == nil {
		t.Fatal("field default should become a parameter default")
	}
	if got := DumpString(m); !strings.Contains(got, "self.y = y") {
		t.Fatalf("constructor body missing assignment:\n%s", got)
	}
}

func TestLowerInheritanceFlattens(t *testing.T) {
	src := `class Base:
    def __init__(self):
        self.a = 1

    def name(self) -> str:
        return "base"

class Child(Base):
    def __init__(self):
        self.a = 1
        self.b = 2
`
	m := mustLower(t, src)
	child := m.ClassByName("Child")
	if child.Base != "" || len(child.Fields) != 2 {
		t.Fatalf("child should flatten base fields: %+v", child.Fields)
	}
	if child.Method("name") == nil || child.Method("name").Class != "Child" {
		t.Fatal("inherited method missing")
	}
}

func TestLowerErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
	}{
		{"global", "def f():\n    global x\n", diag.UnsupportedConstruct},
		{"foreign import", "import os\n", diag.UnsupportedConstruct},
		{"multiple inheritance", "class A(B, C):\n    pass\n", diag.UnsupportedConstruct},
		{"varargs", "def f(*args):\n    pass\n", diag.UnsupportedConstruct},
		{"nested def as value", "def f():\n    def g():\n        return 1\n    h = g\n", diag.UnsupportedConstruct},
		{"nested def reading self", "class A:\n    def __init__(self):\n        self.n = 1\n\n    def m(self) -> int:\n        def g() -> int:\n            return self.n\n        return g()\n", diag.UnsupportedConstruct},
		{"del name", "def f(x):\n    del x\n", diag.UnsupportedConstruct},
		{"module variable", "x = [1, 2]\n", diag.UnsupportedConstruct},
		{"matmul", "def f(a, b):\n    return a @ b\n", diag.UnsupportedConstruct},
		{"decorator", "@cache\ndef f():\n    pass\n", diag.UnsupportedConstruct},
		{"subscript targets from a name", "def f(a: list[int], pair: tuple[int, int]):\n    a[0], a[1] = pair\n", diag.BridgeBadTarget},
		{"bare raise", "def f():\n    raise\n", diag.ConversionError},
		{"uninitialized attribute", "class A:\n    def m(self):\n        self.z = 1\n", diag.ConversionError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lowerSrc(t, tt.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errCode(err); got != tt.code {
				t.Fatalf("code = %v, want %v (%v)", got, tt.code, err)
			}
			var de *diag.Error
			if errors.As(err, &de) && de.Diag.Primary.Empty() {
				t.Fatal("error must carry a source span")
			}
		})
	}
}

func TestLowerImportsAndModules(t *testing.T) {
	src := "import math\nfrom typing import List\n\ndef f(x: float) -> float:\n    return math.sqrt(x) + math.pi\n"
	m := mustLower(t, src)
	if len(m.Imports) != 1 || m.Imports[0].Module != "math" {
		t.Fatalf("imports = %+v", m.Imports)
	}
	ret := m.Funcs[0].Body.Stmts[0].Data.(ReturnData).Value
	if got := ExprString(ret); got != "(math.sqrt(x) + math.pi)" {
		t.Fatalf("got %s", got)
	}
}

func TestLowerMainGuard(t *testing.T) {
	m := mustLower(t, "def main():\n    print(1)\n\nif __name__ == \"__main__\":\n    main()\n")
	if m.Main != nil || !m.FuncByName("main").Flags.HasFlag(FuncEntry) {
		t.Fatal("guard calling main() should collapse into the main function")
	}
	m = mustLower(t, "def helper() -> int:\n    return 1\n\nif __name__ == \"__main__\":\n    print(helper())\n")
	if m.Main == nil || len(m.Main.Stmts) != 1 {
		t.Fatal("guard body should become the entry block")
	}
	_, err := lowerSrc(t, "def main() -> None:\n    pass\n\nif __name__ == \"__main__\":\n    print(0)\n    main()\n")
	if got := errCode(err); got != diag.ConversionError {
		t.Fatalf("main plus a guard doing more than calling it: code = %v (%v)", got, err)
	}
}

func TestLowerConsts(t *testing.T) {
	m := mustLower(t, "LIMIT = 10\nRATE: float = 0.5\nNAME = \"x\"\n")
	if len(m.Consts) != 3 || m.ConstByName("RATE").Type.String() != "float" {
		t.Fatalf("consts = %+v", m.Consts)
	}
}

func TestAnnotationTypes(t *testing.T) {
	src := "def f(a: Optional[int], b: Union[str, None], c: int | None, d: \"Node\", " +
		"e: Tuple[int, ...], g: dict[str, list[float]], h: Any) -> None:\n    pass\n\n" +
		"class Node:\n    pass\n"
	m := mustLower(t, src)
	want := []string{"Optional[int]", "Optional[str]", "Optional[int]", "Node", "list[int]", "dict[str, list[float]]", "unknown"}
	fn := m.Funcs[0]
	for i, w := range want {
		if got := fn.Params[i].Type.String(); got != w {
			t.Errorf("param %s: got %s, want %s", fn.Params[i].Name, got, w)
		}
	}
	if fn.Returns.String() != "None" {
		t.Errorf("return = %s", fn.Returns)
	}
}

func TestCloneKeepsIDs(t *testing.T) {
	m := mustLower(t, "def add(a: int, b: int) -> int:\n    return a + b\n")
	c := m.Clone()
	if DumpString(c) != DumpString(m) {
		t.Fatal("clone differs")
	}
	orig := m.Funcs[0].Body.Stmts[0].Data.(ReturnData).Value
	cp := c.Funcs[0].Body.Stmts[0].Data.(ReturnData).Value
	if orig == cp || orig.ID != cp.ID {
		t.Fatal("clone must copy nodes and keep ids")
	}
	fresh := m.CloneExpr(orig, true)
	if fresh.ID == orig.ID || ExprString(fresh) != ExprString(orig) {
		t.Fatal("fresh clone must renumber")
	}
}
