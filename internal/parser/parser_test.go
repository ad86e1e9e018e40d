package parser

import (
	"strings"
	"testing"

	"pyrust/internal/ast"
	"pyrust/internal/diag"
	"pyrust/internal/source"
)

func parse(t *testing.T, src string) (*ast.Module, *diag.Bag) {
	t.Helper()
	res := ParseString(source.NewFileSet(), "t.py", src, Options{})
	return res.Module, res.Bag
}

func mustParse(t *testing.T, src string) *ast.Module {
	t.Helper()
	mod, bag := parse(t, src)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics for %q: %v", src, bag.Items())
	}
	return mod
}

func TestParseStatements(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"function", "def add(a: int, b: int) -> int:\n    return a + b\n",
			"(module [(def add (a:int b:int) -> int [(return (+ a b))])])"},
		{"defaults", "def f(x, y=1, *args, k=2, **kw):\n    pass\n",
			"(module [(def f (x y=1 *args k **kw) [pass])])"},
		{"while-yield", "def counter(n):\n    i = 0\n    while i < n:\n        yield i\n        i += 1\n",
			"(module [(def counter (n) [(= [i] 0) (while (cmp i < n) [(yield i) (+= i 1)])])])"},
		{"if-elif-else", "if a:\n    x = 1\nelif b:\n    x = 2\nelse:\n    x = 3\n",
			"(module [(if a [(= [x] 1)] else [(if b [(= [x] 2)] else [(= [x] 3)])])])"},
		{"for-tuple", "for i, v in enumerate(xs):\n    print(i, v)\n",
			"(module [(for (tuple [i v]) (call enumerate xs) [(call print i v)])])"},
		{"chained-assign", "a = b = 1\n", "(module [(= [a b] 1)])"},
		{"tuple-unpack", "a, b = b, a\n", "(module [(= [(tuple [a b])] (tuple [b a]))])"},
		{"annassign", "x: list[int] = []\n", "(module [(: x (index list int) (list []))])"},
		{"try", "try:\n    f()\nexcept ValueError as e:\n    pass\nfinally:\n    g()\n",
			"(module [(try [(call f)] (except ValueError as e [pass]) finally [(call g)])])"},
		{"with", "with open(p) as fh:\n    pass\n", "(module [(with (call open p) as fh [pass])])"},
		{"class", "@dataclass\nclass P(Base):\n    x: int\n",
			"(module [(class P [Base] @dataclass [(: x int _)])])"},
		{"imports", "import os.path as osp\nfrom typing import List, Optional\n",
			"(module [(import os.path as osp) (from typing import List Optional)])"},
		{"semicolons", "a = 1; b = 2\n", "(module [(= [a] 1) (= [b] 2)])"},
		{"assert", "assert x > 0, 'neg'\n", `(module [(assert (cmp x > 0) "neg")])`},
		{"async", "async def f():\n    await g()\n", "(module [(async-def f () [(await (call g))])])"},
		{"raise", "raise ValueError('bad')\n", `(module [(raise (call ValueError "bad"))])`},
		{"global", "def f():\n    global n\n    n = 1\n", "(module [(def f () [(global n) (= [n] 1)])])"},
		{"star-target", "a, *b = xs\n", "(module [(= [(tuple [a (* b)])] xs)])"},
		{"star-value", "t = 1, *xs\n", "(module [(= [t] (tuple [1 (* xs)]))])"},
		{"star-bitor", "t = *a | b, c\n", "(module [(= [t] (tuple [(* (| a b)) c]))])"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := mustParse(t, tt.src)
			if got := ast.Dump(mod); got != tt.want {
				t.Fatalf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestParseExpressions(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3", "(+ 1 (* 2 3))"},
		{"-x ** 2", "(- (** x 2))"},
		{"2 ** -1", "(** 2 (- 1))"},
		{"a // b % c", "(% (// a b) c)"},
		{"not a and b or c", "(or (and (not a) b) c)"},
		{"a < b <= c", "(cmp a < b <= c)"},
		{"x not in y", "(cmp x not in y)"},
		{"x is not None", "(cmp x is not None)"},
		{"d.pop(k, -1)", "(call (. d pop) k (- 1))"},
		{"xs[1:]", "(index xs (slice 1 _ _))"},
		{"xs[::2]", "(index xs (slice _ _ 2))"},
		{"m[a, b]", "(index m (tuple [a b]))"},
		{"[x * 2 for x in xs if x]", "(listcomp (* x 2) (for x xs (if x)))"},
		{"{k: v for k, v in items}", "(dictcomp k:v (for (tuple [k v]) items))"},
		{"{1, 2}", "(set [1 2])"},
		{"{'a': 1}", `(dict "a":1)`},
		{"sum(x for x in xs)", "(call sum (genexp x (for x xs)))"},
		{"lambda a, b=2: a + b", "(lambda (a b=2) (+ a b))"},
		{"a if c else b", "(ifexp c a b)"},
		{"f(x, key=len, *rest)", "(call f x (* rest) key=len)"},
		{"()", "(tuple [])"},
		{"(1,)", "(tuple [1])"},
		{"'a' 'b'", `"ab"`},
		{`f"x={x!r:>4} {y + 1}"`, `(fstr "x=" {x!r:>4} " " {(+ y 1)})`},
		{`f"{{lit}} {d['k']}"`, `(fstr "{lit} " {(index d "k")})`},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			mod := mustParse(t, tt.src+"\n")
			if got := ast.Dump(mod.Body[0]); got != tt.want {
				t.Fatalf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src  string
		code diag.Code
	}{
		{"def f(:\n    pass\n", diag.SynExpectIdentifier},
		{"if x\n    pass\n", diag.SynExpectColon},
		{"1 = x\n", diag.SynBadAssignTarget},
		{"def f():\nreturn 1\n", diag.SynExpectIndent},
		{"f(1, 2\n", diag.SynUnclosedParen},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, bag := parse(t, tt.src)
			if !bag.HasErrors() {
				t.Fatal("expected errors")
			}
			found := false
			for _, d := range bag.Items() {
				if d.Code == tt.code {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %s, got %v", tt.code.ID(), bag.Items())
			}
		})
	}
}

func TestRecoveryContinuesAfterError(t *testing.T) {
	mod, bag := parse(t, "x = = 1\ny = 2\n")
	if !bag.HasErrors() {
		t.Fatal("expected an error")
	}
	if len(mod.Body) != 1 || !strings.Contains(ast.Dump(mod.Body[0]), "y") {
		t.Fatalf("expected the second statement to survive, got %s", ast.Dump(mod))
	}
}

func TestMaxErrors(t *testing.T) {
	res := ParseString(source.NewFileSet(), "t.py", "1 = a\n2 = b\n3 = c\n", Options{MaxErrors: 1})
	if res.Bag.Len() != 1 {
		t.Fatalf("expected parsing to stop after one error, got %d", res.Bag.Len())
	}
}
