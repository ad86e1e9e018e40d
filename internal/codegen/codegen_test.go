package codegen

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"testing"

	"pyrust/internal/borrow"
	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/lifetime"
	"pyrust/internal/parser"
	"pyrust/internal/rust"
	"pyrust/internal/source"
	"pyrust/internal/typeflow"
	"pyrust/internal/types"
)

func lower(t *testing.T, src string) (*rust.File, error) {
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
	lt := lifetime.Analyze(ctx, m, tf, br, lifetime.Options{Reporter: diag.BagReporter{Bag: bag}})
	return Generate(ctx, &Unit{
		Module:    m,
		Types:     tf,
		Borrow:    br,
		Lifetimes: lt,
		Options: Options{
			IntWidth: types.WidthI32,
			Strings:  types.InferBorrowing,
			Reporter: diag.BagReporter{Bag: bag},
		},
	})
}

func generate(t *testing.T, src string) string {
	t.Helper()
	f, err := lower(t, src)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	out := rust.Print(f)
	if err := rust.Validate(out); err != nil {
		t.Fatalf("generated code does not validate: %v\n%s", err, out)
	}
	return out
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		want   []string
		absent []string
	}{
		{
			name: "owned scalars",
			src:  "def add(a: int, b: int) -> int:\n    return a + b\n",
			want: []string{"pub fn add(a: i32, b: i32) -> i32", "a + b"},
		},
		{
			name: "borrowed list",
			src:  "def total(nums: list[int]) -> int:\n    return len(nums)\n",
			want: []string{"nums: &Vec<i32>", "nums.len() as i32"},
		},
		{
			name: "mutable dict pop with default",
			src:  "def pop_entry(d: dict[str, int], k: str) -> int:\n    return d.pop(k, -1)\n",
			want: []string{"d: &mut HashMap<String, i32>", "d.remove(k).unwrap_or(-1)", "use std::collections::HashMap;"},
		},
		{
			name: "true division of ints",
			src:  "def ratio(a: int, b: int) -> float:\n    return a / b\n",
			want: []string{"-> f64", "a as f64 / b as f64"},
		},
		{
			name: "floor division helper",
			src:  "def half(a: int) -> int:\n    return a // 2\n",
			want: []string{"fn py_floor_div(a: i32, b: i32) -> i32", "py_floor_div(a, 2)"},
		},
		{
			name: "generator state machine",
			src:  "def counter(n: int):\n    i = 0\n    while i < n:\n        yield i\n        i += 1\n",
			want: []string{
				"pub struct CounterState",
				"pub state: usize,",
				"pub i: i32,",
				"pub n: i32,",
				"impl Iterator for CounterState",
				"type Item = i32;",
				"'resume: loop",
				"pub fn counter(n: i32) -> CounterState",
			},
		},
		{
			name: "uncaught raise",
			src:  "def check(n: int) -> int:\n    if n < 0:\n        raise ValueError(\"negative\")\n    return n\n",
			want: []string{
				"pub struct ValueError",
				"impl std::error::Error for ValueError {}",
				"-> Result<i32, Box<dyn std::error::Error>>",
				"return Err(ValueError::new(",
				"Ok(n)",
			},
		},
		{
			name: "caught raise",
			src: "def safe(a: int, b: int) -> int:\n" +
				"    try:\n" +
				"        if b == 0:\n" +
				"            raise ZeroDivisionError(\"zero\")\n" +
				"        return a\n" +
				"    except ZeroDivisionError:\n" +
				"        return 0\n",
			want:   []string{"pub fn safe(a: i32, b: i32) -> i32", ".is::<ZeroDivisionError>()", "break '__try"},
			absent: []string{"Result<"},
		},
		{
			name: "class with constructor",
			src: "class Point:\n" +
				"    def __init__(self, x: int, y: int):\n" +
				"        self.x = x\n" +
				"        self.y = y\n" +
				"\n" +
				"    def norm2(self) -> int:\n" +
				"        return self.x * self.x + self.y * self.y\n",
			want: []string{
				"#[derive(Debug, Clone, Default, PartialEq)]",
				"pub struct Point",
				"impl Point",
				"pub fn new(x: i32, y: i32) -> Self",
				"Self { x, y }",
				"pub fn norm2(&self) -> i32",
			},
		},
		{
			name: "main guard",
			src:  "def add(a: int, b: int) -> int:\n    return a + b\n\nif __name__ == \"__main__\":\n    print(add(1, 2))\n",
			want: []string{"fn main()", "println!("},
		},
		{
			name: "file attributes",
			src:  "def one() -> int:\n    return 1\n",
			want: []string{"// " + Header, "#![allow(unused_variables"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkOutput(t, generate(t, tt.src), tt.want, tt.absent)
		})
	}
}

func checkOutput(t *testing.T, out string, want, absent []string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output lacks %q:\n%s", w, out)
		}
	}
	for _, a := range absent {
		if strings.Contains(out, a) {
			t.Errorf("output contains %q:\n%s", a, out)
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
	}{
		{"generator method", "class Bag:\n    def __init__(self, n: int):\n        self.n = n\n\n    def each(self):\n        yield self.n\n", diag.UnsupportedConstruct},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lower(t, tt.src)
			if err == nil {
				t.Fatal("expected an error")
			}
			var de *diag.Error
			if !errors.As(err, &de) {
				t.Fatalf("error %v is not a *diag.Error", err)
			}
			if de.Diag.Code != tt.code {
				t.Errorf("code = %v, want %v", de.Diag.Code, tt.code)
			}
		})
	}
}

func TestStateName(t *testing.T) {
	tests := map[string]string{
		"counter":    "CounterState",
		"read_lines": "ReadLinesState",
		"_private":   "PrivateState",
	}
	for in, want := range tests {
		if got := stateName(in); got != want {
			t.Errorf("stateName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGenerateConstructs(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		want   []string
		absent []string
	}{
		{
			name: "unary operators",
			src:  "def flip(x: int, ok: bool) -> int:\n    if not ok:\n        return -x\n    return ~x\n",
			want: []string{"!ok", "return -x", "!x"},
		},
		{
			name: "list literal",
			src:  "def three() -> list[int]:\n    return [1, 2, 3]\n",
			want: []string{"vec![1, 2, 3]"},
		},
		{
			name: "tuple literal",
			src:  "def pair(n: int) -> tuple[int, int]:\n    return (n, n + 1)\n",
			want: []string{"-> (i32, i32)", "(n, n + 1)"},
		},
		{
			name: "set literal",
			src:  "def small() -> set[int]:\n    return {1, 2}\n",
			want: []string{"HashSet::from([1, 2])", "use std::collections::HashSet;"},
		},
		{
			name: "dict literal",
			src:  "def ages() -> dict[str, int]:\n    return {\"ann\": 3}\n",
			want: []string{"HashMap::from([(", "use std::collections::HashMap;"},
		},
		{
			name: "list comprehension",
			src:  "def doubled(xs: list[int]) -> list[int]:\n    return [x * 2 for x in xs if x > 0]\n",
			want: []string{"Vec::new()", ".push(x * 2)", "if x > 0"},
		},
		{
			name: "set comprehension",
			src:  "def evens(xs: list[int]) -> set[int]:\n    return {x * 2 for x in xs}\n",
			want: []string{"HashSet::new()", ".insert(x * 2)"},
		},
		{
			name: "dict comprehension",
			src:  "def lengths(words: list[str]) -> dict[str, int]:\n    return {w: len(w) for w in words}\n",
			want: []string{"HashMap::new()", ".insert("},
		},
		{
			name: "generator expression",
			src:  "def squares(xs: list[int]) -> int:\n    return sum(x * x for x in xs)\n",
			want: []string{".into_iter()", "sum::<i32>()"},
		},
		{
			name: "lambda key",
			src:  "def by_len(words: list[str]) -> list[str]:\n    return sorted(words, key=lambda w: len(w))\n",
			want: []string{"|w|", ".sort_by(|a, b|"},
		},
		{
			name: "slice",
			src:  "def middle(xs: list[int]) -> list[int]:\n    return xs[1:3]\n",
			want: []string{"xs[1..3].to_vec()"},
		},
		{
			name: "reversed slice",
			src:  "def backwards(xs: list[int]) -> list[int]:\n    return xs[::-1]\n",
			want: []string{".iter().rev().cloned().collect::<Vec<_>>()"},
		},
		{
			name: "conditional expression",
			src:  "def sign(x: int) -> int:\n    return 1 if x > 0 else -1\n",
			want: []string{"if x > 0 {", "} else {"},
		},
		{
			name: "f-string",
			src:  "def greet(name: str) -> str:\n    return f\"hi {name}!\"\n",
			want: []string{`format!("hi {}!", name)`},
		},
		{
			name: "with statement",
			src: "class Guard:\n" +
				"    def __init__(self, n: int):\n" +
				"        self.n = n\n" +
				"\n" +
				"def use_guard(k: int) -> int:\n" +
				"    with Guard(k) as g:\n" +
				"        return g.n + 1\n" +
				"    return 0\n",
			want: []string{"let g = Guard::new(k);", "g.n + 1"},
		},
		{
			name: "assert with message",
			src:  "def check(x: int):\n    assert x > 0, \"positive\"\n",
			want: []string{"assert!(x > 0, \"{}\""},
		},
		{
			name: "await",
			src:  "async def fetch(n: int) -> int:\n    return n\n\nasync def run(n: int) -> int:\n    return await fetch(n)\n",
			want: []string{"pub async fn run(n: i32) -> i32", "fetch(n).await"},
		},
		{
			name: "cow return",
			src:  "def pick(s: str, n: int) -> str:\n    if n > 0:\n        return s\n    return s + \"!\"\n",
			want: []string{"Cow::Borrowed(s)", "Cow::Owned(", "use std::borrow::Cow;"},
		},
		{
			name: "for with continue and pass",
			src: "def positive_sum(xs: list[int]) -> int:\n" +
				"    total = 0\n" +
				"    for x in xs:\n" +
				"        if x < 0:\n" +
				"            continue\n" +
				"        elif x == 0:\n" +
				"            pass\n" +
				"        total += x\n" +
				"    return total\n",
			want: []string{"let mut total = 0;", "continue;", "total += x;"},
		},
		{
			name: "reassigned parameter is mutable",
			src:  "def clamp(a: int) -> int:\n    if a < 0:\n        a = 0\n    return a\n",
			want: []string{"pub fn clamp(mut a: i32) -> i32", "a = 0;"},
		},
		{
			name: "zero division inside try",
			src: "def safe_div(a: int, b: int) -> int:\n" +
				"    try:\n" +
				"        return a // b\n" +
				"    except ZeroDivisionError:\n" +
				"        return 0\n",
			want:   []string{"if __divisor", `ZeroDivisionError::new("division by zero")`, "py_floor_div(__lhs"},
			absent: []string{"Result<"},
		},
		{
			name:   "zero division outside try",
			src:    "def half(a: int, b: int) -> int:\n    return a // b\n",
			want:   []string{"py_floor_div(a, b)"},
			absent: []string{"__divisor", "ZeroDivisionError"},
		},
		{
			name: "mutating method on dict entry",
			src:  "def add_to(out: dict[str, list[str]], k: str, w: str):\n    out[k].append(w)\n",
			want: []string{"out.get_mut(", ".push("},
		},
		{
			name: "negative index write",
			src:  "def bump(xs: list[int]):\n    xs[-1] += 1\n",
			want: []string{"let __idx", "xs.len() - 1", "xs[__idx"},
		},
		{
			name: "none narrowing",
			src:  "def or_zero(x: int | None) -> int:\n    if x is None:\n        return 0\n    return x\n",
			want: []string{"x.is_none()", "x.unwrap()"},
		},
		{
			name:   "print of an optional",
			src:    "def show(x: int | None):\n    print(x)\n",
			want:   []string{"Some(__some)", `"None".to_string()`},
			absent: []string{"{:?}"},
		},
		{
			name: "swap through subscripts",
			src:  "def swap(xs: list[int], i: int, j: int):\n    xs[i], xs[j] = xs[j], xs[i]\n",
			want: []string{"let __tmp1 = ", "let __tmp2 = ", "= __tmp1;", "= __tmp2;"},
		},
		{
			name: "while else with break",
			src: "def find(xs: list[int], t: int) -> int:\n" +
				"    i = 0\n" +
				"    while i < len(xs):\n" +
				"        if xs[i] == t:\n" +
				"            break\n" +
				"        i += 1\n" +
				"    else:\n" +
				"        return -1\n" +
				"    return i\n",
			want: []string{"__broke1 = true;", "if !__broke1"},
		},
		{
			name: "nested function",
			src: "def outer(xs: list[int], k: int) -> list[int]:\n" +
				"    def scale(v: int) -> int:\n" +
				"        return v * k\n" +
				"    return [scale(x) for x in xs]\n",
			want: []string{"pub fn outer_scale(", "outer_scale(x, k)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkOutput(t, generate(t, tt.src), tt.want, tt.absent)
		})
	}
}

var stateAssign = regexp.MustCompile(`self\.state = (\d+|usize::MAX)`)

// transitions summarizes the resume loop of a generator as one line per
// state: the states it can jump to, and "yield" when it returns a value.
func transitions(t *testing.T, f *rust.File, typ string) []string {
	t.Helper()
	for _, it := range f.Items {
		impl, ok := it.(*rust.Impl)
		if !ok || impl.Trait != "Iterator" || impl.Type != typ {
			continue
		}
		loop, ok := impl.Fns[0].Body.Tail.(*rust.Loop)
		if !ok {
			t.Fatalf("next of %s does not end in a loop", typ)
		}
		m, ok := loop.Body.Stmts[0].(*rust.ExprStmt).X.(*rust.Match)
		if !ok {
			t.Fatalf("resume loop of %s does not match on the state", typ)
		}
		var out []string
		for _, arm := range m.Arms {
			lp, ok := arm.Pat.(*rust.LitPat)
			if !ok {
				continue
			}
			body := rust.PrintExpr(arm.Body)
			seen := make(map[string]bool)
			var targets []string
			for _, sm := range stateAssign.FindAllStringSubmatch(body, -1) {
				if !seen[sm[1]] {
					seen[sm[1]] = true
					targets = append(targets, sm[1])
				}
			}
			sort.Strings(targets)
			if strings.Contains(body, "return Some(") {
				targets = append(targets, "yield")
			}
			out = append(out, lp.Text+" -> "+strings.Join(targets, " "))
		}
		return out
	}
	t.Fatalf("no Iterator impl for %s", typ)
	return nil
}

func TestGeneratorTransitions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		typ  string
		want []string
	}{
		{
			name: "fib",
			src:  "def fib(n: int):\n    a, b = 0, 1\n    for i in range(n):\n        yield a\n        a, b = b, a + b\n",
			typ:  "FibState",
			want: []string{"0 -> 1", "1 -> 2 3 yield", "2 -> usize::MAX", "3 -> 1"},
		},
		{
			name: "break leaves the loop",
			src:  "def gen_break(xs: list[int]):\n    for x in xs:\n        if x < 0:\n            break\n        yield x\n",
			typ:  "GenBreakState",
			want: []string{"0 -> 1", "1 -> 2 3 yield", "2 -> usize::MAX", "3 -> 1"},
		},
		{
			name: "return ends the iteration",
			src:  "def upto(xs: list[int], limit: int):\n    for x in xs:\n        if x > limit:\n            return\n        yield x\n",
			typ:  "UptoState",
			want: []string{"0 -> 1", "1 -> 2 3 usize::MAX yield", "2 -> usize::MAX", "3 -> 1"},
		},
		{
			name: "while loop",
			src:  "def counter(n: int):\n    i = 0\n    while i < n:\n        yield i\n        i += 1\n",
			typ:  "CounterState",
			want: []string{"0 -> 1", "1 -> 2 3 yield", "2 -> usize::MAX", "3 -> 1"},
		},
		{
			name: "yield from",
			src:  "def chain(xs: list[int], ys: list[int]):\n    yield from xs\n    yield from ys\n",
			typ:  "ChainState",
			want: []string{"0 -> 1", "1 -> 2 3 yield", "2 -> 4", "3 -> 1", "4 -> 5 6 yield", "5 -> usize::MAX", "6 -> 4"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := lower(t, tt.src)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			got := transitions(t, f, tt.typ)
			if strings.Join(got, "\n") != strings.Join(tt.want, "\n") {
				t.Errorf("transitions:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(tt.want, "\n"))
			}
		})
	}
}

func TestGeneratorIteratorFields(t *testing.T) {
	out := generate(t, "def chain(xs: list[int], ys: list[int]):\n    yield from xs\n    yield from ys\n")
	checkOutput(t, out, []string{
		"pub __iter",
		": Box<dyn Iterator<Item = i32>>,",
		"Box::new(std::iter::empty())",
		".next() {",
	}, []string{"#[derive(Debug, Clone)]"})
	if n := strings.Count(out, ": Box<dyn Iterator<Item = i32>>,"); n != 2 {
		t.Errorf("%d iterator fields, want one per loop:\n%s", n, out)
	}
}
