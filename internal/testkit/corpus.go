// Package testkit holds helpers shared by package tests: a corpus of small
// programs covering the supported Python subset and checks that hold for
// any parse.
package testkit

import (
	"sort"
	"testing"

	"pyrust/internal/ast"
	"pyrust/internal/parser"
	"pyrust/internal/source"
)

// Program is one corpus entry. Main is set when the program carries a
// __main__ guard.
type Program struct {
	Name string
	Src  string
	Main bool
}

var corpus = []Program{
	{Name: "arith", Src: "def add(a: int, b: int) -> int:\n    return a + b\n\n" +
		"def ratio(a: int, b: int) -> float:\n    return a / b\n\n" +
		"def half(a: int) -> int:\n    return a // 2\n"},
	{Name: "collections", Src: "def total(nums: list[int]) -> int:\n    return len(nums)\n\n" +
		"def pop_entry(d: dict[str, int], k: str) -> int:\n    return d.pop(k, -1)\n\n" +
		"def append_one(xs: list[int]) -> None:\n    xs.append(1)\n"},
	{Name: "loops", Src: "def sum_to(n: int) -> int:\n" +
		"    s = 0\n" +
		"    for i in range(n):\n" +
		"        if i % 2 == 0:\n" +
		"            continue\n" +
		"        s += i\n" +
		"    return s\n"},
	{Name: "generator", Src: "def counter(n: int):\n    i = 0\n    while i < n:\n        yield i\n        i += 1\n"},
	{Name: "exceptions", Src: "def check(n: int) -> int:\n" +
		"    if n < 0:\n" +
		"        raise ValueError(\"negative\")\n" +
		"    return n\n\n" +
		"def safe(a: int, b: int) -> int:\n" +
		"    try:\n" +
		"        if b == 0:\n" +
		"            raise ZeroDivisionError(\"zero\")\n" +
		"        return a\n" +
		"    except ZeroDivisionError:\n" +
		"        return 0\n"},
	{Name: "class", Src: "class Point:\n" +
		"    def __init__(self, x: int, y: int):\n" +
		"        self.x = x\n" +
		"        self.y = y\n\n" +
		"    def norm2(self) -> int:\n" +
		"        return self.x * self.x + self.y * self.y\n"},
	{Name: "strings", Src: "def greet(name: str) -> str:\n    return \"hello \" + name\n\n" +
		"def shout(name: str) -> str:\n    return name.upper()\n"},
	{Name: "main", Main: true, Src: "def add(a: int, b: int) -> int:\n    return a + b\n\n" +
		"if __name__ == \"__main__\":\n    print(add(1, 2))\n"},
}

// Corpus returns the sample programs sorted by name.
func Corpus() []Program {
	out := append([]Program(nil), corpus...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// MustParse parses src as name and fails tb on any parse error.
func MustParse(tb testing.TB, name, src string) (*ast.Module, *source.File) {
	tb.Helper()
	fs := source.NewFileSet()
	res := parser.ParseString(fs, name, src, parser.Options{})
	if res.Bag.HasErrors() {
		tb.Fatalf("parse errors for %s: %v", name, res.Bag.Items())
	}
	return res.Module, fs.Get(res.Module.File)
}
