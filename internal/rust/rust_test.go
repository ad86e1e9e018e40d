package rust

import (
	"errors"
	"strings"
	"testing"

	"pyrust/internal/types"
)

func TestPrintExprPrecedence(t *testing.T) {
	i32 := types.Prim(types.I32)
	tests := []struct {
		name string
		e    Expr
		want string
	}{
		{"left assoc", Bin("-", Bin("-", P("a"), P("b")), P("c")), "a - b - c"},
		{"right grouping", Bin("-", P("a"), Bin("-", P("b"), P("c"))), "a - (b - c)"},
		{"mul over add", Bin("*", Bin("+", P("a"), P("b")), P("c")), "(a + b) * c"},
		{"add under mul", Bin("+", P("a"), Bin("*", P("b"), P("c"))), "a + b * c"},
		{"cast binds tight", &Cast{X: Bin("+", P("a"), P("b")), Type: types.RustF64}, "(a + b) as f64"},
		{"cast operand", Bin("/", &Cast{X: P("a"), Type: types.RustF64}, &Cast{X: P("b"), Type: types.RustF64}), "a as f64 / b as f64"},
		{"cast before less", Bin("<", &Cast{X: P("a"), Type: i32}, P("b")), "(a as i32) < b"},
		{"method on cast", M(&Cast{X: P("n"), Type: types.RustF64}, "sqrt"), "(n as f64).sqrt()"},
		{"len cast", &Cast{X: M(P("nums"), "len"), Type: i32}, "nums.len() as i32"},
		{"negative literal receiver", M(L("-2"), "abs"), "(-2).abs()"},
		{"not of compare", Not(Bin("==", P("a"), P("b"))), "!(a == b)"},
		{"compare chain groups", Bin("==", Bin("<", P("a"), P("b")), P("c")), "(a < b) == c"},
		{"logic", Bin("||", Bin("&&", P("a"), P("b")), P("c")), "a && b || c"},
		{"ref of index", &Ref{X: &Index{X: P("v"), Index: L("0")}, Mut: true}, "&mut v[0]"},
		{"deref method", M(&Unary{Op: "*", X: P("x")}, "clone"), "(*x).clone()"},
		{"try", &Try{X: C("parse", P("s"))}, "parse(s)?"},
		{"macro", &Macro{Name: "vec", Args: []Expr{L("1"), L("2")}, Brackets: true}, "vec![1, 2]"},
		{"one tuple", &Tuple{Elems: []Expr{P("a")}}, "(a,)"},
		{"struct shorthand", &StructLit{Name: "S", Fields: []FieldInit{{Name: "n", Value: P("n")}, {Name: "i", Value: L("0")}}}, "S { n, i: 0 }"},
		{"closure", &Closure{Params: []string{"x"}, Body: Bin("*", P("x"), L("2"))}, "|x| x * 2"},
		{"range", &Range{Lo: L("0"), Hi: Bin("+", P("n"), L("1"))}, "0..n + 1"},
		{"range receiver", M(&Range{Lo: L("0"), Hi: P("n")}, "rev"), "(0..n).rev()"},
		{"compound assign", &Assign{Op: "+=", L: P("s"), R: P("x")}, "s += x"},
		{"return", &Return{X: Bin("+", P("a"), P("b"))}, "return a + b"},
		{"turbofish", &MethodCall{Recv: P("it"), Method: "collect", Turbo: "Vec<_>"}, "it.collect::<Vec<_>>()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PrintExpr(tt.e); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintFile(t *testing.T) {
	i32 := types.Prim(types.I32)
	body := &Block{
		Stmts: []Stmt{
			&Let{Pat: &Ident{Name: "total", Mut: true}, Type: i32, Value: L("0")},
			Semi(&For{
				Pat:  Var("x"),
				Iter: M(P("nums"), "iter"),
				Body: &Block{Stmts: []Stmt{Semi(&Assign{Op: "+=", L: P("total"), R: &Unary{Op: "*", X: P("x")}})}},
			}),
			Semi(&If{
				Cond: Bin(">", P("total"), L("10")),
				Then: &Block{Stmts: []Stmt{Semi(&Return{X: L("10")})}},
				Else: &BlockExpr{Block: &Block{Stmts: []Stmt{&Comment{Text: "small"}}}},
			}),
		},
		Tail: P("total"),
	}
	f := &File{
		Header: []string{"Generated by pyrust. Do not edit."},
		Attrs:  []string{"allow(unused_mut)"},
		Uses:   []string{"std::collections::HashMap", "std::borrow::Cow", "std::collections::HashMap"},
		Items: []Item{
			&Struct{Derives: []string{"Debug", "Clone"}, Name: "CounterState", Fields: []Field{
				{Name: "state", Type: i32},
				{Name: "n", Type: i32},
			}},
			&Fn{
				Doc:    "Sums nums.",
				Pub:    true,
				Name:   "total",
				Params: []Param{{Name: "nums", Type: types.RefTo(types.VecOf(i32), false, "")}},
				Ret:    i32,
				Body:   body,
			},
		},
	}
	want := `// Generated by pyrust. Do not edit.
#![allow(unused_mut)]

use std::borrow::Cow;
use std::collections::HashMap;

#[derive(Debug, Clone)]
pub struct CounterState {
    pub state: i32,
    pub n: i32,
}

/// Sums nums.
pub fn total(nums: &Vec<i32>) -> i32 {
    let mut total: i32 = 0;
    for x in nums.iter() {
        total += *x;
    }
    if total > 10 {
        return 10;
    } else {
        // small
    }
    total
}
`
	got := Print(f)
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
	if err := Validate(got); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestPrintImplAndMatch(t *testing.T) {
	next := &Fn{
		Name:     "next",
		Receiver: "&mut self",
		Ret:      types.OptionOf(types.Prim(types.I32)),
		Body: &Block{Tail: &Match{X: &FieldExpr{X: P("self"), Name: "state"}, Arms: []Arm{
			{Pat: &LitPat{Text: "0"}, Body: &BlockExpr{Block: &Block{
				Stmts: []Stmt{Semi(&Assign{L: &FieldExpr{X: P("self"), Name: "state"}, R: L("1")})},
				Tail:  C("Some", L("1")),
			}}},
			{Pat: &Wild{}, Body: P("None")},
		}}},
	}
	impl := &Impl{
		Trait: "Iterator",
		Type:  "CounterState",
		Assoc: []AssocType{{Name: "Item", Type: types.Prim(types.I32)}},
		Fns:   []*Fn{next},
	}
	want := `impl Iterator for CounterState {
    type Item = i32;

    fn next(&mut self) -> Option<i32> {
        match self.state {
            0 => {
                self.state = 1;
                Some(1)
            },
            _ => None,
        }
    }
}
`
	if got := PrintItem(impl); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestEscapeIdent(t *testing.T) {
	tests := map[string]string{
		"type":  "r#type",
		"match": "r#match",
		"self":  "self_",
		"crate": "crate_",
		"value": "value",
	}
	for in, want := range tests {
		if got := EscapeIdent(in); got != want {
			t.Errorf("EscapeIdent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		src  string
		err  string
	}{
		{"ok", "fn f() -> i32 {\n    let x = \"}\";\n    'a'.len_utf8() as i32\n}\n", ""},
		{"lifetime", "fn f<'a>(s: &'a str) -> &'a str {\n    s\n}\n", ""},
		{"if let", "fn f(o: Option<i32>) {\n    if let Some(x) = o {\n        let y = x;\n    }\n}\n", ""},
		{"raw string", "const S: &str = r#\"a \" { b\"#;\n", ""},
		{"nested let", "fn f() {\n    let x = {\n        let y = 1;\n        y\n    };\n}\n", ""},
		{"comment braces", "// {\nfn f() {}\n/* ( */\n", ""},
		{"unclosed", "fn f() {\n    let x = 1;\n", "1:8: unclosed '{'"},
		{"mismatch", "fn f() {\n    g(1];\n}\n", "2:8: ']' closes '(' opened at 2:6"},
		{"stray", "}\n", "1:1: unexpected '}'"},
		{"unterminated let", "fn f() {\n    let x = 1\n}\n", "2:5: unterminated statement"},
		{"unterminated string", "fn f() { \"abc }\n", "1:10: unterminated string literal"},
		{"placeholder", "fn f(x: /* unsupported: complex */) {}\n", "placeholder"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.src)
			if tt.err == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.err)
			}
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("error %T is not a *SyntaxError", err)
			}
			if !strings.Contains(err.Error(), tt.err) {
				t.Fatalf("error %q does not contain %q", err, tt.err)
			}
		})
	}
}
