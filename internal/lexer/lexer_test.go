package lexer

import (
	"strings"
	"testing"

	"pyrust/internal/diag"
	"pyrust/internal/source"
	"pyrust/internal/token"
)

func lex(t *testing.T, src string) ([]token.Token, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("t.py", []byte(src))
	bag := diag.NewBag(0)
	return Tokenize(fs.Get(id), diag.BagReporter{Bag: bag}), bag
}

func kinds(toks []token.Token) string {
	parts := make([]string, len(toks))
	for i, tok := range toks {
		parts[i] = tok.Kind.String()
	}
	return strings.Join(parts, " ")
}

func TestIndentDedent(t *testing.T) {
	src := "def f(x):\n    if x:\n        return 1\n    return 2\n"
	toks, bag := lex(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	want := "def name ( name ) : newline indent if name : newline indent return integer newline dedent return integer newline dedent end of file"
	if got := kinds(toks); got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestBlankAndCommentLinesIgnored(t *testing.T) {
	src := "x = 1\n\n# comment\n   \ny = 2"
	toks, _ := lex(t, src)
	want := "name = integer newline name = integer newline end of file"
	if got := kinds(toks); got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestImplicitLineJoining(t *testing.T) {
	src := "x = [1,\n     2]\ny = 1 + \\\n  2\n"
	toks, bag := lex(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	want := "name = [ integer , integer ] newline name = integer + integer newline end of file"
	if got := kinds(toks); got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestStrings(t *testing.T) {
	toks, bag := lex(t, `a = "x\ty" + r'\n' + f"{n}!" + """multi
line"""`)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if toks[2].Kind != token.String || toks[2].Text != "x\ty" {
		t.Fatalf("escaped string = %v", toks[2])
	}
	if toks[4].Text != `\n` {
		t.Fatalf("raw string = %q", toks[4].Text)
	}
	if toks[6].Kind != token.FString || toks[6].Text != "{n}!" {
		t.Fatalf("f-string = %v", toks[6])
	}
	if toks[8].Text != "multi\nline" {
		t.Fatalf("triple string = %q", toks[8].Text)
	}
}

func TestNumbers(t *testing.T) {
	toks, bag := lex(t, "1_000 0xff 3.5 1e3 .5")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	want := []struct {
		kind token.Kind
		text string
	}{
		{token.Int, "1000"}, {token.Int, "0xff"}, {token.Float, "3.5"},
		{token.Float, "1e3"}, {token.Float, ".5"},
	}
	for i, w := range want {
		if toks[i].Kind != w.kind || toks[i].Text != w.text {
			t.Errorf("token %d = %v, want %v(%s)", i, toks[i], w.kind, w.text)
		}
	}
}

func TestOperatorsLongestMatch(t *testing.T) {
	toks, _ := lex(t, "a //= b ** 2 -> c")
	want := "name //= name ** integer -> name newline end of file"
	if got := kinds(toks); got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestBadDedent(t *testing.T) {
	_, bag := lex(t, "if x:\n    y = 1\n  z = 2\n")
	if !bag.HasErrors() {
		t.Fatal("expected indentation error")
	}
	if d, _ := bag.FirstError(); d.Code != diag.LexBadIndent {
		t.Fatalf("code = %v", d.Code)
	}
}

func TestUnclosedBracketPointsAtOpener(t *testing.T) {
	tests := []struct {
		src   string
		start uint32
		text  string
	}{
		{"def f(:\n    pass\n", 5, "("},
		{"xs = [1, (2, 3)\ny = 4\n", 5, "["},
		{"d = {'a': [1, 2\n", 10, "["},
	}
	for _, tt := range tests {
		_, bag := lex(t, tt.src)
		d, ok := bag.FirstError()
		if !ok || d.Code != diag.LexUnbalancedBracket {
			t.Fatalf("%q: expected unbalanced bracket, got %v", tt.src, bag.Items())
		}
		if d.Primary.Start != tt.start || d.Primary.Len() != 1 {
			t.Errorf("%q: span = %+v, want the %q at %d", tt.src, d.Primary, tt.text, tt.start)
		}
		if !strings.Contains(d.Message, "'"+tt.text+"'") {
			t.Errorf("%q: message = %q", tt.src, d.Message)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	_, bag := lex(t, "x = 'abc\n")
	if d, ok := bag.FirstError(); !ok || d.Code != diag.LexUnterminatedString {
		t.Fatalf("expected unterminated string, got %v", bag.Items())
	}
}

func TestNFKCIdentifiers(t *testing.T) {
	toks, _ := lex(t, "ﬁle = 1")
	if toks[0].Text != "file" {
		t.Fatalf("identifier not normalized: %q", toks[0].Text)
	}
}

func TestUnescape(t *testing.T) {
	if got := Unescape(`a\x41\u00e9\q`); got != `aAé\q` {
		t.Fatalf("Unescape = %q", got)
	}
}
