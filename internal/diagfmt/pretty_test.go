package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"pyrust/internal/diag"
	"pyrust/internal/source"
)

const sample = "def f(x):\n    return y\n\nz = 1\n"

func sampleDiag(t *testing.T, path string) (*source.FileSet, diag.Diagnostic) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual(path, []byte(sample))
	d := diag.NewError(diag.TypeMismatch, source.Span{File: id, Start: 21, End: 22}, "unknown name y")
	return fs, d
}

func render(fs *source.FileSet, d diag.Diagnostic, opts PrettyOpts) string {
	var buf bytes.Buffer
	PrettyList(&buf, []diag.Diagnostic{d}, fs, opts)
	return buf.String()
}

func TestPretty(t *testing.T) {
	fs, d := sampleDiag(t, "src/app.py")
	got := render(fs, d, PrettyOpts{})
	want := "src/app.py:2:12: ERROR PYR2001: unknown name y\n" +
		" 2 |     return y\n" +
		"   |            ^\n"
	if got != want {
		t.Errorf("Pretty =\n%s\nwant\n%s", got, want)
	}
}

func TestPathModes(t *testing.T) {
	fs, d := sampleDiag(t, "/home/user/project/src/app.py")
	tests := []struct {
		name string
		mode PathMode
		base string
		want string
	}{
		{"absolute", PathModeAbsolute, "", "/home/user/project/src/app.py:2:12"},
		{"relative", PathModeRelative, "/home/user/project", "src/app.py:2:12"},
		{"basename", PathModeBasename, "", "app.py:2:12"},
		{"auto inside base", PathModeAuto, "/home/user", "project/src/app.py:2:12"},
		{"auto outside base", PathModeAuto, "/srv", "/home/user/project/src/app.py:2:12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := render(fs, d, PrettyOpts{PathMode: tt.mode, BaseDir: tt.base})
			if !strings.HasPrefix(out, tt.want+": ") {
				t.Errorf("output starts with %q, want %q", strings.SplitN(out, "\n", 2)[0], tt.want)
			}
		})
	}
}

func TestPrettyUnderline(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("w.py", []byte("s = \"日本\" + y\n    return value\n"))
	tests := []struct {
		name  string
		span  source.Span
		caret string
	}{
		{"wide runes before the span", source.Span{File: id, Start: 15, End: 16}, "   | " + strings.Repeat(" ", 13) + "^\n"},
		{"span wider than one column", source.Span{File: id, Start: 21, End: 27}, "   | " + strings.Repeat(" ", 4) + "^~~~~~\n"},
		{"empty span", source.Span{File: id, Start: 4, End: 4}, "   | " + strings.Repeat(" ", 4) + "^\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := render(fs, diag.NewError(diag.TypeMismatch, tt.span, "m"), PrettyOpts{})
			if !strings.HasSuffix(out, tt.caret) {
				t.Errorf("underline mismatch:\n%s", out)
			}
		})
	}
}

func TestPrettyContextAndNotes(t *testing.T) {
	fs, d := sampleDiag(t, "app.py")
	d = d.WithNote(source.Span{File: d.Primary.File, Start: 6, End: 7}, "parameter declared here")
	out := render(fs, d, PrettyOpts{Context: 1, ShowNotes: true})
	for _, want := range []string{
		" 1 | def f(x):\n",
		" 2 |     return y\n",
		" 3 | \n",
		"  note: app.py:1:7: parameter declared here\n",
		"   |       ^\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "z = 1") {
		t.Errorf("context exceeds one line:\n%s", out)
	}
}

func TestPrettyWidthAndColor(t *testing.T) {
	fs, d := sampleDiag(t, "app.py")
	out := render(fs, d, PrettyOpts{Width: 8})
	if !strings.Contains(out, " 2 |     ret…\n") {
		t.Errorf("line not clipped:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("escape codes without Color")
	}
	if colored := render(fs, d, PrettyOpts{Color: true}); !strings.Contains(colored, "\x1b[") {
		t.Errorf("no escape codes with Color:\n%q", colored)
	}
}

func TestPrettyBag(t *testing.T) {
	fs, d := sampleDiag(t, "app.py")
	bag := diag.NewBag(0)
	bag.Add(d)
	bag.Add(diag.New(diag.SevWarning, diag.BorrowAliasApprox, source.Span{File: d.Primary.File, Start: 0, End: 3}, "aliased"))
	bag.Sort()
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{})
	out := buf.String()
	first := strings.Index(out, "WARNING PYR3001")
	second := strings.Index(out, "ERROR PYR2001")
	if first < 0 || second < 0 || first > second {
		t.Errorf("unexpected order:\n%s", out)
	}
	buf.Reset()
	Pretty(&buf, nil, fs, PrettyOpts{})
	if buf.Len() != 0 {
		t.Errorf("nil bag printed %q", buf.String())
	}
}
