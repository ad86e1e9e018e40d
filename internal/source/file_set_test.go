package source

import "testing"

func TestFileSetResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.py", []byte("def f():\n    return 1\n"))

	tests := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{1, 1}},
		{4, LineCol{1, 5}},
		{8, LineCol{1, 9}},
		{9, LineCol{2, 1}},
		{13, LineCol{2, 5}},
	}
	for _, tt := range tests {
		got, _ := fs.Resolve(Span{File: id, Start: tt.off, End: tt.off})
		if got != tt.want {
			t.Errorf("offset %d: got %+v, want %+v", tt.off, got, tt.want)
		}
	}
}

func TestFileSetVersions(t *testing.T) {
	fs := NewFileSet()
	first := fs.AddVirtual("m.py", []byte("x = 1\n"))
	second := fs.AddVirtual("./m.py", []byte("x = 2\n"))
	if first == second {
		t.Fatalf("expected a new FileID for the second version")
	}
	f, ok := fs.Lookup("m.py")
	if !ok || f.ID != second {
		t.Fatalf("lookup returned %v, want latest version %d", f, second)
	}
}

func TestCRLFAndLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("w.py", []byte("a = 1\r\nb = 2\r\n"))
	f := fs.Get(id)
	if got := f.Line(2); got != "b = 2" {
		t.Fatalf("line 2 = %q", got)
	}
	if got := fs.Text(Span{File: id, Start: 0, End: 5}); got != "a = 1" {
		t.Fatalf("text = %q", got)
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 10, End: 20}
	b := Span{File: 1, Start: 5, End: 12}
	if got := a.Cover(b); got != (Span{File: 1, Start: 5, End: 20}) {
		t.Fatalf("cover = %v", got)
	}
	if got := a.Cover(Span{File: 2, Start: 0, End: 100}); got != a {
		t.Fatalf("cross-file cover changed span: %v", got)
	}
	if !a.Cover(b).Contains(a) {
		t.Fatalf("cover must contain its inputs")
	}
}
