package diag

import (
	"errors"
	"fmt"
	"testing"

	"pyrust/internal/source"
)

func TestCodeID(t *testing.T) {
	if got := UnsupportedConstruct.ID(); got != "PYR1001" {
		t.Fatalf("ID = %q", got)
	}
	if got := TypeMismatch.Kind(); got != "TypeMismatch" {
		t.Fatalf("Kind = %q", got)
	}
	if got := BridgeArityMismatch.Kind(); got != "ConversionError" {
		t.Fatalf("Kind = %q", got)
	}
}

func TestBagSortDedup(t *testing.T) {
	b := NewBag(0)
	b.Add(NewError(TypeMismatch, source.Span{Start: 10, End: 12}, "b"))
	b.Add(NewError(TypeMismatch, source.Span{Start: 1, End: 2}, "a"))
	b.Add(NewError(TypeMismatch, source.Span{Start: 1, End: 2}, "a"))
	b.Dedup()
	b.Sort()
	items := b.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items after dedup, got %d", len(items))
	}
	if items[0].Message != "a" {
		t.Fatalf("sort order wrong: %v", items)
	}
	if !b.HasErrors() {
		t.Fatalf("HasErrors = false")
	}
}

func TestBagLimit(t *testing.T) {
	b := NewBag(1)
	if !b.Add(NewError(CodeGenError, source.Span{}, "x")) {
		t.Fatal("first add rejected")
	}
	if b.Add(NewError(CodeGenError, source.Span{}, "y")) {
		t.Fatal("limit not enforced")
	}
}

func TestErrorAs(t *testing.T) {
	err := fmt.Errorf("lowering: %w", Unsupported(source.Span{Start: 3, End: 4}, "yield from"))
	var de *Error
	if !errors.As(err, &de) {
		t.Fatal("errors.As failed")
	}
	if de.Diag.Code != UnsupportedConstruct {
		t.Fatalf("code = %v", de.Diag.Code)
	}
	d := AsDiagnostic(errors.New("plain"), CodeGenError)
	if d.Code != CodeGenError || d.Message != "plain" {
		t.Fatalf("fallback diagnostic = %+v", d)
	}
}

func TestFormatShort(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("m.py", []byte("x = 1\ny = z\n"))
	diags := []Diagnostic{
		NewError(TypeMismatch, source.Span{File: id, Start: 10, End: 11}, "unknown name z"),
		New(SevWarning, BorrowAliasApprox, source.Span{File: id, Start: 0, End: 1}, "aliased"),
	}
	got := FormatShort(diags, fs)
	want := "WARNING PYR3001 m.py:1:1 aliased\nERROR PYR2001 m.py:2:5 unknown name z"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestSeverityNames(t *testing.T) {
	tests := []struct {
		sev          Severity
		upper, level string
	}{
		{SevNote, "NOTE", "note"},
		{SevWarning, "WARNING", "warning"},
		{SevError, "ERROR", "error"},
		{Severity(9), "UNKNOWN", "note"},
	}
	for _, tt := range tests {
		if got := tt.sev.String(); got != tt.upper {
			t.Errorf("String(%d) = %q, want %q", tt.sev, got, tt.upper)
		}
		if got := tt.sev.Level(); got != tt.level {
			t.Errorf("Level(%d) = %q, want %q", tt.sev, got, tt.level)
		}
	}
}
