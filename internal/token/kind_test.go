package token

import "testing"

func TestKeywords(t *testing.T) {
	k, ok := LookupKeyword("yield")
	if !ok || k != KwYield || !k.IsKeyword() {
		t.Fatalf("yield lookup = %v %v", k, ok)
	}
	if _, ok := LookupKeyword("print"); ok {
		t.Fatal("print is not a keyword")
	}
	if KwLambda.String() != "lambda" {
		t.Fatalf("String = %q", KwLambda.String())
	}
}

func TestAugBase(t *testing.T) {
	if DoubleSlashAssign.AugBase() != DoubleSlash || !DoubleSlashAssign.IsAugAssign() {
		t.Fatal("//= should map to //")
	}
	if Assign.IsAugAssign() {
		t.Fatal("= is not augmented")
	}
}
