package fuzztests

import (
	"testing"

	"pyrust/internal/diag"
	"pyrust/internal/lexer"
	"pyrust/internal/source"
	"pyrust/internal/token"
)

func FuzzLexerTokens(f *testing.F) {
	addCorpusSeeds(f)
	addSyntaxSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		fs := source.NewFileSet()
		file := fs.Get(fs.AddVirtual("fuzz.py", input))

		bag := diag.NewBag(64)
		toks := lexer.Tokenize(file, diag.BagReporter{Bag: bag})
		if len(toks) == 0 || toks[len(toks)-1].Kind != token.EOF {
			t.Fatalf("token stream does not end with EOF: %v", toks)
		}
		end := uint32(len(file.Content)) //nolint:gosec // clamped above
		for _, tok := range toks {
			if tok.Span.Start > tok.Span.End || tok.Span.End > end {
				t.Fatalf("token %v has span %v outside %d bytes", tok, tok.Span, end)
			}
		}
	})
}
