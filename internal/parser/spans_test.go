package parser_test

import (
	"testing"

	"pyrust/internal/testkit"
)

func TestCorpusSpanInvariants(t *testing.T) {
	for _, p := range testkit.Corpus() {
		t.Run(p.Name, func(t *testing.T) {
			mod, file := testkit.MustParse(t, p.Name+".py", p.Src)
			if err := testkit.CheckSpanInvariants(mod, file); err != nil {
				t.Error(err)
			}
		})
	}
}
