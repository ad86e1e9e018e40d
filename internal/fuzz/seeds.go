package fuzztests

import (
	"testing"

	"pyrust/internal/testkit"
)

const (
	maxFuzzInput = 1 << 16 // 64 KiB
	maxSeedBytes = 64 << 10
)

func addCorpusSeeds(f *testing.F) {
	for _, p := range testkit.Corpus() {
		f.Add(clampSeed([]byte(p.Src)))
	}
	f.Add([]byte{})
	f.Add([]byte("x = 1\n"))
}

// addSyntaxSeeds adds malformed and unusual inputs for the front end.
func addSyntaxSeeds(f *testing.F) {
	f.Add([]byte("def f(:\n    pass\n"))
	f.Add([]byte("if x:\n\tpass\n  else:\n"))
	f.Add([]byte("s = f\"{a!r:>{w}}\"\n"))
	f.Add([]byte("(((((\n"))
	f.Add([]byte("class A:\n    def __init__(self):\n        self.x = [i for i in range(3) if i]\n"))
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}
