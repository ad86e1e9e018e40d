package fuzztests

import (
	"context"
	"testing"
	"time"

	"pyrust/internal/config"
	"pyrust/internal/diag"
	"pyrust/internal/driver"
	"pyrust/internal/parser"
	"pyrust/internal/rust"
	"pyrust/internal/source"
	"pyrust/internal/testkit"
)

// parseTimeout is the maximum time allowed for one input. Longer runs
// indicate a loop in error recovery.
const parseTimeout = 5 * time.Second

func FuzzParserNoHang(f *testing.F) {
	addCorpusSeeds(f)
	addSyntaxSeeds(f)
	f.Add([]byte("def f(\n    a,\n    b"))  // unterminated parameter list
	f.Add([]byte("while True:\nbreak\n"))    // missing indent
	f.Add([]byte("x = [1, 2\ny = 3\n"))      // bracket left open
	f.Add([]byte("lambda: lambda: lambda:")) // nested lambdas without bodies

	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		done := make(chan parser.Result, 1)
		go func() {
			fs := source.NewFileSet()
			done <- parser.ParseString(fs, "fuzz.py", string(input), parser.Options{MaxErrors: 128})
		}()
		select {
		case res := <-done:
			if res.Module == nil {
				t.Fatal("ParseString returned no module")
			}
			if !res.Bag.HasErrors() {
				fs := source.NewFileSet()
				reparsed := parser.ParseString(fs, "fuzz.py", string(input), parser.Options{})
				if err := testkit.CheckSpanInvariants(reparsed.Module, fs.Get(reparsed.Module.File)); err != nil {
					t.Fatal(err)
				}
			}
		case <-time.After(parseTimeout):
			t.Fatalf("parser hang detected: parsing took longer than %v\ninput (%d bytes): %q",
				parseTimeout, len(input), truncateForLog(input, 200))
		}
	})
}

// FuzzTranspile runs every input that parses through the whole pipeline.
// The run must not panic, and a run without a diagnostic must produce
// source that passes the structural check.
func FuzzTranspile(f *testing.F) {
	addCorpusSeeds(f)
	cfg := config.Default()
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		res := parser.ParseString(source.NewFileSet(), "fuzz.py", string(input), parser.Options{MaxErrors: 16})
		if res.Bag.HasErrors() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), parseTimeout)
		defer cancel()
		out, d := driver.Transpile(ctx, res.Module, cfg)
		if d != nil {
			if d.Severity != diag.SevError {
				t.Fatalf("failure reported with severity %v", d.Severity)
			}
			return
		}
		if err := rust.Validate(out.Code); err != nil {
			t.Fatalf("accepted input produced malformed Rust: %v\n%s", err, out.Code)
		}
	})
}

func truncateForLog(input []byte, maxLen int) []byte {
	if len(input) <= maxLen {
		return input
	}
	return append(input[:maxLen:maxLen], []byte("...")...)
}
