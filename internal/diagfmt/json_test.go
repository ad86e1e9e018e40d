package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"pyrust/internal/diag"
	"pyrust/internal/lexer"
	"pyrust/internal/source"
	"pyrust/internal/token"
)

func TestJSON(t *testing.T) {
	fs, d := sampleDiag(t, "/work/app.py")
	d = d.WithNote(source.Span{File: d.Primary.File, Start: 6, End: 7}, "declared here")
	bag := diag.NewBag(0)
	bag.Add(d)
	bag.Add(diag.New(diag.SevWarning, diag.BorrowAliasApprox, d.Primary, "aliased"))

	tests := []struct {
		name  string
		opts  JSONOpts
		check func(t *testing.T, out DiagnosticsOutput)
	}{
		{"defaults", JSONOpts{}, func(t *testing.T, out DiagnosticsOutput) {
			if out.Count != 2 || len(out.Diagnostics) != 2 {
				t.Fatalf("count = %d", out.Count)
			}
			first := out.Diagnostics[0]
			if first.Severity != "ERROR" || first.Code != "PYR2001" || first.Kind != "TypeMismatch" {
				t.Errorf("first = %+v", first)
			}
			if first.Location.File != "/work/app.py" || first.Location.StartByte != 21 || first.Location.StartLine != 0 {
				t.Errorf("location = %+v", first.Location)
			}
			if first.Notes != nil {
				t.Error("notes included without IncludeNotes")
			}
		}},
		{"positions and notes", JSONOpts{IncludePositions: true, IncludeNotes: true, PathMode: PathModeBasename}, func(t *testing.T, out DiagnosticsOutput) {
			loc := out.Diagnostics[0].Location
			if loc.File != "app.py" || loc.StartLine != 2 || loc.StartCol != 12 || loc.EndCol != 13 {
				t.Errorf("location = %+v", loc)
			}
			notes := out.Diagnostics[0].Notes
			if len(notes) != 1 || notes[0].Message != "declared here" || notes[0].Location.StartCol != 7 {
				t.Errorf("notes = %+v", notes)
			}
		}},
		{"max", JSONOpts{Max: 1}, func(t *testing.T, out DiagnosticsOutput) {
			if out.Count != 1 {
				t.Errorf("count = %d, want 1", out.Count)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := JSON(&buf, bag, fs, tt.opts); err != nil {
				t.Fatalf("JSON: %v", err)
			}
			var out DiagnosticsOutput
			if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
				t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
			}
			tt.check(t, out)
		})
	}
}

func TestJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := JSONList(&buf, nil, nil, JSONOpts{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"diagnostics": []`) {
		t.Errorf("empty output = %s", buf.String())
	}
}

func TestSarif(t *testing.T) {
	fs, d := sampleDiag(t, "/work/src/app.py")
	bag := diag.NewBag(0)
	bag.Add(d)
	bag.Add(diag.New(diag.SevWarning, diag.BorrowAliasApprox, d.Primary, "aliased"))
	var buf bytes.Buffer
	meta := SarifRunMeta{ToolName: "pyrust", ToolVersion: "0.1.0", InvocationArgs: []string{"check", "app.py"}, BaseDir: "/work"}
	if err := Sarif(&buf, bag, fs, meta); err != nil {
		t.Fatalf("Sarif: %v", err)
	}
	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("invalid SARIF: %v", err)
	}
	if log.Version != "2.1.0" || len(log.Runs) != 1 {
		t.Fatalf("log = %+v", log)
	}
	run := log.Runs[0]
	if len(run.Results) != 2 || len(run.Tool.Driver.Rules) != 2 {
		t.Fatalf("run = %+v", run)
	}
	res := run.Results[0]
	if res.RuleID != "PYR2001" || res.Level != "error" {
		t.Errorf("result = %+v", res)
	}
	if uri := res.Locations[0].PhysicalLocation.ArtifactLocation.URI; uri != "src/app.py" {
		t.Errorf("uri = %q", uri)
	}
	if run.Results[1].Level != "warning" {
		t.Errorf("warning level = %q", run.Results[1].Level)
	}
	if len(run.Invocations) != 1 || run.Invocations[0].ExecutionSuccessful {
		t.Errorf("invocations = %+v", run.Invocations)
	}
}

func TestFormatTokens(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("t.py", []byte("x = 1\n"))
	toks := lexer.Tokenize(fs.Get(id), diag.NopReporter{})
	if len(toks) == 0 || toks[len(toks)-1].Kind != token.EOF {
		t.Fatalf("tokens = %v", toks)
	}

	var buf bytes.Buffer
	if err := FormatTokensPretty(&buf, toks, fs); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != len(toks) {
		t.Errorf("got %d lines for %d tokens:\n%s", len(lines), len(toks), buf.String())
	}
	if !strings.Contains(lines[0], `"x" at 1:1-1:2`) {
		t.Errorf("first line = %q", lines[0])
	}

	buf.Reset()
	if err := FormatTokensJSON(&buf, toks); err != nil {
		t.Fatal(err)
	}
	var out []TokenOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(out) != len(toks) || out[0].Kind != "name" || out[0].Text != "x" {
		t.Errorf("json tokens = %+v", out)
	}
}
