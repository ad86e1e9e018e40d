package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pyrust/internal/config"
	"pyrust/internal/opt"
)

const addSrc = "def add(a: int, b: int) -> int:\n    return a + b\n\n" +
	"if __name__ == \"__main__\":\n    print(add(1, 2))\n"

// execute runs the CLI with args and returns stdout, stderr and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

// project creates a directory holding pyrust.toml and the given files.
func project(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	if _, _, err := execute(t, "init", "--quiet", dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	for name, text := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestTranspileFile(t *testing.T) {
	dir := project(t, map[string]string{"add.py": addSrc})
	out, _, err := execute(t, "transpile", filepath.Join(dir, "add.py"))
	if err != nil {
		t.Fatalf("transpile: %v", err)
	}
	for _, want := range []string{"pub fn add(a: i32, b: i32) -> i32", "fn main()"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout lacks %q:\n%s", want, out)
		}
	}

	out, _, err = execute(t, "transpile", "--int-width", "i64", filepath.Join(dir, "add.py"))
	if err != nil || !strings.Contains(out, "a: i64") {
		t.Errorf("--int-width ignored (err %v):\n%s", err, out)
	}
}

func TestTranspileCrate(t *testing.T) {
	dir := project(t, map[string]string{"add.py": addSrc})
	crate := filepath.Join(dir, "crate")
	if _, _, err := execute(t, "transpile", "--cargo", "-o", crate, filepath.Join(dir, "add.py")); err != nil {
		t.Fatalf("transpile --cargo: %v", err)
	}
	manifest, err := os.ReadFile(filepath.Join(crate, "Cargo.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(manifest), `path = "src/main.rs"`) {
		t.Errorf("manifest:\n%s", manifest)
	}
	if _, err := os.Stat(filepath.Join(crate, "src", "main.rs")); err != nil {
		t.Errorf("main.rs not written: %v", err)
	}
	if _, _, err := execute(t, "transpile", "--cargo", filepath.Join(dir, "add.py")); err == nil {
		t.Error("--cargo without --output accepted")
	}
}

func TestTranspileDir(t *testing.T) {
	dir := project(t, map[string]string{
		"src/add.py":     addSrc,
		"src/pkg/sub.py": "def sub(a: int, b: int) -> int:\n    return a - b\n",
	})
	out := filepath.Join(dir, "out")
	_, stderr, err := execute(t, "transpile", "--ui", "off", "--no-cache", "-o", out, filepath.Join(dir, "src"))
	if err != nil {
		t.Fatalf("transpile dir: %v\n%s", err, stderr)
	}
	if !strings.Contains(stderr, "transpiled 2 of 2 files") {
		t.Errorf("summary missing:\n%s", stderr)
	}
	code, err := os.ReadFile(filepath.Join(out, "pkg", "sub.rs"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(code), "pub fn sub(a: i32, b: i32) -> i32") {
		t.Errorf("sub.rs:\n%s", code)
	}
}

func TestCheck(t *testing.T) {
	dir := project(t, map[string]string{
		"good.py": addSrc,
		"bad.py":  "def f(:\n    pass\n",
	})
	out, _, err := execute(t, "check", filepath.Join(dir, "good.py"))
	if err != nil || !strings.Contains(out, "ok: 1 file(s)") {
		t.Errorf("check good.py = %v:\n%s", err, out)
	}
	out, _, err = execute(t, "check", "--format", "short", filepath.Join(dir, "bad.py"))
	if !errors.Is(err, errFailed) {
		t.Fatalf("check bad.py error = %v", err)
	}
	if !strings.HasPrefix(out, "ERROR PYR") || !strings.Contains(out, "bad.py:1:") {
		t.Errorf("short output = %q", out)
	}
	out, _, err = execute(t, "check", "--format", "json", dir)
	if !errors.Is(err, errFailed) {
		t.Fatalf("check dir error = %v", err)
	}
	var doc struct {
		Diagnostics []struct {
			Severity string `json:"severity"`
			Location struct {
				File string `json:"file"`
			} `json:"location"`
		} `json:"diagnostics"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid json (%v):\n%s", err, out)
	}
	errs := 0
	for _, d := range doc.Diagnostics {
		if d.Severity == "ERROR" {
			errs++
			if !strings.HasSuffix(d.Location.File, "bad.py") {
				t.Errorf("error reported in %s", d.Location.File)
			}
		}
	}
	if errs != 1 {
		t.Errorf("got %d errors, want 1:\n%s", errs, out)
	}
}

func TestInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my_tool")
	if _, _, err := execute(t, "init", "-O", "2", dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CrateName != "my_tool" || cfg.OptLevel != opt.LevelCSE {
		t.Errorf("config = %+v", cfg)
	}
	if _, _, err := execute(t, "init", dir); err == nil {
		t.Error("second init without --force succeeded")
	}
	if _, _, err := execute(t, "init", "--force", dir); err != nil {
		t.Errorf("init --force: %v", err)
	}
}

func TestInspectCommands(t *testing.T) {
	dir := project(t, map[string]string{"add.py": addSrc})
	path := filepath.Join(dir, "add.py")

	out, _, err := execute(t, "tokens", "--format", "json", path)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	var toks []map[string]any
	if err := json.Unmarshal([]byte(out), &toks); err != nil || len(toks) == 0 || toks[0]["text"] != "def" {
		t.Errorf("tokens output (%v):\n%s", err, out)
	}

	out, _, err = execute(t, "hir", path)
	if err != nil || !strings.Contains(out, "add") {
		t.Errorf("hir = %v:\n%s", err, out)
	}

	out, _, err = execute(t, "version", "--format", "json")
	if err != nil || !strings.Contains(out, `"tool": "pyrust"`) {
		t.Errorf("version = %v:\n%s", err, out)
	}
}

func TestReadFlags(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiAuto, "ON": uiOn, " off ": uiOff, "Auto": uiAuto} {
		if got, err := parseUIMode(in); err != nil || got != want {
			t.Errorf("parseUIMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := parseUIMode("sometimes"); err == nil {
		t.Error("parseUIMode accepted an invalid value")
	}
	for in, want := range map[string]diagFormat{"": diagFormatPretty, "SARIF": diagFormatSarif, "short": diagFormatShort} {
		if got, err := readDiagFormat(in); err != nil || got != want {
			t.Errorf("readDiagFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readDiagFormat("xml"); err == nil {
		t.Error("readDiagFormat accepted an invalid value")
	}
}

func TestShowProgress(t *testing.T) {
	tests := []struct {
		name   string
		mode   uiMode
		quiet  bool
		format diagFormat
		tty    bool
		want   bool
	}{
		{"auto on a terminal", uiAuto, false, diagFormatPretty, true, true},
		{"auto without a terminal", uiAuto, false, diagFormatPretty, false, false},
		{"auto and quiet", uiAuto, true, diagFormatPretty, true, false},
		{"auto with json", uiAuto, false, diagFormatJSON, true, false},
		{"forced on", uiOn, true, diagFormatSarif, false, true},
		{"forced off", uiOff, false, diagFormatPretty, true, false},
	}
	for _, tt := range tests {
		if got := showProgress(tt.mode, tt.quiet, tt.format, tt.tty); got != tt.want {
			t.Errorf("%s: showProgress = %v, want %v", tt.name, got, tt.want)
		}
	}
}
