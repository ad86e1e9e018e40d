package driver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"pyrust/internal/ast"
	"pyrust/internal/config"
	"pyrust/internal/diag"
	"pyrust/internal/opt"
	"pyrust/internal/parser"
	"pyrust/internal/pipeline"
	"pyrust/internal/source"
	"pyrust/internal/testkit"
	"pyrust/internal/verify"
)

func parse(t *testing.T, src string) *ast.Module {
	t.Helper()
	res := parser.ParseString(source.NewFileSet(), "sample.py", src, parser.Options{})
	if res.Bag.HasErrors() {
		t.Fatalf("parse errors: %v", res.Bag.Items())
	}
	return res.Module
}

const program = `def total(nums: list[int]) -> int:
    return len(nums)

def add(a: int, b: int) -> int:
    return a + b

if __name__ == "__main__":
    print(add(total([1, 2, 3]), 4))
`

func TestTranspile(t *testing.T) {
	cfg := config.Default()
	cfg.Verify = verify.LevelStrict
	out, d := Transpile(context.Background(), parse(t, program), cfg)
	if d != nil {
		t.Fatalf("Transpile: %v", d)
	}
	for _, want := range []string{
		"pub fn total(nums: &Vec<i32>) -> i32",
		"pub fn add(a: i32, b: i32) -> i32",
		"fn main()",
	} {
		if !strings.Contains(out.Code, want) {
			t.Errorf("output lacks %q:\n%s", want, out.Code)
		}
	}
	if !out.HasMain() {
		t.Error("HasMain() = false")
	}
	if out.Cargo != "" {
		t.Error("Cargo.toml emitted without being asked for")
	}
	if len(out.Timings.Stages) == 0 {
		t.Error("no stage timings recorded")
	}
}

func TestTranspileCorpus(t *testing.T) {
	cfg := config.Default()
	cfg.Verify = verify.LevelStrict
	for _, level := range []opt.Level{opt.LevelNone, opt.MaxLevel} {
		cfg.OptLevel = level
		for _, p := range testkit.Corpus() {
			t.Run(level.String()+"/"+p.Name, func(t *testing.T) {
				mod, _ := testkit.MustParse(t, p.Name+".py", p.Src)
				out, d := Transpile(context.Background(), mod, cfg)
				if d != nil {
					t.Fatalf("Transpile: %v", d)
				}
				if out.HasMain() != p.Main {
					t.Errorf("HasMain() = %v, want %v", out.HasMain(), p.Main)
				}
			})
		}
	}
}

func TestTranspileOptimized(t *testing.T) {
	cfg := config.Default()
	cfg.OptLevel = opt.LevelInline
	src := "def scale(x: int) -> int:\n    k = 2 * 3\n    return x * k\n"
	out, d := Transpile(context.Background(), parse(t, src), cfg)
	if d != nil {
		t.Fatalf("Transpile: %v", d)
	}
	if out.Opt == nil || !out.Opt.Changed() {
		t.Fatalf("optimizer report = %v", out.Opt)
	}
	if !strings.Contains(out.Code, "x * 6") {
		t.Errorf("constant not propagated:\n%s", out.Code)
	}
}

func TestTranspileCargo(t *testing.T) {
	cfg := config.Default()
	cfg.EmitCargo = true
	cfg.RustVersion = "1.70"
	out, d := Transpile(context.Background(), parse(t, program), cfg)
	if d != nil {
		t.Fatalf("Transpile: %v", d)
	}
	for _, want := range []string{`name = "sample"`, `rust-version = "1.70"`, `path = "src/main.rs"`} {
		if !strings.Contains(out.Cargo, want) {
			t.Errorf("manifest lacks %q:\n%s", want, out.Cargo)
		}
	}
}

func TestTranspileErrors(t *testing.T) {
	bad := config.Default()
	bad.OptLevel = 9
	tests := []struct {
		name string
		mod  *ast.Module
		cfg  config.Config
		code diag.Code
	}{
		{"nil module", nil, config.Default(), diag.DriverIO},
		{"bad config", parse(t, program), bad, diag.DriverBadConfig},
		{"unsupported import", parse(t, "import socket\n"), config.Default(), diag.UnsupportedConstruct},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, d := Transpile(context.Background(), tt.mod, tt.cfg)
			if d == nil {
				t.Fatalf("expected a diagnostic, got output:\n%s", out.Code)
			}
			if out != nil {
				t.Error("partial output returned with a diagnostic")
			}
			if d.Code != tt.code {
				t.Errorf("code = %v, want %v", d.Code, tt.code)
			}
		})
	}
}

func TestTranspileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, d := Transpile(ctx, parse(t, program), config.Default()); d == nil {
		t.Fatal("cancelled context did not stop the run")
	}
}

type recorder struct {
	mu     sync.Mutex
	events []pipeline.Event
}

func (r *recorder) OnEvent(ev pipeline.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) final(file string) pipeline.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last pipeline.Status
	for _, ev := range r.events {
		if ev.File == file {
			last = ev.Status
		}
	}
	return last
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
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

func TestTranspileDir(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"app.py":           program,
		"pkg/util.py":      "def double(x: int) -> int:\n    return x * 2\n",
		"pkg/broken.py":    "def f(:\n",
		"pkg/net.py":       "import socket\n",
		"__pycache__/x.py": "def skipped() -> int:\n    return 0\n",
		"notes.txt":        "not python",
	})
	out := t.TempDir()
	cache, err := NewDiskCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	opts := DirOptions{Config: config.Default(), Jobs: 2, OutDir: out, Cache: cache, Sink: rec}

	report, err := TranspileDir(context.Background(), dir, opts)
	if err != nil {
		t.Fatalf("TranspileDir: %v", err)
	}
	if len(report.Results) != 4 {
		t.Fatalf("got %d results, want 4", len(report.Results))
	}
	if report.Failed() != 2 {
		t.Errorf("Failed() = %d, want 2", report.Failed())
	}
	byRel := map[string]DirResult{}
	for _, r := range report.Results {
		byRel[r.Rel] = r
	}
	if d := byRel["pkg/broken.py"].Diag; d == nil || d.Severity != diag.SevError {
		t.Errorf("broken.py diagnostic = %v", d)
	}
	if d := byRel["pkg/net.py"].Diag; d == nil || d.Code != diag.UnsupportedConstruct {
		t.Errorf("net.py diagnostic = %v", d)
	}
	util := byRel["pkg/util.py"]
	if util.Source == nil || util.Cached {
		t.Fatalf("util.py result = %+v", util)
	}
	written, err := os.ReadFile(filepath.Join(out, "pkg", "util.rs"))
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if !strings.Contains(string(written), "pub fn double(x: i32) -> i32") {
		t.Errorf("unexpected output:\n%s", written)
	}
	if got := rec.final("pkg/util.py"); got != pipeline.StatusDone {
		t.Errorf("final status of util.py = %q", got)
	}
	if got := rec.final("pkg/broken.py"); got != pipeline.StatusError {
		t.Errorf("final status of broken.py = %q", got)
	}

	again, err := TranspileDir(context.Background(), dir, opts)
	if err != nil {
		t.Fatalf("second TranspileDir: %v", err)
	}
	for _, r := range again.Results {
		if r.Rel == "pkg/util.py" || r.Rel == "app.py" {
			if !r.Cached || r.Source == nil {
				t.Errorf("%s not served from cache", r.Rel)
				continue
			}
			if r.Source.Code != byRel[r.Rel].Source.Code {
				t.Errorf("%s: cached code differs", r.Rel)
			}
		}
	}
}

func TestCacheKey(t *testing.T) {
	a := config.Default()
	b := config.Default()
	b.OptLevel = opt.LevelBasic
	src := []byte("x = 1\n")
	if CacheKey(src, a) == CacheKey(src, b) {
		t.Error("optimization level does not change the key")
	}
	if CacheKey(src, a) != CacheKey(src, a) {
		t.Error("key is not deterministic")
	}
	if CacheKey(src, a) == CacheKey([]byte("x = 2\n"), a) {
		t.Error("content does not change the key")
	}
}

func TestDiskCacheRoundTrip(t *testing.T) {
	c, err := NewDiskCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := CacheKey([]byte("def f() -> int:\n    return 1\n"), config.Default())
	var p DiskPayload
	if hit, err := c.Get(key, &p); err != nil || hit {
		t.Fatalf("empty cache Get = %v, %v", hit, err)
	}
	in := &DiskPayload{Path: "f.py", Code: "fn f() {}", Warnings: []CachedDiagnostic{
		{Severity: uint8(diag.SevWarning), Code: uint16(diag.BorrowAliasApprox), Message: "aliased", Start: 3, End: 7},
	}}
	if err := c.Put(key, in); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if hit, err := c.Get(key, &p); err != nil || !hit {
		t.Fatalf("Get after Put = %v, %v", hit, err)
	}
	g := fromPayload(&p, 5)
	if g.Code != "fn f() {}" || len(g.Warnings) != 1 {
		t.Fatalf("payload = %+v", g)
	}
	w := g.Warnings[0]
	if w.Code != diag.BorrowAliasApprox || w.Primary.File != 5 || w.Primary.Start != 3 {
		t.Errorf("warning = %+v", w)
	}
	if err := c.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if hit, _ := c.Get(key, &p); hit {
		t.Error("entry survived DropAll")
	}
}

func TestCrateName(t *testing.T) {
	tests := map[string]string{
		"src/app.py":     "app",
		"my-tool.py":     "my-tool",
		"2fast.py":       "_2fast",
		"weird name!.py": "weird_name_",
		".py":            "generated",
	}
	for in, want := range tests {
		if got := CrateName(in); got != want {
			t.Errorf("CrateName(%q) = %q, want %q", in, got, want)
		}
	}
}
