package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pyrust/internal/opt"
	"pyrust/internal/types"
	"pyrust/internal/verify"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestParse(t *testing.T) {
	c, err := Parse(`
[transpile]
int_width = "i64"
strings = "cow"
opt_level = 2
verify = "strict"

[cargo]
emit = true
name = "demo"
rust_version = "1.74"
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := Config{
		IntWidth:    types.WidthI64,
		Strings:     types.CowByDefault,
		OptLevel:    opt.LevelCSE,
		Verify:      verify.LevelStrict,
		EmitCargo:   true,
		CrateName:   "demo",
		RustVersion: "1.74",
		Edition:     "2021",
	}
	if c != want {
		t.Fatalf("Parse = %+v, want %+v", c, want)
	}
}

func TestParseKeepsDefaults(t *testing.T) {
	c, err := Parse("[transpile]\nverify = \"none\"\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := Default()
	want.Verify = verify.LevelNone
	if c != want {
		t.Fatalf("Parse = %+v, want %+v", c, want)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"syntax", "[transpile\n", "failed to parse TOML"},
		{"unknown key", "[transpile]\nwidth = \"i64\"\n", "unknown keys: transpile.width"},
		{"bad width", "[transpile]\nint_width = \"u8\"\n", "invalid integer width"},
		{"bad strategy", "[transpile]\nstrings = \"sometimes\"\n", "invalid string strategy"},
		{"bad level", "[transpile]\nopt_level = 7\n", "out of range"},
		{"bad verify", "[transpile]\nverify = \"always\"\n", "invalid verification level"},
		{"bad crate", "[cargo]\nname = \"my crate\"\n", "invalid crate name"},
		{"old toolchain", "[cargo]\nemit = true\nrust_version = \"1.50\"\n", "older than"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Parse error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	c := Default()
	c.IntWidth = types.WidthISize
	c.OptLevel = opt.LevelInline
	c.CrateName = "round_trip"
	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Parse(buf.String())
	if err != nil {
		t.Fatalf("Parse(Write): %v\n%s", err, buf.String())
	}
	if got != c {
		t.Fatalf("round trip = %+v, want %+v", got, c)
	}
}

func TestFingerprint(t *testing.T) {
	a := Default()
	b := Default()
	b.CrateName = "other"
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("crate name changed the fingerprint")
	}
	b.IntWidth = types.WidthI64
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("integer width did not change the fingerprint")
	}
	if len(a.Fingerprint()) != 16 {
		t.Errorf("fingerprint %q has unexpected length", a.Fingerprint())
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "pkg", "mod")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	c, path, err := Discover(sub)
	if err != nil || path != "" || c != Default() {
		t.Fatalf("Discover without file = %+v, %q, %v", c, path, err)
	}
	file := filepath.Join(root, FileName)
	if err := os.WriteFile(file, []byte("[transpile]\nint_width = \"i64\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, path, err = Discover(sub)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if path != file || c.IntWidth != types.WidthI64 {
		t.Fatalf("Discover = %+v, %q", c, path)
	}
}
