package cargo

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	out, err := Render(Options{Name: "demo-app", RustVersion: "1.74", Main: "src/main.rs", Lib: "src/lib.rs"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{
		"[package]",
		`name = "demo-app"`,
		`version = "0.1.0"`,
		`edition = "2021"`,
		`rust-version = "1.74"`,
		"[lib]",
		`name = "demo_app"`,
		"[[bin]]",
		`path = "src/main.rs"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("manifest lacks %q:\n%s", want, out)
		}
	}
}

func TestManifestErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"bad name", Options{Name: "1demo", Main: "m.rs"}, "invalid crate name"},
		{"bad version", Options{Name: "demo", Version: "one", Main: "m.rs"}, "invalid package version"},
		{"unknown edition", Options{Name: "demo", Edition: "2020", Main: "m.rs"}, "unknown edition"},
		{"old toolchain", Options{Name: "demo", RustVersion: "1.60", Main: "m.rs"}, "older than 1.65"},
		{"edition floor", Options{Name: "demo", Edition: "2024", RustVersion: "1.80", Main: "m.rs"}, "older than 1.85"},
		{"bad rust version", Options{Name: "demo", RustVersion: "latest", Main: "m.rs"}, "invalid rust-version"},
		{"no targets", Options{Name: "demo"}, "neither"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Manifest(tt.opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Manifest error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestValidateToolchain(t *testing.T) {
	if err := ValidateToolchain("2021", ""); err != nil {
		t.Fatalf("empty rust-version: %v", err)
	}
	if err := ValidateToolchain("2018", "1.65.0"); err != nil {
		t.Fatalf("1.65.0 on 2018: %v", err)
	}
}
