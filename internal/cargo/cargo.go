// Package cargo renders the Cargo.toml manifest that accompanies a
// generated crate.
package cargo

import (
	"bytes"
	"fmt"
	"io"
	"regexp"

	"github.com/BurntSushi/toml"
	semver "github.com/Masterminds/semver/v3"
)

// MinRustVersion is the oldest toolchain that accepts generated code;
// try lowering relies on labeled block breaks.
const MinRustVersion = "1.65"

// editionFloor is the first toolchain supporting each edition.
var editionFloor = map[string]string{
	"2015": "1.0",
	"2018": "1.31",
	"2021": "1.56",
	"2024": "1.85",
}

var crateName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Options describes the crate to write a manifest for.
type Options struct {
	Name        string
	Version     string // defaults to 0.1.0
	Edition     string // defaults to 2021
	RustVersion string // optional
	// Main names the source file of a binary target; empty for a library.
	Main string
	Lib  string
}

type Package struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Edition     string `toml:"edition"`
	RustVersion string `toml:"rust-version,omitempty"`
}

type Target struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// File is the manifest document.
type File struct {
	Package      Package           `toml:"package"`
	Lib          *Target           `toml:"lib,omitempty"`
	Bin          []Target          `toml:"bin,omitempty"`
	Dependencies map[string]string `toml:"dependencies"`
}

// ValidateName checks a crate name.
func ValidateName(name string) error {
	if !crateName.MatchString(name) {
		return fmt.Errorf("invalid crate name %q", name)
	}
	return nil
}

// ValidateToolchain checks an edition and an optional rust-version
// against each other and the oldest supported toolchain.
func ValidateToolchain(edition, rustVersion string) error {
	floor, ok := editionFloor[edition]
	if !ok {
		return fmt.Errorf("unknown edition %q (expected 2015|2018|2021|2024)", edition)
	}
	if rustVersion == "" {
		return nil
	}
	v, err := semver.NewVersion(rustVersion)
	if err != nil {
		return fmt.Errorf("invalid rust-version %q: %w", rustVersion, err)
	}
	for _, min := range []string{MinRustVersion, floor} {
		c, err := semver.NewConstraint(">= " + min)
		if err != nil {
			return err
		}
		if !c.Check(v) {
			return fmt.Errorf("rust-version %s is older than %s", rustVersion, min)
		}
	}
	return nil
}

// Manifest builds the manifest for opts.
func Manifest(opts Options) (*File, error) {
	if err := ValidateName(opts.Name); err != nil {
		return nil, err
	}
	if opts.Version == "" {
		opts.Version = "0.1.0"
	}
	if _, err := semver.StrictNewVersion(opts.Version); err != nil {
		return nil, fmt.Errorf("invalid package version %q: %w", opts.Version, err)
	}
	if opts.Edition == "" {
		opts.Edition = "2021"
	}
	if err := ValidateToolchain(opts.Edition, opts.RustVersion); err != nil {
		return nil, err
	}
	if opts.Main == "" && opts.Lib == "" {
		return nil, fmt.Errorf("crate %s has neither a binary nor a library target", opts.Name)
	}
	f := &File{
		Package: Package{
			Name:        opts.Name,
			Version:     opts.Version,
			Edition:     opts.Edition,
			RustVersion: opts.RustVersion,
		},
		Dependencies: map[string]string{},
	}
	if opts.Lib != "" {
		f.Lib = &Target{Name: libName(opts.Name), Path: opts.Lib}
	}
	if opts.Main != "" {
		f.Bin = append(f.Bin, Target{Name: opts.Name, Path: opts.Main})
	}
	return f, nil
}

// libName turns dashes into underscores as cargo does for library targets.
func libName(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c == '-' {
			b[i] = '_'
		}
	}
	return string(b)
}

// Encode writes f as TOML.
func (f *File) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.Indent = ""
	return enc.Encode(f)
}

// Render builds and encodes the manifest for opts.
func Render(opts Options) (string, error) {
	f, err := Manifest(opts)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := f.Encode(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
