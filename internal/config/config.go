// Package config holds the transpiler configuration: an immutable value
// passed into every pipeline run, loaded from pyrust.toml and overridden by
// command-line flags.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"pyrust/internal/cargo"
	"pyrust/internal/opt"
	"pyrust/internal/types"
	"pyrust/internal/verify"
)

// FileName is the project configuration file looked up by Find.
const FileName = "pyrust.toml"

// Config controls one transpilation.
type Config struct {
	IntWidth types.IntWidth
	Strings  types.StringStrategy
	OptLevel opt.Level
	Verify   verify.Level

	EmitCargo   bool
	CrateName   string
	RustVersion string
	Edition     string
}

// Default returns the configuration used when no file and no flags say
// otherwise.
func Default() Config {
	return Config{
		IntWidth: types.WidthI32,
		Strings:  types.InferBorrowing,
		OptLevel: opt.LevelNone,
		Verify:   verify.LevelBasic,
		Edition:  "2021",
	}
}

// MapConfig returns the type-mapping part of c.
func (c Config) MapConfig() types.MapConfig {
	return types.MapConfig{IntWidth: c.IntWidth, Strings: c.Strings}
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	if c.OptLevel < opt.LevelNone || c.OptLevel > opt.MaxLevel {
		return fmt.Errorf("optimization level %d out of range 0..%d", int(c.OptLevel), int(opt.MaxLevel))
	}
	if c.Verify > verify.LevelStrict {
		return fmt.Errorf("unknown verification level %d", c.Verify)
	}
	if c.IntWidth > types.WidthISize {
		return fmt.Errorf("unknown integer width %d", c.IntWidth)
	}
	if c.Strings > types.CowByDefault {
		return fmt.Errorf("unknown string strategy %d", c.Strings)
	}
	if c.CrateName != "" {
		if err := cargo.ValidateName(c.CrateName); err != nil {
			return err
		}
	}
	if c.EmitCargo || c.RustVersion != "" {
		if err := cargo.ValidateToolchain(c.Edition, c.RustVersion); err != nil {
			return err
		}
	}
	return nil
}

// Fingerprint identifies the settings that affect generated code. Two
// configurations with the same fingerprint produce the same output.
func (c Config) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "int=%s;str=%s;opt=%d;verify=%s", c.IntWidth, c.Strings, int(c.OptLevel), c.Verify)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func (c Config) String() string {
	return fmt.Sprintf("int=%s strings=%s opt=%s verify=%s", c.IntWidth, c.Strings, c.OptLevel, c.Verify)
}

type fileConfig struct {
	Transpile transpileSection `toml:"transpile"`
	Cargo     cargoSection     `toml:"cargo"`
}

type transpileSection struct {
	IntWidth string `toml:"int_width"`
	Strings  string `toml:"strings"`
	OptLevel int    `toml:"opt_level"`
	Verify   string `toml:"verify"`
}

type cargoSection struct {
	Emit        bool   `toml:"emit"`
	Name        string `toml:"name"`
	RustVersion string `toml:"rust_version"`
	Edition     string `toml:"edition"`
}

// Load reads path over Default. Keys absent from the file keep their
// default; unknown keys are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	c, err := Parse(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes configuration text.
func Parse(text string) (Config, error) {
	var fc fileConfig
	meta, err := toml.Decode(text, &fc)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if keys := meta.Undecoded(); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown keys: %s", strings.Join(names, ", "))
	}
	c := Default()
	if meta.IsDefined("transpile", "int_width") {
		if c.IntWidth, err = types.ParseIntWidth(fc.Transpile.IntWidth); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("transpile", "strings") {
		if c.Strings, err = types.ParseStringStrategy(fc.Transpile.Strings); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("transpile", "opt_level") {
		c.OptLevel = opt.Level(fc.Transpile.OptLevel)
	}
	if meta.IsDefined("transpile", "verify") {
		if c.Verify, err = verify.ParseLevel(fc.Transpile.Verify); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("cargo", "emit") {
		c.EmitCargo = fc.Cargo.Emit
	}
	if meta.IsDefined("cargo", "name") {
		c.CrateName = strings.TrimSpace(fc.Cargo.Name)
	}
	if meta.IsDefined("cargo", "rust_version") {
		c.RustVersion = strings.TrimSpace(fc.Cargo.RustVersion)
	}
	if meta.IsDefined("cargo", "edition") {
		c.Edition = strings.TrimSpace(fc.Cargo.Edition)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Write encodes c in the file format Load reads.
func (c Config) Write(w io.Writer) error {
	fc := fileConfig{
		Transpile: transpileSection{
			IntWidth: c.IntWidth.String(),
			Strings:  c.Strings.String(),
			OptLevel: int(c.OptLevel),
			Verify:   c.Verify.String(),
		},
		Cargo: cargoSection{
			Emit:        c.EmitCargo,
			Name:        c.CrateName,
			RustVersion: c.RustVersion,
			Edition:     c.Edition,
		},
	}
	enc := toml.NewEncoder(w)
	enc.Indent = ""
	return enc.Encode(fc)
}

// Find walks up from startDir looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest pyrust.toml above startDir, or Default when
// there is none. The returned path is empty in the latter case.
func Discover(startDir string) (Config, string, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, "", err
	}
	if !ok {
		return Default(), "", nil
	}
	c, err := Load(path)
	return c, path, err
}
