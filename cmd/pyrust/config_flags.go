package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pyrust/internal/config"
	"pyrust/internal/opt"
	"pyrust/internal/types"
	"pyrust/internal/verify"
)

// addConfigFlags registers the flags that override pyrust.toml settings.
func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("int-width", "", "Rust type for Python int (i32|i64|isize)")
	f.String("strings", "", "string strategy (always-owned|infer-borrowing|cow-by-default)")
	f.IntP("opt-level", "O", -1, "optimization level 0-3")
	f.String("verify", "", "post-generation checks (none|basic|strict)")
	f.Bool("cargo", false, "also emit Cargo.toml")
	f.String("crate-name", "", "crate name for Cargo.toml")
}

// loadConfig reads --config or the nearest pyrust.toml above input and
// applies flag overrides on top.
func loadConfig(cmd *cobra.Command, input string) (config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	var cfg config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		start := input
		if info, statErr := os.Stat(input); statErr == nil && !info.IsDir() {
			start = filepath.Dir(input)
		}
		cfg, _, err = config.Discover(start)
	}
	if err != nil {
		return config.Config{}, err
	}
	if err := applyOverrides(cmd, &cfg); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Lookup("int-width") == nil {
		return nil
	}
	if v, _ := f.GetString("int-width"); v != "" {
		w, err := types.ParseIntWidth(v)
		if err != nil {
			return err
		}
		cfg.IntWidth = w
	}
	if v, _ := f.GetString("strings"); v != "" {
		s, err := types.ParseStringStrategy(v)
		if err != nil {
			return err
		}
		cfg.Strings = s
	}
	if v, _ := f.GetInt("opt-level"); v >= 0 {
		if v > int(opt.MaxLevel) {
			return fmt.Errorf("invalid --opt-level %d (expected 0-%d)", v, opt.MaxLevel)
		}
		cfg.OptLevel = opt.Level(v)
	}
	if v, _ := f.GetString("verify"); v != "" {
		l, err := verify.ParseLevel(v)
		if err != nil {
			return err
		}
		cfg.Verify = l
	}
	if f.Changed("cargo") {
		cfg.EmitCargo, _ = f.GetBool("cargo")
	}
	if v, _ := f.GetString("crate-name"); v != "" {
		cfg.CrateName = v
	}
	return nil
}
