package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pyrust/internal/config"
	"pyrust/internal/diag"
	"pyrust/internal/driver"
)

func newTranspileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transpile [flags] <file.py|dir>",
		Short: "Translate Python sources to Rust",
		Long: `Transpile translates one Python file, or every .py file below a directory,
into Rust. A single file is printed to stdout unless --output is given; a
directory requires --output and is mirrored there file by file.`,
		Args: cobra.ExactArgs(1),
		RunE: runTranspile,
	}
	addConfigFlags(cmd)
	f := cmd.Flags()
	f.StringP("output", "o", "", "output file, or directory for a directory input or --cargo")
	f.String("format", "pretty", "diagnostic format (pretty|short|json|sarif)")
	f.String("ui", "auto", "progress view for directories (auto|on|off)")
	f.IntP("jobs", "j", 0, "files transpiled in parallel (0 = GOMAXPROCS)")
	f.Bool("no-cache", false, "do not read or write the on-disk cache")
	return cmd
}

func runTranspile(cmd *cobra.Command, args []string) error {
	input := args[0]
	cfg, err := loadConfig(cmd, input)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	df, err := readDiagFormat(format)
	if err != nil {
		return err
	}
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	info, err := os.Stat(input)
	if err != nil {
		return err
	}
	printer := newDiagPrinter(cmd, cmd.ErrOrStderr(), df, os.Args[1:])
	if info.IsDir() {
		return transpileDir(cmd, input, cfg, printer)
	}
	return transpileFile(cmd, input, cfg, printer)
}

func transpileFile(cmd *cobra.Command, path string, cfg config.Config, printer diagPrinter) error {
	output, _ := cmd.Flags().GetString("output")
	if cfg.EmitCargo && output == "" {
		return errors.New("--cargo needs --output naming the crate directory")
	}
	fs, out, d := driver.TranspileFile(cmd.Context(), path, cfg)
	if d != nil {
		if err := printer.print(fs, []diag.Diagnostic{*d}); err != nil {
			return err
		}
		return errFailed
	}
	if !quiet(cmd) || printer.format != diagFormatPretty {
		if err := printer.print(fs, out.Warnings); err != nil {
			return err
		}
	}
	if timings(cmd) {
		printStageTimings(cmd.ErrOrStderr(), out.Timings)
	}

	switch {
	case cfg.EmitCargo:
		return writeCrate(output, out)
	case output == "":
		_, err := fmt.Fprint(cmd.OutOrStdout(), out.Code)
		return err
	default:
		if info, err := os.Stat(output); err == nil && info.IsDir() {
			output = filepath.Join(output, driver.OutputName(filepath.Base(path)))
		}
		return os.WriteFile(output, []byte(out.Code), 0o644) //nolint:gosec // generated source is not secret
	}
}

// writeCrate lays out a Cargo crate for out under dir.
func writeCrate(dir string, out *driver.GeneratedSource) error {
	name := "lib.rs"
	if out.HasMain() {
		name = "main.rs"
	}
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(out.Cargo), 0o644); err != nil { //nolint:gosec
		return err
	}
	return os.WriteFile(filepath.Join(dir, "src", name), []byte(out.Code), 0o644) //nolint:gosec
}

func transpileDir(cmd *cobra.Command, dir string, cfg config.Config, printer diagPrinter) error {
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		return errors.New("a directory input needs --output")
	}
	if cfg.EmitCargo {
		return errors.New("--cargo is only supported for single files")
	}
	jobs, _ := cmd.Flags().GetInt("jobs")
	opts := driver.DirOptions{Config: cfg, Jobs: jobs, OutDir: output, MaxDiagnostics: printer.max}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); !noCache {
		// Running without a cache only costs time.
		if cache, err := driver.OpenDiskCache("pyrust"); err == nil {
			opts.Cache = cache
		}
	}

	uiValue, _ := cmd.Flags().GetString("ui")
	mode, err := parseUIMode(uiValue)
	if err != nil {
		return err
	}
	var report *driver.DirReport
	if showProgress(mode, quiet(cmd), printer.format, isTerminal(os.Stdout)) {
		files, err := relativeFiles(dir)
		if err != nil {
			return err
		}
		report, err = runDirWithUI(cmd.Context(), "pyrust transpile "+dir, dir, files, opts)
		if err != nil {
			return err
		}
	} else {
		report, err = driver.TranspileDir(cmd.Context(), dir, opts)
		if err != nil {
			return err
		}
	}

	var diags []diag.Diagnostic
	cached := 0
	for _, r := range report.Results {
		switch {
		case r.Diag != nil:
			diags = append(diags, *r.Diag)
		case !quiet(cmd):
			diags = append(diags, r.Source.Warnings...)
		}
		if r.Cached {
			cached++
		}
	}
	if err := printer.print(report.FileSet, diags); err != nil {
		return err
	}
	if !quiet(cmd) && printer.format == diagFormatPretty {
		fmt.Fprintf(cmd.ErrOrStderr(), "transpiled %d of %d files (%d cached) into %s\n",
			len(report.Results)-report.Failed(), len(report.Results), cached, output)
	}
	if timings(cmd) {
		printStageTimings(cmd.ErrOrStderr(), report.Timer.Report())
	}
	if report.Failed() > 0 {
		return errFailed
	}
	return nil
}

func relativeFiles(dir string) ([]string, error) {
	files, err := driver.ListPythonFiles(dir)
	if err != nil {
		return nil, err
	}
	for i, f := range files {
		if rel, err := filepath.Rel(dir, f); err == nil {
			files[i] = filepath.ToSlash(rel)
		}
	}
	return files, nil
}

func quiet(cmd *cobra.Command) bool {
	q, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	return q
}

func timings(cmd *cobra.Command) bool {
	t, _ := cmd.Root().PersistentFlags().GetBool("timings")
	return t
}

