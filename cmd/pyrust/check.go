package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pyrust/internal/diag"
	"pyrust/internal/driver"
	"pyrust/internal/source"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [flags] <file.py|dir>",
		Short: "Run the whole pipeline and report diagnostics without writing output",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}
	addConfigFlags(cmd)
	cmd.Flags().String("format", "pretty", "diagnostic format (pretty|short|json|sarif)")
	cmd.Flags().IntP("jobs", "j", 0, "files checked in parallel (0 = GOMAXPROCS)")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	input := args[0]
	cfg, err := loadConfig(cmd, input)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
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

	var (
		fs    *source.FileSet
		diags []diag.Diagnostic
		files int
	)
	if info.IsDir() {
		jobs, _ := cmd.Flags().GetInt("jobs")
		report, err := driver.TranspileDir(cmd.Context(), input, driver.DirOptions{Config: cfg, Jobs: jobs})
		if err != nil {
			return err
		}
		fs, files = report.FileSet, len(report.Results)
		for _, r := range report.Results {
			if r.Diag != nil {
				diags = append(diags, *r.Diag)
			} else {
				diags = append(diags, r.Source.Warnings...)
			}
		}
	} else {
		var out *driver.GeneratedSource
		var d *diag.Diagnostic
		fs, out, d = driver.TranspileFile(cmd.Context(), input, cfg)
		files = 1
		if d != nil {
			diags = append(diags, *d)
		} else {
			diags = out.Warnings
		}
	}

	printer := newDiagPrinter(cmd, cmd.OutOrStdout(), df, os.Args[1:])
	if err := printer.print(fs, diags); err != nil {
		return err
	}
	if hasErrors(diags) {
		return errFailed
	}
	if !quiet(cmd) && df == diagFormatPretty {
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d file(s), %d warning(s)\n", files, len(diags))
	}
	return nil
}
