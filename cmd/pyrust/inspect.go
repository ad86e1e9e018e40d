package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pyrust/internal/diag"
	"pyrust/internal/diagfmt"
	"pyrust/internal/driver"
)

func newTokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens [flags] <file.py>",
		Short: "Print the token stream of a Python file",
		Args:  cobra.ExactArgs(1),
		RunE:  runTokens,
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	return cmd
}

func runTokens(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	maxDiagnostics, _ := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	result, err := driver.Tokenize(args[0], maxDiagnostics)
	if err != nil {
		return fmt.Errorf("tokenization failed: %w", err)
	}
	if result.Bag.Len() > 0 {
		opts := diagfmt.PrettyOpts{Color: useColor(cmd, os.Stderr), Context: 1}
		diagfmt.Pretty(cmd.ErrOrStderr(), result.Bag, result.FileSet, opts)
	}
	switch format {
	case "pretty":
		return diagfmt.FormatTokensPretty(cmd.OutOrStdout(), result.Tokens, result.FileSet)
	case "json":
		return diagfmt.FormatTokensJSON(cmd.OutOrStdout(), result.Tokens)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func newHIRCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hir [flags] <file.py>",
		Short: "Print the lowered module annotated with types, borrows and lifetimes",
		Args:  cobra.ExactArgs(1),
		RunE:  runHIR,
	}
	addConfigFlags(cmd)
	return cmd
}

func runHIR(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args[0])
	if err != nil {
		return err
	}
	maxDiagnostics, _ := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	parsed, err := driver.Parse(args[0], maxDiagnostics)
	if err != nil {
		return err
	}
	fail := func(d *diag.Diagnostic) error {
		opts := diagfmt.PrettyOpts{Color: useColor(cmd, os.Stderr), Context: 1, ShowNotes: true}
		diagfmt.PrettyList(cmd.ErrOrStderr(), []diag.Diagnostic{*d}, parsed.FileSet, opts)
		return errFailed
	}
	if d := parsed.FirstError(); d != nil {
		return fail(d)
	}
	a, d := driver.Analyze(cmd.Context(), parsed.Module, cfg)
	if d != nil {
		return fail(d)
	}
	if a.Warnings.Len() > 0 && !quiet(cmd) {
		a.Warnings.Sort()
		diagfmt.Pretty(cmd.ErrOrStderr(), a.Warnings, parsed.FileSet, diagfmt.PrettyOpts{Color: useColor(cmd, os.Stderr)})
	}
	_, err = io.WriteString(cmd.OutOrStdout(), a.Dump())
	return err
}
