package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pyrust/internal/diag"
	"pyrust/internal/diagfmt"
	"pyrust/internal/source"
	"pyrust/internal/version"
)

type diagFormat string

const (
	diagFormatPretty diagFormat = "pretty"
	diagFormatShort  diagFormat = "short"
	diagFormatJSON   diagFormat = "json"
	diagFormatSarif  diagFormat = "sarif"
)

func readDiagFormat(value string) (diagFormat, error) {
	switch f := diagFormat(strings.ToLower(strings.TrimSpace(value))); f {
	case "":
		return diagFormatPretty, nil
	case diagFormatPretty, diagFormatShort, diagFormatJSON, diagFormatSarif:
		return f, nil
	}
	return "", fmt.Errorf("invalid --format value %q (expected pretty|short|json|sarif)", value)
}

// useColor resolves --color against the terminal state of f.
func useColor(cmd *cobra.Command, f *os.File) bool {
	mode, _ := cmd.Root().PersistentFlags().GetString("color")
	switch mode {
	case "on":
		return true
	case "off":
		return false
	}
	return isTerminal(f) && !color.NoColor
}

// diagPrinter renders diagnostics in the format selected for a command.
type diagPrinter struct {
	out    io.Writer
	format diagFormat
	color  bool
	max    int
	args   []string
}

func newDiagPrinter(cmd *cobra.Command, out io.Writer, format diagFormat, args []string) diagPrinter {
	maxDiags, _ := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	p := diagPrinter{out: out, format: format, max: maxDiags, args: args}
	if f, ok := out.(*os.File); ok {
		p.color = useColor(cmd, f)
	}
	return p
}

func (p diagPrinter) print(fs *source.FileSet, diags []diag.Diagnostic) error {
	if p.max > 0 && len(diags) > p.max {
		diags = diags[:p.max]
	}
	switch p.format {
	case diagFormatShort:
		if len(diags) == 0 {
			return nil
		}
		_, err := fmt.Fprintln(p.out, diag.FormatShort(diags, fs))
		return err
	case diagFormatJSON:
		return diagfmt.JSONList(p.out, diags, fs, diagfmt.JSONOpts{IncludePositions: true, IncludeNotes: true})
	case diagFormatSarif:
		bag := diag.NewBag(0)
		for _, d := range diags {
			bag.Add(d)
		}
		return diagfmt.Sarif(p.out, bag, fs, diagfmt.SarifRunMeta{
			ToolName:       "pyrust",
			ToolVersion:    version.Plain(),
			InvocationArgs: p.args,
		})
	default:
		if len(diags) == 0 {
			return nil
		}
		diagfmt.PrettyList(p.out, diags, fs, diagfmt.PrettyOpts{Color: p.color, Context: 1, ShowNotes: true})
		return nil
	}
}

func hasErrors(diags []diag.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == diag.SevError {
			return true
		}
	}
	return false
}
