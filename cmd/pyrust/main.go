package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pyrust/internal/version"
)

// newRootCmd assembles the command tree with its persistent flags.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pyrust",
		Short:         "Python to Rust transpiler",
		Long:          `pyrust translates annotated Python modules into idiomatic, ownership-correct Rust`,
		Version:       version.Plain(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newTranspileCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newHIRCmd())
	root.AddCommand(newTokensCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newVersionCmd())

	pf := root.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	pf.String("config", "", "path to pyrust.toml (default: nearest one above the input)")
	pf.String("trace", "", "write trace events to this file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|stage|function|debug)")
	pf.String("cpu-profile", "", "write a CPU profile to this file")
	pf.String("mem-profile", "", "write a heap profile to this file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to this file")
	return root
}

// main runs the root command and exits with status 1 on failure.
func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			root.PrintErrln("error:", err)
		}
		os.Exit(1)
	}
}

// errFailed fails a command whose diagnostics were already printed.
var errFailed = errors.New("failed")

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}
