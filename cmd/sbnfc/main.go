// Command sbnfc compiles an SGL grammar file into a sublime-syntax YAML
// file: input.sbnf -> frontend -> normalize -> analyze -> emit -> serialize
// -> output.sublime-syntax, per spec.md §6's CLI contract.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/nuchi/sublime-from-cfg/analyze"
	"github.com/nuchi/sublime-from-cfg/emit"
	"github.com/nuchi/sublime-from-cfg/grammar"
	"github.com/nuchi/sublime-from-cfg/normalize"
	"github.com/nuchi/sublime-from-cfg/serialize"
	"github.com/nuchi/sublime-from-cfg/sgl"
)

var outputPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sbnfc <input.sbnf> [global-args...]",
		Short: "compile an SGL grammar into a sublime-syntax definition",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], args[1:])
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output path (default: <input> with .sbnf replaced by .sublime-syntax)")
	return cmd
}

func run(inputPath string, globalArgs []string) error {
	src, err := os.ReadFile(inputPath)
	if err != nil {
		return reportErr(err)
	}

	result, err := sgl.Parse(inputPath, string(src), globalArgs)
	if err != nil {
		return reportErr(err)
	}

	g, err := normalize.Normalize(result.Start, result.Rules)
	if err != nil {
		return reportErr(err)
	}

	tables, err := analyze.Analyze(g)
	if err != nil {
		return reportErr(err)
	}

	out, err := emit.Emit(g, tables, result.Opts)
	if err != nil {
		return reportErr(err)
	}

	doc, err := serialize.Marshal(out, result.Opts)
	if err != nil {
		return reportErr(err)
	}

	dest := outputPath
	if dest == "" {
		dest = defaultOutputPath(inputPath)
	}
	if err := os.WriteFile(dest, doc, 0o644); err != nil {
		return reportErr(err)
	}

	pterm.Success.Printfln("wrote %s (%d contexts)", dest, len(out.Names()))
	return nil
}

func defaultOutputPath(inputPath string) string {
	if strings.HasSuffix(inputPath, ".sbnf") {
		return strings.TrimSuffix(inputPath, ".sbnf") + ".sublime-syntax"
	}
	return inputPath + ".sublime-syntax"
}

// reportErr prints a pterm-formatted message classified by error type
// (spec.md §7's typed error hierarchy) and returns it unchanged so cobra's
// own RunE error path still sets a non-zero exit code.
func reportErr(err error) error {
	switch e := err.(type) {
	case *grammar.SyntaxError:
		pterm.Error.Printfln("syntax error: %s", e.Error())
	case *grammar.GrammarError:
		pterm.Error.Printfln("grammar error: %s", e.Error())
	case *grammar.InternalError:
		pterm.Error.Printfln("internal error: %s", e.Error())
	case *grammar.UnsupportedError:
		pterm.Error.Printfln("unsupported: %s", e.Error())
	default:
		pterm.Error.Printfln("%s", err.Error())
	}
	return fmt.Errorf("sbnfc: %w", err)
}
