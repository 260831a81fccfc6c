package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"cscript/pkg/analysis"
	"cscript/pkg/engine"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
)

type checkResult struct {
	Success  bool                  `json:"success"`
	Errors   []analysis.Diagnostic `json:"errors"`
	Warnings []analysis.Diagnostic `json:"warnings"`
}

func HandleCheck(args []string) {
	setup()
	os.Exit(checkScript(args, os.Stdout, os.Stderr))
}

// checkScript implements `cscript check [--json] [--known name]... <file>`.
// Only errors fail the check; warnings are printed and ignored.
func checkScript(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	asJSON := fs.Bool("json", false, "print diagnostics as JSON")
	var known stringList
	fs.Var(&known, "known", "treat a name as bound by the host (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Usage: cscript check [--json] [--known name]... <path/to/script.csc>")
		return 2
	}

	path := fs.Arg(0)
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}

	res := analysis.NewAnalyzer(known...).AnalyzeSource(string(src))
	result := checkResult{
		Success:  len(res.Errors) == 0,
		Errors:   res.Errors,
		Warnings: res.Warnings,
	}
	if result.Errors == nil {
		result.Errors = []analysis.Diagnostic{}
	}
	if result.Warnings == nil {
		result.Warnings = []analysis.Diagnostic{}
	}

	if *asJSON {
		b, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(stdout, string(b))
	} else {
		printDiagnostics(stdout, path, string(src), result)
	}

	if !result.Success {
		return 1
	}
	return 0
}

func printDiagnostics(w io.Writer, path, src string, result checkResult) {
	if len(result.Errors) > 0 {
		fmt.Fprintf(w, "❌ Check failed (%d errors):\n", len(result.Errors))
		for i := range result.Errors {
			d := &result.Errors[i]
			fmt.Fprintf(w, "  - [%s:%d:%d] %s\n", path, d.Row, d.Col, d.Msg)
			fmt.Fprint(w, color.RedString("%s", engine.FormatError(src, &d.ScriptError)))
		}
	}

	for _, d := range result.Warnings {
		fmt.Fprintln(w, color.YellowString("⚠️  Warning: [%s:%d:%d] %s", path, d.Row, d.Col, d.Msg))
	}

	if result.Success {
		fmt.Fprintln(w, color.GreenString("✅ %s is valid", path))
	}
}
