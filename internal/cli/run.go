package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"cscript/pkg/engine"
	"cscript/pkg/utils/coerce"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
)

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type runResult struct {
	Success bool                   `json:"success"`
	Vars    map[string]interface{} `json:"vars,omitempty"`
	Error   *engine.ScriptError    `json:"error,omitempty"`
}

func HandleRun(args []string) {
	cfg := setup()
	os.Exit(runScript(cfg, args, os.Stdout, os.Stderr))
}

// runScript implements `cscript run [--set name=value]... [--get name]...
// [--json] <file>` and returns the process exit code.
func runScript(cfg Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var sets, gets stringList
	fs.Var(&sets, "set", "bind a root variable before running (name=value, repeatable)")
	fs.Var(&gets, "get", "print a root variable after running (repeatable)")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Usage: cscript run [--set name=value]... [--get name]... [--json] <path/to/script.csc>")
		return 2
	}

	path := fs.Arg(0)
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}

	out := stdout
	if *asJSON {
		// Keep the JSON document parseable.
		out = stderr
	}
	ctx := engine.NewContext(cfg.contextOptions(engine.WithOutput(out))...)
	defer ctx.Destroy()

	for _, kv := range sets {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			fmt.Fprintf(stderr, "❌ invalid --set %q, expected name=value\n", kv)
			return 2
		}
		ctx.SetNative(name, coerce.ParseLiteral(raw))
	}

	result := runResult{Success: ctx.Run(string(src))}
	if result.Success && len(gets) > 0 {
		result.Vars = make(map[string]interface{}, len(gets))
		for _, name := range gets {
			var hv engine.HostValue
			if !ctx.Get(name, &hv) {
				result.Success = false
				break
			}
			result.Vars[name] = hostValueJSON(hv)
		}
	}
	result.Error = ctx.LastError()

	if *asJSON {
		b, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(stdout, string(b))
	} else if result.Error != nil {
		fmt.Fprint(stderr, color.RedString("%s", engine.FormatError(string(src), result.Error)))
	} else {
		for _, name := range gets {
			var hv engine.HostValue
			ctx.Get(name, &hv)
			fmt.Fprintf(stdout, "%s = %s\n", name, formatHostValue(hv))
		}
	}

	if !result.Success {
		return 1
	}
	return 0
}

func hostValueJSON(hv engine.HostValue) interface{} {
	switch hv.Kind {
	case engine.ValBool:
		return hv.Bool
	case engine.ValNumber:
		return hv.Number
	case engine.ValString:
		return hv.String
	case engine.ValFunction:
		return fmt.Sprintf("<function %s>", hv.String)
	case engine.ValHandle:
		return uint64(hv.Handle)
	default:
		return nil
	}
}

func formatHostValue(hv engine.HostValue) string {
	switch hv.Kind {
	case engine.ValString:
		return fmt.Sprintf("%q", hv.String)
	case engine.ValFunction:
		return fmt.Sprintf("<function %s>", hv.String)
	case engine.ValHandle:
		return fmt.Sprintf("<handle 0x%x>", hv.Handle)
	case engine.ValBool:
		return fmt.Sprintf("%t", hv.Bool)
	case engine.ValNumber:
		return engine.FormatNumber(hv.Number)
	default:
		return "nil"
	}
}
