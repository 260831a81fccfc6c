package cli

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cscript/pkg/engine"

	"github.com/fatih/color"
)

const testSuffix = ".test.csc"

// testStats counts assertions made by one test file.
type testStats struct {
	Total    int
	Failed   int
	Failures []string
}

// HandleTest executes *.test.csc files.
// Usage: cscript test [path/to/file-or-dir]
func HandleTest(args []string) {
	cfg := setup()
	os.Exit(runTests(cfg, args, os.Stdout))
}

func runTests(cfg Config, args []string, stdout io.Writer) int {
	fmt.Fprintln(stdout, "🧪 Starting test runner...")
	start := time.Now()

	target := "tests"
	if len(args) > 0 {
		target = args[0]
	}

	info, err := os.Stat(target)
	if err != nil {
		fmt.Fprintf(stdout, "❌ Target '%s' not found.\n", target)
		return 1
	}

	var testFiles []string
	if !info.IsDir() {
		testFiles = append(testFiles, target)
	} else {
		err := filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, testSuffix) {
				testFiles = append(testFiles, path)
			}
			return nil
		})
		if err != nil {
			fmt.Fprintf(stdout, "❌ %v\n", err)
			return 1
		}
	}

	if len(testFiles) == 0 {
		fmt.Fprintf(stdout, "⚠️  No test files found (looking for *%s).\n", testSuffix)
		return 0
	}

	fmt.Fprintf(stdout, "🔍 Found %d test file(s)\n\n", len(testFiles))

	passed, failed := 0, 0
	for _, file := range testFiles {
		var output strings.Builder
		stats, err := runSingleTestFile(cfg, file, &output)
		if err == nil {
			fmt.Fprintln(stdout, color.GreenString("✅ PASS: %s (%d assertions)", file, stats.Total))
			passed++
			continue
		}
		fmt.Fprintln(stdout, color.RedString("❌ FAIL: %s", file))
		fmt.Fprintf(stdout, "   Error: %v\n", err)
		for _, f := range stats.Failures {
			fmt.Fprintf(stdout, "   - %s\n", f)
		}
		if output.Len() > 0 {
			fmt.Fprintf(stdout, "   Output:\n%s", indent(output.String(), "     "))
		}
		failed++
	}

	duration := time.Since(start)
	fmt.Fprintln(stdout, "\n"+strings.Repeat("-", 40))
	if failed == 0 {
		fmt.Fprintf(stdout, "🎉 All tests passed! (%s)\n", duration)
		return 0
	}
	fmt.Fprintf(stdout, "💥 %d passed, %d failed. (%s)\n", passed, failed, duration)
	return 1
}

// runSingleTestFile runs path in a fresh context with the assertion
// natives registered. Script output goes to out.
func runSingleTestFile(cfg Config, path string, out io.Writer) (*testStats, error) {
	stats := &testStats{}

	src, err := os.ReadFile(path)
	if err != nil {
		return stats, err
	}

	ctx := engine.NewContext(cfg.contextOptions(engine.WithOutput(out))...)
	defer ctx.Destroy()
	registerTestNatives(ctx, stats)

	if !ctx.Run(string(src)) {
		return stats, ctx.LastError()
	}
	if stats.Failed > 0 {
		return stats, fmt.Errorf("%d/%d assertions failed", stats.Failed, stats.Total)
	}
	return stats, nil
}

// registerTestNatives adds assert(cond[, msg]) and assert_eq(got, want).
// A failed assertion is counted, not raised, so the file keeps running.
func registerTestNatives(ctx *engine.Context, stats *testStats) {
	ctx.Register("assert", -1, func(args []engine.Value) (engine.Value, error) {
		if len(args) < 1 || len(args) > 2 {
			return engine.Value{}, &engine.ScriptError{
				Kind: engine.ErrArityMismatch,
				Msg:  fmt.Sprintf("assert expects 1 or 2 arguments, got %d", len(args)),
			}
		}
		stats.Total++
		if args[0].Truthy() {
			return engine.NewBool(true), nil
		}
		stats.Failed++
		msg := "assertion failed"
		if len(args) == 2 {
			msg = args[1].String()
		}
		stats.Failures = append(stats.Failures, msg)
		return engine.NewBool(false), nil
	})

	ctx.Register("assert_eq", 2, func(args []engine.Value) (engine.Value, error) {
		stats.Total++
		if args[0].Equal(args[1]) {
			return engine.NewBool(true), nil
		}
		stats.Failed++
		stats.Failures = append(stats.Failures,
			fmt.Sprintf("expected %s, got %s", quoteValue(args[1]), quoteValue(args[0])))
		return engine.NewBool(false), nil
	})
}

func quoteValue(v engine.Value) string {
	if s, ok := v.AsString(); ok {
		return fmt.Sprintf("%q", s)
	}
	return v.String()
}

func indent(s, prefix string) string {
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for _, l := range lines {
		if l == "" {
			continue
		}
		b.WriteString(prefix)
		b.WriteString(l)
	}
	return b.String()
}
