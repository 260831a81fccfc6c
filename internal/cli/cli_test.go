package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func writeScript(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func testConfig() Config {
	return Config{Env: "test", LogLevel: "error", MaxDepth: 100}
}

func TestRunScript(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "main.csc", "print('hi', name); total = price * qty;")

	var stdout, stderr bytes.Buffer
	code := runScript(testConfig(), []string{
		"--set", "price=2.5", "--set", "qty=4", "--set", "name='bob'",
		"--get", "total", path,
	}, &stdout, &stderr)

	assert.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "hi bob\ntotal = 10\n", stdout.String())
}

func TestRunScriptJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "main.csc", "print('noise'); s = 'x' + 'y'; ok = true;")

	var stdout, stderr bytes.Buffer
	code := runScript(testConfig(), []string{"--json", "--get", "s", "--get", "ok", path}, &stdout, &stderr)
	require.Equal(t, 0, code)

	var res runResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "xy", res.Vars["s"])
	assert.Equal(t, true, res.Vars["ok"])
	assert.Nil(t, res.Error)
	assert.Equal(t, "noise\n", stderr.String())
}

func TestRunScriptReportsErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "bad.csc", "x = 1;\ny = x / 0;\n")

	var stdout, stderr bytes.Buffer
	code := runScript(testConfig(), []string{path}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "DivisionByZero at 2:5: division by zero")
	assert.Contains(t, stderr.String(), "   2 | y = x / 0;\n     |     ^~~~~\n")

	stdout.Reset()
	stderr.Reset()
	code = runScript(testConfig(), []string{"--json", path}, &stdout, &stderr)
	assert.Equal(t, 1, code)

	var res runResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	assert.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, 2, res.Error.Row)
	assert.Equal(t, 5, res.Error.Col)
}

func TestRunScriptUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, runScript(testConfig(), nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage: cscript run")

	stderr.Reset()
	path := writeScript(t, t.TempDir(), "a.csc", "")
	assert.Equal(t, 2, runScript(testConfig(), []string{"--set", "novalue", path}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `invalid --set "novalue"`)

	assert.Equal(t, 1, runScript(testConfig(), []string{filepath.Join(t.TempDir(), "missing.csc")}, &stdout, &stderr))
}

func TestRunScriptMissingGet(t *testing.T) {
	path := writeScript(t, t.TempDir(), "a.csc", "x = 1;")
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, runScript(testConfig(), []string{"--get", "nope", path}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "UndefinedName: undefined name 'nope'")
}

func TestCheckScript(t *testing.T) {
	dir := t.TempDir()
	good := writeScript(t, dir, "good.csc", "function sq(n) { return n * n; } r = sq(limit);")
	bad := writeScript(t, dir, "bad.csc", "function sq(n) { return n * n; } r = sq(1, 2);")

	t.Run("warnings only", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 0, checkScript([]string{good}, &stdout, &stderr))
		assert.Contains(t, stdout.String(), "Warning: ["+good+":1:41]")
		assert.Contains(t, stdout.String(), "✅")
	})

	t.Run("known names", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 0, checkScript([]string{"--known", "limit", good}, &stdout, &stderr))
		assert.NotContains(t, stdout.String(), "Warning")
	})

	t.Run("errors fail", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 1, checkScript([]string{bad}, &stdout, &stderr))
		assert.Contains(t, stdout.String(), "❌ Check failed (1 errors)")
		assert.Contains(t, stdout.String(), "expects 1 arguments, got 2")
	})

	t.Run("json", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 1, checkScript([]string{"--json", bad}, &stdout, &stderr))

		var res checkResult
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
		assert.False(t, res.Success)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "ArityMismatch", string(res.Errors[0].Kind))
		assert.NotNil(t, res.Warnings)
	})
}

func TestRunTests(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "math.test.csc", `
		function add(a, b) { return a + b; }
		assert_eq(add(2, 3), 5);
		assert(add(1, 1) == 2, "one plus one");
	`)
	writeScript(t, dir, "nested/strings.test.csc", `assert_eq("a" + "b", "ab");`)
	writeScript(t, dir, "helper.csc", `this is not even valid`)

	var stdout bytes.Buffer
	code := runTests(testConfig(), []string{dir}, &stdout)
	assert.Equal(t, 0, code, stdout.String())
	assert.Contains(t, stdout.String(), "Found 2 test file(s)")
	assert.Contains(t, stdout.String(), "math.test.csc (2 assertions)")
	assert.Contains(t, stdout.String(), "All tests passed")
}

func TestRunTestsFailures(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "fail.test.csc", `
		print("debug line");
		assert_eq(1 + 1, 3);
		assert(false, "must hold");
		assert_eq("x", "x");
	`)
	writeScript(t, dir, "crash.test.csc", `assert(missing);`)

	var stdout bytes.Buffer
	code := runTests(testConfig(), []string{dir}, &stdout)
	assert.Equal(t, 1, code)

	out := stdout.String()
	assert.Contains(t, out, "2/3 assertions failed")
	assert.Contains(t, out, "- expected 3, got 2")
	assert.Contains(t, out, "- must hold")
	assert.Contains(t, out, "     debug line\n")
	assert.Contains(t, out, "UndefinedName at 1:8: undefined name 'missing'")
	assert.Contains(t, out, "0 passed, 2 failed")
}

func TestRunTestsNothingFound(t *testing.T) {
	var stdout bytes.Buffer
	assert.Equal(t, 0, runTests(testConfig(), []string{t.TempDir()}, &stdout))
	assert.Contains(t, stdout.String(), "No test files found")

	stdout.Reset()
	assert.Equal(t, 1, runTests(testConfig(), []string{filepath.Join(t.TempDir(), "nope")}, &stdout))
}

func TestAssertArity(t *testing.T) {
	path := writeScript(t, t.TempDir(), "a.test.csc", "assert();")
	stats, err := runSingleTestFile(testConfig(), path, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ArityMismatch at 1:1")
	assert.Equal(t, 0, stats.Total)
}

func TestReplSession(t *testing.T) {
	var out bytes.Buffer
	sess := newReplSession(testConfig(), &out)
	defer sess.ctx.Destroy()

	assert.True(t, sess.handle("x = 40;"))
	assert.True(t, sess.handle("function inc(n) {\n  return n + 1;\n}"))
	assert.True(t, sess.handle("print(inc(x) + 1);"))
	assert.Equal(t, "42\n", out.String())

	out.Reset()
	assert.True(t, sess.handle(":vars"))
	assert.Equal(t, "inc = <function inc>\nx = 40\n", out.String())

	out.Reset()
	assert.True(t, sess.handle(":get x"))
	assert.Equal(t, "40\n", out.String())

	out.Reset()
	assert.True(t, sess.handle(":get nope"))
	assert.Contains(t, out.String(), "UndefinedName")

	out.Reset()
	assert.True(t, sess.handle("y = ;"))
	assert.True(t, strings.HasPrefix(out.String(), "SyntaxError at 1:5"))

	out.Reset()
	assert.True(t, sess.handle(":what"))
	assert.Contains(t, out.String(), "unknown command :what")

	assert.False(t, sess.handle(":quit"))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("CSCRIPT_ENV", "production")
	t.Setenv("CSCRIPT_LOG_LEVEL", "debug")
	t.Setenv("CSCRIPT_MAX_DEPTH", "64")
	t.Setenv("CSCRIPT_METRICS_ADDR", ":9100")
	t.Setenv("CSCRIPT_HISTORY", "/tmp/hist")
	t.Setenv("CSCRIPT_METRICS_RATE_LIMIT", "30")
	t.Setenv("CSCRIPT_METRICS_CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg := LoadConfig()
	assert.Equal(t, Config{
		Env:              "production",
		LogLevel:         "debug",
		MaxDepth:         64,
		MetricsAddr:      ":9100",
		HistoryFile:      "/tmp/hist",
		MetricsRateLimit: 30,
		MetricsOrigins:   []string{"https://a.example", "https://b.example"},
	}, cfg)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CSCRIPT_ENV", "")
	t.Setenv("CSCRIPT_LOG_LEVEL", "")
	t.Setenv("CSCRIPT_MAX_DEPTH", "not-a-number")
	t.Setenv("CSCRIPT_METRICS_ADDR", "")
	t.Setenv("CSCRIPT_HISTORY", "")
	t.Setenv("CSCRIPT_METRICS_RATE_LIMIT", "")
	t.Setenv("CSCRIPT_METRICS_CORS_ORIGINS", "")
	t.Setenv("HOME", "/home/tester")

	cfg := LoadConfig()
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 200, cfg.MaxDepth)
	assert.Equal(t, filepath.Join("/home/tester", ".cscript_history"), cfg.HistoryFile)
	assert.Zero(t, cfg.MetricsRateLimit)
	assert.Nil(t, cfg.MetricsOrigins)
}
