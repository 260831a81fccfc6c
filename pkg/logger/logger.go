package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

var Log *slog.Logger = slog.Default()

// Setup initializes the global logger based on the environment.
// If env is "production", it writes JSON records.
// Otherwise it writes tinted text, without color when stderr is not a
// terminal. Logs go to stderr so script output on stdout stays clean.
func Setup(env, level string) {
	Log = New(os.Stderr, env, level)
	slog.SetDefault(Log)
}

// New builds a logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, env, level string) *slog.Logger {
	lvl := ParseLevel(level)

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	} else {
		noColor := true
		if f, ok := w.(*os.File); ok {
			noColor = !isatty.IsTerminal(f.Fd())
		}
		handler = tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.Kitchen,
			NoColor:    noColor,
		})
	}
	return slog.New(handler)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
