package cli

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cscript/pkg/engine"
	"cscript/pkg/logger"

	"github.com/joho/godotenv"
)

// Config is read from the environment after loading an optional .env file.
type Config struct {
	Env         string // CSCRIPT_ENV: "production" switches logs to JSON
	LogLevel    string // CSCRIPT_LOG_LEVEL
	MaxDepth    int    // CSCRIPT_MAX_DEPTH
	MetricsAddr string // CSCRIPT_METRICS_ADDR, e.g. ":9090"; empty disables
	HistoryFile string // CSCRIPT_HISTORY

	MetricsRateLimit int      // CSCRIPT_METRICS_RATE_LIMIT, requests per minute per IP
	MetricsOrigins   []string // CSCRIPT_METRICS_CORS_ORIGINS, comma separated
}

func LoadConfig() Config {
	godotenv.Load()

	cfg := Config{
		Env:         os.Getenv("CSCRIPT_ENV"),
		LogLevel:    os.Getenv("CSCRIPT_LOG_LEVEL"),
		MetricsAddr: os.Getenv("CSCRIPT_METRICS_ADDR"),
		HistoryFile: os.Getenv("CSCRIPT_HISTORY"),
		MaxDepth:    engine.DefaultMaxDepth,
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	if v := os.Getenv("CSCRIPT_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxDepth = n
		} else {
			slog.Warn("ignoring invalid CSCRIPT_MAX_DEPTH", "value", v)
		}
	}
	if v := os.Getenv("CSCRIPT_METRICS_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MetricsRateLimit = n
		} else {
			slog.Warn("ignoring invalid CSCRIPT_METRICS_RATE_LIMIT", "value", v)
		}
	}
	for _, origin := range strings.Split(os.Getenv("CSCRIPT_METRICS_CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.MetricsOrigins = append(cfg.MetricsOrigins, origin)
		}
	}
	if cfg.HistoryFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.HistoryFile = filepath.Join(home, ".cscript_history")
		}
	}
	return cfg
}

func setup() Config {
	cfg := LoadConfig()
	logger.Setup(cfg.Env, cfg.LogLevel)
	return cfg
}

func (cfg Config) contextOptions(extra ...engine.Option) []engine.Option {
	opts := []engine.Option{
		engine.WithLogger(logger.Log),
		engine.WithMaxDepth(cfg.MaxDepth),
	}
	return append(opts, extra...)
}
