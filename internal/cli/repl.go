package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cscript/pkg/engine"
	"cscript/pkg/metrics"

	"github.com/fatih/color"
	"github.com/peterh/liner"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	promptMain = "csc> "
	promptCont = "...  "
)

const replHelp = `Commands:
  :vars        list root variables
  :get <name>  show a root variable
  :help        show this help
  :quit        leave the REPL`

// HandleRepl starts an interactive session on one persistent context.
func HandleRepl(args []string) {
	cfg := setup()
	os.Exit(runRepl(cfg))
}

func runRepl(cfg Config) int {
	fmt.Printf("cscript %s. Type :help for commands.\n", Version)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if cfg.HistoryFile != "" {
		if f, err := os.Open(cfg.HistoryFile); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(cfg.HistoryFile); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	opts := []engine.Option{}
	if cfg.MetricsAddr != "" {
		opts = append(opts, engine.WithObserver(metrics.New(prometheus.DefaultRegisterer)))
		stop := serveMetrics(cfg)
		defer stop()
	}

	sess := newReplSession(cfg, os.Stdout, opts...)
	defer sess.ctx.Destroy()

	for {
		code, ok := readByParseProbe(ln, promptMain, promptCont)
		if !ok {
			fmt.Println()
			return 0
		}
		if strings.TrimSpace(code) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
		if !sess.handle(code) {
			return 0
		}
	}
}

// readByParseProbe keeps reading continuation lines while the buffered
// source only fails because it ended too early.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder
	for {
		p := prompt
		if b.Len() > 0 {
			p = cont
		}
		line, err := ln.Prompt(p)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl-C drops the pending input.
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") || !engine.IsIncomplete(src) {
			return src, true
		}
	}
}

type replSession struct {
	ctx *engine.Context
	out io.Writer
}

func newReplSession(cfg Config, out io.Writer, extra ...engine.Option) *replSession {
	extra = append(extra, engine.WithOutput(out))
	return &replSession{
		ctx: engine.NewContext(cfg.contextOptions(extra...)...),
		out: out,
	}
}

// handle evaluates one input. It returns false when the session should end.
func (s *replSession) handle(input string) bool {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, ":") {
		return s.command(trimmed)
	}
	if !s.ctx.Run(input) {
		fmt.Fprint(s.out, color.RedString("%s", engine.FormatError(input, s.ctx.LastError())))
	}
	return true
}

func (s *replSession) command(line string) bool {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case ":quit", ":q", ":exit":
		return false
	case ":help":
		fmt.Fprintln(s.out, replHelp)
	case ":vars":
		for _, name := range s.ctx.Vars() {
			var hv engine.HostValue
			s.ctx.Get(name, &hv)
			fmt.Fprintf(s.out, "%s = %s\n", name, formatHostValue(hv))
		}
	case ":get":
		if len(fields) != 2 {
			fmt.Fprintln(s.out, "usage: :get <name>")
			return true
		}
		var hv engine.HostValue
		if !s.ctx.Get(fields[1], &hv) {
			fmt.Fprintln(s.out, color.RedString("%s", s.ctx.LastError().Error()))
			return true
		}
		fmt.Fprintln(s.out, formatHostValue(hv))
	default:
		fmt.Fprintf(s.out, "unknown command %s. Type :help for commands.\n", fields[0])
	}
	return true
}

// serveMetrics exposes /metrics on cfg.MetricsAddr until the returned stop
// func runs.
func serveMetrics(cfg Config) func() {
	addr := cfg.MetricsAddr
	srv := &http.Server{
		Addr: addr,
		Handler: metrics.Handler(prometheus.DefaultGatherer, metrics.HandlerOptions{
			RateLimit:      cfg.MetricsRateLimit,
			AllowedOrigins: cfg.MetricsOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Warn("metrics server shutdown", "error", err)
		}
	}
}
