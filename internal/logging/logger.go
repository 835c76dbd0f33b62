// Package logging provides structured, component-tagged logging for
// okanban. A single rotating log file backs every component logger;
// component loggers may be created at package-init time, before Init
// runs, and will still pick up the real handler once it does.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Component name constants, one per package that logs.
const (
	CompStore        = "store"
	CompGit          = "git"
	CompMux          = "mux"
	CompAgent        = "agent"
	CompStatus       = "status"
	CompOrchestrator = "orchestrator"
	CompCLI          = "cli"
)

// Config configures the global logger.
type Config struct {
	// LogDir is the directory for the rotating log file (e.g. {data_dir}/logs).
	LogDir string

	// Level is "debug", "info", "warn", or "error". Defaults to "info".
	Level string

	// Debug, when true and LogDir is empty, logs to stderr instead of
	// discarding — useful for running a subcommand without a data dir.
	Debug bool

	MaxSizeMB  int // default 10
	MaxBackups int // default 5
	MaxAgeDays int // default 10
	Compress   bool
}

var (
	globalLogger *slog.Logger
	globalMu     sync.RWMutex
)

// Init installs the global logger. Safe to call once at process start;
// ForComponent loggers created earlier still pick up this handler.
func Init(cfg Config) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 5
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 10
	}

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if cfg.LogDir == "" {
		if cfg.Debug {
			globalLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		} else {
			globalLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))
		}
		return
	}

	w := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "okanban.log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	globalLogger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Logger returns the global logger, defaulting to a discard handler if
// Init hasn't run yet (e.g. in tests).
func Logger() *slog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return globalLogger
}

// ForComponent returns a logger tagged with a "component" attribute,
// deferring to the real global handler at log time via dynamicHandler.
func ForComponent(name string) *slog.Logger {
	return slog.New(&dynamicHandler{component: name})
}

// dynamicHandler delegates to the current global handler at log time so
// that component loggers declared as package-level vars (before Init
// runs) don't permanently capture a discard handler.
type dynamicHandler struct {
	component string
	attrs     []slog.Attr
	group     string
}

func (h *dynamicHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return Logger().Handler().Enabled(ctx, level)
}

func (h *dynamicHandler) Handle(ctx context.Context, r slog.Record) error {
	handler := Logger().Handler().WithAttrs([]slog.Attr{slog.String("component", h.component)})
	if len(h.attrs) > 0 {
		handler = handler.WithAttrs(h.attrs)
	}
	if h.group != "" {
		handler = handler.WithGroup(h.group)
	}
	return handler.Handle(ctx, r)
}

func (h *dynamicHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(merged, h.attrs)
	copy(merged[len(h.attrs):], attrs)
	return &dynamicHandler{component: h.component, attrs: merged, group: h.group}
}

func (h *dynamicHandler) WithGroup(name string) slog.Handler {
	return &dynamicHandler{component: h.component, attrs: h.attrs, group: name}
}
