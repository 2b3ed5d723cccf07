package configs

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
)

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

var (
	loggers     map[string]*ColorLogger
	loggersLock sync.Mutex
)

type ColorLogger struct {
	slog.Logger
}

type ColorHandlerOptions struct {
	slog.HandlerOptions
	Module  string
	NoColor bool
}

type ColorHandler struct {
	slog.Handler
	logOutput *log.Logger
	module    string
	noColor   bool
	attrs     []slog.Attr
}

func NewColorHandler(out io.Writer, opts ColorHandlerOptions) *ColorHandler {
	h := &ColorHandler{
		Handler:   slog.NewTextHandler(out, &opts.HandlerOptions),
		logOutput: log.New(out, "", 0),
	}
	h.module = opts.Module
	h.noColor = opts.NoColor

	return h
}

func (l *ColorLogger) Trace(msg string, args ...any) {
	ctx := context.Background()
	l.Log(ctx, LevelTrace, msg, args...)
}

func (l *ColorLogger) Fatal(msg string, args ...any) {
	ctx := context.Background()
	l.Log(ctx, LevelFatal, msg, args...)
	// Duplicate the log message to stdout if writing to a file
	if GetConfigFile().Log.File != "" {
		fmt.Fprintln(os.Stdout, "FATAL:", msg, args)
	}
	os.Exit(1)
}

func (h *ColorHandler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String() + ":"

	if !h.noColor {
		switch r.Level {
		case LevelTrace:
			level = color.GreenString("TRACE:")
		case slog.LevelDebug:
			level = color.MagentaString(level)
		case slog.LevelInfo:
			level = color.BlueString(level)
		case slog.LevelWarn:
			level = color.YellowString(level)
		case slog.LevelError:
			level = color.RedString(level)
		case LevelFatal:
			level = color.RedString("FATAL:")
		}
	} else {
		switch r.Level {
		case LevelTrace:
			level = "TRACE:"
		case LevelFatal:
			level = "FATAL:"
		}
	}

	fields := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		fields[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = a.Value.Any()

		return true
	})

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b := ""
	for _, k := range keys {
		b += fmt.Sprintf("%s=%v ", k, fields[k])
	}

	timeStr := r.Time.Format("[15:04:05.000]")
	if h.noColor {
		h.logOutput.Println(timeStr, level, h.module, r.Message, b)
		return nil
	}
	msg := color.CyanString(r.Message)
	h.logOutput.Println(timeStr, color.YellowString(h.module), level, msg, color.WhiteString(b))

	return nil
}

func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ColorHandler{
		Handler:   h.Handler.WithAttrs(attrs),
		logOutput: h.logOutput,
		module:    h.module,
		noColor:   h.noColor,
		attrs:     append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *ColorHandler) WithGroup(name string) slog.Handler {
	return &ColorHandler{
		Handler:   h.Handler.WithGroup(name),
		logOutput: h.logOutput,
		module:    h.module,
		noColor:   h.noColor,
		attrs:     h.attrs,
	}
}

func getLevelByString(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "fatal":
		return LevelFatal
	default:
		return slog.LevelError
	}
}

// IsLogLevel reports whether levelStr names a known level.
func IsLogLevel(levelStr string) bool {
	switch strings.ToLower(levelStr) {
	case "trace", "debug", "info", "warn", "error", "fatal":
		return true
	}
	return false
}

func getLevelByModule(cfg *ConfigFile, module string) slog.Level {
	switch module {
	case "main":
		return getLevelByString(cfg.Log.Main)
	case "crypt":
		return getLevelByString(cfg.Log.Crypt)
	case "ciphers":
		return getLevelByString(cfg.Log.Ciphers)
	case "modes":
		return getLevelByString(cfg.Log.Modes)
	case "padding":
		return getLevelByString(cfg.Log.Padding)
	case "dh":
		return getLevelByString(cfg.Log.DH)
	case "protocol":
		return getLevelByString(cfg.Log.Protocol)
	default:
		if cfg.Main.Debug {
			return slog.LevelDebug
		}
		return slog.LevelInfo
	}
}

func newLogger(module string) *ColorLogger {
	cfg := GetConfigFile()
	level := getLevelByModule(cfg, module)
	var out io.Writer
	noColor := cfg.Log.NoColor
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		out = f
		noColor = true
	} else {
		out = os.Stderr
	}
	logger := slog.New(
		NewColorHandler(
			out,
			ColorHandlerOptions{
				HandlerOptions: slog.HandlerOptions{
					Level: level,
				},
				Module:  module,
				NoColor: noColor,
			},
		),
	)
	return &ColorLogger{*logger}
}

// InitLogger returns the cached logger for module, creating it on first use.
func InitLogger(module string) *ColorLogger {
	loggersLock.Lock()
	defer loggersLock.Unlock()
	if loggers == nil {
		loggers = make(map[string]*ColorLogger)
	}
	if logger, exists := loggers[module]; exists {
		return logger
	}
	newLogger := newLogger(module)
	loggers[module] = newLogger
	return newLogger
}

// ReinitLogger replaces the cached logger for module so new levels take effect.
func ReinitLogger(module string) *ColorLogger {
	loggersLock.Lock()
	defer loggersLock.Unlock()
	if loggers == nil {
		loggers = make(map[string]*ColorLogger)
	}
	newLogger := newLogger(module)
	loggers[module] = newLogger
	return newLogger
}

func resetLoggers() {
	loggersLock.Lock()
	defer loggersLock.Unlock()
	loggers = nil
}
