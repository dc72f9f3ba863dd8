// Package logger is the line-oriented logging sink shared by the arena engines and memctl.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LevelTrace sits below slog.LevelDebug and carries per-allocation detail.
const LevelTrace = slog.LevelDebug - 4

// Logger wraps slog.Logger with a trace severity.
type Logger struct {
	*slog.Logger
}

// L is the global logger instance. It's initialized to discard all output by default.
// Call Init() to enable logging.
var L = Discard()

const (
	logPrefix     = "memdebug-"
	logSuffix     = ".log"
	retentionDays = 30
)

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	JSON    bool       // JSON handler instead of text
	Writer  io.Writer  // Destination when LogDir is empty. Default: os.Stderr
	LogDir  string     // Write to a daily file in this directory instead of Writer
	Level   slog.Level // Minimum log level. Default: LevelInfo when enabled
}

// New creates a Logger from a handler. A nil handler discards everything.
func New(h slog.Handler) *Logger {
	if h == nil {
		h = slog.NewTextHandler(io.Discard, nil)
	}
	return &Logger{Logger: slog.New(h)}
}

// Discard returns a Logger that drops all output.
func Discard() *Logger {
	return New(nil)
}

// Stderr returns a text Logger writing to stderr at the given level.
func Stderr(level slog.Level) *Logger {
	return New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Init configures the global logger. Call from main() before any log calls.
// If opts.Enabled is false, all log output is discarded.
func Init(opts Options) error {
	if !opts.Enabled {
		L = Discard()
		return nil
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
			return err
		}

		// Clean up old logs (best-effort, ignore errors)
		cleanOldLogs(opts.LogDir)

		filename := filepath.Join(opts.LogDir, logPrefix+time.Now().Format("2006-01-02")+logSuffix)
		f, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		w = f
	}

	level := opts.Level
	if level == 0 {
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level, ReplaceAttr: levelNames}
	if opts.JSON {
		L = New(slog.NewJSONHandler(w, handlerOpts))
	} else {
		L = New(slog.NewTextHandler(w, handlerOpts))
	}
	return nil
}

// levelNames renders LevelTrace as "TRACE" instead of "DEBUG-4".
func levelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}

// cleanOldLogs removes log files older than retentionDays.
func cleanOldLogs(logDir string) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, logPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}

		// Parse date from filename: memdebug-2024-01-05.log
		dateStr := strings.TrimPrefix(strings.TrimSuffix(name, logSuffix), logPrefix)
		logDate, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}

		if logDate.Before(cutoff) {
			os.Remove(filepath.Join(logDir, name))
		}
	}
}

// Trace logs at LevelTrace.
func (l *Logger) Trace(msg string, args ...any) {
	l.Log(context.Background(), LevelTrace, msg, args...)
}

// TraceEnabled reports whether trace records would be emitted. Engines use it to skip
// building attributes on hot paths.
func (l *Logger) TraceEnabled() bool {
	return l.Enabled(context.Background(), LevelTrace)
}

// Trace logs a trace message on the global logger.
func Trace(msg string, args ...any) { L.Trace(msg, args...) }

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
