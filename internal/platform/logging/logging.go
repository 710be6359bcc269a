package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Config captures logging configuration options.
type Config struct {
	Level    string
	Dir      string
	Filename string
	// NoColor disables ANSI colours on the console.
	NoColor bool
}

// Logger provides printf-style helpers on top of slog. It satisfies the
// Logger contract of the domain packages.
type Logger struct {
	slog  *slog.Logger
	file  *os.File
	close sync.Once
}

// ParseLevel maps a config level name to a slog level; unknown names map to info.
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

// New creates a Logger writing coloured text to stdout and, when Dir and
// Filename are set, JSON lines to the log file.
func New(cfg Config) (*Logger, error) {
	level := ParseLevel(cfg.Level)
	handlers := fanoutHandler{newTextHandler(os.Stdout, level, !cfg.NoColor)}

	var file *os.File
	if cfg.Dir != "" && cfg.Filename != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(cfg.Dir, cfg.Filename), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	}

	return &Logger{slog: slog.New(handlers), file: file}, nil
}

// NewWriter builds a console-only Logger on w without colours. Used by tests
// and the CLI.
func NewWriter(w io.Writer, level string) *Logger {
	return &Logger{slog: slog.New(newTextHandler(w, ParseLevel(level), false))}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return NewWriter(io.Discard, "error")
}

// Slog exposes the structured logger for new integrations.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

func (l *Logger) Debug(format string, args ...any) {
	l.logf(slog.LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.logf(slog.LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.logf(slog.LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.logf(slog.LevelError, format, args...)
}

func (l *Logger) logf(level slog.Level, format string, args ...any) {
	if l == nil || l.slog == nil {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.slog.Log(context.Background(), level, msg)
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	var err error
	l.close.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
