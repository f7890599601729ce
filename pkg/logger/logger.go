// Package logger provides a simple levelled logging interface for the
// validator, backed by log/slog handlers.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level represents the logging level.
type Level int

// Log levels.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelNone
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelNone:
		return "NONE"
	default:
		return ""
	}
}

// ParseLevel parses a level name, ignoring case. An empty name is LevelInfo.
func ParseLevel(name string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug, nil
	case "", "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	case "NONE", "OFF":
		return LevelNone, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// slogLevel maps a Level onto slog. LevelNone maps above every level slog
// emits.
func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelError + 4
	}
}

// Format selects the handler output format.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Logger provides logging functionality. Loggers derived with With share
// the level and output of their parent.
type Logger struct {
	state *state
	attrs []any
}

// state is shared between a logger and everything derived from it.
type state struct {
	mu      sync.RWMutex
	level   Level
	format  Format
	output  io.Writer
	slog    *slog.Logger
	leveler *slog.LevelVar
}

const component = "ccda-validator"

var (
	defaultMu     sync.RWMutex
	defaultLogger = New(os.Stderr, LevelInfo)
)

// Default returns the default logger.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(l *Logger) {
	if l == nil {
		return
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// New creates a new text logger.
func New(output io.Writer, level Level) *Logger {
	return NewWithFormat(output, level, FormatText)
}

// NewWithFormat creates a new logger writing in the given format.
func NewWithFormat(output io.Writer, level Level, format Format) *Logger {
	s := &state{
		level:   level,
		format:  format,
		output:  output,
		leveler: new(slog.LevelVar),
	}
	s.leveler.Set(level.slogLevel())
	s.rebuild()
	return &Logger{state: s}
}

// rebuild recreates the slog handler. Callers hold s.mu or own s exclusively.
func (s *state) rebuild() {
	opts := &slog.HandlerOptions{Level: s.leveler}
	var h slog.Handler
	if s.format == FormatJSON {
		h = slog.NewJSONHandler(s.output, opts)
	} else {
		h = slog.NewTextHandler(s.output, opts)
	}
	s.slog = slog.New(h).With("component", component)
}

// With returns a logger that adds key and value to every record.
func (l *Logger) With(key string, value any) *Logger {
	attrs := make([]any, 0, len(l.attrs)+2)
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, key, value)
	return &Logger{state: l.state, attrs: attrs}
}

// Level returns the current logging level.
func (l *Logger) Level() Level {
	l.state.mu.RLock()
	defer l.state.mu.RUnlock()
	return l.state.level
}

// SetLevel sets the logging level.
func (l *Logger) SetLevel(level Level) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	l.state.level = level
	l.state.leveler.Set(level.slogLevel())
}

// SetOutput sets the output writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	l.state.output = w
	l.state.rebuild()
}

// SetFormat sets the output format.
func (l *Logger) SetFormat(format Format) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	l.state.format = format
	l.state.rebuild()
}

// Enabled reports whether a message at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return level != LevelNone && level >= l.Level()
}

func (l *Logger) log(level Level, format string, args ...any) {
	l.state.mu.RLock()
	defer l.state.mu.RUnlock()

	if level < l.state.level || l.state.level == LevelNone {
		return
	}

	msg := fmt.Sprintf(format, args...)
	l.state.slog.Log(context.Background(), level.slogLevel(), msg, l.attrs...)
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.log(LevelDebug, format, args...)
}

// Info logs an info message.
func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}

// Package-level convenience functions.

// Debug logs a debug message using the default logger.
func Debug(format string, args ...any) {
	Default().Debug(format, args...)
}

// Info logs an info message using the default logger.
func Info(format string, args ...any) {
	Default().Info(format, args...)
}

// Warn logs a warning message using the default logger.
func Warn(format string, args ...any) {
	Default().Warn(format, args...)
}

// Error logs an error message using the default logger.
func Error(format string, args ...any) {
	Default().Error(format, args...)
}

// With derives a logger from the default logger.
func With(key string, value any) *Logger {
	return Default().With(key, value)
}

// SetLevel sets the level of the default logger.
func SetLevel(level Level) {
	Default().SetLevel(level)
}

// SetOutput sets the output of the default logger.
func SetOutput(w io.Writer) {
	Default().SetOutput(w)
}

// Disable disables all logging.
func Disable() {
	Default().SetLevel(LevelNone)
}
