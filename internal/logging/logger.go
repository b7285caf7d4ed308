// Package logging provides the levelled logger used by recency's sources and
// commands. It is backed by the standard log package and writes to stderr so
// that reports on stdout stay machine-readable.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
)

// Level represents a log level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
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
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name (case-insensitive) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q (use debug, info, warn, error)", s)
	}
}

// Logger is the interface for structured logging.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithField returns a new logger with the given field added.
	WithField(key string, value interface{}) Logger

	// WithFields returns a new logger with the given fields added.
	WithFields(fields map[string]interface{}) Logger

	// SetLevel sets the minimum log level.
	SetLevel(level Level)

	// SetOutput sets the output writer.
	SetOutput(w io.Writer)
}

var (
	defaultLogger Logger = New()
	defaultMu     sync.RWMutex
)

// Default returns the default logger.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Debug logs a debug message using the default logger.
func Debug(msg string, args ...interface{}) {
	Default().Debug(msg, args...)
}

// Info logs an info message using the default logger.
func Info(msg string, args ...interface{}) {
	Default().Info(msg, args...)
}

// Warn logs a warning message using the default logger.
func Warn(msg string, args ...interface{}) {
	Default().Warn(msg, args...)
}

// Error logs an error message using the default logger.
func Error(msg string, args ...interface{}) {
	Default().Error(msg, args...)
}

// levelVar is shared between a logger and everything derived from it with
// WithField, so SetLevel on the root applies to all of them.
type levelVar struct {
	mu    sync.RWMutex
	level Level
}

func (v *levelVar) get() Level {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.level
}

func (v *levelVar) set(l Level) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.level = l
}

// stdLogger implements Logger using the standard library log package.
type stdLogger struct {
	logger *log.Logger
	level  *levelVar
	fields map[string]interface{} // immutable once the logger is built
}

// New creates a logger writing to stderr at Info level.
func New() Logger {
	return NewWithOutput(os.Stderr)
}

// NewWithOutput creates a logger with the specified output.
func NewWithOutput(w io.Writer) Logger {
	return &stdLogger{
		logger: log.New(w, "", log.LstdFlags),
		level:  &levelVar{level: LevelInfo},
	}
}

func (l *stdLogger) log(level Level, msg string, args ...interface{}) {
	if level < l.level.get() {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", level)
	if len(args) > 0 {
		fmt.Fprintf(&b, msg, args...)
	} else {
		b.WriteString(msg)
	}

	if len(l.fields) > 0 {
		keys := make([]string, 0, len(l.fields))
		for k := range l.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%s=%v", k, l.fields[k])
		}
		b.WriteByte(']')
	}

	l.logger.Print(b.String())
}

func (l *stdLogger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, msg, args...)
}

func (l *stdLogger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, msg, args...)
}

func (l *stdLogger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, msg, args...)
}

func (l *stdLogger) Error(msg string, args ...interface{}) {
	l.log(LevelError, msg, args...)
}

func (l *stdLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

func (l *stdLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	return &stdLogger{
		logger: l.logger,
		level:  l.level,
		fields: merged,
	}
}

func (l *stdLogger) SetLevel(level Level) {
	l.level.set(level)
}

func (l *stdLogger) SetOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

// NopLogger is a logger that discards all output.
type NopLogger struct{}

func (NopLogger) Debug(msg string, args ...interface{})             {}
func (NopLogger) Info(msg string, args ...interface{})              {}
func (NopLogger) Warn(msg string, args ...interface{})              {}
func (NopLogger) Error(msg string, args ...interface{})             {}
func (n NopLogger) WithField(key string, value interface{}) Logger  { return n }
func (n NopLogger) WithFields(fields map[string]interface{}) Logger { return n }
func (NopLogger) SetLevel(level Level)                              {}
func (NopLogger) SetOutput(w io.Writer)                             {}
