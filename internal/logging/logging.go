// Package logging provides leveled printf-style logging with text and JSON
// output formats. Components that want scoped logging hold a *Logger; the
// package-level functions delegate to a process-wide default for CLI use.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is a log severity level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the upper-case name of the level.
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

// lower is the level name as it appears in JSON output.
func (l Level) lower() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel converts a level name to a Level. It accepts
// debug/info/warn/warning/error in any case. Unrecognized input returns
// LevelInfo and an error.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger writes leveled log lines to a single output.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	level  Level
	format string // "text" or "json"
}

// New returns a Logger writing text-formatted lines at LevelInfo to stderr.
func New() *Logger {
	return &Logger{out: os.Stderr, level: LevelInfo, format: "text"}
}

// SetOutput redirects the logger's output. A nil writer resets to stderr.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	l.out = w
}

// SetLevel sets the minimum severity that will be written.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current minimum severity.
func (l *Logger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetFormat selects the output format, "text" or "json". Anything else is
// treated as "text".
func (l *Logger) SetFormat(format string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if format != "json" {
		format = "text"
	}
	l.format = format
}

// IsDebug reports whether debug-level output is enabled.
func (l *Logger) IsDebug() bool {
	return l.GetLevel() <= LevelDebug
}

func (l *Logger) Debug(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(LevelError, format, args...) }

type jsonEntry struct {
	TS    string `json:"ts"`
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	now := time.Now()
	if l.format == "json" {
		b, err := json.Marshal(jsonEntry{
			TS:    now.Format(time.RFC3339),
			Level: level.lower(),
			Msg:   msg,
		})
		if err != nil {
			return
		}
		fmt.Fprintln(l.out, string(b))
		return
	}
	fmt.Fprintf(l.out, "%s [%s] %s\n", now.Format("2006/01/02 15:04:05"), level, msg)
}

// std is the process-wide default logger used by the package-level functions.
var std = New()

// Default returns the process-wide default logger.
func Default() *Logger { return std }

// SetOutput redirects the default logger's output. Nil resets to stderr.
func SetOutput(w io.Writer) { std.SetOutput(w) }

// SetLevel sets the default logger's minimum severity.
func SetLevel(level Level) { std.SetLevel(level) }

// GetLevel returns the default logger's minimum severity.
func GetLevel() Level { return std.GetLevel() }

// SetFormat selects the default logger's output format.
func SetFormat(format string) { std.SetFormat(format) }

// IsDebug reports whether the default logger has debug output enabled.
func IsDebug() bool { return std.IsDebug() }

func Debug(format string, args ...interface{}) { std.Debug(format, args...) }
func Info(format string, args ...interface{})  { std.Info(format, args...) }
func Warn(format string, args ...interface{})  { std.Warn(format, args...) }
func Error(format string, args ...interface{}) { std.Error(format, args...) }
