// Package logging provides the leveled logger used across planner.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Fields are appended to a log line as sorted key=value pairs.
type Fields map[string]interface{}

type Logger interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, fields Fields)
	WithPrefix(prefix string) Logger
}

// StandardLogger writes through the standard log package.
type StandardLogger struct {
	out    *log.Logger
	prefix string
	level  Level
}

func New(w io.Writer, level Level) *StandardLogger {
	if w == nil {
		w = os.Stderr
	}
	return &StandardLogger{out: log.New(w, "", log.LstdFlags), level: level}
}

func (l *StandardLogger) Debug(msg string, fields Fields) { l.log(LevelDebug, msg, fields) }
func (l *StandardLogger) Info(msg string, fields Fields)  { l.log(LevelInfo, msg, fields) }
func (l *StandardLogger) Warn(msg string, fields Fields)  { l.log(LevelWarn, msg, fields) }
func (l *StandardLogger) Error(msg string, fields Fields) { l.log(LevelError, msg, fields) }

func (l *StandardLogger) WithPrefix(prefix string) Logger {
	return &StandardLogger{out: l.out, prefix: prefix, level: l.level}
}

func (l *StandardLogger) log(level Level, msg string, fields Fields) {
	if level < l.level {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", level)
	if l.prefix != "" {
		fmt.Fprintf(&b, " [%s]", l.prefix)
	}
	b.WriteString(" ")
	b.WriteString(msg)
	b.WriteString(formatFields(fields))
	l.out.Print(b.String())
}

func formatFields(fields Fields) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}

type nopLogger struct{}

// NewNop returns a Logger that discards everything.
func NewNop() Logger { return nopLogger{} }

func (nopLogger) Debug(string, Fields)        {}
func (nopLogger) Info(string, Fields)         {}
func (nopLogger) Warn(string, Fields)         {}
func (nopLogger) Error(string, Fields)        {}
func (n nopLogger) WithPrefix(string) Logger { return n }
