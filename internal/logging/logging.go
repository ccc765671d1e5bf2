// Package logging provides the leveled logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"log"
	"strings"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level; unknown values fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes leveled key=value lines. A nil *Logger discards everything,
// so components can run without one in tests.
type Logger struct {
	level Level
	out   *log.Logger
}

func New(w io.Writer, level Level) *Logger {
	return &Logger{level: level, out: log.New(w, "councild ", log.LstdFlags|log.LUTC)}
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, "DEBUG", format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LevelInfo, "INFO", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LevelWarn, "WARN", format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, "ERROR", format, args...) }

func (l *Logger) logf(level Level, tag, format string, args ...any) {
	if l == nil || level < l.level {
		return
	}
	l.out.Printf("%s %s", tag, fmt.Sprintf(format, args...))
}
