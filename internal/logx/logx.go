package logx

import (
	"log"
	"os"
)

// Level represents logging verbosity
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// Logger provides leveled logging with a component tag
type Logger struct {
	level     Level
	component string
}

// New creates a logger with the specified level
func New(level Level) *Logger {
	return &Logger{level: level}
}

// NewDefault creates a logger based on the LOG_LEVEL environment variable
func NewDefault() *Logger {
	level := LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "ERROR":
		level = LevelError
	case "WARN":
		level = LevelWarn
	case "DEBUG":
		level = LevelDebug
	}
	return &Logger{level: level}
}

// With returns a copy of the logger tagged with a component name that
// prefixes every line, e.g. "[INFO] [RunWorker] ..."
func (l *Logger) With(component string) *Logger {
	return &Logger{level: l.level, component: component}
}

func (l *Logger) printf(prefix, format string, args ...interface{}) {
	if l.component != "" {
		prefix = prefix + " [" + l.component + "]"
	}
	log.Printf(prefix+" "+format, args...)
}

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	if l.level >= LevelError {
		l.printf("[ERROR]", format, args...)
	}
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LevelWarn {
		l.printf("[WARN]", format, args...)
	}
}

// Info logs info messages
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LevelInfo {
		l.printf("[INFO]", format, args...)
	}
}

// Debug logs debug messages
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LevelDebug {
		l.printf("[DEBUG]", format, args...)
	}
}

// Default is the process-wide logger
var Default = NewDefault()
