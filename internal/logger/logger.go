// Package logger is a small leveled logger that tags every line with the
// emitting module, e.g. "[INFO] [Server] listening on :8080".
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	SILENT // No logging
)

var levelNames = map[LogLevel]string{
	DEBUG:  "DEBUG",
	INFO:   "INFO",
	WARN:   "WARN",
	ERROR:  "ERROR",
	SILENT: "SILENT",
}

var levelColors = map[LogLevel]string{
	DEBUG: "\033[36m",
	INFO:  "\033[32m",
	WARN:  "\033[33m",
	ERROR: "\033[31m",
}

const resetColor = "\033[0m"

// FileOptions configures the rotating file sink.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Logger writes leveled, module-tagged lines.
type Logger struct {
	mu       sync.Mutex
	level    LogLevel
	useColor bool
	out      *log.Logger
	file     *log.Logger // never coloured
	closer   io.Closer
}

var (
	defaultMu     sync.RWMutex
	defaultLogger *Logger
)

// Init installs the global logger. A later call replaces the previous one.
func Init(level LogLevel, output io.Writer, useColor bool) {
	setDefault(New(level, output, useColor))
}

// InitWithFile installs a global logger that writes to output and to a
// size-rotated file. Colour codes are never written to the file.
func InitWithFile(level LogLevel, output io.Writer, useColor bool, opts FileOptions) {
	setDefault(NewWithFile(level, output, useColor, opts))
}

func setDefault(l *Logger) {
	defaultMu.Lock()
	prev := defaultLogger
	defaultLogger = l
	defaultMu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
}

func current() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// New creates a new Logger instance
func New(level LogLevel, output io.Writer, useColor bool) *Logger {
	if output == nil {
		output = os.Stderr
	}
	return &Logger{
		level:    level,
		useColor: useColor,
		out:      log.New(output, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
}

// NewWithFile tees output into a lumberjack-rotated file. useColor applies
// to output only.
func NewWithFile(level LogLevel, output io.Writer, useColor bool, opts FileOptions) *Logger {
	if opts.Path == "" {
		return New(level, output, useColor)
	}
	file := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    orDefault(opts.MaxSizeMB, 50),
		MaxBackups: orDefault(opts.MaxBackups, 3),
		MaxAge:     orDefault(opts.MaxAgeDays, 28),
		Compress:   opts.Compress,
	}
	l := New(level, output, useColor)
	l.file = log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	l.closer = file
	return l
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Close releases the file sink, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

// SetLevel changes the log level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level LogLevel) bool {
	return level >= l.GetLevel() && level < SILENT
}

func (l *Logger) log(level LogLevel, module, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}

	tag := "[" + levelNames[level] + "]"
	msg := fmt.Sprintf(format, args...)
	if module != "" {
		msg = "[" + module + "] " + msg
	}

	if l.useColor {
		l.out.Printf("%s%s%s %s", levelColors[level], tag, resetColor, msg)
	} else {
		l.out.Printf("%s %s", tag, msg)
	}
	if l.file != nil {
		l.file.Printf("%s %s", tag, msg)
	}
}

func (l *Logger) Debug(module, format string, args ...any) { l.log(DEBUG, module, format, args...) }
func (l *Logger) Info(module, format string, args ...any)  { l.log(INFO, module, format, args...) }
func (l *Logger) Warn(module, format string, args ...any)  { l.log(WARN, module, format, args...) }
func (l *Logger) Error(module, format string, args ...any) { l.log(ERROR, module, format, args...) }

// SetLevel sets the global log level
func SetLevel(level LogLevel) {
	if l := current(); l != nil {
		l.SetLevel(level)
	}
}

// GetLevel returns the global log level
func GetLevel() LogLevel {
	if l := current(); l != nil {
		return l.GetLevel()
	}
	return INFO
}

// Close flushes and closes the global file sink.
func Close() error {
	if l := current(); l != nil {
		return l.Close()
	}
	return nil
}

// Debug logs a debug message using the global logger
func Debug(module, format string, args ...any) {
	if l := current(); l != nil {
		l.Debug(module, format, args...)
	}
}

// Info logs an info message using the global logger
func Info(module, format string, args ...any) {
	if l := current(); l != nil {
		l.Info(module, format, args...)
	}
}

// Warn logs a warning message using the global logger
func Warn(module, format string, args ...any) {
	if l := current(); l != nil {
		l.Warn(module, format, args...)
	}
}

// Error logs an error message using the global logger
func Error(module, format string, args ...any) {
	if l := current(); l != nil {
		l.Error(module, format, args...)
	}
}

// ParseLevel parses a log level name, case-insensitively.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "info", "":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "silent", "none", "off":
		return SILENT, nil
	default:
		return INFO, fmt.Errorf("invalid log level: %q", s)
	}
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}
