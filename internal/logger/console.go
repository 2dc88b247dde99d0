// Package logger provides logging for maestro execution.
//
// The console logger writes timestamped, optionally colorized progress
// lines with log level filtering. Implementations are thread-safe, and
// every consumer treats a nil logger as a no-op.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering
const (
	levelDebug int = 0
	levelInfo  int = 1
	levelWarn  int = 2
	levelError int = 3
)

// Logger is the interface consumed by the engine, graph, and stores.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// ConsoleLogger logs progress to a writer with [HH:MM:SS] prefixes and
// thread safety. Color output is enabled automatically when writing to
// a TTY and disabled everywhere else (and under NO_COLOR).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger writing to w.
// If w is nil, messages are silently discarded. Valid levels are
// debug, info, warn, error (case-insensitive); anything else maps to info.
func NewConsoleLogger(w io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      w,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(w),
	}
}

// isTerminal reports whether w is a TTY that supports colors.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// normalizeLogLevel lowercases and validates a level string.
// Returns "info" for empty or unknown levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "debug", "info", "warn", "error":
		return normalized
	default:
		return "info"
	}
}

func logLevelToInt(level string) int {
	switch level {
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// Debugf logs a debug-level message.
func (cl *ConsoleLogger) Debugf(format string, args ...interface{}) {
	cl.logf("debug", nil, format, args...)
}

// Infof logs an info-level message.
func (cl *ConsoleLogger) Infof(format string, args ...interface{}) {
	cl.logf("info", nil, format, args...)
}

// Warnf logs a warn-level message in yellow when color is enabled.
func (cl *ConsoleLogger) Warnf(format string, args ...interface{}) {
	cl.logf("warn", color.New(color.FgYellow), format, args...)
}

// Errorf logs an error-level message in red when color is enabled.
func (cl *ConsoleLogger) Errorf(format string, args ...interface{}) {
	cl.logf("error", color.New(color.FgRed), format, args...)
}

func (cl *ConsoleLogger) logf(level string, c *color.Color, format string, args ...interface{}) {
	if cl == nil || cl.writer == nil {
		return
	}
	if !cl.shouldLog(level) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	timestamp := time.Now().Format("15:04:05")
	message := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("[%s] %s\n", timestamp, message)

	if cl.colorOutput && c != nil {
		c.Fprint(cl.writer, line)
		return
	}
	fmt.Fprint(cl.writer, line)
}

// Nop is a Logger that discards everything. Useful as a default when
// callers pass a nil logger.
type Nop struct{}

func (Nop) Debugf(string, ...interface{}) {}
func (Nop) Infof(string, ...interface{})  {}
func (Nop) Warnf(string, ...interface{})  {}
func (Nop) Errorf(string, ...interface{}) {}

// OrNop returns l if non-nil, otherwise a no-op logger.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop{}
	}
	return l
}

// Ensure implementations satisfy Logger
var (
	_ Logger = (*ConsoleLogger)(nil)
	_ Logger = Nop{}
)
