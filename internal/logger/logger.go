// Package logger provides the process-wide pipeline log for docchat.
// Debug, info and warning lines are written only in verbose mode (the
// --verbose flag); errors are always written.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level is the severity of a log line.
type Level int

// Levels in increasing severity.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the tag written before each line.
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
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

var (
	mu      sync.Mutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether verbose logging is enabled.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return verbose
}

// SetOutput sets the log destination. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Redirect sends logs to w until the returned function is called, which
// restores the previous destination. The chat TUI uses it to keep log
// lines off the alternate screen.
func Redirect(w io.Writer) (restore func()) {
	mu.Lock()
	prev := output
	output = w
	mu.Unlock()
	return func() { SetOutput(prev) }
}

// Enabled reports whether a line at level would be written.
func Enabled(level Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return level >= LevelError || verbose
}

func emit(level Level, format string, args []any) {
	mu.Lock()
	defer mu.Unlock()
	if level < LevelError && !verbose {
		return
	}
	fmt.Fprintf(output, "[%s] %s\n", level, fmt.Sprintf(format, args...))
}

// Debug traces a pipeline step.
func Debug(format string, args ...any) { emit(LevelDebug, format, args) }

// Info reports progress.
func Info(format string, args ...any) { emit(LevelInfo, format, args) }

// Warn reports a degradation the caller recovered from.
func Warn(format string, args ...any) { emit(LevelWarn, format, args) }

// Error reports a failure. Always written.
func Error(format string, args ...any) { emit(LevelError, format, args) }

// Section writes a header separating pipeline stages in verbose mode.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}
