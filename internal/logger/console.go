// Package logger reports pitufo runs: leveled messages, per-file outcomes and
// the end-of-run summary.
//
// ConsoleLogger writes to the terminal with colors when attached to a TTY,
// FileLogger keeps a per-run log file, and MultiLogger fans out to several
// loggers. All implementations are safe for concurrent use.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/harrison/pitufo/internal/models"
	"github.com/mattn/go-isatty"
)

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Failures go to the error writer; everything else goes to the main writer.
// Color output is automatically enabled for terminal output.
type ConsoleLogger struct {
	writer      io.Writer
	errWriter   io.Writer
	logLevel    string
	verbose     bool
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes everything to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// logLevel determines the minimum log level for messages to be output.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return NewConsoleLoggerWithErrors(writer, writer, logLevel)
}

// NewConsoleLoggerWithErrors creates a ConsoleLogger that writes error-level
// messages and file failures to errWriter and everything else to writer.
func NewConsoleLoggerWithErrors(writer, errWriter io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		errWriter:   errWriter,
		logLevel:    normalizeLogLevel(logLevel),
		mutex:       sync.Mutex{},
		colorOutput: isTerminal(writer) && isTerminal(errWriter),
	}
}

// SetVerbose makes successful file outcomes visible at INFO level.
// Without it they are logged at DEBUG level.
func (cl *ConsoleLogger) SetVerbose(verbose bool) {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	cl.verbose = verbose
}

// isTerminal checks if the writer is a terminal that supports colors.
// Returns false when NO_COLOR is set.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// LogTrace logs a trace-level message (most verbose).
// Format: "[HH:MM:SS] [TRACE] <message>"
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
// Format: "[HH:MM:SS] [DEBUG] <message>"
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
// Format: "[HH:MM:SS] [WARN] <message>"
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
// Format: "[HH:MM:SS] [ERROR] <message>"
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// logWithLevel is a helper that logs a message at the specified level if filtering allows it.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if !levelAllows(cl.logLevel, strings.ToLower(level)) {
		return
	}
	cl.write(level, message)
}

// write emits one line at level without consulting the level filter.
func (cl *ConsoleLogger) write(level string, message string) {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	w := cl.writer
	if level == "ERROR" {
		w = cl.errWriter
	}
	if w == nil {
		return
	}

	ts := timestamp()
	var formatted string

	if cl.colorOutput {
		formatted = cl.formatWithColor(ts, level, message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}

	w.Write([]byte(formatted))
}

// formatWithColor formats a log message with ANSI color codes.
func (cl *ConsoleLogger) formatWithColor(ts, level, message string) string {
	var coloredLevel string

	switch strings.ToUpper(level) {
	case "TRACE":
		coloredLevel = color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		coloredLevel = color.New(color.FgCyan).Sprint(level)
	case "INFO":
		coloredLevel = color.New(color.FgBlue).Sprint(level)
	case "WARN":
		coloredLevel = color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		coloredLevel = color.New(color.FgRed).Sprint(level)
	default:
		coloredLevel = level
	}

	return fmt.Sprintf("[%s] [%s] %s\n", ts, coloredLevel, message)
}

// LogFileOutcome logs the result of processing one file.
// Failures are logged at ERROR level with the error description and path.
// Successes are logged at DEBUG level, or at INFO level when verbose.
// Verbose success lines bypass the level filter.
// Format: "[HH:MM:SS] [ERROR] <kind> error: <cause> <path>"
// Format: "[HH:MM:SS] [INFO] <status> <path> (<in> -> <out>)"
func (cl *ConsoleLogger) LogFileOutcome(outcome models.FileOutcome) {
	if outcome.Failed() {
		cl.LogError(outcome.Err.Error())
		return
	}

	cl.mutex.Lock()
	verbose := cl.verbose
	cl.mutex.Unlock()

	message := describeSuccess(outcome)
	if verbose {
		cl.write("INFO", message)
	} else {
		cl.LogDebug(message)
	}
}

// LogSummary logs the run summary at INFO level.
func (cl *ConsoleLogger) LogSummary(summary models.RunSummary) {
	if cl.writer == nil {
		return
	}

	if !levelAllows(cl.logLevel, "info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	durationStr := formatDuration(summary.Duration)
	bytesStr := fmt.Sprintf("%s in, %s out", humanize.Bytes(uint64(summary.BytesIn)), humanize.Bytes(uint64(summary.BytesOut)))

	var output string

	if cl.colorOutput {
		header := color.New(color.Bold).Sprint("=== Run Summary ===")
		output = fmt.Sprintf("[%s] %s\n", ts, header)
		output += fmt.Sprintf("[%s] Candidates: %d\n", ts, summary.Candidates)

		rewrittenText := color.New(color.FgGreen).Sprintf("Rewritten: %d", summary.Rewritten)
		output += fmt.Sprintf("[%s] %s\n", ts, rewrittenText)
		output += fmt.Sprintf("[%s] Unchanged: %d\n", ts, summary.Unchanged)

		if summary.Failed > 0 {
			failedText := color.New(color.FgRed).Sprintf("Failed: %d", summary.Failed)
			output += fmt.Sprintf("[%s] %s\n", ts, failedText)
		} else {
			output += fmt.Sprintf("[%s] Failed: %d\n", ts, summary.Failed)
		}

		output += fmt.Sprintf("[%s] Bytes: %s\n", ts, bytesStr)
		output += fmt.Sprintf("[%s] Duration: %s\n", ts, durationStr)

		if len(summary.Failures) > 0 {
			failedHeader := color.New(color.FgRed).Sprint("Failed files:")
			output += fmt.Sprintf("[%s] %s\n", ts, failedHeader)
			for _, f := range summary.Failures {
				path := color.New(color.FgRed).Sprint(f.Path)
				output += fmt.Sprintf("[%s]   - %s (%s)\n", ts, path, f.Err.Kind)
			}
		}
	} else {
		output = fmt.Sprintf("[%s] === Run Summary ===\n", ts)
		output += fmt.Sprintf("[%s] Candidates: %d\n", ts, summary.Candidates)
		output += fmt.Sprintf("[%s] Rewritten: %d\n", ts, summary.Rewritten)
		output += fmt.Sprintf("[%s] Unchanged: %d\n", ts, summary.Unchanged)
		output += fmt.Sprintf("[%s] Failed: %d\n", ts, summary.Failed)
		output += fmt.Sprintf("[%s] Bytes: %s\n", ts, bytesStr)
		output += fmt.Sprintf("[%s] Duration: %s\n", ts, durationStr)

		if len(summary.Failures) > 0 {
			output += fmt.Sprintf("[%s] Failed files:\n", ts)
			for _, f := range summary.Failures {
				output += fmt.Sprintf("[%s]   - %s (%s)\n", ts, f.Path, f.Err.Kind)
			}
		}
	}

	cl.writer.Write([]byte(output))
}

// describeSuccess renders a successful outcome as "<status> <path> (<in> -> <out>)".
func describeSuccess(outcome models.FileOutcome) string {
	return fmt.Sprintf("%s %s (%s -> %s)",
		strings.ToLower(outcome.Status()),
		outcome.Path,
		humanize.Bytes(uint64(outcome.BytesIn)),
		humanize.Bytes(uint64(outcome.BytesOut)),
	)
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "250ms", "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d >= time.Second:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}
