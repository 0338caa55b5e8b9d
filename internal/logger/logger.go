// Package logger provides centralized logging for restartcheck.
// It configures structured logging with support for log levels, a log file and plain output.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// EnvLogLevel is consulted when no level is given on the command line.
const EnvLogLevel = "RESTARTCHECK_LOG_LEVEL"

// Logger is the global logger instance used throughout restartcheck.
var Logger *log.Logger

var (
	output  io.Writer = os.Stderr
	noColor bool
)

func init() {
	Logger = log.New(os.Stderr)
	Logger.SetTimeFormat("")
	Logger.SetLevel(log.InfoLevel)
}

// Options controls Configure.
type Options struct {
	Level   string // debug|info|warn|error|fatal
	File    string // append logs here instead of stderr
	NoColor bool
}

// Configure sets up the logger from CLI flags and environment variables.
// CLI flags take precedence over environment variables.
func Configure(opts Options) error {
	level := opts.Level
	if level == "" {
		level = strings.ToLower(os.Getenv(EnvLogLevel))
	}
	if level == "" {
		level = "info"
	}

	var w io.Writer = os.Stderr
	if opts.File != "" {
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return err
		}
		w = file
	}

	noColor = opts.NoColor || os.Getenv("NO_COLOR") != "" || opts.File != ""
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	output = w
	Logger = log.New(w)
	Logger.SetTimeFormat("")
	Logger.SetLevel(parseLogLevel(level))
	if noColor {
		Logger.SetColorProfile(termenv.Ascii)
	}

	return nil
}

// SetOutput redirects the global logger, mainly for tests.
func SetOutput(w io.Writer) {
	output = w
	Logger.SetOutput(w)
}

// parseLogLevel converts string to log level
func parseLogLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg interface{}, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

// Info logs an info message with optional key-value pairs.
func Info(msg interface{}, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

// Warn logs a warning message with optional key-value pairs.
func Warn(msg interface{}, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

// Error logs an error message with optional key-value pairs.
func Error(msg interface{}, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}

// Fatal logs a fatal message with optional key-value pairs and exits.
func Fatal(msg interface{}, keyvals ...interface{}) {
	Logger.Fatal(msg, keyvals...)
}

// NewStyledLogger creates a component logger (e.g. "Workspace", "Simulator")
// that writes wherever the global logger writes, at the same level.
func NewStyledLogger(prefix string) *log.Logger {
	styles := log.DefaultStyles()

	styles.Levels[log.InfoLevel] = lipgloss.NewStyle().
		SetString("INFO").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("33")).
		Foreground(lipgloss.Color("15"))

	styles.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("196")).
		Foreground(lipgloss.Color("15"))

	styles.Levels[log.DebugLevel] = lipgloss.NewStyle().
		SetString("DEBUG").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("240")).
		Foreground(lipgloss.Color("15"))

	styles.Levels[log.WarnLevel] = lipgloss.NewStyle().
		SetString("WARN").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("214")).
		Foreground(lipgloss.Color("15"))

	styles.Levels[log.FatalLevel] = lipgloss.NewStyle().
		SetString("FATAL").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("88")).
		Foreground(lipgloss.Color("15"))

	styles.Keys["leg"] = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	styles.Keys["start"] = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	styles.Keys["end"] = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	styles.Keys["error"] = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styles.Keys["exit_code"] = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styles.Keys["dir"] = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))

	styles.Values["leg"] = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	styles.Values["error"] = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))

	componentLogger := log.NewWithOptions(output, log.Options{
		Prefix: prefix + " ",
	})
	componentLogger.SetStyles(styles)
	componentLogger.SetLevel(Logger.GetLevel())
	if noColor {
		componentLogger.SetColorProfile(termenv.Ascii)
	}

	return componentLogger
}
