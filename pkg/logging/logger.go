// Package logging provides structured, colorful logging for bootkit applications.
//
// The package owns the process-wide logging state. Until a logging configuration
// is activated, every message goes to stderr at INFO level through a colorful
// console logger. Activation replaces that state with the handlers and loggers
// described by a logging configuration document (see Document and Config).
//
// LOGGING FEATURES:
//   - Color-coded levels: DEBUG (purple), INFO (blue), WARN (yellow), ERROR (red), SUCCESS (green)
//   - Hierarchical loggers: dotted names inherit levels and handlers from their parents
//   - Handlers: stream (stdout/stderr), file, null; text, json and logfmt formatters
//   - Standard redirection: Routes standard library logs through the unified system
//
// Activation is the single writer of the process-wide state. Emission takes a
// read lock, so reconfiguring never races with a message being written.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	// Guards current. Emission holds the read lock, activation the write lock.
	stateMu sync.RWMutex

	// Process-wide registry of handlers and loggers
	current = newConsoleRegistry(os.Stderr)

	// Number of successful activations in this process
	activations int
)

// setupCustomStyles creates custom color styling for log levels.
// Configures distinct colors for each log level to improve visual parsing of log output
// in both light and dark terminals.
func setupCustomStyles() *log.Styles {
	styles := log.DefaultStyles()

	// DEBUG: light purple
	styles.Levels[log.DebugLevel] = lipgloss.NewStyle().
		SetString("DEBUG").
		Foreground(lipgloss.Color("#7F6DFF"))

	// INFO: light blue
	styles.Levels[log.InfoLevel] = lipgloss.NewStyle().
		SetString("INFO").
		Foreground(lipgloss.Color("#42E7FF"))

	// WARN: light yellow
	styles.Levels[log.WarnLevel] = lipgloss.NewStyle().
		SetString("WARN").
		Foreground(lipgloss.Color("#FFE763"))

	// ERROR: light red/pink
	styles.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Foreground(lipgloss.Color("#FF4473"))

	return styles
}

// setupSuccessStyles overrides the INFO level label with a green "SUCCESS".
func setupSuccessStyles() *log.Styles {
	styles := setupCustomStyles()
	styles.Levels[log.InfoLevel] = lipgloss.NewStyle().
		SetString("SUCCESS").
		Foreground(lipgloss.Color("#60F281")) // Light green
	return styles
}

// sink is one activated handler: a charmbracelet logger bound to a destination.
type sink struct {
	name    string
	logger  *log.Logger
	success *log.Logger // same destination, SUCCESS label at INFO level
}

// newSink creates a styled sink writing to w with the given options.
func newSink(name string, w io.Writer, opts log.Options) *sink {
	logger := log.NewWithOptions(w, opts)
	logger.SetStyles(setupCustomStyles())

	success := log.NewWithOptions(w, opts)
	success.SetStyles(setupSuccessStyles())

	return &sink{name: name, logger: logger, success: success}
}

// loggerNode is the activated form of a logger entry in the configuration.
type loggerNode struct {
	level     log.Level
	hasLevel  bool
	handlers  []*sink
	propagate bool
}

// registry is an immutable snapshot of the activated logging configuration.
type registry struct {
	root    *loggerNode
	loggers map[string]*loggerNode
	closers []io.Closer
}

// newConsoleRegistry builds the pre-activation state: a single colorful
// console handler at INFO level.
func newConsoleRegistry(w io.Writer) *registry {
	console := newSink("console", w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           log.DebugLevel,
	})
	return &registry{
		root: &loggerNode{
			level:    log.InfoLevel,
			hasLevel: true,
			handlers: []*sink{console},
		},
		loggers: make(map[string]*loggerNode),
	}
}

// lookup returns the configured node for name, or the root for "".
func (r *registry) lookup(name string) *loggerNode {
	if name == "" {
		return r.root
	}
	return r.loggers[name]
}

// effectiveLevel walks from name towards the root and returns the first
// explicitly configured level.
func (r *registry) effectiveLevel(name string) log.Level {
	for node := name; ; node = parentName(node) {
		if n := r.lookup(node); n != nil && n.hasLevel {
			return n.level
		}
		if node == "" {
			return log.InfoLevel
		}
	}
}

// emit writes msg to every handler reachable from name, honoring the effective
// level of name and the propagate flag of each configured node on the way up.
func (r *registry) emit(name string, level log.Level, success bool, msg string) {
	if level < r.effectiveLevel(name) {
		return
	}

	for node := name; ; node = parentName(node) {
		n := r.lookup(node)
		if n != nil {
			for _, s := range n.handlers {
				target := s.logger
				if success {
					target = s.success
				}
				if name != "" {
					target = target.WithPrefix(name)
				}
				target.Log(level, msg)
			}
			if !n.propagate {
				return
			}
		}
		if node == "" {
			return
		}
	}
}

// close releases file handles owned by the registry.
func (r *registry) close() {
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			// Cannot log through the registry being closed
			fmt.Fprintf(os.Stderr, "Warning: failed to close log handler: %v\n", err)
		}
	}
	r.closers = nil
}

// parentName returns the dotted parent of a logger name ("a.b" -> "a", "a" -> "").
func parentName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i]
	}
	return ""
}

// Logger is a named logger. It resolves its handlers on every call, so loggers
// obtained before activation follow the configuration activated later.
type Logger struct {
	name string
}

// Get returns the logger with the given dotted name. The empty name is the root logger.
func Get(name string) *Logger {
	return &Logger{name: name}
}

// Name returns the dotted name of the logger.
func (l *Logger) Name() string {
	return l.name
}

func (l *Logger) log(level log.Level, success bool, format string, v ...any) {
	stateMu.RLock()
	defer stateMu.RUnlock()
	current.emit(l.name, level, success, fmt.Sprintf(format, v...))
}

// Debug logs detailed debugging information.
func (l *Logger) Debug(format string, v ...any) {
	l.log(log.DebugLevel, false, format, v...)
}

// Info logs informational messages.
func (l *Logger) Info(format string, v ...any) {
	l.log(log.InfoLevel, false, format, v...)
}

// Warn logs warning messages for non-critical issues requiring attention.
func (l *Logger) Warn(format string, v ...any) {
	l.log(log.WarnLevel, false, format, v...)
}

// Error logs error messages for failures.
func (l *Logger) Error(format string, v ...any) {
	l.log(log.ErrorLevel, false, format, v...)
}

// Success logs successful operations in green using INFO level, so it respects
// INFO level filtering.
func (l *Logger) Success(format string, v ...any) {
	l.log(log.InfoLevel, true, format, v...)
}

// DebugEnabled reports whether DEBUG messages of this logger would be emitted.
func (l *Logger) DebugEnabled() bool {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return current.effectiveLevel(l.name) <= log.DebugLevel
}

var rootLogger = Get("")

// Info logs informational messages to the root logger.
func Info(format string, v ...any) {
	rootLogger.Info(format, v...)
}

// Warn logs warning messages to the root logger.
func Warn(format string, v ...any) {
	rootLogger.Warn(format, v...)
}

// Error logs error messages to the root logger.
func Error(format string, v ...any) {
	rootLogger.Error(format, v...)
}

// Success logs successful operations in green to the root logger.
func Success(format string, v ...any) {
	rootLogger.Success(format, v...)
}

// Debug logs detailed debugging information to the root logger.
func Debug(format string, v ...any) {
	rootLogger.Debug(format, v...)
}

// SetLevel configures the level of the root logger. Accepts standard level strings
// (DEBUG, INFO, WARN, ERROR); unknown strings fall back to INFO.
//
// Used when no logging configuration gets activated at all but a verbosity
// override still has to take effect.
func SetLevel(level string) {
	stateMu.Lock()
	defer stateMu.Unlock()

	root := *current.root
	root.level = parseLevel(level, log.InfoLevel)
	root.hasLevel = true

	next := *current
	next.root = &root
	current = &next
}
