package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	// ErrActivation is returned when a logging configuration cannot be activated.
	ErrActivation = errors.New("logging activation failed")

	// ErrActivationInProgress is returned when Activate is re-entered.
	ErrActivationInProgress = errors.New("logging activation already in progress")
)

// Serializes activations; TryLock turns re-entry into an error instead of a deadlock.
var activateMu sync.Mutex

// Stream destinations, replaceable in tests.
var streams = map[string]io.Writer{
	"stdout": os.Stdout,
	"stderr": os.Stderr,
}

// Activate replaces the process-wide logging state with cfg.
//
// Every handler is built before any global state is touched, so a failing
// activation (unwritable file, unknown formatter, ...) leaves the previously
// active configuration in place. On success, file handles of the previous
// configuration are closed and the standard library logger is routed through
// the root logger.
func Activate(cfg *Config) error {
	if !activateMu.TryLock() {
		return ErrActivationInProgress
	}
	defer activateMu.Unlock()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrActivation, err)
	}

	next, err := buildRegistry(cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrActivation, err)
	}

	stateMu.Lock()
	prev := current
	current = next
	activations++
	stateMu.Unlock()

	prev.close()
	RedirectStandardLog(NewLevelWriter("INFO", ""))
	return nil
}

// ActivateDocument decodes doc and activates it.
func ActivateDocument(doc Document) error {
	cfg, err := doc.Decode()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrActivation, err)
	}
	return Activate(cfg)
}

// Activations returns how many logging configurations have been activated in
// this process.
func Activations() int {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return activations
}

// buildRegistry opens every handler destination and wires loggers to them.
func buildRegistry(cfg *Config) (reg *registry, err error) {
	reg = &registry{loggers: make(map[string]*loggerNode)}
	defer func() {
		if err != nil {
			reg.close()
		}
	}()

	sinks := make(map[string]*sink, len(cfg.Handlers))
	for _, name := range sortedKeys(cfg.Handlers) {
		h := cfg.Handlers[name]

		w, closer, err := openHandler(h)
		if err != nil {
			return reg, fmt.Errorf("handler '%s': %w", name, err)
		}
		if closer != nil {
			reg.closers = append(reg.closers, closer)
		}

		opts := formatterOptions(cfg.Formatters[h.Formatter])
		opts.Level = parseLevel(h.Level, log.DebugLevel)
		sinks[name] = newSink(name, w, opts)
	}

	reg.root = newLoggerNode(cfg.Root, sinks, log.InfoLevel)
	// Root always has a level so effective level lookups terminate there
	reg.root.hasLevel = true
	reg.root.propagate = false

	for _, name := range sortedKeys(cfg.Loggers) {
		reg.loggers[name] = newLoggerNode(cfg.Loggers[name], sinks, log.InfoLevel)
	}
	return reg, nil
}

func newLoggerNode(lc LoggerConfig, sinks map[string]*sink, fallback log.Level) *loggerNode {
	n := &loggerNode{
		level:     parseLevel(lc.Level, fallback),
		hasLevel:  lc.Level != "",
		propagate: lc.Propagate == nil || *lc.Propagate,
	}
	for _, h := range lc.Handlers {
		n.handlers = append(n.handlers, sinks[h])
	}
	return n
}

// openHandler returns the writer of a handler and, for files, the handle to close.
func openHandler(h HandlerConfig) (io.Writer, io.Closer, error) {
	switch h.Class {
	case ClassStream:
		stream := h.Stream
		if stream == "" {
			stream = "stderr"
		}
		w, ok := streams[stream]
		if !ok {
			return nil, nil, fmt.Errorf("unknown stream '%s'", stream)
		}
		return w, nil, nil
	case ClassFile:
		if dir := filepath.Dir(h.Filename); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
			}
		}
		flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
		if h.Mode == "truncate" {
			flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		}
		f, err := os.OpenFile(h.Filename, flags, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", h.Filename, err)
		}
		return f, f, nil
	case ClassNull:
		return io.Discard, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown handler class '%s'", h.Class)
	}
}

// formatterOptions maps a formatter entry to charmbracelet logger options.
// Handlers without a formatter get timestamped text output.
func formatterOptions(f FormatterConfig) log.Options {
	opts := log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       log.TextFormatter,
	}
	if f.ReportTimestamp != nil {
		opts.ReportTimestamp = *f.ReportTimestamp
	}
	opts.ReportCaller = f.ReportCaller
	if f.TimeFormat != "" {
		opts.TimeFormat = f.TimeFormat
	}
	switch f.Format {
	case "json":
		opts.Formatter = log.JSONFormatter
	case "logfmt":
		opts.Formatter = log.LogfmtFormatter
	}
	return opts
}
