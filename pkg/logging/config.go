package logging

import (
	"fmt"
	"sort"

	"github.com/concave-dev/bootkit/internal/validate"
)

// Handler classes understood by Activate.
const (
	ClassStream = "stream" // writes to stdout or stderr
	ClassFile   = "file"   // writes to a file, see HandlerConfig.Filename
	ClassNull   = "null"   // discards everything
)

// ConfigType records which kind of logging configuration got activated.
type ConfigType int

const (
	ConfigTypeNone ConfigType = iota
	ConfigTypeDefault
	ConfigTypeCustom
)

func (t ConfigType) String() string {
	switch t {
	case ConfigTypeDefault:
		return "DEFAULT"
	case ConfigTypeCustom:
		return "CUSTOM"
	default:
		return "NONE"
	}
}

// Config is the typed form of a logging configuration document.
type Config struct {
	Version    int                        `mapstructure:"version"`
	Formatters map[string]FormatterConfig `mapstructure:"formatters" validate:"dive"`
	Handlers   map[string]HandlerConfig   `mapstructure:"handlers" validate:"dive"`
	Loggers    map[string]LoggerConfig    `mapstructure:"loggers" validate:"dive"`
	Root       LoggerConfig               `mapstructure:"root"`
}

// FormatterConfig selects the output encoding of a handler.
type FormatterConfig struct {
	Format          string `mapstructure:"format" validate:"omitempty,oneof=text json logfmt"`
	TimeFormat      string `mapstructure:"time_format"`
	ReportTimestamp *bool  `mapstructure:"report_timestamp"`
	ReportCaller    bool   `mapstructure:"report_caller"`
}

// HandlerConfig describes one output destination.
type HandlerConfig struct {
	Class     string `mapstructure:"class" validate:"required,oneof=stream file null"`
	Level     string `mapstructure:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR"`
	Formatter string `mapstructure:"formatter"`
	Stream    string `mapstructure:"stream" validate:"omitempty,oneof=stdout stderr"`
	Filename  string `mapstructure:"filename" validate:"required_if=Class file"`
	Mode      string `mapstructure:"mode" validate:"omitempty,oneof=append truncate"`
}

// LoggerConfig describes a named logger or the root logger.
type LoggerConfig struct {
	Level     string   `mapstructure:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR"`
	Handlers  []string `mapstructure:"handlers"`
	Propagate *bool    `mapstructure:"propagate"`
}

// Validate checks field values and cross references between handlers,
// formatters and loggers.
func (c *Config) Validate() error {
	if err := validate.ValidateStruct(c); err != nil {
		return err
	}

	for _, name := range sortedKeys(c.Handlers) {
		h := c.Handlers[name]
		if h.Formatter == "" {
			continue
		}
		if _, ok := c.Formatters[h.Formatter]; !ok {
			return fmt.Errorf("handler '%s' references unknown formatter '%s'", name, h.Formatter)
		}
	}

	check := func(owner string, lc LoggerConfig) error {
		for _, h := range lc.Handlers {
			if _, ok := c.Handlers[h]; !ok {
				return fmt.Errorf("logger '%s' references unknown handler '%s'", owner, h)
			}
		}
		return nil
	}

	if err := check("root", c.Root); err != nil {
		return err
	}
	for _, name := range sortedKeys(c.Loggers) {
		if name == "" {
			return fmt.Errorf("logger names cannot be empty, use the root section instead")
		}
		if err := check(name, c.Loggers[name]); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
