package bootstrap

import (
	"fmt"
	"io"
	"os"

	"github.com/concave-dev/bootkit/internal/validate"
	"github.com/concave-dev/bootkit/pkg/configfile"
	"github.com/concave-dev/bootkit/pkg/logging"
)

// Config holds every tunable of an application. Start from DefaultConfig and
// adjust fields before passing it to New; the Application keeps its own copy.
type Config struct {
	// Identity
	ApplicationName string `validate:"required"`
	Version         string `validate:"required"`

	// Logging initialization. An empty LoggingDefaultConfigFilepath selects
	// the built-in document.
	LoggingForceLogLevel         string
	CustomLoggingEnabled         bool
	DefaultLoggingEnabled        bool
	LoggingConfigFilepath        string
	LoggingConfigSearchPaths     []string
	LoggingConfigSearchFilenames []string
	LoggingDefaultConfigFilepath string
	LoggingLogfileOutputDir      string
	LoggingLogfileFilename       string

	// Application config initialization
	ApplicationConfigEnabled         bool
	ApplicationConfigSchemaFilepath  string
	ApplicationConfigFilepath        string
	ApplicationConfigSearchPaths     []string
	ApplicationConfigSearchFilenames []string

	// Interactive shell for applications with subcommands
	ShellEnabled bool

	// Destinations for help, version and shell output
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultConfig returns the configuration used when nothing is customized:
// custom logging with fallback to the built-in logging configuration, and a
// required application config searched in the working and home directories.
func DefaultConfig(name, version string) Config {
	searchPaths := configfile.DefaultSearchPaths()
	return Config{
		ApplicationName: name,
		Version:         version,

		CustomLoggingEnabled:     true,
		DefaultLoggingEnabled:    true,
		LoggingConfigSearchPaths: append([]string(nil), searchPaths...),
		LoggingConfigSearchFilenames: []string{
			"logging.yaml",
			"logging.yml",
			name + "_logging.yaml",
			name + "_logging.yml",
		},

		ApplicationConfigEnabled:     true,
		ApplicationConfigSearchPaths: append([]string(nil), searchPaths...),
		ApplicationConfigSearchFilenames: []string{
			name + "_config.json",
			"." + name + "_config.json",
		},

		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Validate checks field values before the application is constructed.
func (c *Config) Validate() error {
	if err := validate.ValidateStruct(c); err != nil {
		return err
	}
	if err := validate.CommandNameFormat(c.ApplicationName); err != nil {
		return fmt.Errorf("invalid application name: %w", err)
	}
	if c.LoggingForceLogLevel != "" {
		if err := logging.ValidateLogLevel(c.LoggingForceLogLevel); err != nil {
			return err
		}
	}
	return nil
}

// clone copies c so that later changes to the caller's slices have no effect.
func (c Config) clone() Config {
	c.LoggingConfigSearchPaths = append([]string(nil), c.LoggingConfigSearchPaths...)
	c.LoggingConfigSearchFilenames = append([]string(nil), c.LoggingConfigSearchFilenames...)
	c.ApplicationConfigSearchPaths = append([]string(nil), c.ApplicationConfigSearchPaths...)
	c.ApplicationConfigSearchFilenames = append([]string(nil), c.ApplicationConfigSearchFilenames...)
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	return c
}
