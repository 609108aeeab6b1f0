package logging

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/concave-dev/bootkit/internal/validate"
)

//go:embed resources/default_logging_config.yaml
var defaultDocument []byte

// DefaultDocumentName identifies the built-in document in diagnostics.
const DefaultDocumentName = "<built-in default logging config>"

// DefaultDocument returns a fresh copy of the built-in logging configuration.
func DefaultDocument() Document {
	doc, err := ParseDocument(defaultDocument)
	if err != nil {
		// The embedded document is part of the build
		panic(fmt.Sprintf("logging: built-in default document is invalid: %v", err))
	}
	return doc
}

// LogfilePath computes the logfile destination and creates its directory.
//
// The directory is cliDir if set, else configuredDir if set, else the current
// working directory. The filename is configuredFilename if set, else
// "<YYYYMMDDhhmmss>_<appName>.log" based on now.
func LogfilePath(cliDir, configuredDir, configuredFilename, appName string, now time.Time) (string, error) {
	dir := cliDir
	if dir == "" {
		dir = configuredDir
	}
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = cwd
	}

	filename := configuredFilename
	if filename == "" {
		if err := validate.ValidateRequiredString(appName, "application name"); err != nil {
			return "", err
		}
		filename = fmt.Sprintf("%s_%s.log", now.Format("20060102150405"), appName)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	return filepath.Join(dir, filename), nil
}
