// Package logging provides centralized log level validation for bootkit.
//
// This file defines the canonical set of valid log levels used by logging
// configuration documents, forced log levels and CLI verbosity handling.
//
// SUPPORTED LOG LEVELS:
//   - DEBUG: Detailed debugging information for development and troubleshooting
//   - INFO:  General operational information about application activities
//   - WARN:  Warning conditions that should be noted but don't stop operation
//   - ERROR: Error conditions that indicate problems requiring attention
//
// All log level strings are case-sensitive and must be uppercase to maintain
// consistency with the logging system's internal level handling.
package logging

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// ValidLogLevels defines the canonical set of supported log levels.
// This map serves as the single source of truth for log level validation in
// bootstrap configs, logging documents and CLI flags.
var ValidLogLevels = map[string]bool{
	"DEBUG": true,
	"INFO":  true,
	"WARN":  true,
	"ERROR": true,
}

// IsValidLogLevel checks if the provided log level string is supported.
func IsValidLogLevel(level string) bool {
	return ValidLogLevels[level]
}

// ValidateLogLevel validates a log level string and returns an error if invalid.
func ValidateLogLevel(level string) error {
	if !IsValidLogLevel(level) {
		return fmt.Errorf("invalid log level: %s", level)
	}
	return nil
}

// parseLevel maps a level name to the charmbracelet level. Unknown names map to
// fallback so that partially specified documents still activate.
func parseLevel(level string, fallback log.Level) log.Level {
	switch level {
	case "DEBUG":
		return log.DebugLevel
	case "INFO":
		return log.InfoLevel
	case "WARN":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	default:
		return fallback
	}
}
