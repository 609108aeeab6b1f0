// Package utils provides common utility functions for bootkit.
//
// This file implements run identifier generation. Every application start gets
// a fresh identifier so that log lines of one run can be correlated across the
// console and log files.
package utils

import (
	"github.com/google/uuid"
)

// ShortIDLength is the length of a truncated identifier, similar to Docker short IDs.
const ShortIDLength = 12

// GenerateRunID creates a unique identifier for one application run.
//
// Returns format: "0b9f3d3c-6f5a-4a43-9d3e-2f2f8c0f6c1e" (random UUID v4)
func GenerateRunID() string {
	return uuid.NewString()
}

// TruncateID returns the first ShortIDLength characters of an identifier,
// ignoring the hyphens of UUID formatted values. Shorter identifiers are
// returned unchanged.
func TruncateID(id string) string {
	compact := make([]byte, 0, len(id))
	for i := 0; i < len(id); i++ {
		if id[i] != '-' {
			compact = append(compact, id[i])
		}
	}
	if len(compact) <= ShortIDLength {
		return string(compact)
	}
	return string(compact[:ShortIDLength])
}
