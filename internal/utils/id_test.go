package utils

import (
	"testing"

	"github.com/google/uuid"
)

// TestGenerateRunID tests that run identifiers are valid and unique
func TestGenerateRunID(t *testing.T) {
	first := GenerateRunID()
	second := GenerateRunID()

	if _, err := uuid.Parse(first); err != nil {
		t.Errorf("Expected valid UUID, got %q: %v", first, err)
	}
	if first == second {
		t.Errorf("Expected unique run IDs, got %q twice", first)
	}
}

// TestTruncateID tests TruncateID function
func TestTruncateID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "uuid", input: "0b9f3d3c-6f5a-4a43-9d3e-2f2f8c0f6c1e", expected: "0b9f3d3c6f5a"},
		{name: "short id", input: "abc", expected: "abc"},
		{name: "exact length", input: "a1b2c3d4e5f6", expected: "a1b2c3d4e5f6"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateID(tt.input); got != tt.expected {
				t.Errorf("TruncateID(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}
