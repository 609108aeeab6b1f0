package validate

import (
	"fmt"
	"time"
)

// ValidateRequiredString validates that a string field is not empty.
// Uses the validator library for consistent error handling across config validation.
func ValidateRequiredString(value, fieldName string) error {
	if err := ValidateField(value, "required"); err != nil {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

// ValidateNonNegativeDuration validates that a duration is zero or positive.
// A zero duration is a valid "no wait" setting for loops driven by delays.
func ValidateNonNegativeDuration(d time.Duration, name string) error {
	if d < 0 {
		return fmt.Errorf("%s cannot be negative, got: %s", name, d)
	}
	return nil
}
