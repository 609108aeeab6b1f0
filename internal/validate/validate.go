// Package validate provides input validation utilities for bootkit applications,
// keeping configuration and command definitions consistent before any stage of
// the bootstrap pipeline consumes them.
//
// All struct and field validation is delegated to the go-playground/validator
// library so that configuration types can declare their rules as struct tags.
//
// VALIDATION COVERAGE:
//   - Structs: tag-driven validation with readable, field-oriented messages
//   - Fields: ad-hoc validation of single values against a tag expression
//   - Command names: single-token format for command tree nodes
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// Global validator instance using built-in validations
	validate *validator.Validate
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

// ValidateStruct validates a struct against its `validate` tags and flattens the
// validator's field errors into a single readable error.
//
// Example output: "invalid ApplicationName: failed 'required' check; invalid
// LoggingForceLogLevel: failed 'oneof' check (DEBUG INFO WARN ERROR)"
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := fmt.Sprintf("invalid %s: failed '%s' check", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s)", fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, "; "))
}

// ValidateField validates individual values against specified validation rules using
// the go-playground/validator library. Useful for values that do not live in a
// struct, such as a single flag or a list of search directories.
//
// Example: ValidateField([]string{"/etc", ""}, "dive,required")
func ValidateField(value interface{}, tag string) error {
	return validate.Var(value, tag)
}
