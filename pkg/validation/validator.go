// Package validation checks externally supplied structures (configuration
// files, fixture graphs, query parameters) before they reach the engine.
package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxLabelLength = 50
	MaxPropertyKey = 100

	// Regular expressions
	labelPattern   = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	propKeyPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

func init() {
	validate = validator.New()
}

// Struct validates v using its `validate` struct tags
func Struct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateLabel validates a vertex label or relationship type name
func ValidateLabel(label string) error {
	if label == "" {
		return errors.New("label cannot be empty")
	}
	if len(label) > MaxLabelLength {
		return fmt.Errorf("label '%s' exceeds maximum length of %d characters", label, MaxLabelLength)
	}
	if !labelPattern.MatchString(label) {
		return fmt.Errorf("label '%s' contains invalid characters (only alphanumeric and underscore allowed)", label)
	}
	return nil
}

// ValidatePropertyKey validates a property key
func ValidatePropertyKey(key string) error {
	if key == "" {
		return errors.New("property key cannot be empty")
	}
	if len(key) > MaxPropertyKey {
		return fmt.Errorf("property key '%s' exceeds maximum length of %d characters", key, MaxPropertyKey)
	}
	if !propKeyPattern.MatchString(key) {
		return fmt.Errorf("property key '%s' is invalid (must start with letter or underscore, followed by alphanumeric or underscore)", key)
	}
	return nil
}

// ValidateParameters checks query parameter names
func ValidateParameters(params map[string]any) error {
	for name := range params {
		if !propKeyPattern.MatchString(name) {
			return fmt.Errorf("parameter name '%s' is invalid", name)
		}
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Namespace()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
