package validation

import (
	"fmt"
	"strings"
	"time"
)

// ConfigValidator checks rules that struct tags cannot express, such as
// bounds that depend on other fields. It collects every failure rather
// than stopping at the first.
type ConfigValidator struct {
	errors []error
	name   string // config struct name for error messages
}

// NewConfigValidator creates a validator reporting under configName
func NewConfigValidator(configName string) *ConfigValidator {
	return &ConfigValidator{name: configName}
}

// RangeDuration validates that a duration is within [min, max]
func (cv *ConfigValidator) RangeDuration(field string, value, min, max time.Duration) *ConfigValidator {
	if value < min || value > max {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: duration %v is outside range [%v, %v]", cv.name, field, value, min, max))
	}
	return cv
}

// Custom applies a custom validation function
func (cv *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: %w", cv.name, field, err))
	}
	return cv
}

// When applies validations only if condition holds
func (cv *ConfigValidator) When(condition bool, validations func(*ConfigValidator)) *ConfigValidator {
	if condition {
		validations(cv)
	}
	return cv
}

// HasErrors reports whether any rule failed
func (cv *ConfigValidator) HasErrors() bool {
	return len(cv.errors) > 0
}

// Errors returns every failure in the order found
func (cv *ConfigValidator) Errors() []error {
	return cv.errors
}

// Validate returns nil, the single failure, or one error listing them all
func (cv *ConfigValidator) Validate() error {
	switch len(cv.errors) {
	case 0:
		return nil
	case 1:
		return cv.errors[0]
	}
	msgs := make([]string, len(cv.errors))
	for i, err := range cv.errors {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("%s validation failed with %d errors: %s", cv.name, len(cv.errors), strings.Join(msgs, "; "))
}
