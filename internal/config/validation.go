package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Lines renders one "  - FIELD: message" line per error, used when refusing to start.
func (ve ValidationErrors) Lines() []string {
	lines := make([]string, 0, len(ve))
	for _, err := range ve {
		lines = append(lines, "  - "+err.Error())
	}
	return lines
}

// validateRequired records an error when value is blank.
func validateRequired(errs *ValidationErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, fmt.Sprintf("%s is required", field))
	}
}

// validateURL records an error unless value is an absolute http(s) URL.
func validateURL(errs *ValidationErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, fmt.Sprintf("%s is required", field))
		return
	}
	u, err := url.Parse(value)
	if err != nil || !u.IsAbs() || u.Host == "" {
		errs.Add(field, fmt.Sprintf("%s must be a valid URL", field), value)
	}
}

// validateOneOf checks if a value is in a list of allowed values
func validateOneOf(errs *ValidationErrors, field, value string, allowed []string) {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return
		}
	}
	errs.Add(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")), value)
}

// parsePositiveInt parses raw as an integer greater than zero, falling back to def when raw is empty.
func parsePositiveInt(errs *ValidationErrors, field, raw string, def int) int {
	if strings.TrimSpace(raw) == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		errs.Add(field, "must be a number", raw)
		return def
	}
	if n <= 0 {
		errs.Add(field, "must be greater than zero", raw)
		return def
	}
	return n
}
