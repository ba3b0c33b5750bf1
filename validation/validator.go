package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kbukum/workerbridge/errors"
)

// FieldError is one failing field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator collects field errors.
type Validator struct {
	errors []FieldError
}

// New creates an empty Validator.
func New() *Validator {
	return &Validator{}
}

// AddError records a failing field.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any check failed.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns the collected field errors.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Err returns an INVALID_INPUT AppError listing every failure, or nil.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	messages := make([]string, len(v.errors))
	for i, e := range v.errors {
		messages[i] = e.Field + ": " + e.Message
	}
	return errors.Validation(strings.Join(messages, "; ")).WithDetail("fields", v.errors)
}

// Check records message for field when cond is false.
func (v *Validator) Check(cond bool, field, message string) *Validator {
	if !cond {
		v.AddError(field, message)
	}
	return v
}

// Required checks that value is not blank.
func (v *Validator) Required(field, value string) *Validator {
	return v.Check(strings.TrimSpace(value) != "", field, "is required")
}

// Pattern checks value against a regular expression.
func (v *Validator) Pattern(field, value, pattern string) *Validator {
	re, err := regexp.Compile(pattern)
	if err != nil {
		v.AddError(field, "has an invalid pattern")
		return v
	}
	return v.Check(re.MatchString(value), field, "has an invalid format")
}

// OneOf checks that value is in allowed.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.AddError(field, "must be one of: "+strings.Join(allowed, ", "))
	return v
}

// Range checks that value is within [lo, hi].
func (v *Validator) Range(field string, value, lo, hi int) *Validator {
	return v.Check(value >= lo && value <= hi, field, fmt.Sprintf("must be between %d and %d", lo, hi))
}
