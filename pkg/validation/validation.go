// Package validation carries field-level input errors from services to the
// HTTP layer.
package validation

import (
	"errors"
	"strings"
)

// ErrInvalid is matched by errors.Is for every Errors value.
var ErrInvalid = errors.New("validation_failed")

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Errors is a non-empty list of field errors.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return ErrInvalid.Error()
	}
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Code)
	}
	return ErrInvalid.Error() + ": " + strings.Join(parts, ", ")
}

func (e Errors) Is(target error) bool {
	return target == ErrInvalid
}

// New returns a single-field error.
func New(field, code, message string) error {
	return Errors{{Field: field, Code: code, Message: message}}
}

// Collector accumulates field errors while validating a payload.
type Collector struct {
	errs Errors
}

func (c *Collector) Add(field, code, message string) {
	c.errs = append(c.errs, FieldError{Field: field, Code: code, Message: message})
}

// Required records a "required" error when value is blank.
func (c *Collector) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		c.Add(field, "required", field+" is required")
	}
}

// Err returns nil when nothing was collected.
func (c *Collector) Err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return c.errs
}

// As extracts the field errors from err.
func As(err error) (Errors, bool) {
	var errs Errors
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}
