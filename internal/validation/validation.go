// Package validation defines the typed failure returned when options are
// rejected at the configuration boundary.
//
// Every failure carries a reason key that hosts map to a translated message:
//
//	err := validation.New(validation.ReasonBadNumber, "scale_increment", "must be a positive number, got %v", v)
//	if validation.Is(err, validation.ReasonBadNumber) {
//	    // keep the previous options
//	}
package validation

import (
	"errors"
	"fmt"
)

// Reason is a machine-readable rejection key.
type Reason string

const (
	ReasonBadNumber       Reason = "settings_error_bad_number"
	ReasonHotkeyDuplicate Reason = "settings_error_hotkey_duplicate"
	ReasonBadFunction     Reason = "settings_error_bad_function"
	ReasonAlwaysOn        Reason = "settings_error_always_on"
	ReasonBadTarget       Reason = "settings_error_bad_target"
	ReasonBadSnapshot     Reason = "settings_error_bad_snapshot"
)

// Error is a rejected configuration value.
type Error struct {
	Reason  Reason // Machine-readable key
	Field   string // Offending field, e.g. "bindings[3]"
	Message string // Human-readable detail
	Cause   error  // Underlying error (optional)
}

func (e *Error) Error() string {
	s := string(e.Reason)
	if e.Field != "" {
		s += ": " + e.Field
	}
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with a formatted message.
func New(reason Reason, field, format string, args ...any) *Error {
	return &Error{
		Reason:  reason,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an Error around an existing error.
func Wrap(reason Reason, field string, cause error) *Error {
	return &Error{Reason: reason, Field: field, Cause: cause}
}

// Is reports whether err has the given reason anywhere in its chain.
func Is(err error, reason Reason) bool {
	return ReasonOf(err) == reason
}

// As returns the validation failure in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ReasonOf extracts the reason key, or "" if err is not a validation failure.
func ReasonOf(err error) Reason {
	if e, ok := As(err); ok {
		return e.Reason
	}
	return ""
}
