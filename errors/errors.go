// Package errors provides the coded error types shared by the capture
// packages.
//
// Errors fall into two tiers. Hard errors abort a capture: the pipeline moves
// to its Failed state and no artifact is delivered. Soft errors come from
// cosmetic steps such as diagram pre-conversion; they are logged and the
// capture carries on.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidBitmap, "bitmap is %dx%d", w, h)
//	if errors.Is(err, errors.ErrCodeInvalidBitmap) {
//	    // reject the input
//	}
//
//	// Demote a cosmetic failure
//	err = errors.Soft(errors.Wrap(errors.ErrCodeNormalization, cause, "svg conversion"))
//	if errors.IsSoft(err) {
//	    logger.Warn("continuing without diagram conversion", "err", err)
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the capture pipeline.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidBitmap Code = "INVALID_BITMAP"

	// Layout errors. A layout overflow never leaves the layout package: the
	// engine always resolves it by switching strategy.
	ErrCodeLayoutOverflow Code = "LAYOUT_OVERFLOW"

	// Critical-path failures
	ErrCodeRasterization Code = "RASTERIZATION_FAILED"
	ErrCodeConversion    Code = "CONVERSION_FAILED"
	ErrCodeEncoding      Code = "ENCODING_FAILED"
	ErrCodeDispatch      Code = "DISPATCH_FAILED"

	// Cosmetic failures
	ErrCodeNormalization Code = "NORMALIZATION_FAILED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// SoftError marks a failure of a cosmetic step. Callers log it and keep
// going; it must never abort a capture.
type SoftError struct{ Err error }

// Soft wraps err as a SoftError. Soft(nil) returns nil.
func Soft(err error) error {
	if err == nil {
		return nil
	}
	return &SoftError{Err: err}
}

// Error returns the error message of the wrapped error.
func (e *SoftError) Error() string { return e.Err.Error() }

// Unwrap returns the wrapped error.
func (e *SoftError) Unwrap() error { return e.Err }

// IsSoft reports whether err is, or wraps, a SoftError.
func IsSoft(err error) bool {
	var se *SoftError
	return errors.As(err, &se)
}
