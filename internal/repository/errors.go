package repository

import (
	"errors"
	"fmt"
)

// Code categorizes repository errors.
type Code string

const (
	// CodeInvalidParameter: the caller supplied a malformed or unacceptable
	// type, GUID or property.
	CodeInvalidParameter Code = "INVALID_PARAMETER"

	// CodeNotFound: the referenced instance or type does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeFunctionNotSupported: the repository declines an optional
	// capability.
	CodeFunctionNotSupported Code = "FUNCTION_NOT_SUPPORTED"

	// CodeServerError: anything else.
	CodeServerError Code = "SERVER_ERROR"
)

// Error is the single error type returned across the repository boundary.
type Error struct {
	Code    Code
	Op      Operation
	Message string
	Err     error // optional cause
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NotSupported creates a function-not-supported error for op.
func NotSupported(op Operation) *Error {
	return &Error{Code: CodeFunctionNotSupported, Op: op, Message: "operation not supported by this repository"}
}

// NotFound creates a not-found error.
func NotFound(op Operation, format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

// InvalidParameter creates an invalid-parameter error.
func InvalidParameter(op Operation, format string, args ...any) *Error {
	return &Error{Code: CodeInvalidParameter, Op: op, Message: fmt.Sprintf(format, args...)}
}

// ServerError wraps an unexpected failure.
func ServerError(op Operation, err error) *Error {
	return &Error{Code: CodeServerError, Op: op, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain. Errors from
// outside the boundary classify as server errors; nil has no code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return CodeServerError
}

// IsNotSupported reports whether err is a function-not-supported error.
// Uses errors.As to handle wrapped errors.
func IsNotSupported(err error) bool {
	return err != nil && CodeOf(err) == CodeFunctionNotSupported
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return err != nil && CodeOf(err) == CodeNotFound
}

// IsInvalidParameter reports whether err is an invalid-parameter error.
func IsInvalidParameter(err error) bool {
	return err != nil && CodeOf(err) == CodeInvalidParameter
}
