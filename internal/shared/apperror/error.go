package apperror

import (
	"errors"
	"fmt"
)

type AppError struct {
	Code       string // machine-readable code (e.g. INVALID_INPUT)
	Message    string // user-facing message
	HTTPStatus int
	Err        error // wrapped cause, optional
}

// Error appends the cause only when it is a foreign error; a wrapped
// sentinel's message is already part of Message.
func (e *AppError) Error() string {
	var inner *AppError
	if e.Err != nil && !errors.As(e.Err, &inner) {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap attaches an AppError envelope to an existing error so errors.Is/As
// still reach the cause.
func Wrap(err error, code, message string, httpStatus int) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Withf copies e with a formatted detail appended to the message. The copy
// wraps e, so sentinel comparisons via errors.Is keep working.
func Withf(e *AppError, format string, args ...any) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    fmt.Sprintf("%s: %s", e.Message, fmt.Sprintf(format, args...)),
		HTTPStatus: e.HTTPStatus,
		Err:        e,
	}
}
