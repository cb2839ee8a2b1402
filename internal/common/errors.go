package common

import "errors"

// AppError carries a machine-readable code and the HTTP status the handler
// layer should respond with. Service methods return it directly; handlers only
// translate, never decide.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the wrapped cause to errors.Is/As.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError reports whether err is, or wraps, an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// ErrorCode extracts the code from an AppError chain, or "" when none.
func ErrorCode(err error) string {
	var target *AppError
	if errors.As(err, &target) {
		return target.Code
	}
	return ""
}
