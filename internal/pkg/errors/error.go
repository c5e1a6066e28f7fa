package errors

import (
	"errors"
	"fmt"
)

// AppError carries a business error code alongside the message shown to
// clients. The code decides the HTTP status at the response boundary.
type AppError struct {
	Code    int
	Message string
	Err     error  // wrapped cause, if any
	Details string // caller-supplied context, e.g. the offending id
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status mapped to this error's code.
func (e *AppError) HTTPStatus() int {
	return GetHTTPStatus(e.Code)
}

// New creates an AppError for the given code. An optional single detail
// string adds context to the canonical code message.
func New(code int, details ...string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Code:    code,
		Message: GetMessage(code),
		Details: detail,
	}
}

// Wrap attaches a code to an existing error. An error that already is an
// AppError keeps its code; only its details are updated.
func Wrap(err error, code int, details ...string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if len(details) > 0 && details[0] != "" {
			appErr.Details = details[0]
		}
		return appErr
	}

	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}

	return &AppError{
		Code:    code,
		Message: GetMessage(code),
		Err:     err,
		Details: detail,
	}
}

// Is reports whether err is an AppError carrying the given code.
func Is(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// ExtractCode returns the error's business code, or ErrInternalServer for
// errors that never got one.
func ExtractCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternalServer
}

// GetDetails returns the most specific detail text available for err.
func GetDetails(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Details != "" {
			return appErr.Details
		}
		if appErr.Err != nil {
			return appErr.Err.Error()
		}
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
