package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is an operational error: it carries a user-facing message and an
// HTTP status class. 4xx errors render with status "fail", everything
// else with status "error".
type Error struct {
	Code        int
	Status      string
	Message     string
	Operational bool
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(code int, format string, args ...any) *Error {
	status := "error"
	if code >= 400 && code < 500 {
		status = "fail"
	}
	return &Error{
		Code:        code,
		Status:      status,
		Message:     fmt.Sprintf(format, args...),
		Operational: true,
	}
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, format, args...)
}

func BadRequest(format string, args ...any) *Error {
	return New(http.StatusBadRequest, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return New(http.StatusUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return New(http.StatusForbidden, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(http.StatusConflict, format, args...)
}

// Internal wraps an unexpected error. It is not operational: production
// responses hide its message behind a generic one.
func Internal(err error) *Error {
	return &Error{
		Code:    http.StatusInternalServerError,
		Status:  "error",
		Message: "something went wrong",
		Err:     err,
	}
}

// From normalizes any error into *Error.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// Abort records err on the gin context for the rendering middleware and
// stops the handler chain.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
