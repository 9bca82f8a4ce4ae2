// Package apierr maps service errors onto HTTP responses.
package apierr

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is an error with an HTTP status and a machine-readable code.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(code string, err error) *Error {
	return New(http.StatusBadRequest, code, err)
}

func Unauthorized(err error) *Error {
	return New(http.StatusUnauthorized, "unauthorized", err)
}

func Forbidden(err error) *Error {
	return New(http.StatusForbidden, "forbidden", err)
}

func NotFound(err error) *Error {
	return New(http.StatusNotFound, "not_found", err)
}

// Coder is implemented by errors that carry their own status and code.
type Coder interface {
	error
	HTTPStatus() int
	ErrorCode() string
}

// APIError is the JSON shape of an error.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps APIError as {"error": {...}}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// Respond writes err as a JSON error envelope and aborts the request.
// Unclassified errors become 500 and are logged; their text is not exposed.
func Respond(c *gin.Context, err error) {
	var apiErr *Error
	var coder Coder
	switch {
	case errors.As(err, &apiErr):
		write(c, apiErr.Status, apiErr.Code, apiErr.Error())
	case errors.As(err, &coder):
		write(c, coder.HTTPStatus(), coder.ErrorCode(), coder.Error())
	default:
		slog.Error("Unhandled request error",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		write(c, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func write(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{Message: message, Code: code},
	})
}
