// Package apperr defines the typed errors handlers return and the global
// error handler renders.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Detail describes one problem inside an error, usually tied to a field.
type Detail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Value   any    `json:"value,omitempty"`
}

// Error is an HTTP-aware application error.
type Error struct {
	Status  int
	Code    string
	Message string
	Details []Detail
	Headers map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetails returns a copy of e with details appended.
func (e *Error) WithDetails(d ...Detail) *Error {
	out := *e
	out.Details = append(append([]Detail(nil), e.Details...), d...)
	return &out
}

// WithHeader returns a copy of e that sets a response header when rendered.
func (e *Error) WithHeader(key, value string) *Error {
	out := *e
	out.Headers = make(map[string]string, len(e.Headers)+1)
	for k, v := range e.Headers {
		out.Headers[k] = v
	}
	out.Headers[key] = value
	return &out
}

// Wrap returns a copy of e carrying cause. The cause is never rendered.
func (e *Error) Wrap(cause error) *Error {
	out := *e
	out.Err = cause
	return &out
}

// New builds an error with an explicit status and code.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// NotFound reports a missing resource, e.g. NotFound("user", 7) yields USER_NOT_FOUND.
func NotFound(resource string, id any) *Error {
	return &Error{
		Status:  http.StatusNotFound,
		Code:    codeFor(resource) + "_NOT_FOUND",
		Message: fmt.Sprintf("%s with id %v not found", resource, id),
	}
}

// Forbidden reports a missing permission.
func Forbidden(required string) *Error {
	return &Error{
		Status:  http.StatusForbidden,
		Code:    "INSUFFICIENT_PERMISSIONS",
		Message: fmt.Sprintf("insufficient permissions, required: %s", required),
	}
}

// Duplicate reports a uniqueness conflict.
func Duplicate(resource, field string, value any) *Error {
	return &Error{
		Status:  http.StatusConflict,
		Code:    "DUPLICATE_RESOURCE",
		Message: fmt.Sprintf("%s with %s '%v' already exists", resource, field, value),
		Details: []Detail{{Field: field, Message: "value already in use", Code: "duplicate", Value: value}},
	}
}

// BusinessRule reports a request that is well formed but violates a domain rule.
func BusinessRule(message string, details ...Detail) *Error {
	return &Error{
		Status:  http.StatusUnprocessableEntity,
		Code:    "BUSINESS_LOGIC_ERROR",
		Message: message,
		Details: details,
	}
}

// External reports a failing upstream dependency.
func External(service string, cause error) *Error {
	return &Error{
		Status:  http.StatusServiceUnavailable,
		Code:    "EXTERNAL_SERVICE_ERROR",
		Message: fmt.Sprintf("external service '%s' is unavailable", service),
		Err:     cause,
	}
}

// Validation reports request fields that failed validation.
func Validation(details ...Detail) *Error {
	return &Error{
		Status:  http.StatusUnprocessableEntity,
		Code:    "VALIDATION_ERROR",
		Message: "request validation failed",
		Details: details,
	}
}

// Unauthorized reports missing or invalid credentials.
func Unauthorized(message string) *Error {
	return &Error{
		Status:  http.StatusUnauthorized,
		Code:    "UNAUTHORIZED",
		Message: message,
		Headers: map[string]string{"WWW-Authenticate": "Bearer"},
	}
}

// BadRequest reports a malformed request.
func BadRequest(code, message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: code, Message: message}
}

// Conflict reports a request that clashes with the current resource state.
func Conflict(code, message string) *Error {
	return &Error{Status: http.StatusConflict, Code: code, Message: message}
}

// RateLimited reports an exhausted request budget.
func RateLimited(limit int, period time.Duration, retryAfter time.Duration) *Error {
	secs := int(retryAfter.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return &Error{
		Status:  http.StatusTooManyRequests,
		Code:    "RATE_LIMIT_EXCEEDED",
		Message: fmt.Sprintf("rate limit exceeded: %d requests per %s", limit, period),
		Headers: map[string]string{"Retry-After": fmt.Sprint(secs)},
	}
}

func codeFor(resource string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(resource), " ", "_"))
}
