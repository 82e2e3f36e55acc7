package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"apicourse/internal/apperr"
	"apicourse/internal/auth"
	"apicourse/internal/http/middleware"
	"apicourse/internal/repository"
	"apicourse/internal/service"
	"apicourse/internal/storage"
	"apicourse/internal/tasks"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details []apperr.Detail `json:"details,omitempty"`
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string, details ...apperr.Detail) error {
	res := errorPayload{
		RequestID: middleware.RequestIDFrom(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
	return c.Status(status).JSON(res)
}

// fiberCodes names the statuses fiber itself raises.
var fiberCodes = map[int][2]string{
	fiber.StatusBadRequest:            {"BAD_REQUEST", "bad request"},
	fiber.StatusUnauthorized:          {"UNAUTHORIZED", "not authenticated"},
	fiber.StatusForbidden:             {"FORBIDDEN", "forbidden"},
	fiber.StatusNotFound:              {"NOT_FOUND", "resource not found"},
	fiber.StatusMethodNotAllowed:      {"METHOD_NOT_ALLOWED", "method not allowed"},
	fiber.StatusRequestTimeout:        {"REQUEST_TIMEOUT", "request timeout"},
	fiber.StatusRequestEntityTooLarge: {"PAYLOAD_TOO_LARGE", "request entity too large"},
	fiber.StatusUnprocessableEntity:   {"UNPROCESSABLE_ENTITY", "unprocessable entity"},
	fiber.StatusTooManyRequests:       {"RATE_LIMIT_EXCEEDED", "too many requests"},
	fiber.StatusServiceUnavailable:    {"SERVICE_UNAVAILABLE", "service unavailable"},
}

// sentinels maps the errors services and repositories return to responses.
var sentinels = []struct {
	err error
	app *apperr.Error
}{
	{sql.ErrNoRows, apperr.New(http.StatusNotFound, "NOT_FOUND", "resource not found")},
	{service.ErrNotFound, apperr.New(http.StatusNotFound, "FILE_NOT_FOUND", "file not found")},
	{service.ErrIDRequired, apperr.BadRequest("INVALID_ID", "id is required")},
	{service.ErrUserNotFound, apperr.New(http.StatusNotFound, "USER_NOT_FOUND", "user not found")},
	{service.ErrPostNotFound, apperr.New(http.StatusNotFound, "POST_NOT_FOUND", "post not found")},
	{service.ErrTagNotFound, apperr.New(http.StatusNotFound, "TAG_NOT_FOUND", "tag not found")},
	{service.ErrAPIKeyNotFound, apperr.New(http.StatusNotFound, "API_KEY_NOT_FOUND", "api key not found")},
	{service.ErrEmailTaken, apperr.BadRequest("EMAIL_REGISTERED", "email already registered")},
	{service.ErrTagExists, apperr.BadRequest("TAG_EXISTS", "tag already exists")},
	{service.ErrAlreadyTagged, apperr.BadRequest("ALREADY_TAGGED", "post already has this tag")},
	{service.ErrInactiveUser, apperr.BadRequest("INACTIVE_USER", "inactive user")},
	{service.ErrStorageDisabled, apperr.New(http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "object storage is not configured")},
	{repository.ErrNotFound, apperr.New(http.StatusNotFound, "NOT_FOUND", "resource not found")},
	{repository.ErrDuplicate, apperr.Conflict("DUPLICATE_RESOURCE", "resource already exists")},
	{auth.ErrInvalidCredentials, apperr.Unauthorized("incorrect email or password")},
	{auth.ErrExpiredToken, apperr.Unauthorized("token has expired")},
	{auth.ErrRevokedToken, apperr.Unauthorized("token has been revoked")},
	{auth.ErrWrongTokenType, apperr.Unauthorized("invalid token type")},
	{auth.ErrInvalidToken, apperr.Unauthorized("could not validate credentials")},
	{tasks.ErrNotFound, apperr.New(http.StatusNotFound, "TASK_NOT_FOUND", "task not found")},
	{tasks.ErrRunning, apperr.Conflict("TASK_RUNNING", "cannot cancel running task")},
	{tasks.ErrQueueFull, apperr.New(http.StatusServiceUnavailable, "QUEUE_FULL", "task queue is full, try again later")},
	{tasks.ErrClosed, apperr.New(http.StatusServiceUnavailable, "SHUTTING_DOWN", "server is shutting down")},
	{storage.ErrObjectNotFound, apperr.New(http.StatusNotFound, "FILE_NOT_FOUND", "file not found")},
}

var errInternal = apperr.New(http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")

// toAppError resolves err into the response it should produce.
func toAppError(err error) *apperr.Error {
	if e, ok := apperr.As(err); ok {
		return e
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		if m, ok := fiberCodes[fe.Code]; ok {
			return apperr.New(fe.Code, m[0], m[1])
		}
		if fe.Code >= http.StatusBadRequest && fe.Code < http.StatusInternalServerError {
			return apperr.New(fe.Code, "BAD_REQUEST", fe.Message)
		}
		return apperr.New(fe.Code, errInternal.Code, errInternal.Message)
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.app
		}
	}
	return errInternal
}

// fail renders err. Server errors are logged with their cause; the client only sees the code.
func fail(c *fiber.Ctx, err error) error {
	e := toAppError(err)
	if e.Status >= http.StatusInternalServerError {
		zerolog.Ctx(c.UserContext()).Error().
			Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", e.Status).
			Msg("request failed")
	}
	for k, v := range e.Headers {
		c.Set(k, v)
	}
	return writeError(c, e.Status, e.Code, e.Message, e.Details...)
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return fail
}
