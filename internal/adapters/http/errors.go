package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geosketch/internal/core/domain"
)

var errArchiveUnavailable = errors.New("archive not available")

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, no_active_point, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, 503, "unavailable", msg)
}

// errFromDomain maps domain errors to API errors. Sentinels are checked
// before *BufferComputationError so a wrapped input error stays a 4xx.
func errFromDomain(c *fiber.Ctx, err error) error {
	var bufErr *domain.BufferComputationError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrNoActivePoint):
		return newError(c, 409, "no_active_point", err.Error())
	case errors.Is(err, domain.ErrInvalidGeometryKind):
		return newError(c, 422, "invalid_geometry_kind", err.Error())
	case errors.Is(err, domain.ErrInvalidGeometry),
		errors.Is(err, domain.ErrInvalidRadius),
		errors.Is(err, domain.ErrUnsupportedSpatialReference):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrTooManySessions):
		return newError(c, 503, "too_many_sessions", err.Error())
	case errors.As(err, &bufErr):
		return newError(c, 502, "buffer_failed", err.Error())
	}
	return errInternal(c, err.Error())
}
