package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGeometryKind is returned for geometries other than point or polygon.
	ErrInvalidGeometryKind = errors.New("unsupported geometry kind")
	// ErrInvalidGeometry is returned for malformed coordinates or rings.
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrNoActivePoint is returned when a buffer is recomputed before any point was drawn.
	ErrNoActivePoint = errors.New("no active point: draw a point first")
	// ErrInvalidRadius is returned for non-positive or non-finite radii.
	ErrInvalidRadius = errors.New("radius must be a positive number of meters")
	// ErrUnsupportedSpatialReference is returned for coordinate systems the engine cannot buffer in.
	ErrUnsupportedSpatialReference = errors.New("unsupported spatial reference")
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when the session capacity is exhausted.
	ErrTooManySessions = errors.New("too many sessions")
)

// BufferComputationError wraps a geometry engine failure.
type BufferComputationError struct {
	Radius float64
	Err    error
}

func (e *BufferComputationError) Error() string {
	return fmt.Sprintf("buffer %.2fm: %v", e.Radius, e.Err)
}

func (e *BufferComputationError) Unwrap() error { return e.Err }

// ValidRadius reports whether r is usable as a buffer radius.
func ValidRadius(r float64) bool {
	return isFinite(r) && r > 0
}
