package ports

import (
	"context"

	"github.com/samirrijal/geosketch/internal/core/domain"
)

// GeometryEngine computes derived geometries.
type GeometryEngine interface {
	// Buffer returns a polygon enclosing every location within distance of
	// the point, in the point's spatial reference.
	Buffer(ctx context.Context, point domain.PointGeometry, distance float64, unit domain.LinearUnit) (domain.PolygonGeometry, error)
}

// GraphicsLayer is a mutable set of rendered graphics.
type GraphicsLayer interface {
	Add(ctx context.Context, g domain.Graphic) error
	RemoveAll(ctx context.Context) error
	Graphics() []domain.Graphic
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishShapeCaptured(ctx context.Context, event *domain.CaptureEvent) error
	PublishLayerUpdate(ctx context.Context, sessionID string, graphics []domain.Graphic) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeShapesCaptured(ctx context.Context, handler func(ctx context.Context, event *domain.CaptureEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
