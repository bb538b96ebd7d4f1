package ports

import (
	"context"

	"github.com/samirrijal/geosketch/internal/core/domain"
)

// ShapeRepository persists captured shapes for later inspection.
type ShapeRepository interface {
	Insert(ctx context.Context, event *domain.CaptureEvent) (*domain.ArchivedShape, error)
	List(ctx context.Context, sessionID string, offset, limit int) ([]domain.ArchivedShape, error)
	Count(ctx context.Context, sessionID string) (int, error)
}
