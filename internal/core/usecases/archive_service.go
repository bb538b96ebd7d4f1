package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samirrijal/geosketch/internal/core/domain"
	"github.com/samirrijal/geosketch/internal/core/ports"
	"github.com/samirrijal/geosketch/internal/pkg/metrics"
)

// ArchiveService stores and lists captured shapes.
type ArchiveService struct {
	shapes ports.ShapeRepository
	cache  ports.CacheService
}

// NewArchiveService creates a new ArchiveService. cache may be nil.
func NewArchiveService(shapes ports.ShapeRepository, cache ports.CacheService) *ArchiveService {
	return &ArchiveService{shapes: shapes, cache: cache}
}

// Record persists a capture event.
func (s *ArchiveService) Record(ctx context.Context, event *domain.CaptureEvent) (*domain.ArchivedShape, error) {
	switch {
	case event.Kind == domain.KindPoint && event.Point != nil:
	case event.Kind == domain.KindPolygon && event.Polygon != nil:
	default:
		return nil, fmt.Errorf("%w: capture event of kind %q", domain.ErrInvalidGeometryKind, event.Kind)
	}
	if event.SessionID == "" {
		return nil, fmt.Errorf("capture event without session id")
	}

	shape, err := s.shapes.Insert(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("insert shape: %w", err)
	}
	metrics.ShapesArchived.WithLabelValues(string(event.Kind)).Inc()
	return shape, nil
}

type archivePage struct {
	Shapes []domain.ArchivedShape `json:"shapes"`
	Total  int                    `json:"total"`
}

// List returns a page of archived shapes, newest first. An empty sessionID lists all sessions.
func (s *ArchiveService) List(ctx context.Context, sessionID string, offset, limit int) ([]domain.ArchivedShape, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	// Try cache
	cacheKey := fmt.Sprintf("archive:%s:%d:%d", sessionID, offset, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var page archivePage
			if err := json.Unmarshal(data, &page); err == nil {
				metrics.CacheHits.WithLabelValues("archive").Inc()
				return page.Shapes, page.Total, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("archive").Inc()
	}

	shapes, err := s.shapes.List(ctx, sessionID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.shapes.Count(ctx, sessionID)
	if err != nil {
		return nil, 0, err
	}

	// Cache for 1 minute
	if s.cache != nil {
		if data, err := json.Marshal(archivePage{Shapes: shapes, Total: total}); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 60)
		}
	}

	return shapes, total, nil
}
