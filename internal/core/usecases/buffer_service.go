package usecases

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/geosketch/internal/core/domain"
	"github.com/samirrijal/geosketch/internal/core/ports"
	"github.com/samirrijal/geosketch/internal/pkg/metrics"
	"github.com/samirrijal/geosketch/internal/pkg/telemetry"
)

// BufferComputer computes point buffers in meters.
type BufferComputer interface {
	ComputeBuffer(ctx context.Context, point domain.PointGeometry, radiusMeters float64) (domain.PolygonGeometry, error)
}

// BufferService computes point buffers through the geometry engine.
type BufferService struct {
	engine ports.GeometryEngine
	cache  ports.CacheService
}

// NewBufferService creates a new BufferService. cache may be nil.
func NewBufferService(engine ports.GeometryEngine, cache ports.CacheService) *BufferService {
	return &BufferService{engine: engine, cache: cache}
}

// ComputeBuffer returns the polygon covering everything within radiusMeters
// of point. Engine failures are wrapped in *domain.BufferComputationError.
func (s *BufferService) ComputeBuffer(ctx context.Context, point domain.PointGeometry, radiusMeters float64) (domain.PolygonGeometry, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "BufferService.ComputeBuffer")
	defer span.End()
	span.SetAttributes(attribute.Float64("buffer.radius_m", radiusMeters))

	if !domain.ValidRadius(radiusMeters) {
		return domain.PolygonGeometry{}, domain.ErrInvalidRadius
	}

	// Try cache
	cacheKey := bufferCacheKey(point, radiusMeters)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var poly domain.PolygonGeometry
			if err := json.Unmarshal(data, &poly); err == nil {
				metrics.CacheHits.WithLabelValues("buffer").Inc()
				return poly, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("buffer").Inc()
	}

	start := time.Now()
	poly, err := s.engine.Buffer(ctx, point, radiusMeters, domain.UnitMeters)
	metrics.BufferDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BufferErrors.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "buffer failed")
		return domain.PolygonGeometry{}, &domain.BufferComputationError{Radius: radiusMeters, Err: err}
	}
	metrics.BuffersComputed.Inc()

	// Cache for 1 hour
	if s.cache != nil {
		if data, err := json.Marshal(poly); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 3600)
		}
	}

	return poly, nil
}

// bufferCacheKey uses the shortest exact float formatting so distinct inputs never share a key.
func bufferCacheKey(point domain.PointGeometry, radiusMeters float64) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return "buffer:" + strconv.Itoa(point.SpatialReference.Normalized().WKID) +
		":" + f(point.X) + ":" + f(point.Y) + ":" + f(radiusMeters)
}
