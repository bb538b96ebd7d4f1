package usecases_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/samirrijal/geosketch/internal/core/domain"
)

// --- Mock GeometryEngine ---

type bufferCall struct {
	point    domain.PointGeometry
	distance float64
	unit     domain.LinearUnit
}

type mockEngine struct {
	mu       sync.Mutex
	calls    []bufferCall
	bufferFn func(ctx context.Context, p domain.PointGeometry, d float64, u domain.LinearUnit) (domain.PolygonGeometry, error)
}

func (m *mockEngine) Buffer(ctx context.Context, p domain.PointGeometry, d float64, u domain.LinearUnit) (domain.PolygonGeometry, error) {
	m.mu.Lock()
	m.calls = append(m.calls, bufferCall{p, d, u})
	m.mu.Unlock()
	if m.bufferFn != nil {
		return m.bufferFn(ctx, p, d, u)
	}
	return square(p, d/100000), nil
}

func (m *mockEngine) Calls() []bufferCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bufferCall(nil), m.calls...)
}

func square(p domain.PointGeometry, h float64) domain.PolygonGeometry {
	return domain.PolygonGeometry{
		Rings: [][]domain.Position{{
			{p.X - h, p.Y + h}, {p.X + h, p.Y + h}, {p.X + h, p.Y - h}, {p.X - h, p.Y - h}, {p.X - h, p.Y + h},
		}},
		SpatialReference: p.SpatialReference,
	}
}

// --- Mock GraphicsLayer ---

type mockLayer struct {
	mu       sync.Mutex
	graphics []domain.Graphic
	clears   int
}

func (m *mockLayer) Add(ctx context.Context, g domain.Graphic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graphics = append(m.graphics, g)
	return nil
}

func (m *mockLayer) RemoveAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graphics = nil
	m.clears++
	return nil
}

func (m *mockLayer) Graphics() []domain.Graphic {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Graphic(nil), m.graphics...)
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	events    []domain.CaptureEvent
	err       error
	publishFn func(ctx context.Context, ev *domain.CaptureEvent) error
}

func (m *mockPublisher) PublishShapeCaptured(ctx context.Context, ev *domain.CaptureEvent) error {
	m.mu.Lock()
	m.events = append(m.events, *ev)
	fn, err := m.publishFn, m.err
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, ev)
	}
	return err
}

func (m *mockPublisher) PublishLayerUpdate(ctx context.Context, sessionID string, g []domain.Graphic) error {
	return nil
}

func (m *mockPublisher) Events() []domain.CaptureEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CaptureEvent(nil), m.events...)
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("cache miss: %s", key)
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// polyline is a geometry kind the workflow does not capture.
type polyline struct {
	domain.PointGeometry
}

func (polyline) Kind() domain.GeometryKind { return domain.KindPolyline }

// --- Mock ShapeRepository ---

type mockShapeRepo struct {
	insertFn func(ctx context.Context, ev *domain.CaptureEvent) (*domain.ArchivedShape, error)
	listFn   func(ctx context.Context, sessionID string, offset, limit int) ([]domain.ArchivedShape, error)
	countFn  func(ctx context.Context, sessionID string) (int, error)
}

func (m *mockShapeRepo) Insert(ctx context.Context, ev *domain.CaptureEvent) (*domain.ArchivedShape, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, ev)
	}
	return &domain.ArchivedShape{ID: "1", SessionID: ev.SessionID, Kind: ev.Kind}, nil
}

func (m *mockShapeRepo) List(ctx context.Context, sessionID string, offset, limit int) ([]domain.ArchivedShape, error) {
	if m.listFn != nil {
		return m.listFn(ctx, sessionID, offset, limit)
	}
	return nil, nil
}

func (m *mockShapeRepo) Count(ctx context.Context, sessionID string) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, sessionID)
	}
	return 0, nil
}
