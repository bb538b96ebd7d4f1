package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/geosketch/internal/core/domain"
	"github.com/samirrijal/geosketch/internal/core/ports"
	"github.com/samirrijal/geosketch/internal/pkg/debounce"
	"github.com/samirrijal/geosketch/internal/pkg/metrics"
	"github.com/samirrijal/geosketch/internal/pkg/telemetry"
)

// Defaults for a new workflow.
const (
	DefaultRadiusMeters = 1000.0
	DefaultDebounceWait = 500 * time.Millisecond
)

// WorkflowConfig configures a SketchWorkflow.
type WorkflowConfig struct {
	Radius       float64
	DebounceWait time.Duration
	Clock        clock.Clock // nil uses the wall clock
}

type drawRequest struct {
	geometry domain.Geometry
	color    domain.Color
}

// draw outcomes reported to metrics
const (
	outcomeRecorded  = "recorded"
	outcomeDuplicate = "duplicate"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

// SketchWorkflow turns completed sketches into point and polygon records for
// one session, renders them, and keeps the buffer of the active point up to
// date with the radius.
type SketchWorkflow struct {
	id        string
	buffers   BufferComputer
	layer     ports.GraphicsLayer
	publisher ports.EventPublisher
	log       *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	debouncer *debounce.Debouncer[drawRequest]

	mu          sync.Mutex
	radius      float64
	points      []domain.Point
	polygons    []domain.Polygon
	activePoint *domain.PointGeometry
	activeColor domain.Color
	pointDrawn  bool
}

// NewSketchWorkflow creates a workflow. publisher may be nil.
func NewSketchWorkflow(id string, buffers BufferComputer, layer ports.GraphicsLayer, publisher ports.EventPublisher, cfg WorkflowConfig) *SketchWorkflow {
	if !domain.ValidRadius(cfg.Radius) {
		cfg.Radius = DefaultRadiusMeters
	}
	if cfg.DebounceWait <= 0 {
		cfg.DebounceWait = DefaultDebounceWait
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &SketchWorkflow{
		id:        id,
		buffers:   buffers,
		layer:     layer,
		publisher: publisher,
		log:       slog.Default().With("session_id", id),
		ctx:       ctx,
		cancel:    cancel,
		radius:    cfg.Radius,
	}

	opts := []debounce.Option{
		debounce.WithErrorHandler(func(err error) {
			w.log.Error("debounced draw failed", "error", err)
		}),
		debounce.WithCoalesceHook(func() { metrics.DrawsCoalesced.Inc() }),
	}
	if cfg.Clock != nil {
		opts = append(opts, debounce.WithClock(cfg.Clock))
	}
	w.debouncer = debounce.New(cfg.DebounceWait, func(r drawRequest) error {
		return w.HandleDrawComplete(w.ctx, r.geometry, r.color)
	}, opts...)

	return w
}

// ID returns the session id.
func (w *SketchWorkflow) ID() string { return w.id }

// SubmitDrawEvent is the sketch tool callback. Only completed sketches are
// scheduled; they run after the debounce window, coalesced with any later
// submission. queued is false for ignored states.
func (w *SketchWorkflow) SubmitDrawEvent(ev domain.DrawEvent) (queued bool, err error) {
	if ev.State != domain.DrawComplete {
		return false, nil
	}
	switch ev.Geometry.(type) {
	case domain.PointGeometry, domain.PolygonGeometry:
	case nil:
		return false, fmt.Errorf("%w: missing geometry", domain.ErrInvalidGeometry)
	default:
		metrics.DrawEvents.WithLabelValues(string(ev.Geometry.Kind()), outcomeRejected).Inc()
		return false, fmt.Errorf("%w: %s", domain.ErrInvalidGeometryKind, ev.Geometry.Kind())
	}

	if !w.debouncer.Trigger(drawRequest{geometry: ev.Geometry, color: ev.Color}) {
		return false, domain.ErrSessionNotFound
	}
	return true, nil
}

// Flush runs a pending draw immediately and returns its error.
func (w *SketchWorkflow) Flush() (ran bool, err error) {
	return w.debouncer.Flush()
}

// CancelPending drops a pending draw.
func (w *SketchWorkflow) CancelPending() bool {
	return w.debouncer.Cancel()
}

// Close discards pending work. The workflow must not be used afterwards.
func (w *SketchWorkflow) Close() {
	w.debouncer.Close()
	w.cancel()
}

// HandleDrawComplete records a completed sketch. Points are buffered and
// rendered with their buffer; polygons are rendered as outlines. A record is
// appended only if no identical one exists.
func (w *SketchWorkflow) HandleDrawComplete(ctx context.Context, geometry domain.Geometry, color domain.Color) error {
	ctx, span := telemetry.Tracer().Start(ctx, "SketchWorkflow.HandleDrawComplete",
		trace.WithAttributes(attribute.String("session.id", w.id)))
	defer span.End()

	var (
		kind     = "unknown"
		outcome  string
		captured *domain.CaptureEvent
		err      error
	)
	w.mu.Lock()
	switch g := geometry.(type) {
	case domain.PointGeometry:
		kind = string(domain.KindPoint)
		captured, outcome, err = w.capturePointLocked(ctx, g, color)
	case domain.PolygonGeometry:
		kind = string(domain.KindPolygon)
		captured, outcome, err = w.capturePolygonLocked(ctx, g)
	case nil:
		outcome, err = outcomeRejected, fmt.Errorf("%w: missing geometry", domain.ErrInvalidGeometry)
	default:
		kind = string(g.Kind())
		outcome, err = outcomeRejected, fmt.Errorf("%w: %s", domain.ErrInvalidGeometryKind, g.Kind())
	}
	w.mu.Unlock()

	// Publish outside w.mu; the broker may be slow or down.
	if captured != nil {
		w.publish(ctx, captured)
	}

	span.SetAttributes(attribute.String("geometry.kind", kind), attribute.String("draw.outcome", outcome))
	metrics.DrawEvents.WithLabelValues(kind, outcome).Inc()
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (w *SketchWorkflow) capturePointLocked(ctx context.Context, g domain.PointGeometry, color domain.Color) (*domain.CaptureEvent, string, error) {
	if !g.Valid() {
		return nil, outcomeRejected, fmt.Errorf("%w: non-finite point coordinates", domain.ErrInvalidGeometry)
	}

	buffer, err := w.buffers.ComputeBuffer(ctx, g, w.radius)
	if err != nil {
		return nil, outcomeFailed, err
	}

	w.renderLocked(ctx, domain.Graphic{Geometry: g, Symbol: domain.PointMarker(color)})
	w.renderLocked(ctx, domain.Graphic{Geometry: buffer, Symbol: domain.BufferFill()})

	active := g
	w.activePoint = &active
	w.activeColor = color
	w.pointDrawn = true

	rec := domain.PointFromGeometry(g)
	for _, p := range w.points {
		if domain.PointsEqual(p, rec) {
			return nil, outcomeDuplicate, nil
		}
	}
	w.points = append(w.points, rec)
	w.log.Info("point captured", "latitude", rec.Latitude, "longitude", rec.Longitude, "points", len(w.points))

	return &domain.CaptureEvent{
		SessionID:  w.id,
		Kind:       domain.KindPoint,
		Point:      &rec,
		WKID:       g.SpatialReference.Normalized().WKID,
		CapturedAt: time.Now().UTC(),
	}, outcomeRecorded, nil
}

func (w *SketchWorkflow) capturePolygonLocked(ctx context.Context, g domain.PolygonGeometry) (*domain.CaptureEvent, string, error) {
	ring := g.OuterRing()
	if len(ring) == 0 {
		return nil, outcomeRejected, fmt.Errorf("%w: polygon has no rings", domain.ErrInvalidGeometry)
	}
	for _, p := range ring {
		if !(domain.PointGeometry{X: p.X(), Y: p.Y()}).Valid() {
			return nil, outcomeRejected, fmt.Errorf("%w: non-finite polygon vertex", domain.ErrInvalidGeometry)
		}
	}

	w.renderLocked(ctx, domain.Graphic{Geometry: g, Symbol: domain.PolygonOutline()})

	// Holes (rings beyond the first) are not recorded.
	vertices := domain.RingVertices(ring)
	for _, p := range w.polygons {
		if domain.VerticesEqual(p.Vertices, vertices) {
			return nil, outcomeDuplicate, nil
		}
	}
	poly := domain.Polygon{Type: domain.KindPolygon, Vertices: vertices}
	w.polygons = append(w.polygons, poly)
	w.log.Info("polygon captured", "vertices", len(vertices), "polygons", len(w.polygons))

	return &domain.CaptureEvent{
		SessionID:  w.id,
		Kind:       domain.KindPolygon,
		Polygon:    &poly,
		WKID:       g.SpatialReference.Normalized().WKID,
		CapturedAt: time.Now().UTC(),
	}, outcomeRecorded, nil
}

// RecomputeBuffer sets the radius and redraws the active point with a fresh
// buffer. Stored shapes are not touched. The radius is kept even when no
// point has been drawn yet, in which case ErrNoActivePoint is returned.
func (w *SketchWorkflow) RecomputeBuffer(ctx context.Context, radius float64) error {
	ctx, span := telemetry.Tracer().Start(ctx, "SketchWorkflow.RecomputeBuffer",
		trace.WithAttributes(attribute.String("session.id", w.id), attribute.Float64("buffer.radius_m", radius)))
	defer span.End()

	if !domain.ValidRadius(radius) {
		return domain.ErrInvalidRadius
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.radius = radius
	if w.activePoint == nil {
		return domain.ErrNoActivePoint
	}

	point := *w.activePoint
	buffer, err := w.buffers.ComputeBuffer(ctx, point, radius)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := w.layer.RemoveAll(ctx); err != nil {
		w.log.Warn("layer update failed", "error", err)
	}
	w.renderLocked(ctx, domain.Graphic{Geometry: point, Symbol: domain.PointMarker(w.activeColor)})
	w.renderLocked(ctx, domain.Graphic{Geometry: buffer, Symbol: domain.BufferFill()})
	return nil
}

// Points returns a copy of the recorded points.
func (w *SketchWorkflow) Points() []domain.Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pointsLocked()
}

// Polygons returns a copy of the recorded polygons.
func (w *SketchWorkflow) Polygons() []domain.Polygon {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polygonsLocked()
}

// ActivePoint returns the most recently completed point geometry.
func (w *SketchWorkflow) ActivePoint() (domain.PointGeometry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.activePoint == nil {
		return domain.PointGeometry{}, false
	}
	return *w.activePoint, true
}

// Radius returns the radius used for the next buffer.
func (w *SketchWorkflow) Radius() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.radius
}

// Graphics returns the rendered graphics.
func (w *SketchWorkflow) Graphics() []domain.Graphic {
	return w.layer.Graphics()
}

// State returns a snapshot of the session.
func (w *SketchWorkflow) State() domain.SessionState {
	pending := w.debouncer.Pending()

	w.mu.Lock()
	defer w.mu.Unlock()

	st := domain.SessionState{
		SessionID:   w.id,
		Points:      w.pointsLocked(),
		Polygons:    w.polygonsLocked(),
		PointDrawn:  w.pointDrawn,
		Radius:      w.radius,
		PendingDraw: pending,
	}
	if w.activePoint != nil {
		p := *w.activePoint
		st.ActivePoint = &p
	}
	return st
}

func (w *SketchWorkflow) pointsLocked() []domain.Point {
	out := make([]domain.Point, len(w.points))
	copy(out, w.points)
	return out
}

func (w *SketchWorkflow) polygonsLocked() []domain.Polygon {
	out := make([]domain.Polygon, len(w.polygons))
	for i, p := range w.polygons {
		out[i] = domain.Polygon{Type: p.Type, Vertices: append([]domain.Point(nil), p.Vertices...)}
	}
	return out
}

// renderLocked adds a graphic. Rendering is a side effect; failures are logged.
func (w *SketchWorkflow) renderLocked(ctx context.Context, g domain.Graphic) {
	if err := w.layer.Add(ctx, g); err != nil {
		w.log.Warn("layer update failed", "error", err)
	}
}

func (w *SketchWorkflow) publish(ctx context.Context, ev *domain.CaptureEvent) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.PublishShapeCaptured(ctx, ev); err != nil {
		w.log.Warn("publish capture event failed", "kind", ev.Kind, "error", err)
	}
}
