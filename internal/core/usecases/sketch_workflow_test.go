package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/facebookgo/clock"

	"github.com/samirrijal/geosketch/internal/core/domain"
	"github.com/samirrijal/geosketch/internal/core/usecases"
)

type fixture struct {
	engine    *mockEngine
	layer     *mockLayer
	publisher *mockPublisher
	clock     *clock.Mock
	wf        *usecases.SketchWorkflow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		engine:    &mockEngine{},
		layer:     &mockLayer{},
		publisher: &mockPublisher{},
		clock:     clock.NewMock(),
	}
	f.wf = usecases.NewSketchWorkflow("s1", usecases.NewBufferService(f.engine, nil), f.layer, f.publisher,
		usecases.WorkflowConfig{Clock: f.clock})
	t.Cleanup(f.wf.Close)
	return f
}

func ring(coords ...[2]float64) [][]domain.Position {
	r := make([]domain.Position, len(coords))
	for i, c := range coords {
		r[i] = domain.Position(c)
	}
	return [][]domain.Position{r}
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSketchWorkflow_PointDedup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pt := domain.PointGeometry{X: 69, Y: 30.5}

	for i := 0; i < 2; i++ {
		if err := f.wf.HandleDrawComplete(ctx, pt, domain.DefaultDrawColor); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	points := f.wf.Points()
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	if len(f.publisher.Events()) != 1 {
		t.Errorf("expected 1 capture event, got %d", len(f.publisher.Events()))
	}
	// Both draws are rendered even though only one is recorded.
	if got := len(f.layer.Graphics()); got != 4 {
		t.Errorf("expected 4 graphics, got %d", got)
	}
}

func TestSketchWorkflow_PolygonRingClosure(t *testing.T) {
	f := newFixture(t)
	poly := domain.PolygonGeometry{Rings: ring([2]float64{0, 0}, [2]float64{1, 0}, [2]float64{1, 1}, [2]float64{0, 0})}

	if err := f.wf.HandleDrawComplete(context.Background(), poly, domain.DefaultDrawColor); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	polys := f.wf.Polygons()
	if len(polys) != 1 {
		t.Fatalf("expected 1 polygon, got %d", len(polys))
	}
	want := []domain.Point{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 1},
		{Latitude: 1, Longitude: 1},
	}
	if !domain.VerticesEqual(polys[0].Vertices, want) {
		t.Errorf("expected %v, got %v", want, polys[0].Vertices)
	}
	if polys[0].Type != domain.KindPolygon {
		t.Errorf("expected type polygon, got %s", polys[0].Type)
	}
}

func TestSketchWorkflow_PolygonDedupIsOrderSensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := domain.PolygonGeometry{Rings: ring([2]float64{0, 0}, [2]float64{1, 0}, [2]float64{1, 1})}
	rotated := domain.PolygonGeometry{Rings: ring([2]float64{1, 0}, [2]float64{1, 1}, [2]float64{0, 0})}

	_ = f.wf.HandleDrawComplete(ctx, a, domain.DefaultDrawColor)
	_ = f.wf.HandleDrawComplete(ctx, rotated, domain.DefaultDrawColor)
	_ = f.wf.HandleDrawComplete(ctx, a, domain.DefaultDrawColor)

	if got := len(f.wf.Polygons()); got != 2 {
		t.Fatalf("expected 2 polygons (rotation is distinct, repeat is not), got %d", got)
	}
}

func TestSketchWorkflow_PolygonIgnoresHolesAndKeepsActivePoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pt := domain.PointGeometry{X: 5, Y: 6}
	_ = f.wf.HandleDrawComplete(ctx, pt, domain.DefaultDrawColor)

	poly := domain.PolygonGeometry{Rings: [][]domain.Position{
		{{0, 0}, {4, 0}, {4, 4}, {0, 0}},
		{{1, 1}, {2, 1}, {2, 2}, {1, 1}},
	}}
	_ = f.wf.HandleDrawComplete(ctx, poly, domain.DefaultDrawColor)

	polys := f.wf.Polygons()
	if len(polys) != 1 || len(polys[0].Vertices) != 3 {
		t.Fatalf("expected outer ring of 3 vertices, got %+v", polys)
	}
	active, ok := f.wf.ActivePoint()
	if !ok || active != pt {
		t.Errorf("expected active point %v to survive polygon draw, got %v", pt, active)
	}
	if len(f.engine.Calls()) != 1 {
		t.Errorf("polygons must not be buffered, got %d buffer calls", len(f.engine.Calls()))
	}
}

func TestSketchWorkflow_RejectsUnknownKind(t *testing.T) {
	f := newFixture(t)

	err := f.wf.HandleDrawComplete(context.Background(), polyline{}, domain.DefaultDrawColor)
	if !errors.Is(err, domain.ErrInvalidGeometryKind) {
		t.Errorf("expected ErrInvalidGeometryKind, got %v", err)
	}

	_, err = f.wf.SubmitDrawEvent(domain.DrawEvent{State: domain.DrawComplete, Geometry: polyline{}})
	if !errors.Is(err, domain.ErrInvalidGeometryKind) {
		t.Errorf("expected ErrInvalidGeometryKind on submit, got %v", err)
	}

	err = f.wf.HandleDrawComplete(context.Background(), domain.PolygonGeometry{}, domain.DefaultDrawColor)
	if !errors.Is(err, domain.ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry for ringless polygon, got %v", err)
	}
}

func TestSketchWorkflow_SubmitIgnoresIncompleteStates(t *testing.T) {
	f := newFixture(t)

	for _, st := range []domain.DrawState{domain.DrawStart, domain.DrawActive, domain.DrawCancel} {
		queued, err := f.wf.SubmitDrawEvent(domain.DrawEvent{State: st, Geometry: domain.PointGeometry{X: 1, Y: 2}})
		if queued || err != nil {
			t.Errorf("state %s: expected ignored, got queued=%v err=%v", st, queued, err)
		}
	}
	if f.wf.State().PendingDraw {
		t.Error("nothing should be pending")
	}
}

func TestSketchWorkflow_DebounceCoalescing(t *testing.T) {
	f := newFixture(t)

	for i, x := range []float64{10, 20, 30} {
		queued, err := f.wf.SubmitDrawEvent(domain.DrawEvent{
			State:    domain.DrawComplete,
			Geometry: domain.PointGeometry{X: x, Y: 1},
			Color:    domain.DefaultDrawColor,
		})
		if !queued || err != nil {
			t.Fatalf("submit %d: queued=%v err=%v", i, queued, err)
		}
		f.clock.Add(40 * time.Millisecond)
	}

	if len(f.engine.Calls()) != 0 {
		t.Fatal("workflow ran before the quiet period elapsed")
	}

	f.clock.Add(500 * time.Millisecond)
	waitFor(t, func() bool { return len(f.wf.Points()) == 1 })

	if calls := f.engine.Calls(); len(calls) != 1 {
		t.Fatalf("expected exactly 1 execution, got %d", len(calls))
	}
	if p := f.wf.Points()[0]; p.Longitude != 30 {
		t.Errorf("expected the last submission (x=30), got %+v", p)
	}
}

func TestSketchWorkflow_FlushRunsPendingDraw(t *testing.T) {
	f := newFixture(t)

	_, _ = f.wf.SubmitDrawEvent(domain.DrawEvent{State: domain.DrawComplete, Geometry: domain.PointGeometry{X: 1, Y: 2}})
	if !f.wf.State().PendingDraw {
		t.Fatal("expected pending draw")
	}

	ran, err := f.wf.Flush()
	if !ran || err != nil {
		t.Fatalf("expected flush to run, got ran=%v err=%v", ran, err)
	}
	if len(f.wf.Points()) != 1 {
		t.Errorf("expected 1 point after flush, got %d", len(f.wf.Points()))
	}
}

func TestSketchWorkflow_CloseDropsPendingDraw(t *testing.T) {
	f := newFixture(t)

	_, _ = f.wf.SubmitDrawEvent(domain.DrawEvent{State: domain.DrawComplete, Geometry: domain.PointGeometry{X: 1, Y: 2}})
	f.wf.Close()
	f.clock.Add(time.Second)
	time.Sleep(10 * time.Millisecond)

	if len(f.engine.Calls()) != 0 {
		t.Error("pending draw ran after close")
	}
	if _, err := f.wf.SubmitDrawEvent(domain.DrawEvent{State: domain.DrawComplete, Geometry: domain.PointGeometry{}}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after close, got %v", err)
	}
}

func TestSketchWorkflow_RecomputeBufferBeforePoint(t *testing.T) {
	f := newFixture(t)

	err := f.wf.RecomputeBuffer(context.Background(), 2000)
	if !errors.Is(err, domain.ErrNoActivePoint) {
		t.Fatalf("expected ErrNoActivePoint, got %v", err)
	}
	if f.wf.Radius() != 2000 {
		t.Errorf("expected radius to be kept, got %f", f.wf.Radius())
	}

	// The stored radius applies to the next point.
	_ = f.wf.HandleDrawComplete(context.Background(), domain.PointGeometry{X: 1, Y: 1}, domain.DefaultDrawColor)
	if calls := f.engine.Calls(); len(calls) != 1 || calls[0].distance != 2000 {
		t.Errorf("expected buffer at 2000m, got %+v", calls)
	}
}

func TestSketchWorkflow_RecomputeBufferInvalidRadius(t *testing.T) {
	f := newFixture(t)
	for _, r := range []float64{0, -1} {
		if err := f.wf.RecomputeBuffer(context.Background(), r); !errors.Is(err, domain.ErrInvalidRadius) {
			t.Errorf("radius %f: expected ErrInvalidRadius, got %v", r, err)
		}
	}
	if f.wf.Radius() != usecases.DefaultRadiusMeters {
		t.Errorf("invalid radius must not be stored, got %f", f.wf.Radius())
	}
}

func TestSketchWorkflow_RecomputeDoesNotMutateShapes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_ = f.wf.HandleDrawComplete(ctx, domain.PointGeometry{X: 3, Y: 4}, domain.DefaultDrawColor)
	if err := f.wf.RecomputeBuffer(ctx, 2000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(f.wf.Points()); got != 1 {
		t.Errorf("expected 1 point, got %d", got)
	}
	if got := len(f.publisher.Events()); got != 1 {
		t.Errorf("recompute must not publish captures, got %d events", got)
	}
}

func TestSketchWorkflow_BufferFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("engine down")
	f.engine.bufferFn = func(ctx context.Context, p domain.PointGeometry, d float64, u domain.LinearUnit) (domain.PolygonGeometry, error) {
		return domain.PolygonGeometry{}, boom
	}

	err := f.wf.HandleDrawComplete(context.Background(), domain.PointGeometry{X: 1, Y: 1}, domain.DefaultDrawColor)

	var bufErr *domain.BufferComputationError
	if !errors.As(err, &bufErr) || !errors.Is(err, boom) {
		t.Fatalf("expected BufferComputationError wrapping engine error, got %v", err)
	}
	if len(f.wf.Points()) != 0 || len(f.layer.Graphics()) != 0 {
		t.Error("failed draw must not record or render")
	}
	if _, ok := f.wf.ActivePoint(); ok {
		t.Error("failed draw must not set the active point")
	}
}

func TestSketchWorkflow_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.wf.SubmitDrawEvent(domain.DrawEvent{
		State:    domain.DrawComplete,
		Geometry: domain.PointGeometry{X: 69, Y: 30.5},
		Color:    domain.DefaultDrawColor,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.clock.Add(500 * time.Millisecond)
	waitFor(t, func() bool { return len(f.wf.Points()) == 1 })

	st := f.wf.State()
	if st.Points[0] != (domain.Point{Latitude: 30.5, Longitude: 69}) {
		t.Errorf("unexpected point %+v", st.Points[0])
	}
	if !st.PointDrawn || st.ActivePoint == nil {
		t.Error("expected an active point")
	}
	calls := f.engine.Calls()
	if len(calls) != 1 || calls[0].distance != 1000 || calls[0].unit != domain.UnitMeters {
		t.Fatalf("expected one 1000m buffer, got %+v", calls)
	}

	if err := f.wf.RecomputeBuffer(ctx, 500); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	calls = f.engine.Calls()
	if len(calls) != 2 || calls[1].distance != 500 {
		t.Fatalf("expected second buffer at 500m, got %+v", calls)
	}
	if len(f.wf.Points()) != 1 {
		t.Errorf("expected point list length 1, got %d", len(f.wf.Points()))
	}

	g := f.layer.Graphics()
	if f.layer.clears != 1 || len(g) != 2 {
		t.Fatalf("expected layer cleared once and holding 2 graphics, got clears=%d graphics=%d", f.layer.clears, len(g))
	}
	if g[0].Symbol.Type != domain.SymbolMarker || g[1].Symbol.Type != domain.SymbolFill {
		t.Errorf("expected marker then fill, got %s, %s", g[0].Symbol.Type, g[1].Symbol.Type)
	}
}

func TestSketchWorkflow_AccessorsReturnCopies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.wf.HandleDrawComplete(ctx, domain.PointGeometry{X: 1, Y: 2}, domain.DefaultDrawColor)
	_ = f.wf.HandleDrawComplete(ctx, domain.PolygonGeometry{Rings: ring([2]float64{0, 0}, [2]float64{1, 0}, [2]float64{1, 1})}, domain.DefaultDrawColor)

	pts := f.wf.Points()
	pts[0].Latitude = 99
	polys := f.wf.Polygons()
	polys[0].Vertices[0].Latitude = 99

	if f.wf.Points()[0].Latitude != 2 {
		t.Error("points accessor leaked internal storage")
	}
	if f.wf.Polygons()[0].Vertices[0].Latitude != 0 {
		t.Error("polygons accessor leaked internal storage")
	}
}

func TestSketchWorkflow_SlowPublishDoesNotBlockSession(t *testing.T) {
	f := newFixture(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	f.publisher.publishFn = func(ctx context.Context, ev *domain.CaptureEvent) error {
		close(entered)
		<-release
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- f.wf.HandleDrawComplete(context.Background(), domain.PointGeometry{X: 69, Y: 30.5}, domain.DefaultDrawColor)
	}()

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("capture was never published")
	}

	// The broker is stuck; the session must still answer.
	answered := make(chan domain.SessionState, 1)
	go func() {
		if err := f.wf.RecomputeBuffer(context.Background(), 250); err != nil {
			t.Errorf("recompute while publishing: %v", err)
		}
		answered <- f.wf.State()
	}()

	select {
	case st := <-answered:
		if len(st.Points) != 1 || st.Radius != 250 {
			t.Errorf("unexpected state while publishing: %+v", st)
		}
	case <-time.After(time.Second):
		t.Fatal("session blocked by a pending publish")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("draw: %v", err)
	}
	if n := len(f.publisher.Events()); n != 1 {
		t.Errorf("expected 1 capture event, got %d", n)
	}
}
