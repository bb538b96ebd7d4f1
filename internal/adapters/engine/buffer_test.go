package engine_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/samirrijal/geosketch/internal/adapters/engine"
	"github.com/samirrijal/geosketch/internal/core/domain"
	"github.com/samirrijal/geosketch/internal/pkg/geospatial"
)

func signedArea(ring []domain.Position) float64 {
	var sum float64
	for i := 0; i < len(ring)-1; i++ {
		sum += ring[i].X()*ring[i+1].Y() - ring[i+1].X()*ring[i].Y()
	}
	return sum / 2
}

func TestBuffer_WGS84(t *testing.T) {
	e := engine.New(engine.DefaultSegments)
	pt := domain.PointGeometry{X: 69, Y: 30.5}

	poly, err := e.Buffer(context.Background(), pt, 1000, domain.UnitMeters)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(poly.Rings) != 1 {
		t.Fatalf("expected 1 ring, got %d", len(poly.Rings))
	}

	ring := poly.Rings[0]
	if len(ring) != engine.DefaultSegments+1 {
		t.Fatalf("expected %d vertices, got %d", engine.DefaultSegments+1, len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		t.Error("expected closed ring")
	}
	for i, v := range ring {
		d := geospatial.Haversine(pt.Y, pt.X, v.Y(), v.X())
		if math.Abs(d-1000)/1000 > 0.005 {
			t.Errorf("vertex %d at %.2fm, expected ~1000m", i, d)
		}
	}
	if signedArea(ring) >= 0 {
		t.Error("expected clockwise exterior ring")
	}
}

func TestBuffer_Units(t *testing.T) {
	e := engine.New(32)
	pt := domain.PointGeometry{X: 0, Y: 0}

	poly, err := e.Buffer(context.Background(), pt, 2, domain.UnitKilometers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := poly.Rings[0][0]
	if d := geospatial.Haversine(0, 0, v.Y(), v.X()); math.Abs(d-2000) > 10 {
		t.Errorf("expected ~2000m, got %.2f", d)
	}

	if _, err := e.Buffer(context.Background(), pt, 1, "furlongs"); err == nil {
		t.Error("expected error for unknown unit")
	}
}

func TestBuffer_WebMercatorRoundTrip(t *testing.T) {
	e := engine.New(engine.DefaultSegments)
	merc := project.WGS84.ToMercator(orb.Point{69, 30.5})
	pt := domain.PointGeometry{
		X: merc.X(), Y: merc.Y(),
		SpatialReference: domain.SpatialReference{WKID: domain.WKIDWebMercatorEsri},
	}

	poly, err := e.Buffer(context.Background(), pt, 500, domain.UnitMeters)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if poly.SpatialReference.WKID != domain.WKIDWebMercatorEsri {
		t.Errorf("expected output in wkid 102100, got %d", poly.SpatialReference.WKID)
	}
	for _, v := range poly.Rings[0] {
		ll := project.Mercator.ToWGS84(orb.Point{v.X(), v.Y()})
		if d := geospatial.Haversine(30.5, 69, ll.Lat(), ll.Lon()); math.Abs(d-500)/500 > 0.005 {
			t.Fatalf("vertex at %.2fm, expected ~500m", d)
		}
	}
}

func TestBuffer_Errors(t *testing.T) {
	e := engine.New(0)
	ctx := context.Background()

	tests := []struct {
		name   string
		pt     domain.PointGeometry
		radius float64
		want   error
	}{
		{"zero radius", domain.PointGeometry{X: 1, Y: 1}, 0, domain.ErrInvalidRadius},
		{"negative radius", domain.PointGeometry{X: 1, Y: 1}, -5, domain.ErrInvalidRadius},
		{"NaN radius", domain.PointGeometry{X: 1, Y: 1}, math.NaN(), domain.ErrInvalidRadius},
		{"NaN coordinate", domain.PointGeometry{X: math.NaN(), Y: 1}, 10, domain.ErrInvalidGeometry},
		{"latitude out of range", domain.PointGeometry{X: 1, Y: 95}, 10, domain.ErrInvalidGeometry},
		{"unknown wkid", domain.PointGeometry{X: 1, Y: 1, SpatialReference: domain.SpatialReference{WKID: 2193}}, 10, domain.ErrUnsupportedSpatialReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Buffer(ctx, tt.pt, tt.radius, domain.UnitMeters)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestBuffer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.New(0).Buffer(ctx, domain.PointGeometry{}, 10, domain.UnitMeters); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func xSpan(ring []domain.Position) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range ring {
		lo = math.Min(lo, v.X())
		hi = math.Max(hi, v.X())
	}
	return hi - lo
}

func TestBuffer_Antimeridian(t *testing.T) {
	e := engine.New(engine.DefaultSegments)

	for _, x := range []float64{179.9, -179.9} {
		pt := domain.PointGeometry{X: x, Y: 0}
		poly, err := e.Buffer(context.Background(), pt, 50000, domain.UnitMeters)
		if err != nil {
			t.Fatalf("x=%v: unexpected error: %v", x, err)
		}
		if len(poly.Rings) != 1 {
			t.Fatalf("x=%v: expected 1 ring, got %d", x, len(poly.Rings))
		}
		ring := poly.Rings[0]
		// 50 km is under half a degree at the equator.
		if span := xSpan(ring); span > 1 {
			t.Errorf("x=%v: ring spans %.3f° of longitude, expected a continuous ~0.9°", x, span)
		}
		for i, v := range ring {
			if d := geospatial.Haversine(pt.Y, pt.X, v.Y(), v.X()); math.Abs(d-50000)/50000 > 0.005 {
				t.Errorf("x=%v: vertex %d at %.2fm, expected ~50000m", x, i, d)
			}
		}
		if signedArea(ring) >= 0 {
			t.Errorf("x=%v: expected clockwise exterior ring", x)
		}
	}
}

func TestBuffer_AntimeridianWebMercator(t *testing.T) {
	e := engine.New(engine.DefaultSegments)
	merc := project.WGS84.ToMercator(orb.Point{179.9, 10})
	pt := domain.PointGeometry{
		X: merc.X(), Y: merc.Y(),
		SpatialReference: domain.SpatialReference{WKID: domain.WKIDWebMercator},
	}

	poly, err := e.Buffer(context.Background(), pt, 50000, domain.UnitMeters)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A 100 km wide disc stays well under 200 km of projected width at 10°N.
	if span := xSpan(poly.Rings[0]); span > 200000 {
		t.Errorf("ring spans %.0fm in x, expected a continuous disc", span)
	}
}

func TestBuffer_AroundPole(t *testing.T) {
	e := engine.New(32)

	tests := []struct {
		name    string
		lat     float64
		poleLat float64
	}{
		{"north", 89, 90},
		{"south", -89, -90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pt := domain.PointGeometry{X: 20, Y: tt.lat}
			poly, err := e.Buffer(context.Background(), pt, 500000, domain.UnitMeters)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			ring := poly.Rings[0]
			// 32 circle vertices, two along the pole, and the closing vertex.
			if len(ring) != 32+3 {
				t.Fatalf("expected %d vertices, got %d", 32+3, len(ring))
			}
			for i, v := range ring[:32] {
				if d := geospatial.Haversine(pt.Y, pt.X, v.Y(), v.X()); math.Abs(d-500000)/500000 > 0.005 {
					t.Errorf("vertex %d at %.2fm, expected ~500000m", i, d)
				}
			}
			if ring[32].Y() != tt.poleLat || ring[33].Y() != tt.poleLat {
				t.Errorf("expected the ring to close along latitude %v, got %v and %v", tt.poleLat, ring[32], ring[33])
			}
			if span := xSpan(ring); span < 330 || span > 360 {
				t.Errorf("expected the ring to sweep all longitudes, spans %.2f°", span)
			}
			if signedArea(ring) >= 0 {
				t.Error("expected clockwise exterior ring")
			}
		})
	}
}

func TestBuffer_HalfCircumferenceCoversWorld(t *testing.T) {
	e := engine.New(0)
	halfTurn := math.Pi * geospatial.EarthRadiusMeters

	for _, radius := range []float64{halfTurn, 25000000} {
		poly, err := e.Buffer(context.Background(), domain.PointGeometry{X: 0, Y: 0}, radius, domain.UnitMeters)
		if err != nil {
			t.Fatalf("radius %.0f: unexpected error: %v", radius, err)
		}
		want := []domain.Position{{-180, -90}, {-180, 90}, {180, 90}, {180, -90}, {-180, -90}}
		if len(poly.Rings) != 1 || len(poly.Rings[0]) != len(want) {
			t.Fatalf("radius %.0f: expected the world rectangle, got %v", radius, poly.Rings)
		}
		for i, v := range poly.Rings[0] {
			if v != want[i] {
				t.Errorf("radius %.0f: vertex %d = %v, want %v", radius, i, v, want[i])
			}
		}
	}
}

func TestBuffer_NearlyHalfCircumferenceLeavesHole(t *testing.T) {
	e := engine.New(engine.DefaultSegments)
	radius := 0.9 * math.Pi * geospatial.EarthRadiusMeters

	poly, err := e.Buffer(context.Background(), domain.PointGeometry{X: 10, Y: 0}, radius, domain.UnitMeters)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(poly.Rings) != 2 {
		t.Fatalf("expected world ring and antipodal hole, got %d rings", len(poly.Rings))
	}
	outer, hole := poly.Rings[0], poly.Rings[1]
	if signedArea(outer) >= 0 {
		t.Error("expected clockwise exterior ring")
	}
	if signedArea(hole) <= 0 {
		t.Error("expected counter-clockwise hole")
	}
	for i, v := range hole {
		if d := geospatial.Haversine(0, 10, v.Y(), v.X()); math.Abs(d-radius)/radius > 0.005 {
			t.Errorf("hole vertex %d at %.0fm, expected ~%.0fm", i, d, radius)
		}
		if v.X() < outer[0].X() || v.X() > outer[2].X() {
			t.Errorf("hole vertex %d at x=%.3f lies outside the exterior ring", i, v.X())
		}
	}
}
