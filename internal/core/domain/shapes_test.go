package domain_test

import (
	"testing"

	"github.com/samirrijal/geosketch/internal/core/domain"
)

func TestRingVertices(t *testing.T) {
	tests := []struct {
		name string
		ring []domain.Position
		want []domain.Point
	}{
		{
			name: "closed ring drops closing vertex",
			ring: []domain.Position{{0, 0}, {1, 0}, {1, 1}, {0, 0}},
			want: []domain.Point{{0, 0}, {0, 1}, {1, 1}},
		},
		{
			name: "open ring kept as is",
			ring: []domain.Position{{0, 0}, {1, 0}, {1, 1}},
			want: []domain.Point{{0, 0}, {0, 1}, {1, 1}},
		},
		{
			name: "two coincident vertices are not a closed ring",
			ring: []domain.Position{{2, 3}, {2, 3}},
			want: []domain.Point{{3, 2}, {3, 2}},
		},
		{
			name: "empty",
			ring: nil,
			want: []domain.Point{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.RingVertices(tt.ring)
			if !domain.VerticesEqual(got, tt.want) {
				t.Errorf("RingVertices() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerticesEqual(t *testing.T) {
	a := []domain.Point{{0, 0}, {0, 1}, {1, 1}}
	rotated := []domain.Point{{0, 1}, {1, 1}, {0, 0}}
	reversed := []domain.Point{{1, 1}, {0, 1}, {0, 0}}

	if !domain.VerticesEqual(a, []domain.Point{{0, 0}, {0, 1}, {1, 1}}) {
		t.Error("identical sequences must be equal")
	}
	if domain.VerticesEqual(a, rotated) {
		t.Error("rotation must be distinct")
	}
	if domain.VerticesEqual(a, reversed) {
		t.Error("reversal must be distinct")
	}
	if domain.VerticesEqual(a, a[:2]) {
		t.Error("different lengths must be distinct")
	}
}

func TestPointFromGeometry(t *testing.T) {
	p := domain.PointFromGeometry(domain.PointGeometry{X: 69, Y: 30.5})
	if p.Latitude != 30.5 || p.Longitude != 69 {
		t.Errorf("expected lat 30.5 lon 69, got %+v", p)
	}
}

func TestPointsEqual_NoTolerance(t *testing.T) {
	a := domain.Point{Latitude: 1, Longitude: 1}
	b := domain.Point{Latitude: 1 + 1e-12, Longitude: 1}
	if domain.PointsEqual(a, b) {
		t.Error("points differing in the last digits must be distinct")
	}
}
