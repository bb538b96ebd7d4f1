package geoformat

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/samirrijal/geosketch/internal/core/domain"
)

// EncodeShape returns the WKB of a captured shape with x = longitude and
// y = latitude.
func EncodeShape(ev *domain.CaptureEvent) ([]byte, error) {
	var geom orb.Geometry
	switch {
	case ev.Kind == domain.KindPoint && ev.Point != nil:
		geom = orb.Point{ev.Point.Longitude, ev.Point.Latitude}
	case ev.Kind == domain.KindPolygon && ev.Polygon != nil:
		geom = orb.Polygon{closedRing(ev.Polygon.Vertices)}
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidGeometryKind, ev.Kind)
	}
	return wkb.Marshal(geom)
}

// DecodeShape parses WKB written by EncodeShape back into its kind and
// vertices. Polygon vertices do not repeat the first vertex.
func DecodeShape(data []byte) (domain.GeometryKind, []domain.Point, error) {
	geom, err := wkb.Unmarshal(data)
	if err != nil {
		return "", nil, fmt.Errorf("decode wkb: %w", err)
	}

	switch g := geom.(type) {
	case orb.Point:
		return domain.KindPoint, []domain.Point{{Latitude: g.Lat(), Longitude: g.Lon()}}, nil
	case orb.Polygon:
		if len(g) == 0 {
			return domain.KindPolygon, nil, nil
		}
		return domain.KindPolygon, domain.RingVertices(fromOrbRing(g[0])), nil
	}
	return "", nil, fmt.Errorf("%w: %s", domain.ErrInvalidGeometryKind, geom.GeoJSONType())
}
