package geoformat

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"

	"github.com/samirrijal/geosketch/internal/core/domain"
)

// GraphicsCollection renders graphics as a GeoJSON FeatureCollection in
// WGS 84. Each feature carries its symbol under the "symbol" property.
func GraphicsCollection(graphics []domain.Graphic) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for i, g := range graphics {
		geom, err := toWGS84(g.Geometry)
		if err != nil {
			return nil, fmt.Errorf("graphic %d: %w", i, err)
		}
		f := geojson.NewFeature(geom)
		f.Properties["kind"] = string(g.Geometry.Kind())
		f.Properties["symbol"] = g.Symbol
		fc.Append(f)
	}
	return fc, nil
}

// ShapesCollection renders captured points and polygons as a GeoJSON
// FeatureCollection. Polygon rings are closed on output.
func ShapesCollection(points []domain.Point, polygons []domain.Polygon) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, p := range points {
		f := geojson.NewFeature(orb.Point{p.Longitude, p.Latitude})
		f.Properties["kind"] = string(domain.KindPoint)
		f.Properties["index"] = i
		fc.Append(f)
	}
	for i, p := range polygons {
		f := geojson.NewFeature(orb.Polygon{closedRing(p.Vertices)})
		f.Properties["kind"] = string(domain.KindPolygon)
		f.Properties["index"] = i
		fc.Append(f)
	}
	return fc
}

func toWGS84(g domain.Geometry) (orb.Geometry, error) {
	var geom orb.Geometry
	switch v := g.(type) {
	case domain.PointGeometry:
		geom = orb.Point{v.X, v.Y}
	case domain.PolygonGeometry:
		poly := make(orb.Polygon, len(v.Rings))
		for i, r := range v.Rings {
			ring := make(orb.Ring, len(r))
			for j, p := range r {
				ring[j] = orb.Point{p.X(), p.Y()}
			}
			poly[i] = ring
		}
		geom = poly
	default:
		return nil, fmt.Errorf("%w: %T", domain.ErrInvalidGeometryKind, g)
	}

	ref := g.Ref()
	switch {
	case ref.IsWGS84():
		return geom, nil
	case ref.IsWebMercator():
		return project.Geometry(geom, project.Mercator.ToWGS84), nil
	}
	return nil, fmt.Errorf("%w: wkid %d", domain.ErrUnsupportedSpatialReference, ref.WKID)
}

// closedRing converts vertices to a ring whose last point repeats the first.
func closedRing(vertices []domain.Point) orb.Ring {
	ring := make(orb.Ring, 0, len(vertices)+1)
	for _, v := range vertices {
		ring = append(ring, orb.Point{v.Longitude, v.Latitude})
	}
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}
