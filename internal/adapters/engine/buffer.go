// Package engine implements ports.GeometryEngine with geodesic circles on the S2 sphere.
package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/samirrijal/geosketch/internal/core/domain"
	"github.com/samirrijal/geosketch/internal/pkg/geospatial"
)

// DefaultSegments is the number of vertices used to approximate a circle.
const DefaultSegments = 64

const minSegments = 8

// Engine buffers points into geodesic circles.
type Engine struct {
	segments int
}

// New creates an Engine. segments below 8 fall back to DefaultSegments.
func New(segments int) *Engine {
	if segments < minSegments {
		segments = DefaultSegments
	}
	return &Engine{segments: segments}
}

// Buffer returns the polygon of points within distance of point, in the
// point's own spatial reference. Exterior rings are clockwise and holes
// counter-clockwise, the Esri orientation. A buffer around a pole is closed
// along the pole; a distance of half the Earth's circumference or more
// covers the whole world.
func (e *Engine) Buffer(ctx context.Context, point domain.PointGeometry, distance float64, unit domain.LinearUnit) (domain.PolygonGeometry, error) {
	if err := ctx.Err(); err != nil {
		return domain.PolygonGeometry{}, err
	}

	meters, ok := unit.Meters(distance)
	if !ok {
		return domain.PolygonGeometry{}, fmt.Errorf("unknown unit %q", unit)
	}
	if !domain.ValidRadius(meters) {
		return domain.PolygonGeometry{}, domain.ErrInvalidRadius
	}
	if !point.Valid() {
		return domain.PolygonGeometry{}, fmt.Errorf("%w: non-finite coordinates", domain.ErrInvalidGeometry)
	}

	ref := point.SpatialReference
	toWGS84, fromWGS84, err := projections(ref)
	if err != nil {
		return domain.PolygonGeometry{}, err
	}

	center := toWGS84(orb.Point{point.X, point.Y})
	if center.Lat() < -90 || center.Lat() > 90 {
		return domain.PolygonGeometry{}, fmt.Errorf("%w: latitude %f out of range", domain.ErrInvalidGeometry, center.Lat())
	}

	if meters >= math.Pi*geospatial.EarthRadiusMeters {
		return worldPolygon(ref, fromWGS84), nil
	}
	angle := geospatial.CentralAngle(meters)

	loop := s2.RegularLoop(
		s2.PointFromLatLng(s2.LatLngFromDegrees(center.Lat(), center.Lon())),
		s1.Angle(angle),
		e.segments,
	)
	north := loop.ContainsPoint(s2.PointFromCoords(0, 0, 1))
	south := loop.ContainsPoint(s2.PointFromCoords(0, 0, -1))

	// Longitudes are unwrapped into one continuous range, so a ring crossing
	// the antimeridian may run past ±180.
	refLon := center.Lon()
	if north && south {
		refLon += 180
	}
	ring := arc(loop.Vertices(), refLon)

	var rings [][]orb.Point
	switch {
	case north && south:
		// The buffer is the world minus a cap around the antipode.
		rings = [][]orb.Point{worldRing(refLon), ring}
	case north:
		rings = [][]orb.Point{capPole(ring, 90)}
	case south:
		rings = [][]orb.Point{capPole(ring, -90)}
	default:
		rings = [][]orb.Point{ring}
	}

	return domain.PolygonGeometry{
		Rings:            toRef(rings, fromWGS84),
		SpatialReference: ref,
	}, nil
}

// arc walks the counter-clockwise S2 loop backwards and returns it as
// lon/lat points with continuous longitudes starting near refLon.
func arc(vertices []s2.Point, refLon float64) []orb.Point {
	out := make([]orb.Point, 0, len(vertices)+3)
	prev := refLon
	for i := len(vertices) - 1; i >= 0; i-- {
		ll := s2.LatLngFromPoint(vertices[i])
		lon := unwrap(ll.Lng.Degrees(), prev)
		out = append(out, orb.Point{lon, ll.Lat.Degrees()})
		prev = lon
	}
	return out
}

// unwrap shifts lon by whole turns to within 180° of ref.
func unwrap(lon, ref float64) float64 {
	return ref + math.Remainder(lon-ref, 360)
}

// capPole closes a ring that circles a pole by running along the pole's latitude.
// The ring sweeps 360° of longitude, so the result stays clockwise.
func capPole(ring []orb.Point, poleLat float64) []orb.Point {
	first, last := ring[0], ring[len(ring)-1]
	return append(ring, orb.Point{last.Lon(), poleLat}, orb.Point{first.Lon(), poleLat})
}

// worldRing is the clockwise rectangle covering every longitude in [lon-180, lon+180].
func worldRing(lon float64) []orb.Point {
	return []orb.Point{
		{lon - 180, -90},
		{lon - 180, 90},
		{lon + 180, 90},
		{lon + 180, -90},
	}
}

// worldPolygon covers the whole sphere.
func worldPolygon(ref domain.SpatialReference, fromWGS84 orb.Projection) domain.PolygonGeometry {
	return domain.PolygonGeometry{
		Rings:            toRef([][]orb.Point{worldRing(0)}, fromWGS84),
		SpatialReference: ref,
	}
}

// toRef projects lon/lat rings into the output reference and closes them.
func toRef(rings [][]orb.Point, fromWGS84 orb.Projection) [][]domain.Position {
	out := make([][]domain.Position, len(rings))
	for i, r := range rings {
		ring := make([]domain.Position, 0, len(r)+1)
		for _, p := range r {
			q := fromWGS84(p)
			ring = append(ring, domain.Position{q.X(), q.Y()})
		}
		out[i] = append(ring, ring[0])
	}
	return out
}

func identity(p orb.Point) orb.Point { return p }

// projections returns the conversions between ref and WGS 84.
func projections(ref domain.SpatialReference) (to, from orb.Projection, err error) {
	switch {
	case ref.IsWGS84():
		return identity, identity, nil
	case ref.IsWebMercator():
		return project.Mercator.ToWGS84, project.WGS84.ToMercator, nil
	}
	return nil, nil, fmt.Errorf("%w: wkid %d", domain.ErrUnsupportedSpatialReference, ref.WKID)
}
