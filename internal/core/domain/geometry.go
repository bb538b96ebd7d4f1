package domain

import (
	"encoding/json"
	"math"
)

// GeometryKind is the shape kind reported by the sketch tool.
type GeometryKind string

const (
	KindPoint      GeometryKind = "point"
	KindPolygon    GeometryKind = "polygon"
	KindPolyline   GeometryKind = "polyline"
	KindMultipoint GeometryKind = "multipoint"
	KindExtent     GeometryKind = "extent"
)

// Well-known spatial reference ids.
const (
	WKIDWGS84             = 4326
	WKIDWebMercator       = 3857
	WKIDWebMercatorEsri   = 102100
	WKIDWebMercatorLegacy = 102113
)

// SpatialReference identifies the coordinate system of a geometry.
// A zero WKID is treated as WGS 84.
type SpatialReference struct {
	WKID int `json:"wkid"`
}

// Normalized returns the reference with the zero value mapped to WGS 84.
func (s SpatialReference) Normalized() SpatialReference {
	if s.WKID == 0 {
		return SpatialReference{WKID: WKIDWGS84}
	}
	return s
}

// IsWGS84 reports whether coordinates are longitude/latitude degrees.
func (s SpatialReference) IsWGS84() bool {
	return s.WKID == 0 || s.WKID == WKIDWGS84
}

// IsWebMercator reports whether coordinates are spherical mercator meters.
func (s SpatialReference) IsWebMercator() bool {
	switch s.WKID {
	case WKIDWebMercator, WKIDWebMercatorEsri, WKIDWebMercatorLegacy:
		return true
	}
	return false
}

// Geometry is a sketch geometry. The set of implementations is closed:
// PointGeometry and PolygonGeometry.
type Geometry interface {
	Kind() GeometryKind
	Ref() SpatialReference
	isGeometry()
}

// Position is an (x, y) coordinate pair. For WGS 84, x is longitude and y latitude.
type Position [2]float64

// X returns the first ordinate.
func (p Position) X() float64 { return p[0] }

// Y returns the second ordinate.
func (p Position) Y() float64 { return p[1] }

// PointGeometry is a single sketched location.
type PointGeometry struct {
	X                float64          `json:"x"`
	Y                float64          `json:"y"`
	SpatialReference SpatialReference `json:"spatialReference"`
}

func (PointGeometry) Kind() GeometryKind      { return KindPoint }
func (g PointGeometry) Ref() SpatialReference { return g.SpatialReference }
func (PointGeometry) isGeometry()             {}

// Valid reports whether both ordinates are finite numbers.
func (g PointGeometry) Valid() bool {
	return isFinite(g.X) && isFinite(g.Y)
}

// MarshalJSON emits the Esri JSON form with an explicit type tag.
func (g PointGeometry) MarshalJSON() ([]byte, error) {
	type alias PointGeometry
	return json.Marshal(struct {
		Type GeometryKind `json:"type"`
		alias
	}{KindPoint, alias(g)})
}

// PolygonGeometry is a sketched polygon. Rings[0] is the outer ring; further
// rings are holes.
type PolygonGeometry struct {
	Rings            [][]Position     `json:"rings"`
	SpatialReference SpatialReference `json:"spatialReference"`
}

func (PolygonGeometry) Kind() GeometryKind      { return KindPolygon }
func (g PolygonGeometry) Ref() SpatialReference { return g.SpatialReference }
func (PolygonGeometry) isGeometry()             {}

// OuterRing returns the first ring, or nil if the polygon has none.
func (g PolygonGeometry) OuterRing() []Position {
	if len(g.Rings) == 0 {
		return nil
	}
	return g.Rings[0]
}

// MarshalJSON emits the Esri JSON form with an explicit type tag.
func (g PolygonGeometry) MarshalJSON() ([]byte, error) {
	type alias PolygonGeometry
	return json.Marshal(struct {
		Type GeometryKind `json:"type"`
		alias
	}{KindPolygon, alias(g)})
}

// LinearUnit is a distance unit accepted by the geometry engine.
type LinearUnit string

const (
	UnitMeters     LinearUnit = "meters"
	UnitKilometers LinearUnit = "kilometers"
	UnitFeet       LinearUnit = "feet"
	UnitMiles      LinearUnit = "miles"
)

// Meters converts a distance in u to meters. ok is false for unknown units.
func (u LinearUnit) Meters(distance float64) (float64, bool) {
	switch u {
	case UnitMeters, "":
		return distance, true
	case UnitKilometers:
		return distance * 1000, true
	case UnitFeet:
		return distance * 0.3048, true
	case UnitMiles:
		return distance * 1609.344, true
	}
	return 0, false
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
