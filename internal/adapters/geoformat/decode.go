// Package geoformat converts sketch geometries between the domain model and
// the wire formats clients and storage use: Esri JSON, GeoJSON and WKB.
package geoformat

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/geosketch/internal/core/domain"
)

// esriGeometry holds every field an Esri JSON geometry may carry.
type esriGeometry struct {
	Type             string                   `json:"type"`
	X                *float64                 `json:"x"`
	Y                *float64                 `json:"y"`
	Rings            [][][]float64            `json:"rings"`
	Paths            json.RawMessage          `json:"paths"`
	Points           json.RawMessage          `json:"points"`
	XMin             *float64                 `json:"xmin"`
	SpatialReference *domain.SpatialReference `json:"spatialReference"`
	Coordinates      json.RawMessage          `json:"coordinates"`
}

// DecodeGeometry parses an Esri JSON or GeoJSON geometry. Only points and
// polygons are returned; every other kind yields domain.ErrInvalidGeometryKind.
// GeoJSON input is always WGS 84.
func DecodeGeometry(data []byte) (domain.Geometry, error) {
	var raw esriGeometry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidGeometry, err)
	}
	if raw.Coordinates != nil {
		return decodeGeoJSON(data)
	}
	return decodeEsri(&raw)
}

func decodeEsri(raw *esriGeometry) (domain.Geometry, error) {
	ref := domain.SpatialReference{WKID: domain.WKIDWGS84}
	if raw.SpatialReference != nil {
		ref = raw.SpatialReference.Normalized()
	}

	kind := domain.GeometryKind(raw.Type)
	if kind == "" {
		switch {
		case raw.X != nil || raw.Y != nil:
			kind = domain.KindPoint
		case raw.Rings != nil:
			kind = domain.KindPolygon
		case raw.Paths != nil:
			kind = domain.KindPolyline
		case raw.Points != nil:
			kind = domain.KindMultipoint
		case raw.XMin != nil:
			kind = domain.KindExtent
		default:
			return nil, fmt.Errorf("%w: cannot determine geometry type", domain.ErrInvalidGeometry)
		}
	}

	switch kind {
	case domain.KindPoint:
		if raw.X == nil || raw.Y == nil {
			return nil, fmt.Errorf("%w: point without x/y", domain.ErrInvalidGeometry)
		}
		return domain.PointGeometry{X: *raw.X, Y: *raw.Y, SpatialReference: ref}, nil

	case domain.KindPolygon:
		rings := make([][]domain.Position, 0, len(raw.Rings))
		for i, r := range raw.Rings {
			ring := make([]domain.Position, 0, len(r))
			for j, c := range r {
				if len(c) < 2 {
					return nil, fmt.Errorf("%w: ring %d vertex %d has %d ordinates", domain.ErrInvalidGeometry, i, j, len(c))
				}
				ring = append(ring, domain.Position{c[0], c[1]})
			}
			rings = append(rings, ring)
		}
		if len(rings) == 0 || len(rings[0]) == 0 {
			return nil, fmt.Errorf("%w: polygon has no rings", domain.ErrInvalidGeometry)
		}
		return domain.PolygonGeometry{Rings: rings, SpatialReference: ref}, nil

	case domain.KindPolyline, domain.KindMultipoint, domain.KindExtent:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidGeometryKind, kind)
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrInvalidGeometryKind, kind)
}

func decodeGeoJSON(data []byte) (domain.Geometry, error) {
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidGeometry, err)
	}
	wgs84 := domain.SpatialReference{WKID: domain.WKIDWGS84}

	switch c := g.Coordinates.(type) {
	case orb.Point:
		return domain.PointGeometry{X: c.X(), Y: c.Y(), SpatialReference: wgs84}, nil
	case orb.Polygon:
		if len(c) == 0 || len(c[0]) == 0 {
			return nil, fmt.Errorf("%w: polygon has no rings", domain.ErrInvalidGeometry)
		}
		return domain.PolygonGeometry{Rings: fromOrbPolygon(c), SpatialReference: wgs84}, nil
	case orb.LineString, orb.MultiLineString:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidGeometryKind, domain.KindPolyline)
	case orb.MultiPoint:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidGeometryKind, domain.KindMultipoint)
	case nil:
		return nil, fmt.Errorf("%w: empty geometry", domain.ErrInvalidGeometry)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidGeometryKind, c.GeoJSONType())
	}
}

func fromOrbPolygon(p orb.Polygon) [][]domain.Position {
	rings := make([][]domain.Position, len(p))
	for i, r := range p {
		rings[i] = fromOrbRing(r)
	}
	return rings
}

func fromOrbRing(r orb.Ring) []domain.Position {
	ring := make([]domain.Position, len(r))
	for i, p := range r {
		ring[i] = domain.Position{p.X(), p.Y()}
	}
	return ring
}
