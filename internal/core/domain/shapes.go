package domain

import "time"

// Point is a captured point record. Identity is exact coordinate equality.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PointFromGeometry maps x to longitude and y to latitude.
func PointFromGeometry(g PointGeometry) Point {
	return Point{Latitude: g.Y, Longitude: g.X}
}

// Polygon is a captured polygon record holding its normalised outer ring.
type Polygon struct {
	Type     GeometryKind `json:"type"`
	Vertices []Point      `json:"vertices"`
}

// PointsEqual reports whether two points are duplicates. No tolerance is applied.
func PointsEqual(a, b Point) bool {
	return a.Latitude == b.Latitude && a.Longitude == b.Longitude
}

// VerticesEqual reports whether two vertex sequences are duplicates: same
// length and equal vertices at every index. A rotated or reversed ring is
// a different polygon.
func VerticesEqual(a, b []Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !PointsEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// RingVertices converts a ring to vertex records and removes the closing
// vertex when the ring has more than two vertices and its ends coincide.
func RingVertices(ring []Position) []Point {
	vertices := make([]Point, 0, len(ring))
	for _, p := range ring {
		vertices = append(vertices, Point{Latitude: p.Y(), Longitude: p.X()})
	}
	if n := len(vertices); n > 2 && PointsEqual(vertices[0], vertices[n-1]) {
		vertices = vertices[:n-1]
	}
	return vertices
}

// DrawState mirrors the sketch tool's create-event state.
type DrawState string

const (
	DrawStart    DrawState = "start"
	DrawActive   DrawState = "active"
	DrawComplete DrawState = "complete"
	DrawCancel   DrawState = "cancel"
)

// DrawEvent is a sketch create event delivered by a map client.
type DrawEvent struct {
	State    DrawState
	Geometry Geometry
	Color    Color
}

// CaptureEvent announces that a new shape was appended to a session.
type CaptureEvent struct {
	SessionID  string       `json:"session_id"`
	Kind       GeometryKind `json:"kind"`
	Point      *Point       `json:"point,omitempty"`
	Polygon    *Polygon     `json:"polygon,omitempty"`
	WKID       int          `json:"wkid"`
	CapturedAt time.Time    `json:"captured_at"`
}

// ArchivedShape is a capture event as persisted in the archive.
type ArchivedShape struct {
	ID         string       `json:"id"`
	SessionID  string       `json:"session_id"`
	Kind       GeometryKind `json:"kind"`
	WKID       int          `json:"wkid"`
	Vertices   []Point      `json:"vertices"`
	CapturedAt time.Time    `json:"captured_at"`
	CreatedAt  time.Time    `json:"created_at"`
}

// SessionState is a read-only view of a sketch session.
type SessionState struct {
	SessionID   string         `json:"session_id"`
	Points      []Point        `json:"points"`
	Polygons    []Polygon      `json:"polygons"`
	ActivePoint *PointGeometry `json:"active_point,omitempty"`
	PointDrawn  bool           `json:"point_drawn"`
	Radius      float64        `json:"radius"`
	PendingDraw bool           `json:"pending_draw"`
}
