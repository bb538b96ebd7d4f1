package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Color is an RGBA colour. Alpha ranges from 0 to 1.
type Color struct {
	R, G, B uint8
	A       float64
}

var namedColors = map[string]Color{
	"red":    {255, 0, 0, 1},
	"green":  {0, 128, 0, 1},
	"blue":   {0, 0, 255, 1},
	"black":  {0, 0, 0, 1},
	"white":  {255, 255, 255, 1},
	"yellow": {255, 255, 0, 1},
	"orange": {255, 165, 0, 1},
	"purple": {128, 0, 128, 1},
	"gray":   {128, 128, 128, 1},
	"cyan":   {0, 255, 255, 1},
}

// DefaultDrawColor is used when a draw event carries no colour.
var DefaultDrawColor = Color{255, 0, 0, 1}

// ParseColor accepts a CSS colour name or #rrggbb.
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultDrawColor, nil
	}
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if len(s) == 7 && s[0] == '#' {
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err == nil {
			return Color{uint8(v >> 16), uint8(v >> 8), uint8(v), 1}, nil
		}
	}
	return Color{}, fmt.Errorf("unknown color %q", s)
}

// MarshalJSON encodes the colour as [r, g, b, a].
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal([]float64{float64(c.R), float64(c.G), float64(c.B), c.A})
}

// UnmarshalJSON accepts [r, g, b], [r, g, b, a] or a colour string.
func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseColor(s)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}
	var parts []float64
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("color: %w", err)
	}
	if len(parts) != 3 && len(parts) != 4 {
		return fmt.Errorf("color: expected 3 or 4 components, got %d", len(parts))
	}
	*c = Color{R: uint8(parts[0]), G: uint8(parts[1]), B: uint8(parts[2]), A: 1}
	if len(parts) == 4 {
		c.A = parts[3]
	}
	return nil
}

// SymbolType names a renderer symbol.
type SymbolType string

const (
	SymbolMarker SymbolType = "simple-marker"
	SymbolLine   SymbolType = "simple-line"
	SymbolFill   SymbolType = "simple-fill"
)

// Outline is the stroke drawn around a marker or fill.
type Outline struct {
	Color Color   `json:"color"`
	Width float64 `json:"width"`
}

// Symbol describes how a graphic is drawn.
type Symbol struct {
	Type    SymbolType `json:"type"`
	Style   string     `json:"style,omitempty"`
	Color   Color      `json:"color"`
	Size    float64    `json:"size,omitempty"`
	Width   float64    `json:"width,omitempty"`
	Outline *Outline   `json:"outline,omitempty"`
}

// Graphic is a renderable geometry with its symbol.
type Graphic struct {
	Geometry Geometry `json:"geometry"`
	Symbol   Symbol   `json:"symbol"`
}

// PointMarker is the circle drawn for a sketched point.
func PointMarker(c Color) Symbol {
	return Symbol{
		Type:    SymbolMarker,
		Style:   "circle",
		Color:   c,
		Size:    10,
		Outline: &Outline{Color: Color{255, 255, 255, 1}, Width: 1},
	}
}

// BufferFill is the translucent fill drawn for a point buffer.
func BufferFill() Symbol {
	return Symbol{
		Type:    SymbolFill,
		Color:   Color{0, 0, 255, 0.5},
		Outline: &Outline{Color: Color{0, 0, 0, 1}, Width: 1},
	}
}

// PolygonOutline is the stroke drawn for a sketched polygon.
func PolygonOutline() Symbol {
	return Symbol{
		Type:  SymbolLine,
		Color: Color{0, 0, 255, 1},
		Width: 2,
	}
}

// LayerUpdate is the snapshot broadcast to map clients after a layer change.
type LayerUpdate struct {
	SessionID string    `json:"session_id"`
	Graphics  []Graphic `json:"graphics"`
}
