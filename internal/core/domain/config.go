package domain

// MapConfig is the map view a client should open with.
type MapConfig struct {
	Basemap        string     `json:"basemap"`
	NextBasemap    string     `json:"next_basemap"`
	TogglePosition string     `json:"toggle_position"`
	Center         [2]float64 `json:"center"` // lon, lat
	Zoom           int        `json:"zoom"`
}

// CreateTools toggles the sketch creation tools.
type CreateTools struct {
	Point     bool `json:"point"`
	Polygon   bool `json:"polygon"`
	Polyline  bool `json:"polyline"`
	Rectangle bool `json:"rectangle"`
	Circle    bool `json:"circle"`
}

// SelectionTools toggles the sketch selection tools.
type SelectionTools struct {
	Lasso     bool `json:"lasso-selection"`
	Rectangle bool `json:"rectangle-selection"`
}

// SketchConfig is the sketch widget configuration served to clients.
type SketchConfig struct {
	CreationMode   string         `json:"creation_mode"`
	Position       string         `json:"position"`
	CreateTools    CreateTools    `json:"create_tools"`
	SelectionTools SelectionTools `json:"selection_tools"`
	UndoRedoMenu   bool           `json:"undo_redo_menu"`
	SettingsMenu   bool           `json:"settings_menu"`
}

// DefaultSketchConfig enables only point and polygon creation.
func DefaultSketchConfig() SketchConfig {
	return SketchConfig{
		CreationMode: "update",
		Position:     "top-right",
		CreateTools:  CreateTools{Point: true, Polygon: true},
	}
}

// ClientConfig bundles everything a map client needs at start-up.
type ClientConfig struct {
	Map           MapConfig    `json:"map"`
	Sketch        SketchConfig `json:"sketch"`
	DefaultRadius float64      `json:"default_radius"`
	RadiusUnit    LinearUnit   `json:"radius_unit"`
}
