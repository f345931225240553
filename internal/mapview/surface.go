// Package mapview is the server-side model of the browser map.
//
// A View mirrors what the map engine holds (style, sources, layers,
// visibility, last viewport request) and emits a Command for every change so
// the browser page can replay it onto MapLibre.
package mapview

import (
	"encoding/json"
	"errors"

	"github.com/joeblew999/geoview/internal/geodata"
)

var (
	ErrClosed         = errors.New("map view is closed")
	ErrSourceExists   = errors.New("source already exists")
	ErrSourceNotFound = errors.New("source not found")
	ErrSourceInUse    = errors.New("source is used by a layer")
	ErrLayerExists    = errors.New("layer already exists")
	ErrLayerNotFound  = errors.New("layer not found")
	ErrEmptyBounds    = errors.New("cannot fit empty bounds")
)

// Surface is the part of the map engine the ingestion flow talks to.
type Surface interface {
	HasSource(id string) bool
	HasLayer(id string) bool
	AddSource(id string, data json.RawMessage) error
	AddLayer(layer Layer) error
	RemoveLayer(id string) error
	RemoveSource(id string) error
	FitBounds(b geodata.Bounds, opts FitOptions) error
}

// Layer is a renderable layer bound to a source.
type Layer struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Source string         `json:"source"`
	Paint  map[string]any `json:"paint,omitempty"`
	Layout map[string]any `json:"layout,omitempty"`
}

// Upload layers render every feature as a fixed circle.
const (
	CircleRadius = 6
	CircleColor  = "#FF5722"
)

// CircleLayer returns the point layer used for uploaded collections.
func CircleLayer(id string) Layer {
	return Layer{
		ID:     id,
		Type:   "circle",
		Source: id,
		Paint: map[string]any{
			"circle-radius": CircleRadius,
			"circle-color":  CircleColor,
		},
	}
}
