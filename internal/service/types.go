// Package service contains the viewer's business logic: the persisted upload
// list, GeoJSON ingestion onto the map, basemap switching and drawing state.
package service

import (
	"encoding/json"

	"github.com/joeblew999/geoview/internal/draw"
	"github.com/joeblew999/geoview/internal/geodata"
)

// Record is one ingested GeoJSON file as persisted in the upload list.
// Records are never edited; they disappear only when the list is cleared.
type Record struct {
	ID   string          `json:"id" doc:"Generated layer identifier" example:"geojson-01920f3e-7c4a-7cc1-9b1e-3f1d2a4b5c6d"`
	Name string          `json:"name" doc:"Source file name" example:"stations.geojson"`
	Data json.RawMessage `json:"data" doc:"The uploaded FeatureCollection, unchanged"`
}

// IngestResult describes a successful upload.
type IngestResult struct {
	ID         string
	Name       string
	Collection *geodata.Collection
	Bounds     geodata.Bounds
	// Fitted is false when the collection had no coordinates and the
	// viewport was left alone.
	Fitted bool
	// Replaced is true when a layer with the same ID was already on the map.
	Replaced bool
}

// DrawState is the drawing toolbar state.
type DrawState struct {
	Mode  draw.Mode   `json:"mode" doc:"Active drawing mode" example:"polygon"`
	Modes []draw.Mode `json:"modes" doc:"Available drawing modes"`
	Style draw.Style  `json:"style" doc:"Style applied to new shapes"`
}

// Drawing command ops sent to the page.
const (
	DrawOpSetMode  = "setMode"
	DrawOpClear    = "clear"
	DrawOpSetStyle = "setStyle"
)

// DrawCommand is one drawing engine call.
type DrawCommand struct {
	Op    string      `json:"op"`
	Mode  draw.Mode   `json:"mode,omitempty"`
	Style *draw.Style `json:"style,omitempty"`
}
