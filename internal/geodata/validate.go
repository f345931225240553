// Package geodata parses uploaded GeoJSON and computes the rectangle that
// encloses it.
package geodata

import (
	"bytes"
	"encoding/json"
	"errors"
)

// TypeFeatureCollection is the only top-level GeoJSON type accepted for upload.
const TypeFeatureCollection = "FeatureCollection"

var (
	// ErrNoFile is returned when an upload carries no file at all.
	ErrNoFile = errors.New("no file selected")
	// ErrParse is returned when the upload is not well-formed JSON.
	ErrParse = errors.New("error parsing geojson file")
	// ErrSchema is returned when the top-level type is not a FeatureCollection.
	ErrSchema = errors.New("invalid geojson file")
)

// Collection is a validated FeatureCollection.
// Raw holds the uploaded bytes untouched; Features is a shallow view used
// only for bounds extraction.
type Collection struct {
	Raw      json.RawMessage
	Features []Feature
}

// Feature is the part of a GeoJSON feature the viewer looks at.
type Feature struct {
	Geometry json.RawMessage `json:"geometry"`
}

// Validate parses text and accepts it only when the top-level type is exactly
// "FeatureCollection". Features are not checked individually.
func Validate(text []byte) (*Collection, error) {
	text = bytes.TrimSpace(text)
	if len(text) == 0 || !json.Valid(text) {
		return nil, ErrParse
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(text, &envelope); err != nil {
		// valid JSON, but not an object
		return nil, ErrSchema
	}

	var typ string
	if err := json.Unmarshal(envelope["type"], &typ); err != nil || typ != TypeFeatureCollection {
		return nil, ErrSchema
	}

	c := &Collection{Raw: json.RawMessage(text)}

	var rawFeatures []json.RawMessage
	if err := json.Unmarshal(envelope["features"], &rawFeatures); err != nil {
		return c, nil
	}
	c.Features = make([]Feature, 0, len(rawFeatures))
	for _, rf := range rawFeatures {
		var f Feature
		if err := json.Unmarshal(rf, &f); err != nil {
			f = Feature{}
		}
		c.Features = append(c.Features, f)
	}
	return c, nil
}

// FeatureCount returns the number of entries in the features array.
func (c *Collection) FeatureCount() int {
	if c == nil {
		return 0
	}
	return len(c.Features)
}
