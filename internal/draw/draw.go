// Package draw holds the drawing toolbar vocabulary and the export filter
// applied to snapshots taken from the browser drawing engine.
package draw

import (
	"errors"
	"fmt"
	"regexp"
)

// Mode is a drawing engine mode name, passed through verbatim.
type Mode string

const (
	ModeFreehand   Mode = "freehand"
	ModePolygon    Mode = "polygon"
	ModeRectangle  Mode = "rectangle"
	ModeCircle     Mode = "circle"
	ModeLineString Mode = "linestring"
	ModeSelect     Mode = "select"
	ModeStatic     Mode = "static"
)

// Modes lists the modes offered on the toolbar, in display order.
var Modes = []Mode{ModeFreehand, ModePolygon, ModeRectangle, ModeCircle, ModeLineString, ModeSelect, ModeStatic}

var (
	ErrUnknownMode  = errors.New("unknown drawing mode")
	ErrInvalidStyle = errors.New("invalid drawing style")
)

// ParseMode accepts only the toolbar modes.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Style is the stroke and fill applied to newly drawn shapes.
type Style struct {
	StrokeColor string  `json:"strokeColor" doc:"Outline color" example:"#3388ff" default:"#3388ff"`
	FillColor   string  `json:"fillColor" doc:"Fill color" example:"#3388ff" default:"#3388ff"`
	StrokeWidth float64 `json:"strokeWidth" minimum:"0" maximum:"50" doc:"Outline width in pixels" example:"2" default:"2"`
	FillOpacity float64 `json:"fillOpacity" minimum:"0" maximum:"1" doc:"Fill opacity (0-1)" example:"0.3" default:"0.3"`
}

// DefaultStyle is used until the user picks another.
func DefaultStyle() Style {
	return Style{StrokeColor: "#3388ff", FillColor: "#3388ff", StrokeWidth: 2, FillOpacity: 0.3}
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// Validate checks colors are hex and numbers are in range.
func (s Style) Validate() error {
	if !hexColor.MatchString(s.StrokeColor) {
		return fmt.Errorf("%w: stroke color %q", ErrInvalidStyle, s.StrokeColor)
	}
	if !hexColor.MatchString(s.FillColor) {
		return fmt.Errorf("%w: fill color %q", ErrInvalidStyle, s.FillColor)
	}
	if s.StrokeWidth < 0 || s.StrokeWidth > 50 {
		return fmt.Errorf("%w: stroke width %v", ErrInvalidStyle, s.StrokeWidth)
	}
	if s.FillOpacity < 0 || s.FillOpacity > 1 {
		return fmt.Errorf("%w: fill opacity %v", ErrInvalidStyle, s.FillOpacity)
	}
	return nil
}
