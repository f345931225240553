package mapview

import "github.com/joeblew999/geoview/internal/geodata"

// Viewport fit parameters for uploaded collections.
const (
	FitPadding = 20
	FitMaxZoom = 15
)

// FitOptions controls how the map frames a rectangle.
type FitOptions struct {
	Padding int     `json:"padding"`
	MaxZoom float64 `json:"maxZoom"`
}

// DefaultFitOptions returns the padding and zoom clamp used after upload.
func DefaultFitOptions() FitOptions {
	return FitOptions{Padding: FitPadding, MaxZoom: FitMaxZoom}
}

// FitToBounds frames b on s. Empty bounds leave the viewport alone and
// report false.
func FitToBounds(s Surface, b geodata.Bounds) (bool, error) {
	if b.IsEmpty() {
		return false, nil
	}
	if err := s.FitBounds(b, DefaultFitOptions()); err != nil {
		return false, err
	}
	return true, nil
}
