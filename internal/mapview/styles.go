package mapview

import (
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"
)

// Style is a named basemap style document URL.
type Style struct {
	Name string `yaml:"name" json:"name" doc:"Display name" example:"OSM"`
	URL  string `yaml:"url" json:"url" doc:"Style document URL" example:"https://demotiles.maplibre.org/style.json"`
}

// Catalog lists the basemap styles offered in the sidebar and the initial camera.
// The first style is the default.
type Catalog struct {
	Styles []Style    `yaml:"styles" json:"styles"`
	Center [2]float64 `yaml:"center" json:"center"`
	Zoom   float64    `yaml:"zoom" json:"zoom"`
}

// DefaultCatalog returns the built-in styles.
func DefaultCatalog() Catalog {
	return Catalog{
		Styles: []Style{
			{Name: "Default (Streets)", URL: "https://api.maptiler.com/maps/streets-v2/style.json?key=QOBZwJCNf0crlImWg4V6"},
			{Name: "OSM", URL: "https://demotiles.maplibre.org/style.json"},
			{Name: "Aquarelle", URL: "https://basemaps.cartocdn.com/gl/positron-gl-style/style.json"},
			{Name: "Satellite", URL: "https://api.maptiler.com/maps/satellite/style.json?key=QOBZwJCNf0crlImWg4V6"},
		},
		Center: [2]float64{53.6880, 32.4279},
		Zoom:   5,
	}
}

// LoadCatalog reads a YAML catalog. Missing center and zoom fall back to
// the built-in camera.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("reading styles: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parsing styles: %w", err)
	}
	if len(c.Styles) == 0 {
		return Catalog{}, errors.New("styles file lists no styles")
	}
	for i, s := range c.Styles {
		if s.URL == "" {
			return Catalog{}, fmt.Errorf("style %d (%q) has no url", i, s.Name)
		}
		if s.Name == "" {
			c.Styles[i].Name = s.URL
		}
	}

	def := DefaultCatalog()
	if c.Center == [2]float64{} {
		c.Center = def.Center
	}
	if c.Zoom == 0 {
		c.Zoom = def.Zoom
	}
	return c, nil
}

// Default returns the style the map starts with.
func (c Catalog) Default() Style {
	if len(c.Styles) == 0 {
		return Style{}
	}
	return c.Styles[0]
}

// Lookup finds a style by name or URL.
func (c Catalog) Lookup(nameOrURL string) (Style, bool) {
	for _, s := range c.Styles {
		if s.Name == nameOrURL || s.URL == nameOrURL {
			return s, true
		}
	}
	return Style{}, false
}

// CenterPoint returns the initial camera center.
func (c Catalog) CenterPoint() orb.Point {
	return orb.Point(c.Center)
}
