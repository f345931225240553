package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/joeblew999/geoview/internal/mapview"
	"github.com/joeblew999/geoview/internal/metrics"
)

// ErrUnknownStyle is returned for a style that is neither in the catalog nor
// an absolute http(s) URL.
var ErrUnknownStyle = errors.New("unknown map style")

// MapService switches basemap styles and layer visibility on the view.
type MapService struct {
	view     *mapview.View
	catalog  mapview.Catalog
	registry *Registry
}

// NewMapService creates a map service. The view is owned by the caller.
func NewMapService(view *mapview.View, catalog mapview.Catalog, registry *Registry) *MapService {
	return &MapService{view: view, catalog: catalog, registry: registry}
}

// Styles returns the basemap catalog.
func (s *MapService) Styles() []mapview.Style {
	return s.catalog.Styles
}

// State returns a copy of the map state.
func (s *MapService) State() mapview.State {
	return s.view.Snapshot()
}

// Replay returns the commands that rebuild the map on a fresh page.
func (s *MapService) Replay() []mapview.Command {
	return s.view.Replay()
}

// ResolveStyle maps a catalog name or URL to a style.
func (s *MapService) ResolveStyle(nameOrURL string) (mapview.Style, error) {
	if st, ok := s.catalog.Lookup(nameOrURL); ok {
		return st, nil
	}
	u, err := url.Parse(nameOrURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return mapview.Style{}, fmt.Errorf("%w: %q", ErrUnknownStyle, nameOrURL)
	}
	return mapview.Style{Name: nameOrURL, URL: nameOrURL}, nil
}

// SetStyle recreates the map with another basemap and draws the persisted
// uploads again. Selecting the active style is a no-op.
func (s *MapService) SetStyle(ctx context.Context, nameOrURL string) (mapview.Style, error) {
	st, err := s.ResolveStyle(nameOrURL)
	if err != nil {
		return mapview.Style{}, err
	}
	if s.view.Style() == st.URL {
		return st, nil
	}
	if err := s.view.SetStyle(st.URL); err != nil {
		return mapview.Style{}, err
	}
	metrics.StyleChanges.WithLabelValues(s.styleLabel(st)).Inc()

	n, err := s.registry.Restore(ctx)
	if err != nil {
		slog.Warn("some uploads were not restored", "style", st.Name, "restored", n, "error", err)
	}
	slog.Info("map style changed", "style", st.Name, "generation", s.view.Generation(), "restored", n)
	return st, nil
}

// StyleLabelCustom is the metrics label for styles outside the catalog.
const StyleLabelCustom = "custom"

func (s *MapService) styleLabel(st mapview.Style) string {
	if c, ok := s.catalog.Lookup(st.URL); ok {
		return c.Name
	}
	return StyleLabelCustom
}

// SetVisibility shows or hides a layer.
func (s *MapService) SetVisibility(id string, visible bool) error {
	return s.view.SetVisibility(id, visible)
}
