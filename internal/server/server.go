package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/geoview/internal/api"
	"github.com/joeblew999/geoview/internal/api/viewer"
	"github.com/joeblew999/geoview/internal/humastar"
	"github.com/joeblew999/geoview/internal/mapview"
	"github.com/joeblew999/geoview/internal/metrics"
	"github.com/joeblew999/geoview/internal/service"
	"github.com/joeblew999/geoview/internal/store"
	"github.com/joeblew999/geoview/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host         string
	Port         string
	DataDir      string
	Store        store.Kind
	StylesFile   string // optional YAML style catalog
	TemplatesDir string // optional fragments/*.html overriding the embedded ones
}

// Server is the geoview HTTP server. It owns the map view, the event bus
// and the upload store.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	links    *humastar.Links
	store    store.Store
	bus      *service.EventBus
	view     *mapview.View
	services *api.Services
	renderer *templates.Renderer
}

// New creates a server and redraws the persisted uploads on its map.
func New(ctx context.Context, cfg Config) (*Server, error) {
	catalog := mapview.DefaultCatalog()
	if cfg.StylesFile != "" {
		c, err := mapview.LoadCatalog(cfg.StylesFile)
		if err != nil {
			return nil, err
		}
		catalog = c
	}

	renderer, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("loading fragment templates: %w", err)
	}
	if cfg.TemplatesDir != "" {
		if err := renderer.Reload(cfg.TemplatesDir); err != nil {
			return nil, fmt.Errorf("loading fragment templates from %s: %w", cfg.TemplatesDir, err)
		}
		slog.Info("using fragment templates from disk", "dir", cfg.TemplatesDir)
	}

	st, err := store.Open(ctx, cfg.Store, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store, err)
	}

	bus := service.NewEventBus()
	view := mapview.NewView(catalog.Default().URL, catalog.CenterPoint(), catalog.Zoom, func(c mapview.Command) {
		bus.Publish(service.Event{Resource: service.ResourceMap, Action: c.Op, ID: c.ID, Payload: c})
	})
	registry := service.NewRegistry(service.NewRecordService(st), view, service.WithPublisher(bus.Publish))
	services := &api.Services{
		Registry: registry,
		Map:      service.NewMapService(view, catalog, registry),
		Draw: service.NewDrawService(func(c service.DrawCommand) {
			bus.Publish(service.Event{Resource: service.ResourceDraw, Action: c.Op, Payload: c})
		}),
	}

	mux := http.NewServeMux()
	links := humastar.NewLinks(viewer.Tag)

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("geoview API", api.Version)
	humaConfig.Info.Description = "Map viewer API: upload GeoJSON layers, switch basemaps and control the drawing toolbar."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humago.New(mux, humaConfig),
		links:    links,
		store:    st,
		bus:      bus,
		view:     view,
		services: services,
		renderer: renderer,
	}
	s.routes()

	n, err := registry.Restore(ctx)
	if err != nil {
		slog.Warn("some uploads were not restored", "error", err)
	}
	slog.Info("map ready", "style", catalog.Default().Name, "store", cfg.Store, "uploads", n)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated API description.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Services returns the services behind the API.
func (s *Server) Services() *api.Services {
	return s.services
}

// Close disposes the map and closes the store.
func (s *Server) Close() error {
	return errors.Join(s.view.Close(), s.store.Close())
}

func (s *Server) routes() {
	// REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	api.NewInfoHandler(s.config.DataDir, string(s.config.Store), len(s.services.Map.Styles())).RegisterRoutes(s.humaAPI)

	// Viewer SSE routes using Huma + Datastar SDK
	viewer.NewHandler(s.services, s.bus, s.renderer).RegisterRoutes(s.humaAPI)

	s.links.Build(s.humaAPI)

	s.mux.Handle("/metrics", metrics.Handler())
	s.mux.HandleFunc("/viewer", s.handleViewer)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	for _, link := range s.links.For("/health") {
		w.Header().Add("Link", link)
	}
	w.Header().Add("Link", `</viewer>; rel="viewer"`)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "geoview",
		"status":  "running",
	})
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	page, err := templates.Page()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}
