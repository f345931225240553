package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.1.0"

type InfoHandler struct {
	dataDir string
	store   string
	styles  int
}

func NewInfoHandler(dataDir, store string, styles int) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, store: store, styles: styles}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	Store    string   `json:"store" doc:"Upload list backend"`
	Styles   int      `json:"styles" doc:"Number of basemap styles"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "geoview",
		Version:  Version,
		DataDir:  h.dataDir,
		Store:    h.store,
		Styles:   h.styles,
		Features: []string{"geojson-upload", "basemap-styles", "drawing", "metrics"},
	}}, nil
}
