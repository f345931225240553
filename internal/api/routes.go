// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/geoview/internal/draw"
	"github.com/joeblew999/geoview/internal/geodata"
	"github.com/joeblew999/geoview/internal/humastar"
	"github.com/joeblew999/geoview/internal/mapview"
	"github.com/joeblew999/geoview/internal/service"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Registry *service.Registry
	Map      *service.MapService
	Draw     *service.DrawService
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Layer ID" example:"geojson-01920f3e-7c4a-7cc1-9b1e-3f1d2a4b5c6d"`
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// RecordSummary is a list entry without the GeoJSON payload.
type RecordSummary struct {
	ID       string `json:"id" doc:"Layer ID"`
	Name     string `json:"name" doc:"Source file name"`
	Features int    `json:"features" doc:"Number of features"`
	Visible  bool   `json:"visible" doc:"Whether the layer is shown on the map"`
}

// RecordBody is a full record plus its layer state.
type RecordBody struct {
	service.Record
	Visible bool `json:"visible" doc:"Whether the layer is shown on the map"`
}

var (
	hideLayer = humastar.ActionDef{Rel: "hide", Pattern: "/api/v1/map/layers/%s/visibility", Method: http.MethodPut, Title: "Hide layer"}
	showLayer = humastar.ActionDef{Rel: "show", Pattern: "/api/v1/map/layers/%s/visibility", Method: http.MethodPut, Title: "Show layer"}
)

// Actions offers hide or show depending on the layer's state.
func (b RecordBody) Actions() []humastar.Action {
	if b.Visible {
		return []humastar.Action{hideLayer.For(b.ID)}
	}
	return []humastar.Action{showLayer.For(b.ID)}
}

type UploadInput struct {
	RawBody multipart.Form
}

type IngestBody struct {
	ID       string         `json:"id" doc:"Generated layer ID"`
	Name     string         `json:"name" doc:"Source file name"`
	Features int            `json:"features" doc:"Number of features"`
	Bounds   geodata.Bounds `json:"bounds" doc:"Enclosing rectangle as [[minLon,minLat],[maxLon,maxLat]], null when there are no coordinates"`
	Fitted   bool           `json:"fitted" doc:"Whether the viewport was moved to the bounds"`
	Replaced bool           `json:"replaced" doc:"Whether a layer with the same ID was replaced"`
	Message  string         `json:"message" doc:"Result message"`
}

type StylesBody struct {
	Active string          `json:"active" doc:"Active style URL"`
	Styles []mapview.Style `json:"styles" doc:"Available basemap styles"`
}

type StyleInput struct {
	Body struct {
		Style string `json:"style" minLength:"1" doc:"Catalog style name or style URL" example:"OSM"`
	}
}

type VisibilityInput struct {
	IDInput
	Body struct {
		Visible bool `json:"visible" doc:"Show or hide the layer"`
	}
}

type ModeInput struct {
	Body struct {
		Mode string `json:"mode" doc:"Drawing mode" example:"polygon"`
	}
}

type ExportInput struct {
	RawBody []byte `contentType:"application/json"`
}

type ExportOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	ExportedFeatures   int    `header:"X-Exported-Features"`
	Body               []byte
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterRecords registers the persisted upload routes.
func (h *APIHandler) RegisterRecords(api huma.API) {
	huma.Get(api, "/api/v1/records", h.ListRecords, huma.OperationTags("records"))
	huma.Post(api, "/api/v1/records", h.CreateRecord, huma.OperationTags("records"), func(o *huma.Operation) {
		o.DefaultStatus = http.StatusCreated
		o.MaxBodyBytes = MaxUploadBytes + 1<<20
	})
	huma.Delete(api, "/api/v1/records", h.ClearRecords, huma.OperationTags("records"))
	huma.Get(api, "/api/v1/records/{id}", h.GetRecord, huma.OperationTags("records"))
}

// RegisterMap registers basemap and layer routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/api/v1/styles", h.GetStyles, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/map", h.GetMap, huma.OperationTags("map"))
	huma.Put(api, "/api/v1/map/style", h.PutStyle, huma.OperationTags("map"))
	huma.Put(api, "/api/v1/map/layers/{id}/visibility", h.PutVisibility, huma.OperationTags("map"))
}

// RegisterDraw registers drawing toolbar routes.
func (h *APIHandler) RegisterDraw(api huma.API) {
	huma.Get(api, "/api/v1/draw", h.GetDraw, huma.OperationTags("draw"))
	huma.Put(api, "/api/v1/draw/mode", h.PutMode, huma.OperationTags("draw"))
	huma.Post(api, "/api/v1/draw/clear", h.ClearDrawing, huma.OperationTags("draw"))
	huma.Put(api, "/api/v1/draw/style", h.PutDrawStyle, huma.OperationTags("draw"))
	huma.Post(api, "/api/v1/draw/export", h.ExportDrawing, huma.OperationTags("draw"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) ListRecords(ctx context.Context, input *humastar.PageInput) (*struct {
	Body humastar.PageBody[RecordSummary]
}, error) {
	records, err := h.svc.Registry.Records().List(ctx)
	if err != nil {
		return nil, Error(err)
	}
	hidden := h.svc.Hidden()
	summaries := make([]RecordSummary, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, Summarize(r, !hidden[r.ID]))
	}
	return &struct {
		Body humastar.PageBody[RecordSummary]
	}{Body: humastar.Paginate(summaries, *input)}, nil
}

func (h *APIHandler) GetRecord(ctx context.Context, input *IDInput) (*struct{ Body RecordBody }, error) {
	rec, ok, err := h.svc.Registry.Records().Get(ctx, input.ID)
	if err != nil {
		return nil, Error(err)
	}
	if !ok {
		return nil, huma.Error404NotFound("record not found")
	}
	return &struct{ Body RecordBody }{Body: RecordBody{Record: rec, Visible: !h.svc.Hidden()[rec.ID]}}, nil
}

func (h *APIHandler) CreateRecord(ctx context.Context, input *UploadInput) (*struct{ Body IngestBody }, error) {
	name, data, err := ReadUpload(&input.RawBody, UploadField)
	if err != nil {
		return nil, Error(err)
	}
	res, err := h.svc.Registry.Ingest(ctx, name, data)
	if err != nil {
		return nil, Error(err)
	}
	return &struct{ Body IngestBody }{Body: IngestBody{
		ID:       res.ID,
		Name:     res.Name,
		Features: res.Collection.FeatureCount(),
		Bounds:   res.Bounds,
		Fitted:   res.Fitted,
		Replaced: res.Replaced,
		Message:  NoticeAdded,
	}}, nil
}

func (h *APIHandler) ClearRecords(ctx context.Context, input *struct{}) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Registry.Clear(ctx); err != nil {
		return nil, Error(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Uploads cleared"}}, nil
}

func (h *APIHandler) GetStyles(ctx context.Context, input *struct{}) (*struct{ Body StylesBody }, error) {
	return &struct{ Body StylesBody }{Body: StylesBody{
		Active: h.svc.Map.State().Style,
		Styles: h.svc.Map.Styles(),
	}}, nil
}

func (h *APIHandler) GetMap(ctx context.Context, input *struct{}) (*struct{ Body mapview.State }, error) {
	return &struct{ Body mapview.State }{Body: h.svc.Map.State()}, nil
}

func (h *APIHandler) PutStyle(ctx context.Context, input *StyleInput) (*struct{ Body mapview.State }, error) {
	if _, err := h.svc.Map.SetStyle(ctx, input.Body.Style); err != nil {
		return nil, Error(err)
	}
	return &struct{ Body mapview.State }{Body: h.svc.Map.State()}, nil
}

func (h *APIHandler) PutVisibility(ctx context.Context, input *VisibilityInput) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Map.SetVisibility(input.ID, input.Body.Visible); err != nil {
		return nil, Error(err)
	}
	msg := "Layer hidden"
	if input.Body.Visible {
		msg = "Layer shown"
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: msg}}, nil
}

func (h *APIHandler) GetDraw(ctx context.Context, input *struct{}) (*struct{ Body service.DrawState }, error) {
	return &struct{ Body service.DrawState }{Body: h.svc.Draw.State()}, nil
}

func (h *APIHandler) PutMode(ctx context.Context, input *ModeInput) (*struct{ Body service.DrawState }, error) {
	if _, err := h.svc.Draw.SetMode(input.Body.Mode); err != nil {
		return nil, Error(err)
	}
	return &struct{ Body service.DrawState }{Body: h.svc.Draw.State()}, nil
}

func (h *APIHandler) ClearDrawing(ctx context.Context, input *struct{}) (*struct{ Body MessageBody }, error) {
	h.svc.Draw.Clear()
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Drawing cleared"}}, nil
}

func (h *APIHandler) PutDrawStyle(ctx context.Context, input *struct{ Body draw.Style }) (*struct{ Body service.DrawState }, error) {
	if err := h.svc.Draw.SetStyle(input.Body); err != nil {
		return nil, Error(err)
	}
	return &struct{ Body service.DrawState }{Body: h.svc.Draw.State()}, nil
}

func (h *APIHandler) ExportDrawing(ctx context.Context, input *ExportInput) (*ExportOutput, error) {
	out, n, err := h.svc.Draw.Export(input.RawBody)
	if err != nil {
		return nil, Error(err)
	}
	return &ExportOutput{
		ContentType:        "application/geo+json",
		ContentDisposition: `attachment; filename="` + draw.ExportFileName + `"`,
		ExportedFeatures:   n,
		Body:               out,
	}, nil
}

// Hidden returns the IDs of layers currently hidden on the map.
func (s *Services) Hidden() map[string]bool {
	hidden := map[string]bool{}
	for _, l := range s.Map.State().Layers {
		if !l.Visible {
			hidden[l.ID] = true
		}
	}
	return hidden
}

// Summarize builds a list entry for r.
func Summarize(r service.Record, visible bool) RecordSummary {
	s := RecordSummary{ID: r.ID, Name: r.Name, Visible: visible}
	if c, err := geodata.Validate(r.Data); err == nil {
		s.Features = c.FeatureCount()
	}
	return s
}
