// Package viewer contains the Datastar SSE handlers behind the viewer page.
package viewer

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/geoview/internal/api"
	"github.com/joeblew999/geoview/internal/humastar"
	"github.com/joeblew999/geoview/internal/mapview"
	"github.com/joeblew999/geoview/internal/metrics"
	"github.com/joeblew999/geoview/internal/service"
	"github.com/joeblew999/geoview/internal/templates"
)

// Tag marks the viewer's SSE operations in the OpenAPI document.
const Tag = "viewer"

// Custom DOM events carrying commands to the page script.
const (
	EventMapCommand  = "map-command"
	EventDrawCommand = "draw-command"
)

// Page element selectors patched by the handlers.
const (
	recordList  = "#record-list"
	styleSelect = "#style-select"
)

// Handler serves the viewer's SSE endpoints.
type Handler struct {
	humastar.Handler
	svc *api.Services
	bus *service.EventBus
}

// NewHandler creates a viewer handler.
func NewHandler(svc *api.Services, bus *service.EventBus, renderer *templates.Renderer) *Handler {
	return &Handler{
		Handler: humastar.Handler{Renderer: renderer},
		svc:     svc,
		bus:     bus,
	}
}

func (h *Handler) RegisterRoutes(a huma.API) {
	huma.Get(a, "/api/v1/viewer/events", h.Events, huma.OperationTags(Tag))
	huma.Get(a, "/api/v1/viewer/records", h.Records, huma.OperationTags(Tag))
	huma.Post(a, "/api/v1/viewer/upload", h.Upload, huma.OperationTags(Tag), func(o *huma.Operation) {
		o.MaxBodyBytes = api.MaxUploadBytes + 1<<20
	})
	huma.Post(a, "/api/v1/viewer/style", h.Style, huma.OperationTags(Tag))
	huma.Post(a, "/api/v1/viewer/visibility", h.Visibility, huma.OperationTags(Tag))
}

// Events streams map and drawing commands to the page. A new stream first
// receives the commands that rebuild the current state.
func (h *Handler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		ch := h.bus.Subscribe()
		defer h.bus.Unsubscribe(ch)
		metrics.ViewerStreams.Inc()
		defer metrics.ViewerStreams.Dec()

		h.patchStyles(sse)
		for _, c := range h.svc.Map.Replay() {
			sse.Dispatch(EventMapCommand, c)
		}
		for _, c := range h.svc.Draw.Replay() {
			sse.Dispatch(EventDrawCommand, c)
		}
		h.patchRecords(ctx, sse)

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				h.forward(ctx, sse, ev)
			}
		}
	}), nil
}

func (h *Handler) forward(ctx context.Context, sse humastar.SSE, ev service.Event) {
	switch ev.Resource {
	case service.ResourceMap:
		sse.Dispatch(EventMapCommand, ev.Payload)
		switch ev.Action {
		case mapview.OpCreate:
			h.patchStyles(sse)
			h.patchRecords(ctx, sse)
		case mapview.OpSetVisibility:
			h.patchRecords(ctx, sse)
		}
	case service.ResourceDraw:
		sse.Dispatch(EventDrawCommand, ev.Payload)
	case service.ResourceRecords:
		h.patchRecords(ctx, sse)
	}
}

// Records patches the upload list.
func (h *Handler) Records(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		h.patchRecords(ctx, sse)
	}), nil
}

func (h *Handler) patchRecords(ctx context.Context, sse humastar.SSE) {
	html, err := h.renderRecords(ctx)
	if err != nil {
		sse.Error(api.Notice(err))
		return
	}
	sse.Patch(html, recordList)
}

func (h *Handler) renderRecords(ctx context.Context) (string, error) {
	records, err := h.svc.Registry.Records().List(ctx)
	if err != nil {
		return "", err
	}
	hidden := h.svc.Hidden()
	items := make([]any, 0, len(records))
	for _, r := range records {
		items = append(items, api.Summarize(r, !hidden[r.ID]))
	}
	return h.RenderList("record-card", items, "No uploads", "Add a GeoJSON FeatureCollection to see it on the map."), nil
}

func (h *Handler) patchStyles(sse humastar.SSE) {
	active := h.svc.Map.State().Style
	var opts []humastar.SelectOptionData
	for _, s := range h.svc.Map.Styles() {
		opts = append(opts, humastar.SelectOptionData{Value: s.URL, Label: s.Name, Selected: s.URL == active})
	}
	sse.Patch(h.RenderSelect("", opts), styleSelect)
	sse.Signals(map[string]any{"style": active})
}
