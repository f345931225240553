package viewer

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/geoview/internal/api"
	"github.com/joeblew999/geoview/internal/humastar"
)

// Upload ingests a GeoJSON file and reports the outcome as a notification.
// Validation failures are shown to the user and never fail the request.
func (h *Handler) Upload(ctx context.Context, input *api.UploadInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		name, data, err := api.ReadUpload(&input.RawBody, api.UploadField)
		if err == nil {
			_, err = h.svc.Registry.Ingest(ctx, name, data)
		}
		if err != nil {
			slog.Debug("viewer upload rejected", "name", name, "error", err)
			sse.Error(api.Notice(err))
			return
		}
		sse.Success(api.NoticeAdded)
		h.patchRecords(ctx, sse)
	}), nil
}

// Style switches the basemap to the "style" signal.
func (h *Handler) Style(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	return h.Stream(func(sse humastar.SSE) {
		st, err := h.svc.Map.SetStyle(ctx, signals.String("style"))
		if err != nil {
			sse.Error(api.Notice(err))
			return
		}
		sse.Success("Basemap: " + st.Name)
	}), nil
}

// Visibility shows or hides the layer named by the "layerid" signal.
func (h *Handler) Visibility(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("layerid") {
		return nil, huma.Error400BadRequest("layerid is required")
	}
	return h.Stream(func(sse humastar.SSE) {
		id := signals.String("layerid")
		if err := h.svc.Map.SetVisibility(id, signals.Bool("visible")); err != nil {
			sse.Error(api.Notice(err))
			return
		}
		h.patchRecords(ctx, sse)
	}), nil
}
