// Package humastar runs Datastar SSE responses through Huma operations and
// renders the fragments they patch into the viewer page.
//
//	type RecordHandler struct {
//	    humastar.Handler
//	    records *service.RecordService
//	}
//
//	func (h *RecordHandler) List(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
//	    return h.Stream(func(sse humastar.SSE) {
//	        sse.Patch(h.RenderList("record-card", items, "No uploads", "Add a GeoJSON file"), "#record-list")
//	    }), nil
//	}
package humastar

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/geoview/internal/templates"
)

// Handler is embedded by handlers that answer with SSE.
type Handler struct {
	Renderer *templates.Renderer
}

// Stream runs fn against the response stream.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			fn(NewSSE(humaCtx))
		},
	}
}

// RenderList is [RenderList] with the handler's renderer.
func (h *Handler) RenderList(tmpl string, items []any, emptyTitle, emptyMsg string) string {
	return RenderList(h.Renderer, tmpl, items, emptyTitle, emptyMsg)
}

// RenderSelect renders select options, without a placeholder when placeholder is empty.
func (h *Handler) RenderSelect(placeholder string, options []SelectOptionData) string {
	return RenderSelect(h.Renderer, placeholder, options)
}

// SSE is a Datastar event generator bound to one response.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE starts an event stream on the request behind ctx.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch replaces the children of selector with html.
func (s SSE) Patch(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
	)
}

// Error sends an error signal to the UI and clears any success message.
func (s SSE) Error(msg string) {
	s.MarshalAndPatchSignals(map[string]any{"error": msg, "success": ""})
}

// Success sends a success signal to the UI and clears any error message.
func (s SSE) Success(msg string) {
	s.MarshalAndPatchSignals(map[string]any{"success": msg, "error": ""})
}

// Signals merges signals into the page.
func (s SSE) Signals(signals map[string]any) {
	s.MarshalAndPatchSignals(signals)
}

// Dispatch fires a DOM custom event carrying detail as JSON.
func (s SSE) Dispatch(event string, detail any) error {
	if err := s.DispatchCustomEvent(event, detail); err != nil {
		slog.Debug("sse dispatch failed", "event", event, "error", err)
		return err
	}
	return nil
}

// Signals is the flat JSON object of signal values Datastar posts.
type Signals map[string]any

// ParseSignals decodes a request body of signals.
func ParseSignals(body []byte) (Signals, error) {
	var signals Signals
	if err := json.Unmarshal(body, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

func signal[T any](s Signals, key string) T {
	v, _ := s[key].(T)
	return v
}

// String returns the signal as a string, or "" when absent or not a string.
func (s Signals) String(key string) string { return signal[string](s, key) }

// Bool returns the signal as a bool, or false.
func (s Signals) Bool(key string) bool { return signal[bool](s, key) }

// Has reports whether the signal was sent, whatever its value.
func (s Signals) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// EmptyInput is the input of parameterless operations.
type EmptyInput struct{}

// SignalsInput takes the posted signals as the raw body.
type SignalsInput struct {
	RawBody []byte
}

// MustParse decodes the body, failing with 400.
func (i *SignalsInput) MustParse() (Signals, error) {
	signals, err := ParseSignals(i.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("malformed signals", err)
	}
	return signals, nil
}

// SelectOptionData feeds the select-option fragment.
type SelectOptionData struct {
	Value    string
	Label    string
	Selected bool
}

// RenderList renders each item with tmpl, or the empty-state fragment.
func RenderList(r *templates.Renderer, tmpl string, items []any, emptyTitle, emptyMsg string) string {
	var buf bytes.Buffer
	if len(items) == 0 {
		render(r, &buf, "empty-state", map[string]string{"Title": emptyTitle, "Message": emptyMsg})
		return buf.String()
	}
	for _, item := range items {
		render(r, &buf, tmpl, item)
	}
	return buf.String()
}

// RenderSelect renders <option> elements from a placeholder and option list.
func RenderSelect(r *templates.Renderer, placeholder string, options []SelectOptionData) string {
	var buf bytes.Buffer
	if placeholder != "" {
		render(r, &buf, "select-option", SelectOptionData{Label: placeholder})
	}
	for _, opt := range options {
		render(r, &buf, "select-option", opt)
	}
	return buf.String()
}

func render(r *templates.Renderer, buf *bytes.Buffer, name string, data any) {
	if err := r.RenderToBuffer(buf, name, data); err != nil {
		slog.Error("fragment render failed", "template", name, "error", err)
	}
}
