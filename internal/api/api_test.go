package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/geoview/internal/humastar"
	"github.com/joeblew999/geoview/internal/mapview"
	"github.com/joeblew999/geoview/internal/service"
	"github.com/joeblew999/geoview/internal/store"
)

const onePoint = `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[10,20]},"properties":{}}]}`

type testAPI struct {
	handler http.Handler
	view    *mapview.View
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	catalog := mapview.DefaultCatalog()
	view := mapview.NewView(catalog.Default().URL, catalog.CenterPoint(), catalog.Zoom, nil)
	registry := service.NewRegistry(service.NewRecordService(store.NewMemory()), view)
	svc := &Services{
		Registry: registry,
		Map:      service.NewMapService(view, catalog, registry),
		Draw:     service.NewDrawService(nil),
	}

	mux := http.NewServeMux()
	links := humastar.NewLinks("viewer")
	cfg := huma.DefaultConfig("test", Version)
	cfg.CreateHooks = []func(huma.Config) huma.Config{}
	cfg.Transformers = append(cfg.Transformers, links.Transformer())
	a := humago.New(mux, cfg)
	huma.AutoRegister(a, NewAPIHandler(svc))
	NewInfoHandler(t.TempDir(), "memory", len(catalog.Styles)).RegisterRoutes(a)
	links.Build(a)

	return &testAPI{handler: mux, view: view}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) upload(t *testing.T, path, field, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

type ingestResponse struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Features int         `json:"features"`
	Bounds   [][]float64 `json:"bounds"`
	Fitted   bool        `json:"fitted"`
	Message  string      `json:"message"`
}

func (a *testAPI) ingest(t *testing.T, name, content string) ingestResponse {
	t.Helper()
	rec := a.upload(t, "/api/v1/records", UploadField, name, content)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out ingestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthLinks(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	links := strings.Join(rec.Header().Values("Link"), ",")
	assert.Contains(t, links, `</api/v1/records>; rel="records"`)
	assert.Contains(t, links, `</api/v1/map>; rel="map"`)
	assert.Contains(t, links, `rel="service-desc"`)
}

func TestInfo(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/api/v1/info", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body InfoBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "geoview", body.Name)
	assert.Equal(t, "memory", body.Store)
	assert.Equal(t, 4, body.Styles)
}

func TestCreateRecord(t *testing.T) {
	a := newTestAPI(t)
	out := a.ingest(t, "point.geojson", onePoint)

	assert.True(t, strings.HasPrefix(out.ID, service.RecordIDPrefix))
	assert.Equal(t, "point.geojson", out.Name)
	assert.Equal(t, 1, out.Features)
	assert.Equal(t, [][]float64{{10, 20}, {10, 20}}, out.Bounds)
	assert.True(t, out.Fitted)
	assert.Equal(t, NoticeAdded, out.Message)

	st := a.view.Snapshot()
	require.NotNil(t, st.Viewport)
	assert.Equal(t, mapview.DefaultFitOptions(), st.Viewport.Options)
	assert.Equal(t, orb.Point{10, 20}, st.Viewport.Bounds.Min())
}

func TestCreateRecordRejections(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		content  string
		status   int
		contains string
	}{
		{"not json", UploadField, "not json", http.StatusUnprocessableEntity, "Error parsing GeoJson file!"},
		{"single feature", UploadField, `{"type":"Feature"}`, http.StatusUnprocessableEntity, "Invalid GeoJson File!"},
		{"empty file", UploadField, "", http.StatusUnprocessableEntity, "Error parsing GeoJson file!"},
		{"wrong field", "upload", onePoint, http.StatusBadRequest, "No file selected!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPI(t)
			rec := a.upload(t, "/api/v1/records", tt.field, "x.geojson", tt.content)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.contains)
			assert.Empty(t, a.view.Snapshot().Layers)
		})
	}
}

func TestListRecordsPaged(t *testing.T) {
	a := newTestAPI(t)
	for _, name := range []string{"a.geojson", "b.geojson", "c.geojson"} {
		a.ingest(t, name, onePoint)
	}

	rec := a.do(t, http.MethodGet, "/api/v1/records?offset=0&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page humastar.PageBody[RecordSummary]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "a.geojson", page.Data[0].Name)
	assert.Equal(t, 1, page.Data[0].Features)
	assert.True(t, page.Data[0].Visible)

	links := strings.Join(rec.Header().Values("Link"), ",")
	assert.Contains(t, links, `</api/v1/records?offset=2&limit=2>; rel="next"`)
	assert.Contains(t, links, `</api/v1/records/{id}>; rel="item"`)
}

func TestGetRecordAndVisibility(t *testing.T) {
	a := newTestAPI(t)
	out := a.ingest(t, "a.geojson", onePoint)

	rec := a.do(t, http.MethodGet, "/api/v1/records/"+out.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, onePoint, mustField(t, rec.Body.Bytes(), "data"))
	links := strings.Join(rec.Header().Values("Link"), ",")
	assert.Contains(t, links, `rel="hide"`)
	assert.Contains(t, links, `rel="self"`)
	assert.Contains(t, links, `</api/v1/records>; rel="collection"`)

	rec = a.do(t, http.MethodPut, "/api/v1/map/layers/"+out.ID+"/visibility", map[string]bool{"visible": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/v1/records/"+out.ID, nil)
	assert.Contains(t, strings.Join(rec.Header().Values("Link"), ","), `rel="show"`)

	rec = a.do(t, http.MethodGet, "/api/v1/records/geojson-missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodPut, "/api/v1/map/layers/geojson-missing/visibility", map[string]bool{"visible": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClearRecords(t *testing.T) {
	a := newTestAPI(t)
	a.ingest(t, "a.geojson", onePoint)

	rec := a.do(t, http.MethodDelete, "/api/v1/records", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, a.view.Snapshot().Layers)

	rec = a.do(t, http.MethodGet, "/api/v1/records", nil)
	var page humastar.PageBody[RecordSummary]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Zero(t, page.Total)
}

func TestPutStyle(t *testing.T) {
	a := newTestAPI(t)
	out := a.ingest(t, "a.geojson", onePoint)

	rec := a.do(t, http.MethodPut, "/api/v1/map/style", map[string]string{"style": "OSM"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var st struct {
		Style      string `json:"style"`
		Generation uint64 `json:"generation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "https://demotiles.maplibre.org/style.json", st.Style)
	assert.Equal(t, uint64(2), st.Generation)
	require.Len(t, a.view.Snapshot().Layers, 1)
	assert.Equal(t, out.ID, a.view.Snapshot().Layers[0].ID)

	rec = a.do(t, http.MethodPut, "/api/v1/map/style", map[string]string{"style": "Nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/styles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"active":"https://demotiles.maplibre.org/style.json"`)
}

func TestDrawRoutes(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/v1/draw", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mode":"static"`)

	rec = a.do(t, http.MethodPut, "/api/v1/draw/mode", map[string]string{"mode": "polygon"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mode":"polygon"`)

	rec = a.do(t, http.MethodPut, "/api/v1/draw/mode", map[string]string{"mode": "lasso"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/draw/clear", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	style := map[string]any{"strokeColor": "#ff0000", "fillColor": "#00ff00", "strokeWidth": 3, "fillOpacity": 0.5}
	rec = a.do(t, http.MethodPut, "/api/v1/draw/style", style)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"strokeColor":"#ff0000"`)

	style["strokeColor"] = "red"
	rec = a.do(t, http.MethodPut, "/api/v1/draw/style", style)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestExportDrawing(t *testing.T) {
	a := newTestAPI(t)
	snapshot := `[{"id":"a","type":"Feature","properties":{"mode":"polygon"}},{"id":"m","type":"Feature","properties":{"midPoint":true}},{"id":"s","type":"Feature","properties":{"selectionPoint":true}}]`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/draw/export", strings.NewReader(snapshot))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename="drawn_features.geojson"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "1", rec.Header().Get("X-Exported-Features"))
	assert.JSONEq(t, `[{"id":"a","type":"Feature","properties":{"mode":"polygon"}}]`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/v1/draw/export", strings.NewReader(`{"type":"FeatureCollection"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func mustField(t *testing.T, body []byte, field string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &m))
	raw, ok := m[field]
	require.True(t, ok, "missing field %s", field)
	return string(raw)
}
