package viewer

import (
	"bufio"
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/geoview/internal/api"
	"github.com/joeblew999/geoview/internal/mapview"
	"github.com/joeblew999/geoview/internal/service"
	"github.com/joeblew999/geoview/internal/store"
	"github.com/joeblew999/geoview/internal/templates"
)

const onePoint = `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[10,20]},"properties":{}}]}`

type fixture struct {
	mux  *http.ServeMux
	view *mapview.View
	svc  *api.Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bus := service.NewEventBus()
	catalog := mapview.DefaultCatalog()
	view := mapview.NewView(catalog.Default().URL, catalog.CenterPoint(), catalog.Zoom, func(c mapview.Command) {
		bus.Publish(service.Event{Resource: service.ResourceMap, Action: c.Op, ID: c.ID, Payload: c})
	})
	registry := service.NewRegistry(service.NewRecordService(store.NewMemory()), view, service.WithPublisher(bus.Publish))
	svc := &api.Services{
		Registry: registry,
		Map:      service.NewMapService(view, catalog, registry),
		Draw: service.NewDrawService(func(c service.DrawCommand) {
			bus.Publish(service.Event{Resource: service.ResourceDraw, Action: c.Op, Payload: c})
		}),
	}
	renderer, err := templates.New()
	require.NoError(t, err)

	mux := http.NewServeMux()
	cfg := huma.DefaultConfig("test", api.Version)
	cfg.CreateHooks = []func(huma.Config) huma.Config{}
	NewHandler(svc, bus, renderer).RegisterRoutes(humago.New(mux, cfg))
	return &fixture{mux: mux, view: view, svc: svc}
}

func (f *fixture) post(t *testing.T, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func multipartFile(t *testing.T, content string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(api.UploadField, "upload.geojson")
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes(), w.FormDataContentType()
}

func TestUploadNotifications(t *testing.T) {
	tests := []struct {
		name    string
		content string
		notice  string
		layers  int
	}{
		{"valid", onePoint, api.NoticeAdded, 1},
		{"not json", "not json", "Error parsing GeoJson file!", 0},
		{"not a collection", `{"type":"Feature"}`, "Invalid GeoJson File!", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			body, ct := multipartFile(t, tt.content)

			rec := f.post(t, "/api/v1/viewer/upload", ct, body)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), "datastar-patch-signals")
			assert.Contains(t, rec.Body.String(), tt.notice)
			assert.Len(t, f.view.Snapshot().Layers, tt.layers)
		})
	}
}

func TestUploadPatchesRecordList(t *testing.T) {
	f := newFixture(t)
	body, ct := multipartFile(t, onePoint)

	rec := f.post(t, "/api/v1/viewer/upload", ct, body)
	out := rec.Body.String()
	assert.Contains(t, out, "datastar-patch-elements")
	assert.Contains(t, out, recordList)
	assert.Contains(t, out, "upload.geojson")
}

func TestStyleSignal(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "/api/v1/viewer/style", "application/json", []byte(`{"style":"OSM"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Basemap: OSM")
	assert.Equal(t, uint64(2), f.view.Generation())

	rec = f.post(t, "/api/v1/viewer/style", "application/json", []byte(`{"style":"Nope"}`))
	assert.Contains(t, rec.Body.String(), "unknown map style")
	assert.Equal(t, uint64(2), f.view.Generation())

	rec = f.post(t, "/api/v1/viewer/style", "application/json", []byte(`{`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVisibilitySignal(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Registry.Ingest(context.Background(), "a.geojson", []byte(onePoint))
	require.NoError(t, err)

	rec := f.post(t, "/api/v1/viewer/visibility", "application/json", []byte(`{"layerid":"`+res.ID+`","visible":false}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, f.view.Snapshot().Layers[0].Visible)

	rec = f.post(t, "/api/v1/viewer/visibility", "application/json", []byte(`{"layerid":"geojson-missing","visible":false}`))
	assert.Contains(t, rec.Body.String(), "layer not found")

	rec = f.post(t, "/api/v1/viewer/visibility", "application/json", []byte(`{"visible":true}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordsFragment(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/viewer/records", nil)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No uploads")
}

func TestEventsReplayAndForward(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Registry.Ingest(context.Background(), "first.geojson", []byte(onePoint))
	require.NoError(t, err)

	srv := httptest.NewServer(f.mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/viewer/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	lines := make(chan string, 256)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	waitFor := func(substr string) {
		t.Helper()
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream ended before %q", substr)
				if strings.Contains(line, substr) {
					return
				}
			case <-ctx.Done():
				t.Fatalf("timed out waiting for %q", substr)
			}
		}
	}

	// replay of the current map, then the upload list
	waitFor(EventMapCommand)
	waitFor("first.geojson")

	// a live change is forwarded
	_, err = f.svc.Draw.SetMode("polygon")
	require.NoError(t, err)
	waitFor(EventDrawCommand)
}
