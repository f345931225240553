package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRecordCard(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	html, err := r.Render("record-card", map[string]any{
		"ID": "geojson-1", "Name": "<stations>.geojson", "Features": 3, "Visible": true,
	})
	require.NoError(t, err)
	assert.Contains(t, html, `id="record-geojson-1"`)
	assert.Contains(t, html, "&lt;stations&gt;.geojson")
	assert.Contains(t, html, "checked")
	assert.Contains(t, html, "3 features")
}

func TestRenderUnknownTemplate(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	_, err = r.Render("nope", nil)
	assert.Error(t, err)
}

func TestPage(t *testing.T) {
	page, err := Page()
	require.NoError(t, err)
	assert.Contains(t, string(page), "map-command")
	assert.Contains(t, string(page), "/api/v1/viewer/events")
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "fragments"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fragments", "x.html"), []byte(`{{define "empty-state"}}reloaded {{.Title}}{{end}}`), 0o644))

	r, err := New()
	require.NoError(t, err)
	require.NoError(t, r.Reload(dir))

	html, err := r.Render("empty-state", map[string]string{"Title": "ok"})
	require.NoError(t, err)
	assert.Equal(t, "reloaded ok", html)
}
