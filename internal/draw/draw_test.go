package draw

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const polygon = `{"id":"a","type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]},"properties":{"mode":"polygon"}}`

func TestExportDropsHelpers(t *testing.T) {
	snapshot := `[
		` + polygon + `,
		{"id":"b","type":"Feature","geometry":{"type":"Point","coordinates":[0.5,0]},"properties":{"mode":"polygon","midPoint":true}},
		{"id":"c","type":"Feature","geometry":{"type":"Point","coordinates":[1,1]},"properties":{"mode":"polygon","selectionPoint":true}},
		{"id":"d","type":"Feature","geometry":{"type":"LineString","coordinates":[[5,5],[6,7.25]]},"properties":{"mode":"linestring","midPoint":false}},
		{"id":"e","type":"Feature","geometry":{"type":"Point","coordinates":[2,2]}}
	]`

	out, n, err := Export([]byte(snapshot))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var got []json.RawMessage
	require.NoError(t, json.Unmarshal(out, &got))
	require.Len(t, got, 3)
	assert.Equal(t, polygon, string(got[0]))
	assert.JSONEq(t, `{"id":"d","type":"Feature","geometry":{"type":"LineString","coordinates":[[5,5],[6,7.25]]},"properties":{"mode":"linestring","midPoint":false}}`, string(got[1]))
	assert.JSONEq(t, `{"id":"e","type":"Feature","geometry":{"type":"Point","coordinates":[2,2]}}`, string(got[2]))
}

func TestExportEmpty(t *testing.T) {
	out, n, err := Export([]byte(`[]`))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "[]", string(out))
}

func TestExportRejectsNonArray(t *testing.T) {
	for _, s := range []string{`{"type":"FeatureCollection"}`, `nope`, ``} {
		_, _, err := Export([]byte(s))
		assert.ErrorIs(t, err, ErrSnapshot, s)
	}
}

func TestIsHelper(t *testing.T) {
	assert.True(t, IsHelper(json.RawMessage(`{"properties":{"midPoint":true}}`)))
	assert.True(t, IsHelper(json.RawMessage(`{"properties":{"selectionPoint":true}}`)))
	assert.False(t, IsHelper(json.RawMessage(`{"properties":{"selectionPoint":"true"}}`)))
	assert.False(t, IsHelper(json.RawMessage(`{"properties":null}`)))
	assert.False(t, IsHelper(json.RawMessage(`42`)))
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("spray")
	assert.ErrorIs(t, err, ErrUnknownMode)
	_, err = ParseMode("Polygon")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestStyleValidate(t *testing.T) {
	require.NoError(t, DefaultStyle().Validate())

	s := DefaultStyle()
	s.StrokeColor = "red"
	assert.ErrorIs(t, s.Validate(), ErrInvalidStyle)

	s = DefaultStyle()
	s.FillOpacity = 1.5
	assert.ErrorIs(t, s.Validate(), ErrInvalidStyle)

	s = DefaultStyle()
	s.StrokeWidth = -1
	assert.ErrorIs(t, s.Validate(), ErrInvalidStyle)
}
