package mapview

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_WithoutGeoJSON(t *testing.T) {
	html, err := Render(-22.9068, -43.1729, "Rio de Janeiro", nil)
	require.NoError(t, err)
	assert.Contains(t, html, "setView([-22.9068, -43.1729], 6)")
	assert.Contains(t, html, "Mapa - Rio de Janeiro")
	assert.NotContains(t, html, "L.geoJSON")
}

func TestRender_WithGeoJSON(t *testing.T) {
	shape := json.RawMessage(`{"type":"Point","coordinates":[-43.17,-22.90]}`)
	html, err := Render(-22.9068, -43.1729, "Rio", shape)
	require.NoError(t, err)
	assert.Contains(t, html, "L.geoJSON(geojson")
	assert.Contains(t, html, `color: "#0000FF", weight: 2, fillOpacity: 0.2`)
	assert.Contains(t, html, `"type":"Point"`)
	assert.Contains(t, html, "fitBounds")
}

func TestRender_EscapesScriptInGeoJSON(t *testing.T) {
	shape := json.RawMessage(`{"type":"Feature","properties":{"name":"</script><script>alert(1)</script>"}}`)
	html, err := Render(0, 0, "x", shape)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>alert(1)")
}

func TestRender_InvalidGeoJSON(t *testing.T) {
	_, err := Render(0, 0, "x", json.RawMessage(`{oops`))
	assert.Error(t, err)
}

func TestInitial(t *testing.T) {
	html := Initial(nil)
	assert.Contains(t, html, "setView([-14.235, -51.9253], 6)")

	// 轮廓损坏时退回到无轮廓的地图
	html = Initial(json.RawMessage(`{oops`))
	assert.Contains(t, html, "setView([-14.235, -51.9253], 6)")
}
