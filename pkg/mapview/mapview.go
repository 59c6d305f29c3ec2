// Package mapview 渲染展示地点的 Leaflet 地图页面。
package mapview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"strconv"
)

// 巴西中心点，初始地图使用。
const (
	BrazilLat  = -14.2350
	BrazilLon  = -51.9253
	BrazilName = "Brasil"
)

var pageTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <link rel="stylesheet" href="https://unpkg.com/leaflet@1.7.1/dist/leaflet.css" />
    <script src="https://unpkg.com/leaflet@1.7.1/dist/leaflet.js"></script>
    <style>
        #map { height: 500px; width: 100%; }
    </style>
</head>
<body>
    <div id="map"></div>
    <script>
        var map = L.map('map').setView([{{.Lat}}, {{.Lon}}], 6);
        L.tileLayer('https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png', {
            maxZoom: 19,
            attribution: '© OpenStreetMap'
        }).addTo(map);
{{- if .GeoJSON}}
        var geojson = {{.GeoJSON}};
        var geoLayer = L.geoJSON(geojson, {
            style: function (feature) {
                return {color: "#0000FF", weight: 2, fillOpacity: 0.2};
            }
        }).addTo(map);
        map.fitBounds(geoLayer.getBounds());
{{- end}}
    </script>
</body>
</html>
`))

type pageData struct {
	Title   string
	Lat     template.JS
	Lon     template.JS
	GeoJSON interface{}
}

// Render 生成以 (lat, lon) 为中心、缩放级别 6 的地图页面；geojson 非空时叠加轮廓并自适应边界。
func Render(lat, lon float64, name string, geojson json.RawMessage) (string, error) {
	// 坐标直接格式化为 JS 数字字面量，避免模板在数值两侧补空格
	data := pageData{Title: "Mapa - " + name, Lat: jsNumber(lat), Lon: jsNumber(lon)}
	if len(geojson) > 0 {
		var shape interface{}
		if err := json.Unmarshal(geojson, &shape); err != nil {
			return "", fmt.Errorf("invalid geojson: %w", err)
		}
		data.GeoJSON = shape
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render map: %w", err)
	}
	return buf.String(), nil
}

// Initial 生成初始的巴西地图，可以带上巴西的轮廓。
func Initial(geojson json.RawMessage) string {
	html, err := Render(BrazilLat, BrazilLon, BrazilName, geojson)
	if err != nil {
		html, _ = Render(BrazilLat, BrazilLon, BrazilName, nil)
	}
	return html
}

func jsNumber(f float64) template.JS {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	return template.JS(strconv.FormatFloat(f, 'f', -1, 64))
}
