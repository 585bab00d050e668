package geomap

import (
	"bytes"
	"encoding/json"
	"text/template"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// mapDocument is the data handed to the HTML template. Marker data is
// embedded as JSON so the artifact needs no companion files.
type mapDocument struct {
	Title      string
	Zoom       int
	CenterJSON string
	BoundsJSON string
	LayersJSON string
	MultiLayer bool
}

type layerJSON struct {
	Label   string       `json:"label"`
	Markers []markerJSON `json:"markers"`
}

type markerJSON struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Popup string  `json:"popup"`
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var center = {{.CenterJSON}};
var layers = {{.LayersJSON}};
var map = L.map('map').setView([center.lat, center.lon], {{.Zoom}});
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
    attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);
var overlays = {};
layers.forEach(function (layer) {
    var group = L.layerGroup();
    layer.markers.forEach(function (m) {
        L.marker([m.lat, m.lon]).bindPopup(m.popup).addTo(group);
    });
    group.addTo(map);
    overlays[layer.label] = group;
});
{{if .MultiLayer}}L.control.layers(null, overlays).addTo(map);{{end}}
var bounds = {{.BoundsJSON}};
map.fitBounds([[bounds.minLat, bounds.minLon], [bounds.maxLat, bounds.maxLon]]);
</script>
</body>
</html>
`))

// buildDocument renders the Leaflet HTML for the given layers.
func buildDocument(title string, zoom int, center geom.Coord, bounds *geom.Bounds, layers []*Layer) ([]byte, error) {
	doc := mapDocument{
		Title:      title,
		Zoom:       zoom,
		MultiLayer: len(layers) > 1,
	}

	centerJSON, err := json.Marshal(map[string]float64{
		"lat": center.Y(),
		"lon": center.X(),
	})
	if err != nil {
		return nil, eris.Wrap(err, "render: marshal center")
	}
	doc.CenterJSON = string(centerJSON)

	boundsJSON, err := json.Marshal(map[string]float64{
		"minLat": bounds.Min(1),
		"minLon": bounds.Min(0),
		"maxLat": bounds.Max(1),
		"maxLon": bounds.Max(0),
	})
	if err != nil {
		return nil, eris.Wrap(err, "render: marshal bounds")
	}
	doc.BoundsJSON = string(boundsJSON)

	jsonLayers := make([]layerJSON, 0, len(layers))
	for _, l := range layers {
		jl := layerJSON{Label: l.Label, Markers: make([]markerJSON, 0, len(l.Points))}
		for _, p := range l.Points {
			jl.Markers = append(jl.Markers, markerJSON{
				Lat:   p.Lat(),
				Lon:   p.Lon(),
				Popup: markerPopup(l.Label, p.Row),
			})
		}
		jsonLayers = append(jsonLayers, jl)
	}
	layersJSON, err := json.Marshal(jsonLayers)
	if err != nil {
		return nil, eris.Wrap(err, "render: marshal layers")
	}
	doc.LayersJSON = string(layersJSON)

	var buf bytes.Buffer
	if err := mapTemplate.Execute(&buf, doc); err != nil {
		return nil, eris.Wrap(err, "render: execute template")
	}
	return buf.Bytes(), nil
}

func markerPopup(label string, row int) string {
	raw, _ := json.Marshal(map[string]any{"dataset": label, "row": row})
	// Popup text stays machine-readable so the row can be traced back.
	return string(raw)
}
