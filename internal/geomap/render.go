// Package geomap renders tables with resolved coordinates into an
// interactive Leaflet map artifact.
package geomap

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/opencivic/opendata-cli/internal/coords"
	"github.com/opencivic/opendata-cli/internal/table"
)

// ErrNoCoordinates reports an unresolved binding. Callers may still produce
// tabular-only output.
var ErrNoCoordinates = errors.New("no coordinate columns")

// ErrNoValidPoints reports that coordinates resolved but no row validated.
var ErrNoValidPoints = errors.New("no valid points")

// Point is one valid marker. Row is the index into the source table.
type Point struct {
	Coord geom.Coord
	Row   int
}

// Lat returns the point's latitude.
func (p Point) Lat() float64 { return p.Coord.Y() }

// Lon returns the point's longitude.
func (p Point) Lon() float64 { return p.Coord.X() }

// Layer groups one dataset's markers so multi-dataset maps stay visually
// distinguishable.
type Layer struct {
	Label   string
	Points  []Point
	Skipped int
}

// Renderer builds map artifacts.
type Renderer struct {
	zoom  int
	title string
}

// New creates a Renderer. Zoom defaults to 13.
func New(zoom int, title string) *Renderer {
	if zoom <= 0 {
		zoom = 13
	}
	if title == "" {
		title = "Mappa incidenti"
	}
	return &Renderer{zoom: zoom, title: title}
}

// Collect reads the bound columns row by row and produces a marker layer.
// A row with an absent, non-numeric, or out-of-range coordinate is counted
// and skipped; a bad row never aborts the pass. Fails with ErrNoCoordinates
// when the binding is unresolved.
func (r *Renderer) Collect(t *table.Table, b coords.Binding, label string) (*Layer, error) {
	if !b.Resolved() {
		return nil, eris.Wrapf(ErrNoCoordinates, "render: %s", label)
	}

	layer := &Layer{Label: label}
	for i := range t.Rows {
		latRaw, latOK := t.Value(i, b.LatColumn)
		lonRaw, lonOK := t.Value(i, b.LonColumn)
		if !latOK || !lonOK {
			layer.Skipped++
			continue
		}

		lat, err := ParseCoordinate(latRaw, 90)
		if err != nil {
			layer.Skipped++
			continue
		}
		lon, err := ParseCoordinate(lonRaw, 180)
		if err != nil {
			layer.Skipped++
			continue
		}

		layer.Points = append(layer.Points, Point{
			Coord: geom.Coord{lon, lat},
			Row:   i,
		})
	}

	zap.L().Debug("render: layer collected",
		zap.String("label", label),
		zap.Int("valid", len(layer.Points)),
		zap.Int("skipped", layer.Skipped),
	)
	return layer, nil
}

// ParseCoordinate parses a coordinate cell, accepting dot or comma decimal
// separators, and validates the value against ±limit. A comma is treated as
// the decimal separator only when the cell has no dot.
func ParseCoordinate(raw string, limit float64) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, eris.New("render: empty coordinate")
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "render: parse coordinate %q", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, eris.Errorf("render: non-finite coordinate %q", raw)
	}
	if v < -limit || v > limit {
		return 0, eris.Errorf("render: coordinate %q outside ±%v", raw, limit)
	}
	return v, nil
}

// WriteMap renders the layers into a single HTML artifact at path. Fails
// with ErrNoValidPoints when no layer carries a marker.
func (r *Renderer) WriteMap(path string, layers []*Layer) error {
	total := 0
	for _, l := range layers {
		total += len(l.Points)
	}
	if total == 0 {
		return eris.Wrap(ErrNoValidPoints, "render: map would be empty")
	}

	center, bounds := centerAndBounds(layers)

	doc, err := buildDocument(r.title, r.zoom, center, bounds, layers)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "render: create dir for %s", path)
	}
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return eris.Wrapf(err, "render: write %s", path)
	}

	zap.L().Info("render: map written",
		zap.String("path", path),
		zap.Int("layers", len(layers)),
		zap.Int("markers", total),
	)
	return nil
}

// centerAndBounds computes the mean marker position the map centers on and
// the bounding box of all markers.
func centerAndBounds(layers []*Layer) (geom.Coord, *geom.Bounds) {
	bounds := geom.NewBounds(geom.XY)
	var sumLat, sumLon float64
	n := 0
	for _, l := range layers {
		for _, p := range l.Points {
			bounds.Extend(geom.NewPointFlat(geom.XY, []float64{p.Lon(), p.Lat()}))
			sumLat += p.Lat()
			sumLon += p.Lon()
			n++
		}
	}
	return geom.Coord{sumLon / float64(n), sumLat / float64(n)}, bounds
}
