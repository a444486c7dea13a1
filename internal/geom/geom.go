// Package geom provides GeoJSON geometry decoding, centers and containment tests.
package geom

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/urbanperceptions/survey-client/internal/core/model"
)

const (
	TypePoint        = "Point"
	TypePolygon      = "Polygon"
	TypeMultiPolygon = "MultiPolygon"
)

// Geometry is a lazily-decoded GeoJSON geometry. Coordinates stay raw until a
// typed accessor is called, so unsupported geometry types can be rejected
// without paying for a full decode.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

func Parse(raw []byte) (Geometry, error) {
	var g Geometry
	if err := json.Unmarshal(raw, &g); err != nil {
		return Geometry{}, fmt.Errorf("parse geojson: %w", err)
	}
	g.Type = strings.TrimSpace(g.Type)
	if g.Type == "" {
		return Geometry{}, errors.New("geojson missing type")
	}
	return g, nil
}

// IsPolygonal reports whether g is an area geometry. Points, lines and any
// other types are excluded from the survey workflow entirely.
func IsPolygonal(g Geometry) bool {
	return g.Type == TypePolygon || g.Type == TypeMultiPolygon
}

func (g Geometry) Point() ([]float64, error) {
	if g.Type != TypePoint {
		return nil, fmt.Errorf("geometry is %q, not Point", g.Type)
	}
	var c []float64
	if err := json.Unmarshal(g.Coordinates, &c); err != nil {
		return nil, fmt.Errorf("parse point coords: %w", err)
	}
	if len(c) < 2 {
		return nil, errors.New("point needs [lon,lat]")
	}
	return c, nil
}

func (g Geometry) Polygon() ([][][]float64, error) {
	if g.Type != TypePolygon {
		return nil, fmt.Errorf("geometry is %q, not Polygon", g.Type)
	}
	var rings [][][]float64
	if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
		return nil, fmt.Errorf("parse polygon coords: %w", err)
	}
	return rings, nil
}

func (g Geometry) MultiPolygon() ([][][][]float64, error) {
	if g.Type != TypeMultiPolygon {
		return nil, fmt.Errorf("geometry is %q, not MultiPolygon", g.Type)
	}
	var polys [][][][]float64
	if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
		return nil, fmt.Errorf("parse multipolygon coords: %w", err)
	}
	return polys, nil
}

// Center returns a representative point for the geometry: the coordinate
// itself for a Point, otherwise the midpoint of the union bounding box of all
// outer rings. Returns false on malformed or empty geometry; callers must
// treat that as a rejection.
func Center(g Geometry) (model.LatLon, bool) {
	switch g.Type {
	case TypePoint:
		c, err := g.Point()
		if err != nil {
			return model.LatLon{}, false
		}
		return model.LatLon{Lat: c[1], Lon: c[0]}, true
	case TypePolygon:
		rings, err := g.Polygon()
		if err != nil || len(rings) == 0 {
			return model.LatLon{}, false
		}
		bb, ok := ringBBox(rings[0])
		if !ok {
			return model.LatLon{}, false
		}
		return bb.Center(), true
	case TypeMultiPolygon:
		polys, err := g.MultiPolygon()
		if err != nil || len(polys) == 0 {
			return model.LatLon{}, false
		}
		var union model.BBox
		have := false
		for _, rings := range polys {
			if len(rings) == 0 {
				continue
			}
			bb, ok := ringBBox(rings[0])
			if !ok {
				continue
			}
			if !have {
				union = bb
				have = true
				continue
			}
			union = expand(union, bb)
		}
		if !have {
			return model.LatLon{}, false
		}
		return union.Center(), true
	default:
		return model.LatLon{}, false
	}
}

func ringBBox(ring [][]float64) (model.BBox, bool) {
	ok := false
	var bb model.BBox
	for _, pt := range ring {
		if len(pt) < 2 {
			continue
		}
		lon, lat := pt[0], pt[1]
		if !ok {
			bb = model.BBox{West: lon, South: lat, East: lon, North: lat}
			ok = true
			continue
		}
		if lon < bb.West {
			bb.West = lon
		}
		if lon > bb.East {
			bb.East = lon
		}
		if lat < bb.South {
			bb.South = lat
		}
		if lat > bb.North {
			bb.North = lat
		}
	}
	return bb, ok
}

func expand(a, b model.BBox) model.BBox {
	if b.West < a.West {
		a.West = b.West
	}
	if b.East > a.East {
		a.East = b.East
	}
	if b.South < a.South {
		a.South = b.South
	}
	if b.North > a.North {
		a.North = b.North
	}
	return a
}

// guards the horizontal-edge division in the ray cast
const epsilon = 1e-12

// PointInRing runs a standard ray cast over a closed ring of [lon,lat]
// vertices.
func PointInRing(lat, lon float64, ring [][]float64) bool {
	inside := false
	n := len(ring)
	if n < 3 {
		return false
	}
	j := n - 1
	for i := 0; i < n; i++ {
		if len(ring[i]) < 2 || len(ring[j]) < 2 {
			j = i
			continue
		}
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		dy := yj - yi
		if dy > -epsilon && dy < epsilon {
			// horizontal edge, skip to avoid division by zero
			j = i
			continue
		}
		if (yi > lat) != (yj > lat) {
			xCross := xi + (lat-yi)*(xj-xi)/dy
			if lon < xCross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// PointInPolygon tests containment for Polygon and MultiPolygon geometries.
// For a Polygon the point must be inside the outer ring and outside every
// hole. For a MultiPolygon the point must be inside some member's outer ring
// and outside that member's own holes; holes never leak across members.
func PointInPolygon(lat, lon float64, g Geometry) bool {
	switch g.Type {
	case TypePolygon:
		rings, err := g.Polygon()
		if err != nil {
			return false
		}
		return inRings(lat, lon, rings)
	case TypeMultiPolygon:
		polys, err := g.MultiPolygon()
		if err != nil {
			return false
		}
		for _, rings := range polys {
			if inRings(lat, lon, rings) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func inRings(lat, lon float64, rings [][][]float64) bool {
	if len(rings) == 0 || !PointInRing(lat, lon, rings[0]) {
		return false
	}
	for _, hole := range rings[1:] {
		if PointInRing(lat, lon, hole) {
			return false
		}
	}
	return true
}

// OuterRingVertexCount returns the vertex count of the first outer ring, used
// by the manual-shape duplicate heuristic. Zero for anything non-polygonal.
func OuterRingVertexCount(g Geometry) int {
	switch g.Type {
	case TypePolygon:
		rings, err := g.Polygon()
		if err != nil || len(rings) == 0 {
			return 0
		}
		return len(rings[0])
	case TypeMultiPolygon:
		polys, err := g.MultiPolygon()
		if err != nil || len(polys) == 0 || len(polys[0]) == 0 {
			return 0
		}
		return len(polys[0][0])
	default:
		return 0
	}
}
