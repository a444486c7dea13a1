// Package boundary answers whether a point lies inside the study area.
package boundary

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/urbanperceptions/survey-client/internal/core/model"
	"github.com/urbanperceptions/survey-client/internal/geom"
)

// Fetcher provides the city boundary geometry.
type Fetcher interface {
	CityBoundary(ctx context.Context) (json.RawMessage, error)
}

// Gate holds the authoritative city boundary, or falls back to the study
// bounding box when the boundary service is unavailable or returns a
// non-polygonal shape. Read-only after Load.
type Gate struct {
	fallback model.BBox
	poly     *geom.Geometry
}

func New(fallback model.BBox) *Gate {
	return &Gate{fallback: fallback}
}

// Load fetches the boundary once. Any failure degrades silently to
// bounding-box mode; the participant is never surfaced an error here,
// containment checks just get coarser.
func (g *Gate) Load(ctx context.Context, f Fetcher, logger *slog.Logger) {
	raw, err := f.CityBoundary(ctx)
	if err != nil {
		logger.Warn("city boundary unavailable, using bbox fallback", "err", err)
		return
	}
	parsed, err := geom.Parse(raw)
	if err != nil || !geom.IsPolygonal(parsed) {
		logger.Warn("city boundary not polygonal, using bbox fallback", "type", parsed.Type)
		return
	}
	g.poly = &parsed
	logger.Info("city boundary loaded", "type", parsed.Type)
}

// Contains is the single gate every added or drawn geometry's center must
// pass. Failing it is a hard rejection.
func (g *Gate) Contains(lat, lon float64) bool {
	if g.poly != nil {
		return geom.PointInPolygon(lat, lon, *g.poly)
	}
	return g.fallback.Contains(lat, lon)
}

// UsingFallback reports whether the gate degraded to bounding-box mode.
func (g *Gate) UsingFallback() bool { return g.poly == nil }
