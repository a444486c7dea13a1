// Package layercache caches externally-sourced category features per
// category code, with a request-version guard against out-of-order
// responses.
package layercache

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/urbanperceptions/survey-client/internal/api"
	"github.com/urbanperceptions/survey-client/internal/core/model"
	"github.com/urbanperceptions/survey-client/internal/geom"
	"github.com/urbanperceptions/survey-client/internal/observability"
)

// Fetcher is the collaborator call that lists features for a category within
// a bounding box.
type Fetcher interface {
	CategoryFeatures(ctx context.Context, code string, bbox model.BBox, limit int) ([]api.CategoryFeatureResult, error)
}

// Gate filters fetched features to the study area.
type Gate interface {
	Contains(lat, lon float64) bool
}

// Feature is one cached candidate location for a toggled category.
type Feature struct {
	ExternalID  int64
	DisplayName string
	SourceClass string
	SourceType  string
	Geometry    geom.Geometry
	Center      model.LatLon
}

type entry struct {
	features []Feature
	// incremented on every fetch initiation; a completed fetch applies only
	// if its captured version still matches
	version    uint64
	inflight   int
	enabled    bool
	everLoaded bool
}

type Config struct {
	CityBBox       model.BBox
	FirstLoadLimit int
	ViewportLimit  int
}

type Cache struct {
	mu      sync.Mutex
	logger  *slog.Logger
	fetcher Fetcher
	gate    Gate
	cfg     Config

	entries map[string]*entry
}

func New(fetcher Fetcher, gate Gate, cfg Config, logger *slog.Logger) *Cache {
	if cfg.FirstLoadLimit <= 0 {
		cfg.FirstLoadLimit = 900
	}
	if cfg.ViewportLimit <= 0 {
		cfg.ViewportLimit = 300
	}
	return &Cache{
		logger:  logger,
		fetcher: fetcher,
		gate:    gate,
		cfg:     cfg,
		entries: map[string]*entry{},
	}
}

func (c *Cache) entryLocked(code string) *entry {
	e := c.entries[code]
	if e == nil {
		e = &entry{}
		c.entries[code] = e
	}
	return e
}

// Toggle enables or disables a category. The first-ever enable fetches a
// city-wide snapshot with the higher limit; later enables fetch the current
// viewport with the lower limit. Disabling evicts immediately.
func (c *Cache) Toggle(ctx context.Context, code string, enabled bool, viewport model.Viewport) {
	c.mu.Lock()
	e := c.entryLocked(code)
	if !enabled {
		e.enabled = false
		e.features = nil
		e.version++ // in-flight responses for this category become stale
		c.mu.Unlock()
		observability.IncCategoryFetch(observability.FetchEvicted)
		return
	}

	e.enabled = true
	bbox := viewport
	limit := c.cfg.ViewportLimit
	if !e.everLoaded {
		bbox = c.cfg.CityBBox
		limit = c.cfg.FirstLoadLimit
		e.everLoaded = true
	}
	e.version++
	version := e.version
	e.inflight++
	c.mu.Unlock()

	c.fetch(ctx, code, bbox, limit, viewport, version)
}

// Refresh re-fetches an enabled category for the current viewport; disabled
// categories are ignored.
func (c *Cache) Refresh(ctx context.Context, code string, viewport model.Viewport) {
	c.mu.Lock()
	e := c.entryLocked(code)
	if !e.enabled {
		c.mu.Unlock()
		return
	}
	e.version++
	version := e.version
	e.inflight++
	c.mu.Unlock()

	c.fetch(ctx, code, viewport, c.cfg.ViewportLimit, viewport, version)
}

// fetch runs one fetch attempt plus a single retry with a fresh
// viewport-derived bbox and a reduced limit. On total failure the cache
// entry is left unchanged: stale-but-present beats empty.
func (c *Cache) fetch(ctx context.Context, code string, bbox model.BBox, limit int, viewport model.Viewport, version uint64) {
	defer func() {
		c.mu.Lock()
		c.entryLocked(code).inflight--
		c.mu.Unlock()
	}()

	results, err := c.fetcher.CategoryFeatures(ctx, code, bbox, limit)
	if err != nil {
		observability.IncCategoryFetch(observability.FetchRetried)
		retryLimit := limit / 2
		if retryLimit < 1 {
			retryLimit = 1
		}
		results, err = c.fetcher.CategoryFeatures(ctx, code, viewport, retryLimit)
		if err != nil {
			observability.IncCategoryFetch(observability.FetchFailed)
			c.logger.Warn("category fetch failed, keeping stale data",
				"category", code, "err", err)
			return
		}
	}

	features := c.filter(results)

	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(code)
	if e.version != version {
		// a newer fetch for this category started; discard unconditionally
		observability.IncCategoryFetch(observability.FetchStale)
		c.logger.Debug("discarding stale category response",
			"category", code, "got", version, "want", e.version)
		return
	}
	if !e.enabled {
		observability.IncCategoryFetch(observability.FetchStale)
		return
	}
	e.features = features
	observability.IncCategoryFetch(observability.FetchApplied)
	c.logger.Info("category layer updated",
		"category", code, "features", len(features), "fetched", len(results))
}

// filter keeps polygonal features whose computed center lies inside the
// study area; everything else is silently dropped even if the upstream
// returned it.
func (c *Cache) filter(results []api.CategoryFeatureResult) []Feature {
	out := make([]Feature, 0, len(results))
	for _, r := range results {
		g, err := geom.Parse(r.GeoJSON)
		if err != nil || !geom.IsPolygonal(g) {
			continue
		}
		center, ok := geom.Center(g)
		if !ok {
			continue
		}
		if !c.gate.Contains(center.Lat, center.Lon) {
			continue
		}
		out = append(out, Feature{
			ExternalID:  r.OSMID,
			DisplayName: r.DisplayName,
			SourceClass: r.Class,
			SourceType:  r.Type,
			Geometry:    g,
			Center:      center,
		})
	}
	return out
}

// Features returns the cached features for a category.
func (c *Cache) Features(code string) []Feature {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[code]
	if e == nil {
		return nil
	}
	out := make([]Feature, len(e.features))
	copy(out, e.features)
	return out
}

// Enabled lists the currently enabled category codes, sorted.
func (c *Cache) Enabled() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for code, e := range c.entries {
		if e.enabled {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}

// Loading reports whether a fetch for the category is in flight.
func (c *Cache) Loading(code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[code]
	return e != nil && e.inflight > 0
}
