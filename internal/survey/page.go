// Package survey orchestrates the theme pages and the wizard that sequences
// them.
package survey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/urbanperceptions/survey-client/internal/api"
	"github.com/urbanperceptions/survey-client/internal/core/model"
	"github.com/urbanperceptions/survey-client/internal/geom"
	"github.com/urbanperceptions/survey-client/internal/layercache"
	"github.com/urbanperceptions/survey-client/internal/logger"
	"github.com/urbanperceptions/survey-client/internal/observability"
	"github.com/urbanperceptions/survey-client/internal/searchcache"
	"github.com/urbanperceptions/survey-client/internal/selection"
	"github.com/urbanperceptions/survey-client/internal/taxonomy"
)

// Backend covers the collaborator operations a theme page performs.
type Backend interface {
	Geocode(ctx context.Context, query string) ([]api.GeocodeResult, error)
	Submit(ctx context.Context, participantID string, selections []api.SelectionRecord) error
}

// ErrSubmitFailed wraps a failed submission; the caller decides whether to
// retry or proceed anyway.
var ErrSubmitFailed = errors.New("submission failed")

// UnnamedShapesError blocks Continue while drawn shapes lack names.
type UnnamedShapesError struct {
	Problems []error
}

func (e *UnnamedShapesError) Error() string {
	return fmt.Sprintf("%d drawn shapes need a name before submitting", len(e.Problems))
}

// SearchResult is an addable candidate from a geocode search, classified and
// colored for display.
type SearchResult struct {
	api.GeocodeResult
	Center   model.LatLon
	Category taxonomy.Category
	Color    string
}

// Page runs search, category browsing, drawing and selection management for
// one survey theme.
type Page struct {
	Theme string

	backend Backend
	layers  *layercache.Cache
	set     *selection.Set
	cache   *searchcache.Cache
	logger  *slog.Logger

	debounce *Debouncer

	mu       sync.Mutex
	viewport model.Viewport
}

type PageConfig struct {
	Theme            string
	Backend          Backend
	Layers           *layercache.Cache
	Selections       *selection.Set
	SearchCache      *searchcache.Cache
	DebounceInterval time.Duration
	InitialViewport  model.Viewport
	Logger           *slog.Logger
}

func NewPage(cfg PageConfig) *Page {
	return &Page{
		Theme:    cfg.Theme,
		backend:  cfg.Backend,
		layers:   cfg.Layers,
		set:      cfg.Selections,
		cache:    cfg.SearchCache,
		logger:   cfg.Logger,
		debounce: NewDebouncer(cfg.DebounceInterval),
		viewport: cfg.InitialViewport,
	}
}

// Search runs a geocode query and returns only addable (polygonal) results,
// each classified into the category taxonomy.
func (p *Page) Search(ctx context.Context, query string) ([]SearchResult, error) {
	ctx = logger.WithTheme(ctx, p.Theme)

	raw, ok := p.cache.Get(query)
	if ok {
		observability.IncSearch("cached")
	} else {
		var err error
		raw, err = p.backend.Geocode(ctx, query)
		if err != nil {
			observability.IncSearch("failed")
			return nil, fmt.Errorf("search %q: %w", query, err)
		}
		p.cache.Put(query, raw)
		observability.IncSearch("fetched")
	}

	out := make([]SearchResult, 0, len(raw))
	for _, r := range raw {
		g, err := geom.Parse(r.GeoJSON)
		if err != nil || !geom.IsPolygonal(g) {
			continue
		}
		center, ok := geom.Center(g)
		if !ok {
			continue
		}
		sr := SearchResult{GeocodeResult: r, Center: center}
		if cat, ok := taxonomy.Classify(r.Class, r.Type); ok {
			sr.Category = cat
		}
		sr.Color = taxonomy.Color(sr.Category)
		out = append(out, sr)
	}
	p.logger.InfoContext(ctx, "search done",
		"query", query, "results", len(raw), "addable", len(out))
	return out, nil
}

// Add imports a search result into the selection set.
func (p *Page) Add(r SearchResult) error {
	return p.set.AddFromSearch(r.GeocodeResult)
}

// Draw accepts a hand-drawn shape; the returned layer key correlates the
// selection to the live drawn shape.
func (p *Page) Draw(g geom.Geometry) (string, error) {
	return p.set.AddFromDrawing(g)
}

func (p *Page) Selections() *selection.Set { return p.set }

func (p *Page) Layers() *layercache.Cache { return p.layers }

// ToggleCategory turns a category layer on or off for the current viewport.
func (p *Page) ToggleCategory(ctx context.Context, code string, enabled bool) {
	p.mu.Lock()
	vp := p.viewport
	p.mu.Unlock()
	p.layers.Toggle(logger.WithTheme(ctx, p.Theme), code, enabled, vp)
}

// ViewportChanged records a map move and schedules a debounced refresh of
// every enabled category, so continuous panning collapses to one fetch
// burst.
func (p *Page) ViewportChanged(vp model.Viewport) {
	p.mu.Lock()
	p.viewport = vp
	p.mu.Unlock()

	p.debounce.Trigger(func() {
		ctx := logger.WithTheme(context.Background(), p.Theme)
		p.mu.Lock()
		cur := p.viewport
		p.mu.Unlock()
		for _, code := range p.layers.Enabled() {
			p.layers.Refresh(ctx, code, cur)
		}
	})
}

// Viewport returns the last reported map extent.
func (p *Page) Viewport() model.Viewport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewport
}

// Continue finishes the page: with no selections it is a skip; otherwise the
// set is validated and submitted. A validation failure returns
// *UnnamedShapesError; a network failure returns an error wrapping
// ErrSubmitFailed and the participant chooses to retry or proceed.
func (p *Page) Continue(ctx context.Context, participantID string) error {
	p.debounce.Stop()
	ctx = logger.WithTheme(logger.WithParticipant(ctx, participantID), p.Theme)

	if p.set.Len() == 0 {
		p.logger.InfoContext(ctx, "theme skipped, no selections")
		return nil
	}
	if problems := p.set.ValidateForSubmit(); len(problems) > 0 {
		return &UnnamedShapesError{Problems: problems}
	}

	recs := p.set.SubmissionRecords()
	if err := p.backend.Submit(ctx, participantID, recs); err != nil {
		observability.IncSubmission("failed")
		return fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	observability.IncSubmission("ok")
	p.logger.InfoContext(ctx, "theme submitted", "selections", len(recs))
	return nil
}
