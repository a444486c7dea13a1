package survey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/urbanperceptions/survey-client/internal/api"
	"github.com/urbanperceptions/survey-client/internal/core/model"
	"github.com/urbanperceptions/survey-client/internal/geom"
	"github.com/urbanperceptions/survey-client/internal/layercache"
	"github.com/urbanperceptions/survey-client/internal/searchcache"
	"github.com/urbanperceptions/survey-client/internal/selection"
	"github.com/urbanperceptions/survey-client/internal/taxonomy"
)

type allowAll struct{}

func (allowAll) Contains(_, _ float64) bool { return true }

type fakeBackend struct {
	mu        sync.Mutex
	geocode   []api.GeocodeResult
	geoErr    error
	geoCalls  int
	submitted [][]api.SelectionRecord
	submitErr error

	fetchCalls int
}

func (f *fakeBackend) Geocode(_ context.Context, _ string) ([]api.GeocodeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geoCalls++
	return f.geocode, f.geoErr
}

func (f *fakeBackend) Submit(_ context.Context, _ string, recs []api.SelectionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, recs)
	return nil
}

func (f *fakeBackend) CategoryFeatures(_ context.Context, _ string, _ model.BBox, _ int) ([]api.CategoryFeatureResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	return nil, nil
}

func (f *fakeBackend) fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testViewport = model.BBox{West: -9.16, South: 38.70, East: -9.12, North: 38.74}

func newPage(t *testing.T, b *fakeBackend, debounce time.Duration) *Page {
	t.Helper()
	layers := layercache.New(b, allowAll{}, layercache.Config{
		CityBBox: model.BBox{West: -9.25, South: 38.65, East: -9.05, North: 38.80},
	}, discard())
	return NewPage(PageConfig{
		Theme:            "identity",
		Backend:          b,
		Layers:           layers,
		Selections:       selection.NewSet("identity", allowAll{}, 0),
		SearchCache:      searchcache.New(8),
		DebounceInterval: debounce,
		InitialViewport:  testViewport,
		Logger:           discard(),
	})
}

func polyJSON(lat, lon float64) json.RawMessage {
	const d = 0.001
	return json.RawMessage(fmt.Sprintf(
		`{"type":"Polygon","coordinates":[[[%f,%f],[%f,%f],[%f,%f],[%f,%f],[%f,%f]]]}`,
		lon-d, lat-d, lon+d, lat-d, lon+d, lat+d, lon-d, lat+d, lon-d, lat-d))
}

func TestSearch_FiltersNonPolygonal(t *testing.T) {
	b := &fakeBackend{geocode: []api.GeocodeResult{
		{OSMID: 1, DisplayName: "a fountain", Class: "amenity", Type: "fountain",
			GeoJSON: json.RawMessage(`{"type":"Point","coordinates":[-9.14,38.72]}`)},
		{OSMID: 2, DisplayName: "a park", Class: "leisure", Type: "park",
			GeoJSON: polyJSON(38.72, -9.14)},
	}}
	p := newPage(t, b, time.Hour)

	got, err := p.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].OSMID != 2 {
		t.Fatalf("addable results = %+v, want only the polygon", got)
	}
	if got[0].Category != taxonomy.Parks {
		t.Errorf("category = %q, want parks", got[0].Category)
	}
	if got[0].Color == "" {
		t.Error("results must carry a display color")
	}
}

func TestSearch_UsesCache(t *testing.T) {
	b := &fakeBackend{geocode: []api.GeocodeResult{
		{OSMID: 2, Class: "leisure", Type: "park", GeoJSON: polyJSON(38.72, -9.14)},
	}}
	p := newPage(t, b, time.Hour)

	if _, err := p.Search(context.Background(), "parque"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Search(context.Background(), "  PARQUE "); err != nil {
		t.Fatal(err)
	}
	if b.geoCalls != 1 {
		t.Fatalf("geocode calls = %d, want 1 (second search cached)", b.geoCalls)
	}
}

func TestContinue_SkipWhenEmpty(t *testing.T) {
	b := &fakeBackend{}
	p := newPage(t, b, time.Hour)
	if err := p.Continue(context.Background(), "pid"); err != nil {
		t.Fatalf("empty page should skip cleanly: %v", err)
	}
	if len(b.submitted) != 0 {
		t.Fatal("skip must not submit")
	}
}

func TestContinue_BlockedByUnnamedShapes(t *testing.T) {
	b := &fakeBackend{}
	p := newPage(t, b, time.Hour)
	g, _ := geom.Parse(polyJSON(38.72, -9.14))
	if _, err := p.Draw(g); err != nil {
		t.Fatal(err)
	}

	err := p.Continue(context.Background(), "pid")
	var unnamed *UnnamedShapesError
	if !errors.As(err, &unnamed) {
		t.Fatalf("err = %v, want UnnamedShapesError", err)
	}
	if len(unnamed.Problems) != 1 {
		t.Fatalf("problems = %d, want 1", len(unnamed.Problems))
	}
	if len(b.submitted) != 0 {
		t.Fatal("blocked page must not submit")
	}
}

func TestContinue_SubmitsAndReportsFailure(t *testing.T) {
	b := &fakeBackend{submitErr: errors.New("gateway timeout")}
	p := newPage(t, b, time.Hour)
	if err := p.Add(SearchResult{GeocodeResult: api.GeocodeResult{
		OSMID: 5, Class: "leisure", Type: "park", GeoJSON: polyJSON(38.72, -9.14),
	}}); err != nil {
		t.Fatal(err)
	}

	err := p.Continue(context.Background(), "pid")
	if !errors.Is(err, ErrSubmitFailed) {
		t.Fatalf("err = %v, want ErrSubmitFailed", err)
	}

	// retry after the backend recovers
	b.mu.Lock()
	b.submitErr = nil
	b.mu.Unlock()
	if err := p.Continue(context.Background(), "pid"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(b.submitted) != 1 || len(b.submitted[0]) != 1 {
		t.Fatalf("submitted = %+v", b.submitted)
	}
	if b.submitted[0][0].ThemeCode != "identity" {
		t.Errorf("theme code = %q", b.submitted[0][0].ThemeCode)
	}
}

func TestViewportChanged_DebouncedRefresh(t *testing.T) {
	b := &fakeBackend{}
	p := newPage(t, b, 30*time.Millisecond)
	p.ToggleCategory(context.Background(), "parks", true)
	p.ToggleCategory(context.Background(), "schools", true)
	base := b.fetches() // the two toggle loads

	// a burst of moves collapses to one refresh per enabled category
	for i := 0; i < 5; i++ {
		p.ViewportChanged(model.BBox{
			West: testViewport.West + float64(i)*0.001, South: testViewport.South,
			East: testViewport.East + float64(i)*0.001, North: testViewport.North,
		})
	}

	deadline := time.After(time.Second)
	for b.fetches() < base+2 {
		select {
		case <-deadline:
			t.Fatalf("refresh never fired, fetches = %d", b.fetches())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	// settle and make sure no extra refreshes leak in
	time.Sleep(100 * time.Millisecond)
	if got := b.fetches(); got != base+2 {
		t.Fatalf("fetches = %d, want %d (burst must collapse)", got, base+2)
	}
}

func TestWizard_Transitions(t *testing.T) {
	b := &fakeBackend{}
	pages := []*Page{newPage(t, b, time.Hour), newPage(t, b, time.Hour), newPage(t, b, time.Hour)}
	w := NewWizard(pages)

	if w.Index() != 0 || w.Current() != pages[0] {
		t.Fatal("wizard must start at page 0")
	}

	w.Back() // floored at 0
	if w.Index() != 0 {
		t.Error("back at first page must stay")
	}

	if done := w.Next(); done || w.Index() != 1 {
		t.Fatalf("next: done=%v idx=%d", done, w.Index())
	}
	if done := w.Next(); done || w.Index() != 2 {
		t.Fatalf("next: done=%v idx=%d", done, w.Index())
	}
	if done := w.Next(); !done {
		t.Fatal("advancing past the last page must complete the wizard")
	}
	if !w.Done() || w.Current() != nil {
		t.Error("completed wizard must have no current page")
	}
}

func TestDebouncer_OnlyLastCallbackFires(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var mu sync.Mutex
	var got []int
	for i := 0; i < 4; i++ {
		i := i
		d.Trigger(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	time.Sleep(80 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != 3 {
		t.Fatalf("fired callbacks = %v, want only the last", got)
	}
}
