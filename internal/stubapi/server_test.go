package stubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/urbanperceptions/survey-client/internal/api"
	"github.com/urbanperceptions/survey-client/internal/boundary"
	"github.com/urbanperceptions/survey-client/internal/core/model"
	"github.com/urbanperceptions/survey-client/internal/layercache"
	"github.com/urbanperceptions/survey-client/internal/searchcache"
	"github.com/urbanperceptions/survey-client/internal/selection"
	"github.com/urbanperceptions/survey-client/internal/survey"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var studyBBox = model.BBox{West: -9.25, South: 38.65, East: -9.05, North: 38.80}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(testLogger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func getDecoded(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestConsentMintsDistinctParticipants(t *testing.T) {
	_, ts := newTestServer(t)

	var a, b api.ConsentResponse
	getDecoded(t, ts.URL+"/consent", &a)
	getDecoded(t, ts.URL+"/consent", &b)
	if a.ParticipantID == "" || a.ParticipantID == b.ParticipantID {
		t.Fatalf("want two distinct non-empty ids, got %q and %q", a.ParticipantID, b.ParticipantID)
	}
}

func TestProfileRequiresKnownParticipant(t *testing.T) {
	_, ts := newTestServer(t)

	body := strings.NewReader(`{"residency":"lives_now"}`)
	resp, err := http.Post(ts.URL+"/profile?participant_id=nobody", "application/json", body)
	if err != nil {
		t.Fatalf("POST /profile: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown participant: status = %d, want 400", resp.StatusCode)
	}
}

func TestGeocodeMatchesSubstring(t *testing.T) {
	_, ts := newTestServer(t)

	var out api.GeocodeResponse
	getDecoded(t, ts.URL+"/geocode?q=alfama", &out)
	if len(out.Results) != 1 || out.Results[0].DisplayName != "Alfama, Lisboa, Portugal" {
		t.Fatalf("geocode alfama: got %+v", out.Results)
	}

	getDecoded(t, ts.URL+"/geocode?q=", &out)
	if out.Error == "" {
		t.Fatal("empty query: want error field set")
	}
}

func TestCategoryHonorsBBoxAndLimit(t *testing.T) {
	_, ts := newTestServer(t)

	var all api.CategoryFeaturesResponse
	getDecoded(t, ts.URL+"/category/parks?bbox="+studyBBox.String()+"&limit=900", &all)
	if len(all.Results) != 3 {
		t.Fatalf("city-wide parks: got %d, want 3", len(all.Results))
	}

	var limited api.CategoryFeaturesResponse
	getDecoded(t, ts.URL+"/category/parks?bbox="+studyBBox.String()+"&limit=1", &limited)
	if len(limited.Results) != 1 {
		t.Fatalf("limit=1: got %d results", len(limited.Results))
	}

	// A viewport around Estrela excludes Monsanto and Eduardo VII.
	vp := model.BBox{West: -9.17, South: 38.705, East: -9.15, North: 38.72}
	var windowed api.CategoryFeaturesResponse
	getDecoded(t, ts.URL+"/category/parks?bbox="+vp.String()+"&limit=300", &windowed)
	if len(windowed.Results) != 1 || windowed.Results[0].DisplayName != "Jardim da Estrela" {
		t.Fatalf("windowed parks: got %+v", windowed.Results)
	}
}

func TestSubmitStoresPayload(t *testing.T) {
	srv, ts := newTestServer(t)

	var consent api.ConsentResponse
	getDecoded(t, ts.URL+"/consent", &consent)

	payload := api.SubmitPayload{
		ParticipantID: consent.ParticipantID,
		Selections: []api.SelectionRecord{
			{ThemeCode: "identity", OSMID: 42, Importance1_5: 4},
		},
	}
	body, _ := json.Marshal(payload)
	resp, err := http.Post(ts.URL+"/submit", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /submit: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit: status %d", resp.StatusCode)
	}

	got := srv.Submissions()
	if len(got) != 1 || got[0].Selections[0].OSMID != 42 {
		t.Fatalf("stored submissions: %+v", got)
	}
}

// Drives the full flow through the real client and page controller against
// the stub backend: consent, boundary, search, select, draw, name, submit.
func TestEndToEndSurveyFlow(t *testing.T) {
	srv, ts := newTestServer(t)

	client, err := api.New(ts.URL, testLogger)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	ctx := context.Background()

	pid, err := client.CreateParticipant(ctx)
	if err != nil {
		t.Fatalf("CreateParticipant: %v", err)
	}

	gate := boundary.New(studyBBox)
	gate.Load(ctx, client, testLogger)
	if gate.UsingFallback() {
		t.Fatal("boundary should load from the stub, not fall back")
	}

	layers := layercache.New(client, gate, layercache.Config{
		CityBBox:       studyBBox,
		FirstLoadLimit: 900,
		ViewportLimit:  300,
	}, testLogger)
	set := selection.NewSet("identity", gate, 1e-4)

	page := survey.NewPage(survey.PageConfig{
		Theme:            "identity",
		Backend:          client,
		Layers:           layers,
		Selections:       set,
		SearchCache:      searchcache.New(32),
		DebounceInterval: time.Millisecond,
		InitialViewport:  studyBBox,
		Logger:           testLogger,
	})

	results, err := page.Search(ctx, "lisboa")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// The Miradouro is a Point and must not be offered.
	for _, r := range results {
		if strings.Contains(r.DisplayName, "Miradouro") {
			t.Fatalf("point geometry leaked into results: %+v", r)
		}
	}
	var alfama survey.SearchResult
	for _, r := range results {
		if strings.HasPrefix(r.DisplayName, "Alfama") {
			alfama = r
		}
	}
	if alfama.DisplayName == "" {
		t.Fatalf("Alfama missing from results: %+v", results)
	}
	if err := page.Add(alfama); err != nil {
		t.Fatalf("Add: %v", err)
	}

	page.ToggleCategory(ctx, "parks", true)
	if got := layers.Features("parks"); len(got) != 3 {
		t.Fatalf("parks layer after toggle: %d features, want 3", len(got))
	}

	if err := page.Continue(ctx, pid); err != nil {
		t.Fatalf("Continue: %v", err)
	}

	subs := srv.Submissions()
	if len(subs) != 1 {
		t.Fatalf("submissions: %d, want 1", len(subs))
	}
	rec := subs[0].Selections
	if len(rec) != 1 || rec[0].DisplayName != "Alfama, Lisboa, Portugal" || rec[0].ThemeCode != "identity" {
		t.Fatalf("submitted records: %+v", rec)
	}
}
