package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
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
	"github.com/urbanperceptions/survey-client/internal/stubapi"
	"github.com/urbanperceptions/survey-client/internal/survey"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var studyBBox = model.BBox{West: -9.25, South: 38.65, East: -9.05, North: 38.80}

func newPages(t *testing.T, client *api.Client, themes []string) []*survey.Page {
	t.Helper()
	gate := boundary.New(studyBBox)
	gate.Load(context.Background(), client, testLogger)

	pages := make([]*survey.Page, 0, len(themes))
	for _, theme := range themes {
		layers := layercache.New(client, gate, layercache.Config{
			CityBBox:       studyBBox,
			FirstLoadLimit: 900,
			ViewportLimit:  300,
		}, testLogger)
		pages = append(pages, survey.NewPage(survey.PageConfig{
			Theme:            theme,
			Backend:          client,
			Layers:           layers,
			Selections:       selection.NewSet(theme, gate, 1e-4),
			SearchCache:      searchcache.New(16),
			DebounceInterval: time.Millisecond,
			InitialViewport:  studyBBox,
			Logger:           testLogger,
		}))
	}
	return pages
}

func TestScriptedFullSurvey(t *testing.T) {
	backend := stubapi.New(testLogger)
	ts := httptest.NewServer(backend.Handler())
	defer ts.Close()

	client, err := api.New(ts.URL, testLogger)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	ctx := context.Background()
	pid, err := client.CreateParticipant(ctx)
	if err != nil {
		t.Fatalf("CreateParticipant: %v", err)
	}

	// Theme 1: pick a park, draw an unnamed shape, get blocked, name it,
	// submit. Themes 2 and 3: skip.
	script := strings.Join([]string{
		"search jardim",
		"add 1",
		"importance 1 5",
		"draw -9.14,38.71 -9.13,38.71 -9.13,38.72",
		"continue",
		"name 2 Quiet corner",
		"continue",
		"continue",
		"continue",
	}, "\n") + "\n"

	var out bytes.Buffer
	u := newUI(strings.NewReader(script), &out)

	themes := []string{"identity", "cultural_change", "cost_perception"}
	wiz := survey.NewWizard(newPages(t, client, themes))
	if err := u.runWizard(ctx, wiz, client, pid); err != nil {
		t.Fatalf("runWizard: %v", err)
	}
	if !wiz.Done() {
		t.Fatal("wizard should be done after the script")
	}

	if !strings.Contains(out.String(), "need a name") {
		t.Errorf("unnamed shape should have blocked the first continue; output:\n%s", out.String())
	}

	subs := backend.Submissions()
	if len(subs) != 1 {
		t.Fatalf("submissions: %d, want 1 (skipped themes submit nothing)", len(subs))
	}
	recs := subs[0].Selections
	if len(recs) != 2 {
		t.Fatalf("submitted records: %d, want 2", len(recs))
	}
	if recs[0].DisplayName != "Jardim da Estrela, Lisboa, Portugal" || recs[0].Importance1_5 != 5 {
		t.Errorf("first record: %+v", recs[0])
	}
	if recs[1].ManualPolygon == nil || recs[1].ManualPolygon.Name != "Quiet corner" {
		t.Errorf("second record should be the named manual shape: %+v", recs[1])
	}
}

func TestScriptedRejections(t *testing.T) {
	backend := stubapi.New(testLogger)
	ts := httptest.NewServer(backend.Handler())
	defer ts.Close()

	client, err := api.New(ts.URL, testLogger)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}

	// A shape outside the study area and a duplicate add must both be
	// rejected with a message, not accepted or fatal.
	script := strings.Join([]string{
		"draw 0,0 1,0 1,1",
		"search alfama",
		"add 1",
		"add 1",
		"quit",
	}, "\n") + "\n"

	var out bytes.Buffer
	u := newUI(strings.NewReader(script), &out)
	wiz := survey.NewWizard(newPages(t, client, []string{"identity"}))
	if err := u.runWizard(context.Background(), wiz, client, "p1"); err != nil {
		t.Fatalf("runWizard: %v", err)
	}

	if !strings.Contains(out.String(), "outside the study area") {
		t.Errorf("expected study-area rejection in output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "already in your selection") {
		t.Errorf("expected duplicate rejection in output:\n%s", out.String())
	}
	if got := wiz.Current().Selections().Len(); got != 1 {
		t.Errorf("selections after rejections: %d, want 1", got)
	}
}
