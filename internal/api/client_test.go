package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/urbanperceptions/survey-client/internal/core/model"
	"github.com/urbanperceptions/survey-client/internal/profile"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCreateParticipant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/consent" {
			t.Errorf("path = %q, want /consent", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"participant_id":"abc-123"}`)
	}))
	defer srv.Close()

	c, err := New(srv.URL, discard())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	pid, err := c.CreateParticipant(context.Background())
	if err != nil {
		t.Fatalf("consent: %v", err)
	}
	if pid != "abc-123" {
		t.Errorf("pid = %q, want abc-123", pid)
	}
}

func TestGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "alfama" {
			t.Errorf("q = %q, want alfama", got)
		}
		_, _ = io.WriteString(w, `{"results":[
			{"osm_id":42,"osm_type":"way","display_name":"Alfama, Lisboa","class":"place","type":"suburb",
			 "geojson":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}
		]}`)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, discard())
	res, err := c.Geocode(context.Background(), "alfama")
	if err != nil {
		t.Fatalf("geocode: %v", err)
	}
	if len(res) != 1 || res[0].OSMID != 42 || res[0].Class != "place" {
		t.Fatalf("unexpected results: %+v", res)
	}
}

func TestGeocode_ErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"results":[],"error":"upstream rate limited"}`)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, discard())
	if _, err := c.Geocode(context.Background(), "x"); err == nil {
		t.Fatal("expected error from error field")
	}
}

func TestCategoryFeatures_Params(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/category/parks" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("bbox"); got != "-9.250000,38.650000,-9.050000,38.800000" {
			t.Errorf("bbox = %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "900" {
			t.Errorf("limit = %q", got)
		}
		_, _ = io.WriteString(w, `{"results":[]}`)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, discard())
	bb := model.BBox{West: -9.25, South: 38.65, East: -9.05, North: 38.80}
	if _, err := c.CategoryFeatures(context.Background(), "parks", bb, 900); err != nil {
		t.Fatalf("category features: %v", err)
	}
}

func TestSubmit_Body(t *testing.T) {
	var got SubmitPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, discard())
	recs := []SelectionRecord{
		{ThemeCode: "identity", OSMID: 42, Importance1_5: 3, OSMType: "way"},
		{ThemeCode: "identity", ManualPolygon: &ManualPolygon{Name: "my block", Importance1_5: 4}},
	}
	if err := c.Submit(context.Background(), "pid-1", recs); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.ParticipantID != "pid-1" || len(got.Selections) != 2 {
		t.Fatalf("payload = %+v", got)
	}
	if got.Selections[1].ManualPolygon == nil || got.Selections[1].ManualPolygon.Name != "my block" {
		t.Fatalf("manual polygon not carried: %+v", got.Selections[1])
	}
}

func TestTestMode_SkipsMutatingCalls(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, discard(), WithTestMode(true))

	pid, err := c.CreateParticipant(context.Background())
	if err != nil || pid == "" {
		t.Fatalf("test-mode consent: pid=%q err=%v", pid, err)
	}
	p := profile.Profile{
		AgeBand: "25-34", Gender: "m", Residency: profile.LivesNow,
		Belonging: 3, SafetyDay: 3, SafetyNight: 3,
	}
	if err := c.SaveProfile(context.Background(), pid, p); err != nil {
		t.Fatalf("test-mode profile: %v", err)
	}
	if err := c.Submit(context.Background(), pid, nil); err != nil {
		t.Fatalf("test-mode submit: %v", err)
	}
	if n := atomic.LoadInt64(&calls); n != 0 {
		t.Fatalf("server saw %d calls in test mode, want 0", n)
	}
}

func TestNon2xxStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, discard())
	if _, err := c.Categories(context.Background()); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	if _, err := New("not-a-url", discard()); err == nil {
		t.Fatal("expected error for relative base url")
	}
}
