// Package stubapi serves the collaborator API contract with canned Lisbon
// data, so the whole survey flow runs without any external service.
package stubapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/urbanperceptions/survey-client/internal/api"
	"github.com/urbanperceptions/survey-client/internal/core/health"
	"github.com/urbanperceptions/survey-client/internal/core/middleware"
	"github.com/urbanperceptions/survey-client/internal/core/model"
	"github.com/urbanperceptions/survey-client/internal/geom"
	"github.com/urbanperceptions/survey-client/internal/observability"
	"github.com/urbanperceptions/survey-client/internal/taxonomy"
)

type Server struct {
	logger *slog.Logger

	mu           sync.Mutex
	participants map[string]struct{}
	profiles     map[string]json.RawMessage
	submissions  []api.SubmitPayload
}

func New(logger *slog.Logger) *Server {
	return &Server{
		logger:       logger,
		participants: map[string]struct{}{},
		profiles:     map[string]json.RawMessage{},
	}
}

// Submissions returns everything accepted so far.
func (s *Server) Submissions() []api.SubmitPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.SubmitPayload, len(s.submissions))
	copy(out, s.submissions)
	return out
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover())
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Get("/consent", s.instrument("/consent", s.handleConsent))
	r.Post("/profile", s.instrument("/profile", s.handleProfile))
	r.Get("/geocode", s.instrument("/geocode", s.handleGeocode))
	r.Get("/categories", s.instrument("/categories", s.handleCategories))
	r.Get("/category/{code}", s.instrument("/category/{code}", s.handleCategory))
	r.Get("/lisbon_boundary", s.instrument("/lisbon_boundary", s.handleBoundary))
	r.Post("/submit", s.instrument("/submit", s.handleSubmit))

	return r
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		h(sw, r)
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleConsent(w http.ResponseWriter, _ *http.Request) {
	pid := uuid.NewString()
	s.mu.Lock()
	s.participants[pid] = struct{}{}
	s.mu.Unlock()
	writeJSON(w, api.ConsentResponse{ParticipantID: pid})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	pid := r.URL.Query().Get("participant_id")
	s.mu.Lock()
	_, known := s.participants[pid]
	s.mu.Unlock()
	if !known {
		http.Error(w, "participant not found", http.StatusBadRequest)
		return
	}
	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid profile body", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.profiles[pid] = body
	s.mu.Unlock()
	writeJSON(w, map[string]bool{"ok": true})
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	if q == "" {
		writeJSON(w, api.GeocodeResponse{Error: "missing query"})
		return
	}
	var out []api.GeocodeResult
	for _, p := range places {
		if strings.Contains(strings.ToLower(p.DisplayName), q) {
			out = append(out, p)
		}
	}
	writeJSON(w, api.GeocodeResponse{Results: out})
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	out := api.CategoriesResponse{}
	for _, c := range taxonomy.All {
		out.Categories = append(out.Categories, api.CategoryInfo{
			Code:  string(c),
			Label: taxonomy.Label(c),
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	features, ok := categoryFeatures[code]
	if !ok {
		writeJSON(w, api.CategoryFeaturesResponse{})
		return
	}

	bbox, err := model.ParseBBox(r.URL.Query().Get("bbox"))
	if err != nil {
		http.Error(w, "invalid bbox: "+err.Error(), http.StatusBadRequest)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, aerr := strconv.Atoi(v); aerr == nil && n > 0 {
			limit = n
		}
	}

	out := api.CategoryFeaturesResponse{}
	for _, f := range features {
		g, gerr := geom.Parse(f.GeoJSON)
		if gerr != nil {
			continue
		}
		center, ok := geom.Center(g)
		if !ok || !bbox.Contains(center.Lat, center.Lon) {
			continue
		}
		out.Results = append(out.Results, f)
		if len(out.Results) >= limit {
			break
		}
	}
	writeJSON(w, out)
}

func (s *Server) handleBoundary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, api.BoundaryResponse{GeoJSON: json.RawMessage(boundaryGeoJSON)})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload api.SubmitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid submit body", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	_, known := s.participants[payload.ParticipantID]
	if known {
		s.submissions = append(s.submissions, payload)
	}
	s.mu.Unlock()
	if !known {
		http.Error(w, "participant not found", http.StatusBadRequest)
		return
	}
	s.logger.Info("submission accepted",
		"participant_id", payload.ParticipantID, "selections", len(payload.Selections))
	writeJSON(w, map[string]bool{"ok": true})
}
