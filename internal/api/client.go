// Package api implements the HTTP client for the survey collaborator
// services: geocoding, category features, the city boundary and the
// persistence endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/urbanperceptions/survey-client/internal/core/httpclient"
	"github.com/urbanperceptions/survey-client/internal/core/model"
	"github.com/urbanperceptions/survey-client/internal/observability"
	"github.com/urbanperceptions/survey-client/internal/profile"
)

type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger

	// When test mode is on, mutating calls are skipped and success is
	// simulated so the whole flow can run with no persistence backend.
	testMode bool
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithTestMode(on bool) Option {
	return func(c *Client) { c.testMode = on }
}

func New(baseURL string, logger *slog.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:   u,
		http:   httpclient.NewOutbound(),
		logger: logger,
	}
	for _, f := range opts {
		f(c)
	}
	return c, nil
}

func (c *Client) TestMode() bool { return c.testMode }

// CreateParticipant registers a new participant and returns its identifier.
// In test mode a local identifier is minted instead.
func (c *Client) CreateParticipant(ctx context.Context) (string, error) {
	if c.testMode {
		pid := uuid.NewString()
		c.logger.Info("test mode: minted local participant", "participant_id", pid)
		return pid, nil
	}
	var out ConsentResponse
	if err := c.getJSON(ctx, "consent", "/consent", nil, &out); err != nil {
		return "", err
	}
	if out.ParticipantID == "" {
		return "", fmt.Errorf("consent response missing participant_id")
	}
	return out.ParticipantID, nil
}

// SaveProfile persists the demographic form for a participant.
func (c *Client) SaveProfile(ctx context.Context, participantID string, p profile.Profile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	if c.testMode {
		c.logger.Info("test mode: profile save skipped", "participant_id", participantID)
		return nil
	}
	q := url.Values{"participant_id": {participantID}}
	return c.postJSON(ctx, "profile", "/profile", q, p, nil)
}

// Geocode runs a text search against the geocoding collaborator.
func (c *Client) Geocode(ctx context.Context, query string) ([]GeocodeResult, error) {
	q := url.Values{"q": {query}}
	var out GeocodeResponse
	if err := c.getJSON(ctx, "geocode", "/geocode", q, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, fmt.Errorf("geocode: %s", out.Error)
	}
	return out.Results, nil
}

// Categories lists the category taxonomy offered by the collaborator.
func (c *Client) Categories(ctx context.Context) ([]CategoryInfo, error) {
	var out CategoriesResponse
	if err := c.getJSON(ctx, "categories", "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// CategoryFeatures fetches candidate features for one category within a
// bounding box.
func (c *Client) CategoryFeatures(ctx context.Context, code string, bbox model.BBox, limit int) ([]CategoryFeatureResult, error) {
	q := url.Values{
		"bbox":  {bbox.String()},
		"limit": {strconv.Itoa(limit)},
	}
	var out CategoryFeaturesResponse
	if err := c.getJSON(ctx, "category_features", "/category/"+url.PathEscape(code), q, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// CityBoundary fetches the study-area boundary geometry.
func (c *Client) CityBoundary(ctx context.Context) (json.RawMessage, error) {
	var out BoundaryResponse
	if err := c.getJSON(ctx, "boundary", "/lisbon_boundary", nil, &out); err != nil {
		return nil, err
	}
	return out.GeoJSON, nil
}

// Submit sends the selection records for a participant.
func (c *Client) Submit(ctx context.Context, participantID string, selections []SelectionRecord) error {
	if c.testMode {
		c.logger.Info("test mode: submit skipped",
			"participant_id", participantID, "selections", len(selections))
		return nil
	}
	payload := SubmitPayload{ParticipantID: participantID, Selections: selections}
	return c.postJSON(ctx, "submit", "/submit", nil, payload, nil)
}

func (c *Client) getJSON(ctx context.Context, op, path string, q url.Values, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(op, req, out)
}

func (c *Client) postJSON(ctx context.Context, op, path string, q url.Values, body, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}

	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode body: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(op, req, out)
}

func (c *Client) do(op string, req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	observability.ObserveUpstreamLatency(op, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("close response body", "op", op, "err", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: status=%d body=%q", op, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
