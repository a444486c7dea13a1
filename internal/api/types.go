package api

import "encoding/json"

// Wire types for the collaborator API. Field names follow the service
// contract exactly.

type ConsentResponse struct {
	ParticipantID string `json:"participant_id"`
}

type GeocodeResult struct {
	OSMID       int64           `json:"osm_id"`
	OSMType     string          `json:"osm_type"`
	DisplayName string          `json:"display_name"`
	Class       string          `json:"class"`
	Type        string          `json:"type"`
	GeoJSON     json.RawMessage `json:"geojson"`
}

type GeocodeResponse struct {
	Results []GeocodeResult `json:"results"`
	Error   string          `json:"error,omitempty"`
}

type CategoryInfo struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

type CategoriesResponse struct {
	Categories []CategoryInfo `json:"categories"`
}

type CategoryFeatureResult struct {
	OSMID       int64           `json:"osm_id"`
	DisplayName string          `json:"display_name"`
	Class       string          `json:"class"`
	Type        string          `json:"type"`
	GeoJSON     json.RawMessage `json:"geojson"`
}

type CategoryFeaturesResponse struct {
	Results []CategoryFeatureResult `json:"results"`
}

type BoundaryResponse struct {
	GeoJSON json.RawMessage `json:"geojson"`
}

// ManualPolygon carries a hand-drawn selection.
type ManualPolygon struct {
	Name          string          `json:"name"`
	Importance1_5 int             `json:"importance_1_5"`
	Comment       string          `json:"comment"`
	GeoJSON       json.RawMessage `json:"geojson"`
}

// SelectionRecord is one submitted selection, either an external feature or a
// manual polygon, tagged by theme.
type SelectionRecord struct {
	ThemeCode string `json:"theme_code"`

	OSMID          int64           `json:"osm_id,omitempty"`
	Importance1_5  int             `json:"importance_1_5,omitempty"`
	Comment        string          `json:"comment,omitempty"`
	OSMType        string          `json:"osm_type,omitempty"`
	DisplayName    string          `json:"display_name,omitempty"`
	OSMClass       string          `json:"osm_class,omitempty"`
	OSMFeatureType string          `json:"osm_feature_type,omitempty"`
	GeoJSON        json.RawMessage `json:"geojson,omitempty"`

	ManualPolygon *ManualPolygon `json:"manual_polygon,omitempty"`
}

type SubmitPayload struct {
	ParticipantID string            `json:"participant_id"`
	Selections    []SelectionRecord `json:"selections"`
}
