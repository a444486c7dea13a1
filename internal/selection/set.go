// Package selection holds the ordered set of locations a participant has
// marked for one survey theme, with per-kind dedup and validation rules.
package selection

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/urbanperceptions/survey-client/internal/api"
	"github.com/urbanperceptions/survey-client/internal/core/model"
	"github.com/urbanperceptions/survey-client/internal/geom"
	"github.com/urbanperceptions/survey-client/internal/observability"
)

type Kind string

const (
	KindOSM    Kind = "osm"
	KindManual Kind = "manual"
)

const DefaultImportance = 3

// Rejection reasons surfaced to the participant as blocking messages.
var (
	ErrNotPolygonal     = errors.New("geometry is not a polygon or multipolygon")
	ErrOutsideStudyArea = errors.New("location is outside the study area")
	ErrDuplicateFeature = errors.New("this place is already in your selection")
	ErrDuplicateShape   = errors.New("a nearly identical shape is already drawn")
	ErrNoSuchLayer      = errors.New("no selection with that layer key")
)

// Gate is the study-area containment check every added geometry must pass.
type Gate interface {
	Contains(lat, lon float64) bool
}

// Item is one participant-added location.
type Item struct {
	Kind       Kind
	ThemeCode  string
	Geometry   geom.Geometry
	Center     model.LatLon
	Comment    string
	Importance int // 1-5

	// osm kind
	ExternalID   int64
	ExternalType string
	DisplayName  string
	SourceClass  string
	SourceType   string

	// manual kind
	LayerKey string
	Name     string
}

// Set is the ordered selection for one theme page.
type Set struct {
	themeCode string
	gate      Gate
	tolerance float64

	items []Item
	// external ids already present, so the same feature cannot be imported twice
	seen map[int64]struct{}
}

func NewSet(themeCode string, gate Gate, tolerance float64) *Set {
	if tolerance <= 0 {
		tolerance = 1e-4
	}
	return &Set{
		themeCode: themeCode,
		gate:      gate,
		tolerance: tolerance,
		seen:      map[int64]struct{}{},
	}
}

func (s *Set) Len() int      { return len(s.items) }
func (s *Set) Items() []Item { return s.items }

// AddFromSearch imports a geocode result. Rejects non-polygonal geometry,
// centers outside the study area and features already in the set.
func (s *Set) AddFromSearch(candidate api.GeocodeResult) error {
	g, err := geom.Parse(candidate.GeoJSON)
	if err != nil || !geom.IsPolygonal(g) {
		observability.IncSelectionReject("not_polygonal")
		return ErrNotPolygonal
	}
	center, ok := geom.Center(g)
	if !ok {
		observability.IncSelectionReject("not_polygonal")
		return ErrNotPolygonal
	}
	if !s.gate.Contains(center.Lat, center.Lon) {
		observability.IncSelectionReject("outside_study_area")
		return ErrOutsideStudyArea
	}
	if _, dup := s.seen[candidate.OSMID]; dup {
		observability.IncSelectionReject("duplicate_feature")
		return ErrDuplicateFeature
	}

	s.items = append(s.items, Item{
		Kind:       KindOSM,
		ThemeCode:  s.themeCode,
		Geometry:   g,
		Center:     center,
		Importance: DefaultImportance,

		ExternalID:   candidate.OSMID,
		ExternalType: candidate.OSMType,
		DisplayName:  candidate.DisplayName,
		SourceClass:  candidate.Class,
		SourceType:   candidate.Type,
	})
	s.seen[candidate.OSMID] = struct{}{}
	return nil
}

// AddFromDrawing accepts a hand-drawn shape and returns the layer key that
// correlates the new item to its live drawn shape. Near-duplicates of
// existing manual items are rejected: centers within tolerance on both axes
// and equal outer-ring vertex counts. This is a heuristic, not geometric
// equality; small intentional redraws with a different vertex count pass.
func (s *Set) AddFromDrawing(g geom.Geometry) (string, error) {
	if !geom.IsPolygonal(g) {
		observability.IncSelectionReject("not_polygonal")
		return "", ErrNotPolygonal
	}
	center, ok := geom.Center(g)
	if !ok {
		observability.IncSelectionReject("not_polygonal")
		return "", ErrNotPolygonal
	}
	if !s.gate.Contains(center.Lat, center.Lon) {
		observability.IncSelectionReject("outside_study_area")
		return "", ErrOutsideStudyArea
	}
	vertices := geom.OuterRingVertexCount(g)
	for _, it := range s.items {
		if it.Kind != KindManual {
			continue
		}
		if math.Abs(it.Center.Lat-center.Lat) < s.tolerance &&
			math.Abs(it.Center.Lon-center.Lon) < s.tolerance &&
			geom.OuterRingVertexCount(it.Geometry) == vertices {
			observability.IncSelectionReject("duplicate_shape")
			return "", ErrDuplicateShape
		}
	}

	key := uuid.NewString()
	s.items = append(s.items, Item{
		Kind:       KindManual,
		ThemeCode:  s.themeCode,
		Geometry:   g,
		Center:     center,
		Importance: DefaultImportance,
		LayerKey:   key,
	})
	return key, nil
}

// UpdateGeometry replaces a manual item's shape after a drag or reshape.
// Non-polygonal updates are ignored, keeping the stored shape.
func (s *Set) UpdateGeometry(layerKey string, g geom.Geometry) error {
	if !geom.IsPolygonal(g) {
		return ErrNotPolygonal
	}
	center, ok := geom.Center(g)
	if !ok {
		return ErrNotPolygonal
	}
	for i := range s.items {
		if s.items[i].Kind == KindManual && s.items[i].LayerKey == layerKey {
			s.items[i].Geometry = g
			s.items[i].Center = center
			return nil
		}
	}
	return ErrNoSuchLayer
}

// Remove deletes the item at position i and returns it. For manual items the
// caller must retract the corresponding drawn shape using the returned
// LayerKey; for osm items the external id is released so the feature can be
// re-added.
func (s *Set) Remove(i int) (Item, error) {
	if i < 0 || i >= len(s.items) {
		return Item{}, fmt.Errorf("index %d out of range [0,%d)", i, len(s.items))
	}
	it := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	if it.Kind == KindOSM {
		delete(s.seen, it.ExternalID)
	}
	return it, nil
}

// RemoveByLayerKey deletes the manual item correlated to a drawn shape that
// was deleted with the map tool, keeping both sides synchronized.
func (s *Set) RemoveByLayerKey(layerKey string) (Item, error) {
	for i := range s.items {
		if s.items[i].Kind == KindManual && s.items[i].LayerKey == layerKey {
			return s.Remove(i)
		}
	}
	return Item{}, ErrNoSuchLayer
}

func (s *Set) SetComment(i int, comment string) error {
	if i < 0 || i >= len(s.items) {
		return fmt.Errorf("index %d out of range [0,%d)", i, len(s.items))
	}
	s.items[i].Comment = comment
	return nil
}

// SetImportance clamps to the 1-5 scale.
func (s *Set) SetImportance(i int, importance int) error {
	if i < 0 || i >= len(s.items) {
		return fmt.Errorf("index %d out of range [0,%d)", i, len(s.items))
	}
	if importance < 1 {
		importance = 1
	}
	if importance > 5 {
		importance = 5
	}
	s.items[i].Importance = importance
	return nil
}

func (s *Set) SetName(i int, name string) error {
	if i < 0 || i >= len(s.items) {
		return fmt.Errorf("index %d out of range [0,%d)", i, len(s.items))
	}
	if s.items[i].Kind != KindManual {
		return errors.New("only drawn shapes can be named")
	}
	s.items[i].Name = name
	return nil
}

// ValidateForSubmit returns one error per manual item with a blank name.
// Submission is blocked while the list is non-empty.
func (s *Set) ValidateForSubmit() []error {
	var errs []error
	for i, it := range s.items {
		if it.Kind == KindManual && strings.TrimSpace(it.Name) == "" {
			errs = append(errs, fmt.Errorf("drawn shape %d needs a name", i+1))
		}
	}
	return errs
}

// SubmissionRecords maps the set to theme-coded records for the persistence
// collaborator.
func (s *Set) SubmissionRecords() []api.SelectionRecord {
	out := make([]api.SelectionRecord, 0, len(s.items))
	for _, it := range s.items {
		gj, err := json.Marshal(it.Geometry)
		if err != nil {
			continue
		}
		switch it.Kind {
		case KindOSM:
			out = append(out, api.SelectionRecord{
				ThemeCode:      it.ThemeCode,
				OSMID:          it.ExternalID,
				Importance1_5:  it.Importance,
				Comment:        it.Comment,
				OSMType:        it.ExternalType,
				DisplayName:    it.DisplayName,
				OSMClass:       it.SourceClass,
				OSMFeatureType: it.SourceType,
				GeoJSON:        gj,
			})
		case KindManual:
			out = append(out, api.SelectionRecord{
				ThemeCode: it.ThemeCode,
				ManualPolygon: &api.ManualPolygon{
					Name:          it.Name,
					Importance1_5: it.Importance,
					Comment:       it.Comment,
					GeoJSON:       gj,
				},
			})
		}
	}
	return out
}
