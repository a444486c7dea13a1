// Package model defines core domain types shared across the engine.
package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// BBox is an axis-aligned bounding box in EPSG:4326 degrees.
type BBox struct {
	West, South float64
	East, North float64
}

// String representation matching the collaborator bbox query format.
func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.West, b.South, b.East, b.North)
}

func (b BBox) Contains(lat, lon float64) bool {
	return lon >= b.West && lon <= b.East && lat >= b.South && lat <= b.North
}

// Center returns the midpoint of the box.
func (b BBox) Center() LatLon {
	return LatLon{Lat: (b.South + b.North) / 2, Lon: (b.West + b.East) / 2}
}

func (b BBox) Valid() bool {
	if b.West < -180 || b.West > 180 || b.East < -180 || b.East > 180 {
		return false
	}
	if b.South < -90 || b.South > 90 || b.North < -90 || b.North > 90 {
		return false
	}
	return b.East > b.West && b.North > b.South
}

// ParseBBox parses "west,south,east,north".
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, errors.New("expected 4 comma-separated values: west,south,east,north")
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("bbox value %d: %w", i+1, err)
		}
		vals[i] = f
	}
	b := BBox{West: vals[0], South: vals[1], East: vals[2], North: vals[3]}
	if !b.Valid() {
		return BBox{}, errors.New("coordinates out of range or east<=west / north<=south")
	}
	return b, nil
}

// LatLon is a geographic coordinate, latitude first.
type LatLon struct {
	Lat float64
	Lon float64
}

// Viewport is the currently visible map extent.
type Viewport = BBox
