// Package profile models the participant demographic form.
package profile

import (
	"errors"
	"fmt"
)

// Residency is the participant's relationship to the study city. Modeling the
// "lives now" / "lived in the past" checkboxes as one variant keeps the
// mutually exclusive states unrepresentable.
type Residency string

const (
	LivesNow  Residency = "lives_now"
	LivedPast Residency = "lived_past"
	Never     Residency = "never"
)

type Profile struct {
	AgeBand       string    `json:"age_band"`
	Gender        string    `json:"gender"`
	Ethnicity     string    `json:"ethnicity,omitempty"`
	Nationality   string    `json:"nationality,omitempty"`
	Education     string    `json:"education,omitempty"`
	IncomeBand    string    `json:"income_band,omitempty"`
	Tenure        string    `json:"tenure,omitempty"`
	RentStress    int       `json:"rent_stress_pct,omitempty"`
	Residency     Residency `json:"residency"`
	ParishHome    string    `json:"parish_home,omitempty"`
	YearsBand     string    `json:"years_in_city_band,omitempty"`
	WorksInCity   bool      `json:"works_in_city"`
	ParishWork    string    `json:"parish_work,omitempty"`
	StudiesInCity bool      `json:"studies_in_city"`
	PTUse         string    `json:"pt_use,omitempty"`    // never / sometimes / often
	MainMode      string    `json:"main_mode,omitempty"` // walk / bike / pt / car
	Belonging     int       `json:"belonging_1_5"`
	SafetyDay     int       `json:"safety_day_1_5"`
	SafetyNight   int       `json:"safety_night_1_5"`
}

var ageBands = map[string]bool{
	"18-24": true, "25-34": true, "35-44": true,
	"45-54": true, "55-64": true, "65+": true,
}

var genders = map[string]bool{"f": true, "m": true, "o": true, "na": true}

func (p Profile) Validate() error {
	if !ageBands[p.AgeBand] {
		return fmt.Errorf("unknown age band %q", p.AgeBand)
	}
	if !genders[p.Gender] {
		return fmt.Errorf("unknown gender %q", p.Gender)
	}
	switch p.Residency {
	case LivesNow, LivedPast, Never:
	default:
		return fmt.Errorf("unknown residency %q", p.Residency)
	}
	if p.Residency != LivesNow && p.ParishHome != "" {
		return errors.New("parish_home only applies when living in the city")
	}
	for _, s := range []struct {
		name string
		v    int
	}{
		{"belonging_1_5", p.Belonging},
		{"safety_day_1_5", p.SafetyDay},
		{"safety_night_1_5", p.SafetyNight},
	} {
		if s.v < 1 || s.v > 5 {
			return fmt.Errorf("%s must be 1-5, got %d", s.name, s.v)
		}
	}
	if p.RentStress < 0 || p.RentStress > 100 {
		return fmt.Errorf("rent_stress_pct must be 0-100, got %d", p.RentStress)
	}
	switch p.PTUse {
	case "", "never", "sometimes", "often":
	default:
		return fmt.Errorf("unknown pt_use %q", p.PTUse)
	}
	switch p.MainMode {
	case "", "walk", "bike", "pt", "car":
	default:
		return fmt.Errorf("unknown main_mode %q", p.MainMode)
	}
	return nil
}
