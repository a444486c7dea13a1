// Package taxonomy maps external place-classification tags onto the fixed
// survey category set.
package taxonomy

import "strings"

type Category string

const (
	Parks           Category = "parks"
	PublicBuildings Category = "public_buildings"
	Schools         Category = "schools"
	Hospitals       Category = "hospitals"
	Museums         Category = "museums"
	Heritage        Category = "heritage"
	Sports          Category = "sports"
	Retail          Category = "retail"
	Neighborhoods   Category = "neighborhoods"
)

// All lists every category in display order.
var All = []Category{
	Parks, PublicBuildings, Schools, Hospitals, Museums,
	Heritage, Sports, Retail, Neighborhoods,
}

func Valid(c Category) bool {
	for _, v := range All {
		if v == c {
			return true
		}
	}
	return false
}

// Label returns the human-readable name for a category.
func Label(c Category) string {
	switch c {
	case Parks:
		return "Parks & gardens"
	case PublicBuildings:
		return "Public buildings"
	case Schools:
		return "Schools"
	case Hospitals:
		return "Hospitals"
	case Museums:
		return "Museums"
	case Heritage:
		return "Heritage sites"
	case Sports:
		return "Sports facilities"
	case Retail:
		return "Retail areas"
	case Neighborhoods:
		return "Neighborhoods"
	default:
		return string(c)
	}
}

// Color returns the map display color for a category.
func Color(c Category) string {
	switch c {
	case Parks:
		return "#2e7d32"
	case PublicBuildings:
		return "#5d4037"
	case Schools:
		return "#1565c0"
	case Hospitals:
		return "#c62828"
	case Museums:
		return "#6a1b9a"
	case Heritage:
		return "#ef6c00"
	case Sports:
		return "#00838f"
	case Retail:
		return "#ad1457"
	case Neighborhoods:
		return "#455a64"
	default:
		return "#616161"
	}
}

// rule matches a (class, type) tag pair. An empty Type matches any type
// within the class.
type rule struct {
	Class    string
	Type     string
	Category Category
}

// The ruleset is ordered: the first match wins. Specific (class,type) pairs
// come before class-wide catch-alls.
var rules = []rule{
	{"leisure", "park", Parks},
	{"leisure", "garden", Parks},
	{"leisure", "nature_reserve", Parks},
	{"landuse", "recreation_ground", Parks},
	{"landuse", "grass", Parks},

	{"amenity", "school", Schools},
	{"amenity", "kindergarten", Schools},
	{"amenity", "college", Schools},
	{"amenity", "university", Schools},

	{"amenity", "hospital", Hospitals},
	{"amenity", "clinic", Hospitals},
	{"healthcare", "hospital", Hospitals},

	{"tourism", "museum", Museums},
	{"tourism", "gallery", Museums},

	{"historic", "", Heritage},
	{"tourism", "attraction", Heritage},

	{"leisure", "sports_centre", Sports},
	{"leisure", "stadium", Sports},
	{"leisure", "pitch", Sports},
	{"leisure", "swimming_pool", Sports},

	{"shop", "mall", Retail},
	{"shop", "department_store", Retail},
	{"landuse", "retail", Retail},
	{"landuse", "commercial", Retail},

	{"place", "suburb", Neighborhoods},
	{"place", "neighbourhood", Neighborhoods},
	{"place", "quarter", Neighborhoods},
	{"boundary", "administrative", Neighborhoods},

	{"amenity", "townhall", PublicBuildings},
	{"amenity", "library", PublicBuildings},
	{"amenity", "courthouse", PublicBuildings},
	{"amenity", "community_centre", PublicBuildings},
	{"amenity", "public_building", PublicBuildings},
	{"building", "public", PublicBuildings},
	{"building", "civic", PublicBuildings},
	{"office", "government", PublicBuildings},
}

// Classify resolves an external (class, type) tag pair to a survey category.
// The lookup is case-insensitive and deterministic; unmatched pairs return
// false, meaning the feature stays uncategorized.
func Classify(class, osmType string) (Category, bool) {
	class = strings.ToLower(strings.TrimSpace(class))
	osmType = strings.ToLower(strings.TrimSpace(osmType))
	if class == "" {
		return "", false
	}
	for _, r := range rules {
		if r.Class != class {
			continue
		}
		if r.Type == "" || r.Type == osmType {
			return r.Category, true
		}
	}
	return "", false
}
