package domain

import (
	"slices"
	"strings"
)

// Category identifies a primary-source entity collection.
type Category string

// Categories served by the databank.
const (
	CategoryCharacters    Category = "characters"
	CategoryCreatures     Category = "creatures"
	CategoryDroids        Category = "droids"
	CategoryLocations     Category = "locations"
	CategoryOrganizations Category = "organizations"
	CategorySpecies       Category = "species"
	CategoryVehicles      Category = "vehicles"
)

// CategoryInfo describes a category for display and enrichment routing.
type CategoryInfo struct {
	Category    Category `json:"category"`
	Label       string   `json:"label"`
	DisplayName string   `json:"display_name"`
	Icon        string   `json:"icon"`
	ApproxCount int      `json:"approx_count"` // Rough upstream size, used for UI hints only
	Endpoints   []string `json:"endpoints"`    // SWAPI endpoints in priority order
	Enrichable  bool     `json:"enrichable"`
}

var categoryTable = []CategoryInfo{
	{Category: CategoryCharacters, Label: "Characters", DisplayName: "Characters", Icon: "👤", ApproxCount: 964, Endpoints: []string{"people"}},
	{Category: CategoryCreatures, Label: "Creatures", DisplayName: "Creatures", Icon: "🐉", ApproxCount: 75, Endpoints: []string{"species"}},
	{Category: CategoryDroids, Label: "Droids", DisplayName: "Droids", Icon: "🤖", ApproxCount: 60, Endpoints: []string{"people"}},
	{Category: CategoryLocations, Label: "Locations", DisplayName: "Planets & Locations", Icon: "🌍", ApproxCount: 326, Endpoints: []string{"planets"}},
	{Category: CategoryOrganizations, Label: "Organizations", DisplayName: "Organizations", Icon: "🏛️", ApproxCount: 135, Endpoints: []string{}},
	{Category: CategorySpecies, Label: "Species", DisplayName: "Species", Icon: "👽", ApproxCount: 82, Endpoints: []string{"species"}},
	{Category: CategoryVehicles, Label: "Vehicles", DisplayName: "Vehicles & Starships", Icon: "🚀", ApproxCount: 267, Endpoints: []string{"vehicles", "starships"}},
}

func init() {
	for i := range categoryTable {
		categoryTable[i].Enrichable = len(categoryTable[i].Endpoints) > 0
	}
}

// AllCategories returns every category in display order.
func AllCategories() []Category {
	out := make([]Category, len(categoryTable))
	for i, info := range categoryTable {
		out[i] = info.Category
	}
	return out
}

// Categories returns a copy of the category table.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categoryTable))
	for i, info := range categoryTable {
		info.Endpoints = slices.Clone(info.Endpoints)
		out[i] = info
	}
	return out
}

// ParseCategory normalizes s and reports whether it names a known category.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := c.info()
	return ok
}

// Info returns the table entry for c. Unknown categories yield a zero value
// with no endpoints.
func (c Category) Info() CategoryInfo {
	info, _ := c.info()
	info.Endpoints = slices.Clone(info.Endpoints)
	return info
}

func (c Category) info() (CategoryInfo, bool) {
	for _, info := range categoryTable {
		if info.Category == c {
			return info, true
		}
	}
	return CategoryInfo{}, false
}

func (c Category) String() string {
	return string(c)
}

// primaryAttributes is the closed set of optional attributes the databank
// may carry per category. Anything else in an upstream payload is dropped.
var primaryAttributes = map[Category][]string{
	CategoryCharacters: {
		"species", "gender", "height", "mass", "hair_color", "eye_color",
		"skin_color", "birth_year", "homeworld", "affiliations",
	},
	CategoryCreatures: {
		"classification", "designation", "average_height", "average_lifespan",
		"skin_colors", "hair_colors", "eye_colors", "homeworld", "language",
	},
	CategoryDroids: {
		"model", "manufacturer", "class", "height", "mass",
		"sensor_color", "plating_color", "equipment",
	},
	CategoryLocations: {
		"region", "sector", "system", "planet", "terrain", "climate", "points_of_interest",
	},
	CategoryOrganizations: {
		"type", "founding_date", "dissolution_date", "headquarters", "leaders", "notable_members",
	},
	CategorySpecies: {
		"classification", "designation", "average_height", "average_lifespan",
		"skin_colors", "hair_colors", "eye_colors", "homeworld", "language",
	},
	CategoryVehicles: {
		"model", "manufacturer", "class", "length", "width", "height",
		"max_speed", "crew", "passengers", "cargo_capacity", "armament",
	},
}

// PrimaryAttributes returns the attribute names accepted for c.
func PrimaryAttributes(c Category) []string {
	return slices.Clone(primaryAttributes[c])
}

// IsPrimaryAttribute reports whether name belongs to c's attribute set.
func IsPrimaryAttribute(c Category, name string) bool {
	return slices.Contains(primaryAttributes[c], name)
}
