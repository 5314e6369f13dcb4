package enrichment

import (
	"strings"

	"github.com/holocronapp/holocron-server/internal/domain"
	"github.com/holocronapp/holocron-server/internal/metadata/swapi"
)

// fieldSpec lists the SWAPI fields merged for a category.
type fieldSpec struct {
	fields    []string
	homeworld bool // resolve the homeworld reference to a planet name
}

var (
	personFields = []string{
		"height", "mass", "gender", "birth_year", "eye_color", "hair_color", "skin_color",
	}
	vehicleFields = []string{
		"model", "manufacturer", "vehicle_class", "starship_class",
		"length", "crew", "passengers", "cargo_capacity",
	}
	speciesFields = []string{
		"classification", "designation", "average_height", "average_lifespan",
		"language", "skin_colors", "hair_colors", "eye_colors",
	}
	planetFields = []string{
		"climate", "terrain", "population", "diameter",
		"rotation_period", "orbital_period", "gravity",
	}
)

var categoryFields = map[domain.Category]fieldSpec{
	domain.CategoryCharacters: {fields: personFields, homeworld: true},
	domain.CategoryDroids:     {fields: personFields, homeworld: true},
	domain.CategoryVehicles:   {fields: vehicleFields},
	domain.CategorySpecies:    {fields: speciesFields, homeworld: true},
	domain.CategoryCreatures:  {fields: speciesFields, homeworld: true},
	domain.CategoryLocations:  {fields: planetFields},
}

// isSentinel reports whether v is SWAPI's way of saying "not recorded".
func isSentinel(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "unknown", "n/a":
		return true
	default:
		return false
	}
}

// applyFields copies the category's fields from rec into e, skipping
// sentinels and non-scalar values.
func applyFields(e *domain.EnrichedEntity, spec fieldSpec, rec swapi.Record) {
	for _, name := range spec.fields {
		v, ok := rec.String(name)
		if !ok || isSentinel(v) {
			continue
		}
		e.SetField(name, strings.TrimSpace(v))
	}
	// Starships carry their class under a different key.
	if e.VehicleClass == "" && e.StarshipClass != "" {
		e.VehicleClass = e.StarshipClass
	}
}
