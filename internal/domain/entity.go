package domain

import "time"

// BaseEntity is an entity as served by the primary source.
type BaseEntity struct {
	ID          string            `json:"_id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Image       string            `json:"image"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// PageInfo carries primary-source pagination.
type PageInfo struct {
	Total int     `json:"total"`
	Page  int     `json:"page"`
	Limit int     `json:"limit"`
	Next  *string `json:"next"`
	Prev  *string `json:"prev"`
}

// EntityPage is one page of primary-source entities.
type EntityPage struct {
	Info PageInfo     `json:"info"`
	Data []BaseEntity `json:"data"`
}

// EnrichedEntity is a BaseEntity merged with the category-relevant subset of
// a matching SWAPI record. Secondary fields are empty when absent upstream.
type EnrichedEntity struct {
	BaseEntity

	// People.
	Height    string `json:"height,omitempty"`
	Mass      string `json:"mass,omitempty"`
	Gender    string `json:"gender,omitempty"`
	BirthYear string `json:"birth_year,omitempty"`
	EyeColor  string `json:"eye_color,omitempty"`
	HairColor string `json:"hair_color,omitempty"`
	SkinColor string `json:"skin_color,omitempty"`
	Homeworld string `json:"homeworld,omitempty"`

	// Vehicles and starships.
	Model         string `json:"model,omitempty"`
	Manufacturer  string `json:"manufacturer,omitempty"`
	VehicleClass  string `json:"vehicle_class,omitempty"`
	StarshipClass string `json:"starship_class,omitempty"`
	Length        string `json:"length,omitempty"`
	Crew          string `json:"crew,omitempty"`
	Passengers    string `json:"passengers,omitempty"`
	CargoCapacity string `json:"cargo_capacity,omitempty"`

	// Species.
	Classification  string `json:"classification,omitempty"`
	Designation     string `json:"designation,omitempty"`
	AverageHeight   string `json:"average_height,omitempty"`
	AverageLifespan string `json:"average_lifespan,omitempty"`
	Language        string `json:"language,omitempty"`
	SkinColors      string `json:"skin_colors,omitempty"`
	HairColors      string `json:"hair_colors,omitempty"`
	EyeColors       string `json:"eye_colors,omitempty"`

	// Planets.
	Climate        string `json:"climate,omitempty"`
	Terrain        string `json:"terrain,omitempty"`
	Population     string `json:"population,omitempty"`
	Diameter       string `json:"diameter,omitempty"`
	RotationPeriod string `json:"rotation_period,omitempty"`
	OrbitalPeriod  string `json:"orbital_period,omitempty"`
	Gravity        string `json:"gravity,omitempty"`

	Films           []string  `json:"films"`
	Matched         bool      `json:"matched"`
	MatchedEndpoint string    `json:"matched_endpoint,omitempty"`
	EnrichedAt      time.Time `json:"enriched_at"`
}

// NewEnrichedEntity returns an unmatched copy of base.
func NewEnrichedEntity(base BaseEntity) EnrichedEntity {
	if base.Attributes != nil {
		attrs := make(map[string]string, len(base.Attributes))
		for k, v := range base.Attributes {
			attrs[k] = v
		}
		base.Attributes = attrs
	}
	return EnrichedEntity{BaseEntity: base, Films: []string{}}
}

// field returns a pointer to the secondary field stored under the SWAPI
// field name, or nil when the name is not a mergeable field.
func (e *EnrichedEntity) field(name string) *string {
	switch name {
	case "height":
		return &e.Height
	case "mass":
		return &e.Mass
	case "gender":
		return &e.Gender
	case "birth_year":
		return &e.BirthYear
	case "eye_color":
		return &e.EyeColor
	case "hair_color":
		return &e.HairColor
	case "skin_color":
		return &e.SkinColor
	case "homeworld":
		return &e.Homeworld
	case "model":
		return &e.Model
	case "manufacturer":
		return &e.Manufacturer
	case "vehicle_class":
		return &e.VehicleClass
	case "starship_class":
		return &e.StarshipClass
	case "length":
		return &e.Length
	case "crew":
		return &e.Crew
	case "passengers":
		return &e.Passengers
	case "cargo_capacity":
		return &e.CargoCapacity
	case "classification":
		return &e.Classification
	case "designation":
		return &e.Designation
	case "average_height":
		return &e.AverageHeight
	case "average_lifespan":
		return &e.AverageLifespan
	case "language":
		return &e.Language
	case "skin_colors":
		return &e.SkinColors
	case "hair_colors":
		return &e.HairColors
	case "eye_colors":
		return &e.EyeColors
	case "climate":
		return &e.Climate
	case "terrain":
		return &e.Terrain
	case "population":
		return &e.Population
	case "diameter":
		return &e.Diameter
	case "rotation_period":
		return &e.RotationPeriod
	case "orbital_period":
		return &e.OrbitalPeriod
	case "gravity":
		return &e.Gravity
	default:
		return nil
	}
}

// SetField stores value under the SWAPI field name. It reports false for
// names that are not mergeable fields.
func (e *EnrichedEntity) SetField(name, value string) bool {
	p := e.field(name)
	if p == nil {
		return false
	}
	*p = value
	return true
}

// Field returns the value stored under the SWAPI field name.
func (e *EnrichedEntity) Field(name string) string {
	if p := e.field(name); p != nil {
		return *p
	}
	return ""
}

// EnrichmentSummary reports how much of a page could be enriched.
type EnrichmentSummary struct {
	Available bool `json:"available"` // SWAPI was considered reachable for this page
	Matched   int  `json:"matched"`
	Total     int  `json:"total"`
	Partial   bool `json:"partial"` // Some enrichable entities were returned unenriched
}

// EnrichedPage is one page of enriched entities.
type EnrichedPage struct {
	Info       PageInfo          `json:"info"`
	Data       []EnrichedEntity  `json:"data"`
	Enrichment EnrichmentSummary `json:"enrichment"`
}
