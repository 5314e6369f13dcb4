package swapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/holocronapp/holocron-server/internal/domain"
)

// Endpoint is a SWAPI resource collection.
type Endpoint string

// SWAPI resource collections.
const (
	People    Endpoint = "people"
	Vehicles  Endpoint = "vehicles"
	Starships Endpoint = "starships"
	Species   Endpoint = "species"
	Planets   Endpoint = "planets"
	Films     Endpoint = "films"
)

// Valid reports whether e is a known endpoint.
func (e Endpoint) Valid() bool {
	switch e {
	case People, Vehicles, Starships, Species, Planets, Films:
		return true
	default:
		return false
	}
}

func (e Endpoint) String() string {
	return string(e)
}

// ParseEndpoint normalizes s into an Endpoint.
func ParseEndpoint(s string) (Endpoint, bool) {
	e := Endpoint(strings.ToLower(strings.TrimSpace(s)))
	return e, e.Valid()
}

// EndpointsFor returns the endpoints searched for a category, in priority
// order. Categories without a SWAPI analogue return nil.
func EndpointsFor(c domain.Category) []Endpoint {
	names := c.Info().Endpoints
	if len(names) == 0 {
		return nil
	}
	out := make([]Endpoint, 0, len(names))
	for _, n := range names {
		out = append(out, Endpoint(n))
	}
	return out
}

// Record is a SWAPI resource as an attribute bag keyed by SWAPI field names.
type Record map[string]any

// Name returns the record's display name. Films carry a title instead.
func (r Record) Name() string {
	if s, ok := r.String("name"); ok {
		return s
	}
	s, _ := r.String("title")
	return s
}

// URL returns the record's canonical reference.
func (r Record) URL() string {
	s, _ := r.String("url")
	return s
}

// String returns a scalar field as a string. Numbers are formatted without
// exponent; anything else reports false.
func (r Record) String(key string) (string, bool) {
	switch v := r[key].(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// Strings returns a list field. Non-string elements are skipped.
func (r Record) Strings(key string) []string {
	raw, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Page is one page of search results.
type Page struct {
	Count    int      `json:"count"`
	Next     *string  `json:"next"`
	Previous *string  `json:"previous"`
	Results  []Record `json:"results"`
}

// Reference identifies a single SWAPI resource.
type Reference struct {
	Endpoint Endpoint
	ID       string
}

// Key is the canonical cache key, e.g. "films/1".
func (r Reference) Key() string {
	return string(r.Endpoint) + "/" + r.ID
}

// ParseReference extracts endpoint and id from a resource URL such as
// "https://swapi.dev/api/films/1/". The id is the last non-empty path
// segment and the endpoint the one before it. Bare "films/1" keys are accepted.
func ParseReference(ref string) (Reference, error) {
	path := ref
	if i := strings.Index(path, "://"); i >= 0 {
		path = path[i+3:]
		if j := strings.IndexByte(path, '/'); j >= 0 {
			path = path[j:]
		} else {
			path = ""
		}
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	var segments []string
	for seg := range strings.SplitSeq(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) < 2 {
		return Reference{}, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}

	id := segments[len(segments)-1]
	endpoint := Endpoint(segments[len(segments)-2])
	if !endpoint.Valid() || !validID(id) {
		return Reference{}, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	return Reference{Endpoint: endpoint, ID: id}, nil
}

func validID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
