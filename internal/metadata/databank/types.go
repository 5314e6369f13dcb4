package databank

import (
	"regexp"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/holocronapp/holocron-server/internal/domain"
)

// Pagination defaults used by the databank when a parameter is omitted.
const (
	DefaultPage  = 1
	DefaultLimit = 9
	MaxLimit     = 100
	MaxSearchLen = 100
)

// ListParams selects one page of a category listing.
type ListParams struct {
	Page   int    `json:"page" validate:"gte=1"`
	Limit  int    `json:"limit" validate:"gte=1,lte=100"`
	Search string `json:"search" validate:"max=100"`
}

// WithDefaults fills zero fields.
func (p ListParams) WithDefaults(limit int) ListParams {
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.Limit == 0 {
		p.Limit = limit
	}
	p.Search = strings.TrimSpace(p.Search)
	return p
}

// rawEntity mirrors a databank entity. Members outside the fixed set are
// collected so category attributes can be kept.
type rawEntity struct {
	ID          string         `json:"_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Image       string         `json:"image"`
	Extra       map[string]any `json:",unknown"`
}

type rawPage struct {
	Info domain.PageInfo `json:"info"`
	Data []rawEntity     `json:"data"`
}

func (r rawEntity) toDomain(category domain.Category) domain.BaseEntity {
	e := domain.BaseEntity{
		ID:          r.ID,
		Name:        strings.TrimSpace(r.Name),
		Description: cleanDescription(r.Description),
		Image:       r.Image,
	}
	for key, raw := range r.Extra {
		if !domain.IsPrimaryAttribute(category, key) {
			continue
		}
		v, ok := attributeString(raw)
		if !ok || v == "" {
			continue
		}
		if e.Attributes == nil {
			e.Attributes = make(map[string]string)
		}
		e.Attributes[key] = v
	}
	return e
}

// attributeString flattens a scalar or a list of scalars.
func attributeString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := attributeString(item); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), len(parts) > 0
	default:
		return "", false
	}
}

var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

// cleanDescription converts HTML descriptions to Markdown. Plain text passes through.
func cleanDescription(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !htmlTagPattern.MatchString(strings.ToLower(s)) {
		return s
	}
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(md)
}
