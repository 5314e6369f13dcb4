package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/holocronapp/holocron-server/internal/domain"
	"github.com/holocronapp/holocron-server/internal/metadata/databank"
)

func (s *Server) registerCatalogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCategories",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories",
		Summary:     "List categories",
		Description: "Returns the browsable categories with display metadata and their SWAPI mapping",
		Tags:        []string{"Catalog"},
	}, s.handleListCategories)

	huma.Register(s.api, huma.Operation{
		OperationID: "listEntities",
		Method:      http.MethodGet,
		Path:        "/api/v1/entities/{category}",
		Summary:     "List enriched entities",
		Description: "Fetches one page of a category from the databank and enriches each entity with SWAPI attributes",
		Tags:        []string{"Catalog"},
	}, s.handleListEntities)

	huma.Register(s.api, huma.Operation{
		OperationID: "getEntity",
		Method:      http.MethodGet,
		Path:        "/api/v1/entities/{category}/{id}",
		Summary:     "Get enriched entity",
		Description: "Fetches a single databank entity and enriches it with SWAPI attributes",
		Tags:        []string{"Catalog"},
	}, s.handleGetEntity)
}

// === DTOs ===

type ListCategoriesOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         []domain.CategoryInfo
}

type ListEntitiesInput struct {
	Category string `path:"category" doc:"Category, e.g. characters or vehicles"`
	Page     int    `query:"page" doc:"Page number starting at 1 (default 1)"`
	Limit    int    `query:"limit" doc:"Page size between 1 and 100 (default 9)"`
	Search   string `query:"search" maxLength:"100" doc:"Name filter passed to the databank"`
}

type EnrichedPageOutput struct {
	Body *domain.EnrichedPage
}

type GetEntityInput struct {
	Category string `path:"category" doc:"Category, e.g. characters or vehicles"`
	ID       string `path:"id" doc:"Databank entity id"`
}

type EnrichedEntityOutput struct {
	Body *domain.EnrichedEntity
}

// === Handlers ===

func (s *Server) handleListCategories(_ context.Context, _ *struct{}) (*ListCategoriesOutput, error) {
	return &ListCategoriesOutput{
		CacheControl: CacheOneDay,
		Body:         s.services.Catalog.Categories(),
	}, nil
}

func (s *Server) handleListEntities(ctx context.Context, input *ListEntitiesInput) (*EnrichedPageOutput, error) {
	page, err := s.services.Catalog.ListEnriched(ctx, input.Category, databank.ListParams{
		Page:   input.Page,
		Limit:  input.Limit,
		Search: input.Search,
	})
	if err != nil {
		return nil, toAPIError(err)
	}
	return &EnrichedPageOutput{Body: page}, nil
}

func (s *Server) handleGetEntity(ctx context.Context, input *GetEntityInput) (*EnrichedEntityOutput, error) {
	e, err := s.services.Catalog.GetEnriched(ctx, input.Category, input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &EnrichedEntityOutput{Body: e}, nil
}
