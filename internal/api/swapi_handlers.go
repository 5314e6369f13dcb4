package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/holocronapp/holocron-server/internal/metadata/swapi"
	"github.com/holocronapp/holocron-server/internal/service"
)

func (s *Server) registerSWAPIRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchSWAPI",
		Method:      http.MethodGet,
		Path:        "/api/v1/swapi/{endpoint}",
		Summary:     "Search SWAPI",
		Description: "Proxies a search to a SWAPI resource collection. SWAPI failures are reported as 502.",
		Tags:        []string{"SWAPI"},
	}, s.handleSearchSWAPI)
}

type SearchSWAPIInput struct {
	Endpoint string `path:"endpoint" doc:"people, vehicles, starships, species, planets or films"`
	Search   string `query:"search" doc:"Name filter; empty lists the collection"`
	Page     int    `query:"page" doc:"SWAPI result page"`
}

type SWAPIPageOutput struct {
	Body *swapi.Page
}

func (s *Server) handleSearchSWAPI(ctx context.Context, input *SearchSWAPIInput) (*SWAPIPageOutput, error) {
	page, err := s.services.Catalog.ProxySearch(ctx, service.ProxyParams{
		Endpoint: input.Endpoint,
		Search:   input.Search,
		Page:     input.Page,
	})
	if err != nil {
		return nil, toAPIError(err)
	}
	return &SWAPIPageOutput{Body: page}, nil
}
