package api

import "github.com/holocronapp/holocron-server/internal/service"

// Services groups the business logic used by the API server.
type Services struct {
	Catalog *service.CatalogService
}
