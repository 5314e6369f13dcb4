// Package di provides dependency injection configuration for the Holocron server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/holocronapp/holocron-server/internal/availability"
	"github.com/holocronapp/holocron-server/internal/config"
	"github.com/holocronapp/holocron-server/internal/di/providers"
	"github.com/holocronapp/holocron-server/internal/enrichment"
	"github.com/holocronapp/holocron-server/internal/logger"
	"github.com/holocronapp/holocron-server/internal/metadata/databank"
	"github.com/holocronapp/holocron-server/internal/reference"
	"github.com/holocronapp/holocron-server/internal/service"
	"github.com/holocronapp/holocron-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Cache layer
	do.Provide(injector, providers.ProvideStore)

	// Sources
	do.Provide(injector, providers.ProvideDatabankClient)
	do.Provide(injector, providers.ProvideSWAPIClient)

	// Enrichment layer
	do.Provide(injector, providers.ProvideAvailabilityTracker)
	do.Provide(injector, providers.ProvideReferenceResolver)
	do.Provide(injector, providers.ProvideEnrichmentEngine)

	// Business services
	do.Provide(injector, providers.ProvideCatalogService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*databank.Client](injector)
	_ = do.MustInvoke[*providers.SWAPIClientHandle](injector)
	_ = do.MustInvoke[*availability.Tracker](injector)
	_ = do.MustInvoke[*reference.Resolver](injector)
	_ = do.MustInvoke[*enrichment.Engine](injector)
	_ = do.MustInvoke[*service.CatalogService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
