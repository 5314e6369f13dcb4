package providers

import (
	"github.com/samber/do/v2"

	"github.com/holocronapp/holocron-server/internal/availability"
	"github.com/holocronapp/holocron-server/internal/config"
	"github.com/holocronapp/holocron-server/internal/enrichment"
	"github.com/holocronapp/holocron-server/internal/logger"
	"github.com/holocronapp/holocron-server/internal/metadata/databank"
	"github.com/holocronapp/holocron-server/internal/reference"
	"github.com/holocronapp/holocron-server/internal/service"
	"github.com/holocronapp/holocron-server/internal/validation"
)

// ProvideAvailabilityTracker provides the SWAPI reachability tracker.
func ProvideAvailabilityTracker(i do.Injector) (*availability.Tracker, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	client := do.MustInvoke[*SWAPIClientHandle](i)

	return availability.New(client.Client, availability.Config{
		CheckInterval: cfg.Enrichment.CheckInterval,
		MaxFailures:   cfg.Enrichment.MaxFailures,
	}, log.Component("availability")), nil
}

// ProvideReferenceResolver provides the film and homeworld resolver.
func ProvideReferenceResolver(i do.Injector) (*reference.Resolver, error) {
	log := do.MustInvoke[*logger.Logger](i)
	client := do.MustInvoke[*SWAPIClientHandle](i)
	tracker := do.MustInvoke[*availability.Tracker](i)

	return reference.New(client.Client, log.Component("reference"), reference.WithHealth(tracker)), nil
}

// ProvideEnrichmentEngine provides the enrichment engine.
func ProvideEnrichmentEngine(i do.Injector) (*enrichment.Engine, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	client := do.MustInvoke[*SWAPIClientHandle](i)
	tracker := do.MustInvoke[*availability.Tracker](i)
	resolver := do.MustInvoke[*reference.Resolver](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	engine := enrichment.New(
		client.Client,
		tracker,
		resolver,
		storeHandle.Store,
		enrichment.Options{
			MatchFallback:    cfg.Enrichment.MatchFallback,
			BatchConcurrency: cfg.Enrichment.BatchConcurrency,
		},
		log.Component("enrichment"),
	)

	log.Info("Enrichment engine initialized",
		"match_fallback", cfg.Enrichment.MatchFallback,
		"check_interval", cfg.Enrichment.CheckInterval,
		"max_failures", cfg.Enrichment.MaxFailures,
	)

	return engine, nil
}

// ProvideCatalogService provides the catalog facade.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	primary := do.MustInvoke[*databank.Client](i)
	engine := do.MustInvoke[*enrichment.Engine](i)
	client := do.MustInvoke[*SWAPIClientHandle](i)
	tracker := do.MustInvoke[*availability.Tracker](i)
	resolver := do.MustInvoke[*reference.Resolver](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)

	return service.NewCatalogService(
		primary,
		engine,
		client.Client,
		tracker,
		storeHandle.Store,
		resolver,
		validator,
		log.Component("catalog"),
	), nil
}
