package providers

import (
	"github.com/samber/do/v2"

	"github.com/holocronapp/holocron-server/internal/config"
	"github.com/holocronapp/holocron-server/internal/logger"
	"github.com/holocronapp/holocron-server/internal/metadata/databank"
	"github.com/holocronapp/holocron-server/internal/metadata/swapi"
)

// SWAPIClientHandle wraps the SWAPI client with shutdown capability.
type SWAPIClientHandle struct {
	*swapi.Client
}

// Shutdown implements do.Shutdownable.
func (h *SWAPIClientHandle) Shutdown() error {
	h.Client.Close()
	return nil
}

// ProvideSWAPIClient provides the secondary source client.
func ProvideSWAPIClient(i do.Injector) (*SWAPIClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := swapi.New(swapi.Config{
		BaseURL: cfg.SWAPI.BaseURL,
		Timeout: cfg.SWAPI.Timeout,
		RPS:     cfg.SWAPI.RPS,
		Burst:   cfg.SWAPI.Burst,
	}, log.Component("swapi"))

	log.Info("SWAPI client initialized",
		"base_url", cfg.SWAPI.BaseURL,
		"timeout", cfg.SWAPI.Timeout,
	)

	return &SWAPIClientHandle{Client: client}, nil
}

// ProvideDatabankClient provides the primary source client.
func ProvideDatabankClient(i do.Injector) (*databank.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := databank.New(databank.Config{
		BaseURL:         cfg.Databank.BaseURL,
		Timeout:         cfg.Databank.Timeout,
		DefaultLimit:    cfg.Databank.DefaultLimit,
		BreakerFailures: cfg.Databank.BreakerFailures,
		BreakerTimeout:  cfg.Databank.BreakerTimeout,
	}, log.Component("databank"))

	log.Info("Databank client initialized",
		"base_url", cfg.Databank.BaseURL,
		"default_limit", client.DefaultLimit(),
	)

	return client, nil
}
