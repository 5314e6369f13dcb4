// Package providers contains dependency injection providers for the Holocron server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/holocronapp/holocron-server/internal/config"
	"github.com/holocronapp/holocron-server/internal/logger"
	"github.com/holocronapp/holocron-server/internal/validation"
	"github.com/holocronapp/holocron-server/internal/version"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting Holocron Server",
		"version", version.Version,
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"databank_url", cfg.Databank.BaseURL,
		"swapi_url", cfg.SWAPI.BaseURL,
	)

	return log, nil
}

// ProvideValidator provides the shared request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}
