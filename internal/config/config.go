// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App        AppConfig
	Logger     LoggerConfig
	Server     ServerConfig
	Databank   DatabankConfig
	SWAPI      SWAPIConfig
	Enrichment EnrichmentConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string        // default: 8080
	ReadTimeout    time.Duration // default: 15s
	WriteTimeout   time.Duration // default: 30s
	IdleTimeout    time.Duration // default: 60s
	AllowedOrigins []string      // CORS origins (default: *)
	RateLimitRPS   float64       // per client IP (default: 20)
	RateLimitBurst int           // default: 40
}

// DatabankConfig configures the primary content API.
type DatabankConfig struct {
	BaseURL         string
	Timeout         time.Duration // default: 10s
	DefaultLimit    int           // default: 9
	BreakerFailures int           // consecutive failures before failing fast (default: 5)
	BreakerTimeout  time.Duration // default: 30s
}

// SWAPIConfig configures the secondary attributes API.
type SWAPIConfig struct {
	BaseURL string
	Timeout time.Duration // per request (default: 5s)
	RPS     float64       // per endpoint (default: 5)
	Burst   int           // default: 10
}

// EnrichmentConfig configures the enrichment engine.
type EnrichmentConfig struct {
	// CheckInterval is the minimum time between SWAPI availability probes.
	CheckInterval time.Duration
	// MaxFailures is the number of consecutive transient SWAPI failures
	// that mark the source unreachable until the next probe.
	MaxFailures int
	// MatchFallback accepts the first search result when no name matches.
	MatchFallback bool
	// BatchConcurrency bounds concurrent enrichments within one page.
	BatchConcurrency int
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load resolves configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("holocron-server", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 30s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated CORS origins (default: *)")

	// Upstream flags
	databankURL := fs.String("databank-url", "", "Databank API base URL")
	swapiURL := fs.String("swapi-url", "", "SWAPI base URL")
	swapiTimeout := fs.String("swapi-timeout", "", "Per-request SWAPI timeout (default: 5s)")

	// Enrichment flags
	checkInterval := fs.String("check-interval", "", "SWAPI availability probe interval (default: 30s)")
	matchFallback := fs.String("match-fallback", "", "Accept first SWAPI result when no name matches (default: true)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ALLOWED_ORIGINS", "*")),
			RateLimitRPS:   getFloatConfigValue("", "RATE_LIMIT_RPS", 20),
			RateLimitBurst: getIntConfigValue("", "RATE_LIMIT_BURST", 40),
		},
		Databank: DatabankConfig{
			BaseURL:         getConfigValue(*databankURL, "DATABANK_BASE_URL", "https://starwars-databank-server.vercel.app/api/v1"),
			DefaultLimit:    getIntConfigValue("", "DATABANK_DEFAULT_LIMIT", 9),
			BreakerFailures: getIntConfigValue("", "DATABANK_BREAKER_FAILURES", 5),
		},
		SWAPI: SWAPIConfig{
			BaseURL: getConfigValue(*swapiURL, "SWAPI_BASE_URL", "https://swapi.dev/api"),
			RPS:     getFloatConfigValue("", "SWAPI_RPS", 5),
			Burst:   getIntConfigValue("", "SWAPI_BURST", 10),
		},
		Enrichment: EnrichmentConfig{
			MaxFailures:      getIntConfigValue("", "ENRICH_MAX_FAILURES", 3),
			MatchFallback:    getBoolConfigValue(*matchFallback, "ENRICH_MATCH_FALLBACK", true),
			BatchConcurrency: getIntConfigValue("", "ENRICH_BATCH_CONCURRENCY", 8),
		},
	}

	durations := []struct {
		flagValue string
		envKey    string
		def       string
		dst       *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "30s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{"", "DATABANK_TIMEOUT", "10s", &cfg.Databank.Timeout},
		{"", "DATABANK_BREAKER_TIMEOUT", "30s", &cfg.Databank.BreakerTimeout},
		{*swapiTimeout, "SWAPI_TIMEOUT", "5s", &cfg.SWAPI.Timeout},
		{*checkInterval, "ENRICH_CHECK_INTERVAL", "30s", &cfg.Enrichment.CheckInterval},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	cfg.Databank.BaseURL = strings.TrimRight(cfg.Databank.BaseURL, "/")
	cfg.SWAPI.BaseURL = strings.TrimRight(cfg.SWAPI.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if err := validateBaseURL("DATABANK_BASE_URL", c.Databank.BaseURL); err != nil {
		return err
	}
	if err := validateBaseURL("SWAPI_BASE_URL", c.SWAPI.BaseURL); err != nil {
		return err
	}

	var errs []error
	positive := []struct {
		name string
		ok   bool
	}{
		{"DATABANK_TIMEOUT", c.Databank.Timeout > 0},
		{"DATABANK_DEFAULT_LIMIT", c.Databank.DefaultLimit > 0},
		{"DATABANK_BREAKER_FAILURES", c.Databank.BreakerFailures > 0},
		{"DATABANK_BREAKER_TIMEOUT", c.Databank.BreakerTimeout > 0},
		{"SWAPI_TIMEOUT", c.SWAPI.Timeout > 0},
		{"SWAPI_RPS", c.SWAPI.RPS > 0},
		{"SWAPI_BURST", c.SWAPI.Burst > 0},
		{"ENRICH_CHECK_INTERVAL", c.Enrichment.CheckInterval > 0},
		{"ENRICH_MAX_FAILURES", c.Enrichment.MaxFailures > 0},
		{"ENRICH_BATCH_CONCURRENCY", c.Enrichment.BatchConcurrency > 0},
		{"RATE_LIMIT_RPS", c.Server.RateLimitRPS > 0},
		{"RATE_LIMIT_BURST", c.Server.RateLimitBurst > 0},
	}
	for _, p := range positive {
		if !p.ok {
			errs = append(errs, fmt.Errorf("%s must be positive", p.name))
		}
	}

	return errors.Join(errs...)
}

func validateBaseURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("invalid %s: %q must be an absolute URL", name, raw)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables win over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
