// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads the application configuration from defaults, an
// optional YAML file and OPENRESOURCES_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/openresources/internal/registry"
	"github.com/pdiddy/openresources/pkg/types"
)

const (
	// Name is the config file base name and the config directory name.
	Name = "openresources"

	// EnvPrefix prefixes every environment override, e.g.
	// OPENRESOURCES_SEARCH_DEADLINE=4s.
	EnvPrefix = "OPENRESOURCES"
)

// SetDefaults registers the default value of every configuration key.
// Keys must be registered for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit_rps", 5.0)
	v.SetDefault("server.rate_limit_burst", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("search.timeout", 10*time.Second)
	v.SetDefault("search.user_agent", "openresources/0.1 (+https://github.com/pdiddy/openresources)")
	v.SetDefault("search.deadline", 6*time.Second)
	v.SetDefault("search.per_provider_limit", 20)
	v.SetDefault("search.default_page_size", types.DefaultPageSize)
	v.SetDefault("search.recency_window_years", 5)

	for _, name := range registry.ProviderNames {
		prefix := "providers." + name + "."
		v.SetDefault(prefix+"enabled", true)
		v.SetDefault(prefix+"timeout", time.Duration(0))
		v.SetDefault(prefix+"base_url", "")
		v.SetDefault(prefix+"api_key", "")
	}

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", filepath.Join(".openresources", "history.db"))

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.service_name", Name)
	v.SetDefault("telemetry.sample_rate", 1.0)
}

// Setup points v at the config file and the environment. An explicit file
// wins; otherwise openresources.yaml is looked up in the working directory
// and in ~/.config/openresources.
func Setup(v *viper.Viper, file string) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", Name))
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Read loads the config file if there is one. A missing file is not an
// error when no file was named explicitly.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// Unmarshal decodes v into an AppConfig and validates it.
func Unmarshal(v *viper.Viper) (types.AppConfig, error) {
	var cfg types.AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return types.AppConfig{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return types.AppConfig{}, err
	}
	return cfg, nil
}

// Load builds a validated configuration from defaults, file and
// environment in one call.
func Load(file string) (types.AppConfig, error) {
	v := viper.New()
	SetDefaults(v)
	Setup(v, file)
	if err := Read(v); err != nil {
		return types.AppConfig{}, err
	}
	return Unmarshal(v)
}

// Validate reports every invalid setting in cfg.
func Validate(cfg types.AppConfig) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if cfg.Server.Addr == "" {
		add("server.addr is required")
	}
	if cfg.Server.RateLimitRPS < 0 {
		add("server.rate_limit_rps must not be negative")
	}
	if cfg.Server.RateLimitRPS > 0 && cfg.Server.RateLimitBurst < 1 {
		add("server.rate_limit_burst must be at least 1 when rate limiting is on")
	}
	if cfg.Server.WriteTimeout > 0 && cfg.Server.WriteTimeout <= cfg.Search.Deadline {
		add("server.write_timeout (%s) must exceed search.deadline (%s)", cfg.Server.WriteTimeout, cfg.Search.Deadline)
	}

	if !slices.Contains([]string{"", "json", "console"}, cfg.Log.Format) {
		add("log.format %q must be json or console", cfg.Log.Format)
	}

	if cfg.Search.Deadline <= 0 {
		add("search.deadline must be positive")
	}
	if cfg.Search.PerProviderLimit < 1 || cfg.Search.PerProviderLimit > 100 {
		add("search.per_provider_limit %d must be in [1, 100]", cfg.Search.PerProviderLimit)
	}
	if cfg.Search.DefaultPageSize < 1 || cfg.Search.DefaultPageSize > types.MaxPageSize {
		add("search.default_page_size %d must be in [1, %d]", cfg.Search.DefaultPageSize, types.MaxPageSize)
	}
	if cfg.Search.RecencyWindowYears < 0 {
		add("search.recency_window_years must not be negative")
	}

	for name, pc := range cfg.Providers {
		if !slices.Contains(registry.ProviderNames, name) {
			add("providers.%s: unknown provider (known: %s)", name, strings.Join(registry.ProviderNames, ", "))
			continue
		}
		if pc.Timeout < 0 {
			add("providers.%s.timeout must not be negative", name)
		}
		for _, t := range pc.Types {
			if _, err := types.ParseResourceType(t); err != nil {
				add("providers.%s.types: %w", name, err)
			}
		}
	}

	if cfg.History.Enabled && cfg.History.Path == "" {
		add("history.path is required when history is enabled")
	}

	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.OTLPEndpoint == "" {
			add("telemetry.otlp_endpoint is required when telemetry is enabled")
		}
		if cfg.Telemetry.SampleRate < 0 || cfg.Telemetry.SampleRate > 1 {
			add("telemetry.sample_rate %v must be in [0, 1]", cfg.Telemetry.SampleRate)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
