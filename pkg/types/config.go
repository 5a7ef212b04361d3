package types

import "time"

// HTTPConfig holds shared HTTP settings used by provider backends.
type HTTPConfig struct {
	// Timeout is the transport-level ceiling for a single provider request.
	// The per-request search deadline usually fires first.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent to providers
	// (e.g. "openresources/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig holds settings for the aggregation pipeline.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Deadline is the shared per-request budget for all provider calls.
	Deadline time.Duration `json:"deadline" yaml:"deadline" mapstructure:"deadline"`

	// PerProviderLimit is how many results each provider is asked for.
	PerProviderLimit int `json:"per_provider_limit" yaml:"per_provider_limit" mapstructure:"per_provider_limit"`

	// DefaultPageSize is used when the request does not name a page size.
	DefaultPageSize int `json:"default_page_size" yaml:"default_page_size" mapstructure:"default_page_size"`

	// RecencyWindowYears is how far back the recency boost reaches.
	RecencyWindowYears int `json:"recency_window_years" yaml:"recency_window_years" mapstructure:"recency_window_years"`
}

// ProviderConfig holds the operational settings of one provider backend.
type ProviderConfig struct {
	// Enabled controls whether the backend takes part in searches.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Timeout caps this provider below the shared deadline. Zero means the
	// shared deadline alone applies.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// BaseURL overrides the provider endpoint (mirrors, tests).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKey is the credential for providers that need one. It can also
	// come from the secrets directory.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Types overrides the backend's default type affinity.
	Types []string `json:"types,omitempty" yaml:"types,omitempty" mapstructure:"types"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `json:"addr" yaml:"addr" mapstructure:"addr"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// RateLimitRPS is the sustained per-client request rate. Zero disables
	// rate limiting.
	RateLimitRPS   float64 `json:"rate_limit_rps" yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `json:"rate_limit_burst" yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "json" or "console".
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// HistoryConfig holds settings for the search history store.
type HistoryConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" yaml:"path" mapstructure:"path"`
}

// TelemetryConfig holds OpenTelemetry tracing settings.
type TelemetryConfig struct {
	Enabled      bool    `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	OTLPEndpoint string  `json:"otlp_endpoint" yaml:"otlp_endpoint" mapstructure:"otlp_endpoint"`
	ServiceName  string  `json:"service_name" yaml:"service_name" mapstructure:"service_name"`
	SampleRate   float64 `json:"sample_rate" yaml:"sample_rate" mapstructure:"sample_rate"`
}

// AppConfig groups every configuration section.
type AppConfig struct {
	Server    ServerConfig              `json:"server" yaml:"server" mapstructure:"server"`
	Log       LogConfig                 `json:"log" yaml:"log" mapstructure:"log"`
	Search    SearchConfig              `json:"search" yaml:"search" mapstructure:"search"`
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers" mapstructure:"providers"`
	History   HistoryConfig             `json:"history" yaml:"history" mapstructure:"history"`
	Telemetry TelemetryConfig           `json:"telemetry" yaml:"telemetry" mapstructure:"telemetry"`
}
