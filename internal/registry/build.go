// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"fmt"
	"maps"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/openresources/internal/provider"
	"github.com/pdiddy/openresources/internal/secrets"
	"github.com/pdiddy/openresources/pkg/types"
)

// ProviderNames lists the built-in backends in registration order.
var ProviderNames = []string{
	"arxiv",
	"semantic_scholar",
	"openalex",
	"github",
	"huggingface",
	"huggingface_datasets",
	"oshwa",
	"youtube",
}

// credentialRequired names the providers that refuse anonymous access.
var credentialRequired = map[string]bool{
	"oshwa":   true,
	"youtube": true,
}

// newBackend constructs the named built-in backend.
func newBackend(name string, opts provider.Options) (provider.Backend, error) {
	switch name {
	case "arxiv":
		return &provider.Arxiv{Options: opts}, nil
	case "semantic_scholar":
		return &provider.SemanticScholar{Options: opts}, nil
	case "openalex":
		// OpenAlex has no key; the configured value is the polite-pool email.
		email := opts.APIKey
		opts.APIKey = ""
		return &provider.OpenAlex{Options: opts, Email: email}, nil
	case "github":
		return &provider.GitHub{Options: opts}, nil
	case "huggingface":
		return &provider.HuggingFace{Options: opts}, nil
	case "huggingface_datasets":
		return &provider.HuggingFaceDatasets{Options: opts}, nil
	case "oshwa":
		return &provider.OSHWA{Options: opts}, nil
	case "youtube":
		return &provider.YouTube{Options: opts}, nil
	}
	return nil, fmt.Errorf("unknown provider %q", name)
}

// Build constructs the registry from configuration. Secrets fill API keys
// the configuration leaves empty. Providers absent from the configuration
// are registered disabled, and so are providers whose required credential
// is missing (with a warning).
func Build(cfg types.AppConfig, s secrets.Secrets, client *http.Client, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for name := range cfg.Providers {
		if _, err := newBackend(name, provider.Options{}); err != nil {
			return nil, err
		}
	}

	// Apply mutates the map; keep the caller's copy intact.
	cfg.Providers = maps.Clone(cfg.Providers)
	s.Apply(&cfg)

	entries := make([]Entry, 0, len(ProviderNames))
	for _, name := range ProviderNames {
		pc, configured := cfg.Providers[name]
		b, err := newBackend(name, provider.Options{
			Client:    client,
			UserAgent: cfg.Search.UserAgent,
			BaseURL:   pc.BaseURL,
			APIKey:    pc.APIKey,
		})
		if err != nil {
			return nil, err
		}

		e := Entry{Backend: b, Timeout: pc.Timeout, Enabled: configured && pc.Enabled}
		for _, raw := range pc.Types {
			t, err := types.ParseResourceType(raw)
			if err != nil {
				return nil, fmt.Errorf("providers.%s.types: %w", name, err)
			}
			e.Types = append(e.Types, t)
		}

		if e.Enabled && credentialRequired[name] && pc.APIKey == "" {
			logger.Warn("provider disabled: missing credential",
				zap.String("provider", name))
			e.Enabled = false
		}
		entries = append(entries, e)
	}

	r, err := New(entries...)
	if err != nil {
		return nil, err
	}

	enabled := make([]string, 0, len(entries))
	for _, e := range r.Entries() {
		if e.Enabled {
			enabled = append(enabled, e.Name())
		}
	}
	logger.Info("provider registry built",
		zap.Strings("enabled", enabled),
		zap.Int("registered", r.Len()))
	return r, nil
}
