// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads provider credentials from a directory of plain-text
// files. Each file is one secret: the filename is the key and the trimmed
// contents are the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/openresources/pkg/types"
)

// Key files understood by the aggregator.
const (
	GitHubToken           = "github-token"
	YouTubeAPIKey         = "youtube-api-key"
	SemanticScholarAPIKey = "semantic-scholar-api-key"
	OSHWAToken            = "oshwa-token"
	HuggingFaceToken      = "huggingface-token"
	OpenAlexEmail         = "openalex-email"
)

// providerKeys maps a provider name to the secret holding its credential.
var providerKeys = map[string]string{
	"github":               GitHubToken,
	"youtube":              YouTubeAPIKey,
	"semantic_scholar":     SemanticScholarAPIKey,
	"oshwa":                OSHWAToken,
	"huggingface":          HuggingFaceToken,
	"huggingface_datasets": HuggingFaceToken,
	"openalex":             OpenAlexEmail,
}

// Secrets maps key names to values.
type Secrets map[string]string

// Get returns the value for key, or "" when it is absent.
func (s Secrets) Get(key string) string { return s[key] }

// Keys returns the loaded key names in sorted order.
func (s Secrets) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ForProvider returns the credential stored for the named provider.
func (s Secrets) ForProvider(name string) string {
	return s[providerKeys[name]]
}

// Apply fills empty API keys of the configured providers from s. Keys set
// in the configuration take precedence.
func (s Secrets) Apply(cfg *types.AppConfig) {
	for name, pc := range cfg.Providers {
		if pc.APIKey != "" {
			continue
		}
		if v := s.ForProvider(name); v != "" {
			pc.APIKey = v
			cfg.Providers[name] = pc
		}
	}
}

// Load reads all files in dir. A missing directory is not an error; Load
// returns an empty set. Unreadable files are logged and skipped.
func Load(dir string, logger *zap.Logger) (Secrets, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Secrets)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("key", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}
