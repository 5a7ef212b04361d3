// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/openresources/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  Secrets
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, GitHubToken, "  ghp_abc123  \n")
				writeFile(t, dir, SemanticScholarAPIKey, "sk_xyz789")
				writeFile(t, dir, OpenAlexEmail, "user@example.com\n")
				return dir
			},
			want: Secrets{
				GitHubToken:           "ghp_abc123",
				SemanticScholarAPIKey: "sk_xyz789",
				OpenAlexEmail:         "user@example.com",
			},
		},
		{
			name: "returns empty set for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: Secrets{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, YouTubeAPIKey, "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: Secrets{YouTubeAPIKey: "valid-key"},
		},
		{
			name: "skips dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, OSHWAToken, "osh_real")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: Secrets{OSHWAToken: "osh_real"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFileIsLogged(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files without permission bits")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	core, logs := observer.New(zap.WarnLevel)
	got, err := Load(dir, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, "value123", got.Get("good-key"))
	assert.Empty(t, got.Get("bad-key"))
	assert.Equal(t, 1, logs.FilterMessage("could not read secret").Len())
}

func TestApply(t *testing.T) {
	cfg := types.AppConfig{Providers: map[string]types.ProviderConfig{
		"github":               {Enabled: true, APIKey: "from-config"},
		"oshwa":                {Enabled: true},
		"huggingface":          {Enabled: true},
		"huggingface_datasets": {Enabled: true},
		"arxiv":                {Enabled: true},
	}}
	s := Secrets{
		GitHubToken:      "from-secrets",
		OSHWAToken:       "osh",
		HuggingFaceToken: "hf",
	}
	s.Apply(&cfg)

	assert.Equal(t, "from-config", cfg.Providers["github"].APIKey, "config wins over secrets")
	assert.Equal(t, "osh", cfg.Providers["oshwa"].APIKey)
	assert.True(t, cfg.Providers["oshwa"].Enabled, "other fields survive")
	assert.Equal(t, "hf", cfg.Providers["huggingface"].APIKey)
	assert.Equal(t, "hf", cfg.Providers["huggingface_datasets"].APIKey)
	assert.Empty(t, cfg.Providers["arxiv"].APIKey)
	_, ok := cfg.Providers["youtube"]
	assert.False(t, ok, "unconfigured providers are not added")
}

func TestKeysAndForProvider(t *testing.T) {
	s := Secrets{YouTubeAPIKey: "yt", GitHubToken: "gh"}
	assert.Equal(t, []string{GitHubToken, YouTubeAPIKey}, s.Keys())
	assert.Equal(t, "yt", s.ForProvider("youtube"))
	assert.Empty(t, s.ForProvider("arxiv"))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
