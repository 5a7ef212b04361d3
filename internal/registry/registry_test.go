// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/openresources/internal/provider"
	"github.com/pdiddy/openresources/internal/secrets"
	"github.com/pdiddy/openresources/pkg/types"
)

type fakeBackend struct {
	name  string
	types []types.ResourceType
}

func (f fakeBackend) Name() string                { return f.name }
func (f fakeBackend) Types() []types.ResourceType { return f.types }
func (f fakeBackend) Search(context.Context, types.Query, int) ([]types.NormalizedResult, error) {
	return nil, nil
}

func entry(name string, enabled bool, ts ...types.ResourceType) Entry {
	return Entry{Backend: fakeBackend{name: name, types: ts}, Enabled: enabled}
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name()
	}
	return out
}

func TestAdaptersFor(t *testing.T) {
	r, err := New(
		entry("arxiv", true, types.TypePaper),
		entry("openalex", true, types.TypePaper, types.TypeDataset),
		entry("github", true, types.TypeCode),
		entry("youtube", false, types.TypeVideo),
	)
	require.NoError(t, err)

	tests := []struct {
		filter types.TypeFilter
		want   []string
	}{
		{types.FilterAll, []string{"arxiv", "openalex", "github"}},
		{types.TypeFilter(types.TypePaper), []string{"arxiv", "openalex"}},
		{types.TypeFilter(types.TypeDataset), []string{"openalex"}},
		{types.TypeFilter(types.TypeVideo), nil},
		{types.TypeFilter(types.TypeHardware), nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			got := r.AdaptersFor(tt.filter)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, names(got))
		})
	}

	assert.Len(t, r.Entries(), 4, "Entries includes disabled providers")
}

func TestNewRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		wantErr string
	}{
		{"duplicate", []Entry{entry("a", true, types.TypePaper), entry("a", true, types.TypeCode)}, "duplicate provider"},
		{"no affinity", []Entry{entry("a", true)}, "no type affinity"},
		{"nil backend", []Entry{{Enabled: true}}, "nil backend"},
		{"empty name", []Entry{entry("", true, types.TypePaper)}, "empty name"},
		{"foreign type", []Entry{{Backend: fakeBackend{name: "a", types: []types.ResourceType{types.TypePaper}}, Types: []types.ResourceType{types.TypeVideo}}}, "cannot produce video"},
		{"negative timeout", []Entry{{Backend: fakeBackend{name: "a", types: []types.ResourceType{types.TypePaper}}, Timeout: -time.Second}}, "negative timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.entries...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewNarrowsBackendTypes(t *testing.T) {
	r, err := New(Entry{
		Backend: fakeBackend{name: "openalex", types: []types.ResourceType{types.TypePaper, types.TypeDataset}},
		Types:   []types.ResourceType{types.TypeDataset},
		Enabled: true,
	})
	require.NoError(t, err)

	e, ok := r.Lookup("openalex")
	require.True(t, ok)
	assert.Equal(t, []types.ResourceType{types.TypeDataset}, e.Backend.Types())
	assert.Empty(t, r.AdaptersFor(types.TypeFilter(types.TypePaper)))
}

func TestConcurrentReads(t *testing.T) {
	r, err := New(entry("arxiv", true, types.TypePaper), entry("github", true, types.TypeCode))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Len(t, r.AdaptersFor(types.FilterAll), 2)
		}()
	}
	wg.Wait()
}

func TestBuild(t *testing.T) {
	cfg := types.AppConfig{
		Search: types.SearchConfig{HTTPConfig: types.HTTPConfig{UserAgent: "test/0.1"}},
		Providers: map[string]types.ProviderConfig{
			"arxiv":    {Enabled: true, Timeout: 2 * time.Second},
			"openalex": {Enabled: true, Types: []string{"dataset"}},
			"github":   {Enabled: false},
			"oshwa":    {Enabled: true},
			"youtube":  {Enabled: true},
		},
	}
	s := secrets.Secrets{secrets.YouTubeAPIKey: "yt"}

	core, logs := observer.New(zap.WarnLevel)
	r, err := Build(cfg, s, http.DefaultClient, zap.New(core))
	require.NoError(t, err)

	assert.Equal(t, ProviderNames, names(r.Entries()))
	assert.Equal(t, []string{"arxiv", "openalex", "youtube"}, names(r.AdaptersFor(types.FilterAll)))

	arxiv, _ := r.Lookup("arxiv")
	assert.Equal(t, 2*time.Second, arxiv.Timeout)

	openalex, _ := r.Lookup("openalex")
	assert.Equal(t, []types.ResourceType{types.TypeDataset}, openalex.Types)

	oshwa, _ := r.Lookup("oshwa")
	assert.False(t, oshwa.Enabled, "oshwa without a token is disabled")
	assert.Equal(t, 1, logs.FilterMessage("provider disabled: missing credential").Len())

	yt, _ := r.Lookup("youtube")
	assert.True(t, yt.Enabled, "youtube key comes from secrets")
	assert.IsType(t, &provider.YouTube{}, yt.Backend)
	assert.Equal(t, "yt", yt.Backend.(*provider.YouTube).APIKey)

	assert.Empty(t, cfg.Providers["youtube"].APIKey, "caller config is not mutated")
}

func TestBuildRejectsBadConfig(t *testing.T) {
	_, err := Build(types.AppConfig{Providers: map[string]types.ProviderConfig{
		"arxiv": {Enabled: true, Types: []string{"podcast"}},
	}}, nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "providers.arxiv.types")

	_, err = Build(types.AppConfig{Providers: map[string]types.ProviderConfig{
		"myspace": {Enabled: true},
	}}, nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "myspace"`)
}
