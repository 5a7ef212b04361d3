// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/openresources/pkg/types"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.LogConfig
		enabled zapcore.Level
		wantErr string
	}{
		{"defaults", types.LogConfig{}, zapcore.InfoLevel, ""},
		{"json debug", types.LogConfig{Format: "json", Level: "debug"}, zapcore.DebugLevel, ""},
		{"console warn", types.LogConfig{Format: "console", Level: "warn"}, zapcore.WarnLevel, ""},
		{"bad format", types.LogConfig{Format: "xml"}, 0, "unknown log format"},
		{"bad level", types.LogConfig{Level: "loud"}, 0, "invalid log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.enabled))
			assert.False(t, l.Core().Enabled(tt.enabled-1), "level below %s should be off", tt.enabled)
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	l := zap.NewExample()
	ctx := ContextWithLogger(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}

func TestFromContextDefaultsToNop(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))
}

func TestFromContextOr(t *testing.T) {
	def := zap.NewExample()
	assert.Same(t, def, FromContextOr(context.Background(), def))

	l := zap.NewExample()
	assert.Same(t, l, FromContextOr(ContextWithLogger(context.Background(), l), def))
}
