package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMustMakeLogger(t *testing.T) {
	ctx := context.Background()

	assert.True(t, mustMakeLogger("DEBUG").Enabled(ctx, slog.LevelDebug))
	assert.False(t, mustMakeLogger("INFO").Enabled(ctx, slog.LevelDebug))
	assert.False(t, mustMakeLogger("WARN").Enabled(ctx, slog.LevelInfo))
	assert.False(t, mustMakeLogger("ERROR").Enabled(ctx, slog.LevelWarn))
	assert.True(t, mustMakeLogger("bogus").Enabled(ctx, slog.LevelInfo))
}

func TestMustMakeLogger_CaseInsensitive(t *testing.T) {
	ctx := context.Background()

	assert.True(t, mustMakeLogger("debug").Enabled(ctx, slog.LevelDebug))
	assert.True(t, mustMakeLogger(" Debug ").Enabled(ctx, slog.LevelDebug))
	assert.False(t, mustMakeLogger("error").Enabled(ctx, slog.LevelWarn))
}
