package tlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetWithoutLogger(t *testing.T) {
	logger := Get(context.Background())
	require.NotNil(t, logger)
	logger.Info("goes nowhere")
}

func TestWith(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := WithLogger(context.Background(), zap.New(core))
	ctx = With(ctx, zap.String("handler", "Standard"))

	Get(ctx).Info("serving")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	require.Equal(t, "serving", entry.Message)
	require.Equal(t, "Standard", entry.ContextMap()["handler"])
}

func TestParseColor(t *testing.T) {
	for arg, expected := range map[string]Color{"": ColorAuto, "auto": ColorAuto, "yes": ColorYes, "no": ColorNo} {
		color, ok := ParseColor(arg)
		require.True(t, ok, arg)
		require.Equal(t, expected, color)
	}
	_, ok := ParseColor("sometimes")
	require.False(t, ok)
}
