package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithLogger(context.Background(), logger)
	require.Same(t, logger, FromContext(ctx))

	FromContext(ctx).Info("fit done", "iterations", 7)
	require.Contains(t, buf.String(), "iterations=7")
}

func TestFallbackToDefault(t *testing.T) {
	require.Same(t, slog.Default(), FromContext(context.Background()))
}
