package clog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHandler_Columns(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(NewAttributesHandler(NewTextHandler(buf, WithColor(false), WithLevel(slog.LevelDebug))))

	ctx := ContextWithSlog(context.Background())
	AddOwner(ctx, "U123")
	AddTask(ctx, 7)
	AddError(ctx, errors.New("push failed"))
	AddAttribute(ctx, "attempt", 2)

	logger.WarnContext(ctx, "delivery failed")

	out := buf.String()
	assert.Contains(t, out, "WARN U123 7 delivery failed \"push failed\"\n")
	assert.Contains(t, out, "    attempt=2\n")
	assert.NotContains(t, out, "owner_id=")
}

func TestTextHandler_LevelFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(NewTextHandler(buf, WithColor(false), WithLevel(slog.LevelWarn)))

	logger.Info("hidden")
	logger.Error("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestContextAttributes(t *testing.T) {
	ctx := ContextWithSlog(context.Background())
	AddAttributes(ctx, map[string]any{"a": map[string]any{"x": 1}})
	AddAttributes(ctx, map[string]any{"a": map[string]any{"y": 2}, "b": "c"})

	attrs := GetAttributes(ctx)
	require.Len(t, attrs, 2)
	assert.Equal(t, map[string]any{"x": 1, "y": 2}, attrs["a"])
	assert.Equal(t, "c", GetAttribute[string](ctx, "b"))
	assert.Equal(t, 0, GetAttribute[int](ctx, "b"))

	// attributes on a bare context are dropped silently
	AddAttribute(context.Background(), "k", "v")
	assert.Nil(t, GetAttributes(context.Background()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
