package events_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/cavsgen/internal/events"
)

func TestFromContext(t *testing.T) {
	// Should return default logger when none in context
	logger := events.FromContext(context.Background())
	assert.NotNil(t, logger)
}

func TestWithLogger(t *testing.T) {
	logger := events.NewNopLogger()

	ctx := events.WithLogger(context.Background(), logger)

	assert.Same(t, logger, events.FromContext(ctx))
}

func TestWithRunID(t *testing.T) {
	var buf bytes.Buffer
	ctx := events.WithLogger(context.Background(), events.NewTestLogger(events.InfoLevel, "json", &buf))

	ctx = events.WithRunID(ctx, "run-123")
	assert.Equal(t, "run-123", events.GetRunID(ctx))

	events.FromContext(ctx).Info("tagged")
	assert.Contains(t, buf.String(), `"run_id":"run-123"`)
}

func TestWithInput(t *testing.T) {
	var buf bytes.Buffer
	ctx := events.WithLogger(context.Background(), events.NewTestLogger(events.InfoLevel, "json", &buf))

	ctx = events.WithInput(ctx, "short")
	assert.Equal(t, "short", events.GetInput(ctx))
	assert.Empty(t, events.GetRunID(ctx))

	events.FromContext(ctx).Info("tagged")
	assert.Contains(t, buf.String(), `"input":"short"`)
}
