package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()

	prev := defaultLogger
	t.Cleanup(func() { defaultLogger = prev })

	var buf bytes.Buffer
	defaultLogger = slog.New(slog.NewJSONHandler(&buf, nil))
	return &buf
}

func TestWithContextEnrichesRequestFields(t *testing.T) {
	buf := captureLogger(t)

	ctx := ContextWithRequestID(context.Background(), "req-42")
	ctx = ContextWithUserID(ctx, 12)

	WithContext(ctx).Info("hello")

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-42"`)
	assert.Contains(t, out, `"user_id":12`)
}

func TestWithContextBareContextAddsNothing(t *testing.T) {
	buf := captureLogger(t)

	WithContext(context.Background()).Info("hello")

	out := buf.String()
	assert.NotContains(t, out, "request_id")
	assert.NotContains(t, out, "user_id")
}

func TestContextRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithUserID(ctx, 7)

	reqID, ok := RequestIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "req-1", reqID)

	userID, ok := UserIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(7), userID)

	_, ok = RequestIDFromContext(context.Background())
	assert.False(t, ok)
	_, ok = UserIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestNewRequestIDUnique(t *testing.T) {
	assert.NotEqual(t, NewRequestID(), NewRequestID())
}
