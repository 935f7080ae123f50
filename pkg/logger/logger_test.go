package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewWithWriter_EmitsJSONWithServiceName(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("account-service", "info", &buf)

	log.Info("server started", "port", 8006)

	entry := logLine(t, &buf)
	assert.Equal(t, "account-service", entry["service"])
	assert.Equal(t, "server started", entry["msg"])
	assert.Equal(t, float64(8006), entry["port"])
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("account-service", "warn", &buf)

	log.Info("should be dropped")
	assert.Zero(t, buf.Len())

	log.Warn("should be kept")
	assert.NotZero(t, buf.Len())
}

func TestNewWithWriter_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("account-service", "chatty", &buf)

	log.Debug("dropped")
	assert.Zero(t, buf.Len())

	log.Info("kept")
	assert.NotZero(t, buf.Len())
}

func TestCorrelationID_RoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "corr-42")
	assert.Equal(t, "corr-42", CorrelationIDFromContext(ctx))
}

func TestCorrelationIDFromContext_Empty(t *testing.T) {
	assert.Equal(t, "", CorrelationIDFromContext(context.Background()))
}

func TestAccountID_RoundTrip(t *testing.T) {
	ctx := WithAccountID(context.Background(), "acct-7")
	assert.Equal(t, "acct-7", AccountIDFromContext(ctx))
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}

func TestFromContext_ReturnsStoredLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("account-service", "info", &buf)
	ctx := NewContext(context.Background(), log)

	FromContext(ctx).Info("via context")

	entry := logLine(t, &buf)
	assert.Equal(t, "via context", entry["msg"])
}

func TestWithContext_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("account-service", "info", &buf)

	ctx := WithCorrelationID(context.Background(), "corr-42")
	ctx = WithAccountID(ctx, "acct-7")

	WithContext(ctx, log).Info("handled request")

	entry := logLine(t, &buf)
	assert.Equal(t, "corr-42", entry["correlation_id"])
	assert.Equal(t, "acct-7", entry["account_id"])
}

func TestWithContext_NoFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("account-service", "info", &buf)

	WithContext(context.Background(), log).Info("handled request")

	entry := logLine(t, &buf)
	_, hasCorr := entry["correlation_id"]
	assert.False(t, hasCorr)
}
