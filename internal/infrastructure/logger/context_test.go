package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContext(t *testing.T) {
	logger := zap.NewNop()
	ctx := WithContext(context.Background(), logger)

	got := FromContext(ctx)
	assert.Same(t, logger, got)
}

func TestFromContext_NoLogger(t *testing.T) {
	got := FromContext(context.Background())

	// Should return a no-op logger, never nil
	require.NotNil(t, got)
	assert.NotPanics(t, func() {
		got.Info("should not panic")
	})
}

func TestWithRunID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	ctx, enriched := WithRunID(context.Background(), logger, "run-123")

	assert.Equal(t, "run-123", GetRunID(ctx))
	assert.Same(t, enriched, FromContext(ctx))

	enriched.Info("processing")

	logs := recorded.All()
	require.Len(t, logs, 1)

	hasRunID := false
	for _, field := range logs[0].Context {
		if field.Key == "run_id" {
			hasRunID = true
			assert.Equal(t, "run-123", field.String)
		}
	}
	assert.True(t, hasRunID, "run_id should be in log fields")
}

func TestWithAccountID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	ctx, enriched := WithAccountID(context.Background(), logger, "acct-42")

	assert.Equal(t, "acct-42", GetAccountID(ctx))

	enriched.Info("assembling invoices")

	logs := recorded.All()
	require.Len(t, logs, 1)

	hasAccountID := false
	for _, field := range logs[0].Context {
		if field.Key == "account_id" {
			hasAccountID = true
			assert.Equal(t, "acct-42", field.String)
		}
	}
	assert.True(t, hasAccountID, "account_id should be in log fields")
}

func TestGetRunID_Missing(t *testing.T) {
	assert.Empty(t, GetRunID(context.Background()))
	assert.Empty(t, GetAccountID(context.Background()))
}

func TestWithRunID_ChainsWithAccountID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	ctx, enriched := WithRunID(context.Background(), logger, "run-9")
	ctx, enriched = WithAccountID(ctx, enriched, "acct-7")

	assert.Equal(t, "run-9", GetRunID(ctx))
	assert.Equal(t, "acct-7", GetAccountID(ctx))

	enriched.Info("both ids attached")

	logs := recorded.All()
	require.Len(t, logs, 1)

	keys := make(map[string]string)
	for _, field := range logs[0].Context {
		keys[field.Key] = field.String
	}
	assert.Equal(t, "run-9", keys["run_id"])
	assert.Equal(t, "acct-7", keys["account_id"])
}
