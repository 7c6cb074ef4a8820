package logger_test

import (
	"errors"
	"net/http/httptest"
	"testing"

	"todoTracker/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestInit проверяет сборку логгера в обоих режимах
func TestInit(t *testing.T) {
	t.Cleanup(func() { logger.Logger = zap.NewNop() })

	require.NoError(t, logger.Init(true, ""))
	require.NoError(t, logger.Init(false, "warn"))
	assert.False(t, logger.Logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Logger.Core().Enabled(zapcore.WarnLevel))

	err := logger.Init(false, "shouting")
	assert.Error(t, err)
}

// TestHelpers проверяет, что хелперы пишут нужные поля
func TestHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger.Logger = zap.New(core)
	t.Cleanup(func() { logger.Logger = zap.NewNop() })

	logger.Error("Repository: сбой", errors.New("boom"), zap.Int64("task_id", 7))
	req := httptest.NewRequest("GET", "/api/v1/tasks?limit=5", nil)
	logger.HttpRequestInfo(req, "HTTP_IN:")
	logger.Warn("warn")
	logger.Debug("debug")

	require.Equal(t, 4, logs.Len())

	first := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, first.Level)
	assert.Equal(t, "boom", first.ContextMap()["error"])
	assert.Equal(t, int64(7), first.ContextMap()["task_id"])

	second := logs.All()[1].ContextMap()
	assert.Equal(t, "GET", second["method"])
	assert.Equal(t, "/api/v1/tasks", second["path"])
	assert.Equal(t, "limit=5", second["query"])
}
