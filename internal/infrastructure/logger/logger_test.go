package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/plannerhq/planner/internal/infrastructure/config"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return FromZap(zap.New(core)), logs
}

func TestLogUserAction(t *testing.T) {
	log, logs := observed()
	log.WithComponent("cards").LogUserAction("u1", "move_card", map[string]interface{}{"card_id": "c1"})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	assert.Equal(t, "User action", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "cards", fields["component"])
	assert.Equal(t, "move_card", fields["action"])
	assert.Equal(t, "c1", fields["card_id"])
}

func TestLogSecurityEventAndNotification(t *testing.T) {
	log, logs := observed()
	log.LogSecurityEvent("login_failed", "", "10.0.0.1", nil)
	log.LogNotification("u1", "webhook", errors.New("410 gone"))
	log.LogNotification("u1", "bot", nil)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "10.0.0.1", entries[0].ContextMap()["ip"])
	assert.Equal(t, "410 gone", entries[1].ContextMap()["error"])
	assert.Equal(t, "Notification delivered", entries[2].Message)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LoggerConfig{Level: "loud", Format: "json", Output: "stdout"})
	assert.Error(t, err)

	log, err := New(config.LoggerConfig{Level: "debug", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestScopedFields(t *testing.T) {
	log, logs := observed()
	log.WithRequestID("req-1").WithUserID("u1").WithError(errors.New("boom")).Errorw("HTTP request failed")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "u1", fields["user_id"])
	assert.Equal(t, "boom", fields["error"])
}
