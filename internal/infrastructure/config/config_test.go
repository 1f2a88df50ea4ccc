package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "planner-test.db")
	t.Setenv("APP_ENVIRONMENT", "development")
	t.Setenv("PORT", "8080")
	t.Setenv("STORAGE_TYPE", "local")
	t.Setenv("LOCK_TYPE", "memory")
	t.Setenv("BOT_LINK_STORE", "memory")
}

func TestLoadDefaults(t *testing.T) {
	sqliteEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Bot.LinkCodeTTL)
	assert.Equal(t, time.Minute, cfg.Bot.SweepEvery)
	assert.Contains(t, cfg.Storage.AllowedTypes, "png")
	assert.NotEmpty(t, cfg.Board.DefaultColumns)
	assert.False(t, cfg.Bot.Enabled())
	assert.Equal(t, "file:planner-test.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", cfg.Database.GetDSN())
}

func TestLoadEnvOverrides(t *testing.T) {
	sqliteEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("MICROSOFT_APP_ID", "app-123")
	t.Setenv("BOT_LINK_CODE_TTL", "5m")
	t.Setenv("NOTIFY_MAX_IN_FLIGHT", "4")
	t.Setenv("REDIS_HOST", "cache")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Bot.Enabled())
	assert.Equal(t, 5*time.Minute, cfg.Bot.LinkCodeTTL)
	assert.Equal(t, 4, cfg.Notify.MaxInFlight)
	assert.Equal(t, "cache:6379", cfg.Redis.GetAddr())
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"driver", map[string]string{"DB_DRIVER": "mysql"}, "unsupported database driver"},
		{"storage", map[string]string{"STORAGE_TYPE": "floppy"}, "unsupported storage type"},
		{"lock", map[string]string{"LOCK_TYPE": "etcd"}, "unsupported lock type"},
		{"link store", map[string]string{"BOT_LINK_STORE": "disk"}, "unsupported link store"},
		{"port", map[string]string{"PORT": "70000"}, "server port"},
		{"default secret in production", map[string]string{
			"APP_ENVIRONMENT": "production",
			"JWT_SECRET":      "your-super-secret-jwt-key",
		}, "JWT secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sqliteEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
