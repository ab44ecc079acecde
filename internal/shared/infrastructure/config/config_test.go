package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "http://localhost:3000", cfg.Server.AllowedOrigins)
	assert.Equal(t, "default-dev-secret", cfg.JWT.Secret)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.True(t, cfg.Migrate.OnStart)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "6379", cfg.Redis.Port)
	assert.Equal(t, 5*time.Second, cfg.Redis.DialTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Push.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Push.SendTimeout)

	assert.Equal(t, 4, cfg.Notification.EventWorkers)
	assert.Equal(t, 1024, cfg.Notification.EventQueueSize)
	assert.Equal(t, 100, cfg.Notification.BroadcastPageSize)
	assert.Equal(t, 24*time.Hour, cfg.Notification.BroadcastDedupTTL)
	assert.Equal(t, time.Hour, cfg.Notification.StreamLifetime)
	assert.Equal(t, 32, cfg.Notification.StreamBuffer)
	assert.Equal(t, 25*time.Second, cfg.Notification.HeartbeatInterval)
	assert.Equal(t, "wedding:notification:live", cfg.Notification.FanoutChannel)
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()

	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", "https://weddly.app")
	t.Setenv("JWT_SECRET", "my-secret")
	t.Setenv("DB_HOST", "db-server")
	t.Setenv("DB_PORT", "15432")
	t.Setenv("DB_USER", "admin")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "production")
	t.Setenv("DB_SSLMODE", "require")
	t.Setenv("DB_AUTO_MIGRATE", "false")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("REDIS_HOST", "redis-server")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("PUSH_ENABLED", "true")
	t.Setenv("FIREBASE_PROJECT_ID", "weddly-prod")
	t.Setenv("FIREBASE_CREDENTIALS_FILE", "/secrets/fcm.json")
	t.Setenv("PUSH_SEND_TIMEOUT", "3s")
	t.Setenv("NOTIFICATION_EVENT_WORKERS", "8")
	t.Setenv("NOTIFICATION_BROADCAST_PAGE_SIZE", "250")
	t.Setenv("NOTIFICATION_STREAM_LIFETIME", "30m")
	t.Setenv("REDIS_DIAL_TIMEOUT", "2s")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "https://weddly.app", cfg.Server.AllowedOrigins)
	assert.Equal(t, "my-secret", cfg.JWT.Secret)
	assert.Equal(t, "db-server", cfg.Database.Host)
	assert.Equal(t, "15432", cfg.Database.Port)
	assert.Equal(t, "admin", cfg.Database.User)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, "production", cfg.Database.DBName)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.False(t, cfg.Migrate.OnStart)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis-server", cfg.Redis.Host)
	assert.Equal(t, "6380", cfg.Redis.Port)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 2*time.Second, cfg.Redis.DialTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Push.Enabled)
	assert.Equal(t, "weddly-prod", cfg.Push.ProjectID)
	assert.Equal(t, "/secrets/fcm.json", cfg.Push.CredentialsFile)
	assert.Equal(t, 3*time.Second, cfg.Push.SendTimeout)
	assert.Equal(t, 8, cfg.Notification.EventWorkers)
	assert.Equal(t, 250, cfg.Notification.BroadcastPageSize)
	assert.Equal(t, 30*time.Minute, cfg.Notification.StreamLifetime)
}

func TestParseHelpers_FallBackOnGarbage(t *testing.T) {
	assert.Equal(t, 5*time.Second, parseDuration("soon", 5*time.Second))
	assert.Equal(t, 7, parseInt("seven", 7))
	assert.Equal(t, 7, parseInt("-1", 7))
	assert.True(t, parseBool("maybe", true))
}
