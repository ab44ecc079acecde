package config

import (
	"os"
	"strconv"
	"time"

	"github.com/weddly/wedding-planner/internal/shared/infrastructure/database"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig
	Database     database.PostgresConfig
	Migrate      MigrateConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Log          LogConfig
	Push         PushConfig
	Notification NotificationConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	AllowedOrigins string
}

// MigrateConfig controls schema migrations at startup
type MigrateConfig struct {
	OnStart bool
}

// RedisConfig adds an on/off switch to the connection settings.
// With Redis disabled live delivery stays process-local and broadcasts are not de-duplicated.
type RedisConfig struct {
	Enabled bool
	database.RedisConfig
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string
	Format string
}

// PushConfig holds Firebase Cloud Messaging configuration
type PushConfig struct {
	Enabled         bool
	ProjectID       string
	CredentialsFile string
	SendTimeout     time.Duration
}

// NotificationConfig tunes the delivery pipeline
type NotificationConfig struct {
	EventWorkers      int
	EventQueueSize    int
	BroadcastPageSize int
	BroadcastDedupTTL time.Duration
	StreamLifetime    time.Duration
	StreamBuffer      int
	HeartbeatInterval time.Duration
	FanoutChannel     string
}

// Load reads configuration from environment variables
func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: database.PostgresConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "wedding"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Migrate: MigrateConfig{
			OnStart: parseBool(getEnv("DB_AUTO_MIGRATE", "true"), true),
		},
		Redis: RedisConfig{
			Enabled: parseBool(getEnv("REDIS_ENABLED", "true"), true),
			RedisConfig: database.RedisConfig{
				Host:        getEnv("REDIS_HOST", "localhost"),
				Port:        getEnv("REDIS_PORT", "6379"),
				Password:    getEnv("REDIS_PASSWORD", ""),
				DB:          parseInt(getEnv("REDIS_DB", "0"), 0),
				PoolSize:    parseInt(getEnv("REDIS_POOL_SIZE", "0"), 0),
				DialTimeout: parseDuration(getEnv("REDIS_DIAL_TIMEOUT", "5s"), 5*time.Second),
			},
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "default-dev-secret"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Push: PushConfig{
			Enabled:         parseBool(getEnv("PUSH_ENABLED", "false"), false),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			SendTimeout:     parseDuration(getEnv("PUSH_SEND_TIMEOUT", "10s"), 10*time.Second),
		},
		Notification: NotificationConfig{
			EventWorkers:      parseInt(getEnv("NOTIFICATION_EVENT_WORKERS", "4"), 4),
			EventQueueSize:    parseInt(getEnv("NOTIFICATION_EVENT_QUEUE_SIZE", "1024"), 1024),
			BroadcastPageSize: parseInt(getEnv("NOTIFICATION_BROADCAST_PAGE_SIZE", "100"), 100),
			BroadcastDedupTTL: parseDuration(getEnv("NOTIFICATION_BROADCAST_DEDUP_TTL", "24h"), 24*time.Hour),
			StreamLifetime:    parseDuration(getEnv("NOTIFICATION_STREAM_LIFETIME", "1h"), time.Hour),
			StreamBuffer:      parseInt(getEnv("NOTIFICATION_STREAM_BUFFER", "32"), 32),
			HeartbeatInterval: parseDuration(getEnv("NOTIFICATION_HEARTBEAT_INTERVAL", "25s"), 25*time.Second),
			FanoutChannel:     getEnv("NOTIFICATION_FANOUT_CHANNEL", "wedding:notification:live"),
		},
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration string or returns a default value
func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}

// parseInt parses a positive integer or returns a default value
func parseInt(value string, defaultValue int) int {
	if n, err := strconv.Atoi(value); err == nil && n >= 0 {
		return n
	}
	return defaultValue
}

func parseBool(value string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}
