package database

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/logging"
)

const defaultRedisDialTimeout = 5 * time.Second

// RedisConfig holds the settings for the broadcast guard and live fanout connection.
type RedisConfig struct {
	Host        string
	Port        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewRedis builds a client and pings it within DialTimeout. The Pub/Sub
// subscription used by the live fanout holds a connection of its own, so
// PoolSize only bounds command traffic.
func NewRedis(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	logger = logging.OrDefault(logger)
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultRedisDialTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr(), err)
	}

	logger.Info("connected to redis", "addr", cfg.Addr(), "db", cfg.DB, "pool_size", client.Options().PoolSize)
	return client, nil
}
