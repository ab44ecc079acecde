package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/weddly/wedding-planner/internal/gateway"
	"github.com/weddly/wedding-planner/internal/gateway/middleware"
	"github.com/weddly/wedding-planner/internal/modules/notification"
	"github.com/weddly/wedding-planner/internal/modules/notification/infrastructure/push"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/config"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/database"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/logging"
	"github.com/weddly/wedding-planner/pkg/migration"
)

const moduleShutdownGrace = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env", "error", err)
	}

	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("connecting to database", "host", cfg.Database.Host, "db", cfg.Database.DBName)
	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Migrate.OnStart {
		if err := migration.AutoMigrate(cfg.Database.DSN(), logger); err != nil {
			return err
		}
	}

	rdb, err := connectRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	pushGateway, err := newPushGateway(ctx, cfg.Push, logger)
	if err != nil {
		return err
	}

	module := notification.NewModule(db, rdb, pushGateway, cfg, logger)

	handler := gateway.SetupRoutes(gateway.RouterConfig{
		AuthMiddleware:      middleware.NewAuthMiddleware(cfg.JWT.Secret),
		NotificationHandler: module.HTTPHandler(),
		AllowedOrigins:      cfg.Server.AllowedOrigins,
	})

	server := gateway.NewServer(cfg.Server.Port, handler, logger)
	server.RegisterOnShutdown(module.Registry().Close)

	serveErr := server.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), moduleShutdownGrace)
	defer cancel()
	return errors.Join(serveErr, module.Shutdown(shutdownCtx))
}

// connectRedis returns a nil client when Redis is switched off.
func connectRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	if !cfg.Enabled {
		logger.Warn("redis disabled: live delivery is local to this instance and broadcasts are not de-duplicated")
		return nil, nil
	}
	return database.NewRedis(ctx, cfg.RedisConfig, logger)
}

// newPushGateway returns nil when push is switched off; the module then
// falls back to a no-op gateway.
func newPushGateway(ctx context.Context, cfg config.PushConfig, logger *slog.Logger) (push.Gateway, error) {
	if !cfg.Enabled {
		logger.Info("push delivery disabled")
		return nil, nil
	}
	client, err := push.NewFCMGateway(ctx, push.FCMConfig{
		ProjectID:       cfg.ProjectID,
		CredentialsFile: cfg.CredentialsFile,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
