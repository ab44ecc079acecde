package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/weddly/wedding-planner/internal/modules/notification/application"
	"github.com/weddly/wedding-planner/internal/modules/notification/domain"
	"github.com/weddly/wedding-planner/internal/modules/notification/infrastructure/cache"
	"github.com/weddly/wedding-planner/internal/modules/notification/infrastructure/eventbus"
	"github.com/weddly/wedding-planner/internal/modules/notification/infrastructure/live"
	"github.com/weddly/wedding-planner/internal/modules/notification/infrastructure/persistence/postgres"
	"github.com/weddly/wedding-planner/internal/modules/notification/infrastructure/push"
	notification_http "github.com/weddly/wedding-planner/internal/modules/notification/interfaces/http"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/config"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/database"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/logging"
)

type Module struct {
	service  *application.NotificationService
	handler  *notification_http.NotificationHandler
	bus      *eventbus.Bus
	worker   *application.BroadcastWorker
	registry *live.Registry

	cancelFanout context.CancelFunc
	fanoutDone   chan struct{}
	logger       *slog.Logger
}

// NewModule wires the notification pipeline. rdb may be nil, in which case
// live delivery stays on this instance and broadcast keys are not shared.
// A nil gateway disables push.
func NewModule(db *sqlx.DB, rdb *redis.Client, gateway push.Gateway, cfg config.Config, logger *slog.Logger) *Module {
	logger = logging.OrDefault(logger)
	ncfg := cfg.Notification

	repo := postgres.NewPgNotificationRepository(db)
	directory := postgres.NewPgRecipientDirectory(db)
	txm := database.NewTxManager(db)

	registry := live.NewRegistry(live.Options{
		Lifetime:  ncfg.StreamLifetime,
		Buffer:    ncfg.StreamBuffer,
		Heartbeat: ncfg.HeartbeatInterval,
	}, logger)

	m := &Module{registry: registry, logger: logger}

	var publisher live.Publisher
	var guard application.BroadcastGuard = cache.NoopBroadcastGuard{}
	if rdb != nil {
		fanout := live.NewRedisFanout(rdb, ncfg.FanoutChannel, registry, logger)
		publisher = fanout
		guard = cache.NewRedisBroadcastGuard(rdb, ncfg.BroadcastDedupTTL)

		ctx, cancel := context.WithCancel(context.Background())
		m.cancelFanout = cancel
		m.fanoutDone = make(chan struct{})
		go func() {
			defer close(m.fanoutDone)
			fanout.Run(ctx)
		}()
	}

	if gateway == nil {
		gateway = push.NoopGateway{Logger: logger}
	}

	dispatcher := application.NewDispatcher(map[domain.ChannelPolicy]application.Channel{
		domain.ChannelPushOnly:  push.NewChannel(gateway, directory, cfg.Push.SendTimeout, logger),
		domain.ChannelInAppOnly: live.NewChannel(registry, publisher, logger),
	}, logger)

	m.service = application.NewNotificationService(repo, directory, txm, dispatcher, guard, ncfg.BroadcastPageSize, logger)

	m.bus = eventbus.New(m.service.HandleEvent, eventbus.Options{
		Workers:   ncfg.EventWorkers,
		QueueSize: ncfg.EventQueueSize,
	}, logger)
	m.bus.Start()

	m.worker = application.NewBroadcastWorker(m.service, 0, logger)
	m.worker.Start()

	m.handler = notification_http.NewNotificationHandler(m.service, registry, m.worker, m.bus, logger)
	return m
}

func (m *Module) HTTPHandler() *notification_http.NotificationHandler {
	return m.handler
}

func (m *Module) Service() *application.NotificationService {
	return m.service
}

// Bus is where other modules publish notification events from inside their
// transactions.
func (m *Module) Bus() *eventbus.Bus {
	return m.bus
}

func (m *Module) Registry() *live.Registry {
	return m.registry
}

// Shutdown stops accepting events, drains queued work and closes live streams.
func (m *Module) Shutdown(ctx context.Context) error {
	err := errors.Join(m.bus.Stop(ctx), m.worker.Stop(ctx))
	m.registry.Close()
	if m.cancelFanout != nil {
		m.cancelFanout()
		select {
		case <-m.fanoutDone:
		case <-ctx.Done():
			err = errors.Join(err, ctx.Err())
		}
	}
	return err
}
