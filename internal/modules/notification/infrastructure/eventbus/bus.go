package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/weddly/wedding-planner/internal/modules/notification/domain"
	"github.com/weddly/wedding-planner/internal/modules/notification/infrastructure/metrics"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/database"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/logging"
)

var ErrStopped = errors.New("event bus stopped")

// Handler consumes one committed event.
type Handler func(ctx context.Context, evt domain.NotificationEvent) error

type Options struct {
	Workers   int
	QueueSize int
	// MaxOverflow caps events waiting for room in a full queue. Defaults to QueueSize.
	MaxOverflow int
}

// Bus hands notification events to a worker pool once the publishing
// transaction has committed. Events published inside a transaction that rolls
// back are never handled.
type Bus struct {
	handler  Handler
	queue    chan domain.NotificationEvent
	overflow chan struct{}
	workers  int
	logger   *slog.Logger

	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

func New(handler Handler, opts Options, logger *slog.Logger) *Bus {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.MaxOverflow <= 0 {
		opts.MaxOverflow = opts.QueueSize
	}
	return &Bus{
		handler:  handler,
		queue:    make(chan domain.NotificationEvent, opts.QueueSize),
		overflow: make(chan struct{}, opts.MaxOverflow),
		workers:  opts.Workers,
		logger:   logging.OrDefault(logger),
		stop:     make(chan struct{}),
	}
}

// Start launches the workers.
func (b *Bus) Start() {
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.run()
	}
}

// Publish schedules evt for handling after the transaction carried by ctx
// commits. Without a transaction the event is scheduled right away.
// Publish never waits for the handler.
func (b *Bus) Publish(ctx context.Context, evt domain.NotificationEvent) error {
	if err := evt.Validate(); err != nil {
		return err
	}
	select {
	case <-b.stop:
		return ErrStopped
	default:
	}

	if database.AfterCommit(ctx, func() { b.enqueue(evt) }) {
		return nil
	}
	b.enqueue(evt)
	return nil
}

func (b *Bus) enqueue(evt domain.NotificationEvent) {
	select {
	case <-b.stop:
		// The transaction committed after Stop; no worker will read the queue.
		b.drop(evt, "notification event committed after stop, dropped")
		return
	default:
	}

	select {
	case b.queue <- evt:
		metrics.EventQueueDepth.Inc()
		return
	default:
	}

	// Queue full: wait off the caller's goroutine, up to MaxOverflow waiters.
	select {
	case b.overflow <- struct{}{}:
	default:
		b.drop(evt, "notification event queue and overflow full, dropped")
		return
	}
	b.logger.Warn("notification event queue full", "event_id", evt.ID, "type", evt.Type)
	go func() {
		defer func() { <-b.overflow }()
		select {
		case b.queue <- evt:
			metrics.EventQueueDepth.Inc()
		case <-b.stop:
			b.drop(evt, "notification event dropped on shutdown")
		}
	}()
}

func (b *Bus) drop(evt domain.NotificationEvent, msg string) {
	metrics.EventsHandled.WithLabelValues("dropped").Inc()
	b.logger.Error(msg, "event_id", evt.ID, "type", evt.Type, "initiator_id", evt.Initiator.ID)
}

func (b *Bus) run() {
	defer b.wg.Done()
	for {
		select {
		case evt := <-b.queue:
			metrics.EventQueueDepth.Dec()
			b.handle(evt)
		case <-b.stop:
			b.drain()
			return
		}
	}
}

func (b *Bus) drain() {
	for {
		select {
		case evt := <-b.queue:
			metrics.EventQueueDepth.Dec()
			b.handle(evt)
		default:
			return
		}
	}
}

func (b *Bus) handle(evt domain.NotificationEvent) {
	log := b.logger.With("event_id", evt.ID, "type", evt.Type, "initiator_id", evt.Initiator.ID)
	defer func() {
		if p := recover(); p != nil {
			metrics.EventsHandled.WithLabelValues("panic").Inc()
			log.Error("notification event handler panicked", "panic", fmt.Sprint(p))
		}
	}()

	if err := b.handler(context.Background(), evt); err != nil {
		metrics.EventsHandled.WithLabelValues("error").Inc()
		log.Error("notification event handler failed", "error", err)
		return
	}
	metrics.EventsHandled.WithLabelValues("ok").Inc()
}

// Stop stops accepting events, lets the workers finish what is queued and
// waits for them until ctx ends.
func (b *Bus) Stop(ctx context.Context) error {
	b.stopOnce.Do(func() { close(b.stop) })

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
