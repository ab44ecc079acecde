package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/weddly/wedding-planner/internal/modules/notification/domain"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/logging"
)

var (
	ErrBroadcastQueueFull     = errors.New("broadcast queue full")
	ErrBroadcastWorkerStopped = errors.New("broadcast worker stopped")
)

// BroadcastWorker runs accepted broadcasts one at a time off the request path.
type BroadcastWorker struct {
	service *NotificationService
	jobs    chan domain.BroadcastRequest
	logger  *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	// OnFinish, when set, observes every finished job.
	OnFinish func(domain.BroadcastResult, error)
}

func NewBroadcastWorker(service *NotificationService, queueSize int, logger *slog.Logger) *BroadcastWorker {
	if queueSize <= 0 {
		queueSize = 16
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &BroadcastWorker{
		service: service,
		jobs:    make(chan domain.BroadcastRequest, queueSize),
		logger:  logging.OrDefault(logger),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (w *BroadcastWorker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Submit validates and claims req, then queues it. The returned request
// carries the effective key.
func (w *BroadcastWorker) Submit(ctx context.Context, req domain.BroadcastRequest) (domain.BroadcastRequest, error) {
	if w.ctx.Err() != nil {
		return req, ErrBroadcastWorkerStopped
	}
	req, err := w.service.PrepareBroadcast(ctx, req)
	if err != nil {
		return req, err
	}
	select {
	case w.jobs <- req:
		return req, nil
	default:
		_ = w.service.guard.Release(ctx, req.Key)
		return req, ErrBroadcastQueueFull
	}
}

func (w *BroadcastWorker) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case req := <-w.jobs:
			w.process(req)
		}
	}
}

func (w *BroadcastWorker) process(req domain.BroadcastRequest) {
	var (
		result domain.BroadcastResult
		err    error
	)
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("broadcast panicked: %v", p)
			w.logger.Error("broadcast panicked", "broadcast_key", req.Key, "panic", fmt.Sprint(p))
		}
		if w.OnFinish != nil {
			w.OnFinish(result, err)
		}
	}()
	result, err = w.service.RunBroadcast(w.ctx, req)
}

// Stop cancels the running broadcast between pages and waits for the worker.
// Broadcasts still queued are dropped and their keys released.
func (w *BroadcastWorker) Stop(ctx context.Context) error {
	w.stopOnce.Do(w.cancel)
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		w.drain(ctx)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *BroadcastWorker) drain(ctx context.Context) {
	for {
		select {
		case req := <-w.jobs:
			if err := w.service.guard.Release(ctx, req.Key); err != nil {
				w.logger.Warn("broadcast key release failed", "broadcast_key", req.Key, "error", err)
			}
			w.logger.Warn("queued broadcast dropped on shutdown", "broadcast_key", req.Key, "type", req.Type)
		default:
			return
		}
	}
}
