package application

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/weddly/wedding-planner/internal/modules/notification/domain"
	"github.com/weddly/wedding-planner/internal/modules/notification/infrastructure/metrics"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/logging"
)

// Channel is one delivery path. Implementations log and swallow their own
// failures.
type Channel interface {
	Send(ctx context.Context, n *domain.Notification)
}

// Dispatcher routes a persisted notification to the single channel its type's
// policy names. The policy table is fixed at construction.
type Dispatcher struct {
	channels map[domain.ChannelPolicy]Channel
	logger   *slog.Logger
}

func NewDispatcher(channels map[domain.ChannelPolicy]Channel, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{channels: maps.Clone(channels), logger: logging.OrDefault(logger)}
}

func (d *Dispatcher) Dispatch(ctx context.Context, n *domain.Notification) {
	policy, ok := n.Channel()
	if !ok {
		metrics.Delivery("none", metrics.OutcomeDropped)
		d.logger.Warn("notification type has no channel policy, dropped", "notification_id", n.ID, "type", n.Type)
		return
	}
	ch, ok := d.channels[policy]
	if !ok {
		metrics.Delivery("none", metrics.OutcomeDropped)
		d.logger.Warn("no channel for policy, dropped", "notification_id", n.ID, "policy", policy)
		return
	}

	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("channel panicked", "notification_id", n.ID, "policy", policy, "panic", fmt.Sprint(p))
		}
	}()
	ch.Send(ctx, n)
}
