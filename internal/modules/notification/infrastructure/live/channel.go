package live

import (
	"context"
	"log/slog"

	"github.com/weddly/wedding-planner/internal/modules/notification/domain"
	"github.com/weddly/wedding-planner/internal/modules/notification/infrastructure/metrics"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/logging"
)

// Publisher hands an event to every instance's registry.
type Publisher interface {
	Publish(ctx context.Context, recipientID int64, ev Event) error
}

// Channel delivers in-app notifications to connected subscribers.
// Nobody connected means nothing happens; nothing is queued.
type Channel struct {
	registry  *Registry
	publisher Publisher
	logger    *slog.Logger
}

// NewChannel builds a live channel. A nil publisher keeps delivery local.
func NewChannel(registry *Registry, publisher Publisher, logger *slog.Logger) *Channel {
	return &Channel{registry: registry, publisher: publisher, logger: logging.OrDefault(logger)}
}

func (c *Channel) Send(ctx context.Context, n *domain.Notification) {
	ev, err := NotificationEvent(n)
	if err != nil {
		metrics.Delivery(metrics.ChannelLive, metrics.OutcomeFailed)
		c.logger.Error("live encode failed", "notification_id", n.ID, "recipient_id", n.RecipientID, "channel", metrics.ChannelLive, "error", err)
		return
	}

	if c.publisher != nil {
		err := c.publisher.Publish(ctx, n.RecipientID, ev)
		if err == nil {
			metrics.Delivery(metrics.ChannelLive, metrics.OutcomeDelivered)
			return
		}
		c.logger.Warn("live fanout publish failed, delivering locally",
			"notification_id", n.ID, "recipient_id", n.RecipientID, "error", err)
	}

	if _, ok := c.registry.Lookup(n.RecipientID); !ok {
		metrics.Delivery(metrics.ChannelLive, metrics.OutcomeSkipped)
		c.logger.Debug("live recipient not connected", "notification_id", n.ID, "recipient_id", n.RecipientID)
		return
	}
	if !c.registry.Deliver(n.RecipientID, ev) {
		metrics.Delivery(metrics.ChannelLive, metrics.OutcomeFailed)
		return
	}
	metrics.Delivery(metrics.ChannelLive, metrics.OutcomeDelivered)
}
