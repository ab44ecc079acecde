package push

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/weddly/wedding-planner/internal/modules/notification/domain"
	"github.com/weddly/wedding-planner/internal/modules/notification/infrastructure/metrics"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/logging"
)

// DeviceDirectory is the part of the recipient directory push needs.
type DeviceDirectory interface {
	ActiveDeviceToken(ctx context.Context, memberID int64) (string, error)
	DeactivateDeviceToken(ctx context.Context, token string) error
}

// Channel delivers notifications to the recipient's active device.
// Every failure stops here: it is logged and counted, never returned.
type Channel struct {
	gateway Gateway
	devices DeviceDirectory
	timeout time.Duration
	logger  *slog.Logger
}

func NewChannel(gateway Gateway, devices DeviceDirectory, timeout time.Duration, logger *slog.Logger) *Channel {
	return &Channel{gateway: gateway, devices: devices, timeout: timeout, logger: logging.OrDefault(logger)}
}

func (c *Channel) Send(ctx context.Context, n *domain.Notification) {
	log := c.logger.With("notification_id", n.ID, "recipient_id", n.RecipientID, "channel", metrics.ChannelPush)

	token, err := c.devices.ActiveDeviceToken(ctx, n.RecipientID)
	if errors.Is(err, domain.ErrDeviceNotFound) {
		metrics.Delivery(metrics.ChannelPush, metrics.OutcomeSkipped)
		log.Info("push skipped, no active device")
		return
	}
	if err != nil {
		metrics.Delivery(metrics.ChannelPush, metrics.OutcomeFailed)
		log.Error("push device lookup failed", "error", err)
		return
	}

	sendCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messageID, err := c.gateway.Send(sendCtx, BuildMessage(token, n))
	if err != nil {
		metrics.Delivery(metrics.ChannelPush, metrics.OutcomeFailed)
		log.Error("push send failed", "error", err)
		if messaging.IsUnregistered(err) {
			if derr := c.devices.DeactivateDeviceToken(ctx, token); derr != nil {
				log.Warn("push token deactivation failed", "error", derr)
			} else {
				log.Info("push token deactivated")
			}
		}
		return
	}
	metrics.Delivery(metrics.ChannelPush, metrics.OutcomeDelivered)
	log.Debug("push sent", "message_id", messageID)
}

// BuildMessage carries the deep-link target in the data payload.
func BuildMessage(token string, n *domain.Notification) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: map[string]string{
			"targetDomainType": string(n.TargetDomainType),
			"targetDomainId":   strconv.FormatInt(n.TargetDomainID, 10),
			"notificationId":   strconv.FormatInt(n.ID, 10),
			"type":             string(n.Type),
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{Aps: &messaging.Aps{Sound: "default"}},
		},
	}
}
