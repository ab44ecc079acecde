package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/logging"
)

const (
	DefaultFanoutChannel = "wedding:notification:live"

	resubscribeMinDelay = 100 * time.Millisecond
	resubscribeMaxDelay = 5 * time.Second
)

var (
	// ErrNoSubscribers means a publication reached no instance.
	ErrNoSubscribers = errors.New("live fanout has no subscribers")

	errSubscriptionClosed = errors.New("live fanout subscription closed")
)

// envelope is the message shape carried on the Redis channel.
type envelope struct {
	RecipientID int64     `json:"recipientId"`
	Event       Event     `json:"event"`
	SentAt      time.Time `json:"sentAt"`
}

// RedisFanout spreads live events over Redis Pub/Sub so the instance holding
// a subscriber's stream delivers it. Every instance, including the sender,
// receives its own publications.
type RedisFanout struct {
	client   *redis.Client
	channel  string
	registry *Registry
	logger   *slog.Logger

	ready     chan struct{}
	readyOnce sync.Once
}

func NewRedisFanout(client *redis.Client, channel string, registry *Registry, logger *slog.Logger) *RedisFanout {
	if channel == "" {
		channel = DefaultFanoutChannel
	}
	return &RedisFanout{
		client:   client,
		channel:  channel,
		registry: registry,
		logger:   logging.OrDefault(logger),
		ready:    make(chan struct{}),
	}
}

// Publish sends ev to every subscribed instance. It returns ErrNoSubscribers
// when no instance, this one included, is listening, so the caller can
// deliver locally.
func (f *RedisFanout) Publish(ctx context.Context, recipientID int64, ev Event) error {
	body, err := json.Marshal(envelope{RecipientID: recipientID, Event: ev, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	receivers, err := f.client.Publish(ctx, f.channel, body).Result()
	if err != nil {
		return err
	}
	if receivers == 0 {
		return ErrNoSubscribers
	}
	return nil
}

// Ready is closed once the first subscription is established.
func (f *RedisFanout) Ready() <-chan struct{} { return f.ready }

// Run forwards channel messages into the local registry until ctx ends.
// A failed subscription is retried with backoff.
func (f *RedisFanout) Run(ctx context.Context) {
	delay := resubscribeMinDelay
	for {
		subscribed, err := f.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		if subscribed {
			delay = resubscribeMinDelay
		}
		f.logger.Warn("live fanout resubscribing", "channel", f.channel, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = min(delay*2, resubscribeMaxDelay)
	}
}

// listen holds one subscription until ctx ends or the message channel closes.
func (f *RedisFanout) listen(ctx context.Context) (bool, error) {
	pubsub := f.client.Subscribe(ctx, f.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return false, err
	}
	f.readyOnce.Do(func() { close(f.ready) })
	f.logger.Info("live fanout subscribed", "channel", f.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, nil
		case msg, ok := <-ch:
			if !ok {
				return true, errSubscriptionClosed
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				f.logger.Warn("live fanout decode failed", "channel", f.channel, "error", err)
				continue
			}
			if env.RecipientID <= 0 || env.Event.Name == "" {
				continue
			}
			f.registry.Deliver(env.RecipientID, env.Event)
		}
	}
}
