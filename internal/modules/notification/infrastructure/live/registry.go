package live

import (
	"log/slog"
	"sync"
	"time"

	"github.com/weddly/wedding-planner/internal/modules/notification/infrastructure/metrics"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/logging"
)

type Options struct {
	Lifetime  time.Duration
	Buffer    int
	Heartbeat time.Duration
}

// Registry holds at most one open stream per subscriber on this instance.
type Registry struct {
	streams sync.Map // int64 -> *Stream
	opts    Options
	logger  *slog.Logger
}

func NewRegistry(opts Options, logger *slog.Logger) *Registry {
	if opts.Lifetime <= 0 {
		opts.Lifetime = time.Hour
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 32
	}
	return &Registry{opts: opts, logger: logging.OrDefault(logger)}
}

func (r *Registry) Heartbeat() time.Duration { return r.opts.Heartbeat }

// Subscribe opens a stream for subscriberID and registers it, replacing any
// previous stream for the same subscriber. The replaced stream is not closed;
// it ends on disconnect or when its lifetime expires. lastEventID is recorded
// but nothing is replayed.
func (r *Registry) Subscribe(subscriberID int64, lastEventID string) *Stream {
	metrics.LiveConnections.Inc()
	s := newStream(subscriberID, lastEventID, r.opts.Lifetime, r.opts.Buffer, r.release)

	if prev, loaded := r.streams.Swap(subscriberID, s); loaded {
		old := prev.(*Stream)
		r.logger.Warn("live stream replaced without close",
			"subscriber_id", subscriberID,
			"previous_stream_id", old.ID(),
			"stream_id", s.ID(),
		)
	}
	select {
	case <-s.Done():
		r.streams.CompareAndDelete(subscriberID, s)
	default:
	}
	r.logger.Info("live stream opened", "subscriber_id", subscriberID, "stream_id", s.ID(), "last_event_id", lastEventID)

	// The buffer is empty, so the acknowledgement always fits.
	_ = s.Enqueue(connectEvent(s))
	return s
}

// release runs once per stream when it reaches a terminal state.
func (r *Registry) release(s *Stream) {
	metrics.LiveConnections.Dec()
	removed := r.streams.CompareAndDelete(s.SubscriberID(), s)

	attrs := []any{
		"subscriber_id", s.SubscriberID(),
		"stream_id", s.ID(),
		"state", s.State().String(),
		"registry_entry_removed", removed,
		"open_for", time.Since(s.OpenedAt()).String(),
	}
	if s.err != nil {
		r.logger.Warn("live stream ended", append(attrs, "error", s.err)...)
		return
	}
	r.logger.Info("live stream ended", attrs...)
}

// Lookup returns the registered stream of a subscriber.
func (r *Registry) Lookup(subscriberID int64) (*Stream, bool) {
	v, ok := r.streams.Load(subscriberID)
	if !ok {
		return nil, false
	}
	return v.(*Stream), true
}

// Deliver queues ev on the subscriber's stream. It reports false when the
// subscriber is not connected here or the stream could not take the event.
func (r *Registry) Deliver(subscriberID int64, ev Event) bool {
	s, ok := r.Lookup(subscriberID)
	if !ok {
		return false
	}
	if err := s.Enqueue(ev); err != nil {
		r.logger.Warn("live send failed",
			"subscriber_id", subscriberID,
			"stream_id", s.ID(),
			"event_id", ev.ID,
			"error", err,
		)
		return false
	}
	return true
}

// Len counts registered subscribers.
func (r *Registry) Len() int {
	n := 0
	r.streams.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close completes every registered stream.
func (r *Registry) Close() {
	r.streams.Range(func(_, v any) bool {
		v.(*Stream).Close()
		return true
	})
}
