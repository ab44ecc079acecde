package live

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle position of a stream handle.
// A subscriber without a registered stream is ABSENT.
type State int32

const (
	StateOpen State = iota
	StateCompleted
	StateTimedOut
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateCompleted:
		return "COMPLETED"
	case StateTimedOut:
		return "TIMED_OUT"
	case StateErrored:
		return "ERRORED"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrStreamClosed = errors.New("live stream closed")
	ErrSlowConsumer = errors.New("live stream send buffer full")
)

// Writer frames events onto a concrete transport.
type Writer interface {
	WriteEvent(Event) error
	Heartbeat() error
}

// Stream is one subscriber connection. Events are queued with Enqueue and
// written by Run on the goroutine that owns the transport.
type Stream struct {
	id           string
	subscriberID int64
	lastEventID  string
	openedAt     time.Time

	send chan Event
	done chan struct{}

	once  sync.Once
	state atomic.Int32
	err   error
	timer *time.Timer

	onComplete []func(*Stream)
}

func newStream(subscriberID int64, lastEventID string, lifetime time.Duration, buffer int, onComplete ...func(*Stream)) *Stream {
	if buffer <= 0 {
		buffer = 1
	}
	s := &Stream{
		id:           uuid.NewString(),
		subscriberID: subscriberID,
		lastEventID:  lastEventID,
		openedAt:     time.Now(),
		send:         make(chan Event, buffer),
		done:         make(chan struct{}),
		onComplete:   onComplete,
	}
	if lifetime > 0 {
		s.timer = time.AfterFunc(lifetime, func() { s.complete(StateTimedOut, nil) })
	}
	return s
}

func (s *Stream) ID() string            { return s.id }
func (s *Stream) SubscriberID() int64   { return s.subscriberID }
func (s *Stream) LastEventID() string   { return s.lastEventID }
func (s *Stream) OpenedAt() time.Time   { return s.openedAt }
func (s *Stream) State() State          { return State(s.state.Load()) }
func (s *Stream) Done() <-chan struct{} { return s.done }

// Err is the cause of an ERRORED completion. Valid after Done is closed.
func (s *Stream) Err() error {
	<-s.done
	return s.err
}

// Enqueue queues ev without blocking. A full buffer errors the stream.
func (s *Stream) Enqueue(ev Event) error {
	select {
	case <-s.done:
		return ErrStreamClosed
	default:
	}

	select {
	case s.send <- ev:
		return nil
	default:
		s.complete(StateErrored, ErrSlowConsumer)
		return ErrSlowConsumer
	}
}

// Close completes the stream normally.
func (s *Stream) Close() {
	s.complete(StateCompleted, nil)
}

// Fail completes the stream with an error.
func (s *Stream) Fail(err error) {
	s.complete(StateErrored, err)
}

// complete runs the hooks before Done is closed.
func (s *Stream) complete(state State, err error) {
	s.once.Do(func() {
		if s.timer != nil {
			s.timer.Stop()
		}
		s.err = err
		s.state.Store(int32(state))
		for _, hook := range s.onComplete {
			hook(s)
		}
		close(s.done)
	})
}

// Run writes queued events to w until the stream reaches a terminal state.
// Cancelling ctx completes the stream normally.
func (s *Stream) Run(ctx context.Context, w Writer, heartbeat time.Duration) error {
	var tick <-chan time.Time
	if heartbeat > 0 {
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-s.done:
			return s.err
		case <-ctx.Done():
			s.Close()
			return nil
		case ev := <-s.send:
			if err := w.WriteEvent(ev); err != nil {
				s.Fail(err)
				return err
			}
		case <-tick:
			if err := w.Heartbeat(); err != nil {
				s.Fail(err)
				return err
			}
		}
	}
}
