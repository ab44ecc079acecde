package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu         sync.Mutex
	events     []Event
	heartbeats int
	failWith   error
	written    chan Event
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{written: make(chan Event, 16)}
}

func (w *recordingWriter) WriteEvent(ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failWith != nil {
		return w.failWith
	}
	w.events = append(w.events, ev)
	w.written <- ev
	return nil
}

func (w *recordingWriter) Heartbeat() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failWith != nil {
		return w.failWith
	}
	w.heartbeats++
	return nil
}

func (w *recordingWriter) next(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-w.written:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("expected an event to be written")
		return Event{}
	}
}

func waitDone(t *testing.T, s *Stream) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not complete")
	}
}

func TestStream_RunWritesInOrder(t *testing.T) {
	s := newStream(7, "", time.Hour, 4)
	w := newRecordingWriter()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx, w, 0) }()

	require.NoError(t, s.Enqueue(Event{ID: "1", Name: EventNotification}))
	require.NoError(t, s.Enqueue(Event{ID: "2", Name: EventNotification}))
	assert.Equal(t, "1", w.next(t).ID)
	assert.Equal(t, "2", w.next(t).ID)

	cancel()
	require.NoError(t, <-errCh)
	assert.Equal(t, StateCompleted, s.State())
	assert.NoError(t, s.Err())
}

func TestStream_LifetimeTimesOut(t *testing.T) {
	var hooked State
	s := newStream(7, "", 20*time.Millisecond, 1, func(s *Stream) { hooked = s.State() })

	waitDone(t, s)
	assert.Equal(t, StateTimedOut, s.State())
	assert.Equal(t, StateTimedOut, hooked)
	assert.ErrorIs(t, s.Enqueue(Event{Name: EventNotification}), ErrStreamClosed)
}

func TestStream_WriteFailureErrors(t *testing.T) {
	s := newStream(7, "", time.Hour, 1)
	w := newRecordingWriter()
	w.failWith = errors.New("broken pipe")

	require.NoError(t, s.Enqueue(Event{Name: EventNotification}))
	err := s.Run(context.Background(), w, 0)

	require.EqualError(t, err, "broken pipe")
	assert.Equal(t, StateErrored, s.State())
	assert.EqualError(t, s.Err(), "broken pipe")
}

func TestStream_HeartbeatFailureErrors(t *testing.T) {
	s := newStream(7, "", time.Hour, 1)
	w := newRecordingWriter()
	w.failWith = errors.New("reset by peer")

	err := s.Run(context.Background(), w, 5*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, StateErrored, s.State())
}

func TestStream_FullBufferErrors(t *testing.T) {
	s := newStream(7, "", time.Hour, 1)

	require.NoError(t, s.Enqueue(Event{Name: EventNotification}))
	require.ErrorIs(t, s.Enqueue(Event{Name: EventNotification}), ErrSlowConsumer)

	waitDone(t, s)
	assert.Equal(t, StateErrored, s.State())
	assert.ErrorIs(t, s.Err(), ErrSlowConsumer)
}

func TestStream_CompletionHooksRunOnce(t *testing.T) {
	calls := 0
	s := newStream(7, "", time.Hour, 1, func(*Stream) { calls++ })

	s.Close()
	s.Fail(errors.New("late"))
	s.Close()

	assert.Equal(t, 1, calls)
	assert.Equal(t, StateCompleted, s.State())
	assert.NoError(t, s.Err())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "OPEN", StateOpen.String())
	assert.Equal(t, "COMPLETED", StateCompleted.String())
	assert.Equal(t, "TIMED_OUT", StateTimedOut.String())
	assert.Equal(t, "ERRORED", StateErrored.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
}
