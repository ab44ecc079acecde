package live

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var ErrFlushUnsupported = errors.New("response writer does not support flushing")

// SSEWriter frames events as text/event-stream.
type SSEWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// NewSSEWriter sets the event-stream headers on w.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrFlushUnsupported
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &SSEWriter{w: w, flusher: flusher}, nil
}

func (s *SSEWriter) WriteEvent(ev Event) error {
	var b strings.Builder
	if ev.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", ev.ID)
	}
	fmt.Fprintf(&b, "event: %s\n", ev.Name)
	for _, line := range strings.Split(string(ev.Data), "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	return s.write(b.String())
}

func (s *SSEWriter) Heartbeat() error {
	return s.write(": ping\n\n")
}

func (s *SSEWriter) write(frame string) error {
	if _, err := io.WriteString(s.w, frame); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// ServeSSE subscribes subscriberID and streams until the client goes away,
// the stream lifetime ends or a write fails.
func ServeSSE(reg *Registry, w http.ResponseWriter, r *http.Request, subscriberID int64) {
	writer, err := NewSSEWriter(w)
	if err != nil {
		reg.logger.Error("sse stream unavailable", "subscriber_id", subscriberID, "error", err)
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)

	stream := reg.Subscribe(subscriberID, r.Header.Get("Last-Event-ID"))
	_ = stream.Run(r.Context(), writer, reg.Heartbeat())
}
