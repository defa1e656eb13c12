package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ErrStreamUnsupported is returned when the writer cannot flush incrementally.
var ErrStreamUnsupported = errors.New("response writer does not support streaming")

// EventStream writes server-sent events. It is safe for concurrent use.
type EventStream struct {
	mu sync.Mutex
	w  http.ResponseWriter
	rc *http.ResponseController
}

// NewEventStream writes the SSE headers and clears the write deadline
// so long pipeline runs are not cut off by the server write timeout.
func NewEventStream(w http.ResponseWriter) (*EventStream, error) {
	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := rc.Flush(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStreamUnsupported, err)
	}
	rc.SetWriteDeadline(time.Time{})

	return &EventStream{w: w, rc: rc}, nil
}

// Send writes one event. An empty event name emits a data-only frame.
func (s *EventStream) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event, err)
	}
	return s.write(event, string(payload))
}

// SendRaw writes a data-only frame with a literal payload, such as "[DONE]".
func (s *EventStream) SendRaw(data string) error {
	return s.write("", data)
}

func (s *EventStream) write(event, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	return s.rc.Flush()
}
