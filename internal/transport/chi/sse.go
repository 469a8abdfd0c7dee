package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var errStreamingUnsupported = errors.New("response writer does not support flushing")

// sseWriter frames events as "data: <json>\n\n" and flushes each one.
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

// newSSEWriter writes the event-stream headers. Write deadlines are lifted for the
// lifetime of the stream.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	f.Flush()

	return &sseWriter{w: w, f: f}, nil
}

// WriteEvent implements chat.EventWriter.
func (s *sseWriter) WriteEvent(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return s.write("data: " + string(b) + "\n\n")
}

// WriteDone implements chat.EventWriter.
func (s *sseWriter) WriteDone() error {
	return s.write("data: [DONE]\n\n")
}

func (s *sseWriter) write(frame string) error {
	if _, err := s.w.Write([]byte(frame)); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	s.f.Flush()
	return nil
}
