package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// ErrStreamingUnsupported is returned when the response writer cannot
// flush, which server-sent events require.
var ErrStreamingUnsupported = errors.New("streaming unsupported by connection")

// Writer serializes events onto an SSE response. Sends and heartbeats may
// come from different goroutines, so writes are mutex-guarded. The first
// write error is sticky: once the client is gone every later write fails
// fast without touching the connection.
type Writer struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	err     error
}

// NewWriter wraps a response writer for SSE, writes the stream headers,
// and commits the 200 status.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	// Disables proxy buffering (nginx) so events reach the client as sent.
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Writer{w: w, flusher: flusher}, nil
}

// Send writes one event as a data: line and flushes.
func (sw *Writer) Send(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.err != nil {
		return sw.err
	}
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", payload); err != nil {
		sw.err = err
		return err
	}
	sw.flusher.Flush()
	return nil
}

// Heartbeat writes a bare comment line. It is structurally distinct from
// data: events and must be ignored by consumers parsing data: lines only.
func (sw *Writer) Heartbeat() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.err != nil {
		return sw.err
	}
	if _, err := fmt.Fprint(sw.w, ":\n\n"); err != nil {
		sw.err = err
		return err
	}
	sw.flusher.Flush()
	return nil
}
