package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// DefaultHeartbeatInterval keeps intermediary proxies from closing an idle
// stream between AI stages.
const DefaultHeartbeatInterval = 15 * time.Second

// Stage is one sequential step of an analysis run. Run receives the
// session context and must return promptly once it is cancelled.
type Stage struct {
	Name   string
	Status string
	Run    func(ctx context.Context) (json.RawMessage, error)
}

// Session owns one streaming response: the SSE writer, the heartbeat
// goroutine, and a context cancelled on client disconnect or write
// failure. Created per request, torn down unconditionally when the
// response finishes.
type Session struct {
	writer    *Writer
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Open starts a session over an already-opened writer and begins the
// heartbeat. The caller must Close the session before returning from the
// handler.
func Open(ctx context.Context, writer *Writer, interval time.Duration) *Session {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		writer: writer,
		ctx:    sctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.wg.Add(1)
	go s.runHeartbeat(interval)
	return s
}

// Context is cancelled when the client disconnects, a write fails, or the
// session is closed. Stages must observe it at every suspension point.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Send emits one event. After cancellation it refuses to write, so a
// disconnected client observes zero further events.
func (s *Session) Send(ev Event) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	if err := s.writer.Send(ev); err != nil {
		// A broken pipe is a disconnect: stop the rest of the session.
		s.cancel()
		return err
	}
	return nil
}

// RunStages executes stages sequentially under ctx, emitting a progress
// event before each one. The last stage's output is the final result.
// Failures are wrapped in a StageError; ctx cancellation surfaces as the
// context error.
//
// ctx is deliberately separate from the session context: a caller that
// wants in-flight work to finish and persist after a client disconnect
// passes a detached context here, and progress events are simply
// suppressed once the stream is gone.
func (s *Session) RunStages(ctx context.Context, stages []Stage) (json.RawMessage, error) {
	var result json.RawMessage
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stage.Status != "" {
			// Best effort: a disconnected client refuses the write, the
			// stage still runs.
			s.Send(Progress(stage.Name, stage.Status))
		}
		out, err := stage.Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &StageError{Stage: stage.Name, Err: err}
		}
		result = out
	}
	return result, nil
}

// Close tears the session down: heartbeat stopped, context cancelled.
// Idempotent and safe to call from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.cancel()
	})
	s.wg.Wait()
}

// runHeartbeat emits comment keepalives until the session ends. A write
// failure is treated identically to client disconnect.
func (s *Session) runHeartbeat(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.writer.Heartbeat(); err != nil {
				s.cancel()
				return
			}
		}
	}
}
