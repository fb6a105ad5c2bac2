// Package stream implements the server-sent-event session protocol used by
// the analysis orchestrator: a typed event envelope on data: lines, bare
// comment heartbeats, and abort-aware sequential stage execution.
package stream

import (
	"encoding/json"
	"fmt"
)

// Event types carried in the envelope. Exactly one complete or error event
// ends a stream; progress events may precede it.
const (
	EventProgress = "progress"
	EventComplete = "complete"
	EventError    = "error"
)

// Event is the envelope serialized onto data: lines. Heartbeats are never
// Events; they go out as bare comment lines so naive data:-only consumers
// cannot mistake them for analysis content.
type Event struct {
	Type     string          `json:"type"`
	Stage    string          `json:"stage,omitempty"`
	Message  string          `json:"message,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	ResultID string          `json:"resultId,omitempty"`
}

// Progress builds a progress event with a human-readable status.
func Progress(stage, message string) Event {
	return Event{Type: EventProgress, Stage: stage, Message: message}
}

// Complete builds the terminal success event.
func Complete(result json.RawMessage, resultID string) Event {
	return Event{Type: EventComplete, Result: result, ResultID: resultID}
}

// Error builds the terminal failure event.
func Error(message string) Event {
	return Event{Type: EventError, Message: message}
}

// StageError attributes a failure to the stage that raised it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
