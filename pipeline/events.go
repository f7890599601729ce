package pipeline

import (
	"sync"
	"time"

	ccdavalidator "github.com/gofhir/ccdavalidator"
)

// EventKind identifies the type of pipeline event.
type EventKind string

const (
	// EventValidationStarted is emitted once the document has been read.
	EventValidationStarted EventKind = "validation.started"

	// EventStageStarted is emitted before a stage's engine is called.
	EventStageStarted EventKind = "stage.started"

	// EventStageSkipped is emitted when a gate or dependency prevents a stage from running.
	EventStageSkipped EventKind = "stage.skipped"

	// EventStageFinished is emitted when a stage returns findings.
	EventStageFinished EventKind = "stage.finished"

	// EventStageFailed is emitted when a stage returns an error or panics.
	EventStageFailed EventKind = "stage.failed"

	// EventValidationFinished is emitted when the result envelope is complete.
	EventValidationFinished EventKind = "validation.finished"
)

// String returns the string representation of the EventKind.
func (k EventKind) String() string {
	return string(k)
}

// Event is a record of what happened during one validation request.
// Events are observational only and never affect control flow.
type Event struct {
	// Kind identifies the event type.
	Kind EventKind

	// RequestID is the unique identifier for the request.
	RequestID string

	// Objective is the objective of the request.
	Objective ccdavalidator.Objective

	// Stage is the stage that produced this event (empty for request-level events).
	Stage ccdavalidator.Stage

	// Time is when the event occurred.
	Time time.Time

	// Elapsed is the duration of the stage or request.
	Elapsed time.Duration

	// Findings is the number of findings returned by the stage, or in the
	// envelope for EventValidationFinished.
	Findings int

	// Note explains why a stage was skipped.
	Note SkipNote

	// Err is the failure for EventStageFailed and, when the request failed,
	// EventValidationFinished.
	Err error

	// ErrorKind classifies Err.
	ErrorKind ccdavalidator.ErrorKind
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(kind EventKind, pctx *Context) Event {
	e := Event{Kind: kind, Time: time.Now()}
	if pctx != nil {
		e.RequestID = pctx.RequestID
		e.Objective = pctx.Objective
	}
	return e
}

// WithStage sets the stage on the event.
func (e Event) WithStage(stage ccdavalidator.Stage) Event {
	e.Stage = stage
	return e
}

// WithElapsed sets the elapsed duration on the event.
func (e Event) WithElapsed(elapsed time.Duration) Event {
	e.Elapsed = elapsed
	return e
}

// WithError sets the failure and its classification on the event.
func (e Event) WithError(err error) Event {
	e.Err = err
	e.ErrorKind = ccdavalidator.Classify(err)
	return e
}

// EventHandler is a function type for handling events.
// Implementations can log, trace or count events as needed, and must be safe
// for concurrent use when the pipeline is shared.
type EventHandler func(Event)

// MultiEventHandler combines multiple handlers into one.
func MultiEventHandler(handlers ...EventHandler) EventHandler {
	return func(e Event) {
		for _, h := range handlers {
			if h != nil {
				h(e)
			}
		}
	}
}

// EventRecorder collects events in memory. It is safe for concurrent use.
type EventRecorder struct {
	mu     sync.Mutex
	events []Event
}

// Handle records e.
func (r *EventRecorder) Handle(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *EventRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kinds of the recorded events, in order.
func (r *EventRecorder) Kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}
