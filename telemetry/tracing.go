// Package telemetry provides OpenTelemetry integration for validation
// pipeline events.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gofhir/ccdavalidator/pipeline"
)

// Attribute keys set on spans and metric points.
const (
	AttrRequestID = attribute.Key("ccda.request_id")
	AttrObjective = attribute.Key("ccda.objective")
	AttrStage     = attribute.Key("ccda.stage")
	AttrFindings  = attribute.Key("ccda.findings")
	AttrErrorKind = attribute.Key("ccda.error_kind")
	AttrSkipNote  = attribute.Key("ccda.skip_reason")
)

// TracingObserver translates pipeline events into spans: one root span per
// request and one child span per stage that runs. Skipped stages are
// recorded as span events on the root span.
type TracingObserver struct {
	tracer trace.Tracer

	mu         sync.RWMutex
	rootSpans  map[string]trace.Span      // requestID -> span
	rootCtxs   map[string]context.Context // requestID -> context
	stageSpans map[string]trace.Span      // requestID:stage -> span
}

// NewTracingObserver creates a TracingObserver using tracer.
func NewTracingObserver(tracer trace.Tracer) *TracingObserver {
	return &TracingObserver{
		tracer:     tracer,
		rootSpans:  make(map[string]trace.Span),
		rootCtxs:   make(map[string]context.Context),
		stageSpans: make(map[string]trace.Span),
	}
}

// Handle processes a pipeline event. It has the pipeline.EventHandler
// signature.
func (o *TracingObserver) Handle(e pipeline.Event) {
	switch e.Kind {
	case pipeline.EventValidationStarted:
		o.handleValidationStarted(e)
	case pipeline.EventStageStarted:
		o.handleStageStarted(e)
	case pipeline.EventStageFinished:
		o.handleStageFinished(e)
	case pipeline.EventStageFailed:
		o.handleStageFailed(e)
	case pipeline.EventStageSkipped:
		o.handleStageSkipped(e)
	case pipeline.EventValidationFinished:
		o.handleValidationFinished(e)
	}
}

func stageKey(e pipeline.Event) string {
	return e.RequestID + ":" + string(e.Stage)
}

func (o *TracingObserver) startRoot(e pipeline.Event) (context.Context, trace.Span) {
	start := e.Time
	if e.Kind == pipeline.EventValidationFinished {
		start = e.Time.Add(-e.Elapsed)
	}
	return o.tracer.Start(context.Background(), "ccda.validate",
		trace.WithAttributes(
			AttrRequestID.String(e.RequestID),
			AttrObjective.String(string(e.Objective)),
		),
		trace.WithTimestamp(start),
	)
}

// handleValidationStarted creates the root span for the request.
func (o *TracingObserver) handleValidationStarted(e pipeline.Event) {
	ctx, span := o.startRoot(e)

	o.mu.Lock()
	o.rootSpans[e.RequestID] = span
	o.rootCtxs[e.RequestID] = ctx
	o.mu.Unlock()
}

// handleStageStarted creates a child span under the root span.
func (o *TracingObserver) handleStageStarted(e pipeline.Event) {
	o.mu.RLock()
	parentCtx, ok := o.rootCtxs[e.RequestID]
	o.mu.RUnlock()

	if !ok {
		parentCtx = context.Background()
	}

	_, span := o.tracer.Start(parentCtx, "ccda.stage."+string(e.Stage),
		trace.WithAttributes(
			AttrRequestID.String(e.RequestID),
			AttrStage.String(string(e.Stage)),
		),
		trace.WithTimestamp(e.Time),
	)

	o.mu.Lock()
	o.stageSpans[stageKey(e)] = span
	o.mu.Unlock()
}

func (o *TracingObserver) takeStageSpan(e pipeline.Event) (trace.Span, bool) {
	key := stageKey(e)
	o.mu.Lock()
	defer o.mu.Unlock()
	span, ok := o.stageSpans[key]
	if ok {
		delete(o.stageSpans, key)
	}
	return span, ok
}

// handleStageFinished ends the stage span with success status.
func (o *TracingObserver) handleStageFinished(e pipeline.Event) {
	span, ok := o.takeStageSpan(e)
	if !ok {
		return
	}
	span.SetAttributes(AttrFindings.Int(e.Findings))
	span.SetStatus(codes.Ok, "")
	span.End(trace.WithTimestamp(e.Time))
}

// handleStageFailed ends the stage span with error status.
func (o *TracingObserver) handleStageFailed(e pipeline.Event) {
	span, ok := o.takeStageSpan(e)
	if !ok {
		return
	}
	recordError(span, e)
	span.End(trace.WithTimestamp(e.Time))
}

// handleStageSkipped adds a span event to the root span.
func (o *TracingObserver) handleStageSkipped(e pipeline.Event) {
	o.mu.RLock()
	span, ok := o.rootSpans[e.RequestID]
	o.mu.RUnlock()

	if !ok {
		return
	}
	span.AddEvent("stage.skipped",
		trace.WithTimestamp(e.Time),
		trace.WithAttributes(
			AttrStage.String(string(e.Stage)),
			AttrSkipNote.String(e.Note.String()),
		),
	)
}

// handleValidationFinished ends the root span. A request that failed before
// the pipeline started gets a root span covering its elapsed time.
func (o *TracingObserver) handleValidationFinished(e pipeline.Event) {
	o.mu.Lock()
	span, ok := o.rootSpans[e.RequestID]
	if ok {
		delete(o.rootSpans, e.RequestID)
		delete(o.rootCtxs, e.RequestID)
	}
	o.mu.Unlock()

	if !ok {
		_, span = o.startRoot(e)
	}

	span.SetAttributes(AttrFindings.Int(e.Findings))
	if e.Err != nil {
		recordError(span, e)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(e.Time))
}

func recordError(span trace.Span, e pipeline.Event) {
	span.SetAttributes(AttrErrorKind.String(e.ErrorKind.String()))
	span.SetStatus(codes.Error, e.Err.Error())
	span.RecordError(e.Err, trace.WithTimestamp(e.Time))
}

// ActiveSpanContext returns the SpanContext of the running stage span, or an
// empty SpanContext.
func (o *TracingObserver) ActiveSpanContext(requestID string, stage string) trace.SpanContext {
	o.mu.RLock()
	span, ok := o.stageSpans[requestID+":"+stage]
	o.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}

// ActiveRequestSpanContext returns the SpanContext of the request's root
// span, or an empty SpanContext.
func (o *TracingObserver) ActiveRequestSpanContext(requestID string) trace.SpanContext {
	o.mu.RLock()
	span, ok := o.rootSpans[requestID]
	o.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}
