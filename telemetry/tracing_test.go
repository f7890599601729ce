package telemetry_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	ccdavalidator "github.com/gofhir/ccdavalidator"
	"github.com/gofhir/ccdavalidator/engine"
	"github.com/gofhir/ccdavalidator/pipeline"
	"github.com/gofhir/ccdavalidator/pkg/logger"
	"github.com/gofhir/ccdavalidator/service"
	"github.com/gofhir/ccdavalidator/telemetry"
)

// newTestTracer returns a tracer backed by an in-memory span exporter.
func newTestTracer() (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	return exporter, tp
}

func findSpan(spans tracetest.SpanStubs, name string) *tracetest.SpanStub {
	for i := range spans {
		if spans[i].Name == name {
			return &spans[i]
		}
	}
	return nil
}

func attrValue(s *tracetest.SpanStub, key string) (string, bool) {
	for _, attr := range s.Attributes {
		if string(attr.Key) == key {
			return attr.Value.Emit(), true
		}
	}
	return "", false
}

func newValidator(engines service.Engines) *engine.Validator {
	v := engine.NewWithEngines(engines)
	v.SetLogger(logger.New(io.Discard, logger.LevelNone))
	return v
}

func document(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func TestTracingObserver_RequestAndStageSpans(t *testing.T) {
	exporter, tp := newTestTracer()
	obs := telemetry.NewTracingObserver(tp.Tracer("test"))

	v := newValidator(service.Engines{
		Structural: service.StaticStructural(ccdavalidator.DocumentFacts{},
			ccdavalidator.Finding{Type: ccdavalidator.FindingConformanceWarning}),
		Vocabulary: service.StaticVocabulary(ccdavalidator.VocabularyCoverage{}),
		Content:    service.StaticContent(),
	})
	v.SetEventHandler(obs.Handle)

	result := v.ValidateDocument(context.Background(), ccdavalidator.ObjectiveB4CCDSAmb, "", "doc.xml", document("<ClinicalDocument/>"))

	spans := exporter.GetSpans()
	if len(spans) != 3 {
		t.Fatalf("len(spans) = %d; want 3 (root, structural, vocabulary)", len(spans))
	}

	root := findSpan(spans, "ccda.validate")
	if root == nil {
		t.Fatal("root span not found")
	}
	if root.Status.Code != otelcodes.Ok {
		t.Errorf("root status = %v; want Ok", root.Status.Code)
	}
	if id, _ := attrValue(root, "ccda.request_id"); id != result.Metadata.RequestID {
		t.Errorf("ccda.request_id = %q; want %q", id, result.Metadata.RequestID)
	}
	if obj, _ := attrValue(root, "ccda.objective"); obj != "170.315_b4_CCDS_Amb" {
		t.Errorf("ccda.objective = %q", obj)
	}

	// Content is skipped: recorded as an event, not a span
	if findSpan(spans, "ccda.stage.content") != nil {
		t.Error("skipped stage should not have a span")
	}
	if len(root.Events) != 1 || root.Events[0].Name != "stage.skipped" {
		t.Fatalf("root events = %+v; want one stage.skipped", root.Events)
	}

	structural := findSpan(spans, "ccda.stage.structural")
	if structural == nil {
		t.Fatal("structural span not found")
	}
	if structural.Parent.SpanID() != root.SpanContext.SpanID() {
		t.Error("stage span should be a child of the root span")
	}
	if n, _ := attrValue(structural, "ccda.findings"); n != "1" {
		t.Errorf("ccda.findings = %q; want 1", n)
	}
}

func TestTracingObserver_StageFailure(t *testing.T) {
	exporter, tp := newTestTracer()
	obs := telemetry.NewTracingObserver(tp.Tracer("test"))

	v := newValidator(service.Engines{
		Structural: service.StructuralFunc(func(context.Context, service.StructuralRequest) (*service.StructuralResult, error) {
			return nil, ccdavalidator.ParseError(ccdavalidator.StageStructural, errors.New("Content is not allowed in prolog."))
		}),
	})
	v.SetEventHandler(obs.Handle)

	v.ValidateDocument(context.Background(), ccdavalidator.ObjectiveB1ToCAmb, "", "doc.xml", document("junk"))

	spans := exporter.GetSpans()
	stage := findSpan(spans, "ccda.stage.structural")
	if stage == nil {
		t.Fatal("structural span not found")
	}
	if stage.Status.Code != otelcodes.Error {
		t.Errorf("stage status = %v; want Error", stage.Status.Code)
	}
	if kind, _ := attrValue(stage, "ccda.error_kind"); kind != "parse" {
		t.Errorf("ccda.error_kind = %q; want parse", kind)
	}

	root := findSpan(spans, "ccda.validate")
	if root == nil {
		t.Fatal("root span not found")
	}
	if root.Status.Code != otelcodes.Error {
		t.Errorf("root status = %v; want Error", root.Status.Code)
	}
}

func TestTracingObserver_FailureBeforeStart(t *testing.T) {
	exporter, tp := newTestTracer()
	obs := telemetry.NewTracingObserver(tp.Tracer("test"))

	now := time.Now()
	obs.Handle(pipeline.Event{
		Kind:      pipeline.EventValidationFinished,
		RequestID: "req-1",
		Time:      now,
		Elapsed:   5 * time.Millisecond,
		Err:       ccdavalidator.IOError(errors.New("stream reset")),
		ErrorKind: ccdavalidator.KindIO,
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("len(spans) = %d; want 1", len(spans))
	}
	if !spans[0].StartTime.Equal(now.Add(-5 * time.Millisecond)) {
		t.Errorf("StartTime = %v; want %v", spans[0].StartTime, now.Add(-5*time.Millisecond))
	}
	if kind, _ := attrValue(&spans[0], "ccda.error_kind"); kind != "io" {
		t.Errorf("ccda.error_kind = %q; want io", kind)
	}
}

func TestTracingObserver_ActiveSpanContext(t *testing.T) {
	_, tp := newTestTracer()
	obs := telemetry.NewTracingObserver(tp.Tracer("test"))
	now := time.Now()

	obs.Handle(pipeline.Event{Kind: pipeline.EventValidationStarted, RequestID: "req-1", Time: now})
	obs.Handle(pipeline.Event{Kind: pipeline.EventStageStarted, RequestID: "req-1", Stage: ccdavalidator.StageStructural, Time: now})

	if !obs.ActiveRequestSpanContext("req-1").IsValid() {
		t.Error("expected valid request span context")
	}
	if !obs.ActiveSpanContext("req-1", "structural").IsValid() {
		t.Error("expected valid stage span context")
	}

	obs.Handle(pipeline.Event{Kind: pipeline.EventStageFinished, RequestID: "req-1", Stage: ccdavalidator.StageStructural, Time: now})
	obs.Handle(pipeline.Event{Kind: pipeline.EventValidationFinished, RequestID: "req-1", Time: now})

	if obs.ActiveSpanContext("req-1", "structural").IsValid() {
		t.Error("stage span context should be gone after stage.finished")
	}
	if obs.ActiveRequestSpanContext("req-1").IsValid() {
		t.Error("request span context should be gone after validation.finished")
	}
}
