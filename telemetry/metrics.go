package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/gofhir/ccdavalidator/pipeline"
)

// Instrument names.
const (
	MetricValidations   = "ccda.validations"
	MetricServiceErrors = "ccda.service_errors"
	MetricDuration      = "ccda.validation.duration"
	MetricStageRuns     = "ccda.stage.executions"
	MetricStageSkips    = "ccda.stage.skips"
	MetricStageFailures = "ccda.stage.failures"
	MetricStageDuration = "ccda.stage.duration"
	MetricStageFindings = "ccda.stage.findings"
)

// MetricsObserver translates pipeline events into OpenTelemetry metrics.
type MetricsObserver struct {
	validations   metric.Int64Counter
	serviceErrors metric.Int64Counter
	duration      metric.Float64Histogram
	stageRuns     metric.Int64Counter
	stageSkips    metric.Int64Counter
	stageFailures metric.Int64Counter
	stageDuration metric.Float64Histogram
	stageFindings metric.Int64Counter
}

// NewMetricsObserver creates a MetricsObserver with instruments from meter.
func NewMetricsObserver(meter metric.Meter) (*MetricsObserver, error) {
	validations, err := meter.Int64Counter(MetricValidations,
		metric.WithDescription("Number of validation requests completed"),
	)
	if err != nil {
		return nil, err
	}

	serviceErrors, err := meter.Int64Counter(MetricServiceErrors,
		metric.WithDescription("Number of validation requests that failed, by error kind"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(MetricDuration,
		metric.WithDescription("Duration of validation requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stageRuns, err := meter.Int64Counter(MetricStageRuns,
		metric.WithDescription("Number of stage executions"),
	)
	if err != nil {
		return nil, err
	}

	stageSkips, err := meter.Int64Counter(MetricStageSkips,
		metric.WithDescription("Number of stages skipped by a gate or dependency"),
	)
	if err != nil {
		return nil, err
	}

	stageFailures, err := meter.Int64Counter(MetricStageFailures,
		metric.WithDescription("Number of stage failures"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(MetricStageDuration,
		metric.WithDescription("Duration of stage execution in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stageFindings, err := meter.Int64Counter(MetricStageFindings,
		metric.WithDescription("Number of findings reported by stages"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsObserver{
		validations:   validations,
		serviceErrors: serviceErrors,
		duration:      duration,
		stageRuns:     stageRuns,
		stageSkips:    stageSkips,
		stageFailures: stageFailures,
		stageDuration: stageDuration,
		stageFindings: stageFindings,
	}, nil
}

// Handle processes a pipeline event and records the matching metrics.
func (o *MetricsObserver) Handle(e pipeline.Event) {
	ctx := context.Background()

	switch e.Kind {
	case pipeline.EventStageFinished:
		attrs := metric.WithAttributes(attribute.String("stage", string(e.Stage)))
		o.stageRuns.Add(ctx, 1, attrs)
		o.stageDuration.Record(ctx, e.Elapsed.Seconds(), attrs)
		o.stageFindings.Add(ctx, int64(e.Findings), attrs)

	case pipeline.EventStageFailed:
		attrs := metric.WithAttributes(
			attribute.String("stage", string(e.Stage)),
			attribute.String("error_kind", e.ErrorKind.String()),
		)
		o.stageRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", string(e.Stage))))
		o.stageFailures.Add(ctx, 1, attrs)

	case pipeline.EventStageSkipped:
		o.stageSkips.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", string(e.Stage))))

	case pipeline.EventValidationFinished:
		status := "ok"
		if e.Err != nil {
			status = "service_error"
			o.serviceErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("error_kind", e.ErrorKind.String())))
		}
		attrs := metric.WithAttributes(
			attribute.String("objective", string(e.Objective)),
			attribute.String("status", status),
		)
		o.validations.Add(ctx, 1, attrs)
		o.duration.Record(ctx, e.Elapsed.Seconds(), attrs)
	}
}
