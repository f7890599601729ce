// Package engine provides the C-CDA validation controller.
package engine

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	ccdavalidator "github.com/gofhir/ccdavalidator"
	"github.com/gofhir/ccdavalidator/pipeline"
	"github.com/gofhir/ccdavalidator/pkg/logger"
	"github.com/gofhir/ccdavalidator/service"
)

// Validator is the C-CDA validation controller.
// It reads the submitted document, runs the stage pipeline and folds the
// outcome into a single result envelope.
//
// A Validator is safe for concurrent use; the engines it wraps must be too.
type Validator struct {
	// Configuration
	options *ccdavalidator.Options

	// Engines
	engines service.Engines

	// Pipeline
	pipe *pipeline.Pipeline

	// Metrics
	metrics *ccdavalidator.Metrics

	mu      sync.RWMutex
	log     *logger.Logger
	handler pipeline.EventHandler
	newID   func() string
}

// New creates a Validator over the three engines.
func New(structural service.StructuralValidator, vocabulary service.VocabularyValidator, content service.ContentValidator, opts ...ccdavalidator.Option) *Validator {
	return NewWithEngines(service.Engines{
		Structural: structural,
		Vocabulary: vocabulary,
		Content:    content,
	}, opts...)
}

// NewWithEngines creates a Validator over a set of engines.
func NewWithEngines(engines service.Engines, opts ...ccdavalidator.Option) *Validator {
	options := ccdavalidator.DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	v := &Validator{
		options: options,
		engines: engines,
		metrics: ccdavalidator.NewMetrics(),
		newID:   uuid.NewString,
	}

	v.buildPipeline()

	return v
}

// buildPipeline constructs the stage pipeline based on options.
func (v *Validator) buildPipeline() {
	v.pipe = pipeline.NewStandard(v.engines, &pipeline.Options{
		StageTimeout:   v.options.StageTimeout,
		CollectMetrics: v.options.CollectMetrics,
	})
	v.pipe.SetMetrics(v.metrics)
	v.pipe.SetEventHandler(v.dispatch)
}

// SetLogger sets the logger used for stage boundary and failure logs.
func (v *Validator) SetLogger(l *logger.Logger) {
	v.mu.Lock()
	v.log = l
	v.mu.Unlock()
}

// SetEventHandler sets an additional handler for pipeline events, such as a
// tracing or metrics observer.
func (v *Validator) SetEventHandler(h pipeline.EventHandler) {
	v.mu.Lock()
	v.handler = h
	v.mu.Unlock()
}

func (v *Validator) logger() *logger.Logger {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.log != nil {
		return v.log
	}
	return logger.Default()
}

// dispatch logs the event and forwards it to the configured handler. A
// handler panic is logged and never reaches the request.
func (v *Validator) dispatch(e pipeline.Event) {
	log := v.logger().With("request_id", e.RequestID)
	logEvent(log, e)

	v.mu.RLock()
	h := v.handler
	v.mu.RUnlock()
	if h == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Event handler panicked on %s: %v", e.Kind, r)
		}
	}()
	h(e)
}

// Validate runs one request through the pipeline. It never returns nil and
// never panics; failures are reported on the result's metadata.
func (v *Validator) Validate(ctx context.Context, req ccdavalidator.Request) (result *ccdavalidator.Result) {
	start := time.Now()
	requestID := v.newID()
	log := v.logger().With("request_id", requestID)

	result = ccdavalidator.NewResult(req.Objective)
	md := &result.Metadata
	md.RequestID = requestID
	md.FileName = req.FileName
	md.SeverityLevel = req.Severity.String()

	pctx := pipeline.NewContext(requestID, req)

	// finishing is set once the result is being folded; a panic after that
	// point must not fold or emit again.
	finishing := false
	done := func(err error) {
		finishing = true
		v.finish(result, pctx, err, log, start)
	}

	defer func() {
		if r := recover(); r != nil {
			err := pkgerrors.Errorf("validation panicked: %v", r)
			if finishing {
				applyServiceError(&result.Metadata, err, log)
				if result.Findings == nil {
					result.Findings = make([]ccdavalidator.Finding, 0)
				}
				return
			}
			done(err)
		}
	}()

	doc, err := acquire(req.Document, log)
	if err != nil {
		done(err)
		return result
	}
	if v.options.EchoContents {
		md.FileContents = string(doc.Raw)
	}
	pctx.Document = doc.Text

	config, defaulted := ccdavalidator.ResolveVocabularyConfig(req.VocabularyConfig, v.options.DefaultVocabularyConfig)
	if defaulted {
		log.Warn("Invalid vocabularyConfig of '%s' received. Assigned default config of '%s'.", req.VocabularyConfig, config)
	}
	pctx.VocabularyConfig = config

	v.pipe.Emit(pipeline.NewEvent(pipeline.EventValidationStarted, pctx))

	done(v.pipe.Execute(ctx, pctx))
	return result
}

// finish folds the pipeline context into result. err, when set, marks the
// request as failed; findings from stages that completed are kept.
func (v *Validator) finish(result *ccdavalidator.Result, pctx *pipeline.Context, err error, log *logger.Logger, start time.Time) {
	built := ccdavalidator.BuildMetadata(pctx.MetadataInput())
	built.RequestID = result.Metadata.RequestID
	built.FileName = result.Metadata.FileName
	built.FileContents = result.Metadata.FileContents

	result.Metadata = built
	result.Findings = pctx.Findings()

	e := pipeline.NewEvent(pipeline.EventValidationFinished, pctx).WithElapsed(time.Since(start))
	e.Findings = len(result.Findings)

	if err != nil {
		se := applyServiceError(&result.Metadata, err, log)
		e = e.WithError(err)
		if v.options.CollectMetrics {
			v.metrics.RecordServiceError(se.Kind)
		}
	}

	if v.options.CollectMetrics {
		for _, f := range result.Findings {
			v.metrics.RecordFinding(f)
		}
		v.metrics.RecordValidation(time.Since(start), !result.HasErrors())
	}

	v.pipe.Emit(e)
}

// ValidateDocument validates a document with default content flags,
// vocabulary configuration and severity floor.
func (v *Validator) ValidateDocument(ctx context.Context, objective ccdavalidator.Objective, referenceFileName, fileName string, document io.ReadCloser) *ccdavalidator.Result {
	return v.Validate(ctx, ccdavalidator.NewRequest(objective, fileName, document,
		ccdavalidator.WithReferenceFileName(referenceFileName),
	))
}

// ValidateDocumentWithConfig is ValidateDocument with a named vocabulary
// configuration.
func (v *Validator) ValidateDocumentWithConfig(ctx context.Context, objective ccdavalidator.Objective, referenceFileName, fileName string, document io.ReadCloser, vocabularyConfig string) *ccdavalidator.Result {
	return v.Validate(ctx, ccdavalidator.NewRequest(objective, fileName, document,
		ccdavalidator.WithReferenceFileName(referenceFileName),
		ccdavalidator.WithVocabularyConfig(vocabularyConfig),
	))
}

// Metrics returns the validator's metrics.
func (v *Validator) Metrics() *ccdavalidator.Metrics {
	return v.metrics
}

// Options returns the validator's options.
func (v *Validator) Options() *ccdavalidator.Options {
	return v.options
}

// Stages returns the stage names in execution order.
func (v *Validator) Stages() []ccdavalidator.Stage {
	return v.pipe.StageNames()
}

// Close releases resources held by the validator.
func (v *Validator) Close() error {
	// Nothing to clean up currently
	return nil
}

// logEvent writes the stage boundary log lines.
func logEvent(log *logger.Logger, e pipeline.Event) {
	switch e.Kind {
	case pipeline.EventValidationStarted:
		log.Debug("Validating against objective %s", e.Objective)
	case pipeline.EventStageStarted:
		log.Debug("Running %s validation", e.Stage)
	case pipeline.EventStageFinished:
		log.Info("Adding %d %s results", e.Findings, e.Stage)
	case pipeline.EventStageSkipped:
		switch {
		case e.Note.DependsOn != "":
			log.Debug("Skipping %s validation: %s validation did not run", e.Stage, e.Note.DependsOn)
		case e.Stage == ccdavalidator.StageVocabulary:
			log.Info("Skipping Vocabulary (and thus Content) validation due to: %s", e.Note)
		default:
			log.Info("Skipping %s validation due to: %s", titleCase(string(e.Stage)), e.Note)
		}
	case pipeline.EventStageFailed:
		log.Warn("%s validation failed (%s): %v", titleCase(string(e.Stage)), e.ErrorKind, e.Err)
	case pipeline.EventValidationFinished:
		log.Debug("Validation finished in %s with %d findings", e.Elapsed, e.Findings)
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
