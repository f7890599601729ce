package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"

	ccdavalidator "github.com/gofhir/ccdavalidator"
)

// Pipeline orchestrates the execution of validation stages.
// Stages run one at a time in order. A stage runs only if every gate lets it
// through and every stage it depends on completed. The first stage failure
// ends the run; findings from stages that completed are kept on the Context.
type Pipeline struct {
	// stages holds registered stages sorted by order
	stages []*StageConfig

	// metrics tracks execution metrics
	metrics *ccdavalidator.Metrics

	// handler receives pipeline events
	handler EventHandler

	// options holds pipeline configuration
	options *Options

	// mu protects concurrent access
	mu sync.RWMutex
}

// Options configures pipeline behavior.
type Options struct {
	// StageTimeout is the maximum time for a single stage (0 = none)
	StageTimeout time.Duration

	// CollectMetrics enables stage metric collection
	CollectMetrics bool
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		StageTimeout:   0, // no timeout
		CollectMetrics: true,
	}
}

// New creates an empty pipeline.
func New(opts *Options) *Pipeline {
	if opts == nil {
		opts = DefaultOptions()
	}

	return &Pipeline{
		stages:  make([]*StageConfig, 0, 3),
		metrics: ccdavalidator.NewMetrics(),
		options: opts,
	}
}

// Register adds a stage to the pipeline. Registering a stage name twice
// replaces the earlier registration.
func (p *Pipeline) Register(stage Stage, opts ...StageOption) {
	config := &StageConfig{
		Stage: stage,
		Order: OrderContent + 100,
	}

	for _, opt := range opts {
		opt(config)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i, existing := range p.stages {
		if existing.Stage.Name() == stage.Name() {
			p.stages = append(p.stages[:i], p.stages[i+1:]...)
			break
		}
	}
	p.stages = append(p.stages, config)
	sort.SliceStable(p.stages, func(i, j int) bool {
		return p.stages[i].Order < p.stages[j].Order
	})
}

// Execute runs every registered stage against pctx. It returns the first
// stage failure, unchanged, or a cancellation error if ctx ends between
// stages. Stage panics are recovered and returned as errors.
func (p *Pipeline) Execute(ctx context.Context, pctx *Context) error {
	p.mu.RLock()
	stages := make([]*StageConfig, len(p.stages))
	copy(stages, p.stages)
	p.mu.RUnlock()

	for _, cfg := range stages {
		name := cfg.Stage.Name()

		if err := ctx.Err(); err != nil {
			return pkgerrors.Wrapf(err, "validation cancelled before %s stage", name)
		}

		if note, skip := p.gate(pctx, cfg); skip {
			pctx.markSkipped(name, note)
			if p.collect() {
				p.metrics.RecordStageSkip(name)
			}
			e := NewEvent(EventStageSkipped, pctx).WithStage(name)
			e.Note = note
			p.Emit(e)
			continue
		}

		if err := p.executeStage(ctx, pctx, cfg); err != nil {
			return err
		}
	}

	return nil
}

// gate decides whether cfg must be skipped. Dependencies are checked first;
// a stage whose dependency was skipped inherits that stage's reasons.
func (p *Pipeline) gate(pctx *Context, cfg *StageConfig) (SkipNote, bool) {
	for _, dep := range cfg.DependsOn {
		if pctx.Completed(dep) {
			continue
		}
		note := SkipNote{DependsOn: dep}
		if depNote, ok := pctx.Skipped(dep); ok {
			note.addReasons(depNote.Reasons...)
		} else {
			note.addReasons(fmt.Sprintf("%s validation did not run", dep))
		}
		return note, true
	}

	var note SkipNote
	for _, g := range cfg.Gates {
		if g == nil {
			continue
		}
		note.addReasons(g(pctx)...)
	}
	return note, len(note.Reasons) > 0
}

// executeStage runs a single stage with timing.
func (p *Pipeline) executeStage(ctx context.Context, pctx *Context, cfg *StageConfig) error {
	name := cfg.Stage.Name()

	stageCtx := ctx
	var cancel context.CancelFunc
	if p.options.StageTimeout > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, p.options.StageTimeout)
		defer cancel()
	}

	p.Emit(NewEvent(EventStageStarted, pctx).WithStage(name))

	start := time.Now()
	findings, err := p.call(stageCtx, pctx, cfg.Stage)
	duration := time.Since(start)

	if err != nil {
		if p.collect() {
			p.metrics.RecordStageFailure(name, duration)
		}
		p.Emit(NewEvent(EventStageFailed, pctx).WithStage(name).WithElapsed(duration).WithError(err))
		return err
	}

	pctx.AddFindings(name, findings)
	pctx.markCompleted(name)

	if p.collect() {
		p.metrics.RecordStage(name, duration, len(findings))
	}
	e := NewEvent(EventStageFinished, pctx).WithStage(name).WithElapsed(duration)
	e.Findings = len(findings)
	p.Emit(e)

	return nil
}

// call invokes the stage, converting a panic into an unclassified error.
func (p *Pipeline) call(ctx context.Context, pctx *Context, stage Stage) (findings []ccdavalidator.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			findings = nil
			err = pkgerrors.Errorf("%s stage panicked: %v", stage.Name(), r)
		}
	}()
	return stage.Validate(ctx, pctx)
}

func (p *Pipeline) collect() bool {
	return p.options.CollectMetrics && p.metrics != nil
}

// Emit sends e to the pipeline's event handler, if any.
func (p *Pipeline) Emit(e Event) {
	p.mu.RLock()
	h := p.handler
	p.mu.RUnlock()
	if h == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	h(e)
}

// SetEventHandler sets the handler that receives pipeline events.
func (p *Pipeline) SetEventHandler(h EventHandler) {
	p.mu.Lock()
	p.handler = h
	p.mu.Unlock()
}

// Metrics returns the pipeline metrics.
func (p *Pipeline) Metrics() *ccdavalidator.Metrics {
	return p.metrics
}

// SetMetrics sets the metrics collector.
func (p *Pipeline) SetMetrics(m *ccdavalidator.Metrics) {
	p.mu.Lock()
	p.metrics = m
	p.mu.Unlock()
}

// StageCount returns the number of registered stages.
func (p *Pipeline) StageCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.stages)
}

// StageNames returns the registered stage names in execution order.
func (p *Pipeline) StageNames() []ccdavalidator.Stage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]ccdavalidator.Stage, len(p.stages))
	for i, cfg := range p.stages {
		names[i] = cfg.Stage.Name()
	}
	return names
}
