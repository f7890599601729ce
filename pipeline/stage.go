package pipeline

import (
	"context"
	"strings"

	ccdavalidator "github.com/gofhir/ccdavalidator"
)

// Stage represents a single validation stage in the pipeline.
// Each stage calls one external engine.
//
// Stages should be:
// - Stateless: all per-request state lives in the Context
// - Thread-safe: multiple requests may run the same stage concurrently
type Stage interface {
	// Name returns the stage identifier.
	Name() ccdavalidator.Stage

	// Validate calls the engine and returns its findings. Facts learned by
	// the engine are recorded on pctx.
	Validate(ctx context.Context, pctx *Context) ([]ccdavalidator.Finding, error)
}

// StageFunc is a function type that implements Stage.
type StageFunc struct {
	name ccdavalidator.Stage
	fn   func(ctx context.Context, pctx *Context) ([]ccdavalidator.Finding, error)
}

// NewStageFunc creates a Stage from a function.
func NewStageFunc(name ccdavalidator.Stage, fn func(ctx context.Context, pctx *Context) ([]ccdavalidator.Finding, error)) Stage {
	return &StageFunc{name: name, fn: fn}
}

// Name returns the stage name.
func (s *StageFunc) Name() ccdavalidator.Stage {
	return s.name
}

// Validate calls the wrapped function.
func (s *StageFunc) Validate(ctx context.Context, pctx *Context) ([]ccdavalidator.Finding, error) {
	return s.fn(ctx, pctx)
}

// StageOrder defines the order in which stages run. Lower values run first.
type StageOrder int

const (
	// OrderStructural runs first and unconditionally
	OrderStructural StageOrder = 100

	// OrderVocabulary runs after the structural stage
	OrderVocabulary StageOrder = 200

	// OrderContent runs last
	OrderContent StageOrder = 300
)

// Gate reports the reasons a stage must not run. No reasons means the stage
// may run. Gates are evaluated after every earlier stage has finished.
type Gate func(pctx *Context) []string

// StageConfig holds configuration for a stage in the pipeline.
type StageConfig struct {
	// Stage is the stage implementation
	Stage Stage

	// Order determines execution order (lower runs first)
	Order StageOrder

	// Gates are all evaluated; every reason they return is recorded
	Gates []Gate

	// DependsOn lists stages that must have completed for this stage to run
	DependsOn []ccdavalidator.Stage
}

// StageOption configures a stage registration.
type StageOption func(*StageConfig)

// WithOrder sets the stage order.
func WithOrder(order StageOrder) StageOption {
	return func(c *StageConfig) {
		c.Order = order
	}
}

// WithGate adds a gate to the stage.
func WithGate(gate Gate) StageOption {
	return func(c *StageConfig) {
		c.Gates = append(c.Gates, gate)
	}
}

// WithDependsOn sets stage dependencies.
func WithDependsOn(deps ...ccdavalidator.Stage) StageOption {
	return func(c *StageConfig) {
		c.DependsOn = deps
	}
}

// SkipNote records why a stage did not run.
type SkipNote struct {
	// Reasons are the distinct reasons, in the order the gates reported them
	Reasons []string

	// DependsOn is set when the stage was skipped because this earlier stage
	// did not run; Reasons are then the earlier stage's reasons
	DependsOn ccdavalidator.Stage
}

// String joins the reasons with " and ".
func (n SkipNote) String() string {
	return strings.Join(n.Reasons, " and ")
}

// IsZero reports whether the note carries no reasons.
func (n SkipNote) IsZero() bool {
	return len(n.Reasons) == 0 && n.DependsOn == ""
}

// addReasons appends reasons not already present.
func (n *SkipNote) addReasons(reasons ...string) {
	for _, r := range reasons {
		if r == "" || n.has(r) {
			continue
		}
		n.Reasons = append(n.Reasons, r)
	}
}

func (n *SkipNote) has(reason string) bool {
	for _, existing := range n.Reasons {
		if existing == reason {
			return true
		}
	}
	return false
}
