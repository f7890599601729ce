package ccdavalidator

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks validation metrics using lock-free atomic operations.
// All methods are safe for concurrent use.
type Metrics struct {
	// Validation counts
	validationsTotal atomic.Uint64
	validationsClean atomic.Uint64

	// Timing (stored as nanoseconds)
	validationTimeTotal atomic.Uint64
	validationTimeMin   atomic.Uint64
	validationTimeMax   atomic.Uint64

	// Service errors by kind, indexed by ErrorKind
	serviceErrors [4]atomic.Uint64

	// Finding counts by severity
	errorsTotal   atomic.Uint64
	warningsTotal atomic.Uint64
	infosTotal    atomic.Uint64

	// Per-stage metrics
	stages sync.Map // map[Stage]*stageMetrics
}

// stageMetrics tracks metrics for a single validation stage.
type stageMetrics struct {
	invocations   atomic.Uint64
	skips         atomic.Uint64
	failures      atomic.Uint64
	totalTime     atomic.Uint64 // nanoseconds
	findingsFound atomic.Uint64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	// Initialize min to max uint64 so first value becomes the minimum
	m.validationTimeMin.Store(^uint64(0))
	return m
}

// --- Recording Methods ---

// RecordValidation records a completed validation request. clean is true when
// the request had no service error and no error findings.
func (m *Metrics) RecordValidation(duration time.Duration, clean bool) {
	m.validationsTotal.Add(1)
	if clean {
		m.validationsClean.Add(1)
	}

	ns := uint64(duration.Nanoseconds()) //nolint:gosec // Safe: nanoseconds are always positive for valid durations
	m.validationTimeTotal.Add(ns)

	for {
		old := m.validationTimeMin.Load()
		if ns >= old {
			break
		}
		if m.validationTimeMin.CompareAndSwap(old, ns) {
			break
		}
	}

	for {
		old := m.validationTimeMax.Load()
		if ns <= old {
			break
		}
		if m.validationTimeMax.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordServiceError records a failed request of the given kind.
func (m *Metrics) RecordServiceError(kind ErrorKind) {
	if kind < 0 || int(kind) >= len(m.serviceErrors) {
		kind = KindUnclassified
	}
	m.serviceErrors[kind].Add(1)
}

// RecordFinding records a finding based on its type's severity.
func (m *Metrics) RecordFinding(f Finding) {
	switch f.Type.Severity() {
	case SeverityError:
		m.errorsTotal.Add(1)
	case SeverityWarning:
		m.warningsTotal.Add(1)
	default:
		m.infosTotal.Add(1)
	}
}

// RecordStage records a completed stage invocation.
func (m *Metrics) RecordStage(stage Stage, duration time.Duration, findingsFound int) {
	sm := m.getOrCreateStageMetrics(stage)
	sm.invocations.Add(1)
	sm.totalTime.Add(uint64(duration.Nanoseconds())) //nolint:gosec // Safe: nanoseconds are always positive
	sm.findingsFound.Add(uint64(findingsFound))      //nolint:gosec // Safe: findingsFound is a small positive integer
}

// RecordStageSkip records a stage that was gated off.
func (m *Metrics) RecordStageSkip(stage Stage) {
	m.getOrCreateStageMetrics(stage).skips.Add(1)
}

// RecordStageFailure records a stage that returned an error.
func (m *Metrics) RecordStageFailure(stage Stage, duration time.Duration) {
	sm := m.getOrCreateStageMetrics(stage)
	sm.invocations.Add(1)
	sm.failures.Add(1)
	sm.totalTime.Add(uint64(duration.Nanoseconds())) //nolint:gosec // Safe: nanoseconds are always positive
}

func (m *Metrics) getOrCreateStageMetrics(stage Stage) *stageMetrics {
	if v, ok := m.stages.Load(stage); ok {
		return v.(*stageMetrics)
	}
	sm := &stageMetrics{}
	actual, _ := m.stages.LoadOrStore(stage, sm)
	return actual.(*stageMetrics)
}

// --- Query Methods ---

// ValidationsTotal returns the total number of validations performed.
func (m *Metrics) ValidationsTotal() uint64 {
	return m.validationsTotal.Load()
}

// ValidationsClean returns the number of validations with no errors.
func (m *Metrics) ValidationsClean() uint64 {
	return m.validationsClean.Load()
}

// CleanRate returns the fraction of clean validations (0.0 to 1.0).
func (m *Metrics) CleanRate() float64 {
	total := m.validationsTotal.Load()
	if total == 0 {
		return 0
	}
	return float64(m.validationsClean.Load()) / float64(total)
}

// AverageValidationTime returns the average validation duration.
func (m *Metrics) AverageValidationTime() time.Duration {
	total := m.validationsTotal.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.validationTimeTotal.Load() / total) //nolint:gosec // Safe: nanoseconds within int64 range
}

// MinValidationTime returns the minimum validation duration.
func (m *Metrics) MinValidationTime() time.Duration {
	minVal := m.validationTimeMin.Load()
	if minVal == ^uint64(0) {
		return 0
	}
	return time.Duration(minVal) //nolint:gosec // Safe: minVal represents nanoseconds within int64 range
}

// MaxValidationTime returns the maximum validation duration.
func (m *Metrics) MaxValidationTime() time.Duration {
	return time.Duration(m.validationTimeMax.Load()) //nolint:gosec // Safe: nanoseconds within int64 range
}

// ServiceErrors returns the number of failed requests of the given kind.
func (m *Metrics) ServiceErrors(kind ErrorKind) uint64 {
	if kind < 0 || int(kind) >= len(m.serviceErrors) {
		return 0
	}
	return m.serviceErrors[kind].Load()
}

// ServiceErrorsTotal returns the number of failed requests of any kind.
func (m *Metrics) ServiceErrorsTotal() uint64 {
	var total uint64
	for i := range m.serviceErrors {
		total += m.serviceErrors[i].Load()
	}
	return total
}

// ErrorsTotal returns the total error findings.
func (m *Metrics) ErrorsTotal() uint64 {
	return m.errorsTotal.Load()
}

// WarningsTotal returns the total warning findings.
func (m *Metrics) WarningsTotal() uint64 {
	return m.warningsTotal.Load()
}

// InfosTotal returns the total informational findings.
func (m *Metrics) InfosTotal() uint64 {
	return m.infosTotal.Load()
}

// StageStats holds statistics for a single stage.
type StageStats struct {
	Stage         Stage         `json:"stage"`
	Invocations   uint64        `json:"invocations"`
	Skips         uint64        `json:"skips"`
	Failures      uint64        `json:"failures"`
	TotalTime     time.Duration `json:"total_time_ns"`
	AvgTime       time.Duration `json:"avg_time_ns"`
	FindingsFound uint64        `json:"findings_found"`
}

// StageStats returns statistics for a specific stage.
func (m *Metrics) StageStats(stage Stage) (StageStats, bool) {
	v, ok := m.stages.Load(stage)
	if !ok {
		return StageStats{Stage: stage}, false
	}
	return v.(*stageMetrics).stats(stage), true
}

// AllStageStats returns statistics for all stages that were recorded.
func (m *Metrics) AllStageStats() []StageStats {
	var stats []StageStats
	m.stages.Range(func(key, value any) bool {
		stats = append(stats, value.(*stageMetrics).stats(key.(Stage)))
		return true
	})
	return stats
}

func (sm *stageMetrics) stats(stage Stage) StageStats {
	invocations := sm.invocations.Load()
	totalTime := sm.totalTime.Load()

	var avgTime time.Duration
	if invocations > 0 {
		avgTime = time.Duration(totalTime / invocations) //nolint:gosec // Safe: nanoseconds within int64 range
	}

	return StageStats{
		Stage:         stage,
		Invocations:   invocations,
		Skips:         sm.skips.Load(),
		Failures:      sm.failures.Load(),
		TotalTime:     time.Duration(totalTime), //nolint:gosec // Safe: nanoseconds within int64 range
		AvgTime:       avgTime,
		FindingsFound: sm.findingsFound.Load(),
	}
}

// --- Export Methods ---

// Snapshot represents a point-in-time snapshot of all metrics.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	ValidationsTotal uint64  `json:"validations_total"`
	ValidationsClean uint64  `json:"validations_clean"`
	CleanRate        float64 `json:"clean_rate"`

	AvgValidationTimeNs uint64 `json:"avg_validation_time_ns"`
	MinValidationTimeNs uint64 `json:"min_validation_time_ns"`
	MaxValidationTimeNs uint64 `json:"max_validation_time_ns"`

	ServiceErrors map[string]uint64 `json:"service_errors"`

	ErrorsTotal   uint64 `json:"errors_total"`
	WarningsTotal uint64 `json:"warnings_total"`
	InfosTotal    uint64 `json:"infos_total"`

	Stages []StageStats `json:"stages,omitempty"`
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	total := m.validationsTotal.Load()

	var avgTime, cleanRate float64
	if total > 0 {
		avgTime = float64(m.validationTimeTotal.Load()) / float64(total)
		cleanRate = float64(m.validationsClean.Load()) / float64(total)
	}

	minTime := m.validationTimeMin.Load()
	if minTime == ^uint64(0) {
		minTime = 0
	}

	serviceErrors := make(map[string]uint64, len(m.serviceErrors))
	for i := range m.serviceErrors {
		serviceErrors[ErrorKind(i).String()] = m.serviceErrors[i].Load()
	}

	return Snapshot{
		Timestamp:           time.Now(),
		ValidationsTotal:    total,
		ValidationsClean:    m.validationsClean.Load(),
		CleanRate:           cleanRate,
		AvgValidationTimeNs: uint64(avgTime),
		MinValidationTimeNs: minTime,
		MaxValidationTimeNs: m.validationTimeMax.Load(),
		ServiceErrors:       serviceErrors,
		ErrorsTotal:         m.errorsTotal.Load(),
		WarningsTotal:       m.warningsTotal.Load(),
		InfosTotal:          m.infosTotal.Load(),
		Stages:              m.AllStageStats(),
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.validationsTotal.Store(0)
	m.validationsClean.Store(0)
	m.validationTimeTotal.Store(0)
	m.validationTimeMin.Store(^uint64(0))
	m.validationTimeMax.Store(0)
	for i := range m.serviceErrors {
		m.serviceErrors[i].Store(0)
	}
	m.errorsTotal.Store(0)
	m.warningsTotal.Store(0)
	m.infosTotal.Store(0)

	m.stages.Range(func(key, _ any) bool {
		m.stages.Delete(key)
		return true
	})
}
