// Package pipeline provides the stage runner behind the C-CDA validator.
package pipeline

import (
	"sync"

	ccdavalidator "github.com/gofhir/ccdavalidator"
)

// Context holds all state needed during validation of a single document.
// It is passed to every stage and accumulates findings in stage order.
//
// A Context belongs to one request. Nothing in it outlives the request, and
// nothing is shared between requests.
type Context struct {
	// RequestID correlates events and log lines for this request
	RequestID string

	// Objective is the certification profile requested
	Objective ccdavalidator.Objective

	// ReferenceFileName identifies the reference document for content matching
	ReferenceFileName string

	// Document is the decoded document text, without any byte-order mark
	Document string

	// Flags toggle optional content validation rules
	Flags ccdavalidator.ContentFlags

	// VocabularyConfig is the resolved vocabulary configuration name
	VocabularyConfig string

	// Severity is the reporting floor passed to every stage
	Severity ccdavalidator.SeverityLevel

	// mu protects the fields below
	mu sync.RWMutex

	findings  []ccdavalidator.Finding
	facts     *ccdavalidator.DocumentFacts
	coverage  *ccdavalidator.VocabularyCoverage
	completed map[ccdavalidator.Stage]bool
	skipped   map[ccdavalidator.Stage]SkipNote
}

// NewContext creates a Context for one request.
func NewContext(requestID string, req ccdavalidator.Request) *Context {
	return &Context{
		RequestID:         requestID,
		Objective:         req.Objective,
		ReferenceFileName: req.ReferenceFileName,
		Flags:             req.Flags,
		VocabularyConfig:  req.VocabularyConfig,
		Severity:          req.Severity,
		findings:          make([]ccdavalidator.Finding, 0, 16),
		completed:         make(map[ccdavalidator.Stage]bool, 3),
		skipped:           make(map[ccdavalidator.Stage]SkipNote, 2),
	}
}

// AddFindings appends findings produced by stage. Every finding is attributed
// to stage, replacing any stage the engine set; the caller's slice is not
// modified.
func (c *Context) AddFindings(stage ccdavalidator.Stage, findings []ccdavalidator.Finding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range findings {
		f.Stage = stage
		c.findings = append(c.findings, f)
	}
}

// Findings returns a copy of the accumulated findings. The result is never nil.
func (c *Context) Findings() []ccdavalidator.Finding {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ccdavalidator.Finding, len(c.findings))
	copy(out, c.findings)
	return out
}

// FindingsFrom returns the findings attributed to stage.
func (c *Context) FindingsFrom(stage ccdavalidator.Stage) []ccdavalidator.Finding {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []ccdavalidator.Finding
	for _, f := range c.findings {
		if f.Stage == stage {
			out = append(out, f)
		}
	}
	return out
}

// SetFacts records what the structural stage learned about the document.
func (c *Context) SetFacts(facts ccdavalidator.DocumentFacts) {
	c.mu.Lock()
	c.facts = &facts
	c.mu.Unlock()
}

// Facts returns the structural facts, or nil if the structural stage has not
// completed.
func (c *Context) Facts() *ccdavalidator.DocumentFacts {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.facts == nil {
		return nil
	}
	facts := *c.facts
	return &facts
}

// AlternateCertification reports whether the document is validated in
// alternate certification mode, either because the structural stage said so
// or because the objective is a 2014 edition document type.
func (c *Context) AlternateCertification() bool {
	c.mu.RLock()
	reported := c.facts != nil && c.facts.AlternateCertification
	c.mu.RUnlock()
	return reported || c.Objective.IsAlternateCertification()
}

// SetCoverage records the vocabulary stage's configuration coverage.
func (c *Context) SetCoverage(coverage ccdavalidator.VocabularyCoverage) {
	c.mu.Lock()
	c.coverage = &coverage
	c.mu.Unlock()
}

// Coverage returns the vocabulary coverage, or nil if the vocabulary stage
// has not completed.
func (c *Context) Coverage() *ccdavalidator.VocabularyCoverage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.coverage == nil {
		return nil
	}
	coverage := *c.coverage
	return &coverage
}

// HasSchemaError reports whether the structural stage flagged a schema error.
func (c *Context) HasSchemaError() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, f := range c.findings {
		if f.SchemaError && f.Stage == ccdavalidator.StageStructural {
			return true
		}
	}
	return false
}

// Completed reports whether stage ran to completion.
func (c *Context) Completed(stage ccdavalidator.Stage) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.completed[stage]
}

// Skipped returns the skip note for stage, if it was skipped.
func (c *Context) Skipped(stage ccdavalidator.Stage) (SkipNote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	note, ok := c.skipped[stage]
	return note, ok
}

func (c *Context) markCompleted(stage ccdavalidator.Stage) {
	c.mu.Lock()
	c.completed[stage] = true
	c.mu.Unlock()
}

func (c *Context) markSkipped(stage ccdavalidator.Stage, note SkipNote) {
	c.mu.Lock()
	c.skipped[stage] = note
	c.mu.Unlock()
}

// MetadataInput returns everything the aggregator needs from this request.
func (c *Context) MetadataInput() ccdavalidator.MetadataInput {
	return ccdavalidator.MetadataInput{
		Findings:  c.Findings(),
		Objective: c.Objective,
		Severity:  c.Severity,
		Facts:     c.Facts(),
		Coverage:  c.Coverage(),
	}
}
