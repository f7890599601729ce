// Package service defines the contracts of the three validation engines the
// pipeline orchestrates. Following Go's philosophy of small interfaces, each
// engine is a single method.
//
// Engines are long-lived and shared across requests, so implementations must
// be safe for concurrent use. Everything an engine learns about a document is
// returned in its result; nothing is left on the engine between calls.
package service

import (
	"context"
	"errors"

	ccdavalidator "github.com/gofhir/ccdavalidator"
)

// ErrNotSupported is returned by engines that do not handle a request.
var ErrNotSupported = errors.New("operation not supported")

// --- Requests ---

// StructuralRequest is the input to structural (IG conformance) validation.
type StructuralRequest struct {
	Objective         ccdavalidator.Objective     `json:"validationObjective"`
	ReferenceFileName string                      `json:"referenceFileName,omitempty"`
	Document          string                      `json:"ccdaFile"`
	Severity          ccdavalidator.SeverityLevel `json:"severityLevel"`
}

// VocabularyRequest is the input to vocabulary validation.
type VocabularyRequest struct {
	Objective         ccdavalidator.Objective     `json:"validationObjective"`
	ReferenceFileName string                      `json:"referenceFileName,omitempty"`
	Document          string                      `json:"ccdaFile"`
	VocabularyConfig  string                      `json:"vocabularyConfig"`
	Severity          ccdavalidator.SeverityLevel `json:"severityLevel"`
}

// ContentRequest is the input to content validation against a reference
// document.
type ContentRequest struct {
	Objective         ccdavalidator.Objective     `json:"validationObjective"`
	ReferenceFileName string                      `json:"referenceFileName,omitempty"`
	Document          string                      `json:"ccdaFile"`
	Flags             ccdavalidator.ContentFlags  `json:"flags"`
	Severity          ccdavalidator.SeverityLevel `json:"severityLevel"`
}

// --- Results ---

// StructuralResult holds structural findings and the facts the engine
// learned about the document while producing them.
type StructuralResult struct {
	Findings []ccdavalidator.Finding     `json:"findings"`
	Facts    ccdavalidator.DocumentFacts `json:"facts"`
}

// VocabularyResult holds vocabulary findings and configuration coverage.
type VocabularyResult struct {
	Findings []ccdavalidator.Finding          `json:"findings"`
	Coverage ccdavalidator.VocabularyCoverage `json:"coverage"`
}

// ContentResult holds content findings.
type ContentResult struct {
	Findings []ccdavalidator.Finding `json:"findings"`
}

// --- Small Interfaces ---

// StructuralValidator checks a document against the C-CDA implementation
// guide for an objective. Schema errors are reported as findings with
// SchemaError set.
type StructuralValidator interface {
	ValidateStructure(ctx context.Context, req StructuralRequest) (*StructuralResult, error)
}

// VocabularyValidator checks coded values against a named vocabulary
// configuration.
type VocabularyValidator interface {
	ValidateVocabulary(ctx context.Context, req VocabularyRequest) (*VocabularyResult, error)
}

// ContentValidator compares a document against the reference document for
// an objective.
type ContentValidator interface {
	ValidateContent(ctx context.Context, req ContentRequest) (*ContentResult, error)
}

// Engines groups the three collaborators.
type Engines struct {
	Structural StructuralValidator
	Vocabulary VocabularyValidator
	Content    ContentValidator
}

// --- Function adapters ---

// StructuralFunc is a function that implements StructuralValidator.
type StructuralFunc func(ctx context.Context, req StructuralRequest) (*StructuralResult, error)

// ValidateStructure calls f.
func (f StructuralFunc) ValidateStructure(ctx context.Context, req StructuralRequest) (*StructuralResult, error) {
	return f(ctx, req)
}

// VocabularyFunc is a function that implements VocabularyValidator.
type VocabularyFunc func(ctx context.Context, req VocabularyRequest) (*VocabularyResult, error)

// ValidateVocabulary calls f.
func (f VocabularyFunc) ValidateVocabulary(ctx context.Context, req VocabularyRequest) (*VocabularyResult, error) {
	return f(ctx, req)
}

// ContentFunc is a function that implements ContentValidator.
type ContentFunc func(ctx context.Context, req ContentRequest) (*ContentResult, error)

// ValidateContent calls f.
func (f ContentFunc) ValidateContent(ctx context.Context, req ContentRequest) (*ContentResult, error) {
	return f(ctx, req)
}

// --- Static engines ---

// StaticStructural returns an engine that always reports the given findings
// and facts. It is useful for wiring tests and dry runs.
func StaticStructural(facts ccdavalidator.DocumentFacts, findings ...ccdavalidator.Finding) StructuralValidator {
	return StructuralFunc(func(context.Context, StructuralRequest) (*StructuralResult, error) {
		return &StructuralResult{Findings: stamp(findings, ccdavalidator.StageStructural), Facts: facts}, nil
	})
}

// StaticVocabulary returns an engine that always reports the given findings
// and coverage.
func StaticVocabulary(coverage ccdavalidator.VocabularyCoverage, findings ...ccdavalidator.Finding) VocabularyValidator {
	return VocabularyFunc(func(context.Context, VocabularyRequest) (*VocabularyResult, error) {
		return &VocabularyResult{Findings: stamp(findings, ccdavalidator.StageVocabulary), Coverage: coverage}, nil
	})
}

// StaticContent returns an engine that always reports the given findings.
func StaticContent(findings ...ccdavalidator.Finding) ContentValidator {
	return ContentFunc(func(context.Context, ContentRequest) (*ContentResult, error) {
		return &ContentResult{Findings: stamp(findings, ccdavalidator.StageContent)}, nil
	})
}

// stamp copies findings, setting Stage where the engine left it empty.
func stamp(findings []ccdavalidator.Finding, stage ccdavalidator.Stage) []ccdavalidator.Finding {
	out := make([]ccdavalidator.Finding, len(findings))
	for i, f := range findings {
		if f.Stage == "" {
			f.Stage = stage
		}
		out[i] = f
	}
	return out
}
