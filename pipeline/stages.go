package pipeline

import (
	"context"

	ccdavalidator "github.com/gofhir/ccdavalidator"
	"github.com/gofhir/ccdavalidator/service"
)

// StructuralStage adapts a structural engine. The document facts it returns
// are recorded on the Context.
func StructuralStage(v service.StructuralValidator) Stage {
	return NewStageFunc(ccdavalidator.StageStructural, func(ctx context.Context, pctx *Context) ([]ccdavalidator.Finding, error) {
		res, err := v.ValidateStructure(ctx, service.StructuralRequest{
			Objective:         pctx.Objective,
			ReferenceFileName: pctx.ReferenceFileName,
			Document:          pctx.Document,
			Severity:          pctx.Severity,
		})
		if err != nil {
			return nil, err
		}
		if res == nil {
			res = &service.StructuralResult{}
		}
		pctx.SetFacts(res.Facts)
		return res.Findings, nil
	})
}

// VocabularyStage adapts a vocabulary engine. The configuration coverage it
// returns is recorded on the Context.
func VocabularyStage(v service.VocabularyValidator) Stage {
	return NewStageFunc(ccdavalidator.StageVocabulary, func(ctx context.Context, pctx *Context) ([]ccdavalidator.Finding, error) {
		res, err := v.ValidateVocabulary(ctx, service.VocabularyRequest{
			Objective:         pctx.Objective,
			ReferenceFileName: pctx.ReferenceFileName,
			Document:          pctx.Document,
			VocabularyConfig:  pctx.VocabularyConfig,
			Severity:          pctx.Severity,
		})
		if err != nil {
			return nil, err
		}
		if res == nil {
			res = &service.VocabularyResult{}
		}
		pctx.SetCoverage(res.Coverage)
		return res.Findings, nil
	})
}

// ContentStage adapts a content engine.
func ContentStage(v service.ContentValidator) Stage {
	return NewStageFunc(ccdavalidator.StageContent, func(ctx context.Context, pctx *Context) ([]ccdavalidator.Finding, error) {
		res, err := v.ValidateContent(ctx, service.ContentRequest{
			Objective:         pctx.Objective,
			ReferenceFileName: pctx.ReferenceFileName,
			Document:          pctx.Document,
			Flags:             pctx.Flags,
			Severity:          pctx.Severity,
		})
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, nil
		}
		return res.Findings, nil
	})
}

// NewStandard builds the structural, vocabulary, content pipeline with the
// standard gates:
//
//   - structural always runs
//   - vocabulary runs unless the objective forbids it or a schema error was found
//   - content runs only after vocabulary, and only for content-eligible objectives
func NewStandard(engines service.Engines, opts *Options) *Pipeline {
	p := New(opts)
	p.Register(StructuralStage(engines.Structural), WithOrder(OrderStructural))
	p.Register(VocabularyStage(engines.Vocabulary),
		WithOrder(OrderVocabulary),
		WithGate(VocabularyGate),
	)
	p.Register(ContentStage(engines.Content),
		WithOrder(OrderContent),
		WithDependsOn(ccdavalidator.StageVocabulary),
		WithGate(ContentGate),
	)
	return p
}
