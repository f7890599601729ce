// Package ccdavalidator validates C-CDA clinical documents against a
// certification objective.
//
// Validation runs in up to three stages backed by external engines:
//
//   - Structural: schema and IG conformance, always runs
//   - Vocabulary: coded values against reference code systems
//   - Content: content matching against reference templates
//
// The vocabulary stage only runs when the structural stage found no schema
// errors and the objective allows it. The content stage depends on the
// vocabulary stage and additionally requires a unique-content objective.
//
// # Quick Start
//
//	import (
//	    cv "github.com/gofhir/ccdavalidator"
//	    "github.com/gofhir/ccdavalidator/engine"
//	)
//
//	v := engine.New(structural, vocabulary, content)
//
//	result := v.Validate(ctx, cv.NewRequest(cv.ObjectiveB1ToCAmb, "ccda.xml", f,
//	    cv.WithSeverity(cv.SeverityWarning),
//	))
//	if result.Metadata.ServiceError {
//	    fmt.Println(result.Metadata.ServiceErrorMessage)
//	}
//	for _, f := range result.Findings {
//	    fmt.Println(f)
//	}
//
// Validate never returns an error. Failures are reported through
// ResultMetadata.ServiceError and ServiceErrorMessage, and findings produced
// by stages that completed before the failure are kept.
//
// # Error Classification
//
// Failures are classified, in order, as I/O, parse, type mismatch or
// unclassified. Engines report a kind by returning a *StageError; anything
// else is unclassified.
package ccdavalidator
