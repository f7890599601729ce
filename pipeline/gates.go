package pipeline

import (
	ccdavalidator "github.com/gofhir/ccdavalidator"
)

// ReasonSchemaError is recorded when the structural stage flagged a schema error.
const ReasonSchemaError = "C-CDA Schema error(s) found"

// objectiveName renders the objective for skip notes.
func objectiveName(o ccdavalidator.Objective) string {
	if o == "" {
		return "null objective"
	}
	return o.String()
}

// ObjectiveReason is recorded when the objective does not allow vocabulary
// validation.
func ObjectiveReason(o ccdavalidator.Objective) string {
	return "validationObjective POSTed: " + objectiveName(o)
}

// ContentObjectiveReason is recorded when the objective is not eligible for
// content validation.
func ContentObjectiveReason(o ccdavalidator.Objective) string {
	return "validationObjective (" + objectiveName(o) + ") is not relevant or valid for Content validation"
}

// VocabularyGate blocks vocabulary validation for structure-only, non-specific
// and alternate certification objectives, and for documents with schema
// errors. Both reasons are reported when both apply.
func VocabularyGate(pctx *Context) []string {
	var reasons []string
	if !ccdavalidator.AllowsVocabulary(pctx.Objective, pctx.AlternateCertification()) {
		reasons = append(reasons, ObjectiveReason(pctx.Objective))
	}
	if pctx.HasSchemaError() {
		reasons = append(reasons, ReasonSchemaError)
	}
	return reasons
}

// ContentGate blocks content validation for objectives outside the
// content-eligible set.
func ContentGate(pctx *Context) []string {
	if ccdavalidator.AllowsContent(pctx.Objective) {
		return nil
	}
	return []string{ContentObjectiveReason(pctx.Objective)}
}
