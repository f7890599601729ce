// Package outcome renders validation results as FHIR R4 OperationOutcome
// resources and filters findings with FHIRPath.
package outcome

import (
	"encoding/json"

	"github.com/gofhir/fhir/r4"

	ccdavalidator "github.com/gofhir/ccdavalidator"
)

// FindingTypeSystem is the code system used for finding types in
// issue.details.
const FindingTypeSystem = "urn:ccda-validator:finding-type"

// StageSystem is the code system used for the producing stage.
const StageSystem = "urn:ccda-validator:stage"

// Issue severities.
const (
	SeverityFatal       = "fatal"
	SeverityError       = "error"
	SeverityWarning     = "warning"
	SeverityInformation = "information"
)

// Issue type codes.
const (
	CodeStructure     = "structure"
	CodeInvariant     = "invariant"
	CodeCodeInvalid   = "code-invalid"
	CodeBusinessRule  = "business-rule"
	CodeInformational = "informational"
	CodeException     = "exception"
)

// issueSeverity maps a finding severity to an issue severity.
func issueSeverity(s ccdavalidator.SeverityLevel) string {
	switch s {
	case ccdavalidator.SeverityError:
		return SeverityError
	case ccdavalidator.SeverityWarning:
		return SeverityWarning
	default:
		return SeverityInformation
	}
}

// issueCode picks the issue type for a finding.
func issueCode(f ccdavalidator.Finding) string {
	if f.Type.Severity() == ccdavalidator.SeverityInfo {
		return CodeInformational
	}
	if f.SchemaError {
		return CodeStructure
	}
	switch f.Stage {
	case ccdavalidator.StageVocabulary:
		return CodeCodeInvalid
	case ccdavalidator.StageContent:
		return CodeBusinessRule
	default:
		return CodeInvariant
	}
}

// Details builds the issue details for a finding: the finding type and the
// producing stage as codings, the description as text.
func Details(f ccdavalidator.Finding) *r4.CodeableConcept {
	typeCode := string(f.Type)
	cc := &r4.CodeableConcept{
		Coding: []r4.Coding{{
			System:  ptr(FindingTypeSystem),
			Code:    &typeCode,
			Display: &typeCode,
		}},
	}
	if f.Stage != "" {
		stage := string(f.Stage)
		cc.Coding = append(cc.Coding, r4.Coding{
			System: ptr(StageSystem),
			Code:   &stage,
		})
	}
	if f.Description != "" {
		desc := f.Description
		cc.Text = &desc
	}
	return cc
}

// Issue converts a finding to an OperationOutcome issue.
func Issue(f ccdavalidator.Finding) map[string]any {
	issue := map[string]any{
		"severity": issueSeverity(f.Type.Severity()),
		"code":     issueCode(f),
		"details":  codeableConceptToMap(Details(f)),
	}
	if f.XPath != "" {
		issue["location"] = []any{f.XPath}
	}
	if diag := diagnostics(f); diag != "" {
		issue["diagnostics"] = diag
	}
	return issue
}

func diagnostics(f ccdavalidator.Finding) string {
	var s string
	if f.DocumentLineNumber != "" {
		s = "line " + f.DocumentLineNumber
	}
	if f.ExpectedValue != "" || f.ActualValue != "" {
		if s != "" {
			s += "; "
		}
		s += "expected " + quote(f.ExpectedValue) + ", found " + quote(f.ActualValue)
	}
	return s
}

func quote(s string) string {
	return "'" + s + "'"
}

// FromResult renders result as an OperationOutcome. A service error becomes
// a fatal exception issue ahead of the findings.
func FromResult(result *ccdavalidator.Result) map[string]any {
	issues := make([]any, 0, len(result.Findings)+1)

	md := result.Metadata
	if md.ServiceError {
		issues = append(issues, map[string]any{
			"severity":    SeverityFatal,
			"code":        CodeException,
			"diagnostics": md.ServiceErrorMessage,
		})
	}
	for _, f := range result.Findings {
		issues = append(issues, Issue(f))
	}

	// An OperationOutcome requires at least one issue
	if len(issues) == 0 {
		issues = append(issues, map[string]any{
			"severity":    SeverityInformation,
			"code":        CodeInformational,
			"diagnostics": "No issues found",
		})
	}

	oo := map[string]any{
		"resourceType": "OperationOutcome",
		"issue":        issues,
	}
	if md.RequestID != "" {
		oo["id"] = md.RequestID
	}
	return oo
}

// Marshal renders result as OperationOutcome JSON.
func Marshal(result *ccdavalidator.Result) ([]byte, error) {
	return json.Marshal(FromResult(result))
}

// MarshalIndent renders result as indented OperationOutcome JSON.
func MarshalIndent(result *ccdavalidator.Result) ([]byte, error) {
	return json.MarshalIndent(FromResult(result), "", "  ")
}

func codingToMap(coding *r4.Coding) map[string]any {
	if coding == nil {
		return nil
	}
	result := make(map[string]any)
	if coding.System != nil {
		result["system"] = *coding.System
	}
	if coding.Version != nil {
		result["version"] = *coding.Version
	}
	if coding.Code != nil {
		result["code"] = *coding.Code
	}
	if coding.Display != nil {
		result["display"] = *coding.Display
	}
	return result
}

func codeableConceptToMap(cc *r4.CodeableConcept) map[string]any {
	if cc == nil {
		return nil
	}
	result := make(map[string]any)
	if len(cc.Coding) > 0 {
		codings := make([]any, 0, len(cc.Coding))
		for i := range cc.Coding {
			codings = append(codings, codingToMap(&cc.Coding[i]))
		}
		result["coding"] = codings
	}
	if cc.Text != nil {
		result["text"] = *cc.Text
	}
	return result
}

func ptr(s string) *string {
	return &s
}
