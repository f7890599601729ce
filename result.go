package ccdavalidator

// ResultMetadata summarizes one validation request.
//
// On failure ServiceError is set and the remaining fields keep whatever was
// known when the failure occurred. Objective is always echoed.
type ResultMetadata struct {
	// RequestID correlates log lines and spans for this request
	RequestID string `json:"requestId,omitempty"`

	// Objective is the objective provided with the request
	Objective Objective `json:"objectiveProvided"`

	// Counts maps finding type to the number of findings of that type.
	// Types with no findings are absent.
	Counts map[FindingType]int `json:"resultMetaData"`

	// DocumentType and DocumentVersion are reported by the structural stage
	DocumentType    string `json:"ccdaDocumentType,omitempty"`
	DocumentVersion string `json:"ccdaVersion,omitempty"`

	// TotalConformanceChecks is the number of conformance rules considered
	TotalConformanceChecks int `json:"totalConformanceErrorChecks"`

	// SeverityLevel is the floor used for the request
	SeverityLevel string `json:"severityLevel"`

	// VocabularyConfigurationCount is the number of configured vocabulary checks
	VocabularyConfigurationCount int `json:"vocabularyValidationConfigurationsCount"`

	// VocabularyConfigurationErrorCount is the number of those checks that produced errors
	VocabularyConfigurationErrorCount int `json:"vocabularyValidationConfigurationsErrorCount"`

	// ServiceError is true when the pipeline failed
	ServiceError bool `json:"serviceError"`

	// ServiceErrorMessage is the user-facing failure message
	ServiceErrorMessage string `json:"serviceErrorMessage,omitempty"`

	// FileName is the original name of the submitted document
	FileName string `json:"ccdaFileName,omitempty"`

	// FileContents is the raw text of the submitted document
	FileContents string `json:"ccdaFileContents,omitempty"`
}

// Count returns the number of findings of type t.
func (m *ResultMetadata) Count(t FindingType) int {
	return m.Counts[t]
}

// AddCount increments the count for t.
func (m *ResultMetadata) AddCount(t FindingType) {
	if m.Counts == nil {
		m.Counts = make(map[FindingType]int)
	}
	m.Counts[t]++
}

// Result is the envelope returned for every validation request.
type Result struct {
	Metadata ResultMetadata `json:"resultsMetaData"`

	// Findings is never nil; it is empty when nothing ran or nothing was found
	Findings []Finding `json:"ccdaValidationResults"`
}

// NewResult creates an empty result for the objective.
func NewResult(objective Objective) *Result {
	return &Result{
		Metadata: ResultMetadata{
			Objective: objective,
			Counts:    make(map[FindingType]int),
		},
		Findings: make([]Finding, 0),
	}
}

// HasErrors returns true if the request failed or any finding is an error.
func (r *Result) HasErrors() bool {
	if r.Metadata.ServiceError {
		return true
	}
	for _, f := range r.Findings {
		if f.IsError() {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of error findings.
func (r *Result) ErrorCount() int {
	count := 0
	for _, f := range r.Findings {
		if f.IsError() {
			count++
		}
	}
	return count
}

// Errors returns all error findings.
func (r *Result) Errors() []Finding {
	var errors []Finding
	for _, f := range r.Findings {
		if f.IsError() {
			errors = append(errors, f)
		}
	}
	return errors
}

// ByStage returns the findings produced by stage, in order.
func (r *Result) ByStage(stage Stage) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Stage == stage {
			out = append(out, f)
		}
	}
	return out
}

// Clone creates a deep copy of the result.
func (r *Result) Clone() *Result {
	clone := &Result{
		Metadata: r.Metadata,
		Findings: make([]Finding, len(r.Findings)),
	}
	copy(clone.Findings, r.Findings)
	if r.Metadata.Counts != nil {
		clone.Metadata.Counts = make(map[FindingType]int, len(r.Metadata.Counts))
		for k, v := range r.Metadata.Counts {
			clone.Metadata.Counts[k] = v
		}
	}
	return clone
}
