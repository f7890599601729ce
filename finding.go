package ccdavalidator

// FindingType is the category tag of a finding. Result metadata counts
// findings per type.
type FindingType string

// Structural (IG conformance) finding types.
const (
	FindingConformanceError   FindingType = "C-CDA MDHT Conformance Error"
	FindingConformanceWarning FindingType = "C-CDA MDHT Conformance Warning"
	FindingConformanceInfo    FindingType = "C-CDA MDHT Conformance Info"
)

// Vocabulary finding types.
const (
	FindingVocabularyError   FindingType = "ONC 2015 S&CC Vocabulary Validation Conformance Error"
	FindingVocabularyWarning FindingType = "ONC 2015 S&CC Vocabulary Validation Conformance Warning"
	FindingVocabularyInfo    FindingType = "ONC 2015 S&CC Vocabulary Validation Conformance Info"
)

// Content finding types.
const (
	FindingContentError   FindingType = "ONC 2015 S&CC Reference C-CDA Validation Error"
	FindingContentWarning FindingType = "ONC 2015 S&CC Reference C-CDA Validation Warning"
	FindingContentInfo    FindingType = "ONC 2015 S&CC Reference C-CDA Validation Info"
)

// Severity returns the severity implied by the type, defaulting to INFO for
// types this package does not define.
func (t FindingType) Severity() SeverityLevel {
	switch t {
	case FindingConformanceError, FindingVocabularyError, FindingContentError:
		return SeverityError
	case FindingConformanceWarning, FindingVocabularyWarning, FindingContentWarning:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Stage names the validation stage that produced a finding.
type Stage string

// Validation stages in execution order.
const (
	StageStructural Stage = "structural"
	StageVocabulary Stage = "vocabulary"
	StageContent    Stage = "content"
)

// Finding is a single issue reported by a validation engine.
// Fields other than Type and SchemaError are engine details passed through
// unchanged.
type Finding struct {
	// Type is the category tag used for counting
	Type FindingType `json:"type"`

	// SchemaError marks a schema or structural error. Any such finding from the
	// structural stage prevents vocabulary and content validation.
	SchemaError bool `json:"isSchemaError"`

	// Description is the engine's message
	Description string `json:"description,omitempty"`

	// XPath locates the offending node
	XPath string `json:"xPath,omitempty"`

	// DocumentLineNumber is the source line, as reported by the engine
	DocumentLineNumber string `json:"documentLineNumber,omitempty"`

	// ExpectedValue and ActualValue carry vocabulary and content comparisons
	ExpectedValue string `json:"expectedValue,omitempty"`
	ActualValue   string `json:"actualValue,omitempty"`

	// Stage is the stage that produced the finding
	Stage Stage `json:"stage,omitempty"`
}

// IsError returns true if the finding type is an error category.
func (f Finding) IsError() bool {
	return f.Type.Severity() == SeverityError
}

// String returns a human-readable representation of the finding.
func (f Finding) String() string {
	s := string(f.Type) + ": " + f.Description
	if f.XPath != "" {
		s += " at " + f.XPath
	}
	if f.DocumentLineNumber != "" {
		s += " (line " + f.DocumentLineNumber + ")"
	}
	return s
}

// FindingBuilder provides a fluent API for building findings.
type FindingBuilder struct {
	finding Finding
}

// NewFinding creates a FindingBuilder for the given type.
func NewFinding(t FindingType) *FindingBuilder {
	return &FindingBuilder{finding: Finding{Type: t}}
}

// Description sets the message.
func (b *FindingBuilder) Description(msg string) *FindingBuilder {
	b.finding.Description = msg
	return b
}

// At sets the XPath location.
func (b *FindingBuilder) At(xpath string) *FindingBuilder {
	b.finding.XPath = xpath
	return b
}

// Line sets the document line number.
func (b *FindingBuilder) Line(line string) *FindingBuilder {
	b.finding.DocumentLineNumber = line
	return b
}

// Values sets the expected and actual values.
func (b *FindingBuilder) Values(expected, actual string) *FindingBuilder {
	b.finding.ExpectedValue = expected
	b.finding.ActualValue = actual
	return b
}

// Schema marks the finding as a schema error.
func (b *FindingBuilder) Schema() *FindingBuilder {
	b.finding.SchemaError = true
	return b
}

// Stage sets the producing stage.
func (b *FindingBuilder) Stage(stage Stage) *FindingBuilder {
	b.finding.Stage = stage
	return b
}

// Build returns the constructed finding.
func (b *FindingBuilder) Build() Finding {
	return b.finding
}

// HasSchemaError reports whether any finding is flagged as a schema error.
func HasSchemaError(findings []Finding) bool {
	for _, f := range findings {
		if f.SchemaError {
			return true
		}
	}
	return false
}
