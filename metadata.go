package ccdavalidator

// DocumentFacts are facts about the document reported by the structural
// stage alongside its findings.
type DocumentFacts struct {
	// DocumentType is the C-CDA document type detected, e.g. "Continuity of Care Document"
	DocumentType string `json:"documentType,omitempty"`

	// Version is the C-CDA release detected, e.g. "R2.1"
	Version DocumentVersion `json:"version,omitempty"`

	// TotalConformanceChecks is the number of conformance rules the engine considered
	TotalConformanceChecks int `json:"totalConformanceChecks"`

	// AlternateCertification is true when the engine validated the document
	// under a 2014 edition objective
	AlternateCertification bool `json:"alternateCertification"`
}

// VocabularyCoverage is the aggregate reported by the vocabulary stage.
type VocabularyCoverage struct {
	// ConfigurationCount is the number of vocabulary checks configured
	ConfigurationCount int `json:"configurationCount"`

	// ConfigurationErrorCount is the number of checks that produced an error
	ConfigurationErrorCount int `json:"configurationErrorCount"`
}

// MetadataInput is everything the aggregator needs. Facts and Coverage are
// nil when the corresponding stage did not run.
type MetadataInput struct {
	Findings  []Finding
	Objective Objective
	Severity  SeverityLevel
	Facts     *DocumentFacts
	Coverage  *VocabularyCoverage
}

// BuildMetadata derives result metadata from accumulated findings and the
// facts returned by the stages that ran. It never fails; values for stages
// that did not run stay at their zero value.
func BuildMetadata(in MetadataInput) ResultMetadata {
	md := ResultMetadata{
		Objective:     in.Objective,
		Counts:        make(map[FindingType]int),
		SeverityLevel: in.Severity.String(),
	}

	for _, f := range in.Findings {
		md.AddCount(f.Type)
	}

	if in.Facts != nil {
		md.DocumentType = in.Facts.DocumentType
		md.DocumentVersion = in.Facts.Version.String()
		md.TotalConformanceChecks = in.Facts.TotalConformanceChecks
	}

	if in.Coverage != nil {
		md.VocabularyConfigurationCount = in.Coverage.ConfigurationCount
		md.VocabularyConfigurationErrorCount = in.Coverage.ConfigurationErrorCount
	}

	return md
}
