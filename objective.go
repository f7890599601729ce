package ccdavalidator

import "strings"

// Objective names the certification profile a document is validated against.
// It selects which rules are in scope and drives stage gating.
type Objective string

// 2015 edition sender objectives.
const (
	ObjectiveB1ToCAmb       Objective = "170.315_b1_ToC_Amb"
	ObjectiveB1ToCInp       Objective = "170.315_b1_ToC_Inp"
	ObjectiveB4CCDSAmb      Objective = "170.315_b4_CCDS_Amb"
	ObjectiveB4CCDSInp      Objective = "170.315_b4_CCDS_Inp"
	ObjectiveB6DEAmb        Objective = "170.315_b6_DE_Amb"
	ObjectiveB6DEInp        Objective = "170.315_b6_DE_Inp"
	ObjectiveB7DS4PAmb      Objective = "170.315_b7_DS4P_Amb"
	ObjectiveB7DS4PInp      Objective = "170.315_b7_DS4P_Inp"
	ObjectiveB9CPAmb        Objective = "170.315_b9_CP_Amb"
	ObjectiveB9CPInp        Objective = "170.315_b9_CP_Inp"
	ObjectiveE1VDTAmb       Objective = "170.315_e1_VDT_Amb"
	ObjectiveE1VDTInp       Objective = "170.315_e1_VDT_Inp"
	ObjectiveG9APIAccessAmb Objective = "170.315_g9_APIAccess_Amb"
	ObjectiveG9APIAccessInp Objective = "170.315_g9_APIAccess_Inp"
)

// 2015 edition receiver objectives.
const (
	ObjectiveB1ToCReceiver Objective = "170.315_b1_ToC_Receiver"
	ObjectiveB2CIRIAmb     Objective = "170.315_b2_CIRI_Amb"
	ObjectiveB2CIRIInp     Objective = "170.315_b2_CIRI_Inp"
)

// IG-level objectives.
const (
	// ObjectiveCCDAIGOnly validates against the C-CDA IG structure only.
	ObjectiveCCDAIGOnly Objective = "C-CDA_IG_Only"
	// ObjectiveCCDAIGPlusVocab validates the IG structure and vocabulary.
	ObjectiveCCDAIGPlusVocab Objective = "C-CDA_IG_Plus_Vocab"
	// ObjectiveNonSpecificCCDA marks a document that targets no specific profile.
	ObjectiveNonSpecificCCDA Objective = "NonSpecificCCDA"
)

// 2014 edition document types. A structural engine validating one of these
// runs in alternate certification mode.
const (
	ObjectiveClinicalOfficeVisitSummary        Objective = "ClinicalOfficeVisitSummary"
	ObjectiveTransitionsOfCareAmbulatorySummary Objective = "TransitionsOfCareAmbulatorySummary"
	ObjectiveTransitionsOfCareInpatientSummary  Objective = "TransitionsOfCareInpatientSummary"
	ObjectiveVDTAmbulatorySummary               Objective = "VDTAmbulatorySummary"
	ObjectiveVDTInpatientSummary                Objective = "VDTInpatientSummary"
)

// uniqueContentObjectives are the objectives eligible for content validation.
var uniqueContentObjectives = []Objective{
	ObjectiveB1ToCAmb,
	ObjectiveB1ToCInp,
	ObjectiveB6DEAmb,
	ObjectiveB6DEInp,
	ObjectiveB9CPAmb,
	ObjectiveB9CPInp,
	ObjectiveE1VDTAmb,
	ObjectiveE1VDTInp,
	ObjectiveG9APIAccessAmb,
	ObjectiveG9APIAccessInp,
}

var alternateCertificationObjectives = []Objective{
	ObjectiveClinicalOfficeVisitSummary,
	ObjectiveTransitionsOfCareAmbulatorySummary,
	ObjectiveTransitionsOfCareInpatientSummary,
	ObjectiveVDTAmbulatorySummary,
	ObjectiveVDTInpatientSummary,
}

// String returns the objective name.
func (o Objective) String() string {
	return string(o)
}

// Is reports whether o names the same objective as other, ignoring case.
func (o Objective) Is(other Objective) bool {
	return strings.EqualFold(string(o), string(other))
}

// IsOneOf reports whether o matches any of the given objectives, ignoring case.
func (o Objective) IsOneOf(objectives ...Objective) bool {
	for _, candidate := range objectives {
		if o.Is(candidate) {
			return true
		}
	}
	return false
}

// IsAlternateCertification reports whether o is a 2014 edition document type.
// Structural engines that do not report the mode themselves can use this.
func (o Objective) IsAlternateCertification() bool {
	return o.IsOneOf(alternateCertificationObjectives...)
}

// AllowsVocabulary reports whether vocabulary validation may run for the
// objective. alternateCertification is the mode reported by the structural
// stage for this document.
func AllowsVocabulary(objective Objective, alternateCertification bool) bool {
	return !objective.Is(ObjectiveCCDAIGOnly) &&
		!alternateCertification &&
		!objective.Is(ObjectiveNonSpecificCCDA)
}

// AllowsContent reports whether the objective is eligible for content
// validation. Content validation additionally requires that vocabulary
// validation ran.
func AllowsContent(objective Objective) bool {
	return objective.IsOneOf(uniqueContentObjectives...)
}

// UniqueContentObjectives returns the objectives eligible for content validation.
func UniqueContentObjectives() []Objective {
	out := make([]Objective, len(uniqueContentObjectives))
	copy(out, uniqueContentObjectives)
	return out
}

// KnownObjectives returns every objective this package defines, in a stable order.
func KnownObjectives() []Objective {
	return []Objective{
		ObjectiveB1ToCAmb, ObjectiveB1ToCInp,
		ObjectiveB4CCDSAmb, ObjectiveB4CCDSInp,
		ObjectiveB6DEAmb, ObjectiveB6DEInp,
		ObjectiveB7DS4PAmb, ObjectiveB7DS4PInp,
		ObjectiveB9CPAmb, ObjectiveB9CPInp,
		ObjectiveE1VDTAmb, ObjectiveE1VDTInp,
		ObjectiveG9APIAccessAmb, ObjectiveG9APIAccessInp,
		ObjectiveB1ToCReceiver, ObjectiveB2CIRIAmb, ObjectiveB2CIRIInp,
		ObjectiveCCDAIGOnly, ObjectiveCCDAIGPlusVocab, ObjectiveNonSpecificCCDA,
		ObjectiveClinicalOfficeVisitSummary,
		ObjectiveTransitionsOfCareAmbulatorySummary,
		ObjectiveTransitionsOfCareInpatientSummary,
		ObjectiveVDTAmbulatorySummary,
		ObjectiveVDTInpatientSummary,
	}
}
