// Package report renders stored screenings for clinicians and other systems:
// HL7 FHIR R4 resources, trajectory charts and an HTML dashboard.
package report

import (
	"fmt"
	"time"

	"github.com/tarang-screening-server/internal/domain"
)

const (
	loincSystem           = "http://loinc.org"
	observationCategories = "http://terminology.hl7.org/CodeSystem/observation-category"
	diagnosticSections    = "http://terminology.hl7.org/CodeSystem/v2-0074"
	ucumSystem            = "http://unitsofmeasure.org"
)

// Resource kinds accepted by Resource.
const (
	KindObservation = "observation"
	KindReport      = "report"
)

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Reference struct {
	Reference string `json:"reference,omitempty"`
	Display   string `json:"display,omitempty"`
}

type Quantity struct {
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
	System string  `json:"system"`
	Code   string  `json:"code"`
}

type Annotation struct {
	Text string `json:"text"`
}

type Attachment struct {
	ContentType string `json:"contentType"`
	URL         string `json:"url"`
}

// Observation is the subset of the FHIR R4 Observation resource used for a
// screening risk score.
type Observation struct {
	ResourceType      string            `json:"resourceType"`
	ID                string            `json:"id"`
	Status            string            `json:"status"`
	Category          []CodeableConcept `json:"category"`
	Code              CodeableConcept   `json:"code"`
	Subject           Reference         `json:"subject"`
	EffectiveDateTime string            `json:"effectiveDateTime"`
	ValueQuantity     Quantity          `json:"valueQuantity"`
	Interpretation    []CodeableConcept `json:"interpretation"`
	Note              []Annotation      `json:"note"`
}

// DiagnosticReport is the subset of the FHIR R4 DiagnosticReport resource
// used for a screening summary.
type DiagnosticReport struct {
	ResourceType      string            `json:"resourceType"`
	ID                string            `json:"id"`
	Status            string            `json:"status"`
	Category          []CodeableConcept `json:"category"`
	Code              CodeableConcept   `json:"code"`
	Subject           Reference         `json:"subject"`
	EffectiveDateTime string            `json:"effectiveDateTime"`
	Issued            string            `json:"issued"`
	Conclusion        string            `json:"conclusion"`
	PresentedForm     []Attachment      `json:"presentedForm"`
}

func subject(s *domain.ScreeningSession) Reference {
	return Reference{Reference: "Patient/" + s.PatientID, Display: s.PatientName}
}

func effective(s *domain.ScreeningSession) string {
	if s.CreatedAt.IsZero() {
		return time.Now().UTC().Format(time.RFC3339)
	}
	return s.CreatedAt.UTC().Format(time.RFC3339)
}

// ToObservation maps a session's risk score to an Observation.
func ToObservation(s *domain.ScreeningSession) Observation {
	interpretation := string(s.Interpretation)
	if interpretation == "" {
		interpretation = "No clinical interpretation provided"
	}

	return Observation{
		ResourceType: "Observation",
		ID:           "tarang-obs-" + s.ID,
		Status:       "final",
		Category: []CodeableConcept{{
			Coding: []Coding{{System: observationCategories, Code: "survey", Display: "Survey"}},
		}},
		Code: CodeableConcept{
			Coding: []Coding{{System: loincSystem, Code: "80321-3", Display: "Autism screening panel"}},
			Text:   "Multimodal Autism Screening Risk Score",
		},
		Subject:           subject(s),
		EffectiveDateTime: effective(s),
		ValueQuantity: Quantity{
			Value:  s.RiskScore,
			Unit:   "percent",
			System: ucumSystem,
			Code:   "%",
		},
		Interpretation: []CodeableConcept{{Text: interpretation}},
		Note: []Annotation{{
			Text: fmt.Sprintf("Confidence: %s. Dissonance: %.2f", s.Confidence, s.DissonanceFactor),
		}},
	}
}

// ToDiagnosticReport maps a session to a DiagnosticReport issued at issued.
func ToDiagnosticReport(s *domain.ScreeningSession, issued time.Time) DiagnosticReport {
	conclusion := s.ClinicalRecommendation
	if conclusion == "" {
		conclusion = "Recommended manual review by a clinical specialist."
	}

	return DiagnosticReport{
		ResourceType: "DiagnosticReport",
		ID:           "tarang-report-" + s.ID,
		Status:       "final",
		Category: []CodeableConcept{{
			Coding: []Coding{{System: diagnosticSections, Code: "PSYCH", Display: "Psychiatry"}},
		}},
		Code:              CodeableConcept{Text: "TARANG Multimodal Autism Screening Summary"},
		Subject:           subject(s),
		EffectiveDateTime: effective(s),
		Issued:            issued.UTC().Format(time.RFC3339),
		Conclusion:        conclusion,
		PresentedForm: []Attachment{{
			ContentType: "application/json",
			URL:         "/api/v1/screenings/" + s.ID,
		}},
	}
}

// Resource returns the FHIR resource of the given kind. An empty kind
// selects the Observation.
func Resource(kind string, s *domain.ScreeningSession, now time.Time) (any, error) {
	switch kind {
	case "", KindObservation:
		return ToObservation(s), nil
	case KindReport:
		return ToDiagnosticReport(s, now), nil
	default:
		return nil, domain.NewValidationError("type", "must be observation or report", kind)
	}
}
