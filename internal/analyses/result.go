package analyses

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Indicator status values the interpretation stages are allowed to emit.
const (
	IndicatorNormal   = "normal"
	IndicatorLow      = "low"
	IndicatorHigh     = "high"
	IndicatorCritical = "critical"
)

// PatientInfo is demographic metadata the model read off the document.
type PatientInfo struct {
	ExtractedName      string `json:"extracted_name,omitempty"`
	ExtractedBirthDate string `json:"extracted_birth_date,omitempty"`
	ExtractedGender    string `json:"extracted_gender,omitempty"`
}

// Summary is the headline verdict of an analysis.
type Summary struct {
	IsCritical     bool   `json:"is_critical"`
	GeneralComment string `json:"general_comment"`
}

// Indicator is one interpreted lab measurement. Value keeps the printed text
// verbatim; Slug is the stable chart key and may be absent when the model
// could not recognize the measurement.
type Indicator struct {
	Name     string `json:"name"`
	Slug     string `json:"slug,omitempty"`
	Value    string `json:"value"`
	Unit     string `json:"unit,omitempty"`
	RefRange string `json:"ref_range,omitempty"`
	Status   string `json:"status"`
	Comment  string `json:"comment,omitempty"`
}

// Cause is one likely explanation for the observed deviations.
type Cause struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Recommendation is one suggested follow-up action.
type Recommendation struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// AIResult is the final structured output of the analysis pipeline,
// persisted verbatim on the analysis row.
type AIResult struct {
	Reasoning       string           `json:"reasoning"`
	PatientInfo     *PatientInfo     `json:"patient_info,omitempty"`
	Summary         *Summary         `json:"summary"`
	Indicators      []Indicator      `json:"indicators"`
	Causes          []Cause          `json:"causes"`
	Recommendations []Recommendation `json:"recommendations"`
}

// RawIndicator is one measurement exactly as printed on the report, before
// any clinical interpretation.
type RawIndicator struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Unit     string `json:"unit,omitempty"`
	RefRange string `json:"ref_range,omitempty"`
}

// RawExtraction is the stage-one output: literal document content only.
type RawExtraction struct {
	LabName     string         `json:"lab_name,omitempty"`
	TestDate    string         `json:"test_date,omitempty"`
	PatientName string         `json:"patient_name,omitempty"`
	Indicators  []RawIndicator `json:"indicators"`
}

// DecodeAIResult parses and validates a model response at the trust boundary.
// Anything short of a complete, well-formed result is an error; the caller
// converts it into a gateway failure.
func DecodeAIResult(raw json.RawMessage) (*AIResult, error) {
	var result AIResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if result.Summary == nil || strings.TrimSpace(result.Summary.GeneralComment) == "" {
		return nil, fmt.Errorf("result is missing a summary")
	}
	for i, ind := range result.Indicators {
		if strings.TrimSpace(ind.Name) == "" {
			return nil, fmt.Errorf("indicator %d has no name", i)
		}
		switch ind.Status {
		case IndicatorNormal, IndicatorLow, IndicatorHigh, IndicatorCritical:
		default:
			return nil, fmt.Errorf("indicator %q has invalid status %q", ind.Name, ind.Status)
		}
	}
	for i, c := range result.Causes {
		if strings.TrimSpace(c.Title) == "" {
			return nil, fmt.Errorf("cause %d has no title", i)
		}
	}
	return &result, nil
}

// DecodeRawExtraction validates stage-one output. The extraction may legally
// carry zero indicators (an unreadable photo), but it must be well-formed.
func DecodeRawExtraction(raw json.RawMessage) (*RawExtraction, error) {
	var extraction RawExtraction
	if err := json.Unmarshal(raw, &extraction); err != nil {
		return nil, fmt.Errorf("decode extraction: %w", err)
	}
	for i, ind := range extraction.Indicators {
		if strings.TrimSpace(ind.Name) == "" {
			return nil, fmt.Errorf("extracted indicator %d has no name", i)
		}
	}
	return &extraction, nil
}
