package indicators

import "time"

// AnalysisIndicator is one normalized measurement row. Value is nil when the
// printed text could not be coerced to a number; StringValue keeps the
// original text either way.
type AnalysisIndicator struct {
	ID          string
	AnalysisID  string
	PatientID   string
	Slug        string
	Name        string
	Value       *float64
	StringValue string
	Unit        string
	Date        time.Time
	CreatedAt   time.Time
}

// Point is one charted measurement.
type Point struct {
	Date       time.Time `json:"date"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit,omitempty"`
	AnalysisID string    `json:"analysisId"`
}

// Series is the chartable history of one indicator for a patient.
type Series struct {
	Slug   string  `json:"slug"`
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}
