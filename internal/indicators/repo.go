package indicators

import "context"

// Repo defines persistence operations for normalized indicators.
type Repo interface {
	// ReplaceForAnalysis atomically swaps all rows belonging to the
	// analysis. Re-running a document never duplicates its history.
	ReplaceForAnalysis(ctx context.Context, analysisID string, rows []AnalysisIndicator) error
	// HistoryByPatient returns numeric rows for the patient ordered by
	// date then slug. An empty slugs list means all slugs.
	HistoryByPatient(ctx context.Context, patientID string, slugs []string) ([]AnalysisIndicator, error)
}
