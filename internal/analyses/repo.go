package analyses

import "context"

// Repo defines persistence operations for analyses.
type Repo interface {
	Create(ctx context.Context, analysis Analysis) error
	GetByID(ctx context.Context, analysisID string) (Analysis, error)
	// UpdateStatus moves an analysis to the given status. A non-nil
	// errorMessage replaces the stored one; nil clears it.
	UpdateStatus(ctx context.Context, analysisID, status string, errorMessage *string) error
	// MarkCompleted stores the final result and flips status to completed.
	MarkCompleted(ctx context.Context, analysisID string, result *AIResult) error
	SetAttempts(ctx context.Context, analysisID string, attempts int) error
	// AssignUser links an unowned analysis to a user. Returns ErrClaimed
	// when the analysis already belongs to someone else.
	AssignUser(ctx context.Context, analysisID, userID string) error
	AssignPatient(ctx context.Context, analysisID, patientID string) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error)
}
