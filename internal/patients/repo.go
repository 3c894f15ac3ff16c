package patients

import "context"

// Repo defines persistence operations for patient profiles.
type Repo interface {
	Create(ctx context.Context, patient Patient) error
	GetByID(ctx context.Context, patientID string) (Patient, error)
	// GetOrCreate returns the profile with the given name, creating it
	// atomically when absent. Concurrent calls for the same name must
	// converge on one row.
	GetOrCreate(ctx context.Context, patient Patient) (Patient, error)
	ListByUser(ctx context.Context, userID string) ([]Patient, error)
	Update(ctx context.Context, patient Patient) error
	Delete(ctx context.Context, patientID string) error
}
