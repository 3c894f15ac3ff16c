package analyses

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores analyses in memory and is safe for concurrent use.
// Used in development without a database and in tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Analysis
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Analysis)}
}

var _ Repo = (*MemoryRepo)(nil)

// Create stores the analysis.
func (r *MemoryRepo) Create(ctx context.Context, analysis Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[analysis.ID] = analysis
	return nil
}

// GetByID returns an analysis by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	analysis, ok := r.byID[analysisID]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return analysis, nil
}

// UpdateStatus updates status and error message.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, analysisID, status string, errorMessage *string) error {
	return r.update(ctx, analysisID, func(a *Analysis) error {
		a.Status = status
		a.ErrorMessage = errorMessage
		return nil
	})
}

// MarkCompleted stores the result and flips status to completed.
func (r *MemoryRepo) MarkCompleted(ctx context.Context, analysisID string, result *AIResult) error {
	return r.update(ctx, analysisID, func(a *Analysis) error {
		a.Status = StatusCompleted
		a.Result = result
		a.ErrorMessage = nil
		return nil
	})
}

// SetAttempts records how many runs the analysis has gone through.
func (r *MemoryRepo) SetAttempts(ctx context.Context, analysisID string, attempts int) error {
	return r.update(ctx, analysisID, func(a *Analysis) error {
		a.Attempts = attempts
		return nil
	})
}

// AssignUser links an unowned analysis to a user.
func (r *MemoryRepo) AssignUser(ctx context.Context, analysisID, userID string) error {
	return r.update(ctx, analysisID, func(a *Analysis) error {
		if a.UserID != "" && a.UserID != userID {
			return ErrClaimed
		}
		a.UserID = userID
		return nil
	})
}

// AssignPatient links the analysis to a patient profile.
func (r *MemoryRepo) AssignPatient(ctx context.Context, analysisID, patientID string) error {
	return r.update(ctx, analysisID, func(a *Analysis) error {
		a.PatientID = patientID
		return nil
	})
}

// ListByUser returns analyses for a user, newest first, with limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	var analyses []Analysis
	for _, a := range r.byID {
		if a.UserID == userID && userID != "" {
			analyses = append(analyses, a)
		}
	}
	r.mu.RUnlock()

	sort.Slice(analyses, func(i, j int) bool {
		return analyses[i].CreatedAt.After(analyses[j].CreatedAt)
	})

	if offset >= len(analyses) {
		return []Analysis{}, nil
	}
	end := len(analyses)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return analyses[offset:end], nil
}

func (r *MemoryRepo) update(ctx context.Context, analysisID string, fn func(*Analysis) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis, ok := r.byID[analysisID]
	if !ok {
		return ErrNotFound
	}
	if err := fn(&analysis); err != nil {
		return err
	}
	analysis.UpdatedAt = time.Now().UTC()
	r.byID[analysisID] = analysis
	return nil
}
