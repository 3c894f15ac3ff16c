package indicators

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores indicator rows in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.Mutex
	rows []AnalysisIndicator
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

var _ Repo = (*MemoryRepo)(nil)

// ReplaceForAnalysis swaps all rows belonging to the analysis.
func (r *MemoryRepo) ReplaceForAnalysis(ctx context.Context, analysisID string, rows []AnalysisIndicator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.AnalysisID != analysisID {
			kept = append(kept, row)
		}
	}
	r.rows = append(kept, rows...)
	return nil
}

// HistoryByPatient returns numeric rows, ordered by slug then date.
func (r *MemoryRepo) HistoryByPatient(ctx context.Context, patientID string, slugs []string) ([]AnalysisIndicator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(slugs))
	for _, slug := range slugs {
		wanted[slug] = struct{}{}
	}

	r.mu.Lock()
	var out []AnalysisIndicator
	for _, row := range r.rows {
		if row.PatientID != patientID || row.Value == nil {
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[row.Slug]; !ok {
				continue
			}
		}
		out = append(out, row)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Slug != out[j].Slug {
			return out[i].Slug < out[j].Slug
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// RowsForAnalysis returns the stored rows for an analysis, for tests.
func (r *MemoryRepo) RowsForAnalysis(analysisID string) []AnalysisIndicator {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AnalysisIndicator
	for _, row := range r.rows {
		if row.AnalysisID == analysisID {
			out = append(out, row)
		}
	}
	return out
}
