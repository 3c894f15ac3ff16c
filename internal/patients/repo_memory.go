package patients

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores profiles in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]Patient
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Patient)}
}

var _ Repo = (*MemoryRepo)(nil)

// Create inserts a new profile.
func (r *MemoryRepo) Create(ctx context.Context, patient Patient) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findByName(patient.UserID, patient.FullName) != nil {
		return ErrNameTaken
	}
	r.byID[patient.ID] = patient
	return nil
}

// GetByID returns a profile by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, patientID string) (Patient, error) {
	if err := ctx.Err(); err != nil {
		return Patient{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[patientID]
	if !ok {
		return Patient{}, ErrNotFound
	}
	return p, nil
}

// GetOrCreate inserts the profile or returns the row with the same name.
func (r *MemoryRepo) GetOrCreate(ctx context.Context, patient Patient) (Patient, error) {
	if err := ctx.Err(); err != nil {
		return Patient{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing := r.findByName(patient.UserID, patient.FullName); existing != nil {
		return *existing, nil
	}
	r.byID[patient.ID] = patient
	return patient, nil
}

// ListByUser lists a user's profiles, main profile first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Patient
	for _, p := range r.byID {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsMain != out[j].IsMain {
			return out[i].IsMain
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Update stores mutable profile fields.
func (r *MemoryRepo) Update(ctx context.Context, patient Patient) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[patient.ID]
	if !ok {
		return ErrNotFound
	}
	if other := r.findByName(existing.UserID, patient.FullName); other != nil && other.ID != patient.ID {
		return ErrNameTaken
	}
	existing.FullName = patient.FullName
	existing.BirthDate = patient.BirthDate
	existing.Gender = patient.Gender
	r.byID[patient.ID] = existing
	return nil
}

// Delete removes a profile.
func (r *MemoryRepo) Delete(ctx context.Context, patientID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[patientID]; !ok {
		return ErrNotFound
	}
	delete(r.byID, patientID)
	return nil
}

func (r *MemoryRepo) findByName(userID, fullName string) *Patient {
	for _, p := range r.byID {
		if p.UserID == userID && p.FullName == fullName {
			found := p
			return &found
		}
	}
	return nil
}
