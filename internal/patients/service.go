package patients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service contains business logic for patient profiles.
type Service struct {
	Repo Repo
}

// List returns a user's profiles, main profile first.
func (s *Service) List(ctx context.Context, userID string) ([]Patient, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}
	return s.Repo.ListByUser(ctx, userID)
}

// Get returns a profile, enforcing ownership.
func (s *Service) Get(ctx context.Context, userID, patientID string) (Patient, error) {
	patient, err := s.Repo.GetByID(ctx, patientID)
	if err != nil {
		return Patient{}, err
	}
	if patient.UserID != userID {
		return Patient{}, ErrForbidden
	}
	return patient, nil
}

// Create adds a named profile for the user.
func (s *Service) Create(ctx context.Context, userID, fullName string, birthDate *time.Time, gender string) (Patient, error) {
	fullName = strings.TrimSpace(fullName)
	if userID == "" || fullName == "" {
		return Patient{}, errors.New("userID and fullName are required")
	}
	if fullName == MainProfileName {
		return Patient{}, ErrNameTaken
	}
	patient := Patient{
		ID:        uuid.NewString(),
		UserID:    userID,
		FullName:  fullName,
		BirthDate: birthDate,
		Gender:    normalizeGender(gender),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, patient); err != nil {
		return Patient{}, err
	}
	return patient, nil
}

// UpdateParams carries a partial profile edit. Nil fields keep their current
// value; BirthDateSet with a nil BirthDate clears the stored date.
type UpdateParams struct {
	FullName     *string
	BirthDate    *time.Time
	BirthDateSet bool
	Gender       *string
}

// Update applies a partial edit. The main profile keeps its reserved name but
// its demographics may change.
func (s *Service) Update(ctx context.Context, userID, patientID string, params UpdateParams) (Patient, error) {
	patient, err := s.Get(ctx, userID, patientID)
	if err != nil {
		return Patient{}, err
	}
	if params.FullName != nil {
		fullName := strings.TrimSpace(*params.FullName)
		if patient.IsMain && fullName != "" && fullName != patient.FullName {
			return Patient{}, ErrMainProfile
		}
		if fullName != "" {
			patient.FullName = fullName
		}
	}
	if params.BirthDateSet {
		patient.BirthDate = params.BirthDate
	}
	if params.Gender != nil {
		patient.Gender = normalizeGender(*params.Gender)
	}
	if err := s.Repo.Update(ctx, patient); err != nil {
		return Patient{}, err
	}
	return patient, nil
}

// Delete removes a profile and its indicator history. The main profile
// cannot be deleted.
func (s *Service) Delete(ctx context.Context, userID, patientID string) error {
	patient, err := s.Get(ctx, userID, patientID)
	if err != nil {
		return err
	}
	if patient.IsMain {
		return ErrMainProfile
	}
	return s.Repo.Delete(ctx, patientID)
}

// GetOrCreateByName resolves the profile carrying a patient name read off a
// document, creating it when first seen.
func (s *Service) GetOrCreateByName(ctx context.Context, userID, fullName string) (Patient, error) {
	fullName = strings.TrimSpace(fullName)
	if userID == "" || fullName == "" {
		return Patient{}, errors.New("userID and fullName are required")
	}
	return s.Repo.GetOrCreate(ctx, Patient{
		ID:        uuid.NewString(),
		UserID:    userID,
		FullName:  fullName,
		CreatedAt: time.Now().UTC(),
	})
}

// Main returns the user's main profile, creating it on first use.
func (s *Service) Main(ctx context.Context, userID string) (Patient, error) {
	if userID == "" {
		return Patient{}, errors.New("userID is required")
	}
	return s.Repo.GetOrCreate(ctx, Patient{
		ID:        uuid.NewString(),
		UserID:    userID,
		FullName:  MainProfileName,
		IsMain:    true,
		CreatedAt: time.Now().UTC(),
	})
}

// ContextFor renders the patient description handed to the interpretation
// stage. Returns an empty string when nothing useful is known.
func (s *Service) ContextFor(ctx context.Context, patientID string) (string, error) {
	patient, err := s.Repo.GetByID(ctx, patientID)
	if err != nil {
		return "", err
	}

	var parts []string
	if !patient.IsMain {
		parts = append(parts, fmt.Sprintf("Name: %s.", patient.FullName))
	}
	if patient.Gender != "" {
		parts = append(parts, fmt.Sprintf("Gender: %s.", patient.Gender))
	}
	if patient.BirthDate != nil {
		age := yearsSince(*patient.BirthDate, time.Now().UTC())
		parts = append(parts, fmt.Sprintf("Age: %d (born %s).", age, patient.BirthDate.Format("2006-01-02")))
	}
	return strings.Join(parts, " "), nil
}

func normalizeGender(gender string) string {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "m", "male":
		return "male"
	case "f", "female":
		return "female"
	default:
		return ""
	}
}

func yearsSince(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.YearDay() < birth.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
