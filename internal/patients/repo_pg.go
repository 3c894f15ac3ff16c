package patients

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

const patientColumns = `id, user_id, full_name, birth_date, gender, is_main, created_at`

// Create inserts a new profile.
func (r *PGRepo) Create(ctx context.Context, patient Patient) error {
	const query = `
INSERT INTO patient_profiles (id, user_id, full_name, birth_date, gender, is_main, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query,
		patient.ID,
		patient.UserID,
		patient.FullName,
		patient.BirthDate,
		nullIfEmpty(patient.Gender),
		patient.IsMain,
		patient.CreatedAt,
	)
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return ErrNameTaken
	}
	return err
}

// GetByID returns a profile by ID.
func (r *PGRepo) GetByID(ctx context.Context, patientID string) (Patient, error) {
	const query = `
SELECT ` + patientColumns + `
FROM patient_profiles
WHERE id = $1
LIMIT 1`
	p, err := scanPatient(r.DB.QueryRowContext(ctx, query, patientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Patient{}, ErrNotFound
		}
		return Patient{}, err
	}
	return p, nil
}

// GetOrCreate inserts the profile or returns the existing row with the same
// name. The upsert serializes concurrent callers on the unique constraint.
func (r *PGRepo) GetOrCreate(ctx context.Context, patient Patient) (Patient, error) {
	const query = `
INSERT INTO patient_profiles (id, user_id, full_name, birth_date, gender, is_main, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id, full_name) DO UPDATE SET full_name = EXCLUDED.full_name
RETURNING ` + patientColumns
	p, err := scanPatient(r.DB.QueryRowContext(ctx, query,
		patient.ID,
		patient.UserID,
		patient.FullName,
		patient.BirthDate,
		nullIfEmpty(patient.Gender),
		patient.IsMain,
		patient.CreatedAt,
	))
	if err != nil {
		return Patient{}, err
	}
	return p, nil
}

// ListByUser lists a user's profiles, main profile first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Patient, error) {
	const query = `
SELECT ` + patientColumns + `
FROM patient_profiles
WHERE user_id = $1
ORDER BY is_main DESC, created_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update stores mutable profile fields.
func (r *PGRepo) Update(ctx context.Context, patient Patient) error {
	const query = `
UPDATE patient_profiles
SET full_name = $1,
    birth_date = $2,
    gender = $3
WHERE id = $4`
	res, err := r.DB.ExecContext(ctx, query,
		patient.FullName,
		patient.BirthDate,
		nullIfEmpty(patient.Gender),
		patient.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrNameTaken
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a profile and, via cascade, its indicator history.
func (r *PGRepo) Delete(ctx context.Context, patientID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM patient_profiles WHERE id = $1`, patientID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (Patient, error) {
	var p Patient
	var birthDate sql.NullTime
	var gender sql.NullString
	if err := row.Scan(&p.ID, &p.UserID, &p.FullName, &birthDate, &gender, &p.IsMain, &p.CreatedAt); err != nil {
		return Patient{}, err
	}
	if birthDate.Valid {
		t := birthDate.Time
		p.BirthDate = &t
	}
	if gender.Valid {
		p.Gender = gender.String
	}
	return p, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
