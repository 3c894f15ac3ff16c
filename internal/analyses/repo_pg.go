package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

const analysisColumns = `id, user_id, patient_id, storage_key, file_name, mime_type, status, ai_result, error_message, attempts, created_at, updated_at`

// Create inserts a new analysis.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) error {
	const query = `
INSERT INTO analyses (id, user_id, patient_id, storage_key, file_name, mime_type, status, attempts, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`
	_, err := r.DB.ExecContext(ctx, query,
		analysis.ID,
		nullString(analysis.UserID),
		nullString(analysis.PatientID),
		analysis.StorageKey,
		analysis.FileName,
		analysis.MimeType,
		analysis.Status,
		analysis.Attempts,
		analysis.CreatedAt,
	)
	return err
}

// GetByID returns an analysis by ID.
func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	const query = `
SELECT ` + analysisColumns + `
FROM analyses
WHERE id = $1
LIMIT 1`
	row := r.DB.QueryRowContext(ctx, query, analysisID)
	a, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Analysis{}, ErrNotFound
		}
		return Analysis{}, err
	}
	return a, nil
}

// UpdateStatus updates status and error message.
func (r *PGRepo) UpdateStatus(ctx context.Context, analysisID, status string, errorMessage *string) error {
	const query = `
UPDATE analyses
SET status = $1,
    error_message = $2,
    updated_at = now()
WHERE id = $3`
	res, err := r.DB.ExecContext(ctx, query, status, errorMessage, analysisID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MarkCompleted stores the result payload and flips status to completed.
func (r *PGRepo) MarkCompleted(ctx context.Context, analysisID string, result *AIResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	const query = `
UPDATE analyses
SET status = 'completed',
    ai_result = $1::jsonb,
    error_message = NULL,
    updated_at = now()
WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, query, payload, analysisID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetAttempts records how many runs the analysis has gone through.
func (r *PGRepo) SetAttempts(ctx context.Context, analysisID string, attempts int) error {
	const query = `
UPDATE analyses
SET attempts = $1,
    updated_at = now()
WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, query, attempts, analysisID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// AssignUser links an unowned analysis to a user. The guard on user_id keeps
// a document from being claimed twice.
func (r *PGRepo) AssignUser(ctx context.Context, analysisID, userID string) error {
	const query = `
UPDATE analyses
SET user_id = $1,
    updated_at = now()
WHERE id = $2 AND (user_id IS NULL OR user_id = $1)`
	res, err := r.DB.ExecContext(ctx, query, userID, analysisID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, analysisID); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrClaimed
	}
	return nil
}

// AssignPatient links the analysis to a patient profile.
func (r *PGRepo) AssignPatient(ctx context.Context, analysisID, patientID string) error {
	const query = `
UPDATE analyses
SET patient_id = $1,
    updated_at = now()
WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, query, patientID, analysisID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ListByUser lists analyses for a user ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
SELECT ` + analysisColumns + `
FROM analyses
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var a Analysis
	var userID sql.NullString
	var patientID sql.NullString
	var aiResult sql.NullString
	var errorMessage sql.NullString
	if err := row.Scan(
		&a.ID,
		&userID,
		&patientID,
		&a.StorageKey,
		&a.FileName,
		&a.MimeType,
		&a.Status,
		&aiResult,
		&errorMessage,
		&a.Attempts,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return Analysis{}, err
	}
	if userID.Valid {
		a.UserID = userID.String
	}
	if patientID.Valid {
		a.PatientID = patientID.String
	}
	if aiResult.Valid {
		var result AIResult
		if err := json.Unmarshal([]byte(aiResult.String), &result); err == nil {
			a.Result = &result
		}
	}
	if errorMessage.Valid {
		a.ErrorMessage = &errorMessage.String
	}
	return a, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func requireRow(res sql.Result) error {
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
