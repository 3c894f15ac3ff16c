package users

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

const userColumns = `id, email, password_hash, phone, created_at`

// GetByID returns a user by ID.
func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
LIMIT 1`
	return r.getOne(ctx, query, userID)
}

// GetByEmail returns a user by email.
func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	const query = `
SELECT ` + userColumns + `
FROM users
WHERE email = $1
LIMIT 1`
	return r.getOne(ctx, query, email)
}

// GetOrCreateByEmail inserts the user or returns the existing account.
// The insert-or-nothing plus fallback select keeps concurrent claims for the
// same email from creating two accounts.
func (r *PGRepo) GetOrCreateByEmail(ctx context.Context, user User) (User, bool, error) {
	const query = `
INSERT INTO users (id, email, password_hash, phone, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (email) DO NOTHING
RETURNING ` + userColumns
	created, err := scanUser(r.DB.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		nullIfEmpty(user.Phone),
		user.CreatedAt,
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, false, err
	}
	existing, err := r.GetByEmail(ctx, user.Email)
	return existing, false, err
}

func (r *PGRepo) getOne(ctx context.Context, query string, arg any) (User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	var phone sql.NullString
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &phone, &u.CreatedAt); err != nil {
		return User{}, err
	}
	if phone.Valid {
		u.Phone = phone.String
	}
	return u, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
