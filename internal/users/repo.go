package users

import "context"

// Repo defines persistence operations for users.
type Repo interface {
	GetByID(ctx context.Context, userID string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	// GetOrCreateByEmail inserts the user or returns the existing account
	// with the same email. The second return reports whether a new
	// account was created.
	GetOrCreateByEmail(ctx context.Context, user User) (User, bool, error)
}
