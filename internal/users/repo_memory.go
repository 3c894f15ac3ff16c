package users

import (
	"context"
	"strings"
	"sync"
)

// MemoryRepo stores users in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]User
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]User)}
}

var _ Repo = (*MemoryRepo)(nil)

// GetByID returns a user by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// GetByEmail returns a user by email.
func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.findByEmail(email); u != nil {
		return *u, nil
	}
	return User{}, ErrNotFound
}

// GetOrCreateByEmail inserts the user or returns the existing account.
func (r *MemoryRepo) GetOrCreateByEmail(ctx context.Context, user User) (User, bool, error) {
	if err := ctx.Err(); err != nil {
		return User{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing := r.findByEmail(user.Email); existing != nil {
		return *existing, false, nil
	}
	r.byID[user.ID] = user
	return user, true, nil
}

func (r *MemoryRepo) findByEmail(email string) *User {
	for _, u := range r.byID {
		if strings.EqualFold(u.Email, email) {
			found := u
			return &found
		}
	}
	return nil
}
