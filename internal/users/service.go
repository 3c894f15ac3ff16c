package users

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"labreport-backend/internal/analyses"
	"labreport-backend/internal/shared/auth"
	"labreport-backend/internal/shared/telemetry"
)

// Mailer delivers generated credentials to a freshly created account.
type Mailer interface {
	SendCredentials(ctx context.Context, email, password string) error
}

// Service contains account and claiming logic.
type Service struct {
	Repo     Repo
	Analyses analyses.Repo
	Mailer   Mailer
}

// Claim attaches an anonymous analysis to an account identified by email,
// creating the account with a generated password on first claim. Returns a
// session token for the (possibly new) account.
func (s *Service) Claim(ctx context.Context, analysisID, email, phone string) (string, User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if analysisID == "" || email == "" {
		return "", User{}, errors.New("analysisID and email are required")
	}

	analysis, err := s.Analyses.GetByID(ctx, analysisID)
	if err != nil {
		return "", User{}, err
	}
	if analysis.UserID != "" {
		return "", User{}, analyses.ErrClaimed
	}

	password, err := generatePassword()
	if err != nil {
		return "", User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", User{}, err
	}

	user, created, err := s.Repo.GetOrCreateByEmail(ctx, User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Phone:        phone,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return "", User{}, err
	}
	if created {
		if s.Mailer != nil {
			if err := s.Mailer.SendCredentials(ctx, email, password); err != nil {
				telemetry.Error("users.credentials_mail_failed", map[string]any{
					"user_id": user.ID,
					"error":   err.Error(),
				})
			}
		}
		telemetry.Info("users.account_created", map[string]any{
			"user_id": user.ID,
			"via":     "claim",
		})
	}

	if err := s.Analyses.AssignUser(ctx, analysisID, user.ID); err != nil {
		return "", User{}, err
	}
	telemetry.Info("users.analysis_claimed", map[string]any{
		"user_id":     user.ID,
		"analysis_id": analysisID,
	})

	token, err := auth.SignJWT(user.ID, user.Email)
	if err != nil {
		return "", User{}, err
	}
	return token, user, nil
}

// Login verifies credentials and returns a session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", User{}, ErrInvalidCredentials
	}

	user, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", User{}, ErrInvalidCredentials
		}
		return "", User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", User{}, ErrInvalidCredentials
	}

	token, err := auth.SignJWT(user.ID, user.Email)
	if err != nil {
		return "", User{}, err
	}
	return token, user, nil
}

// Me returns the account for an authenticated user ID.
func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	if userID == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID)
}

func generatePassword() (string, error) {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}
