package users

import (
	"context"

	"labreport-backend/internal/shared/telemetry"
)

// LogMailer records that credentials were issued without sending anything.
// Stands in for a real mail provider in development.
type LogMailer struct{}

// SendCredentials logs the delivery. The password itself never hits the logs.
func (LogMailer) SendCredentials(ctx context.Context, email, password string) error {
	telemetry.Info("users.credentials_issued", map[string]any{
		"email": email,
	})
	return nil
}
