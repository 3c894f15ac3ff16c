package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestSignAndVerifyRoundtrip(t *testing.T) {
	token, err := SignJWT("user-1", "jane@example.com")
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	claims, err := VerifyJWT(token)
	if err != nil {
		t.Fatalf("VerifyJWT: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "jane@example.com" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(claims.IssuedAt.Time) {
		t.Fatalf("bad expiry: %+v", claims)
	}
}

func TestSignJWTRequiresUserID(t *testing.T) {
	if _, err := SignJWT("", "jane@example.com"); err == nil {
		t.Fatal("expected error for empty user ID")
	}
}

func TestVerifyJWTRejectsTamperedToken(t *testing.T) {
	token, err := SignJWT("user-1", "jane@example.com")
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}
	parts[2] = strings.Repeat("A", len(parts[2]))
	tampered := strings.Join(parts, ".")

	if _, err := VerifyJWT(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyJWTRejectsGarbage(t *testing.T) {
	if _, err := VerifyJWT("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyJWTRejectsDifferentSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "first-secret")
	token, err := SignJWT("user-1", "")
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	t.Setenv("JWT_SECRET", "second-secret")
	if _, err := VerifyJWT(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
