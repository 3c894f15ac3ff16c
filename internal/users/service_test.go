package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"labreport-backend/internal/analyses"
	"labreport-backend/internal/indicators"
	"labreport-backend/internal/patients"
	"labreport-backend/internal/queue"
	"labreport-backend/internal/shared/auth"
	"labreport-backend/internal/shared/storage/object/local"
)

type capturingMailer struct {
	emails    []string
	passwords []string
	err       error
}

func (m *capturingMailer) SendCredentials(ctx context.Context, email, password string) error {
	m.emails = append(m.emails, email)
	m.passwords = append(m.passwords, password)
	return m.err
}

func newClaimFixture(t *testing.T) (*Service, *analyses.MemoryRepo, *capturingMailer) {
	t.Helper()
	analysisRepo := analyses.NewMemoryRepo()
	mailer := &capturingMailer{}
	svc := &Service{Repo: NewMemoryRepo(), Analyses: analysisRepo, Mailer: mailer}
	return svc, analysisRepo, mailer
}

func seedAnonymousAnalysis(t *testing.T, repo *analyses.MemoryRepo, id string) {
	t.Helper()
	err := repo.Create(context.Background(), analyses.Analysis{
		ID:        id,
		Status:    analyses.StatusCompleted,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed analysis: %v", err)
	}
}

func TestClaimCreatesAccountAndAssignsAnalysis(t *testing.T) {
	svc, analysisRepo, mailer := newClaimFixture(t)
	seedAnonymousAnalysis(t, analysisRepo, "analysis-1")

	token, user, err := svc.Claim(context.Background(), "analysis-1", " Jane@Example.COM ", "+10000000000")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if user.Email != "jane@example.com" {
		t.Fatalf("email = %q, want lowercased trimmed", user.Email)
	}
	if token == "" {
		t.Fatal("no session token issued")
	}
	claims, err := auth.VerifyJWT(token)
	if err != nil {
		t.Fatalf("VerifyJWT: %v", err)
	}
	if claims.Subject != user.ID {
		t.Fatalf("token subject = %q, want %q", claims.Subject, user.ID)
	}

	analysis, err := analysisRepo.GetByID(context.Background(), "analysis-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if analysis.UserID != user.ID {
		t.Fatalf("analysis owner = %q, want %q", analysis.UserID, user.ID)
	}

	if len(mailer.emails) != 1 || mailer.emails[0] != "jane@example.com" {
		t.Fatalf("mailer calls = %+v", mailer.emails)
	}
	if len(mailer.passwords) != 1 || mailer.passwords[0] == "" {
		t.Fatal("generated password not delivered")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(mailer.passwords[0])); err != nil {
		t.Fatalf("stored hash does not match delivered password: %v", err)
	}
}

func TestClaimExistingAccountSendsNoMail(t *testing.T) {
	svc, analysisRepo, mailer := newClaimFixture(t)
	seedAnonymousAnalysis(t, analysisRepo, "analysis-1")
	seedAnonymousAnalysis(t, analysisRepo, "analysis-2")

	_, first, err := svc.Claim(context.Background(), "analysis-1", "jane@example.com", "")
	if err != nil {
		t.Fatalf("first Claim: %v", err)
	}
	_, second, err := svc.Claim(context.Background(), "analysis-2", "jane@example.com", "")
	if err != nil {
		t.Fatalf("second Claim: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("second claim created a new account")
	}
	if len(mailer.emails) != 1 {
		t.Fatalf("credentials sent %d times, want once", len(mailer.emails))
	}
}

func TestClaimOwnedAnalysisFails(t *testing.T) {
	svc, analysisRepo, _ := newClaimFixture(t)
	err := analysisRepo.Create(context.Background(), analyses.Analysis{
		ID:        "analysis-1",
		UserID:    "someone-else",
		Status:    analyses.StatusCompleted,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed analysis: %v", err)
	}

	_, _, err = svc.Claim(context.Background(), "analysis-1", "jane@example.com", "")
	if !errors.Is(err, analyses.ErrClaimed) {
		t.Fatalf("expected ErrClaimed, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, analysisRepo, mailer := newClaimFixture(t)
	seedAnonymousAnalysis(t, analysisRepo, "analysis-1")

	if _, _, err := svc.Claim(context.Background(), "analysis-1", "jane@example.com", ""); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	password := mailer.passwords[0]

	token, user, err := svc.Login(context.Background(), "JANE@example.com", password)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" || user.Email != "jane@example.com" {
		t.Fatalf("login result = %q %+v", token, user)
	}

	if _, _, err := svc.Login(context.Background(), "jane@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody@example.com", password); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

type noopQueue struct{}

func (noopQueue) Send(ctx context.Context, msg queue.Message, delay time.Duration) error {
	return nil
}

type fixedRunner struct {
	result *analyses.AIResult
}

func (r fixedRunner) Run(ctx context.Context, filePath, patientContext string) (*analyses.AIResult, error) {
	return r.result, nil
}

func TestClaimDoesNotNormalizeUntilReprocess(t *testing.T) {
	analysisRepo := analyses.NewMemoryRepo()
	indicatorRepo := indicators.NewMemoryRepo()
	patientSvc := &patients.Service{Repo: patients.NewMemoryRepo()}

	result := &analyses.AIResult{
		Summary: &analyses.Summary{GeneralComment: "ok"},
		Indicators: []analyses.Indicator{
			{Name: "Hemoglobin", Slug: "hemoglobin", Value: "13.1", Status: analyses.IndicatorNormal},
		},
	}
	err := analysisRepo.Create(context.Background(), analyses.Analysis{
		ID:         "analysis-1",
		Status:     analyses.StatusCompleted,
		Result:     result,
		StorageKey: "anonymous/report.pdf",
		FileName:   "report.pdf",
		MimeType:   "application/pdf",
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed analysis: %v", err)
	}

	usersSvc := &Service{Repo: NewMemoryRepo(), Analyses: analysisRepo, Mailer: &capturingMailer{}}
	_, user, err := usersSvc.Claim(context.Background(), "analysis-1", "jane@example.com", "")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}

	// Claiming binds ownership only; the stored result stays as it was.
	if rows := indicatorRepo.RowsForAnalysis("analysis-1"); len(rows) != 0 {
		t.Fatalf("claim alone produced %d indicator rows", len(rows))
	}

	analysisSvc := &analyses.Service{
		Repo:     analysisRepo,
		Store:    local.New(t.TempDir()),
		Queue:    noopQueue{},
		Pipeline: fixedRunner{result: result},
		Normalizer: &indicators.Normalizer{
			Repo:     indicatorRepo,
			Analyses: analysisRepo,
			Patients: patientSvc,
		},
	}
	if _, err := analysisSvc.Reprocess(context.Background(), "analysis-1", user.ID); err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	if err := analysisSvc.ProcessAnalysis(context.Background(), "analysis-1", 0); err != nil {
		t.Fatalf("ProcessAnalysis: %v", err)
	}

	rows := indicatorRepo.RowsForAnalysis("analysis-1")
	if len(rows) != 1 {
		t.Fatalf("rows after reprocess = %d, want 1", len(rows))
	}
	if rows[0].PatientID == "" {
		t.Fatal("normalized row not linked to a patient profile")
	}
}

func TestMeUnknownUser(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}
	if _, err := svc.Me(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
