package analyses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"labreport-backend/internal/llm"
	"labreport-backend/internal/queue"
	"labreport-backend/internal/shared/storage/object/local"
)

type sentMessage struct {
	msg   queue.Message
	delay time.Duration
}

type captureQueue struct {
	sent []sentMessage
}

func (q *captureQueue) Send(ctx context.Context, msg queue.Message, delay time.Duration) error {
	q.sent = append(q.sent, sentMessage{msg: msg, delay: delay})
	return nil
}

type stubRunner struct {
	result *AIResult
	err    error
	calls  int
}

func (r *stubRunner) Run(ctx context.Context, filePath, patientContext string) (*AIResult, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

type stubNormalizer struct {
	err     error
	applied int
}

func (n *stubNormalizer) Apply(ctx context.Context, analysis Analysis, result *AIResult) error {
	n.applied++
	return n.err
}

func completedResult() *AIResult {
	return &AIResult{
		Summary: &Summary{GeneralComment: "All fine."},
		Indicators: []Indicator{
			{Name: "Hemoglobin", Slug: "hemoglobin", Value: "13.1", Status: IndicatorNormal},
		},
	}
}

func setupService(t *testing.T, runner Runner) (*Service, *MemoryRepo, *captureQueue) {
	t.Helper()
	repo := NewMemoryRepo()
	q := &captureQueue{}
	svc := &Service{
		Repo:     repo,
		Store:    local.New(t.TempDir()),
		Queue:    q,
		Pipeline: runner,
	}
	return svc, repo, q
}

func seedAnalysis(t *testing.T, repo *MemoryRepo, userID string) Analysis {
	t.Helper()
	analysis := Analysis{
		ID:         "analysis-1",
		UserID:     userID,
		StorageKey: "owner/report.pdf",
		FileName:   "report.pdf",
		MimeType:   "application/pdf",
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), analysis); err != nil {
		t.Fatalf("seed analysis: %v", err)
	}
	return analysis
}

func TestCreateEnqueuesFirstRun(t *testing.T) {
	svc, repo, q := setupService(t, &stubRunner{result: completedResult()})

	analysis, err := svc.Create(context.Background(), "user-1", "report.pdf", "application/pdf", bytes.NewReader([]byte("%PDF-1.4")))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if analysis.Status != StatusPending {
		t.Fatalf("status = %q, want pending", analysis.Status)
	}

	stored, err := repo.GetByID(context.Background(), analysis.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.StorageKey == "" {
		t.Fatal("storage key not recorded")
	}

	if len(q.sent) != 1 {
		t.Fatalf("expected 1 enqueued message, got %d", len(q.sent))
	}
	if q.sent[0].msg.Attempt != 0 || q.sent[0].delay != 0 {
		t.Fatalf("first run must have attempt 0 and no delay, got attempt=%d delay=%s", q.sent[0].msg.Attempt, q.sent[0].delay)
	}
}

func TestProcessAnalysisSuccess(t *testing.T) {
	runner := &stubRunner{result: completedResult()}
	svc, repo, q := setupService(t, runner)
	normalizer := &stubNormalizer{}
	svc.Normalizer = normalizer
	analysis := seedAnalysis(t, repo, "user-1")

	if err := svc.ProcessAnalysis(context.Background(), analysis.ID, 0); err != nil {
		t.Fatalf("ProcessAnalysis: %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), analysis.ID)
	if stored.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", stored.Status)
	}
	if stored.Result == nil || len(stored.Result.Indicators) != 1 {
		t.Fatalf("result not stored: %+v", stored.Result)
	}
	if stored.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", stored.Attempts)
	}
	if normalizer.applied != 1 {
		t.Fatalf("normalizer applied %d times, want 1", normalizer.applied)
	}
	if len(q.sent) != 0 {
		t.Fatalf("no retry expected on success, got %d messages", len(q.sent))
	}
}

func TestProcessAnalysisRetrySchedule(t *testing.T) {
	runner := &stubRunner{err: &llm.ModelError{Op: "pro", Err: errors.New("overloaded")}}
	svc, repo, q := setupService(t, runner)
	analysis := seedAnalysis(t, repo, "user-1")

	wantDelays := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		80 * time.Second,
	}

	for attempt := 0; attempt < 5; attempt++ {
		if err := svc.ProcessAnalysis(context.Background(), analysis.ID, attempt); err != nil {
			t.Fatalf("attempt %d: %v", attempt, err)
		}
		if len(q.sent) != attempt+1 {
			t.Fatalf("attempt %d: expected %d enqueued messages, got %d", attempt, attempt+1, len(q.sent))
		}
		last := q.sent[len(q.sent)-1]
		if last.delay != wantDelays[attempt] {
			t.Fatalf("attempt %d: delay = %s, want %s", attempt, last.delay, wantDelays[attempt])
		}
		if last.msg.Attempt != attempt+1 {
			t.Fatalf("attempt %d: next attempt = %d, want %d", attempt, last.msg.Attempt, attempt+1)
		}
		stored, _ := repo.GetByID(context.Background(), analysis.ID)
		if stored.Status != StatusPending {
			t.Fatalf("attempt %d: status = %q, want pending while retrying", attempt, stored.Status)
		}
	}

	// Sixth run exhausts the schedule.
	if err := svc.ProcessAnalysis(context.Background(), analysis.ID, 5); err == nil {
		t.Fatal("expected terminal failure error")
	}
	if len(q.sent) != 5 {
		t.Fatalf("no enqueue expected after exhaustion, got %d messages", len(q.sent))
	}
	stored, _ := repo.GetByID(context.Background(), analysis.ID)
	if stored.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", stored.Status)
	}
	if stored.ErrorMessage == nil || *stored.ErrorMessage == "" {
		t.Fatal("error message not recorded")
	}
}

func TestProcessAnalysisEmptyResultIsTerminal(t *testing.T) {
	runner := &stubRunner{result: &AIResult{Summary: &Summary{GeneralComment: "Nothing readable."}}}
	svc, repo, q := setupService(t, runner)
	analysis := seedAnalysis(t, repo, "user-1")

	if err := svc.ProcessAnalysis(context.Background(), analysis.ID, 0); !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
	stored, _ := repo.GetByID(context.Background(), analysis.ID)
	if stored.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", stored.Status)
	}
	if len(q.sent) != 0 {
		t.Fatal("empty results must not be retried")
	}
}

func TestProcessAnalysisDuplicateDeliveryIsNoop(t *testing.T) {
	runner := &stubRunner{result: completedResult()}
	svc, repo, _ := setupService(t, runner)
	analysis := seedAnalysis(t, repo, "user-1")

	if err := svc.ProcessAnalysis(context.Background(), analysis.ID, 0); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := svc.ProcessAnalysis(context.Background(), analysis.ID, 1); err != nil {
		t.Fatalf("duplicate run: %v", err)
	}
	if runner.calls != 1 {
		t.Fatalf("pipeline ran %d times, want 1", runner.calls)
	}
}

func TestProcessAnalysisNormalizerFailureKeepsCompleted(t *testing.T) {
	runner := &stubRunner{result: completedResult()}
	svc, repo, _ := setupService(t, runner)
	svc.Normalizer = &stubNormalizer{err: fmt.Errorf("profile lookup down")}
	analysis := seedAnalysis(t, repo, "user-1")

	if err := svc.ProcessAnalysis(context.Background(), analysis.ID, 0); err != nil {
		t.Fatalf("ProcessAnalysis: %v", err)
	}
	stored, _ := repo.GetByID(context.Background(), analysis.ID)
	if stored.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed despite normalizer failure", stored.Status)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, repo, _ := setupService(t, &stubRunner{})
	analysis := seedAnalysis(t, repo, "user-1")

	if _, err := svc.Get(context.Background(), analysis.ID, "user-2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Get(context.Background(), analysis.ID, "user-1"); err != nil {
		t.Fatalf("owner read: %v", err)
	}
}

func TestGetAnonymousAnalysisIsPublicByID(t *testing.T) {
	svc, repo, _ := setupService(t, &stubRunner{})
	analysis := seedAnalysis(t, repo, "")

	if _, err := svc.Get(context.Background(), analysis.ID, ""); err != nil {
		t.Fatalf("anonymous read: %v", err)
	}
	if _, err := svc.Get(context.Background(), analysis.ID, "user-9"); err != nil {
		t.Fatalf("logged-in read of anonymous analysis: %v", err)
	}
}
