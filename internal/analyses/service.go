package analyses

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"labreport-backend/internal/docload"
	"labreport-backend/internal/llm"
	"labreport-backend/internal/queue"
	"labreport-backend/internal/shared/metrics"
	"labreport-backend/internal/shared/storage/object"
	"labreport-backend/internal/shared/telemetry"
)

// Retry schedule for transient model failures. A run that fails with attempt
// index n is rescheduled after baseRetryDelay*2^n; once maxRetryAttempts runs
// have failed the analysis goes to failed for good.
const (
	baseRetryDelay   = 5 * time.Second
	maxRetryAttempts = 5
)

// Runner executes the model pipeline over a local document file.
type Runner interface {
	Run(ctx context.Context, filePath, patientContext string) (*AIResult, error)
}

// Normalizer projects a completed result into the indicator time series.
// Implemented by the indicators package.
type Normalizer interface {
	Apply(ctx context.Context, analysis Analysis, result *AIResult) error
}

// ContextProvider renders a free-form patient description for the
// interpretation stage. Implemented by the patients package.
type ContextProvider interface {
	ContextFor(ctx context.Context, patientID string) (string, error)
}

// Service contains business logic for analyses.
type Service struct {
	Repo       Repo
	Store      object.ObjectStore
	Queue      queue.Client
	Pipeline   Runner
	Normalizer Normalizer
	Patients   ContextProvider
}

// Create stores the uploaded document, records a pending analysis and
// enqueues the first processing run. userID may be empty for anonymous
// uploads.
func (s *Service) Create(ctx context.Context, userID, fileName, mimeType string, content io.Reader) (Analysis, error) {
	if fileName == "" {
		return Analysis{}, errors.New("fileName is required")
	}

	storageKey, _, detectedMime, err := s.Store.Save(ctx, userID, fileName, content)
	if err != nil {
		return Analysis{}, fmt.Errorf("store document: %w", err)
	}
	if mimeType == "" {
		mimeType = detectedMime
	}

	analysis := Analysis{
		ID:         uuid.NewString(),
		UserID:     userID,
		StorageKey: storageKey,
		FileName:   fileName,
		MimeType:   mimeType,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, analysis); err != nil {
		return Analysis{}, err
	}

	if err := s.enqueue(ctx, analysis.ID, 0, 0); err != nil {
		return Analysis{}, err
	}
	telemetry.Info("analysis.created", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"analysis_id": analysis.ID,
		"user_id":     userID,
		"file_name":   fileName,
	})
	return analysis, nil
}

// Get returns an analysis, enforcing ownership. Anonymous analyses are
// readable by anyone holding the ID.
func (s *Service) Get(ctx context.Context, analysisID, requesterID string) (Analysis, error) {
	if analysisID == "" {
		return Analysis{}, errors.New("analysisID is required")
	}
	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return Analysis{}, err
	}
	if analysis.UserID != "" && analysis.UserID != requesterID {
		return Analysis{}, ErrForbidden
	}
	return analysis, nil
}

// List returns analyses owned by a user, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Reprocess resets a terminal analysis and enqueues a fresh run.
func (s *Service) Reprocess(ctx context.Context, analysisID, requesterID string) (Analysis, error) {
	analysis, err := s.Get(ctx, analysisID, requesterID)
	if err != nil {
		return Analysis{}, err
	}
	if !analysis.Terminal() {
		return analysis, nil
	}
	if err := s.Repo.UpdateStatus(ctx, analysisID, StatusPending, nil); err != nil {
		return Analysis{}, err
	}
	if err := s.enqueue(ctx, analysisID, 0, 0); err != nil {
		return Analysis{}, err
	}
	analysis.Status = StatusPending
	analysis.ErrorMessage = nil
	return analysis, nil
}

// ProcessAnalysis runs one pipeline attempt for the analysis. It owns the
// full failure policy: transient model errors reschedule the message with
// exponential backoff, everything else fails the analysis terminally. The
// returned error is for worker logging only; retries never go through the
// queue layer's redelivery.
func (s *Service) ProcessAnalysis(ctx context.Context, analysisID string, attempt int) error {
	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("analysis lookup id=%s: %w", analysisID, err)
	}
	if analysis.Status == StatusCompleted {
		// Duplicate delivery after a successful run.
		return nil
	}

	if err := s.Repo.UpdateStatus(ctx, analysisID, StatusProcessing, nil); err != nil {
		return fmt.Errorf("set processing: %w", err)
	}
	if err := s.Repo.SetAttempts(ctx, analysisID, attempt+1); err != nil {
		return fmt.Errorf("set attempts: %w", err)
	}
	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"analysis_id":       analysisID,
		"status":            StatusProcessing,
		"attempt":           attempt,
		"status_transition": "pending->processing",
	})
	startedAt := time.Now().UTC()

	result, err := s.runPipeline(ctx, analysis)
	if err != nil {
		return s.handleRunFailure(ctx, analysis, attempt, startedAt, err)
	}

	if err := s.Repo.MarkCompleted(ctx, analysisID, result); err != nil {
		return s.handleRunFailure(ctx, analysis, attempt, startedAt, fmt.Errorf("store result: %w", err))
	}
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(float64(time.Since(startedAt).Milliseconds()))
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"analysis_id":       analysisID,
		"status":            StatusCompleted,
		"attempt":           attempt,
		"status_transition": "processing->completed",
		"duration_ms":       time.Since(startedAt).Milliseconds(),
	})

	// Normalization failures never revert a completed analysis.
	if s.Normalizer != nil {
		if err := s.Normalizer.Apply(ctx, analysis, result); err != nil {
			telemetry.Error("analysis.normalize_failed", map[string]any{
				"request_id":  requestIDFromContext(ctx),
				"analysis_id": analysisID,
				"error":       err.Error(),
			})
		}
	}
	return nil
}

func (s *Service) runPipeline(ctx context.Context, analysis Analysis) (*AIResult, error) {
	patientContext, err := s.patientContext(ctx, analysis)
	if err != nil {
		return nil, err
	}

	localPath, cleanup, err := object.Materialize(ctx, s.Store, analysis.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("materialize document: %w", err)
	}
	defer cleanup()

	result, err := s.Pipeline.Run(ctx, localPath, patientContext)
	if err != nil {
		return nil, err
	}
	if len(result.Indicators) == 0 {
		return nil, ErrEmptyResult
	}
	return result, nil
}

func (s *Service) patientContext(ctx context.Context, analysis Analysis) (string, error) {
	if analysis.PatientID == "" || s.Patients == nil {
		return "", nil
	}
	described, err := s.Patients.ContextFor(ctx, analysis.PatientID)
	if err != nil {
		return "", fmt.Errorf("patient context: %w", err)
	}
	return described, nil
}

// handleRunFailure decides between rescheduling and terminal failure.
func (s *Service) handleRunFailure(ctx context.Context, analysis Analysis, attempt int, startedAt time.Time, runErr error) error {
	retryable := llm.IsModelError(runErr)
	var loadErr *docload.LoadError
	if errors.As(runErr, &loadErr) || errors.Is(runErr, ErrEmptyResult) {
		retryable = false
	}

	if retryable && attempt < maxRetryAttempts {
		delay := baseRetryDelay << attempt
		msg := sanitizeError(runErr)
		if err := s.Repo.UpdateStatus(ctx, analysis.ID, StatusPending, &msg); err != nil {
			telemetry.Error("analysis.reschedule_update_failed", map[string]any{
				"analysis_id": analysis.ID,
				"error":       err.Error(),
			})
		}
		if err := s.enqueue(ctx, analysis.ID, attempt+1, delay); err != nil {
			// Could not reschedule; fail terminally rather than strand the row.
			return s.failAnalysis(ctx, analysis, attempt, startedAt, fmt.Errorf("reschedule: %w", err))
		}
		metrics.IncAnalysisRetried()
		telemetry.Info("analysis.retry_scheduled", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"analysis_id": analysis.ID,
			"attempt":     attempt,
			"delay_s":     delay.Seconds(),
			"error":       sanitizeError(runErr),
		})
		return nil
	}

	return s.failAnalysis(ctx, analysis, attempt, startedAt, runErr)
}

func (s *Service) failAnalysis(ctx context.Context, analysis Analysis, attempt int, startedAt time.Time, runErr error) error {
	msg := sanitizeError(runErr)
	if err := s.Repo.UpdateStatus(ctx, analysis.ID, StatusFailed, &msg); err != nil {
		telemetry.Error("analysis.fail_update_failed", map[string]any{
			"analysis_id": analysis.ID,
			"error":       err.Error(),
		})
	}
	metrics.IncAnalysisFailed()
	metrics.ObserveAnalysisDurationMs(float64(time.Since(startedAt).Milliseconds()))
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"analysis_id":       analysis.ID,
		"status":            StatusFailed,
		"attempt":           attempt,
		"status_transition": "processing->failed",
		"error":             msg,
	})
	return runErr
}

func (s *Service) enqueue(ctx context.Context, analysisID string, attempt int, delay time.Duration) error {
	return s.Queue.Send(ctx, queue.Message{
		AnalysisID: analysisID,
		RequestID:  requestIDFromContext(ctx),
		Attempt:    attempt,
		EnqueuedAt: time.Now().UTC(),
		Version:    queue.MessageVersion,
	}, delay)
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
