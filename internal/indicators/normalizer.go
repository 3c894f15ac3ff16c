package indicators

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"labreport-backend/internal/analyses"
	"labreport-backend/internal/patients"
	"labreport-backend/internal/shared/telemetry"
)

// maxStringValueLen bounds the stored text for unparseable values.
const maxStringValueLen = 50

// Normalizer projects completed analysis results into the per-patient
// indicator time series.
type Normalizer struct {
	Repo     Repo
	Analyses analyses.Repo
	Patients *patients.Service
}

var _ analyses.Normalizer = (*Normalizer)(nil)

// Apply resolves the owning patient and replaces the analysis's indicator
// rows. Anonymous analyses are skipped; their results only live on the
// analysis itself.
func (n *Normalizer) Apply(ctx context.Context, analysis analyses.Analysis, result *analyses.AIResult) error {
	if analysis.UserID == "" {
		return nil
	}

	patient, err := n.resolvePatient(ctx, analysis, result)
	if err != nil {
		return fmt.Errorf("resolve patient: %w", err)
	}
	if patient.ID != analysis.PatientID {
		if err := n.Analyses.AssignPatient(ctx, analysis.ID, patient.ID); err != nil {
			return fmt.Errorf("assign patient: %w", err)
		}
	}
	n.backfillDemographics(ctx, patient, result)

	date := analysis.CreatedAt.UTC().Truncate(24 * time.Hour)
	rows := make([]AnalysisIndicator, 0, len(result.Indicators))
	for _, ind := range result.Indicators {
		slug := strings.TrimSpace(ind.Slug)
		if slug == "" {
			// Unrecognized measurements cannot be charted across documents.
			continue
		}
		value, stringValue := coerceValue(ind.Value)
		rows = append(rows, AnalysisIndicator{
			ID:          uuid.NewString(),
			AnalysisID:  analysis.ID,
			PatientID:   patient.ID,
			Slug:        slug,
			Name:        ind.Name,
			Value:       value,
			StringValue: stringValue,
			Unit:        ind.Unit,
			Date:        date,
			CreatedAt:   time.Now().UTC(),
		})
	}

	return n.Repo.ReplaceForAnalysis(ctx, analysis.ID, rows)
}

// resolvePatient picks the profile that owns this document's measurements.
// A patient name read off the document always wins; otherwise an existing
// link is kept, and the main profile is the fallback.
func (n *Normalizer) resolvePatient(ctx context.Context, analysis analyses.Analysis, result *analyses.AIResult) (patients.Patient, error) {
	extractedName := ""
	if result.PatientInfo != nil {
		extractedName = strings.TrimSpace(result.PatientInfo.ExtractedName)
	}
	if extractedName != "" {
		return n.Patients.GetOrCreateByName(ctx, analysis.UserID, extractedName)
	}
	if analysis.PatientID != "" {
		patient, err := n.Patients.Get(ctx, analysis.UserID, analysis.PatientID)
		if err == nil {
			return patient, nil
		}
		// Stale link; fall through to the main profile.
	}
	return n.Patients.Main(ctx, analysis.UserID)
}

// backfillDemographics fills empty profile fields from document data.
// Existing values are never overwritten. Failures are logged only.
func (n *Normalizer) backfillDemographics(ctx context.Context, patient patients.Patient, result *analyses.AIResult) {
	if result.PatientInfo == nil {
		return
	}
	changed := false
	if patient.BirthDate == nil {
		if birthDate := parseLooseDate(result.PatientInfo.ExtractedBirthDate); birthDate != nil {
			patient.BirthDate = birthDate
			changed = true
		}
	}
	if patient.Gender == "" {
		if gender := normalizeExtractedGender(result.PatientInfo.ExtractedGender); gender != "" {
			patient.Gender = gender
			changed = true
		}
	}
	if !changed {
		return
	}
	if err := n.Patients.Repo.Update(ctx, patient); err != nil {
		telemetry.Error("indicators.demographics_backfill_failed", map[string]any{
			"patient_id": patient.ID,
			"error":      err.Error(),
		})
	}
}

// coerceValue turns printed value text into a number where possible. The
// original text survives either way, truncated for storage.
func coerceValue(raw string) (*float64, string) {
	stringValue := strings.TrimSpace(raw)
	if runes := []rune(stringValue); len(runes) > maxStringValueLen {
		stringValue = string(runes[:maxStringValueLen])
	}

	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	var sb strings.Builder
	for _, r := range cleaned {
		if (r >= '0' && r <= '9') || r == '.' {
			sb.WriteRune(r)
		}
	}
	cleaned = sb.String()
	if cleaned == "" {
		return nil, stringValue
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil, stringValue
	}
	return &value, stringValue
}

func parseLooseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "02.01.2006", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func normalizeExtractedGender(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male", "м", "муж", "мужской":
		return "male"
	case "f", "female", "ж", "жен", "женский":
		return "female"
	default:
		return ""
	}
}
