package indicators

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoReplaceForAnalysisSwapsRowsInOneTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}

	now := time.Now().UTC()
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	value := 13.1
	rows := []AnalysisIndicator{
		{
			ID: "row-1", AnalysisID: "analysis-1", PatientID: "patient-1",
			Slug: "hemoglobin", Name: "Hemoglobin", Value: &value,
			StringValue: "13,1", Unit: "g/dL", Date: date, CreatedAt: now,
		},
		{
			ID: "row-2", AnalysisID: "analysis-1", PatientID: "patient-1",
			Slug: "crp", Name: "CRP", StringValue: "negative", Date: date, CreatedAt: now,
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM analysis_indicators").
		WithArgs("analysis-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO analysis_indicators .+ \(\$11, \$12, \$13, \$14, \$15, \$16, \$17, \$18, \$19, \$20\)`).
		WithArgs(
			"row-1", "analysis-1", "patient-1", "hemoglobin", "Hemoglobin", &value, "13,1", "g/dL", date, now,
			"row-2", "analysis-1", "patient-1", "crp", "CRP", nil, "negative", nil, date, now,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	if err := repo.ReplaceForAnalysis(context.Background(), "analysis-1", rows); err != nil {
		t.Fatalf("ReplaceForAnalysis: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoReplaceForAnalysisEmptySetOnlyDeletes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM analysis_indicators").
		WithArgs("analysis-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	if err := repo.ReplaceForAnalysis(context.Background(), "analysis-1", nil); err != nil {
		t.Fatalf("ReplaceForAnalysis: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoHistoryByPatientFiltersSlugs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}

	now := time.Now().UTC()
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	returned := sqlmock.NewRows([]string{
		"id", "analysis_id", "patient_id", "slug", "name", "value", "string_value", "unit", "date", "created_at",
	}).AddRow("row-1", "analysis-1", "patient-1", "tsh", "TSH", 2.1, "2.1", "mIU/L", date, now)

	mock.ExpectQuery(`slug IN \(\$2, \$3\)`).
		WithArgs("patient-1", "tsh", "ferritin").
		WillReturnRows(returned)

	rows, err := repo.HistoryByPatient(context.Background(), "patient-1", []string{"tsh", "ferritin"})
	if err != nil {
		t.Fatalf("HistoryByPatient: %v", err)
	}
	if len(rows) != 1 || rows[0].Slug != "tsh" || rows[0].Value == nil || *rows[0].Value != 2.1 {
		t.Fatalf("rows = %+v", rows)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
