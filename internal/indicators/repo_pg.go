package indicators

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

// ReplaceForAnalysis deletes the analysis's rows and inserts the new set in
// one transaction.
func (r *PGRepo) ReplaceForAnalysis(ctx context.Context, analysisID string, rows []AnalysisIndicator) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM analysis_indicators WHERE analysis_id = $1`, analysisID); err != nil {
		return err
	}

	if len(rows) > 0 {
		var sb strings.Builder
		sb.WriteString(`INSERT INTO analysis_indicators (id, analysis_id, patient_id, slug, name, value, string_value, unit, date, created_at) VALUES `)
		args := make([]any, 0, len(rows)*10)
		for i, row := range rows {
			if i > 0 {
				sb.WriteString(", ")
			}
			base := i * 10
			fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10)
			args = append(args,
				row.ID,
				row.AnalysisID,
				row.PatientID,
				row.Slug,
				row.Name,
				row.Value,
				row.StringValue,
				nullIfEmpty(row.Unit),
				row.Date,
				row.CreatedAt,
			)
		}
		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// HistoryByPatient returns numeric rows for charting, oldest first.
func (r *PGRepo) HistoryByPatient(ctx context.Context, patientID string, slugs []string) ([]AnalysisIndicator, error) {
	query := `
SELECT id, analysis_id, patient_id, slug, name, value, string_value, unit, date, created_at
FROM analysis_indicators
WHERE patient_id = $1 AND value IS NOT NULL`
	args := []any{patientID}
	if len(slugs) > 0 {
		placeholders := make([]string, len(slugs))
		for i, slug := range slugs {
			args = append(args, slug)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		query += fmt.Sprintf(" AND slug IN (%s)", strings.Join(placeholders, ", "))
	}
	query += " ORDER BY slug, date, created_at"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AnalysisIndicator
	for rows.Next() {
		var row AnalysisIndicator
		var value sql.NullFloat64
		var unit sql.NullString
		if err := rows.Scan(
			&row.ID,
			&row.AnalysisID,
			&row.PatientID,
			&row.Slug,
			&row.Name,
			&value,
			&row.StringValue,
			&unit,
			&row.Date,
			&row.CreatedAt,
		); err != nil {
			return nil, err
		}
		if value.Valid {
			v := value.Float64
			row.Value = &v
		}
		if unit.Valid {
			row.Unit = unit.String
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
