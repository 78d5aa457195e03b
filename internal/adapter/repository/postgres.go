package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ridgeline-intel/prospector/internal/core/domain"
)

// PostgresRepository persists finished score reports. Summary columns
// are queryable; the full report (evidence included) rides along as
// JSONB.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) SaveReport(ctx context.Context, report domain.ScoreReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO score_reports (scan_id, subject, total_score, max_possible_score, tier, verdict, generated_at, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (scan_id) DO NOTHING
	`

	_, err = r.db.Exec(ctx, query,
		report.ScanID,
		report.Subject.Name,
		report.TotalScore,
		report.MaxPossibleScore,
		string(report.Tier),
		string(report.Verdict),
		report.GeneratedAt,
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindBySubject(ctx context.Context, subject string, limit int) ([]domain.ScoreReport, error) {
	query := `
		SELECT report
		FROM score_reports
		WHERE subject = $1
		ORDER BY generated_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, subject, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	return scanReports(rows)
}

func (r *PostgresRepository) FindSince(ctx context.Context, since time.Time, limit int) ([]domain.ScoreReport, error) {
	query := `
		SELECT report
		FROM score_reports
		WHERE generated_at >= $1
		ORDER BY generated_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports since %v: %w", since, err)
	}
	defer rows.Close()

	return scanReports(rows)
}

type reportRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanReports(rows reportRows) ([]domain.ScoreReport, error) {
	var reports []domain.ScoreReport

	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}

		var report domain.ScoreReport
		if err := json.Unmarshal(payload, &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stored report: %w", err)
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return reports, nil
}
