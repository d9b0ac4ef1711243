package latescan

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateRun(ctx context.Context, run *Run) error {
	const sql = `
		INSERT INTO late_loan_sweeps (triggered_by, status, started_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	return r.db.QueryRow(ctx, sql, string(run.Trigger), run.Status, run.StartedAt).Scan(&run.ID)
}

func (r *PostgresRepo) UpdateRun(ctx context.Context, run *Run) error {
	const sql = `
		UPDATE late_loan_sweeps SET
			finished_at = $1,
			status = $2,
			late_loans = $3,
			recipients = $4,
			dispatched = $5,
			error = $6
		WHERE id = $7`

	_, err := r.db.Exec(ctx, sql, run.FinishedAt, run.Status, run.LateLoans, run.Recipients, run.Dispatched, run.Error, run.ID)
	return err
}

func (r *PostgresRepo) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	const sql = `
		SELECT id, triggered_by, status, started_at, finished_at, late_loans, recipients, dispatched, error
		FROM late_loan_sweeps
		ORDER BY id DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, sql, limit)
	if err != nil {
		return nil, fmt.Errorf("list sweeps: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			run     Run
			trigger string
		)
		if err := rows.Scan(&run.ID, &trigger, &run.Status, &run.StartedAt, &run.FinishedAt,
			&run.LateLoans, &run.Recipients, &run.Dispatched, &run.Error); err != nil {
			return nil, err
		}
		run.Trigger = Trigger(trigger)
		out = append(out, run)
	}
	return out, rows.Err()
}
