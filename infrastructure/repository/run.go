package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/vfg2006/spend-reconciler/infrastructure/database"
	"github.com/vfg2006/spend-reconciler/internal/domain"
)

//go:generate mockgen -source=run.go -destination=mocks/run_mock.go -package=mocks

type RunRepository interface {
	EnsureSchema(ctx context.Context) error
	Save(ctx context.Context, report *domain.RunReport) error
	ListRecent(ctx context.Context, limit int) ([]*domain.RunReport, error)
}

type runRepository struct {
	conn  *database.Connection
	table string
}

func NewRunRepository(conn *database.Connection, table string) RunRepository {
	return &runRepository{
		conn:  conn,
		table: table,
	}
}

func (r *runRepository) EnsureSchema(ctx context.Context) error {
	types := r.conn.Dialect.Types()

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id %[2]s PRIMARY KEY,
			started_at %[3]s NOT NULL,
			finished_at %[3]s,
			state %[2]s NOT NULL,
			extracted %[4]s NOT NULL DEFAULT 0,
			normalized %[4]s NOT NULL DEFAULT 0,
			fallback %[4]s NOT NULL DEFAULT 0,
			skipped %[4]s NOT NULL DEFAULT 0,
			staged %[4]s NOT NULL DEFAULT 0,
			batches %[4]s NOT NULL DEFAULT 0,
			failed_batches %[4]s NOT NULL DEFAULT 0,
			row_errors %[4]s NOT NULL DEFAULT 0,
			merged %[4]s NOT NULL DEFAULT 0,
			error %[2]s
		)`, r.table, types.Text, types.Timestamp, types.Integer)

	return execStatements(ctx, r.conn, ddl)
}

func (r *runRepository) Save(ctx context.Context, report *domain.RunReport) error {
	finishedAt := database.NullableTimestamp{Time: report.FinishedAt, Valid: !report.FinishedAt.IsZero()}

	sqlQuery, args, err := squirrel.
		Insert(r.table).
		Columns(
			"id", "started_at", "finished_at", "state",
			"extracted", "normalized", "fallback", "skipped",
			"staged", "batches", "failed_batches", "row_errors", "merged", "error",
		).
		Values(
			report.ID,
			database.FormatTimestamp(report.StartedAt),
			finishedAt,
			string(report.State),
			report.Extracted,
			report.Normalized,
			report.Fallback,
			report.Skipped,
			report.Staged,
			report.Batches,
			report.FailedBatches,
			report.RowErrors,
			report.Merged,
			report.Error,
		).
		Suffix(`
			ON CONFLICT (id) DO UPDATE SET
				finished_at = EXCLUDED.finished_at,
				state = EXCLUDED.state,
				extracted = EXCLUDED.extracted,
				normalized = EXCLUDED.normalized,
				fallback = EXCLUDED.fallback,
				skipped = EXCLUDED.skipped,
				staged = EXCLUDED.staged,
				batches = EXCLUDED.batches,
				failed_batches = EXCLUDED.failed_batches,
				row_errors = EXCLUDED.row_errors,
				merged = EXCLUDED.merged,
				error = EXCLUDED.error
		`).
		PlaceholderFormat(r.conn.Dialect.Placeholder()).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sqlQuery, args...); err != nil {
		return fmt.Errorf("erro ao salvar execução %s: %w", report.ID, database.DescribeError(err))
	}

	return nil
}

func (r *runRepository) ListRecent(ctx context.Context, limit int) ([]*domain.RunReport, error) {
	sqlQuery, args, err := squirrel.
		Select(
			"id", "started_at", "finished_at", "state",
			"extracted", "normalized", "fallback", "skipped",
			"staged", "batches", "failed_batches", "row_errors", "merged", "error",
		).
		From(r.table).
		OrderBy("started_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(r.conn.Dialect.Placeholder()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao executar a query: %w", err)
	}
	defer rows.Close()

	var reports []*domain.RunReport
	for rows.Next() {
		report := &domain.RunReport{}
		var startedAt, finishedAt database.NullableTimestamp
		var state string
		var runErr sql.NullString

		err := rows.Scan(
			&report.ID,
			&startedAt,
			&finishedAt,
			&state,
			&report.Extracted,
			&report.Normalized,
			&report.Fallback,
			&report.Skipped,
			&report.Staged,
			&report.Batches,
			&report.FailedBatches,
			&report.RowErrors,
			&report.Merged,
			&runErr,
		)
		if err != nil {
			return nil, fmt.Errorf("erro ao ler execução: %w", err)
		}

		report.StartedAt = startedAt.Time
		report.FinishedAt = finishedAt.Time
		report.State = domain.RunState(state)
		report.Error = runErr.String

		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar execuções: %w", err)
	}

	return reports, nil
}
