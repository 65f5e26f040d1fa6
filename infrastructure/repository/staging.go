package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/spend-reconciler/infrastructure/database"
	"github.com/vfg2006/spend-reconciler/internal/domain"
)

// Linhas por INSERT multi-valor; mantém o número de parâmetros abaixo do limite do SQLite
const appendChunkSize = 500

//go:generate mockgen -source=staging.go -destination=mocks/staging_mock.go -package=mocks

type StagingRepository interface {
	EnsureSchema(ctx context.Context) error
	AppendSentinelIfEmpty(ctx context.Context, canonical *time.Location) (bool, error)
	Append(ctx context.Context, rows []domain.NormalizedRecord) ([]RowError, error)
	Truncate(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// RowError descreve uma linha recusada pelo banco durante o append
type RowError struct {
	Index int
	Key   domain.SpendKey
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("linha %d (%s/%s/%s) recusada: %v",
		e.Index, e.Key.AccountID, e.Key.DateStart, e.Key.Hour, e.Err)
}

type stagingRepository struct {
	conn  *database.Connection
	table string
}

func NewStagingRepository(conn *database.Connection, table string) StagingRepository {
	return &stagingRepository{
		conn:  conn,
		table: table,
	}
}

func (r *stagingRepository) EnsureSchema(ctx context.Context) error {
	types := r.conn.Dialect.Types()

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id %s,
			%s
		)`, r.table, types.Serial, spendColumnsDDL(types))

	return execStatements(ctx, r.conn, ddl)
}

// AppendSentinelIfEmpty insere a linha DUMMY apenas quando a staging está
// vazia. Contagem e inserção rodam na mesma transação.
func (r *stagingRepository) AppendSentinelIfEmpty(ctx context.Context, canonical *time.Location) (bool, error) {
	inserted := false

	err := r.conn.RunInTransaction(ctx, func(tx *sql.Tx) error {
		count, err := countRows(ctx, tx, r.conn.Dialect, r.table)
		if err != nil {
			return err
		}

		if count > 0 {
			return nil
		}

		if err := r.insertRows(ctx, tx, []domain.NormalizedRecord{domain.SentinelRecord(canonical)}); err != nil {
			return fmt.Errorf("erro ao inserir linha sentinela: %w", database.DescribeError(err))
		}

		inserted = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if inserted {
		logrus.Infof("Staging %s vazia, linha sentinela inserida", r.table)
	}

	return inserted, nil
}

// Append grava as linhas em lotes. Um lote recusado por causa dos dados é
// reenviado linha a linha e as recusas voltam como RowError; qualquer outra
// falha interrompe o append e é devolvida como erro.
func (r *stagingRepository) Append(ctx context.Context, rows []domain.NormalizedRecord) ([]RowError, error) {
	var rowErrors []RowError

	for start := 0; start < len(rows); start += appendChunkSize {
		end := min(start+appendChunkSize, len(rows))
		chunk := rows[start:end]

		err := r.insertRows(ctx, r.conn, chunk)
		if err == nil {
			continue
		}

		if !database.IsRowRejection(err) {
			return rowErrors, fmt.Errorf("erro ao gravar lote na staging: %w", database.DescribeError(err))
		}

		logrus.Warnf("Lote de %d linhas recusado pela staging, reenviando linha a linha: %v", len(chunk), err)

		for i, row := range chunk {
			if err := r.insertRows(ctx, r.conn, []domain.NormalizedRecord{row}); err != nil {
				if !database.IsRowRejection(err) {
					return rowErrors, fmt.Errorf("erro ao gravar linha na staging: %w", database.DescribeError(err))
				}
				rowErrors = append(rowErrors, RowError{Index: start + i, Key: row.Key(), Err: err})
			}
		}
	}

	return rowErrors, nil
}

func (r *stagingRepository) insertRows(ctx context.Context, q database.Executor, rows []domain.NormalizedRecord) error {
	query := squirrel.
		Insert(r.table).
		Columns(spendColumns...).
		PlaceholderFormat(r.conn.Dialect.Placeholder())

	for _, row := range rows {
		query = query.Values(spendRowValues(row)...)
	}

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	_, err = q.ExecContext(ctx, sqlQuery, args...)
	return err
}

func (r *stagingRepository) Truncate(ctx context.Context) error {
	if _, err := r.conn.Exec(ctx, r.conn.Dialect.TruncateSQL(r.table)); err != nil {
		return fmt.Errorf("erro ao esvaziar a staging %s: %w", r.table, database.DescribeError(err))
	}
	return nil
}

func (r *stagingRepository) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, r.conn, r.conn.Dialect, r.table)
}
