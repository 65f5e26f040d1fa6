package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/vfg2006/spend-reconciler/infrastructure/database"
	"github.com/vfg2006/spend-reconciler/internal/domain"
)

//go:generate mockgen -source=target.go -destination=mocks/target_mock.go -package=mocks

type TargetRepository interface {
	EnsureSchema(ctx context.Context) error
	MergeFromStaging(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.NormalizedRecord, error)
}

type targetRepository struct {
	conn         *database.Connection
	table        string
	stagingTable string
}

func NewTargetRepository(conn *database.Connection, table, stagingTable string) TargetRepository {
	return &targetRepository{
		conn:         conn,
		table:        table,
		stagingTable: stagingTable,
	}
}

func (r *targetRepository) EnsureSchema(ctx context.Context) error {
	types := r.conn.Dialect.Types()
	indexPrefix := strings.ReplaceAll(r.table, ".", "_")

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id %s,
			%s
		)`, r.table, types.Serial, spendColumnsDDL(types))

	keyIndex := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s_key_uidx ON %s (account_id, date_start, hour)",
		indexPrefix, r.table,
	)

	sourceIndex := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s_source_idx ON %s (account_id, source_date, source_hour)",
		indexPrefix, r.table,
	)

	return execStatements(ctx, r.conn, ddl, keyIndex, sourceIndex)
}

// MergeFromStaging insere no destino as linhas da staging cuja chave
// (account_id, date_start, hour) ainda não existe. Em uma única instrução:
// linhas já presentes ficam intactas, duplicatas dentro da staging são
// resolvidas pela primeira linha gravada e a linha sentinela é ignorada.
func (r *targetRepository) MergeFromStaging(ctx context.Context) (int64, error) {
	firstPerKey := squirrel.
		Select("MIN(id)").
		From(r.stagingTable).
		Where(squirrel.NotEq{"account_id": domain.SentinelAccountID}).
		GroupBy("account_id", "date_start", "hour")

	firstSQL, firstArgs, err := firstPerKey.ToSql()
	if err != nil {
		return 0, fmt.Errorf("erro ao construir a query: %w", err)
	}

	source := squirrel.
		Select(prefixColumns("s.", spendColumns)...).
		From(r.stagingTable + " s").
		Where("s.id IN ("+firstSQL+")", firstArgs...)

	sqlQuery, args, err := squirrel.
		Insert(r.table).
		Columns(spendColumns...).
		Select(source).
		Suffix("ON CONFLICT (account_id, date_start, hour) DO NOTHING").
		PlaceholderFormat(r.conn.Dialect.Placeholder()).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("erro ao construir a query: %w", err)
	}

	result, err := r.conn.Exec(ctx, sqlQuery, args...)
	if err != nil {
		return 0, fmt.Errorf("erro ao executar o merge: %w", database.DescribeError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("erro ao obter número de linhas afetadas: %w", err)
	}

	return rowsAffected, nil
}

func (r *targetRepository) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, r.conn, r.conn.Dialect, r.table)
}

func (r *targetRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.NormalizedRecord, error) {
	sqlQuery, args, err := squirrel.
		Select(spendColumns...).
		From(r.table).
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("date_start", "hour").
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

	var records []domain.NormalizedRecord
	for rows.Next() {
		rec, err := scanSpendRow(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao ler linha do destino: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar linhas do destino: %w", err)
	}

	return records, nil
}
