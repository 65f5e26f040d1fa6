package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/vfg2006/spend-reconciler/infrastructure/database"
)

//go:generate mockgen -source=timezone_directory.go -destination=mocks/timezone_directory_mock.go -package=mocks

// TimezoneDirectoryRepository consulta o diretório de contas (ad_account_code -> timezone)
type TimezoneDirectoryRepository interface {
	GetTimezones(ctx context.Context, accountNames []string) (map[string]string, error)
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, accountName, timezone string) error
}

type timezoneDirectoryRepository struct {
	conn  *database.Connection
	table string
}

func NewTimezoneDirectoryRepository(conn *database.Connection, table string) TimezoneDirectoryRepository {
	return &timezoneDirectoryRepository{
		conn:  conn,
		table: table,
	}
}

// GetTimezones devolve apenas os nomes com fuso preenchido; nomes ausentes
// ou com fuso nulo simplesmente não aparecem no mapa.
func (r *timezoneDirectoryRepository) GetTimezones(ctx context.Context, accountNames []string) (map[string]string, error) {
	timezones := make(map[string]string, len(accountNames))
	if len(accountNames) == 0 {
		return timezones, nil
	}

	sqlQuery, args, err := squirrel.
		Select("ad_account_code", "timezone").
		From(r.table).
		Where(squirrel.Eq{"ad_account_code": accountNames}).
		PlaceholderFormat(r.conn.Dialect.Placeholder()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao consultar diretório de fusos: %w", database.DescribeError(err))
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		var tz sql.NullString

		if err := rows.Scan(&code, &tz); err != nil {
			return nil, fmt.Errorf("erro ao ler linha do diretório de fusos: %w", err)
		}

		if tz.Valid && tz.String != "" {
			timezones[code] = tz.String
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar diretório de fusos: %w", err)
	}

	return timezones, nil
}

// EnsureSchema cria o diretório quando ele não existe, usado em execuções locais
func (r *timezoneDirectoryRepository) EnsureSchema(ctx context.Context) error {
	types := r.conn.Dialect.Types()

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			ad_account_code %s PRIMARY KEY,
			timezone %s
		)`, r.table, types.Text, types.Text)

	return execStatements(ctx, r.conn, ddl)
}

func (r *timezoneDirectoryRepository) Upsert(ctx context.Context, accountName, timezone string) error {
	sqlQuery, args, err := squirrel.
		Insert(r.table).
		Columns("ad_account_code", "timezone").
		Values(accountName, timezone).
		Suffix(`
			ON CONFLICT (ad_account_code) DO UPDATE SET
				timezone = EXCLUDED.timezone
		`).
		PlaceholderFormat(r.conn.Dialect.Placeholder()).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sqlQuery, args...); err != nil {
		return fmt.Errorf("erro ao executar a query: %w", database.DescribeError(err))
	}

	return nil
}
