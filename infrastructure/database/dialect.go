package database

import (
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/vfg2006/spend-reconciler/internal/config"
)

// Dialect isola as diferenças de SQL entre Postgres e SQLite
type Dialect string

const (
	Postgres Dialect = config.DriverPostgres
	SQLite   Dialect = config.DriverSQLite
)

// ColumnTypes são os tipos usados nas DDLs de staging, destino e execuções
type ColumnTypes struct {
	Serial    string
	Date      string
	Timestamp string
	Numeric   string
	Text      string
	Integer   string
}

func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverPostgres:
		return Postgres, nil
	case config.DriverSQLite:
		return SQLite, nil
	default:
		return "", fmt.Errorf("driver de banco não suportado: %q", driver)
	}
}

func (d Dialect) DriverName() string {
	return string(d)
}

func (d Dialect) PrepareDSN(dsn string) string {
	if d == SQLite && dsn == "" {
		return ":memory:"
	}
	return dsn
}

func (d Dialect) Placeholder() squirrel.PlaceholderFormat {
	if d == Postgres {
		return squirrel.Dollar
	}
	return squirrel.Question
}

func (d Dialect) Types() ColumnTypes {
	if d == Postgres {
		return ColumnTypes{
			Serial:    "BIGSERIAL PRIMARY KEY",
			Date:      "DATE",
			Timestamp: "TIMESTAMPTZ",
			Numeric:   "NUMERIC(18,6)",
			Text:      "TEXT",
			Integer:   "BIGINT",
		}
	}

	// Datas e timestamps ficam como texto ISO-8601 no SQLite
	return ColumnTypes{
		Serial:    "INTEGER PRIMARY KEY AUTOINCREMENT",
		Date:      "TEXT",
		Timestamp: "TEXT",
		Numeric:   "TEXT",
		Text:      "TEXT",
		Integer:   "INTEGER",
	}
}

// TruncateSQL retorna o comando que esvazia a tabela por completo
func (d Dialect) TruncateSQL(table string) string {
	if d == Postgres {
		return fmt.Sprintf("TRUNCATE TABLE %s", table)
	}
	return fmt.Sprintf("DELETE FROM %s", table)
}

// IsRowRejection indica se o erro foi causado pelos dados de uma linha
// (violação de restrição ou valor inválido) e não por falha de transporte.
func IsRowRejection(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		class := pqErr.Code.Class()
		// 22: data exception, 23: integrity constraint violation
		return class == "22" || class == "23"
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint || sqliteErr.Code == sqlite3.ErrMismatch
	}

	return false
}

// DescribeError acrescenta o código do Postgres à mensagem, quando houver
func DescribeError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("erro no banco de dados: %w (código: %s)", err, pqErr.Code)
	}
	return err
}
