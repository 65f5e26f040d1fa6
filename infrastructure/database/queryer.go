package database

import (
	"context"
	"database/sql"
)

// Executor é satisfeito por *sql.DB, *sql.Tx e *Connection, permitindo que o
// mesmo código de repositório rode dentro ou fora de uma transação
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
