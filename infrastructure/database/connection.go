package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/vfg2006/spend-reconciler/internal/config"
)

type Connection struct {
	*sql.DB
	Dialect Dialect

	// Locks em processo, usados quando o banco não oferece advisory locks
	localLocks sync.Map
}

func NewConnection(
	ctx context.Context,
	cfg config.Database,
) (*Connection, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName(), dialect.PrepareDSN(cfg.DSN))
	if err != nil {
		return nil, err
	}

	if dialect == SQLite {
		// SQLite aceita apenas um escritor por vez
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &Connection{DB: db, Dialect: dialect}, nil
}

// NewSQLiteConnection abre uma conexão SQLite, útil para execuções locais e testes
func NewSQLiteConnection(ctx context.Context, dsn string) (*Connection, error) {
	return NewConnection(ctx, config.Database{Driver: config.DriverSQLite, DSN: dsn})
}

func (c *Connection) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Connection) Begin(ctx context.Context) (*sql.Tx, error) {
	return c.DB.BeginTx(ctx, nil)
}

func (c *Connection) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.DB.ExecContext(ctx, query, args...)
}

func (c *Connection) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.DB.QueryContext(ctx, query, args...)
}

func (c *Connection) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.DB.QueryRowContext(ctx, query, args...)
}

// RunInTransaction executa fn em uma transação, com rollback em erro ou panic
func (c *Connection) RunInTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err := recover(); err != nil {
			_ = tx.Rollback()
			panic(err)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// TryLock tenta obter um lock exclusivo identificado por key sem bloquear.
// No Postgres usa pg_try_advisory_lock em uma conexão dedicada, o que serializa
// execuções entre processos; no SQLite o lock vale apenas para o processo atual.
func (c *Connection) TryLock(ctx context.Context, key int64) (func(), bool, error) {
	if c.Dialect != Postgres {
		return c.tryLocalLock(key)
	}

	conn, err := c.DB.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("erro ao reservar conexão para o lock: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&acquired); err != nil {
		conn.Close()
		return nil, false, fmt.Errorf("erro ao obter advisory lock: %w", err)
	}

	if !acquired {
		conn.Close()
		return nil, false, nil
	}

	release := func() {
		// O lock é de sessão; usa um contexto próprio para liberar mesmo após cancelamento
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", key)
		conn.Close()
	}

	return release, true, nil
}

func (c *Connection) tryLocalLock(key int64) (func(), bool, error) {
	value, _ := c.localLocks.LoadOrStore(key, &sync.Mutex{})
	mu := value.(*sync.Mutex)

	if !mu.TryLock() {
		return nil, false, nil
	}

	return mu.Unlock, true, nil
}
