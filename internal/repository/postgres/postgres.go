// Package postgres opens the PostgreSQL storage backend through pgx's
// database/sql driver and classifies PostgreSQL error codes.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/pressly/goose/v3"

	"github.com/sakif/catchme/internal/apperror"
	"github.com/sakif/catchme/internal/logger"
	"github.com/sakif/catchme/internal/repository/sqlstore"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Dialect is the sqlstore dialect for PostgreSQL.
func Dialect() sqlstore.Dialect {
	return sqlstore.Dialect{
		Name:        "postgres",
		Placeholder: sq.Dollar,
		MapError:    MapError,
	}
}

// Open connects to dsn (a postgres:// URL or key=value string), applies
// migrations and returns a ready Store.
func Open(ctx context.Context, dsn string, log *logger.Logger, opts ...sqlstore.Option) (*sqlstore.Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	if err := migrate(db, log); err != nil {
		db.Close()
		return nil, err
	}

	opts = append([]sqlstore.Option{sqlstore.WithLogger(log)}, opts...)
	return sqlstore.New(db, Dialect(), opts...), nil
}

func migrate(db *sql.DB, log *logger.Logger) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(log)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("postgres: setting migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("postgres: running migrations: %w", err)
	}
	return nil
}

// MapError maps a *pgconn.PgError onto the apperror sentinels.
// See https://www.postgresql.org/docs/current/errcodes-appendix.html.
//
// Transient codes (the operation may succeed if attempted again):
//   - Class 08: connection exceptions
//   - Class 40: serialization failure, deadlock
//   - 57P03: cannot connect now
//
// Integrity violations:
//   - 23505 unique_violation      → apperror.ErrConflict
//   - 23503 foreign_key_violation → apperror.ErrNotFound
//
// Anything else is returned unchanged.
func MapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: %w", apperror.ErrConflict, err)

	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%w: %w", apperror.ErrNotFound, err)

	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.TransactionRollback,
		pgerrcode.SerializationFailure,
		pgerrcode.DeadlockDetected,
		pgerrcode.CannotConnectNow:
		return fmt.Errorf("%w: %w", apperror.ErrTransient, err)
	}

	return err
}
