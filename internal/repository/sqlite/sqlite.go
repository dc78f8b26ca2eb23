// Package sqlite opens the default SQLite storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so the binary needs no C toolchain
// and cross-compiles like any other Go program.
//
// CONNECTION SETTINGS:
// PRAGMAs in SQLite are per connection, and database/sql opens connections
// whenever it likes, so they are passed in the DSN (_pragma=...) and applied
// by the driver to every new connection:
//   - foreign_keys(1)    sessions and tokens cascade when a user row goes
//   - busy_timeout(5000) wait for a writer instead of failing with SQLITE_BUSY
//   - journal_mode(WAL)  readers don't block the writer (file databases only)
//
// _time_format=sqlite makes the driver write time.Time as
// "2006-01-02 15:04:05.999999999-07:00", a format it also parses back.
//
// The pool is limited to one connection. SQLite serialises writers anyway,
// and an in-memory database exists only inside the connection that created it.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	"github.com/pressly/goose/v3"
	sqlite3 "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/sakif/catchme/internal/apperror"
	"github.com/sakif/catchme/internal/logger"
	"github.com/sakif/catchme/internal/repository/sqlstore"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Memory is the path of a private in-memory database.
const Memory = ":memory:"

// Dialect is the sqlstore dialect for SQLite.
func Dialect() sqlstore.Dialect {
	return sqlstore.Dialect{
		Name:        "sqlite",
		Placeholder: sq.Question,
		MapError:    MapError,
	}
}

// Open opens (creating if needed) the database at path, applies migrations
// and returns a ready Store. Use Memory for a throwaway database.
func Open(ctx context.Context, path string, log *logger.Logger, opts ...sqlstore.Option) (*sqlstore.Store, error) {
	if path != Memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if err := migrate(db, log); err != nil {
		db.Close()
		return nil, err
	}

	opts = append([]sqlstore.Option{sqlstore.WithLogger(log)}, opts...)
	return sqlstore.New(db, Dialect(), opts...), nil
}

func dsn(path string) string {
	params := "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	if path != Memory {
		params += "&_pragma=journal_mode(WAL)"
	}
	return path + params
}

func migrate(db *sql.DB, log *logger.Logger) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(log)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("sqlite: setting migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return nil
}

// MapError classifies SQLite result codes:
//   - UNIQUE / PRIMARY KEY constraint → apperror.ErrConflict
//   - FOREIGN KEY constraint          → apperror.ErrNotFound (the parent row is gone)
//   - BUSY / LOCKED                   → apperror.ErrTransient
//
// The original error stays in the chain for logging.
func MapError(err error) error {
	var sqliteErr *sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	code := sqliteErr.Code()
	switch code {
	case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %w", apperror.ErrConflict, err)
	case sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %w", apperror.ErrNotFound, err)
	}

	// Extended codes carry the primary code in the low byte.
	switch code & 0xff {
	case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
		return fmt.Errorf("%w: %w", apperror.ErrTransient, err)
	}
	return err
}
