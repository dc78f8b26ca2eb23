// Package sqlstore implements repository.Store on database/sql.
//
// The same statements run on SQLite and PostgreSQL. Both support
// INSERT ... ON CONFLICT ... DO UPDATE and RETURNING, so the only differences
// a Dialect carries are the placeholder style and how driver errors are
// classified.
//
// QUERY BUILDING:
// Statements are built with squirrel and executed with the *Context methods
// of *sql.DB:
//
//	query, args, err := s.sb.Select("id").From("users").Where(sq.Eq{"id": id}).ToSql()
//	row := s.db.QueryRowContext(ctx, query, args...)
//
// Every timestamp handed to the database is UTC, which keeps SQLite's textual
// time encoding ordered the same way as time itself.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/sakif/catchme/internal/apperror"
	"github.com/sakif/catchme/internal/logger"
	"github.com/sakif/catchme/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// Dialect describes what differs between database backends.
type Dialect struct {
	Name        string
	Placeholder sq.PlaceholderFormat

	// MapError translates a driver error into the apperror taxonomy. It must
	// return err unchanged when it does not recognise it.
	MapError func(error) error
}

// Store is the SQL implementation of repository.Store.
type Store struct {
	db      *sql.DB
	sb      sq.StatementBuilderType
	dialect Dialect
	now     func() time.Time
	log     *logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for created_at/updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for storage diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l.With("component", "sqlstore")
		}
	}
}

// New wraps an open connection pool. The Store takes ownership of db and
// closes it in Close.
func New(db *sql.DB, dialect Dialect, opts ...Option) *Store {
	if dialect.MapError == nil {
		dialect.MapError = func(err error) error { return err }
	}
	s := &Store{
		db:      db,
		sb:      sq.StatementBuilder.PlaceholderFormat(dialect.Placeholder),
		dialect: dialect,
		now:     time.Now,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying pool, e.g. for migrations.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the name of the backend, "sqlite" or "postgres".
func (s *Store) Dialect() string { return s.dialect.Name }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.wrap("ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) stamp() time.Time {
	return s.now().UTC()
}

// wrap adds the operation name and classifies driver errors.
func (s *Store) wrap(op string, err error) error {
	return fmt.Errorf("sqlstore: %s: %w", op, s.dialect.MapError(err))
}

// noRow reports an upsert whose RETURNING clause produced no row.
func noRow(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &apperror.PersistenceError{Op: op}
	}
	return nil
}
