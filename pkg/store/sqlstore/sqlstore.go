// Package sqlstore persists graph nodes in a SQL table. Each node is one
// row keyed by entity name and key, with its serialized body as text.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
	"go.uber.org/zap"

	"github.com/conduit-lang/serialkit/pkg/store"
)

// DefaultTable is the table nodes are stored in unless WithTable is given
const DefaultTable = "serial_nodes"

// Dialect selects placeholder syntax for a database
type Dialect int

const (
	// SQLite uses ? placeholders
	SQLite Dialect = iota
	// Postgres uses $n placeholders
	Postgres
)

// String returns the dialect name
func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return "unknown"
	}
}

// DialectFor returns the dialect of a registered driver name
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return SQLite, nil
	case "pgx", "postgres":
		return Postgres, nil
	default:
		return 0, fmt.Errorf("unsupported driver %q", driver)
	}
}

// placeholder returns the nth (1-based) bind parameter
func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Store is a store.Backend over database/sql
type Store struct {
	db      *sql.DB
	dialect Dialect
	table   string
	logger  *zap.Logger
	closed  atomic.Bool
}

// Option configures a Store
type Option func(*Store)

// WithTable sets the table name
func WithTable(name string) Option {
	return func(s *Store) { s.table = name }
}

// WithLogger sets the store logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open opens a database with one of the sqlite3, pgx or postgres drivers
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if dialect == SQLite && strings.Contains(dsn, ":memory:") {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	return New(db, dialect, opts...), nil
}

// New wraps an open database
func New(db *sql.DB, dialect Dialect, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: dialect,
		table:   DefaultTable,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session creates a session that loads and commits through this store
func (s *Store) Session(opts ...store.Option) *store.Session {
	return store.NewSession(s, opts...)
}

// Migrate creates the node table if it does not exist
func (s *Store) Migrate(ctx context.Context) error {
	if s.closed.Load() {
		return store.ErrClosed
	}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	entity TEXT NOT NULL,
	id TEXT NOT NULL,
	body TEXT NOT NULL,
	PRIMARY KEY (entity, id)
)`, pq.QuoteIdentifier(s.table))

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, ConvertDBError(err))
	}
	return nil
}

// Load implements store.Backend
func (s *Store) Load(ctx context.Context, entity, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, store.ErrClosed
	}
	query := fmt.Sprintf("SELECT body FROM %s WHERE entity = %s AND id = %s",
		pq.QuoteIdentifier(s.table), s.dialect.placeholder(1), s.dialect.placeholder(2))

	var body string
	if err := s.db.QueryRowContext(ctx, query, entity, key).Scan(&body); err != nil {
		return nil, ConvertDBError(err)
	}
	return []byte(body), nil
}

// Save implements store.Backend. Records are upserted in one transaction.
func (s *Store) Save(ctx context.Context, records []store.Record) (err error) {
	if s.closed.Load() {
		return store.ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	query := fmt.Sprintf(
		"INSERT INTO %s (entity, id, body) VALUES (%s, %s, %s) ON CONFLICT (entity, id) DO UPDATE SET body = excluded.body",
		pq.QuoteIdentifier(s.table), s.dialect.placeholder(1), s.dialect.placeholder(2), s.dialect.placeholder(3))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", ConvertDBError(err))
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err = stmt.ExecContext(ctx, r.Entity, r.Key, string(r.Body)); err != nil {
			return fmt.Errorf("failed to save %s %q: %w", r.Entity, r.Key, ConvertDBError(err))
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.logger.Debug("records saved", zap.String("table", s.table), zap.Int("count", len(records)))
	return nil
}

// Keys returns the stored keys of entity in sorted order
func (s *Store) Keys(ctx context.Context, entity string) ([]string, error) {
	if s.closed.Load() {
		return nil, store.ErrClosed
	}
	query := fmt.Sprintf("SELECT id FROM %s WHERE entity = %s ORDER BY id",
		pq.QuoteIdentifier(s.table), s.dialect.placeholder(1))

	rows, err := s.db.QueryContext(ctx, query, entity)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Delete removes the stored node for entity and key
func (s *Store) Delete(ctx context.Context, entity, key string) error {
	if s.closed.Load() {
		return store.ErrClosed
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE entity = %s AND id = %s",
		pq.QuoteIdentifier(s.table), s.dialect.placeholder(1), s.dialect.placeholder(2))

	result, err := s.db.ExecContext(ctx, query, entity, key)
	if err != nil {
		return ConvertDBError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}
