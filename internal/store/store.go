// Package store persists mapped records into a SQL database.
//
// Tables come from a schema.Registry; each backend (sqlite, postgres)
// registers a Dialect in its init function and is selected by Config.Kind.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/franz/yt-schema/internal/schema"
	"github.com/franz/yt-schema/internal/util"
)

// Config selects and configures a backend.
type Config struct {
	Kind string // "sqlite" or "postgres"
	DSN  string

	// Registry defaults to schema.Default().
	Registry *schema.Registry
	// Retry governs connection establishment. Nil uses util.DefaultRetryConfig.
	Retry *util.RetryConfig
}

// Store is a handle to one database. It is safe for concurrent use. On a
// single-writer backend transactions run one at a time, so workers sharing
// a Store queue behind each other instead of failing on the file lock.
type Store struct {
	db      *sql.DB
	dialect *Dialect
	reg     *schema.Registry
	kind    string

	writeMu sync.Mutex
}

// Open connects to the configured backend and creates missing tables.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Kind == "" {
		cfg.Kind = "sqlite"
	}
	d, err := lookupDialect(cfg.Kind)
	if err != nil {
		return nil, err
	}
	reg := cfg.Registry
	if reg == nil {
		reg = schema.Default()
	}

	db, err := sql.Open(d.Driver, d.DSN(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if d.SingleWriter {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	retry := cfg.Retry
	if retry == nil {
		retry = util.DefaultRetryConfig()
	}
	_, err = util.RetryWithBackoff(ctx, retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, db.PingContext(ctx)
	}, "connect "+cfg.Kind)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Kind, err)
	}

	s := &Store{db: db, dialect: d, reg: reg, kind: cfg.Kind}
	if err := s.EnsureTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for custom queries
func (s *Store) DB() *sql.DB {
	return s.db
}

// SingleWriter reports whether transactions on this store are serialized.
func (s *Store) SingleWriter() bool { return s.dialect.SingleWriter }

// Kind returns the backend kind the store was opened with.
func (s *Store) Kind() string { return s.kind }

// Registry returns the tables this store manages.
func (s *Store) Registry() *schema.Registry { return s.reg }

// Version reports the backend version string.
func (s *Store) Version(ctx context.Context) (string, error) {
	return s.dialect.Version(ctx, s.db)
}

// EnsureTables creates every registry table that does not exist yet.
func (s *Store) EnsureTables(ctx context.Context) error {
	return s.Transaction(ctx, func(tx *Tx) error {
		return tx.createTables(ctx)
	})
}

// Reset drops every registry table, children first, and recreates them.
// All imported data is lost.
func (s *Store) Reset(ctx context.Context) error {
	return s.Transaction(ctx, func(tx *Tx) error {
		tables := s.reg.Tables()
		for i := len(tables) - 1; i >= 0; i-- {
			if _, err := tx.tx.ExecContext(ctx, dropTableSQL(s.dialect, tables[i])); err != nil {
				return fmt.Errorf("failed to drop %s: %w", tables[i].Name, err)
			}
		}
		return tx.createTables(ctx)
	})
}

// InsertOne inserts rec and returns its generated id.
func (s *Store) InsertOne(ctx context.Context, table string, rec schema.Record) (int64, error) {
	return insertOne(ctx, s.db, s.dialect, s.reg, table, rec)
}

// InsertMany inserts recs in order. Generated ids are not returned.
func (s *Store) InsertMany(ctx context.Context, table string, recs []schema.Record) error {
	return insertMany(ctx, s.db, s.dialect, s.reg, table, recs)
}

// Transaction executes a function within a transaction
func (s *Store) Transaction(ctx context.Context, fn func(*Tx) error) error {
	if s.dialect.SingleWriter {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{tx: sqlTx, dialect: s.dialect, reg: s.reg}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// TableCount is the row count of one table.
type TableCount struct {
	Table string
	Rows  int64
}

// CountRows returns row counts for every registry table in creation order.
func (s *Store) CountRows(ctx context.Context) ([]TableCount, error) {
	tables := s.reg.Tables()
	out := make([]TableCount, 0, len(tables))
	for _, t := range tables {
		var n int64
		q := "SELECT COUNT(*) FROM " + quoteIdent(t.Name)
		if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", t.Name, err)
		}
		out = append(out, TableCount{Table: t.Name, Rows: n})
	}
	return out, nil
}

// CheckIntegrity runs the backend's consistency checks.
func (s *Store) CheckIntegrity(ctx context.Context) error {
	return s.dialect.Integrity(ctx, s.db)
}

// Tx is a store transaction. It satisfies the same insert contract as Store.
type Tx struct {
	tx      *sql.Tx
	dialect *Dialect
	reg     *schema.Registry
}

// InsertOne inserts rec and returns its generated id.
func (t *Tx) InsertOne(ctx context.Context, table string, rec schema.Record) (int64, error) {
	return insertOne(ctx, t.tx, t.dialect, t.reg, table, rec)
}

// InsertMany inserts recs in order.
func (t *Tx) InsertMany(ctx context.Context, table string, recs []schema.Record) error {
	return insertMany(ctx, t.tx, t.dialect, t.reg, table, recs)
}

func (t *Tx) createTables(ctx context.Context) error {
	for _, tbl := range t.reg.Tables() {
		for _, stmt := range createTableSQL(t.dialect, tbl) {
			if _, err := t.tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create %s: %w", tbl.Name, err)
			}
		}
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertOne(ctx context.Context, q execer, d *Dialect, reg *schema.Registry, table string, rec schema.Record) (int64, error) {
	t, err := reg.Table(table)
	if err != nil {
		return 0, err
	}
	if err := reg.Validate(table, rec); err != nil {
		return 0, err
	}

	cols := t.ColumnNames()
	query := insertSQL(d, table, cols, 1)
	args := rec.Values(cols)

	if d.Returning {
		var id int64
		if err := q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, wrapInsertErr(d, table, err)
		}
		return id, nil
	}

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, wrapInsertErr(d, table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get %s id: %w", table, err)
	}
	return id, nil
}

func insertMany(ctx context.Context, q execer, d *Dialect, reg *schema.Registry, table string, recs []schema.Record) error {
	if len(recs) == 0 {
		return nil
	}
	t, err := reg.Table(table)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := reg.Validate(table, rec); err != nil {
			return err
		}
	}

	cols := t.ColumnNames()
	size := chunkSize(d, len(cols))
	noReturn := *d
	noReturn.Returning = false

	for start := 0; start < len(recs); start += size {
		end := start + size
		if end > len(recs) {
			end = len(recs)
		}
		chunk := recs[start:end]

		args := make([]any, 0, len(chunk)*len(cols))
		for _, rec := range chunk {
			args = append(args, rec.Values(cols)...)
		}
		if _, err := q.ExecContext(ctx, insertSQL(&noReturn, table, cols, len(chunk)), args...); err != nil {
			return wrapInsertErr(d, table, err)
		}
	}
	return nil
}

func wrapInsertErr(d *Dialect, table string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if constraint, ok := d.UniqueViolation(err); ok {
		return &UniqueViolationError{Table: table, Constraint: constraint, Err: err}
	}
	return fmt.Errorf("failed to insert into %s: %w", table, err)
}
