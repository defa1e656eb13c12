package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Reflex-Gravity/BarqAdl/pkg/database"
	"github.com/Reflex-Gravity/BarqAdl/pkg/lifecycle"
	"github.com/Reflex-Gravity/BarqAdl/pkg/repository"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	doc_key    TEXT PRIMARY KEY,
	doc        TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS log_entries (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	log_name   TEXT NOT NULL,
	entry      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_log_entries_name ON log_entries (log_name, id);
`

// SQL stores documents and log entries in the documents and log_entries tables.
// Queries are written with $N placeholders and rebound for SQLite.
type SQL struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// NewSQL wraps an open pool. driver is database.DriverPostgres or database.DriverSQLite.
func NewSQL(db *sql.DB, driver string, logger *slog.Logger) *SQL {
	return &SQL{
		db:     db,
		driver: driver,
		logger: logger.With("system", "persistence", "backend", BackendDatabase, "driver", driver),
	}
}

// Start registers schema creation for SQLite. PostgreSQL schemas are applied by cmd/migrate.
func (s *SQL) Start(lc *lifecycle.Coordinator) error {
	if s.driver != database.DriverSQLite {
		return nil
	}
	lc.OnStartup("persistence", s.EnsureSchema)
	return nil
}

// EnsureSchema creates the SQLite tables if they do not exist, in a single transaction.
func (s *SQL) EnsureSchema(ctx context.Context) error {
	_, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		_, err := tx.ExecContext(ctx, sqliteSchema)
		return struct{}{}, err
	})
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	s.logger.Info("schema ready")
	return nil
}

func (s *SQL) Read(ctx context.Context, key string) (json.RawMessage, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	doc, err := repository.QueryOne(
		ctx, s.db,
		s.bind(`SELECT doc FROM documents WHERE doc_key = $1`),
		[]any{key}, scanRaw, ErrNotFound,
	)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return doc, nil
}

func (s *SQL) Write(ctx context.Context, key string, doc json.RawMessage) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := s.db.ExecContext(
		ctx,
		s.bind(`INSERT INTO documents (doc_key, doc, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (doc_key) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`),
		key, string(doc), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, key, err)
	}
	return nil
}

func (s *SQL) AppendLog(ctx context.Context, name string, entry json.RawMessage) error {
	if err := validateKey(name); err != nil {
		return err
	}

	err := repository.ExecExpectOne(
		ctx, s.db,
		s.bind(`INSERT INTO log_entries (log_name, entry, created_at) VALUES ($1, $2, $3)`),
		name, string(entry), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, name, err)
	}
	return nil
}

func (s *SQL) ReadLog(ctx context.Context, name string) ([]json.RawMessage, error) {
	if err := validateKey(name); err != nil {
		return nil, err
	}

	entries, err := repository.QueryMany(
		ctx, s.db,
		s.bind(`SELECT entry FROM log_entries WHERE log_name = $1 ORDER BY id`),
		[]any{name}, scanRaw,
	)
	if err != nil {
		return nil, fmt.Errorf("read log %s: %w", name, err)
	}
	return entries, nil
}

func (s *SQL) bind(query string) string {
	if s.driver == database.DriverSQLite {
		return repository.Rebind(query)
	}
	return query
}

func scanRaw(sc repository.Scanner) (json.RawMessage, error) {
	var b []byte
	if err := sc.Scan(&b); err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
