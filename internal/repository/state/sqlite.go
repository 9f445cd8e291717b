package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // Registers the sqlite3 driver.

	"github.com/oshokin/home-security/internal/domain/security"
)

// schemaSQL creates the single-row config table. The CHECK on id keeps it single-row.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS security_config (
	id              INTEGER PRIMARY KEY CHECK (id = 1),
	security_status TEXT NOT NULL,
	security_state  TEXT NOT NULL,
	updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const (
	selectConfigSQL = `SELECT security_status, security_state FROM security_config WHERE id = 1`
	upsertConfigSQL = `
INSERT INTO security_config (id, security_status, security_state, updated_at)
VALUES (1, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
	security_status = excluded.security_status,
	security_state  = excluded.security_state,
	updated_at      = excluded.updated_at`
)

// SQLiteRepository persists the alarm config in a SQLite database.
type SQLiteRepository struct {
	// db is the open database handle.
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures the schema.
// Use ":memory:" for an ephemeral database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	repo, err := NewSQLiteRepository(ctx, db)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return repo, nil
}

// NewSQLiteRepository wraps an existing handle and ensures the schema exists.
func NewSQLiteRepository(ctx context.Context, db *sql.DB) (*SQLiteRepository, error) {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("initialize sqlite schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Load reads the config row.
func (r *SQLiteRepository) Load(ctx context.Context) (security.Config, error) {
	var status, state string

	err := r.db.QueryRowContext(ctx, selectConfigSQL).Scan(&status, &state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return security.Config{}, ErrNotFound
		}

		return security.Config{}, fmt.Errorf("query security config: %w", err)
	}

	cfg, err := security.ParseConfig(status, state)
	if err != nil {
		return security.Config{}, fmt.Errorf("decode security config row: %w", err)
	}

	return cfg, nil
}

// Save upserts the config row.
func (r *SQLiteRepository) Save(ctx context.Context, cfg security.Config) error {
	if _, err := r.db.ExecContext(ctx, upsertConfigSQL, string(cfg.Status), string(cfg.State)); err != nil {
		return fmt.Errorf("upsert security config: %w", err)
	}

	return nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
