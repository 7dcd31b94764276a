package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite persistence layer: the published index snapshot plus
// the contract ledger. Snapshot tables are replaced wholesale on every index
// run; contracts survive across runs and are only touched by explicit writes.
type Store struct {
	db    *sql.DB
	locks contractLocks
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
-- Snapshot tables: replaced in one transaction on every index run.

CREATE TABLE IF NOT EXISTS functions (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL,
  qualified_name  TEXT NOT NULL,
  language        TEXT NOT NULL,
  start_line      INTEGER NOT NULL,
  end_line        INTEGER NOT NULL,
  body            TEXT NOT NULL,
  fingerprint     TEXT NOT NULL,
  UNIQUE(path, qualified_name)
);

CREATE TABLE IF NOT EXISTS call_edges (
  id              INTEGER PRIMARY KEY,
  caller_path     TEXT NOT NULL,
  caller_name     TEXT NOT NULL,
  callee_path     TEXT NOT NULL,
  callee_name     TEXT NOT NULL,
  kind            TEXT NOT NULL,
  count           INTEGER NOT NULL DEFAULT 1,
  UNIQUE(caller_path, caller_name, callee_path, callee_name)
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  kind            TEXT NOT NULL,
  path            TEXT,
  detail          TEXT
);

-- Contract ledger: survives re-indexing.

CREATE TABLE IF NOT EXISTS contracts (
  id                   INTEGER PRIMARY KEY,
  path                 TEXT NOT NULL,
  qualified_name       TEXT NOT NULL,
  expected_behavior    TEXT NOT NULL,
  preconditions        TEXT NOT NULL DEFAULT '[]',
  postconditions       TEXT NOT NULL DEFAULT '[]',
  level                TEXT NOT NULL,
  recorded_fingerprint TEXT NOT NULL,
  recorded_at          TIMESTAMP NOT NULL,
  UNIQUE(path, qualified_name)
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

-- Indexes

CREATE INDEX IF NOT EXISTS idx_functions_path ON functions(path);
CREATE INDEX IF NOT EXISTS idx_functions_name ON functions(qualified_name);
CREATE INDEX IF NOT EXISTS idx_call_edges_caller ON call_edges(caller_path, caller_name);
CREATE INDEX IF NOT EXISTS idx_call_edges_callee ON call_edges(callee_path, callee_name);
CREATE INDEX IF NOT EXISTS idx_contracts_path ON contracts(path);
`

// SetMetadata upserts a metadata key.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}

// GetMetadata returns the value for key, or "" when absent.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %q: %w", key, err)
	}
	return value, nil
}
