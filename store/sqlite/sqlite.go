/*
Package sqlite provides a SQLite-backed implementation of ledger.RecordStore.

PURPOSE:
  Persists whole ledger documents as JSON rows. The same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

WHY JSON DOCUMENTS:
  The document shape is open by design: arbitrary custom substances with
  free-text descriptors, keyed by slug. New substances must never require
  a schema migration, so the payload is a JSON blob and only the storage
  identity (location, log type, key, status, version) is relational.

OPTIMISTIC CONCURRENCY:
  Every UPDATE carries "WHERE version = ?" with the version the caller
  loaded. Zero rows affected means someone else wrote first and the save
  fails with ErrVersionConflict - never last-write-wins.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and crash recovery improves.

USAGE:
  st, err := sqlite.New("./data/ledgers.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  svc := ledger.NewService(st, nil, nil)

SEE ALSO:
  - ledger/store.go: Interface definition
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/substance-ledger/ledger"
)

// Store implements ledger.RecordStore using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent across calls.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ledger_documents (
		id TEXT PRIMARY KEY,
		location_id TEXT NOT NULL,
		log_type TEXT NOT NULL,
		log_key TEXT NOT NULL,
		status TEXT NOT NULL,
		data_json TEXT NOT NULL,
		submitted_by TEXT,
		updated_at TEXT NOT NULL,
		version INTEGER NOT NULL,
		UNIQUE(location_id, log_type, log_key)
	);

	-- List queries scan one location's ledgers ordered by key (hot path
	-- for the compliance analyzer).
	CREATE INDEX IF NOT EXISTS idx_ledger_documents_location_type
		ON ledger_documents(location_id, log_type, log_key);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RECORD STORE IMPLEMENTATION
// =============================================================================

func (s *Store) Fetch(ctx context.Context, location ledger.LocationID, logType string, logKey ledger.DrugSlug) (ledger.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, data_json, submitted_by, updated_at, version
		FROM ledger_documents
		WHERE location_id = ? AND log_type = ? AND log_key = ?`,
		string(location), logType, string(logKey))

	rec := ledger.Record{Location: location, LogType: logType, LogKey: logKey}
	var dataJSON, updatedAt string
	var submittedBy sql.NullString
	var status string

	err := row.Scan(&rec.ID, &status, &dataJSON, &submittedBy, &updatedAt, &rec.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Record{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.Record{}, fmt.Errorf("fetch ledger document: %w", err)
	}

	rec.Status = ledger.Status(status)
	rec.SubmittedBy = submittedBy.String
	if err := json.Unmarshal([]byte(dataJSON), &rec.Data); err != nil {
		return ledger.Record{}, fmt.Errorf("decode ledger document: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		rec.UpdatedAt = t
	}
	return rec, nil
}

// Save overwrites the whole document. The version presented by the caller
// must match the stored one (0 for a new document).
func (s *Store) Save(ctx context.Context, rec ledger.Record) (ledger.Record, error) {
	dataJSON, err := json.Marshal(rec.Data)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("encode ledger document: %w", err)
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	var currentVersion int64
	var currentID string
	err = tx.QueryRowContext(ctx, `
		SELECT id, version FROM ledger_documents
		WHERE location_id = ? AND log_type = ? AND log_key = ?`,
		string(rec.Location), rec.LogType, string(rec.LogKey)).
		Scan(&currentID, &currentVersion)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if rec.Version != 0 {
			return ledger.Record{}, ledger.ErrVersionConflict
		}
		rec.ID = uuid.NewString()
		rec.Version = 1
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_documents
				(id, location_id, log_type, log_key, status, data_json, submitted_by, updated_at, version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, string(rec.Location), rec.LogType, string(rec.LogKey),
			string(rec.Status), string(dataJSON), rec.SubmittedBy,
			updatedAt.Format(time.RFC3339Nano), rec.Version)
		if err != nil {
			return ledger.Record{}, fmt.Errorf("insert ledger document: %w", err)
		}

	case err != nil:
		return ledger.Record{}, fmt.Errorf("save ledger document: %w", err)

	default:
		if rec.Version != currentVersion {
			return ledger.Record{}, ledger.ErrVersionConflict
		}
		rec.ID = currentID
		rec.Version = currentVersion + 1
		res, err := tx.ExecContext(ctx, `
			UPDATE ledger_documents
			SET status = ?, data_json = ?, submitted_by = ?, updated_at = ?, version = ?
			WHERE id = ? AND version = ?`,
			string(rec.Status), string(dataJSON), rec.SubmittedBy,
			updatedAt.Format(time.RFC3339Nano), rec.Version,
			rec.ID, currentVersion)
		if err != nil {
			return ledger.Record{}, fmt.Errorf("update ledger document: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ledger.Record{}, ledger.ErrVersionConflict
		}
	}

	if err := tx.Commit(); err != nil {
		return ledger.Record{}, fmt.Errorf("commit save: %w", err)
	}
	rec.UpdatedAt = updatedAt
	return rec, nil
}

func (s *Store) List(ctx context.Context, location ledger.LocationID, logType string, limit int) ([]ledger.Record, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, log_key, status, data_json, submitted_by, updated_at, version
		FROM ledger_documents
		WHERE location_id = ? AND log_type = ?
		ORDER BY log_key
		LIMIT ?`,
		string(location), logType, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger documents: %w", err)
	}
	defer rows.Close()

	var out []ledger.Record
	for rows.Next() {
		rec := ledger.Record{Location: location, LogType: logType}
		var logKey, status, dataJSON, updatedAt string
		var submittedBy sql.NullString
		if err := rows.Scan(&rec.ID, &logKey, &status, &dataJSON, &submittedBy, &updatedAt, &rec.Version); err != nil {
			return nil, fmt.Errorf("scan ledger document: %w", err)
		}
		rec.LogKey = ledger.DrugSlug(logKey)
		rec.Status = ledger.Status(status)
		rec.SubmittedBy = submittedBy.String
		if err := json.Unmarshal([]byte(dataJSON), &rec.Data); err != nil {
			return nil, fmt.Errorf("decode ledger document %s: %w", logKey, err)
		}
		if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			rec.UpdatedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Purge(ctx context.Context, location ledger.LocationID, logType string, logKey ledger.DrugSlug) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM ledger_documents
		WHERE location_id = ? AND log_type = ? AND log_key = ?`,
		string(location), logType, string(logKey))
	if err != nil {
		return fmt.Errorf("purge ledger document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}
