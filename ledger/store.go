/*
store.go - Persistence interface for ledger documents

PURPOSE:
  Defines the boundary between the engine and the record store. The unit
  of persistence is the WHOLE document: every save overwrites the full row
  array and header fields atomically. There is no row-level write API.

OPTIMISTIC CONCURRENCY:
  Two editors of the same ledger must not silently erase each other's
  work, so every Record carries a version token. Save compares the token
  presented by the caller against the stored one and rejects mismatches
  with ErrVersionConflict instead of last-write-wins. A fresh (absent)
  document saves with version 0.

IMPLEMENTATIONS:
  - ledger/store: in-memory, for tests and development
  - store/sqlite: production SQLite, documents as JSON rows

SEE ALSO:
  - service.go: The orchestration layer over this interface
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// RECORD - One stored document plus store metadata
// =============================================================================

// Record wraps a Document with its storage identity. Version is the
// optimistic token: the value loaded must be presented back on Save.
type Record struct {
	ID          string     `json:"id"`
	Location    LocationID `json:"location_id"`
	LogType     string     `json:"log_type"`
	LogKey      DrugSlug   `json:"log_key"`
	Status      Status     `json:"status"`
	Data        Document   `json:"data"`
	SubmittedBy string     `json:"submitted_by"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Version     int64      `json:"version"`
}

// NewRecord returns the record a fetch miss materializes: an empty draft
// at version 0, ready for first save.
func NewRecord(location LocationID, slug DrugSlug) Record {
	return Record{
		Location: location,
		LogType:  LogTypeControlledSubstance,
		LogKey:   slug,
		Status:   StatusDraft,
		Data:     Document{Status: StatusDraft},
	}
}

// =============================================================================
// RECORD STORE - Whole-document replace semantics
// =============================================================================

// RecordStore persists ledger documents. Saves are whole-document replaces
// that fully succeed or fully fail; there are no partial writes.
type RecordStore interface {
	// Fetch returns the document for a key, or ErrNotFound.
	Fetch(ctx context.Context, location LocationID, logType string, key DrugSlug) (Record, error)

	// Save overwrites the whole document. rec.Version must match the stored
	// version (0 for a new document) or ErrVersionConflict is returned and
	// nothing is written. Returns the stored record with its new version.
	Save(ctx context.Context, rec Record) (Record, error)

	// List returns up to limit records for a location and log type, ordered
	// by key. Read-only; used by the compliance analyzer.
	List(ctx context.Context, location LocationID, logType string, limit int) ([]Record, error)

	// Purge removes a document and its entire transaction history. This is
	// the only deletion path and is administrative.
	Purge(ctx context.Context, location LocationID, logType string, key DrugSlug) error
}
