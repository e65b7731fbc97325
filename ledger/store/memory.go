// Package store provides RecordStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/warp/substance-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	records map[key]ledger.Record
}

type key struct {
	Location ledger.LocationID
	LogType  string
	LogKey   ledger.DrugSlug
}

func NewMemory() *Memory {
	return &Memory{records: make(map[key]ledger.Record)}
}

// cloneRecord detaches the document's pointer state so a caller holding a
// record can never edit persisted history in place.
func cloneRecord(rec ledger.Record) ledger.Record {
	if rec.Data.InitialStock != nil {
		v := *rec.Data.InitialStock
		rec.Data.InitialStock = &v
	}
	if rec.Data.Rows != nil {
		rows := make([]ledger.Row, len(rec.Data.Rows))
		for i, r := range rec.Data.Rows {
			rows[i] = cloneRow(r)
		}
		rec.Data.Rows = rows
	}
	return rec
}

func cloneRow(r ledger.Row) ledger.Row {
	if r.AmountOrdered != nil {
		v := *r.AmountOrdered
		r.AmountOrdered = &v
	}
	if r.StockOverride != nil {
		v := *r.StockOverride
		r.StockOverride = &v
	}
	return r
}

func (m *Memory) Fetch(_ context.Context, location ledger.LocationID, logType string, logKey ledger.DrugSlug) (ledger.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[key{location, logType, logKey}]
	if !ok {
		return ledger.Record{}, ledger.ErrNotFound
	}
	return cloneRecord(rec), nil
}

// Save overwrites the whole document after the optimistic version check.
func (m *Memory) Save(_ context.Context, rec ledger.Record) (ledger.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{rec.Location, rec.LogType, rec.LogKey}
	current, exists := m.records[k]

	if exists {
		if rec.Version != current.Version {
			return ledger.Record{}, ledger.ErrVersionConflict
		}
		rec.ID = current.ID
	} else {
		if rec.Version != 0 {
			return ledger.Record{}, ledger.ErrVersionConflict
		}
		rec.ID = uuid.NewString()
	}

	rec.Version++
	m.records[k] = cloneRecord(rec)
	return rec, nil
}

func (m *Memory) List(_ context.Context, location ledger.LocationID, logType string, limit int) ([]ledger.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Record
	for k, rec := range m.records {
		if k.Location == location && k.LogType == logType {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LogKey < out[j].LogKey })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Purge(_ context.Context, location ledger.LocationID, logType string, logKey ledger.DrugSlug) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{location, logType, logKey}
	if _, ok := m.records[k]; !ok {
		return ledger.ErrNotFound
	}
	delete(m.records, k)
	return nil
}
