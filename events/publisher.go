/*
Package events publishes ledger audit events to an external broker.

PURPOSE:
  Every successful save, reversion, and purge emits an audit event. The
  record store remains the source of truth: publishing is best-effort and
  a publish failure never fails the operation that produced it.
*/
package events

import (
	"context"
	"time"
)

// Event kinds emitted by the ledger service.
const (
	KindSaved    = "ledger.saved"
	KindReverted = "ledger.reverted"
	KindPurged   = "ledger.purged"
)

// LedgerEvent is the audit payload. Fields are plain strings so consumers
// need no schema beyond JSON.
type LedgerEvent struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Location string    `json:"location_id"`
	Slug     string    `json:"log_key"`
	Status   string    `json:"status"`
	Version  int64     `json:"version"`
	Actor    string    `json:"actor"`
	At       time.Time `json:"at"`
}

// Publisher delivers events to whatever transport is configured.
type Publisher interface {
	Publish(ctx context.Context, event LedgerEvent) error
}

// Noop discards events. Default when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, LedgerEvent) error { return nil }
