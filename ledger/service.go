/*
service.go - Orchestration over the record store

PURPOSE:
  The Service ties the engine to its collaborators: it owns the §-level
  operations a caller sees (load, save, revert, purge), running the
  completion gate and the status machine before any write, stamping audit
  metadata, and emitting events after successful writes.

RULES ENFORCED HERE:
  - A fetch miss is "new empty ledger", never an error.
  - All validation happens before the write; partial writes never occur.
  - Complete -> Draft only through Revert, and only for admin actors.
  - Purge is admin-only and removes the whole history.
  - Event publishing is best-effort; the store is the source of truth.

SEE ALSO:
  - lifecycle.go: The status machine and completion gate
  - store.go: The persistence contract
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/warp/substance-ledger/events"
)

// =============================================================================
// ACTOR - Explicit current-user identity
// =============================================================================

type Role string

const (
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// Actor is the identity performing an operation, passed explicitly into
// every call rather than read from ambient state. Signature is the actor's
// stored signature profile, used to prefill fresh rows.
type Actor struct {
	Name      string
	Role      Role
	Signature SignatureRef
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store  RecordStore
	events events.Publisher
	log    *slog.Logger
	now    func() time.Time
}

func NewService(store RecordStore, pub events.Publisher, log *slog.Logger) *Service {
	if pub == nil {
		pub = events.Noop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, events: pub, log: log, now: time.Now}
}

// Load returns the ledger for a (location, slug) pair. An absent document
// materializes as a fresh empty draft at version 0.
func (s *Service) Load(ctx context.Context, location LocationID, slug DrugSlug) (Record, error) {
	rec, err := s.store.Fetch(ctx, location, LogTypeControlledSubstance, slug)
	if errors.Is(err, ErrNotFound) {
		return NewRecord(location, slug), nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("load ledger %s/%s: %w", location, slug, err)
	}
	return rec, nil
}

// Save replaces the whole document at the presented version. When the target
// status is Complete the completion gate runs first and a failure rejects
// the entire save with the offending row numbers.
func (s *Service) Save(ctx context.Context, actor Actor, location LocationID, slug DrugSlug, doc Document, target Status, version int64) (Record, error) {
	switch target {
	case StatusDraft, StatusComplete:
	default:
		return Record{}, ErrInvalidTransition
	}

	// Complete -> Draft is the administrative reversion, not a save. The
	// stored status decides; the client-supplied document is not trusted.
	stored, err := s.store.Fetch(ctx, location, LogTypeControlledSubstance, slug)
	switch {
	case errors.Is(err, ErrNotFound):
		// First save of a fresh ledger.
	case err != nil:
		return Record{}, fmt.Errorf("load ledger %s/%s: %w", location, slug, err)
	case stored.Status == StatusComplete && target == StatusDraft:
		return Record{}, ErrInvalidTransition
	}

	if target == StatusComplete {
		if missing := MissingSignatures(doc.Rows); len(missing) > 0 {
			return Record{}, &SignatureError{Rows: missing}
		}
	}
	doc.Status = target

	rec := Record{
		Location:    location,
		LogType:     LogTypeControlledSubstance,
		LogKey:      slug,
		Status:      target,
		Data:        doc,
		SubmittedBy: actor.Name,
		UpdatedAt:   s.now(),
		Version:     version,
	}

	saved, err := s.store.Save(ctx, rec)
	if err != nil {
		return Record{}, err
	}

	s.publish(ctx, events.KindSaved, actor, saved)
	return saved, nil
}

// Revert performs the privileged Complete -> Draft transition in place,
// preserving the document contents. Locked rows stay locked: locking is
// driven by what has been persisted, not by status.
func (s *Service) Revert(ctx context.Context, actor Actor, location LocationID, slug DrugSlug) (Record, error) {
	if !actor.IsAdmin() {
		return Record{}, ErrForbidden
	}

	rec, err := s.store.Fetch(ctx, location, LogTypeControlledSubstance, slug)
	if err != nil {
		return Record{}, err
	}

	lc := NewLifecycle(&rec.Data)
	if err := lc.Revert(ctx); err != nil {
		return Record{}, err
	}
	rec.Status = rec.Data.Status
	rec.SubmittedBy = actor.Name
	rec.UpdatedAt = s.now()

	saved, err := s.store.Save(ctx, rec)
	if err != nil {
		return Record{}, err
	}

	s.publish(ctx, events.KindReverted, actor, saved)
	return saved, nil
}

// Purge hard-deletes a document and its entire transaction history. This is
// the explicit administrative removal; nothing else ever deletes a ledger.
func (s *Service) Purge(ctx context.Context, actor Actor, location LocationID, slug DrugSlug) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	rec, err := s.store.Fetch(ctx, location, LogTypeControlledSubstance, slug)
	if err != nil {
		return err
	}
	if err := s.store.Purge(ctx, location, LogTypeControlledSubstance, slug); err != nil {
		return err
	}

	s.publish(ctx, events.KindPurged, actor, rec)
	return nil
}

// List exposes the read-only range query the compliance analyzer consumes.
func (s *Service) List(ctx context.Context, location LocationID, limit int) ([]Record, error) {
	return s.store.List(ctx, location, LogTypeControlledSubstance, limit)
}

func (s *Service) publish(ctx context.Context, kind string, actor Actor, rec Record) {
	ev := events.LedgerEvent{
		ID:       uuid.NewString(),
		Kind:     kind,
		Location: string(rec.Location),
		Slug:     string(rec.LogKey),
		Status:   string(rec.Status),
		Version:  rec.Version,
		Actor:    actor.Name,
		At:       s.now(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("audit event publish failed",
			"kind", kind, "location", ev.Location, "slug", ev.Slug, "error", err)
	}
}
