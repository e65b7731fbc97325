/*
lifecycle.go - Draft/complete status machine and the locked-row boundary

PURPOSE:
  Owns the two compliance mechanics layered over the raw document:

  STATUS:  draft -> complete ("submit"), gated on signature completeness;
           complete -> draft ("revert"), an administrative exception the
           service restricts to privileged actors.

  LOCKING: every row below the "already persisted, non-empty" boundary is
           permanently read-only. Historical controlled-substance
           transactions must not be retroactively edited. The boundary is
           advisory client-facing state, recomputed from persisted truth
           on every load and after every save - never trusted as stored
           state - and reversion never retro-unlocks rows.

LOCKED WRITES:
  Attempts to modify or delete a locked row are silently ignored, not
  errors. This mirrors how a disabled input behaves: the update methods
  report whether they applied.

SEE ALSO:
  - errors.go: SignatureError carried by a rejected submit
*/
package ledger

import (
	"context"

	"github.com/looplab/fsm"
)

const (
	eventSubmit = "submit"
	eventRevert = "revert"
)

// =============================================================================
// COMPLETION GATE
// =============================================================================

// MissingSignatures returns the 1-based numbers of every row that qualifies
// for a signature (NeedsSignature) but has no preparer signature. An empty
// result means the completion gate passes.
func MissingSignatures(rows []Row) []int {
	var missing []int
	for i, r := range rows {
		if r.NeedsSignature() && !r.PreparerSig.Present() {
			missing = append(missing, i+1)
		}
	}
	return missing
}

// =============================================================================
// LOCKED-ROW BOUNDARY
// =============================================================================

// LockedRowCount derives the locked boundary from persisted rows: the count
// of leading non-empty rows, stopping at the first empty one. Non-empty rows
// beyond a gap do not extend the lock.
func LockedRowCount(rows []Row) int {
	for i, r := range rows {
		if r.IsEmpty() {
			return i
		}
	}
	return len(rows)
}

// =============================================================================
// LIFECYCLE - One editing session over a document
// =============================================================================

// Lifecycle wraps a document with its status machine and the lock boundary
// captured at load time. Row writes below the boundary are no-ops.
type Lifecycle struct {
	doc    *Document
	locked int
	fsm    *fsm.FSM
}

// NewLifecycle starts an editing session. The boundary is recomputed from
// the document's rows, which are assumed to be the persisted truth.
func NewLifecycle(doc *Document) *Lifecycle {
	if doc.Status == "" {
		doc.Status = StatusDraft
	}
	return &Lifecycle{
		doc:    doc,
		locked: LockedRowCount(doc.Rows),
		fsm: fsm.NewFSM(
			string(doc.Status),
			fsm.Events{
				{Name: eventSubmit, Src: []string{string(StatusDraft)}, Dst: string(StatusComplete)},
				{Name: eventRevert, Src: []string{string(StatusComplete)}, Dst: string(StatusDraft)},
			},
			fsm.Callbacks{},
		),
	}
}

// LockedRows is the current boundary: indexes below it are read-only.
func (l *Lifecycle) LockedRows() int { return l.locked }

// Document returns the document under edit.
func (l *Lifecycle) Document() *Document { return l.doc }

// UpdateRow replaces the row at index i, growing the row slice as needed.
// Writes below the lock boundary are silently ignored; the return value
// reports whether the write applied.
func (l *Lifecycle) UpdateRow(i int, row Row) bool {
	if i < l.locked {
		return false
	}
	for len(l.doc.Rows) <= i {
		l.doc.Rows = append(l.doc.Rows, Row{})
	}
	l.doc.Rows[i] = row
	return true
}

// DeleteRow removes the row at index i. Locked rows cannot be deleted;
// empty rows never block deletion.
func (l *Lifecycle) DeleteRow(i int) bool {
	if i < l.locked || i >= len(l.doc.Rows) {
		return false
	}
	l.doc.Rows = append(l.doc.Rows[:i], l.doc.Rows[i+1:]...)
	return true
}

// Submit attempts the draft -> complete transition. It is rejected with a
// *SignatureError listing 1-based row numbers when any qualifying row lacks
// a preparer signature; nothing is partially applied.
func (l *Lifecycle) Submit(ctx context.Context) error {
	if missing := MissingSignatures(l.doc.Rows); len(missing) > 0 {
		return &SignatureError{Rows: missing}
	}
	if err := l.fsm.Event(ctx, eventSubmit); err != nil {
		return ErrInvalidTransition
	}
	l.doc.Status = Status(l.fsm.Current())
	return nil
}

// Revert performs the administrative complete -> draft reversion. Role
// enforcement belongs to the service; previously locked rows stay locked -
// locking follows "has this row ever been saved", not current status.
func (l *Lifecycle) Revert(ctx context.Context) error {
	if err := l.fsm.Event(ctx, eventRevert); err != nil {
		return ErrInvalidTransition
	}
	l.doc.Status = Status(l.fsm.Current())
	return nil
}

// MarkSaved advances the lock boundary after a successful persist, the same
// derivation a fresh load would perform.
func (l *Lifecycle) MarkSaved() {
	l.locked = LockedRowCount(l.doc.Rows)
}
