/*
row.go - Row emptiness, signature qualification, and pure row updates

PURPOSE:
  A Row never mutates in place. Every change is replace-and-return; the
  caller re-derives balances and wastage afterward. This file also owns
  the two predicates the rest of the engine leans on:

  IsEmpty:    all fields at zero value. Empty rows never block deletion,
              never extend the lock boundary, and are excluded from
              "is this ledger touched" checks.

  NeedsSignature: the completion-gate qualification (requester named,
              or a used/ordered amount entered).

SEE ALSO:
  - lifecycle.go: Applies the locked-row no-op rule on top of these
  - waste.go: The one mutation with a derivation side effect
*/
package ledger

import "strings"

// IsEmpty reports whether every field of the row is at its zero value.
func (r Row) IsEmpty() bool {
	return r.Date == "" &&
		r.Requester == "" &&
		r.Note == "" &&
		r.AmountOrdered == nil &&
		!r.AmountUsed.Valid &&
		!r.AmountWasted.Valid &&
		r.WasteSource == WasteUnset &&
		r.StockOverride == nil &&
		!r.PreparerSig.Present() &&
		!r.WitnessSig.Present()
}

// NeedsSignature reports whether the row carries enough data that the
// completion gate requires a preparer signature on it.
func (r Row) NeedsSignature() bool {
	return strings.TrimSpace(r.Requester) != "" ||
		r.AmountUsed.Valid ||
		r.AmountOrdered != nil
}

// Dated reports whether the row carries a calendar date. Undated rows are
// excluded from period sums and from the compliance-score denominator.
func (r Row) Dated() bool { return r.Date != "" }

// =============================================================================
// PURE UPDATES - replace-and-return, no in-place mutation
// =============================================================================

func (r Row) WithDate(date string) Row           { r.Date = date; return r }
func (r Row) WithRequester(name string) Row      { r.Requester = name; return r }
func (r Row) WithNote(note string) Row           { r.Note = note; return r }
func (r Row) WithOrdered(units *int64) Row       { r.AmountOrdered = units; return r }
func (r Row) WithOverride(units *int64) Row      { r.StockOverride = units; return r }
func (r Row) WithPreparer(sig SignatureRef) Row  { r.PreparerSig = sig; return r }
func (r Row) WithWitness(sig SignatureRef) Row   { r.WitnessSig = sig; return r }

// Prefill stamps the acting user's identity onto a fresh row. The actor is
// passed in explicitly; there is no ambient "current user" state.
func (r Row) Prefill(actor Actor) Row {
	if r.Requester == "" {
		r.Requester = actor.Name
	}
	if !r.PreparerSig.Present() {
		r.PreparerSig = actor.Signature
	}
	return r
}
