package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/substance-ledger/ledger"
)

// =============================================================================
// ROW PREDICATES
// =============================================================================

func TestRow_IsEmpty(t *testing.T) {
	assert.True(t, ledger.Row{}.IsEmpty())
	assert.False(t, ledger.Row{Requester: "J. Doe"}.IsEmpty())
	assert.False(t, ledger.Row{AmountUsed: ledger.Volume(0)}.IsEmpty(), "entered zero is not empty")
	assert.False(t, ledger.Row{PreparerSig: "sig-1"}.IsEmpty())
	assert.False(t, ledger.Row{StockOverride: ledger.Int64Ptr(0)}.IsEmpty())
}

func TestRow_NeedsSignature(t *testing.T) {
	assert.False(t, ledger.Row{}.NeedsSignature())
	assert.False(t, ledger.Row{Requester: "   "}.NeedsSignature(), "blank name does not qualify")
	assert.True(t, ledger.Row{Requester: "J. Doe"}.NeedsSignature())
	assert.True(t, ledger.Row{AmountUsed: ledger.Volume(0)}.NeedsSignature())
	assert.True(t, ledger.Row{AmountOrdered: ledger.Int64Ptr(0)}.NeedsSignature())
	assert.False(t, ledger.Row{Note: "recount"}.NeedsSignature(), "a note alone does not qualify")
}

func TestRow_Prefill(t *testing.T) {
	actor := ledger.Actor{Name: "R. Nurse", Signature: "sig-rn"}

	row := ledger.Row{}.Prefill(actor)
	assert.Equal(t, "R. Nurse", row.Requester)
	assert.Equal(t, ledger.SignatureRef("sig-rn"), row.PreparerSig)

	// Existing values are never overwritten.
	row = ledger.Row{Requester: "Dr. A", PreparerSig: "sig-a"}.Prefill(actor)
	assert.Equal(t, "Dr. A", row.Requester)
	assert.Equal(t, ledger.SignatureRef("sig-a"), row.PreparerSig)
}

// =============================================================================
// LOCKED-ROW BOUNDARY
// =============================================================================

func TestLockedRowCount_StopsAtFirstEmptyRow(t *testing.T) {
	// GIVEN: persisted rows [non-empty, non-empty, empty, non-empty]
	// THEN:  the boundary is 2 - the trailing non-empty row beyond the gap
	//        does not extend the lock

	rows := []ledger.Row{
		{Requester: "A"},
		{Requester: "B"},
		{},
		{Requester: "D"},
	}
	assert.Equal(t, 2, ledger.LockedRowCount(rows))
	assert.Equal(t, 0, ledger.LockedRowCount(nil))

	full := []ledger.Row{{Requester: "A"}, {Requester: "B"}, {Requester: "C"}}
	assert.Equal(t, 3, ledger.LockedRowCount(full), "no gap locks everything")
}

func TestLifecycle_LockedWritesAreSilentNoOps(t *testing.T) {
	doc := ledger.NewDocument("Morphine", "10mg/mL", "1mL ampules")
	doc.Rows = []ledger.Row{{Requester: "A", PreparerSig: "sig"}, {}}

	lc := ledger.NewLifecycle(&doc)
	require.Equal(t, 1, lc.LockedRows())

	// Locked index: ignored, not an error.
	assert.False(t, lc.UpdateRow(0, ledger.Row{Requester: "tampered"}))
	assert.Equal(t, "A", doc.Rows[0].Requester)
	assert.False(t, lc.DeleteRow(0))
	require.Len(t, doc.Rows, 2)

	// Unlocked index: applies.
	assert.True(t, lc.UpdateRow(1, ledger.Row{Requester: "B"}))
	assert.Equal(t, "B", doc.Rows[1].Requester)
	assert.True(t, lc.DeleteRow(1))
	assert.Len(t, doc.Rows, 1)
}

func TestLifecycle_UpdateRowGrowsTrailingRows(t *testing.T) {
	doc := ledger.NewDocument("Morphine", "10mg/mL", "1mL ampules")
	lc := ledger.NewLifecycle(&doc)

	assert.True(t, lc.UpdateRow(2, ledger.Row{Requester: "C"}))
	require.Len(t, doc.Rows, 3)
	assert.True(t, doc.Rows[0].IsEmpty())
	assert.Equal(t, "C", doc.Rows[2].Requester)
}

func TestLifecycle_MarkSavedAdvancesBoundary(t *testing.T) {
	doc := ledger.NewDocument("Morphine", "10mg/mL", "1mL ampules")
	lc := ledger.NewLifecycle(&doc)
	require.Equal(t, 0, lc.LockedRows())

	lc.UpdateRow(0, ledger.Row{Requester: "A", PreparerSig: "sig"})
	lc.MarkSaved()
	assert.Equal(t, 1, lc.LockedRows())

	assert.False(t, lc.UpdateRow(0, ledger.Row{}), "freshly saved row is now locked")
}

// =============================================================================
// COMPLETION GATE
// =============================================================================

func TestLifecycle_SubmitRejectsUnsignedRows(t *testing.T) {
	// GIVEN: a row with a requester and an amount used but no signature
	// WHEN:  attempting draft -> complete
	// THEN:  rejected, citing row 1; after signing, the same submit succeeds

	ctx := context.Background()
	doc := ledger.NewDocument("Fentanyl", "50mcg/mL", "2mL vials")
	doc.Rows = []ledger.Row{{Requester: "J. Doe", AmountUsed: ledger.Volume(3)}}

	lc := ledger.NewLifecycle(&doc)
	err := lc.Submit(ctx)

	var sigErr *ledger.SignatureError
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, []int{1}, sigErr.Rows)
	assert.ErrorIs(t, err, ledger.ErrUnsignedRows)
	assert.Equal(t, ledger.StatusDraft, doc.Status, "rejection leaves status untouched")

	doc.Rows[0].PreparerSig = "sig-anything"
	require.NoError(t, lc.Submit(ctx))
	assert.Equal(t, ledger.StatusComplete, doc.Status)
}

func TestLifecycle_SubmitIgnoresEmptyAndNonQualifyingRows(t *testing.T) {
	ctx := context.Background()
	doc := ledger.NewDocument("Fentanyl", "50mcg/mL", "2mL vials")
	doc.Rows = []ledger.Row{
		{Requester: "A", AmountUsed: ledger.Volume(1), PreparerSig: "sig-a"},
		{Note: "shelf recount"}, // no requester/amounts: gate does not apply
		{},
	}

	lc := ledger.NewLifecycle(&doc)
	assert.NoError(t, lc.Submit(ctx))
}

func TestMissingSignatures_ReportsAllOffendingRows(t *testing.T) {
	rows := []ledger.Row{
		{Requester: "A"},
		{Requester: "B", PreparerSig: "sig-b"},
		{AmountOrdered: ledger.Int64Ptr(5)},
	}
	assert.Equal(t, []int{1, 3}, ledger.MissingSignatures(rows))
}

// =============================================================================
// REVERSION
// =============================================================================

func TestLifecycle_RevertKeepsRowsLocked(t *testing.T) {
	ctx := context.Background()
	doc := ledger.NewDocument("Fentanyl", "50mcg/mL", "2mL vials")
	doc.Status = ledger.StatusComplete
	doc.Rows = []ledger.Row{{Requester: "A", PreparerSig: "sig"}}

	lc := ledger.NewLifecycle(&doc)
	require.Equal(t, 1, lc.LockedRows())

	require.NoError(t, lc.Revert(ctx))
	assert.Equal(t, ledger.StatusDraft, doc.Status)
	assert.Equal(t, 1, lc.LockedRows(), "reversion never retro-unlocks")
}

func TestLifecycle_InvalidTransitions(t *testing.T) {
	ctx := context.Background()

	draft := ledger.NewDocument("Fentanyl", "50mcg/mL", "2mL vials")
	assert.ErrorIs(t, ledger.NewLifecycle(&draft).Revert(ctx), ledger.ErrInvalidTransition)

	complete := ledger.NewDocument("Fentanyl", "50mcg/mL", "2mL vials")
	complete.Status = ledger.StatusComplete
	assert.ErrorIs(t, ledger.NewLifecycle(&complete).Submit(ctx), ledger.ErrInvalidTransition)
}
