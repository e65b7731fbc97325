/*
balance.go - Running-balance replay

PURPOSE:
  Computes the per-row before/after stock balance by replaying the row
  sequence in order. This is the central calculation that answers
  "how many sealed units are on the shelf after each transaction?"

THE REPLAY:
  before[0]   = initial_stock (0 when unset)
  vials[i]    = ceil(amount_used / unit_volume)   when unit volume known
  computed[i] = before[i] + amount_ordered - vials[i]
  after[i]    = manual_stock_override ?? computed[i]
  before[i+1] = after[i]

ROUNDING:
  ceil for unit consumption - a sealed vial cannot be partially opened.
  Volumes themselves are never rounded here.

NEGATIVE BALANCES:
  The engine does not clamp or reject negative derived balances. The
  domain contract says stock never goes negative; when the numbers say
  otherwise that is a reporting condition (see analytics), not something
  to silently fix.

DETERMINISM:
  Replay is pure and side-effect-free. The same rows and initial stock
  always yield the same before/after series.

SEE ALSO:
  - descriptor.go: Where unit volume comes from
  - waste.go: Uses the same vial arithmetic
*/
package ledger

import "github.com/shopspring/decimal"

// =============================================================================
// BALANCE LINE - Derived {before, after} for one row
// =============================================================================

// BalanceLine is the derived balance state of one row. Computed holds the
// engine's value even when a manual override supersedes it, so callers can
// detect stored-vs-derived disagreement.
type BalanceLine struct {
	Before        int64
	After         int64
	Computed      int64
	VialsConsumed int64
}

// Overridden reports whether After came from a manual stock override rather
// than the computed value.
func (b BalanceLine) Overridden() bool { return b.After != b.Computed }

// =============================================================================
// REPLAY
// =============================================================================

// Replay walks the document's rows once and derives a BalanceLine per row.
func Replay(doc Document) []BalanceLine {
	unitVol := doc.UnitVolume()

	before := int64(0)
	if doc.InitialStock != nil {
		before = *doc.InitialStock
	}

	lines := make([]BalanceLine, len(doc.Rows))
	for i, row := range doc.Rows {
		vials := VialsConsumed(row.AmountUsed, unitVol)

		computed := before - vials
		if row.AmountOrdered != nil {
			computed += *row.AmountOrdered
		}

		after := computed
		if row.StockOverride != nil {
			after = *row.StockOverride
		}

		lines[i] = BalanceLine{
			Before:        before,
			After:         after,
			Computed:      computed,
			VialsConsumed: vials,
		}
		before = after
	}
	return lines
}

// CurrentStock is the after balance of the last row over the whole history,
// falling back to initial stock for a rowless ledger.
func CurrentStock(doc Document) int64 {
	lines := Replay(doc)
	if len(lines) == 0 {
		if doc.InitialStock != nil {
			return *doc.InitialStock
		}
		return 0
	}
	return lines[len(lines)-1].After
}

// VialsConsumed converts a consumed volume into whole opened units:
// ceil(used / unitVolume). Zero when either amount is unknown or not
// positive - with no unit volume, no volume-to-unit conversion exists.
func VialsConsumed(used, unitVolume decimal.NullDecimal) int64 {
	if !used.Valid || !unitVolume.Valid {
		return 0
	}
	if !used.Decimal.IsPositive() || !unitVolume.Decimal.IsPositive() {
		return 0
	}
	return used.Decimal.Div(unitVolume.Decimal).Ceil().IntPart()
}
