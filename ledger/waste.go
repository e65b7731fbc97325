/*
waste.go - One-shot wastage derivation from vial granularity

PURPOSE:
  When a partial vial is drawn, the remainder must be discarded and
  documented. The deriver fills amount_wasted from vial arithmetic:

    expected_waste = vials_opened * unit_volume - amount_used

  clamped at zero and rounded to 2 decimal places.

ONE-SHOT CONTRACT:
  Derivation fires only at the moment amount_used changes, and only while
  the row's waste field has never held a value. Once any value exists -
  auto-derived or human-entered, including an explicit zero - later
  changes to amount_used leave it alone. A live-bound formula would erase
  intentional corrections; the WasteSource tri-state makes the
  suppression explicit instead of inferred from null-ness.

SEE ALSO:
  - balance.go: VialsConsumed, the shared vial arithmetic
*/
package ledger

import "github.com/shopspring/decimal"

// ExpectedWaste is the leftover volume after drawing used from whole vials.
// Invalid when no derivation is possible (unknown unit volume, or used not
// positive). Callers may surface a valid result as a non-binding hint even
// when the one-shot rule blocks writing it.
func ExpectedWaste(used, unitVolume decimal.NullDecimal) decimal.NullDecimal {
	vials := VialsConsumed(used, unitVolume)
	if vials == 0 {
		return decimal.NullDecimal{}
	}
	w := decimal.NewFromInt(vials).Mul(unitVolume.Decimal).Sub(used.Decimal)
	if w.IsNegative() {
		w = decimal.Zero
	}
	return decimal.NullDecimal{Decimal: w.Round(2), Valid: true}
}

// ApplyUsedChange replaces the row's used amount and, when the waste field
// has never been touched, auto-fills it with the expected waste.
func ApplyUsedChange(r Row, used, unitVolume decimal.NullDecimal) Row {
	r.AmountUsed = used
	if r.WasteSource != WasteUnset || r.AmountWasted.Valid {
		return r
	}
	if hint := ExpectedWaste(used, unitVolume); hint.Valid {
		r.AmountWasted = hint
		r.WasteSource = WasteAuto
	}
	return r
}

// SetWaste records a human-entered waste amount. Any valid value, zero
// included, permanently suppresses auto-derivation for the row; clearing
// the field re-arms it.
func SetWaste(r Row, wasted decimal.NullDecimal) Row {
	r.AmountWasted = wasted
	if wasted.Valid {
		r.WasteSource = WasteManual
	} else {
		r.WasteSource = WasteUnset
	}
	return r
}
