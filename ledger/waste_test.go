package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/substance-ledger/ledger"
)

// =============================================================================
// EXPECTED WASTE
// =============================================================================

func TestExpectedWaste(t *testing.T) {
	two := ledger.Volume(2)

	tests := []struct {
		name string
		used decimal.NullDecimal
		unit decimal.NullDecimal
		want string // "" means no derivation
	}{
		{"partial third vial", ledger.Volume(5), two, "1"},    // 3 vials = 6mL - 5mL
		{"partial second vial", ledger.Volume(3), two, "1"},   // 2 vials = 4mL - 3mL
		{"exact multiple", ledger.Volume(4), two, "0"},        // nothing left over
		{"fractional", ledger.Volume(1.25), two, "0.75"},
		{"zero used", ledger.Volume(0), two, ""},
		{"unset used", decimal.NullDecimal{}, two, ""},
		{"no unit volume", ledger.Volume(5), decimal.NullDecimal{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ledger.ExpectedWaste(tt.used, tt.unit)
			if tt.want == "" {
				assert.False(t, got.Valid)
				return
			}
			require.True(t, got.Valid)
			assert.Equal(t, tt.want, got.Decimal.String())
		})
	}
}

// =============================================================================
// ONE-SHOT DERIVATION
// =============================================================================

func TestApplyUsedChange_AutoFillsOnce(t *testing.T) {
	// GIVEN: a row whose waste field has never held a value
	// WHEN:  amount_used becomes 5 with 2mL vials
	// THEN:  waste auto-fills to 1 (ceil(5/2)=3 vials x 2mL - 5mL)

	two := ledger.Volume(2)
	row := ledger.Row{}

	row = ledger.ApplyUsedChange(row, ledger.Volume(5), two)
	require.True(t, row.AmountWasted.Valid)
	assert.Equal(t, "1", row.AmountWasted.Decimal.String())
	assert.Equal(t, ledger.WasteAuto, row.WasteSource)

	// WHEN: amount_used changes again
	// THEN: the earlier derivation stays; this is a one-shot default
	row = ledger.ApplyUsedChange(row, ledger.Volume(2), two)
	assert.Equal(t, "1", row.AmountWasted.Decimal.String())
	assert.Equal(t, "2", row.AmountUsed.Decimal.String())
}

func TestApplyUsedChange_ManualValueSuppressesDerivation(t *testing.T) {
	// A human-entered value - an explicit zero included - blocks auto-fill.

	two := ledger.Volume(2)
	row := ledger.SetWaste(ledger.Row{}, ledger.Volume(0))
	assert.Equal(t, ledger.WasteManual, row.WasteSource)

	row = ledger.ApplyUsedChange(row, ledger.Volume(5), two)
	assert.Equal(t, "0", row.AmountWasted.Decimal.String(), "manual zero must survive")
	assert.Equal(t, ledger.WasteManual, row.WasteSource)
}

func TestApplyUsedChange_ClearingWasteRearms(t *testing.T) {
	two := ledger.Volume(2)

	row := ledger.SetWaste(ledger.Row{}, ledger.Volume(3))
	row = ledger.SetWaste(row, decimal.NullDecimal{})
	assert.Equal(t, ledger.WasteUnset, row.WasteSource)

	row = ledger.ApplyUsedChange(row, ledger.Volume(5), two)
	require.True(t, row.AmountWasted.Valid)
	assert.Equal(t, ledger.WasteAuto, row.WasteSource)
}

func TestApplyUsedChange_NoUnitVolume_NoDerivation(t *testing.T) {
	row := ledger.ApplyUsedChange(ledger.Row{}, ledger.Volume(5), decimal.NullDecimal{})
	assert.False(t, row.AmountWasted.Valid)
	assert.Equal(t, ledger.WasteUnset, row.WasteSource)
	assert.True(t, row.AmountUsed.Valid, "used amount still recorded")
}
