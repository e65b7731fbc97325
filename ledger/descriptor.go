/*
descriptor.go - Unit-volume parsing from free-text package descriptors

PURPOSE:
  Package descriptors are free text ("2mL vials", "10 ml ampules",
  "0.5mL prefilled syringes"). The engine needs the liquid volume of one
  dispensing unit to convert consumed volume into whole opened units.

PARSING CONTRACT:
  Best-effort numeric-before-"mL" match, case-insensitive. No match is
  NOT an error: the ledger degrades gracefully - used/wasted volumes stay
  informational and balance math uses ordered units only.
*/
package ledger

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// Matches the first number immediately preceding an "mL" token.
var unitVolumePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*ml\b`)

// ParseUnitVolume extracts the per-unit volume from a package descriptor.
// Returns an invalid NullDecimal when no volume can be parsed or the parsed
// volume is not positive.
func ParseUnitVolume(descriptor string) decimal.NullDecimal {
	m := unitVolumePattern.FindStringSubmatch(descriptor)
	if m == nil {
		return decimal.NullDecimal{}
	}
	v, err := decimal.NewFromString(m[1])
	if err != nil || !v.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: v, Valid: true}
}
