/*
Package ledger provides the controlled-substance inventory ledger engine.

PURPOSE:
  This package contains the domain model and algorithms for one inventory
  ledger: an append-mostly transaction log, one per (location, substance)
  pair, tracking physical stock of a regulated drug across order/use/waste
  events. Balances are never stored - they are derived by replaying the
  row sequence in order.

KEY CONCEPTS IN THIS FILE (types.go):
  - Document: The full ledger for one substance at one location
  - Row: One transaction line (date, requester, order/use/waste amounts)
  - SignatureRef: Opaque reference to a captured signature
  - WasteSource: Tri-state tracking of how amount_wasted was filled

DESIGN PRINCIPLES:
  1. Derived, never stored: running balances come from replay (balance.go)
  2. Precision: decimal.Decimal for volumes, never float64
  3. Persisted rows are locked: history cannot be retroactively edited
  4. Whole-document persistence: no partial/row-level writes

SEE ALSO:
  - row.go: Row emptiness and pure row updates
  - balance.go: Running-balance replay
  - waste.go: One-shot wastage derivation
  - lifecycle.go: Draft/complete status and row locking
  - store.go: Persistence interface
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// LocationID identifies the facility that owns a ledger.
type LocationID string

// DrugSlug is the stable identifier for a substance within a location.
// It is the storage key of the document; new substances are just new slugs,
// never a schema change.
type DrugSlug string

// LogTypeControlledSubstance is the record-store log type under which every
// inventory ledger is filed.
const LogTypeControlledSubstance = "controlled_substance_inventory"

// =============================================================================
// LIFECYCLE STATUS
// =============================================================================

type Status string

const (
	StatusDraft    Status = "draft"
	StatusComplete Status = "complete"
)

// =============================================================================
// SIGNATURES
// =============================================================================

// SignatureRef is an opaque reference to a captured signature - either an
// inline payload or a pointer resolved by an external signer store. The
// engine never interprets its contents, only whether one is present.
type SignatureRef string

func (s SignatureRef) Present() bool { return s != "" }

// =============================================================================
// WASTE DERIVATION STATE
// =============================================================================

// WasteSource records how a row's AmountWasted came to hold its value.
// Auto-derivation fires only while the source is WasteUnset; once a value
// exists - derived or human-entered, including an explicit zero - further
// derivation is suppressed for that row.
type WasteSource string

const (
	WasteUnset  WasteSource = ""
	WasteAuto   WasteSource = "auto"
	WasteManual WasteSource = "manual"
)

// =============================================================================
// ROW - One transaction line
// =============================================================================

// Row is the atomic transaction unit of a ledger. Amounts are nullable:
// a nil/invalid amount means "not entered", which is distinct from zero.
//
// AmountOrdered is whole dispensing units added to stock. AmountUsed and
// AmountWasted are volumes (mL). StockOverride, when set, supersedes the
// computed running balance for this row.
type Row struct {
	Date          string              `json:"date"`
	Requester     string              `json:"requester_name"`
	Note          string              `json:"transaction_note"`
	AmountOrdered *int64              `json:"amount_ordered"`
	AmountUsed    decimal.NullDecimal `json:"amount_used"`
	AmountWasted  decimal.NullDecimal `json:"amount_wasted"`
	WasteSource   WasteSource         `json:"waste_source,omitempty"`
	StockOverride *int64              `json:"manual_stock_override"`
	PreparerSig   SignatureRef        `json:"preparer_signature"`
	WitnessSig    SignatureRef        `json:"witness_signature"`
}

// =============================================================================
// DOCUMENT - The full ledger for one (location, substance) pair
// =============================================================================

// Document is the whole ledger record. Row order is semantic: it defines
// replay order and is assumed date-ascending, though not enforced.
type Document struct {
	Substance         string  `json:"substance_name"`
	UnitStrength      string  `json:"unit_strength"`
	PackageDescriptor string  `json:"package_descriptor"`
	InitialStock      *int64  `json:"initial_stock"`
	Rows              []Row   `json:"rows"`
	Status            Status  `json:"status"`
}

// NewDocument returns an empty draft ledger for a substance.
func NewDocument(substance, unitStrength, packageDescriptor string) Document {
	return Document{
		Substance:         substance,
		UnitStrength:      unitStrength,
		PackageDescriptor: packageDescriptor,
		Status:            StatusDraft,
	}
}

// Touched reports whether the ledger holds any actual data. Empty rows do
// not count.
func (d Document) Touched() bool {
	for _, r := range d.Rows {
		if !r.IsEmpty() {
			return true
		}
	}
	return false
}

// UnitVolume parses the dispensing-unit volume from the package descriptor.
// Invalid when the descriptor carries no parseable volume.
func (d Document) UnitVolume() decimal.NullDecimal {
	return ParseUnitVolume(d.PackageDescriptor)
}

// =============================================================================
// HELPERS
// =============================================================================

// Int64Ptr returns a pointer to v. Convenience for nullable whole-unit fields.
func Int64Ptr(v int64) *int64 { return &v }

// Volume returns a valid NullDecimal from a float. Test and call-site sugar.
func Volume(v float64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(v), Valid: true}
}
