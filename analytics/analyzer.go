/*
Package analytics derives compliance reporting from persisted ledgers.

PURPOSE:
  Read-only aggregation across one or many ledger documents for a
  reporting window: period usage/waste/order sums, discrepancy and
  unsigned-row counts, waste rate, a 0-100 compliance score, and an
  illustrative estimated revenue loss.

WINDOW SEMANTICS:
  The window [from, to] is inclusive on both ends and open-ended when a
  bound is absent. It applies ONLY to the period sums. Current stock is
  always the whole-history replay, and discrepancy/unsigned counts are
  evaluated over the whole history regardless of window. Rows without a
  parseable date are excluded from period sums.

DISCREPANCY:
  A row where the human-entered stock override disagrees with the
  engine's computed running balance - the derived-vs-stored
  reconciliation the ledger exists for.

NEGATIVE STOCK:
  The balance engine never clamps below zero. Rows whose running balance
  goes negative are surfaced here as a distinct counter, separate from
  discrepancies and outside the compliance score.

Everything in this package is a pure function over in-memory documents;
the caller feeds it records from the store's read-only list query.
*/
package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/substance-ledger/ledger"
)

// =============================================================================
// REPORTING WINDOW
// =============================================================================

const dateLayout = "2006-01-02"

// Window is an inclusive calendar-date range. A nil bound is open-ended.
type Window struct {
	From *time.Time
	To   *time.Time
}

// ParseWindow builds a window from "YYYY-MM-DD" strings; empty strings
// leave the bound open.
func ParseWindow(from, to string) (Window, error) {
	var w Window
	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return Window{}, err
		}
		w.From = &t
	}
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return Window{}, err
		}
		w.To = &t
	}
	return w, nil
}

// Contains reports whether a row date falls inside the window. Empty or
// unparseable dates are never inside.
func (w Window) Contains(date string) bool {
	if date == "" {
		return false
	}
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return false
	}
	if w.From != nil && t.Before(*w.From) {
		return false
	}
	if w.To != nil && t.After(*w.To) {
		return false
	}
	return true
}

// =============================================================================
// REPORTS
// =============================================================================

// LedgerReport is the per-substance compliance summary.
type LedgerReport struct {
	Slug      ledger.DrugSlug
	Substance string
	Status    ledger.Status

	// Whole-history replay result.
	CurrentStock int64

	// Windowed sums. Used/Wasted are volumes; Ordered is whole units.
	PeriodUsed    decimal.Decimal
	PeriodWasted  decimal.Decimal
	PeriodOrdered int64

	// Whole-history counts.
	TotalRows           int // dated rows only
	Discrepancies       int
	UnsignedRows        int
	NegativeBalanceRows int

	WasteRatePct    decimal.Decimal
	ComplianceScore decimal.Decimal
	EstimatedLoss   decimal.Decimal
}

// FleetReport aggregates every ledger at a location.
type FleetReport struct {
	Location ledger.LocationID
	Ledgers  []LedgerReport

	TotalUsed     decimal.Decimal
	TotalWasted   decimal.Decimal
	TotalOrdered  int64
	Discrepancies int
	UnsignedRows  int

	WasteRatePct    decimal.Decimal
	ComplianceScore decimal.Decimal
	EstimatedLoss   decimal.Decimal
}

// =============================================================================
// ANALYZER
// =============================================================================

var hundred = decimal.NewFromInt(100)

// Analyzer holds reporting configuration. CostPerML prices wasted volume
// for the estimated-loss figure - illustrative, not financial-grade.
type Analyzer struct {
	CostPerML decimal.Decimal
}

// Analyze builds the compliance report for one document.
func (a Analyzer) Analyze(slug ledger.DrugSlug, doc ledger.Document, w Window) LedgerReport {
	lines := ledger.Replay(doc)

	rep := LedgerReport{
		Slug:      slug,
		Substance: doc.Substance,
		Status:    doc.Status,

		CurrentStock: ledger.CurrentStock(doc),
	}

	for i, row := range doc.Rows {
		if row.Dated() {
			rep.TotalRows++
		}
		if w.Contains(row.Date) {
			if row.AmountUsed.Valid {
				rep.PeriodUsed = rep.PeriodUsed.Add(row.AmountUsed.Decimal)
			}
			if row.AmountWasted.Valid {
				rep.PeriodWasted = rep.PeriodWasted.Add(row.AmountWasted.Decimal)
			}
			if row.AmountOrdered != nil {
				rep.PeriodOrdered += *row.AmountOrdered
			}
		}
		if row.StockOverride != nil && *row.StockOverride != lines[i].Computed {
			rep.Discrepancies++
		}
		if row.NeedsSignature() && !row.PreparerSig.Present() {
			rep.UnsignedRows++
		}
		if lines[i].After < 0 {
			rep.NegativeBalanceRows++
		}
	}

	rep.WasteRatePct = wasteRate(rep.PeriodUsed, rep.PeriodWasted)
	rep.ComplianceScore = complianceScore(rep.TotalRows, rep.UnsignedRows, rep.Discrepancies)
	rep.EstimatedLoss = rep.PeriodWasted.Mul(a.CostPerML).Round(2)
	return rep
}

// AnalyzeFleet builds per-ledger reports plus location-wide aggregates from
// the store's read-only list result.
func (a Analyzer) AnalyzeFleet(location ledger.LocationID, records []ledger.Record, w Window) FleetReport {
	fleet := FleetReport{Location: location}

	totalRows := 0
	for _, rec := range records {
		rep := a.Analyze(rec.LogKey, rec.Data, w)
		fleet.Ledgers = append(fleet.Ledgers, rep)

		fleet.TotalUsed = fleet.TotalUsed.Add(rep.PeriodUsed)
		fleet.TotalWasted = fleet.TotalWasted.Add(rep.PeriodWasted)
		fleet.TotalOrdered += rep.PeriodOrdered
		fleet.Discrepancies += rep.Discrepancies
		fleet.UnsignedRows += rep.UnsignedRows
		fleet.EstimatedLoss = fleet.EstimatedLoss.Add(rep.EstimatedLoss)
		totalRows += rep.TotalRows
	}

	fleet.WasteRatePct = wasteRate(fleet.TotalUsed, fleet.TotalWasted)
	fleet.ComplianceScore = complianceScore(totalRows, fleet.UnsignedRows, fleet.Discrepancies)
	return fleet
}

// wasteRate = wasted / (used + wasted) * 100, zero when nothing moved.
func wasteRate(used, wasted decimal.Decimal) decimal.Decimal {
	denom := used.Add(wasted)
	if denom.IsZero() {
		return decimal.Zero
	}
	return wasted.Div(denom).Mul(hundred).Round(2)
}

// complianceScore = clamp((total - unsigned - discrepancies) / total * 100)
// over dated rows, defined as 100 for an empty ledger.
func complianceScore(totalRows, unsigned, discrepancies int) decimal.Decimal {
	if totalRows == 0 {
		return hundred
	}
	clean := decimal.NewFromInt(int64(totalRows - unsigned - discrepancies))
	score := clean.Div(decimal.NewFromInt(int64(totalRows))).Mul(hundred).Round(2)
	if score.IsNegative() {
		return decimal.Zero
	}
	if score.GreaterThan(hundred) {
		return hundred
	}
	return score
}
