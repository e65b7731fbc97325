/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  domain model from the external contract. The document itself travels
  verbatim (its shape is open by design); DTOs add the derived state a
  client needs - per-row balances, the lock boundary, the version token.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the service, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/substance-ledger/analytics"
	"github.com/warp/substance-ledger/ledger"
)

// =============================================================================
// LEDGER TYPES
// =============================================================================

// BalanceLineDTO is the derived balance state of one row.
type BalanceLineDTO struct {
	Before        int64 `json:"before"`
	After         int64 `json:"after"`
	Computed      int64 `json:"computed"`
	VialsConsumed int64 `json:"vials_consumed"`
	Discrepancy   bool  `json:"discrepancy"`
}

// LedgerDTO is a full ledger response: the stored document plus everything
// derived from it.
type LedgerDTO struct {
	ID          string          `json:"id,omitempty"`
	Location    string          `json:"location_id"`
	Slug        string          `json:"log_key"`
	Status      string          `json:"status"`
	Version     int64           `json:"version"`
	SubmittedBy string          `json:"submitted_by,omitempty"`
	UpdatedAt   string          `json:"updated_at,omitempty"`
	Document    ledger.Document `json:"document"`

	UnitVolumeML *float64         `json:"unit_volume_ml,omitempty"`
	LockedRows   int              `json:"locked_rows"`
	CurrentStock int64            `json:"current_stock"`
	Balances     []BalanceLineDTO `json:"balances"`
}

// LedgerSummaryDTO is one entry of the list endpoint.
type LedgerSummaryDTO struct {
	Slug         string `json:"log_key"`
	Substance    string `json:"substance_name"`
	Status       string `json:"status"`
	Version      int64  `json:"version"`
	UpdatedAt    string `json:"updated_at,omitempty"`
	CurrentStock int64  `json:"current_stock"`
}

// SaveLedgerRequest is the whole-document save. Version is the optimistic
// token from the load; Status is the asserted target status.
type SaveLedgerRequest struct {
	Document ledger.Document `json:"document"`
	Status   string          `json:"status"`
	Version  int64           `json:"version"`
}

// =============================================================================
// REPORT TYPES
// =============================================================================

// LedgerReportDTO is the per-substance compliance summary.
type LedgerReportDTO struct {
	Slug                string  `json:"log_key"`
	Substance           string  `json:"substance_name"`
	Status              string  `json:"status"`
	CurrentStock        int64   `json:"current_stock"`
	PeriodUsed          float64 `json:"period_used"`
	PeriodWasted        float64 `json:"period_wasted"`
	PeriodOrdered       int64   `json:"period_ordered"`
	TotalRows           int     `json:"total_rows"`
	Discrepancies       int     `json:"discrepancies"`
	UnsignedRows        int     `json:"unsigned_rows"`
	NegativeBalanceRows int     `json:"negative_balance_rows"`
	WasteRatePct        float64 `json:"waste_rate_pct"`
	ComplianceScore     float64 `json:"compliance_score"`
	EstimatedLoss       float64 `json:"estimated_loss"`
}

// FleetReportDTO aggregates a location's ledgers.
type FleetReportDTO struct {
	Location        string            `json:"location_id"`
	From            string            `json:"from,omitempty"`
	To              string            `json:"to,omitempty"`
	Ledgers         []LedgerReportDTO `json:"ledgers"`
	TotalUsed       float64           `json:"total_used"`
	TotalWasted     float64           `json:"total_wasted"`
	TotalOrdered    int64             `json:"total_ordered"`
	Discrepancies   int               `json:"discrepancies"`
	UnsignedRows    int               `json:"unsigned_rows"`
	WasteRatePct    float64           `json:"waste_rate_pct"`
	ComplianceScore float64           `json:"compliance_score"`
	EstimatedLoss   float64           `json:"estimated_loss"`
}

// ErrorResponse is the uniform error body. MissingSignatureRows carries the
// 1-based row numbers when a completion gate rejects a save.
type ErrorResponse struct {
	Error                string `json:"error"`
	Details              string `json:"details,omitempty"`
	MissingSignatureRows []int  `json:"missing_signature_rows,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toLedgerDTO(rec ledger.Record) LedgerDTO {
	lines := ledger.Replay(rec.Data)
	balances := make([]BalanceLineDTO, len(lines))
	for i, l := range lines {
		balances[i] = BalanceLineDTO{
			Before:        l.Before,
			After:         l.After,
			Computed:      l.Computed,
			VialsConsumed: l.VialsConsumed,
			Discrepancy:   l.Overridden(),
		}
	}

	dto := LedgerDTO{
		ID:           rec.ID,
		Location:     string(rec.Location),
		Slug:         string(rec.LogKey),
		Status:       string(rec.Data.Status),
		Version:      rec.Version,
		SubmittedBy:  rec.SubmittedBy,
		Document:     rec.Data,
		LockedRows:   ledger.LockedRowCount(rec.Data.Rows),
		CurrentStock: ledger.CurrentStock(rec.Data),
		Balances:     balances,
	}
	if !rec.UpdatedAt.IsZero() {
		dto.UpdatedAt = rec.UpdatedAt.Format(time.RFC3339)
	}
	if uv := rec.Data.UnitVolume(); uv.Valid {
		f, _ := uv.Decimal.Float64()
		dto.UnitVolumeML = &f
	}
	return dto
}

func toSummaryDTO(rec ledger.Record) LedgerSummaryDTO {
	dto := LedgerSummaryDTO{
		Slug:         string(rec.LogKey),
		Substance:    rec.Data.Substance,
		Status:       string(rec.Status),
		Version:      rec.Version,
		CurrentStock: ledger.CurrentStock(rec.Data),
	}
	if !rec.UpdatedAt.IsZero() {
		dto.UpdatedAt = rec.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

func toReportDTO(rep analytics.LedgerReport) LedgerReportDTO {
	return LedgerReportDTO{
		Slug:                string(rep.Slug),
		Substance:           rep.Substance,
		Status:              string(rep.Status),
		CurrentStock:        rep.CurrentStock,
		PeriodUsed:          rep.PeriodUsed.InexactFloat64(),
		PeriodWasted:        rep.PeriodWasted.InexactFloat64(),
		PeriodOrdered:       rep.PeriodOrdered,
		TotalRows:           rep.TotalRows,
		Discrepancies:       rep.Discrepancies,
		UnsignedRows:        rep.UnsignedRows,
		NegativeBalanceRows: rep.NegativeBalanceRows,
		WasteRatePct:        rep.WasteRatePct.InexactFloat64(),
		ComplianceScore:     rep.ComplianceScore.InexactFloat64(),
		EstimatedLoss:       rep.EstimatedLoss.InexactFloat64(),
	}
}

func toFleetReportDTO(rep analytics.FleetReport, from, to string) FleetReportDTO {
	ledgers := make([]LedgerReportDTO, len(rep.Ledgers))
	for i, r := range rep.Ledgers {
		ledgers[i] = toReportDTO(r)
	}
	return FleetReportDTO{
		Location:        string(rep.Location),
		From:            from,
		To:              to,
		Ledgers:         ledgers,
		TotalUsed:       rep.TotalUsed.InexactFloat64(),
		TotalWasted:     rep.TotalWasted.InexactFloat64(),
		TotalOrdered:    rep.TotalOrdered,
		Discrepancies:   rep.Discrepancies,
		UnsignedRows:    rep.UnsignedRows,
		WasteRatePct:    rep.WasteRatePct.InexactFloat64(),
		ComplianceScore: rep.ComplianceScore.InexactFloat64(),
		EstimatedLoss:   rep.EstimatedLoss.InexactFloat64(),
	}
}
