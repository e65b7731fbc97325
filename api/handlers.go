/*
handlers.go - HTTP API handlers for the inventory ledger

PURPOSE:
  Exposes the ledger engine via REST. Handles HTTP request/response, JSON
  serialization, and delegates to the service and analyzer.

ENDPOINTS:
  Ledgers:
    GET    /api/locations/{location}/ledgers              List ledgers
    GET    /api/locations/{location}/ledgers/{slug}       Fetch (or empty draft)
    PUT    /api/locations/{location}/ledgers/{slug}       Whole-document save
    POST   /api/locations/{location}/ledgers/{slug}/revert Admin reversion
    DELETE /api/locations/{location}/ledgers/{slug}       Admin purge

  Reports:
    GET    /api/locations/{location}/ledgers/{slug}/report Per-ledger report
    GET    /api/locations/{location}/reports/compliance    Fleet report

ACTOR IDENTITY:
  Authentication is handled upstream; the acting user arrives in headers
  (X-Actor-Name, X-Actor-Role, X-Actor-Signature) and is passed explicitly
  into every service call.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors (missing signatures carry row numbers)
  - 403: Privileged operation by non-admin
  - 404: Purge/revert of an absent document
  - 409: Version conflict (reload and retry)
  - 500: Store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/warp/substance-ledger/analytics"
	"github.com/warp/substance-ledger/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *ledger.Service
	Analyzer analytics.Analyzer
}

// NewHandler creates a new handler.
func NewHandler(svc *ledger.Service, analyzer analytics.Analyzer) *Handler {
	return &Handler{Service: svc, Analyzer: analyzer}
}

// actorFrom reads the acting user from request headers.
func actorFrom(r *http.Request) ledger.Actor {
	role := ledger.Role(r.Header.Get("X-Actor-Role"))
	if role == "" {
		role = ledger.RoleStaff
	}
	return ledger.Actor{
		Name:      r.Header.Get("X-Actor-Name"),
		Role:      role,
		Signature: ledger.SignatureRef(r.Header.Get("X-Actor-Signature")),
	}
}

// parseLimit reads the optional limit query param. Absent means no limit;
// anything that is not a non-negative integer is a client error.
func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("limit %q is not a number", v)
	}
	if n < 0 {
		return 0, fmt.Errorf("limit %d is negative", n)
	}
	return n, nil
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// ListLedgers returns summaries of every ledger at a location.
func (h *Handler) ListLedgers(w http.ResponseWriter, r *http.Request) {
	location := ledger.LocationID(chi.URLParam(r, "location"))

	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	records, err := h.Service.List(r.Context(), location, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list ledgers", err)
		return
	}

	dtos := make([]LedgerSummaryDTO, len(records))
	for i, rec := range records {
		dtos[i] = toSummaryDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLedger returns one ledger. An absent document comes back as a fresh
// empty draft at version 0 - never a 404.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	location := ledger.LocationID(chi.URLParam(r, "location"))
	slug := ledger.DrugSlug(chi.URLParam(r, "slug"))

	rec, err := h.Service.Load(r.Context(), location, slug)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(rec))
}

// SaveLedger replaces the whole document at the presented version.
func (h *Handler) SaveLedger(w http.ResponseWriter, r *http.Request) {
	location := ledger.LocationID(chi.URLParam(r, "location"))
	slug := ledger.DrugSlug(chi.URLParam(r, "slug"))

	var req SaveLedgerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	saved, err := h.Service.Save(r.Context(), actorFrom(r), location, slug,
		req.Document, ledger.Status(req.Status), req.Version)
	if err != nil {
		writeSaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(saved))
}

// RevertLedger performs the admin-only Complete -> Draft reversion.
func (h *Handler) RevertLedger(w http.ResponseWriter, r *http.Request) {
	location := ledger.LocationID(chi.URLParam(r, "location"))
	slug := ledger.DrugSlug(chi.URLParam(r, "slug"))

	rec, err := h.Service.Revert(r.Context(), actorFrom(r), location, slug)
	if err != nil {
		writeSaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(rec))
}

// PurgeLedger removes a document and its entire history. Admin only.
func (h *Handler) PurgeLedger(w http.ResponseWriter, r *http.Request) {
	location := ledger.LocationID(chi.URLParam(r, "location"))
	slug := ledger.DrugSlug(chi.URLParam(r, "slug"))

	if err := h.Service.Purge(r.Context(), actorFrom(r), location, slug); err != nil {
		writeSaveError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetLedgerReport returns the compliance report for one substance.
// Query params: from, to (YYYY-MM-DD, both optional).
func (h *Handler) GetLedgerReport(w http.ResponseWriter, r *http.Request) {
	location := ledger.LocationID(chi.URLParam(r, "location"))
	slug := ledger.DrugSlug(chi.URLParam(r, "slug"))

	window, err := analytics.ParseWindow(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	rec, err := h.Service.Load(r.Context(), location, slug)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(h.Analyzer.Analyze(slug, rec.Data, window)))
}

// GetComplianceReport returns the fleet-wide report for a location.
// Query params: from, to (YYYY-MM-DD, both optional), limit.
func (h *Handler) GetComplianceReport(w http.ResponseWriter, r *http.Request) {
	location := ledger.LocationID(chi.URLParam(r, "location"))

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	window, err := analytics.ParseWindow(from, to)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	records, err := h.Service.List(r.Context(), location, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list ledgers", err)
		return
	}
	writeJSON(w, http.StatusOK, toFleetReportDTO(h.Analyzer.AnalyzeFleet(location, records, window), from, to))
}

// Healthz is the liveness probe.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeSaveError maps domain errors onto HTTP statuses.
func writeSaveError(w http.ResponseWriter, err error) {
	var sigErr *ledger.SignatureError
	switch {
	case errors.As(err, &sigErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:                "Rows are missing a preparer signature",
			Details:              sigErr.Error(),
			MissingSignatureRows: sigErr.Rows,
		})
	case errors.Is(err, ledger.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, "Invalid status transition", err)
	case errors.Is(err, ledger.ErrForbidden):
		writeError(w, http.StatusForbidden, "Admin role required", err)
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, "Ledger not found", err)
	case errors.Is(err, ledger.ErrVersionConflict):
		writeError(w, http.StatusConflict, "Ledger was modified by someone else; reload and retry", err)
	default:
		writeError(w, http.StatusInternalServerError, "Failed to save ledger", err)
	}
}
