package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/substance-ledger/analytics"
	"github.com/warp/substance-ledger/api"
	"github.com/warp/substance-ledger/ledger"
	"github.com/warp/substance-ledger/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	svc := ledger.NewService(store.NewMemory(), nil, nil)
	h := api.NewHandler(svc, analytics.Analyzer{CostPerML: decimal.NewFromFloat(4.5)})
	return api.NewRouter(h, []string{"*"})
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

var (
	staffHeaders = map[string]string{"X-Actor-Name": "R. Nurse", "X-Actor-Role": "staff"}
	adminHeaders = map[string]string{"X-Actor-Name": "Site Admin", "X-Actor-Role": "admin"}
)

func saveBody(signed bool, status string, version int64) api.SaveLedgerRequest {
	doc := ledger.NewDocument("Fentanyl", "50mcg/mL", "2mL vials")
	doc.InitialStock = ledger.Int64Ptr(20)
	row := ledger.Row{Date: "2026-01-05", Requester: "J. Doe", AmountUsed: ledger.Volume(3),
		AmountWasted: ledger.Volume(1), WasteSource: ledger.WasteAuto}
	if signed {
		row.PreparerSig = "sig-jd"
	}
	doc.Rows = []ledger.Row{row}
	return api.SaveLedgerRequest{Document: doc, Status: status, Version: version}
}

const ledgerPath = "/api/locations/clinic-1/ledgers/fentanyl"

// =============================================================================
// FETCH / SAVE
// =============================================================================

func TestGetLedger_AbsentIsEmptyDraft(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, ledgerPath, nil, staffHeaders)
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decode[api.LedgerDTO](t, rec)
	assert.Equal(t, "draft", dto.Status)
	assert.Equal(t, int64(0), dto.Version)
	assert.Empty(t, dto.Document.Rows)
}

func TestSaveLedger_RoundTripWithDerivedState(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPut, ledgerPath, saveBody(true, "draft", 0), staffHeaders)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	dto := decode[api.LedgerDTO](t, rec)
	assert.Equal(t, int64(1), dto.Version)
	assert.Equal(t, 1, dto.LockedRows)
	assert.Equal(t, int64(18), dto.CurrentStock)
	require.Len(t, dto.Balances, 1)
	assert.Equal(t, int64(20), dto.Balances[0].Before)
	assert.Equal(t, int64(2), dto.Balances[0].VialsConsumed)
	require.NotNil(t, dto.UnitVolumeML)
	assert.Equal(t, 2.0, *dto.UnitVolumeML)
}

func TestSaveLedger_StaleVersionConflicts(t *testing.T) {
	router := newTestRouter(t)

	require.Equal(t, http.StatusOK,
		doJSON(t, router, http.MethodPut, ledgerPath, saveBody(true, "draft", 0), staffHeaders).Code)

	rec := doJSON(t, router, http.MethodPut, ledgerPath, saveBody(true, "draft", 0), staffHeaders)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// =============================================================================
// COMPLETION GATE
// =============================================================================

func TestSaveLedger_CompleteRejectedWithRowNumbers(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPut, ledgerPath, saveBody(false, "complete", 0), staffHeaders)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[api.ErrorResponse](t, rec)
	assert.Equal(t, []int{1}, resp.MissingSignatureRows)

	// Signed, the same transition succeeds.
	rec = doJSON(t, router, http.MethodPut, ledgerPath, saveBody(true, "complete", 0), staffHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "complete", decode[api.LedgerDTO](t, rec).Status)
}

// =============================================================================
// REVERT / PURGE
// =============================================================================

func TestRevertLedger_AdminOnly(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusOK,
		doJSON(t, router, http.MethodPut, ledgerPath, saveBody(true, "complete", 0), staffHeaders).Code)

	assert.Equal(t, http.StatusForbidden,
		doJSON(t, router, http.MethodPost, ledgerPath+"/revert", nil, staffHeaders).Code)

	rec := doJSON(t, router, http.MethodPost, ledgerPath+"/revert", nil, adminHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "draft", decode[api.LedgerDTO](t, rec).Status)
}

func TestPurgeLedger(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusOK,
		doJSON(t, router, http.MethodPut, ledgerPath, saveBody(true, "draft", 0), staffHeaders).Code)

	assert.Equal(t, http.StatusForbidden,
		doJSON(t, router, http.MethodDelete, ledgerPath, nil, staffHeaders).Code)
	assert.Equal(t, http.StatusNoContent,
		doJSON(t, router, http.MethodDelete, ledgerPath, nil, adminHeaders).Code)
	assert.Equal(t, http.StatusNotFound,
		doJSON(t, router, http.MethodDelete, ledgerPath, nil, adminHeaders).Code)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestReports(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusOK,
		doJSON(t, router, http.MethodPut, ledgerPath, saveBody(true, "draft", 0), staffHeaders).Code)

	rec := doJSON(t, router, http.MethodGet, ledgerPath+"/report", nil, staffHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	rep := decode[api.LedgerReportDTO](t, rec)
	assert.Equal(t, int64(18), rep.CurrentStock)
	assert.Equal(t, 3.0, rep.PeriodUsed)
	assert.Equal(t, 1.0, rep.PeriodWasted)
	assert.Equal(t, 25.0, rep.WasteRatePct)

	rec = doJSON(t, router, http.MethodGet, "/api/locations/clinic-1/reports/compliance?from=2026-01-01&to=2026-01-31", nil, staffHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	fleet := decode[api.FleetReportDTO](t, rec)
	require.Len(t, fleet.Ledgers, 1)
	assert.Equal(t, 3.0, fleet.TotalUsed)
	assert.Equal(t, 100.0, fleet.ComplianceScore)

	rec = doJSON(t, router, http.MethodGet, "/api/locations/clinic-1/reports/compliance?from=bad-date", nil, staffHeaders)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListLedgers(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusOK,
		doJSON(t, router, http.MethodPut, ledgerPath, saveBody(true, "draft", 0), staffHeaders).Code)

	rec := doJSON(t, router, http.MethodGet, "/api/locations/clinic-1/ledgers/", nil, staffHeaders)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[[]api.LedgerSummaryDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "fentanyl", list[0].Slug)
	assert.Equal(t, int64(18), list[0].CurrentStock)
}

func TestMalformedLimitRejected(t *testing.T) {
	router := newTestRouter(t)

	assert.Equal(t, http.StatusBadRequest,
		doJSON(t, router, http.MethodGet, "/api/locations/clinic-1/ledgers/?limit=abc", nil, staffHeaders).Code)
	assert.Equal(t, http.StatusBadRequest,
		doJSON(t, router, http.MethodGet, "/api/locations/clinic-1/reports/compliance?limit=-1", nil, staffHeaders).Code)

	// A well-formed limit still works.
	assert.Equal(t, http.StatusOK,
		doJSON(t, router, http.MethodGet, "/api/locations/clinic-1/ledgers/?limit=5", nil, staffHeaders).Code)
}
