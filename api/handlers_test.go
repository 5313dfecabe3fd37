package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condokit/billing-engine/billing"
	"github.com/condokit/billing-engine/ledger"
	"github.com/condokit/billing-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newTestRouter seeds the standard condominium and pins both service
// clocks to June 2025.
func newTestRouter(t *testing.T) (http.Handler, *Handler) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.SaveTenant(ctx, ledger.Tenant{
		ID:                 "t-1",
		Name:               "Residencial Las Palmas",
		MaintenanceFee:     amt("2500"),
		Currency:           "MXN",
		OperationStart:     "2025-01",
		BankInitialBalance: amt("10000"),
		AdminType:          ledger.AdminExternal,
	}))
	require.NoError(t, store.SaveUnit(ctx, ledger.Unit{
		ID: "u-1", TenantID: "t-1", Name: "Casa 1", Code: "C1",
	}))
	require.NoError(t, store.SaveField(ctx, ledger.ChargeField{
		ID: "f-reserva", TenantID: "t-1", Label: "Fondo de Reserva",
		DefaultAmount: amt("500"), Required: true, Enabled: true,
		FieldType: ledger.FieldNormal,
	}))

	clock := func() time.Time {
		return time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	}
	h := NewHandler(store)
	h.Reports = ledger.NewService(store).WithClock(clock)
	h.Billing = billing.NewService(store).WithClock(clock)
	return NewRouter(h, nil), h
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func captureBody() CaptureRequest {
	return CaptureRequest{
		UnitID:      "u-1",
		Period:      "2025-01",
		PaymentType: "transferencia",
		Fields: []FieldCaptureRequest{
			{Key: "maintenance", Received: amt("2500")},
			{Key: "f-reserva", Received: amt("500")},
		},
	}
}

// =============================================================================
// CAPTURE AND STATEMENT
// =============================================================================

func TestCaptureThenStatement_HTTP(t *testing.T) {
	// GIVEN: A full January payment captured over HTTP
	router, _ := newTestRouter(t)
	rec := doRequest(t, router, http.MethodPost, "/api/tenants/t-1/payments/capture", captureBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	p := decodeBody[PaymentDTO](t, rec)
	assert.Equal(t, "pagado", p.Status)
	assert.Len(t, p.Receipts, 2)

	// WHEN: Fetching the January statement
	rec = doRequest(t, router, http.MethodGet,
		"/api/tenants/t-1/statement?unit_id=u-1&from=2025-01&to=2025-01", nil)

	// THEN: One paid row, zero balance
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeBody[StatementDTO](t, rec)
	require.Len(t, st.Rows, 1)
	assert.Equal(t, "pagado", st.Rows[0].Status)
	assert.Equal(t, "0.00", st.Balance)
}

func TestGetStatement_MissingUnitID(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/tenants/t-1/statement", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCapturePayment_InvalidPeriod_HTTP(t *testing.T) {
	router, _ := newTestRouter(t)
	body := captureBody()
	body.Period = "2025-13"

	rec := doRequest(t, router, http.MethodPost, "/api/tenants/t-1/payments/capture", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "invalid_period", resp.Code)
}

func TestCapturePayment_UnknownUnit_HTTP(t *testing.T) {
	router, _ := newTestRouter(t)
	body := captureBody()
	body.UnitID = "u-missing"

	rec := doRequest(t, router, http.MethodPost, "/api/tenants/t-1/payments/capture", body)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClearPayment_HTTP(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doRequest(t, router, http.MethodPost, "/api/tenants/t-1/payments/capture", captureBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	p := decodeBody[PaymentDTO](t, rec)

	rec = doRequest(t, router, http.MethodDelete, "/api/tenants/t-1/payments/"+p.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/api/tenants/t-1/payments/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEntryLifecycle_HTTP(t *testing.T) {
	// GIVEN: A partial payment (reserve fund only)
	router, _ := newTestRouter(t)
	body := captureBody()
	body.Fields = []FieldCaptureRequest{{Key: "f-reserva", Received: amt("500")}}
	rec := doRequest(t, router, http.MethodPost, "/api/tenants/t-1/payments/capture", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	p := decodeBody[PaymentDTO](t, rec)
	require.Equal(t, "parcial", p.Status)

	// WHEN: A supplemental deposit covers the maintenance
	rec = doRequest(t, router, http.MethodPost,
		"/api/tenants/t-1/payments/"+p.ID+"/entries", EntryRequest{
			Amounts:     map[string]decimal.Decimal{"maintenance": amt("2500")},
			PaymentType: "deposito",
		})

	// THEN: Status moves to pagado; removing the entry moves it back
	require.Equal(t, http.StatusCreated, rec.Code)
	p = decodeBody[PaymentDTO](t, rec)
	require.Len(t, p.Entries, 1)
	assert.Equal(t, "pagado", p.Status)

	rec = doRequest(t, router, http.MethodDelete,
		"/api/tenants/t-1/payments/"+p.ID+"/entries/"+p.Entries[0].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p = decodeBody[PaymentDTO](t, rec)
	assert.Empty(t, p.Entries)
	assert.Equal(t, "parcial", p.Status)
}

// =============================================================================
// PERIOD CLOSING
// =============================================================================

func TestClosedPeriodGate_HTTP(t *testing.T) {
	// GIVEN: January closed over HTTP
	router, _ := newTestRouter(t)
	rec := doRequest(t, router, http.MethodPost,
		"/api/tenants/t-1/closed-periods", ClosePeriodRequest{Period: "2025-01"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/tenants/t-1/closed-periods", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"2025-01"}, decodeBody[[]string](t, rec))

	// WHEN: Capturing into the closed period
	rec = doRequest(t, router, http.MethodPost, "/api/tenants/t-1/payments/capture", captureBody())

	// THEN: 400 with the period_closed code
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "period_closed", resp.Code)
}

func TestReopenWorkflow_HTTP(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doRequest(t, router, http.MethodPost,
		"/api/tenants/t-1/closed-periods", ClosePeriodRequest{Period: "2025-01"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, http.MethodPost,
		"/api/tenants/t-1/reopen-requests", ReopenRequestRequest{
			Period: "2025-01", Reason: "captura incompleta",
		})
	require.Equal(t, http.StatusCreated, rec.Code)
	rr := decodeBody[ReopenRequestDTO](t, rec)
	assert.Equal(t, "pendiente", rr.Status)

	rec = doRequest(t, router, http.MethodPost,
		"/api/tenants/t-1/reopen-requests/"+rr.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rr = decodeBody[ReopenRequestDTO](t, rec)
	assert.Equal(t, "aprobada", rr.Status)
	require.NotNil(t, rr.ResolvedAt)

	// The gate is open again
	rec = doRequest(t, router, http.MethodPost, "/api/tenants/t-1/payments/capture", captureBody())
	assert.Equal(t, http.StatusCreated, rec.Code)
}

// =============================================================================
// EXPENSES AND REPORTS
// =============================================================================

func TestExpensesAndCashReport_HTTP(t *testing.T) {
	// GIVEN: A reconciled payment and a reconciled expense in January
	router, _ := newTestRouter(t)
	body := captureBody()
	body.BankReconciled = true
	rec := doRequest(t, router, http.MethodPost, "/api/tenants/t-1/payments/capture", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/tenants/t-1/expenses", ExpenseRequest{
		Period: "2025-01", Amount: amt("1200"), PaymentType: "transferencia",
		Provider: "CFE", BankReconciled: true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/tenants/t-1/expenses?period=2025-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]ExpenseDTO](t, rec), 1)

	// WHEN: Fetching the cash report
	rec = doRequest(t, router, http.MethodGet, "/api/tenants/t-1/cash-report?period=2025-01", nil)

	// THEN: 3000 in, 1200 out
	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeBody[CashReportDTO](t, rec)
	assert.Equal(t, "3000.00", report.TotalIncome)
	assert.Equal(t, "1200.00", report.ReconciledExpenses)
	assert.Equal(t, "1800.00", report.NetFlow)
}

func TestDashboard_HTTP(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doRequest(t, router, http.MethodPost, "/api/tenants/t-1/payments/capture", captureBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/tenants/t-1/dashboard?period=2025-01", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	d := decodeBody[DashboardDTO](t, rec)
	assert.Equal(t, 1, d.Units)
	assert.Equal(t, 1, d.Paid)
	assert.Equal(t, "3000.00", d.Expected)
	assert.Equal(t, "3000.00", d.Collected)
}

func TestOpeningBalance_HTTP(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/tenants/t-1/opening-balance?period=2025-01", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	b := decodeBody[OpeningBalanceDTO](t, rec)
	assert.Equal(t, "10000.00", b.OpeningBalance)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarios_ListAndLoad(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]ScenarioDTO](t, rec), 3)

	rec = doRequest(t, router, http.MethodPost, "/api/scenarios/load",
		LoadScenarioRequest{ScenarioID: "condominio-base"})
	require.Equal(t, http.StatusOK, rec.Code)

	// The scenario's first unit paid its first month in full
	p0 := ledger.TodayPeriod().Prev().Prev()
	rec = doRequest(t, router, http.MethodGet,
		"/api/tenants/t-palmas/statement?unit_id=u-casa1&from="+string(p0)+"&to="+string(p0), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeBody[StatementDTO](t, rec)
	require.Len(t, st.Rows, 1)
	assert.Equal(t, "pagado", st.Rows[0].Status)
}

func TestLoadScenario_Unknown(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/scenarios/load",
		LoadScenarioRequest{ScenarioID: "no-such"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
