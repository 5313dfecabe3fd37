/*
handlers.go - HTTP handler implementations

PURPOSE:
  Translates HTTP requests into service calls and service results into
  JSON. Handlers hold no business logic: they parse, delegate to the
  report or capture service, and map errors to status codes.

ERROR MAPPING:
  400  closed period, invalid amount, invalid period (with a stable
       machine-readable code)
  404  unknown tenant, unit, payment, entry, or reopen request
  500  everything else

SEE ALSO:
  - server.go: route definitions
  - dto.go: request/response shapes
  - ledger/errors.go: the sentinels matched here
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/condokit/billing-engine/billing"
	"github.com/condokit/billing-engine/ledger"
	"github.com/condokit/billing-engine/store/sqlite"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Reports *ledger.Service
	Billing *billing.Service

	currentScenario string
}

// NewHandler creates a handler with both services wired to the store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:   store,
		Reports: ledger.NewService(store),
		Billing: billing.NewService(store),
	}
}

// =============================================================================
// HELPERS
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

// writeServiceError maps a service error to its HTTP status.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found", err)
	case ledger.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid request",
			Code:    errorCode(err),
			Details: err.Error(),
		})
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ledger.ErrPeriodClosed):
		return "period_closed"
	case errors.Is(err, ledger.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ledger.ErrInvalidPeriod):
		return "invalid_period"
	default:
		return "bad_request"
	}
}

// periodParam reads a required ?period= query parameter.
func periodParam(r *http.Request) (ledger.Period, bool) {
	p := ledger.Period(r.URL.Query().Get("period"))
	return p, p != ""
}

func parseFieldAmounts(m map[string]decimal.Decimal) map[ledger.FieldKey]decimal.Decimal {
	if len(m) == 0 {
		return nil
	}
	out := make(map[ledger.FieldKey]decimal.Decimal, len(m))
	for k, v := range m {
		out[ledger.ParseFieldKey(k)] = v
	}
	return out
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

// GetStatement returns the accrual-view statement for one unit.
// GET /api/tenants/{tenantID}/statement?unit_id=&from=&to=
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	unitID := r.URL.Query().Get("unit_id")
	if unitID == "" {
		writeError(w, http.StatusBadRequest, "unit_id is required", nil)
		return
	}
	from := ledger.Period(r.URL.Query().Get("from"))
	to := ledger.Period(r.URL.Query().Get("to"))

	st, err := h.Reports.Statement(r.Context(), tenantID, unitID, from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatementDTO(st))
}

// GetCashReport returns the bank reconciliation report for one period.
// GET /api/tenants/{tenantID}/cash-report?period=
func (h *Handler) GetCashReport(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	period, ok := periodParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "period is required", nil)
		return
	}

	report, err := h.Reports.CashReport(r.Context(), tenantID, period)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCashReportDTO(report))
}

// GetOpeningBalance returns the bank balance at the start of a period.
// GET /api/tenants/{tenantID}/opening-balance?period=
func (h *Handler) GetOpeningBalance(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	period, ok := periodParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "period is required", nil)
		return
	}

	balance, err := h.Reports.OpeningBalance(r.Context(), tenantID, period)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OpeningBalanceDTO{
		Period:         string(period),
		OpeningBalance: money(balance),
	})
}

// GetDashboard returns the per-period collection summary.
// GET /api/tenants/{tenantID}/dashboard?period=
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	period, ok := periodParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "period is required", nil)
		return
	}

	d, err := h.Reports.Dashboard(r.Context(), tenantID, period)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(d))
}

// =============================================================================
// PAYMENT CAPTURE ENDPOINTS
// =============================================================================

// CapturePayment creates or replaces one (unit, period) payment.
// POST /api/tenants/{tenantID}/payments/capture
func (h *Handler) CapturePayment(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	in := billing.CaptureInput{
		TenantID:       tenantID,
		UnitID:         req.UnitID,
		Period:         ledger.Period(req.Period),
		PaymentType:    ledger.PaymentType(req.PaymentType),
		BankReconciled: req.BankReconciled,
		Notes:          req.Notes,
		Evidence:       req.Evidence,
	}
	for _, f := range req.Fields {
		fc := billing.FieldCapture{
			Key:          ledger.ParseFieldKey(f.Key),
			Received:     f.Received,
			TargetUnitID: f.TargetUnitID,
		}
		if len(f.AdvanceTargets) > 0 {
			fc.AdvanceTargets = make(map[ledger.Period]decimal.Decimal, len(f.AdvanceTargets))
			for period, amount := range f.AdvanceTargets {
				fc.AdvanceTargets[ledger.Period(period)] = amount
			}
		}
		in.Fields = append(in.Fields, fc)
	}
	if len(req.DebtRepayments) > 0 {
		in.DebtRepayments = make(map[string]map[ledger.FieldKey]decimal.Decimal, len(req.DebtRepayments))
		for target, fields := range req.DebtRepayments {
			in.DebtRepayments[target] = parseFieldAmounts(fields)
		}
	}

	p, err := h.Billing.CapturePayment(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(p))
}

// ClearPayment removes a payment and everything attached to it.
// DELETE /api/tenants/{tenantID}/payments/{paymentID}
func (h *Handler) ClearPayment(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	paymentID := chi.URLParam(r, "paymentID")

	if err := h.Billing.ClearPayment(r.Context(), tenantID, paymentID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeEntry(w http.ResponseWriter, r *http.Request) (billing.EntryInput, bool) {
	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return billing.EntryInput{}, false
	}
	return billing.EntryInput{
		Amounts:     parseFieldAmounts(req.Amounts),
		PaymentType: ledger.PaymentType(req.PaymentType),
		Reconciled:  req.Reconciled,
	}, true
}

// AddEntry appends a supplemental entry to a payment.
// POST /api/tenants/{tenantID}/payments/{paymentID}/entries
func (h *Handler) AddEntry(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	paymentID := chi.URLParam(r, "paymentID")

	in, ok := decodeEntry(w, r)
	if !ok {
		return
	}
	p, err := h.Billing.AddEntry(r.Context(), tenantID, paymentID, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(p))
}

// UpdateEntry replaces one entry's data.
// PUT /api/tenants/{tenantID}/payments/{paymentID}/entries/{entryID}
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	paymentID := chi.URLParam(r, "paymentID")
	entryID := chi.URLParam(r, "entryID")

	in, ok := decodeEntry(w, r)
	if !ok {
		return
	}
	p, err := h.Billing.UpdateEntry(r.Context(), tenantID, paymentID, entryID, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(p))
}

// RemoveEntry deletes one entry.
// DELETE /api/tenants/{tenantID}/payments/{paymentID}/entries/{entryID}
func (h *Handler) RemoveEntry(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	paymentID := chi.URLParam(r, "paymentID")
	entryID := chi.URLParam(r, "entryID")

	p, err := h.Billing.RemoveEntry(r.Context(), tenantID, paymentID, entryID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(p))
}

// =============================================================================
// PERIOD CLOSING ENDPOINTS
// =============================================================================

// ClosePeriod marks a period closed for the tenant.
// POST /api/tenants/{tenantID}/closed-periods
func (h *Handler) ClosePeriod(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req ClosePeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.Billing.ClosePeriod(r.Context(), tenantID, ledger.Period(req.Period)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListClosedPeriods lists a tenant's closed periods.
// GET /api/tenants/{tenantID}/closed-periods
func (h *Handler) ListClosedPeriods(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	periods, err := h.Billing.ClosedPeriods(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]string, 0, len(periods))
	for _, p := range periods {
		out = append(out, string(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// FileReopenRequest files a request to reopen a closed period.
// POST /api/tenants/{tenantID}/reopen-requests
func (h *Handler) FileReopenRequest(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req ReopenRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	rr, err := h.Billing.FileReopenRequest(r.Context(), tenantID, ledger.Period(req.Period), req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReopenRequestDTO(rr))
}

// ListReopenRequests lists a tenant's reopen requests, newest first.
// GET /api/tenants/{tenantID}/reopen-requests
func (h *Handler) ListReopenRequests(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	requests, err := h.Billing.ReopenRequests(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]ReopenRequestDTO, 0, len(requests))
	for _, rr := range requests {
		out = append(out, toReopenRequestDTO(rr))
	}
	writeJSON(w, http.StatusOK, out)
}

// ApproveReopen approves a pending reopen request.
// POST /api/tenants/{tenantID}/reopen-requests/{requestID}/approve
func (h *Handler) ApproveReopen(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	requestID := chi.URLParam(r, "requestID")

	rr, err := h.Billing.ApproveReopen(r.Context(), tenantID, requestID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReopenRequestDTO(rr))
}

// RejectReopen rejects a pending reopen request.
// POST /api/tenants/{tenantID}/reopen-requests/{requestID}/reject
func (h *Handler) RejectReopen(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	requestID := chi.URLParam(r, "requestID")

	rr, err := h.Billing.RejectReopen(r.Context(), tenantID, requestID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReopenRequestDTO(rr))
}

// =============================================================================
// EXPENSE ENDPOINTS
// =============================================================================

// AddExpense records an outgoing payment for a period.
// POST /api/tenants/{tenantID}/expenses
func (h *Handler) AddExpense(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req ExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	e, err := h.Billing.AddExpense(r.Context(), billing.ExpenseInput{
		TenantID:       tenantID,
		Period:         ledger.Period(req.Period),
		FieldID:        req.FieldID,
		Amount:         req.Amount,
		PaymentType:    ledger.PaymentType(req.PaymentType),
		DocNumber:      req.DocNumber,
		Provider:       req.Provider,
		BankReconciled: req.BankReconciled,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(e))
}

// ListExpenses lists a period's expense entries.
// GET /api/tenants/{tenantID}/expenses?period=
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	period, ok := periodParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "period is required", nil)
		return
	}

	expenses, err := h.Billing.Expenses(r.Context(), tenantID, period)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]ExpenseDTO, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseDTO(e))
	}
	writeJSON(w, http.StatusOK, out)
}
