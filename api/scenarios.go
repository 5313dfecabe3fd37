/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Pre-built scenarios that populate the database with realistic
  condominium data for demos and manual testing. Each loader resets the
  database, seeds configuration through the store, and then runs real
  capture operations so every payment carries a properly derived status.

AVAILABLE SCENARIOS:
  condominio-base:      Three units, one paid, one partial, one in debt
  adeudos-y-adelantos:  Prior-debt repayment plus an advance payment
  mesa-directiva:       Board-member exemption and a cash-view month

Scenario periods are anchored to the current month so statements and
dashboards always show live-looking data.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "condominio-base"}

NOTE:
  Loading a scenario wipes the database. Development and demo
  environments only.

SEE ALSO:
  - handlers.go: writeJSON/writeServiceError helpers
  - store/sqlite/sqlite.go: Reset
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/condokit/billing-engine/billing"
	"github.com/condokit/billing-engine/ledger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "condominio-base",
		Name:        "Condominio Base",
		Description: "Three units: fully paid, partial, and carrying debt",
		Category:    "billing",
	},
	{
		ID:          "adeudos-y-adelantos",
		Name:        "Adeudos y Adelantos",
		Description: "Prior-debt repayment alongside an advance toward next month",
		Category:    "billing",
	},
	{
		ID:          "mesa-directiva",
		Name:        "Mesa Directiva",
		Description: "Board-member exemption plus a full cash-view month",
		Category:    "reconciliation",
	},
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario resets the database and loads the requested scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	ctx := r.Context()
	var err error
	switch req.ScenarioID {
	case "condominio-base":
		err = h.loadBaseScenario(ctx)
	case "adeudos-y-adelantos":
		err = h.loadDebtScenario(ctx)
	case "mesa-directiva":
		err = h.loadBoardScenario(ctx)
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "loaded",
		"scenario_id": req.ScenarioID,
	})
}

// =============================================================================
// LOADERS
// =============================================================================

func amt(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// anchor returns the scenario's three periods: two months ago, last
// month, and the current month.
func anchor() (p0, p1, p2 ledger.Period) {
	p2 = ledger.TodayPeriod()
	p1 = p2.Prev()
	p0 = p1.Prev()
	return p0, p1, p2
}

func (h *Handler) seedTenant(ctx context.Context, p0 ledger.Period, adminType ledger.AdminType) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	if err := h.Store.SaveTenant(ctx, ledger.Tenant{
		ID:                 "t-palmas",
		Name:               "Residencial Las Palmas",
		MaintenanceFee:     amt("2500"),
		Currency:           "MXN",
		OperationStart:     p0,
		BankInitialBalance: amt("50000"),
		AdminType:          adminType,
	}); err != nil {
		return err
	}
	return h.Store.SaveField(ctx, ledger.ChargeField{
		ID: "f-reserva", TenantID: "t-palmas", Label: "Fondo de Reserva",
		DefaultAmount: amt("500"), Required: true, Enabled: true,
		FieldType: ledger.FieldNormal, SortOrder: 1,
	})
}

func fullFields() []billing.FieldCapture {
	return []billing.FieldCapture{
		{Key: ledger.MaintenanceKey(), Received: amt("2500")},
		{Key: ledger.ExtraKey("f-reserva"), Received: amt("500")},
	}
}

func (h *Handler) loadBaseScenario(ctx context.Context) error {
	p0, p1, _ := anchor()
	if err := h.seedTenant(ctx, p0, ledger.AdminExternal); err != nil {
		return err
	}

	units := []ledger.Unit{
		{ID: "u-casa1", TenantID: "t-palmas", Name: "Casa 1", Code: "C1"},
		{ID: "u-casa2", TenantID: "t-palmas", Name: "Casa 2", Code: "C2"},
		{ID: "u-casa3", TenantID: "t-palmas", Name: "Casa 3", Code: "C3",
			PreviousDebt: amt("5000")},
	}
	for _, u := range units {
		if err := h.Store.SaveUnit(ctx, u); err != nil {
			return err
		}
	}

	// Casa 1 pays both months in full.
	for _, period := range []ledger.Period{p0, p1} {
		if _, err := h.Billing.CapturePayment(ctx, billing.CaptureInput{
			TenantID: "t-palmas", UnitID: "u-casa1", Period: period,
			PaymentType: ledger.PayTransfer, BankReconciled: true,
			Fields: fullFields(),
		}); err != nil {
			return err
		}
	}

	// Casa 2 covers only part of the first month's maintenance.
	if _, err := h.Billing.CapturePayment(ctx, billing.CaptureInput{
		TenantID: "t-palmas", UnitID: "u-casa2", Period: p0,
		PaymentType: ledger.PayCash,
		Fields: []billing.FieldCapture{
			{Key: ledger.MaintenanceKey(), Received: amt("1000")},
		},
	}); err != nil {
		return err
	}

	// Casa 3 pays nothing; its debt keeps growing.
	return h.Billing.ClosePeriod(ctx, "t-palmas", p0)
}

func (h *Handler) loadDebtScenario(ctx context.Context) error {
	p0, p1, p2 := anchor()
	if err := h.seedTenant(ctx, p0, ledger.AdminExternal); err != nil {
		return err
	}

	if err := h.Store.SaveUnit(ctx, ledger.Unit{
		ID: "u-moroso", TenantID: "t-palmas", Name: "Casa 10", Code: "C10",
		PreviousDebt: amt("7500"),
	}); err != nil {
		return err
	}
	if err := h.Store.SaveUnit(ctx, ledger.Unit{
		ID: "u-adelantado", TenantID: "t-palmas", Name: "Casa 11", Code: "C11",
	}); err != nil {
		return err
	}

	// Casa 10 pays the current month and chips away at old obligations:
	// part against pre-ledger debt, part against the missed first month.
	if _, err := h.Billing.CapturePayment(ctx, billing.CaptureInput{
		TenantID: "t-palmas", UnitID: "u-moroso", Period: p1,
		PaymentType: ledger.PayTransfer, BankReconciled: true,
		Fields: fullFields(),
		DebtRepayments: map[string]map[ledger.FieldKey]decimal.Decimal{
			ledger.PriorDebtTarget: {ledger.MaintenanceKey(): amt("2500")},
			string(p0):             {ledger.MaintenanceKey(): amt("2500")},
		},
	}); err != nil {
		return err
	}

	// Casa 11 pays this month and leaves next month's maintenance as an
	// advance.
	if _, err := h.Billing.CapturePayment(ctx, billing.CaptureInput{
		TenantID: "t-palmas", UnitID: "u-adelantado", Period: p1,
		PaymentType: ledger.PayDeposit, BankReconciled: true,
		Fields: []billing.FieldCapture{
			{Key: ledger.MaintenanceKey(), Received: amt("2500"),
				AdvanceTargets: map[ledger.Period]decimal.Decimal{p2: amt("2500")}},
			{Key: ledger.ExtraKey("f-reserva"), Received: amt("500")},
		},
	}); err != nil {
		return err
	}
	return nil
}

func (h *Handler) loadBoardScenario(ctx context.Context) error {
	p0, p1, _ := anchor()
	if err := h.seedTenant(ctx, p0, ledger.AdminBoard); err != nil {
		return err
	}

	if err := h.Store.SaveUnit(ctx, ledger.Unit{
		ID: "u-presidente", TenantID: "t-palmas", Name: "Casa 20", Code: "C20",
		AdminExempt: true,
	}); err != nil {
		return err
	}
	if err := h.Store.SaveUnit(ctx, ledger.Unit{
		ID: "u-vecino", TenantID: "t-palmas", Name: "Casa 21", Code: "C21",
	}); err != nil {
		return err
	}
	if err := h.Store.SaveCommittee(ctx, ledger.Committee{
		ID: "c-directiva", TenantID: "t-palmas", Name: "Mesa Directiva",
		GrantsExemption: true,
	}); err != nil {
		return err
	}
	if err := h.Store.SavePosition(ctx, ledger.AssemblyPosition{
		ID: "pos-presidente", TenantID: "t-palmas", Title: "Presidente",
		UnitID: "u-presidente", Active: true,
		FromPeriod: p0, CommitteeID: "c-directiva",
	}); err != nil {
		return err
	}

	// The president's month is waived, not paid: the reserve fund is
	// still owed, maintenance is not.
	if _, err := h.Billing.CapturePayment(ctx, billing.CaptureInput{
		TenantID: "t-palmas", UnitID: "u-presidente", Period: p0,
		PaymentType: ledger.PayExempt,
		Fields: []billing.FieldCapture{
			{Key: ledger.ExtraKey("f-reserva"), Received: amt("500")},
		},
	}); err != nil {
		return err
	}

	// The neighbor pays normally, reconciled against the bank.
	if _, err := h.Billing.CapturePayment(ctx, billing.CaptureInput{
		TenantID: "t-palmas", UnitID: "u-vecino", Period: p0,
		PaymentType: ledger.PayTransfer, BankReconciled: true,
		Fields: fullFields(),
	}); err != nil {
		return err
	}

	// Cash-view records for the same month.
	if _, err := h.Billing.AddExpense(ctx, billing.ExpenseInput{
		TenantID: "t-palmas", Period: p0, Amount: amt("1800"),
		PaymentType: ledger.PayTransfer, Provider: "CFE", BankReconciled: true,
	}); err != nil {
		return err
	}
	if _, err := h.Billing.AddExpense(ctx, billing.ExpenseInput{
		TenantID: "t-palmas", Period: p1, Amount: amt("950"),
		PaymentType: ledger.PayCheck, DocNumber: "0073",
		Provider: "Jardineria Lopez",
	}); err != nil {
		return err
	}
	if _, err := h.Billing.AddUnidentifiedIncome(ctx, "t-palmas", p0, amt("750"),
		"Deposito sin referencia"); err != nil {
		return err
	}
	if _, err := h.Billing.AddPettyCash(ctx, "t-palmas", p0, amt("320"),
		"Focos y material de limpieza", ledger.PayCash); err != nil {
		return err
	}
	return nil
}
