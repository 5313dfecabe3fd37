package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condokit/billing-engine/ledger"
)

func cashReport(payments []ledger.Payment, expenses []ledger.ExpenseEntry, unidentified []ledger.UnidentifiedIncome) ledger.CashReport {
	return ledger.ComputePeriodCashReport(ledger.CashReportInput{
		Tenant:       boardTenant(),
		Period:       "2025-01",
		Payments:     payments,
		Expenses:     expenses,
		Unidentified: unidentified,
	})
}

func TestCashReport_UnreconciledPayment_ParkedWhole(t *testing.T) {
	// GIVEN: A payment not yet matched to a bank deposit, carrying
	// money in every source
	pay := ledger.Payment{
		ID: "pay-1", Period: "2025-01", BankReconciled: false,
		Receipts: []ledger.FieldReceipt{{
			Key: maint(), Received: dec("2500"),
			AdvanceTargets: map[ledger.Period]decimal.Decimal{"2025-02": dec("1000")},
		}},
		DebtRepayments: map[string]map[ledger.FieldKey]decimal.Decimal{
			"2024-12": {maint(): dec("500")},
		},
		Entries: []ledger.AdditionalEntry{
			{ID: "e-1", Amounts: map[ledger.FieldKey]decimal.Decimal{maint(): dec("300")}},
		},
	}

	r := cashReport([]ledger.Payment{pay}, nil, nil)

	// THEN: The whole 4300 sits in the unreconciled bucket and nothing
	// reaches total income
	assert.True(t, r.UnreconciledIncome.Equal(dec("4300")))
	assert.True(t, r.TotalIncome.IsZero())
	assert.Empty(t, r.IncomeByField)
}

func TestCashReport_ReferencedIncome_CentSplit(t *testing.T) {
	// GIVEN: Two reconciled payments with sub-unit cents
	pays := []ledger.Payment{
		{
			ID: "pay-1", Period: "2025-01", BankReconciled: true,
			Receipts: []ledger.FieldReceipt{{Key: maint(), Received: dec("2500.75")}},
		},
		{
			ID: "pay-2", Period: "2025-01", BankReconciled: true,
			Receipts: []ledger.FieldReceipt{{Key: maint(), Received: dec("2500.50")}},
		},
	}

	r := cashReport(pays, nil, nil)

	// THEN: Each payment floors independently; the cents accumulate as
	// referenced income and total income still conserves every peso
	assert.True(t, r.IncomeByField[maint()].Equal(dec("5000")))
	assert.True(t, r.ReferencedIncome.Equal(dec("1.25")))
	assert.True(t, r.TotalIncome.Equal(dec("5001.25")))
}

func TestCashReport_ZeroDecimalCurrency_NoSplit(t *testing.T) {
	// GIVEN: A tenant in a currency with no sub-unit
	tenant := boardTenant()
	tenant.Currency = "JPY"
	pay := ledger.Payment{
		ID: "pay-1", Period: "2025-01", BankReconciled: true,
		Receipts: []ledger.FieldReceipt{{Key: maint(), Received: dec("2500.75")}},
	}

	r := ledger.ComputePeriodCashReport(ledger.CashReportInput{
		Tenant: tenant, Period: "2025-01", Payments: []ledger.Payment{pay},
	})

	assert.True(t, r.IncomeByField[maint()].Equal(dec("2500.75")))
	assert.True(t, r.ReferencedIncome.IsZero())
}

func TestCashReport_EntryFlagFallsBackToParent(t *testing.T) {
	// GIVEN: A reconciled payment with three entries: one inheriting
	// the parent flag, one explicitly reconciled, one explicitly not
	no := false
	yes := true
	pay := ledger.Payment{
		ID: "pay-1", Period: "2025-01", BankReconciled: true,
		Entries: []ledger.AdditionalEntry{
			{ID: "e-inherit", Amounts: map[ledger.FieldKey]decimal.Decimal{maint(): dec("100")}},
			{ID: "e-yes", Reconciled: &yes, Amounts: map[ledger.FieldKey]decimal.Decimal{maint(): dec("200")}},
			{ID: "e-no", Reconciled: &no, Amounts: map[ledger.FieldKey]decimal.Decimal{maint(): dec("400")}},
		},
	}

	r := cashReport([]ledger.Payment{pay}, nil, nil)

	// THEN: Only the inherited and explicit-yes entries count
	assert.True(t, r.IncomeByField[maint()].Equal(dec("300")))
}

func TestCashReport_ExpenseSplit(t *testing.T) {
	// GIVEN: A reconciled transfer and an uncashed check
	expenses := []ledger.ExpenseEntry{
		{ID: "g-1", Period: "2025-01", Amount: dec("1200"), PaymentType: ledger.PayTransfer, BankReconciled: true},
		{ID: "g-2", Period: "2025-01", Amount: dec("800"), PaymentType: ledger.PayCheck, BankReconciled: false},
	}

	r := cashReport(nil, expenses, nil)

	assert.True(t, r.ReconciledExpenses.Equal(dec("1200")))
	assert.True(t, r.ChecksInTransit.Equal(dec("800")))
	// Checks in transit never enter the net flow
	assert.True(t, r.NetFlow().Equal(dec("-1200")))
}

func TestCashReport_UnidentifiedIncome_DirectToTotal(t *testing.T) {
	unidentified := []ledger.UnidentifiedIncome{
		{ID: "ni-1", Period: "2025-01", Amount: dec("750"), Description: "deposito sin referencia"},
	}

	r := cashReport(nil, nil, unidentified)

	assert.True(t, r.UnidentifiedIncome.Equal(dec("750")))
	assert.True(t, r.TotalIncome.Equal(dec("750")))
}

// =============================================================================
// OPENING BALANCE
// =============================================================================

func TestOpeningBalance_WalksAllPeriodsSinceInception(t *testing.T) {
	// GIVEN: Initial balance 10000 and three months of fixed net flow
	tenant := boardTenant()
	tenant.BankInitialBalance = dec("10000")

	var visited []ledger.Period
	report := func(p ledger.Period) (ledger.CashReport, error) {
		visited = append(visited, p)
		return ledger.CashReport{
			Period:             p,
			TotalIncome:        dec("3000"),
			ReconciledExpenses: dec("1000"),
		}, nil
	}

	got, err := ledger.ComputeOpeningBalance(tenant, "2025-04", report)

	require.NoError(t, err)
	assert.Equal(t, []ledger.Period{"2025-01", "2025-02", "2025-03"}, visited)
	assert.True(t, got.Equal(dec("16000")))
}

func TestOpeningBalance_TargetAtInception(t *testing.T) {
	// GIVEN: Target equal to the operation start
	tenant := boardTenant()
	tenant.BankInitialBalance = dec("500")

	got, err := ledger.ComputeOpeningBalance(tenant, "2025-01", func(ledger.Period) (ledger.CashReport, error) {
		t.Fatal("no period should be visited")
		return ledger.CashReport{}, nil
	})

	require.NoError(t, err)
	assert.True(t, got.Equal(dec("500")))
}

func TestOpeningBalance_Idempotent(t *testing.T) {
	tenant := boardTenant()
	report := func(p ledger.Period) (ledger.CashReport, error) {
		return ledger.CashReport{Period: p, TotalIncome: dec("100.25")}, nil
	}

	first, err1 := ledger.ComputeOpeningBalance(tenant, "2025-06", report)
	second, err2 := ledger.ComputeOpeningBalance(tenant, "2025-06", report)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.True(t, first.Equal(second))
}
