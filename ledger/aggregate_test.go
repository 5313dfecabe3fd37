package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/condokit/billing-engine/ledger"
)

func maint() ledger.FieldKey { return ledger.MaintenanceKey() }

func TestAggregate_DirectReceipts(t *testing.T) {
	// GIVEN: One payment with a maintenance receipt and a field receipt
	pay := ledger.Payment{
		ID: "pay-1", TenantID: "t-1", UnitID: "u-1", Period: "2025-01",
		Receipts: []ledger.FieldReceipt{
			{Key: maint(), Received: dec("2500")},
			{Key: ledger.ExtraKey("f-reserva"), Received: dec("500")},
		},
	}

	agg := ledger.AggregatePayments([]ledger.Payment{pay})

	assert.True(t, agg.Received("2025-01", maint()).Equal(dec("2500")))
	assert.True(t, agg.Received("2025-01", ledger.ExtraKey("f-reserva")).Equal(dec("500")))
	assert.True(t, agg.Received("2025-02", maint()).IsZero())
}

func TestAggregate_AdvanceTargets_CreditFuturePeriod(t *testing.T) {
	// GIVEN: January's maintenance receipt carries advances for
	// February and March
	pay := ledger.Payment{
		ID: "pay-1", Period: "2025-01",
		Receipts: []ledger.FieldReceipt{{
			Key:      maint(),
			Received: dec("2500"),
			AdvanceTargets: map[ledger.Period]decimal.Decimal{
				"2025-02": dec("2500"),
				"2025-03": dec("1000"),
			},
		}},
	}

	agg := ledger.AggregatePayments([]ledger.Payment{pay})

	// THEN: Each advance lands on its target period, same field key
	assert.True(t, agg.Received("2025-01", maint()).Equal(dec("2500")))
	assert.True(t, agg.Received("2025-02", maint()).Equal(dec("2500")))
	assert.True(t, agg.Received("2025-03", maint()).Equal(dec("1000")))
}

func TestAggregate_DebtRepayments_OrdinaryPeriod(t *testing.T) {
	// GIVEN: A March payment repaying January's maintenance
	pay := ledger.Payment{
		ID: "pay-3", Period: "2025-03",
		DebtRepayments: map[string]map[ledger.FieldKey]decimal.Decimal{
			"2025-01": {maint(): dec("2500")},
		},
	}

	agg := ledger.AggregatePayments([]ledger.Payment{pay})

	assert.True(t, agg.Received("2025-01", maint()).Equal(dec("2500")))
	assert.True(t, agg.Received("2025-03", maint()).IsZero())
	assert.True(t, agg.PriorDebtRepaid.IsZero())
}

func TestAggregate_PriorDebtSentinel_ScalarOnly(t *testing.T) {
	// GIVEN: Two payments both repaying pre-ledger debt
	pays := []ledger.Payment{
		{
			ID: "pay-1", Period: "2025-01",
			DebtRepayments: map[string]map[ledger.FieldKey]decimal.Decimal{
				ledger.PriorDebtTarget: {maint(): dec("300")},
			},
		},
		{
			ID: "pay-2", Period: "2025-02",
			DebtRepayments: map[string]map[ledger.FieldKey]decimal.Decimal{
				ledger.PriorDebtTarget: {maint(): dec("200"), ledger.ExtraKey("f-reserva"): dec("100")},
			},
		},
	}

	agg := ledger.AggregatePayments(pays)

	// THEN: The sentinel money is never any period's income
	assert.True(t, agg.PriorDebtRepaid.Equal(dec("600")))
	assert.True(t, agg.Received("2025-01", maint()).IsZero())
	assert.True(t, agg.Received("2025-02", maint()).IsZero())
}

func TestAggregate_AdditionalEntries_OwnPeriodOnly(t *testing.T) {
	// GIVEN: A payment with a primary receipt plus two supplemental
	// entries
	pay := ledger.Payment{
		ID: "pay-1", Period: "2025-01",
		Receipts: []ledger.FieldReceipt{{Key: maint(), Received: dec("1000")}},
		Entries: []ledger.AdditionalEntry{
			{ID: "e-1", Amounts: map[ledger.FieldKey]decimal.Decimal{maint(): dec("1000")}},
			{ID: "e-2", Amounts: map[ledger.FieldKey]decimal.Decimal{maint(): dec("500")}},
		},
	}

	agg := ledger.AggregatePayments([]ledger.Payment{pay})

	assert.True(t, agg.Received("2025-01", maint()).Equal(dec("2500")))
}

func TestAggregate_AllFourSourcesCombine(t *testing.T) {
	// GIVEN: Direct receipt, an advance aimed at February, a February
	// payment repaying January, and an entry on February's payment
	pays := []ledger.Payment{
		{
			ID: "pay-1", Period: "2025-01",
			Receipts: []ledger.FieldReceipt{{
				Key: maint(), Received: dec("1000"),
				AdvanceTargets: map[ledger.Period]decimal.Decimal{"2025-02": dec("700")},
			}},
		},
		{
			ID: "pay-2", Period: "2025-02",
			Receipts: []ledger.FieldReceipt{{Key: maint(), Received: dec("800")}},
			DebtRepayments: map[string]map[ledger.FieldKey]decimal.Decimal{
				"2025-01": {maint(): dec("1500")},
			},
			Entries: []ledger.AdditionalEntry{
				{ID: "e-1", Amounts: map[ledger.FieldKey]decimal.Decimal{maint(): dec("1000")}},
			},
		},
	}

	agg := ledger.AggregatePayments(pays)

	assert.True(t, agg.Received("2025-01", maint()).Equal(dec("2500")))
	assert.True(t, agg.Received("2025-02", maint()).Equal(dec("2500")))
}
