package billing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condokit/billing-engine/billing"
	"github.com/condokit/billing-engine/ledger"
)

func TestClosePeriod_Idempotent(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.ClosePeriod(ctx, "t-1", "2025-01"))
	require.NoError(t, svc.ClosePeriod(ctx, "t-1", "2025-01"))

	closed, err := store.IsClosed(ctx, "t-1", "2025-01")
	require.NoError(t, err)
	assert.True(t, closed)

	periods, err := svc.ClosedPeriods(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, []ledger.Period{"2025-01"}, periods)
}

func TestFileReopenRequest_RequiresClosedPeriod(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// January is open
	_, err := svc.FileReopenRequest(ctx, "t-1", "2025-01", "captura incompleta")

	assert.True(t, ledger.IsNotFound(err))
}

func TestReopenWorkflow_Approve(t *testing.T) {
	// GIVEN: A closed January with a pending reopen request
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.ClosePeriod(ctx, "t-1", "2025-01"))

	r, err := svc.FileReopenRequest(ctx, "t-1", "2025-01", "captura incompleta")
	require.NoError(t, err)
	assert.Equal(t, billing.ReopenPending, r.Status)

	// WHEN: The request is approved
	r, err = svc.ApproveReopen(ctx, "t-1", r.ID)

	// THEN: The mark is gone and captures pass the gate again
	require.NoError(t, err)
	assert.Equal(t, billing.ReopenApproved, r.Status)
	require.NotNil(t, r.ResolvedAt)

	closed, err := store.IsClosed(ctx, "t-1", "2025-01")
	require.NoError(t, err)
	assert.False(t, closed)

	_, err = svc.CapturePayment(ctx, fullCapture())
	assert.NoError(t, err)
}

func TestReopenWorkflow_Reject(t *testing.T) {
	// GIVEN: A closed January with a pending reopen request
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.ClosePeriod(ctx, "t-1", "2025-01"))
	r, err := svc.FileReopenRequest(ctx, "t-1", "2025-01", "ajuste de banco")
	require.NoError(t, err)

	// WHEN: The request is rejected
	r, err = svc.RejectReopen(ctx, "t-1", r.ID)

	// THEN: The closed mark persists and the gate still rejects
	require.NoError(t, err)
	assert.Equal(t, billing.ReopenRejected, r.Status)

	closed, err := store.IsClosed(ctx, "t-1", "2025-01")
	require.NoError(t, err)
	assert.True(t, closed)

	_, err = svc.CapturePayment(ctx, fullCapture())
	assert.ErrorIs(t, err, ledger.ErrPeriodClosed)
}

func TestResolveReopen_OnlyPendingRequests(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.ClosePeriod(ctx, "t-1", "2025-01"))
	r, err := svc.FileReopenRequest(ctx, "t-1", "2025-01", "dup")
	require.NoError(t, err)
	_, err = svc.RejectReopen(ctx, "t-1", r.ID)
	require.NoError(t, err)

	// A resolved request cannot be resolved again
	_, err = svc.ApproveReopen(ctx, "t-1", r.ID)

	assert.True(t, ledger.IsNotFound(err))
}

func TestAddExpense_GateAndListing(t *testing.T) {
	// GIVEN: A reconciled transfer and an uncashed check in January
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddExpense(ctx, billing.ExpenseInput{
		TenantID: "t-1", Period: "2025-01", Amount: dec("1200"),
		PaymentType: ledger.PayTransfer, Provider: "CFE", BankReconciled: true,
	})
	require.NoError(t, err)
	_, err = svc.AddExpense(ctx, billing.ExpenseInput{
		TenantID: "t-1", Period: "2025-01", Amount: dec("800"),
		PaymentType: ledger.PayCheck, DocNumber: "0042", Provider: "Jardineria Lopez",
	})
	require.NoError(t, err)

	expenses, err := svc.Expenses(ctx, "t-1", "2025-01")
	require.NoError(t, err)
	assert.Len(t, expenses, 2)

	// WHEN: January closes
	require.NoError(t, svc.ClosePeriod(ctx, "t-1", "2025-01"))

	// THEN: New expenses are rejected
	_, err = svc.AddExpense(ctx, billing.ExpenseInput{
		TenantID: "t-1", Period: "2025-01", Amount: dec("100"),
		PaymentType: ledger.PayCash,
	})
	assert.ErrorIs(t, err, ledger.ErrPeriodClosed)
}
