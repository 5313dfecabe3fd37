/*
store.go - Write-side store contracts

PURPOSE:
  The persistence surface the write path drives. The sqlite store
  implements Store; the read-side contracts it embeds live in the
  ledger package next to the report engine.
*/
package billing

import (
	"context"
	"time"

	"github.com/condokit/billing-engine/ledger"
)

// ReopenStatus tracks a reopen request through its two-step workflow.
type ReopenStatus string

const (
	ReopenPending  ReopenStatus = "pendiente"
	ReopenApproved ReopenStatus = "aprobada"
	ReopenRejected ReopenStatus = "rechazada"
)

// ReopenRequest asks for a closed period to be writable again.
type ReopenRequest struct {
	ID       string
	TenantID string
	Period   ledger.Period
	Reason   string
	Status   ReopenStatus
	FiledAt  time.Time

	// ResolvedAt is set when the request is approved or rejected.
	ResolvedAt *time.Time
}

// Store is everything the write path needs from persistence.
type Store interface {
	ledger.Reader
	ledger.ClosedPeriods

	// Payment returns ErrNotFound (wrapped) when the row is absent.
	Payment(ctx context.Context, tenantID, paymentID string) (ledger.Payment, error)
	PaymentByUnitPeriod(ctx context.Context, tenantID, unitID string, period ledger.Period) (ledger.Payment, error)

	// SavePayment upserts the payment row together with its receipts,
	// debt repayments, and additional entries.
	SavePayment(ctx context.Context, p ledger.Payment) error
	DeletePayment(ctx context.Context, tenantID, paymentID string) error

	ClosePeriod(ctx context.Context, tenantID string, period ledger.Period) error
	ReopenPeriod(ctx context.Context, tenantID string, period ledger.Period) error

	SaveReopenRequest(ctx context.Context, r ReopenRequest) error
	ReopenRequestByID(ctx context.Context, tenantID, id string) (ReopenRequest, error)
	ReopenRequestsByTenant(ctx context.Context, tenantID string) ([]ReopenRequest, error)

	SaveExpense(ctx context.Context, e ledger.ExpenseEntry) error
	DeleteExpense(ctx context.Context, tenantID, id string) error

	SavePettyCash(ctx context.Context, e ledger.PettyCashEntry) error
	SaveUnidentifiedIncome(ctx context.Context, u ledger.UnidentifiedIncome) error
}
