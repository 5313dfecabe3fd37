/*
store.go - Read-side store interfaces

PURPOSE:
  The narrow contracts the engine loads its inputs through. The sqlite
  store implements all of them; tests substitute in-memory fakes where
  convenient. Write-side contracts live in the billing package next to
  the operations that use them.
*/
package ledger

import (
	"context"
)

// Reader provides read access to every record kind the reports consume.
type Reader interface {
	Tenant(ctx context.Context, id string) (Tenant, error)
	Unit(ctx context.Context, id string) (Unit, error)
	UnitsByTenant(ctx context.Context, tenantID string) ([]Unit, error)
	FieldsByTenant(ctx context.Context, tenantID string) ([]ChargeField, error)

	PaymentsByUnit(ctx context.Context, tenantID, unitID string) ([]Payment, error)
	PaymentsByPeriod(ctx context.Context, tenantID string, period Period) ([]Payment, error)

	PositionsByTenant(ctx context.Context, tenantID string) ([]AssemblyPosition, error)
	CommitteesByTenant(ctx context.Context, tenantID string) ([]Committee, error)

	ExpensesByPeriod(ctx context.Context, tenantID string, period Period) ([]ExpenseEntry, error)
	PettyCashByPeriod(ctx context.Context, tenantID string, period Period) ([]PettyCashEntry, error)
	UnidentifiedByPeriod(ctx context.Context, tenantID string, period Period) ([]UnidentifiedIncome, error)
}

// ClosedPeriods is the closing-gate lookup consulted by the write path.
type ClosedPeriods interface {
	IsClosed(ctx context.Context, tenantID string, period Period) (bool, error)
	ClosedPeriods(ctx context.Context, tenantID string) ([]Period, error)
}
