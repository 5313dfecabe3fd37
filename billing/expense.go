/*
expense.go - Cash-view record capture

Expense, petty-cash, and unidentified-income records feed the bank
reconciliation report. They are period-scoped and closed-period gated
like payments, but carry no derived status.
*/
package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/condokit/billing-engine/ledger"
)

// ExpenseInput is the payload for one outgoing payment.
type ExpenseInput struct {
	TenantID       string
	Period         ledger.Period
	FieldID        string
	Amount         decimal.Decimal
	PaymentType    ledger.PaymentType
	DocNumber      string
	Provider       string
	BankReconciled bool
}

// AddExpense records an outgoing payment for a period.
func (s *Service) AddExpense(ctx context.Context, in ExpenseInput) (ledger.ExpenseEntry, error) {
	if !in.Period.Valid() {
		return ledger.ExpenseEntry{}, ledger.ErrInvalidPeriod
	}
	if in.Amount.IsNegative() {
		return ledger.ExpenseEntry{}, &ledger.InvalidAmountError{Field: "amount", Value: in.Amount.String()}
	}
	if _, err := s.store.Tenant(ctx, in.TenantID); err != nil {
		return ledger.ExpenseEntry{}, err
	}
	if err := s.guardOpen(ctx, in.TenantID, in.Period); err != nil {
		return ledger.ExpenseEntry{}, err
	}
	e := ledger.ExpenseEntry{
		ID:             uuid.NewString(),
		TenantID:       in.TenantID,
		Period:         in.Period,
		FieldID:        in.FieldID,
		Amount:         in.Amount,
		PaymentType:    in.PaymentType,
		DocNumber:      in.DocNumber,
		Provider:       in.Provider,
		BankReconciled: in.BankReconciled,
		Date:           s.now(),
	}
	if err := s.store.SaveExpense(ctx, e); err != nil {
		return ledger.ExpenseEntry{}, err
	}
	return e, nil
}

// Expenses lists a period's expense entries.
func (s *Service) Expenses(ctx context.Context, tenantID string, period ledger.Period) ([]ledger.ExpenseEntry, error) {
	if !period.Valid() {
		return nil, ledger.ErrInvalidPeriod
	}
	if _, err := s.store.Tenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.store.ExpensesByPeriod(ctx, tenantID, period)
}

// AddPettyCash records a cash-box movement for a period.
func (s *Service) AddPettyCash(ctx context.Context, tenantID string, period ledger.Period, amount decimal.Decimal, description string, paymentType ledger.PaymentType) (ledger.PettyCashEntry, error) {
	if !period.Valid() {
		return ledger.PettyCashEntry{}, ledger.ErrInvalidPeriod
	}
	if amount.IsNegative() {
		return ledger.PettyCashEntry{}, &ledger.InvalidAmountError{Field: "amount", Value: amount.String()}
	}
	if _, err := s.store.Tenant(ctx, tenantID); err != nil {
		return ledger.PettyCashEntry{}, err
	}
	e := ledger.PettyCashEntry{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Period:      period,
		Amount:      amount,
		Description: description,
		PaymentType: paymentType,
		Date:        s.now(),
	}
	if err := s.store.SavePettyCash(ctx, e); err != nil {
		return ledger.PettyCashEntry{}, err
	}
	return e, nil
}

// AddUnidentifiedIncome records bank money not yet matched to a unit.
func (s *Service) AddUnidentifiedIncome(ctx context.Context, tenantID string, period ledger.Period, amount decimal.Decimal, description string) (ledger.UnidentifiedIncome, error) {
	if !period.Valid() {
		return ledger.UnidentifiedIncome{}, ledger.ErrInvalidPeriod
	}
	if amount.IsNegative() {
		return ledger.UnidentifiedIncome{}, &ledger.InvalidAmountError{Field: "amount", Value: amount.String()}
	}
	if _, err := s.store.Tenant(ctx, tenantID); err != nil {
		return ledger.UnidentifiedIncome{}, err
	}
	u := ledger.UnidentifiedIncome{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Period:      period,
		Amount:      amount,
		Description: description,
		Date:        s.now(),
	}
	if err := s.store.SaveUnidentifiedIncome(ctx, u); err != nil {
		return ledger.UnidentifiedIncome{}, err
	}
	return u, nil
}
