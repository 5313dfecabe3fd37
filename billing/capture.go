/*
Package billing is the write path over the ledger engine: payment
capture, supplemental entry edits, and the period closing gate.

PURPOSE (capture.go):
  Record or amend the single payment row of a (tenant, unit, period).
  Every mutation runs the same pipeline:

    1. validate the period token and every amount
    2. resolve tenant and unit
    3. reject if the period is closed
    4. apply the change
    5. recompute the payment status from current data and persist it

  Status is derived fresh on every write, never patched incrementally,
  so removing money moves it backward.

SEE ALSO:
  - ledger/status.go: the classifier run in step 5
  - close.go: the closing gate consulted in step 3
*/
package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/condokit/billing-engine/ledger"
)

// FieldCapture is one field's money on a capture call.
type FieldCapture struct {
	Key      ledger.FieldKey
	Received decimal.Decimal

	TargetUnitID   string
	AdvanceTargets map[ledger.Period]decimal.Decimal
}

// CaptureInput is the full payload for creating or replacing a payment.
// The receipt set, debt repayments, and advance targets are replaced
// wholesale; additional entries are managed separately (AddEntry and
// friends) and survive a capture untouched.
type CaptureInput struct {
	TenantID string
	UnitID   string
	Period   ledger.Period

	PaymentType    ledger.PaymentType
	BankReconciled bool
	Notes          string
	Evidence       string

	Fields []FieldCapture

	// DebtRepayments: target period token (or the prior-debt sentinel)
	// -> field key -> amount.
	DebtRepayments map[string]map[ledger.FieldKey]decimal.Decimal
}

// EntryInput is the payload for one additional entry.
type EntryInput struct {
	Amounts     map[ledger.FieldKey]decimal.Decimal
	PaymentType ledger.PaymentType
	Reconciled  *bool
}

// Service is the capture and closing front door.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock overrides the time source for deterministic tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// =============================================================================
// VALIDATION
// =============================================================================

func (in CaptureInput) validate() error {
	if !in.Period.Valid() {
		return ledger.ErrInvalidPeriod
	}
	for _, f := range in.Fields {
		if f.Received.IsNegative() {
			return &ledger.InvalidAmountError{Field: f.Key.String(), Value: f.Received.String()}
		}
		for target, amount := range f.AdvanceTargets {
			if !target.Valid() {
				return ledger.ErrInvalidPeriod
			}
			if amount.IsNegative() {
				return &ledger.InvalidAmountError{Field: f.Key.String(), Value: amount.String()}
			}
		}
	}
	for target, fields := range in.DebtRepayments {
		if target != ledger.PriorDebtTarget && !ledger.Period(target).Valid() {
			return ledger.ErrInvalidPeriod
		}
		for key, amount := range fields {
			if amount.IsNegative() {
				return &ledger.InvalidAmountError{Field: key.String(), Value: amount.String()}
			}
		}
	}
	return nil
}

func (in EntryInput) validate() error {
	for key, amount := range in.Amounts {
		if amount.IsNegative() {
			return &ledger.InvalidAmountError{Field: key.String(), Value: amount.String()}
		}
	}
	return nil
}

func (s *Service) guardOpen(ctx context.Context, tenantID string, period ledger.Period) error {
	closed, err := s.store.IsClosed(ctx, tenantID, period)
	if err != nil {
		return err
	}
	if closed {
		return &ledger.PeriodClosedError{TenantID: tenantID, Period: period}
	}
	return nil
}

// =============================================================================
// CAPTURE
// =============================================================================

// CapturePayment creates or replaces the payment for one (tenant,
// unit, period) and persists its freshly derived status.
func (s *Service) CapturePayment(ctx context.Context, in CaptureInput) (ledger.Payment, error) {
	if err := in.validate(); err != nil {
		return ledger.Payment{}, err
	}
	tenant, err := s.store.Tenant(ctx, in.TenantID)
	if err != nil {
		return ledger.Payment{}, err
	}
	unit, err := s.store.Unit(ctx, in.UnitID)
	if err != nil {
		return ledger.Payment{}, err
	}
	if unit.TenantID != tenant.ID {
		return ledger.Payment{}, &ledger.NotFoundError{Kind: "unit", ID: in.UnitID}
	}
	if err := s.guardOpen(ctx, in.TenantID, in.Period); err != nil {
		return ledger.Payment{}, err
	}

	p, err := s.store.PaymentByUnitPeriod(ctx, in.TenantID, in.UnitID, in.Period)
	if err != nil {
		if !ledger.IsNotFound(err) {
			return ledger.Payment{}, err
		}
		p = ledger.Payment{
			ID:       uuid.NewString(),
			TenantID: in.TenantID,
			UnitID:   in.UnitID,
			Period:   in.Period,
		}
	}

	p.PaymentType = in.PaymentType
	p.BankReconciled = in.BankReconciled
	p.Notes = in.Notes
	p.Evidence = in.Evidence
	p.Receipts = p.Receipts[:0]
	for _, f := range in.Fields {
		p.Receipts = append(p.Receipts, ledger.FieldReceipt{
			Key:            f.Key,
			Received:       f.Received,
			TargetUnitID:   f.TargetUnitID,
			AdvanceTargets: f.AdvanceTargets,
		})
	}
	p.DebtRepayments = in.DebtRepayments

	return s.persistWithStatus(ctx, tenant, unit, p)
}

// ClearPayment removes a payment and everything attached to it.
func (s *Service) ClearPayment(ctx context.Context, tenantID, paymentID string) error {
	p, err := s.store.Payment(ctx, tenantID, paymentID)
	if err != nil {
		return err
	}
	if err := s.guardOpen(ctx, tenantID, p.Period); err != nil {
		return err
	}
	return s.store.DeletePayment(ctx, tenantID, paymentID)
}

// =============================================================================
// ADDITIONAL ENTRIES
// =============================================================================

// AddEntry appends a supplemental entry to an existing payment.
func (s *Service) AddEntry(ctx context.Context, tenantID, paymentID string, in EntryInput) (ledger.Payment, error) {
	return s.mutateEntries(ctx, tenantID, paymentID, in, func(p *ledger.Payment) error {
		p.Entries = append(p.Entries, ledger.AdditionalEntry{
			ID:          uuid.NewString(),
			Amounts:     in.Amounts,
			PaymentType: in.PaymentType,
			Reconciled:  in.Reconciled,
			RecordedAt:  s.now(),
		})
		return nil
	})
}

// UpdateEntry replaces one entry's data, keeping its identity and
// original timestamp.
func (s *Service) UpdateEntry(ctx context.Context, tenantID, paymentID, entryID string, in EntryInput) (ledger.Payment, error) {
	return s.mutateEntries(ctx, tenantID, paymentID, in, func(p *ledger.Payment) error {
		for i := range p.Entries {
			if p.Entries[i].ID == entryID {
				p.Entries[i].Amounts = in.Amounts
				p.Entries[i].PaymentType = in.PaymentType
				p.Entries[i].Reconciled = in.Reconciled
				return nil
			}
		}
		return &ledger.NotFoundError{Kind: "entry", ID: entryID}
	})
}

// RemoveEntry deletes one entry.
func (s *Service) RemoveEntry(ctx context.Context, tenantID, paymentID, entryID string) (ledger.Payment, error) {
	return s.mutateEntries(ctx, tenantID, paymentID, EntryInput{}, func(p *ledger.Payment) error {
		for i := range p.Entries {
			if p.Entries[i].ID == entryID {
				p.Entries = append(p.Entries[:i], p.Entries[i+1:]...)
				return nil
			}
		}
		return &ledger.NotFoundError{Kind: "entry", ID: entryID}
	})
}

func (s *Service) mutateEntries(ctx context.Context, tenantID, paymentID string, in EntryInput, mutate func(*ledger.Payment) error) (ledger.Payment, error) {
	if err := in.validate(); err != nil {
		return ledger.Payment{}, err
	}
	p, err := s.store.Payment(ctx, tenantID, paymentID)
	if err != nil {
		return ledger.Payment{}, err
	}
	if err := s.guardOpen(ctx, tenantID, p.Period); err != nil {
		return ledger.Payment{}, err
	}
	tenant, err := s.store.Tenant(ctx, tenantID)
	if err != nil {
		return ledger.Payment{}, err
	}
	unit, err := s.store.Unit(ctx, p.UnitID)
	if err != nil {
		return ledger.Payment{}, err
	}
	if err := mutate(&p); err != nil {
		return ledger.Payment{}, err
	}
	return s.persistWithStatus(ctx, tenant, unit, p)
}

// persistWithStatus reruns the classifier against the period's charge
// schedule and saves the payment with the fresh status.
func (s *Service) persistWithStatus(ctx context.Context, tenant ledger.Tenant, unit ledger.Unit, p ledger.Payment) (ledger.Payment, error) {
	fields, err := s.store.FieldsByTenant(ctx, tenant.ID)
	if err != nil {
		return ledger.Payment{}, err
	}
	positions, err := s.store.PositionsByTenant(ctx, tenant.ID)
	if err != nil {
		return ledger.Payment{}, err
	}
	committees, err := s.store.CommitteesByTenant(ctx, tenant.ID)
	if err != nil {
		return ledger.Payment{}, err
	}
	resolver := ledger.NewScheduleResolver(tenant, fields, positions, committees)
	p.Status = ledger.ComputePaymentStatus(p, resolver.For(unit, p.Period))

	if err := s.store.SavePayment(ctx, p); err != nil {
		return ledger.Payment{}, err
	}
	return p, nil
}
