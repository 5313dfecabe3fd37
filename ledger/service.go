/*
service.go - Report service over the read-side store

PURPOSE:
  Load a report's inputs through the Reader interface and hand them to
  the pure engine functions. This is the seam the HTTP layer talks to;
  the engine functions themselves never touch storage.

CONCURRENCY:
  Read-mostly and stateless. Every report is a pure function of the
  records loaded for it, safe to run concurrently across tenants and
  units with no shared mutable state.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Dashboard is the per-period collection summary across a tenant's
// units.
type Dashboard struct {
	Period Period

	Units   int
	Paid    int
	Partial int
	Pending int

	Expected  decimal.Decimal
	Collected decimal.Decimal

	// CollectionRate is Collected/Expected, zero when nothing is owed.
	CollectionRate decimal.Decimal

	PettyCashTotal decimal.Decimal
}

// Service computes reports from persisted records.
type Service struct {
	store Reader
	now   func() time.Time
}

func NewService(store Reader) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock overrides the time source. Tests use this to pin "today".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) today() Period { return PeriodOf(s.now()) }

// resolver loads a tenant's configuration and builds its schedule
// resolver.
func (s *Service) resolver(ctx context.Context, tenant Tenant) (*ScheduleResolver, error) {
	fields, err := s.store.FieldsByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("loading charge fields: %w", err)
	}
	positions, err := s.store.PositionsByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("loading assembly positions: %w", err)
	}
	committees, err := s.store.CommitteesByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("loading committees: %w", err)
	}
	return NewScheduleResolver(tenant, fields, positions, committees), nil
}

// Statement computes the accrual-view statement for one unit over an
// inclusive period range.
func (s *Service) Statement(ctx context.Context, tenantID, unitID string, from, to Period) (Statement, error) {
	if (from != "" && !from.Valid()) || (to != "" && !to.Valid()) {
		return Statement{}, ErrInvalidPeriod
	}
	tenant, err := s.store.Tenant(ctx, tenantID)
	if err != nil {
		return Statement{}, err
	}
	unit, err := s.store.Unit(ctx, unitID)
	if err != nil {
		return Statement{}, err
	}
	if unit.TenantID != tenantID {
		return Statement{}, &NotFoundError{Kind: "unit", ID: unitID}
	}
	if from == "" {
		from = tenant.OperationStart
	}
	if to == "" {
		to = s.today()
	}
	resolver, err := s.resolver(ctx, tenant)
	if err != nil {
		return Statement{}, err
	}
	payments, err := s.store.PaymentsByUnit(ctx, tenantID, unitID)
	if err != nil {
		return Statement{}, fmt.Errorf("loading payments: %w", err)
	}
	return ComputeStatement(StatementInput{
		Tenant:   tenant,
		Unit:     unit,
		Resolver: resolver,
		Payments: payments,
		From:     from,
		To:       to,
		Today:    s.today(),
	}), nil
}

// CashReport computes the bank reconciliation report for one period.
func (s *Service) CashReport(ctx context.Context, tenantID string, period Period) (CashReport, error) {
	if !period.Valid() {
		return CashReport{}, ErrInvalidPeriod
	}
	tenant, err := s.store.Tenant(ctx, tenantID)
	if err != nil {
		return CashReport{}, err
	}
	return s.cashReport(ctx, tenant, period)
}

func (s *Service) cashReport(ctx context.Context, tenant Tenant, period Period) (CashReport, error) {
	payments, err := s.store.PaymentsByPeriod(ctx, tenant.ID, period)
	if err != nil {
		return CashReport{}, fmt.Errorf("loading payments: %w", err)
	}
	expenses, err := s.store.ExpensesByPeriod(ctx, tenant.ID, period)
	if err != nil {
		return CashReport{}, fmt.Errorf("loading expenses: %w", err)
	}
	unidentified, err := s.store.UnidentifiedByPeriod(ctx, tenant.ID, period)
	if err != nil {
		return CashReport{}, fmt.Errorf("loading unidentified income: %w", err)
	}
	return ComputePeriodCashReport(CashReportInput{
		Tenant:       tenant,
		Period:       period,
		Payments:     payments,
		Expenses:     expenses,
		Unidentified: unidentified,
	}), nil
}

// OpeningBalance computes the bank balance at the start of target by
// walking every period since the tenant's operation start.
func (s *Service) OpeningBalance(ctx context.Context, tenantID string, target Period) (decimal.Decimal, error) {
	if !target.Valid() {
		return decimal.Zero, ErrInvalidPeriod
	}
	tenant, err := s.store.Tenant(ctx, tenantID)
	if err != nil {
		return decimal.Zero, err
	}
	return ComputeOpeningBalance(tenant, target, func(p Period) (CashReport, error) {
		return s.cashReport(ctx, tenant, p)
	})
}

// Dashboard summarizes one period's collection across all units.
func (s *Service) Dashboard(ctx context.Context, tenantID string, period Period) (Dashboard, error) {
	if !period.Valid() {
		return Dashboard{}, ErrInvalidPeriod
	}
	tenant, err := s.store.Tenant(ctx, tenantID)
	if err != nil {
		return Dashboard{}, err
	}
	resolver, err := s.resolver(ctx, tenant)
	if err != nil {
		return Dashboard{}, err
	}
	units, err := s.store.UnitsByTenant(ctx, tenantID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("loading units: %w", err)
	}

	d := Dashboard{
		Period:         period,
		Units:          len(units),
		Expected:       decimal.Zero,
		Collected:      decimal.Zero,
		CollectionRate: decimal.Zero,
		PettyCashTotal: decimal.Zero,
	}
	for _, unit := range units {
		payments, err := s.store.PaymentsByUnit(ctx, tenantID, unit.ID)
		if err != nil {
			return Dashboard{}, fmt.Errorf("loading payments for unit %s: %w", unit.ID, err)
		}
		st := ComputeStatement(StatementInput{
			Tenant:   tenant,
			Unit:     unit,
			Resolver: resolver,
			Payments: payments,
			From:     period,
			To:       period,
			Today:    s.today(),
		})
		if len(st.Rows) != 1 {
			continue
		}
		row := st.Rows[0]
		d.Expected = d.Expected.Add(row.Charge)
		d.Collected = d.Collected.Add(row.AppliedPaid)
		switch row.Status {
		case StatusPaid:
			d.Paid++
		case StatusPartial:
			d.Partial++
		default:
			d.Pending++
		}
	}
	if d.Expected.IsPositive() {
		d.CollectionRate = d.Collected.Div(d.Expected)
	}

	petty, err := s.store.PettyCashByPeriod(ctx, tenantID, period)
	if err != nil {
		return Dashboard{}, fmt.Errorf("loading petty cash: %w", err)
	}
	for _, e := range petty {
		d.PettyCashTotal = d.PettyCashTotal.Add(e.Amount)
	}
	return d, nil
}
