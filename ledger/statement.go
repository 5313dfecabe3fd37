/*
statement.go - The accrual-view statement engine

PURPOSE:
  Walk a unit's period calendar and produce the statement of account:
  per-period charge, money received, derived status, and a running
  carried balance.

THE RUNNING BALANCE:
  Initialized as previous_debt - prior_debt_repaid - credit_balance.
  It may start (and stay) negative: a credit surplus offsets future
  charges rather than being floored at zero. Each period then adds
  charge minus balance-affecting paid.

TWO PAID TOTALS:
  The row's display paid includes neutral-field money so the statement
  shows everything received; the balance-affecting paid excludes it so
  the running balance stays mathematically consistent. The two diverge
  by exactly the neutral total. Exempt-period maintenance receipts are
  excluded from both and only appear in the row's field detail.

STATUS PRECEDENCE (per period, in order):
  a. exempt with zero required-field charge           -> pagado
  b. charge > 0 and capped obligatory paid >= charge  -> pagado
  c. no maintenance money but some balance-affecting
     non-maintenance money                            -> parcial
  then the status persisted at capture time, if any; then pendiente for
  past-or-current periods; futuro otherwise. Rules a-c always win over
  the persisted value.

SEE ALSO:
  - schedule.go, aggregate.go: the per-period inputs
  - status.go: the capture-time classifier persisted on the payment row
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// FieldDetail is one field's line on a statement row. Received is the
// uncapped total credited to the field for the period.
type FieldDetail struct {
	Key      FieldKey
	Label    string
	Charge   decimal.Decimal
	Received decimal.Decimal

	// Neutral marks display-only money, excluded from balance math.
	Neutral bool
}

// StatementRow is one period of the statement.
type StatementRow struct {
	Period Period
	Exempt bool
	Status PaymentStatus

	Charge decimal.Decimal

	// Paid is the display total (includes neutral money). AppliedPaid
	// is the balance-affecting total that moved the running balance.
	Paid        decimal.Decimal
	AppliedPaid decimal.Decimal

	Maintenance FieldDetail
	Fields      []FieldDetail

	// Balance is the running balance after this period.
	Balance decimal.Decimal
}

// Statement is the full accrual-view report for one unit.
type Statement struct {
	TenantID string
	UnitID   string
	From, To Period

	// InitialBalance seeds the walk: previous debt net of prior-debt
	// repayments and pre-existing credit.
	InitialBalance  decimal.Decimal
	PriorDebtRepaid decimal.Decimal

	Rows []StatementRow

	TotalCharge decimal.Decimal
	TotalPaid   decimal.Decimal // display total, includes neutral money
	Balance     decimal.Decimal
}

// StatementInput carries everything ComputeStatement needs. Today is
// injectable for deterministic tests; zero means the current month.
type StatementInput struct {
	Tenant   Tenant
	Unit     Unit
	Resolver *ScheduleResolver
	Payments []Payment
	From, To Period
	Today    Period
}

// ComputeStatement is a pure function: identical inputs always produce
// an identical statement. Periods with no payment row still get a
// zero-received row so gaps stay visible.
func ComputeStatement(in StatementInput) Statement {
	today := in.Today
	if today == "" {
		today = TodayPeriod()
	}

	agg := AggregatePayments(in.Payments)
	persisted := make(map[Period]PaymentStatus, len(in.Payments))
	for _, p := range in.Payments {
		if p.Status != "" {
			persisted[p.Period] = p.Status
		}
	}

	initial := in.Unit.PreviousDebt.Sub(agg.PriorDebtRepaid).Sub(in.Unit.CreditBalance)
	st := Statement{
		TenantID:        in.Tenant.ID,
		UnitID:          in.Unit.ID,
		From:            in.From,
		To:              in.To,
		InitialBalance:  initial,
		PriorDebtRepaid: agg.PriorDebtRepaid,
		TotalCharge:     decimal.Zero,
		TotalPaid:       decimal.Zero,
		Balance:         initial,
	}

	running := initial
	for _, period := range PeriodsBetween(in.From, in.To) {
		sched := in.Resolver.For(in.Unit, period)
		row := buildRow(sched, agg, period, today, persisted[period])

		running = running.Add(row.Charge).Sub(row.AppliedPaid)
		row.Balance = running

		st.Rows = append(st.Rows, row)
		st.TotalCharge = st.TotalCharge.Add(row.Charge)
		st.TotalPaid = st.TotalPaid.Add(row.Paid)
	}
	st.Balance = running
	return st
}

func buildRow(sched Schedule, agg Aggregate, period, today Period, persisted PaymentStatus) StatementRow {
	row := StatementRow{
		Period: period,
		Exempt: sched.Exempt,
		Charge: sched.TotalCharge(),
	}

	maintReceived := agg.Received(period, MaintenanceKey())
	row.Maintenance = FieldDetail{
		Key:      MaintenanceKey(),
		Label:    "maintenance",
		Charge:   sched.MaintenanceCharge,
		Received: maintReceived,
		Neutral:  sched.Exempt,
	}

	applied := decimal.Zero
	display := decimal.Zero
	capped := decimal.Zero
	if !sched.Exempt {
		applied = applied.Add(maintReceived)
		display = display.Add(maintReceived)
		capped = capped.Add(decimal.Min(maintReceived, sched.MaintenanceCharge))
	}

	// A positive abono on any balance-affecting non-maintenance field
	// drives the partial rule; neutral money never does.
	otherPositive := false

	for _, rc := range sched.Required {
		received := agg.Received(period, rc.Key)
		row.Fields = append(row.Fields, FieldDetail{
			Key:      rc.Key,
			Label:    rc.Label,
			Charge:   rc.Amount,
			Received: received,
		})
		applied = applied.Add(received)
		display = display.Add(received)
		capped = capped.Add(decimal.Min(received, rc.Amount))
		if received.IsPositive() {
			otherPositive = true
		}
	}
	for _, fi := range sched.AdvanceCredit {
		received := agg.Received(period, fi.Key)
		row.Fields = append(row.Fields, FieldDetail{
			Key:      fi.Key,
			Label:    fi.Label,
			Received: received,
		})
		applied = applied.Add(received)
		display = display.Add(received)
		if received.IsPositive() {
			otherPositive = true
		}
	}
	for _, fi := range sched.Neutral {
		received := agg.Received(period, fi.Key)
		row.Fields = append(row.Fields, FieldDetail{
			Key:      fi.Key,
			Label:    fi.Label,
			Received: received,
			Neutral:  true,
		})
		display = display.Add(received)
	}

	row.AppliedPaid = applied
	row.Paid = display
	row.Status = rowStatus(sched, row, capped, maintReceived, otherPositive, today, persisted)
	return row
}

func rowStatus(sched Schedule, row StatementRow, capped, maintReceived decimal.Decimal, otherPositive bool, today Period, persisted PaymentStatus) PaymentStatus {
	switch {
	case sched.Exempt && sched.RequiredChargeTotal().IsZero():
		return StatusPaid
	case row.Charge.IsPositive() && capped.GreaterThanOrEqual(row.Charge):
		return StatusPaid
	case (sched.Exempt || maintReceived.IsZero()) && otherPositive:
		return StatusPartial
	case persisted != "":
		return persisted
	case row.Period.PastOrCurrent(today):
		return StatusPending
	default:
		return StatusFuture
	}
}
