/*
recon.go - The cash-view bank reconciliation engine

PURPOSE:
  Aggregate only bank-confirmed money for one period, and walk the full
  period history to produce an opening cash balance. This is the cash
  view: a payment that has not been matched to a bank deposit is parked
  in an unreconciled bucket and excluded from every other total.

REFERENCED INCOME:
  Bank deposits often mix several units' payments, and the cents need
  manual matching. For each reconciled payment, each field's income is
  floored to whole currency units; the sub-unit remainder is split out
  as "referenced income". Both halves are bank money, so both count in
  total income; the split only changes which bucket the cents sit in.
  Zero-decimal currencies have no sub-unit and skip the split.

OPENING BALANCE:
  compute from scratch on every request: start at the tenant's initial
  bank balance and accumulate income minus reconciled expenses across
  every period since inception. Checks in transit never enter the walk.

SEE ALSO:
  - statement.go: the accrual view over the same payment rows
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// zeroDecimalCurrencies have no sub-unit, so the referenced-income cent
// split does not apply to them.
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"CLP": true,
	"VND": true,
}

// CashReport is the bank reconciliation report for one period.
type CashReport struct {
	Period Period

	// IncomeByField holds the whole-unit part of reconciled income per
	// field. ReferencedIncome holds the split-out sub-unit remainders.
	IncomeByField    map[FieldKey]decimal.Decimal
	ReferencedIncome decimal.Decimal

	// UnreconciledIncome is payment money not yet matched to a bank
	// deposit; it is excluded from TotalIncome.
	UnreconciledIncome decimal.Decimal

	// UnidentifiedIncome is bank money not yet matched to a unit; it
	// counts toward TotalIncome directly.
	UnidentifiedIncome decimal.Decimal

	TotalIncome decimal.Decimal

	ReconciledExpenses decimal.Decimal
	ChecksInTransit    decimal.Decimal
}

// NetFlow is the period's bank movement: everything confirmed in minus
// everything confirmed out.
func (r CashReport) NetFlow() decimal.Decimal {
	return r.TotalIncome.Sub(r.ReconciledExpenses)
}

// CashReportInput carries one period's records for every unit of the
// tenant.
type CashReportInput struct {
	Tenant       Tenant
	Period       Period
	Payments     []Payment
	Expenses     []ExpenseEntry
	Unidentified []UnidentifiedIncome
}

// ComputePeriodCashReport builds the cash view for one period.
func ComputePeriodCashReport(in CashReportInput) CashReport {
	report := CashReport{
		Period:             in.Period,
		IncomeByField:      make(map[FieldKey]decimal.Decimal),
		ReferencedIncome:   decimal.Zero,
		UnreconciledIncome: decimal.Zero,
		UnidentifiedIncome: decimal.Zero,
		TotalIncome:        decimal.Zero,
		ReconciledExpenses: decimal.Zero,
		ChecksInTransit:    decimal.Zero,
	}
	splitCents := !zeroDecimalCurrencies[in.Tenant.Currency]

	for _, pay := range in.Payments {
		if !pay.BankReconciled {
			report.UnreconciledIncome = report.UnreconciledIncome.Add(paymentTotal(pay))
			continue
		}
		for key, amount := range reconciledByField(pay) {
			whole := amount
			if splitCents {
				whole = amount.Floor()
				report.ReferencedIncome = report.ReferencedIncome.Add(amount.Sub(whole))
			}
			report.IncomeByField[key] = report.IncomeByField[key].Add(whole)
		}
	}

	for _, u := range in.Unidentified {
		report.UnidentifiedIncome = report.UnidentifiedIncome.Add(u.Amount)
	}

	report.TotalIncome = report.ReferencedIncome.Add(report.UnidentifiedIncome)
	for _, amount := range report.IncomeByField {
		report.TotalIncome = report.TotalIncome.Add(amount)
	}

	for _, e := range in.Expenses {
		if e.BankReconciled {
			report.ReconciledExpenses = report.ReconciledExpenses.Add(e.Amount)
		} else {
			report.ChecksInTransit = report.ChecksInTransit.Add(e.Amount)
		}
	}
	return report
}

// paymentTotal is every amount the payment carries: receipts, advance
// targets, debt repayments, and additional entries.
func paymentTotal(pay Payment) decimal.Decimal {
	total := decimal.Zero
	for _, r := range pay.Receipts {
		total = total.Add(r.Received)
		for _, amount := range r.AdvanceTargets {
			total = total.Add(amount)
		}
	}
	for _, fields := range pay.DebtRepayments {
		for _, amount := range fields {
			total = total.Add(amount)
		}
	}
	for _, e := range pay.Entries {
		for _, amount := range e.Amounts {
			total = total.Add(amount)
		}
	}
	return total
}

// reconciledByField decomposes a reconciled payment's income per field.
// Additional entries only count when their own reconciliation flag (or
// the parent's, when unset) is true.
func reconciledByField(pay Payment) map[FieldKey]decimal.Decimal {
	out := make(map[FieldKey]decimal.Decimal)
	for _, r := range pay.Receipts {
		total := r.Received
		for _, amount := range r.AdvanceTargets {
			total = total.Add(amount)
		}
		if !total.IsZero() {
			out[r.Key] = out[r.Key].Add(total)
		}
	}
	for _, fields := range pay.DebtRepayments {
		for key, amount := range fields {
			if !amount.IsZero() {
				out[key] = out[key].Add(amount)
			}
		}
	}
	for _, e := range pay.Entries {
		reconciled := pay.BankReconciled
		if e.Reconciled != nil {
			reconciled = *e.Reconciled
		}
		if !reconciled {
			continue
		}
		for key, amount := range e.Amounts {
			if !amount.IsZero() {
				out[key] = out[key].Add(amount)
			}
		}
	}
	return out
}

// ComputeOpeningBalance walks every period from the tenant's operation
// start up to, excluding, target, accumulating each period's net bank
// flow on top of the initial bank balance. The walk is recomputed from
// scratch on every call; it is idempotent and safely retryable.
func ComputeOpeningBalance(tenant Tenant, target Period, report func(Period) (CashReport, error)) (decimal.Decimal, error) {
	balance := tenant.BankInitialBalance
	if tenant.OperationStart == "" || !target.Valid() || target.BeforeOrEqual(tenant.OperationStart) {
		return balance, nil
	}
	for p := tenant.OperationStart; p.Before(target); p = p.Next() {
		r, err := report(p)
		if err != nil {
			return decimal.Zero, err
		}
		balance = balance.Add(r.NetFlow())
	}
	return balance, nil
}
