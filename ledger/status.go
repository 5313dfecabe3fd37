/*
status.go - Capture-time payment status classifier

PURPOSE:
  Derive a payment's collection status from its current data. Runs on
  every mutation of receipts or additional entries and the result is
  persisted on the payment row. It is recomputed from scratch each
  time, never trusted from storage, so status can move backward when
  money is removed.

SEE ALSO:
  - statement.go: the read-time rules that override this value
  - billing/capture.go: persists the result after every write
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// ComputePaymentStatus classifies one payment against its period's
// schedule. The received totals union the primary receipts with all
// additional-entry amounts; advance targets and debt repayments are
// excluded because they credit other periods.
func ComputePaymentStatus(p Payment, sched Schedule) PaymentStatus {
	received := make(map[FieldKey]decimal.Decimal)
	for _, r := range p.Receipts {
		received[r.Key] = received[r.Key].Add(r.Received)
	}
	for _, e := range p.Entries {
		for key, amount := range e.Amounts {
			received[key] = received[key].Add(amount)
		}
	}

	// Balance-affecting non-maintenance money; neutral optional fields
	// never move the status.
	otherPositive := false
	for _, rc := range sched.Required {
		if received[rc.Key].IsPositive() {
			otherPositive = true
		}
	}
	for _, fi := range sched.AdvanceCredit {
		if received[fi.Key].IsPositive() {
			otherPositive = true
		}
	}

	// An exemption waiver recorded with the sentinel payment type is
	// settled immediately, as long as nothing else is owed money.
	if sched.Exempt && p.PaymentType == PayExempt && !otherPositive {
		return StatusPaid
	}

	chargeTotal := sched.TotalCharge()
	cappedTotal := decimal.Zero
	if !sched.Exempt {
		cappedTotal = decimal.Min(received[MaintenanceKey()], sched.MaintenanceCharge)
	}
	for _, rc := range sched.Required {
		cappedTotal = cappedTotal.Add(decimal.Min(received[rc.Key], rc.Amount))
	}

	switch {
	case cappedTotal.GreaterThanOrEqual(chargeTotal):
		return StatusPaid
	case (sched.Exempt || received[MaintenanceKey()].IsZero()) && otherPositive:
		return StatusPartial
	default:
		return StatusPending
	}
}
