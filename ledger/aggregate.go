/*
aggregate.go - Folding raw payment records into per-period receipts

PURPOSE:
  Collapse a unit's payment rows into a single per-period, per-field
  view of money received. Four sources feed each target period:

    1. Direct receipts on that period's own payment
    2. Advance targets on any receipt anywhere, redirected to the named
       future period under the same field key
    3. Debt repayments whose target is an ordinary period token
    4. Additional entries, summed into the owning payment's own period

  Debt repayments against the prior-debt sentinel fold into a separate
  scalar: they reduce pre-ledger debt exposure and are never any
  period's income in the accrual view.

DESIGN:
  Payments are folded functionally into an immutable Aggregate; nothing
  is mutated in place. The fold is order-independent.
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// Aggregate is the folded receipt view for one unit.
type Aggregate struct {
	// ByPeriod maps target period -> field key -> total credited.
	ByPeriod map[Period]map[FieldKey]decimal.Decimal

	// PriorDebtRepaid is the scalar total applied against pre-ledger
	// debt, across all of the unit's payments.
	PriorDebtRepaid decimal.Decimal
}

// Received returns the total credited to one field of one period.
func (a Aggregate) Received(p Period, key FieldKey) decimal.Decimal {
	fields, ok := a.ByPeriod[p]
	if !ok {
		return decimal.Zero
	}
	return fields[key]
}

func (a *Aggregate) add(p Period, key FieldKey, amount decimal.Decimal) {
	if amount.IsZero() {
		return
	}
	fields, ok := a.ByPeriod[p]
	if !ok {
		fields = make(map[FieldKey]decimal.Decimal)
		a.ByPeriod[p] = fields
	}
	fields[key] = fields[key].Add(amount)
}

// AggregatePayments folds a unit's payment rows, across all periods,
// into an Aggregate.
func AggregatePayments(payments []Payment) Aggregate {
	agg := Aggregate{
		ByPeriod:        make(map[Period]map[FieldKey]decimal.Decimal),
		PriorDebtRepaid: decimal.Zero,
	}
	for _, pay := range payments {
		for _, r := range pay.Receipts {
			agg.add(pay.Period, r.Key, r.Received)
			for target, amount := range r.AdvanceTargets {
				agg.add(target, r.Key, amount)
			}
		}
		for target, fields := range pay.DebtRepayments {
			if target == PriorDebtTarget {
				for _, amount := range fields {
					agg.PriorDebtRepaid = agg.PriorDebtRepaid.Add(amount)
				}
				continue
			}
			for key, amount := range fields {
				agg.add(Period(target), key, amount)
			}
		}
		for _, e := range pay.Entries {
			for key, amount := range e.Amounts {
				agg.add(pay.Period, key, amount)
			}
		}
	}
	return agg
}
