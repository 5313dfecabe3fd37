/*
schedule.go - Charge schedule and exemption resolution

PURPOSE:
  For a given unit and period, decide what is actually owed: the
  maintenance fee (or zero under an exemption) plus the tenant's enabled
  required fields, and classify the optional fields into balance-affecting
  (advance-credit) versus neutral (normal).

EXEMPTION RULE:
  A unit is exempt for a period only when all of these hold:
    1. the tenant is board-managed
    2. the unit's admin_exempt eligibility flag is set
    3. the unit holds at least one active assembly position whose
       validity window brackets the period, and the position either has
       no linked committee or its committee grants exemptions

  Exemption zeroes the maintenance charge AND neutralizes maintenance
  receipts for that period. Required extra fields still charge.

SEE ALSO:
  - statement.go: consumes the schedule per period
  - status.go: consumes the schedule at capture time
*/
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// RequiredCharge is one required field's obligation for a period.
type RequiredCharge struct {
	Key    FieldKey
	Label  string
	Amount decimal.Decimal
}

// FieldInfo describes an optional field on the schedule.
type FieldInfo struct {
	Key   FieldKey
	Label string
}

// Schedule is everything owed by one unit for one period, plus the
// classification of the optional fields.
type Schedule struct {
	Period Period
	Exempt bool

	// MaintenanceCharge is zero when Exempt.
	MaintenanceCharge decimal.Decimal

	Required []RequiredCharge

	// AdvanceCredit lists optional advance-credit fields: charge-zero
	// but balance-affecting. Neutral lists optional normal fields:
	// displayed, never folded into the balance.
	AdvanceCredit []FieldInfo
	Neutral       []FieldInfo
}

// TotalCharge is the period's full obligation: maintenance plus every
// required field. Optional fields never add to charge.
func (s Schedule) TotalCharge() decimal.Decimal {
	total := s.MaintenanceCharge
	for _, rc := range s.Required {
		total = total.Add(rc.Amount)
	}
	return total
}

// RequiredChargeTotal is the sum of required-field charges, excluding
// maintenance.
func (s Schedule) RequiredChargeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, rc := range s.Required {
		total = total.Add(rc.Amount)
	}
	return total
}

// ScheduleResolver resolves per-period schedules for one tenant.
// Construct once per report from the tenant's configuration records.
type ScheduleResolver struct {
	tenant     Tenant
	fields     []ChargeField
	positions  []AssemblyPosition
	committees map[string]Committee
}

func NewScheduleResolver(tenant Tenant, fields []ChargeField, positions []AssemblyPosition, committees []Committee) *ScheduleResolver {
	byID := make(map[string]Committee, len(committees))
	for _, c := range committees {
		byID[c.ID] = c
	}
	sorted := make([]ChargeField, len(fields))
	copy(sorted, fields)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortOrder < sorted[j].SortOrder
	})
	return &ScheduleResolver{
		tenant:     tenant,
		fields:     sorted,
		positions:  positions,
		committees: byID,
	}
}

// IsExempt applies the exemption rule for one unit and period.
func (r *ScheduleResolver) IsExempt(unit Unit, period Period) bool {
	if r.tenant.AdminType != AdminBoard || !unit.AdminExempt {
		return false
	}
	for _, pos := range r.positions {
		if pos.UnitID != unit.ID || !pos.Active {
			continue
		}
		if pos.FromPeriod != "" && period.Before(pos.FromPeriod) {
			continue
		}
		if pos.ToPeriod != "" && period.After(pos.ToPeriod) {
			continue
		}
		if pos.CommitteeID != "" {
			c, ok := r.committees[pos.CommitteeID]
			if !ok || !c.GrantsExemption {
				continue
			}
		}
		return true
	}
	return false
}

// For builds the charge schedule for one unit and period.
func (r *ScheduleResolver) For(unit Unit, period Period) Schedule {
	s := Schedule{Period: period, Exempt: r.IsExempt(unit, period)}
	if !s.Exempt {
		s.MaintenanceCharge = r.tenant.MaintenanceFee
	}
	for _, f := range r.fields {
		if !f.Enabled || f.FieldType == FieldExpenseOnly {
			continue
		}
		key := ExtraKey(f.ID)
		switch {
		case f.Required:
			s.Required = append(s.Required, RequiredCharge{
				Key:    key,
				Label:  f.Label,
				Amount: f.DefaultAmount,
			})
		case f.FieldType == FieldAdvanceCredit:
			s.AdvanceCredit = append(s.AdvanceCredit, FieldInfo{Key: key, Label: f.Label})
		default:
			s.Neutral = append(s.Neutral, FieldInfo{Key: key, Label: f.Label})
		}
	}
	return s
}
