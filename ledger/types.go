/*
Package ledger provides the core billing engine for multi-tenant
condominium accounting.

PURPOSE:
  This package contains the domain types and algorithms that turn raw
  payment records into account statements and bank reconciliation
  reports. It reconciles several independent credit/debt mechanisms
  (carried-forward debt, credit balances, advance payments, lump-sum
  debt repayments, exemptions) into a single consistent running balance,
  while keeping the two accounting views (accrual and cash) from ever
  double-counting the same money.

KEY CONCEPTS IN THIS FILE (types.go):
  - FieldKey: a typed sum key (maintenance | extra field) for all
    per-field aggregation. No stringly-typed dispatch.
  - Tenant/Unit/ChargeField: the billing configuration records.
  - Payment/FieldReceipt/AdditionalEntry: the raw money records.
  - ExpenseEntry/UnidentifiedIncome: the cash-view inputs.

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every amount. No float64 anywhere
     in charge or balance computation; rounding is a display-layer step.
  2. Purity: every report is a pure function of the records passed in.
     Status is derived fresh on each computation, never trusted from
     storage.
  3. Conservation: every amount on a payment lands in exactly one of
     the balance-affecting or display-only totals. Never both, never
     neither.

SEE ALSO:
  - period.go: the YYYY-MM period calendar
  - schedule.go: charge schedule and exemption resolution
  - aggregate.go: folding payments into per-period receipts
  - statement.go: the accrual-view statement engine
  - recon.go: the cash-view bank reconciliation engine
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FIELD KEY - Typed key for per-field amounts
// =============================================================================

// FieldKind distinguishes the maintenance fee from tenant-defined extra
// fields.
type FieldKind int

const (
	KindMaintenance FieldKind = iota
	KindExtra
)

// FieldKey identifies a charge field on a payment. It is a comparable
// value type and is used as the map key for all per-field aggregation.
//
// Construct with MaintenanceKey() or ExtraKey(id); never build the
// struct literal directly.
type FieldKey struct {
	Kind    FieldKind
	ExtraID string
}

// MaintenanceKey returns the key for the tenant's maintenance fee.
func MaintenanceKey() FieldKey { return FieldKey{Kind: KindMaintenance} }

// ExtraKey returns the key for a tenant-defined extra field.
func ExtraKey(id string) FieldKey { return FieldKey{Kind: KindExtra, ExtraID: id} }

func (k FieldKey) IsMaintenance() bool { return k.Kind == KindMaintenance }

// String renders the key in its wire/storage form: "maintenance" for
// the maintenance fee, the field id otherwise.
func (k FieldKey) String() string {
	if k.Kind == KindMaintenance {
		return "maintenance"
	}
	return k.ExtraID
}

// ParseFieldKey is the inverse of String.
func ParseFieldKey(s string) FieldKey {
	if s == "maintenance" {
		return MaintenanceKey()
	}
	return ExtraKey(s)
}

// =============================================================================
// ENUMS
// =============================================================================

// AdminType describes who administers a tenant. Only board-managed
// tenants support holder exemptions.
type AdminType string

const (
	AdminBoard     AdminType = "mesa_directiva"
	AdminExternal  AdminType = "administrador"
	AdminCommittee AdminType = "comite"
)

// FieldType classifies an extra charge field.
//
//   - FieldNormal: optional fields are neutral (received amounts shown,
//     never folded into the balance); required fields carry a charge.
//   - FieldExpenseOnly: never appears as a unit charge, only feeds
//     expense reports.
//   - FieldAdvanceCredit: charge-zero but balance-affecting; money
//     received against it is prepaid credit.
type FieldType string

const (
	FieldNormal        FieldType = "normal"
	FieldExpenseOnly   FieldType = "gastos"
	FieldAdvanceCredit FieldType = "adelanto"
)

// PaymentStatus is the derived per-period collection status.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "pendiente"
	StatusPartial PaymentStatus = "parcial"
	StatusPaid    PaymentStatus = "pagado"

	// StatusFuture only appears on statement rows for periods beyond
	// the current one; it is never persisted on a Payment.
	StatusFuture PaymentStatus = "futuro"
)

// PaymentType records how money arrived. PayExempt is the sentinel used
// when a period is waived for an exempt unit rather than paid.
type PaymentType string

const (
	PayTransfer PaymentType = "transferencia"
	PayDeposit  PaymentType = "deposito"
	PayCash     PaymentType = "efectivo"
	PayCheck    PaymentType = "cheque"
	PayExempt   PaymentType = "excento"
)

// PriorDebtTarget is the sentinel debt-repayment target for debt accrued
// before the ledger's first period. Money applied to it reduces the
// unit's previous-debt exposure but is never counted as any period's
// income in the accrual view.
const PriorDebtTarget = "prior-debt"

// =============================================================================
// CONFIGURATION RECORDS
// =============================================================================

// Tenant is a condominium.
type Tenant struct {
	ID                 string
	Name               string
	MaintenanceFee     decimal.Decimal
	Currency           string
	OperationStart     Period // earliest period the ledger considers
	BankInitialBalance decimal.Decimal
	AdminType          AdminType
}

// Unit is a housing unit within a tenant.
type Unit struct {
	ID       string
	TenantID string
	Name     string
	Code     string

	// Debt accrued before the ledger start and pre-existing credit.
	// Both are never negative; they seed the statement's running
	// balance.
	PreviousDebt  decimal.Decimal
	CreditBalance decimal.Decimal

	// AdminExempt is only the eligibility flag; the actual exemption is
	// time-bounded and resolved per period (see schedule.go).
	AdminExempt bool
}

// ChargeField is a tenant-defined payment field.
type ChargeField struct {
	ID            string
	TenantID      string
	Label         string
	DefaultAmount decimal.Decimal
	Required      bool
	Enabled       bool
	FieldType     FieldType
	CrossUnit     bool
	SortOrder     int
}

// =============================================================================
// PAYMENT RECORDS
// =============================================================================

// FieldReceipt is the money received against one field of one payment.
// There is exactly one FieldReceipt per (payment, field key).
type FieldReceipt struct {
	Key      FieldKey
	Received decimal.Decimal

	// TargetUnitID redirects the receipt to another unit. The engine
	// stores and echoes it; redirection math is handled elsewhere.
	TargetUnitID string

	// AdvanceTargets earmarks money received now for a future period's
	// charge on this same field: period token -> amount.
	AdvanceTargets map[Period]decimal.Decimal
}

// AdditionalEntry is a supplemental payment sub-record, capturing extra
// deposits within the same period. Entries can be added, edited, or
// removed individually without touching the primary receipt set.
type AdditionalEntry struct {
	ID          string
	Amounts     map[FieldKey]decimal.Decimal
	PaymentType PaymentType

	// Reconciled overrides the parent payment's bank_reconciled flag
	// for this entry. nil inherits the parent's flag.
	Reconciled *bool

	RecordedAt time.Time
}

// Payment is the single payment record for one (tenant, unit, period).
type Payment struct {
	ID             string
	TenantID       string
	UnitID         string
	Period         Period
	Status         PaymentStatus
	PaymentType    PaymentType
	BankReconciled bool
	Notes          string
	Evidence       string

	Receipts []FieldReceipt

	// DebtRepayments applies money to past obligations: target period
	// token (or PriorDebtTarget) -> field key -> amount.
	DebtRepayments map[string]map[FieldKey]decimal.Decimal

	Entries []AdditionalEntry
}

// Receipt returns the payment's primary receipt for a field, if any.
func (p Payment) Receipt(key FieldKey) (FieldReceipt, bool) {
	for _, r := range p.Receipts {
		if r.Key == key {
			return r, true
		}
	}
	return FieldReceipt{}, false
}

// =============================================================================
// CASH-VIEW RECORDS
// =============================================================================

// ExpenseEntry is an outgoing payment for a period.
type ExpenseEntry struct {
	ID             string
	TenantID       string
	Period         Period
	FieldID        string // owning expense-only field, may be empty
	Amount         decimal.Decimal
	PaymentType    PaymentType
	DocNumber      string
	Provider       string
	BankReconciled bool
	Date           time.Time
}

// PettyCashEntry is a cash-box record. Petty cash never enters bank
// totals; it is surfaced on the period dashboard only.
type PettyCashEntry struct {
	ID          string
	TenantID    string
	Period      Period
	Amount      decimal.Decimal
	Description string
	PaymentType PaymentType
	Date        time.Time
}

// UnidentifiedIncome is money received but not yet matched to any unit.
// It is added directly to the cash report's total income.
type UnidentifiedIncome struct {
	ID          string
	TenantID    string
	Period      Period
	Amount      decimal.Decimal
	Description string
	Date        time.Time
}

// =============================================================================
// ORGANIZATIONAL RECORDS - Exemption inputs
// =============================================================================

// AssemblyPosition is a seat in the tenant's organizational chart. A
// unit holding an active position within its validity window may be
// exempt from maintenance (see schedule.go).
type AssemblyPosition struct {
	ID       string
	TenantID string
	Title    string
	UnitID   string // holder unit, empty when vacant
	Active   bool

	// Validity window as period tokens; empty means unbounded on that
	// side.
	FromPeriod Period
	ToPeriod   Period

	// CommitteeID optionally links the position to a committee. When
	// set, the committee must grant exemptions for the position to
	// qualify.
	CommitteeID string
}

// Committee groups positions; only committees flagged GrantsExemption
// confer the maintenance waiver.
type Committee struct {
	ID              string
	TenantID        string
	Name            string
	GrantsExemption bool
}
