/*
dto.go - API data transfer objects

PURPOSE:
  JSON shapes for requests and responses. The engine computes with
  decimal.Decimal end to end; rounding to two places happens here and
  only here, on the way out. Request amounts are decoded as decimals
  (quoted strings or JSON numbers both work) so precision survives the
  wire.

CONVENTIONS:
  - *DTO types are responses, *Request types are bodies.
  - Field keys travel in their wire form: "maintenance" or the extra
    field's id.
  - Periods travel as their YYYY-MM tokens.

SEE ALSO:
  - handlers.go: where these are populated
  - ledger/types.go: the domain records behind them
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/condokit/billing-engine/billing"
	"github.com/condokit/billing-engine/ledger"
)

// ErrorResponse is the standard error body. Code carries a stable
// machine-readable discriminator for 400s.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// REPORT RESPONSES
// =============================================================================

type FieldDetailDTO struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Charge   string `json:"charge"`
	Received string `json:"received"`
	Neutral  bool   `json:"neutral"`
}

type StatementRowDTO struct {
	Period      string           `json:"period"`
	Exempt      bool             `json:"exempt"`
	Status      string           `json:"status"`
	Charge      string           `json:"charge"`
	Paid        string           `json:"paid"`
	AppliedPaid string           `json:"applied_paid"`
	Maintenance FieldDetailDTO   `json:"maintenance"`
	Fields      []FieldDetailDTO `json:"fields"`
	Balance     string           `json:"balance"`
}

type StatementDTO struct {
	TenantID        string            `json:"tenant_id"`
	UnitID          string            `json:"unit_id"`
	From            string            `json:"from"`
	To              string            `json:"to"`
	InitialBalance  string            `json:"initial_balance"`
	PriorDebtRepaid string            `json:"prior_debt_repaid"`
	Rows            []StatementRowDTO `json:"rows"`
	TotalCharge     string            `json:"total_charge"`
	TotalPaid       string            `json:"total_paid"`
	Balance         string            `json:"balance"`
}

type CashReportDTO struct {
	Period             string            `json:"period"`
	IncomeByField      map[string]string `json:"income_by_field"`
	ReferencedIncome   string            `json:"referenced_income"`
	UnreconciledIncome string            `json:"unreconciled_income"`
	UnidentifiedIncome string            `json:"unidentified_income"`
	TotalIncome        string            `json:"total_income"`
	ReconciledExpenses string            `json:"reconciled_expenses"`
	ChecksInTransit    string            `json:"checks_in_transit"`
	NetFlow            string            `json:"net_flow"`
}

type OpeningBalanceDTO struct {
	Period         string `json:"period"`
	OpeningBalance string `json:"opening_balance"`
}

type DashboardDTO struct {
	Period         string `json:"period"`
	Units          int    `json:"units"`
	Paid           int    `json:"paid"`
	Partial        int    `json:"partial"`
	Pending        int    `json:"pending"`
	Expected       string `json:"expected"`
	Collected      string `json:"collected"`
	CollectionRate string `json:"collection_rate"`
	PettyCashTotal string `json:"petty_cash_total"`
}

// =============================================================================
// PAYMENT CAPTURE
// =============================================================================

type FieldCaptureRequest struct {
	Key            string                     `json:"key"`
	Received       decimal.Decimal            `json:"received"`
	TargetUnitID   string                     `json:"target_unit_id,omitempty"`
	AdvanceTargets map[string]decimal.Decimal `json:"advance_targets,omitempty"`
}

type CaptureRequest struct {
	UnitID         string                `json:"unit_id"`
	Period         string                `json:"period"`
	PaymentType    string                `json:"payment_type"`
	BankReconciled bool                  `json:"bank_reconciled"`
	Notes          string                `json:"notes,omitempty"`
	Evidence       string                `json:"evidence,omitempty"`
	Fields         []FieldCaptureRequest `json:"fields"`

	// DebtRepayments: target period token (or "prior-debt") -> field
	// key -> amount.
	DebtRepayments map[string]map[string]decimal.Decimal `json:"debt_repayments,omitempty"`
}

type EntryRequest struct {
	Amounts     map[string]decimal.Decimal `json:"amounts"`
	PaymentType string                     `json:"payment_type"`
	Reconciled  *bool                      `json:"reconciled,omitempty"`
}

type FieldReceiptDTO struct {
	Key            string            `json:"key"`
	Received       string            `json:"received"`
	TargetUnitID   string            `json:"target_unit_id,omitempty"`
	AdvanceTargets map[string]string `json:"advance_targets,omitempty"`
}

type EntryDTO struct {
	ID          string            `json:"id"`
	Amounts     map[string]string `json:"amounts"`
	PaymentType string            `json:"payment_type"`
	Reconciled  *bool             `json:"reconciled,omitempty"`
	RecordedAt  string            `json:"recorded_at"`
}

type PaymentDTO struct {
	ID             string                       `json:"id"`
	TenantID       string                       `json:"tenant_id"`
	UnitID         string                       `json:"unit_id"`
	Period         string                       `json:"period"`
	Status         string                       `json:"status"`
	PaymentType    string                       `json:"payment_type"`
	BankReconciled bool                         `json:"bank_reconciled"`
	Notes          string                       `json:"notes,omitempty"`
	Evidence       string                       `json:"evidence,omitempty"`
	Receipts       []FieldReceiptDTO            `json:"receipts"`
	DebtRepayments map[string]map[string]string `json:"debt_repayments,omitempty"`
	Entries        []EntryDTO                   `json:"entries"`
}

// =============================================================================
// PERIOD CLOSING
// =============================================================================

type ClosePeriodRequest struct {
	Period string `json:"period"`
}

type ReopenRequestRequest struct {
	Period string `json:"period"`
	Reason string `json:"reason"`
}

type ReopenRequestDTO struct {
	ID         string  `json:"id"`
	TenantID   string  `json:"tenant_id"`
	Period     string  `json:"period"`
	Reason     string  `json:"reason"`
	Status     string  `json:"status"`
	FiledAt    string  `json:"filed_at"`
	ResolvedAt *string `json:"resolved_at,omitempty"`
}

// =============================================================================
// EXPENSES
// =============================================================================

type ExpenseRequest struct {
	Period         string          `json:"period"`
	FieldID        string          `json:"field_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentType    string          `json:"payment_type"`
	DocNumber      string          `json:"doc_number,omitempty"`
	Provider       string          `json:"provider,omitempty"`
	BankReconciled bool            `json:"bank_reconciled"`
}

type ExpenseDTO struct {
	ID             string `json:"id"`
	TenantID       string `json:"tenant_id"`
	Period         string `json:"period"`
	FieldID        string `json:"field_id,omitempty"`
	Amount         string `json:"amount"`
	PaymentType    string `json:"payment_type"`
	DocNumber      string `json:"doc_number,omitempty"`
	Provider       string `json:"provider,omitempty"`
	BankReconciled bool   `json:"bank_reconciled"`
	Date           string `json:"date"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func moneyMap(m map[ledger.FieldKey]decimal.Decimal) map[string]string {
	if len(m) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k.String()] = money(v)
	}
	return out
}

func toFieldDetailDTO(d ledger.FieldDetail) FieldDetailDTO {
	return FieldDetailDTO{
		Key:      d.Key.String(),
		Label:    d.Label,
		Charge:   money(d.Charge),
		Received: money(d.Received),
		Neutral:  d.Neutral,
	}
}

func toStatementDTO(st ledger.Statement) StatementDTO {
	rows := make([]StatementRowDTO, 0, len(st.Rows))
	for _, row := range st.Rows {
		fields := make([]FieldDetailDTO, 0, len(row.Fields))
		for _, f := range row.Fields {
			fields = append(fields, toFieldDetailDTO(f))
		}
		rows = append(rows, StatementRowDTO{
			Period:      string(row.Period),
			Exempt:      row.Exempt,
			Status:      string(row.Status),
			Charge:      money(row.Charge),
			Paid:        money(row.Paid),
			AppliedPaid: money(row.AppliedPaid),
			Maintenance: toFieldDetailDTO(row.Maintenance),
			Fields:      fields,
			Balance:     money(row.Balance),
		})
	}
	return StatementDTO{
		TenantID:        st.TenantID,
		UnitID:          st.UnitID,
		From:            string(st.From),
		To:              string(st.To),
		InitialBalance:  money(st.InitialBalance),
		PriorDebtRepaid: money(st.PriorDebtRepaid),
		Rows:            rows,
		TotalCharge:     money(st.TotalCharge),
		TotalPaid:       money(st.TotalPaid),
		Balance:         money(st.Balance),
	}
}

func toCashReportDTO(r ledger.CashReport) CashReportDTO {
	return CashReportDTO{
		Period:             string(r.Period),
		IncomeByField:      moneyMap(r.IncomeByField),
		ReferencedIncome:   money(r.ReferencedIncome),
		UnreconciledIncome: money(r.UnreconciledIncome),
		UnidentifiedIncome: money(r.UnidentifiedIncome),
		TotalIncome:        money(r.TotalIncome),
		ReconciledExpenses: money(r.ReconciledExpenses),
		ChecksInTransit:    money(r.ChecksInTransit),
		NetFlow:            money(r.NetFlow()),
	}
}

func toDashboardDTO(d ledger.Dashboard) DashboardDTO {
	return DashboardDTO{
		Period:         string(d.Period),
		Units:          d.Units,
		Paid:           d.Paid,
		Partial:        d.Partial,
		Pending:        d.Pending,
		Expected:       money(d.Expected),
		Collected:      money(d.Collected),
		CollectionRate: d.CollectionRate.Round(4).String(),
		PettyCashTotal: money(d.PettyCashTotal),
	}
}

func toPaymentDTO(p ledger.Payment) PaymentDTO {
	receipts := make([]FieldReceiptDTO, 0, len(p.Receipts))
	for _, r := range p.Receipts {
		dto := FieldReceiptDTO{
			Key:          r.Key.String(),
			Received:     money(r.Received),
			TargetUnitID: r.TargetUnitID,
		}
		if len(r.AdvanceTargets) > 0 {
			dto.AdvanceTargets = make(map[string]string, len(r.AdvanceTargets))
			for period, amount := range r.AdvanceTargets {
				dto.AdvanceTargets[string(period)] = money(amount)
			}
		}
		receipts = append(receipts, dto)
	}

	entries := make([]EntryDTO, 0, len(p.Entries))
	for _, e := range p.Entries {
		entries = append(entries, EntryDTO{
			ID:          e.ID,
			Amounts:     moneyMap(e.Amounts),
			PaymentType: string(e.PaymentType),
			Reconciled:  e.Reconciled,
			RecordedAt:  e.RecordedAt.UTC().Format(time.RFC3339),
		})
	}

	dto := PaymentDTO{
		ID:             p.ID,
		TenantID:       p.TenantID,
		UnitID:         p.UnitID,
		Period:         string(p.Period),
		Status:         string(p.Status),
		PaymentType:    string(p.PaymentType),
		BankReconciled: p.BankReconciled,
		Notes:          p.Notes,
		Evidence:       p.Evidence,
		Receipts:       receipts,
		Entries:        entries,
	}
	if len(p.DebtRepayments) > 0 {
		dto.DebtRepayments = make(map[string]map[string]string, len(p.DebtRepayments))
		for target, fields := range p.DebtRepayments {
			dto.DebtRepayments[target] = moneyMap(fields)
		}
	}
	return dto
}

func toReopenRequestDTO(r billing.ReopenRequest) ReopenRequestDTO {
	dto := ReopenRequestDTO{
		ID:       r.ID,
		TenantID: r.TenantID,
		Period:   string(r.Period),
		Reason:   r.Reason,
		Status:   string(r.Status),
		FiledAt:  r.FiledAt.UTC().Format(time.RFC3339),
	}
	if r.ResolvedAt != nil {
		s := r.ResolvedAt.UTC().Format(time.RFC3339)
		dto.ResolvedAt = &s
	}
	return dto
}

func toExpenseDTO(e ledger.ExpenseEntry) ExpenseDTO {
	return ExpenseDTO{
		ID:             e.ID,
		TenantID:       e.TenantID,
		Period:         string(e.Period),
		FieldID:        e.FieldID,
		Amount:         money(e.Amount),
		PaymentType:    string(e.PaymentType),
		DocNumber:      e.DocNumber,
		Provider:       e.Provider,
		BankReconciled: e.BankReconciled,
		Date:           e.Date.UTC().Format(time.RFC3339),
	}
}
