/*
cash.go - Cash-view records and the closing gate

Expense entries, petty cash, unidentified income, closed-period marks,
and reopen requests.
*/
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/condokit/billing-engine/billing"
	"github.com/condokit/billing-engine/ledger"
)

// =============================================================================
// EXPENSE ENTRIES
// =============================================================================

// SaveExpense upserts an expense entry.
func (s *Store) SaveExpense(ctx context.Context, e ledger.ExpenseEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO expense_entries (id, tenant_id, period, field_id, amount, payment_type, doc_number, provider, bank_reconciled, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			field_id = excluded.field_id,
			amount = excluded.amount,
			payment_type = excluded.payment_type,
			doc_number = excluded.doc_number,
			provider = excluded.provider,
			bank_reconciled = excluded.bank_reconciled
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.TenantID, string(e.Period), nullString(e.FieldID), e.Amount.String(),
		string(e.PaymentType), e.DocNumber, e.Provider, e.BankReconciled,
		e.Date.UTC().Format(time.RFC3339),
	)
	return err
}

// DeleteExpense removes an expense entry.
func (s *Store) DeleteExpense(ctx context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM expense_entries WHERE tenant_id = ? AND id = ?", tenantID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &ledger.NotFoundError{Kind: "expense", ID: id}
	}
	return nil
}

// ExpensesByPeriod lists a period's expense entries.
func (s *Store) ExpensesByPeriod(ctx context.Context, tenantID string, period ledger.Period) ([]ledger.ExpenseEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, tenant_id, period, field_id, amount, payment_type, doc_number, provider, bank_reconciled, date FROM expense_entries WHERE tenant_id = ? AND period = ? ORDER BY date, id",
		tenantID, string(period),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []ledger.ExpenseEntry
	for rows.Next() {
		var e ledger.ExpenseEntry
		var p, amount, paymentType, date string
		var fieldID, docNumber, provider sql.NullString
		if err := rows.Scan(&e.ID, &e.TenantID, &p, &fieldID, &amount, &paymentType, &docNumber, &provider, &e.BankReconciled, &date); err != nil {
			return nil, err
		}
		e.Period = ledger.Period(p)
		e.FieldID = fieldID.String
		e.Amount = parseDec(amount)
		e.PaymentType = ledger.PaymentType(paymentType)
		e.DocNumber = docNumber.String
		e.Provider = provider.String
		e.Date, _ = time.Parse(time.RFC3339, date)
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// =============================================================================
// PETTY CASH
// =============================================================================

// SavePettyCash upserts a petty-cash entry.
func (s *Store) SavePettyCash(ctx context.Context, e ledger.PettyCashEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO petty_cash (id, tenant_id, period, amount, description, payment_type, date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			description = excluded.description,
			payment_type = excluded.payment_type
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.TenantID, string(e.Period), e.Amount.String(),
		e.Description, string(e.PaymentType), e.Date.UTC().Format(time.RFC3339),
	)
	return err
}

// PettyCashByPeriod lists a period's petty-cash entries.
func (s *Store) PettyCashByPeriod(ctx context.Context, tenantID string, period ledger.Period) ([]ledger.PettyCashEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, tenant_id, period, amount, description, payment_type, date FROM petty_cash WHERE tenant_id = ? AND period = ? ORDER BY date, id",
		tenantID, string(period),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ledger.PettyCashEntry
	for rows.Next() {
		var e ledger.PettyCashEntry
		var p, amount, paymentType, date string
		var description sql.NullString
		if err := rows.Scan(&e.ID, &e.TenantID, &p, &amount, &description, &paymentType, &date); err != nil {
			return nil, err
		}
		e.Period = ledger.Period(p)
		e.Amount = parseDec(amount)
		e.Description = description.String
		e.PaymentType = ledger.PaymentType(paymentType)
		e.Date, _ = time.Parse(time.RFC3339, date)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// UNIDENTIFIED INCOME
// =============================================================================

// SaveUnidentifiedIncome upserts an unidentified-income record.
func (s *Store) SaveUnidentifiedIncome(ctx context.Context, u ledger.UnidentifiedIncome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO unidentified_income (id, tenant_id, period, amount, description, date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			description = excluded.description
	`
	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.TenantID, string(u.Period), u.Amount.String(),
		u.Description, u.Date.UTC().Format(time.RFC3339),
	)
	return err
}

// UnidentifiedByPeriod lists a period's unidentified-income records.
func (s *Store) UnidentifiedByPeriod(ctx context.Context, tenantID string, period ledger.Period) ([]ledger.UnidentifiedIncome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, tenant_id, period, amount, description, date FROM unidentified_income WHERE tenant_id = ? AND period = ? ORDER BY date, id",
		tenantID, string(period),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ledger.UnidentifiedIncome
	for rows.Next() {
		var u ledger.UnidentifiedIncome
		var p, amount, date string
		var description sql.NullString
		if err := rows.Scan(&u.ID, &u.TenantID, &p, &amount, &description, &date); err != nil {
			return nil, err
		}
		u.Period = ledger.Period(p)
		u.Amount = parseDec(amount)
		u.Description = description.String
		u.Date, _ = time.Parse(time.RFC3339, date)
		records = append(records, u)
	}
	return records, rows.Err()
}

// =============================================================================
// CLOSING GATE
// =============================================================================

// ClosePeriod marks a tenant's period closed. Idempotent.
func (s *Store) ClosePeriod(ctx context.Context, tenantID string, period ledger.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO closed_periods (tenant_id, period, closed_at) VALUES (?, ?, ?) ON CONFLICT(tenant_id, period) DO NOTHING",
		tenantID, string(period), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ReopenPeriod removes a closed mark. Idempotent.
func (s *Store) ReopenPeriod(ctx context.Context, tenantID string, period ledger.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM closed_periods WHERE tenant_id = ? AND period = ?",
		tenantID, string(period),
	)
	return err
}

// IsClosed reports whether a tenant's period is closed.
func (s *Store) IsClosed(ctx context.Context, tenantID string, period ledger.Period) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM closed_periods WHERE tenant_id = ? AND period = ?",
		tenantID, string(period),
	).Scan(&count)
	return count > 0, err
}

// ClosedPeriods lists a tenant's closed periods in order.
func (s *Store) ClosedPeriods(ctx context.Context, tenantID string) ([]ledger.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT period FROM closed_periods WHERE tenant_id = ? ORDER BY period",
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []ledger.Period
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		periods = append(periods, ledger.Period(p))
	}
	return periods, rows.Err()
}

// =============================================================================
// REOPEN REQUESTS
// =============================================================================

// SaveReopenRequest upserts a reopen request.
func (s *Store) SaveReopenRequest(ctx context.Context, r billing.ReopenRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var resolvedAt *string
	if r.ResolvedAt != nil {
		t := r.ResolvedAt.UTC().Format(time.RFC3339)
		resolvedAt = &t
	}
	query := `
		INSERT INTO reopen_requests (id, tenant_id, period, reason, status, filed_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			resolved_at = excluded.resolved_at
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.TenantID, string(r.Period), r.Reason, string(r.Status),
		r.FiledAt.UTC().Format(time.RFC3339), resolvedAt,
	)
	return err
}

// ReopenRequestByID retrieves one reopen request.
func (s *Store) ReopenRequestByID(ctx context.Context, tenantID, id string) (billing.ReopenRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	requests, err := s.queryReopenRequests(ctx,
		reopenSelect+" WHERE tenant_id = ? AND id = ?", tenantID, id)
	if err != nil {
		return billing.ReopenRequest{}, err
	}
	if len(requests) == 0 {
		return billing.ReopenRequest{}, &ledger.NotFoundError{Kind: "reopen request", ID: id}
	}
	return requests[0], nil
}

// ReopenRequestsByTenant lists a tenant's reopen requests, newest
// first.
func (s *Store) ReopenRequestsByTenant(ctx context.Context, tenantID string) ([]billing.ReopenRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryReopenRequests(ctx,
		reopenSelect+" WHERE tenant_id = ? ORDER BY filed_at DESC", tenantID)
}

const reopenSelect = `
	SELECT id, tenant_id, period, reason, status, filed_at, resolved_at
	FROM reopen_requests`

func (s *Store) queryReopenRequests(ctx context.Context, query string, args ...any) ([]billing.ReopenRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []billing.ReopenRequest
	for rows.Next() {
		var r billing.ReopenRequest
		var period, status, filedAt string
		var reason, resolvedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.TenantID, &period, &reason, &status, &filedAt, &resolvedAt); err != nil {
			return nil, err
		}
		r.Period = ledger.Period(period)
		r.Reason = reason.String
		r.Status = billing.ReopenStatus(status)
		r.FiledAt, _ = time.Parse(time.RFC3339, filedAt)
		if resolvedAt.Valid {
			t, _ := time.Parse(time.RFC3339, resolvedAt.String)
			r.ResolvedAt = &t
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}
