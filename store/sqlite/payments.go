/*
payments.go - Payment persistence

A payment row spans three tables: payments, field_receipts, and
additional_entries. SavePayment replaces the receipt and entry sets
wholesale inside one transaction, so the row in storage always matches
the record handed to it.
*/
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/condokit/billing-engine/ledger"
)

// SavePayment upserts a payment with its receipts, debt repayments,
// and additional entries.
func (s *Store) SavePayment(ctx context.Context, p ledger.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO payments (id, tenant_id, unit_id, period, status, payment_type, bank_reconciled, notes, evidence, debt_repayments_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			payment_type = excluded.payment_type,
			bank_reconciled = excluded.bank_reconciled,
			notes = excluded.notes,
			evidence = excluded.evidence,
			debt_repayments_json = excluded.debt_repayments_json
	`
	_, err = tx.ExecContext(ctx, query,
		p.ID, p.TenantID, p.UnitID, string(p.Period), string(p.Status),
		string(p.PaymentType), p.BankReconciled, p.Notes, p.Evidence,
		encodeDebtRepayments(p.DebtRepayments),
	)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM field_receipts WHERE payment_id = ?", p.ID); err != nil {
		return err
	}
	for _, r := range p.Receipts {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO field_receipts (payment_id, field_key, received, target_unit_id, advance_targets_json) VALUES (?, ?, ?, ?, ?)",
			p.ID, r.Key.String(), r.Received.String(), nullString(r.TargetUnitID), encodeAdvanceTargets(r.AdvanceTargets),
		)
		if err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM additional_entries WHERE payment_id = ?", p.ID); err != nil {
		return err
	}
	for _, e := range p.Entries {
		var reconciled sql.NullBool
		if e.Reconciled != nil {
			reconciled = sql.NullBool{Bool: *e.Reconciled, Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO additional_entries (id, payment_id, amounts_json, payment_type, reconciled, recorded_at) VALUES (?, ?, ?, ?, ?, ?)",
			e.ID, p.ID, encodeFieldAmounts(e.Amounts), string(e.PaymentType),
			reconciled, e.RecordedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Payment retrieves a payment by ID.
func (s *Store) Payment(ctx context.Context, tenantID, paymentID string) (ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := paymentSelect + " WHERE tenant_id = ? AND id = ?"
	payments, err := s.queryPayments(ctx, query, tenantID, paymentID)
	if err != nil {
		return ledger.Payment{}, err
	}
	if len(payments) == 0 {
		return ledger.Payment{}, &ledger.NotFoundError{Kind: "payment", ID: paymentID}
	}
	return payments[0], nil
}

// PaymentByUnitPeriod retrieves the single payment of a (tenant, unit,
// period).
func (s *Store) PaymentByUnitPeriod(ctx context.Context, tenantID, unitID string, period ledger.Period) (ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := paymentSelect + " WHERE tenant_id = ? AND unit_id = ? AND period = ?"
	payments, err := s.queryPayments(ctx, query, tenantID, unitID, string(period))
	if err != nil {
		return ledger.Payment{}, err
	}
	if len(payments) == 0 {
		return ledger.Payment{}, &ledger.NotFoundError{Kind: "payment", ID: unitID + "/" + string(period)}
	}
	return payments[0], nil
}

// PaymentsByUnit returns a unit's payments across all periods.
func (s *Store) PaymentsByUnit(ctx context.Context, tenantID, unitID string) ([]ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := paymentSelect + " WHERE tenant_id = ? AND unit_id = ? ORDER BY period"
	return s.queryPayments(ctx, query, tenantID, unitID)
}

// PaymentsByPeriod returns every unit's payment for one period.
func (s *Store) PaymentsByPeriod(ctx context.Context, tenantID string, period ledger.Period) ([]ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := paymentSelect + " WHERE tenant_id = ? AND period = ? ORDER BY unit_id"
	return s.queryPayments(ctx, query, tenantID, string(period))
}

// DeletePayment removes a payment and its attached rows.
func (s *Store) DeletePayment(ctx context.Context, tenantID, paymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM payments WHERE tenant_id = ? AND id = ?", tenantID, paymentID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &ledger.NotFoundError{Kind: "payment", ID: paymentID}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM field_receipts WHERE payment_id = ?", paymentID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM additional_entries WHERE payment_id = ?", paymentID); err != nil {
		return err
	}
	return tx.Commit()
}

const paymentSelect = `
	SELECT id, tenant_id, unit_id, period, status, payment_type, bank_reconciled, notes, evidence, debt_repayments_json
	FROM payments`

func (s *Store) queryPayments(ctx context.Context, query string, args ...any) ([]ledger.Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []ledger.Payment
	for rows.Next() {
		var p ledger.Payment
		var period, status, paymentType string
		var notes, evidence, repayments sql.NullString
		if err := rows.Scan(&p.ID, &p.TenantID, &p.UnitID, &period, &status, &paymentType,
			&p.BankReconciled, &notes, &evidence, &repayments); err != nil {
			return nil, err
		}
		p.Period = ledger.Period(period)
		p.Status = ledger.PaymentStatus(status)
		p.PaymentType = ledger.PaymentType(paymentType)
		p.Notes = notes.String
		p.Evidence = evidence.String
		p.DebtRepayments = decodeDebtRepayments(repayments.String)
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range payments {
		if err := s.loadReceipts(ctx, &payments[i]); err != nil {
			return nil, err
		}
		if err := s.loadEntries(ctx, &payments[i]); err != nil {
			return nil, err
		}
	}
	return payments, nil
}

func (s *Store) loadReceipts(ctx context.Context, p *ledger.Payment) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT field_key, received, target_unit_id, advance_targets_json FROM field_receipts WHERE payment_id = ? ORDER BY field_key",
		p.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r ledger.FieldReceipt
		var key, received string
		var targetUnit, advances sql.NullString
		if err := rows.Scan(&key, &received, &targetUnit, &advances); err != nil {
			return err
		}
		r.Key = ledger.ParseFieldKey(key)
		r.Received = parseDec(received)
		r.TargetUnitID = targetUnit.String
		r.AdvanceTargets = decodeAdvanceTargets(advances.String)
		p.Receipts = append(p.Receipts, r)
	}
	return rows.Err()
}

func (s *Store) loadEntries(ctx context.Context, p *ledger.Payment) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, amounts_json, payment_type, reconciled, recorded_at FROM additional_entries WHERE payment_id = ? ORDER BY recorded_at, id",
		p.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var e ledger.AdditionalEntry
		var amounts, paymentType, recordedAt string
		var reconciled sql.NullBool
		if err := rows.Scan(&e.ID, &amounts, &paymentType, &reconciled, &recordedAt); err != nil {
			return err
		}
		e.Amounts = decodeFieldAmounts(amounts)
		e.PaymentType = ledger.PaymentType(paymentType)
		if reconciled.Valid {
			v := reconciled.Bool
			e.Reconciled = &v
		}
		e.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
		p.Entries = append(p.Entries, e)
	}
	return rows.Err()
}
