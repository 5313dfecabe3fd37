/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements the read-side contracts (ledger.Reader, ledger.ClosedPeriods)
  and the write-side contract (billing.Store) using SQLite. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

MONEY:
  Every monetary column is TEXT holding a decimal string. Amounts are
  parsed with shopspring/decimal on scan; nothing monetary ever passes
  through float64.

KEY TABLES:
  tenants, units, charge_fields:  billing configuration
  payments:                       one row per (tenant, unit, period)
  field_receipts:                 one row per (payment, field key)
  additional_entries:             supplemental payment sub-records
  expense_entries, petty_cash, unidentified_income: cash-view records
  assembly_positions, committees: exemption inputs
  closed_periods, reopen_requests: the closing gate

JSON COLUMNS:
  advance_targets on receipts, debt_repayments on payments, and the
  per-field amounts on additional entries are nested period/field maps;
  they persist as JSON objects of decimal strings.

CONCURRENCY:
  sync.RWMutex for thread-safety. SQLite is opened with WAL so readers
  don't block each other.

USAGE:
  store, err := sqlite.New("./data/billing.db")  // or ":memory:"

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: read-side interface definitions
  - billing/store.go: write-side interface definition
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/condokit/billing-engine/ledger"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the
// schema. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Billing configuration
	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		maintenance_fee TEXT NOT NULL,
		currency TEXT NOT NULL,
		operation_start TEXT NOT NULL,
		bank_initial_balance TEXT NOT NULL,
		admin_type TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		code TEXT NOT NULL,
		previous_debt TEXT NOT NULL,
		credit_balance TEXT NOT NULL,
		admin_exempt BOOLEAN DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_units_tenant ON units(tenant_id);

	CREATE TABLE IF NOT EXISTS charge_fields (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		label TEXT NOT NULL,
		default_amount TEXT NOT NULL,
		required BOOLEAN DEFAULT FALSE,
		enabled BOOLEAN DEFAULT TRUE,
		field_type TEXT NOT NULL,
		cross_unit BOOLEAN DEFAULT FALSE,
		sort_order INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_charge_fields_tenant ON charge_fields(tenant_id);

	-- Payments: exactly one per (tenant, unit, period)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		unit_id TEXT NOT NULL,
		period TEXT NOT NULL,
		status TEXT NOT NULL,
		payment_type TEXT NOT NULL,
		bank_reconciled BOOLEAN DEFAULT FALSE,
		notes TEXT,
		evidence TEXT,
		debt_repayments_json TEXT,
		UNIQUE(tenant_id, unit_id, period)
	);

	CREATE INDEX IF NOT EXISTS idx_payments_tenant_unit ON payments(tenant_id, unit_id);
	CREATE INDEX IF NOT EXISTS idx_payments_tenant_period ON payments(tenant_id, period);

	-- Exactly one receipt per (payment, field key)
	CREATE TABLE IF NOT EXISTS field_receipts (
		payment_id TEXT NOT NULL,
		field_key TEXT NOT NULL,
		received TEXT NOT NULL,
		target_unit_id TEXT,
		advance_targets_json TEXT,
		PRIMARY KEY (payment_id, field_key)
	);

	CREATE TABLE IF NOT EXISTS additional_entries (
		id TEXT PRIMARY KEY,
		payment_id TEXT NOT NULL,
		amounts_json TEXT NOT NULL,
		payment_type TEXT NOT NULL,
		reconciled BOOLEAN,
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_payment ON additional_entries(payment_id);

	-- Cash-view records
	CREATE TABLE IF NOT EXISTS expense_entries (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		period TEXT NOT NULL,
		field_id TEXT,
		amount TEXT NOT NULL,
		payment_type TEXT NOT NULL,
		doc_number TEXT,
		provider TEXT,
		bank_reconciled BOOLEAN DEFAULT FALSE,
		date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_tenant_period ON expense_entries(tenant_id, period);

	CREATE TABLE IF NOT EXISTS petty_cash (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		period TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT,
		payment_type TEXT NOT NULL,
		date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_petty_cash_tenant_period ON petty_cash(tenant_id, period);

	CREATE TABLE IF NOT EXISTS unidentified_income (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		period TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT,
		date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_unidentified_tenant_period ON unidentified_income(tenant_id, period);

	-- Exemption inputs
	CREATE TABLE IF NOT EXISTS assembly_positions (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		title TEXT NOT NULL,
		unit_id TEXT,
		active BOOLEAN DEFAULT TRUE,
		from_period TEXT,
		to_period TEXT,
		committee_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_positions_tenant ON assembly_positions(tenant_id);

	CREATE TABLE IF NOT EXISTS committees (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		grants_exemption BOOLEAN DEFAULT FALSE
	);

	-- Closing gate
	CREATE TABLE IF NOT EXISTS closed_periods (
		tenant_id TEXT NOT NULL,
		period TEXT NOT NULL,
		closed_at TEXT NOT NULL,
		PRIMARY KEY (tenant_id, period)
	);

	CREATE TABLE IF NOT EXISTS reopen_requests (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		period TEXT NOT NULL,
		reason TEXT,
		status TEXT NOT NULL,
		filed_at TEXT NOT NULL,
		resolved_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reopen_requests_tenant ON reopen_requests(tenant_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func encodeFieldAmounts(m map[ledger.FieldKey]decimal.Decimal) string {
	if len(m) == 0 {
		return ""
	}
	out := make(map[string]string, len(m))
	for key, amount := range m {
		out[key.String()] = amount.String()
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func decodeFieldAmounts(s string) map[ledger.FieldKey]decimal.Decimal {
	if s == "" {
		return nil
	}
	var raw map[string]string
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil
	}
	out := make(map[ledger.FieldKey]decimal.Decimal, len(raw))
	for key, amount := range raw {
		out[ledger.ParseFieldKey(key)] = parseDec(amount)
	}
	return out
}

func encodeAdvanceTargets(m map[ledger.Period]decimal.Decimal) string {
	if len(m) == 0 {
		return ""
	}
	out := make(map[string]string, len(m))
	for period, amount := range m {
		out[string(period)] = amount.String()
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func decodeAdvanceTargets(s string) map[ledger.Period]decimal.Decimal {
	if s == "" {
		return nil
	}
	var raw map[string]string
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil
	}
	out := make(map[ledger.Period]decimal.Decimal, len(raw))
	for period, amount := range raw {
		out[ledger.Period(period)] = parseDec(amount)
	}
	return out
}

func encodeDebtRepayments(m map[string]map[ledger.FieldKey]decimal.Decimal) string {
	if len(m) == 0 {
		return ""
	}
	out := make(map[string]map[string]string, len(m))
	for target, fields := range m {
		inner := make(map[string]string, len(fields))
		for key, amount := range fields {
			inner[key.String()] = amount.String()
		}
		out[target] = inner
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func decodeDebtRepayments(s string) map[string]map[ledger.FieldKey]decimal.Decimal {
	if s == "" {
		return nil
	}
	var raw map[string]map[string]string
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil
	}
	out := make(map[string]map[ledger.FieldKey]decimal.Decimal, len(raw))
	for target, fields := range raw {
		inner := make(map[ledger.FieldKey]decimal.Decimal, len(fields))
		for key, amount := range fields {
			inner[ledger.ParseFieldKey(key)] = parseDec(amount)
		}
		out[target] = inner
	}
	return out
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// =============================================================================
// TENANTS
// =============================================================================

// SaveTenant upserts a tenant.
func (s *Store) SaveTenant(ctx context.Context, t ledger.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO tenants (id, name, maintenance_fee, currency, operation_start, bank_initial_balance, admin_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			maintenance_fee = excluded.maintenance_fee,
			currency = excluded.currency,
			operation_start = excluded.operation_start,
			bank_initial_balance = excluded.bank_initial_balance,
			admin_type = excluded.admin_type
	`
	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.Name, t.MaintenanceFee.String(), t.Currency,
		string(t.OperationStart), t.BankInitialBalance.String(), string(t.AdminType),
	)
	return err
}

// Tenant retrieves a tenant by ID.
func (s *Store) Tenant(ctx context.Context, id string) (ledger.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t ledger.Tenant
	var fee, start, initial, adminType string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, maintenance_fee, currency, operation_start, bank_initial_balance, admin_type FROM tenants WHERE id = ?",
		id,
	).Scan(&t.ID, &t.Name, &fee, &t.Currency, &start, &initial, &adminType)
	if err == sql.ErrNoRows {
		return ledger.Tenant{}, &ledger.NotFoundError{Kind: "tenant", ID: id}
	}
	if err != nil {
		return ledger.Tenant{}, err
	}
	t.MaintenanceFee = parseDec(fee)
	t.OperationStart = ledger.Period(start)
	t.BankInitialBalance = parseDec(initial)
	t.AdminType = ledger.AdminType(adminType)
	return t, nil
}

// Tenants lists all tenants.
func (s *Store) Tenants(ctx context.Context) ([]ledger.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, maintenance_fee, currency, operation_start, bank_initial_balance, admin_type FROM tenants ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []ledger.Tenant
	for rows.Next() {
		var t ledger.Tenant
		var fee, start, initial, adminType string
		if err := rows.Scan(&t.ID, &t.Name, &fee, &t.Currency, &start, &initial, &adminType); err != nil {
			return nil, err
		}
		t.MaintenanceFee = parseDec(fee)
		t.OperationStart = ledger.Period(start)
		t.BankInitialBalance = parseDec(initial)
		t.AdminType = ledger.AdminType(adminType)
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// =============================================================================
// UNITS
// =============================================================================

// SaveUnit upserts a unit.
func (s *Store) SaveUnit(ctx context.Context, u ledger.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO units (id, tenant_id, name, code, previous_debt, credit_balance, admin_exempt)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			code = excluded.code,
			previous_debt = excluded.previous_debt,
			credit_balance = excluded.credit_balance,
			admin_exempt = excluded.admin_exempt
	`
	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.TenantID, u.Name, u.Code,
		u.PreviousDebt.String(), u.CreditBalance.String(), u.AdminExempt,
	)
	return err
}

// Unit retrieves a unit by ID.
func (s *Store) Unit(ctx context.Context, id string) (ledger.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u ledger.Unit
	var debt, credit string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, name, code, previous_debt, credit_balance, admin_exempt FROM units WHERE id = ?",
		id,
	).Scan(&u.ID, &u.TenantID, &u.Name, &u.Code, &debt, &credit, &u.AdminExempt)
	if err == sql.ErrNoRows {
		return ledger.Unit{}, &ledger.NotFoundError{Kind: "unit", ID: id}
	}
	if err != nil {
		return ledger.Unit{}, err
	}
	u.PreviousDebt = parseDec(debt)
	u.CreditBalance = parseDec(credit)
	return u, nil
}

// UnitsByTenant lists a tenant's units.
func (s *Store) UnitsByTenant(ctx context.Context, tenantID string) ([]ledger.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, tenant_id, name, code, previous_debt, credit_balance, admin_exempt FROM units WHERE tenant_id = ? ORDER BY code",
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []ledger.Unit
	for rows.Next() {
		var u ledger.Unit
		var debt, credit string
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Name, &u.Code, &debt, &credit, &u.AdminExempt); err != nil {
			return nil, err
		}
		u.PreviousDebt = parseDec(debt)
		u.CreditBalance = parseDec(credit)
		units = append(units, u)
	}
	return units, rows.Err()
}

// =============================================================================
// CHARGE FIELDS
// =============================================================================

// SaveField upserts a charge field.
func (s *Store) SaveField(ctx context.Context, f ledger.ChargeField) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO charge_fields (id, tenant_id, label, default_amount, required, enabled, field_type, cross_unit, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			default_amount = excluded.default_amount,
			required = excluded.required,
			enabled = excluded.enabled,
			field_type = excluded.field_type,
			cross_unit = excluded.cross_unit,
			sort_order = excluded.sort_order
	`
	_, err := s.db.ExecContext(ctx, query,
		f.ID, f.TenantID, f.Label, f.DefaultAmount.String(),
		f.Required, f.Enabled, string(f.FieldType), f.CrossUnit, f.SortOrder,
	)
	return err
}

// FieldsByTenant lists a tenant's charge fields in sort order.
func (s *Store) FieldsByTenant(ctx context.Context, tenantID string) ([]ledger.ChargeField, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, tenant_id, label, default_amount, required, enabled, field_type, cross_unit, sort_order FROM charge_fields WHERE tenant_id = ? ORDER BY sort_order, label",
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []ledger.ChargeField
	for rows.Next() {
		var f ledger.ChargeField
		var amount, fieldType string
		if err := rows.Scan(&f.ID, &f.TenantID, &f.Label, &amount, &f.Required, &f.Enabled, &fieldType, &f.CrossUnit, &f.SortOrder); err != nil {
			return nil, err
		}
		f.DefaultAmount = parseDec(amount)
		f.FieldType = ledger.FieldType(fieldType)
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// =============================================================================
// ASSEMBLY POSITIONS AND COMMITTEES
// =============================================================================

// SavePosition upserts an assembly position.
func (s *Store) SavePosition(ctx context.Context, p ledger.AssemblyPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO assembly_positions (id, tenant_id, title, unit_id, active, from_period, to_period, committee_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			unit_id = excluded.unit_id,
			active = excluded.active,
			from_period = excluded.from_period,
			to_period = excluded.to_period,
			committee_id = excluded.committee_id
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.TenantID, p.Title, nullString(p.UnitID), p.Active,
		nullString(string(p.FromPeriod)), nullString(string(p.ToPeriod)), nullString(p.CommitteeID),
	)
	return err
}

// PositionsByTenant lists a tenant's assembly positions.
func (s *Store) PositionsByTenant(ctx context.Context, tenantID string) ([]ledger.AssemblyPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, tenant_id, title, unit_id, active, from_period, to_period, committee_id FROM assembly_positions WHERE tenant_id = ? ORDER BY title",
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []ledger.AssemblyPosition
	for rows.Next() {
		var p ledger.AssemblyPosition
		var unitID, fromPeriod, toPeriod, committeeID sql.NullString
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Title, &unitID, &p.Active, &fromPeriod, &toPeriod, &committeeID); err != nil {
			return nil, err
		}
		p.UnitID = unitID.String
		p.FromPeriod = ledger.Period(fromPeriod.String)
		p.ToPeriod = ledger.Period(toPeriod.String)
		p.CommitteeID = committeeID.String
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// SaveCommittee upserts a committee.
func (s *Store) SaveCommittee(ctx context.Context, c ledger.Committee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO committees (id, tenant_id, name, grants_exemption)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			grants_exemption = excluded.grants_exemption
	`
	_, err := s.db.ExecContext(ctx, query, c.ID, c.TenantID, c.Name, c.GrantsExemption)
	return err
}

// CommitteesByTenant lists a tenant's committees.
func (s *Store) CommitteesByTenant(ctx context.Context, tenantID string) ([]ledger.Committee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, tenant_id, name, grants_exemption FROM committees WHERE tenant_id = ? ORDER BY name",
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var committees []ledger.Committee
	for rows.Next() {
		var c ledger.Committee
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.GrantsExemption); err != nil {
			return nil, err
		}
		committees = append(committees, c)
	}
	return committees, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"field_receipts", "additional_entries", "payments",
		"expense_entries", "petty_cash", "unidentified_income",
		"assembly_positions", "committees",
		"closed_periods", "reopen_requests",
		"charge_fields", "units", "tenants",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
