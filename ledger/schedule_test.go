package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condokit/billing-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================
// Shared across the ledger package tests.

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func boardTenant() ledger.Tenant {
	return ledger.Tenant{
		ID:             "t-1",
		Name:           "Residencial Las Palmas",
		MaintenanceFee: dec("2500"),
		Currency:       "MXN",
		OperationStart: "2025-01",
		AdminType:      ledger.AdminBoard,
	}
}

func plainUnit(id string) ledger.Unit {
	return ledger.Unit{ID: id, TenantID: "t-1", Name: "Casa " + id, Code: id}
}

func reserveField() ledger.ChargeField {
	return ledger.ChargeField{
		ID:            "f-reserva",
		TenantID:      "t-1",
		Label:         "Fondo de Reserva",
		DefaultAmount: dec("500"),
		Required:      true,
		Enabled:       true,
		FieldType:     ledger.FieldNormal,
	}
}

func optionalField(id, label string, ft ledger.FieldType) ledger.ChargeField {
	return ledger.ChargeField{
		ID:        id,
		TenantID:  "t-1",
		Label:     label,
		Required:  false,
		Enabled:   true,
		FieldType: ft,
	}
}

// =============================================================================
// EXEMPTION RESOLUTION
// =============================================================================

func TestIsExempt_RequiresAllConditions(t *testing.T) {
	// GIVEN: A board-managed tenant and an eligible unit holding an
	// active position valid through 2025
	unit := plainUnit("u-1")
	unit.AdminExempt = true
	pos := ledger.AssemblyPosition{
		ID:         "p-1",
		TenantID:   "t-1",
		Title:      "Presidente",
		UnitID:     "u-1",
		Active:     true,
		FromPeriod: "2025-01",
		ToPeriod:   "2025-12",
	}
	r := ledger.NewScheduleResolver(boardTenant(), nil, []ledger.AssemblyPosition{pos}, nil)

	// THEN: Exempt inside the window, not outside it
	assert.True(t, r.IsExempt(unit, "2025-06"))
	assert.False(t, r.IsExempt(unit, "2024-12"))
	assert.False(t, r.IsExempt(unit, "2026-01"))
}

func TestIsExempt_NonBoardTenant_NeverExempt(t *testing.T) {
	tenant := boardTenant()
	tenant.AdminType = ledger.AdminExternal
	unit := plainUnit("u-1")
	unit.AdminExempt = true
	pos := ledger.AssemblyPosition{ID: "p-1", UnitID: "u-1", Active: true}
	r := ledger.NewScheduleResolver(tenant, nil, []ledger.AssemblyPosition{pos}, nil)

	assert.False(t, r.IsExempt(unit, "2025-06"))
}

func TestIsExempt_MissingEligibilityFlag(t *testing.T) {
	unit := plainUnit("u-1") // admin_exempt false
	pos := ledger.AssemblyPosition{ID: "p-1", UnitID: "u-1", Active: true}
	r := ledger.NewScheduleResolver(boardTenant(), nil, []ledger.AssemblyPosition{pos}, nil)

	assert.False(t, r.IsExempt(unit, "2025-06"))
}

func TestIsExempt_InactivePosition(t *testing.T) {
	unit := plainUnit("u-1")
	unit.AdminExempt = true
	pos := ledger.AssemblyPosition{ID: "p-1", UnitID: "u-1", Active: false}
	r := ledger.NewScheduleResolver(boardTenant(), nil, []ledger.AssemblyPosition{pos}, nil)

	assert.False(t, r.IsExempt(unit, "2025-06"))
}

func TestIsExempt_UnboundedWindow(t *testing.T) {
	// GIVEN: A position with no validity bounds
	unit := plainUnit("u-1")
	unit.AdminExempt = true
	pos := ledger.AssemblyPosition{ID: "p-1", UnitID: "u-1", Active: true}
	r := ledger.NewScheduleResolver(boardTenant(), nil, []ledger.AssemblyPosition{pos}, nil)

	// THEN: Any period qualifies
	assert.True(t, r.IsExempt(unit, "2020-01"))
	assert.True(t, r.IsExempt(unit, "2030-12"))
}

func TestIsExempt_CommitteeMustGrant(t *testing.T) {
	// GIVEN: Two positions linked to committees, only one of which
	// grants exemptions
	unit := plainUnit("u-1")
	unit.AdminExempt = true
	granting := ledger.Committee{ID: "c-1", TenantID: "t-1", Name: "Vigilancia", GrantsExemption: true}
	plain := ledger.Committee{ID: "c-2", TenantID: "t-1", Name: "Eventos"}

	pos := func(committeeID string) ledger.AssemblyPosition {
		return ledger.AssemblyPosition{ID: "p-" + committeeID, UnitID: "u-1", Active: true, CommitteeID: committeeID}
	}

	rGrant := ledger.NewScheduleResolver(boardTenant(), nil,
		[]ledger.AssemblyPosition{pos("c-1")}, []ledger.Committee{granting, plain})
	rPlain := ledger.NewScheduleResolver(boardTenant(), nil,
		[]ledger.AssemblyPosition{pos("c-2")}, []ledger.Committee{granting, plain})

	assert.True(t, rGrant.IsExempt(unit, "2025-06"))
	assert.False(t, rPlain.IsExempt(unit, "2025-06"))
}

// =============================================================================
// SCHEDULE CONSTRUCTION
// =============================================================================

func TestSchedule_ChargesAndClassification(t *testing.T) {
	// GIVEN: A required field, a neutral optional field, an
	// advance-credit optional field, an expense-only field, and a
	// disabled field
	fields := []ledger.ChargeField{
		reserveField(),
		optionalField("f-agua", "Agua", ledger.FieldNormal),
		optionalField("f-adelanto", "Adelanto", ledger.FieldAdvanceCredit),
		optionalField("f-gastos", "Jardineria", ledger.FieldExpenseOnly),
		{ID: "f-off", TenantID: "t-1", Label: "Off", Required: true, Enabled: false},
	}
	r := ledger.NewScheduleResolver(boardTenant(), fields, nil, nil)

	// WHEN: Resolving the schedule for a non-exempt unit
	s := r.For(plainUnit("u-1"), "2025-03")

	// THEN: Maintenance plus the one required field charge; optional
	// fields classified; expense-only and disabled fields absent
	assert.False(t, s.Exempt)
	assert.True(t, s.MaintenanceCharge.Equal(dec("2500")))
	require.Len(t, s.Required, 1)
	assert.Equal(t, ledger.ExtraKey("f-reserva"), s.Required[0].Key)
	assert.True(t, s.Required[0].Amount.Equal(dec("500")))
	require.Len(t, s.AdvanceCredit, 1)
	assert.Equal(t, ledger.ExtraKey("f-adelanto"), s.AdvanceCredit[0].Key)
	require.Len(t, s.Neutral, 1)
	assert.Equal(t, ledger.ExtraKey("f-agua"), s.Neutral[0].Key)
	assert.True(t, s.TotalCharge().Equal(dec("3000")))
}

func TestSchedule_ExemptZeroesMaintenanceOnly(t *testing.T) {
	// GIVEN: An exempt unit and a required field
	unit := plainUnit("u-1")
	unit.AdminExempt = true
	pos := ledger.AssemblyPosition{ID: "p-1", UnitID: "u-1", Active: true}
	r := ledger.NewScheduleResolver(boardTenant(), []ledger.ChargeField{reserveField()},
		[]ledger.AssemblyPosition{pos}, nil)

	s := r.For(unit, "2025-03")

	// THEN: Maintenance is waived but the required field still charges
	assert.True(t, s.Exempt)
	assert.True(t, s.MaintenanceCharge.IsZero())
	assert.True(t, s.TotalCharge().Equal(dec("500")))
}
