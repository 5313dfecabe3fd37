package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/condokit/billing-engine/ledger"
)

func TestPeriodsBetween_OrderedInclusive(t *testing.T) {
	// GIVEN: A three-month range
	// WHEN: Expanding it
	// THEN: All three tokens appear, in order
	got := ledger.PeriodsBetween("2025-01", "2025-03")
	assert.Equal(t, []ledger.Period{"2025-01", "2025-02", "2025-03"}, got)
}

func TestPeriodsBetween_ReversedRange_Empty(t *testing.T) {
	assert.Empty(t, ledger.PeriodsBetween("2025-03", "2025-01"))
}

func TestPeriodsBetween_MissingBound_Empty(t *testing.T) {
	assert.Empty(t, ledger.PeriodsBetween("", "2025-03"))
	assert.Empty(t, ledger.PeriodsBetween("2025-01", ""))
}

func TestPeriodsBetween_SinglePeriod(t *testing.T) {
	assert.Equal(t, []ledger.Period{"2025-06"}, ledger.PeriodsBetween("2025-06", "2025-06"))
}

func TestPeriodsBetween_YearBoundary(t *testing.T) {
	got := ledger.PeriodsBetween("2024-11", "2025-02")
	assert.Equal(t, []ledger.Period{"2024-11", "2024-12", "2025-01", "2025-02"}, got)
}

func TestPeriod_Next(t *testing.T) {
	cases := []struct {
		in, want ledger.Period
	}{
		{"2025-01", "2025-02"},
		{"2025-12", "2026-01"},
		{"2024-02", "2024-03"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.in.Next())
	}
}

func TestPeriod_Valid(t *testing.T) {
	assert.True(t, ledger.Period("2025-07").Valid())
	assert.False(t, ledger.Period("2025-13").Valid())
	assert.False(t, ledger.Period("2025-7").Valid())
	assert.False(t, ledger.Period("garbage").Valid())
	assert.False(t, ledger.Period("").Valid())
}

func TestPeriod_PastOrCurrent(t *testing.T) {
	today := ledger.Period("2025-06")
	assert.True(t, ledger.Period("2025-05").PastOrCurrent(today))
	assert.True(t, ledger.Period("2025-06").PastOrCurrent(today))
	assert.False(t, ledger.Period("2025-07").PastOrCurrent(today))
}

func TestPeriodOf(t *testing.T) {
	at := time.Date(2025, time.March, 17, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, ledger.Period("2025-03"), ledger.PeriodOf(at))
}
