package ledger

import (
	"time"
)

// =============================================================================
// PERIOD - The billing granularity: one calendar month, tokenized YYYY-MM
// =============================================================================

// Period is a zero-padded YYYY-MM token. Because tokens are zero-padded,
// lexicographic comparison is chronological comparison; the ordering
// helpers below rely on that.
type Period string

// Valid reports whether p is a well-formed YYYY-MM token.
func (p Period) Valid() bool {
	_, err := time.Parse("2006-01", string(p))
	return err == nil
}

func (p Period) Before(q Period) bool        { return p < q }
func (p Period) After(q Period) bool         { return p > q }
func (p Period) BeforeOrEqual(q Period) bool { return p <= q }
func (p Period) AfterOrEqual(q Period) bool  { return p >= q }

// Next returns the following calendar month's token. Invalid periods
// return themselves unchanged.
func (p Period) Next() Period {
	t, err := time.Parse("2006-01", string(p))
	if err != nil {
		return p
	}
	return Period(t.AddDate(0, 1, 0).Format("2006-01"))
}

// Prev returns the preceding calendar month's token.
func (p Period) Prev() Period {
	t, err := time.Parse("2006-01", string(p))
	if err != nil {
		return p
	}
	return Period(t.AddDate(0, -1, 0).Format("2006-01"))
}

func (p Period) String() string { return string(p) }

// PeriodsBetween produces the ordered, inclusive monthly sequence from
// start to end. It returns nil when either bound is absent or malformed,
// or when start > end.
func PeriodsBetween(start, end Period) []Period {
	if start == "" || end == "" || !start.Valid() || !end.Valid() || start.After(end) {
		return nil
	}
	var out []Period
	for p := start; p.BeforeOrEqual(end); p = p.Next() {
		out = append(out, p)
	}
	return out
}

// PeriodOf tokenizes the month containing t.
func PeriodOf(t time.Time) Period {
	return Period(t.Format("2006-01"))
}

// TodayPeriod returns the current calendar month as a token.
func TodayPeriod() Period {
	return PeriodOf(time.Now())
}

// PastOrCurrent reports whether p has already started relative to today.
// Future periods never show as pending on a statement.
func (p Period) PastOrCurrent(today Period) bool {
	return p.BeforeOrEqual(today)
}
