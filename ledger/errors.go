/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error kinds in one place. The write path (billing package) and the
  HTTP layer match on these with errors.Is/errors.As; domain code wraps
  them with context rather than inventing new sentinels.

ERROR CATEGORIES:
  1. PeriodClosed  - write attempted against a closed period; recoverable
     by filing a reopen request
  2. NotFound      - referenced tenant/unit/payment/entry absent
  3. InvalidAmount - negative or non-numeric monetary input, rejected at
     the capture boundary before reaching the engine
  4. InvalidPeriod - malformed YYYY-MM token

SEE ALSO:
  - billing/capture.go: raises these on the write path
  - api/handlers.go: maps them to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPeriodClosed is returned when a capture operation targets a
	// tenant+period that has been closed.
	ErrPeriodClosed = errors.New("period is closed")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidAmount is returned for negative or unparseable money.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidPeriod is returned for malformed period tokens.
	ErrInvalidPeriod = errors.New("invalid period token")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PeriodClosedError reports which tenant+period blocked a write.
type PeriodClosedError struct {
	TenantID string
	Period   Period
}

func (e *PeriodClosedError) Error() string {
	return fmt.Sprintf("period %s is closed for tenant %s", e.Period, e.TenantID)
}

func (e *PeriodClosedError) Unwrap() error { return ErrPeriodClosed }

// NotFoundError reports which record was missing.
type NotFoundError struct {
	Kind string // "tenant", "unit", "payment", "entry", ...
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidAmountError reports which field carried a bad amount.
type InvalidAmountError struct {
	Field string
	Value string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %q for %s", e.Value, e.Field)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// or a recoverable workflow condition.
func IsClientError(err error) bool {
	return errors.Is(err, ErrPeriodClosed) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
