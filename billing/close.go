/*
close.go - Period closing gate and reopen workflow

PURPOSE:
  A closed period rejects every capture operation for its tenant until
  it is reopened. Reopening is deliberately two-step: a request with a
  free-text reason is filed first, then approved (the mark comes off)
  or rejected (the mark persists). Who may approve is access-control
  plumbing outside this package; the gate only cares about the mark.
*/
package billing

import (
	"context"

	"github.com/google/uuid"

	"github.com/condokit/billing-engine/ledger"
)

// ClosePeriod marks a tenant's period closed. Closing an already
// closed period is a no-op.
func (s *Service) ClosePeriod(ctx context.Context, tenantID string, period ledger.Period) error {
	if !period.Valid() {
		return ledger.ErrInvalidPeriod
	}
	if _, err := s.store.Tenant(ctx, tenantID); err != nil {
		return err
	}
	return s.store.ClosePeriod(ctx, tenantID, period)
}

// ClosedPeriods lists a tenant's closed periods.
func (s *Service) ClosedPeriods(ctx context.Context, tenantID string) ([]ledger.Period, error) {
	if _, err := s.store.Tenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.store.ClosedPeriods(ctx, tenantID)
}

// FileReopenRequest records a request to reopen a closed period. The
// period must actually be closed; asking to reopen an open period is
// rejected as a client error.
func (s *Service) FileReopenRequest(ctx context.Context, tenantID string, period ledger.Period, reason string) (ReopenRequest, error) {
	if !period.Valid() {
		return ReopenRequest{}, ledger.ErrInvalidPeriod
	}
	if _, err := s.store.Tenant(ctx, tenantID); err != nil {
		return ReopenRequest{}, err
	}
	closed, err := s.store.IsClosed(ctx, tenantID, period)
	if err != nil {
		return ReopenRequest{}, err
	}
	if !closed {
		return ReopenRequest{}, &ledger.NotFoundError{Kind: "closed period", ID: string(period)}
	}
	r := ReopenRequest{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		Period:   period,
		Reason:   reason,
		Status:   ReopenPending,
		FiledAt:  s.now(),
	}
	if err := s.store.SaveReopenRequest(ctx, r); err != nil {
		return ReopenRequest{}, err
	}
	return r, nil
}

// ApproveReopen resolves a pending request and removes the closed
// mark, making the period writable again.
func (s *Service) ApproveReopen(ctx context.Context, tenantID, requestID string) (ReopenRequest, error) {
	return s.resolveReopen(ctx, tenantID, requestID, ReopenApproved)
}

// RejectReopen resolves a pending request; the closed mark persists.
func (s *Service) RejectReopen(ctx context.Context, tenantID, requestID string) (ReopenRequest, error) {
	return s.resolveReopen(ctx, tenantID, requestID, ReopenRejected)
}

func (s *Service) resolveReopen(ctx context.Context, tenantID, requestID string, outcome ReopenStatus) (ReopenRequest, error) {
	r, err := s.store.ReopenRequestByID(ctx, tenantID, requestID)
	if err != nil {
		return ReopenRequest{}, err
	}
	if r.Status != ReopenPending {
		return ReopenRequest{}, &ledger.NotFoundError{Kind: "pending reopen request", ID: requestID}
	}
	now := s.now()
	r.Status = outcome
	r.ResolvedAt = &now
	if err := s.store.SaveReopenRequest(ctx, r); err != nil {
		return ReopenRequest{}, err
	}
	if outcome == ReopenApproved {
		if err := s.store.ReopenPeriod(ctx, tenantID, r.Period); err != nil {
			return ReopenRequest{}, err
		}
	}
	return r, nil
}

// ReopenRequests lists a tenant's reopen requests, newest first per
// the store's ordering.
func (s *Service) ReopenRequests(ctx context.Context, tenantID string) ([]ReopenRequest, error) {
	if _, err := s.store.Tenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.store.ReopenRequestsByTenant(ctx, tenantID)
}
