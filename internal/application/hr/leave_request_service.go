package hr

import (
	"context"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/application/aggregate"
	"github.com/neuroerp/backend/internal/domain/hr"
	"github.com/neuroerp/backend/internal/domain/shared"
)

// LeaveRequestView is the public representation of a leave request
type LeaveRequestView = shared.PublicView[hr.LeaveRequestPayload]

// LeaveRequestService handles leave requests
type LeaveRequestService struct {
	*aggregate.Service[*hr.LeaveRequest, hr.LeaveRequestPayload]
}

// NewLeaveRequestService creates a new LeaveRequestService
func NewLeaveRequestService(store shared.AggregateStore, opts ...aggregate.Option) *LeaveRequestService {
	repo := aggregate.NewRepository(hr.AggregateTypeLeaveRequest, store, hr.RestoreLeaveRequest, opts...)
	return &LeaveRequestService{
		Service: aggregate.NewService[*hr.LeaveRequest, hr.LeaveRequestPayload](repo),
	}
}

// Create files a pending request
func (s *LeaveRequestService) Create(ctx context.Context, tenantID uuid.UUID, payload hr.LeaveRequestPayload, actor string) (LeaveRequestView, error) {
	return s.Service.Create(ctx, tenantID, func(opts ...shared.Option) (*hr.LeaveRequest, error) {
		return hr.NewLeaveRequest(tenantID, payload, actor, opts...)
	})
}

// Approve grants a pending request
func (s *LeaveRequestService) Approve(ctx context.Context, tenantID, id uuid.UUID, actor string) (LeaveRequestView, error) {
	return s.Do(ctx, tenantID, id, hr.OpApproveLeave, func(r *hr.LeaveRequest) error {
		return r.Approve(actor)
	})
}

// Reject turns down a pending request
func (s *LeaveRequestService) Reject(ctx context.Context, tenantID, id uuid.UUID, reason, actor string) (LeaveRequestView, error) {
	return s.Do(ctx, tenantID, id, hr.OpRejectLeave, func(r *hr.LeaveRequest) error {
		return r.Reject(reason, actor)
	})
}

// Cancel withdraws a request
func (s *LeaveRequestService) Cancel(ctx context.Context, tenantID, id uuid.UUID, actor string) (LeaveRequestView, error) {
	return s.Do(ctx, tenantID, id, hr.OpCancelLeave, func(r *hr.LeaveRequest) error {
		return r.Cancel(actor)
	})
}
