package hr

import (
	"context"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/application/aggregate"
	"github.com/neuroerp/backend/internal/domain/hr"
	"github.com/neuroerp/backend/internal/domain/shared"
)

// TimeEntryView is the public representation of a time entry
// together with its derived working time
type TimeEntryView struct {
	shared.PublicView[hr.TimeEntryPayload]
	WorkingMinutes  int `json:"workingMinutes"`
	OvertimeMinutes int `json:"overtimeMinutes"`
}

// TimeEntryService handles time tracking
type TimeEntryService struct {
	repo *aggregate.Repository[*hr.TimeEntry]
}

// NewTimeEntryService creates a new TimeEntryService
func NewTimeEntryService(store shared.AggregateStore, opts ...aggregate.Option) *TimeEntryService {
	return &TimeEntryService{
		repo: aggregate.NewRepository(hr.AggregateTypeTimeEntry, store, hr.RestoreTimeEntry, opts...),
	}
}

// Create records a draft entry
func (s *TimeEntryService) Create(ctx context.Context, tenantID uuid.UUID, payload hr.TimeEntryPayload, actor string) (TimeEntryView, error) {
	return timeEntryView(s.repo.Create(ctx, tenantID, func(opts ...shared.Option) (*hr.TimeEntry, error) {
		return hr.NewTimeEntry(tenantID, payload, actor, opts...)
	}))
}

// Get returns the entry with id
func (s *TimeEntryService) Get(ctx context.Context, tenantID, id uuid.UUID) (TimeEntryView, error) {
	return timeEntryView(s.repo.Get(ctx, tenantID, id))
}

// GetByBusinessKey returns the entry with entryNumber key
func (s *TimeEntryService) GetByBusinessKey(ctx context.Context, tenantID uuid.UUID, key string) (TimeEntryView, error) {
	return timeEntryView(s.repo.GetByBusinessKey(ctx, tenantID, key))
}

// List returns one page of entries
func (s *TimeEntryService) List(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[TimeEntryView], error) {
	page, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[TimeEntryView]{}, err
	}
	return aggregate.MapPage(page, func(e *hr.TimeEntry) (TimeEntryView, error) {
		return timeEntryView(e, nil)
	})
}

// Adjust corrects a draft entry
func (s *TimeEntryService) Adjust(ctx context.Context, tenantID, id uuid.UUID, patch hr.TimeEntryPatch, actor string) (TimeEntryView, error) {
	return timeEntryView(s.repo.Update(ctx, tenantID, id, hr.OpAdjustTimeEntry, func(e *hr.TimeEntry) error {
		return e.Adjust(patch, actor)
	}))
}

// Submit hands the entry in for approval
func (s *TimeEntryService) Submit(ctx context.Context, tenantID, id uuid.UUID, actor string) (TimeEntryView, error) {
	return timeEntryView(s.repo.Update(ctx, tenantID, id, hr.OpSubmitTimeEntry, func(e *hr.TimeEntry) error {
		return e.Submit(actor)
	}))
}

// Approve accepts a submitted entry
func (s *TimeEntryService) Approve(ctx context.Context, tenantID, id uuid.UUID, actor string) (TimeEntryView, error) {
	return timeEntryView(s.repo.Update(ctx, tenantID, id, hr.OpApproveTimeEntry, func(e *hr.TimeEntry) error {
		return e.Approve(actor)
	}))
}

// Reject returns a submitted entry
func (s *TimeEntryService) Reject(ctx context.Context, tenantID, id uuid.UUID, reason, actor string) (TimeEntryView, error) {
	return timeEntryView(s.repo.Update(ctx, tenantID, id, hr.OpRejectTimeEntry, func(e *hr.TimeEntry) error {
		return e.Reject(reason, actor)
	}))
}

func timeEntryView(e *hr.TimeEntry, err error) (TimeEntryView, error) {
	if err != nil {
		return TimeEntryView{}, err
	}
	pub, err := e.ToPublic()
	if err != nil {
		return TimeEntryView{}, err
	}
	return TimeEntryView{
		PublicView:      pub,
		WorkingMinutes:  e.WorkingMinutes(),
		OvertimeMinutes: e.OvertimeMinutes(),
	}, nil
}
