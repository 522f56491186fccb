package hr

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/hr"
	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/neuroerp/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tenantID = uuid.MustParse("6f1c8a52-3b7e-4d8a-9a51-0c2f4d6e7b90")

func TestEmployeeService(t *testing.T) {
	svc := NewEmployeeService(persistence.NewInMemoryAggregateStore())
	ctx := context.Background()

	emp, err := svc.Create(ctx, tenantID, hr.EmployeePayload{
		EmployeeNumber: "MA-0042",
		FirstName:      "Lukas",
		LastName:       "Hartmann",
		HireDate:       "2023-02-01",
		WeeklyHours:    38.5,
		IBAN:           "DE89370400440532013000",
	}, "hr-admin")
	require.NoError(t, err)

	data, err := json.Marshal(emp)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "DE89370400440532013000")

	_, err = svc.StartLeave(ctx, tenantID, emp.ID, "hr-admin")
	require.NoError(t, err)
	again, err := svc.StartLeave(ctx, tenantID, emp.ID, "hr-admin")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Version)

	back, err := svc.ReturnFromLeave(ctx, tenantID, emp.ID, "hr-admin")
	require.NoError(t, err)
	assert.Equal(t, string(hr.EmployeeStatusActive), back.Status)

	dept := "Lager"
	_, err = svc.UpdateDetails(ctx, tenantID, emp.ID, hr.EmployeeDetailsPatch{Department: &dept}, "hr-admin")
	require.NoError(t, err)

	_, err = svc.Terminate(ctx, tenantID, emp.ID, "2022-12-31", "hr-admin")
	assert.ErrorIs(t, err, shared.ErrBusinessRule)

	gone, err := svc.Terminate(ctx, tenantID, emp.ID, "2026-06-30", "hr-admin")
	require.NoError(t, err)
	assert.Equal(t, string(hr.EmployeeStatusTerminated), gone.Status)
	assert.Equal(t, "Lager", gone.Payload.Department)
}

func TestLeaveRequestService(t *testing.T) {
	svc := NewLeaveRequestService(persistence.NewInMemoryAggregateStore())
	ctx := context.Background()
	create := func(number string) LeaveRequestView {
		t.Helper()
		v, err := svc.Create(ctx, tenantID, hr.LeaveRequestPayload{
			RequestNumber: number,
			EmployeeID:    uuid.New(),
			Type:          hr.LeaveTypeVacation,
			From:          "2026-08-03",
			To:            "2026-08-12",
			Days:          decimal.NewFromInt(10),
		}, "employee")
		require.NoError(t, err)
		return v
	}

	t.Run("days outside tolerance", func(t *testing.T) {
		_, err := svc.Create(ctx, tenantID, hr.LeaveRequestPayload{
			RequestNumber: "UA-1",
			EmployeeID:    uuid.New(),
			Type:          hr.LeaveTypeVacation,
			From:          "2026-08-03",
			To:            "2026-08-04",
			Days:          decimal.NewFromInt(5),
		}, "employee")
		assert.ErrorIs(t, err, shared.ErrBusinessRule)
	})

	t.Run("approve then cancel", func(t *testing.T) {
		lr := create("UA-2")
		approved, err := svc.Approve(ctx, tenantID, lr.ID, "lead")
		require.NoError(t, err)
		assert.Equal(t, "lead", approved.Payload.DecidedBy)

		cancelled, err := svc.Cancel(ctx, tenantID, lr.ID, "employee")
		require.NoError(t, err)
		assert.Equal(t, string(hr.LeaveStatusCancelled), cancelled.Status)
	})

	t.Run("reject needs reason", func(t *testing.T) {
		lr := create("UA-3")
		_, err := svc.Reject(ctx, tenantID, lr.ID, "", "lead")
		assert.ErrorIs(t, err, shared.ErrValidation)

		rejected, err := svc.Reject(ctx, tenantID, lr.ID, "harvest season", "lead")
		require.NoError(t, err)
		assert.Equal(t, "harvest season", rejected.Payload.DecisionReason)

		_, err = svc.Approve(ctx, tenantID, lr.ID, "lead")
		assert.ErrorIs(t, err, shared.ErrIllegalStateTransition)
	})
}

func TestShiftService(t *testing.T) {
	svc := NewShiftService(persistence.NewInMemoryAggregateStore())
	ctx := context.Background()

	sh, err := svc.Create(ctx, tenantID, hr.ShiftPayload{
		ShiftCode:         "FS-2026-08-03",
		Name:              "Frühschicht Annahme",
		Date:              "2026-08-03",
		StartTime:         "06:00",
		EndTime:           "14:00",
		RequiredHeadcount: 2,
	}, "planner")
	require.NoError(t, err)

	worker := uuid.New()
	_, err = svc.AssignEmployee(ctx, tenantID, sh.ID, worker, "planner")
	require.NoError(t, err)
	_, err = svc.AssignEmployee(ctx, tenantID, sh.ID, worker, "planner")
	assert.ErrorIs(t, err, shared.ErrDuplicateAssignment)

	coverage, err := svc.Coverage(ctx, tenantID, sh.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, coverage, 1e-9)

	_, err = svc.UnassignEmployee(ctx, tenantID, sh.ID, uuid.New(), "planner")
	assert.ErrorIs(t, err, shared.ErrNotAssigned)

	_, err = svc.Publish(ctx, tenantID, sh.ID, "planner")
	require.NoError(t, err)
	done, err := svc.Complete(ctx, tenantID, sh.ID, "planner")
	require.NoError(t, err)
	assert.Equal(t, string(hr.ShiftStatusCompleted), done.Status)
	assert.Equal(t, []uuid.UUID{worker}, done.Payload.AssignedEmployeeIDs)

	_, err = svc.Cancel(ctx, tenantID, sh.ID, "planner")
	assert.ErrorIs(t, err, shared.ErrIllegalStateTransition)
}

func TestTimeEntryService(t *testing.T) {
	svc := NewTimeEntryService(persistence.NewInMemoryAggregateStore())
	ctx := context.Background()
	start := time.Date(2026, 8, 3, 6, 0, 0, 0, time.UTC)

	e, err := svc.Create(ctx, tenantID, hr.TimeEntryPayload{
		EntryNumber:  "ZE-1001",
		EmployeeID:   uuid.New(),
		Start:        start,
		End:          start.Add(10 * time.Hour),
		BreakMinutes: 45,
	}, "terminal")
	require.NoError(t, err)
	assert.Equal(t, 555, e.WorkingMinutes)
	assert.Equal(t, 75, e.OvertimeMinutes)

	brk := 30
	adjusted, err := svc.Adjust(ctx, tenantID, e.ID, hr.TimeEntryPatch{BreakMinutes: &brk}, "lead")
	require.NoError(t, err)
	assert.Equal(t, 570, adjusted.WorkingMinutes)

	_, err = svc.Submit(ctx, tenantID, e.ID, "employee")
	require.NoError(t, err)
	_, err = svc.Adjust(ctx, tenantID, e.ID, hr.TimeEntryPatch{BreakMinutes: &brk}, "lead")
	assert.ErrorIs(t, err, shared.ErrIllegalStateTransition)

	approved, err := svc.Approve(ctx, tenantID, e.ID, "lead")
	require.NoError(t, err)
	assert.Equal(t, "lead", approved.Payload.ApprovedBy)

	byKey, err := svc.GetByBusinessKey(ctx, tenantID, "ZE-1001")
	require.NoError(t, err)
	assert.Equal(t, string(hr.TimeEntryStatusApproved), byKey.Status)

	page, err := svc.List(ctx, tenantID, shared.Filter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 570, page.Items[0].WorkingMinutes)

	_, err = svc.Reject(ctx, tenantID, e.ID, "wrong day", "lead")
	assert.ErrorIs(t, err, shared.ErrIllegalStateTransition)
}
