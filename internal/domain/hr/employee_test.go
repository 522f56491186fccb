package hr

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmployee(t *testing.T) *Employee {
	t.Helper()
	e, err := NewEmployee(uuid.New(), EmployeePayload{
		EmployeeNumber: "MA-042",
		FirstName:      "Jana",
		LastName:       "Schulz",
		Email:          "jana.schulz@example.com",
		HireDate:       "2021-04-01",
		WeeklyHours:    40,
		IBAN:           "DE89370400440532013000",
	}, "hr-admin")
	require.NoError(t, err)
	return e
}

func TestEmployee_Leave(t *testing.T) {
	e := newTestEmployee(t)
	assert.Equal(t, EmployeeStatusActive, e.Status())

	require.NoError(t, e.StartLeave("hr-admin"))
	assert.Equal(t, EmployeeStatusOnLeave, e.Status())
	require.NoError(t, e.ReturnFromLeave("hr-admin"))
	assert.Equal(t, EmployeeStatusActive, e.Status())
	require.NoError(t, e.ReturnFromLeave("hr-admin"), "already active")
	assert.Equal(t, 3, e.Version())
}

func TestEmployee_Terminate(t *testing.T) {
	t.Run("terminates on date", func(t *testing.T) {
		e := newTestEmployee(t)
		require.NoError(t, e.Terminate("2025-06-30", "hr-admin"))
		assert.Equal(t, EmployeeStatusTerminated, e.Status())
		assert.Equal(t, "2025-06-30", e.Payload().TerminationDate)

		hours := 20.0
		err := e.UpdateDetails(EmployeeDetailsPatch{WeeklyHours: &hours}, "hr-admin")
		assert.ErrorIs(t, err, shared.ErrIllegalStateTransition)
		assert.ErrorIs(t, e.StartLeave("hr-admin"), shared.ErrIllegalStateTransition)
	})

	t.Run("date before hire", func(t *testing.T) {
		e := newTestEmployee(t)
		assert.ErrorIs(t, e.Terminate("2020-01-01", "hr-admin"), shared.ErrBusinessRule)
		assert.Equal(t, EmployeeStatusActive, e.Status())
	})

	t.Run("malformed date", func(t *testing.T) {
		e := newTestEmployee(t)
		assert.ErrorIs(t, e.Terminate("30.06.2025", "hr-admin"), shared.ErrValidation)
	})
}

func TestEmployee_UpdateDetails(t *testing.T) {
	e := newTestEmployee(t)
	hours := 61.0
	email := "broken"

	err := e.UpdateDetails(EmployeeDetailsPatch{WeeklyHours: &hours, Email: &email}, "hr-admin")

	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{"weeklyHours", "email"}, verr.Fields())

	position := "Disponentin"
	require.NoError(t, e.UpdateDetails(EmployeeDetailsPatch{Position: &position}, "hr-admin"))
	assert.Equal(t, "Disponentin", e.Payload().Position)
	assert.Equal(t, "Jana Schulz", e.FullName())
}

func TestEmployee_ToPublicRedactsIBAN(t *testing.T) {
	e := newTestEmployee(t)

	view, err := e.ToPublic()
	require.NoError(t, err)
	data, err := json.Marshal(view)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "DE89370400440532013000")
	assert.Empty(t, view.Payload.IBAN)
	assert.Equal(t, "DE89370400440532013000", e.Payload().IBAN)
}
