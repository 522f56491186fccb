package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTable_Check(t *testing.T) {
	table := orderDefinition.Transitions

	t.Run("allowed", func(t *testing.T) {
		row, noop, err := table.Check(orderOpen, "ship")
		require.NoError(t, err)
		assert.False(t, noop)
		assert.Equal(t, orderShipped, row.To)
	})

	t.Run("no-op in target status", func(t *testing.T) {
		_, noop, err := table.Check(orderCanceled, "cancel")
		require.NoError(t, err)
		assert.True(t, noop)
	})

	t.Run("non status-changing op is never a no-op", func(t *testing.T) {
		_, noop, err := table.Check(orderOpen, "amend")
		require.NoError(t, err)
		assert.False(t, noop)

		_, _, err = table.Check(orderShipped, "amend")
		assert.ErrorIs(t, err, ErrIllegalStateTransition)
	})

	t.Run("unknown op", func(t *testing.T) {
		_, _, err := table.Check(orderOpen, "refund")
		var ierr *IllegalStateTransitionError
		require.ErrorAs(t, err, &ierr)
		assert.Empty(t, ierr.AllowedFrom)
	})

	t.Run("terminal states reject every status change", func(t *testing.T) {
		for _, s := range []orderStatus{orderClosed, orderCanceled} {
			assert.True(t, table.IsTerminal(s))
			for _, op := range table.Ops() {
				row, noop, err := table.Check(s, op)
				if err == nil {
					assert.True(t, noop, "%s from %s", op, s)
					assert.Equal(t, s, row.To)
				}
			}
		}
	})
}

func TestTransitionTable_AllowedOps(t *testing.T) {
	table := orderDefinition.Transitions

	assert.Equal(t, []string{"amend", "cancel", "ship"}, table.AllowedOps(orderOpen))
	assert.Equal(t, []string{"cancel", "close"}, table.AllowedOps(orderShipped))
	assert.Equal(t, []string{"amend", "cancel", "close", "ship"}, table.Ops())
	assert.False(t, table.Allowed(orderClosed, "ship"))
}
