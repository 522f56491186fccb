package contracts

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validContractPayload() ContractPayload {
	return ContractPayload{
		ContractNumber: "KV-2025-001",
		Type:           ContractTypePurchase,
		CounterpartyID: uuid.New(),
		Commodity:      "Winterweizen",
		Quantity:       decimal.NewFromInt(100),
		Unit:           "t",
		PricePerUnit:   decimal.RequireFromString("245.50"),
		AmountNet:      decimal.RequireFromString("24550"),
		Currency:       "EUR",
		DeliveryFrom:   "2025-08-01",
		DeliveryTo:     "2025-09-30",
		DeliveryTerms:  DeliveryTerms{Incoterm: "FCA", Location: "Lager Nord"},
	}
}

func newTestContract(t *testing.T) *Contract {
	t.Helper()
	c, err := NewContract(uuid.New(), validContractPayload(), "trader-1")
	require.NoError(t, err)
	return c
}

func activeContract(t *testing.T) *Contract {
	t.Helper()
	c := newTestContract(t)
	require.NoError(t, c.Activate("trader-1"))
	return c
}

func TestNewContract(t *testing.T) {
	t.Run("creates draft contract", func(t *testing.T) {
		c := newTestContract(t)
		assert.Equal(t, ContractStatusDraft, c.Status())
		assert.Equal(t, "KV-2025-001", c.BusinessKey())
		assert.Equal(t, 1, c.Version())
		require.Len(t, c.PendingEvents(), 1)
		assert.Equal(t, EventTypeContractCreated, c.PendingEvents()[0].EventType())
	})

	t.Run("rejects inverted delivery period", func(t *testing.T) {
		p := validContractPayload()
		p.DeliveryTo = "2025-07-01"

		_, err := NewContract(uuid.New(), p, "")

		var rerr *shared.BusinessRuleViolation
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, "delivery_period", rerr.Rule)
	})

	t.Run("reports nested delivery terms", func(t *testing.T) {
		p := validContractPayload()
		p.DeliveryTerms.Incoterm = "XYZ"

		_, err := NewContract(uuid.New(), p, "")

		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"deliveryTerms.incoterm"}, verr.Fields())
	})
}

func TestContract_Activate(t *testing.T) {
	c := activeContract(t)
	assert.Equal(t, ContractStatusActive, c.Status())
	assert.Equal(t, 2, c.Version())

	require.NoError(t, c.Activate("trader-1"))
	assert.Equal(t, 2, c.Version(), "re-activation is a no-op")

	require.NoError(t, c.Cancel("crop failure", "trader-1"))
	err := c.Activate("trader-1")
	assert.ErrorIs(t, err, shared.ErrIllegalStateTransition)
}

func TestContract_RecordFulfillment(t *testing.T) {
	t.Run("partial then full", func(t *testing.T) {
		c := activeContract(t)

		require.NoError(t, c.RecordFulfillment(decimal.NewFromInt(40), "scale"))
		assert.Equal(t, ContractStatusPartiallyFulfilled, c.Status())
		assert.True(t, c.OpenQuantity().Equal(decimal.NewFromInt(60)))

		require.NoError(t, c.RecordFulfillment(decimal.NewFromInt(60), "scale"))
		assert.Equal(t, ContractStatusFulfilled, c.Status())
		assert.True(t, c.OpenQuantity().IsZero())
		assert.Equal(t, 4, c.Version())
	})

	t.Run("over-fulfillment is a business rule violation", func(t *testing.T) {
		c := activeContract(t)

		err := c.RecordFulfillment(decimal.NewFromInt(101), "scale")

		assert.ErrorIs(t, err, shared.ErrBusinessRule)
		assert.Equal(t, ContractStatusActive, c.Status())
		assert.Equal(t, 2, c.Version())
	})

	t.Run("non-positive quantity is rejected", func(t *testing.T) {
		c := activeContract(t)
		assert.ErrorIs(t, c.RecordFulfillment(decimal.Zero, "scale"), shared.ErrValidation)
	})

	t.Run("not allowed on draft", func(t *testing.T) {
		c := newTestContract(t)
		assert.ErrorIs(t, c.RecordFulfillment(decimal.NewFromInt(1), "scale"), shared.ErrIllegalStateTransition)
	})
}

func TestContract_Cancel(t *testing.T) {
	t.Run("fulfilled contract cannot be cancelled", func(t *testing.T) {
		c := activeContract(t)
		require.NoError(t, c.RecordFulfillment(decimal.NewFromInt(100), "scale"))
		version := c.Version()

		err := c.Cancel("changed mind", "trader-1")

		var ierr *shared.IllegalStateTransitionError
		require.ErrorAs(t, err, &ierr)
		assert.Equal(t, string(ContractStatusFulfilled), ierr.Current)
		assert.Equal(t, OpCancel, ierr.Operation)
		assert.Equal(t, version, c.Version())
	})

	t.Run("records reason", func(t *testing.T) {
		c := newTestContract(t)
		require.NoError(t, c.Cancel("duplicate entry", "trader-1"))
		assert.Equal(t, ContractStatusCancelled, c.Status())
		assert.Equal(t, "duplicate entry", c.Payload().CancellationReason)
	})

	t.Run("requires reason", func(t *testing.T) {
		c := newTestContract(t)
		assert.ErrorIs(t, c.Cancel("", "trader-1"), shared.ErrValidation)
	})

	t.Run("repeat cancel is a no-op", func(t *testing.T) {
		c := newTestContract(t)
		require.NoError(t, c.Cancel("duplicate entry", "trader-1"))
		require.NoError(t, c.Cancel("again", "trader-1"))
		assert.Equal(t, 2, c.Version())
		assert.Equal(t, "duplicate entry", c.Payload().CancellationReason)
	})
}

func TestContract_MarkDefaulted(t *testing.T) {
	c := activeContract(t)
	require.NoError(t, c.MarkDefaulted("no delivery", "trader-1"))
	assert.Equal(t, ContractStatusDefaulted, c.Status())
	assert.True(t, ContractTransitions.IsTerminal(c.Status()))

	assert.ErrorIs(t, c.Cancel("late", "trader-1"), shared.ErrIllegalStateTransition)
}

func TestContract_UpdateTerms(t *testing.T) {
	t.Run("updates draft terms", func(t *testing.T) {
		c := newTestContract(t)
		qty := decimal.NewFromInt(120)

		require.NoError(t, c.UpdateTerms(ContractTermsPatch{Quantity: &qty}, "trader-2"))

		assert.True(t, c.Payload().Quantity.Equal(qty))
		assert.Equal(t, "trader-2", c.UpdatedBy())
	})

	t.Run("lists both violations", func(t *testing.T) {
		c := newTestContract(t)
		amount := decimal.NewFromInt(-1)
		currency := "EU"

		err := c.UpdateTerms(ContractTermsPatch{AmountNet: &amount, Currency: &currency}, "trader-2")

		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.ElementsMatch(t, []string{"amountNet", "currency"}, verr.Fields())
		assert.Equal(t, 1, c.Version())
	})

	t.Run("locked after activation", func(t *testing.T) {
		c := activeContract(t)
		qty := decimal.NewFromInt(1)
		assert.ErrorIs(t, c.UpdateTerms(ContractTermsPatch{Quantity: &qty}, "x"), shared.ErrIllegalStateTransition)
	})
}

func TestContract_RoundTrip(t *testing.T) {
	c := activeContract(t)
	require.NoError(t, c.RecordFulfillment(decimal.RequireFromString("12.5"), "scale"))
	rec, err := c.ToPersisted()
	require.NoError(t, err)

	restored, err := RestoreContract(rec)
	require.NoError(t, err)

	again, err := restored.ToPersisted()
	require.NoError(t, err)
	assert.Equal(t, rec, again)
	assert.Equal(t, ContractStatusPartiallyFulfilled, restored.Status())
}

func contractInStatus(t *testing.T, status ContractStatus) *Contract {
	t.Helper()
	rec, err := newTestContract(t).ToPersisted()
	require.NoError(t, err)

	p := validContractPayload()
	switch status {
	case ContractStatusFulfilled:
		p.FulfilledQuantity = p.Quantity
	case ContractStatusCancelled:
		p.CancellationReason = "test"
	}
	rec.Payload, err = json.Marshal(p)
	require.NoError(t, err)
	rec.Status = string(status)

	c, err := RestoreContract(rec)
	require.NoError(t, err)
	return c
}

func TestContract_IllegalTransitionsLeaveStateUnchanged(t *testing.T) {
	ops := map[string]func(c *Contract) error{
		OpActivate:          func(c *Contract) error { return c.Activate("x") },
		OpRecordFulfillment: func(c *Contract) error { return c.RecordFulfillment(decimal.NewFromInt(1), "x") },
		OpCancel:            func(c *Contract) error { return c.Cancel("reason", "x") },
		OpMarkDefaulted:     func(c *Contract) error { return c.MarkDefaulted("reason", "x") },
		OpUpdateTerms: func(c *Contract) error {
			qty := decimal.NewFromInt(5)
			return c.UpdateTerms(ContractTermsPatch{Quantity: &qty}, "x")
		},
	}
	require.ElementsMatch(t, ContractTransitions.Ops(), mapKeys(ops))

	for _, status := range ContractDefinition.Statuses {
		for op, call := range ops {
			if ContractTransitions.Allowed(status, op) {
				continue
			}
			t.Run(string(status)+"/"+op, func(t *testing.T) {
				c := contractInStatus(t, status)
				before, err := c.ToPersisted()
				require.NoError(t, err)

				err = call(c)

				assert.ErrorIs(t, err, shared.ErrIllegalStateTransition)
				after, err := c.ToPersisted()
				require.NoError(t, err)
				assert.Equal(t, before, after)
				assert.Empty(t, c.PendingEvents())
			})
		}
	}
}

func mapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
