package shared

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schemaProbe struct {
	OwnerID     uuid.UUID       `json:"ownerId" validate:"required"`
	Email       string          `json:"email" validate:"required,email"`
	Probability float64         `json:"probability" validate:"gte=0,lte=1"`
	Price       decimal.Decimal `json:"price" validate:"gt=0"`
	StartDate   string          `json:"startDate" validate:"required,datetime=2006-01-02"`
	Kind        string          `json:"kind" validate:"oneof=spot forward"`
	Internal    string          `json:"-"`
}

func validProbe() schemaProbe {
	return schemaProbe{
		OwnerID:     uuid.New(),
		Email:       "a@example.com",
		Probability: 0.5,
		Price:       decimal.RequireFromString("1.25"),
		StartDate:   "2025-01-10",
		Kind:        "spot",
	}
}

func TestSchema_Validate(t *testing.T) {
	s := NewSchema("Probe")

	t.Run("valid", func(t *testing.T) {
		p := validProbe()
		assert.NoError(t, s.Validate(&p))
	})

	t.Run("aggregates every violation", func(t *testing.T) {
		p := schemaProbe{
			OwnerID:     uuid.Nil,
			Email:       "nope",
			Probability: 1.5,
			Price:       decimal.Zero,
			StartDate:   "10.01.2025",
			Kind:        "swap",
		}

		err := s.Validate(&p)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "Probe", verr.AggregateType)
		assert.ElementsMatch(t,
			[]string{"ownerId", "email", "probability", "price", "startDate", "kind"},
			verr.Fields())
		for _, v := range verr.Violations {
			assert.NotEmpty(t, v.Message)
			assert.NotEmpty(t, v.Rule)
		}
		assert.Contains(t, err.Error(), "probability: Must be less than or equal to 1")
	})

	t.Run("partial mode checks only named fields", func(t *testing.T) {
		p := validProbe()
		p.Email = "nope"
		p.Probability = -1

		err := s.ValidateFields(&p, "Probability")

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"probability"}, verr.Fields())
		assert.NoError(t, s.ValidateFields(&p))
	})
}

func TestSchema_Violation(t *testing.T) {
	err := NewSchema("Probe").Violation("status", "oneof", "Must be one of: A B")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Probe validation failed: status: Must be one of: A B", err.Error())
}
